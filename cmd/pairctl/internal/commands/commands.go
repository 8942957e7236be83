package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/openclaw/pairing-relay-go/internal/database"
	"github.com/openclaw/pairing-relay-go/internal/repository"
	"github.com/openclaw/pairing-relay-go/internal/service"
	"github.com/openclaw/pairing-relay-go/internal/util"
)

type Globals struct {
	Debug   bool
	Version string
}

// StoreFlags locate the pairing store. They share env names with the server
// so the CLI can run next to it with the same environment.
type StoreFlags struct {
	Driver string `help:"Database driver (postgres or sqlite)" default:"postgres" env:"DATABASE_DRIVER" enum:"postgres,sqlite"`
	DB     string `help:"Database URL or sqlite file path" required:"" env:"DATABASE_URL" name:"db"`
	Secret string `help:"Credential encryption secret" required:"" env:"PAIRING_SECRET"`
	Agent  string `help:"Fallback agent name" default:"web-shimeji-1" env:"DEFAULT_AGENT_NAME"`
}

// open connects, migrates and builds a PairingService. The caller closes the
// returned database.
func (f StoreFlags) open(ctx context.Context) (*service.PairingService, *database.DB, error) {
	db, err := database.Connect(ctx, f.Driver, f.DB)
	if err != nil {
		return nil, nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	cipher, err := util.NewCipher(f.Secret)
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("init cipher: %w", err)
	}

	defaults := service.DefaultPairingDefaults()
	if f.Agent != "" {
		defaults.AgentName = f.Agent
	}
	return service.NewPairingService(db, repository.NewStore(db.DB), cipher, defaults, nil), db, nil
}

var stdout io.Writer = os.Stdout

func printJSON(v any) error {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
