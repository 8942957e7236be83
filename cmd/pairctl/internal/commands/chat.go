package commands

import (
	"context"
	"strings"
	"time"

	"github.com/openclaw/pairing-relay-go/internal/model"
	"github.com/openclaw/pairing-relay-go/internal/relay"
	"github.com/openclaw/pairing-relay-go/internal/service"
)

type ChatCmd struct {
	StoreFlags
	Token       string        `help:"Session token" required:"" env:"OPENCLAW_SESSION_TOKEN"`
	System      string        `help:"Optional system message"`
	Timeout     time.Duration `help:"Overall relay deadline" default:"70s"`
	IdleTimeout time.Duration `help:"Idle deadline between gateway frames" name:"idle-timeout" default:"20s"`
	Message     []string      `arg:"" help:"Message text"`
}

func (c *ChatCmd) Run(ctx context.Context, globals *Globals) error {
	svc, db, err := c.open(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	client := relay.NewClient(nil,
		relay.WithTimeouts(c.Timeout, c.IdleTimeout),
		relay.WithClientVersion(globals.Version))
	chat := service.NewChatService(svc, client, nil)

	var messages []model.ChatMessage
	if c.System != "" {
		messages = append(messages, model.ChatMessage{Role: model.ChatRoleSystem, Content: c.System})
	}
	messages = append(messages, model.ChatMessage{Role: model.ChatRoleUser, Content: strings.Join(c.Message, " ")})

	result, err := chat.RelayChat(ctx, c.Token, messages)
	if err != nil {
		return err
	}
	return printJSON(result)
}
