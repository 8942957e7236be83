package main

import (
	"context"
	"os"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/openclaw/pairing-relay-go/cmd/pairctl/internal/commands"
)

var (
	version = "dev"
	cli     struct {
		Request commands.RequestCmd `cmd:"" help:"Create a pairing request code"`
		Issue   commands.IssueCmd   `cmd:"" help:"Issue a pairing code for a gateway"`
		Claim   commands.ClaimCmd   `cmd:"" help:"Claim a pairing code and print the session token"`
		Resolve commands.ResolveCmd `cmd:"" help:"Show the pairing behind a session token"`
		Chat    commands.ChatCmd    `cmd:"" help:"Send one message through a paired session"`
		Sweep   commands.SweepCmd   `cmd:"" help:"Delete expired requests, codes and sessions"`
		Debug   bool                `help:"Enable debug logging."`
		Version kong.VersionFlag
	}
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	ctx := context.Background()
	cmd := kong.Parse(&cli,
		kong.Name("pairctl"),
		kong.Description("Operate the OpenClaw pairing store from a shell."),
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))

	zerolog.SetGlobalLevel(zerolog.WarnLevel)
	if cli.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	err := cmd.Run(&commands.Globals{Debug: cli.Debug, Version: version})
	cmd.FatalIfErrorf(err)
}
