package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/openclaw/pairing-relay-go/internal/service"
	"github.com/openclaw/pairing-relay-go/internal/util"
)

type RequestCmd struct {
	StoreFlags
	TTL int `help:"Request lifetime in seconds (60-1800)" default:"300"`
}

func (c *RequestCmd) Run(ctx context.Context) error {
	svc, db, err := c.open(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	result, err := svc.CreatePairingRequest(ctx, c.TTL)
	if err != nil {
		return err
	}
	return printJSON(map[string]any{
		"requestCode": util.FormatCode(result.RequestCode),
		"expiresAt":   result.ExpiresAt.Format(time.RFC3339),
		"ttlSeconds":  result.TTLSeconds,
	})
}

type IssueCmd struct {
	StoreFlags
	GatewayURL   string `help:"Gateway WebSocket URL" name:"gateway-url" default:"ws://127.0.0.1:18789"`
	GatewayToken string `help:"Gateway credential" name:"gateway-token" required:"" env:"OPENCLAW_GATEWAY_TOKEN"`
	AgentName    string `help:"Agent name" name:"agent"`
	TTL          int    `help:"Code lifetime in seconds (60-86400)" default:"600"`
	MaxClaims    int    `help:"How many sessions the code can open (1-25)" default:"1"`
	RequestCode  string `help:"Redeem a pairing request code instead of issuing directly" name:"request-code"`
}

func (c *IssueCmd) Run(ctx context.Context) error {
	svc, db, err := c.open(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	params := service.IssueParams{
		GatewayURL:   c.GatewayURL,
		GatewayToken: c.GatewayToken,
		AgentName:    c.AgentName,
		TTLSeconds:   c.TTL,
		MaxClaims:    c.MaxClaims,
	}

	var result *service.PairingCodeResult
	if c.RequestCode != "" {
		result, err = svc.CreatePairingCodeFromRequest(ctx, c.RequestCode, params)
	} else {
		result, err = svc.CreatePairingCode(ctx, params)
	}
	if err != nil {
		return err
	}
	return printJSON(map[string]any{
		"code":       util.FormatCode(result.Code),
		"agentName":  result.AgentName,
		"maxClaims":  result.MaxClaims,
		"expiresAt":  result.ExpiresAt.Format(time.RFC3339),
		"ttlSeconds": result.TTLSeconds,
	})
}

type ClaimCmd struct {
	StoreFlags
	Code       string `arg:"" help:"Pairing code"`
	SessionTTL int    `help:"Session lifetime in seconds (300-5184000)" name:"session-ttl" default:"604800"`
}

func (c *ClaimCmd) Run(ctx context.Context) error {
	svc, db, err := c.open(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	result, err := svc.ClaimPairingCode(ctx, c.Code, c.SessionTTL)
	if err != nil {
		return err
	}
	return printJSON(result)
}

type ResolveCmd struct {
	StoreFlags
	Token      string `arg:"" help:"Session token" env:"OPENCLAW_SESSION_TOKEN"`
	ShowSecret bool   `help:"Print the decrypted gateway credential" name:"show-secret"`
}

func (c *ResolveCmd) Run(ctx context.Context) error {
	svc, db, err := c.open(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	session, err := svc.ResolveSession(ctx, c.Token)
	if err != nil {
		return err
	}

	out := map[string]any{
		"gatewayUrl":       session.GatewayURL,
		"agentName":        session.AgentName,
		"sessionExpiresAt": session.SessionExpiresAt.Format(time.RFC3339),
	}
	if c.ShowSecret {
		out["gatewayToken"] = session.GatewayToken
	}
	return printJSON(out)
}

type SweepCmd struct {
	StoreFlags
}

func (c *SweepCmd) Run(ctx context.Context) error {
	svc, db, err := c.open(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	res, err := svc.Sweep(ctx)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(stdout, "removed %d requests, %d codes, %d sessions\n", res.Requests, res.Codes, res.Sessions)
	return err
}
