package model

// Session is a claimed pairing. Only the hash of the bearer token is kept.
type Session struct {
	TokenHash             string    `db:"token_hash" json:"-"`
	CreatedAt             Timestamp `db:"created_at" json:"createdAt"`
	ExpiresAt             Timestamp `db:"expires_at" json:"expiresAt"`
	GatewayURL            string    `db:"gateway_url" json:"gatewayUrl"`
	GatewayTokenEncrypted string    `db:"gateway_token_enc" json:"-"`
	AgentName             string    `db:"agent_name" json:"agentName"`
}

type CreateSessionParams struct {
	TokenHash             string
	CreatedAt             Timestamp
	ExpiresAt             Timestamp
	GatewayURL            string
	GatewayTokenEncrypted string
	AgentName             string
}
