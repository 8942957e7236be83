package model

type PairingRequest struct {
	Code      string    `db:"code" json:"code"`
	CreatedAt Timestamp `db:"created_at" json:"createdAt"`
	ExpiresAt Timestamp `db:"expires_at" json:"expiresAt"`
}

type PairingCode struct {
	Code                  string    `db:"code" json:"code"`
	CreatedAt             Timestamp `db:"created_at" json:"createdAt"`
	ExpiresAt             Timestamp `db:"expires_at" json:"expiresAt"`
	GatewayURL            string    `db:"gateway_url" json:"gatewayUrl"`
	GatewayTokenEncrypted string    `db:"gateway_token_enc" json:"-"`
	AgentName             string    `db:"agent_name" json:"agentName"`
	MaxClaims             int       `db:"max_claims" json:"maxClaims"`
	ClaimsUsed            int       `db:"claims_used" json:"claimsUsed"`
}

// Exhausted reports whether every allowed claim has been spent.
func (pc *PairingCode) Exhausted() bool {
	return pc.ClaimsUsed >= pc.MaxClaims
}

type CreatePairingCodeParams struct {
	Code                  string
	CreatedAt             Timestamp
	ExpiresAt             Timestamp
	GatewayURL            string
	GatewayTokenEncrypted string
	AgentName             string
	MaxClaims             int
}
