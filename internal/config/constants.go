package config

import "time"

// Database connection pool settings
const (
	DBMaxOpenConns    = 25
	DBMaxIdleConns    = 5
	DBConnMaxLifetime = 5 * time.Minute
)

// HTTP server timeouts. The request timeout must outlive the relay deadline.
const (
	ServerRequestTimeout  = 90 * time.Second
	ServerReadTimeout     = 15 * time.Second
	ServerIdleTimeout     = 120 * time.Second
	ServerShutdownTimeout = 30 * time.Second
)

// Database ping timeout for health checks
const (
	DBPingTimeout    = 5 * time.Second
	DBConnectMaxWait = 30 * time.Second
)

// Pairing TTL bounds, in seconds
const (
	PairingRequestTTLMin     = 60
	PairingRequestTTLMax     = 30 * 60
	PairingRequestTTLDefault = 5 * 60

	PairingCodeTTLMin     = 60
	PairingCodeTTLMax     = 24 * 60 * 60
	PairingCodeTTLDefault = 10 * 60

	MaxClaimsMin     = 1
	MaxClaimsMax     = 25
	MaxClaimsDefault = 1

	SessionTTLMin     = 5 * 60
	SessionTTLMax     = 60 * 24 * 60 * 60
	SessionTTLDefault = 7 * 24 * 60 * 60
)

// Relay defaults
const (
	RelayTimeoutDefault     = 70 * time.Second
	RelayIdleTimeoutDefault = 20 * time.Second
	DefaultAgentName        = "web-shimeji-1"
	DefaultGatewayURL       = "ws://127.0.0.1:18789"
)

// Default rate limiting
const (
	DefaultRateLimitPerMin = 20
	RateLimitWindow        = time.Minute
)
