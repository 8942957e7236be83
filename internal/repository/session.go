package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/openclaw/pairing-relay-go/internal/database"
	"github.com/openclaw/pairing-relay-go/internal/model"
)

type SessionRepository interface {
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) SessionRepository
	FindByTokenHash(ctx context.Context, tokenHash string) (*model.Session, error)
	// Insert stores the session unless the token hash is already taken.
	// It reports false on a hash collision.
	Insert(ctx context.Context, params model.CreateSessionParams) (bool, error)
	Delete(ctx context.Context, tokenHash string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type sessionRepo struct {
	db database.DBTX
}

func NewSessionRepository(db *sqlx.DB) SessionRepository {
	return &sessionRepo{db: db}
}

func (r *sessionRepo) WithTx(tx *sqlx.Tx) SessionRepository {
	return &sessionRepo{db: tx}
}

func (r *sessionRepo) FindByTokenHash(ctx context.Context, tokenHash string) (*model.Session, error) {
	var session model.Session
	err := r.db.GetContext(ctx, &session, r.db.Rebind(`
		SELECT token_hash, created_at, expires_at, gateway_url, gateway_token_enc, agent_name
		FROM pairing_sessions WHERE token_hash = ?
	`), tokenHash)
	return HandleNotFound(&session, err)
}

func (r *sessionRepo) Insert(ctx context.Context, params model.CreateSessionParams) (bool, error) {
	result, err := r.db.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO pairing_sessions (token_hash, created_at, expires_at, gateway_url, gateway_token_enc, agent_name)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (token_hash) DO NOTHING
	`), params.TokenHash, params.CreatedAt, params.ExpiresAt, params.GatewayURL,
		params.GatewayTokenEncrypted, params.AgentName)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *sessionRepo) Delete(ctx context.Context, tokenHash string) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
		DELETE FROM pairing_sessions WHERE token_hash = ?
	`), tokenHash)
	return err
}

func (r *sessionRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, r.db.Rebind(`
		DELETE FROM pairing_sessions WHERE expires_at <= ?
	`), now.UnixMilli())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
