package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/openclaw/pairing-relay-go/internal/database"
	"github.com/openclaw/pairing-relay-go/internal/model"
)

type PairingRequestRepository interface {
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) PairingRequestRepository
	FindByCode(ctx context.Context, code string) (*model.PairingRequest, error)
	Exists(ctx context.Context, code string) (bool, error)
	Create(ctx context.Context, req model.PairingRequest) error
	// Delete removes the request and reports how many rows were removed.
	Delete(ctx context.Context, code string) (int64, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type pairingRequestRepo struct {
	db database.DBTX
}

func NewPairingRequestRepository(db *sqlx.DB) PairingRequestRepository {
	return &pairingRequestRepo{db: db}
}

func (r *pairingRequestRepo) WithTx(tx *sqlx.Tx) PairingRequestRepository {
	return &pairingRequestRepo{db: tx}
}

func (r *pairingRequestRepo) FindByCode(ctx context.Context, code string) (*model.PairingRequest, error) {
	var req model.PairingRequest
	err := r.db.GetContext(ctx, &req, r.db.Rebind(`
		SELECT code, created_at, expires_at FROM pairing_requests WHERE code = ?
	`), code)
	return HandleNotFound(&req, err)
}

func (r *pairingRequestRepo) Exists(ctx context.Context, code string) (bool, error) {
	var count int
	err := r.db.GetContext(ctx, &count, r.db.Rebind(`
		SELECT COUNT(*) FROM pairing_requests WHERE code = ?
	`), code)
	return count > 0, err
}

func (r *pairingRequestRepo) Create(ctx context.Context, req model.PairingRequest) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO pairing_requests (code, created_at, expires_at) VALUES (?, ?, ?)
	`), req.Code, req.CreatedAt, req.ExpiresAt)
	return err
}

func (r *pairingRequestRepo) Delete(ctx context.Context, code string) (int64, error) {
	result, err := r.db.ExecContext(ctx, r.db.Rebind(`
		DELETE FROM pairing_requests WHERE code = ?
	`), code)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *pairingRequestRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, r.db.Rebind(`
		DELETE FROM pairing_requests WHERE expires_at <= ?
	`), now.UnixMilli())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

type PairingCodeRepository interface {
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) PairingCodeRepository
	FindByCode(ctx context.Context, code string) (*model.PairingCode, error)
	Exists(ctx context.Context, code string) (bool, error)
	Create(ctx context.Context, params model.CreatePairingCodeParams) (*model.PairingCode, error)
	// IncrementClaims bumps claims_used only if it still equals expectedUsed.
	// It reports false when another claim won the race.
	IncrementClaims(ctx context.Context, code string, expectedUsed int) (bool, error)
	Delete(ctx context.Context, code string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
	// Consume erases the stored credential of an exhausted code. The row is
	// kept until expiry so later claims still see it as spent.
	Consume(ctx context.Context, code string) error
}

type pairingCodeRepo struct {
	db database.DBTX
}

func NewPairingCodeRepository(db *sqlx.DB) PairingCodeRepository {
	return &pairingCodeRepo{db: db}
}

func (r *pairingCodeRepo) WithTx(tx *sqlx.Tx) PairingCodeRepository {
	return &pairingCodeRepo{db: tx}
}

const pairingCodeColumns = `code, created_at, expires_at, gateway_url, gateway_token_enc, agent_name, max_claims, claims_used`

func (r *pairingCodeRepo) FindByCode(ctx context.Context, code string) (*model.PairingCode, error) {
	var pc model.PairingCode
	err := r.db.GetContext(ctx, &pc, r.db.Rebind(`
		SELECT `+pairingCodeColumns+` FROM pairing_codes WHERE code = ?
	`), code)
	return HandleNotFound(&pc, err)
}

func (r *pairingCodeRepo) Exists(ctx context.Context, code string) (bool, error) {
	var count int
	err := r.db.GetContext(ctx, &count, r.db.Rebind(`
		SELECT COUNT(*) FROM pairing_codes WHERE code = ?
	`), code)
	return count > 0, err
}

func (r *pairingCodeRepo) Create(ctx context.Context, params model.CreatePairingCodeParams) (*model.PairingCode, error) {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO pairing_codes (`+pairingCodeColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0)
	`), params.Code, params.CreatedAt, params.ExpiresAt, params.GatewayURL,
		params.GatewayTokenEncrypted, params.AgentName, params.MaxClaims)
	if err != nil {
		return nil, err
	}
	return &model.PairingCode{
		Code:                  params.Code,
		CreatedAt:             params.CreatedAt,
		ExpiresAt:             params.ExpiresAt,
		GatewayURL:            params.GatewayURL,
		GatewayTokenEncrypted: params.GatewayTokenEncrypted,
		AgentName:             params.AgentName,
		MaxClaims:             params.MaxClaims,
	}, nil
}

func (r *pairingCodeRepo) IncrementClaims(ctx context.Context, code string, expectedUsed int) (bool, error) {
	result, err := r.db.ExecContext(ctx, r.db.Rebind(`
		UPDATE pairing_codes SET claims_used = claims_used + 1
		WHERE code = ? AND claims_used = ? AND claims_used < max_claims
	`), code, expectedUsed)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *pairingCodeRepo) Delete(ctx context.Context, code string) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
		DELETE FROM pairing_codes WHERE code = ?
	`), code)
	return err
}

func (r *pairingCodeRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, r.db.Rebind(`
		DELETE FROM pairing_codes WHERE expires_at <= ?
	`), now.UnixMilli())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *pairingCodeRepo) Consume(ctx context.Context, code string) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
		UPDATE pairing_codes SET gateway_token_enc = '' WHERE code = ?
	`), code)
	return err
}
