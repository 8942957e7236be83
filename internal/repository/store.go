package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// Store groups the three pairing tables so they can be bound to one transaction.
type Store struct {
	Requests PairingRequestRepository
	Codes    PairingCodeRepository
	Sessions SessionRepository
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{
		Requests: NewPairingRequestRepository(db),
		Codes:    NewPairingCodeRepository(db),
		Sessions: NewSessionRepository(db),
	}
}

func (s *Store) WithTx(tx *sqlx.Tx) *Store {
	return &Store{
		Requests: s.Requests.WithTx(tx),
		Codes:    s.Codes.WithTx(tx),
		Sessions: s.Sessions.WithTx(tx),
	}
}

type PruneResult struct {
	Requests int64
	Codes    int64
	Sessions int64
}

func (p PruneResult) Total() int64 {
	return p.Requests + p.Codes + p.Sessions
}

// Prune deletes every request, code and session whose expiry has passed at now.
func (s *Store) Prune(ctx context.Context, now time.Time) (PruneResult, error) {
	var res PruneResult
	var err error

	if res.Requests, err = s.Requests.DeleteExpired(ctx, now); err != nil {
		return res, fmt.Errorf("prune pairing requests: %w", err)
	}
	if res.Codes, err = s.Codes.DeleteExpired(ctx, now); err != nil {
		return res, fmt.Errorf("prune pairing codes: %w", err)
	}
	if res.Sessions, err = s.Sessions.DeleteExpired(ctx, now); err != nil {
		return res, fmt.Errorf("prune sessions: %w", err)
	}
	return res, nil
}

// CodeInUse reports whether code is taken by either a pending request or a pairing code.
func (s *Store) CodeInUse(ctx context.Context, code string) (bool, error) {
	exists, err := s.Requests.Exists(ctx, code)
	if err != nil || exists {
		return exists, err
	}
	return s.Codes.Exists(ctx, code)
}
