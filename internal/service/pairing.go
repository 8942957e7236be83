package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/openclaw/pairing-relay-go/internal/audit"
	"github.com/openclaw/pairing-relay-go/internal/config"
	"github.com/openclaw/pairing-relay-go/internal/database"
	apperrors "github.com/openclaw/pairing-relay-go/internal/errors"
	"github.com/openclaw/pairing-relay-go/internal/metrics"
	"github.com/openclaw/pairing-relay-go/internal/model"
	"github.com/openclaw/pairing-relay-go/internal/relay"
	"github.com/openclaw/pairing-relay-go/internal/repository"
	"github.com/openclaw/pairing-relay-go/internal/util"
)

const (
	maxCodeAttempts    = 40
	maxClaimAttempts   = 8
	maxSessionAttempts = 6
)

var (
	ErrCodeSpaceExhausted = errors.New("could not allocate a unique pairing code")
	ErrSessionCollision   = errors.New("could not allocate a unique session token")
)

// PairingDefaults are applied when a caller leaves a field unset.
type PairingDefaults struct {
	RequestTTLSeconds int
	CodeTTLSeconds    int
	MaxClaims         int
	SessionTTLSeconds int
	AgentName         string
}

func DefaultPairingDefaults() PairingDefaults {
	return PairingDefaults{
		RequestTTLSeconds: config.PairingRequestTTLDefault,
		CodeTTLSeconds:    config.PairingCodeTTLDefault,
		MaxClaims:         config.MaxClaimsDefault,
		SessionTTLSeconds: config.SessionTTLDefault,
		AgentName:         config.DefaultAgentName,
	}
}

type PairingRequestResult struct {
	RequestCode string    `json:"requestCode"`
	ExpiresAt   time.Time `json:"expiresAt"`
	TTLSeconds  int       `json:"ttlSeconds"`
}

type IssueParams struct {
	GatewayURL   string
	GatewayToken string
	AgentName    string
	TTLSeconds   int
	MaxClaims    int
}

type PairingCodeResult struct {
	Code       string    `json:"code"`
	ExpiresAt  time.Time `json:"expiresAt"`
	AgentName  string    `json:"agentName"`
	MaxClaims  int       `json:"maxClaims"`
	TTLSeconds int       `json:"ttlSeconds"`
}

type ClaimResult struct {
	SessionToken     string    `json:"sessionToken"`
	SessionExpiresAt time.Time `json:"sessionExpiresAt"`
	AgentName        string    `json:"agentName"`
}

// ResolvedSession carries the decrypted gateway credential. It must never be
// serialized back to a client.
type ResolvedSession struct {
	GatewayURL       string
	GatewayToken     string
	AgentName        string
	SessionExpiresAt time.Time
}

type PairingService struct {
	db       *database.DB
	store    *repository.Store
	cipher   *util.Cipher
	defaults PairingDefaults
	metrics  *metrics.Metrics
	now      func() time.Time
}

func NewPairingService(
	db *database.DB,
	store *repository.Store,
	cipher *util.Cipher,
	defaults PairingDefaults,
	m *metrics.Metrics,
) *PairingService {
	return &PairingService{
		db:       db,
		store:    store,
		cipher:   cipher,
		defaults: defaults,
		metrics:  m,
		now:      time.Now,
	}
}

// SetClock replaces the time source.
func (s *PairingService) SetClock(now func() time.Time) {
	s.now = now
}

func (s *PairingService) requestTTL(v int) int {
	fallback := util.ClampInt(s.defaults.RequestTTLSeconds, config.PairingRequestTTLDefault, config.PairingRequestTTLMin, config.PairingRequestTTLMax)
	return util.ClampInt(v, fallback, config.PairingRequestTTLMin, config.PairingRequestTTLMax)
}

func (s *PairingService) codeTTL(v int) int {
	fallback := util.ClampInt(s.defaults.CodeTTLSeconds, config.PairingCodeTTLDefault, config.PairingCodeTTLMin, config.PairingCodeTTLMax)
	return util.ClampInt(v, fallback, config.PairingCodeTTLMin, config.PairingCodeTTLMax)
}

func (s *PairingService) maxClaims(v int) int {
	fallback := util.ClampInt(s.defaults.MaxClaims, config.MaxClaimsDefault, config.MaxClaimsMin, config.MaxClaimsMax)
	return util.ClampInt(v, fallback, config.MaxClaimsMin, config.MaxClaimsMax)
}

func (s *PairingService) sessionTTL(v int) int {
	fallback := util.ClampInt(s.defaults.SessionTTLSeconds, config.SessionTTLDefault, config.SessionTTLMin, config.SessionTTLMax)
	return util.ClampInt(v, fallback, config.SessionTTLMin, config.SessionTTLMax)
}

func (s *PairingService) agentName(name string) string {
	if name == "" {
		name = s.defaults.AgentName
	}
	return relay.SanitizeAgentName(name)
}

func ttlDuration(ttlSeconds int) time.Duration {
	return time.Duration(ttlSeconds) * time.Second
}

// CreatePairingRequest allocates a short-lived code a client can hand to an
// operator before any credential exists.
func (s *PairingService) CreatePairingRequest(ctx context.Context, ttlSeconds int) (*PairingRequestResult, error) {
	ttl := s.requestTTL(ttlSeconds)

	var result *PairingRequestResult
	err := s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		store := s.store.WithTx(tx)
		now := s.now()
		if err := s.prune(ctx, store, now); err != nil {
			return err
		}

		code, err := s.uniqueCode(ctx, store)
		if err != nil {
			return err
		}

		req := model.PairingRequest{
			Code:      code,
			CreatedAt: model.NewTimestamp(now),
			ExpiresAt: model.NewTimestamp(now.Add(ttlDuration(ttl))),
		}
		if err := store.Requests.Create(ctx, req); err != nil {
			return fmt.Errorf("create pairing request: %w", err)
		}

		result = &PairingRequestResult{RequestCode: code, ExpiresAt: req.ExpiresAt.Time, TTLSeconds: ttl}
		return nil
	})
	if err != nil {
		return nil, s.fatal(err)
	}

	log.Info().
		Str("code", util.MaskCode(result.RequestCode)).
		Time("expiresAt", result.ExpiresAt).
		Msg("pairing request created")
	audit.Log(ctx, audit.Event{
		Type:    audit.EventPairingRequestCreate,
		Code:    util.MaskCode(result.RequestCode),
		Details: map[string]interface{}{"ttlSeconds": ttl},
	})

	return result, nil
}

// normalizeIssue validates the credential part of an issue request.
func (s *PairingService) normalizeIssue(params IssueParams) (url, token, agent string, err error) {
	url, err = relay.NormalizeGatewayURL(params.GatewayURL)
	if err != nil {
		var re *relay.Error
		if errors.As(err, &re) {
			return "", "", "", apperrors.InvalidGatewayURL(re.Detail)
		}
		return "", "", "", apperrors.InvalidGatewayURL(params.GatewayURL)
	}
	token = util.SanitizeGatewayToken(params.GatewayToken)
	if token == "" {
		return "", "", "", apperrors.MissingToken()
	}
	return url, token, s.agentName(params.AgentName), nil
}

// CreatePairingCode issues a code bound to gateway credentials.
func (s *PairingService) CreatePairingCode(ctx context.Context, params IssueParams) (*PairingCodeResult, error) {
	url, token, agent, err := s.normalizeIssue(params)
	if err != nil {
		return nil, err
	}
	ttl := s.codeTTL(params.TTLSeconds)
	maxClaims := s.maxClaims(params.MaxClaims)

	var result *PairingCodeResult
	err = s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		store := s.store.WithTx(tx)
		now := s.now()
		if err := s.prune(ctx, store, now); err != nil {
			return err
		}
		created, err := s.createCode(ctx, store, now, url, token, agent, ttl, maxClaims)
		result = created
		return err
	})
	if err != nil {
		return nil, s.fatal(err)
	}

	s.logIssued(ctx, result, "direct")
	return result, nil
}

// CreatePairingCodeFromRequest consumes a pairing request and issues a code
// in its place. Of two concurrent callers with the same request code exactly
// one succeeds.
func (s *PairingService) CreatePairingCodeFromRequest(ctx context.Context, requestCode string, params IssueParams) (*PairingCodeResult, error) {
	code := util.SanitizePairingCode(requestCode)
	if code == "" {
		return nil, apperrors.InvalidRequestCode()
	}
	url, token, agent, err := s.normalizeIssue(params)
	if err != nil {
		return nil, err
	}
	ttl := s.codeTTL(params.TTLSeconds)
	maxClaims := s.maxClaims(params.MaxClaims)

	var result *PairingCodeResult
	var failure *apperrors.AppError
	err = s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		store := s.store.WithTx(tx)
		now := s.now()

		// Read before pruning so an expired request reports as expired.
		req, err := store.Requests.FindByCode(ctx, code)
		if err != nil {
			return fmt.Errorf("find pairing request: %w", err)
		}
		if err := s.prune(ctx, store, now); err != nil {
			return err
		}

		if req == nil {
			failure = apperrors.InvalidRequestCode()
			return nil
		}
		if req.ExpiresAt.ExpiredAt(now) {
			if _, err := store.Requests.Delete(ctx, code); err != nil {
				return fmt.Errorf("delete expired pairing request: %w", err)
			}
			failure = apperrors.ExpiredRequestCode()
			return nil
		}

		deleted, err := store.Requests.Delete(ctx, code)
		if err != nil {
			return fmt.Errorf("consume pairing request: %w", err)
		}
		if deleted != 1 {
			failure = apperrors.InvalidRequestCode()
			return nil
		}

		result, err = s.createCode(ctx, store, now, url, token, agent, ttl, maxClaims)
		return err
	})
	if err != nil {
		return nil, s.fatal(err)
	}
	if failure != nil {
		log.Warn().Str("code", util.MaskCode(code)).Str("reason", string(failure.Code)).Msg("pairing request rejected")
		return nil, failure
	}

	s.logIssued(ctx, result, "request")
	return result, nil
}

func (s *PairingService) createCode(
	ctx context.Context,
	store *repository.Store,
	now time.Time,
	url, token, agent string,
	ttl, maxClaims int,
) (*PairingCodeResult, error) {
	code, err := s.uniqueCode(ctx, store)
	if err != nil {
		return nil, err
	}
	enc, err := s.cipher.Encrypt(token)
	if err != nil {
		return nil, fmt.Errorf("encrypt gateway token: %w", err)
	}

	pc, err := store.Codes.Create(ctx, model.CreatePairingCodeParams{
		Code:                  code,
		CreatedAt:             model.NewTimestamp(now),
		ExpiresAt:             model.NewTimestamp(now.Add(ttlDuration(ttl))),
		GatewayURL:            url,
		GatewayTokenEncrypted: enc,
		AgentName:             agent,
		MaxClaims:             maxClaims,
	})
	if err != nil {
		return nil, fmt.Errorf("create pairing code: %w", err)
	}

	return &PairingCodeResult{
		Code:       pc.Code,
		ExpiresAt:  pc.ExpiresAt.Time,
		AgentName:  pc.AgentName,
		MaxClaims:  pc.MaxClaims,
		TTLSeconds: ttl,
	}, nil
}

func (s *PairingService) logIssued(ctx context.Context, result *PairingCodeResult, source string) {
	log.Info().
		Str("code", util.MaskCode(result.Code)).
		Str("agentName", result.AgentName).
		Int("maxClaims", result.MaxClaims).
		Str("source", source).
		Time("expiresAt", result.ExpiresAt).
		Msg("pairing code issued")
	audit.Log(ctx, audit.Event{
		Type: audit.EventPairingCodeIssue,
		Code: util.MaskCode(result.Code),
		Details: map[string]interface{}{
			"agentName":  result.AgentName,
			"maxClaims":  result.MaxClaims,
			"ttlSeconds": result.TTLSeconds,
			"source":     source,
		},
	})
}

// ClaimPairingCode spends one claim of a code and mints a session.
func (s *PairingService) ClaimPairingCode(ctx context.Context, rawCode string, sessionTTLSeconds int) (*ClaimResult, error) {
	code := util.SanitizePairingCode(rawCode)
	if code == "" {
		s.metrics.ObserveClaim(string(apperrors.ErrCodeInvalidCode))
		return nil, apperrors.InvalidCode()
	}
	ttl := s.sessionTTL(sessionTTLSeconds)

	var result *ClaimResult
	var failure *apperrors.AppError
	var claimsUsed int
	err := s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		store := s.store.WithTx(tx)
		now := s.now()

		// Read before pruning so an expired code reports as expired.
		pc, err := store.Codes.FindByCode(ctx, code)
		if err != nil {
			return fmt.Errorf("find pairing code: %w", err)
		}
		if err := s.prune(ctx, store, now); err != nil {
			return err
		}

		claimed := false
		for attempt := 0; attempt < maxClaimAttempts && !claimed; attempt++ {
			if failure = claimFailure(pc, now); failure != nil {
				if failure.Code == apperrors.ErrCodeExpiredCode {
					if err := store.Codes.Delete(ctx, code); err != nil {
						return fmt.Errorf("delete expired pairing code: %w", err)
					}
				}
				return nil
			}

			claimed, err = store.Codes.IncrementClaims(ctx, code, pc.ClaimsUsed)
			if err != nil {
				return fmt.Errorf("claim pairing code: %w", err)
			}
			if !claimed {
				// Another claimant moved the row; judge again from the fresh copy.
				if pc, err = store.Codes.FindByCode(ctx, code); err != nil {
					return fmt.Errorf("reload pairing code: %w", err)
				}
			}
		}
		if !claimed {
			failure = apperrors.MaxClaimsReached()
			return nil
		}

		claimsUsed = pc.ClaimsUsed + 1
		if claimsUsed >= pc.MaxClaims {
			if err := store.Codes.Consume(ctx, code); err != nil {
				return fmt.Errorf("consume pairing code: %w", err)
			}
		}

		expiresAt := model.NewTimestamp(now.Add(ttlDuration(ttl)))
		token, err := s.insertSession(ctx, store, model.CreateSessionParams{
			CreatedAt:             model.NewTimestamp(now),
			ExpiresAt:             expiresAt,
			GatewayURL:            pc.GatewayURL,
			GatewayTokenEncrypted: pc.GatewayTokenEncrypted,
			AgentName:             pc.AgentName,
		})
		if err != nil {
			return err
		}

		result = &ClaimResult{SessionToken: token, SessionExpiresAt: expiresAt.Time, AgentName: pc.AgentName}
		return nil
	})
	if err != nil {
		s.metrics.ObserveClaim("error")
		return nil, s.fatal(err)
	}
	if failure != nil {
		s.metrics.ObserveClaim(string(failure.Code))
		log.Warn().Str("code", util.MaskCode(code)).Str("reason", string(failure.Code)).Msg("pairing claim rejected")
		audit.Log(ctx, audit.Event{
			Type:    audit.EventPairingClaimFailure,
			Code:    util.MaskCode(code),
			Details: map[string]interface{}{"reason": string(failure.Code)},
		})
		return nil, failure
	}

	s.metrics.ObserveClaim("ok")
	log.Info().
		Str("code", util.MaskCode(code)).
		Str("agentName", result.AgentName).
		Int("claimsUsed", claimsUsed).
		Time("sessionExpiresAt", result.SessionExpiresAt).
		Msg("pairing code claimed")
	audit.Log(ctx, audit.Event{
		Type:    audit.EventPairingCodeClaim,
		Code:    util.MaskCode(code),
		Details: map[string]interface{}{"agentName": result.AgentName, "claimsUsed": claimsUsed},
	})

	return result, nil
}

// claimFailure judges a freshly read code; nil means it can still be claimed.
func claimFailure(pc *model.PairingCode, now time.Time) *apperrors.AppError {
	switch {
	case pc == nil:
		return apperrors.InvalidCode()
	case pc.ExpiresAt.ExpiredAt(now):
		return apperrors.ExpiredCode()
	case pc.Exhausted():
		return apperrors.MaxClaimsReached()
	}
	return nil
}

// insertSession mints tokens until one hashes to an unused key.
func (s *PairingService) insertSession(ctx context.Context, store *repository.Store, params model.CreateSessionParams) (string, error) {
	for attempt := 0; attempt < maxSessionAttempts; attempt++ {
		token, err := util.GenerateToken()
		if err != nil {
			return "", fmt.Errorf("generate session token: %w", err)
		}
		params.TokenHash = util.HashToken(token)

		inserted, err := store.Sessions.Insert(ctx, params)
		if err != nil {
			return "", fmt.Errorf("create session: %w", err)
		}
		if inserted {
			return token, nil
		}
	}
	return "", ErrSessionCollision
}

// ResolveSession maps a bearer token back to its gateway credential. Expired
// sessions and sessions whose credential no longer decrypts are deleted.
func (s *PairingService) ResolveSession(ctx context.Context, rawToken string) (*ResolvedSession, error) {
	token := util.SanitizeSessionToken(rawToken)
	if token == "" {
		s.metrics.ObserveResolve(string(apperrors.ErrCodeInvalidSession))
		return nil, apperrors.InvalidSession()
	}
	hash := util.HashToken(token)
	now := s.now()

	session, err := s.store.Sessions.FindByTokenHash(ctx, hash)
	if err != nil {
		s.metrics.ObserveResolve("error")
		return nil, apperrors.Database(err)
	}
	if session == nil {
		s.metrics.ObserveResolve(string(apperrors.ErrCodeInvalidSession))
		return nil, apperrors.InvalidSession()
	}

	if session.ExpiresAt.ExpiredAt(now) {
		s.dropSession(ctx, hash, "expired")
		s.metrics.ObserveResolve(string(apperrors.ErrCodeExpiredSession))
		return nil, apperrors.ExpiredSession()
	}

	gatewayToken, err := s.cipher.Decrypt(session.GatewayTokenEncrypted)
	if err != nil {
		log.Warn().Err(err).Msg("session credential failed to decrypt")
		s.dropSession(ctx, hash, "undecryptable")
		s.metrics.ObserveResolve(string(apperrors.ErrCodeInvalidSession))
		return nil, apperrors.InvalidSession()
	}

	s.metrics.ObserveResolve("ok")
	return &ResolvedSession{
		GatewayURL:       session.GatewayURL,
		GatewayToken:     gatewayToken,
		AgentName:        session.AgentName,
		SessionExpiresAt: session.ExpiresAt.Time,
	}, nil
}

func (s *PairingService) dropSession(ctx context.Context, hash, reason string) {
	if err := s.store.Sessions.Delete(ctx, hash); err != nil {
		log.Error().Err(err).Msg("failed to delete session")
		return
	}
	audit.Log(ctx, audit.Event{
		Type:    audit.EventSessionInvalidated,
		Details: map[string]interface{}{"reason": reason},
	})
}

// Sweep prunes expired records outside of any request. It backs the
// optional background job and the CLI.
func (s *PairingService) Sweep(ctx context.Context) (repository.PruneResult, error) {
	var res repository.PruneResult
	err := s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		res, err = s.store.WithTx(tx).Prune(ctx, s.now())
		return err
	})
	if err != nil {
		return res, s.fatal(err)
	}
	return res, nil
}

func (s *PairingService) prune(ctx context.Context, store *repository.Store, now time.Time) error {
	res, err := store.Prune(ctx, now)
	if err != nil {
		return err
	}
	if total := res.Total(); total > 0 {
		log.Debug().
			Int64("requests", res.Requests).
			Int64("codes", res.Codes).
			Int64("sessions", res.Sessions).
			Msg("pruned expired pairing records")
	}
	return nil
}

func (s *PairingService) uniqueCode(ctx context.Context, store *repository.Store) (string, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := util.GeneratePairingCode()
		if err != nil {
			return "", err
		}
		inUse, err := store.CodeInUse(ctx, code)
		if err != nil {
			return "", fmt.Errorf("check pairing code: %w", err)
		}
		if !inUse {
			return code, nil
		}
	}
	return "", ErrCodeSpaceExhausted
}

// fatal wraps unexpected failures; expected outcomes are already AppErrors.
func (s *PairingService) fatal(err error) error {
	if appErr, ok := apperrors.AsAppError(err); ok {
		return appErr
	}
	log.Error().Err(err).Msg("pairing store failure")
	return apperrors.Wrap(apperrors.ErrCodeInternal, "pairing store unavailable", err)
}
