package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/openclaw/pairing-relay-go/internal/config"
	"github.com/openclaw/pairing-relay-go/internal/database"
	"github.com/openclaw/pairing-relay-go/internal/handler"
	"github.com/openclaw/pairing-relay-go/internal/httputil"
	"github.com/openclaw/pairing-relay-go/internal/jobs"
	"github.com/openclaw/pairing-relay-go/internal/metrics"
	"github.com/openclaw/pairing-relay-go/internal/middleware"
	"github.com/openclaw/pairing-relay-go/internal/redis"
	"github.com/openclaw/pairing-relay-go/internal/relay"
	"github.com/openclaw/pairing-relay-go/internal/repository"
	"github.com/openclaw/pairing-relay-go/internal/service"
	"github.com/openclaw/pairing-relay-go/internal/util"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setLogLevel(cfg.LogLevel)

	isProduction := os.Getenv("FLY_APP_NAME") != "" || os.Getenv("APP_ENV") == "production"
	if err := cfg.Validate(isProduction); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.DBConnectMaxWait)
	db, err := database.Connect(ctx, cfg.DatabaseDriver, cfg.DatabaseURL)
	cancel()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()
	log.Info().Str("driver", cfg.DatabaseDriver).Msg("database connected")

	ctx, cancel = context.WithTimeout(context.Background(), config.DBConnectMaxWait)
	err = db.Migrate(ctx)
	cancel()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
	}

	var limiter middleware.Limiter = middleware.NewMemoryLimiter()
	if cfg.RedisURL != "" {
		redisClient, err := redis.NewClient(context.Background(), cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer redisClient.Close()
		limiter = middleware.NewRedisLimiter(redisClient.Client, limiter)
		log.Info().Msg("redis connected")
	} else {
		log.Info().Msg("REDIS_URL not set, rate limits are per instance")
	}

	cipher, err := util.NewCipher(cfg.PairingSecret)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize credential cipher")
	}

	m := metrics.New()
	store := repository.NewStore(db.DB)

	pairingService := service.NewPairingService(db, store, cipher, service.PairingDefaults{
		RequestTTLSeconds: cfg.PairingRequestTTLSeconds,
		CodeTTLSeconds:    cfg.PairingCodeTTLSeconds,
		MaxClaims:         cfg.PairingMaxClaims,
		SessionTTLSeconds: cfg.SessionTTLSeconds,
		AgentName:         cfg.DefaultAgentName,
	}, m)
	relayClient := relay.NewClient(nil, relay.WithTimeouts(cfg.RelayTimeout(), cfg.RelayIdleTimeout()))
	chatService := service.NewChatService(pairingService, relayClient, m)

	operatorAuth := middleware.NewOperatorAuthMiddleware(cfg.OperatorPasswordHash)
	bodyLimit := middleware.NewBodyLimitMiddleware(0)
	securityHeaders := middleware.NewSecurityHeadersMiddleware(isProduction)
	pairingLimit := middleware.NewIPRateLimitMiddleware(limiter, cfg.ClaimRateLimitPerMin, config.RateLimitWindow, "pairing")
	chatLimit := middleware.NewIPRateLimitMiddleware(limiter, cfg.ClaimRateLimitPerMin, config.RateLimitWindow, "chat")

	pairingHandler := handler.NewPairingHandler(pairingService)
	chatHandler := handler.NewChatHandler(chatService)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(securityHeaders.Handler)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		status, code := "ok", http.StatusOK
		if err := db.Ping(r.Context()); err != nil {
			log.Warn().Err(err).Msg("health check: database unreachable")
			status, code = "degraded", http.StatusServiceUnavailable
		}
		httputil.WriteJSON(w, code, map[string]any{
			"status":    status,
			"timestamp": time.Now().UnixMilli(),
		})
	})
	r.Handle("/metrics", m.Handler())

	r.Group(func(r chi.Router) {
		r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))
		r.Use(bodyLimit.Handler)
		r.Mount("/openclaw/chat", chatHandler.Routes(chatLimit.Handler))
		r.Mount("/openclaw", pairingHandler.Routes(operatorAuth.Handler, pairingLimit.Handler))
	})

	if interval := cfg.SweepInterval(); interval > 0 {
		sweepJob := jobs.NewSweepJob(pairingService, interval)
		sweepJob.Start()
		defer sweepJob.Stop()
	}

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: 0,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
