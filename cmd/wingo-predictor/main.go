// Command wingo-predictor serves WinGo predictions built from the provider's
// recent draw history, plus the user registration endpoints.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dev-ayush21/Pvtwingo/internal/config"
	"github.com/dev-ayush21/Pvtwingo/internal/server"
	"github.com/dev-ayush21/Pvtwingo/pkg/logging"
	"github.com/dev-ayush21/Pvtwingo/pkg/pagination"
	"github.com/dev-ayush21/Pvtwingo/pkg/prediction"
	"github.com/dev-ayush21/Pvtwingo/pkg/prediction/pattern"
	"github.com/dev-ayush21/Pvtwingo/pkg/ratelimit"
	"github.com/dev-ayush21/Pvtwingo/pkg/upstream"
	"github.com/dev-ayush21/Pvtwingo/pkg/users"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML/JSON/TOML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		fallback := logging.NewLogger("main")
		fallback.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger, closer := logging.Setup(cfg.Log())
	defer closer.Close()

	logger.Info().
		Str("upstream", cfg.Upstream.BaseURL).
		Int("port", cfg.Server.Port).
		Msg("Starting WinGo predictor")

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		// The prediction endpoint does not need Redis; /ready reports it.
		logger.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("Redis unreachable at startup")
	}

	srv, err := newServer(cfg, logger, redisClient)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to wire dependencies")
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("HTTP server stopped")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Graceful shutdown failed")
	}

	log.Info().Msg("Stopped")
}

// newServer wires the prediction pipeline and user store behind the HTTP server.
func newServer(cfg *config.Config, logger zerolog.Logger, redisClient *redis.Client) (*server.Server, error) {
	if redisClient == nil {
		return nil, errors.New("redis client is required")
	}

	clientCfg := cfg.UpstreamClient()
	clientCfg.Limiter = ratelimit.New(cfg.RateLimit(), logger)
	client, err := upstream.New(clientCfg)
	if err != nil {
		return nil, fmt.Errorf("upstream client: %w", err)
	}

	aggregator, err := pagination.NewAggregator(client, cfg.Aggregation())
	if err != nil {
		return nil, fmt.Errorf("aggregator: %w", err)
	}

	delegate, err := prediction.NewDelegate(pattern.New(pattern.DefaultConfig()), cfg.Delegate())
	if err != nil {
		return nil, fmt.Errorf("prediction delegate: %w", err)
	}

	svc, err := prediction.NewService(aggregator, delegate)
	if err != nil {
		return nil, fmt.Errorf("prediction service: %w", err)
	}

	store := users.NewStore(redisClient, cfg.Redis.KeyPrefix)

	return server.New(server.Config{
		Log:            logger,
		Predictor:      svc,
		Users:          store,
		Ready:          store,
		Port:           cfg.Server.Port,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}), nil
}
