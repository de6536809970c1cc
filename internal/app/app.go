// Package app orchestrates all components of chatgate.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/chatgate/chatgate/internal/auth"
	"github.com/chatgate/chatgate/internal/bus"
	"github.com/chatgate/chatgate/internal/config"
	"github.com/chatgate/chatgate/internal/gateway"
	"github.com/chatgate/chatgate/internal/server"
	"github.com/chatgate/chatgate/internal/store"
)

// App is the main application struct that orchestrates all components.
type App struct {
	cfg     *config.Config
	version string

	// Core components
	pool     *pgxpool.Pool
	redis    *redis.Client
	bus      *bus.RedisBus
	mux      *bus.Multiplexer
	registry *gateway.Registry
	engine   *gateway.Engine
	server   *server.Server

	startTime time.Time

	// Lifecycle
	mu      sync.RWMutex
	running bool
}

// New creates a new App instance.
func New(cfg *config.Config, version string) (*App, error) {
	return &App{
		cfg:     cfg,
		version: version,
	}, nil
}

// Start starts the application and blocks until context is cancelled.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return fmt.Errorf("application is already running")
	}
	a.running = true
	a.startTime = time.Now()
	a.mu.Unlock()

	// Connect to Postgres
	poolCfg, err := pgxpool.ParseConfig(a.cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to parse database URL: %w", err)
	}
	if a.cfg.Database.MaxConns > 0 {
		poolCfg.MaxConns = int32(a.cfg.Database.MaxConns)
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return fmt.Errorf("failed to create database pool: %w", err)
	}
	a.pool = pool

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	err = pool.Ping(pingCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("failed to reach database: %w", err)
	}
	st := store.NewPostgres(pool)
	log.Info().Int32("max_conns", pool.Config().MaxConns).Msg("database pool ready")

	// Connect to Redis
	a.redis = redis.NewClient(&redis.Options{
		Addr:     a.cfg.Redis.Addr,
		Password: a.cfg.Redis.Password,
		DB:       a.cfg.Redis.DB,
	})
	pingCtx, cancel = context.WithTimeout(ctx, 5*time.Second)
	err = a.redis.Ping(pingCtx).Err()
	cancel()
	if err != nil {
		return fmt.Errorf("failed to reach redis: %w", err)
	}
	log.Info().Str("addr", a.cfg.Redis.Addr).Msg("redis connection ready")

	// Start the pub/sub multiplexer
	a.bus = bus.NewRedisBus(a.redis)
	a.mux = bus.NewMultiplexer(a.bus)
	a.mux.Start(ctx)

	// Build the connection engine
	a.registry = gateway.NewRegistry()
	verifier := auth.NewStoreVerifier(st)
	a.engine = gateway.NewEngine(a.registry, a.mux, st, verifier)
	a.engine.SetBuffers(a.cfg.Gateway.OutboundBuffer, a.cfg.Gateway.QueueBuffer)

	// Start HTTP server
	a.server = server.New(
		a.cfg.Server.Host,
		a.cfg.Server.Port,
		a.engine,
		a.registry,
		a.mux,
		st,
		a.cfg.Gateway.AllowedOrigins,
	)
	if err := a.server.Start(ctx); err != nil {
		return fmt.Errorf("failed to start gateway server: %w", err)
	}

	log.Info().
		Str("version", a.version).
		Str("addr", a.server.Addr()).
		Msg("chatgate started")

	// Wait for context cancellation
	<-ctx.Done()

	return a.shutdown()
}

// shutdown performs graceful shutdown of all components.
func (a *App) shutdown() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.running {
		return nil
	}
	a.running = false

	log.Info().Msg("shutting down...")

	if a.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.server.Stop(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("error stopping gateway server")
		}
		cancel()
	}

	if a.bus != nil {
		if err := a.bus.Close(); err != nil {
			log.Error().Err(err).Msg("error closing redis subscription")
		}
	}

	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			log.Error().Err(err).Msg("error closing redis client")
		}
	}

	if a.pool != nil {
		a.pool.Close()
	}

	return nil
}

// UptimeSeconds returns how long the app has been running.
func (a *App) UptimeSeconds() int64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return int64(time.Since(a.startTime).Seconds())
}
