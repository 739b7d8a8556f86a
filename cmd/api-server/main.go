package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/hackgods/provider-availability-booking/internal/api"
	"github.com/hackgods/provider-availability-booking/internal/appointment"
	"github.com/hackgods/provider-availability-booking/internal/config"
	"github.com/hackgods/provider-availability-booking/internal/db"
	"github.com/hackgods/provider-availability-booking/internal/logging"
	redisclient "github.com/hackgods/provider-availability-booking/internal/redis"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLogger := logging.New("dev", "info")
		bootLogger.Fatal().Err(err).Msg("config load error")
	}

	logger := logging.New(cfg.Env, cfg.LogLevel)
	logger.Info().Str("http_port", cfg.HTTPPort).Str("version", version).Msg("api-server starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(rootCtx, cfg, logger); err != nil {
		logger.Error().Err(err).Msg("api-server stopped with error")
		os.Exit(1)
	}
	logger.Info().Msg("api-server stopped")
}

func run(ctx context.Context, cfg config.Config, logger zerolog.Logger) error {
	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(ctx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN, cfg.PostgresMaxConn)
	cancelPg()
	if err != nil {
		return err
	}
	defer pgPool.Close()
	logger.Info().Int32("max_conns", cfg.PostgresMaxConn).Msg("connected to Postgres")

	if cfg.MigrateOnStart {
		if err := migrate(ctx, pgPool, logger); err != nil {
			return err
		}
	}

	// Redis is optional; without it bookings rely on database locking alone
	var (
		locker      redisclient.Locker = redisclient.NopLocker{}
		redisPinger api.Pinger
	)
	if cfg.RedisEnabled {
		rdb, err := redisclient.NewRedisClient(ctx, redisclient.Options{
			Addr:     cfg.RedisAddr,
			Username: cfg.RedisUsername,
			Password: cfg.RedisPassword,
		})
		if err != nil {
			return err
		}
		defer func() {
			if err := rdb.Close(); err != nil {
				logger.Warn().Err(err).Msg("error closing redis")
			}
		}()
		locker = redisclient.NewRedisLocker(rdb, cfg.LockTTL)
		redisPinger = pingRedis(rdb)
		logger.Info().Str("addr", cfg.RedisAddr).Dur("lock_ttl", cfg.LockTTL).Msg("connected to Redis")
	} else {
		logger.Warn().Msg("redis disabled; slot locks fall back to database only")
	}

	svc := appointment.NewService(
		appointment.NewPgRepository(pgPool),
		locker,
		appointment.WithLogger(logger.With().Str("component", "booking").Logger()),
	)

	router := api.NewRouter(api.RouterConfig{
		Service:        svc,
		Postgres:       pgPool,
		Redis:          redisPinger,
		Logger:         logger,
		RequestTimeout: cfg.RequestTimeout,
		Env:            cfg.Env,
		Version:        version,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info().Dur("timeout", cfg.ShutdownTimeout).Msg("shutting down api-server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func migrate(ctx context.Context, pool *pgxpool.Pool, logger zerolog.Logger) error {
	m, err := db.NewMigrator(pool)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(ctx); err != nil {
		return err
	}
	v, err := m.Version(ctx)
	if err != nil {
		return err
	}
	logger.Info().Int64("version", v).Msg("migrations applied")
	return nil
}

func pingRedis(rdb *redis.Client) api.Pinger {
	return api.RedisPinger(func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	})
}
