package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	sentrygo "github.com/getsentry/sentry-go"
	_ "github.com/lib/pq"

	"moviegate/httpserver"
	"moviegate/movie"
	"moviegate/pkg/config"
	"moviegate/pkg/sentry"
	"moviegate/postgres"
	"moviegate/ratelimit"
	"moviegate/redis"
	"moviegate/tmdb"
)

const (
	shutdownTimeout = 10 * time.Second
	sweepEvery      = time.Minute
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("Cannot load config", "error", err)
		os.Exit(1)
	}

	err = sentrygo.Init(sentrygo.ClientOptions{
		Dsn:              cfg.SentryDSN,
		Environment:      cfg.AppEnv,
		AttachStacktrace: true,
	})
	if err != nil {
		slog.Error("Cannot init sentry", "error", err)
		os.Exit(1)
	}
	defer sentrygo.Flush(sentry.FlushTime)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := newQuotaStore(ctx, cfg)
	if err != nil {
		slog.Error("Cannot init rate limit store", "store", cfg.RateLimit.Store, "error", err)
		os.Exit(1)
	}

	client, err := tmdb.NewClient(tmdb.Options{
		BaseURL:     cfg.TMDB.BaseURL,
		AccessToken: cfg.TMDB.AccessToken,
		Timeout:     cfg.TMDB.Timeout,
		RPS:         cfg.TMDB.RPS,
	})
	if err != nil {
		slog.Error("Cannot init tmdb client", "error", err)
		os.Exit(1)
	}

	server := httpserver.Default(cfg)
	server.Addr = fmt.Sprintf(":%d", cfg.Port)
	server.Logger = logger
	server.Limiter = ratelimit.New(store)
	server.MovieService = movie.NewUsecase(client,
		movie.WithStrictTrailers(cfg.TMDB.TrailersStrict),
		movie.WithLogger(logger),
	)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server started!", "addr", server.Addr, "rate_limit_store", cfg.RateLimit.Store)
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server stopped with error", "error", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("graceful shutdown failed", "error", err)
		}
	}
}

// newQuotaStore picks the counter backend. Background sweepers stop with ctx.
func newQuotaStore(ctx context.Context, cfg *config.Config) (ratelimit.Store, error) {
	switch cfg.RateLimit.Store {
	case config.StoreRedis:
		rdb, err := redis.NewClient(ctx, redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, err
		}
		// keys carry their own TTL, nothing to sweep
		return redis.NewQuotaStore(rdb), nil

	case config.StorePostgres:
		db, err := postgres.NewConnection(postgres.Options{
			DBName:   cfg.DB.Name,
			DBUser:   cfg.DB.User,
			Password: cfg.DB.Pass,
			Host:     cfg.DB.Host,
			Port:     strconv.Itoa(cfg.DB.Port),
			SSLMode:  cfg.DB.EnableSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("open postgres connection: %w", err)
		}
		repo := postgres.NewQuotaRepository(db)
		go sweepExpired(ctx, repo)
		return repo, nil

	default:
		mem := ratelimit.NewMemoryStore()
		mem.StartJanitor(ctx)
		return mem, nil
	}
}

func sweepExpired(ctx context.Context, repo *postgres.QuotaRepository) {
	t := time.NewTicker(sweepEvery)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := repo.DeleteExpired(ctx)
			if err != nil {
				slog.Warn("sweep expired counters failed", "error", err)
				continue
			}
			if n > 0 {
				slog.Debug("swept expired counters", "deleted", n)
			}
		}
	}
}
