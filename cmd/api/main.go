package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	server "hotel_media/internal/adapters/http_server"
	"hotel_media/internal/adapters/observability"
	redisad "hotel_media/internal/adapters/redis"
	"hotel_media/internal/app"
	"hotel_media/internal/domain"
	"hotel_media/internal/shared"
	"hotel_media/internal/storage/memory"
	mysqlrepo "hotel_media/internal/storage/mysql"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := openStore(cfg)

	// redis backs both the cache and, optionally, the hotel lock
	var cache domain.Cache
	var locker domain.HotelLocker
	if cfg.RedisAddr != "" {
		rc := redisad.NewClient(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		if err := rc.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unreachable; cache disabled")
		} else {
			cache = redisad.NewWithClient(rc)
			locker = pickLocker(cfg, rc)
		}
	}
	if locker == nil {
		if cfg.LockBackend == "redis" {
			log.Fatal().Msg("LOCK_BACKEND=redis requires a reachable REDIS_ADDR")
		}
		locker = app.NewLocalLocker()
	}

	primary := app.NewPrimaryCoordinator(store, locker, cache)
	h := &server.Handlers{
		Images:  app.NewImageService(store, cache),
		Assoc:   app.NewAssociationService(store, primary, cache),
		Primary: primary,
		Queries: app.NewQueryService(store, cache, cfg.CacheTTL),
		Hotels:  app.NewHotelService(store, cache, cfg.CacheTTL),
	}

	// http
	srv := server.New(server.Options{WritesPerMinute: cfg.RateLimitPerMinute, RequestTimeout: cfg.RequestTimeout})
	reg := observability.InitRegistry()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(h)

	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux(), ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(sctx)
	}()

	log.Info().Str("addr", cfg.HTTPAddr).Str("storage", cfg.StorageDriver).Msg("API listening")
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("http server failed")
	}
	log.Info().Msg("API stopped")
}

func openStore(cfg shared.Config) domain.Store {
	switch cfg.StorageDriver {
	case "memory":
		log.Warn().Msg("using in-memory storage; data is lost on exit")
		return memory.New()
	case "mysql":
		db, err := sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("sql.Open failed")
		}
		if err := db.Ping(); err != nil {
			log.Fatal().Err(err).Msg("db.Ping failed")
		}
		log.Info().Msg("database connection ok")
		return mysqlrepo.New(db)
	default:
		log.Fatal().Str("driver", cfg.StorageDriver).Msg("unknown STORAGE_DRIVER")
		return nil
	}
}

func pickLocker(cfg shared.Config, rc *goredis.Client) domain.HotelLocker {
	if cfg.LockBackend == "redis" {
		return redisad.NewLocker(rc, cfg.LockTTL)
	}
	return app.NewLocalLocker()
}
