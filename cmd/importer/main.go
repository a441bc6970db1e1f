package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"hotel_media/internal/adapters/cupid"
	"hotel_media/internal/adapters/observability"
	redisad "hotel_media/internal/adapters/redis"
	"hotel_media/internal/app"
	"hotel_media/internal/domain"
	"hotel_media/internal/shared"
	mysqlrepo "hotel_media/internal/storage/mysql"
)

// importer [hotel-id ...]
//
// Ids come from the arguments, or from IMPORT_HOTEL_IDS when none are given.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	cfg := shared.Load()

	// 1) initialize global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)
	observability.Serve(cfg.MetricsAddr, observability.InitRegistry())

	ids := cfg.ImportHotelIDs
	if len(os.Args) > 1 {
		var err error
		if ids, err = shared.ParseIDs(strings.Join(os.Args[1:], ",")); err != nil {
			log.Fatal().Err(err).Msg("bad hotel ids")
		}
	}
	if len(ids) == 0 {
		log.Fatal().Msg("no hotel ids: pass them as arguments or set IMPORT_HOTEL_IDS")
	}

	log.Info().
		Str("base", cfg.CupidBase).
		Int("workers", cfg.ImportWorkers).
		Int("hotels", len(ids)).
		Int64("owner", cfg.ImportOwnerID).
		Msg("importer starting")

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("db ping ok")
	repo := mysqlrepo.New(db)

	client, err := cupid.New(cfg.CupidBase, cfg.CupidKey, 5)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize Cupid client")
	}

	// the API replicas read through this cache, so imports must evict it
	var cache domain.Cache
	var locker domain.HotelLocker = app.NewLocalLocker()
	if cfg.RedisAddr != "" {
		rc := redisad.NewClient(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		if err := rc.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Msg("redis unreachable; API caches may serve stale listings until TTL")
		} else {
			cache = redisad.NewWithClient(rc)
			if cfg.LockBackend == "redis" {
				locker = redisad.NewLocker(rc, cfg.LockTTL)
			}
		}
	}

	images := app.NewImageService(repo, cache)
	assoc := app.NewAssociationService(repo, app.NewPrimaryCoordinator(repo, locker, cache), cache)
	imp := app.NewImportService(client, repo, images, assoc, cfg.ImportOwnerID, cfg.ImportMaxPhotos)

	workers := cfg.ImportWorkers
	if workers <= 0 {
		workers = 1
	}
	sem := semaphore.NewWeighted(int64(workers))
	var wg sync.WaitGroup
	var stored, skipped, failed int64

	for _, id := range ids {
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			log.Warn().Err(err).Msg("import interrupted")
			break
		}

		wg.Add(1)
		go func(hotelID int64) {
			defer wg.Done()
			defer sem.Release(1)

			res, err := imp.ImportHotel(ctx, hotelID)
			atomic.AddInt64(&stored, int64(res.Stored))
			atomic.AddInt64(&skipped, int64(res.Skipped))
			if err != nil {
				atomic.AddInt64(&failed, 1)
				log.Warn().Int64("id", hotelID).Err(err).Msg("import failed")
				return
			}
			log.Info().Int64("id", hotelID).Int("stored", res.Stored).Int("skipped", res.Skipped).Msg("import ok")
		}(id)
	}

	wg.Wait()
	log.Info().
		Int64("stored", stored).
		Int64("skipped", skipped).
		Int64("failed", failed).
		Msg("import completed")
}
