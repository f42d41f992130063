package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"promo-engine/internal/api"
	"promo-engine/internal/campaign"
	"promo-engine/internal/clock"
	"promo-engine/internal/config"
	"promo-engine/internal/engine"
	"promo-engine/internal/listener"
	"promo-engine/internal/storage"
)

const reapInterval = time.Minute

// Store is a campaign KV that owns a connection or file handle.
type Store interface {
	campaign.KV
	Close() error
}

// OpenStore picks the backend named by storage.driver. Postgres is migrated
// first when postgres.run_migrations is set.
func OpenStore(ctx context.Context, cfg config.Config) (Store, error) {
	switch cfg.Storage.Driver {
	case config.DriverMemory:
		return storage.NewMemory(), nil
	case config.DriverSQLite:
		s, err := storage.OpenSQLite(ctx, cfg.Storage.SQLitePath)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.DriverPostgres:
		if cfg.Postgres.RunMigrations {
			if err := storage.MigratePostgres(cfg.DSN()); err != nil {
				return nil, err
			}
		}
		pg, err := storage.New(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return pg, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

// Repository opens the configured store and wraps it in a campaign repository.
func Repository(ctx context.Context, cfg config.Config, broker *campaign.Broker) (*campaign.Repository, Store, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, nil, err
	}
	store, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return campaign.NewRepository(store, broker, loc), store, nil
}

func Run(cfg config.Config) {
	rootCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Storage
	broker := campaign.NewBroker()
	repo, store, err := Repository(rootCtx, cfg, broker)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Storage.Driver).Msg("init storage")
	}
	defer store.Close()

	// Engine
	eng := engine.NewEngine(repo, clock.Real{}, repo.Location())
	if err := eng.BuildSnapshot(rootCtx); err != nil {
		log.Fatal().Err(err).Msg("initial snapshot build")
	}
	stopWatch := eng.Watch(broker)
	defer stopWatch()

	sessions := engine.NewSessions(eng, cfg.SessionTTL())
	sessions.StartReaper(rootCtx, reapInterval)
	defer sessions.Shutdown()

	// HTTP
	h := api.NewPromoHandler(eng, sessions, repo)
	r := api.Router(h, cfg.Server.AdminToken)

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 3 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Listener (LISTEN/NOTIFY) keeps other instances in step
	if pg, ok := store.(*storage.Postgres); ok {
		go listener.ListenAndRefresh(rootCtx, pg, eng, cfg.Listener.Channel, cfg.Backoff())
	}

	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Str("driver", cfg.Storage.Driver).Msg("http server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server crashed")
		}
	}()

	waitForSignal()
	log.Info().Msg("shutdown...")

	shCtx, shCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shCancel()
	cancel() // stop background goroutines
	_ = srv.Shutdown(shCtx)
}

func waitForSignal() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
}
