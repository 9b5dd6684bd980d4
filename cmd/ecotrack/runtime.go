package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"github.com/nhle/ecotrack-console/internal/credential"
	"github.com/nhle/ecotrack-console/internal/logging"
	"github.com/nhle/ecotrack-console/internal/model"
	"github.com/nhle/ecotrack-console/internal/notify"
	"github.com/nhle/ecotrack-console/internal/readstate"
	"github.com/nhle/ecotrack-console/internal/reports"
	"github.com/nhle/ecotrack-console/internal/schedules"
	"github.com/nhle/ecotrack-console/internal/source/api"
	"github.com/nhle/ecotrack-console/internal/store"
	appsync "github.com/nhle/ecotrack-console/internal/sync"
	"github.com/nhle/ecotrack-console/internal/users"
)

// runtime holds the services shared by every subcommand.
type runtime struct {
	cfg       *model.AppConfig
	logger    *log.Logger
	logCloser io.Closer
	store     *store.SQLiteStore
	creds     *credential.Store
	client    *api.Client
	reads     *readstate.Store
	reports   *reports.Manager
	users     *users.Directory
	schedules *schedules.Board
	notify    *notify.Aggregator
}

// openRuntime loads the config and wires the services together.
func openRuntime(ctx context.Context, cfgPath string) (*runtime, error) {
	cfg, err := model.LoadConfig(cfgPath)
	if err != nil {
		return nil, err
	}

	logger, logCloser, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Storage.DBPath), 0o755); err != nil {
		logCloser.Close()
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	db, err := store.NewSQLiteStore(cfg.Storage.DBPath)
	if err != nil {
		logCloser.Close()
		return nil, fmt.Errorf("opening state database: %w", err)
	}

	reads := readstate.New(db)
	if err := reads.Load(ctx); err != nil {
		db.Close()
		logCloser.Close()
		return nil, err
	}

	creds := credential.NewStore()
	client := api.NewClient(cfg.API.BaseURL, creds, time.Duration(cfg.API.TimeoutSec)*time.Second)

	rt := &runtime{
		cfg:       cfg,
		logger:    logger,
		logCloser: logCloser,
		store:     db,
		creds:     creds,
		client:    client,
		reads:     reads,
		reports: reports.New(client, reports.Options{
			Origin:    cfg.API.BaseURL,
			Logger:    logger.WithPrefix("reports"),
			Snapshots: db,
		}),
		users:     users.New(client, cfg.API.BaseURL, logger.WithPrefix("users")),
		schedules: schedules.New(client, logger.WithPrefix("schedules")),
		notify:    notify.New(client, reads, logger.WithPrefix("notify")),
	}

	logger.Debug("runtime ready", "api", cfg.API.BaseURL, "db", cfg.Storage.DBPath)
	return rt, nil
}

// newPoller builds the refresh scheduler with the standard jobs.
func (rt *runtime) newPoller() *appsync.Poller {
	p := appsync.New(appsync.Options{
		RetryAttempts: rt.cfg.Sync.RetryAttempts,
		Logger:        rt.logger.WithPrefix("sync"),
	})
	appsync.Register(p, rt.cfg.Sync, rt.reports, rt.notify, rt.users, rt.schedules)
	return p
}

// streams returns the configured notification streams.
func (rt *runtime) streams() []notify.StreamSpec {
	return notify.StreamsFromConfig(rt.cfg.Sync.Streams)
}

func (rt *runtime) Close() {
	if err := rt.reads.Flush(context.Background()); err != nil {
		rt.logger.Warn("flushing read state", "err", err)
	}
	if err := rt.store.Close(); err != nil {
		rt.logger.Warn("closing state database", "err", err)
	}
	rt.logCloser.Close()
}
