package cli

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/farmdeck/farmsync/internal/client/client"
	"github.com/farmdeck/farmsync/internal/client/config"
	"github.com/farmdeck/farmsync/internal/client/store"
	"github.com/farmdeck/farmsync/internal/client/syncer"
	"github.com/farmdeck/farmsync/internal/logging"
)

// App holds what a command needs: the local store, the server client and
// the orchestrator built on both.
type App struct {
	config *config.Config
	logger logging.Logger
	store  *store.Store
	client *client.HTTPClient
	prober client.Prober
	syncer *syncer.Syncer

	closers []io.Closer
}

// NewApp opens the local database and wires the orchestrator. onStatus, if
// set, is called by Watch on connectivity changes.
func NewApp(ctx context.Context, c *config.Config, onStatus func(online bool)) (*App, error) {
	logger, logCloser := logging.NewFileLogger(c.LogFile, slog.LevelInfo)
	a := &App{config: c, logger: logger, closers: []io.Closer{logCloser}}

	st, err := store.Open(ctx, c.DBPath, store.WithLogger(logger.With("module", "store")))
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.store = st
	a.closers = append(a.closers, st)

	a.client = client.NewHTTPClient(c.ServerURL, c.AccessToken, c.RequestTimeout)
	a.prober = a.client

	opts := []syncer.Option{syncer.WithIntervals(c.OnlineCheckInterval, c.SyncInterval)}
	if c.GRPCAddr != "" {
		p, err := client.NewGRPCProber(c.GRPCAddr)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		a.prober = p
		a.closers = append(a.closers, p)
		opts = append(opts, syncer.WithProber(p))
	}
	if c.DBPath != ":memory:" {
		opts = append(opts, syncer.WithLockFile(c.DBPath+".lock"))
	}
	if onStatus != nil {
		opts = append(opts, syncer.WithStatusHook(onStatus))
	}

	a.syncer = syncer.New(st, a.client, logger.With("component", "client"), opts...)
	return a, nil
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
