// Package server wires the backup service together: it opens the storage
// tiers and the registry, restores the registry snapshot, and runs the HTTP
// endpoint and the tiering scheduler until a shutdown signal arrives.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/gophbackup/internal/logging"
	"github.com/dmitrijs2005/gophbackup/internal/server/blobstore"
	"github.com/dmitrijs2005/gophbackup/internal/server/codec"
	"github.com/dmitrijs2005/gophbackup/internal/server/config"
	"github.com/dmitrijs2005/gophbackup/internal/server/gateway"
	"github.com/dmitrijs2005/gophbackup/internal/server/httpapi"
	"github.com/dmitrijs2005/gophbackup/internal/server/keylock"
	"github.com/dmitrijs2005/gophbackup/internal/server/metrics"
	"github.com/dmitrijs2005/gophbackup/internal/server/registry"
	"github.com/dmitrijs2005/gophbackup/internal/server/tiering"
)

const metricsNamespace = "gophbackup"

type App struct {
	config    *config.Config
	logger    logging.Logger
	registry  *registry.Registry
	gateway   *gateway.Service
	scheduler *tiering.Scheduler
	http      *httpapi.Server
	closers   []io.Closer
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger, err := logging.NewJSONLogger(os.Stdout, c.LogLevel)
	if err != nil {
		return nil, err
	}
	return newApp(ctx, c, logger)
}

func newApp(ctx context.Context, c *config.Config, logger logging.Logger) (_ *App, err error) {
	app := &App{config: c, logger: logger}
	defer func() {
		if err != nil {
			_ = app.close()
		}
	}()

	cd, err := codec.New(c.Codec)
	if err != nil {
		return nil, err
	}

	hot, err := blobstore.NewLocalStore(c.HotDir)
	if err != nil {
		return nil, fmt.Errorf("hot store init error: %w", err)
	}

	cold, err := app.coldStore(ctx)
	if err != nil {
		return nil, fmt.Errorf("cold store init error: %w", err)
	}

	snapshot, err := app.snapshotStore(ctx)
	if err != nil {
		return nil, fmt.Errorf("registry init error: %w", err)
	}

	app.registry = registry.New(snapshot)
	if err := app.registry.LoadOnStartup(ctx); err != nil {
		return nil, err
	}
	logger.Info(ctx, "Registry loaded", "backend", c.RegistryBackend, "files", app.registry.Len())

	var (
		m              metrics.Metrics = metrics.Noop{}
		metricsHandler http.Handler
	)
	if c.MetricsEnabled {
		p := metrics.NewProm(metricsNamespace)
		m, metricsHandler = p, p.Handler()
	}

	locks := keylock.New()
	app.gateway = gateway.NewService(app.registry, hot, cold, cd, locks, logger, m)
	app.scheduler = tiering.NewScheduler(app.registry, hot, cold, cd, locks, logger, m, tiering.Options{
		IdleThreshold: c.IdleThreshold,
		PollInterval:  c.PollInterval,
	})
	app.http = httpapi.NewServer(c.EndpointAddrHTTP, logger, app.gateway, metricsHandler)

	return app, nil
}

func (app *App) coldStore(ctx context.Context) (blobstore.Store, error) {
	switch app.config.ColdBackend {
	case config.ColdBackendS3:
		return blobstore.NewS3Store(ctx, blobstore.S3Options{
			User:         app.config.S3RootUser,
			Password:     app.config.S3RootPassword,
			Bucket:       app.config.S3Bucket,
			Region:       app.config.S3Region,
			BaseEndpoint: app.config.S3BaseEndpoint,
		})
	case config.ColdBackendFS:
		return blobstore.NewLocalStore(app.config.ColdDir)
	default:
		return nil, fmt.Errorf("unknown cold backend %q", app.config.ColdBackend)
	}
}

func (app *App) snapshotStore(ctx context.Context) (registry.SnapshotStore, error) {
	switch app.config.RegistryBackend {
	case config.RegistryPostgres:
		s, err := registry.OpenPostgresSnapshot(ctx, app.config.DatabaseDSN)
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, s)
		return s, nil
	case config.RegistrySQLite:
		s, err := registry.OpenSQLiteSnapshot(ctx, app.config.RegistryPath)
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, s)
		return s, nil
	case config.RegistryFile:
		return registry.NewFileSnapshot(app.config.RegistryPath)
	default:
		return nil, fmt.Errorf("unknown registry backend %q", app.config.RegistryBackend)
	}
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) error {
	if err := app.http.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
		return err
	}
	return nil
}

// Run blocks until ctx is cancelled, a signal arrives or the HTTP server
// fails. Both workers are stopped before it returns.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var (
		wg      sync.WaitGroup
		httpErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		httpErr = app.startHTTPServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.scheduler.Run(ctx)
	}()

	wg.Wait()

	app.logger.Info(context.Background(), "App stopped")
	return errors.Join(httpErr, app.close())
}

func (app *App) close() error {
	var errs []error
	for _, c := range app.closers {
		errs = append(errs, c.Close())
	}
	app.closers = nil
	return errors.Join(errs...)
}
