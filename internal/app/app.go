// Package app provides the unified application lifecycle management for Tessera.
package app

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"

	"github.com/tesseradb/tessera/api/proto"
	grpcapi "github.com/tesseradb/tessera/internal/api/grpc"
	httpapi "github.com/tesseradb/tessera/internal/api/http"
	"github.com/tesseradb/tessera/internal/cache"
	"github.com/tesseradb/tessera/internal/catalog"
	"github.com/tesseradb/tessera/internal/config"
	"github.com/tesseradb/tessera/internal/dispatch"
	"github.com/tesseradb/tessera/internal/notify"
	"github.com/tesseradb/tessera/internal/observability"
	"github.com/tesseradb/tessera/internal/server"
	"github.com/tesseradb/tessera/internal/storage"
)

// App manages the Tessera service lifecycle.
type App struct {
	cfg *config.Config
	log zerolog.Logger

	// Shared resources
	catalog   *catalog.Catalog
	cache     *cache.BoundTableCache
	notifier  *notify.Notifier
	stats     *observability.RouteStats
	archives  storage.ArchiveStore
	shutdown  *server.ShutdownManager
	stopWatch func()

	// Evaluator for expression key columns; nil unless configured.
	eval dispatch.ExprEvaluator

	// Servers
	httpServer   *http.Server
	grpcServer   *grpc.Server
	grpcListener net.Listener

	// Lifecycle
	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a new App with the given configuration.
func New(cfg *config.Config, log zerolog.Logger) (*App, error) {
	cfg.Resolve()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to create directories: %w", err)
	}
	return &App{cfg: cfg, log: log}, nil
}

// SetEvaluator installs the expression evaluator used for expression
// key columns. Must be called before Start.
func (a *App) SetEvaluator(eval dispatch.ExprEvaluator) {
	a.eval = eval
}

// Start initializes shared resources and starts the servers.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return fmt.Errorf("app is already running")
	}
	a.running = true
	a.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	if err := a.initSharedResources(ctx); err != nil {
		a.cleanup()
		return fmt.Errorf("failed to initialize shared resources: %w", err)
	}

	if err := a.startHTTPServer(); err != nil {
		a.cleanup()
		return fmt.Errorf("failed to start http server: %w", err)
	}
	if a.cfg.GRPC.Enabled {
		if err := a.startGRPCServer(); err != nil {
			a.cleanup()
			return fmt.Errorf("failed to start grpc server: %w", err)
		}
	}

	a.startStatsPruner(ctx)

	a.log.Info().Str("http_addr", a.cfg.HTTP.Addr).
		Bool("grpc_enabled", a.cfg.GRPC.Enabled).
		Msg("tessera started")
	return nil
}

// initSharedResources opens the catalog and wires the cache, notifier,
// stats, and archive storage.
func (a *App) initSharedResources(ctx context.Context) error {
	var err error
	switch a.cfg.Storage.Type {
	case "local":
		a.archives, err = storage.NewLocalStore(a.cfg.Storage.Path)
	case "s3":
		a.archives, err = storage.NewS3Store(ctx, a.cfg.Storage.S3.Bucket, storage.S3Options{
			Region:       a.cfg.Storage.S3.Region,
			Prefix:       a.cfg.Storage.S3.Prefix,
			Endpoint:     a.cfg.Storage.S3.Endpoint,
			UsePathStyle: a.cfg.Storage.S3.UsePathStyle,
		})
	default:
		return fmt.Errorf("unsupported storage type: %s", a.cfg.Storage.Type)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize archive storage: %w", err)
	}
	a.log.Info().Str("type", a.cfg.Storage.Type).Msg("archive storage initialized")

	a.catalog, err = catalog.Open(a.cfg.CatalogPath(), a.log)
	if err != nil {
		return fmt.Errorf("failed to open catalog: %w", err)
	}
	a.log.Info().Str("path", a.cfg.CatalogPath()).Msg("catalog opened")

	a.notifier = notify.NewNotifier(a.cfg.Cache.NotifyBuffer)
	a.cache = cache.New(a.log)
	a.stopWatch = a.cache.Watch(a.notifier)
	a.stats = observability.NewRouteStats(a.cfg.Stats.Window)

	a.shutdown = server.NewShutdownManager(server.DefaultShutdownConfig())
	return nil
}

// startHTTPServer starts the HTTP admin server.
func (a *App) startHTTPServer() error {
	middleware := httpapi.ChainMiddleware(
		server.ShutdownMiddleware(a.shutdown),
		httpapi.RecoveryMiddleware,
		httpapi.RequestIDMiddleware,
		httpapi.ContentTypeMiddleware,
	)

	mux := http.NewServeMux()
	mux.Handle("/v1/route", middleware(httpapi.NewRouteHandler(a.catalog, a.eval)))
	mux.Handle("/v1/stats", middleware(httpapi.NewStatsHandler(a.stats)))
	mux.Handle("/v1/invalidate", middleware(httpapi.NewInvalidateHandler(a.cache, a.notifier)))
	mux.Handle("/v1/snapshots", middleware(httpapi.NewSnapshotHandler(a.catalog, a.archives)))
	mux.Handle("/healthz", &httpapi.HealthHandler{})

	a.httpServer = &http.Server{
		Addr:         a.cfg.HTTP.Addr,
		Handler:      mux,
		ReadTimeout:  a.cfg.HTTP.ReadTimeout,
		WriteTimeout: a.cfg.HTTP.WriteTimeout,
		IdleTimeout:  a.cfg.HTTP.IdleTimeout,
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.log.Info().Str("addr", a.cfg.HTTP.Addr).Msg("http server listening")
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.log.Error().Err(err).Msg("http server error")
		}
	}()
	return nil
}

// startGRPCServer starts the RouteService gRPC server.
func (a *App) startGRPCServer() error {
	a.grpcServer = grpc.NewServer()
	routeServer := grpcapi.NewRouteServer(a.catalog, a.cache, a.notifier, a.stats, a.eval, a.log)
	proto.RegisterRouteServiceServer(a.grpcServer, routeServer)

	var err error
	a.grpcListener, err = net.Listen("tcp", a.cfg.GRPC.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on gRPC address: %w", err)
	}

	a.shutdown.RegisterCloser(server.CloserFunc(func() error {
		a.grpcServer.GracefulStop()
		return nil
	}))

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.log.Info().Str("addr", a.cfg.GRPC.Addr).Msg("grpc server listening")
		if err := a.grpcServer.Serve(a.grpcListener); err != nil {
			a.log.Error().Err(err).Msg("grpc server error")
		}
	}()
	return nil
}

// startStatsPruner sweeps idle routing counters on a fixed interval.
func (a *App) startStatsPruner(ctx context.Context) {
	interval := a.cfg.Stats.PruneInterval
	if interval <= 0 {
		return
	}
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				a.stats.Prune()
			}
		}
	}()
}

// Stop gracefully stops all services and releases resources.
func (a *App) Stop(ctx context.Context) error {
	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		return nil
	}
	a.running = false
	a.mu.Unlock()

	a.log.Info().Msg("initiating graceful shutdown")

	if a.cancel != nil {
		a.cancel()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if a.httpServer != nil {
		if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
			a.log.Error().Err(err).Msg("http server shutdown error")
		}
	}
	if a.grpcServer != nil {
		a.grpcServer.GracefulStop()
	}

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-shutdownCtx.Done():
		a.log.Warn().Msg("shutdown timeout, some goroutines may not have finished")
	}

	a.cleanup()
	a.log.Info().Msg("tessera stopped")
	return nil
}

// cleanup releases all shared resources.
func (a *App) cleanup() {
	if a.stopWatch != nil {
		a.stopWatch()
		a.stopWatch = nil
	}
	if a.catalog != nil {
		a.catalog.Close()
		a.catalog = nil
	}
}

// WaitForShutdown blocks until a shutdown signal is received.
func (a *App) WaitForShutdown(ctx context.Context) error {
	return a.shutdown.ListenForSignals(ctx)
}
