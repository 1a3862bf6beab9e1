package application

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/eugenenazirov/cabinet-calculator/internal/api"
	"github.com/eugenenazirov/cabinet-calculator/internal/autosave"
	"github.com/eugenenazirov/cabinet-calculator/internal/calculator"
	"github.com/eugenenazirov/cabinet-calculator/internal/config"
	"github.com/eugenenazirov/cabinet-calculator/internal/display"
	"github.com/eugenenazirov/cabinet-calculator/internal/metrics"
	"github.com/eugenenazirov/cabinet-calculator/internal/session"
	"github.com/eugenenazirov/cabinet-calculator/internal/storage"
	"github.com/eugenenazirov/cabinet-calculator/internal/storage/mongostore"
)

// App encapsulates the application dependencies and HTTP server.
type App struct {
	store      storage.Storage
	closeStore func(context.Context) error
	session    *session.Session
	board      *display.Board
	handler    *api.Handler
	router     http.Handler
	autosave   *autosave.Scheduler
	logger     *zap.Logger
	server     *http.Server

	mu           sync.Mutex
	stopAutosave context.CancelFunc
	autosaveDone chan struct{}
}

// New initializes the application with all dependencies from the provided configuration.
// Nothing is read from storage until Start.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	store, closeStore, err := NewStorage(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	board := display.NewBoard()
	sess := session.New(session.Options{
		Calculator: calculator.New(cfg.Container),
		Storage:    store,
		Key:        cfg.SnapshotKey,
		Presenter:  board,
		Formatter:  display.NewFormatter(cfg.Locale),
		Logger:     logger,
	})

	handler := api.NewHandler(sess, board,
		api.WithLocale(cfg.Locale),
		api.WithHandlerLogger(logger.Named("api")),
	)
	apiRouter := api.NewRouter(handler, logger,
		api.WithLogging(cfg.EnableRequestLogging),
		api.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
	)

	return &App{
		store:      store,
		closeStore: closeStore,
		session:    sess,
		board:      board,
		handler:    handler,
		router:     apiRouter,
		autosave:   autosave.New(sess, cfg.AutosaveInterval, logger),
		logger:     logger,
		server:     NewServer(cfg, BuildRootHandler(apiRouter)),
	}, nil
}

// NewStorage opens the snapshot backend named by cfg.StorageBackend. The returned
// function releases it.
func NewStorage(ctx context.Context, cfg config.Config) (storage.Storage, func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }

	switch cfg.StorageBackend {
	case config.BackendMemory, "":
		return storage.NewMemoryStorage(), noop, nil
	case config.BackendFile:
		store, err := storage.NewFileStorage(afero.NewOsFs(), cfg.DataDir)
		if err != nil {
			return nil, nil, err
		}
		return store, noop, nil
	case config.BackendMongo:
		store, err := mongostore.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection, mongostore.DefaultConfig())
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

// BuildRootHandler mounts the API under /api/ and the Prometheus exposition under /metrics.
// The root path redirects to the board view.
func BuildRootHandler(apiHandler http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/api/", apiHandler)
	mux.Handle("GET /metrics", metrics.Handler())
	mux.Handle("GET /{$}", http.RedirectHandler("/api/board", http.StatusFound))
	return mux
}

// NewServer creates and configures an HTTP server from the provided configuration.
func NewServer(cfg config.Config, handler http.Handler) *http.Server {
	addr := cfg.Port
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
}

// Start restores the session, arms the autosave loop and then starts the HTTP server in
// a goroutine. The session is fully restored before either can touch it.
func (a *App) Start(ctx context.Context) error {
	if err := a.startSession(ctx); err != nil {
		return err
	}

	go func() {
		a.logger.Info("server listening", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Fatal("server error", zap.Error(err))
		}
	}()
	return nil
}

func (a *App) startSession(ctx context.Context) error {
	result, err := a.session.OnStartup(ctx)
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	a.logger.Info("session started",
		zap.Bool("valid", result.Valid),
		zap.String("total_volume", result.Volume.String()),
		zap.Int64("containers", result.Containers),
		zap.Int("fit_violations", len(result.Errors)),
	)

	autosaveCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})
	a.mu.Lock()
	a.stopAutosave = cancel
	a.autosaveDone = done
	a.mu.Unlock()

	go func() {
		defer close(done)
		a.autosave.Run(autosaveCtx)
	}()
	return nil
}

// Shutdown stops the HTTP server, writes a final snapshot and releases the storage
// backend. All steps run even if an earlier one fails; the errors are joined.
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error

	if err := a.server.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("shutdown server: %w", err))
		if closeErr := a.server.Close(); closeErr != nil {
			errs = append(errs, fmt.Errorf("close server: %w", closeErr))
		}
	}

	a.mu.Lock()
	stop, done := a.stopAutosave, a.autosaveDone
	a.mu.Unlock()
	if stop != nil {
		stop()
		select {
		case <-done:
		case <-ctx.Done():
			errs = append(errs, fmt.Errorf("wait for autosave: %w", ctx.Err()))
		}
	}

	if err := a.closeStore(ctx); err != nil {
		errs = append(errs, fmt.Errorf("close storage: %w", err))
	}
	return errors.Join(errs...)
}

// Server returns the HTTP server instance.
func (a *App) Server() *http.Server {
	return a.server
}

// Handler returns the root HTTP handler.
func (a *App) Handler() http.Handler {
	return a.server.Handler
}
