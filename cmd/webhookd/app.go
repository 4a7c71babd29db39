// Package main wires the webhook delivery service together: configuration,
// the shared database pool, the subscription registry and delivery engine,
// and the HTTP subscription-management API.
//
// Grounded on the teacher's internal/app/app.go (AppInterface, functional
// options, graceful shutdown with an active-request counter) generalized
// from the teacher's much larger SaaS service graph down to this module's
// registry/engine/outbox/auth components.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"contrib.go.opencensus.io/integrations/ocsql"

	"github.com/nti-labs/webhooks/config"
	httphandler "github.com/nti-labs/webhooks/internal/http"

	"github.com/nti-labs/webhooks/internal/authadapter"
	"github.com/nti-labs/webhooks/internal/delivery"
	"github.com/nti-labs/webhooks/internal/domain"
	"github.com/nti-labs/webhooks/internal/migrations"
	"github.com/nti-labs/webhooks/internal/outbox"
	"github.com/nti-labs/webhooks/internal/platform/dbconn"
	"github.com/nti-labs/webhooks/internal/registry"
	"github.com/nti-labs/webhooks/internal/repository"
	"github.com/nti-labs/webhooks/pkg/cache"
	"github.com/nti-labs/webhooks/pkg/logger"
	"github.com/nti-labs/webhooks/pkg/ratelimiter"
	"github.com/nti-labs/webhooks/pkg/tracing"
)

// AppInterface defines the lifecycle and accessors the daemon entry point
// (and tests) drive the application through.
type AppInterface interface {
	Initialize() error
	Start() error
	Shutdown(ctx context.Context) error

	GetConfig() *config.Config
	GetLogger() logger.Logger
	GetMux() *http.ServeMux
	GetDB() *sql.DB
	GetRegistry() *registry.Registry
	GetEngine() *delivery.Engine
	GetAuthentication() domain.Authentication
	GetSubscriptionService() *registry.SubscriptionService

	IsServerCreated() bool
	WaitForServerStart(ctx context.Context) bool

	InitTracing() error
	InitDB() error
	InitRepositories() error
	InitDomain() error
	InitDeclarativeSubscriptions() error
	InitHandlers() error

	SetShutdownTimeout(timeout time.Duration)
	GetActiveRequestCount() int64
	GetShutdownContext() context.Context
}

// App encapsulates the delivery service's dependencies and configuration.
type App struct {
	config *config.Config
	logger logger.Logger
	db     *sql.DB

	eventBus     domain.EventBus
	subRepo      domain.SubscriptionRepository
	attemptRepo  domain.DeliveryAttemptRepository
	auth         domain.Authentication
	dialects     *domain.DialectRegistry
	externalizer domain.Externalizer
	validator    delivery.DestinationValidator
	registry     *registry.Registry
	engine       *delivery.Engine
	retention    *registry.RetentionHandler
	testDelivery *registry.SubscriptionService

	subscriptionHandler *httphandler.SubscriptionHandler

	mux    *http.ServeMux
	server *http.Server

	serverMu      sync.RWMutex
	serverStarted chan struct{}

	shutdownCtx     context.Context
	shutdownCancel  context.CancelFunc
	activeRequests  int64
	requestWg       sync.WaitGroup
	shutdownTimeout time.Duration
}

// AppOption configures an App at construction time.
type AppOption func(*App)

// WithMockDB injects a pre-opened database handle, skipping InitDB's own
// connection step — used by tests driving sqlmock.
func WithMockDB(db *sql.DB) AppOption {
	return func(a *App) {
		a.db = db
	}
}

// WithLogger overrides the default logger.
func WithLogger(log logger.Logger) AppOption {
	return func(a *App) {
		a.logger = log
	}
}

// newApp creates a new application instance. main.go exposes it through the
// reassignable NewApp var so tests can substitute a mock AppInterface.
func newApp(cfg *config.Config, opts ...AppOption) AppInterface {
	shutdownCtx, shutdownCancel := context.WithCancel(context.Background())

	app := &App{
		config:          cfg,
		logger:          logger.NewLogger(),
		mux:             http.NewServeMux(),
		serverStarted:   make(chan struct{}),
		shutdownCtx:     shutdownCtx,
		shutdownCancel:  shutdownCancel,
		shutdownTimeout: 60 * time.Second,
	}

	for _, opt := range opts {
		opt(app)
	}

	return app
}

// InitTracing initializes OpenCensus tracing per config.
func (a *App) InitTracing() error {
	if err := tracing.InitTracing(&a.config.Tracing); err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	if a.config.Tracing.Enabled {
		a.logger.WithField("trace_exporter", a.config.Tracing.TraceExporter).
			WithField("metrics_exporter", a.config.Tracing.MetricsExporter).
			Info("Tracing initialized successfully")
	}
	return nil
}

// InitDB opens the shared database pool and runs pending migrations.
func (a *App) InitDB() error {
	if a.db != nil {
		return nil
	}

	driverName := ""
	if a.config.Tracing.Enabled {
		var err error
		driverName, err = ocsql.Register("postgres", ocsql.WithAllTraceOptions())
		if err != nil {
			return fmt.Errorf("failed to register opencensus sql driver: %w", err)
		}
	}

	db, err := dbconn.Open(dbconn.Config{
		DSN:                   a.config.Database.DSN(),
		MaxOpenConns:          a.config.Database.MaxOpenConns,
		MaxIdleConns:          a.config.Database.MaxIdleConns,
		ConnectionMaxLifetime: a.config.Database.ConnectionMaxLifetime,
		ConnectionMaxIdleTime: a.config.Database.ConnectionMaxIdleTime,
		DriverName:            driverName,
	})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	migrationManager := migrations.NewManager(a.logger)
	if err := migrationManager.RunMigrations(context.Background(), a.config, db); err != nil {
		db.Close()
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	a.db = db
	return nil
}

// InitRepositories wires the Postgres repositories against the shared pool.
func (a *App) InitRepositories() error {
	if a.db == nil {
		return fmt.Errorf("database must be initialized before repositories")
	}

	a.subRepo = repository.NewSubscriptionRepository(a.db)
	a.attemptRepo = repository.NewDeliveryAttemptRepository(a.db)

	return nil
}

// InitDomain wires the registry, authentication, dialect lookup, delivery
// engine, and retention/pruning event handler.
func (a *App) InitDomain() error {
	a.eventBus = domain.NewInMemoryEventBus()
	a.auth = authadapter.NewMemoryAuthentication()

	defaultDialect := domain.NewDefaultDialect(fmt.Sprintf("webhookd/%s", a.config.Version))
	a.dialects = domain.NewDialectRegistry(defaultDialect)
	a.externalizer = delivery.JSONExternalizer{}

	var validationCache cache.Cache
	if a.config.Delivery.DestinationValidationCacheTTL > 0 {
		validationCache = cache.NewInMemoryCache(a.config.Delivery.DestinationValidationCacheTTL)
	}
	a.validator = delivery.NewDefaultDestinationValidator(nil, validationCache, a.config.Delivery.DestinationValidationCacheTTL)

	a.registry = registry.NewRegistry(a.subRepo, a.eventBus)

	engineCfg := delivery.DefaultEngineConfig()
	engineCfg.Concurrency = a.config.Delivery.Concurrency
	engineCfg.RequestTimeout = a.config.Delivery.RequestTimeout
	engineCfg.MaxResponseBytes = a.config.Delivery.MaxResponseBytes
	if a.config.Delivery.PerHostMaxAttempts > 0 {
		engineCfg.PerHostPolicy = &ratelimiter.RatePolicy{
			MaxAttempts: a.config.Delivery.PerHostMaxAttempts,
			Window:      a.config.Delivery.PerHostWindow,
		}
	}

	writeBack := outbox.WriteBack(a.attemptRepo, a.eventBus)
	a.engine = delivery.NewEngine(engineCfg, writeBack, a.logger, tracing.GetTracer())

	a.retention = registry.NewRetentionHandler(a.registry, a.attemptRepo, a.subRepo, a.logger)
	a.retention.Wire(a.eventBus)

	a.testDelivery = registry.NewSubscriptionService(a.subRepo, a.dialects, a.externalizer, a.engine)

	return nil
}

// NewOutbox creates a fresh transactional outbox bound to txnID, for a host
// application to join when it commits a unit of work that raised an object
// event. The event bus itself is an external collaborator (spec §2's
// Non-goals); this is the seam an embedder drives directly.
func (a *App) NewOutbox(txnID string) *outbox.Outbox {
	return outbox.New(txnID, a.dialects, a.externalizer, a.validator, a.attemptRepo, a.subRepo, a.eventBus, a.engine, a.logger)
}

// InitHandlers registers the HTTP subscription-management API.
func (a *App) InitHandlers() error {
	getJWTSecret := func() ([]byte, error) {
		if len(a.config.Security.JWTSecret) == 0 {
			return nil, fmt.Errorf("JWT secret is not configured")
		}
		return a.config.Security.JWTSecret, nil
	}

	a.subscriptionHandler = httphandler.NewSubscriptionHandler(
		a.registry,
		a.subRepo,
		a.attemptRepo,
		a.auth,
		getJWTSecret,
		a.logger,
	)
	a.subscriptionHandler.RegisterRoutes(a.mux)

	a.mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return nil
}

// InitDeclarativeSubscriptions reconciles the registry against the optional
// YAML file named by config.DeclarativePath. A blank path is a no-op: not
// every deployment declares subscriptions statically.
func (a *App) InitDeclarativeSubscriptions() error {
	if a.config.DeclarativePath == "" {
		return nil
	}

	file, err := config.LoadDeclarativeFile(a.config.DeclarativePath)
	if err != nil {
		return fmt.Errorf("failed to load declarative subscriptions: %w", err)
	}

	if err := config.ApplyDeclarativeSubscriptions(
		context.Background(),
		a.registry,
		file,
		a.config.DeclarativeStatePath,
		a.auth,
		a.logger,
	); err != nil {
		return fmt.Errorf("failed to apply declarative subscriptions: %w", err)
	}

	return nil
}

// Initialize sets up every component of the application in dependency order.
func (a *App) Initialize() error {
	a.logger.WithField("version", a.config.Version).Info("Starting webhook delivery service")

	if err := a.InitTracing(); err != nil {
		return err
	}
	if err := a.InitDB(); err != nil {
		return err
	}
	if err := a.InitRepositories(); err != nil {
		return err
	}
	if err := a.InitDomain(); err != nil {
		return err
	}
	if err := a.InitDeclarativeSubscriptions(); err != nil {
		return err
	}
	if err := a.InitHandlers(); err != nil {
		return err
	}

	a.logger.Info("Application successfully initialized")
	return nil
}

// Start starts the HTTP server. It blocks until the server stops.
func (a *App) Start() error {
	var handler http.Handler = a.mux
	handler = a.gracefulShutdownMiddleware(handler)

	if a.config.Tracing.Enabled {
		handler = tracingHTTPMiddleware(handler)
	}

	addr := fmt.Sprintf("%s:%d", a.config.Server.Host, a.config.Server.Port)
	a.logger.WithField("address", addr).Info("Server starting")

	a.serverMu.Lock()
	if a.serverStarted != nil {
		close(a.serverStarted)
	}
	a.serverStarted = make(chan struct{})
	a.server = &http.Server{
		Addr:    addr,
		Handler: handler,
	}
	serverStarted := a.serverStarted
	a.serverMu.Unlock()

	close(serverStarted)

	if a.config.Server.SSL.Enabled {
		return a.server.ListenAndServeTLS(a.config.Server.SSL.CertFile, a.config.Server.SSL.KeyFile)
	}
	return a.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// and pending deliveries before closing the database connection.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("Starting graceful shutdown...")
	a.shutdownCancel()

	a.serverMu.RLock()
	server := a.server
	a.serverMu.RUnlock()

	if server == nil {
		return a.cleanupResources()
	}

	shutdownTimeout := a.shutdownTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < shutdownTimeout {
			shutdownTimeout = remaining - time.Second
			if shutdownTimeout < 0 {
				shutdownTimeout = 0
			}
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	serverShutdownDone := make(chan error, 1)
	go func() {
		serverShutdownDone <- server.Shutdown(shutdownCtx)
	}()

	requestsDone := make(chan struct{})
	go func() {
		defer close(requestsDone)
		done := make(chan struct{})
		go func() {
			a.requestWg.Wait()
			close(done)
		}()

		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				a.logger.WithField("active_requests", a.getActiveRequestCount()).
					Info("Still waiting for requests to complete...")
			case <-shutdownCtx.Done():
				return
			}
		}
	}()

	var shutdownErr error
	select {
	case err := <-serverShutdownDone:
		shutdownErr = err
	case <-shutdownCtx.Done():
		shutdownErr = fmt.Errorf("shutdown timeout exceeded")
	}

	if shutdownErr == nil {
		select {
		case <-requestsDone:
		case <-time.After(2 * time.Second):
		}
	}

	if err := a.engine.WaitForPendingDeliveries(shutdownTimeout); err != nil {
		a.logger.WithField("error", err).Warn("Pending deliveries did not drain before shutdown timeout")
		if shutdownErr == nil {
			shutdownErr = err
		}
	}

	if cleanupErr := a.cleanupResources(); cleanupErr != nil && shutdownErr == nil {
		shutdownErr = cleanupErr
	}

	if shutdownErr != nil {
		a.logger.WithField("error", shutdownErr).Error("Graceful shutdown completed with errors")
	} else {
		a.logger.Info("Graceful shutdown completed successfully")
	}

	return shutdownErr
}

func (a *App) cleanupResources() error {
	if a.db == nil {
		return nil
	}
	if a.config.Tracing.Enabled {
		if err := ocsql.RecordStats(a.db, 5*time.Second); err != nil {
			a.logger.WithField("error", err).Error("Failed to record final database stats for tracing")
		}
	}
	if err := a.db.Close(); err != nil {
		a.logger.WithField("error", err).Error("Error closing database connection")
		return err
	}
	return nil
}

// IsServerCreated reports whether the HTTP server has been constructed.
func (a *App) IsServerCreated() bool {
	a.serverMu.RLock()
	defer a.serverMu.RUnlock()
	return a.server != nil
}

// WaitForServerStart blocks until Start has constructed the server or ctx
// expires, for test synchronization.
func (a *App) WaitForServerStart(ctx context.Context) bool {
	a.serverMu.RLock()
	started := a.serverStarted
	a.serverMu.RUnlock()

	if started == nil {
		<-ctx.Done()
		return false
	}

	select {
	case <-started:
		return a.IsServerCreated()
	case <-ctx.Done():
		return false
	}
}

func (a *App) GetConfig() *config.Config { return a.config }
func (a *App) GetLogger() logger.Logger { return a.logger }
func (a *App) GetMux() *http.ServeMux { return a.mux }
func (a *App) GetDB() *sql.DB { return a.db }
func (a *App) GetRegistry() *registry.Registry { return a.registry }
func (a *App) GetEngine() *delivery.Engine { return a.engine }
func (a *App) GetAuthentication() domain.Authentication { return a.auth }
func (a *App) GetSubscriptionService() *registry.SubscriptionService { return a.testDelivery }

func (a *App) incrementActiveRequests() {
	atomic.AddInt64(&a.activeRequests, 1)
	a.requestWg.Add(1)
}

func (a *App) decrementActiveRequests() {
	atomic.AddInt64(&a.activeRequests, -1)
	a.requestWg.Done()
}

func (a *App) getActiveRequestCount() int64 {
	return atomic.LoadInt64(&a.activeRequests)
}

// GetActiveRequestCount returns the current number of active HTTP requests.
func (a *App) GetActiveRequestCount() int64 {
	return a.getActiveRequestCount()
}

// SetShutdownTimeout overrides the default 60 second graceful shutdown
// timeout.
func (a *App) SetShutdownTimeout(timeout time.Duration) {
	a.shutdownTimeout = timeout
}

// GetShutdownContext returns the context canceled when shutdown begins.
func (a *App) GetShutdownContext() context.Context {
	return a.shutdownCtx
}

func (a *App) isShuttingDown() bool {
	select {
	case <-a.shutdownCtx.Done():
		return true
	default:
		return false
	}
}

// gracefulShutdownMiddleware rejects new requests with 503 once shutdown has
// begun and tracks in-flight requests so Shutdown can wait for them to drain.
func (a *App) gracefulShutdownMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.isShuttingDown() {
			http.Error(w, "Server is shutting down", http.StatusServiceUnavailable)
			return
		}

		a.incrementActiveRequests()
		defer a.decrementActiveRequests()

		next.ServeHTTP(w, r)
	})
}

func tracingHTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracing.GetTracer().StartSpan(r.Context(), r.URL.Path)
		defer tracing.GetTracer().EndSpan(span, nil)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

var _ AppInterface = (*App)(nil)
