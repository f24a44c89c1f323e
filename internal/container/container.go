package container

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/garyjia/erp-approvals/internal/application/dispatcher"
	"github.com/garyjia/erp-approvals/internal/application/port"
	"github.com/garyjia/erp-approvals/internal/application/service"
	"github.com/garyjia/erp-approvals/internal/application/workflow"
	"github.com/garyjia/erp-approvals/internal/domain/event"
	"github.com/garyjia/erp-approvals/internal/infrastructure/persistence/docstore"
	"github.com/garyjia/erp-approvals/internal/infrastructure/routing"
	"github.com/garyjia/erp-approvals/internal/infrastructure/worker"
	"github.com/garyjia/erp-approvals/pkg/database"
	"go.uber.org/zap"
)

// Container manages all application dependencies and lifecycle.
// Components are initialized in dependency order and torn down in reverse.
type Container struct {
	config *Config
	logger *zap.Logger
	now    func() time.Time

	// Infrastructure - Data
	db    *database.DB
	store *docstore.Store

	// Infrastructure - External
	external *ExternalBundle

	// Infrastructure - Storage and routing
	fileStorage port.FileStorage
	routing     *routing.Table

	// Application
	dispatcher  dispatcher.Dispatcher
	coordinator workflow.Coordinator
	services    *ServiceBundle

	// Workers
	workers *worker.WorkerManager

	// Lifecycle
	mu     sync.RWMutex
	ctx    context.Context
	cancel context.CancelFunc
	ready  atomic.Bool
	closed atomic.Bool
}

// ServiceBundle groups all application services.
type ServiceBundle struct {
	Coordinator  workflow.Coordinator
	Pending      service.PendingService
	Notification service.NotificationService
	Export       service.ExportService
	Balance      service.BalanceService
	Attachment   service.AttachmentService
	Reminder     service.ReminderService
}

// HealthStatus represents the health of all components.
type HealthStatus struct {
	Overall    bool                       `json:"overall"`
	Components map[string]ComponentHealth `json:"components"`
}

// ComponentHealth represents health of a single component.
type ComponentHealth struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// Option customizes a Container.
type Option func(*Container)

// WithClock replaces the wall clock used by the coordinator and services.
func WithClock(now func() time.Time) Option {
	return func(c *Container) {
		if now != nil {
			c.now = now
		}
	}
}

// NewContainer creates a new container from configuration.
// It does not initialize components - call Start() to initialize.
func NewContainer(cfg *Config, logger *zap.Logger, opts ...Option) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}

	c := &Container{
		config: cfg,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Start initializes all components and begins processing.
// Components are initialized in dependency order:
// 1. Database, migrations and document store
// 2. External clients (SMTP, Lark, Redis)
// 3. Attachment storage and routing table
// 4. Event dispatcher and coordinator
// 5. Application services and notification handlers
// 6. Workers
func (c *Container) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container has been closed")
	}

	if c.ready.Load() {
		return fmt.Errorf("container already started")
	}

	c.ctx, c.cancel = context.WithCancel(ctx)
	c.logger.Info("Starting container initialization")

	steps := []struct {
		name string
		init func() error
	}{
		{"database", c.initDatabase},
		{"external clients", c.initExternalClients},
		{"storage", c.initStorage},
		{"dispatcher and coordinator", c.initDispatcherAndCoordinator},
		{"services", c.initServices},
		{"workers", c.initWorkers},
	}
	for _, step := range steps {
		if err := step.init(); err != nil {
			c.teardown()
			return fmt.Errorf("failed to initialize %s: %w", step.name, err)
		}
		c.logger.Info("Initialized", zap.String("component", step.name))
	}

	c.ready.Store(true)
	c.logger.Info("Container started successfully")

	return nil
}

// Close gracefully shuts down all components in reverse order.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container already closed")
	}

	c.logger.Info("Closing container")
	err := c.teardown()

	c.closed.Store(true)
	c.ready.Store(false)

	if err != nil {
		c.logger.Error("Container closed with errors", zap.Error(err))
		return err
	}

	c.logger.Info("Container closed successfully")
	return nil
}

// teardown releases whatever has been initialized so far
func (c *Container) teardown() error {
	var errs []error

	if c.cancel != nil {
		c.cancel()
	}

	if c.workers != nil {
		if err := c.workers.StopAll(); err != nil {
			errs = append(errs, fmt.Errorf("stop workers: %w", err))
		}
		c.workers = nil
	}

	if c.dispatcher != nil {
		if err := c.dispatcher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close dispatcher: %w", err))
		}
		c.dispatcher = nil
	}

	if c.external != nil && c.external.BadgeCache != nil {
		if err := c.external.BadgeCache.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close badge cache: %w", err))
		}
		c.external = nil
	}

	if c.db != nil {
		if err := c.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
		c.db = nil
		c.store = nil
	}

	return errors.Join(errs...)
}

// Ready returns true when all components are initialized.
func (c *Container) Ready() bool {
	return c.ready.Load()
}

// Health returns health status of all components.
func (c *Container) Health(ctx context.Context) *HealthStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()

	status := &HealthStatus{
		Overall:    true,
		Components: make(map[string]ComponentHealth),
	}
	set := func(name string, err error, message string) {
		if err != nil {
			status.Components[name] = ComponentHealth{Healthy: false, Message: err.Error()}
			status.Overall = false
			return
		}
		status.Components[name] = ComponentHealth{Healthy: true, Message: message}
	}
	notInitialized := errors.New("not initialized")

	// Check database
	if c.db != nil {
		if err := c.db.PingContext(ctx); err != nil {
			set("database", fmt.Errorf("ping failed: %w", err), "")
		} else {
			set("database", nil, "")
		}
	} else {
		set("database", notInitialized, "")
	}

	// Redis is optional; report it only when configured
	if c.external != nil && c.external.BadgeCache != nil {
		if err := c.external.BadgeCache.Ping(ctx); err != nil {
			set("badge_cache", fmt.Errorf("ping failed: %w", err), "")
		} else {
			set("badge_cache", nil, "")
		}
	}

	// Check workers
	if c.workers != nil && c.workers.IsRunning() {
		set("workers", nil, fmt.Sprintf("worker count: %d", c.workers.GetWorkerCount()))
	} else {
		set("workers", notInitialized, "")
	}

	// Check dispatcher
	if c.dispatcher != nil {
		handlers := 0
		for _, t := range event.Types() {
			handlers += len(c.dispatcher.ListHandlers(t))
		}
		set("dispatcher", nil, fmt.Sprintf("handler count: %d", handlers))
	} else {
		set("dispatcher", notInitialized, "")
	}

	return status
}

// initDatabase opens the database and the document store
func (c *Container) initDatabase() error {
	bundle, err := ProvideDatabase(&c.config.Database, &c.config.Transaction, c.logger)
	if err != nil {
		return err
	}
	c.db = bundle.DB
	c.store = bundle.Store
	return nil
}

// initExternalClients builds the configured notification channels
func (c *Container) initExternalClients() error {
	external, err := ProvideExternalClients(c.ctx, c.config, c.logger)
	if err != nil {
		return err
	}
	c.external = external
	return nil
}

// initStorage creates attachment storage and loads the routing table
func (c *Container) initStorage() error {
	fileStorage, err := ProvideStorage(c.ctx, &c.config.Storage, c.logger)
	if err != nil {
		return err
	}
	c.fileStorage = fileStorage

	table, err := ProvideRoutingTable(&c.config.Routing, c.logger)
	if err != nil {
		return err
	}
	c.routing = table
	return nil
}

// initDispatcherAndCoordinator creates the event dispatcher and the coordinator
func (c *Container) initDispatcherAndCoordinator() error {
	c.dispatcher = ProvideDispatcher(c.logger)
	c.coordinator = ProvideCoordinator(c.store, c.dispatcher, c.routing, &c.config.Balance, c.now, c.logger)
	return nil
}

// initServices creates the application services
func (c *Container) initServices() error {
	services, err := ProvideServices(&ServiceDeps{
		Store:       c.store,
		Coordinator: c.coordinator,
		Dispatcher:  c.dispatcher,
		External:    c.external,
		FileStorage: c.fileStorage,
		Config:      c.config,
		Now:         c.now,
		Logger:      c.logger,
	})
	if err != nil {
		return err
	}
	c.services = services
	return nil
}

// initWorkers creates and starts the background workers
func (c *Container) initWorkers() error {
	workers, err := ProvideWorkers(&c.config.Reminder, c.services.Reminder, c.config.Location, c.logger)
	if err != nil {
		return err
	}
	c.workers = workers

	if err := c.workers.StartAll(c.ctx); err != nil {
		return fmt.Errorf("failed to start workers: %w", err)
	}
	return nil
}

// Getters for accessing container components

// Store returns the document store.
func (c *Container) Store() port.DocumentStore {
	return c.store
}

// FileStorage returns the attachment storage.
func (c *Container) FileStorage() port.FileStorage {
	return c.fileStorage
}

// Dispatcher returns the event dispatcher.
func (c *Container) Dispatcher() dispatcher.Dispatcher {
	return c.dispatcher
}

// Coordinator returns the transaction coordinator.
func (c *Container) Coordinator() workflow.Coordinator {
	return c.coordinator
}

// Services returns all application services.
func (c *Container) Services() *ServiceBundle {
	return c.services
}

// Workers returns the worker manager.
func (c *Container) Workers() *worker.WorkerManager {
	return c.workers
}

// Logger returns the container's logger.
func (c *Container) Logger() *zap.Logger {
	return c.logger
}

// Config returns the container's configuration.
func (c *Container) Config() *Config {
	return c.config
}
