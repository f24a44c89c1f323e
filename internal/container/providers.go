package container

import (
	"context"
	"fmt"
	"time"

	"github.com/garyjia/erp-approvals/internal/application/dispatcher"
	"github.com/garyjia/erp-approvals/internal/application/port"
	"github.com/garyjia/erp-approvals/internal/application/service"
	"github.com/garyjia/erp-approvals/internal/application/workflow"
	"github.com/garyjia/erp-approvals/internal/infrastructure/cache"
	"github.com/garyjia/erp-approvals/internal/infrastructure/external/email"
	"github.com/garyjia/erp-approvals/internal/infrastructure/external/lark"
	"github.com/garyjia/erp-approvals/internal/infrastructure/persistence/docstore"
	"github.com/garyjia/erp-approvals/internal/infrastructure/routing"
	"github.com/garyjia/erp-approvals/internal/infrastructure/storage"
	"github.com/garyjia/erp-approvals/internal/infrastructure/worker"
	"github.com/garyjia/erp-approvals/pkg/database"
	"github.com/garyjia/erp-approvals/pkg/utils"
	"go.uber.org/zap"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	DB    *database.DB
	Store *docstore.Store
}

// ExternalBundle holds the optional outbound clients. Nil fields are disabled.
type ExternalBundle struct {
	Mailer     port.Mailer
	Messenger  port.ChatMessenger
	BadgeCache *cache.BadgeCache
}

// ServiceDeps holds the dependencies of the application services.
type ServiceDeps struct {
	Store       port.DocumentStore
	Coordinator workflow.Coordinator
	Dispatcher  dispatcher.Dispatcher
	External    *ExternalBundle
	FileStorage port.FileStorage
	Config      *Config
	Now         func() time.Time
	Logger      *zap.Logger
}

// ProvideDatabase opens SQLite, applies the embedded migrations and wraps
// the connection in a document store.
func ProvideDatabase(cfg *DatabaseConfig, txCfg *TransactionConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil || txCfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	db, err := database.New(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		BusyTimeout:     cfg.BusyTimeout,
	}, logger)
	if err != nil {
		return nil, err
	}

	applied, err := database.NewMigrator(db, logger).Run(database.EmbeddedMigrations())
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	logger.Info("Migrations applied", zap.Int("count", applied))

	var opts []docstore.Option
	if txCfg.MaxAttempts > 0 {
		opts = append(opts, docstore.WithMaxAttempts(txCfg.MaxAttempts))
	}
	if txCfg.Backoff > 0 {
		opts = append(opts, docstore.WithBackoff(txCfg.Backoff))
	}

	return &DatabaseBundle{
		DB:    db,
		Store: docstore.New(db.DB, logger, opts...),
	}, nil
}

// ProvideExternalClients builds whichever of SMTP, Lark and Redis are configured.
func ProvideExternalClients(ctx context.Context, cfg *Config, logger *zap.Logger) (*ExternalBundle, error) {
	bundle := &ExternalBundle{}

	mailer := email.NewSMTPMailer(email.Config{
		Host:     cfg.Email.Host,
		Port:     cfg.Email.Port,
		Username: cfg.Email.Username,
		Password: cfg.Email.Password,
		From:     cfg.Email.From,
		FromName: cfg.Email.FromName,
	}, logger)
	if mailer.IsConfigured() {
		bundle.Mailer = mailer
	} else {
		logger.Info("SMTP not configured, mail notifications disabled")
	}

	larkCfg := lark.Config{AppID: cfg.Lark.AppID, AppSecret: cfg.Lark.AppSecret}
	if larkCfg.IsConfigured() {
		bundle.Messenger = lark.NewMessenger(lark.NewSDKClient(larkCfg, logger), logger)
	} else {
		logger.Info("Lark not configured, chat notifications disabled")
	}

	if cfg.Redis.URL != "" {
		var opts []cache.Option
		if cfg.Redis.KeyPrefix != "" {
			opts = append(opts, cache.WithPrefix(cfg.Redis.KeyPrefix))
		}
		if cfg.Redis.TTL > 0 {
			opts = append(opts, cache.WithTTL(cfg.Redis.TTL))
		}
		badges, err := cache.NewBadgeCache(ctx, cfg.Redis.URL, logger, opts...)
		if err != nil {
			return nil, err
		}
		bundle.BadgeCache = badges
	}

	return bundle, nil
}

// ProvideStorage creates the attachment blob store for the configured backend.
func ProvideStorage(ctx context.Context, cfg *StorageConfig, logger *zap.Logger) (port.FileStorage, error) {
	switch cfg.Backend {
	case "minio":
		return storage.NewMinioStorage(ctx, storage.MinioConfig{
			Endpoint:        cfg.MinioEndpoint,
			AccessKeyID:     cfg.MinioAccessKeyID,
			SecretAccessKey: cfg.MinioSecretAccessKey,
			Bucket:          cfg.MinioBucket,
			UseSSL:          cfg.MinioUseSSL,
		}, logger)
	case "local", "":
		return storage.NewLocalFileStorage(cfg.LocalDir, logger), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// ProvideRoutingTable loads the default approver table. An empty path yields an empty table.
func ProvideRoutingTable(cfg *RoutingConfig, logger *zap.Logger) (*routing.Table, error) {
	table, err := routing.Load(cfg.Path)
	if err != nil {
		return nil, err
	}
	logger.Info("Routing table loaded", zap.String("path", cfg.Path), zap.Int("kinds", table.Len()))
	return table, nil
}

// ProvideDispatcher creates the event dispatcher.
func ProvideDispatcher(logger *zap.Logger) dispatcher.Dispatcher {
	return dispatcher.NewDispatcher(dispatcher.WithLogger(utils.NewKVLogger(logger.Named("dispatcher"))))
}

// ProvideCoordinator creates the transaction coordinator.
func ProvideCoordinator(store port.DocumentStore, disp dispatcher.Dispatcher, table port.RoutingTable, balance *BalanceConfig, now func() time.Time, logger *zap.Logger) workflow.Coordinator {
	return workflow.NewCoordinator(store,
		workflow.WithDispatcher(disp),
		workflow.WithRoutingTable(table),
		workflow.WithLogger(utils.NewKVLogger(logger.Named("workflow"))),
		workflow.WithClock(now),
		workflow.WithDefaultVacationDays(balance.DefaultDays),
	)
}

// ProvideServices creates all application services and subscribes the
// notification handlers to the dispatcher.
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps == nil || deps.Store == nil || deps.Coordinator == nil || deps.Dispatcher == nil {
		return nil, fmt.Errorf("store, coordinator and dispatcher are required")
	}
	if deps.External == nil {
		deps.External = &ExternalBundle{}
	}
	kv := utils.NewKVLogger(deps.Logger.Named("service"))

	// a nil *BadgeCache must not become a non-nil interface
	var badges port.BadgeCache
	if deps.External.BadgeCache != nil {
		badges = deps.External.BadgeCache
	}
	notifications := service.NewNotificationService(deps.Store, deps.External.Mailer, deps.External.Messenger, badges, kv)
	notifications.RegisterHandlers(deps.Dispatcher)

	return &ServiceBundle{
		Coordinator:  deps.Coordinator,
		Pending:      service.NewPendingService(deps.Store, kv, service.WithDayBoundary(deps.Now, deps.Config.Location)),
		Notification: notifications,
		Export:       service.NewExportService(deps.Store, kv),
		Balance:      service.NewBalanceService(deps.Store, deps.Config.Balance.DefaultDays),
		Attachment:   service.NewAttachmentService(deps.Coordinator, deps.FileStorage, kv, deps.Config.Storage.MaxAttachmentSize),
		Reminder:     service.NewReminderService(deps.Store, deps.Dispatcher, kv, deps.Config.Reminder.StaleAfter, deps.Now),
	}, nil
}

// ProvideWorkers registers the background workers that are enabled.
func ProvideWorkers(cfg *ReminderConfig, reminders service.ReminderService, loc *time.Location, logger *zap.Logger) (*worker.WorkerManager, error) {
	manager := worker.NewWorkerManager(logger)
	if !cfg.Enabled {
		logger.Info("Reminder sweep disabled")
		return manager, nil
	}

	wc := worker.DefaultReminderWorkerConfig()
	if cfg.Schedule != "" {
		wc.Schedule = cfg.Schedule
	}
	if cfg.RunTimeout > 0 {
		wc.RunTimeout = cfg.RunTimeout
	}
	if loc != nil {
		wc.Location = loc
	}

	reminderWorker, err := worker.NewReminderWorker(wc, reminders, logger)
	if err != nil {
		return nil, err
	}
	manager.Register(reminderWorker)
	return manager, nil
}
