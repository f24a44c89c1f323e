// Package container provides dependency injection and lifecycle management
// for the approval service.
package container

import (
	"fmt"
	"time"
)

// Config holds all configuration for the Container.
type Config struct {
	Database    DatabaseConfig
	Transaction TransactionConfig
	Email       EmailConfig
	Lark        LarkConfig
	Redis       RedisConfig
	Storage     StorageConfig
	Routing     RoutingConfig
	Reminder    ReminderConfig
	Balance     BalanceConfig
	Location    *time.Location
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// Path to SQLite database file
	Path string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	// BusyTimeout is how long SQLite waits on a locked database
	BusyTimeout time.Duration
}

// TransactionConfig controls retries of contended document transactions.
type TransactionConfig struct {
	MaxAttempts int
	Backoff     time.Duration
}

// EmailConfig holds SMTP settings. An empty Host disables mail.
type EmailConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	FromName string
}

// LarkConfig holds Lark API settings. Empty credentials disable chat push.
type LarkConfig struct {
	AppID     string
	AppSecret string
}

// RedisConfig holds badge cache settings. An empty URL disables the cache.
type RedisConfig struct {
	URL       string
	KeyPrefix string
	TTL       time.Duration
}

// StorageConfig holds attachment storage settings.
type StorageConfig struct {
	// Backend is "local" or "minio"
	Backend           string
	LocalDir          string
	MaxAttachmentSize int64

	MinioEndpoint        string
	MinioAccessKeyID     string
	MinioSecretAccessKey string
	MinioBucket          string
	MinioUseSSL          bool
}

// RoutingConfig points at the default approver routing file.
type RoutingConfig struct {
	Path string
}

// ReminderConfig holds reminder sweep settings.
type ReminderConfig struct {
	Enabled    bool
	Schedule   string
	StaleAfter time.Duration
	RunTimeout time.Duration
}

// BalanceConfig seeds vacation balances.
type BalanceConfig struct {
	DefaultDays float64
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:            "data/approvals.db",
			MaxOpenConns:    8,
			MaxIdleConns:    4,
			ConnMaxLifetime: 30 * time.Minute,
			BusyTimeout:     5 * time.Second,
		},
		Transaction: TransactionConfig{
			MaxAttempts: 5,
			Backoff:     20 * time.Millisecond,
		},
		Redis: RedisConfig{
			KeyPrefix: "approvals:unread:",
			TTL:       10 * time.Minute,
		},
		Storage: StorageConfig{
			Backend:           "local",
			LocalDir:          "data/attachments",
			MaxAttachmentSize: 10 << 20,
		},
		Reminder: ReminderConfig{
			Enabled:    true,
			Schedule:   "0 9 * * 1-5",
			StaleAfter: 48 * time.Hour,
			RunTimeout: 2 * time.Minute,
		},
		Balance: BalanceConfig{
			DefaultDays: 15,
		},
		Location: time.Local,
	}
}

// Validate checks that required configuration values are present.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	switch c.Storage.Backend {
	case "local":
		if c.Storage.LocalDir == "" {
			return fmt.Errorf("storage.local_dir is required")
		}
	case "minio":
		if c.Storage.MinioEndpoint == "" || c.Storage.MinioBucket == "" {
			return fmt.Errorf("storage.minio endpoint and bucket are required")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}

	if c.Balance.DefaultDays <= 0 {
		return fmt.Errorf("balance.default_days must be positive")
	}

	return nil
}
