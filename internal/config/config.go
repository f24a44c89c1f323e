package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// Storage backends
const (
	StorageLocal = "local"
	StorageMinio = "minio"
)

// Config holds all application configuration
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Transaction TransactionConfig `mapstructure:"transaction"`
	Logger      LoggerConfig      `mapstructure:"logger"`
	Email       EmailConfig       `mapstructure:"email"`
	Lark        LarkConfig        `mapstructure:"lark"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Storage     StorageConfig     `mapstructure:"storage"`
	Routing     RoutingConfig     `mapstructure:"routing"`
	Reminder    ReminderConfig    `mapstructure:"reminder"`
	Balance     BalanceConfig     `mapstructure:"balance"`
	Calendar    CalendarConfig    `mapstructure:"calendar"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	BusyTimeout     time.Duration `mapstructure:"busy_timeout"`
}

// TransactionConfig controls retries of contended document transactions
type TransactionConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	Backoff     time.Duration `mapstructure:"backoff"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// EmailConfig holds SMTP configuration; an empty host disables mail
type EmailConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
	FromName string `mapstructure:"from_name"`
}

// LarkConfig holds Lark API configuration; empty credentials disable chat push
type LarkConfig struct {
	AppID     string `mapstructure:"app_id"`
	AppSecret string `mapstructure:"app_secret"`
}

// RedisConfig holds the badge cache connection; an empty URL disables it
type RedisConfig struct {
	URL       string        `mapstructure:"url"`
	KeyPrefix string        `mapstructure:"key_prefix"`
	TTL       time.Duration `mapstructure:"ttl"`
}

// StorageConfig selects and configures the attachment blob store
type StorageConfig struct {
	Backend           string      `mapstructure:"backend"`
	LocalDir          string      `mapstructure:"local_dir"`
	MaxAttachmentSize int64       `mapstructure:"max_attachment_size"`
	Minio             MinioConfig `mapstructure:"minio"`
}

// MinioConfig holds S3-compatible object storage settings
type MinioConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	Bucket          string `mapstructure:"bucket"`
	UseSSL          bool   `mapstructure:"use_ssl"`
}

// RoutingConfig points at the default approver routing file
type RoutingConfig struct {
	Path string `mapstructure:"path"`
}

// ReminderConfig controls the stale-request reminder sweep
type ReminderConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	Schedule   string        `mapstructure:"schedule"`
	StaleAfter time.Duration `mapstructure:"stale_after"`
	RunTimeout time.Duration `mapstructure:"run_timeout"`
}

// BalanceConfig seeds vacation balances
type BalanceConfig struct {
	DefaultDays float64 `mapstructure:"default_days"`
}

// CalendarConfig sets the zone in which "today" and cron schedules are evaluated
type CalendarConfig struct {
	Timezone string `mapstructure:"timezone"`
}

// Location resolves the configured timezone
func (c CalendarConfig) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

// Load reads an optional .env file, then configPath, then the environment.
// An empty envFile skips the .env step.
func Load(configPath, envFile string) (*Config, error) {
	if envFile != "" {
		if err := gotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load env file: %w", err)
		}
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := bindEnvVars(v); err != nil {
		return nil, fmt.Errorf("failed to bind environment: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("database.path", "data/approvals.db")
	v.SetDefault("database.max_open_conns", 8)
	v.SetDefault("database.max_idle_conns", 4)
	v.SetDefault("database.conn_max_lifetime", 30*time.Minute)
	v.SetDefault("database.busy_timeout", 5*time.Second)

	v.SetDefault("transaction.max_attempts", 5)
	v.SetDefault("transaction.backoff", 20*time.Millisecond)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "json")

	v.SetDefault("email.port", "587")
	v.SetDefault("email.from_name", "Approvals")

	v.SetDefault("redis.key_prefix", "approvals:unread:")
	v.SetDefault("redis.ttl", 10*time.Minute)

	v.SetDefault("storage.backend", StorageLocal)
	v.SetDefault("storage.local_dir", "data/attachments")
	v.SetDefault("storage.max_attachment_size", 10<<20)
	v.SetDefault("storage.minio.bucket", "approval-attachments")

	v.SetDefault("reminder.enabled", true)
	v.SetDefault("reminder.schedule", "0 9 * * 1-5")
	v.SetDefault("reminder.stale_after", 48*time.Hour)
	v.SetDefault("reminder.run_timeout", 2*time.Minute)

	v.SetDefault("balance.default_days", 15)

	v.SetDefault("calendar.timezone", "Local")
}

// bindEnvVars binds credentials to conventional environment variable names
func bindEnvVars(v *viper.Viper) error {
	bindings := map[string]string{
		"database.path":                   "DATABASE_PATH",
		"lark.app_id":                     "LARK_APP_ID",
		"lark.app_secret":                 "LARK_APP_SECRET",
		"email.host":                      "SMTP_HOST",
		"email.port":                      "SMTP_PORT",
		"email.username":                  "SMTP_USERNAME",
		"email.password":                  "SMTP_PASSWORD",
		"email.from":                      "SMTP_FROM",
		"redis.url":                       "REDIS_URL",
		"storage.minio.access_key_id":     "MINIO_ACCESS_KEY",
		"storage.minio.secret_access_key": "MINIO_SECRET_KEY",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return err
		}
	}
	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d is out of range", c.Server.Port))
	}
	switch c.Server.Mode {
	case "release", "debug", "test":
	default:
		errs = append(errs, fmt.Errorf("server.mode must be release, debug or test"))
	}
	if c.Database.Path == "" {
		errs = append(errs, fmt.Errorf("database.path is required"))
	}
	if c.Transaction.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("transaction.max_attempts must be at least 1"))
	}

	switch c.Storage.Backend {
	case StorageLocal:
		if c.Storage.LocalDir == "" {
			errs = append(errs, fmt.Errorf("storage.local_dir is required for the local backend"))
		}
	case StorageMinio:
		m := c.Storage.Minio
		if m.Endpoint == "" || m.Bucket == "" || m.AccessKeyID == "" || m.SecretAccessKey == "" {
			errs = append(errs, fmt.Errorf("storage.minio endpoint, bucket and credentials are required"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.backend must be %q or %q", StorageLocal, StorageMinio))
	}
	if c.Storage.MaxAttachmentSize <= 0 {
		errs = append(errs, fmt.Errorf("storage.max_attachment_size must be positive"))
	}

	if (c.Lark.AppID == "") != (c.Lark.AppSecret == "") {
		errs = append(errs, fmt.Errorf("lark.app_id and lark.app_secret must be set together"))
	}
	if c.Email.Host != "" && c.Email.From == "" {
		errs = append(errs, fmt.Errorf("email.from is required when email.host is set"))
	}

	if c.Reminder.Enabled {
		if _, err := cron.ParseStandard(c.Reminder.Schedule); err != nil {
			errs = append(errs, fmt.Errorf("reminder.schedule: %w", err))
		}
		if c.Reminder.StaleAfter <= 0 {
			errs = append(errs, fmt.Errorf("reminder.stale_after must be positive"))
		}
	}

	if c.Balance.DefaultDays <= 0 {
		errs = append(errs, fmt.Errorf("balance.default_days must be positive"))
	}
	if _, err := c.Calendar.Location(); err != nil {
		errs = append(errs, fmt.Errorf("calendar.timezone: %w", err))
	}

	return errors.Join(errs...)
}
