package config

import (
	"fmt"

	"github.com/garyjia/erp-approvals/internal/container"
	"github.com/garyjia/erp-approvals/pkg/database"
	"github.com/garyjia/erp-approvals/pkg/utils"
)

// ToContainerConfig converts the application Config to a container.Config.
// This provides a bridge between the file-based config loaded by viper
// and the container's configuration structure.
func (c *Config) ToContainerConfig() (*container.Config, error) {
	loc, err := c.Calendar.Location()
	if err != nil {
		return nil, fmt.Errorf("calendar.timezone: %w", err)
	}

	return &container.Config{
		Database: container.DatabaseConfig{
			Path:            c.Database.Path,
			MaxOpenConns:    c.Database.MaxOpenConns,
			MaxIdleConns:    c.Database.MaxIdleConns,
			ConnMaxLifetime: c.Database.ConnMaxLifetime,
			BusyTimeout:     c.Database.BusyTimeout,
		},
		Transaction: container.TransactionConfig{
			MaxAttempts: c.Transaction.MaxAttempts,
			Backoff:     c.Transaction.Backoff,
		},
		Email: container.EmailConfig{
			Host:     c.Email.Host,
			Port:     c.Email.Port,
			Username: c.Email.Username,
			Password: c.Email.Password,
			From:     c.Email.From,
			FromName: c.Email.FromName,
		},
		Lark: container.LarkConfig{
			AppID:     c.Lark.AppID,
			AppSecret: c.Lark.AppSecret,
		},
		Redis: container.RedisConfig{
			URL:       c.Redis.URL,
			KeyPrefix: c.Redis.KeyPrefix,
			TTL:       c.Redis.TTL,
		},
		Storage: container.StorageConfig{
			Backend:              c.Storage.Backend,
			LocalDir:             c.Storage.LocalDir,
			MaxAttachmentSize:    c.Storage.MaxAttachmentSize,
			MinioEndpoint:        c.Storage.Minio.Endpoint,
			MinioAccessKeyID:     c.Storage.Minio.AccessKeyID,
			MinioSecretAccessKey: c.Storage.Minio.SecretAccessKey,
			MinioBucket:          c.Storage.Minio.Bucket,
			MinioUseSSL:          c.Storage.Minio.UseSSL,
		},
		Routing: container.RoutingConfig{
			Path: c.Routing.Path,
		},
		Reminder: container.ReminderConfig{
			Enabled:    c.Reminder.Enabled,
			Schedule:   c.Reminder.Schedule,
			StaleAfter: c.Reminder.StaleAfter,
			RunTimeout: c.Reminder.RunTimeout,
		},
		Balance: container.BalanceConfig{
			DefaultDays: c.Balance.DefaultDays,
		},
		Location: loc,
	}, nil
}

// DatabaseConfig converts the database section for direct use by the migrate command
func (c *Config) DatabaseConfig() database.Config {
	return database.Config{
		Path:            c.Database.Path,
		MaxOpenConns:    c.Database.MaxOpenConns,
		MaxIdleConns:    c.Database.MaxIdleConns,
		ConnMaxLifetime: c.Database.ConnMaxLifetime,
		BusyTimeout:     c.Database.BusyTimeout,
	}
}

// LoggerConfig converts the logger section
func (c *Config) LoggerConfig() utils.LoggerConfig {
	return utils.LoggerConfig{
		Level:      c.Logger.Level,
		OutputPath: c.Logger.OutputPath,
		Format:     c.Logger.Format,
	}
}
