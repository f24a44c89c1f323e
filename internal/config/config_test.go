package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalYAML = `
server:
  port: 9090
database:
  path: /tmp/approvals.db
routing:
  path: configs/routing.yaml
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yaml", minimalYAML)

	cfg, err := Load(path, "")
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "release", cfg.Server.Mode)
	assert.Equal(t, "/tmp/approvals.db", cfg.Database.Path)
	assert.Equal(t, 5*time.Second, cfg.Database.BusyTimeout)
	assert.Equal(t, 5, cfg.Transaction.MaxAttempts)
	assert.Equal(t, StorageLocal, cfg.Storage.Backend)
	assert.Equal(t, int64(10<<20), cfg.Storage.MaxAttachmentSize)
	assert.True(t, cfg.Reminder.Enabled)
	assert.Equal(t, "0 9 * * 1-5", cfg.Reminder.Schedule)
	assert.Equal(t, 48*time.Hour, cfg.Reminder.StaleAfter)
	assert.Equal(t, float64(15), cfg.Balance.DefaultDays)
	assert.Equal(t, "configs/routing.yaml", cfg.Routing.Path)
}

func TestLoad_FileValues(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yaml", `
database:
  path: data/x.db
reminder:
  schedule: "30 8 * * *"
  stale_after: 72h
storage:
  backend: minio
  minio:
    endpoint: localhost:9000
    bucket: attachments
    access_key_id: key
    secret_access_key: secret
calendar:
  timezone: Asia/Seoul
balance:
  default_days: 20.5
`)

	cfg, err := Load(path, "")
	require.NoError(t, err)
	assert.Equal(t, "30 8 * * *", cfg.Reminder.Schedule)
	assert.Equal(t, 72*time.Hour, cfg.Reminder.StaleAfter)
	assert.Equal(t, StorageMinio, cfg.Storage.Backend)
	assert.Equal(t, "localhost:9000", cfg.Storage.Minio.Endpoint)
	assert.Equal(t, 20.5, cfg.Balance.DefaultDays)

	loc, err := cfg.Calendar.Location()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Seoul", loc.String())
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yaml", minimalYAML)
	t.Setenv("LARK_APP_ID", "cli_123")
	t.Setenv("LARK_APP_SECRET", "s3cret")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("SERVER_PORT", "7070")

	cfg, err := Load(path, "")
	require.NoError(t, err)
	assert.Equal(t, "cli_123", cfg.Lark.AppID)
	assert.Equal(t, "s3cret", cfg.Lark.AppSecret)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Redis.URL)
	assert.Equal(t, 7070, cfg.Server.Port)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", minimalYAML)
	envPath := writeFile(t, dir, ".env", "SMTP_HOST=smtp.example.com\nSMTP_FROM=approvals@example.com\n")
	t.Cleanup(func() {
		os.Unsetenv("SMTP_HOST")
		os.Unsetenv("SMTP_FROM")
	})

	cfg, err := Load(path, envPath)
	require.NoError(t, err)
	assert.Equal(t, "smtp.example.com", cfg.Email.Host)
	assert.Equal(t, "approvals@example.com", cfg.Email.From)
	assert.Equal(t, "587", cfg.Email.Port)

	_, err = Load(path, filepath.Join(dir, "missing.env"))
	assert.NoError(t, err, "a missing env file is ignored")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), "")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:      ServerConfig{Port: 8080, Mode: "release"},
			Database:    DatabaseConfig{Path: "x.db"},
			Transaction: TransactionConfig{MaxAttempts: 3},
			Storage:     StorageConfig{Backend: StorageLocal, LocalDir: "blobs", MaxAttachmentSize: 1},
			Reminder:    ReminderConfig{Enabled: true, Schedule: "0 9 * * 1-5", StaleAfter: time.Hour},
			Balance:     BalanceConfig{DefaultDays: 15},
		}
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port", func(c *Config) { c.Server.Port = 0 }},
		{"mode", func(c *Config) { c.Server.Mode = "prod" }},
		{"database path", func(c *Config) { c.Database.Path = "" }},
		{"attempts", func(c *Config) { c.Transaction.MaxAttempts = 0 }},
		{"backend", func(c *Config) { c.Storage.Backend = "s3" }},
		{"minio fields", func(c *Config) { c.Storage.Backend = StorageMinio }},
		{"attachment size", func(c *Config) { c.Storage.MaxAttachmentSize = 0 }},
		{"half lark", func(c *Config) { c.Lark.AppID = "cli_x" }},
		{"mail without from", func(c *Config) { c.Email.Host = "smtp.example.com" }},
		{"schedule", func(c *Config) { c.Reminder.Schedule = "whenever" }},
		{"stale after", func(c *Config) { c.Reminder.StaleAfter = 0 }},
		{"balance", func(c *Config) { c.Balance.DefaultDays = 0 }},
		{"timezone", func(c *Config) { c.Calendar.Timezone = "Mars/Olympus" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			assert.Error(t, c.Validate())
		})
	}

	disabled := valid()
	disabled.Reminder = ReminderConfig{Enabled: false}
	assert.NoError(t, disabled.Validate(), "reminder settings are ignored when disabled")
}

func TestToContainerConfig(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yaml", minimalYAML)
	cfg, err := Load(path, "")
	require.NoError(t, err)

	cc, err := cfg.ToContainerConfig()
	require.NoError(t, err)
	require.NoError(t, cc.Validate())
	assert.Equal(t, cfg.Database.Path, cc.Database.Path)
	assert.Equal(t, cfg.Transaction.MaxAttempts, cc.Transaction.MaxAttempts)
	assert.Equal(t, cfg.Storage.LocalDir, cc.Storage.LocalDir)
	assert.Equal(t, cfg.Reminder.Schedule, cc.Reminder.Schedule)
	assert.Equal(t, time.Local, cc.Location)

	assert.Equal(t, cfg.Database.Path, cfg.DatabaseConfig().Path)
	assert.Equal(t, "json", cfg.LoggerConfig().Format)
}
