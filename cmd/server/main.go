package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/garyjia/erp-approvals/internal/config"
	"github.com/garyjia/erp-approvals/internal/container"
	httpapi "github.com/garyjia/erp-approvals/internal/interfaces/http"
	"github.com/garyjia/erp-approvals/pkg/database"
	"github.com/garyjia/erp-approvals/pkg/utils"
)

var (
	configFile string
	envFile    string
)

var rootCmd = &cobra.Command{
	Use:           "approvals",
	Short:         "Multi-stage ERP approval service",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          serveRunE,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and background workers",
	RunE:  serveRunE,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations and exit",
	RunE:  migrateRunE,
}

var remindCmd = &cobra.Command{
	Use:   "remind",
	Short: "Run one reminder sweep and exit",
	RunE:  remindRunE,
}

func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configFile, envFile)
	if err != nil {
		return nil, nil, err
	}
	logger, err := utils.NewLogger(cfg.LoggerConfig())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, logger, nil
}

func startContainer(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*container.Container, error) {
	containerCfg, err := cfg.ToContainerConfig()
	if err != nil {
		return nil, err
	}
	c, err := container.NewContainer(containerCfg, logger)
	if err != nil {
		return nil, err
	}
	if err := c.Start(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func serveRunE(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting approval service",
		zap.String("config", configFile),
		zap.Int("port", cfg.Server.Port))

	c, err := startContainer(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to start container", zap.Error(err))
		return err
	}
	defer func() {
		if err := c.Close(); err != nil {
			logger.Error("Container shutdown error", zap.Error(err))
		}
	}()

	server := httpapi.NewServer(httpapi.ServerConfig{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		Mode:            cfg.Server.Mode,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		MaxUploadSize:   cfg.Storage.MaxAttachmentSize,
	}, c.Services(), c, utils.NewKVLogger(logger.Named("http")))

	// blocks until SIGINT/SIGTERM, then drains in-flight requests
	if err := server.Start(ctx); err != nil {
		return err
	}
	logger.Info("Approval service stopped")
	return nil
}

func migrateRunE(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer logger.Sync()

	db, err := database.New(cfg.DatabaseConfig(), logger)
	if err != nil {
		return err
	}
	defer db.Close()

	applied, err := database.NewMigrator(db, logger).Run(database.EmbeddedMigrations())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "applied %d migration(s)\n", applied)
	return nil
}

func remindRunE(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer logger.Sync()

	// the sweep runs here, not on the schedule
	cfg.Reminder.Enabled = false

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := startContainer(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer c.Close()

	sent, err := c.Services().Reminder.SendReminders(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "sent %d reminder(s)\n", sent)
	return nil
}

func main() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "configs/config.yaml", "the config file to use")
	rootCmd.PersistentFlags().StringVar(&envFile, "env", ".env", "optional dotenv file loaded before the config")
	rootCmd.AddCommand(serveCmd, migrateCmd, remindCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
