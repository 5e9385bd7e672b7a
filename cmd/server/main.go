package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/garyjia/partner-review/internal/config"
	"github.com/garyjia/partner-review/internal/container"
	httpapi "github.com/garyjia/partner-review/internal/interfaces/http"
	"github.com/garyjia/partner-review/pkg/utils"
)

const defaultConfigPath = "configs/config.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "path to the YAML config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(resolveConfigPath(*configPath))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
		Service:    "partner-review",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Error("Server exited with error", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting partner review service",
		zap.Int("port", cfg.Server.Port),
		zap.Bool("lark_enabled", cfg.Lark.Enabled),
		zap.Bool("kafka_enabled", cfg.Kafka.Enabled))

	c, err := container.NewContainer(cfg.ToContainerConfig(), logger)
	if err != nil {
		return fmt.Errorf("create container: %w", err)
	}
	if err := c.Start(ctx); err != nil {
		return fmt.Errorf("start container: %w", err)
	}
	defer func() {
		if err := c.Close(); err != nil {
			logger.Error("Failed to close container", zap.Error(err))
		}
	}()

	services := c.Services()
	serverCfg := c.Config().Server
	server := httpapi.NewServer(httpapi.ServerConfig{
		Host:           serverCfg.Host,
		Port:           serverCfg.Port,
		ReadTimeout:    serverCfg.ReadTimeout,
		WriteTimeout:   serverCfg.WriteTimeout,
		AllowedOrigins: serverCfg.AllowedOrigins,
		MetricsPath:    serverCfg.MetricsPath,
	}, httpapi.Deps{
		Approval:     services.Approval,
		Notification: services.Notification,
		Directory:    services.Directory,
		Report:       services.Report,
		Tokens:       c.Tokens(),
		Metrics:      c.Metrics(),
		Health: func() (bool, interface{}) {
			h := c.Health()
			return h.Overall, h.Components
		},
	}, utils.NewKVLogger(logger.Named("http")))

	// Start blocks until the signal context is cancelled
	if err := server.Start(ctx); err != nil {
		return err
	}

	logger.Info("Server exited")
	return nil
}

// resolveConfigPath falls back to environment-only configuration when the
// default file is absent. An explicitly named file must exist.
func resolveConfigPath(path string) string {
	if path != defaultConfigPath {
		return path
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return ""
	}
	return path
}
