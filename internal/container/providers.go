package container

import (
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/partner-review/internal/application/dispatcher"
	"github.com/garyjia/partner-review/internal/application/port"
	"github.com/garyjia/partner-review/internal/application/service"
	appwf "github.com/garyjia/partner-review/internal/application/workflow"
	"github.com/garyjia/partner-review/internal/domain/event"
	domainwf "github.com/garyjia/partner-review/internal/domain/workflow"
	"github.com/garyjia/partner-review/internal/infrastructure/audit"
	"github.com/garyjia/partner-review/internal/infrastructure/auth"
	infraLark "github.com/garyjia/partner-review/internal/infrastructure/external/lark"
	"github.com/garyjia/partner-review/internal/infrastructure/metrics"
	"github.com/garyjia/partner-review/internal/infrastructure/persistence/repository"
	"github.com/garyjia/partner-review/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/partner-review/internal/infrastructure/report"
	"github.com/garyjia/partner-review/pkg/database"
	"github.com/garyjia/partner-review/pkg/utils"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	SqlDB          *sql.DB
	TransactionMgr *sqlite.DB
}

// LarkBundle holds all Lark-related components. Both are nil when Lark is
// disabled.
type LarkBundle struct {
	Client    *infraLark.SDKClient
	Messenger port.MessageSender
}

// AuditBundle holds the audit sinks. Kafka is nil when the stream is disabled.
type AuditBundle struct {
	Sinks []port.AuditSink
	Kafka *audit.KafkaSink
}

// ProvideDatabase opens the database and applies the embedded migrations.
func ProvideDatabase(cfg *DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
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

	if err := database.NewMigrator(db, logger).Run(database.Migrations()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &DatabaseBundle{
		SqlDB:          db.DB,
		TransactionMgr: sqlite.NewDB(db.DB, logger),
	}, nil
}

// ProvideRepositories creates all repositories from a database connection.
func ProvideRepositories(sqlDB *sql.DB, logger *zap.Logger) (*RepositoryBundle, error) {
	if sqlDB == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return &RepositoryBundle{
		Form:         repository.NewFormRepository(sqlDB, logger),
		Ledger:       repository.NewLedgerRepository(sqlDB, logger),
		Admin:        repository.NewAdminRepository(sqlDB, logger),
		Notification: repository.NewNotificationRepository(sqlDB, logger),
	}, nil
}

// ProvideLarkClients creates the Lark client and messenger when enabled.
func ProvideLarkClients(cfg *LarkConfig, logger *zap.Logger) (*LarkBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("lark config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if !cfg.Enabled {
		logger.Info("Lark delivery disabled, notifications are stored in-app only")
		return &LarkBundle{}, nil
	}

	sdkClient := infraLark.NewSDKClient(infraLark.Config{
		AppID:     cfg.AppID,
		AppSecret: cfg.AppSecret,
		BaseURL:   cfg.BaseURL,
	}, logger)

	return &LarkBundle{
		Client:    sdkClient,
		Messenger: infraLark.NewMessenger(sdkClient, logger),
	}, nil
}

// ProvideAuditSinks creates the log sink and, when enabled, the Kafka sink.
func ProvideAuditSinks(cfg *KafkaConfig, logger *zap.Logger) (*AuditBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("kafka config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	bundle := &AuditBundle{
		Sinks: []port.AuditSink{audit.NewLogSink(logger)},
	}
	if !cfg.Enabled {
		return bundle, nil
	}

	sink, err := audit.NewKafkaSink(audit.KafkaConfig{
		Brokers:      cfg.Brokers,
		Topic:        cfg.Topic,
		Username:     cfg.Username,
		Password:     cfg.Password,
		TLS:          cfg.TLS,
		WriteTimeout: cfg.WriteTimeout,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka audit sink: %w", err)
	}
	bundle.Kafka = sink
	bundle.Sinks = append(bundle.Sinks, sink)

	return bundle, nil
}

// ProvideTokenManager creates the admin token issuer and verifier.
func ProvideTokenManager(cfg *AuthConfig) (*auth.TokenManager, error) {
	if cfg == nil {
		return nil, fmt.Errorf("auth config is required")
	}
	return auth.NewTokenManager(cfg.JWTSecret, cfg.Issuer, cfg.TokenTTL)
}

// handlerTimeout bounds one post-commit handler, e.g. a Lark push or Kafka write
const handlerTimeout = 30 * time.Second

// ProvideDispatcher creates the event dispatcher.
func ProvideDispatcher(logger *zap.Logger) (dispatcher.Dispatcher, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return dispatcher.NewDispatcher(
		dispatcher.WithLogger(utils.NewKVLogger(logger.Named("dispatcher"))),
		dispatcher.WithHandlerTimeout(handlerTimeout),
	), nil
}

// WorkflowDeps holds dependencies required for creating the workflow engine.
type WorkflowDeps struct {
	Repos     *RepositoryBundle
	TxManager port.TransactionManager
	Metrics   *metrics.Recorder
	Logger    *zap.Logger
}

// ProvideWorkflowEngine creates the workflow engine over both approval chains.
func ProvideWorkflowEngine(deps *WorkflowDeps) (appwf.WorkflowEngine, error) {
	if deps == nil {
		return nil, fmt.Errorf("workflow dependencies are required")
	}
	if deps.Repos == nil {
		return nil, fmt.Errorf("repositories are required")
	}
	if deps.TxManager == nil {
		return nil, fmt.Errorf("transaction manager is required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	opts := []appwf.EngineOption{
		appwf.WithLogger(utils.NewKVLogger(deps.Logger.Named("workflow"))),
	}
	if deps.Metrics != nil {
		opts = append(opts, appwf.WithMetrics(deps.Metrics))
	}

	return appwf.NewEngine(
		deps.Repos.Form,
		deps.Repos.Ledger,
		deps.TxManager,
		domainwf.NewResolver(domainwf.DefaultTables()),
		opts...,
	), nil
}

// ServiceDeps holds dependencies required for creating services.
type ServiceDeps struct {
	Repos      *RepositoryBundle
	Engine     appwf.WorkflowEngine
	Dispatcher dispatcher.Dispatcher
	Messenger  port.MessageSender
	AuditSinks []port.AuditSink
	Logger     *zap.Logger
}

// ProvideServices creates all application services.
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps == nil {
		return nil, fmt.Errorf("service dependencies are required")
	}
	if deps.Repos == nil {
		return nil, fmt.Errorf("repositories are required")
	}
	if deps.Engine == nil {
		return nil, fmt.Errorf("workflow engine is required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	// Create logger adapter for services
	serviceLogger := utils.NewKVLogger(deps.Logger)

	directory := service.NewDirectoryService(deps.Repos.Admin, serviceLogger)

	return &ServiceBundle{
		Approval: service.NewApprovalService(
			deps.Repos.Form,
			deps.Repos.Ledger,
			deps.Engine,
			deps.Dispatcher,
			serviceLogger,
		),
		Notification: service.NewNotificationService(
			deps.Repos.Notification,
			directory,
			deps.Messenger,
			serviceLogger,
		),
		Directory: directory,
		Audit:     service.NewAuditService(serviceLogger, deps.AuditSinks...),
		Report: service.NewReportService(
			deps.Repos.Form,
			deps.Repos.Ledger,
			directory,
			report.NewLedgerExporter(deps.Logger),
			serviceLogger,
		),
	}, nil
}

// formEvents are the event types every subscriber listens to
var formEvents = []event.Type{
	event.TypeFormCreated,
	event.TypeFormUpdated,
	event.TypeFormTransitioned,
	event.TypeFormReassigned,
}

// RegisterHandlers subscribes notification delivery and audit recording to
// form events. Notifications run first so a slow audit stream never delays
// a reviewer's inbox.
func RegisterHandlers(d dispatcher.Dispatcher, services *ServiceBundle) error {
	if d == nil {
		return fmt.Errorf("dispatcher is required")
	}
	if services == nil {
		return fmt.Errorf("services are required")
	}

	for _, t := range formEvents {
		d.SubscribeNamed(t, "notifications", services.Notification.HandleEvent)
		d.SubscribeNamed(t, "audit", services.Audit.HandleEvent)
	}
	return nil
}
