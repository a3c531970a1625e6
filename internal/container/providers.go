package container

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/grant-portal/internal/application/dispatcher"
	"github.com/garyjia/grant-portal/internal/application/port"
	"github.com/garyjia/grant-portal/internal/application/service"
	"github.com/garyjia/grant-portal/internal/domain/dashboard"
	"github.com/garyjia/grant-portal/internal/domain/event"
	"github.com/garyjia/grant-portal/internal/infrastructure/export"
	"github.com/garyjia/grant-portal/internal/infrastructure/external/recordapi"
	"github.com/garyjia/grant-portal/internal/infrastructure/persistence/repository"
	"github.com/garyjia/grant-portal/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/grant-portal/internal/infrastructure/storage"
	"github.com/garyjia/grant-portal/internal/infrastructure/worker"
	"github.com/garyjia/grant-portal/pkg/database"
	"github.com/garyjia/grant-portal/pkg/utils"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	Conn           *database.DB
	TransactionMgr *sqlite.DB
}

// ProvideDatabase opens the database and creates the transaction manager.
// Pending embedded migrations are applied when AutoMigrate is set.
func ProvideDatabase(ctx context.Context, cfg *DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	conn, err := database.New(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, err
	}

	if cfg.AutoMigrate {
		migrator := database.NewMigrator(conn, logger)
		if _, err := migrator.Run(ctx, database.EmbeddedMigrations()); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	return &DatabaseBundle{
		Conn:           conn,
		TransactionMgr: sqlite.NewDB(conn.DB, logger),
	}, nil
}

// ProvideRepositories creates all repositories on top of the transaction manager.
func ProvideRepositories(db *sqlite.DB, logger *zap.Logger) (*RepositoryBundle, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return &RepositoryBundle{
		Session: repository.NewSessionRepository(db, logger),
		Journal: repository.NewJournalRepository(db, logger),
	}, nil
}

// ProvideRecordAPI creates the Record API client.
func ProvideRecordAPI(cfg *recordapi.Config, logger *zap.Logger) (port.RecordAPI, error) {
	if cfg == nil {
		return nil, fmt.Errorf("record api config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	client, err := recordapi.NewClient(*cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create record api client: %w", err)
	}
	return client, nil
}

// ProvideStorage creates the file storage for exported documents.
func ProvideStorage(cfg *ExportConfig, logger *zap.Logger) (port.FileStorage, error) {
	if cfg == nil {
		return nil, fmt.Errorf("export config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return storage.NewLocalFileStorage(cfg.OutputDir, logger), nil
}

// ProvideDispatcher creates the event dispatcher.
func ProvideDispatcher(logger *zap.Logger) (dispatcher.Dispatcher, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return dispatcher.NewDispatcher(
		dispatcher.WithLogger(utils.NewKVLogger(logger)),
	), nil
}

// WorkerDeps holds dependencies required for creating workers.
type WorkerDeps struct {
	Storage   port.FileStorage
	ExportCfg *ExportConfig
	Logger    *zap.Logger
}

// ProvideWorkers creates the export worker and registers it with a manager.
// Returns the manager with all workers registered but not started.
func ProvideWorkers(deps *WorkerDeps) (*worker.WorkerManager, *worker.ExportWorker, error) {
	if deps == nil {
		return nil, nil, fmt.Errorf("worker dependencies are required")
	}
	if deps.Storage == nil {
		return nil, nil, fmt.Errorf("storage is required")
	}
	if deps.ExportCfg == nil {
		return nil, nil, fmt.Errorf("export config is required")
	}
	if deps.Logger == nil {
		return nil, nil, fmt.Errorf("logger is required")
	}

	htmlRenderer, err := export.NewHTMLRenderer()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create html renderer: %w", err)
	}
	renderers := export.NewRenderers(htmlRenderer, export.NewXLSXRenderer())

	manager := worker.NewWorkerManager(deps.Logger)

	exportWorker := worker.NewExportWorker(
		worker.ExportWorkerConfig{
			Workers:   deps.ExportCfg.Workers,
			QueueSize: deps.ExportCfg.QueueSize,
		},
		renderers,
		deps.Storage,
		deps.Logger,
	)
	manager.Register(exportWorker)

	return manager, exportWorker, nil
}

// ProvideSessionSweeper creates the idle-session sweeper for the manager.
func ProvideSessionSweeper(auth service.AuthService, cfg *SessionConfig, logger *zap.Logger) (*worker.SessionSweeper, error) {
	if auth == nil {
		return nil, fmt.Errorf("auth service is required")
	}
	if cfg == nil {
		return nil, fmt.Errorf("session config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return worker.NewSessionSweeper(auth, cfg.SweepInterval, logger), nil
}

// ServiceDeps holds dependencies required for creating services.
type ServiceDeps struct {
	Repos      *RepositoryBundle
	TxManager  port.TransactionManager
	API        port.RecordAPI
	Dispatcher dispatcher.Dispatcher
	Exports    port.ExportQueue
	Dashboard  *DashboardConfig
	Export     *ExportConfig
	Session    *SessionConfig
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
	if deps.TxManager == nil {
		return nil, fmt.Errorf("transaction manager is required")
	}
	if deps.API == nil {
		return nil, fmt.Errorf("record api is required")
	}
	if deps.Dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}
	if deps.Exports == nil {
		return nil, fmt.Errorf("export queue is required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	serviceLogger := utils.NewKVLogger(deps.Logger)
	dashCfg := service.DashboardConfig{}
	if deps.Dashboard != nil {
		dashCfg.DefaultSite = deps.Dashboard.DefaultSite
		dashCfg.StatusOptions = deps.Dashboard.StatusOptions
	}
	exportTimeout := DefaultConfig().Export.Timeout
	if deps.Export != nil && deps.Export.Timeout > 0 {
		exportTimeout = deps.Export.Timeout
	}
	authCfg := service.AuthConfig{TouchInterval: DefaultConfig().Session.TouchInterval}
	if deps.Session != nil {
		authCfg.IdleTimeout = deps.Session.IdleTimeout
		if deps.Session.TouchInterval > 0 {
			authCfg.TouchInterval = deps.Session.TouchInterval
		}
	}

	dash := service.NewDashboardService(
		deps.API,
		deps.Repos.Session,
		deps.Repos.Journal,
		dashboard.NewRegistry(),
		deps.Dispatcher,
		dashCfg,
		serviceLogger,
	)

	return &ServiceBundle{
		Auth: service.NewAuthService(
			deps.API,
			deps.Repos.Session,
			deps.TxManager,
			deps.Dispatcher,
			authCfg,
			serviceLogger,
		),
		Dashboard: dash,
		Entry: service.NewEntryService(
			deps.API,
			deps.Repos.Session,
			deps.Dispatcher,
			dashCfg,
			serviceLogger,
		),
		Export: service.NewExportService(
			dash,
			deps.Exports,
			deps.Dispatcher,
			exportTimeout,
			serviceLogger,
		),
	}, nil
}

// RegisterHandlers subscribes the journal, log and cache handlers.
func RegisterHandlers(d dispatcher.Dispatcher, repos *RepositoryBundle, services *ServiceBundle, logger *zap.Logger) error {
	if d == nil {
		return fmt.Errorf("dispatcher is required")
	}
	if repos == nil || services == nil {
		return fmt.Errorf("repositories and services are required")
	}

	journal := service.JournalHandler(repos.Journal)
	for _, t := range service.JournaledTypes {
		d.Subscribe(t, "journal", journal)
	}

	d.Subscribe(event.TypeSessionLoggedIn, "dashboard_reset", services.Dashboard.ResetSession)
	d.Subscribe(event.TypeSessionLoggedOut, "dashboard_reset", services.Dashboard.ResetSession)
	d.Subscribe(event.TypeSessionExpired, "dashboard_reset", services.Dashboard.ResetSession)
	d.Subscribe(event.TypeSessionExpired, "entry_reset", services.Entry.ResetSession)

	d.SubscribeAll("log", service.LogHandler(utils.NewKVLogger(logger)))
	return nil
}
