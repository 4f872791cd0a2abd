package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/upb/club-authz/auth"
	"github.com/upb/club-authz/config"
	"github.com/upb/club-authz/handlers"
	"github.com/upb/club-authz/internal/authz"
	"github.com/upb/club-authz/middleware"
	"github.com/upb/club-authz/repositories"
	"github.com/upb/club-authz/repositories/postgres"
	"github.com/upb/club-authz/services/audit"
	"github.com/upb/club-authz/services/catalog"
	"github.com/upb/club-authz/services/ledger"
	"github.com/upb/club-authz/services/permission"
	"github.com/upb/club-authz/services/units"
	"github.com/upb/club-authz/services/users"
	"go.uber.org/zap"
)

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	DB     *postgres.DB
	Logger *zap.Logger

	// Repository Factory
	RepoFactory *postgres.RepositoryFactory

	// Repositories
	Repos     *repositories.Repositories
	TxManager repositories.TransactionManager

	// Services
	Evaluator   *authz.Evaluator
	Permissions *permission.Service
	Audit       *audit.AuditService
	Units       *units.Service
	Catalog     *catalog.Service
	Ledger      *ledger.Service
	Users       *users.Service

	// Middleware
	AuthMiddleware       *middleware.AuthMiddleware
	PermissionMiddleware *middleware.PermissionMiddleware

	// Handlers
	HealthHandler        *handlers.HealthHandler
	PermissionHandler    *handlers.PermissionHandler
	UnitHandler          *handlers.UnitHandler
	PrivilegeTypeHandler *handlers.PrivilegeTypeHandler
	PORHandler           *handlers.PORHandler
	UserHandler          *handlers.UserHandler

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewDependencies connects to PostgreSQL and wires up all application dependencies
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	factory, err := postgres.NewRepositoryFactory(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if cfg.Database.InitSchema {
		if err := factory.InitSchema(ctx); err != nil {
			_ = factory.Close()
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
	}

	return NewDependenciesWithFactory(cfg, factory, logger)
}

// NewDependenciesWithFactory wires every dependency on top of an existing
// repository factory
func NewDependenciesWithFactory(cfg *config.Config, factory *postgres.RepositoryFactory, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config:      cfg,
		Logger:      logger,
		RepoFactory: factory,
		DB:          factory.GetDB(),
		stopCh:      make(chan struct{}),
	}

	deps.initRepositories()
	deps.initServices(cfg)
	if err := deps.initAuth(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize auth: %w", err)
	}
	deps.initHandlers()

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// initRepositories initializes all repository instances
func (d *Dependencies) initRepositories() {
	d.Repos = d.RepoFactory.NewRepositories()
	d.TxManager = d.RepoFactory.GetTransactionManager()

	d.Logger.Info("repositories initialized")
}

// initServices builds the evaluator, the snapshot cache and the domain services
func (d *Dependencies) initServices(cfg *config.Config) {
	d.Evaluator = authz.NewEvaluator(d.Logger.Named("authz"))

	cache := permission.NewSnapshotCache(cfg.Cache.SnapshotCacheSize, cfg.Cache.SnapshotCacheTTL)
	d.Permissions = permission.NewService(d.Repos, d.Evaluator, cache, d.Logger.Named("permission"))

	d.Audit = audit.NewAuditService(d.Repos.AuditLogs, d.Logger.Named("audit"), audit.Config{
		BufferSize:   cfg.Audit.BufferSize,
		WorkerCount:  cfg.Audit.Workers,
		WriteTimeout: cfg.Audit.WriteTimeout,
	})

	d.Units = units.NewService(d.Repos.Units, d.Permissions, d.Audit, d.Logger.Named("units"))
	d.Catalog = catalog.NewService(d.Repos, d.TxManager, d.Permissions, d.Audit, d.Logger.Named("catalog"))
	d.Ledger = ledger.NewService(d.Repos, d.TxManager, d.Permissions, d.Audit, d.Logger.Named("ledger"))
	d.Users = users.NewService(d.Repos, d.TxManager, d.Permissions, d.Audit, d.Logger.Named("users"))

	d.Logger.Info("services initialized",
		zap.Int("snapshot_cache_size", cfg.Cache.SnapshotCacheSize),
		zap.Duration("snapshot_cache_ttl", cfg.Cache.SnapshotCacheTTL),
		zap.Bool("snapshot_cache_enabled", cache.Enabled()),
		zap.Int("replicas", cfg.Server.Replicas))
}

// initAuth builds the token verifier and the enforcement middleware
func (d *Dependencies) initAuth(cfg *config.Config) error {
	d.PermissionMiddleware = middleware.NewPermissionMiddleware(d.Permissions, d.Logger)

	verifier, err := auth.NewTokenVerifier(cfg.Auth)
	if errors.Is(err, auth.ErrMissingSecret) && !cfg.IsProduction() {
		d.Logger.Warn("token secret not configured, authenticated routes will reject every request")
		// Use reject-all validator so protected routes return 401
		d.AuthMiddleware = middleware.NewAuthMiddleware(rejectAllValidator{}, d.Logger)
		return nil
	}
	if err != nil {
		return err
	}

	d.AuthMiddleware = middleware.NewAuthMiddleware(verifier, d.Logger)
	d.Logger.Info("token verification initialized",
		zap.String("issuer", cfg.Auth.Issuer),
		zap.Duration("leeway", cfg.Auth.Leeway))
	return nil
}

// initHandlers builds the HTTP handlers over the services
func (d *Dependencies) initHandlers() {
	d.HealthHandler = handlers.NewHealthHandler(d.DB.DB, d.Permissions, d.Audit, d.Logger)
	d.PermissionHandler = handlers.NewPermissionHandler(d.Permissions, d.Logger)
	d.UnitHandler = handlers.NewUnitHandler(d.Units, d.Logger)
	d.PrivilegeTypeHandler = handlers.NewPrivilegeTypeHandler(d.Catalog, d.Logger)
	d.PORHandler = handlers.NewPORHandler(d.Ledger, d.Logger)
	d.UserHandler = handlers.NewUserHandler(d.Users, d.Logger)
}

// Start launches the audit workers and the snapshot cache cleanup loop
func (d *Dependencies) Start() error {
	if err := d.Audit.Start(); err != nil {
		return fmt.Errorf("failed to start audit service: %w", err)
	}
	go d.Permissions.StartCleanupWorker(d.Config.Cache.CleanupInterval, d.stopCh)
	return nil
}

// rejectAllValidator rejects all tokens (used when no secret is configured)
type rejectAllValidator struct{}

func (rejectAllValidator) VerifyToken(context.Context, string) (*auth.Principal, error) {
	return nil, fmt.Errorf("authentication not configured: %w", auth.ErrInvalidToken)
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	d.stopOnce.Do(func() { close(d.stopCh) })

	// Drain queued audit events before the pool goes away
	if d.Audit != nil && d.Audit.GetStats().Started {
		if err := d.Audit.Stop(d.Config.Audit.StopTimeout); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop audit service: %w", err))
		}
	}

	// Close database connection
	if d.RepoFactory != nil {
		if err := d.RepoFactory.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		} else {
			d.Logger.Info("database connection closed")
		}
	}

	// Sync logger
	if d.Logger != nil {
		_ = d.Logger.Sync()
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %w", errors.Join(errs...))
	}

	return nil
}
