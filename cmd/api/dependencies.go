package api

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/hearthfin/hearth/internal/domain/imports/detector"
	importhandler "github.com/hearthfin/hearth/internal/domain/imports/handler"
	"github.com/hearthfin/hearth/internal/domain/imports/normalizer"
	importrepo "github.com/hearthfin/hearth/internal/domain/imports/repository"
	importservice "github.com/hearthfin/hearth/internal/domain/imports/service"
	ledgerhandler "github.com/hearthfin/hearth/internal/domain/ledger/handler"
	ledgerrepo "github.com/hearthfin/hearth/internal/domain/ledger/repository"
	ledgerservice "github.com/hearthfin/hearth/internal/domain/ledger/service"
	patternhandler "github.com/hearthfin/hearth/internal/domain/patterns/handler"
	patternrepo "github.com/hearthfin/hearth/internal/domain/patterns/repository"
	patternservice "github.com/hearthfin/hearth/internal/domain/patterns/service"

	"github.com/hearthfin/hearth/pkg/config"
	"github.com/hearthfin/hearth/pkg/db"
)

// Dependencies holds all application dependencies
type Dependencies struct {
	Config *config.Config
	DB     *db.DB
	Logger *slog.Logger

	// Repositories
	TransactionRepo ledgerrepo.TransactionRepository
	CashflowRepo    ledgerrepo.CashflowRepository
	PatternRepo     patternrepo.PatternRepository
	ImportRepo      importrepo.ImportRepository

	// Services
	ImportService  *importservice.ImportService
	LedgerService  *ledgerservice.LedgerService
	PatternService *patternservice.PatternService

	// Handlers
	ImportHandler  *importhandler.ImportHandler
	LedgerHandler  *ledgerhandler.LedgerHandler
	PatternHandler *patternhandler.PatternHandler
}

// InitDependencies initializes all application dependencies
func InitDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to init database: %w", err)
	}

	if err := deps.initRepositories(); err != nil {
		return nil, fmt.Errorf("failed to init repositories: %w", err)
	}

	if err := deps.initServices(); err != nil {
		return nil, fmt.Errorf("failed to init services: %w", err)
	}

	if err := deps.initHandlers(); err != nil {
		return nil, fmt.Errorf("failed to init handlers: %w", err)
	}

	logger.Info("all dependencies initialized successfully")

	return deps, nil
}

// initDatabase initializes the database connection and runs migrations
func (d *Dependencies) initDatabase() error {
	database, err := db.New(db.Config{
		DSN:             d.Config.Database.DSN(),
		MaxConns:        25,
		MinConns:        5,
		MaxConnLifetime: 5 * time.Minute,
		MaxConnIdleTime: 10 * time.Minute,
	}, d.Logger)
	if err != nil {
		return err
	}

	d.DB = database

	if err := d.DB.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	d.Logger.Info("database connected and migrations completed successfully")
	return nil
}

// initRepositories initializes all repository layer dependencies
func (d *Dependencies) initRepositories() error {
	ledgerRepo := ledgerrepo.NewPostgresLedgerRepository(d.DB.Pool)
	d.TransactionRepo = ledgerRepo
	d.CashflowRepo = ledgerRepo
	d.PatternRepo = patternrepo.NewPostgresPatternRepository(d.DB.Pool)
	d.ImportRepo = importrepo.NewPostgresImportRepository(d.DB.Pool)

	d.Logger.Info("repositories initialized")
	return nil
}

// initServices initializes all service layer dependencies
func (d *Dependencies) initServices() error {
	if d.Config.Auth.JWTSecret == "" {
		return fmt.Errorf("jwt secret is required")
	}

	det := detector.New(detector.Config{
		LongFieldLength:  d.Config.Detector.LongFieldLength,
		BalanceMagnitude: d.Config.Detector.BalanceMagnitude,
	})
	norm := normalizer.New(d.Logger)

	d.ImportService = importservice.NewImportService(
		d.TransactionRepo,
		d.CashflowRepo,
		d.PatternRepo,
		d.ImportRepo,
		det,
		norm,
		d.Logger,
	)
	d.LedgerService = ledgerservice.NewLedgerService(d.TransactionRepo, d.PatternRepo, d.Logger)
	d.PatternService = patternservice.NewPatternService(d.PatternRepo, d.Logger)

	d.Logger.Info("services initialized")
	return nil
}

// initHandlers initializes all handler dependencies
func (d *Dependencies) initHandlers() error {
	d.ImportHandler = importhandler.NewImportHandler(d.ImportService, d.ImportRepo, d.Logger)
	d.LedgerHandler = ledgerhandler.NewLedgerHandler(d.LedgerService, d.Logger)
	d.PatternHandler = patternhandler.NewPatternHandler(d.PatternService, d.Logger)

	d.Logger.Info("handlers initialized")
	return nil
}

// Cleanup closes all resources
func (d *Dependencies) Cleanup() {
	if d.DB != nil {
		d.DB.Close()
	}
	d.Logger.Info("cleanup completed")
}
