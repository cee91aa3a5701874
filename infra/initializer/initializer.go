// Package initializer wires configuration, logging, persistence and the
// service layer into a ready-to-serve dependency set.
package initializer

import (
	"fmt"
	"log/slog"

	"github.com/gokcenbank/ledger/infra/persistence/gormstore"
	"github.com/gokcenbank/ledger/infra/persistence/jsonfile"
	"github.com/gokcenbank/ledger/pkg/config"
	"github.com/gokcenbank/ledger/pkg/ledgerstore"
	"github.com/gokcenbank/ledger/pkg/repository"
	accountsvc "github.com/gokcenbank/ledger/pkg/service/account"
	authsvc "github.com/gokcenbank/ledger/pkg/service/auth"
	transfersvc "github.com/gokcenbank/ledger/pkg/service/transfer"
)

// Deps is the assembled application dependency set.
type Deps struct {
	Config   *config.AppConfig
	Logger   *slog.Logger
	Store    *ledgerstore.Store
	Auth     *authsvc.Service
	Account  *accountsvc.Service
	Transfer *transfersvc.Service
}

// InitializeDependencies loads config, sets up the logger, opens the chosen
// persistence backend and builds the services on top of the ledger store.
func InitializeDependencies() (*Deps, error) {
	logger := setupLogger(&config.Log{Format: "text", TimeFormat: "15:04:05", Prefix: "ledger"})
	cfg, err := config.Load(logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load application configuration: %w", err)
	}
	// Rebuild the logger now that the configured settings are known.
	logger = setupLogger(&cfg.Log)

	gateway, err := buildGateway(cfg, logger)
	if err != nil {
		return nil, err
	}
	store := ledgerstore.New(gateway, logger)

	transferSvc, err := transfersvc.New(store, &cfg.Bank, logger)
	if err != nil {
		return nil, fmt.Errorf("invalid transfer fee %q: %w", cfg.Bank.TransferFee, err)
	}

	return &Deps{
		Config:   cfg,
		Logger:   logger,
		Store:    store,
		Auth:     authsvc.New(store, &cfg.Jwt, logger),
		Account:  accountsvc.New(store, logger),
		Transfer: transferSvc,
	}, nil
}

func buildGateway(cfg *config.AppConfig, logger *slog.Logger) (repository.Gateway, error) {
	switch cfg.Store.Backend {
	case "json":
		logger.Info("using json snapshot store", "path", cfg.Store.Path)
		return jsonfile.New(cfg.Store.Path), nil
	case "postgres":
		db, err := gormstore.Open(cfg.Store.DatabaseURL, cfg.App.Env)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		gw := gormstore.New(db)
		if err := gw.Migrate(); err != nil {
			return nil, fmt.Errorf("failed to migrate snapshot table: %w", err)
		}
		logger.Info("using postgres snapshot store")
		return gw, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}
