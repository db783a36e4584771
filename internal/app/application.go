// Package app wires configuration, storage, the ledger client and the
// domain services into one application with a managed lifecycle.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hashbridge/ledger-gateway/internal/auth"
	"github.com/hashbridge/ledger-gateway/internal/config"
	"github.com/hashbridge/ledger-gateway/internal/httpapi"
	"github.com/hashbridge/ledger-gateway/internal/ledger"
	"github.com/hashbridge/ledger-gateway/internal/metrics"
	"github.com/hashbridge/ledger-gateway/internal/middleware"
	"github.com/hashbridge/ledger-gateway/internal/services/accounts"
	"github.com/hashbridge/ledger-gateway/internal/services/prices"
	"github.com/hashbridge/ledger-gateway/internal/services/tokens"
	"github.com/hashbridge/ledger-gateway/internal/storage"
	"github.com/hashbridge/ledger-gateway/internal/storage/memory"
	"github.com/hashbridge/ledger-gateway/internal/storage/postgres"
	"github.com/hashbridge/ledger-gateway/internal/system"
	"github.com/hashbridge/ledger-gateway/pkg/logger"
)

// Application ties the gateway's components together.
type Application struct {
	manager *system.Manager
	log     *logger.Logger

	Store    storage.Backend
	Ledger   ledger.Submitter
	Accounts *accounts.Service
	Tokens   *tokens.Service
	Prices   *prices.Service
	Handler  http.Handler
}

// New resolves the configuration into concrete components. The storage
// backend and ledger client choices are made exactly once here; a durable
// store that cannot be reached at startup is a fatal configuration fault,
// never silently demoted to memory.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Application, error) {
	if log == nil {
		log = logger.NewDefault("app")
	}

	var store storage.Backend
	if cfg.DatabaseURL != "" {
		pg, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect durable store: %w", err)
		}
		store = pg
		log.Info("using postgres storage backend")
	} else {
		store = memory.New()
		log.Warn("DATABASE_URL not set; using in-memory storage (nothing survives a restart)")
	}

	var submitter ledger.Submitter
	if cfg.Ledger.RPCURL != "" {
		client, err := ledger.NewClient(ledger.Config{
			RPCURL: cfg.Ledger.RPCURL,
			Operator: ledger.Operator{
				AccountID:  cfg.Ledger.OperatorID,
				PrivateKey: cfg.Ledger.OperatorKey,
			},
			Timeout: cfg.Ledger.Timeout,
		}, log)
		if err != nil {
			return nil, fmt.Errorf("configure ledger client: %w", err)
		}
		submitter = client
	} else {
		submitter = ledger.Disabled()
		log.Warn("LEDGER_RPC_URL not set; token operations disabled")
	}

	issuer := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL)

	var fetcher prices.Fetcher
	if cfg.Oracle.URL != "" {
		httpFetcher, err := prices.NewHTTPFetcher(
			&http.Client{Timeout: 10 * time.Second}, cfg.Oracle.URL, cfg.Oracle.APIKey)
		if err != nil {
			return nil, fmt.Errorf("configure price fetcher: %w", err)
		}
		fetcher = httpFetcher
	} else {
		log.Warn("ORACLE_URL not set; price refresh disabled")
	}

	accountsSvc := accounts.New(store, issuer, log)
	tokensSvc := tokens.New(submitter, store, log)
	pricesSvc := prices.New(store, fetcher, cfg.Oracle.TrackedAssets, log)

	manager := system.NewManager()
	refresher := prices.NewRefresher(pricesSvc, cfg.Oracle.RefreshInterval, log)
	if err := manager.Register(refresher); err != nil {
		return nil, fmt.Errorf("register %s: %w", refresher.Name(), err)
	}

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	var limiter *middleware.RateLimiter
	if cfg.RateLimitRPS > 0 {
		limiter = middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, log)
	}

	handler := httpapi.NewRouter(httpapi.Deps{
		Accounts: accountsSvc,
		Tokens:   tokensSvc,
		Prices:   pricesSvc,
		Ledger:   submitter,
		Store:    store,
		Issuer:   issuer,
		Metrics:  m,
		Registry: registry,
		Limiter:  limiter,
		Log:      log,
	})

	return &Application{
		manager:  manager,
		log:      log,
		Store:    store,
		Ledger:   submitter,
		Accounts: accountsSvc,
		Tokens:   tokensSvc,
		Prices:   pricesSvc,
		Handler:  handler,
	}, nil
}

// Start begins all background services.
func (a *Application) Start(ctx context.Context) error {
	return a.manager.Start(ctx)
}

// Stop stops background services and releases storage resources.
func (a *Application) Stop(ctx context.Context) error {
	err := a.manager.Stop(ctx)
	if closer, ok := a.Store.(interface{ Close() error }); ok {
		if cerr := closer.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
