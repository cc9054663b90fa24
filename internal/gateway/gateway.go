// ABOUTME: Gateway orchestrator wiring catalog, agents, and servers together
// ABOUTME: Manages the HTTP/websocket server and session store lifecycle

package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/2389/pharma-gateway/internal/agent"
	"github.com/2389/pharma-gateway/internal/config"
	"github.com/2389/pharma-gateway/internal/llm"
	"github.com/2389/pharma-gateway/internal/pharmacy"
	"github.com/2389/pharma-gateway/internal/ws"
)

// Version is the gateway release version reported by /health.
const Version = "0.1.0"

// Gateway assembles the pharmacy call-assistant server: the catalog, the
// session memory store, the agent router, the websocket registry, and the
// HTTP server that fronts them.
type Gateway struct {
	config     *config.Config
	catalog    pharmacy.Catalog
	service    *pharmacy.Service
	memory     *agent.MemoryStore
	registry   *ws.Registry
	httpServer *http.Server
	logger     *slog.Logger

	// sqlite is non-nil when the catalog is locally backed; completed
	// registrations are persisted to it.
	sqlite *pharmacy.SQLiteCatalog
}

// initCatalog creates a catalog from config: a local SQLite database when
// a path is configured, otherwise the remote pharmacy directory API.
func initCatalog(cfg *config.Config, logger *slog.Logger) (pharmacy.Catalog, *pharmacy.SQLiteCatalog, error) {
	dbPath := cfg.Catalog.DatabasePath
	if envPath := os.Getenv("PHARMA_DB_PATH"); envPath != "" {
		dbPath = envPath
	}

	if dbPath != "" {
		sqlite, err := pharmacy.NewSQLiteCatalog(dbPath)
		if err != nil {
			return nil, nil, fmt.Errorf("initializing catalog database: %w", err)
		}
		return sqlite, sqlite, nil
	}

	client := pharmacy.NewAPIClient(pharmacy.APIClientParams{
		BaseURL:    cfg.Catalog.BaseURL,
		Timeout:    cfg.Catalog.Timeout,
		RetryCount: cfg.Catalog.RetryCount,
		RetryDelay: cfg.Catalog.RetryDelay,
		Logger:     logger,
	})
	return client, nil, nil
}

// New creates a Gateway from configuration. The returned gateway owns its
// components; Run starts it and Shutdown releases them.
func New(cfg *config.Config, logger *slog.Logger) (*Gateway, error) {
	catalog, sqlite, err := initCatalog(cfg, logger)
	if err != nil {
		return nil, err
	}

	service := pharmacy.NewService(catalog, logger)
	memory := agent.NewMemoryStore(cfg.Sessions.Timeout, cfg.Sessions.SweepInterval, logger)

	model := llm.NewClient(llm.ClientParams{
		APIBase:     cfg.Agent.APIBase,
		APIKey:      os.Getenv(cfg.Agent.APIKeyEnv),
		Model:       cfg.Agent.Model,
		Temperature: cfg.Agent.Temperature,
		MaxTokens:   cfg.Agent.MaxTokens,
	})

	router := agent.NewRouter(agent.RouterParams{
		Lookup:    service,
		Memory:    memory,
		Extractor: model,
		Generator: model,
		Logger:    logger,
	})

	registry := ws.NewRegistry(logger)

	var records ws.RecordStore
	if sqlite != nil {
		records = sqlite
	}
	wsHandler := ws.NewHandler(ws.HandlerParams{
		Router:   router,
		Memory:   memory,
		Registry: registry,
		Records:  records,
		Logger:   logger,
	})

	gw := &Gateway{
		config:   cfg,
		catalog:  catalog,
		service:  service,
		memory:   memory,
		registry: registry,
		logger:   logger.With("component", "gateway"),
		sqlite:   sqlite,
	}

	mux := http.NewServeMux()
	mux.Handle("/ws/pharmacy-agent", wsHandler)
	mux.HandleFunc("/health", gw.handleHealth)
	mux.HandleFunc("/pharmacies", gw.handleListPharmacies)
	mux.HandleFunc("/pharmacies/search", gw.handleSearchPharmacy)

	gw.httpServer = &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return gw, nil
}

// Run starts the server and blocks until the context is canceled or the
// server fails. Returns nil on graceful shutdown.
func (g *Gateway) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", g.config.Server.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listening on HTTP address: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		g.logger.Info("HTTP server listening", "addr", ln.Addr().String())
		if err := g.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	var serverErr error
	select {
	case <-ctx.Done():
		g.logger.Info("context canceled, initiating shutdown")
	case serverErr = <-errCh:
		g.logger.Error("server error", "error", serverErr)
	}

	shutdownErr := g.gracefulShutdown()
	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

// gracefulShutdown performs shutdown with a fresh context and timeout.
// Uses context.Background() intentionally since the original context is
// already canceled.
func (g *Gateway) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return g.Shutdown(ctx)
}

// Shutdown stops the HTTP server, closes live connections, and releases
// the session store and catalog.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.logger.Info("shutting down gateway")

	var errs []error
	if err := g.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("HTTP shutdown: %w", err))
	}

	g.registry.CloseAll()
	g.memory.Close()

	if g.sqlite != nil {
		if err := g.sqlite.Close(); err != nil {
			errs = append(errs, fmt.Errorf("catalog close: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}
	return nil
}
