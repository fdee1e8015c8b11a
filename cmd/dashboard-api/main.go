package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/svennapp/svennProductsFE/internal/api"
	"github.com/svennapp/svennProductsFE/internal/config"
	"github.com/svennapp/svennProductsFE/internal/db"
	"github.com/svennapp/svennProductsFE/internal/events"
	"github.com/svennapp/svennProductsFE/internal/gateway"
	"github.com/svennapp/svennProductsFE/internal/logging"
	"github.com/svennapp/svennProductsFE/internal/mcpserver"
	"github.com/svennapp/svennProductsFE/internal/metrics"
	"github.com/svennapp/svennProductsFE/internal/prefs"
	"github.com/svennapp/svennProductsFE/internal/tracker"
	"github.com/svennapp/svennProductsFE/internal/workspace"
)

func main() {
	migrateFlag := flag.Bool("migrate", false, "Run database migrations before starting")
	migrateDirFlag := flag.String("migrate-dir", "", "Migration files directory (default: built-in)")
	mcpConfigFlag := flag.String("mcp-config", os.Getenv("MCP_CONFIG"), "Path to the MCP tool configuration (yaml)")
	noMCPFlag := flag.Bool("no-mcp", false, "Do not serve the /mcp endpoint")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate("dashboard-api"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tlsConfig, err := cfg.ScraperTLS()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure scraper TLS")
	}
	gw := gateway.NewClient(cfg.ScraperAPIURL)
	if tlsConfig != nil {
		gw = gw.WithHTTPClient(&http.Client{Transport: &http.Transport{TLSClientConfig: tlsConfig}})
		logger.Info().Msg("scraper mTLS enabled")
	}

	var (
		pool  *pgxpool.Pool
		store prefs.Store = prefs.NewMemoryStore()
	)
	if dbURL := cfg.DatabaseURL(); dbURL != "" {
		if *migrateFlag {
			logger.Info().Str("dir", *migrateDirFlag).Msg("running database migrations")
			if err := db.RunMigrations(dbURL, *migrateDirFlag); err != nil {
				logger.Fatal().Err(err).Msg("migration failed")
			}
		}

		pool, err = db.NewPool(ctx, dbURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to prefs database")
		}
		defer pool.Close()

		if err := metrics.RegisterPrefsPoolMetrics(prometheus.DefaultRegisterer, pool); err != nil {
			logger.Warn().Err(err).Msg("failed to register pool metrics")
		}
		store = prefs.NewPostgresStore(pool)
	} else {
		logger.Warn().Msg("no database configured, operator preferences are kept in memory")
	}

	manager := workspace.NewManager(gw, store, events.NewHub(0), logger, workspace.Config{
		IdleTTL: cfg.SessionIdleTTL,
		Tracker: tracker.Config{
			PollInterval:    cfg.PollInterval,
			MaxPollDuration: cfg.PollMaxDuration,
			MaxPollFailures: cfg.PollMaxFailures,
		},
	})
	defer manager.Close()
	go manager.Run(ctx)

	var mcp *mcpserver.Server
	if !*noMCPFlag {
		mcpCfg, err := mcpserver.LoadConfig(*mcpConfigFlag)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to load MCP config")
		}
		mcp = mcpserver.New(mcpCfg, manager, gw, logger)
	}

	srv := api.NewServer(logger, gw, manager, pool, mcp, cfg)

	// No write timeout: event streams and waited runs are long-lived.
	httpServer := &http.Server{
		Addr:              cfg.HTTPListenAddr,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.HTTPListenAddr).Str("scraper_api", cfg.ScraperAPIURL).Msg("starting dashboard API server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown error")
	}
}
