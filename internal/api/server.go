package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/svennapp/svennProductsFE/internal/api/handler"
	mw "github.com/svennapp/svennProductsFE/internal/api/middleware"
	"github.com/svennapp/svennProductsFE/internal/config"
	"github.com/svennapp/svennProductsFE/internal/gateway"
	"github.com/svennapp/svennProductsFE/internal/mcpserver"
	"github.com/svennapp/svennProductsFE/internal/session"
	"github.com/svennapp/svennProductsFE/internal/workspace"
)

type Server struct {
	router  chi.Router
	logger  zerolog.Logger
	manager *workspace.Manager
	gateway *gateway.Client
	pool    *pgxpool.Pool
	mcp     *mcpserver.Server
	cfg     *config.Config
}

// NewServer wires the operator API. pool may be nil when prefs are kept in
// memory; mcp may be nil to leave /mcp unmounted.
func NewServer(logger zerolog.Logger, gw *gateway.Client, manager *workspace.Manager, pool *pgxpool.Pool, mcp *mcpserver.Server, cfg *config.Config) *Server {
	s := &Server{
		router:  chi.NewRouter(),
		logger:  logger,
		manager: manager,
		gateway: gw,
		pool:    pool,
		mcp:     mcp,
		cfg:     cfg,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(mw.RequestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(mw.Metrics)
	s.router.Use(mw.CORS(s.cfg.CORSOrigins))
}

func (s *Server) tokenValidator() mw.TokenValidator {
	if s.cfg.JWTSecret == "" {
		return nil
	}
	return session.NewValidator(s.cfg.JWTSecret)
}

func (s *Server) setupRoutes() {
	// Prometheus metrics endpoint
	s.router.Handle("/metrics", promhttp.Handler())

	// Health check endpoints
	s.router.Get("/healthz", s.handleHealthz)
	s.router.Get("/readyz", s.handleReadyz)

	auth := mw.Auth(s.tokenValidator(), s.cfg.DevMode)

	authInfo := handler.NewAuth(handler.AuthInfo{
		OAuthEnabled: s.cfg.OAuthEnabled(),
		ClientID:     s.cfg.OAuthClientID,
		DevMode:      s.cfg.DevMode,
	})

	s.router.Route("/api/v1", func(r chi.Router) {
		// Public
		r.Get("/auth/provider", authInfo.Provider)

		r.Group(func(r chi.Router) {
			r.Use(auth)

			r.Get("/auth/me", authInfo.Me)

			// Dashboard
			dashboard := handler.NewDashboard(s.manager)
			r.Get("/overview", dashboard.Overview)

			// Warehouses
			warehouse := handler.NewWarehouse(s.manager)
			r.Get("/warehouses", warehouse.List)
			r.Get("/warehouse", warehouse.Selected)
			r.Put("/warehouse", warehouse.Select)

			// Scripts
			script := handler.NewScript(s.manager)
			r.Get("/scripts", script.List)
			r.Post("/scripts/refresh", script.Refresh)
			r.Get("/scripts/{id}", script.Get)
			r.Post("/scripts/{id}/run", script.Run)
			r.Post("/scripts/{id}/cancel", script.Cancel)
			r.Get("/scripts/{id}/state", script.State)
			r.Get("/scripts/{id}/logs", script.Logs)
			r.Get("/scripts/{id}/executions", script.Executions)
			r.Put("/scripts/{id}/schedule", script.Schedule)

			// Jobs
			job := handler.NewJob(s.manager)
			r.Get("/jobs", job.List)
			r.Post("/jobs/refresh", job.Refresh)
			r.Post("/jobs/{jobID}/toggle", job.Toggle)

			// Schedules
			sched := handler.NewSchedule()
			r.Get("/schedule/presets", sched.Presets)
			r.Post("/schedule/validate", sched.Validate)

			// Products
			product := handler.NewProduct(s.gateway)
			r.Get("/products/search", product.Search)
			r.Get("/products/info", product.Info)
			r.Get("/products/stats", product.Stats)
			r.Get("/products/latest", product.Latest)

			// Live events
			ev := handler.NewEvents(s.manager, s.gateway, s.cfg.SearchDebounce, s.cfg.CORSOrigins)
			r.Get("/events", ev.Connect)
		})
	})

	if s.mcp != nil {
		s.router.Route("/mcp", func(r chi.Router) {
			r.Use(auth)
			r.Mount("/", s.mcp)
		})
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	checks := map[string]string{}
	healthy := true

	if s.pool != nil {
		if err := s.pool.Ping(ctx); err != nil {
			checks["prefs_db"] = err.Error()
			healthy = false
		} else {
			checks["prefs_db"] = "ok"
		}
	}

	if _, err := s.gateway.ListWarehouses(ctx); err != nil {
		checks["scraper_api"] = err.Error()
		healthy = false
	} else {
		checks["scraper_api"] = "ok"
	}

	w.Header().Set("Content-Type", "application/json")
	if healthy {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(checks)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
