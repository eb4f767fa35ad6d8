// Package api provides the REST surface over the insight tools: table
// fetches, raw analysis, and named insight invocations, all sharing the
// MCP tool handlers.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"resort-insights-mcp/internal/config"
	"resort-insights-mcp/internal/logging"
	"resort-insights-mcp/internal/mcp"
)

// Router is the REST front over the insight server.
type Router struct {
	cfg     *config.Config
	mux     *chi.Mux
	insight *mcp.InsightServer
	logger  logging.Logger
}

// NewRouter builds the REST router with middleware and routes.
func NewRouter(cfg *config.Config, insight *mcp.InsightServer, logger logging.Logger) *Router {
	r := &Router{
		cfg:     cfg,
		mux:     chi.NewRouter(),
		insight: insight,
		logger:  logger.WithComponent("api"),
	}
	r.setupMiddleware()
	r.setupRoutes()
	return r
}

// Handler returns the HTTP handler.
func (r *Router) Handler() http.Handler {
	return r.mux
}

func (r *Router) setupMiddleware() {
	r.mux.Use(chimiddleware.Recoverer)
	r.mux.Use(chimiddleware.Timeout(60 * time.Second))
	r.mux.Use(chimiddleware.RequestSize(1 * 1024 * 1024))
	r.mux.Use(chimiddleware.Heartbeat("/ping"))
	r.mux.Use(corsMiddleware)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if req.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, req)
	})
}

func (r *Router) setupRoutes() {
	r.mux.Get("/health", r.handleHealth)

	r.mux.Route("/api", func(rtr chi.Router) {
		rtr.Get("/tools", r.handleTools)

		rtr.Get("/members", r.tableHandler("get_members"))
		rtr.Get("/resorts", r.tableHandler("get_resorts"))
		rtr.Get("/feedback", r.tableHandler("get_feedback"))
		rtr.Get("/member-aggregates", r.tableHandler("get_member_aggregated"))
		rtr.Get("/resort-aggregates", r.tableHandler("get_resort_aggregated"))
		rtr.Get("/events", r.handleEventRows)
		rtr.Get("/event-search", r.handleEventSearch)

		rtr.Post("/analyze", r.toolPostHandler("analyze_data"))
		rtr.Post("/query", r.toolPostHandler("query_table"))
		rtr.Post("/insights/{name}", r.handleInsight)
	})

	r.mux.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "endpoint not found")
	})
	r.mux.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
}
