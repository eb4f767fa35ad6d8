// server is the resort insights MCP server binary. It exposes the
// analytics tool catalog over stdio for MCP clients, or over HTTP with
// JSON-RPC, SSE, and a REST API.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"resort-insights-mcp/internal/api"
	"resort-insights-mcp/internal/config"
	"resort-insights-mcp/internal/mcp"

	"github.com/fredcamaral/gomcp-sdk/protocol"
	"github.com/fredcamaral/gomcp-sdk/server"
	"github.com/fredcamaral/gomcp-sdk/transport"
)

const methodOptions = "OPTIONS"

func main() {
	var (
		mode = flag.String("mode", "stdio", "Server mode: stdio or http")
		addr = flag.String("addr", ":9080", "HTTP server address (when mode=http)")
	)
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	insightServer, err := mcp.NewInsightServer(cfg)
	if err != nil {
		log.Fatalf("Failed to create insight server: %v", err)
	}

	mcpServer := insightServer.GetMCPServer()

	// Set up graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	switch *mode {
	case "stdio":
		log.Printf("Starting resort insights server in stdio mode")
		stdioTransport := transport.NewStdioTransport()
		mcpServer.SetTransport(stdioTransport)

		if err := mcpServer.Start(ctx); err != nil {
			if !errors.Is(err, context.Canceled) {
				cancel()
				log.Printf("MCP server failed: %v", err)
				return
			}
		}

	case "http":
		log.Printf("Starting resort insights server in HTTP mode on %s", *addr)
		if err := startHTTPServer(ctx, cfg, insightServer, *addr); err != nil {
			if !errors.Is(err, context.Canceled) {
				cancel()
				log.Printf("HTTP server failed: %v", err)
				return
			}
		}

	default:
		cancel()
		log.Printf("Invalid mode: %s. Use 'stdio' or 'http'", *mode)
		return
	}
}

func startHTTPServer(ctx context.Context, cfg *config.Config, insightServer *mcp.InsightServer, addr string) error {
	mux := setupHTTPRoutes(cfg, insightServer)
	return startAndRunHTTPServer(ctx, mux, addr)
}

// setupHTTPRoutes configures the MCP and SSE endpoints, with the REST
// router handling everything else (including /health and /api).
func setupHTTPRoutes(cfg *config.Config, insightServer *mcp.InsightServer) *http.ServeMux {
	mux := http.NewServeMux()

	mcpServer := insightServer.GetMCPServer()
	setupMCPHandler(mux, mcpServer)
	setupSSEHandler(mux, mcpServer, insightServer)

	restRouter := api.NewRouter(cfg, insightServer, insightServer.Logger())
	mux.Handle("/", restRouter.Handler())

	return mux
}

// setupMCPHandler configures the MCP-over-HTTP endpoint
func setupMCPHandler(mux *http.ServeMux, mcpServer *server.Server) {
	mux.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, "+methodOptions)
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Content-Type", "application/json")

		if r.Method == methodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req protocol.JSONRPCRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid JSON", http.StatusBadRequest)
			return
		}

		resp := mcpServer.HandleRequest(r.Context(), &req)

		if err := json.NewEncoder(w).Encode(resp); err != nil {
			log.Printf("Error encoding response: %v", err)
		}
	})
}

// setupSSEHandler configures the Server-Sent Events endpoint
func setupSSEHandler(mux *http.ServeMux, mcpServer *server.Server, insightServer *mcp.InsightServer) {
	mux.HandleFunc("/sse", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == methodOptions {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, "+methodOptions)
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Cache-Control")
			w.WriteHeader(http.StatusOK)
			return
		}

		if r.Method == http.MethodPost {
			handleSSEPost(w, r, mcpServer)
			return
		}

		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		handleSSEStream(w, r, insightServer)
	})
}

// handleSSEPost handles JSON-RPC requests posted to the SSE endpoint
func handleSSEPost(w http.ResponseWriter, r *http.Request, mcpServer *server.Server) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Content-Type", "application/json")

	var req protocol.JSONRPCRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON-RPC request", http.StatusBadRequest)
		return
	}

	resp := mcpServer.HandleRequest(r.Context(), &req)

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Printf("Error encoding SSE response: %v", err)
	}
}

// handleSSEStream holds the SSE connection open with periodic heartbeats
func handleSSEStream(w http.ResponseWriter, r *http.Request, insightServer *mcp.InsightServer) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Headers", "Cache-Control")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	sessionID := insightServer.Sessions().Open()
	defer insightServer.Sessions().Close(sessionID)

	_, _ = fmt.Fprintf(w, "data: {\"type\":\"connected\",\"server\":\"resort-insights\",\"protocols\":[\"json-rpc\",\"sse\"]}\n\n")
	flusher.Flush()

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_, _ = fmt.Fprintf(w, "data: {\"type\":\"heartbeat\",\"timestamp\":\"%s\"}\n\n", time.Now().UTC().Format(time.RFC3339))
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

// startAndRunHTTPServer creates and runs the HTTP server
func startAndRunHTTPServer(ctx context.Context, mux *http.ServeMux, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.Printf("Resort insights server listening on http://localhost%s", addr)
		log.Printf("MCP endpoint: http://localhost%s/mcp", addr)
		log.Printf("SSE endpoint: http://localhost%s/sse", addr)
		log.Printf("REST API: http://localhost%s/api", addr)
		log.Printf("Health check: http://localhost%s/health", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("HTTP server error: %v", err)
		}
	}()

	<-ctx.Done()

	log.Printf("Shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return httpServer.Shutdown(shutdownCtx)
}
