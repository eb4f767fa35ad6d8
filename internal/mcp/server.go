// Package mcp exposes the resort analytics tools over the Model
// Context Protocol: tool schemas, typed argument decoding, and the
// handlers that call into the insight engines.
package mcp

import (
	"context"
	"sync"
	"time"

	mcp "github.com/fredcamaral/gomcp-sdk"
	"github.com/fredcamaral/gomcp-sdk/protocol"
	"github.com/fredcamaral/gomcp-sdk/server"
	"github.com/go-viper/mapstructure/v2"
	"github.com/google/uuid"

	"resort-insights-mcp/internal/apperrors"
	"resort-insights-mcp/internal/config"
	"resort-insights-mcp/internal/eventsearch"
	"resort-insights-mcp/internal/insights"
	"resort-insights-mcp/internal/logging"
	"resort-insights-mcp/internal/supabase"
)

const (
	serverName    = "resort-insights"
	serverVersion = "1.0.0"
)

// InsightServer wires the insight engines and the event search client
// into an MCP tool server.
type InsightServer struct {
	cfg       *config.Config
	logger    logging.Logger
	mcpServer *server.Server
	engine    *insights.Engine
	events    *eventsearch.Client
	sessions  *SessionRegistry
	handlers  map[string]toolHandler
}

type toolHandler func(context.Context, map[string]interface{}) (interface{}, error)

// NewInsightServer builds the server from configuration, connecting to
// the row store and the event search API.
func NewInsightServer(cfg *config.Config) (*InsightServer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := logging.Default().WithComponent("mcp")
	store := supabase.NewClient(cfg.Supabase, logger.WithComponent("supabase"))
	engine := insights.NewEngine(store, logger.WithComponent("insights"))
	events := eventsearch.NewClient(cfg.EventSearch, logger.WithComponent("eventsearch"))
	return newInsightServer(cfg, engine, events, logger), nil
}

// NewInsightServerForTesting wires the server around a caller-provided
// engine and event client so tests can inject fake stores.
func NewInsightServerForTesting(cfg *config.Config, engine *insights.Engine, events *eventsearch.Client, logger logging.Logger) *InsightServer {
	return newInsightServer(cfg, engine, events, logger)
}

func newInsightServer(cfg *config.Config, engine *insights.Engine, events *eventsearch.Client, logger logging.Logger) *InsightServer {
	is := &InsightServer{
		cfg:      cfg,
		logger:   logger,
		engine:   engine,
		events:   events,
		sessions: newSessionRegistry(),
		handlers: make(map[string]toolHandler),
	}
	is.mcpServer = mcp.NewServer(serverName, serverVersion)
	is.registerTools()
	logger.Info("tool server initialized", "tools", len(is.ToolNames()))
	return is
}

// GetMCPServer exposes the underlying MCP server for transport wiring.
func (is *InsightServer) GetMCPServer() *server.Server { return is.mcpServer }

// Engine exposes the insight engines for the REST surface.
func (is *InsightServer) Engine() *insights.Engine { return is.engine }

// EventSearch exposes the event search client for the REST surface.
func (is *InsightServer) EventSearch() *eventsearch.Client { return is.events }

// Sessions exposes the live session registry.
func (is *InsightServer) Sessions() *SessionRegistry { return is.sessions }

// Logger exposes the server logger for transport wiring.
func (is *InsightServer) Logger() logging.Logger { return is.logger }

// decodeArgs maps raw tool arguments onto a typed struct. Numeric JSON
// values arrive as float64 and are converted where the target is an int.
func decodeArgs(args map[string]interface{}, target interface{}) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(args); err != nil {
		return apperrors.NewValidation("invalid arguments: %v", err)
	}
	return nil
}

// SessionRegistry tracks live SSE connections so shutdown can report
// how many clients were dropped.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]time.Time
}

func newSessionRegistry() *SessionRegistry {
	return &SessionRegistry{sessions: make(map[string]time.Time)}
}

// Open registers a new session and returns its id.
func (r *SessionRegistry) Open() string {
	id := uuid.New().String()
	r.mu.Lock()
	r.sessions[id] = time.Now().UTC()
	r.mu.Unlock()
	return id
}

// Close drops a session.
func (r *SessionRegistry) Close(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}

// Count reports the number of live sessions.
func (r *SessionRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// logToolCall wraps a handler with entry/exit logging and records it so
// the REST surface can dispatch to the same handler by tool name.
func (is *InsightServer) logToolCall(name string, h toolHandler) protocol.ToolHandler {
	wrapped := func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
		is.logger.Debug("tool called", "tool", name)
		out, err := h(ctx, args)
		if err != nil {
			is.logger.Warn("tool failed", "tool", name, "error", err.Error())
			return nil, err
		}
		return out, nil
	}
	is.handlers[name] = wrapped
	return mcp.ToolHandlerFunc(wrapped)
}

// CallTool dispatches a tool invocation by name outside the MCP
// transport. Unknown names yield a ValidationError.
func (is *InsightServer) CallTool(ctx context.Context, name string, args map[string]interface{}) (interface{}, error) {
	h, ok := is.handlers[name]
	if !ok {
		return nil, apperrors.NewValidation("unknown tool %q", name)
	}
	if args == nil {
		args = map[string]interface{}{}
	}
	return h(ctx, args)
}
