package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"resort-insights-mcp/internal/apperrors"
	"resort-insights-mcp/internal/supabase"
)

type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func writeSuccess(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(envelope{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: false, Error: msg})
}

// writeToolError maps engine errors onto HTTP statuses: validation 400,
// upstream 502, everything else 500 without internal detail.
func (r *Router) writeToolError(w http.ResponseWriter, err error) {
	switch {
	case apperrors.IsValidation(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case apperrors.IsUpstream(err):
		var ue *apperrors.UpstreamError
		if errors.As(err, &ue) {
			r.logger.Error("upstream failure", "status", ue.Status, "message", ue.Message)
		}
		writeError(w, http.StatusBadGateway, "upstream data source error")
	default:
		r.logger.Error("request failed", "error", err.Error())
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (r *Router) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeSuccess(w, map[string]interface{}{
		"status":   "healthy",
		"server":   "resort-insights",
		"sessions": r.insight.Sessions().Count(),
	})
}

func (r *Router) handleTools(w http.ResponseWriter, _ *http.Request) {
	writeSuccess(w, map[string]interface{}{
		"tools": r.insight.ToolNames(),
	})
}

// tableHandler serves the get_* tools from query string parameters.
func (r *Router) tableHandler(tool string) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		args := map[string]interface{}{}
		q := req.URL.Query()
		if v := q.Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "'limit' must be an integer")
				return
			}
			args["limit"] = n
		}
		if v := q.Get("order"); v != "" {
			args["order"] = v
		}
		if v := q.Get("select"); v != "" {
			args["select"] = v
		}
		out, err := r.insight.CallTool(req.Context(), tool, args)
		if err != nil {
			r.writeToolError(w, err)
			return
		}
		writeSuccess(w, out)
	}
}

// handleEventRows serves the recorded event table. A q parameter
// switches to free-text search across event type and region.
func (r *Router) handleEventRows(w http.ResponseWriter, req *http.Request) {
	q := req.URL.Query()

	if text := q.Get("q"); text != "" {
		rows, err := r.insight.Engine().SearchEvents(req.Context(), text, q.Get("start_date"), q.Get("end_date"))
		if err != nil {
			r.writeToolError(w, err)
			return
		}
		writeSuccess(w, map[string]interface{}{"data": rows, "count": len(rows)})
		return
	}

	opts := supabase.Options{Order: q.Get("order"), Select: q.Get("select")}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "'limit' must be an integer")
			return
		}
		opts.Limit = n
	}
	rows, err := r.insight.Engine().FetchTable(req.Context(), supabase.TableEvents, nil, opts)
	if err != nil {
		r.writeToolError(w, err)
		return
	}
	writeSuccess(w, map[string]interface{}{"data": rows, "count": len(rows)})
}

func (r *Router) handleEventSearch(w http.ResponseWriter, req *http.Request) {
	q := req.URL.Query()
	args := map[string]interface{}{
		"query": q.Get("query"),
	}
	if v := q.Get("start_date"); v != "" {
		args["start_date"] = v
	}
	if v := q.Get("end_date"); v != "" {
		args["end_date"] = v
	}
	if v := q.Get("count"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "'count' must be an integer")
			return
		}
		args["count"] = n
	}
	if v := q.Get("country"); v != "" {
		args["country"] = v
	}
	out, err := r.insight.CallTool(req.Context(), "get_events", args)
	if err != nil {
		r.writeToolError(w, err)
		return
	}
	writeSuccess(w, out)
}

// toolPostHandler serves POST endpoints whose JSON body is the tool's
// argument object.
func (r *Router) toolPostHandler(tool string) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		args, ok := decodeBody(w, req)
		if !ok {
			return
		}
		out, err := r.insight.CallTool(req.Context(), tool, args)
		if err != nil {
			r.writeToolError(w, err)
			return
		}
		writeSuccess(w, out)
	}
}

// handleInsight dispatches POST /api/insights/{name}. The path segment
// may omit the insights_ prefix.
func (r *Router) handleInsight(w http.ResponseWriter, req *http.Request) {
	name := chi.URLParam(req, "name")
	if !strings.HasPrefix(name, "insights_") {
		name = "insights_" + name
	}
	args, ok := decodeBody(w, req)
	if !ok {
		return
	}
	out, err := r.insight.CallTool(req.Context(), name, args)
	if err != nil {
		r.writeToolError(w, err)
		return
	}
	writeSuccess(w, out)
}

func decodeBody(w http.ResponseWriter, req *http.Request) (map[string]interface{}, bool) {
	args := map[string]interface{}{}
	if req.Body == nil || req.ContentLength == 0 {
		return args, true
	}
	if err := json.NewDecoder(req.Body).Decode(&args); err != nil {
		writeError(w, http.StatusBadRequest, "request body must be a JSON object")
		return nil, false
	}
	return args, true
}
