package monitor

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/kestrelsec/kestrel/pkg/httputil"
)

// Handlers provides the operator HTTP API over a Monitor
type Handlers struct {
	monitor *Monitor
}

// NewHandlers creates security API handlers
func NewHandlers(monitor *Monitor) *Handlers {
	return &Handlers{
		monitor: monitor,
	}
}

// RegisterRoutes registers the security API routes
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/security/events", h.listEvents).Methods("GET")
	router.HandleFunc("/security/events/{id}", h.getEvent).Methods("GET")
	router.HandleFunc("/security/export", h.exportEvents).Methods("GET")
	router.HandleFunc("/security/stats", h.getStats).Methods("GET")
	router.HandleFunc("/security/alerts", h.listAlerts).Methods("GET")
	router.HandleFunc("/security/alerts/{id}/resolve", h.resolveAlert).Methods("POST")
}

// listEvents handles GET /security/events
func (h *Handlers) listEvents(w http.ResponseWriter, r *http.Request) {
	filter := parseEventFilter(r)

	events, err := h.monitor.GetEvents(r.Context(), filter)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"events": events,
		"count":  len(events),
		"limit":  filter.Limit,
	})
}

// getEvent handles GET /security/events/{id}
func (h *Handlers) getEvent(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	event, err := h.monitor.GetEvent(r.Context(), vars["id"])
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	if event == nil {
		httputil.WriteNotFoundError(w, "event not found")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(event)
}

// exportEvents handles GET /security/export
func (h *Handlers) exportEvents(w http.ResponseWriter, r *http.Request) {
	filter := parseEventFilter(r)

	format := ExportFormat(r.URL.Query().Get("format"))
	if format == "" {
		format = ExportFormatJSON
	}

	data, err := h.monitor.Export(r.Context(), filter, format)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	switch format {
	case ExportFormatCSV:
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", "attachment; filename=security-events.csv")
	case ExportFormatNDJSON:
		w.Header().Set("Content-Type", "application/x-ndjson")
		w.Header().Set("Content-Disposition", "attachment; filename=security-events.ndjson")
	default:
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", "attachment; filename=security-events.json")
	}

	w.Write(data)
}

// getStats handles GET /security/stats
func (h *Handlers) getStats(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	tr := TimeRange{End: time.Now().UTC()}
	tr.Start = tr.End.Add(-24 * time.Hour)

	if startStr := query.Get("start_time"); startStr != "" {
		if t, err := time.Parse(time.RFC3339, startStr); err == nil {
			tr.Start = t
		}
	}
	if endStr := query.Get("end_time"); endStr != "" {
		if t, err := time.Parse(time.RFC3339, endStr); err == nil {
			tr.End = t
		}
	}

	stats, err := h.monitor.GetSecurityStats(r.Context(), tr)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

// listAlerts handles GET /security/alerts
func (h *Handlers) listAlerts(w http.ResponseWriter, r *http.Request) {
	var resolved *bool
	if resolvedStr := r.URL.Query().Get("resolved"); resolvedStr != "" {
		val, err := strconv.ParseBool(resolvedStr)
		if err != nil {
			httputil.WriteBadRequest(w, "invalid resolved filter")
			return
		}
		resolved = &val
	}

	alerts := h.monitor.GetAlerts(resolved)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"alerts": alerts,
		"count":  len(alerts),
	})
}

// resolveAlert handles POST /security/alerts/{id}/resolve
func (h *Handlers) resolveAlert(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var body struct {
		ResolvedBy string `json:"resolved_by"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httputil.WriteBadRequest(w, "invalid request body")
		return
	}
	if body.ResolvedBy == "" {
		httputil.WriteBadRequest(w, "resolved_by is required")
		return
	}

	if !h.monitor.ResolveAlert(vars["id"], body.ResolvedBy) {
		httputil.WriteConflict(w, "alert not found or already resolved")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"resolved": true,
	})
}

// parseEventFilter parses an event filter from query parameters
func parseEventFilter(r *http.Request) EventFilter {
	query := r.URL.Query()
	filter := EventFilter{}

	if startStr := query.Get("start_time"); startStr != "" {
		if t, err := time.Parse(time.RFC3339, startStr); err == nil {
			filter.Since = &t
		}
	}
	if endStr := query.Get("end_time"); endStr != "" {
		if t, err := time.Parse(time.RFC3339, endStr); err == nil {
			filter.Until = &t
		}
	}

	if typesStr := query.Get("types"); typesStr != "" {
		for _, t := range strings.Split(typesStr, ",") {
			if t = strings.TrimSpace(t); t != "" {
				filter.Types = append(filter.Types, EventType(t))
			}
		}
	}

	filter.UserID = query.Get("user_id")
	filter.RiskLevel = RiskLevel(query.Get("risk_level"))
	filter.IP = query.Get("ip")

	if successStr := query.Get("success"); successStr != "" {
		if success, err := strconv.ParseBool(successStr); err == nil {
			filter.Success = &success
		}
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	} else {
		filter.Limit = 100
	}

	return filter
}
