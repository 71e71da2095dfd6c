package monitor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAPI(t *testing.T) (*Monitor, *mux.Router) {
	t.Helper()

	mon := NewMonitor(NewMemoryStore(100), WithDetectors())
	router := mux.NewRouter()
	NewHandlers(mon).RegisterRoutes(router)

	return mon, router
}

func TestHandlers_ListEvents(t *testing.T) {
	mon, router := newTestAPI(t)
	ctx := context.Background()

	mon.LogAuthEvent(ctx, EventAuthLogin, "u1", "10.0.0.1", "ua", true, nil)
	mon.LogAuthEvent(ctx, EventAuthLoginFailed, "", "10.0.0.2", "ua", false, nil)

	req := httptest.NewRequest("GET", "/security/events", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Events []SecurityEvent `json:"events"`
		Count  int             `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Count)
	require.Len(t, body.Events, 2)
	assert.Equal(t, EventAuthLoginFailed, body.Events[0].Type, "newest first")
}

func TestHandlers_ListEvents_FilterByIP(t *testing.T) {
	mon, router := newTestAPI(t)
	ctx := context.Background()

	mon.LogAuthEvent(ctx, EventAuthLogin, "u1", "10.0.0.1", "ua", true, nil)
	mon.LogAuthEvent(ctx, EventAuthLogin, "u2", "10.0.0.2", "ua", true, nil)

	req := httptest.NewRequest("GET", "/security/events?ip=10.0.0.2", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Events []SecurityEvent `json:"events"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Len(t, body.Events, 1)
	assert.Equal(t, "u2", body.Events[0].UserID)
}

func TestHandlers_GetEvent(t *testing.T) {
	mon, router := newTestAPI(t)

	event := mon.LogAuthEvent(context.Background(), EventAuthLogin, "u1", "10.0.0.1", "ua", true, nil)

	req := httptest.NewRequest("GET", "/security/events/"+event.ID, nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var got SecurityEvent
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, event.ID, got.ID)
}

func TestHandlers_GetEvent_NotFound(t *testing.T) {
	_, router := newTestAPI(t)

	req := httptest.NewRequest("GET", "/security/events/missing", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "event not found", body["error"])
}

func TestHandlers_Export_CSV(t *testing.T) {
	mon, router := newTestAPI(t)

	mon.LogAuthEvent(context.Background(), EventAuthLogin, "u1", "10.0.0.1", "ua", true, nil)

	req := httptest.NewRequest("GET", "/security/export?format=csv", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/csv", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "security-events.csv")
	assert.Contains(t, rr.Body.String(), "auth.login")
}

func TestHandlers_Export_BadFormat(t *testing.T) {
	_, router := newTestAPI(t)

	req := httptest.NewRequest("GET", "/security/export?format=xml", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.NotEmpty(t, body["error"])
}

func TestHandlers_GetStats(t *testing.T) {
	mon, router := newTestAPI(t)

	mon.LogAuthEvent(context.Background(), EventAuthLoginFailed, "", "10.0.0.1", "ua", false, nil)

	req := httptest.NewRequest("GET", "/security/stats", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var stats SecurityStats
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.TotalEvents)
	assert.Equal(t, 1, stats.EventsByType[EventAuthLoginFailed])
}

func TestHandlers_ListAlerts(t *testing.T) {
	mon, router := newTestAPI(t)

	first := mon.CreateAlert(RiskHigh, "first", "", nil)
	mon.CreateAlert(RiskMedium, "second", "", nil)
	mon.ResolveAlert(first.ID, "oncall")

	req := httptest.NewRequest("GET", "/security/alerts?resolved=false", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Alerts []SecurityAlert `json:"alerts"`
		Count  int             `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Count)
	require.Len(t, body.Alerts, 1)
	assert.Equal(t, "second", body.Alerts[0].Title)
}

func TestHandlers_ResolveAlert(t *testing.T) {
	mon, router := newTestAPI(t)

	alert := mon.CreateAlert(RiskHigh, "open", "", nil)

	req := httptest.NewRequest("POST", "/security/alerts/"+alert.ID+"/resolve",
		strings.NewReader(`{"resolved_by":"alice"}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	// Second resolution conflicts
	req = httptest.NewRequest("POST", "/security/alerts/"+alert.ID+"/resolve",
		strings.NewReader(`{"resolved_by":"bob"}`))
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "alert not found or already resolved", body["error"])
}

func TestHandlers_ResolveAlert_RequiresResolvedBy(t *testing.T) {
	mon, router := newTestAPI(t)

	alert := mon.CreateAlert(RiskHigh, "open", "", nil)

	req := httptest.NewRequest("POST", "/security/alerts/"+alert.ID+"/resolve",
		strings.NewReader(`{}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
