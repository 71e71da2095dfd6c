package monitor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookSink_NotifyAlert(t *testing.T) {
	var got webhookPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	sink := NewWebhookSink(server.URL)
	err := sink.NotifyAlert(context.Background(), SecurityAlert{
		ID:       "alert-1",
		Severity: RiskHigh,
		Title:    "repeated failures",
	})
	require.NoError(t, err)

	assert.Equal(t, "alert", got.Kind)
	require.NotNil(t, got.Alert)
	assert.Equal(t, "alert-1", got.Alert.ID)
}

func TestWebhookSink_ForwardEvent(t *testing.T) {
	var got webhookPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	}))
	defer server.Close()

	sink := NewWebhookSink(server.URL)
	err := sink.ForwardEvent(context.Background(), SecurityEvent{
		ID:        "ev-1",
		Timestamp: time.Now(),
		Type:      EventPrivilegeEscalation,
		RiskLevel: RiskCritical,
	})
	require.NoError(t, err)

	assert.Equal(t, "event", got.Kind)
	require.NotNil(t, got.Event)
	assert.Equal(t, "ev-1", got.Event.ID)
}

func TestWebhookSink_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	sink := NewWebhookSink(server.URL)
	err := sink.NotifyAlert(context.Background(), SecurityAlert{ID: "alert-1"})
	assert.Error(t, err)
}
