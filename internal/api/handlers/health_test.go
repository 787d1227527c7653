package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHealthHandler_NoChecks(t *testing.T) {
	w := httptest.NewRecorder()

	NewHealthHandler(nil).Health(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, "ok", data["status"])
	assert.NotContains(t, data, "components")
}

func TestHealthHandler_AllHealthy(t *testing.T) {
	w := httptest.NewRecorder()
	handler := NewHealthHandler(map[string]HealthCheck{
		"postgres": func(ctx context.Context) error { return nil },
	})

	handler.Health(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, map[string]interface{}{"postgres": "ok"}, data["components"])
}

func TestHealthHandler_Degraded(t *testing.T) {
	w := httptest.NewRecorder()
	handler := NewHealthHandler(map[string]HealthCheck{
		"postgres": func(ctx context.Context) error { return nil },
		"dynamodb": func(ctx context.Context) error { return errors.New("connection refused") },
	})

	handler.Health(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, "degraded", data["status"])
	components := data["components"].(map[string]interface{})
	assert.Equal(t, "connection refused", components["dynamodb"])
	assert.Equal(t, "ok", components["postgres"])
}
