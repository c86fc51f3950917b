package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/agentteams/api"
)

type staticCount int

func (c staticCount) Count() int       { return int(c) }
func (c staticCount) ActiveCount() int { return int(c) }

func TestHealthHandler_HandleHealth(t *testing.T) {
	handler := NewHealthHandler(BuildInfo{Version: "1.2.3"}, staticCount(4), staticCount(2), zap.NewNop())

	w := httptest.NewRecorder()
	handler.HandleHealth(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	var resp api.HealthResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "1.2.3", resp.Version)
	assert.Equal(t, 4, resp.TeamsCount)
	assert.Equal(t, 2, resp.ActiveExecutions)
}

func TestHealthHandler_HandleHealthNilStats(t *testing.T) {
	handler := NewHealthHandler(BuildInfo{}, nil, nil, nil)

	w := httptest.NewRecorder()
	handler.HandleHealth(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	var resp api.HealthResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Zero(t, resp.TeamsCount)
	assert.Zero(t, resp.ActiveExecutions)
}

func TestHealthHandler_HandleReady(t *testing.T) {
	tests := []struct {
		name       string
		checks     []HealthCheck
		wantStatus int
		wantState  string
	}{
		{
			name:       "no checks",
			wantStatus: http.StatusOK,
			wantState:  "healthy",
		},
		{
			name: "all pass",
			checks: []HealthCheck{
				NewPingCheck("database", func(context.Context) error { return nil }),
				NewPingCheck("redis", func(context.Context) error { return nil }),
			},
			wantStatus: http.StatusOK,
			wantState:  "healthy",
		},
		{
			name: "one fails",
			checks: []HealthCheck{
				NewPingCheck("database", func(context.Context) error { return nil }),
				NewPingCheck("redis", func(context.Context) error { return errors.New("connection refused") }),
			},
			wantStatus: http.StatusServiceUnavailable,
			wantState:  "unhealthy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewHealthHandler(BuildInfo{}, nil, nil, zap.NewNop())
			for _, c := range tt.checks {
				handler.RegisterCheck(c)
			}

			w := httptest.NewRecorder()
			handler.HandleReady(w, httptest.NewRequest(http.MethodGet, "/ready", nil))

			assert.Equal(t, tt.wantStatus, w.Code)
			var status HealthStatus
			require.NoError(t, json.NewDecoder(w.Body).Decode(&status))
			assert.Equal(t, tt.wantState, status.Status)
			assert.Len(t, status.Checks, len(tt.checks))
			if tt.wantState == "unhealthy" {
				assert.Equal(t, "fail", status.Checks["redis"].Status)
				assert.Equal(t, "connection refused", status.Checks["redis"].Message)
				assert.Equal(t, "pass", status.Checks["database"].Status)
			}
		})
	}
}

func TestHealthHandler_RootAndVersion(t *testing.T) {
	handler := NewHealthHandler(BuildInfo{Version: "1.0.0", GitCommit: "abc123"}, nil, nil, zap.NewNop())

	w := httptest.NewRecorder()
	handler.HandleRoot(w, httptest.NewRequest(http.MethodGet, "/", nil))
	var resp Response
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	info := decodeData[api.ServiceInfo](t, resp)
	assert.Equal(t, "agentteams", info.Name)
	assert.Equal(t, "1.0.0", info.Version)
	assert.Equal(t, "/health", info.Health)

	w = httptest.NewRecorder()
	handler.HandleVersion(w, httptest.NewRequest(http.MethodGet, "/version", nil))
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	version := decodeData[map[string]string](t, resp)
	assert.Equal(t, "abc123", version["git_commit"])
}
