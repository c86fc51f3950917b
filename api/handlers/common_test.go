package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/agentteams/internal/ctxkeys"
	"github.com/BaSui01/agentteams/types"
)

// =============================================================================
// 🧪 Common 函数测试
// =============================================================================

func TestWriteJSON(t *testing.T) {
	w := httptest.NewRecorder()
	WriteJSON(w, http.StatusTeapot, map[string]string{"message": "hello"})

	assert.Equal(t, http.StatusTeapot, w.Code)
	assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
}

func TestWriteSuccess_IncludesRequestID(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r = r.WithContext(ctxkeys.WithRequestID(r.Context(), "req-42"))
	w := httptest.NewRecorder()

	WriteSuccess(w, r, map[string]string{"key": "value"})

	assert.Equal(t, http.StatusOK, w.Code)
	var resp Response
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.True(t, resp.Success)
	assert.Nil(t, resp.Error)
	assert.Equal(t, "req-42", resp.RequestID)
	assert.False(t, resp.Timestamp.IsZero())
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedCode   string
	}{
		{
			name:           "invalid request",
			err:            types.NewInvalidRequestError("input_text is required"),
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "INVALID_REQUEST",
		},
		{
			name:           "team not found",
			err:            types.NewNotFoundError("team", "t-1"),
			expectedStatus: http.StatusNotFound,
			expectedCode:   "TEAM_NOT_FOUND",
		},
		{
			name:           "not cancellable",
			err:            types.NewError(types.ErrExecutionNotCancellable, "Cannot cancel execution with status: completed"),
			expectedStatus: http.StatusConflict,
			expectedCode:   "EXECUTION_NOT_CANCELLABLE",
		},
		{
			name:           "wrapped types error",
			err:            errors.Join(errors.New("context"), types.NewError(types.ErrPayloadTooLarge, "too big")),
			expectedStatus: http.StatusRequestEntityTooLarge,
			expectedCode:   "PAYLOAD_TOO_LARGE",
		},
		{
			name:           "plain error",
			err:            errors.New("database exploded"),
			expectedStatus: http.StatusInternalServerError,
			expectedCode:   "INTERNAL_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			WriteError(w, r, tt.err, zap.NewNop())

			assert.Equal(t, tt.expectedStatus, w.Code)
			var resp Response
			require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.expectedCode, resp.Error.Code)
			assert.NotContains(t, resp.Error.Message, "database exploded")
		})
	}
}

func TestDecodeJSONBody(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}

	tests := []struct {
		name       string
		body       string
		optional   bool
		wantErr    bool
		wantStatus int
	}{
		{name: "valid", body: `{"name":"a"}`},
		{name: "empty required", body: "", wantErr: true, wantStatus: http.StatusBadRequest},
		{name: "empty optional", body: "", optional: true},
		{name: "unknown field", body: `{"nope":1}`, wantErr: true, wantStatus: http.StatusBadRequest},
		{name: "malformed", body: `{"name":`, wantErr: true, wantStatus: http.StatusBadRequest},
		{
			name:       "too large",
			body:       `{"name":"` + strings.Repeat("x", maxBodyBytes) + `"}`,
			wantErr:    true,
			wantStatus: http.StatusRequestEntityTooLarge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))

			var dst payload
			var err error
			if tt.optional {
				err = DecodeOptionalJSONBody(w, r, &dst, zap.NewNop())
			} else {
				err = DecodeJSONBody(w, r, &dst, zap.NewNop())
			}

			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, tt.wantStatus, w.Code)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestResponseWriter(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := NewResponseWriter(rec)

	rw.WriteHeader(http.StatusCreated)
	rw.WriteHeader(http.StatusInternalServerError)
	n, err := rw.Write([]byte("hello"))
	require.NoError(t, err)

	assert.Equal(t, http.StatusCreated, rw.StatusCode)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 5, n)
	assert.Equal(t, 5, rw.BytesWritten)
	assert.Same(t, rec, rw.Unwrap())
}
