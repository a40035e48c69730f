package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fixedCounter int

func (c fixedCounter) Count() int { return int(c) }

type fixedVault bool

func (v fixedVault) UsingDefaults() bool { return bool(v) }

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	data, ok := response["data"].(map[string]interface{})
	require.True(t, ok, "response has no data object: %v", response)
	return data
}

func TestHandleHealth(t *testing.T) {
	handler := NewHealthHandler(nil, nil, nil, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()

	handler.HandleHealth(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, "healthy", data["status"])
	assert.NotEmpty(t, data["timestamp"])
}

func TestHandleReadiness(t *testing.T) {
	tests := []struct {
		name          string
		setup         func(mock sqlmock.Sqlmock)
		providers     ProviderCounter
		wantStatus    int
		wantDatabase  string
		wantProviders string
	}{
		{
			name: "ready",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectPing()
				mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
			},
			providers:     fixedCounter(9),
			wantStatus:    http.StatusOK,
			wantDatabase:  "healthy",
			wantProviders: "configured",
		},
		{
			name: "ping fails",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectPing().WillReturnError(sql.ErrConnDone)
			},
			providers:     fixedCounter(9),
			wantStatus:    http.StatusServiceUnavailable,
			wantDatabase:  "unhealthy",
			wantProviders: "configured",
		},
		{
			name: "query fails",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectPing()
				mock.ExpectQuery("SELECT 1").WillReturnError(sql.ErrConnDone)
			},
			providers:     fixedCounter(9),
			wantStatus:    http.StatusServiceUnavailable,
			wantDatabase:  "unhealthy",
			wantProviders: "configured",
		},
		{
			name: "no providers",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectPing()
				mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
			},
			providers:     fixedCounter(0),
			wantStatus:    http.StatusServiceUnavailable,
			wantDatabase:  "healthy",
			wantProviders: "none_configured",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
			require.NoError(t, err)
			defer db.Close()
			tt.setup(mock)

			handler := NewHealthHandler(db, tt.providers, nil, zap.NewNop())

			w := httptest.NewRecorder()
			handler.HandleReadiness(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

			assert.Equal(t, tt.wantStatus, w.Code)
			data := decodeData(t, w)
			checks := data["checks"].(map[string]interface{})
			assert.Equal(t, tt.wantDatabase, checks["database"])
			assert.Equal(t, tt.wantProviders, checks["providers"])
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}

	t.Run("no database configured", func(t *testing.T) {
		handler := NewHealthHandler(nil, fixedCounter(9), nil, zap.NewNop())

		w := httptest.NewRecorder()
		handler.HandleReadiness(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, "unhealthy", decodeData(t, w)["status"])
	})
}

func TestHandleReadiness_CredentialVault(t *testing.T) {
	tests := []struct {
		name      string
		defaults  bool
		wantCheck string
		wantWarns int
	}{
		{name: "default secret", defaults: true, wantCheck: "default_secret", wantWarns: 1},
		{name: "configured secret", defaults: false, wantCheck: "configured", wantWarns: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
			require.NoError(t, err)
			defer db.Close()
			mock.ExpectPing()
			mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

			core, logs := observer.New(zap.WarnLevel)
			handler := NewHealthHandler(db, fixedCounter(9), fixedVault(tt.defaults), zap.New(core))

			w := httptest.NewRecorder()
			handler.HandleReadiness(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

			assert.Equal(t, http.StatusOK, w.Code)
			data := decodeData(t, w)
			assert.Equal(t, "healthy", data["status"])
			checks := data["checks"].(map[string]interface{})
			assert.Equal(t, tt.wantCheck, checks["credential_vault"])
			assert.Equal(t, tt.wantWarns, logs.FilterMessage("credential vault is using the default secret").Len())
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
