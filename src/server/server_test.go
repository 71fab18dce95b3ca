package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"sol-terminal/src/logger"
	"sol-terminal/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------

func testLogger() *logger.Logger {
	return logger.NewLogger("ERROR", "server-test")
}

func testServer() *TerminalServer {
	cfg := &models.MConfig{
		Name: "t", Host: "127.0.0.1", Port: 8000, LogLevel: "ERROR",
		WindowsAgg: []string{"1m", "5m"},
		Pools: []models.MPoolConfig{
			{Name: "orca-sol-usdc", Pair: "SOL/USDC", Dex: "orca", Enabled: true},
			{Name: "off", Pair: "X/Y", Dex: "orca", Enabled: false},
		},
	}
	return NewTerminalServer(cfg, nil, testLogger())
}

func get(t *testing.T, s *TerminalServer, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	return rec
}

// -----------------------------------------------------------------------------

func TestHealthEndpoint(t *testing.T) {
	s := testServer()

	rec := get(t, s, "/api/health")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

// -----------------------------------------------------------------------------

func TestSnapshotEndpoint(t *testing.T) {
	s := testServer()

	// Nothing published yet
	rec := get(t, s, "/api/snapshot")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	s.stateMutex.Lock()
	s.latestSnap = testSnapshot()
	s.stateMutex.Unlock()

	rec = get(t, s, "/api/snapshot")
	require.Equal(t, http.StatusOK, rec.Code)

	var snap models.MSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, uint64(7), snap.Sequence)
	assert.Len(t, snap.Instruments, 2)
}

// -----------------------------------------------------------------------------

func TestConfigEndpoint(t *testing.T) {
	s := testServer()

	rec := get(t, s, "/api/config")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Windows []string `json:"windows"`
		Pools   []struct {
			Name string `json:"name"`
		} `json:"pools"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []string{"1m", "5m"}, body.Windows)
	// Disabled pools are not advertised
	require.Len(t, body.Pools, 1)
	assert.Equal(t, "orca-sol-usdc", body.Pools[0].Name)
}

// -----------------------------------------------------------------------------

func TestConditionsEndpoint(t *testing.T) {
	s := testServer()

	rec := get(t, s, "/api/conditions")
	require.Equal(t, http.StatusOK, rec.Code)

	snap := testSnapshot()
	snap.Conditions = []models.MCondition{{Kind: models.ConditionStaleInstrument, Instrument: "orca-sol-usdc", Since: 1}}
	s.stateMutex.Lock()
	s.latestSnap = snap
	s.stateMutex.Unlock()

	rec = get(t, s, "/api/conditions")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Conditions []models.MCondition `json:"conditions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Conditions, 1)
	assert.Equal(t, models.ConditionStaleInstrument, body.Conditions[0].Kind)
}
