package monitor

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonitor_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMonitor("test", reg)
	require.NoError(t, err)

	m.IncOnlinePlayers()
	m.IncOnlinePlayers()
	m.DecOnlinePlayers()
	m.SetActiveRooms(3)
	m.IncMessagesReceived("joinGame")
	m.IncMessagesReceived("joinGame")
	m.IncMessagesReceived("rollDice")
	m.IncGamesStarted()
	m.IncTurnTimeouts()
	m.ObserveMessageLatency(2 * time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.metrics.OnlinePlayers))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.metrics.ActiveRooms))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.metrics.MessagesReceived.WithLabelValues("joinGame")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.metrics.MessagesReceived.WithLabelValues("rollDice")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.metrics.GamesStarted))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.metrics.TurnTimeouts))
	assert.Equal(t, 1, testutil.CollectAndCount(m.metrics.MessageLatency))
}

func TestMonitor_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewMonitor("dup", reg)
	require.NoError(t, err)

	_, err = NewMonitor("dup", reg)
	assert.Error(t, err)
}

func TestMonitor_NilIsNoop(t *testing.T) {
	var m *Monitor
	assert.NotPanics(t, func() {
		m.IncOnlinePlayers()
		m.DecOnlinePlayers()
		m.SetActiveRooms(1)
		m.IncMessagesReceived("x")
		m.IncGamesStarted()
		m.IncTurnTimeouts()
		m.ObserveMessageLatency(time.Second)
	})
	assert.Zero(t, m.Uptime())
}

func TestMonitor_Handler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMonitor("board", reg)
	require.NoError(t, err)
	m.IncGamesStarted()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), "board_games_started_total 1"))
}
