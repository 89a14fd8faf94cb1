package persistence

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wfunc/boardserver/config"
	"github.com/wfunc/boardserver/models"
)

type MockDatabase struct {
	mu      sync.Mutex
	states  []models.RoomState
	records []models.GameRecord
	err     error
}

func (m *MockDatabase) SaveRoomState(_ context.Context, s models.RoomState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states = append(m.states, s)
	return m.err
}

func (m *MockDatabase) SaveGameRecord(_ context.Context, r models.GameRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, r)
	return m.err
}

func (m *MockDatabase) RecentGameRecords(context.Context, int) ([]models.GameRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.GameRecord(nil), m.records...), m.err
}

func (m *MockDatabase) LoadRoomState(context.Context, string) (models.RoomState, error) {
	return models.RoomState{}, ErrRecordNotFound
}

func (m *MockDatabase) Close() error { return nil }

func (m *MockDatabase) counts() (int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.states), len(m.records)
}

func TestRecorder_WritesInBackground(t *testing.T) {
	db := &MockDatabase{}
	rec := NewRecorder(db, 8)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go rec.Run(ctx)

	rec.RoomStarted(models.RoomState{RoomID: "R1", State: "playing"})
	rec.RoomClosed(models.GameRecord{RoomID: "R1", TurnsPlayed: 5})

	assert.Eventually(t, func() bool {
		s, r := db.counts()
		return s == 1 && r == 1
	}, time.Second, 5*time.Millisecond)
}

func TestRecorder_DropsWhenFull(t *testing.T) {
	db := &MockDatabase{}
	rec := NewRecorder(db, 1)

	rec.RoomClosed(models.GameRecord{RoomID: "a"})
	rec.RoomClosed(models.GameRecord{RoomID: "b"})

	// cancelled context: Run flushes the queue and returns
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rec.Run(ctx)

	_, n := db.counts()
	assert.Equal(t, 1, n)
	assert.Equal(t, "a", db.records[0].RoomID)
}

func TestRecorder_ErrorsDoNotStopWorker(t *testing.T) {
	db := &MockDatabase{err: errors.New("db down")}
	rec := NewRecorder(db, 4)
	rec.RoomStarted(models.RoomState{RoomID: "a"})
	rec.RoomStarted(models.RoomState{RoomID: "b"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rec.Run(ctx)

	s, _ := db.counts()
	assert.Equal(t, 2, s)
}

func TestOpen_Disabled(t *testing.T) {
	db, err := Open(config.DatabaseConfig{Driver: config.DriverNone})
	require.NoError(t, err)
	assert.Nil(t, db)

	_, err = Open(config.DatabaseConfig{Driver: "mongo"})
	assert.Error(t, err)
}
