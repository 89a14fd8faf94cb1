// services/history_service.go
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/wfunc/boardserver/models"
	"github.com/wfunc/boardserver/persistence"
)

var ErrHistoryDisabled = errors.New("game history is disabled")

const (
	DefaultRecentGames = 20
	MaxRecentGames     = 100
)

// HistoryService answers queries over finished games.
type HistoryService struct {
	db persistence.Database
}

// NewHistoryService accepts a nil db; queries then fail with ErrHistoryDisabled.
func NewHistoryService(db persistence.Database) *HistoryService {
	return &HistoryService{db: db}
}

// RecentGames returns the newest finished games. A limit <= 0 means
// DefaultRecentGames; anything above MaxRecentGames is capped.
func (s *HistoryService) RecentGames(ctx context.Context, limit int) ([]models.GameRecord, error) {
	if s.db == nil {
		return nil, ErrHistoryDisabled
	}
	if limit <= 0 {
		limit = DefaultRecentGames
	}
	if limit > MaxRecentGames {
		limit = MaxRecentGames
	}

	records, err := s.db.RecentGameRecords(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("recent games: %w", err)
	}
	return records, nil
}

// RoomState returns the last saved state of a room that was started.
func (s *HistoryService) RoomState(ctx context.Context, roomID string) (models.RoomState, error) {
	if s.db == nil {
		return models.RoomState{}, ErrHistoryDisabled
	}
	state, err := s.db.LoadRoomState(ctx, roomID)
	if err != nil {
		return models.RoomState{}, fmt.Errorf("room %s: %w", roomID, err)
	}
	return state, nil
}
