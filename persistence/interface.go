// persistence/interface.go
package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/wfunc/boardserver/models"
)

// Database is the write-mostly history store. Live rooms never read from it;
// reads serve operator queries.
type Database interface {
	SaveRoomState(ctx context.Context, state models.RoomState) error
	SaveGameRecord(ctx context.Context, record models.GameRecord) error
	RecentGameRecords(ctx context.Context, limit int) ([]models.GameRecord, error)
	// LoadRoomState returns ErrRecordNotFound for rooms never saved.
	LoadRoomState(ctx context.Context, roomID string) (models.RoomState, error)
	Close() error
}

var (
	ErrRecordNotFound = errors.New("record not found")
	ErrRecorderFull   = errors.New("history recorder queue full")
)

const queryTimeout = 5 * time.Second
