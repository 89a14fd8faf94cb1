// models/gorm_models.go
package models

import (
	"time"

	"gorm.io/gorm"
)

// GormRoom is the last known state of a room, one row per room id.
type GormRoom struct {
	gorm.Model
	RoomID     string       `gorm:"uniqueIndex;not null"`
	State      string       `gorm:"not null"`
	HostID     string       `gorm:"not null"`
	Players    []PlayerInfo `gorm:"type:jsonb;serializer:json"`
	TrapFields []int        `gorm:"type:jsonb;serializer:json"`
}

func (GormRoom) TableName() string { return "rooms" }

// GormGameRecord is one finished session.
type GormGameRecord struct {
	gorm.Model
	RoomID      string       `gorm:"index;not null"`
	Players     []PlayerInfo `gorm:"type:jsonb;serializer:json;not null"`
	TrapFields  []int        `gorm:"type:jsonb;serializer:json"`
	TurnsPlayed int          `gorm:"default:0"`
	Timeouts    int          `gorm:"default:0"`
	StartedAt   time.Time
	EndedAt     time.Time `gorm:"index"`
	Duration    int       `gorm:"default:0"` // seconds
}

func (GormGameRecord) TableName() string { return "game_records" }

func (g GormGameRecord) ToRecord() GameRecord {
	return GameRecord{
		RoomID:      g.RoomID,
		Players:     g.Players,
		TrapFields:  g.TrapFields,
		TurnsPlayed: g.TurnsPlayed,
		Timeouts:    g.Timeouts,
		StartedAt:   g.StartedAt,
		EndedAt:     g.EndedAt,
		Duration:    g.Duration,
	}
}

func NewGormGameRecord(r GameRecord) GormGameRecord {
	return GormGameRecord{
		RoomID:      r.RoomID,
		Players:     r.Players,
		TrapFields:  r.TrapFields,
		TurnsPlayed: r.TurnsPlayed,
		Timeouts:    r.Timeouts,
		StartedAt:   r.StartedAt,
		EndedAt:     r.EndedAt,
		Duration:    r.Duration,
	}
}
