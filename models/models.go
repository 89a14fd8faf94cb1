// models/models.go
package models

import (
	"time"
)

// PlayerInfo is a seat as it appears in the history log.
type PlayerInfo struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Color  string `json:"color"`
	Figure string `json:"figure"`
	IsBot  bool   `json:"is_bot"`
}

// RoomState is written when a room starts playing.
type RoomState struct {
	RoomID     string       `json:"room_id"`
	State      string       `json:"state"`
	HostID     string       `json:"host_id"`
	Players    []PlayerInfo `json:"players"`
	TrapFields []int        `json:"trap_fields"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

// GameRecord is written when a room is deleted.
type GameRecord struct {
	RoomID      string       `json:"room_id"`
	Players     []PlayerInfo `json:"players"`
	TrapFields  []int        `json:"trap_fields"`
	TurnsPlayed int          `json:"turns_played"`
	Timeouts    int          `json:"timeouts"`
	StartedAt   time.Time    `json:"started_at"`
	EndedAt     time.Time    `json:"ended_at"`
	Duration    int          `json:"duration"` // seconds
}
