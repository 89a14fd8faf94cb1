package coordinator

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/wfunc/boardserver/network"
	"github.com/wfunc/boardserver/room"
)

// --- inbound ---

// RoomRequest names a room. Clients may send either {"roomId":"R1"} or the
// bare JSON string "R1".
type RoomRequest struct {
	RoomID string `json:"roomId"`
}

func (r *RoomRequest) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &r.RoomID)
	}
	type plain RoomRequest
	return json.Unmarshal(data, (*plain)(r))
}

// MoveRequest is relayed verbatim; pieceId and newPosition are opaque.
type MoveRequest struct {
	RoomID      string          `json:"roomId"`
	PieceID     json.RawMessage `json:"pieceId"`
	NewPosition json.RawMessage `json:"newPosition"`
}

// DecodeEvent turns a client packet into a loop event.
func DecodeEvent(connID string, msgID uint16, data []byte) (Event, error) {
	ev := Event{ConnID: connID, ReceivedAt: time.Now()}

	switch msgID {
	case network.MsgTypeJoinGame:
		ev.Kind = EventJoin
	case network.MsgTypeRequestStart:
		ev.Kind = EventRequestStart
	case network.MsgTypeRollDice:
		ev.Kind = EventRollDice
	case network.MsgTypeEndTurn:
		ev.Kind = EventEndTurn
	case network.MsgTypeMovePiece:
		var req MoveRequest
		if err := json.Unmarshal(data, &req); err != nil {
			return Event{}, fmt.Errorf("decode %s: %w", network.MsgName(msgID), err)
		}
		ev.Kind = EventMovePiece
		ev.RoomID = req.RoomID
		ev.PieceID = req.PieceID
		ev.NewPosition = req.NewPosition
		return ev, nil
	default:
		return Event{}, fmt.Errorf("%w: %d", ErrUnknownMessage, msgID)
	}

	var req RoomRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return Event{}, fmt.Errorf("decode %s: %w", network.MsgName(msgID), err)
	}
	ev.RoomID = req.RoomID
	return ev, nil
}

// --- outbound ---

type LobbyUpdate struct {
	Players []*room.Player `json:"players"`
	HostID  string         `json:"hostId"`
}

type Identity struct {
	Color  room.Color `json:"color"`
	Figure string     `json:"figure"`
	IsHost bool       `json:"isHost"`
}

type GameStarted struct {
	Players    []*room.Player `json:"players"`
	TrapFields []int          `json:"trapFields"`
}

type TurnChanged struct {
	ActiveColor room.Color `json:"activeColor"`
	ActiveName  string     `json:"activeName"`
	IsBot       bool       `json:"isBot"`
	Timeout     int        `json:"timeout"` // seconds
}

type StatusMessage struct {
	Msg string `json:"msg"`
}

type DiceRolled struct {
	PlayerID string `json:"playerId"`
	Value    int    `json:"value"`
}

type PieceMoved struct {
	PlayerID    string          `json:"playerId"`
	PieceID     json.RawMessage `json:"pieceId"`
	NewPosition json.RawMessage `json:"newPosition"`
}

type ErrorMessage struct {
	Message string `json:"message"`
}
