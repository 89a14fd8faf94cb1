// broadcast/broadcast.go
package broadcast

import (
	"encoding/json"
	"fmt"

	"github.com/wfunc/boardserver/logger"
	"github.com/wfunc/boardserver/session"
)

// Broadcaster delivers frames to a room's connections or to one connection.
type Broadcaster interface {
	BroadcastToRoom(roomID string, msgID uint16, data []byte) error
	SendTo(connID string, msgID uint16, data []byte) error
}

// Membership resolves the connections that should hear a room.
type Membership interface {
	Connections(roomID string) []string
}

// RoomBroadcaster fans frames out through the session manager. Delivery is
// best effort: a full or closed session is logged and skipped.
type RoomBroadcaster struct {
	members        Membership
	sessionManager *session.Manager
}

func NewRoomBroadcaster(members Membership, sessionManager *session.Manager) *RoomBroadcaster {
	return &RoomBroadcaster{
		members:        members,
		sessionManager: sessionManager,
	}
}

func (b *RoomBroadcaster) BroadcastToRoom(roomID string, msgID uint16, data []byte) error {
	for _, connID := range b.members.Connections(roomID) {
		if err := b.SendTo(connID, msgID, data); err != nil {
			logger.Log.Debugf("broadcast %d to %s in room %s: %v", msgID, connID, roomID, err)
		}
	}
	return nil
}

func (b *RoomBroadcaster) SendTo(connID string, msgID uint16, data []byte) error {
	s, ok := b.sessionManager.Get(connID)
	if !ok {
		return session.ErrSessionNotFound
	}
	return s.Send(msgID, data)
}

// Marshal encodes a payload for the wire.
func Marshal(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return data, nil
}
