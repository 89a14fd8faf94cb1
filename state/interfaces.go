// state/interfaces.go
package state

// RoomContext is the view of a room the lifecycle states need.
// Defined here so state does not import room.
type RoomContext interface {
	GetID() string
	PlayerCount() int
}
