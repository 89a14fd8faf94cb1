package room

import "errors"

var (
	ErrRoomFull       = errors.New("room is full")
	ErrGameInProgress = errors.New("game has already started")
	ErrAlreadySeated  = errors.New("connection already holds a seat in this room")
)
