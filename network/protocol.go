package network

// Client -> server.
const (
	MsgTypeHeartbeat    = 1
	MsgTypeJoinGame     = 101
	MsgTypeRequestStart = 102
	MsgTypeRollDice     = 201
	MsgTypeMovePiece    = 202
	MsgTypeEndTurn      = 203
)

// Server -> client.
const (
	MsgTypeLobbyUpdate   = 301
	MsgTypeSetIdentity   = 302
	MsgTypeGameStarted   = 303
	MsgTypeTurnChanged   = 304
	MsgTypeStatusMessage = 305
	MsgTypeDiceRolled    = 306
	MsgTypePieceMoved    = 307
	MsgTypeError         = 400
)

var msgNames = map[uint16]string{
	MsgTypeHeartbeat:     "heartbeat",
	MsgTypeJoinGame:      "joinGame",
	MsgTypeRequestStart:  "requestStartGame",
	MsgTypeRollDice:      "rollDice",
	MsgTypeMovePiece:     "movePiece",
	MsgTypeEndTurn:       "endTurn",
	MsgTypeLobbyUpdate:   "lobbyUpdate",
	MsgTypeSetIdentity:   "setIdentity",
	MsgTypeGameStarted:   "gameStarted",
	MsgTypeTurnChanged:   "turnChanged",
	MsgTypeStatusMessage: "statusMessage",
	MsgTypeDiceRolled:    "diceRolled",
	MsgTypePieceMoved:    "pieceMoved",
	MsgTypeError:         "errorMsg",
}

// MsgName is the event name for logs and metrics labels.
func MsgName(msgID uint16) string {
	if name, ok := msgNames[msgID]; ok {
		return name
	}
	return "unknown"
}
