package coordinator

import "errors"

var (
	ErrRoomNotFound   = errors.New("room not found")
	ErrEmptyRoomID    = errors.New("room id is empty")
	ErrNotHost        = errors.New("only the host can start the game")
	ErrGameNotStarted = errors.New("game has not started")
	ErrUnknownMessage = errors.New("unknown message type")
	ErrStopped        = errors.New("coordinator stopped")
)

// Notices shown to players.
const (
	noticeGameInProgress = "Spiel läuft bereits! Versuche einen anderen Raumnamen."
	noticeRoomFull       = "Raum ist voll!"
	noticeNotHost        = "Nur der Host kann das Spiel starten."
	noticeTimeExpired    = "Zeit abgelaufen für %s!"
)
