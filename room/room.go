// room/room.go
package room

import (
	"time"

	"github.com/wfunc/boardserver/state"
)

// Status is the room's business state; waiting -> playing happens once.
type Status string

const (
	StatusWaiting Status = state.Waiting
	StatusPlaying Status = state.Playing
)

// Room is one game session. It is not safe for concurrent use; the coordinator
// loop owns every room.
type Room struct {
	ID          string
	Players     []*Player // join order == turn order
	Host        string
	TrapFields  []int
	TurnIndex   int // -1 until the first turn
	CreatedAt   time.Time
	TurnsPlayed int
	Timeouts    int

	lifecycle  *state.Lifecycle
	timerID    int64
	timerToken uint64
}

func NewRoom(id string, trapFields []int) *Room {
	r := &Room{
		ID:         id,
		Players:    make([]*Player, 0, MaxSeats),
		TrapFields: trapFields,
		TurnIndex:  -1,
		CreatedAt:  time.Now(),
	}
	r.lifecycle = state.NewLifecycle(r)
	return r
}

// --- state.RoomContext ---

func (r *Room) GetID() string {
	return r.ID
}

func (r *Room) PlayerCount() int {
	return len(r.Players)
}

// --- lifecycle ---

func (r *Room) Status() Status {
	return Status(r.lifecycle.Current())
}

// Start moves the room to playing. It fails if already playing or empty.
func (r *Room) Start() error {
	return r.lifecycle.Start()
}

func (r *Room) StartedAt() time.Time {
	return r.lifecycle.StartedAt()
}

// --- seats ---

// HumanCount counts non-bot seats.
func (r *Room) HumanCount() int {
	n := 0
	for _, p := range r.Players {
		if !p.IsBot {
			n++
		}
	}
	return n
}

// Seat returns the player with the given id and its index, or nil and -1.
func (r *Room) Seat(id string) (*Player, int) {
	for i, p := range r.Players {
		if p.ID == id {
			return p, i
		}
	}
	return nil, -1
}

// AddHuman seats a connection in the next free color. The first seated
// player becomes host. A connection that already holds a seat gets it back
// with ErrAlreadySeated, even while playing.
func (r *Room) AddHuman(connID string) (*Player, error) {
	if p, _ := r.Seat(connID); p != nil {
		return p, ErrAlreadySeated
	}
	if r.Status() != StatusWaiting {
		return nil, ErrGameInProgress
	}
	if len(r.Players) >= MaxSeats {
		return nil, ErrRoomFull
	}

	p := NewHuman(connID, r.freeSeat())
	r.Players = append(r.Players, p)
	if r.Host == "" {
		r.Host = connID
	}
	return p, nil
}

// FillWithBots occupies every remaining seat with a bot and returns the bots.
func (r *Room) FillWithBots(newID func() string) []*Player {
	var bots []*Player
	for len(r.Players) < MaxSeats {
		b := NewBot(newID(), r.freeSeat())
		r.Players = append(r.Players, b)
		bots = append(bots, b)
	}
	return bots
}

// freeSeat returns the lowest seat whose color no current player holds, or -1
// when every color is taken.
func (r *Room) freeSeat() int {
	for seat, c := range SeatColors {
		taken := false
		for _, p := range r.Players {
			if p.Color == c {
				taken = true
				break
			}
		}
		if !taken {
			return seat
		}
	}
	return -1
}

// RemovePlayer drops a seat and compacts the list. It returns the removed
// index, or -1 if id was not seated.
func (r *Room) RemovePlayer(id string) int {
	_, idx := r.Seat(id)
	if idx < 0 {
		return -1
	}
	r.Players = append(r.Players[:idx], r.Players[idx+1:]...)
	return idx
}

// --- turns ---

// ActivePlayer is the seat holding the turn, nil before the first turn.
func (r *Room) ActivePlayer() *Player {
	if r.TurnIndex < 0 || r.TurnIndex >= len(r.Players) {
		return nil
	}
	return r.Players[r.TurnIndex]
}

// RotateTurn moves the turn to the next seat in order and returns its player.
func (r *Room) RotateTurn() *Player {
	if len(r.Players) == 0 {
		return nil
	}
	r.TurnIndex = (r.TurnIndex + 1) % len(r.Players)
	r.TurnsPlayed++
	return r.Players[r.TurnIndex]
}

// --- turn timer ---

// ArmTimer records the pending expiry. token identifies this arming so a late
// callback from an earlier timer can be told apart.
func (r *Room) ArmTimer(timerID int64, token uint64) {
	r.timerID = timerID
	r.timerToken = token
}

// TimerArmed reports whether an expiry is pending.
func (r *Room) TimerArmed() bool {
	return r.timerID != 0
}

// CancelTimer removes the pending expiry, if any. Safe to call repeatedly.
func (r *Room) CancelTimer(c TimerCanceller) bool {
	if r.timerID == 0 {
		return false
	}
	c.RemoveTimer(r.timerID)
	r.timerID = 0
	r.timerToken = 0
	return true
}

// ConsumeTimer accepts an expiry only if token matches the armed timer, then
// disarms it. Cancelled or superseded timers return false.
func (r *Room) ConsumeTimer(token uint64) bool {
	if r.timerID == 0 || token == 0 || r.timerToken != token {
		return false
	}
	r.timerID = 0
	r.timerToken = 0
	return true
}

// Snapshot is a copy of a room's public state, safe to hand to other goroutines.
type Snapshot struct {
	ID         string    `json:"id"`
	Status     Status    `json:"status"`
	Host       string    `json:"hostId"`
	Players    []Player  `json:"players"`
	TrapFields []int     `json:"trapFields"`
	TurnIndex  int       `json:"turnIndex"`
	TimerArmed bool      `json:"timerArmed"`
	CreatedAt  time.Time `json:"createdAt"`
	StartedAt  time.Time `json:"startedAt"`
}

func (r *Room) Snapshot() Snapshot {
	players := make([]Player, len(r.Players))
	for i, p := range r.Players {
		players[i] = *p
	}
	return Snapshot{
		ID:         r.ID,
		Status:     r.Status(),
		Host:       r.Host,
		Players:    players,
		TrapFields: append([]int(nil), r.TrapFields...),
		TurnIndex:  r.TurnIndex,
		TimerArmed: r.TimerArmed(),
		CreatedAt:  r.CreatedAt,
		StartedAt:  r.StartedAt(),
	}
}
