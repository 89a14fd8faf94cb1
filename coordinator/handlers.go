package coordinator

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/wfunc/boardserver/logger"
	"github.com/wfunc/boardserver/models"
	"github.com/wfunc/boardserver/network"
	"github.com/wfunc/boardserver/room"
)

// The exported handlers must only be called from the loop goroutine (or a
// test that owns the Coordinator).

// Join seats connID in roomID. A connection seated elsewhere leaves that room
// first. Rejections are reported to the joiner only; the connection still
// follows the room's broadcasts.
func (c *Coordinator) Join(connID, roomID string) error {
	if roomID == "" {
		return ErrEmptyRoomID
	}
	if prev, ok := c.registry.RoomOf(connID); ok && prev != roomID {
		c.leave(connID)
	}

	r, created := c.registry.GetOrCreate(roomID)
	if created {
		c.syncRoomGauge()
	}
	c.registry.BindConnection(connID, roomID)

	p, err := r.AddHuman(connID)
	switch {
	case errors.Is(err, room.ErrAlreadySeated):
		c.sendTo(connID, network.MsgTypeLobbyUpdate, LobbyUpdate{Players: r.Players, HostID: r.Host})
		c.sendIdentity(r, p)
		return nil
	case errors.Is(err, room.ErrGameInProgress):
		c.sendTo(connID, network.MsgTypeError, ErrorMessage{Message: noticeGameInProgress})
		return err
	case errors.Is(err, room.ErrRoomFull):
		c.sendTo(connID, network.MsgTypeError, ErrorMessage{Message: noticeRoomFull})
		return err
	case err != nil:
		return err
	}

	logger.Log.Infof("%s joined room %s as %s", connID, roomID, p.Color)
	c.broadcast(roomID, network.MsgTypeLobbyUpdate, LobbyUpdate{Players: r.Players, HostID: r.Host})
	c.sendIdentity(r, p)
	return nil
}

func (c *Coordinator) sendIdentity(r *room.Room, p *room.Player) {
	c.sendTo(p.ID, network.MsgTypeSetIdentity, Identity{
		Color:  p.Color,
		Figure: p.Figure,
		IsHost: r.Host == p.ID,
	})
}

// RequestStart fills the free seats with bots, starts the game and hands the
// first turn to seat 0. Only the host may start.
func (c *Coordinator) RequestStart(connID, roomID string) error {
	r, ok := c.registry.Get(roomID)
	if !ok {
		return ErrRoomNotFound
	}
	if r.Host != connID {
		c.sendTo(connID, network.MsgTypeError, ErrorMessage{Message: noticeNotHost})
		return ErrNotHost
	}
	if r.Status() != room.StatusWaiting {
		return room.ErrGameInProgress
	}

	r.FillWithBots(c.newBotID)
	if err := r.Start(); err != nil {
		return fmt.Errorf("start room %s: %w", roomID, err)
	}
	c.monitor.IncGamesStarted()

	c.broadcast(roomID, network.MsgTypeGameStarted, GameStarted{Players: r.Players, TrapFields: r.TrapFields})
	c.history.RoomStarted(models.RoomState{
		RoomID:     r.ID,
		State:      string(r.Status()),
		HostID:     r.Host,
		Players:    playerInfos(r.Players),
		TrapFields: append([]int(nil), r.TrapFields...),
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  time.Now(),
	})

	r.TurnIndex = -1
	c.advanceTurn(r)
	return nil
}

// RollDice stops the turn clock and broadcasts a roll in [1,6]. The turn
// itself only moves on EndTurn.
func (c *Coordinator) RollDice(connID, roomID string) error {
	r, ok := c.registry.Get(roomID)
	if !ok {
		return ErrRoomNotFound
	}
	r.CancelTimer(c.timers)

	value := c.dice.Roll()
	c.broadcast(roomID, network.MsgTypeDiceRolled, DiceRolled{PlayerID: connID, Value: value})
	return nil
}

// MovePiece relays a move unchecked.
func (c *Coordinator) MovePiece(connID, roomID string, pieceID, newPosition json.RawMessage) error {
	if _, ok := c.registry.Get(roomID); !ok {
		return ErrRoomNotFound
	}
	c.broadcast(roomID, network.MsgTypePieceMoved, PieceMoved{
		PlayerID:    connID,
		PieceID:     pieceID,
		NewPosition: newPosition,
	})
	return nil
}

func (c *Coordinator) EndTurn(connID, roomID string) error {
	r, ok := c.registry.Get(roomID)
	if !ok {
		return ErrRoomNotFound
	}
	if r.Status() != room.StatusPlaying {
		return ErrGameNotStarted
	}
	c.advanceTurn(r)
	return nil
}

// Disconnect releases everything connID holds.
func (c *Coordinator) Disconnect(connID string) {
	c.leave(connID)
}

// leave unbinds connID and frees its seat: the room is deleted when no humans
// remain, the host moves to the first seat while waiting, and the turn pointer
// is corrected while playing.
func (c *Coordinator) leave(connID string) {
	roomID, ok := c.registry.RoomOf(connID)
	if !ok {
		return
	}
	c.registry.UnbindConnection(connID)

	r, ok := c.registry.Get(roomID)
	if !ok {
		return
	}
	idx := r.RemovePlayer(connID)
	if idx < 0 {
		return
	}
	logger.Log.Infof("%s left room %s", connID, roomID)

	if r.HumanCount() == 0 {
		c.closeRoom(r)
		return
	}

	switch r.Status() {
	case room.StatusWaiting:
		r.Host = r.Players[0].ID
		c.broadcast(roomID, network.MsgTypeLobbyUpdate, LobbyUpdate{Players: r.Players, HostID: r.Host})
	case room.StatusPlaying:
		c.correctTurn(r, idx)
	}
}

// correctTurn keeps the turn with the same player after seat idx was removed.
// If the active player left, the turn passes to whoever now holds that seat.
func (c *Coordinator) correctTurn(r *room.Room, idx int) {
	switch {
	case r.TurnIndex < 0 || idx > r.TurnIndex:
	case idx < r.TurnIndex:
		r.TurnIndex--
	default:
		r.TurnIndex = idx - 1
		c.advanceTurn(r)
	}
}

func (c *Coordinator) closeRoom(r *room.Room) {
	if c.registry.DeleteIfEmpty(r.ID) == nil {
		return
	}
	c.syncRoomGauge()

	startedAt := r.StartedAt()
	if startedAt.IsZero() {
		return
	}
	now := time.Now()
	c.history.RoomClosed(models.GameRecord{
		RoomID:      r.ID,
		Players:     playerInfos(r.Players),
		TrapFields:  append([]int(nil), r.TrapFields...),
		TurnsPlayed: r.TurnsPlayed,
		Timeouts:    r.Timeouts,
		StartedAt:   startedAt,
		EndedAt:     now,
		Duration:    int(now.Sub(startedAt).Seconds()),
	})
}

// advanceTurn is the only place the turn moves: it cancels the pending timer,
// rotates to the next seat, announces it and arms a fresh timer.
func (c *Coordinator) advanceTurn(r *room.Room) {
	r.CancelTimer(c.timers)

	active := r.RotateTurn()
	if active == nil {
		return
	}
	c.broadcast(r.ID, network.MsgTypeTurnChanged, TurnChanged{
		ActiveColor: active.Color,
		ActiveName:  active.Name,
		IsBot:       active.IsBot,
		Timeout:     timeoutSeconds(c.turnTimeout),
	})
	c.armTimer(r)
}

// timeoutSeconds rounds up so a sub-second timeout never reads as 0.
func timeoutSeconds(d time.Duration) int {
	return int((d + time.Second - 1) / time.Second)
}

func (c *Coordinator) armTimer(r *room.Room) {
	c.nextToken++
	token := c.nextToken
	roomID := r.ID

	id := c.timers.AddTimer(c.turnTimeout, 0, func() {
		if err := c.Submit(Event{Kind: eventTimeout, RoomID: roomID, token: token}); err != nil {
			logger.Log.Debugf("turn timer for room %s dropped: %v", roomID, err)
		}
	})
	r.ArmTimer(id, token)
}

// expire handles a fired turn timer. Timers that were cancelled or replaced
// before their event reached the loop are ignored.
func (c *Coordinator) expire(roomID string, token uint64) {
	r, ok := c.registry.Get(roomID)
	if !ok || !r.ConsumeTimer(token) {
		logger.Log.Debugf("stale turn timer for room %s ignored", roomID)
		return
	}

	r.Timeouts++
	c.monitor.IncTurnTimeouts()
	if active := r.ActivePlayer(); active != nil {
		c.broadcast(roomID, network.MsgTypeStatusMessage, StatusMessage{
			Msg: fmt.Sprintf(noticeTimeExpired, active.Name),
		})
	}
	c.advanceTurn(r)
}
