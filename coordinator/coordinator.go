// Package coordinator runs every room on a single goroutine. Transport
// goroutines and timer callbacks only submit events; all room state is read
// and written inside Run, so rooms need no locks.
package coordinator

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wfunc/boardserver/broadcast"
	"github.com/wfunc/boardserver/logger"
	"github.com/wfunc/boardserver/models"
	"github.com/wfunc/boardserver/monitor"
	"github.com/wfunc/boardserver/room"
	"github.com/wfunc/boardserver/timer"
)

const (
	DefaultTurnTimeout = 15 * time.Second
	DefaultEventBuffer = 1024
)

type EventKind int

const (
	EventJoin EventKind = iota
	EventRequestStart
	EventRollDice
	EventMovePiece
	EventEndTurn
	EventDisconnect
	eventTimeout
	eventInspect
)

var eventNames = map[EventKind]string{
	EventJoin:         "joinGame",
	EventRequestStart: "requestStartGame",
	EventRollDice:     "rollDice",
	EventMovePiece:    "movePiece",
	EventEndTurn:      "endTurn",
	EventDisconnect:   "disconnect",
	eventTimeout:      "turnTimeout",
	eventInspect:      "inspect",
}

func (k EventKind) String() string {
	if name, ok := eventNames[k]; ok {
		return name
	}
	return "unknown"
}

// Event is one unit of work for the loop.
type Event struct {
	Kind        EventKind
	ConnID      string
	RoomID      string
	PieceID     json.RawMessage
	NewPosition json.RawMessage
	ReceivedAt  time.Time

	token uint64
	reply chan []room.Snapshot
}

// Dice is the random source for rollDice.
type Dice interface {
	Roll() int
}

type randDice struct {
	rng *rand.Rand
}

// NewDice returns a uniform six-sided die. rng must only be used by the loop.
func NewDice(rng *rand.Rand) Dice {
	return &randDice{rng: rng}
}

func (d *randDice) Roll() int {
	return d.rng.Intn(6) + 1
}

// HistoryRecorder receives lifecycle records. Implementations must not block.
type HistoryRecorder interface {
	RoomStarted(state models.RoomState)
	RoomClosed(record models.GameRecord)
}

type noopRecorder struct{}

func (noopRecorder) RoomStarted(models.RoomState)  {}
func (noopRecorder) RoomClosed(models.GameRecord) {}

type Options struct {
	TurnTimeout time.Duration
	EventBuffer int
	Dice        Dice
	History     HistoryRecorder
	Monitor     *monitor.Monitor
	NewBotID    func() string
}

type Coordinator struct {
	registry    *room.Registry
	out         broadcast.Broadcaster
	timers      timer.Scheduler
	dice        Dice
	history     HistoryRecorder
	monitor     *monitor.Monitor
	newBotID    func() string
	turnTimeout time.Duration

	events    chan Event
	done      chan struct{}
	closeOnce sync.Once
	running   atomic.Bool
	nextToken uint64
}

func New(registry *room.Registry, out broadcast.Broadcaster, timers timer.Scheduler, opts Options) *Coordinator {
	if opts.TurnTimeout <= 0 {
		opts.TurnTimeout = DefaultTurnTimeout
	}
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = DefaultEventBuffer
	}
	if opts.Dice == nil {
		opts.Dice = NewDice(rand.New(rand.NewSource(time.Now().UnixNano())))
	}
	if opts.History == nil {
		opts.History = noopRecorder{}
	}
	if opts.NewBotID == nil {
		opts.NewBotID = room.NewBotID
	}

	return &Coordinator{
		registry:    registry,
		out:         out,
		timers:      timers,
		dice:        opts.Dice,
		history:     opts.History,
		monitor:     opts.Monitor,
		newBotID:    opts.NewBotID,
		turnTimeout: opts.TurnTimeout,
		events:      make(chan Event, opts.EventBuffer),
		done:        make(chan struct{}),
	}
}

// Submit queues an event. It blocks while the queue is full and fails once
// the loop has stopped.
func (c *Coordinator) Submit(ev Event) error {
	select {
	case <-c.done:
		return ErrStopped
	default:
	}

	select {
	case c.events <- ev:
		return nil
	case <-c.done:
		return ErrStopped
	}
}

// Ready reports whether Run is processing events.
func (c *Coordinator) Ready() bool {
	return c.running.Load()
}

// Rooms returns a snapshot of every room, taken on the loop.
func (c *Coordinator) Rooms(ctx context.Context) ([]room.Snapshot, error) {
	reply := make(chan []room.Snapshot, 1)
	if err := c.Submit(Event{Kind: eventInspect, reply: reply}); err != nil {
		return nil, err
	}
	select {
	case snaps := <-reply:
		return snaps, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.done:
		return nil, ErrStopped
	}
}

// Run processes events until ctx is done. Pending turn timers are cancelled
// on the way out.
func (c *Coordinator) Run(ctx context.Context) {
	c.running.Store(true)
	defer func() {
		c.running.Store(false)
		c.closeOnce.Do(func() { close(c.done) })
		for _, r := range c.registry.Rooms() {
			r.CancelTimer(c.timers)
		}
	}()

	logger.Log.Infof("coordinator started, turn timeout %s", c.turnTimeout)
	for {
		select {
		case ev := <-c.events:
			if err := c.handle(ev); err != nil {
				logger.Log.Debugf("%s from %s in room %q: %v", ev.Kind, ev.ConnID, ev.RoomID, err)
			}
		case <-ctx.Done():
			logger.Log.Infof("coordinator stopped")
			return
		}
	}
}

func (c *Coordinator) handle(ev Event) error {
	c.monitor.IncMessagesReceived(ev.Kind.String())
	if !ev.ReceivedAt.IsZero() {
		defer func() { c.monitor.ObserveMessageLatency(time.Since(ev.ReceivedAt)) }()
	}

	switch ev.Kind {
	case EventJoin:
		return c.Join(ev.ConnID, ev.RoomID)
	case EventRequestStart:
		return c.RequestStart(ev.ConnID, ev.RoomID)
	case EventRollDice:
		return c.RollDice(ev.ConnID, ev.RoomID)
	case EventMovePiece:
		return c.MovePiece(ev.ConnID, ev.RoomID, ev.PieceID, ev.NewPosition)
	case EventEndTurn:
		return c.EndTurn(ev.ConnID, ev.RoomID)
	case EventDisconnect:
		c.Disconnect(ev.ConnID)
		return nil
	case eventTimeout:
		c.expire(ev.RoomID, ev.token)
		return nil
	case eventInspect:
		rooms := c.registry.Rooms()
		snaps := make([]room.Snapshot, 0, len(rooms))
		for _, r := range rooms {
			snaps = append(snaps, r.Snapshot())
		}
		ev.reply <- snaps
		return nil
	default:
		return ErrUnknownMessage
	}
}

// --- outbound helpers ---

func (c *Coordinator) broadcast(roomID string, msgID uint16, payload any) {
	data, err := broadcast.Marshal(payload)
	if err != nil {
		logger.Log.Errorf("room %s: %v", roomID, err)
		return
	}
	if err := c.out.BroadcastToRoom(roomID, msgID, data); err != nil {
		logger.Log.Warnf("broadcast to room %s: %v", roomID, err)
	}
}

func (c *Coordinator) sendTo(connID string, msgID uint16, payload any) {
	data, err := broadcast.Marshal(payload)
	if err != nil {
		logger.Log.Errorf("conn %s: %v", connID, err)
		return
	}
	if err := c.out.SendTo(connID, msgID, data); err != nil {
		logger.Log.Debugf("send to %s: %v", connID, err)
	}
}

func (c *Coordinator) syncRoomGauge() {
	c.monitor.SetActiveRooms(c.registry.Len())
}

func playerInfos(players []*room.Player) []models.PlayerInfo {
	infos := make([]models.PlayerInfo, len(players))
	for i, p := range players {
		infos[i] = models.PlayerInfo{
			ID:     p.ID,
			Name:   p.Name,
			Color:  string(p.Color),
			Figure: p.Figure,
			IsBot:  p.IsBot,
		}
	}
	return infos
}
