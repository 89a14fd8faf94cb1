package room

import (
	"math/rand"
	"sort"

	"github.com/wfunc/boardserver/logger"
)

// Registry holds every active room plus the connection -> room reverse index.
// Delivery membership (which connections hear a room's broadcasts) is tracked
// per room id, independently of the Room object, so a connection that was
// refused a seat still receives the room's events.
//
// Registry is not safe for concurrent use; the coordinator loop owns it.
type Registry struct {
	rooms     map[string]*Room
	connRooms map[string]string              // connID -> roomID
	members   map[string]map[string]struct{} // roomID -> connIDs
	timers    TimerCanceller
	rng       *rand.Rand
}

func NewRegistry(timers TimerCanceller, rng *rand.Rand) *Registry {
	return &Registry{
		rooms:     make(map[string]*Room),
		connRooms: make(map[string]string),
		members:   make(map[string]map[string]struct{}),
		timers:    timers,
		rng:       rng,
	}
}

// GetOrCreate returns the room under roomID, replacing a stale (human-empty)
// entry with a fresh room. created reports whether a new room was built.
func (r *Registry) GetOrCreate(roomID string) (room *Room, created bool) {
	if existing, ok := r.rooms[roomID]; ok {
		if existing.HumanCount() > 0 {
			return existing, false
		}
		existing.CancelTimer(r.timers)
		delete(r.rooms, roomID)
		logger.Log.Infof("room %s reset (was empty)", roomID)
	}

	room = NewRoom(roomID, GenerateTrapFields(r.rng))
	r.rooms[roomID] = room
	logger.Log.Debugf("room %s created, traps %v", roomID, room.TrapFields)
	return room, true
}

func (r *Registry) Get(roomID string) (*Room, bool) {
	room, ok := r.rooms[roomID]
	return room, ok
}

// BindConnection points connID at roomID, moving it out of any previous room.
func (r *Registry) BindConnection(connID, roomID string) {
	if prev, ok := r.connRooms[connID]; ok {
		if prev == roomID {
			return
		}
		r.dropMember(prev, connID)
	}
	r.connRooms[connID] = roomID
	set, ok := r.members[roomID]
	if !ok {
		set = make(map[string]struct{})
		r.members[roomID] = set
	}
	set[connID] = struct{}{}
}

// UnbindConnection forgets connID. No-op when it is not bound.
func (r *Registry) UnbindConnection(connID string) {
	roomID, ok := r.connRooms[connID]
	if !ok {
		return
	}
	delete(r.connRooms, connID)
	r.dropMember(roomID, connID)
}

func (r *Registry) dropMember(roomID, connID string) {
	set := r.members[roomID]
	delete(set, connID)
	if len(set) == 0 {
		delete(r.members, roomID)
	}
}

// RoomOf resolves the room a connection is bound to.
func (r *Registry) RoomOf(connID string) (string, bool) {
	roomID, ok := r.connRooms[connID]
	return roomID, ok
}

// Connections lists the connections bound to roomID, sorted.
func (r *Registry) Connections(roomID string) []string {
	set := r.members[roomID]
	conns := make([]string, 0, len(set))
	for id := range set {
		conns = append(conns, id)
	}
	sort.Strings(conns)
	return conns
}

// DeleteIfEmpty removes the room when no humans are left, cancelling its timer
// first. It returns the removed room, or nil.
func (r *Registry) DeleteIfEmpty(roomID string) *Room {
	room, ok := r.rooms[roomID]
	if !ok || room.HumanCount() > 0 {
		return nil
	}
	room.CancelTimer(r.timers)
	delete(r.rooms, roomID)
	logger.Log.Infof("room %s deleted (everyone left)", roomID)
	return room
}

func (r *Registry) Len() int {
	return len(r.rooms)
}

// Rooms returns every active room ordered by id.
func (r *Registry) Rooms() []*Room {
	rooms := make([]*Room, 0, len(r.rooms))
	for _, room := range r.rooms {
		rooms = append(rooms, room)
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].ID < rooms[j].ID })
	return rooms
}
