// session/session.go
package session

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/wfunc/boardserver/logger"
	"github.com/wfunc/boardserver/network"
)

var (
	ErrSessionClosed   = errors.New("session closed")
	ErrSendBufferFull  = errors.New("session send buffer full")
	ErrSessionNotFound = errors.New("session not found")
)

const DefaultSendBuffer = 64

type outbound struct {
	msgID uint16
	data  []byte
}

// Session is one client connection. Send never blocks: frames are queued and
// written by WritePump, so a slow client cannot stall the game loop.
type Session struct {
	ID        string
	Conn      network.Connection
	CreatedAt time.Time

	outbox     chan outbound
	done       chan struct{}
	closeOnce  sync.Once
	mutex      sync.RWMutex
	lastActive time.Time
}

func NewSession(id string, conn network.Connection, sendBuffer int) *Session {
	if sendBuffer <= 0 {
		sendBuffer = DefaultSendBuffer
	}
	now := time.Now()
	return &Session{
		ID:         id,
		Conn:       conn,
		CreatedAt:  now,
		lastActive: now,
		outbox:     make(chan outbound, sendBuffer),
		done:       make(chan struct{}),
	}
}

func (s *Session) GetID() string {
	return s.ID
}

// Send queues a frame for delivery.
func (s *Session) Send(msgID uint16, data []byte) error {
	select {
	case <-s.done:
		return ErrSessionClosed
	default:
	}

	select {
	case s.outbox <- outbound{msgID: msgID, data: data}:
		return nil
	case <-s.done:
		return ErrSessionClosed
	default:
		return ErrSendBufferFull
	}
}

// WritePump writes queued frames until the session is closed or a write fails.
func (s *Session) WritePump() {
	for {
		select {
		case <-s.done:
			return
		case msg := <-s.outbox:
			if err := s.Conn.Send(msg.msgID, msg.data); err != nil {
				logger.Log.Debugf("session %s write failed: %v", s.ID, err)
				s.Close()
				return
			}
		}
	}
}

// Touch records inbound activity.
func (s *Session) Touch() {
	s.mutex.Lock()
	s.lastActive = time.Now()
	s.mutex.Unlock()
}

func (s *Session) LastActive() time.Time {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.lastActive
}

// Done is closed once the session is closed.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Close shuts the connection. Safe to call more than once.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		err = s.Conn.Close()
	})
	return err
}

// Manager tracks live sessions by id.
type Manager struct {
	sessions map[string]*Session
	mutex    sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
	}
}

func (m *Manager) Add(session *Session) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.sessions[session.ID] = session
}

func (m *Manager) Remove(sessionID string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.sessions, sessionID)
}

func (m *Manager) Get(sessionID string) (*Session, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	session, exists := m.sessions[sessionID]
	return session, exists
}

func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.sessions)
}

// Info is a copy of a session's bookkeeping for operators.
type Info struct {
	ID         string
	CreatedAt  time.Time
	LastActive time.Time
}

// List returns every live session ordered by id.
func (m *Manager) List() []Info {
	m.mutex.RLock()
	infos := make([]Info, 0, len(m.sessions))
	for _, s := range m.sessions {
		infos = append(infos, Info{ID: s.ID, CreatedAt: s.CreatedAt, LastActive: s.LastActive()})
	}
	m.mutex.RUnlock()

	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}

// CloseAll closes every session; used on shutdown.
func (m *Manager) CloseAll() {
	m.mutex.RLock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mutex.RUnlock()

	for _, s := range sessions {
		_ = s.Close()
	}
}
