package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/wfunc/boardserver/coordinator"
	"github.com/wfunc/boardserver/logger"
	"github.com/wfunc/boardserver/monitor"
	"github.com/wfunc/boardserver/network"
	"github.com/wfunc/boardserver/session"
)

// EventSink receives decoded client events.
type EventSink interface {
	Submit(ev coordinator.Event) error
	Ready() bool
}

type Options struct {
	HeartbeatInterval time.Duration
	SendBuffer        int
	// Monitor enables /metrics and connection gauges when set.
	Monitor *monitor.Monitor
}

type GameServer struct {
	httpServer     *http.Server
	upgrader       websocket.Upgrader
	sessionManager *session.Manager
	events         EventSink
	monitor        *monitor.Monitor
	heartbeat      time.Duration
	sendBuffer     int
	conns          sync.WaitGroup
}

func NewGameServer(addr string, sessions *session.Manager, events EventSink, opts Options) *GameServer {
	if opts.HeartbeatInterval <= 0 {
		opts.HeartbeatInterval = 30 * time.Second
	}
	s := &GameServer{
		sessionManager: sessions,
		events:         events,
		monitor:        opts.Monitor,
		heartbeat:      opts.HeartbeatInterval,
		sendBuffer:     opts.SendBuffer,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // any origin may connect
			},
		},
	}
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *GameServer) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/ws", s.handleWebSocket)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(10 * time.Second))
		r.Get("/health/live", s.handleLive)
		r.Get("/health/ready", s.handleReady)
		if s.monitor != nil {
			r.Handle("/metrics", s.monitor.Handler())
		}
	})
	return r
}

// Handler exposes the router, mainly for tests.
func (s *GameServer) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start serves until Shutdown; it returns nil after a clean shutdown.
func (s *GameServer) Start() error {
	logger.Log.Infof("Game server listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, closes every websocket and waits for the
// connection handlers to finish.
func (s *GameServer) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	s.sessionManager.CloseAll()

	done := make(chan struct{})
	go func() {
		s.conns.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return err
}

func (s *GameServer) handleLive(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *GameServer) handleReady(w http.ResponseWriter, _ *http.Request) {
	if !s.events.Ready() {
		http.Error(w, "coordinator not running", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *GameServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Infof("Failed to upgrade connection: %v", err)
		return
	}
	s.conns.Add(1)
	defer s.conns.Done()
	s.handleConnection(conn)
}

func (s *GameServer) handleConnection(conn *websocket.Conn) {
	wsConn := network.NewWSConnection(conn)
	wsConn.SetHeartbeat(s.heartbeat)
	sess := session.NewSession(uuid.NewString(), wsConn, s.sendBuffer)
	s.sessionManager.Add(sess)
	s.monitor.IncOnlinePlayers()
	go sess.WritePump()

	logger.Log.Infof("New connection from %s, session ID: %s", wsConn.RemoteAddr(), sess.GetID())

	defer func() {
		logger.Log.Infof("Connection closed from %s, session ID: %s", wsConn.RemoteAddr(), sess.GetID())
		s.sessionManager.Remove(sess.GetID())
		_ = sess.Close()
		s.monitor.DecOnlinePlayers()
		if err := s.events.Submit(coordinator.Event{Kind: coordinator.EventDisconnect, ConnID: sess.GetID()}); err != nil {
			logger.Log.Debugf("disconnect of %s not delivered: %v", sess.GetID(), err)
		}
	}()

	for {
		packet, err := wsConn.ReadPacket()
		if errors.Is(err, io.ErrShortBuffer) {
			logger.Log.Infof("Session %s: malformed frame", sess.GetID())
			continue
		}
		if err != nil {
			return
		}
		sess.Touch()
		wsConn.SetHeartbeat(s.heartbeat)
		s.handlePacket(sess, packet)
	}
}

func (s *GameServer) handlePacket(sess *session.Session, packet *network.Packet) {
	if packet.MsgID == network.MsgTypeHeartbeat {
		_ = sess.Send(network.MsgTypeHeartbeat, nil)
		return
	}

	ev, err := coordinator.DecodeEvent(sess.GetID(), packet.MsgID, packet.Data)
	if err != nil {
		logger.Log.Infof("Session %s: %v", sess.GetID(), err)
		return
	}
	if err := s.events.Submit(ev); err != nil {
		logger.Log.Warnf("Session %s: %s dropped: %v", sess.GetID(), network.MsgName(packet.MsgID), err)
	}
}
