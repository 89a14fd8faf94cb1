package rpc

import (
	"context"
	"errors"
	"net"
	"net/rpc"
	"time"

	"github.com/wfunc/boardserver/logger"
	"github.com/wfunc/boardserver/models"
	"github.com/wfunc/boardserver/room"
	"github.com/wfunc/boardserver/session"
)

const (
	AdminServiceName = "Admin"
	callTimeout      = 5 * time.Second
)

// RoomInspector lists live rooms.
type RoomInspector interface {
	Rooms(ctx context.Context) ([]room.Snapshot, error)
}

// GameHistory reads the history log.
type GameHistory interface {
	RecentGames(ctx context.Context, limit int) ([]models.GameRecord, error)
	RoomState(ctx context.Context, roomID string) (models.RoomState, error)
}

// SessionLister lists live connections.
type SessionLister interface {
	List() []session.Info
}

// Uptimer reports how long the process has been serving.
type Uptimer interface {
	Uptime() time.Duration
}

// Server manages the RPC listener.
type Server struct {
	listener net.Listener
	rpc      *rpc.Server
}

// NewServer listens on addr and registers the admin service.
func NewServer(addr string, admin *AdminService) (*Server, error) {
	srv := rpc.NewServer()
	if err := srv.RegisterName(AdminServiceName, admin); err != nil {
		return nil, err
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: listener,
		rpc:      srv,
	}, nil
}

func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Start accepts connections until Stop is called.
func (s *Server) Start() {
	logger.Log.Infof("RPC server listening on %s", s.listener.Addr())
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				logger.Log.Info("RPC server listener closed.")
				return
			}
			logger.Log.Errorf("RPC server accept error: %v", err)
			continue
		}
		go s.rpc.ServeConn(conn)
	}
}

// Stop closes the RPC listener.
func (s *Server) Stop() {
	logger.Log.Info("Stopping RPC server.")
	_ = s.listener.Close()
}

// AdminService exposes read-only operator queries. Methods follow the
// net/rpc signature: exported args, pointer reply, error result.
type AdminService struct {
	rooms    RoomInspector
	history  GameHistory
	sessions SessionLister
	uptime   Uptimer
}

func NewAdminService(rooms RoomInspector, history GameHistory, sessions SessionLister, uptime Uptimer) *AdminService {
	return &AdminService{rooms: rooms, history: history, sessions: sessions, uptime: uptime}
}

// ListRoomsArgs filters by status; empty lists every room.
type ListRoomsArgs struct {
	Status room.Status
}

type ListRoomsReply struct {
	Rooms []room.Snapshot
}

func (a *AdminService) ListRooms(args *ListRoomsArgs, reply *ListRoomsReply) error {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()

	rooms, err := a.rooms.Rooms(ctx)
	if err != nil {
		return err
	}
	for _, r := range rooms {
		if args.Status == "" || r.Status == args.Status {
			reply.Rooms = append(reply.Rooms, r)
		}
	}
	return nil
}

type RecentGamesArgs struct {
	Limit int
}

type RecentGamesReply struct {
	Games []models.GameRecord
}

func (a *AdminService) RecentGames(args *RecentGamesArgs, reply *RecentGamesReply) error {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()

	games, err := a.history.RecentGames(ctx, args.Limit)
	if err != nil {
		return err
	}
	reply.Games = games
	return nil
}

type RoomHistoryArgs struct {
	RoomID string
}

type RoomHistoryReply struct {
	Room models.RoomState
}

// RoomHistory returns the state a room had when its game started.
func (a *AdminService) RoomHistory(args *RoomHistoryArgs, reply *RoomHistoryReply) error {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()

	state, err := a.history.RoomState(ctx, args.RoomID)
	if err != nil {
		return err
	}
	reply.Room = state
	return nil
}

// StatusArgs lists only sessions idle for at least IdleFor; zero lists all.
type StatusArgs struct {
	IdleFor time.Duration
}

type StatusReply struct {
	Uptime   time.Duration
	Online   int
	Sessions []session.Info
}

func (a *AdminService) Status(args *StatusArgs, reply *StatusReply) error {
	reply.Uptime = a.uptime.Uptime()

	now := time.Now()
	infos := a.sessions.List()
	reply.Online = len(infos)
	for _, info := range infos {
		if now.Sub(info.LastActive) >= args.IdleFor {
			reply.Sessions = append(reply.Sessions, info)
		}
	}
	return nil
}
