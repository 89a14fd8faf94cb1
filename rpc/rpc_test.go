package rpc

import (
	"context"
	"errors"
	"net"
	"net/rpc"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"

	"github.com/wfunc/boardserver/models"
	"github.com/wfunc/boardserver/room"
	"github.com/wfunc/boardserver/session"
)

type fakeRooms struct {
	snaps []room.Snapshot
	err   error
}

func (f *fakeRooms) Rooms(context.Context) ([]room.Snapshot, error) { return f.snaps, f.err }

type fakeHistory struct {
	mu    sync.Mutex
	limit int
	games []models.GameRecord
	err   error
}

func (f *fakeHistory) RecentGames(_ context.Context, limit int) ([]models.GameRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.limit = limit
	return f.games, f.err
}

func (f *fakeHistory) RoomState(_ context.Context, roomID string) (models.RoomState, error) {
	if f.err != nil {
		return models.RoomState{}, f.err
	}
	if roomID != "R9" {
		return models.RoomState{}, errors.New("record not found")
	}
	return models.RoomState{RoomID: "R9", State: "playing", HostID: "a"}, nil
}

func (f *fakeHistory) lastLimit() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.limit
}

type fakeSessions []session.Info

func (f fakeSessions) List() []session.Info { return f }

type fixedUptime time.Duration

func (u fixedUptime) Uptime() time.Duration { return time.Duration(u) }

func startAdmin(t *testing.T, rooms RoomInspector, history GameHistory) *rpc.Client {
	t.Helper()
	return startAdminWith(t, NewAdminService(rooms, history, fakeSessions{}, fixedUptime(0)))
}

func startAdminWith(t *testing.T, admin *AdminService) *rpc.Client {
	t.Helper()
	srv, err := NewServer("127.0.0.1:0", admin)
	require.NoError(t, err)
	go srv.Start()
	t.Cleanup(srv.Stop)

	client, err := rpc.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestAdminService_ListRooms(t *testing.T) {
	rooms := &fakeRooms{snaps: []room.Snapshot{
		{ID: "R1", Status: room.StatusPlaying, TurnIndex: 2},
		{ID: "R2", Status: room.StatusWaiting, TurnIndex: -1},
	}}
	client := startAdmin(t, rooms, &fakeHistory{})

	var all ListRoomsReply
	require.NoError(t, client.Call(AdminServiceName+".ListRooms", &ListRoomsArgs{}, &all))
	assert.Len(t, all.Rooms, 2)

	var playing ListRoomsReply
	require.NoError(t, client.Call(AdminServiceName+".ListRooms", &ListRoomsArgs{Status: room.StatusPlaying}, &playing))
	require.Len(t, playing.Rooms, 1)
	assert.Equal(t, "R1", playing.Rooms[0].ID)
	assert.Equal(t, 2, playing.Rooms[0].TurnIndex)
}

func TestAdminService_RecentGames(t *testing.T) {
	history := &fakeHistory{games: []models.GameRecord{{RoomID: "R9", TurnsPlayed: 12}}}
	client := startAdmin(t, &fakeRooms{}, history)

	var reply RecentGamesReply
	require.NoError(t, client.Call(AdminServiceName+".RecentGames", &RecentGamesArgs{Limit: 5}, &reply))
	assert.Equal(t, 5, history.lastLimit())
	require.Len(t, reply.Games, 1)
	assert.Equal(t, "R9", reply.Games[0].RoomID)
}

func TestAdminService_RoomHistory(t *testing.T) {
	client := startAdmin(t, &fakeRooms{}, &fakeHistory{})

	var reply RoomHistoryReply
	require.NoError(t, client.Call(AdminServiceName+".RoomHistory", &RoomHistoryArgs{RoomID: "R9"}, &reply))
	assert.Equal(t, "R9", reply.Room.RoomID)
	assert.Equal(t, "a", reply.Room.HostID)

	err := client.Call(AdminServiceName+".RoomHistory", &RoomHistoryArgs{RoomID: "R1"}, &RoomHistoryReply{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestAdminService_Status(t *testing.T) {
	now := time.Now()
	sessions := fakeSessions{
		{ID: "a", CreatedAt: now.Add(-time.Hour), LastActive: now.Add(-10 * time.Minute)},
		{ID: "b", CreatedAt: now.Add(-time.Minute), LastActive: now},
	}
	client := startAdminWith(t, NewAdminService(&fakeRooms{}, &fakeHistory{}, sessions, fixedUptime(90*time.Second)))

	var all StatusReply
	require.NoError(t, client.Call(AdminServiceName+".Status", &StatusArgs{}, &all))
	assert.Equal(t, 90*time.Second, all.Uptime)
	assert.Equal(t, 2, all.Online)
	assert.Len(t, all.Sessions, 2)

	var idle StatusReply
	require.NoError(t, client.Call(AdminServiceName+".Status", &StatusArgs{IdleFor: 5 * time.Minute}, &idle))
	assert.Equal(t, 2, idle.Online)
	require.Len(t, idle.Sessions, 1)
	assert.Equal(t, "a", idle.Sessions[0].ID)
}

func TestAdminService_Errors(t *testing.T) {
	client := startAdmin(t,
		&fakeRooms{err: errors.New("coordinator stopped")},
		&fakeHistory{err: errors.New("game history is disabled")})

	var rooms ListRoomsReply
	err := client.Call(AdminServiceName+".ListRooms", &ListRoomsArgs{}, &rooms)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "coordinator stopped")

	var games RecentGamesReply
	err = client.Call(AdminServiceName+".RecentGames", &RecentGamesArgs{}, &games)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disabled")
}

func TestHealthServer(t *testing.T) {
	lis := bufconn.Listen(1 << 20)
	h := NewHealthServer()
	go func() { _ = h.Serve(lis) }()
	defer h.Stop()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()
	client := healthpb.NewHealthClient(conn)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: HealthService})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.Status)

	h.SetServing(true)
	resp, err = client.Check(ctx, &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)
}

func TestHealthServer_FollowsReady(t *testing.T) {
	lis := bufconn.Listen(1 << 20)
	h := NewHealthServer()
	go func() { _ = h.Serve(lis) }()
	defer h.Stop()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()
	client := healthpb.NewHealthClient(conn)

	status := func() healthpb.HealthCheckResponse_ServingStatus {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: HealthService})
		if err != nil {
			return healthpb.HealthCheckResponse_UNKNOWN
		}
		return resp.Status
	}

	var ready atomic.Bool
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.Follow(ctx, ready.Load, 5*time.Millisecond)
	}()

	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, status())

	ready.Store(true)
	require.Eventually(t, func() bool { return status() == healthpb.HealthCheckResponse_SERVING },
		2*time.Second, 10*time.Millisecond)

	ready.Store(false)
	require.Eventually(t, func() bool { return status() == healthpb.HealthCheckResponse_NOT_SERVING },
		2*time.Second, 10*time.Millisecond)

	ready.Store(true)
	require.Eventually(t, func() bool { return status() == healthpb.HealthCheckResponse_SERVING },
		2*time.Second, 10*time.Millisecond)

	cancel()
	<-done
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, status())
}
