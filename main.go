package main

import (
	"context"
	"math/rand"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/wfunc/boardserver/broadcast"
	"github.com/wfunc/boardserver/config"
	"github.com/wfunc/boardserver/coordinator"
	"github.com/wfunc/boardserver/logger"
	"github.com/wfunc/boardserver/monitor"
	"github.com/wfunc/boardserver/persistence"
	"github.com/wfunc/boardserver/room"
	"github.com/wfunc/boardserver/rpc"
	"github.com/wfunc/boardserver/server"
	"github.com/wfunc/boardserver/services"
	"github.com/wfunc/boardserver/session"
	"github.com/wfunc/boardserver/timer"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		// logger is not configured yet
		_, _ = os.Stderr.WriteString("Failed to load configuration: " + err.Error() + "\n")
		os.Exit(1)
	}

	// Initialize logger
	if err := logger.Init(cfg.Log.Level, cfg.Log.Development); err != nil {
		_, _ = os.Stderr.WriteString("Failed to initialize logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Metrics are always collected; the default registry and /metrics only
	// when enabled.
	var registerer prometheus.Registerer = prometheus.NewRegistry()
	if cfg.Metrics.Enabled {
		registerer = prometheus.DefaultRegisterer
	}
	mon, err := monitor.NewMonitor(cfg.Metrics.Namespace, registerer)
	if err != nil {
		logger.Log.Fatalf("Failed to register metrics: %v", err)
	}
	var exposed *monitor.Monitor
	if cfg.Metrics.Enabled {
		exposed = mon
	}

	// Initialize Database
	db, err := persistence.Open(cfg.Database)
	if err != nil {
		logger.Log.Fatalf("Failed to connect to database: %v", err)
	}
	var history coordinator.HistoryRecorder
	recorderDone := make(chan struct{})
	if db != nil {
		logger.Log.Infof("Game history enabled (%s).", cfg.Database.Driver)
		recorder := persistence.NewRecorder(db, cfg.Database.RecordBuffer)
		go func() {
			defer close(recorderDone)
			recorder.Run(ctx)
		}()
		history = recorder
	} else {
		close(recorderDone)
	}

	timers := timer.NewTimerManager(0)
	registry := room.NewRegistry(timers, rand.New(rand.NewSource(time.Now().UnixNano())))
	sessions := session.NewManager()

	coord := coordinator.New(registry, broadcast.NewRoomBroadcaster(registry, sessions), timers, coordinator.Options{
		TurnTimeout: cfg.Game.TurnTimeout,
		EventBuffer: cfg.Game.EventBuffer,
		History:     history,
		Monitor:     mon,
	})
	coordDone := make(chan struct{})
	go func() {
		defer close(coordDone)
		coord.Run(ctx)
	}()

	// Admin RPC
	if cfg.Server.RPCAddress != "" {
		admin := rpc.NewAdminService(coord, services.NewHistoryService(db), sessions, mon)
		rpcServer, err := rpc.NewServer(cfg.Server.RPCAddress, admin)
		if err != nil {
			logger.Log.Fatalf("Failed to start RPC server: %v", err)
		}
		go rpcServer.Start()
		defer rpcServer.Stop()
	}

	// gRPC health
	if cfg.Server.GRPCAddress != "" {
		lis, err := net.Listen("tcp", cfg.Server.GRPCAddress)
		if err != nil {
			logger.Log.Fatalf("Failed to listen on %s: %v", cfg.Server.GRPCAddress, err)
		}
		health := rpc.NewHealthServer()
		go func() {
			if err := health.Serve(lis); err != nil {
				logger.Log.Errorf("gRPC health server stopped: %v", err)
			}
		}()
		go health.Follow(ctx, coord.Ready, time.Second)
		defer health.Stop()
	}

	// Initialize Game Server
	gameServer := server.NewGameServer(cfg.Server.HTTPAddress(), sessions, coord, server.Options{
		HeartbeatInterval: cfg.Server.HeartbeatInterval,
		SendBuffer:        cfg.Server.SendBuffer,
		Monitor:           exposed,
	})

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- gameServer.Start()
	}()

	select {
	case <-ctx.Done():
		logger.Log.Info("Shutting down...")
	case err := <-serverErr:
		if err != nil {
			logger.Log.Errorf("Game server failed: %v", err)
		}
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := gameServer.Shutdown(shutdownCtx); err != nil {
		logger.Log.Warnf("Game server shutdown: %v", err)
	}

	<-coordDone
	timers.Stop()
	<-recorderDone
	if db != nil {
		if err := db.Close(); err != nil {
			logger.Log.Warnf("Closing database: %v", err)
		}
	}
	logger.Log.Info("Server stopped.")
}
