package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/wfunc/vocabversus/broadcast"
	"github.com/wfunc/vocabversus/config"
	"github.com/wfunc/vocabversus/coordinator"
	"github.com/wfunc/vocabversus/logger"
	"github.com/wfunc/vocabversus/models"
	"github.com/wfunc/vocabversus/monitor"
	"github.com/wfunc/vocabversus/persistence"
	"github.com/wfunc/vocabversus/room"
	"github.com/wfunc/vocabversus/rpc"
	"github.com/wfunc/vocabversus/server"
	"github.com/wfunc/vocabversus/services"
	"github.com/wfunc/vocabversus/session"
	"github.com/wfunc/vocabversus/timer"
)

// Seeded on startup so a fresh deployment can run games right away.
var defaultWordSet = models.WordSet{
	ID:   "default",
	Name: "Common English",
	Words: []string{
		"apple", "bridge", "candle", "dragon", "engine", "forest", "garden",
		"harbor", "island", "jungle", "kitchen", "ladder", "market", "needle",
		"orange", "pencil", "quartz", "rocket", "silver", "thunder", "umbrella",
		"valley", "window", "yellow", "zipper",
	},
}

func openStore(cfg *config.Config) (persistence.WordSetStore, error) {
	if cfg.Database.Driver != "postgres" {
		return persistence.NewMemoryStore(), nil
	}
	return persistence.NewGormPostgreSQL(
		cfg.Database.Postgres.Host,
		cfg.Database.Postgres.Port,
		cfg.Database.Postgres.User,
		cfg.Database.Postgres.Password,
		cfg.Database.Postgres.DBName,
	)
}

func main() {
	// Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Init("info", false)
		logger.Log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Init(cfg.Log.Level, cfg.Log.Development)
	defer logger.Sync()

	// Initialize word set storage
	store, err := openStore(cfg)
	if err != nil {
		logger.Log.Fatalf("Failed to connect to database: %v", err)
	}
	defer store.Close()
	if err := store.SaveWordSet(context.Background(), &defaultWordSet); err != nil {
		logger.Log.Fatalf("Failed to seed word set: %v", err)
	}
	logger.Log.Infof("Word set storage ready (%s)", cfg.Database.Driver)

	timers := timer.NewTimerManager(cfg.Game.TimerResolution)
	defer timers.Stop()

	mon := monitor.NewMonitor(cfg.Metrics.Namespace, prometheus.DefaultRegisterer)
	sessions := session.NewManager()

	coord := coordinator.New(
		room.NewRoomManager(),
		session.NewIndex(),
		broadcast.NewGroupBroadcaster(sessions),
		services.NewRoundService(store, time.Now().UnixNano()),
		timers,
		mon,
		coordinator.Options{
			Countdown:         cfg.Game.Countdown,
			DefaultMaxPlayers: cfg.Game.DefaultMaxPlayers,
			IdleTTL:           cfg.Game.IdleTTL,
		},
	)
	if cfg.Game.IdleTTL > 0 {
		coord.StartExpiry(cfg.Game.SweepInterval)
	}

	// Initialize RPC and health servers
	rpcServer, err := rpc.NewServer(cfg.Server.RPCAddress, rpc.NewGameService(coord))
	if err != nil {
		logger.Log.Fatalf("Failed to create RPC server: %v", err)
	}
	go rpcServer.Start()
	defer rpcServer.Stop()

	healthServer, err := rpc.NewHealthServer(cfg.Server.HealthAddress)
	if err != nil {
		logger.Log.Fatalf("Failed to create health server: %v", err)
	}
	go func() {
		if err := healthServer.Start(); err != nil {
			logger.Log.Errorf("Health server stopped: %v", err)
		}
	}()
	defer healthServer.Stop()

	// Initialize Game Server
	gameServer := server.NewGameServer(cfg.Server.HTTPAddress, cfg.Server.Heartbeat, coord, sessions, mon, prometheus.DefaultGatherer)

	serveErr := make(chan error, 1)
	go func() { serveErr <- gameServer.Start() }()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		if err != nil {
			logger.Log.Errorf("Game server failed: %v", err)
		}
	case sig := <-stop:
		logger.Log.Infof("Received %s, shutting down", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := gameServer.Shutdown(ctx); err != nil {
		logger.Log.Errorf("Game server shutdown: %v", err)
	}
}
