package rpc

import (
	"context"
	"net/rpc"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/vocabversus/broadcast"
	"github.com/wfunc/vocabversus/coordinator"
	"github.com/wfunc/vocabversus/models"
	"github.com/wfunc/vocabversus/monitor"
	"github.com/wfunc/vocabversus/persistence"
	"github.com/wfunc/vocabversus/room"
	"github.com/wfunc/vocabversus/services"
	"github.com/wfunc/vocabversus/session"
	"github.com/wfunc/vocabversus/state"
	"github.com/wfunc/vocabversus/timer"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

func startGameService(t *testing.T) *rpc.Client {
	t.Helper()

	timers := timer.NewTimerManager(10 * time.Millisecond)
	t.Cleanup(timers.Stop)
	coord := coordinator.New(
		room.NewRoomManager(),
		session.NewIndex(),
		broadcast.NewGroupBroadcaster(session.NewManager()),
		services.NewRoundService(persistence.NewMemoryStore(), 1),
		timers,
		monitor.NewMonitor("test", prometheus.NewRegistry()),
		coordinator.Options{},
	)

	srv, err := NewServer("127.0.0.1:0", NewGameService(coord))
	require.NoError(t, err)
	go srv.Start()
	t.Cleanup(srv.Stop)

	client, err := rpc.Dial("tcp", srv.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func TestGameService(t *testing.T) {
	client := startGameService(t)

	var created CreateGameReply
	require.NoError(t, client.Call("GameService.CreateGame", &CreateGameArgs{GameID: "G1", MaxPlayers: 3, WordSet: "animals"}, &created))
	assert.Equal(t, "G1", created.GameID)

	var check models.CheckGameResponse
	require.NoError(t, client.Call("GameService.CheckGame", &GameArgs{GameID: "G1"}, &check))
	assert.Equal(t, models.CheckGameResponse{GameId: "G1", GameState: state.Waiting, MaxPlayerCount: 3}, check)

	err := client.Call("GameService.CreateGame", &CreateGameArgs{GameID: "G1", WordSet: "animals"}, &created)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	var list ListGamesReply
	require.NoError(t, client.Call("GameService.ListGames", &ListGamesArgs{}, &list))
	assert.Equal(t, []string{"G1"}, list.GameIDs)

	require.NoError(t, client.Call("GameService.RemoveGame", &GameArgs{GameID: "G1"}, &RemoveGameReply{}))

	list = ListGamesReply{}
	require.NoError(t, client.Call("GameService.ListGames", &ListGamesArgs{}, &list))
	assert.Empty(t, list.GameIDs)

	err = client.Call("GameService.CheckGame", &GameArgs{GameID: "G1"}, &check)
	require.Error(t, err)
	assert.Contains(t, err.Error(), string(coordinator.CodeIdentifierError))
}

func TestHealthServer(t *testing.T) {
	hs, err := NewHealthServer("127.0.0.1:0")
	require.NoError(t, err)

	served := make(chan error, 1)
	go func() { served <- hs.Start() }()

	conn, err := grpc.NewClient(hs.Addr(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	client := grpc_health_v1.NewHealthClient(conn)
	for _, service := range []string{"", ServiceName} {
		resp, err := client.Check(ctx, &grpc_health_v1.HealthCheckRequest{Service: service})
		require.NoError(t, err)
		assert.Equal(t, grpc_health_v1.HealthCheckResponse_SERVING, resp.GetStatus())
	}

	require.NoError(t, conn.Close())
	hs.Stop()
	select {
	case err := <-served:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("health server did not stop")
	}
}
