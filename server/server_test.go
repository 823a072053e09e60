package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/vocabversus/broadcast"
	"github.com/wfunc/vocabversus/coordinator"
	"github.com/wfunc/vocabversus/models"
	"github.com/wfunc/vocabversus/monitor"
	"github.com/wfunc/vocabversus/network"
	"github.com/wfunc/vocabversus/persistence"
	"github.com/wfunc/vocabversus/room"
	"github.com/wfunc/vocabversus/services"
	"github.com/wfunc/vocabversus/session"
	"github.com/wfunc/vocabversus/state"
	"github.com/wfunc/vocabversus/timer"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	sessions := session.NewManager()
	timers := timer.NewTimerManager(5 * time.Millisecond)
	t.Cleanup(timers.Stop)

	reg := prometheus.NewRegistry()
	mon := monitor.NewMonitor("test", reg)
	store := persistence.NewMemoryStore(models.WordSet{ID: "animals", Words: []string{"giraffe", "elephant", "otter"}})
	coord := coordinator.New(
		room.NewRoomManager(),
		session.NewIndex(),
		broadcast.NewGroupBroadcaster(sessions),
		services.NewRoundService(store, 1),
		timers,
		mon,
		coordinator.Options{Countdown: 50 * time.Millisecond},
	)

	gs := NewGameServer("127.0.0.1:0", 0, coord, sessions, mon, reg)
	ts := httptest.NewServer(gs.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func createGame(t *testing.T, ts *httptest.Server, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(ts.URL+"/games", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func doRequest(t *testing.T, method, url string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

type wireCompletion struct {
	InvocationID string          `json:"invocationId"`
	Result       json.RawMessage `json:"result"`
	Error        *network.Fault  `json:"error"`
}

type wireEvent struct {
	Target    string            `json:"target"`
	Arguments []json.RawMessage `json:"arguments"`
}

type testClient struct {
	t      *testing.T
	conn   *websocket.Conn
	nextID int
	events []wireEvent
}

func dial(t *testing.T, ts *httptest.Server) *testClient {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/game"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return &testClient{t: t, conn: conn}
}

func (c *testClient) writeFrame(msgID uint16, data []byte) {
	frame, err := network.EncodeFrame(msgID, data)
	require.NoError(c.t, err)
	require.NoError(c.t, c.conn.WriteMessage(websocket.BinaryMessage, frame))
}

func (c *testClient) readPacket() *network.Packet {
	c.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := c.conn.ReadMessage()
	require.NoError(c.t, err)
	packet, err := network.DecodeFrame(data)
	require.NoError(c.t, err)
	return packet
}

func (c *testClient) invoke(target string, args ...interface{}) wireCompletion {
	c.nextID++
	id := fmt.Sprintf("%d", c.nextID)

	raw := make([]json.RawMessage, len(args))
	for i, a := range args {
		b, err := json.Marshal(a)
		require.NoError(c.t, err)
		raw[i] = b
	}
	data, err := json.Marshal(network.Invocation{InvocationID: id, Target: target, Arguments: raw})
	require.NoError(c.t, err)
	c.writeFrame(network.MsgTypeInvocation, data)

	return c.awaitCompletion(id)
}

// awaitCompletion reads until the completion for id arrives, keeping any
// events seen on the way.
func (c *testClient) awaitCompletion(id string) wireCompletion {
	for {
		packet := c.readPacket()
		switch packet.MsgID {
		case network.MsgTypeEvent:
			var ev wireEvent
			require.NoError(c.t, json.Unmarshal(packet.Data, &ev))
			c.events = append(c.events, ev)
		case network.MsgTypeCompletion:
			var comp wireCompletion
			require.NoError(c.t, json.Unmarshal(packet.Data, &comp))
			if comp.InvocationID == id {
				return comp
			}
		}
	}
}

func (c *testClient) awaitEvent(target string) wireEvent {
	for i, ev := range c.events {
		if ev.Target == target {
			c.events = append(c.events[:i], c.events[i+1:]...)
			return ev
		}
	}
	for {
		packet := c.readPacket()
		if packet.MsgID != network.MsgTypeEvent {
			continue
		}
		var ev wireEvent
		require.NoError(c.t, json.Unmarshal(packet.Data, &ev))
		if ev.Target == target {
			return ev
		}
		c.events = append(c.events, ev)
	}
}

func TestAdminAPI(t *testing.T) {
	ts := newTestServer(t)

	resp := createGame(t, ts, `{"gameId":"G1","maxPlayers":2,"wordSet":"animals"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created createGameResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.Equal(t, "G1", created.GameID)

	assert.Equal(t, http.StatusBadRequest, createGame(t, ts, `{"gameId":"G1","wordSet":"animals"}`).StatusCode)
	assert.Equal(t, http.StatusBadRequest, createGame(t, ts, `{"gameId":"G2"}`).StatusCode)
	assert.Equal(t, http.StatusBadRequest, createGame(t, ts, `not json`).StatusCode)

	resp = doRequest(t, http.MethodGet, ts.URL+"/games/G1")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var check models.CheckGameResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&check))
	assert.Equal(t, models.CheckGameResponse{GameId: "G1", GameState: state.Waiting, PlayerCount: 0, MaxPlayerCount: 2}, check)

	assert.Equal(t, http.StatusNoContent, doRequest(t, http.MethodDelete, ts.URL+"/games/G1").StatusCode)
	assert.Equal(t, http.StatusNotFound, doRequest(t, http.MethodGet, ts.URL+"/games/G1").StatusCode)
	assert.Equal(t, http.StatusNotFound, doRequest(t, http.MethodDelete, ts.URL+"/games/G1").StatusCode)
}

func TestMetricsEndpoints(t *testing.T) {
	ts := newTestServer(t)
	createGame(t, ts, `{"gameId":"G1","wordSet":"animals"}`)

	resp := doRequest(t, http.MethodGet, ts.URL+"/metrics")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "test_active_games 1")

	resp = doRequest(t, http.MethodGet, ts.URL+"/debug/vars")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestJoinBroadcastsToOthers(t *testing.T) {
	ts := newTestServer(t)
	createGame(t, ts, `{"gameId":"G1","maxPlayers":2,"wordSet":"animals"}`)

	alice := dial(t, ts)
	bob := dial(t, ts)

	comp := alice.invoke("Join", "G1", "alice")
	require.Nil(t, comp.Error)
	var aliceJoin models.JoinGameResponse
	require.NoError(t, json.Unmarshal(comp.Result, &aliceJoin))
	require.NotEmpty(t, aliceJoin.PersonalIdentifier)

	comp = bob.invoke("Join", "G1", "bob")
	require.Nil(t, comp.Error)
	var bobJoin models.JoinGameResponse
	require.NoError(t, json.Unmarshal(comp.Result, &bobJoin))
	assert.Len(t, bobJoin.Players, 2)
	assert.Equal(t, models.PlayerRecord{Name: "alice", IsConnected: true}, bobJoin.Players[aliceJoin.PersonalIdentifier])

	ev := alice.awaitEvent(coordinator.EventUserJoined)
	require.Len(t, ev.Arguments, 2)
	assert.JSONEq(t, `"bob"`, string(ev.Arguments[0]))
	assert.JSONEq(t, fmt.Sprintf("%q", bobJoin.PersonalIdentifier), string(ev.Arguments[1]))

	comp = alice.invoke("CheckGame", "G1")
	require.Nil(t, comp.Error)
	var check models.CheckGameResponse
	require.NoError(t, json.Unmarshal(comp.Result, &check))
	assert.Equal(t, 2, check.PlayerCount)
}

func TestInvocationFaults(t *testing.T) {
	ts := newTestServer(t)
	createGame(t, ts, `{"gameId":"G1","maxPlayers":1,"wordSet":"animals"}`)
	c := dial(t, ts)

	comp := c.invoke("Spin", "G1")
	require.NotNil(t, comp.Error)
	assert.Equal(t, CodeMethodNotFound, comp.Error.Code)

	comp = c.invoke("Join", "G1")
	require.NotNil(t, comp.Error)
	assert.Equal(t, CodeInvalidInvocation, comp.Error.Code)

	comp = c.invoke("Ready", "G1", "yes")
	require.NotNil(t, comp.Error)
	assert.Equal(t, CodeInvalidInvocation, comp.Error.Code)

	comp = c.invoke("Join", "missing", "alice")
	require.NotNil(t, comp.Error)
	assert.Equal(t, string(coordinator.CodeIdentifierError), comp.Error.Code)

	require.Nil(t, c.invoke("Join", "G1", "alice").Error)
	comp = dial(t, ts).invoke("Join", "G1", "bob")
	require.NotNil(t, comp.Error)
	assert.Equal(t, string(coordinator.CodeUserAddFailed), comp.Error.Code)

	c.writeFrame(network.MsgTypeInvocation, []byte("{"))
	comp = c.awaitCompletion("")
	require.NotNil(t, comp.Error)
	assert.Equal(t, CodeInvalidInvocation, comp.Error.Code)
}

func TestReadyStartsGame(t *testing.T) {
	ts := newTestServer(t)
	createGame(t, ts, `{"gameId":"G1","maxPlayers":2,"wordSet":"animals"}`)
	c := dial(t, ts)

	require.Nil(t, c.invoke("Join", "G1", "alice").Error)
	require.Nil(t, c.invoke("Ready", "G1", true).Error)

	ev := c.awaitEvent(coordinator.EventGameStateChanged)
	assert.JSONEq(t, fmt.Sprintf("%d", state.Starting), string(ev.Arguments[0]))
	ev = c.awaitEvent(coordinator.EventGameStarting)
	var startsAt int64
	require.NoError(t, json.Unmarshal(ev.Arguments[0], &startsAt))
	assert.Greater(t, startsAt, time.Now().Add(-time.Second).UnixMilli())

	ev = c.awaitEvent(coordinator.EventGameStateChanged)
	assert.JSONEq(t, fmt.Sprintf("%d", state.Started), string(ev.Arguments[0]))

	ev = c.awaitEvent(coordinator.EventStartRound)
	var round models.GameRound
	require.NoError(t, json.Unmarshal(ev.Arguments[0], &round))
	assert.Equal(t, "G1", round.GameID)
	assert.NotEmpty(t, round.Characters)
}

func TestDisconnectNotifiesGroup(t *testing.T) {
	ts := newTestServer(t)
	createGame(t, ts, `{"gameId":"G1","maxPlayers":2,"wordSet":"animals"}`)
	alice := dial(t, ts)
	bob := dial(t, ts)

	require.Nil(t, alice.invoke("Join", "G1", "alice").Error)
	comp := bob.invoke("Join", "G1", "bob")
	require.Nil(t, comp.Error)
	var bobJoin models.JoinGameResponse
	require.NoError(t, json.Unmarshal(comp.Result, &bobJoin))

	bob.conn.Close()

	ev := alice.awaitEvent(coordinator.EventUserLeft)
	assert.JSONEq(t, fmt.Sprintf("%q", bobJoin.PersonalIdentifier), string(ev.Arguments[0]))

	// a disconnected player can now be kicked
	require.Nil(t, alice.invoke("Kick", "G1", bobJoin.PersonalIdentifier).Error)
}

func TestHeartbeatIsEchoed(t *testing.T) {
	ts := newTestServer(t)
	c := dial(t, ts)

	c.writeFrame(network.MsgTypeHeartbeat, nil)
	packet := c.readPacket()
	assert.Equal(t, uint16(network.MsgTypeHeartbeat), packet.MsgID)
	assert.Empty(t, packet.Data)
}

func TestOversizedUsernameIsRejected(t *testing.T) {
	ts := newTestServer(t)
	createGame(t, ts, `{"gameId":"G1","maxPlayers":3,"wordSet":"animals"}`)
	alice := dial(t, ts)
	bob := dial(t, ts)

	comp := alice.invoke("Join", "G1", strings.Repeat("a", 40000))
	require.NotNil(t, comp.Error)
	assert.Equal(t, string(coordinator.CodeUserAddFailed), comp.Error.Code)

	comp = bob.invoke("Join", "G1", strings.Repeat("b", 40000))
	require.NotNil(t, comp.Error)
	assert.Equal(t, string(coordinator.CodeUserAddFailed), comp.Error.Code)

	comp = alice.invoke("CheckGame", "G1")
	require.Nil(t, comp.Error)
	var check models.CheckGameResponse
	require.NoError(t, json.Unmarshal(comp.Result, &check))
	assert.Equal(t, 0, check.PlayerCount)
}

type recordingConnection struct {
	packets []*network.Packet
}

func (c *recordingConnection) Send(msgID uint16, data []byte) error {
	if _, err := network.EncodeFrame(msgID, data); err != nil {
		return err
	}
	c.packets = append(c.packets, &network.Packet{MsgID: msgID, Data: data})
	return nil
}
func (c *recordingConnection) Close() error                         { return nil }
func (c *recordingConnection) RemoteAddr() net.Addr                 { return &net.TCPAddr{} }
func (c *recordingConnection) SetHeartbeat(time.Duration)           {}
func (c *recordingConnection) ReadPacket() (*network.Packet, error) { return nil, io.EOF }

func TestCompleteFallsBackWhenResultTooLarge(t *testing.T) {
	conn := &recordingConnection{}
	sess := session.NewSession("conn-1", conn)

	(&GameServer{}).complete(sess, "7", strings.Repeat("x", 70000), nil)

	require.Len(t, conn.packets, 1)
	assert.Equal(t, uint16(network.MsgTypeCompletion), conn.packets[0].MsgID)
	var comp wireCompletion
	require.NoError(t, json.Unmarshal(conn.packets[0].Data, &comp))
	assert.Equal(t, "7", comp.InvocationID)
	require.NotNil(t, comp.Error)
	assert.Equal(t, CodeResultTooLarge, comp.Error.Code)
	assert.Empty(t, comp.Result)
}

func TestListGames(t *testing.T) {
	ts := newTestServer(t)
	createGame(t, ts, `{"gameId":"G2","wordSet":"animals"}`)
	createGame(t, ts, `{"gameId":"G1","wordSet":"animals"}`)

	resp := doRequest(t, http.MethodGet, ts.URL+"/games")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list listGamesResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	assert.Equal(t, []string{"G1", "G2"}, list.GameIDs)
}
