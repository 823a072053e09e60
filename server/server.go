package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/wfunc/vocabversus/coordinator"
	"github.com/wfunc/vocabversus/logger"
	"github.com/wfunc/vocabversus/monitor"
	"github.com/wfunc/vocabversus/network"
	"github.com/wfunc/vocabversus/session"
)

type GameServer struct {
	addr           string
	heartbeat      time.Duration
	upgrader       websocket.Upgrader
	router         *mux.Router
	httpServer     *http.Server
	coordinator    *coordinator.Coordinator
	sessionManager *session.Manager
	monitor        *monitor.Monitor
	handlers       map[string]invocationHandler
	shutdownChan   chan struct{}
	shutdownOnce   sync.Once
}

// NewGameServer wires the websocket endpoint, the admin API and the metrics
// endpoints onto one router. sessionManager must be the one the coordinator's
// broadcaster delivers through.
func NewGameServer(addr string, heartbeat time.Duration, coord *coordinator.Coordinator,
	sessionManager *session.Manager, mon *monitor.Monitor, gatherer prometheus.Gatherer) *GameServer {
	s := &GameServer{
		addr:           addr,
		heartbeat:      heartbeat,
		coordinator:    coord,
		sessionManager: sessionManager,
		monitor:        mon,
		shutdownChan:   make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // 允许所有跨域请求
			},
		},
	}
	s.handlers = s.invocationHandlers()

	r := mux.NewRouter()
	r.HandleFunc("/game", s.handleWebSocket)
	r.HandleFunc("/games", s.handleListGames).Methods(http.MethodGet)
	r.HandleFunc("/games", s.handleCreateGame).Methods(http.MethodPost)
	r.HandleFunc("/games/{gameID}", s.handleCheckGame).Methods(http.MethodGet)
	r.HandleFunc("/games/{gameID}", s.handleRemoveGame).Methods(http.MethodDelete)
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	r.Handle("/debug/vars", mon.ExpvarHandler())
	s.router = r

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler exposes the router, mainly for httptest.
func (s *GameServer) Handler() http.Handler {
	return s.router
}

// Start blocks serving HTTP until Shutdown.
func (s *GameServer) Start() error {
	logger.Log.Infof("Game server listening on %s", s.addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and closes every live connection, which
// runs the normal disconnect path for each of them.
func (s *GameServer) Shutdown(ctx context.Context) error {
	s.shutdownOnce.Do(func() { close(s.shutdownChan) })
	err := s.httpServer.Shutdown(ctx)
	for _, sess := range s.sessionManager.All() {
		sess.Close()
	}
	return err
}

func (s *GameServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Infof("Failed to upgrade connection: %v", err)
		return
	}
	s.handleConnection(network.NewWSConnection(conn))
}

func (s *GameServer) handleConnection(conn network.Connection) {
	sess := session.NewSession(uuid.New().String(), conn)
	s.sessionManager.Add(sess)
	if s.heartbeat > 0 {
		conn.SetHeartbeat(s.heartbeat)
	}

	logger.Log.Infof("New connection from %s, session ID: %s", conn.RemoteAddr(), sess.GetID())

	defer func() {
		logger.Log.Infof("Connection closed from %s, session ID: %s", conn.RemoteAddr(), sess.GetID())
		s.coordinator.OnDisconnect(context.Background(), sess.GetID())
		s.sessionManager.Remove(sess.GetID())
		conn.Close()
	}()

	for {
		select {
		case <-s.shutdownChan:
			return
		default:
		}

		packet, err := conn.ReadPacket()
		if err != nil {
			return
		}
		sess.Touch()
		s.handlePacket(sess, packet)
	}
}

func (s *GameServer) handlePacket(sess *session.Session, packet *network.Packet) {
	switch packet.MsgID {
	case network.MsgTypeHeartbeat:
		if err := sess.Send(network.MsgTypeHeartbeat, nil); err != nil {
			logger.Log.Warnf("Heartbeat reply to %s failed: %v", sess.GetID(), err)
		}
	case network.MsgTypeInvocation:
		s.handleInvocation(sess, packet.Data)
	default:
		logger.Log.Infof("Unknown message type %d from %s", packet.MsgID, sess.GetID())
	}
}
