package rpc

import (
	"context"
	"errors"
	"net"
	"net/rpc"

	"github.com/wfunc/vocabversus/coordinator"
	"github.com/wfunc/vocabversus/logger"
	"github.com/wfunc/vocabversus/models"
)

// Server manages the RPC listener.
type Server struct {
	listener net.Listener
	rpc      *rpc.Server
}

// NewServer listens on addr and serves the given GameService.
func NewServer(addr string, service *GameService) (*Server, error) {
	srv := rpc.NewServer()
	if err := srv.Register(service); err != nil {
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

// Addr is the bound listener address.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Start begins listening for RPC requests.
func (s *Server) Start() {
	logger.Log.Infof("RPC server listening on %s", s.Addr())
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
	if s.listener != nil {
		logger.Log.Info("Stopping RPC server.")
		s.listener.Close()
	}
}

// GameService exposes game administration to back-office tools.
// Methods follow the net/rpc signature: exported args, pointer reply, error.
type GameService struct {
	coordinator *coordinator.Coordinator
}

func NewGameService(c *coordinator.Coordinator) *GameService {
	return &GameService{coordinator: c}
}

type CreateGameArgs struct {
	GameID     string
	MaxPlayers int
	WordSet    string
}

type CreateGameReply struct {
	GameID string
}

type GameArgs struct {
	GameID string
}

type RemoveGameReply struct{}

type ListGamesArgs struct{}

type ListGamesReply struct {
	GameIDs []string
}

func (gs *GameService) CreateGame(args *CreateGameArgs, reply *CreateGameReply) error {
	id, err := gs.coordinator.CreateGame(context.Background(), models.CreateGameRequest{
		GameID:     args.GameID,
		MaxPlayers: args.MaxPlayers,
		WordSet:    args.WordSet,
	})
	if err != nil {
		return err
	}
	reply.GameID = id
	return nil
}

func (gs *GameService) RemoveGame(args *GameArgs, reply *RemoveGameReply) error {
	return gs.coordinator.RemoveGame(context.Background(), args.GameID)
}

func (gs *GameService) CheckGame(args *GameArgs, reply *models.CheckGameResponse) error {
	resp, err := gs.coordinator.CheckAvailability(context.Background(), args.GameID)
	if err != nil {
		return err
	}
	*reply = *resp
	return nil
}

func (gs *GameService) ListGames(args *ListGamesArgs, reply *ListGamesReply) error {
	reply.GameIDs = gs.coordinator.ListGames(context.Background())
	return nil
}
