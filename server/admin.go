package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/wfunc/vocabversus/coordinator"
	"github.com/wfunc/vocabversus/logger"
	"github.com/wfunc/vocabversus/models"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type createGameResponse struct {
	GameID string `json:"gameId"`
}

type listGamesResponse struct {
	GameIDs []string `json:"gameIds"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Log.Warnf("Writing response failed: %v", err)
	}
}

// writeFault maps a coordinator fault onto an HTTP status.
func writeFault(w http.ResponseWriter, err error) {
	f := coordinator.AsFault(err)
	status := http.StatusInternalServerError
	switch f.Code {
	case coordinator.CodeIdentifierError:
		status = http.StatusNotFound
	case coordinator.CodeActionNotAllowed, coordinator.CodeUserAddFailed:
		status = http.StatusConflict
	}
	writeJSON(w, status, errorResponse{Code: string(f.Code), Message: f.Message})
}

func (s *GameServer) handleCreateGame(w http.ResponseWriter, r *http.Request) {
	var req models.CreateGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Code: CodeInvalidInvocation, Message: "malformed request body"})
		return
	}

	id, err := s.coordinator.CreateGame(r.Context(), req)
	if err != nil {
		if errors.Is(err, coordinator.ErrInvalidGame) {
			writeJSON(w, http.StatusBadRequest, errorResponse{Code: "InvalidGame", Message: err.Error()})
			return
		}
		logger.Log.Errorf("Creating game failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Code: "InternalError", Message: "could not create game"})
		return
	}
	writeJSON(w, http.StatusCreated, createGameResponse{GameID: id})
}

func (s *GameServer) handleListGames(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, listGamesResponse{GameIDs: s.coordinator.ListGames(r.Context())})
}

func (s *GameServer) handleCheckGame(w http.ResponseWriter, r *http.Request) {
	resp, err := s.coordinator.CheckAvailability(r.Context(), mux.Vars(r)["gameID"])
	if err != nil {
		writeFault(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *GameServer) handleRemoveGame(w http.ResponseWriter, r *http.Request) {
	if err := s.coordinator.RemoveGame(r.Context(), mux.Vars(r)["gameID"]); err != nil {
		writeFault(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
