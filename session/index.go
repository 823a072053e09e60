package session

import (
	"errors"
	"sync"
)

var ErrAlreadyRegistered = errors.New("connection already registered")

// PlayerConnection ties a transport connection to the roster entry it joined.
type PlayerConnection struct {
	ConnectionID string
	GameID       string
	PlayerID     string
}

// Index resolves connection identifiers back to roster entries, e.g. when a
// connection drops without a goodbye.
type Index struct {
	connections map[string]PlayerConnection
	mutex       sync.RWMutex
}

func NewIndex() *Index {
	return &Index{
		connections: make(map[string]PlayerConnection),
	}
}

// Register adds a mapping. A connection maps to at most one game.
func (i *Index) Register(pc PlayerConnection) error {
	i.mutex.Lock()
	defer i.mutex.Unlock()

	if _, exists := i.connections[pc.ConnectionID]; exists {
		return ErrAlreadyRegistered
	}
	i.connections[pc.ConnectionID] = pc
	return nil
}

func (i *Index) Lookup(connectionID string) (PlayerConnection, bool) {
	i.mutex.RLock()
	defer i.mutex.RUnlock()

	pc, exists := i.connections[connectionID]
	return pc, exists
}

func (i *Index) Remove(connectionID string) {
	i.mutex.Lock()
	defer i.mutex.Unlock()
	delete(i.connections, connectionID)
}

// RemoveGame drops every mapping into gameID and returns the connection ids.
func (i *Index) RemoveGame(gameID string) []string {
	i.mutex.Lock()
	defer i.mutex.Unlock()

	var removed []string
	for id, pc := range i.connections {
		if pc.GameID == gameID {
			delete(i.connections, id)
			removed = append(removed, id)
		}
	}
	return removed
}

func (i *Index) Len() int {
	i.mutex.RLock()
	defer i.mutex.RUnlock()
	return len(i.connections)
}
