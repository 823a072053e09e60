package room

import (
	"errors"
	"sync"
	"time"
)

var ErrRoomExists = errors.New("room already exists")

// Manager is the registry of live rooms. Its lock only guards the map; each
// room serializes its own operations.
type Manager struct {
	rooms map[string]*Room
	mutex sync.RWMutex
}

// NewRoomManager 创建一个新的房间管理器
func NewRoomManager() *Manager {
	return &Manager{
		rooms: make(map[string]*Room),
	}
}

// CreateRoom creates a room and registers it under id.
func (m *Manager) CreateRoom(id string, maxPlayers int, wordSet string) (*Room, error) {
	room := NewRoom(id, maxPlayers, wordSet)
	if err := m.Put(room); err != nil {
		return nil, err
	}
	return room, nil
}

func (m *Manager) Put(room *Room) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, exists := m.rooms[room.ID]; exists {
		return ErrRoomExists
	}
	m.rooms[room.ID] = room
	return nil
}

func (m *Manager) Get(id string) (*Room, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	room, exists := m.rooms[id]
	return room, exists
}

// Remove unregisters the room. The caller is responsible for closing it.
func (m *Manager) Remove(id string) (*Room, bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	room, exists := m.rooms[id]
	if exists {
		delete(m.rooms, id)
	}
	return room, exists
}

// RemoveRoom unregisters room only if it is still the one registered under
// its id, so a stale pointer never evicts a replacement.
func (m *Manager) RemoveRoom(room *Room) bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.rooms[room.ID] != room {
		return false
	}
	delete(m.rooms, room.ID)
	return true
}

func (m *Manager) Len() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.rooms)
}

// IDs lists the registered room ids in no particular order.
func (m *Manager) IDs() []string {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	ids := make([]string, 0, len(m.rooms))
	for id := range m.rooms {
		ids = append(ids, id)
	}
	return ids
}

// Idle lists rooms with no activity for longer than ttl. Rooms with connected
// players may be listed; CloseIfAbandoned makes the final call.
func (m *Manager) Idle(ttl time.Duration, now time.Time) []string {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var ids []string
	for id, room := range m.rooms {
		if now.Sub(room.LastActive()) > ttl {
			ids = append(ids, id)
		}
	}
	return ids
}
