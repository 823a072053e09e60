package session

import (
	"errors"
	"net"
	"sort"
	"testing"
	"time"

	"github.com/wfunc/vocabversus/network"
)

// MockConnection is a test double for the network.Connection interface.
type MockConnection struct{}

func (m *MockConnection) Send(msgID uint16, data []byte) error { return nil }
func (m *MockConnection) Close() error                         { return nil }
func (m *MockConnection) RemoteAddr() net.Addr                 { return &net.TCPAddr{} }
func (m *MockConnection) SetHeartbeat(interval time.Duration)  {}
func (m *MockConnection) ReadPacket() (*network.Packet, error) { return nil, nil }

func TestNewManager(t *testing.T) {
	manager := NewManager()
	if manager == nil {
		t.Fatal("NewManager should not return nil")
	}
	if manager.sessions == nil {
		t.Fatal("NewManager should initialize the sessions map")
	}
}

func TestManager_Add_Get_Remove(t *testing.T) {
	manager := NewManager()
	sessionID := "test_session_1"
	sess := NewSession(sessionID, &MockConnection{})

	manager.Add(sess)
	if manager.Len() != 1 {
		t.Fatalf("Expected session count to be 1, got %d", manager.Len())
	}

	retrievedSess, exists := manager.Get(sessionID)
	if !exists {
		t.Fatal("Get should find the added session")
	}
	if retrievedSess != sess {
		t.Fatal("Get should return the same session instance")
	}

	if all := manager.All(); len(all) != 1 || all[0] != sess {
		t.Fatalf("All should return the single session, got %v", all)
	}

	manager.Remove(sessionID)
	if manager.Len() != 0 {
		t.Fatalf("Expected session count to be 0 after removal, got %d", manager.Len())
	}

	if _, exists = manager.Get(sessionID); exists {
		t.Fatal("Get should not find the removed session")
	}
}

func TestSession_Touch(t *testing.T) {
	sess := NewSession("s1", &MockConnection{})
	before := sess.LastActive()

	time.Sleep(2 * time.Millisecond)
	sess.Touch()

	if !sess.LastActive().After(before) {
		t.Error("Touch should advance LastActive")
	}
}

func TestIndex_RegisterLookupRemove(t *testing.T) {
	index := NewIndex()
	pc := PlayerConnection{ConnectionID: "c1", GameID: "G1", PlayerID: "c1"}

	if err := index.Register(pc); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	got, ok := index.Lookup("c1")
	if !ok || got != pc {
		t.Fatalf("Lookup returned %+v, %v", got, ok)
	}

	index.Remove("c1")
	if _, ok := index.Lookup("c1"); ok {
		t.Error("Lookup should miss after Remove")
	}
	index.Remove("c1")
}

func TestIndex_OneMappingPerConnection(t *testing.T) {
	index := NewIndex()
	index.Register(PlayerConnection{ConnectionID: "c1", GameID: "G1", PlayerID: "c1"})

	err := index.Register(PlayerConnection{ConnectionID: "c1", GameID: "G2", PlayerID: "c1"})
	if !errors.Is(err, ErrAlreadyRegistered) {
		t.Errorf("Expected ErrAlreadyRegistered, got %v", err)
	}

	got, _ := index.Lookup("c1")
	if got.GameID != "G1" {
		t.Errorf("Existing mapping must be kept, got game %s", got.GameID)
	}
}

func TestIndex_RemoveGame(t *testing.T) {
	index := NewIndex()
	index.Register(PlayerConnection{ConnectionID: "c1", GameID: "G1", PlayerID: "c1"})
	index.Register(PlayerConnection{ConnectionID: "c2", GameID: "G1", PlayerID: "c2"})
	index.Register(PlayerConnection{ConnectionID: "c3", GameID: "G2", PlayerID: "c3"})

	removed := index.RemoveGame("G1")
	sort.Strings(removed)
	if len(removed) != 2 || removed[0] != "c1" || removed[1] != "c2" {
		t.Errorf("Unexpected removed set: %v", removed)
	}
	if index.Len() != 1 {
		t.Errorf("Expected 1 remaining mapping, got %d", index.Len())
	}
}
