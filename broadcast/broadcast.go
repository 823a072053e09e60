// broadcast/broadcast.go
package broadcast

import (
	"sync"

	"github.com/wfunc/vocabversus/logger"
	"github.com/wfunc/vocabversus/network"
	"github.com/wfunc/vocabversus/session"
)

// GroupBroadcaster delivers named events to groups of live connections. A
// group is keyed by game identifier; members are connection identifiers.
type GroupBroadcaster struct {
	sessionManager *session.Manager
	groups         map[string]map[string]struct{}
	mutex          sync.RWMutex
}

func NewGroupBroadcaster(sessionManager *session.Manager) *GroupBroadcaster {
	return &GroupBroadcaster{
		sessionManager: sessionManager,
		groups:         make(map[string]map[string]struct{}),
	}
}

func (b *GroupBroadcaster) AddToGroup(group, connectionID string) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	members, exists := b.groups[group]
	if !exists {
		members = make(map[string]struct{})
		b.groups[group] = members
	}
	members[connectionID] = struct{}{}
}

func (b *GroupBroadcaster) RemoveFromGroup(group, connectionID string) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	members, exists := b.groups[group]
	if !exists {
		return
	}
	delete(members, connectionID)
	if len(members) == 0 {
		delete(b.groups, group)
	}
}

func (b *GroupBroadcaster) RemoveGroup(group string) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	delete(b.groups, group)
}

// Members returns a copy of the group's connection ids.
func (b *GroupBroadcaster) Members(group string) []string {
	b.mutex.RLock()
	defer b.mutex.RUnlock()

	ids := make([]string, 0, len(b.groups[group]))
	for id := range b.groups[group] {
		ids = append(ids, id)
	}
	return ids
}

func (b *GroupBroadcaster) SendToGroup(group, event string, args ...interface{}) error {
	return b.SendToGroupExcept(group, "", event, args...)
}

// SendToGroupExcept sends to every member but excludeConnectionID. Delivery
// failures to single members are logged and skipped.
func (b *GroupBroadcaster) SendToGroupExcept(group, excludeConnectionID, event string, args ...interface{}) error {
	data, err := network.EncodeEvent(event, args...)
	if err != nil {
		return err
	}

	for _, id := range b.Members(group) {
		if id == excludeConnectionID {
			continue
		}
		b.deliver(id, event, data)
	}
	return nil
}

func (b *GroupBroadcaster) deliver(connectionID, event string, data []byte) {
	s, exists := b.sessionManager.Get(connectionID)
	if !exists {
		return
	}
	if err := s.Send(network.MsgTypeEvent, data); err != nil {
		logger.Log.Warnf("Dropped %s for connection %s: %v", event, connectionID, err)
	}
}
