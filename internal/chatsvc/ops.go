package chatsvc

import (
	"github.com/ringphone/pluginhost/pkg/pluginapi"
	"github.com/ringphone/pluginhost/pkg/subject"
)

// PublishMessage is the entry point the host calls for every incoming or
// outgoing chat message. Messages with FromPlugin set are ignored to
// prevent attach/publish loops. Otherwise every handler's
// attach decision is recomputed and the message is published on the
// conversation's subject.
func (m *Manager) PublishMessage(msg pluginapi.Message) {
	if msg.FromPlugin {
		return
	}
	key := ConversationKey{AccountID: msg.AccountID, PeerID: msg.PeerID}

	m.mu.RLock()
	type candidate struct {
		id         string
		pluginPath string
		name       string
	}
	var candidates []candidate
	for _, he := range m.handlers {
		candidates = append(candidates, candidate{id: he.id, pluginPath: he.pluginPath, name: he.handler.GetDetails()["name"]})
	}
	m.mu.RUnlock()

	for _, c := range candidates {
		always := m.always != nil && m.always.IsAlways(c.pluginPath, c.name)
		allow := m.isInSet(m.allow, key, c.name)
		deny := m.isInSet(m.deny, key, c.name)

		m.mu.RLock()
		active := m.active[key] != nil && m.active[key][c.id]
		m.mu.RUnlock()

		if (always || allow || active) && !deny {
			m.attach(c.id, c.name, key)
		}
	}

	sub := m.subjectFor(key, true)
	sub.Publish(msg)
}

// ToggleChatHandler attaches or detaches handlerID for (accountID,
// peerID), persisting the allow/deny lists after the change.
func (m *Manager) ToggleChatHandler(handlerID, accountID, peerID string, on bool) {
	key := ConversationKey{AccountID: accountID, PeerID: peerID}

	m.mu.RLock()
	var he *handlerEntry
	for i := range m.handlers {
		if m.handlers[i].id == handlerID {
			he = &m.handlers[i]
			break
		}
	}
	m.mu.RUnlock()
	if he == nil {
		return
	}
	name := he.handler.GetDetails()["name"]

	sub := m.subjectFor(key, true)

	if on {
		he.handler.NotifyChatSubject(accountID, peerID, sub)
		m.mu.Lock()
		m.setActive(key, handlerID, true)
		m.addToSet(m.allow, key, name)
		m.removeFromSet(m.deny, key, name)
		m.mu.Unlock()
	} else {
		he.handler.Detach(sub)
		m.mu.Lock()
		m.setActive(key, handlerID, false)
		m.removeFromSet(m.allow, key, name)
		m.addToSet(m.deny, key, name)
		m.mu.Unlock()
	}

	m.persist()
	m.notifyStatus(key)
}

func (m *Manager) attach(handlerID, name string, key ConversationKey) {
	m.mu.RLock()
	var he *handlerEntry
	for i := range m.handlers {
		if m.handlers[i].id == handlerID {
			he = &m.handlers[i]
			break
		}
	}
	m.mu.RUnlock()
	if he == nil {
		return
	}

	sub := m.subjectFor(key, true)
	he.handler.NotifyChatSubject(key.AccountID, key.PeerID, sub)

	m.mu.Lock()
	m.setActive(key, handlerID, true)
	m.addToSet(m.allow, key, name)
	m.mu.Unlock()

	m.persist()
	m.notifyStatus(key)
}

// CleanChatSubjects erases subjects matching accountID (and peerID, if
// given). The allow/deny lists are untouched since they outlive subjects.
func (m *Manager) CleanChatSubjects(accountID, peerID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.subjects {
		if k.AccountID != accountID {
			continue
		}
		if peerID != "" && k.PeerID != peerID {
			continue
		}
		delete(m.subjects, k)
	}
}

// GetChatHandlerStatus returns the allow-set for (accountID, peerID)
// mapped through the name->id index.
func (m *Manager) GetChatHandlerStatus(accountID, peerID string) []string {
	key := ConversationKey{AccountID: accountID, PeerID: peerID}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []string
	for name := range m.allow[key] {
		if id, ok := m.nameToID[name]; ok {
			out = append(out, id)
		}
	}
	return out
}

// Subscribe returns a channel receiving the handler status for
// (accountID, peerID), as GetChatHandlerStatus reports it, after every
// ToggleChatHandler call and every attach made by PublishMessage, for a
// UI-agnostic status broadcast. The channel buffers one value; a send
// that finds it full is dropped. Handler destruction sends nothing.
func (m *Manager) Subscribe(accountID, peerID string) <-chan []string {
	key := ConversationKey{AccountID: accountID, PeerID: peerID}
	ch := make(chan []string, 1)
	m.statusMu.Lock()
	m.statusSubs[key] = append(m.statusSubs[key], ch)
	m.statusMu.Unlock()
	return ch
}

func (m *Manager) notifyStatus(key ConversationKey) {
	m.statusMu.Lock()
	subs := append([]chan []string(nil), m.statusSubs[key]...)
	m.statusMu.Unlock()
	if len(subs) == 0 {
		return
	}
	status := m.GetChatHandlerStatus(key.AccountID, key.PeerID)
	for _, ch := range subs {
		select {
		case ch <- status:
		default:
		}
	}
}

func (m *Manager) subjectFor(key ConversationKey, create bool) *subject.Subject[pluginapi.Message] {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subjects[key]
	if !ok && create {
		s = subject.New[pluginapi.Message]()
		m.subjects[key] = s
	}
	return s
}

func (m *Manager) isInSet(sets map[ConversationKey]map[string]bool, key ConversationKey, name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return sets[key] != nil && sets[key][name]
}

func (m *Manager) setActive(key ConversationKey, id string, on bool) {
	set, ok := m.active[key]
	if !ok {
		set = make(map[string]bool)
		m.active[key] = set
	}
	if on {
		set[id] = true
	} else {
		delete(set, id)
	}
}

func (m *Manager) addToSet(sets map[ConversationKey]map[string]bool, key ConversationKey, name string) {
	if name == "" {
		return
	}
	set, ok := sets[key]
	if !ok {
		set = make(map[string]bool)
		sets[key] = set
	}
	set[name] = true
}

func (m *Manager) removeFromSet(sets map[ConversationKey]map[string]bool, key ConversationKey, name string) {
	if set, ok := sets[key]; ok {
		delete(set, name)
	}
}
