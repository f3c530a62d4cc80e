// Package chatsvc implements the ChatServicesManager: it bridges
// per-conversation message subjects with plugin-supplied ChatHandlers,
// and persists the allow/deny list that records user intent across
// plugin reloads and daemon restarts.
package chatsvc

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/ringphone/pluginhost/internal/manager"
	"github.com/ringphone/pluginhost/pkg/pluginapi"
	"github.com/ringphone/pluginhost/pkg/subject"
)

// ConversationKey identifies a conversation by account and peer.
type ConversationKey struct {
	AccountID string
	PeerID    string
}

// AllowDenyStore persists the allow/deny lists; internal/prefstore
// implements it.
type AllowDenyStore interface {
	Load() (allow, deny map[ConversationKey]map[string]bool, err error)
	Save(allow, deny map[ConversationKey]map[string]bool) error
}

// AlwaysPreference reports whether a handler's synthesised "always"
// preference is enabled; internal/prefstore implements it. rootPath is
// the owning plugin's installed data-dir path.
type AlwaysPreference interface {
	IsAlways(rootPath, handlerName string) bool
	EnsureAlwaysPreference(rootPath, handlerName string) error
}

type handlerEntry struct {
	id         string
	pluginPath string
	handler    pluginapi.ChatHandler
}

// Manager implements the ChatServicesManager.
type Manager struct {
	mu sync.RWMutex

	handlers []handlerEntry
	nameToID map[string]string
	active   map[ConversationKey]map[string]bool
	subjects map[ConversationKey]*subject.Subject[pluginapi.Message]
	allow    map[ConversationKey]map[string]bool
	deny     map[ConversationKey]map[string]bool

	statusMu   sync.Mutex
	statusSubs map[ConversationKey][]chan []string

	store  AllowDenyStore
	always AlwaysPreference

	sendText func(accountID, peerID string, body map[string]string) error
}

// New constructs an empty ChatServicesManager.
func New(store AllowDenyStore, always AlwaysPreference, sendText func(accountID, peerID string, body map[string]string) error) *Manager {
	return &Manager{
		nameToID:   make(map[string]string),
		active:     make(map[ConversationKey]map[string]bool),
		subjects:   make(map[ConversationKey]*subject.Subject[pluginapi.Message]),
		allow:      make(map[ConversationKey]map[string]bool),
		deny:       make(map[ConversationKey]map[string]bool),
		statusSubs: make(map[ConversationKey][]chan []string),
		store:      store,
		always:     always,
		sendText:   sendText,
	}
}

// RegisterComponents registers this manager's component life-cycle
// callbacks with the plugin manager under kind ChatHandlerManager, and
// registers the "sendTextMessage" service plugins use to inject messages.
func (m *Manager) RegisterComponents(mgr *manager.Manager) {
	mgr.RegisterComponentManager(pluginapi.KindChatHandler, manager.ComponentManager{
		TakeOwnership: m.takeOwnership,
		Destroy:       m.destroy,
	})
	mgr.RegisterService("sendTextMessage", m.sendTextMessageService)
}

func (m *Manager) sendTextMessageService(_ *pluginapi.Plugin, data any) int32 {
	req, ok := data.(*pluginapi.Message)
	if !ok || m.sendText == nil {
		return -1
	}
	req.FromPlugin = true
	if err := m.sendText(req.AccountID, req.PeerID, req.Body); err != nil {
		return -1
	}
	return 0
}

func (m *Manager) takeOwnership(pluginPath string, data any) (string, error) {
	h, ok := data.(pluginapi.ChatHandler)
	if !ok {
		return "", errors.New("chatsvc: component is not a ChatHandler")
	}

	details := h.GetDetails()
	name := details["name"]

	m.mu.Lock()
	if name != "" {
		if _, dup := m.nameToID[name]; dup {
			m.mu.Unlock()
			return "", errors.Errorf("chatsvc: handler name %q already registered", name)
		}
	}
	handlerName := name
	if handlerName == "" {
		handlerName = "handler"
	}
	id := pluginPath + "#" + handlerName
	m.handlers = append(m.handlers, handlerEntry{id: id, pluginPath: pluginPath, handler: h})
	if name != "" {
		m.nameToID[name] = id
	}
	m.mu.Unlock()

	if m.always != nil && name != "" {
		if err := m.always.EnsureAlwaysPreference(pluginPath, name); err != nil {
			return "", errors.Wrap(err, "chatsvc: ensure always preference")
		}
	}
	return id, nil
}

func (m *Manager) destroy(id string) {
	m.mu.Lock()
	idx := -1
	for i, he := range m.handlers {
		if he.id == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		m.mu.Unlock()
		return
	}
	he := m.handlers[idx]
	subs := make(map[ConversationKey]*subject.Subject[pluginapi.Message], len(m.subjects))
	for k, v := range m.subjects {
		subs[k] = v
	}
	m.mu.Unlock()

	for _, s := range subs {
		he.handler.Detach(s)
	}

	m.mu.Lock()
	m.handlers = append(m.handlers[:idx], m.handlers[idx+1:]...)
	for name, hid := range m.nameToID {
		if hid == id {
			delete(m.nameToID, name)
		}
	}
	for _, set := range m.active {
		delete(set, id)
	}
	for _, set := range m.allow {
		delete(set, he.handler.GetDetails()["name"])
	}
	for _, set := range m.deny {
		delete(set, he.handler.GetDetails()["name"])
	}
	m.mu.Unlock()

	m.persist()
}

// LoadAllowDenyListsFromStore reads persisted allow/deny lists at
// manager startup so activation decisions are stable across restarts. A
// missing persisted file yields empty lists rather than an error.
func (m *Manager) LoadAllowDenyListsFromStore() error {
	if m.store == nil {
		return nil
	}
	allow, deny, err := m.store.Load()
	if err != nil {
		return errors.Wrap(err, "chatsvc: load allow/deny lists")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if allow != nil {
		m.allow = allow
	}
	if deny != nil {
		m.deny = deny
	}
	return nil
}

func (m *Manager) persist() {
	if m.store == nil {
		return
	}
	m.mu.RLock()
	allow := cloneSet(m.allow)
	deny := cloneSet(m.deny)
	m.mu.RUnlock()
	if err := m.store.Save(allow, deny); err != nil {
		// Preference persistence failures are not fatal: the in-memory
		// decision still stands for the current session.
		_ = err
	}
}

func cloneSet(m map[ConversationKey]map[string]bool) map[ConversationKey]map[string]bool {
	out := make(map[ConversationKey]map[string]bool, len(m))
	for k, v := range m {
		cp := make(map[string]bool, len(v))
		for n := range v {
			cp[n] = true
		}
		out[k] = cp
	}
	return out
}
