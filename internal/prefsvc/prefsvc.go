// Package prefsvc implements the PreferenceServicesManager: it bridges
// per-account preference changes to plugin-supplied PreferenceHandlers.
package prefsvc

import (
	"strings"
	"sync"

	"github.com/ringphone/pluginhost/internal/manager"
	"github.com/ringphone/pluginhost/pkg/pluginapi"
)

type handlerEntry struct {
	id         string
	pluginPath string
	handler    pluginapi.PreferenceHandler
}

// Manager implements the PreferenceServicesManager.
type Manager struct {
	// guard serialises handler registration and destruction. It is the
	// mutex passed to New (internal/host creates one of its own); it is
	// not the plugin manager's internal lock, and SetPreference,
	// ResetPreferences and the getters do not take it.
	guard *sync.Mutex

	mu       sync.RWMutex
	handlers []handlerEntry
}

// New constructs an empty PreferenceServicesManager, guarded by guard.
func New(guard *sync.Mutex) *Manager {
	if guard == nil {
		guard = &sync.Mutex{}
	}
	return &Manager{guard: guard}
}

// RegisterComponents registers this manager's component life-cycle
// callbacks with the plugin manager under kind PreferenceHandlerManager.
func (m *Manager) RegisterComponents(mgr *manager.Manager) {
	mgr.RegisterComponentManager(pluginapi.KindPreferenceHandler, manager.ComponentManager{
		TakeOwnership: m.takeOwnership,
		Destroy:       m.destroy,
	})
}

func (m *Manager) takeOwnership(pluginPath string, data any) (string, error) {
	h, ok := data.(pluginapi.PreferenceHandler)
	if !ok {
		return "", errNotAHandler
	}

	m.guard.Lock()
	defer m.guard.Unlock()

	name := h.GetDetails()["pluginId"]
	if name == "" {
		name = "prefhandler"
	}
	id := pluginPath + "#" + name

	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers = append(m.handlers, handlerEntry{id: id, pluginPath: pluginPath, handler: h})
	return id, nil
}

func (m *Manager) destroy(id string) {
	m.guard.Lock()
	defer m.guard.Unlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	for i, he := range m.handlers {
		if he.id == id {
			m.handlers = append(m.handlers[:i], m.handlers[i+1:]...)
			return
		}
	}
}

// SetPreference traverses handlers whose id starts with rootPath; the
// first one claiming the key via PreferenceMapHasKey gets the change
// (plugins are expected to own at most one preference handler per root).
func (m *Manager) SetPreference(key, value, rootPath, accountID string) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, he := range m.handlers {
		if !strings.HasPrefix(he.id, rootPath) {
			continue
		}
		if he.handler.PreferenceMapHasKey(key) {
			he.handler.SetPreferenceAttribute(accountID, key, value)
			return
		}
	}
}

// ResetPreferences traverses handlers whose id starts with rootPath and
// resets each one's preferences for accountID.
func (m *Manager) ResetPreferences(rootPath, accountID string) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, he := range m.handlers {
		if strings.HasPrefix(he.id, rootPath) {
			he.handler.ResetPreferenceAttributes(accountID)
		}
	}
}

// GetHandlers enumerates every registered handler id.
func (m *Manager) GetHandlers() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.handlers))
	for i, he := range m.handlers {
		out[i] = he.id
	}
	return out
}

// GetHandlerDetails delegates to the handler; an unknown id yields empty
// details.
func (m *Manager) GetHandlerDetails(id string) map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, he := range m.handlers {
		if he.id == id {
			return he.handler.GetDetails()
		}
	}
	return map[string]string{}
}
