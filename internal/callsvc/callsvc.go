// Package callsvc implements the CallServicesManager: it bridges
// per-call frame subjects with plugin-supplied CallMediaHandlers.
package callsvc

import (
	"sync"
	"weak"

	"github.com/ringphone/pluginhost/internal/manager"
	"github.com/ringphone/pluginhost/pkg/pluginapi"
	"github.com/ringphone/pluginhost/pkg/subject"
)

// RestartSender is called when a video handler has attached to or
// detached from a call's subject and the host should ask the call to
// restart its video RTP sender. It is never called on the Android
// client (see New's isAndroid).
type RestartSender func(callID string)

type handlerEntry struct {
	id         string
	pluginPath string
	handler    pluginapi.CallMediaHandler
}

type subjectEntry struct {
	sd  pluginapi.StreamData
	sub weak.Pointer[subject.Subject[[]byte]]
}

// Manager implements the CallServicesManager.
type Manager struct {
	mu sync.RWMutex

	handlers    []handlerEntry
	nameToID    map[string]string
	active      map[string]map[string]bool // callID -> handlerID set
	subjects    []subjectEntry
	isAndroid   bool
	restartSend RestartSender
}

// New constructs an empty CallServicesManager. restartSender is invoked
// after toggleCallMediaHandler attaches/detaches a video handler, unless
// isAndroid is true.
func New(isAndroid bool, restartSender RestartSender) *Manager {
	return &Manager{
		nameToID: make(map[string]string),
		active:   make(map[string]map[string]bool),
		isAndroid: isAndroid,
		restartSend: restartSender,
	}
}

// RegisterComponents registers this manager's component life-cycle
// callbacks with the plugin manager under kind CallMediaHandlerManager.
func (m *Manager) RegisterComponents(mgr *manager.Manager) {
	mgr.RegisterComponentManager(pluginapi.KindCallMediaHandler, manager.ComponentManager{
		TakeOwnership: m.takeOwnership,
		Destroy:       m.destroy,
	})
}

func (m *Manager) takeOwnership(pluginPath string, data any) (string, error) {
	h, ok := data.(pluginapi.CallMediaHandler)
	if !ok {
		return "", errNotAHandler
	}

	details := h.GetDetails()
	name := details["name"]

	m.mu.Lock()
	defer m.mu.Unlock()

	if name != "" {
		if _, dup := m.nameToID[name]; dup {
			return "", errDuplicateName(name)
		}
	}

	id := componentID(pluginPath, name)

	m.handlers = append(m.handlers, handlerEntry{id: id, pluginPath: pluginPath, handler: h})
	if name != "" {
		m.nameToID[name] = id
	}
	return id, nil
}

// destroy detaches the handler from every live subject it is attached to
// and removes it from all bookkeeping, giving the plugin a chance to
// clean up before the library is unloaded.
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
	subs := append([]subjectEntry(nil), m.subjects...)
	m.mu.Unlock()

	for _, se := range subs {
		if s := se.sub.Value(); s != nil {
			he.handler.Detach(s)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers = append(m.handlers[:idx], m.handlers[idx+1:]...)
	for name, hid := range m.nameToID {
		if hid == id {
			delete(m.nameToID, name)
		}
	}
	for _, set := range m.active {
		delete(set, id)
	}
}

// CreateAVSubject records a new subject for streamData and decides, for
// every registered handler, whether it should auto-attach: handlers whose
// "always" preference is set, or whose id is already in the call's active
// set (reactivation after subject recreation).
func (m *Manager) CreateAVSubject(sd pluginapi.StreamData, sub *subject.Subject[[]byte], alwaysOn func(handlerID string) bool) {
	m.mu.Lock()
	m.subjects = append(m.subjects, subjectEntry{sd: sd, sub: weak.Make(sub)})
	ids := make([]string, len(m.handlers))
	for i, he := range m.handlers {
		ids[i] = he.id
	}
	active := m.active[sd.CallID]
	m.mu.Unlock()

	for _, id := range ids {
		always := alwaysOn != nil && alwaysOn(id)
		reactivate := active != nil && active[id]
		if always || reactivate {
			m.ToggleCallMediaHandler(id, sd.CallID, true)
		}
	}
}

// ClearAVSubject removes every subject entry recorded for callID.
func (m *Manager) ClearAVSubject(callID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.subjects[:0]
	for _, se := range m.subjects {
		if se.sd.CallID != callID {
			out = append(out, se)
		}
	}
	m.subjects = out
}

// ToggleCallMediaHandler attaches or detaches handlerID from every
// subject recorded for callID, in subject insertion order. After every
// subject has been processed, if any affected subject was video and the
// handler reports a video dataType, the restart-sender callback is
// invoked once (skipped on the Android client).
func (m *Manager) ToggleCallMediaHandler(handlerID, callID string, on bool) {
	m.mu.RLock()
	var he handlerEntry
	found := false
	for _, e := range m.handlers {
		if e.id == handlerID {
			he = e
			found = true
			break
		}
	}
	subs := append([]subjectEntry(nil), m.subjects...)
	m.mu.RUnlock()
	if !found {
		return
	}

	restart := false
	for _, se := range subs {
		if se.sd.CallID != callID {
			continue
		}
		s := se.sub.Value()
		if s == nil {
			continue
		}

		if on {
			he.handler.NotifyAVFrameSubject(se.sd, s)
			details := he.handler.GetDetails()
			if details["attached"] == "1" {
				m.markActive(callID, handlerID, true)
			}
			if se.sd.Type == pluginapi.Video && details["dataType"] == "1" {
				restart = true
			}
		} else {
			details := he.handler.GetDetails()
			he.handler.Detach(s)
			m.markActive(callID, handlerID, false)
			if se.sd.Type == pluginapi.Video && details["dataType"] == "1" {
				restart = true
			}
		}
	}

	if restart && !m.isAndroid && m.restartSend != nil {
		m.restartSend(callID)
	}
}

func (m *Manager) markActive(callID, handlerID string, on bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.active[callID]
	if !ok {
		set = make(map[string]bool)
		m.active[callID] = set
	}
	if on {
		set[handlerID] = true
	} else {
		delete(set, handlerID)
	}
}

// GetCallMediaHandlers enumerates every registered handler id.
func (m *Manager) GetCallMediaHandlers() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.handlers))
	for i, he := range m.handlers {
		out[i] = he.id
	}
	return out
}

// GetCallMediaHandlerStatus returns the active handler id set for callID.
func (m *Manager) GetCallMediaHandlerStatus(callID string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	set := m.active[callID]
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}

// GetCallMediaHandlerDetails delegates to the handler; an unknown id
// yields empty details.
func (m *Manager) GetCallMediaHandlerDetails(id string) map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, he := range m.handlers {
		if he.id == id {
			return he.handler.GetDetails()
		}
	}
	return map[string]string{}
}

// SetPreference applies key=value to every handler named in scope
// (comma-separated handler names), returning whether a reload is needed
// (true iff no matching handler could apply the change live).
func (m *Manager) SetPreference(key, value, scope string) bool {
	names := splitScope(scope)

	m.mu.RLock()
	type target struct {
		h pluginapi.CallMediaHandler
	}
	var targets []target
	for _, he := range m.handlers {
		details := he.handler.GetDetails()
		if containsName(names, details["name"]) {
			targets = append(targets, target{h: he.handler})
		}
	}
	m.mu.RUnlock()

	if len(targets) == 0 {
		return true
	}
	for _, t := range targets {
		t.h.SetPreferenceAttribute(key, value)
	}
	return false
}
