package manager

import (
	"fmt"

	"github.com/ringphone/pluginhost/pkg/pluginapi"
)

// buildHostAPI constructs the three plugin-facing thunks for caller. Every
// thunk recovers from panics and converts them to the documented failure
// sentinel so a plugin's exception never crosses back into the host.
func (m *Manager) buildHostAPI(caller *pluginapi.Plugin) *pluginapi.HostAPI {
	return &pluginapi.HostAPI{
		Caller: caller,
		RegisterObjectFactory: func(typ string, factory pluginapi.ObjectFactory) int32 {
			if err := m.RegisterObjectFactory(typ, factory); err != nil {
				m.log.WithError(err).WithField("plugin", caller.Path).Warn("register object factory failed")
				return -1
			}
			return 0
		},
		InvokeService: func(name string, data any) int32 {
			return m.invokeService(caller, name, data)
		},
		ManageComponent: func(kind pluginapi.ComponentKind, data any) int32 {
			return m.manageComponent(caller, kind, data)
		},
	}
}

// invokeService looks up name in the service table and calls it with
// (caller, data). An unknown name or a callback panic both return -1.
func (m *Manager) invokeService(caller *pluginapi.Plugin, name string, data any) (result int32) {
	m.mu.Lock()
	fn, ok := m.services[name]
	m.mu.Unlock()
	if !ok {
		m.log.WithField("service", name).Warn("manager: unknown service")
		return -1
	}

	defer func() {
		if r := recover(); r != nil {
			m.log.WithField("service", name).Errorf("manager: service panicked: %v", r)
			result = -1
		}
	}()
	return fn(caller, data)
}

// manageComponent routes data to the component manager registered for
// kind. On success the (kind, id) pair is recorded against caller's
// plugin entry so unload can destroy it later.
func (m *Manager) manageComponent(caller *pluginapi.Plugin, kind pluginapi.ComponentKind, data any) int32 {
	m.mu.Lock()
	cm, ok := m.componentManagers[kind]
	m.mu.Unlock()
	if !ok {
		m.log.WithField("kind", kind).Warn("manager: unknown component kind")
		return -1
	}

	id, err := m.safeTakeOwnership(cm, caller.Path, data)
	if err != nil {
		m.log.WithError(err).WithField("kind", kind).Warn("manager: component registration rejected")
		return -1
	}

	m.mu.Lock()
	e, ok := m.entries[caller.Path]
	if ok {
		e.components = append(e.components, componentRecord{kind: kind, id: id})
	}
	m.mu.Unlock()
	if !ok {
		m.log.WithField("plugin", caller.Path).Warn("manager: manageComponent called outside of init")
		return -1
	}
	return 0
}

func (m *Manager) safeTakeOwnership(cm ComponentManager, pluginPath string, data any) (id string, err error) {
	defer func() {
		if r := recover(); r != nil {
			id, err = "", fmt.Errorf("take ownership panicked: %v", r)
		}
	}()
	return cm.TakeOwnership(pluginPath, data)
}
