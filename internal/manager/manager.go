// Package manager implements the plugin lifecycle manager: load/unload,
// ABI checks, the plugin-facing service bus (object factories, services,
// component registration) and per-plugin component bookkeeping.
package manager

import (
	"fmt"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/ringphone/pluginhost/internal/loader"
	"github.com/ringphone/pluginhost/pkg/pluginapi"
)

// ComponentManager is the pair of callbacks a services manager registers
// for one component kind: TakeOwnership wraps a raw handler value in the
// services manager's own ownership, returning the id the manager will
// hand back to Destroy at unload time.
type ComponentManager struct {
	TakeOwnership func(pluginPath string, handler any) (id string, err error)
	Destroy       func(id string)
}

type componentRecord struct {
	kind pluginapi.ComponentKind
	id   string
}

type factoryRecord struct {
	typ     string
	factory pluginapi.ObjectFactory
}

type entry struct {
	path       string
	handle     loader.Handle
	exit       pluginapi.ExitFunc
	loaded     bool
	components []componentRecord
}

// Manager orchestrates plugin load, initialisation, service routing and
// unload. The zero value is not usable; construct with New.
type Manager struct {
	mu sync.Mutex

	loader loader.Interface
	log    *logrus.Logger

	entries map[string]*entry // path -> entry, insertion order tracked separately
	order   []string          // insertion order, for reverse-order teardown

	services map[string]pluginapi.ServiceFunc

	componentManagers map[pluginapi.ComponentKind]ComponentManager

	exactFactories    map[string]factoryRecord
	wildcardFactories []factoryRecord
}

// New constructs a Manager. If ld is nil, the real loader.Loader is used.
func New(ld loader.Interface, log *logrus.Logger) *Manager {
	if ld == nil {
		ld = loader.New()
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Manager{
		loader:            ld,
		log:               log,
		entries:           make(map[string]*entry),
		services:          make(map[string]pluginapi.ServiceFunc),
		componentManagers: make(map[pluginapi.ComponentKind]ComponentManager),
		exactFactories:    make(map[string]factoryRecord),
	}
}

// RegisterComponentManager registers the take-ownership/destroy pair for
// kind. Registering the same kind twice overwrites the previous pair.
func (m *Manager) RegisterComponentManager(kind pluginapi.ComponentKind, cm ComponentManager) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.componentManagers[kind] = cm
}

// RegisterService inserts fn into the service table under name,
// overwriting any previous registration.
func (m *Manager) RegisterService(name string, fn pluginapi.ServiceFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.services[name] = fn
}

// UnregisterService removes name from the service table.
func (m *Manager) UnregisterService(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.services, name)
}

// GetLoadedPlugins returns the paths of every currently loaded plugin.
func (m *Manager) GetLoadedPlugins() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.entries))
	for p, e := range m.entries {
		if e.loaded {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}

// GetComponents returns the (kind, id) pairs currently owned by the
// plugin at path.
func (m *Manager) GetComponents(path string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[path]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(e.components))
	for _, c := range e.components {
		out = append(out, fmt.Sprintf("%s:%s", c.kind, c.id))
	}
	return out
}

// Load opens the shared library at path, resolves its RingPluginInit
// symbol and invokes it. If path is already loaded, the previous
// instance is fully unloaded first (two loads of the same path are
// idempotent). An empty path fails immediately.
func (m *Manager) Load(path string) error {
	if path == "" {
		return errors.New("manager: empty path")
	}

	m.mu.Lock()
	_, alreadyLoaded := m.entries[path]
	m.mu.Unlock()
	if alreadyLoaded {
		if err := m.Unload(path); err != nil {
			return errors.Wrapf(err, "manager: unload previous instance of %s", path)
		}
	}

	handle, err := m.loader.Load(path)
	if err != nil {
		return errors.Wrapf(err, "manager: load %s", path)
	}

	sym, err := handle.Symbol(pluginapi.InitSymbolName)
	if err != nil {
		_ = handle.Unload()
		return errors.Wrapf(err, "manager: resolve init symbol in %s", path)
	}

	initFn, ok := sym.(func(*pluginapi.HostAPI) pluginapi.ExitFunc)
	if !ok {
		if ifn, ok2 := sym.(pluginapi.InitFunc); ok2 {
			initFn = ifn
		} else {
			_ = handle.Unload()
			return errors.Errorf("manager: %s: init symbol has wrong type", path)
		}
	}

	caller := &pluginapi.Plugin{Path: path}
	api := m.buildHostAPI(caller)

	// The entry is recorded before init runs, not after, because plugins
	// call api.ManageComponent from inside RingPluginInit: manageComponent
	// looks up m.entries[caller.Path] to record each (kind,id) pair, and
	// that lookup must already succeed during init.
	m.mu.Lock()
	m.entries[path] = &entry{path: path, handle: handle}
	m.mu.Unlock()

	exit, err := m.safeInit(initFn, api)
	if err != nil {
		m.rollbackFailedLoad(path)
		_ = handle.Unload()
		return errors.Wrapf(err, "manager: init %s", path)
	}
	if exit == nil {
		m.rollbackFailedLoad(path)
		_ = handle.Unload()
		return errors.Errorf("manager: %s: init returned no exit function", path)
	}

	m.mu.Lock()
	e := m.entries[path]
	e.exit = exit
	e.loaded = true
	m.order = append(m.order, path)
	m.mu.Unlock()

	m.log.WithField("path", path).Info("plugin loaded")
	return nil
}

// rollbackFailedLoad destroys any components a plugin registered during a
// RingPluginInit that ultimately failed or returned no exit function, and
// erases its entry so a retried Load starts clean.
func (m *Manager) rollbackFailedLoad(path string) {
	m.mu.Lock()
	e, ok := m.entries[path]
	if ok {
		delete(m.entries, path)
	}
	cms := make(map[pluginapi.ComponentKind]ComponentManager, len(m.componentManagers))
	for k, v := range m.componentManagers {
		cms[k] = v
	}
	m.mu.Unlock()
	if !ok {
		return
	}

	for _, c := range e.components {
		cm, ok := cms[c.kind]
		if !ok {
			continue
		}
		m.destroyComponent(cm, c.id)
	}
}

// safeInit calls initFn, converting any panic into an error so that a
// misbehaving plugin's init can never crash the host.
func (m *Manager) safeInit(initFn pluginapi.InitFunc, api *pluginapi.HostAPI) (exit pluginapi.ExitFunc, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("init panicked: %v", r)
		}
	}()
	exit = initFn(api)
	return exit, nil
}

// Unload destroys every component owned by the plugin at path (giving
// services managers a chance to detach handlers from live subjects),
// calls the plugin's exit function, closes the library and erases all
// bookkeeping. Unload proceeds through every step even if the exit
// function panics, so resources are never leaked.
func (m *Manager) Unload(path string) error {
	m.mu.Lock()
	e, ok := m.entries[path]
	if !ok {
		m.mu.Unlock()
		return errors.Errorf("manager: %s: not loaded", path)
	}
	components := append([]componentRecord(nil), e.components...)
	cms := make(map[pluginapi.ComponentKind]ComponentManager, len(m.componentManagers))
	for k, v := range m.componentManagers {
		cms[k] = v
	}
	exit := e.exit
	handle := e.handle
	m.mu.Unlock()

	for _, c := range components {
		cm, ok := cms[c.kind]
		if !ok {
			m.log.WithField("kind", c.kind).Warn("manager: unload: unknown component kind")
			continue
		}
		m.destroyComponent(cm, c.id)
	}

	m.callExit(exit)

	if err := handle.Unload(); err != nil && !errors.Is(err, loader.ErrAlreadyUnloaded) {
		m.log.WithError(err).Warn("manager: unload: closing library")
	}

	m.mu.Lock()
	delete(m.entries, path)
	for i, p := range m.order {
		if p == path {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	m.mu.Unlock()

	m.log.WithField("path", path).Info("plugin unloaded")
	return nil
}

func (m *Manager) destroyComponent(cm ComponentManager, id string) {
	defer func() {
		if r := recover(); r != nil {
			m.log.WithField("id", id).Errorf("manager: component destroy panicked: %v", r)
		}
	}()
	cm.Destroy(id)
}

func (m *Manager) callExit(exit pluginapi.ExitFunc) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Errorf("manager: plugin exit panicked: %v", r)
		}
	}()
	if exit != nil {
		exit()
	}
}

// Teardown unloads every loaded plugin in reverse-insertion order.
func (m *Manager) Teardown() {
	m.mu.Lock()
	paths := append([]string(nil), m.order...)
	m.mu.Unlock()

	for i := len(paths) - 1; i >= 0; i-- {
		if err := m.Unload(paths[i]); err != nil {
			m.log.WithError(err).WithField("path", paths[i]).Warn("manager: teardown unload failed")
		}
	}
}
