package manager

import (
	"github.com/pkg/errors"

	"github.com/ringphone/pluginhost/pkg/pluginapi"
)

// RegisterObjectFactory validates and inserts factory under typ. The
// wildcard type "*" is appended to a list consulted when no exact match
// exists; any other type is inserted into the exact-match map, and
// registering the same exact type twice fails.
func (m *Manager) RegisterObjectFactory(typ string, factory pluginapi.ObjectFactory) error {
	if factory.Create == nil || factory.Destroy == nil {
		return errors.New("manager: object factory create/destroy must be non-nil")
	}
	if err := pluginapi.CheckFactory(factory.Version); err != nil {
		return errors.Wrap(err, "manager: register object factory")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	rec := factoryRecord{typ: typ, factory: factory}
	if typ == "*" {
		m.wildcardFactories = append(m.wildcardFactories, rec)
		return nil
	}
	if _, exists := m.exactFactories[typ]; exists {
		return errors.Errorf("manager: object factory for type %q already registered", typ)
	}
	m.exactFactories[typ] = rec
	return nil
}

// CreateObject instantiates an object of typ: an exact-match factory is
// preferred; otherwise each wildcard factory is tried in registration
// order, and the first one to succeed is promoted to an exact match for
// typ (it remains in the wildcard list for other types). Creating an
// object of type "*" is rejected.
func (m *Manager) CreateObject(typ string, closure any) (any, error) {
	if typ == "*" {
		return nil, errors.New("manager: cannot create object of wildcard type")
	}

	m.mu.Lock()
	rec, ok := m.exactFactories[typ]
	wildcards := append([]factoryRecord(nil), m.wildcardFactories...)
	m.mu.Unlock()

	if ok {
		return safeCreate(rec.factory, typ, closure)
	}

	for _, w := range wildcards {
		obj, err := safeCreate(w.factory, typ, closure)
		if err != nil {
			continue
		}
		if obj == nil {
			continue
		}
		m.mu.Lock()
		if _, exists := m.exactFactories[typ]; !exists {
			m.exactFactories[typ] = factoryRecord{typ: typ, factory: w.factory}
		}
		m.mu.Unlock()
		return obj, nil
	}

	return nil, errors.Errorf("manager: no object factory for type %q", typ)
}

func safeCreate(factory pluginapi.ObjectFactory, typ string, closure any) (obj any, err error) {
	defer func() {
		if r := recover(); r != nil {
			obj, err = nil, errors.Errorf("manager: object factory create panicked: %v", r)
		}
	}()
	return factory.Create(typ, closure)
}
