// Package loader turns a filesystem path into a live plugin handle. Go has
// no dlopen/dlclose, so this wraps the standard library's plugin package,
// the idiomatic tool for loading Go-language shared objects.
package loader

import (
	"fmt"
	plug "plugin"

	"github.com/pkg/errors"
)

// ErrAlreadyUnloaded is returned by a second call to Plugin.Unload.
var ErrAlreadyUnloaded = errors.New("loader: plugin already unloaded")

// Interface is the subset of loader behavior the plugin manager depends
// on; production code uses Loader, tests can substitute a fake.
type Interface interface {
	Load(path string) (Handle, error)
}

// Handle is a live loaded plugin: a library handle plus symbol lookup.
type Handle interface {
	Symbol(name string) (plug.Symbol, error)
	Unload() error
}

// Loader opens plugin shared objects with plugin.Open.
type Loader struct{}

// New returns a Loader.
func New() *Loader { return &Loader{} }

// Load opens path and returns a Handle. An empty path fails immediately;
// an open failure is reported with the path and the platform diagnostic.
func (Loader) Load(path string) (Handle, error) {
	if path == "" {
		return nil, errors.New("loader: empty path")
	}
	p, err := plug.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "loader: open %s", path)
	}
	return &goHandle{path: path, plug: p}, nil
}

type goHandle struct {
	path     string
	plug     *plug.Plugin
	unloaded bool
}

// Symbol returns the symbol named name, or an error if the handle is
// unloaded or the symbol is absent.
func (h *goHandle) Symbol(name string) (plug.Symbol, error) {
	if h.unloaded {
		return nil, fmt.Errorf("loader: %s: unloaded", h.path)
	}
	sym, err := h.plug.Lookup(name)
	if err != nil {
		return nil, errors.Wrapf(err, "loader: %s: lookup %s", h.path, name)
	}
	return sym, nil
}

// Unload marks the handle closed. Go's plugin package has no dlclose
// equivalent; the mapped library stays resident for the life of the
// process, so this call is bookkeeping only. A second call is a no-op
// that returns ErrAlreadyUnloaded.
func (h *goHandle) Unload() error {
	if h.unloaded {
		return ErrAlreadyUnloaded
	}
	h.unloaded = true
	return nil
}
