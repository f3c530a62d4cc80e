package manager

import (
	"context"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// InstalledLister is satisfied by the adapter internal/prefstore.Store.ForABI
// returns: it knows how
// to turn the installed-plugins directory into the list of per-platform
// shared library paths ready to Load. Kept as an interface here (rather
// than importing prefstore) to avoid a manager<->prefstore import cycle;
// internal/host wires the two together.
type InstalledLister interface {
	ListInstalled() ([]string, error)
}

// LoadInstalled loads every installed plugin reported by lister,
// concurrently. Per-plugin failures are logged and do not fail the whole
// batch; plugins that did load stay loaded.
func (m *Manager) LoadInstalled(ctx context.Context, lister InstalledLister) error {
	paths, err := lister.ListInstalled()
	if err != nil {
		return errors.Wrap(err, "manager: list installed plugins")
	}

	g, _ := errgroup.WithContext(ctx)
	for _, p := range paths {
		p := p
		g.Go(func() error {
			if err := m.Load(p); err != nil {
				m.log.WithError(err).WithField("path", p).Warn("manager: failed to load installed plugin")
			}
			return nil
		})
	}
	return g.Wait()
}

// Watch watches pluginsDir and loads every shared library (.so or .dll)
// created or written directly in it. The watch is not recursive: files
// inside subdirectories of pluginsDir, where Install places each plugin,
// are not seen. It runs until ctx is cancelled.
func (m *Manager) Watch(ctx context.Context, pluginsDir string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "manager: create watcher")
	}
	if err := watcher.Add(pluginsDir); err != nil {
		_ = watcher.Close()
		return errors.Wrapf(err, "manager: watch %s", pluginsDir)
	}

	go m.readWatcher(ctx, watcher)
	return nil
}

func (m *Manager) readWatcher(ctx context.Context, watcher *fsnotify.Watcher) {
	defer watcher.Close()

	mask := fsnotify.Create | fsnotify.Write
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-watcher.Events:
			if !ok {
				return
			}
			if evt.Op&mask == 0 {
				continue
			}
			if !isSharedLibrary(evt.Name) {
				continue
			}
			if err := m.Load(evt.Name); err != nil {
				m.log.WithError(err).WithField("path", evt.Name).Warn("manager: watch: failed to load plugin")
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			m.log.WithError(err).Warn("manager: watch error")
		}
	}
}

func isSharedLibrary(path string) bool {
	n := len(path)
	if n > 3 && path[n-3:] == ".so" {
		return true
	}
	return n > 4 && path[n-4:] == ".dll"
}
