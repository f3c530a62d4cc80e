package prefstore

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// ListInstalled backs internal/manager.InstalledLister through ForABI: it
// scans PluginsDir() for installed plugins and resolves each one's manifest to
// the shared library path for abiTag, skipping plugins that ship no
// library for this platform.
func (s *Store) ListInstalled(abiTag string) ([]string, error) {
	entries, err := os.ReadDir(s.pluginsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "prefstore: read %s", s.pluginsDir)
	}

	var paths []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		pluginDir := filepath.Join(s.pluginsDir, e.Name())
		m, err := readManifest(pluginDir)
		if err != nil {
			continue
		}
		lib, err := m.SharedLibraryPath(pluginDir, abiTag)
		if err != nil {
			continue
		}
		if _, err := os.Stat(lib); err != nil {
			continue
		}
		paths = append(paths, lib)
	}
	return paths, nil
}

// ForABI returns a manager.InstalledLister bound to abiTag, satisfying
// the lister's zero-argument ListInstalled signature.
func (s *Store) ForABI(abiTag string) InstalledListerFunc {
	return InstalledListerFunc(func() ([]string, error) { return s.ListInstalled(abiTag) })
}

// InstalledListerFunc adapts a func to internal/manager.InstalledLister.
type InstalledListerFunc func() ([]string, error)

// ListInstalled calls f.
func (f InstalledListerFunc) ListInstalled() ([]string, error) { return f() }
