package prefstore

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// Manifest is a plugin's manifest.json: its name, version, and the map
// from ABI tag to the shared library path it ships for that platform.
type Manifest struct {
	Name        string            `json:"name"`
	Version     string            `json:"version"`
	Description string            `json:"description,omitempty"`
	SharedLibs  map[string]string `json:"so"`
}

// SharedLibraryPath resolves the shared library this manifest ships for
// abiTag, relative to the plugin's installation directory.
func (m Manifest) SharedLibraryPath(pluginDir, abiTag string) (string, error) {
	rel, ok := m.SharedLibs[abiTag]
	if !ok {
		return "", errors.Errorf("prefstore: manifest %s: no shared library for abi %q", m.Name, abiTag)
	}
	return filepath.Join(pluginDir, rel), nil
}

func readManifest(pluginDir string) (Manifest, error) {
	raw, err := os.ReadFile(filepath.Join(pluginDir, "manifest.json"))
	if err != nil {
		return Manifest{}, errors.Wrapf(err, "prefstore: read manifest in %s", pluginDir)
	}
	var m Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return Manifest{}, errors.Wrapf(err, "prefstore: parse manifest in %s", pluginDir)
	}
	if m.Name == "" {
		return Manifest{}, errors.Errorf("prefstore: manifest in %s: missing name", pluginDir)
	}
	if m.Version == "" {
		return Manifest{}, errors.Errorf("prefstore: manifest in %s: missing version", pluginDir)
	}
	return m, nil
}
