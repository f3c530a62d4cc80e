package prefstore

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// EnsureAlwaysPreference implements chatsvc.AlwaysPreference: it adds a
// synthesised "<handlerName>Always" Switch preference to rootPath's
// preferences.json schema if one isn't already declared, letting users
// opt a chat handler into auto-activation without the plugin itself
// having to declare the preference. Grounded on
// PluginPreferencesUtils::addAlwaysHandlerPreference.
func (s *Store) EnsureAlwaysPreference(rootPath, handlerName string) error {
	path := s.preferencesConfigPath(rootPath)
	lock := s.lockFor(path)
	lock.Lock()
	defer lock.Unlock()

	var entries []map[string]any
	raw, err := os.ReadFile(path)
	switch {
	case err == nil && len(raw) > 0:
		if jerr := json.Unmarshal(raw, &entries); jerr != nil {
			return errors.Wrapf(jerr, "prefstore: parse %s", path)
		}
	case err != nil && !os.IsNotExist(err):
		return errors.Wrapf(err, "prefstore: read %s", path)
	}

	key := handlerName + "Always"
	for _, e := range entries {
		if k, _ := e["key"].(string); k == key {
			return nil
		}
	}

	entries = append(entries, map[string]any{
		"key":          key,
		"type":         "Switch",
		"defaultValue": "0",
		"title":        "Automatically turn " + handlerName + " on",
		"summary":      handlerName + " will take effect immediately",
	})

	out, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return errors.Wrap(err, "prefstore: encode preferences.json")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "prefstore: create dir for %s", path)
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return errors.Wrapf(err, "prefstore: write %s", path)
	}
	return nil
}

// IsAlways implements chatsvc.AlwaysPreference: it reports whether
// handlerName's synthesised "always" Switch preference is set to "1"
// for rootPath. Grounded on PluginPreferencesUtils::getAlwaysPreference.
func (s *Store) IsAlways(rootPath, handlerName string) bool {
	values, err := s.GetPreferencesValuesMap(rootPath, "")
	if err != nil {
		return false
	}
	return values[handlerName+"Always"] == "1"
}
