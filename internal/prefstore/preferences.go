package prefstore

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"
)

// Preference is one entry of a plugin's preferences.json schema, parsed
// into a flat string map the way parsePreferenceConfig does in the
// teacher's C++ origin: string members become attributes as they are,
// arrays are flattened to comma-separated strings, and members of any
// other JSON type (numbers, booleans, objects) are dropped.
type Preference = map[string]string

func (s *Store) preferencesConfigPath(rootPath string) string {
	return filepath.Join(rootPath, "data", "preferences.json")
}

func (s *Store) valuesFilePath(rootPath, accountID string) string {
	if accountID == "" {
		return filepath.Join(rootPath, "preferences.cbor")
	}
	return filepath.Join(rootPath, "preferences_"+accountID+".cbor")
}

// GetPreferences reads rootPath's preferences.json schema. A Path-typed
// preference's defaultValue is rewritten to be rooted at rootPath, since
// the schema stores it as a path fragment relative to the installation
// directory.
func (s *Store) GetPreferences(rootPath string) ([]Preference, error) {
	path := s.preferencesConfigPath(rootPath)
	lock := s.lockFor(path)
	lock.Lock()
	defer lock.Unlock()

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "prefstore: read %s", path)
	}

	var entries []map[string]any
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, errors.Wrapf(err, "prefstore: parse %s", path)
	}

	seen := make(map[string]bool, len(entries))
	out := make([]Preference, 0, len(entries))
	for _, entry := range entries {
		typ, _ := entry["type"].(string)
		key, _ := entry["key"].(string)
		if typ == "" || key == "" || seen[key] {
			continue
		}
		pref := flattenPreference(entry)
		if typ == "Path" {
			if dv, ok := pref["defaultValue"]; ok {
				pref["defaultValue"] = filepath.Join(rootPath, dv)
			}
		}
		out = append(out, pref)
		seen[key] = true
	}
	return out, nil
}

func flattenPreference(entry map[string]any) Preference {
	out := make(Preference, len(entry))
	for k, v := range entry {
		switch val := v.(type) {
		case string:
			out[k] = val
		case []any:
			out[k] = joinArray(val)
		}
	}
	return out
}

func joinArray(arr []any) string {
	parts := make([]string, 0, len(arr))
	for _, v := range arr {
		switch val := v.(type) {
		case string:
			parts = append(parts, val)
		case []any:
			parts = append(parts, joinArray(val))
		}
	}
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += ","
		}
		out += p
	}
	return out
}

// GetUserPreferencesValuesMap reads only the values a user has changed
// away from their schema defaults, stored packed in preferences.cbor
// (preferences_<accountID>.cbor when accountID is set).
func (s *Store) GetUserPreferencesValuesMap(rootPath, accountID string) (map[string]string, error) {
	path := s.valuesFilePath(rootPath, accountID)
	lock := s.lockFor(path)
	lock.Lock()
	defer lock.Unlock()
	return s.readValuesLocked(path)
}

func (s *Store) readValuesLocked(path string) (map[string]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, errors.Wrapf(err, "prefstore: read %s", path)
	}
	if len(raw) == 0 {
		return map[string]string{}, nil
	}
	var m map[string]string
	if err := cbor.Unmarshal(raw, &m); err != nil {
		return nil, errors.Wrapf(err, "prefstore: decode %s", path)
	}
	if m == nil {
		m = map[string]string{}
	}
	return m, nil
}

// GetPreferencesValuesMap returns every preference's effective value:
// schema defaults overlaid with any user-modified value.
func (s *Store) GetPreferencesValuesMap(rootPath, accountID string) (map[string]string, error) {
	prefs, err := s.GetPreferences(rootPath)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(prefs))
	for _, p := range prefs {
		out[p["key"]] = p["defaultValue"]
	}

	user, err := s.GetUserPreferencesValuesMap(rootPath, accountID)
	if err != nil {
		return nil, err
	}
	for k, v := range user {
		out[k] = v
	}
	return out, nil
}

// SetPreferenceValue persists a single modified preference value.
func (s *Store) SetPreferenceValue(rootPath, accountID, key, value string) error {
	path := s.valuesFilePath(rootPath, accountID)
	lock := s.lockFor(path)
	lock.Lock()
	defer lock.Unlock()

	m, err := s.readValuesLocked(path)
	if err != nil {
		return err
	}
	m[key] = value
	return s.writeValuesLocked(path, m)
}

// ResetPreferenceValues erases every user-modified value for
// (rootPath, accountID), reverting to schema defaults.
func (s *Store) ResetPreferenceValues(rootPath, accountID string) error {
	path := s.valuesFilePath(rootPath, accountID)
	lock := s.lockFor(path)
	lock.Lock()
	defer lock.Unlock()
	return s.writeValuesLocked(path, map[string]string{})
}

func (s *Store) writeValuesLocked(path string, m map[string]string) error {
	raw, err := cbor.Marshal(m)
	if err != nil {
		return errors.Wrapf(err, "prefstore: encode %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "prefstore: create dir for %s", path)
	}
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		return errors.Wrapf(err, "prefstore: write %s", path)
	}
	return nil
}
