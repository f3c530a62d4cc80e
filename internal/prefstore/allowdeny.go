package prefstore

import (
	"os"
	"path/filepath"

	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"

	"github.com/ringphone/pluginhost/internal/chatsvc"
)

// allowDenyFile is the on-disk shape of allowdeny.cbor: ConversationKey
// isn't a valid CBOR map key on its own, so each conversation's handler
// name set is flattened to a record. Grounded on
// PluginPreferencesUtils::{set,get}AllowDenyListPreferences.
type allowDenyFile struct {
	Allow []conversationEntry `cbor:"allow"`
	Deny  []conversationEntry `cbor:"deny"`
}

type conversationEntry struct {
	AccountID string   `cbor:"account_id"`
	PeerID    string   `cbor:"peer_id"`
	Names     []string `cbor:"names"`
}

func (s *Store) allowDenyPath() string {
	return filepath.Join(s.pluginsDir, "allowdeny.cbor")
}

// Load implements chatsvc.AllowDenyStore.
func (s *Store) Load() (allow, deny map[chatsvc.ConversationKey]map[string]bool, err error) {
	path := s.allowDenyPath()
	lock := s.lockFor(path)
	lock.Lock()
	defer lock.Unlock()

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[chatsvc.ConversationKey]map[string]bool{}, map[chatsvc.ConversationKey]map[string]bool{}, nil
		}
		return nil, nil, errors.Wrapf(err, "prefstore: read %s", path)
	}
	if len(raw) == 0 {
		return map[chatsvc.ConversationKey]map[string]bool{}, map[chatsvc.ConversationKey]map[string]bool{}, nil
	}

	var f allowDenyFile
	if err := cbor.Unmarshal(raw, &f); err != nil {
		return nil, nil, errors.Wrapf(err, "prefstore: decode %s", path)
	}
	return expand(f.Allow), expand(f.Deny), nil
}

// Save implements chatsvc.AllowDenyStore.
func (s *Store) Save(allow, deny map[chatsvc.ConversationKey]map[string]bool) error {
	path := s.allowDenyPath()
	lock := s.lockFor(path)
	lock.Lock()
	defer lock.Unlock()

	f := allowDenyFile{Allow: collapse(allow), Deny: collapse(deny)}
	raw, err := cbor.Marshal(f)
	if err != nil {
		return errors.Wrap(err, "prefstore: encode allowdeny.cbor")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "prefstore: create dir for %s", path)
	}
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		return errors.Wrapf(err, "prefstore: write %s", path)
	}
	return nil
}

func collapse(m map[chatsvc.ConversationKey]map[string]bool) []conversationEntry {
	out := make([]conversationEntry, 0, len(m))
	for k, names := range m {
		entry := conversationEntry{AccountID: k.AccountID, PeerID: k.PeerID}
		for name := range names {
			entry.Names = append(entry.Names, name)
		}
		out = append(out, entry)
	}
	return out
}

func expand(entries []conversationEntry) map[chatsvc.ConversationKey]map[string]bool {
	out := make(map[chatsvc.ConversationKey]map[string]bool, len(entries))
	for _, e := range entries {
		key := chatsvc.ConversationKey{AccountID: e.AccountID, PeerID: e.PeerID}
		set := make(map[string]bool, len(e.Names))
		for _, n := range e.Names {
			set[n] = true
		}
		out[key] = set
	}
	return out
}
