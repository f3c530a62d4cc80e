package prefsvc

import (
	"sync"
	"testing"
)

type fakePrefHandler struct {
	keys     map[string]bool
	setCalls []string
	resets   int
}

func (h *fakePrefHandler) SetPreferenceAttribute(accountID, key, value string) {
	h.setCalls = append(h.setCalls, accountID+":"+key+"="+value)
}

func (h *fakePrefHandler) ResetPreferenceAttributes(string) { h.resets++ }

func (h *fakePrefHandler) PreferenceMapHasKey(key string) bool { return h.keys[key] }

func (h *fakePrefHandler) GetDetails() map[string]string { return map[string]string{} }

func TestTakeOwnershipIDStartsWithPluginPath(t *testing.T) {
	m := New(&sync.Mutex{})
	h := &fakePrefHandler{keys: map[string]bool{"k": true}}
	id, err := m.takeOwnership("/plugins/foo", h)
	if err != nil {
		t.Fatal(err)
	}
	if id != "/plugins/foo#prefhandler" {
		t.Fatalf("got id %q", id)
	}
}

func TestTakeOwnershipRejectsWrongType(t *testing.T) {
	m := New(&sync.Mutex{})
	if _, err := m.takeOwnership("/p1", 42); err != errNotAHandler {
		t.Fatalf("got %v", err)
	}
}

func TestSetPreferenceMatchesByRootPathPrefix(t *testing.T) {
	m := New(&sync.Mutex{})
	h := &fakePrefHandler{keys: map[string]bool{"theme": true}}
	m.takeOwnership("/plugins/foo", h)

	m.SetPreference("theme", "dark", "/plugins/foo", "acct1")

	if len(h.setCalls) != 1 || h.setCalls[0] != "acct1:theme=dark" {
		t.Fatalf("got %v", h.setCalls)
	}
}

func TestSetPreferenceIgnoresHandlerWithoutKey(t *testing.T) {
	m := New(&sync.Mutex{})
	h := &fakePrefHandler{keys: map[string]bool{}}
	m.takeOwnership("/plugins/foo", h)

	m.SetPreference("theme", "dark", "/plugins/foo", "acct1")

	if len(h.setCalls) != 0 {
		t.Fatalf("expected no call, got %v", h.setCalls)
	}
}

func TestResetPreferencesOnlyMatchingRootPath(t *testing.T) {
	m := New(&sync.Mutex{})
	h1 := &fakePrefHandler{}
	h2 := &fakePrefHandler{}
	m.takeOwnership("/plugins/foo", h1)
	m.takeOwnership("/plugins/bar", h2)

	m.ResetPreferences("/plugins/foo", "acct1")

	if h1.resets != 1 {
		t.Fatalf("expected handler under /plugins/foo to be reset, got %d", h1.resets)
	}
	if h2.resets != 0 {
		t.Fatalf("expected handler under /plugins/bar to be untouched, got %d", h2.resets)
	}
}

func TestDestroyRemovesHandler(t *testing.T) {
	m := New(&sync.Mutex{})
	h := &fakePrefHandler{}
	id, _ := m.takeOwnership("/plugins/foo", h)

	m.destroy(id)

	for _, got := range m.GetHandlers() {
		if got == id {
			t.Fatalf("handler %q still registered after destroy", id)
		}
	}
}
