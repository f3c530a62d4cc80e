package chatsvc

import (
	"testing"

	"github.com/ringphone/pluginhost/pkg/pluginapi"
)

type fakeChatHandler struct {
	name     string
	attached bool
	received []pluginapi.Message
}

func (h *fakeChatHandler) NotifyChatSubject(_, _ string, sub pluginapi.ChatSubject) {
	h.attached = true
	sub.Subscribe(func(msg pluginapi.Message) { h.received = append(h.received, msg) })
}

func (h *fakeChatHandler) Detach(pluginapi.ChatSubject) { h.attached = false }

func (h *fakeChatHandler) GetDetails() map[string]string { return map[string]string{"name": h.name} }

func (h *fakeChatHandler) SetPreferenceAttribute(string, string) {}
func (h *fakeChatHandler) PreferenceMapHasKey(string) bool       { return false }

type fakeAllowDenyStore struct {
	saved struct {
		allow, deny map[ConversationKey]map[string]bool
	}
}

func (s *fakeAllowDenyStore) Load() (map[ConversationKey]map[string]bool, map[ConversationKey]map[string]bool, error) {
	return nil, nil, nil
}

func (s *fakeAllowDenyStore) Save(allow, deny map[ConversationKey]map[string]bool) error {
	s.saved.allow, s.saved.deny = allow, deny
	return nil
}

type fakeAlways struct {
	always map[string]bool // handlerName -> always
}

func (f *fakeAlways) IsAlways(_, handlerName string) bool { return f.always[handlerName] }
func (f *fakeAlways) EnsureAlwaysPreference(string, string) error { return nil }

func TestTakeOwnershipIDStartsWithPluginPath(t *testing.T) {
	m := New(nil, nil, nil)
	id, err := m.takeOwnership("/plugins/foo", &fakeChatHandler{name: "bot"})
	if err != nil {
		t.Fatal(err)
	}
	if id != "/plugins/foo#bot" {
		t.Fatalf("got id %q", id)
	}
}

func TestPublishMessageIgnoresFromPlugin(t *testing.T) {
	m := New(nil, nil, nil)
	h := &fakeChatHandler{name: "bot"}
	id, _ := m.takeOwnership("/plugins/foo", h)
	m.ToggleChatHandler(id, "acct", "peer", true)

	m.PublishMessage(pluginapi.Message{AccountID: "acct", PeerID: "peer", FromPlugin: true})
	if len(h.received) != 0 {
		t.Fatalf("expected plugin-originated message to be ignored, got %v", h.received)
	}
}

func TestPublishMessageAutoAttachesAlwaysHandler(t *testing.T) {
	always := &fakeAlways{always: map[string]bool{"bot": true}}
	m := New(nil, always, nil)
	h := &fakeChatHandler{name: "bot"}
	m.takeOwnership("/plugins/foo", h)

	m.PublishMessage(pluginapi.Message{AccountID: "acct", PeerID: "peer", Body: map[string]string{"text/plain": "hi"}})

	if !h.attached {
		t.Fatal("expected always-on handler to auto-attach")
	}
	if len(h.received) != 1 {
		t.Fatalf("expected handler to receive the published message, got %v", h.received)
	}
}

func TestPublishMessageSkipsDeniedHandler(t *testing.T) {
	always := &fakeAlways{always: map[string]bool{"bot": true}}
	m := New(nil, always, nil)
	h := &fakeChatHandler{name: "bot"}
	id, _ := m.takeOwnership("/plugins/foo", h)
	m.ToggleChatHandler(id, "acct", "peer", false) // explicit deny

	m.PublishMessage(pluginapi.Message{AccountID: "acct", PeerID: "peer"})

	if h.attached {
		t.Fatal("expected denied handler to stay detached despite always=true")
	}
}

func TestToggleChatHandlerPersistsAllowDenyLists(t *testing.T) {
	store := &fakeAllowDenyStore{}
	m := New(store, nil, nil)
	h := &fakeChatHandler{name: "bot"}
	id, _ := m.takeOwnership("/plugins/foo", h)

	m.ToggleChatHandler(id, "acct", "peer", true)
	key := ConversationKey{AccountID: "acct", PeerID: "peer"}
	if !store.saved.allow[key]["bot"] {
		t.Fatal("expected allow list to be persisted after toggling on")
	}

	m.ToggleChatHandler(id, "acct", "peer", false)
	if store.saved.allow[key]["bot"] {
		t.Fatal("expected allow entry removed after toggling off")
	}
	if !store.saved.deny[key]["bot"] {
		t.Fatal("expected deny list to be persisted after toggling off")
	}
}

func TestGetChatHandlerStatus(t *testing.T) {
	store := &fakeAllowDenyStore{}
	m := New(store, nil, nil)
	h := &fakeChatHandler{name: "bot"}
	id, _ := m.takeOwnership("/plugins/foo", h)
	m.ToggleChatHandler(id, "acct", "peer", true)

	status := m.GetChatHandlerStatus("acct", "peer")
	if len(status) != 1 || status[0] != id {
		t.Fatalf("got %v, want [%s]", status, id)
	}
}

func TestDestroyClearsAllowDenyEntries(t *testing.T) {
	store := &fakeAllowDenyStore{}
	m := New(store, nil, nil)
	h := &fakeChatHandler{name: "bot"}
	id, _ := m.takeOwnership("/plugins/foo", h)
	m.ToggleChatHandler(id, "acct", "peer", true)

	m.destroy(id)

	key := ConversationKey{AccountID: "acct", PeerID: "peer"}
	if store.saved.allow[key]["bot"] {
		t.Fatal("expected allow entry removed and persisted after destroy")
	}
	for _, got := range m.GetChatHandlerStatus("acct", "peer") {
		if got == id {
			t.Fatalf("handler %q still reported active after destroy", id)
		}
	}
}
