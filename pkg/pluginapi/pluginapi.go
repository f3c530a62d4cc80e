// Package pluginapi defines the ABI surface between the host and a loaded
// plugin: the struct passed into a plugin's RingPluginInit, the component
// kinds a plugin can register, and the handler interfaces plugins must
// implement for each kind.
package pluginapi

import "fmt"

// Version is the (abi, api) pair exchanged at init. abi must match the
// host exactly; api may be older than the host's but never newer.
type Version struct {
	ABI uint32
	API uint32
}

// HostABI and HostAPIVersion are the versions this build of the host
// implements.
const (
	HostABI        uint32 = 1
	HostAPIVersion uint32 = 3
)

// CheckFactory validates a registering object factory's version against
// the host's: ABI must match exactly, API must not be newer than the
// host's.
func CheckFactory(v Version) error {
	if v.ABI != HostABI {
		return fmt.Errorf("pluginapi: abi mismatch: plugin=%d host=%d", v.ABI, HostABI)
	}
	if v.API > HostAPIVersion {
		return fmt.Errorf("pluginapi: api too new: plugin=%d host=%d", v.API, HostAPIVersion)
	}
	return nil
}

// ComponentKind selects which services manager owns a handler.
type ComponentKind string

const (
	KindCallMediaHandler  ComponentKind = "CallMediaHandlerManager"
	KindChatHandler       ComponentKind = "ChatHandlerManager"
	KindPreferenceHandler ComponentKind = "PreferenceHandlerManager"
)

// Direction is the flow of a stream relative to the local party.
type Direction string

const (
	Inbound  Direction = "inbound"
	Outbound Direction = "outbound"
)

// MediaType distinguishes audio from video streams.
type MediaType string

const (
	Audio MediaType = "audio"
	Video MediaType = "video"
)

// StreamData identifies a subject within a call: one call may have
// several subjects (one per direction x type).
type StreamData struct {
	CallID    string
	Direction Direction
	Type      MediaType
	Peer      string
}

// Message is a chat message flowing through a conversation.
type Message struct {
	AccountID  string
	PeerID     string
	Body       map[string]string
	FromPlugin bool
}

// CallMediaHandler observes or mutates the frames of an attached subject.
// Implementations must be safe to call from the media thread.
type CallMediaHandler interface {
	// NotifyAVFrameSubject attaches the handler to subject for the given
	// stream.
	NotifyAVFrameSubject(sd StreamData, sub FrameSubject)
	// Detach detaches the handler from subject.
	Detach(sub FrameSubject)
	// GetDetails returns the mandatory keys name, iconPath, pluginId,
	// attached ("1"/"0"), dataType ("1" video / "0" audio).
	GetDetails() map[string]string
	SetPreferenceAttribute(key, value string)
	PreferenceMapHasKey(key string) bool
}

// ChatHandler observes or injects chat messages in a conversation.
type ChatHandler interface {
	NotifyChatSubject(accountID, peerID string, sub ChatSubject)
	Detach(sub ChatSubject)
	// GetDetails returns at minimum the key "name".
	GetDetails() map[string]string
	SetPreferenceAttribute(key, value string)
	PreferenceMapHasKey(key string) bool
}

// PreferenceHandler receives per-account preference changes.
type PreferenceHandler interface {
	SetPreferenceAttribute(accountID, key, value string)
	ResetPreferenceAttributes(accountID string)
	PreferenceMapHasKey(key string) bool
	GetDetails() map[string]string
}

// FrameSubject is the narrow view of pkg/subject.Subject[[]byte] that a
// CallMediaHandler is allowed to see.
type FrameSubject interface {
	Subscribe(fn func([]byte)) (unsubscribe func())
	Publish([]byte)
}

// ChatSubject is the narrow view of pkg/subject.Subject[Message] that a
// ChatHandler is allowed to see.
type ChatSubject interface {
	Subscribe(fn func(Message)) (unsubscribe func())
	Publish(Message)
}

// ObjectFactory is a plugin-supplied (create, destroy) pair registered
// against a type tag, plus the version it was built against.
type ObjectFactory struct {
	Version Version
	Create  func(typ string, closure any) (any, error)
	Destroy func(obj any, closure any)
}

// ServiceFunc is a host-provided function a plugin can invoke by name.
// It returns a host-defined status code; a negative value is failure.
type ServiceFunc func(caller *Plugin, data any) int32

// Plugin identifies the calling plugin to a ServiceFunc or ObjectFactory
// invocation.
type Plugin struct {
	Path string
}

// HostAPI is the struct passed to a plugin's RingPluginInit. Each
// indirection takes (name, data) and returns a status code; 0 is success.
type HostAPI struct {
	Caller *Plugin

	RegisterObjectFactory func(typ string, factory ObjectFactory) int32
	InvokeService         func(name string, data any) int32
	ManageComponent       func(kind ComponentKind, data any) int32
}

// ExitFunc is returned by RingPluginInit on success; called once at
// unload, after every component the plugin produced has been destroyed.
type ExitFunc func()

// InitFunc is the signature the host looks up under the RingPluginInit
// symbol name.
type InitFunc func(api *HostAPI) ExitFunc

// InitSymbolName is the exported symbol every plugin shared object must
// provide, the Go analogue of the C ABI's JAMI_dynPluginInit.
const InitSymbolName = "RingPluginInit"
