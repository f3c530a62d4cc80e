// Package httpstatus exposes a read-only view of the plugin subsystem's
// live state over HTTP, re-expressing the accessor surface of
// plugin_manager_interface.cpp (getCallMediaHandlers,
// getChatHandlerStatus, etc.) as JSON endpoints since D-Bus is out of
// scope. Handlers follow a plain status-code-plus-json.NewEncoder
// convention, no framework.
package httpstatus

import (
	"encoding/json"
	"net/http"
	"strings"
)

// PluginManager is the subset of internal/manager.Manager this surface
// needs.
type PluginManager interface {
	GetLoadedPlugins() []string
	GetComponents(path string) []string
}

// CallHandlers is the subset of internal/callsvc.Manager this surface
// needs.
type CallHandlers interface {
	GetCallMediaHandlers() []string
	GetCallMediaHandlerStatus(callID string) []string
}

// ChatHandlers is the subset of internal/chatsvc.Manager this surface
// needs.
type ChatHandlers interface {
	GetChatHandlerStatus(accountID, peerID string) []string
}

// Server serves the read-only status endpoints.
type Server struct {
	plugins PluginManager
	calls   CallHandlers
	chats   ChatHandlers
}

// New constructs a Server. Any of the three dependencies may be nil, in
// which case the endpoints relying on it report an empty result.
func New(plugins PluginManager, calls CallHandlers, chats ChatHandlers) *Server {
	return &Server{plugins: plugins, calls: calls, chats: chats}
}

// Handler builds the net/http.ServeMux routing every status endpoint.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /plugins", s.listPlugins)
	mux.HandleFunc("GET /plugins/{path...}", s.pluginComponents)
	mux.HandleFunc("GET /calls/{id}/handlers", s.callHandlers)
	mux.HandleFunc("GET /conversations/{account}/{peer}/handlers", s.chatHandlers)
	return mux
}

func (s *Server) listPlugins(w http.ResponseWriter, _ *http.Request) {
	var paths []string
	if s.plugins != nil {
		paths = s.plugins.GetLoadedPlugins()
	}
	writeJSON(w, http.StatusOK, map[string]any{"plugins": paths})
}

func (s *Server) pluginComponents(w http.ResponseWriter, r *http.Request) {
	path := r.PathValue("path")
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	var components []string
	if s.plugins != nil {
		components = s.plugins.GetComponents(path)
	}
	writeJSON(w, http.StatusOK, map[string]any{"path": path, "components": components})
}

func (s *Server) callHandlers(w http.ResponseWriter, r *http.Request) {
	callID := r.PathValue("id")
	resp := map[string]any{"callId": callID}
	if s.calls != nil {
		resp["handlers"] = s.calls.GetCallMediaHandlers()
		resp["active"] = s.calls.GetCallMediaHandlerStatus(callID)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) chatHandlers(w http.ResponseWriter, r *http.Request) {
	account := r.PathValue("account")
	peer := r.PathValue("peer")
	var active []string
	if s.chats != nil {
		active = s.chats.GetChatHandlerStatus(account, peer)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"accountId": account,
		"peerId":    peer,
		"active":    active,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
