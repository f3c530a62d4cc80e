// Package host wires one internal/manager.Manager together with the
// three services managers and the preference store into a single
// top-level owner object, constructed once by cmd/ring-plugind and
// threaded explicitly rather than kept in package globals.
package host

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ringphone/pluginhost/internal/callsvc"
	"github.com/ringphone/pluginhost/internal/chatsvc"
	"github.com/ringphone/pluginhost/internal/config"
	"github.com/ringphone/pluginhost/internal/httpstatus"
	"github.com/ringphone/pluginhost/internal/logging"
	"github.com/ringphone/pluginhost/internal/manager"
	"github.com/ringphone/pluginhost/internal/metrics"
	"github.com/ringphone/pluginhost/internal/prefstore"
	"github.com/ringphone/pluginhost/internal/prefsvc"
	"github.com/ringphone/pluginhost/pkg/pluginapi"
	"github.com/ringphone/pluginhost/pkg/subject"
)

// Host owns every piece of the plugin subsystem for one process.
type Host struct {
	Config config.Config

	Manager *manager.Manager
	Calls   *callsvc.Manager
	Chats   *chatsvc.Manager
	Prefs   *prefsvc.Manager
	Store   *prefstore.Store

	guard *sync.Mutex
}

// Option customizes New.
type Option func(*options)

type options struct {
	isAndroid     bool
	restartSender callsvc.RestartSender
	sendText      func(accountID, peerID string, body map[string]string) error
}

// WithAndroidClient disables call-media video restart notifications,
// matching the Android client's own exception to that behavior.
func WithAndroidClient() Option {
	return func(o *options) { o.isAndroid = true }
}

// WithRestartSender supplies the callback invoked when a video handler's
// attach/detach should cause the call to restart its RTP sender.
func WithRestartSender(fn callsvc.RestartSender) Option {
	return func(o *options) { o.restartSender = fn }
}

// WithTextSender supplies the callback used by the "sendTextMessage"
// host service plugins invoke to inject outgoing chat messages.
func WithTextSender(fn func(accountID, peerID string, body map[string]string) error) Option {
	return func(o *options) { o.sendText = fn }
}

// New constructs a Host from cfg, wiring every component together and
// registering the plugin-facing host services
// (getPluginDataPath/getPluginPreferences/setPluginPreference,
// sendTextMessage) that close over the preference store.
func New(cfg config.Config, opts ...Option) *Host {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	log := logging.New(cfg.LogLevel, cfg.LogFormat)
	guard := &sync.Mutex{}

	store := prefstore.New(cfg.DataDir)
	mgr := manager.New(nil, log)
	calls := callsvc.New(o.isAndroid, o.restartSender)
	chats := chatsvc.New(store, store, o.sendText)
	prefs := prefsvc.New(guard)

	calls.RegisterComponents(mgr)
	chats.RegisterComponents(mgr)
	prefs.RegisterComponents(mgr)

	h := &Host{
		Config:  cfg,
		Manager: mgr,
		Calls:   calls,
		Chats:   chats,
		Prefs:   prefs,
		Store:   store,
		guard:   guard,
	}
	h.registerPreferenceServices()
	return h
}

// registerPreferenceServices registers the host services that let a
// plugin ask for its own data directory and preference values without
// internal/manager needing to know anything about internal/prefstore.
func (h *Host) registerPreferenceServices() {
	h.Manager.RegisterService("getPluginDataPath", func(caller *pluginapi.Plugin, data any) int32 {
		req, ok := data.(*DataPathQuery)
		if !ok || caller == nil {
			return -1
		}
		req.Result = caller.Path
		return 0
	})
	h.Manager.RegisterService("getPluginPreferences", func(caller *pluginapi.Plugin, data any) int32 {
		req, ok := data.(*PreferenceQuery)
		if !ok || caller == nil {
			return -1
		}
		values, err := h.Store.GetPreferencesValuesMap(caller.Path, req.AccountID)
		if err != nil {
			return -1
		}
		req.Result = values
		return 0
	})
	h.Manager.RegisterService("setPluginPreference", func(caller *pluginapi.Plugin, data any) int32 {
		req, ok := data.(*PreferenceSet)
		if !ok || caller == nil {
			return -1
		}
		if err := h.Store.SetPreferenceValue(caller.Path, req.AccountID, req.Key, req.Value); err != nil {
			return -1
		}
		return 0
	})
}

// DataPathQuery is the request/response payload for the
// "getPluginDataPath" host service.
type DataPathQuery struct {
	Result string
}

// PreferenceQuery is the request/response payload for the
// "getPluginPreferences" host service.
type PreferenceQuery struct {
	AccountID string
	Result    map[string]string
}

// PreferenceSet is the request payload for the "setPluginPreference"
// host service.
type PreferenceSet struct {
	AccountID string
	Key       string
	Value     string
}

// Start loads every installed plugin for the host's configured ABI tag
// and, if enabled, begins watching the plugins directory for new
// installs.
func (h *Host) Start(ctx context.Context) error {
	if err := h.Chats.LoadAllowDenyListsFromStore(); err != nil {
		return err
	}
	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		return errors.Wrap(err, "host: register metrics")
	}
	if err := h.Manager.LoadInstalled(ctx, h.Store.ForABI(h.Config.ABITag)); err != nil {
		return errors.Wrap(err, "host: load installed plugins")
	}
	if h.Config.WatchPluginsDir {
		if err := h.Manager.Watch(ctx, h.Store.PluginsDir()); err != nil {
			return errors.Wrap(err, "host: watch plugins directory")
		}
	}
	return nil
}

// Stop unloads every loaded plugin in reverse-insertion order.
func (h *Host) Stop() {
	h.Manager.Teardown()
}

// StatusHandler builds the read-only HTTP status surface over this
// host's live state.
func (h *Host) StatusHandler() *httpstatus.Server {
	return httpstatus.New(h.Manager, h.Calls, h.Chats)
}

// NewAVSubject is a convenience used by the call layer to create and
// register a fresh frame subject for a stream, deciding handler
// auto-attach via the chat-style "always" preference mechanism applied
// to call-media handlers.
func (h *Host) NewAVSubject(sd pluginapi.StreamData) *subject.Subject[[]byte] {
	sub := subject.New[[]byte]()
	h.Calls.CreateAVSubject(sd, sub, func(handlerID string) bool {
		return h.Store.IsAlways(handlerRootPath(handlerID), handlerName(handlerID))
	})
	return sub
}
