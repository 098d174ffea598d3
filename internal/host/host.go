// Package host implements a reference host application for panel development.
//
// The host plays the other side of the bridge: it serves the plugin status
// API over HTTP, answers a guest's ready announcement with a capability
// injection, records relayed configuration saves, and can push view commands
// at an attached panel. It exists so panels can be exercised end to end
// without a production host.
package host

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/panelkit-dev/panelkit/internal/bridge"
	"github.com/panelkit-dev/panelkit/internal/capability"
)

const shutdownTimeout = 5 * time.Second

// Host is the reference host. It owns the scripted plugin states, the saved
// configuration store, and the HTTP API panels call through their capability
// handles.
type Host struct {
	logger *slog.Logger

	mu      sync.Mutex
	version string
	token   string
	plugins map[string]PluginState
	saved   map[string]json.RawMessage

	server  *http.Server
	baseURL string
}

// Option configures a Host.
type Option func(*Host)

// WithLogger sets the host logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Host) {
		h.logger = logger
	}
}

// New creates a host from a scenario. A nil scenario uses DefaultScenario.
func New(scenario *Scenario, opts ...Option) *Host {
	if scenario == nil {
		scenario = DefaultScenario()
	}

	h := &Host{
		logger:  slog.Default(),
		version: scenario.Version,
		token:   scenario.Token,
		plugins: make(map[string]PluginState, len(scenario.Plugins)),
		saved:   make(map[string]json.RawMessage),
	}

	for _, p := range scenario.Plugins {
		h.plugins[p.ID] = p
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// Version returns the host application version.
func (h *Host) Version() string {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.version
}

// BaseURL returns the address the HTTP API is serving on. Empty until Listen
// has been called.
func (h *Host) BaseURL() string {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.baseURL
}

// SetPluginState replaces the scripted state for a plugin. Panels observe
// the change on their next status refresh.
func (h *Host) SetPluginState(state PluginState) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.plugins[state.ID] = state
}

// SavedConfig returns the last configuration a panel relayed for the plugin.
func (h *Host) SavedConfig(pluginID string) (json.RawMessage, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	cfg, ok := h.saved[pluginID]

	return cfg, ok
}

// Listen binds the HTTP API to addr (":0" picks a free port) and starts
// serving in the background. Serving stops when ctx is canceled.
func (h *Host) Listen(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("bind host API: %w", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/plugin/{id}/get_status", h.handleGetStatus)

	h.mu.Lock()
	h.baseURL = "http://" + ln.Addr().String()
	h.server = &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	server := h.server
	h.mu.Unlock()

	go func() {
		if err := server.Serve(ln); err != nil && err != http.ErrServerClosed {
			h.logger.Error("host API server failed", slog.String("error", err.Error()))
		}
	}()

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		_ = server.Shutdown(shutdownCtx)
	}()

	h.logger.Info("host API listening", slog.String("addr", ln.Addr().String()))

	return nil
}

// handleGetStatus serves the plugin status endpoint in the structured
// {code, msg, data} shape panels expect.
func (h *Host) handleGetStatus(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	id := r.PathValue("id")

	h.mu.Lock()
	state, ok := h.plugins[id]
	h.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")

	switch {
	case !ok:
		writeResult(w, capability.Result{Code: 1, Msg: fmt.Sprintf("unknown plugin %q", id)})
	case state.Fail:
		msg := state.FailMessage
		if msg == "" {
			msg = "plugin status unavailable"
		}
		writeResult(w, capability.Result{Code: 1, Msg: msg})
	default:
		data, err := json.Marshal(map[string]bool{
			"enabled":    state.Enabled,
			"has_client": state.HasClient,
			"running":    state.Running,
		})
		if err != nil {
			http.Error(w, "encode status", http.StatusInternalServerError)
			return
		}
		writeResult(w, capability.Result{Code: 0, Data: data})
	}
}

func (h *Host) authorized(r *http.Request) bool {
	h.mu.Lock()
	token := h.token
	h.mu.Unlock()

	if token == "" {
		return true
	}

	return r.Header.Get("Authorization") == "Bearer "+token
}

func writeResult(w http.ResponseWriter, result capability.Result) {
	_ = json.NewEncoder(w).Encode(result)
}

// Attachment is one live panel session on the bridge.
type Attachment struct {
	host     *Host
	pluginID string
	stream   *bridge.Stream
}

// Attach wires a panel connection without serving it. The returned
// attachment answers the guest's ready announcement with a capability
// injection for pluginID once Serve runs.
func (h *Host) Attach(rw io.ReadWriter, pluginID string) (*Attachment, error) {
	h.mu.Lock()
	baseURL := h.baseURL
	h.mu.Unlock()

	if baseURL == "" {
		return nil, fmt.Errorf("host API not listening; call Listen first")
	}

	return &Attachment{
		host:     h,
		pluginID: pluginID,
		stream:   bridge.NewStream(rw),
	}, nil
}

// Serve reads guest envelopes until the stream closes or ctx is canceled.
// Save envelopes are recorded on the host; close envelopes invoke onClose.
func (a *Attachment) Serve(ctx context.Context, onClose func()) error {
	err := a.stream.Serve(ctx, func(env bridge.Envelope) {
		a.dispatch(env, onClose)
	})
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("panel session: %w", err)
	}

	return nil
}

// PushShowConfig commands the attached panel to surface its config view.
func (a *Attachment) PushShowConfig() error {
	env, err := bridge.NewEnvelope(bridge.KindShowConfig, nil)
	if err != nil {
		return err
	}

	return a.stream.Post(env)
}

func (a *Attachment) dispatch(env bridge.Envelope, onClose func()) {
	switch env.Kind {
	case bridge.KindReady:
		a.injectCapability()
	case bridge.KindSave:
		a.recordSave(env)
	case bridge.KindClose:
		a.host.logger.Info("panel requested dismissal", slog.String("plugin", a.pluginID))
		if onClose != nil {
			onClose()
		}
	case bridge.KindAPI, bridge.KindShowConfig:
		// Host-originated kinds coming back at us. Ignore.
	default:
		a.host.logger.Debug("host: ignoring unknown envelope kind", slog.String("kind", string(env.Kind)))
	}
}

// injectCapability answers a ready announcement with the api envelope.
func (a *Attachment) injectCapability() {
	a.host.mu.Lock()
	desc := capability.Descriptor{
		BaseURL:  a.host.baseURL,
		Token:    a.host.token,
		PluginID: a.pluginID,
	}
	a.host.mu.Unlock()

	env, err := bridge.NewEnvelope(bridge.KindAPI, desc)
	if err != nil {
		return
	}

	if err := a.stream.Post(env); err != nil {
		a.host.logger.Debug("host: capability injection failed", slog.String("error", err.Error()))
	}
}

// recordSave stores the relayed configuration. The protocol has no
// acknowledgement, so failures are logged and dropped.
func (a *Attachment) recordSave(env bridge.Envelope) {
	payload := env.Payload
	if len(payload) == 0 {
		payload = json.RawMessage("{}")
	}

	if !json.Valid(payload) {
		a.host.logger.Debug("host: dropping malformed save payload", slog.String("plugin", a.pluginID))
		return
	}

	a.host.mu.Lock()
	a.host.saved[a.pluginID] = append(json.RawMessage(nil), payload...)
	a.host.mu.Unlock()

	a.host.logger.Info("recorded panel configuration",
		slog.String("plugin", a.pluginID),
		slog.Int("bytes", len(payload)))
}
