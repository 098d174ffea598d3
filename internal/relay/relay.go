// Package relay forwards guest-authored configuration changes to the host.
//
// Save and Close are fire-and-forget notifications: the protocol has no
// acknowledgement path, and the guest proceeds optimistically. When the
// outbound transport is unavailable both operations are silent no-ops — a
// relay failure must never propagate into guest rendering code.
package relay

import (
	"log/slog"

	"github.com/panelkit-dev/panelkit/internal/bridge"
	"github.com/panelkit-dev/panelkit/internal/view"
)

// Relay posts persistence envelopes to the host.
type Relay struct {
	transport bridge.Transport
	views     *view.Controller
	logger    *slog.Logger
}

// New creates a relay. transport may be nil, in which case every operation
// degrades to its local side effect only.
func New(transport bridge.Transport, views *view.Controller, logger *slog.Logger) *Relay {
	if logger == nil {
		logger = slog.Default()
	}

	return &Relay{
		transport: transport,
		views:     views,
		logger:    logger,
	}
}

// Save forwards a configuration object to the host and returns the guest to
// the primary view. The view transition happens regardless of whether the
// host could be reached: the guest assumes success and the host owns
// reconciling the difference.
func (r *Relay) Save(config any) {
	r.post(bridge.KindSave, config)

	if r.views != nil {
		r.views.ReturnToPrimary()
	}
}

// Close asks the host to dismiss the guest surface. There is no local state
// effect — dismissal is solely the host's responsibility.
func (r *Relay) Close() {
	r.post(bridge.KindClose, nil)
}

func (r *Relay) post(kind bridge.Kind, payload any) {
	if r.transport == nil {
		return
	}

	env, err := bridge.NewEnvelope(kind, payload)
	if err != nil {
		r.logger.Debug("relay: dropping unencodable envelope",
			slog.String("kind", string(kind)),
			slog.String("error", err.Error()))
		return
	}

	if err := r.transport.Post(env); err != nil {
		r.logger.Debug("relay: host unreachable",
			slog.String("kind", string(kind)),
			slog.String("error", err.Error()))
	}
}
