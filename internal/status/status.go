// Package status polls the host for the plugin's runtime status.
//
// The poller owns a small typed snapshot refreshed on a fixed cadence or on
// demand. Failures surface as a short inline error state and never clear the
// previously loaded values, so the panel keeps showing the last known status
// while the host is unreachable.
package status

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/panelkit-dev/panelkit/internal/capability"
)

// fallbackError is surfaced when the host reports a failure without a
// message of its own.
const fallbackError = "status request failed"

// Snapshot is the poller's view of the plugin status plus its derived UI
// state. HasLoadedOnce transitions false→true exactly once, on the first
// successful fetch, and never resets.
type Snapshot struct {
	Enabled   bool
	HasClient bool
	Running   bool

	Loading         bool
	Err             string
	HasLoadedOnce   bool
	LastRefreshedAt time.Time
}

// DisplayState is the rendering bucket derived from a snapshot.
type DisplayState string

// Display states, in precedence order.
const (
	DisplayInitialLoading DisplayState = "initial-loading"
	DisplayError          DisplayState = "error"
	DisplayData           DisplayState = "data"
	DisplayEmpty          DisplayState = "empty"
)

// Display derives the rendering bucket. It is a pure function of the
// snapshot.
func (s Snapshot) Display() DisplayState {
	switch {
	case s.Loading && !s.HasLoadedOnce:
		return DisplayInitialLoading
	case s.Err != "":
		return DisplayError
	case s.HasLoadedOnce:
		return DisplayData
	default:
		return DisplayEmpty
	}
}

// statusData is the wire shape of the host's get_status data field.
type statusData struct {
	Enabled   bool `json:"enabled"`
	HasClient bool `json:"has_client"`
	Running   bool `json:"running"`
}

// HandleSource yields the capability handle once the host has injected it.
// Before injection it reports false, which the poller treats as a normal
// pending pre-state rather than an error.
type HandleSource func() (capability.Handle, bool)

// Poller refreshes the status snapshot through the capability handle.
//
// Overlapping refreshes are tolerated: a manual refresh may fire while a
// timer-triggered one is outstanding, and the last response to arrive wins.
// Requests are not cancelled — this preserves the observable timing of the
// original surface rather than introducing a new ordering.
type Poller struct {
	pluginID string
	source   HandleSource
	logger   *slog.Logger
	onUpdate func(Snapshot)
	now      func() time.Time

	mu      sync.Mutex
	snap    Snapshot
	stopped bool
	cancel  context.CancelFunc
}

// Option configures a Poller.
type Option func(*Poller)

// OnUpdate registers a callback invoked with a copy of the snapshot after
// every refresh outcome. Used by the panel to repaint.
func OnUpdate(fn func(Snapshot)) Option {
	return func(p *Poller) {
		p.onUpdate = fn
	}
}

// WithLogger sets the poller logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Poller) {
		p.logger = logger
	}
}

// withClock overrides the time source. Used by tests.
func withClock(now func() time.Time) Option {
	return func(p *Poller) {
		p.now = now
	}
}

// New creates a poller for the given plugin ID.
func New(pluginID string, source HandleSource, opts ...Option) *Poller {
	p := &Poller{
		pluginID: pluginID,
		source:   source,
		logger:   slog.Default(),
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Snapshot returns a copy of the current snapshot.
func (p *Poller) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.snap
}

// Refresh performs a single status fetch and applies the outcome.
//
// It may be called before the capability handle exists: the snapshot then
// stays in its loading pre-state until a later refresh finds the handle.
func (p *Poller) Refresh(ctx context.Context) {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}

	p.snap.Loading = true
	p.snap.Err = ""
	p.notifyLocked()

	source := p.source
	p.mu.Unlock()

	handle, ok := source()
	if !ok {
		// Capability not injected yet. Not an error — stay pending.
		return
	}

	result, err := handle.Get(ctx, fmt.Sprintf("plugin/%s/get_status", p.pluginID))
	p.apply(result, err)
}

// apply writes a refresh outcome into the snapshot. Late responses arriving
// after Stop are discarded without mutation.
func (p *Poller) apply(result *capability.Result, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return
	}

	p.snap.Loading = false

	if err != nil {
		p.snap.Err = err.Error()
		p.notifyLocked()
		return
	}

	if !result.OK() {
		msg := fallbackError
		if result != nil && result.Msg != "" {
			msg = result.Msg
		}

		p.snap.Err = msg
		p.notifyLocked()
		return
	}

	var data statusData
	if jsonErr := json.Unmarshal(result.Data, &data); jsonErr != nil {
		p.snap.Err = fallbackError
		p.notifyLocked()
		return
	}

	p.snap.Enabled = data.Enabled
	p.snap.HasClient = data.HasClient
	p.snap.Running = data.Running
	p.snap.Err = ""
	p.snap.HasLoadedOnce = true
	p.snap.LastRefreshedAt = p.now()
	p.notifyLocked()
}

// Start fires an immediate refresh and, when interval is positive, keeps
// refreshing at that cadence until Stop or ctx cancellation. A zero or
// negative interval disables auto-refresh; only the initial fetch runs.
func (p *Poller) Start(ctx context.Context, interval time.Duration) {
	p.mu.Lock()
	if p.stopped || p.cancel != nil {
		p.mu.Unlock()
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.mu.Unlock()

	go p.Refresh(ctx)

	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)

	go func() {
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.Refresh(ctx)
			}
		}
	}()
}

// Stop cancels the refresh timer. In-flight requests are not cancelled, but
// their responses are discarded: after Stop no further snapshot mutation or
// callback occurs.
func (p *Poller) Stop() {
	p.mu.Lock()
	p.stopped = true
	cancel := p.cancel
	p.cancel = nil
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// notifyLocked invokes the update callback with a snapshot copy. Callers
// hold p.mu, so the callback must not call back into the poller.
func (p *Poller) notifyLocked() {
	if p.onUpdate != nil {
		p.onUpdate(p.snap)
	}
}
