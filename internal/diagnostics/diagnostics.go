// Package diagnostics owns the process-wide error/telemetry reporter.
//
// Initialization is deferred until a component's first user-visible activity
// and happens at most once per process lifetime. A failed attempt still
// counts as the one attempt: diagnostics must never become a cause of
// application failure, so a failure is logged and telemetry stays off.
package diagnostics

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/panelkit-dev/panelkit/internal/buildinfo"
	"github.com/panelkit-dev/panelkit/internal/observability"
)

// State is the lifecycle position of a diagnostics session.
type State int

// Session lifecycle. Transitions are irreversible: once a session leaves
// StateUninitialized it never returns.
const (
	StateUninitialized State = iota
	StateInitializing
	StateInitialized
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateInitialized:
		return "initialized"
	default:
		return "unknown"
	}
}

// Session is a diagnostics lifecycle holder. The package-level Default is
// the process-wide singleton; separate sessions exist only for tests.
type Session struct {
	mu       sync.Mutex
	state    State
	logger   *slog.Logger
	setup    setupFunc
	shutdown observability.TelemetryShutdown
}

type setupFunc func(context.Context, *observability.TelemetryConfig) (observability.TelemetryShutdown, error)

// Default is the process-wide diagnostics session.
var Default = NewSession(nil)

// reporterMu guards the process-global reporter slot.
var (
	reporterMu     sync.Mutex
	globalReporter *observability.TelemetryConfig
)

type reporterKey struct{}

// NewSession creates a session for tests or embedded use. A nil logger
// falls back to slog.Default.
func NewSession(logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}

	return &Session{
		logger: logger,
		setup:  observability.SetupTelemetry,
	}
}

// RegisterReporter publishes a reporter configuration in the process-global
// well-known slot. Hosts that own a telemetry pipeline call this before the
// guest mounts so EnsureInitialized attaches to it instead of building a
// throwaway one.
func RegisterReporter(cfg *observability.TelemetryConfig) {
	reporterMu.Lock()
	globalReporter = cfg
	reporterMu.Unlock()
}

// WithReporter returns a context carrying a reporter configuration. The
// context slot is consulted before the process-global one.
func WithReporter(ctx context.Context, cfg *observability.TelemetryConfig) context.Context {
	return context.WithValue(ctx, reporterKey{}, cfg)
}

// EnsureInitialized performs the one-time diagnostics activation. Calls
// while another caller is initializing, or after the attempt has completed,
// return immediately — the underlying reporting client must never be
// registered twice. Initialization failures are logged locally and never
// propagate.
func EnsureInitialized(ctx context.Context) {
	Default.EnsureInitialized(ctx)
}

// EnsureInitialized is the session-scoped entry point.
func (s *Session) EnsureInitialized(ctx context.Context) {
	s.mu.Lock()
	if s.state != StateUninitialized {
		s.mu.Unlock()
		return
	}

	s.state = StateInitializing
	s.mu.Unlock()

	cfg := locateReporter(ctx)

	shutdown, err := s.setup(ctx, cfg)
	if err != nil {
		// The attempt still counts. No retry, no propagation.
		s.logger.Warn("diagnostics initialization failed",
			slog.String("error", err.Error()))
		shutdown = nil
	}

	s.mu.Lock()
	s.shutdown = shutdown
	s.state = StateInitialized
	s.mu.Unlock()
}

// State returns the session's lifecycle position.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// Shutdown flushes the telemetry pipeline if one was attached. Safe to call
// in any state.
func (s *Session) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	shutdown := s.shutdown
	s.mu.Unlock()

	if shutdown == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return shutdown(ctx)
}

// locateReporter finds the reporter configuration to attach to. Search
// order: the calling context's slot, then the process-global slot. When
// neither exists a minimal throwaway configuration is constructed solely to
// satisfy the client's initialization contract.
func locateReporter(ctx context.Context) *observability.TelemetryConfig {
	if cfg, ok := ctx.Value(reporterKey{}).(*observability.TelemetryConfig); ok && cfg != nil {
		return cfg
	}

	reporterMu.Lock()
	cfg := globalReporter
	reporterMu.Unlock()

	if cfg != nil {
		return cfg
	}

	return &observability.TelemetryConfig{
		Enabled:     observability.IsTelemetryEnabled(),
		ServiceName: "panelkit-guest",
		Version:     buildinfo.Version,
		Commit:      buildinfo.Commit,
	}
}
