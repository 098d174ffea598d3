package bridge

import (
	"log/slog"
	"sync"

	"github.com/panelkit-dev/panelkit/internal/capability"
)

// Materializer turns a host-injected descriptor into a live capability
// handle. The default builds an HTTP-backed client.
type Materializer func(capability.Descriptor) (capability.Handle, error)

// Channel is the guest side of the capability exchange. It announces
// readiness once per mount, accepts the capability injection at most once,
// and dispatches host-pushed envelopes to registered reactions.
//
// The handle slot is written exactly once, by the channel itself; sibling
// widgets read it through Handle. There is no timeout while waiting for the
// injection — "handle absent" is a normal, indefinitely-pending pre-state.
type Channel struct {
	mu          sync.Mutex
	transport   Transport
	logger      *slog.Logger
	materialize Materializer

	announced bool
	handle    capability.Handle

	onShowConfig func()
}

// ChannelOption configures a Channel.
type ChannelOption func(*Channel)

// WithLogger sets the channel logger.
func WithLogger(logger *slog.Logger) ChannelOption {
	return func(c *Channel) {
		c.logger = logger
	}
}

// WithMaterializer overrides how descriptors become handles. Used by tests
// and by hosts that hand the guest an in-process handle.
func WithMaterializer(m Materializer) ChannelOption {
	return func(c *Channel) {
		c.materialize = m
	}
}

// OnShowConfig registers the reaction to a host-pushed showConfig envelope.
func OnShowConfig(fn func()) ChannelOption {
	return func(c *Channel) {
		c.onShowConfig = fn
	}
}

// NewChannel creates a channel over the given transport. A nil transport is
// allowed: outbound envelopes are then silently skipped, matching the
// host-absent degradation contract.
func NewChannel(transport Transport, opts ...ChannelOption) *Channel {
	c := &Channel{
		transport: transport,
		logger:    slog.Default(),
		materialize: func(d capability.Descriptor) (capability.Handle, error) {
			return capability.FromDescriptor(d)
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// AnnounceReady sends the ready envelope to the host. Only the first call
// per mount has effect; later calls are no-ops. Transport failures are
// logged and swallowed — the guest stays interactive when the host is
// absent or silent.
func (c *Channel) AnnounceReady() {
	c.mu.Lock()
	if c.announced {
		c.mu.Unlock()
		return
	}

	c.announced = true
	transport := c.transport
	c.mu.Unlock()

	if transport == nil {
		return
	}

	env, err := NewEnvelope(KindReady, nil)
	if err != nil {
		return
	}

	if err := transport.Post(env); err != nil {
		c.logger.Debug("bridge: ready announcement failed", slog.String("error", err.Error()))
	}
}

// Dispatch routes a host-pushed envelope. Unrecognized kinds and malformed
// payloads produce no state change and no error: the channel is an open
// broadcast medium and foreign traffic must not crash the guest.
func (c *Channel) Dispatch(env Envelope) {
	switch env.Kind {
	case KindAPI:
		c.acceptCapability(env)
	case KindShowConfig:
		c.mu.Lock()
		fn := c.onShowConfig
		c.mu.Unlock()

		if fn != nil {
			fn()
		}
	case KindReady, KindSave, KindClose:
		// Guest-originated kinds echoed back by a misbehaving host. Ignore.
	default:
		c.logger.Debug("bridge: ignoring unknown envelope kind", slog.String("kind", string(env.Kind)))
	}
}

// acceptCapability writes the handle slot at most once per mount.
func (c *Channel) acceptCapability(env Envelope) {
	var desc capability.Descriptor
	if err := env.DecodePayload(&desc); err != nil {
		c.logger.Debug("bridge: dropping malformed api envelope", slog.String("error", err.Error()))
		return
	}

	handle, err := c.materialize(desc)
	if err != nil {
		c.logger.Debug("bridge: dropping unusable capability descriptor", slog.String("error", err.Error()))
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.handle != nil {
		// Repeated injection. The first handle stays valid until unmount.
		return
	}

	c.handle = handle
}

// Handle returns the injected capability handle, or false while the
// injection is still pending.
func (c *Channel) Handle() (capability.Handle, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.handle, c.handle != nil
}

// Transport returns the outbound transport, which may be nil.
func (c *Channel) Transport() Transport {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.transport
}
