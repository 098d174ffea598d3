// Package view tracks which guest view is active.
//
// The view set is closed: a panel shows either its primary surface or its
// configuration form, never anything else. Switching is synchronous and
// total — every reachable state accepts every event, so host-pushed commands
// and local user actions can interleave in any order without falling through
// to an undefined transition.
package view

import "sync"

// View identifies one of the named guest views.
type View string

// The closed view set.
const (
	Primary View = "primary"
	Config  View = "config"
)

// Controller selects the active view. The initial view is always Primary.
type Controller struct {
	mu       sync.Mutex
	active   View
	onChange func(View)
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// OnChange registers a callback invoked after every transition that changes
// the active view. The callback runs synchronously under the transition.
func OnChange(fn func(View)) ControllerOption {
	return func(c *Controller) {
		c.onChange = fn
	}
}

// NewController creates a controller in the Primary view.
func NewController(opts ...ControllerOption) *Controller {
	c := &Controller{active: Primary}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Active returns the currently active view.
func (c *Controller) Active() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.active
}

// Toggle handles the local user switch action: Primary flips to Config and
// Config flips back to Primary.
func (c *Controller) Toggle() {
	c.mu.Lock()
	next := Primary
	if c.active == Primary {
		next = Config
	}
	c.set(next)
	c.mu.Unlock()
}

// ShowConfig handles the host-pushed command to surface the config view.
// Already being in Config is a no-op.
func (c *Controller) ShowConfig() {
	c.mu.Lock()
	c.set(Config)
	c.mu.Unlock()
}

// ReturnToPrimary drives the controller back to the primary view, e.g. after
// a configuration save has been relayed to the host.
func (c *Controller) ReturnToPrimary() {
	c.mu.Lock()
	c.set(Primary)
	c.mu.Unlock()
}

// set applies a transition. Callers hold c.mu.
func (c *Controller) set(next View) {
	if c.active == next {
		return
	}

	c.active = next

	if c.onChange != nil {
		c.onChange(next)
	}
}
