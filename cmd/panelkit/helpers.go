package main

import (
	"errors"

	"github.com/panelkit-dev/panelkit/internal/auth"
	"github.com/panelkit-dev/panelkit/internal/capability"
	"github.com/panelkit-dev/panelkit/internal/config"
	"github.com/panelkit-dev/panelkit/internal/output"
	"github.com/panelkit-dev/panelkit/internal/status"
)

// newCapabilityHandle builds a capability client from the configured host
// URL and stored credentials. Out-of-panel commands (status, doctor) use
// this instead of waiting for a bridge injection.
func newCapabilityHandle() (*capability.Client, error) {
	cfg := config.Load()
	_, token := auth.GetCredentials()

	return capability.New(cfg.HostURL(), token), nil
}

// newSpinnerUnlessJSON starts a spinner unless JSON output is active, where
// spinner frames would corrupt stdout.
func newSpinnerUnlessJSON(out *output.Writer, message string) *output.Spinner {
	if out.JSON {
		return nil
	}

	spin := out.Spinner(message)
	spin.Start()

	return spin
}

// errFromSnapshot converts a snapshot's inline error string back to an error
// for the CLI error funnel.
func errFromSnapshot(snap status.Snapshot) error {
	return errors.New(snap.Err)
}
