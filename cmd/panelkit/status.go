package main

import (
	"github.com/spf13/cobra"

	"github.com/panelkit-dev/panelkit/internal/capability"
	clierrors "github.com/panelkit-dev/panelkit/internal/errors"
	"github.com/panelkit-dev/panelkit/internal/observability"
	"github.com/panelkit-dev/panelkit/internal/output"
	"github.com/panelkit-dev/panelkit/internal/status"
)

// StatusInfo represents a plugin status for JSON output.
type StatusInfo struct {
	PluginID  string `json:"plugin_id"`
	Enabled   bool   `json:"enabled"`
	HasClient bool   `json:"has_client"`
	Running   bool   `json:"running"`
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <plugin-id>",
		Short: "Fetch a plugin's status once",
		Long: `Fetch a plugin's runtime status from the host API and print it.

Unlike the mounted panel, this is a one-shot request using the configured
host URL and stored credentials; no bridge connection is involved.`,
		Example: `  panelkit status p115strmhelper
  panelkit status p115strmhelper --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.FromContext(cmd.Context())
			logger := observability.FromContext(cmd.Context())
			pluginID := args[0]

			handle, err := newCapabilityHandle()
			if err != nil {
				return err
			}

			poller := status.New(pluginID,
				func() (capability.Handle, bool) { return handle, true },
				status.WithLogger(logger),
			)

			spin := newSpinnerUnlessJSON(out, "Fetching status")
			poller.Refresh(cmd.Context())
			snap := poller.Snapshot()

			if snap.Err != "" {
				if spin != nil {
					spin.StopWithFailure("Status request failed")
				}

				return clierrors.StatusFetchFailed(errFromSnapshot(snap))
			}

			if spin != nil {
				spin.Stop()
			}

			if out.JSON {
				return out.PrintJSON(StatusInfo{
					PluginID:  pluginID,
					Enabled:   snap.Enabled,
					HasClient: snap.HasClient,
					Running:   snap.Running,
				})
			}

			out.Print("Plugin:  %s\n", pluginID)
			out.Print("Enabled: %s\n", onOff(snap.Enabled))
			out.Print("Client:  %s\n", onOff(snap.HasClient))
			out.Print("Running: %s\n", onOff(snap.Running))

			return nil
		},
	}
}

func onOff(v bool) string {
	if v {
		return "on"
	}

	return "off"
}
