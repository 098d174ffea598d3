package main

import (
	"context"
	"net"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/panelkit-dev/panelkit/internal/bridge"
	"github.com/panelkit-dev/panelkit/internal/config"
	"github.com/panelkit-dev/panelkit/internal/diagnostics"
	clierrors "github.com/panelkit-dev/panelkit/internal/errors"
	"github.com/panelkit-dev/panelkit/internal/manifest"
	"github.com/panelkit-dev/panelkit/internal/observability"
	"github.com/panelkit-dev/panelkit/internal/panel"
)

// incomingBuffer bounds host-pushed envelopes queued for the UI loop.
const incomingBuffer = 16

func newRunCmd() *cobra.Command {
	var (
		socketPath   string
		manifestPath string
		standalone   bool
	)

	cmd := &cobra.Command{
		Use:   "run [plugin-id]",
		Short: "Mount a plugin panel",
		Long: `Mount a plugin panel in the terminal.

The panel connects to a host over the bridge socket, announces readiness,
and waits for the host to inject its capability handle. With --standalone
the panel mounts without a host and stays in its pending states.

The plugin ID may come from the positional argument or from a manifest
(--manifest); the manifest also supplies the panel title.`,
		Example: `  panelkit run p115strmhelper --socket /tmp/panelkit.sock
  panelkit run --manifest ./panel.toml
  panelkit run demo --standalone`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPanel(cmd, args, socketPath, manifestPath, standalone)
		},
	}

	cmd.Flags().StringVar(&socketPath, "socket", "", "Bridge socket path to the host")
	cmd.Flags().StringVar(&manifestPath, "manifest", "", "Plugin manifest (TOML)")
	cmd.Flags().BoolVar(&standalone, "standalone", false, "Mount without a host")

	return cmd
}

func runPanel(cmd *cobra.Command, args []string, socketPath, manifestPath string, standalone bool) error {
	ctx := cmd.Context()
	logger := observability.FromContext(ctx)

	// First user-visible activity of the panel surface.
	diagnostics.EnsureInitialized(ctx)

	cfg := config.Load()

	var (
		pluginID = ""
		title    = cfg.Title()
		subtitle = cfg.Subtitle()
	)

	if len(args) == 1 {
		pluginID = args[0]
	}

	if manifestPath != "" {
		m, err := manifest.Load(manifestPath)
		if err != nil {
			return clierrors.ManifestInvalid(manifestPath, err)
		}

		if pluginID == "" {
			pluginID = m.ID
		}

		if title == "" {
			title = m.Name
		}

		if subtitle == "" {
			subtitle = m.Description
		}
	}

	if pluginID == "" {
		return &clierrors.CLIError{
			Message: "No plugin ID given",
			Hint:    "Pass a plugin ID argument or --manifest with an id field",
			Code:    clierrors.ExitUsage,
		}
	}

	opts := panel.Options{
		PluginID:           pluginID,
		Title:              title,
		Subtitle:           subtitle,
		RefreshInterval:    cfg.RefreshInterval(),
		AllowManualRefresh: cfg.AllowManualRefresh(),
		Logger:             logger,
	}

	if !standalone && socketPath != "" {
		conn, err := net.Dial("unix", socketPath)
		if err != nil {
			return clierrors.SocketUnavailable(socketPath, err)
		}
		defer conn.Close()

		stream := bridge.NewStream(conn)
		incoming := make(chan bridge.Envelope, incomingBuffer)

		serveCtx, serveCancel := context.WithCancel(ctx)
		defer serveCancel()

		go func() {
			defer close(incoming)

			_ = stream.Serve(serveCtx, func(env bridge.Envelope) {
				select {
				case incoming <- env:
				case <-serveCtx.Done():
				}
			})
		}()

		opts.Transport = stream
		opts.Incoming = incoming
	}

	m := panel.New(opts)
	defer m.Poller().Stop()

	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return err
	}

	return diagnostics.Default.Shutdown(ctx)
}
