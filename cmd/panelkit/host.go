package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	clierrors "github.com/panelkit-dev/panelkit/internal/errors"
	"github.com/panelkit-dev/panelkit/internal/host"
	"github.com/panelkit-dev/panelkit/internal/observability"
	"github.com/panelkit-dev/panelkit/internal/output"
)

func newHostCmd() *cobra.Command {
	var (
		addr         string
		socketPath   string
		scenarioPath string
		showConfigIn time.Duration
	)

	cmd := &cobra.Command{
		Use:   "host",
		Short: "Start the reference host",
		Long: `Start the reference host application.

The host serves the plugin status API over HTTP and listens on a unix
socket for panel bridge connections. Each connecting panel gets a
capability injection in response to its ready announcement; relayed
configuration saves are recorded in memory and logged.

Scenario files (YAML) script the plugin states the host serves.`,
		Example: `  panelkit host
  panelkit host --addr :17420 --socket /tmp/panelkit.sock
  panelkit host --scenario ./scenario.yaml --push-config-after 10s`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHost(cmd, addr, socketPath, scenarioPath, showConfigIn)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "localhost:17420", "HTTP API listen address")
	cmd.Flags().StringVar(&socketPath, "socket", defaultSocketPath(), "Bridge socket path")
	cmd.Flags().StringVar(&scenarioPath, "scenario", "", "Scenario file (YAML)")
	cmd.Flags().DurationVar(&showConfigIn, "push-config-after", 0, "Push showConfig to panels after this delay (0 disables)")

	return cmd
}

func defaultSocketPath() string {
	return fmt.Sprintf("%s/panelkit-%d.sock", os.TempDir(), os.Getuid())
}

func runHost(cmd *cobra.Command, addr, socketPath, scenarioPath string, showConfigIn time.Duration) error {
	out := output.FromContext(cmd.Context())
	logger := observability.FromContext(cmd.Context())

	scenario := host.DefaultScenario()

	if scenarioPath != "" {
		loaded, err := host.LoadScenario(scenarioPath)
		if err != nil {
			return clierrors.ConfigFailed("load scenario", err)
		}

		scenario = loaded
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	h := host.New(scenario, host.WithLogger(logger))

	if err := h.Listen(ctx, addr); err != nil {
		return clierrors.HostUnreachable(addr, err)
	}

	_ = os.Remove(socketPath)

	ln, err := net.Listen("unix", socketPath)
	if err != nil {
		return clierrors.SocketUnavailable(socketPath, err)
	}
	defer ln.Close()
	defer os.Remove(socketPath)

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	out.Success("Host API on %s", h.BaseURL())
	out.Info("Bridge socket: %s", socketPath)
	out.Muted("Attach a panel: panelkit run %s --socket %s", scenario.Plugins[0].ID, socketPath)

	for {
		conn, acceptErr := ln.Accept()
		if acceptErr != nil {
			if ctx.Err() != nil {
				return nil
			}

			return fmt.Errorf("accept panel connection: %w", acceptErr)
		}

		go servePanel(ctx, h, conn, scenario.Plugins[0].ID, showConfigIn)
	}
}

// servePanel runs one panel session. The plugin ID for the capability
// injection comes from the scenario's first plugin.
func servePanel(ctx context.Context, h *host.Host, conn net.Conn, pluginID string, showConfigIn time.Duration) {
	defer conn.Close()

	a, err := h.Attach(conn, pluginID)
	if err != nil {
		return
	}

	if showConfigIn > 0 {
		go func() {
			select {
			case <-ctx.Done():
			case <-time.After(showConfigIn):
				_ = a.PushShowConfig()
			}
		}()
	}

	_ = a.Serve(ctx, nil)
}
