package main

import (
	"github.com/spf13/cobra"

	clierrors "github.com/panelkit-dev/panelkit/internal/errors"
	"github.com/panelkit-dev/panelkit/internal/manifest"
	"github.com/panelkit-dev/panelkit/internal/output"
)

func newManifestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "manifest",
		Short: "Inspect plugin manifests",
		Long:  `Validate and inspect plugin panel manifests (TOML).`,
	}

	cmd.AddCommand(newManifestCheckCmd())

	return cmd
}

// ManifestInfo represents a validated manifest for JSON output.
type ManifestInfo struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Version        string `json:"version"`
	MinHostVersion string `json:"min_host_version,omitempty"`
	Compatible     bool   `json:"compatible"`
}

func newManifestCheckCmd() *cobra.Command {
	var hostVersion string

	cmd := &cobra.Command{
		Use:   "check <manifest>",
		Short: "Validate a plugin manifest",
		Long: `Validate a plugin manifest file.

Checks required fields, semantic version syntax, and, when --host-version
is given, whether the manifest's min_host_version accepts that host.`,
		Example: `  panelkit manifest check ./panel.toml
  panelkit manifest check ./panel.toml --host-version 2.1.0`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.FromContext(cmd.Context())
			path := args[0]

			m, err := manifest.Load(path)
			if err != nil {
				return clierrors.ManifestInvalid(path, err)
			}

			compatible := true
			if hostVersion != "" {
				compatible = m.CompatibleWith(hostVersion)
			}

			if out.JSON {
				return out.PrintJSON(ManifestInfo{
					ID:             m.ID,
					Name:           m.Name,
					Version:        m.Version,
					MinHostVersion: m.MinHostVersion,
					Compatible:     compatible,
				})
			}

			out.Success("Manifest valid")
			out.Print("ID:      %s\n", m.ID)
			out.Print("Name:    %s\n", m.Name)
			out.Print("Version: %s\n", m.Version)

			if m.MinHostVersion != "" {
				out.Print("Min host: %s\n", m.MinHostVersion)
			}

			if hostVersion != "" && !compatible {
				return clierrors.HostIncompatible(m.MinHostVersion, hostVersion)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&hostVersion, "host-version", "", "Host version to check compatibility against")

	return cmd
}
