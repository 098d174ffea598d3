package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/panelkit-dev/panelkit/internal/auth"
	"github.com/panelkit-dev/panelkit/internal/config"
	"github.com/panelkit-dev/panelkit/internal/output"
	"github.com/panelkit-dev/panelkit/internal/paths"
)

// PathsInfo holds all resolved paths for JSON output.
type PathsInfo struct {
	ConfigRoot  string `json:"config_root"`
	StateRoot   string `json:"state_root"`
	ConfigFile  string `json:"config_file"`
	Credentials string `json:"credentials"`
	LogFile     string `json:"log_file"`
	SavedConfig string `json:"saved_config"`
	UpdateState string `json:"update_state"`
	HostURL     string `json:"host_url"`
	AuthSource  string `json:"auth_source"`
}

func newPathsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "Show where PanelKit stores files",
		Long: `Display all file and directory paths used by PanelKit.

Useful for debugging, scripting, and understanding where configuration,
state, and credential files are stored on this system.`,
		Example: `  panelkit paths
  panelkit paths --json`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.FromContext(cmd.Context())

			info := resolvePathsInfo()

			if out.JSON {
				return out.PrintJSON(info)
			}

			out.Print("Config root:    %s\n", info.ConfigRoot)
			out.Print("State root:     %s\n", info.StateRoot)
			out.Print("\n")
			out.Print("Config file:    %s\n", info.ConfigFile)
			out.Print("Credentials:    %s\n", info.Credentials)
			out.Print("Log file:       %s\n", info.LogFile)
			out.Print("Saved config:   %s\n", info.SavedConfig)
			out.Print("Update state:   %s\n", info.UpdateState)
			out.Print("\n")
			out.Print("Host URL:       %s\n", info.HostURL)
			out.Print("Auth source:    %s\n", info.AuthSource)

			return nil
		},
	}
}

func resolvePathsInfo() PathsInfo {
	info := PathsInfo{}

	info.ConfigRoot = resolveOrError(paths.ConfigRoot)
	info.StateRoot = resolveOrError(paths.StateRoot)
	info.LogFile = resolveOrError(paths.DefaultLogFile)
	info.SavedConfig = resolveOrError(paths.SavedConfigFile)
	info.UpdateState = resolveOrError(paths.UpdateStateFile)
	info.Credentials = resolveOrError(paths.CredentialsFile)

	if cr := info.ConfigRoot; cr != "" {
		info.ConfigFile = cr + "/config.yaml"
	} else {
		info.ConfigFile = "<error: config root unavailable>"
	}

	cfg := config.Load()
	info.HostURL = cfg.HostURL()

	source, _ := auth.GetCredentials()
	if source == auth.SourceNone {
		info.AuthSource = "none"
	} else {
		info.AuthSource = string(source)
	}

	return info
}

func resolveOrError(fn func() (string, error)) string {
	val, err := fn()
	if err != nil {
		return fmt.Sprintf("<error: %v>", err)
	}

	return val
}
