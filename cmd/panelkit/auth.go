package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/panelkit-dev/panelkit/internal/auth"
	clierrors "github.com/panelkit-dev/panelkit/internal/errors"
	"github.com/panelkit-dev/panelkit/internal/output"
	"github.com/panelkit-dev/panelkit/internal/prompt"
)

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage host credentials",
		Long:  `Store and inspect the host API token used by panels and one-shot commands.`,
	}

	cmd.AddCommand(newAuthLoginCmd())
	cmd.AddCommand(newAuthStatusCmd())
	cmd.AddCommand(newAuthLogoutCmd())

	return cmd
}

func newAuthLoginCmd() *cobra.Command {
	var tokenFlag string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store a host API token",
		Long: `Store the host API token used for capability requests.

The token is stored securely in your system's keyring
(macOS Keychain, Windows Credential Manager, or Linux Secret Service).

You can also set the PANELKIT_HOST_TOKEN environment variable.`,
		Example: `  panelkit auth login
  PANELKIT_HOST_TOKEN=xxx panelkit auth login`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.FromContext(cmd.Context())
			prompter := prompt.New(out)

			// Check if already authenticated via env var
			if key := os.Getenv("PANELKIT_HOST_TOKEN"); key != "" {
				out.Info("PANELKIT_HOST_TOKEN environment variable is set")
				out.Muted("Environment variable takes precedence over stored credentials")
				out.Println()
			}

			var token string
			if tokenFlag != "" {
				token = tokenFlag
			} else {
				// Interactive flow: prompt for the token
				if !prompter.CanPrompt() {
					return clierrors.CannotPrompt("PANELKIT_HOST_TOKEN")
				}

				var err error

				token, err = prompter.Password("Enter your host API token")
				if err != nil {
					return fmt.Errorf("read token prompt: %w", err)
				}
			}

			if token == "" {
				return clierrors.TokenEmpty()
			}

			if err := auth.StoreToken(token); err != nil {
				return clierrors.ConfigFailed("store credentials", err)
			}

			out.Success("Host token stored")

			return nil
		},
	}

	cmd.Flags().StringVar(&tokenFlag, "token", "", "Token for non-interactive login (prefer PANELKIT_HOST_TOKEN env var to avoid shell history exposure)")

	return cmd
}

// AuthStatus represents authentication status for JSON output.
type AuthStatus struct {
	Source string `json:"source"`
	Stored bool   `json:"stored"`
}

func newAuthStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "status",
		Short:   "Show credential status",
		Long:    `Show whether a host API token is stored and where it was found.`,
		Example: `  panelkit auth status --json`,
		Args:    noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.FromContext(cmd.Context())

			source, token := auth.GetCredentials()

			if out.JSON {
				return out.PrintJSON(AuthStatus{
					Source: string(source),
					Stored: token != "",
				})
			}

			if token == "" {
				out.Muted("No host token stored")
				out.Info("Run 'panelkit auth login' if your host requires a token")

				return nil
			}

			out.Success("Host token found")
			out.Print("Source: %s\n", source)

			return nil
		},
	}
}

func newAuthLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "logout",
		Short:   "Clear stored credentials",
		Long:    `Remove the stored host API token from the keyring and the file fallback.`,
		Example: `  panelkit auth logout`,
		Args:    noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.FromContext(cmd.Context())

			if err := auth.DeleteToken(); err != nil {
				// If the token doesn't exist, that's fine
				if strings.Contains(err.Error(), "not found") || strings.Contains(err.Error(), "no stored") {
					out.Muted("No stored credentials found")
					return nil
				}

				return clierrors.ConfigFailed("clear credentials", err)
			}

			out.Success("Logged out successfully")

			if os.Getenv("PANELKIT_HOST_TOKEN") != "" {
				out.Println()
				out.Warning("PANELKIT_HOST_TOKEN environment variable is still set")
			}

			return nil
		},
	}
}
