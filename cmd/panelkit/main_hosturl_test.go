package main

import (
	"os"
	"strings"
	"testing"

	clierrors "github.com/panelkit-dev/panelkit/internal/errors"
)

func TestValidateHostURL(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{name: "https valid", raw: "https://host.example.dev"},
		{name: "http valid", raw: "http://localhost:17420"},
		{name: "trims spaces", raw: "  https://host.example.dev  "},
		{name: "empty", raw: "   ", wantErr: true},
		{name: "no scheme", raw: "host.example.dev", wantErr: true},
		{name: "unsupported scheme", raw: "ftp://host.example.dev", wantErr: true},
		{name: "missing host", raw: "https:///path", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := validateHostURL(tc.raw)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("validateHostURL(%q) expected error", tc.raw)
				}

				return
			}

			if err != nil {
				t.Fatalf("validateHostURL(%q) error = %v", tc.raw, err)
			}

			if got == "" {
				t.Fatal("validated URL must not be empty")
			}
		})
	}
}

func TestRootCmd_HostURLFlagSetsEnv(t *testing.T) {
	t.Setenv("PANELKIT_HOST_URL", "https://from-env.example")

	root := newRootCmd()
	root.SetArgs([]string{"--host-url", "https://from-flag.example", "version"})

	err := root.Execute()
	if err != nil {
		t.Fatalf("root.Execute() error = %v", err)
	}

	if got := strings.TrimSpace(os.Getenv("PANELKIT_HOST_URL")); got != "https://from-flag.example" {
		t.Fatalf("PANELKIT_HOST_URL = %q, want https://from-flag.example", got)
	}
}

func TestRootCmd_HostURLFlagRejectsInvalidValue(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"--host-url", "bad-url", "version"})

	err := root.Execute()
	if err == nil {
		t.Fatal("expected error for invalid --host-url")
	}

	var cliErr *clierrors.CLIError
	if !clierrors.As(err, &cliErr) {
		t.Fatalf("expected CLIError, got %T: %v", err, err)
	}

	if cliErr.Code != clierrors.ExitUsage {
		t.Fatalf("exit code = %d, want %d", cliErr.Code, clierrors.ExitUsage)
	}

	if !strings.Contains(cliErr.Message, "Invalid host URL") {
		t.Fatalf("error message = %q, want Invalid host URL", cliErr.Message)
	}
}
