package main

import (
	"bytes"
	"testing"

	"github.com/panelkit-dev/panelkit/internal/doctor"
	"github.com/panelkit-dev/panelkit/internal/output"
	"github.com/panelkit-dev/panelkit/internal/terminal"
	"github.com/panelkit-dev/panelkit/internal/testutil"
)

// renderDoctorOutput reproduces the doctor command's output formatting logic
// with the given results, so golden tests can run without real checks.
func renderDoctorOutput(results []doctor.Result) string {
	var buf bytes.Buffer

	term := &terminal.Info{IsTTY: false, NoColor: true, Width: 80, Height: 24}
	out := output.NewWriter(&buf, &buf, term)

	out.Println("PanelKit Doctor")
	out.Println("===============")
	out.Println()

	maxNameLen := 0
	for _, r := range results {
		if len(r.Name) > maxNameLen {
			maxNameLen = len(r.Name)
		}
	}

	for _, r := range results {
		padding := maxNameLen - len(r.Name) + 4

		switch r.Status {
		case doctor.StatusPass:
			out.Success("%-*s%s", len(r.Name)+padding, r.Name, r.Message)
		case doctor.StatusWarn:
			out.Warning("%-*s%s", len(r.Name)+padding, r.Name, r.Message)
		case doctor.StatusFail:
			out.Failure("%-*s%s", len(r.Name)+padding, r.Name, r.Message)
		}

		if r.Detail != "" {
			out.Muted("    %s", r.Detail)
		}
	}

	passed, failed, warnings := doctor.Summary(results)

	out.Println()
	out.Print("%d passed", passed)

	if failed > 0 {
		out.Print(", %d failed", failed)
	}

	if warnings > 0 {
		out.Print(", %d warning(s)", warnings)
	}

	out.Println()

	return buf.String()
}

func TestDoctorOutput_AllPass_Golden(t *testing.T) {
	results := []doctor.Result{
		{Name: "Host API", Status: doctor.StatusPass, Message: "http://localhost:17420 (12ms)"},
		{Name: "Credentials", Status: doctor.StatusPass, Message: "Token found (keyring)"},
		{Name: "Config Directory", Status: doctor.StatusPass, Message: "/home/user/.config/panelkit"},
		{Name: "CLI Version", Status: doctor.StatusPass, Message: "v1.2.0 (latest)"},
	}

	got := renderDoctorOutput(results)
	testutil.AssertGolden(t, got, "doctor_all_pass.golden")
}

func TestDoctorOutput_Mixed_Golden(t *testing.T) {
	results := []doctor.Result{
		{Name: "Host API", Status: doctor.StatusPass, Message: "http://localhost:17420 (12ms)"},
		{Name: "Credentials", Status: doctor.StatusFail, Message: "No host token stored", Detail: "Run 'panelkit auth login' if your host requires a token"},
		{Name: "Config Directory", Status: doctor.StatusWarn, Message: "Config directory does not exist yet"},
		{Name: "CLI Version", Status: doctor.StatusWarn, Message: "v1.1.0 (v1.2.0 available)", Detail: "Run 'panelkit update' to update"},
	}

	got := renderDoctorOutput(results)
	testutil.AssertGolden(t, got, "doctor_mixed.golden")
}

func TestDoctorOutput_AllFail_Golden(t *testing.T) {
	results := []doctor.Result{
		{Name: "Host API", Status: doctor.StatusFail, Message: "http://localhost:17420", Detail: "connection refused"},
		{Name: "Credentials", Status: doctor.StatusFail, Message: "No host token stored", Detail: "Run 'panelkit auth login' if your host requires a token"},
		{Name: "Config Directory", Status: doctor.StatusFail, Message: "Cannot resolve config directory"},
		{Name: "CLI Version", Status: doctor.StatusWarn, Message: "Development build (version check skipped)"},
	}

	got := renderDoctorOutput(results)
	testutil.AssertGolden(t, got, "doctor_all_fail.golden")
}
