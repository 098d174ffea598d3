// Package doctor provides diagnostic checks for PanelKit CLI health.
//
// This package implements a check framework that validates:
//   - Host API connectivity and response time
//   - Stored host credentials
//   - Config directory writability
//   - CLI version against latest release
package doctor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/panelkit-dev/panelkit/internal/auth"
	"github.com/panelkit-dev/panelkit/internal/buildinfo"
	"github.com/panelkit-dev/panelkit/internal/capability"
	"github.com/panelkit-dev/panelkit/internal/config"
	"github.com/panelkit-dev/panelkit/internal/paths"
	"github.com/panelkit-dev/panelkit/internal/update"
)

// Status represents the result of a diagnostic check.
type Status int

const (
	// StatusPass indicates the check passed.
	StatusPass Status = iota
	// StatusWarn indicates a non-critical issue.
	StatusWarn
	// StatusFail indicates a critical failure.
	StatusFail
)

// Result holds the outcome of a single check.
type Result struct {
	Name    string
	Status  Status
	Message string
	Detail  string // Optional additional detail
}

// Check is a diagnostic check function.
type Check func(ctx context.Context) Result

// Runner executes diagnostic checks.
type Runner struct {
	checks []namedCheck
}

type namedCheck struct {
	name  string
	check Check
}

// New creates a new diagnostic runner.
func New() *Runner {
	r := &Runner{}

	// Register default checks
	r.AddCheck("Host API", checkHostConnectivity)
	r.AddCheck("Credentials", checkCredentials)
	r.AddCheck("Config Directory", checkConfigDir)
	r.AddCheck("CLI Version", checkCLIVersion)

	return r
}

// AddCheck registers a diagnostic check.
func (r *Runner) AddCheck(name string, check Check) {
	r.checks = append(r.checks, namedCheck{name: name, check: check})
}

// Run executes all registered checks and returns the results.
func (r *Runner) Run(ctx context.Context) []Result {
	results := make([]Result, 0, len(r.checks))

	for _, nc := range r.checks {
		result := nc.check(ctx)
		result.Name = nc.name
		results = append(results, result)
	}

	return results
}

// Summary returns counts of passed, failed, and warning checks.
func Summary(results []Result) (passed, failed, warnings int) {
	for _, r := range results {
		switch r.Status {
		case StatusPass:
			passed++
		case StatusFail:
			failed++
		case StatusWarn:
			warnings++
		}
	}

	return passed, failed, warnings
}

// checkHostConnectivity tests connection to the configured host API.
func checkHostConnectivity(ctx context.Context) Result {
	cfg := config.Load()
	hostURL := cfg.HostURL()

	_, token := auth.GetCredentials()

	start := time.Now()

	// Any HTTP response, success or failure, proves the host is up.
	c := capability.New(hostURL, token)

	_, err := c.Get(ctx, "plugin/doctor/get_status")
	elapsed := time.Since(start)

	if err == nil || strings.Contains(err.Error(), "failed with status") {
		return Result{
			Status:  StatusPass,
			Message: fmt.Sprintf("%s (%dms)", hostURL, elapsed.Milliseconds()),
		}
	}

	return Result{
		Status:  StatusFail,
		Message: hostURL,
		Detail:  err.Error(),
	}
}

// checkCredentials reports whether a host token is stored and where.
func checkCredentials(ctx context.Context) Result {
	source, token := auth.GetCredentials()

	if token == "" {
		return Result{
			Status:  StatusWarn,
			Message: "No host token stored",
			Detail:  "Run 'panelkit auth login' if your host requires a token",
		}
	}

	return Result{
		Status:  StatusPass,
		Message: fmt.Sprintf("Token stored (via %s)", source),
	}
}

// checkConfigDir verifies the config directory exists and is writable.
func checkConfigDir(ctx context.Context) Result {
	root, err := paths.ConfigRoot()
	if err != nil {
		return Result{
			Status:  StatusFail,
			Message: "Cannot resolve config directory",
			Detail:  err.Error(),
		}
	}

	if mkErr := os.MkdirAll(root, 0o700); mkErr != nil {
		return Result{
			Status:  StatusFail,
			Message: root,
			Detail:  mkErr.Error(),
		}
	}

	probe := filepath.Join(root, ".doctor-probe")
	if writeErr := os.WriteFile(probe, []byte("ok"), 0o600); writeErr != nil {
		return Result{
			Status:  StatusFail,
			Message: fmt.Sprintf("%s (not writable)", root),
			Detail:  writeErr.Error(),
		}
	}

	_ = os.Remove(probe)

	return Result{
		Status:  StatusPass,
		Message: root,
	}
}

// checkCLIVersion checks the CLI version against the latest release.
func checkCLIVersion(ctx context.Context) Result {
	current := buildinfo.Version

	if current == "dev" {
		return Result{
			Status:  StatusWarn,
			Message: "Development build (version check skipped)",
		}
	}

	if update.IsDisabled() {
		return Result{
			Status:  StatusPass,
			Message: fmt.Sprintf("v%s (update checks disabled)", current),
		}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	updater, err := update.NewUpdater()
	if err != nil {
		return Result{
			Status:  StatusWarn,
			Message: fmt.Sprintf("v%s (could not check for updates)", current),
			Detail:  err.Error(),
		}
	}

	info, err := updater.CheckLatest(checkCtx, current)
	if err != nil {
		return Result{
			Status:  StatusWarn,
			Message: fmt.Sprintf("v%s (could not check for updates)", current),
			Detail:  err.Error(),
		}
	}

	if info.UpdateAvailable {
		return Result{
			Status:  StatusWarn,
			Message: fmt.Sprintf("v%s (v%s available)", current, info.LatestVersion),
			Detail:  "Run 'panelkit update' to update",
		}
	}

	return Result{
		Status:  StatusPass,
		Message: fmt.Sprintf("v%s (latest)", current),
	}
}

// Symbol returns the status symbol for display.
func (s Status) Symbol() string {
	switch s {
	case StatusPass:
		return checkMark
	case StatusWarn:
		return warningMark
	case StatusFail:
		return xMark
	default:
		return "?"
	}
}

const (
	checkMark   = "✓" // ✓
	xMark       = "✗" // ✗
	warningMark = "⚠" // ⚠
)
