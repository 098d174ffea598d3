// Package manifest loads and validates plugin panel manifests.
//
// A manifest is a TOML file describing a plugin panel: its identity, the
// host API version it needs, and optional display metadata. The reference
// host and the CLI both read manifests before attaching a panel.
package manifest

import (
	"fmt"
	"os"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/pelletier/go-toml/v2"
)

// Manifest describes a plugin panel.
type Manifest struct {
	// ID is the stable plugin identifier used in host API paths.
	ID string `toml:"id"`

	// Name is the human-readable plugin name.
	Name string `toml:"name"`

	// Version is the plugin's own semantic version.
	Version string `toml:"version"`

	// MinHostVersion is the minimum host application version the panel
	// supports. Empty means any host.
	MinHostVersion string `toml:"min_host_version"`

	// Description is optional display text shown in panel headers.
	Description string `toml:"description"`

	// Author is optional attribution text.
	Author string `toml:"author"`
}

// Parse decodes a manifest from TOML bytes and validates required fields.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}

	return &m, nil
}

// Load reads and parses a manifest file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path supplied by the operator
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	return Parse(data)
}

// Validate checks required fields and version syntax.
func (m *Manifest) Validate() error {
	if strings.TrimSpace(m.ID) == "" {
		return fmt.Errorf("manifest missing id")
	}

	if strings.TrimSpace(m.Name) == "" {
		return fmt.Errorf("manifest missing name")
	}

	if strings.TrimSpace(m.Version) == "" {
		return fmt.Errorf("manifest missing version")
	}

	if _, err := semver.NewVersion(m.Version); err != nil {
		return fmt.Errorf("manifest version %q: %w", m.Version, err)
	}

	if m.MinHostVersion != "" {
		if _, err := semver.NewVersion(m.MinHostVersion); err != nil {
			return fmt.Errorf("manifest min_host_version %q: %w", m.MinHostVersion, err)
		}
	}

	return nil
}

// CompatibleWith reports whether the given host version satisfies the
// manifest's MinHostVersion. An empty MinHostVersion accepts any host.
// Unparseable host versions (dev builds) are treated as compatible.
func (m *Manifest) CompatibleWith(hostVersion string) bool {
	if m.MinHostVersion == "" {
		return true
	}

	required, err := semver.NewVersion(m.MinHostVersion)
	if err != nil {
		return true
	}

	actual, err := semver.NewVersion(hostVersion)
	if err != nil {
		// Dev builds report versions like "dev"; don't block them.
		return true
	}

	return !actual.LessThan(required)
}

// Marshal encodes the manifest back to TOML.
func (m *Manifest) Marshal() ([]byte, error) {
	out, err := toml.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal manifest: %w", err)
	}

	return out, nil
}
