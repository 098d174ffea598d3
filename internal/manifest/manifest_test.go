package manifest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const validManifest = `
id = "p115strmhelper"
name = "115 STRM Helper"
version = "1.4.0"
min_host_version = "2.0.0"
description = "Manage STRM files for 115 cloud storage"
author = "panelkit"
`

func TestParse_Valid(t *testing.T) {
	m, err := Parse([]byte(validManifest))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}

	if m.ID != "p115strmhelper" {
		t.Errorf("ID = %q, want %q", m.ID, "p115strmhelper")
	}
	if m.Name != "115 STRM Helper" {
		t.Errorf("Name = %q, want %q", m.Name, "115 STRM Helper")
	}
	if m.Version != "1.4.0" {
		t.Errorf("Version = %q, want %q", m.Version, "1.4.0")
	}
	if m.MinHostVersion != "2.0.0" {
		t.Errorf("MinHostVersion = %q, want %q", m.MinHostVersion, "2.0.0")
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{"not toml", `{"id": "x"}`, "parse manifest"},
		{"missing id", `name = "x"` + "\n" + `version = "1.0.0"`, "missing id"},
		{"missing name", `id = "x"` + "\n" + `version = "1.0.0"`, "missing name"},
		{"missing version", `id = "x"` + "\n" + `name = "x"`, "missing version"},
		{"bad version", `id = "x"` + "\n" + `name = "x"` + "\n" + `version = "one"`, `version "one"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.input))
			if err == nil {
				t.Fatal("Parse returned nil error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_BadMinHostVersion(t *testing.T) {
	m := &Manifest{ID: "x", Name: "x", Version: "1.0.0", MinHostVersion: "latest"}

	err := m.Validate()
	if err == nil {
		t.Fatal("Validate accepted unparseable min_host_version")
	}
	if !strings.Contains(err.Error(), "min_host_version") {
		t.Errorf("error = %q, want it to name min_host_version", err)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.toml")
	if err := os.WriteFile(path, []byte(validManifest), 0o644); err != nil {
		t.Fatal(err)
	}

	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if m.ID != "p115strmhelper" {
		t.Errorf("ID = %q, want %q", m.ID, "p115strmhelper")
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("Load returned nil error for a missing file")
	}
}

func TestCompatibleWith(t *testing.T) {
	tests := []struct {
		name        string
		minHost     string
		hostVersion string
		want        bool
	}{
		{"no requirement", "", "0.0.1", true},
		{"host newer", "2.0.0", "2.1.0", true},
		{"host equal", "2.0.0", "2.0.0", true},
		{"host older", "2.0.0", "1.9.9", false},
		{"dev host build", "2.0.0", "dev", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Manifest{ID: "x", Name: "x", Version: "1.0.0", MinHostVersion: tt.minHost}

			if got := m.CompatibleWith(tt.hostVersion); got != tt.want {
				t.Errorf("CompatibleWith(%q) = %v, want %v", tt.hostVersion, got, tt.want)
			}
		})
	}
}

func TestMarshal_Roundtrip(t *testing.T) {
	m := &Manifest{ID: "demo", Name: "Demo", Version: "0.1.0"}

	out, err := m.Marshal()
	if err != nil {
		t.Fatalf("Marshal returned error: %v", err)
	}

	got, err := Parse(out)
	if err != nil {
		t.Fatalf("Parse of marshaled output failed: %v", err)
	}
	if got.ID != m.ID || got.Name != m.Name || got.Version != m.Version {
		t.Errorf("roundtrip = %+v, want %+v", got, m)
	}
}
