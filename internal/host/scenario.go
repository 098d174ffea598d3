package host

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario describes the state the reference host serves. It is loaded from
// a YAML file so demos and tests can script host behavior without code.
type Scenario struct {
	// Version is the host application version reported to panels.
	Version string `yaml:"version"`

	// Token, when set, is required as a Bearer token on every API request
	// and is injected into panels through the capability descriptor.
	Token string `yaml:"token"`

	// Plugins lists the plugins this host knows about.
	Plugins []PluginState `yaml:"plugins"`
}

// PluginState is the scripted status of a single plugin.
type PluginState struct {
	ID        string `yaml:"id"`
	Enabled   bool   `yaml:"enabled"`
	HasClient bool   `yaml:"has_client"`
	Running   bool   `yaml:"running"`

	// Fail makes get_status return a structured failure instead of data.
	Fail bool `yaml:"fail"`
	// FailMessage is the msg field of the structured failure. Empty falls
	// back to a generic message.
	FailMessage string `yaml:"fail_message"`
}

// DefaultScenario returns a single-plugin scenario suitable for demos.
func DefaultScenario() *Scenario {
	return &Scenario{
		Version: "2.0.0",
		Plugins: []PluginState{
			{ID: "demo", Enabled: true, HasClient: true, Running: false},
		},
	}
}

// LoadScenario reads a scenario from a YAML file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path supplied by the operator
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}

	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}

	if len(s.Plugins) == 0 {
		return nil, fmt.Errorf("scenario defines no plugins")
	}

	for i, p := range s.Plugins {
		if p.ID == "" {
			return nil, fmt.Errorf("scenario plugin %d missing id", i+1)
		}
	}

	return &s, nil
}
