// Package config handles PanelKit configuration using Viper.
//
// Configuration sources (in priority order):
//  1. Environment variables (PANELKIT_*)
//  2. Config file (~/.config/panelkit/config.yaml)
//  3. Built-in defaults
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/panelkit-dev/panelkit/internal/paths"
)

const (
	// DefaultHostURL is the default host API endpoint.
	DefaultHostURL = "http://localhost:17420"
	// DefaultRefreshInterval is the default status refresh interval in
	// seconds. Zero disables auto-refresh.
	DefaultRefreshInterval = 30
)

// Config holds the PanelKit configuration.
type Config struct {
	v *viper.Viper
}

// Load reads configuration from all sources.
func Load() *Config {
	v := viper.New()

	// Set defaults
	v.SetDefault("host.url", DefaultHostURL)
	v.SetDefault("panel.refresh_interval", DefaultRefreshInterval)
	v.SetDefault("panel.allow_manual_refresh", true)
	v.SetDefault("panel.title", "")
	v.SetDefault("panel.subtitle", "")

	// Config file location
	if root, err := paths.ConfigRoot(); err == nil {
		v.AddConfigPath(root)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	// Environment variables
	v.SetEnvPrefix("PANELKIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (ignore if not found, but warn on other errors)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "Warning: error reading config file: %v\n", err)
		}
	}

	return &Config{v: v}
}

// Get returns a configuration value.
func (c *Config) Get(key string) interface{} {
	return c.v.Get(key)
}

// GetString returns a configuration value as string.
func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// GetInt returns a configuration value as int.
func (c *Config) GetInt(key string) int {
	return c.v.GetInt(key)
}

// GetBool returns a configuration value as bool.
func (c *Config) GetBool(key string) bool {
	return c.v.GetBool(key)
}

// Set sets a configuration value and persists it.
func (c *Config) Set(key string, value interface{}) error {
	c.v.Set(key, value)

	root, err := paths.ConfigRoot()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(root, 0o700); err != nil {
		return err
	}

	configFile := filepath.Join(root, "config.yaml")

	return c.v.WriteConfigAs(configFile)
}

// All returns all configuration as a map.
func (c *Config) All() map[string]interface{} {
	return c.v.AllSettings()
}

// HostURL returns the configured host API URL.
func (c *Config) HostURL() string {
	return c.GetString("host.url")
}

// RefreshInterval returns the status refresh interval. Zero disables
// auto-refresh.
func (c *Config) RefreshInterval() time.Duration {
	seconds := c.GetInt("panel.refresh_interval")
	if seconds <= 0 {
		return 0
	}

	return time.Duration(seconds) * time.Second
}

// AllowManualRefresh reports whether the panel offers a manual refresh
// action.
func (c *Config) AllowManualRefresh() bool {
	return c.GetBool("panel.allow_manual_refresh")
}

// Title returns the optional panel display title.
func (c *Config) Title() string {
	return c.GetString("panel.title")
}

// Subtitle returns the optional panel display subtitle.
func (c *Config) Subtitle() string {
	return c.GetString("panel.subtitle")
}
