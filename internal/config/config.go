// Package config holds the file-based configuration model. The file is
// optional everywhere: absent files and absent fields fall back to defaults.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"wimesh/lib/configutil"

	"dario.cat/mergo"
)

type Config struct {
	Global  Global   `json:"global"`
	HTTP    HTTP     `json:"http"`
	Logging Logging  `json:"logging"`
	Portals []Portal `json:"portals"`
}

type Global struct {
	// CheckInterval is the daemon poll spacing in seconds.
	CheckInterval int `json:"check_interval"`
}

type HTTP struct {
	// Timeout is the full-request timeout in seconds.
	Timeout int `json:"timeout"`
	// ConnectTimeout is the dial timeout in seconds.
	ConnectTimeout int `json:"connect_timeout"`
	MaxRetries     int `json:"max_retries"`
}

type Logging struct {
	Level   string `json:"level"`
	LogFile string `json:"log_file"`
}

type Portal struct {
	Name  string   `json:"name"`
	Type  string   `json:"type"`
	SSIDs []string `json:"ssids"`
	// MACAddress used for authentication; auto-detected when empty.
	MACAddress string `json:"mac_address"`
	// Extra carries vendor-specific settings future portal types may need.
	Extra map[string]any `json:"extra"`
}

func baseDefaults() Config {
	return Config{
		Global:  Global{CheckInterval: 5},
		HTTP:    HTTP{Timeout: 10, ConnectTimeout: 5, MaxRetries: 3},
		Logging: Logging{Level: "info"},
	}
}

// Default is the configuration used when no config file exists anywhere.
func Default() Config {
	cfg := baseDefaults()
	cfg.Portals = []Portal{{
		Name:  "KTX Khu B",
		Type:  "awing",
		SSIDs: []string{"1.Free Wi-MESH"},
	}}
	return cfg
}

func searchPaths() []string {
	paths := []string{
		"config.json5",
		"/etc/wimesh/config.json5",
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config/wimesh/config.json5"))
	}
	return paths
}

// Load reads the configuration from explicitPath if given, otherwise from
// the first file found on the search path. No file at all is not an error,
// the defaults apply.
func Load(explicitPath string) (Config, error) {
	if explicitPath != "" {
		cfg, err := configutil.ReadConfig[Config](explicitPath)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", explicitPath, err)
		}
		return withDefaults(cfg), nil
	}

	for _, path := range searchPaths() {
		cfg, err := configutil.ReadConfig[Config](path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		slog.Debug("loaded config", "path", path)
		return withDefaults(cfg), nil
	}

	slog.Debug("no config file found, using defaults")
	return Default(), nil
}

func withDefaults(cfg Config) Config {
	// fills only the fields the file left at their zero value
	if err := mergo.Merge(&cfg, baseDefaults()); err != nil {
		panic(err)
	}
	return cfg
}
