// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Report ReportConfig `toml:"report"`
	Export ExportConfig `toml:"export"`
	Log    LogConfig    `toml:"log"`
}

// ReportConfig maps report and dashboard settings.
type ReportConfig struct {
	PlotHeight   *int    `toml:"plot-height"`
	PlotWidth    *int    `toml:"plot-width"`
	Color        *bool   `toml:"color"`
	SkipBadFiles *bool   `toml:"skip-bad-files"`
	Material     *string `toml:"material"`
}

// ExportConfig maps export settings.
type ExportConfig struct {
	OutDir *string `toml:"out-dir"`
}

// LogConfig maps logging settings.
type LogConfig struct {
	Level *string `toml:"level"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return FileConfig{}, fmt.Errorf("unknown config key %q", undecoded[0].String())
	}
	return cfg, nil
}
