// Package config loads and validates squish configuration.
//
// Configuration sources (in order of precedence):
//  1. CLI flags (highest priority)
//  2. Environment variables (SQUISH_*)
//  3. Configuration file (squish.toml in the XDG config directory)
//  4. Default values (lowest priority)
//
// The configuration file is optional: if it is missing or unreadable the
// defaults apply and loading continues.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/squishfs/squish/internal/logger"
)

// Xattr handling modes for extract operations.
const (
	XattrAll      = "all"
	XattrUserOnly = "user-only"
	XattrNone     = "none"
)

// Config captures the static configuration of the tool.
type Config struct {
	// MountBase is the directory name (relative to the working directory)
	// under which auto-derived mount points are created.
	MountBase string `mapstructure:"mount_base" validate:"required"`

	// TempDir is where mount tracking records are stored. It must exist.
	TempDir string `mapstructure:"temp_dir" validate:"required"`

	// AutoCleanup removes auto-created mount directories after unmount.
	AutoCleanup bool `mapstructure:"auto_cleanup"`

	// Verbose enables debug logging.
	Verbose bool `mapstructure:"verbose"`

	// Compression is the default mksquashfs compression algorithm.
	Compression string `mapstructure:"compression" validate:"required"`

	// BlockSize is the default mksquashfs block size.
	BlockSize string `mapstructure:"block_size" validate:"required"`

	// Processors is the mksquashfs processor count; 0 means auto-detect
	// via nproc.
	Processors int `mapstructure:"processors" validate:"gte=0"`

	// XattrMode controls extended-attribute handling on extract:
	// all, user-only, or none. Empty selects a default based on
	// privileges (root handles system xattrs, others do not).
	XattrMode string `mapstructure:"xattr_mode" validate:"omitempty,oneof=all user-only none"`

	// Exclude lists default exclusion patterns for build operations.
	Exclude []string `mapstructure:"exclude"`

	// Logging controls log output behavior.
	Logging logger.Config `mapstructure:"logging"`
}

// FileName is the configuration file searched for in the XDG config dir.
const FileName = "squish.toml"

// Load merges configuration from file, environment, and defaults.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("toml")

	// True-by-default booleans must come from viper defaults, since a
	// false zero value is indistinguishable from "unset" after decoding.
	v.SetDefault("auto_cleanup", true)

	v.SetEnvPrefix("SQUISH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Bind explicitly so AutomaticEnv sees keys that are absent from the
	// config file.
	for _, key := range []string{
		"mount_base", "temp_dir", "auto_cleanup", "verbose",
		"compression", "block_size", "processors", "xattr_mode", "exclude",
	} {
		_ = v.BindEnv(key)
	}

	path := filepath.Join(xdg.ConfigHome, FileName)
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		if _, statErr := os.Stat(path); statErr == nil {
			// File exists but is unreadable or malformed: warn and
			// continue with defaults, matching the documented behavior.
			logger.Warn("could not load config file, using defaults",
				logger.KeyPath, path, logger.KeyError, err.Error())
		}
	}

	cfg := &Config{}
	decoderOpt := func(dc *mapstructure.DecoderConfig) {
		dc.WeaklyTypedInput = true
	}
	if err := v.Unmarshal(cfg, decoderOpt); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}

	ApplyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks structural validity plus the filesystem constraints on
// TempDir.
func Validate(cfg *Config) error {
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	info, err := os.Stat(cfg.TempDir)
	if err != nil {
		return fmt.Errorf("temp_dir does not exist: %s", cfg.TempDir)
	}
	if !info.IsDir() {
		return fmt.Errorf("temp_dir is not a directory: %s", cfg.TempDir)
	}
	return nil
}
