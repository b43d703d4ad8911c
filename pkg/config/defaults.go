package config

import "os"

// Default values applied to unset fields.
const (
	DefaultMountBase   = "mounts"
	DefaultTempDir     = "/tmp"
	DefaultCompression = "zstd"
	DefaultBlockSize   = "1M"
)

// ApplyDefaults sets default values for any unspecified fields. Zero
// values are replaced; explicit values are preserved.
func ApplyDefaults(cfg *Config) {
	if cfg.MountBase == "" {
		cfg.MountBase = DefaultMountBase
	}
	if cfg.TempDir == "" {
		cfg.TempDir = DefaultTempDir
	}
	if cfg.Compression == "" {
		cfg.Compression = DefaultCompression
	}
	if cfg.BlockSize == "" {
		cfg.BlockSize = DefaultBlockSize
	}
	if cfg.XattrMode == "" {
		cfg.XattrMode = defaultXattrMode()
	}
	applyLoggingDefaults(cfg)
}

// defaultXattrMode picks the xattr handling mode from privileges: root can
// restore system xattrs such as security.selinux, other users cannot.
func defaultXattrMode() string {
	if os.Geteuid() == 0 {
		return XattrAll
	}
	return XattrUserOnly
}

func applyLoggingDefaults(cfg *Config) {
	if cfg.Logging.Level == "" {
		if cfg.Verbose {
			cfg.Logging.Level = "DEBUG"
		} else {
			cfg.Logging.Level = "INFO"
		}
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stderr"
	}
}
