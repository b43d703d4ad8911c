package archive

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/squishfs/squish/internal/logger"
	"github.com/squishfs/squish/pkg/deps"
	"github.com/squishfs/squish/pkg/errdefs"
)

// checksumExt is appended to a file's name to form its checksum companion.
const checksumExt = ".sha256"

// ChecksumFile returns the checksum companion path for a file. Keeping the
// companion in the same directory is what makes sha256sum -c resolve the
// target correctly.
func ChecksumFile(path string) string {
	return path + checksumExt
}

// GenerateChecksum writes the sha256sum output for path into its companion
// checksum file.
func (m *Manager) GenerateChecksum(ctx context.Context, path string) error {
	if err := deps.Require(m.runner, deps.ToolSha256sum); err != nil {
		return err
	}

	argv := []string{deps.ToolSha256sum, path}
	res, err := m.runner.Run(ctx, argv[0], argv[1:]...)
	if err != nil || res.ExitCode != 0 {
		stderr := res.Stderr
		if err != nil && stderr == "" {
			stderr = err.Error()
		}
		return errdefs.NewCommandError(errdefs.OpChecksum, argv, res.ExitCode, stderr)
	}

	companion := ChecksumFile(path)
	if err := os.WriteFile(companion, []byte(strings.TrimSpace(res.Stdout)+"\n"), 0o644); err != nil {
		return &errdefs.ChecksumError{File: companion, Reason: err.Error()}
	}
	logger.Debug("wrote checksum", logger.KeyPath, companion)
	return nil
}

// VerifyChecksum checks path against its companion checksum file using
// sha256sum -c. The companion must exist next to the target and contain an
// entry naming it.
func (m *Manager) VerifyChecksum(ctx context.Context, path string) error {
	logger.Info("verifying checksum", logger.KeyPath, path)

	if _, err := os.Stat(path); err != nil {
		return &errdefs.ChecksumError{File: path, Reason: "target file does not exist"}
	}
	companion := ChecksumFile(path)
	if _, err := os.Stat(companion); err != nil {
		return &errdefs.ChecksumError{File: companion, Reason: "checksum file does not exist"}
	}

	content, err := os.ReadFile(companion)
	if err != nil {
		return &errdefs.ChecksumError{File: companion, Reason: "could not read checksum file: " + err.Error()}
	}
	target := filepath.Base(path)
	if !strings.Contains(string(content), target) {
		return &errdefs.ChecksumError{File: companion, Reason: "no entry for " + target}
	}

	if err := deps.Require(m.runner, deps.ToolSha256sum); err != nil {
		return err
	}

	argv := []string{deps.ToolSha256sum, "-c", companion}
	res, err := m.runner.Run(ctx, argv[0], argv[1:]...)
	if err != nil || res.ExitCode != 0 {
		stderr := res.Stderr
		if err != nil && stderr == "" {
			stderr = err.Error()
		}
		return errdefs.NewCommandError(errdefs.OpChecksum, argv, res.ExitCode, stderr)
	}
	if !strings.Contains(res.Stdout, "OK") {
		logger.Warn("unexpected checksum verification output",
			logger.KeyCommand, strings.Join(argv, " "))
	}
	return nil
}
