package archive

import (
	"context"

	"github.com/squishfs/squish/internal/logger"
	"github.com/squishfs/squish/pkg/deps"
	"github.com/squishfs/squish/pkg/errdefs"
	"github.com/squishfs/squish/pkg/pathutil"
)

// List streams the archive's long-format table of contents line by line
// through onLine.
func (m *Manager) List(ctx context.Context, archive string, onLine func(string)) error {
	normalized, err := pathutil.Normalize(archive)
	if err != nil {
		return err
	}
	if err := deps.Require(m.runner, deps.ToolUnsquashfs); err != nil {
		return err
	}

	argv := []string{deps.ToolUnsquashfs, "-llc", normalized}
	res, err := m.runner.Stream(ctx, onLine, argv[0], argv[1:]...)
	if err != nil || res.ExitCode != 0 {
		stderr := res.Stderr
		if err != nil && stderr == "" {
			stderr = err.Error()
		}
		logger.Error("list failed",
			logger.KeyArchive, normalized,
			logger.KeyExitCode, res.ExitCode)
		return errdefs.NewCommandError(errdefs.OpList, argv, res.ExitCode, stderr)
	}
	return nil
}
