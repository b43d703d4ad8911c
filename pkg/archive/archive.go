// Package archive wraps the squashfs-tools commands behind validated,
// testable operations: building archives, extracting and listing their
// contents, and checksum generation and verification.
//
// All external invocations go through an executor.Runner so the package
// tests run without the real toolchain installed.
package archive

import (
	"context"
	"io"

	"github.com/squishfs/squish/pkg/config"
	"github.com/squishfs/squish/pkg/executor"
)

// Manager runs archive operations with a shared configuration and runner.
type Manager struct {
	cfg    *config.Config
	runner executor.Runner
}

// NewManager returns a Manager using the given configuration and runner.
func NewManager(cfg *config.Config, runner executor.Runner) *Manager {
	return &Manager{cfg: cfg, runner: runner}
}

// run dispatches a command either plainly or with console progress
// rendering when a progress writer is supplied.
func (m *Manager) run(ctx context.Context, progress io.Writer, label string, argv []string) (executor.Result, error) {
	if progress == nil {
		return m.runner.Run(ctx, argv[0], argv[1:]...)
	}
	tracker := newConsoleProgress(progress, label)
	res, err := m.runner.Stream(ctx, tracker.Line, argv[0], argv[1:]...)
	tracker.Finish(err == nil && res.ExitCode == 0)
	return res, err
}
