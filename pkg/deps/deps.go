// Package deps verifies external tool availability before operations run.
//
// Checks are pure preconditions with no partial effects: either every
// required tool is present or the operation aborts before anything is
// mutated.
package deps

import (
	"runtime"

	"github.com/squishfs/squish/internal/logger"
	"github.com/squishfs/squish/pkg/errdefs"
	"github.com/squishfs/squish/pkg/executor"
)

// Tool names of the external helpers squish orchestrates.
const (
	ToolSquashfuse = "squashfuse"
	ToolFusermount = "fusermount"
	ToolMksquashfs = "mksquashfs"
	ToolUnsquashfs = "unsquashfs"
	ToolSha256sum  = "sha256sum"
	ToolNproc      = "nproc"
)

// Require checks that every named tool resolves on PATH. It returns a
// DependencyError naming the first missing tool.
func Require(runner executor.Runner, tools ...string) error {
	for _, tool := range tools {
		if _, err := runner.LookPath(tool); err != nil {
			logger.Debug("dependency missing", logger.KeyTool, tool)
			return &errdefs.DependencyError{Tool: tool}
		}
		logger.Debug("dependency available", logger.KeyTool, tool)
	}
	return nil
}

// RequirePlatform rejects platforms where the squashfs helper toolchain is
// unavailable. The FUSE helpers squish drives exist only on Linux.
func RequirePlatform() error {
	if runtime.GOOS != "linux" {
		return &errdefs.DependencyError{Tool: "linux (detected " + runtime.GOOS + ")"}
	}
	return nil
}
