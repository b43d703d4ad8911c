package archive

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/squishfs/squish/internal/logger"
	"github.com/squishfs/squish/pkg/config"
	"github.com/squishfs/squish/pkg/deps"
	"github.com/squishfs/squish/pkg/errdefs"
	"github.com/squishfs/squish/pkg/pathutil"
)

// ExtractOptions configures an unsquashfs invocation.
type ExtractOptions struct {
	// Archive is the squashfs file to unpack. It must exist and be a
	// regular file.
	Archive string

	// OutputDir is where the contents land. Empty uses unsquashfs's
	// default, squashfs-root under the working directory. A missing
	// directory is created.
	OutputDir string

	// XattrMode overrides the configured extended-attribute mode when set.
	XattrMode string

	// Progress, when non-nil, receives an in-place percentage rendering
	// of the extraction.
	Progress io.Writer
}

// Extract unpacks a squashfs archive and returns the directory the
// contents landed in.
func (m *Manager) Extract(ctx context.Context, opts ExtractOptions) (string, error) {
	archive, err := pathutil.Normalize(opts.Archive)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(archive)
	if err != nil {
		return "", &errdefs.InvalidPathError{Path: opts.Archive, Err: err}
	}
	if info.IsDir() {
		return "", &errdefs.InvalidPathError{Path: opts.Archive, Err: errors.New("not a regular file")}
	}

	if err := deps.Require(m.runner, deps.ToolUnsquashfs); err != nil {
		return "", err
	}

	dest := opts.OutputDir
	defaultDest := dest == ""
	if defaultDest {
		cwd, err := os.Getwd()
		if err != nil {
			return "", err
		}
		dest = filepath.Join(cwd, "squashfs-root")
	} else {
		if err := pathutil.EnsureDir(dest); err != nil {
			return "", err
		}
		if dest, err = pathutil.Normalize(dest); err != nil {
			return "", err
		}
	}

	mode := opts.XattrMode
	if mode == "" {
		mode = m.cfg.XattrMode
	}

	argv := []string{deps.ToolUnsquashfs}
	if !defaultDest {
		argv = append(argv, "-d", dest)
	}
	if opts.Progress != nil {
		argv = append(argv, "-percentage")
	} else {
		argv = append(argv, "-i")
	}
	argv = append(argv, xattrFlags(mode)...)
	argv = append(argv, archive)

	start := time.Now()
	logger.Info("extracting archive",
		logger.KeyArchive, archive,
		logger.KeyOutput, dest)

	res, err := m.run(ctx, opts.Progress, "Extracting "+filepath.Base(archive), argv)
	if err != nil || res.ExitCode != 0 {
		stderr := res.Stderr
		if err != nil && stderr == "" {
			stderr = err.Error()
		}
		logger.Error("extract failed",
			logger.KeyArchive, archive,
			logger.KeyExitCode, res.ExitCode)
		cmdErr := errdefs.NewCommandError(errdefs.OpExtract, argv, res.ExitCode, stderr)
		if isXattrFailure(stderr) {
			return "", &errdefs.XattrError{Mode: mode, Suggestion: xattrSuggestion(mode), Err: cmdErr}
		}
		return "", cmdErr
	}

	logger.Info("extracted archive",
		logger.KeyOutput, dest,
		logger.KeyDurationMs, logger.Duration(start))
	return dest, nil
}

// xattrFlags maps an xattr mode onto unsquashfs flags. The user-only mode
// skips the security.* and trusted.* namespaces, which need privileges to
// restore.
func xattrFlags(mode string) []string {
	switch mode {
	case config.XattrAll:
		return []string{"-xattrs"}
	case config.XattrNone:
		return []string{"-no-xattrs"}
	default:
		return []string{"-xattrs-include", "^user."}
	}
}

var xattrFailureMarkers = []string{
	"write_xattr",
	"xattr",
	"XATTR",
	"security.selinux",
	"not superuser",
}

func isXattrFailure(stderr string) bool {
	for _, marker := range xattrFailureMarkers {
		if strings.Contains(stderr, marker) {
			return true
		}
	}
	return false
}

func xattrSuggestion(mode string) string {
	if mode == config.XattrAll {
		return "try --xattr-mode user-only to skip system xattrs, --xattr-mode none to disable xattrs entirely, or run as superuser"
	}
	return "try --xattr-mode none to disable xattrs entirely, or run as superuser"
}
