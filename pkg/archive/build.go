package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/squishfs/squish/internal/logger"
	"github.com/squishfs/squish/pkg/deps"
	"github.com/squishfs/squish/pkg/errdefs"
	"github.com/squishfs/squish/pkg/pathutil"
)

// archiveExt is the default extension for built archives.
const archiveExt = ".sqsh"

// BuildOptions configures a mksquashfs invocation.
type BuildOptions struct {
	// Sources are the files and directories to pack. At least one is
	// required; every source must exist.
	Sources []string

	// Output is the archive path. Empty derives a name from the source
	// stem, falling back to archive-YYYYMMDD-nn.sqsh on collision.
	Output string

	// Excludes are -e patterns, appended after the configured defaults.
	Excludes []string

	// ExcludeFile is passed as -ef.
	ExcludeFile string

	// Wildcards and Regex select the pattern syntax for excludes.
	Wildcards bool
	Regex     bool

	// Compression and BlockSize override the configured defaults when set.
	Compression string
	BlockSize   string

	// Processors overrides the configured count; 0 falls back to the
	// configuration, then to nproc.
	Processors int

	// Progress, when non-nil, receives an in-place percentage rendering
	// of the build.
	Progress io.Writer
}

// Build creates a squashfs archive and writes a companion .sha256 file
// next to it. It returns the output path actually used.
//
// An occupied output path yields an OutputExistsError before any command
// runs; the caller decides whether to clear it and retry.
func (m *Manager) Build(ctx context.Context, opts BuildOptions) (string, error) {
	if len(opts.Sources) == 0 {
		return "", &errdefs.InvalidPathError{Path: "", Err: errors.New("at least one source is required")}
	}

	sources := make([]string, 0, len(opts.Sources))
	for _, src := range opts.Sources {
		normalized, err := pathutil.Normalize(src)
		if err != nil {
			return "", err
		}
		sources = append(sources, normalized)
	}

	output := opts.Output
	if output == "" {
		output = defaultOutputName(sources)
		logger.Debug("derived output name", logger.KeyOutput, output)
	}
	if _, err := os.Stat(output); err == nil {
		return "", &errdefs.OutputExistsError{Path: output}
	}

	if err := deps.Require(m.runner, deps.ToolMksquashfs, deps.ToolUnsquashfs, deps.ToolNproc); err != nil {
		return "", err
	}

	compression := opts.Compression
	if compression == "" {
		compression = m.cfg.Compression
	}
	blockSize := opts.BlockSize
	if blockSize == "" {
		blockSize = m.cfg.BlockSize
	}
	processors := opts.Processors
	if processors == 0 {
		processors = m.cfg.Processors
	}
	if processors == 0 {
		processors = m.detectProcessors(ctx)
	}

	excludes := append([]string(nil), m.cfg.Exclude...)
	excludes = append(excludes, opts.Excludes...)

	argv := append([]string{deps.ToolMksquashfs}, sources...)
	argv = append(argv,
		output,
		"-comp", compression,
		"-b", blockSize,
		"-processors", strconv.Itoa(processors),
		"-info",
		"-keep-as-directory",
	)
	argv = append(argv, excludeArgs(excludes, opts.ExcludeFile, opts.Wildcards, opts.Regex)...)

	start := time.Now()
	logger.Info("building archive",
		logger.KeySource, strings.Join(sources, ","),
		logger.KeyOutput, output)

	res, err := m.run(ctx, opts.Progress, "Building "+filepath.Base(output), argv)
	if err != nil || res.ExitCode != 0 {
		stderr := res.Stderr
		if err != nil && stderr == "" {
			stderr = err.Error()
		}
		logger.Error("build failed",
			logger.KeyOutput, output,
			logger.KeyExitCode, res.ExitCode)
		return "", errdefs.NewCommandError(errdefs.OpBuild, argv, res.ExitCode, stderr)
	}

	if err := m.GenerateChecksum(ctx, output); err != nil {
		return "", err
	}

	logger.Info("created archive",
		logger.KeyOutput, output,
		logger.KeyDurationMs, logger.Duration(start))
	return output, nil
}

// defaultOutputName picks <stem>.sqsh in the working directory for a single
// source, falling back to a numbered archive name when that file already
// exists or multiple sources were given.
func defaultOutputName(sources []string) string {
	if len(sources) == 1 {
		candidate := pathutil.Stem(sources[0]) + archiveExt
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
	return numberedArchiveName(".")
}

// numberedArchiveName returns the first free archive-YYYYMMDD-nn.sqsh name
// in dir, starting from 01.
func numberedArchiveName(dir string) string {
	prefix := "archive-" + time.Now().Format("20060102") + "-"

	taken := make(map[int]bool)
	entries, _ := os.ReadDir(dir)
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, archiveExt) {
			continue
		}
		numPart := strings.TrimSuffix(strings.TrimPrefix(name, prefix), archiveExt)
		if n, err := strconv.Atoi(numPart); err == nil {
			taken[n] = true
		}
	}

	n := 1
	for taken[n] {
		n++
	}
	return filepath.Join(dir, fmt.Sprintf("%s%02d%s", prefix, n, archiveExt))
}

// excludeArgs builds the exclusion portion of the mksquashfs command line.
func excludeArgs(patterns []string, excludeFile string, wildcards, regex bool) []string {
	var args []string
	if wildcards {
		args = append(args, "-wildcards")
	}
	if regex {
		args = append(args, "-regex")
	}
	for _, p := range patterns {
		args = append(args, "-e", p)
	}
	if excludeFile != "" {
		args = append(args, "-ef", excludeFile)
	}
	return args
}

// detectProcessors shells out to nproc, defaulting to a single processor
// when detection fails.
func (m *Manager) detectProcessors(ctx context.Context) int {
	res, err := m.runner.Run(ctx, deps.ToolNproc)
	if err != nil || res.ExitCode != 0 {
		return 1
	}
	n, err := strconv.Atoi(strings.TrimSpace(res.Stdout))
	if err != nil || n < 1 {
		return 1
	}
	return n
}
