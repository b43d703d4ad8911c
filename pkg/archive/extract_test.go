package archive

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/squishfs/squish/pkg/config"
	"github.com/squishfs/squish/pkg/errdefs"
	"github.com/squishfs/squish/pkg/executor"
)

func writeArchiveFile(t *testing.T, work string) string {
	t.Helper()
	path := filepath.Join(work, "a.sqsh")
	require.NoError(t, os.WriteFile(path, []byte("squashfs"), 0o644))
	return path
}

func TestExtractDefaultDestination(t *testing.T) {
	mgr, runner, work := newFixture(t)
	archive := writeArchiveFile(t, work)

	dest, err := mgr.Extract(context.Background(), ExtractOptions{Archive: archive})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(work, "squashfs-root"), dest)

	require.Len(t, runner.Commands, 1)
	assert.Equal(t, "unsquashfs -i -xattrs-include ^user. "+archive, runner.Commands[0])
}

func TestExtractToDirectory(t *testing.T) {
	mgr, runner, work := newFixture(t)
	archive := writeArchiveFile(t, work)
	out := filepath.Join(work, "unpacked")

	dest, err := mgr.Extract(context.Background(), ExtractOptions{Archive: archive, OutputDir: out})
	require.NoError(t, err)
	assert.Equal(t, out, dest)
	assert.DirExists(t, out)

	require.Len(t, runner.Commands, 1)
	assert.Equal(t, "unsquashfs -d "+out+" -i -xattrs-include ^user. "+archive, runner.Commands[0])
}

func TestExtractXattrModeOverride(t *testing.T) {
	mgr, runner, work := newFixture(t)
	archive := writeArchiveFile(t, work)

	_, err := mgr.Extract(context.Background(), ExtractOptions{
		Archive:   archive,
		XattrMode: config.XattrNone,
	})
	require.NoError(t, err)
	assert.Contains(t, runner.Commands[0], "-no-xattrs")
}

func TestExtractMissingArchive(t *testing.T) {
	mgr, runner, work := newFixture(t)

	_, err := mgr.Extract(context.Background(), ExtractOptions{
		Archive: filepath.Join(work, "missing.sqsh"),
	})
	var invalid *errdefs.InvalidPathError
	assert.True(t, errors.As(err, &invalid))
	assert.Empty(t, runner.Commands)
}

func TestExtractRejectsDirectoryArchive(t *testing.T) {
	mgr, _, work := newFixture(t)
	dir := filepath.Join(work, "notafile")
	require.NoError(t, os.MkdirAll(dir, 0o755))

	_, err := mgr.Extract(context.Background(), ExtractOptions{Archive: dir})
	var invalid *errdefs.InvalidPathError
	assert.True(t, errors.As(err, &invalid))
}

func TestExtractXattrFailure(t *testing.T) {
	mgr, runner, work := newFixture(t)
	archive := writeArchiveFile(t, work)

	runner.SetResult("unsquashfs -i -xattrs-include ^user. "+archive,
		executor.Result{ExitCode: 1, Stderr: "write_xattr: failed to write xattr security.selinux, because you're not superuser!"})

	_, err := mgr.Extract(context.Background(), ExtractOptions{Archive: archive})
	var xattrErr *errdefs.XattrError
	require.True(t, errors.As(err, &xattrErr))
	assert.Contains(t, xattrErr.Suggestion, "--xattr-mode none")

	// The underlying command failure stays reachable.
	var cmdErr *errdefs.CommandError
	require.True(t, errors.As(err, &cmdErr))
	assert.Equal(t, errdefs.OpExtract, cmdErr.Op)
}

func TestExtractCommandFailure(t *testing.T) {
	mgr, runner, work := newFixture(t)
	archive := writeArchiveFile(t, work)

	runner.SetResult("unsquashfs -i -xattrs-include ^user. "+archive,
		executor.Result{ExitCode: 1, Stderr: "FATAL ERROR: corrupted filesystem"})

	_, err := mgr.Extract(context.Background(), ExtractOptions{Archive: archive})
	var cmdErr *errdefs.CommandError
	require.True(t, errors.As(err, &cmdErr))
	var xattrErr *errdefs.XattrError
	assert.False(t, errors.As(err, &xattrErr))
}

func TestExtractWithProgress(t *testing.T) {
	mgr, runner, work := newFixture(t)
	archive := writeArchiveFile(t, work)
	runner.StreamLines = []string{"10", "50", "100"}

	var buf bytes.Buffer
	_, err := mgr.Extract(context.Background(), ExtractOptions{Archive: archive, Progress: &buf})
	require.NoError(t, err)

	assert.Contains(t, runner.Commands[0], "-percentage")
	assert.Contains(t, buf.String(), " 50%")
	assert.True(t, strings.HasSuffix(buf.String(), "done\n"))
}
