package archive

import (
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

// newFixture builds a manager over a temp working directory and a fake
// runner. XattrMode and Processors are pinned so command lines are
// deterministic regardless of the host.
func newFixture(t *testing.T) (*Manager, *executor.FakeRunner, string) {
	t.Helper()

	work, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(work))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.TempDir = t.TempDir()
	cfg.XattrMode = config.XattrUserOnly
	cfg.Processors = 2

	runner := executor.NewFakeRunner()
	return NewManager(cfg, runner), runner, work
}

func makeSourceDir(t *testing.T, work, name string) string {
	t.Helper()
	dir := filepath.Join(work, name)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "file.txt"), []byte("x"), 0o644))
	return dir
}

func TestBuildDefaultOutputName(t *testing.T) {
	mgr, runner, work := newFixture(t)
	src := makeSourceDir(t, work, "data")

	output, err := mgr.Build(context.Background(), BuildOptions{Sources: []string{src}})
	require.NoError(t, err)
	assert.Equal(t, "data.sqsh", output)

	require.Len(t, runner.Commands, 2)
	assert.Equal(t,
		"mksquashfs "+src+" data.sqsh -comp zstd -b 1M -processors 2 -info -keep-as-directory",
		runner.Commands[0])
	assert.Equal(t, "sha256sum data.sqsh", runner.Commands[1])
	assert.FileExists(t, filepath.Join(work, "data.sqsh.sha256"))
}

func TestBuildNumberedFallback(t *testing.T) {
	mgr, _, work := newFixture(t)
	src := makeSourceDir(t, work, "data")

	// Stem-derived name is taken, so the dated pattern kicks in.
	require.NoError(t, os.WriteFile(filepath.Join(work, "data.sqsh"), []byte("old"), 0o644))

	output, err := mgr.Build(context.Background(), BuildOptions{Sources: []string{src}})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(filepath.Base(output), "archive-"))
	assert.True(t, strings.HasSuffix(output, "-01.sqsh"))
}

func TestBuildNumberedFallbackSkipsTaken(t *testing.T) {
	_, _, work := newFixture(t)
	prefix := strings.TrimSuffix(filepath.Base(numberedArchiveName(work)), "-01.sqsh")

	require.NoError(t, os.WriteFile(filepath.Join(work, prefix+"-01.sqsh"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(work, prefix+"-02.sqsh"), nil, 0o644))

	assert.Equal(t, filepath.Join(work, prefix+"-03.sqsh"), numberedArchiveName(work))
}

func TestBuildRefusesExistingOutput(t *testing.T) {
	mgr, runner, work := newFixture(t)
	src := makeSourceDir(t, work, "data")
	out := filepath.Join(work, "out.sqsh")
	require.NoError(t, os.WriteFile(out, []byte("old"), 0o644))

	_, err := mgr.Build(context.Background(), BuildOptions{Sources: []string{src}, Output: out})
	var exists *errdefs.OutputExistsError
	require.True(t, errors.As(err, &exists))
	assert.Equal(t, out, exists.Path)
	assert.Empty(t, runner.Commands)
}

func TestBuildMissingSource(t *testing.T) {
	mgr, runner, work := newFixture(t)

	_, err := mgr.Build(context.Background(), BuildOptions{
		Sources: []string{filepath.Join(work, "nope")},
	})
	var invalid *errdefs.InvalidPathError
	assert.True(t, errors.As(err, &invalid))
	assert.Empty(t, runner.Commands)
}

func TestBuildNoSources(t *testing.T) {
	mgr, _, _ := newFixture(t)

	_, err := mgr.Build(context.Background(), BuildOptions{})
	var invalid *errdefs.InvalidPathError
	assert.True(t, errors.As(err, &invalid))
}

func TestBuildCommandFailure(t *testing.T) {
	mgr, runner, work := newFixture(t)
	src := makeSourceDir(t, work, "data")
	out := filepath.Join(work, "out.sqsh")

	runner.SetResult(
		"mksquashfs "+src+" "+out+" -comp zstd -b 1M -processors 2 -info -keep-as-directory",
		executor.Result{ExitCode: 1, Stderr: "FATAL ERROR: compressor not available"})

	_, err := mgr.Build(context.Background(), BuildOptions{Sources: []string{src}, Output: out})
	var cmdErr *errdefs.CommandError
	require.True(t, errors.As(err, &cmdErr))
	assert.Equal(t, errdefs.OpBuild, cmdErr.Op)
	assert.Contains(t, cmdErr.Stderr, "compressor not available")
	assert.NoFileExists(t, out+".sha256")
}

func TestBuildForwardsExcludeOptions(t *testing.T) {
	mgr, runner, work := newFixture(t)
	src := makeSourceDir(t, work, "data")
	out := filepath.Join(work, "out.sqsh")

	_, err := mgr.Build(context.Background(), BuildOptions{
		Sources:     []string{src},
		Output:      out,
		Excludes:    []string{"*.log", "tmp/*"},
		ExcludeFile: "skip.txt",
		Wildcards:   true,
	})
	require.NoError(t, err)

	require.NotEmpty(t, runner.Commands)
	assert.Contains(t, runner.Commands[0], "-wildcards -e *.log -e tmp/* -ef skip.txt")
}

func TestBuildMissingHelper(t *testing.T) {
	mgr, runner, work := newFixture(t)
	src := makeSourceDir(t, work, "data")
	runner.SetAvailableTools("unsquashfs", "nproc")

	_, err := mgr.Build(context.Background(), BuildOptions{Sources: []string{src}})
	var depErr *errdefs.DependencyError
	require.True(t, errors.As(err, &depErr))
	assert.Equal(t, "mksquashfs", depErr.Tool)
	assert.Empty(t, runner.Commands)
}

func TestDetectProcessors(t *testing.T) {
	mgr, runner, _ := newFixture(t)

	runner.SetResult("nproc", executor.Result{Stdout: "8\n"})
	assert.Equal(t, 8, mgr.detectProcessors(context.Background()))
}

func TestDetectProcessorsFallback(t *testing.T) {
	mgr, runner, _ := newFixture(t)

	runner.SetResult("nproc", executor.Result{ExitCode: 1})
	assert.Equal(t, 1, mgr.detectProcessors(context.Background()))
}

func TestExcludeArgs(t *testing.T) {
	assert.Nil(t, excludeArgs(nil, "", false, false))
	assert.Equal(t,
		[]string{"-regex", "-e", "a", "-ef", "f"},
		excludeArgs([]string{"a"}, "f", false, true))
}
