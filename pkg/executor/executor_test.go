package executor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunCapturesOutput(t *testing.T) {
	r := New()
	res, err := r.Run(context.Background(), "sh", "-c", "echo out; echo err >&2")
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
	assert.Equal(t, "out\n", res.Stdout)
	assert.Equal(t, "err\n", res.Stderr)
}

func TestRunNonZeroExit(t *testing.T) {
	r := New()
	res, err := r.Run(context.Background(), "sh", "-c", "echo boom >&2; exit 3")
	require.NoError(t, err)
	assert.Equal(t, 3, res.ExitCode)
	assert.Equal(t, "boom\n", res.Stderr)
}

func TestRunSpawnFailure(t *testing.T) {
	r := New()
	res, err := r.Run(context.Background(), "/nonexistent/binary-for-test")
	assert.Error(t, err)
	assert.Equal(t, -1, res.ExitCode)
}

func TestStream(t *testing.T) {
	r := New()
	var lines []string
	res, err := r.Stream(context.Background(), func(l string) { lines = append(lines, l) },
		"sh", "-c", "echo one; echo two")
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
	assert.Equal(t, []string{"one", "two"}, lines)
}

func TestFakeRunner(t *testing.T) {
	f := NewFakeRunner()
	f.SetResult("squashfuse /a /b", Result{ExitCode: 1, Stderr: "fuse: mount failed"})

	res, err := f.Run(context.Background(), "squashfuse", "/a", "/b")
	require.NoError(t, err)
	assert.Equal(t, 1, res.ExitCode)
	assert.Equal(t, []string{"squashfuse /a /b"}, f.Commands)

	f.SetAvailableTools("fusermount")
	_, err = f.LookPath("fusermount")
	assert.NoError(t, err)
	_, err = f.LookPath("squashfuse")
	assert.Error(t, err)
}
