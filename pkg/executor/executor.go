// Package executor abstracts external command invocation so that the mount,
// build, extract, and checksum paths can be tested without the real
// squashfs toolchain installed.
package executor

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"

	"github.com/squishfs/squish/internal/logger"
)

// Result holds the outcome of a completed command.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runner runs external commands. The error return is reserved for spawn
// failures (binary missing, fork failure); a process that ran and exited
// non-zero is reported through Result.ExitCode with a nil error, so callers
// decide how to classify the failure.
type Runner interface {
	// Run executes the command and captures stdout and stderr.
	Run(ctx context.Context, name string, args ...string) (Result, error)
	// Stream executes the command, invoking onLine for every line of
	// combined output as it is produced. Used for progress reporting.
	Stream(ctx context.Context, onLine func(string), name string, args ...string) (Result, error)
	// LookPath reports where name resolves on PATH, or an error if it
	// does not.
	LookPath(name string) (string, error)
}

// ExecRunner is the production Runner backed by os/exec.
type ExecRunner struct{}

// New returns the production runner.
func New() *ExecRunner {
	return &ExecRunner{}
}

// Run implements Runner.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) (Result, error) {
	logger.Debug("executing command", logger.KeyCommand, commandLine(name, args))

	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: exitCode(cmd, err),
	}

	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return res, err
	}
	return res, nil
}

// Stream implements Runner. Stdout and stderr are interleaved line by line
// into onLine; stderr is additionally captured for error reporting.
func (r *ExecRunner) Stream(ctx context.Context, onLine func(string), name string, args ...string) (Result, error) {
	logger.Debug("executing command", logger.KeyCommand, commandLine(name, args))

	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return Result{ExitCode: -1}, err
	}
	if err := cmd.Start(); err != nil {
		return Result{ExitCode: -1}, err
	}

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if onLine != nil {
			onLine(scanner.Text())
		}
	}

	err = cmd.Wait()
	res := Result{
		Stderr:   stderr.String(),
		ExitCode: exitCode(cmd, err),
	}

	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return res, err
	}
	return res, nil
}

// LookPath implements Runner.
func (r *ExecRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

func exitCode(cmd *exec.Cmd, err error) int {
	if err == nil {
		return 0
	}
	if cmd.ProcessState != nil {
		return cmd.ProcessState.ExitCode()
	}
	return -1
}

func commandLine(name string, args []string) string {
	return strings.Join(append([]string{name}, args...), " ")
}
