package executor

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// FakeRunner is an in-memory Runner for tests. Commands succeed by default;
// individual command lines can be given canned results, and every
// invocation is recorded for assertions.
type FakeRunner struct {
	mu sync.Mutex

	// Commands records every executed command line in order.
	Commands []string

	results   map[string]Result
	errs      map[string]error
	available map[string]bool
	allTools  bool

	// StreamLines is fed to the onLine callback of Stream invocations.
	StreamLines []string

	// OnCommand, when set, runs for every successful invocation before
	// its result is returned. Tests use it to simulate the filesystem
	// side effects of the real tools.
	OnCommand func(name string, args []string)
}

// NewFakeRunner returns a FakeRunner on which every tool is available.
func NewFakeRunner() *FakeRunner {
	return &FakeRunner{
		results:   make(map[string]Result),
		errs:      make(map[string]error),
		available: make(map[string]bool),
		allTools:  true,
	}
}

// SetResult installs a canned result for an exact command line.
func (f *FakeRunner) SetResult(commandLine string, res Result) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results[commandLine] = res
}

// SetError installs a spawn error for an exact command line.
func (f *FakeRunner) SetError(commandLine string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[commandLine] = err
}

// SetAvailableTools restricts LookPath to the named tools only.
func (f *FakeRunner) SetAvailableTools(names ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.allTools = false
	f.available = make(map[string]bool, len(names))
	for _, n := range names {
		f.available[n] = true
	}
}

// Run implements Runner.
func (f *FakeRunner) Run(ctx context.Context, name string, args ...string) (Result, error) {
	return f.record(name, args)
}

// Stream implements Runner, replaying StreamLines through onLine first.
func (f *FakeRunner) Stream(ctx context.Context, onLine func(string), name string, args ...string) (Result, error) {
	f.mu.Lock()
	lines := append([]string(nil), f.StreamLines...)
	f.mu.Unlock()
	for _, line := range lines {
		if onLine != nil {
			onLine(line)
		}
	}
	return f.record(name, args)
}

// LookPath implements Runner.
func (f *FakeRunner) LookPath(name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.allTools || f.available[name] {
		return "/usr/bin/" + name, nil
	}
	return "", fmt.Errorf("exec: %q: executable file not found in $PATH", name)
}

func (f *FakeRunner) record(name string, args []string) (Result, error) {
	line := strings.Join(append([]string{name}, args...), " ")

	f.mu.Lock()
	defer f.mu.Unlock()
	f.Commands = append(f.Commands, line)

	if err, ok := f.errs[line]; ok {
		return Result{ExitCode: -1}, err
	}
	if res, ok := f.results[line]; ok {
		return res, nil
	}
	if f.OnCommand != nil {
		hook := f.OnCommand
		f.mu.Unlock()
		hook(name, args)
		f.mu.Lock()
	}
	return Result{ExitCode: 0}, nil
}
