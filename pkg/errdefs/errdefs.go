// Package errdefs defines the typed errors shared across squish operations.
//
// Callers match errors with errors.As / errors.Is; the CLI front end maps
// them to user-facing messages and exit codes.
package errdefs

import (
	"errors"
	"fmt"
	"strings"
)

// Op identifies the operation an external command was running for.
type Op string

const (
	OpMount    Op = "mount"
	OpUnmount  Op = "unmount"
	OpBuild    Op = "build"
	OpExtract  Op = "extract"
	OpList     Op = "list"
	OpChecksum Op = "checksum"
)

// InvalidPathError reports a path that does not exist or cannot be
// resolved to an absolute form.
type InvalidPathError struct {
	Path string
	Err  error
}

func (e *InvalidPathError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid path %q: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("invalid path %q", e.Path)
}

func (e *InvalidPathError) Unwrap() error { return e.Err }

// DependencyError reports a required external tool missing from PATH.
type DependencyError struct {
	Tool string
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("%s is not installed or not in PATH; install %s to use this command", e.Tool, e.Tool)
}

// AlreadyMountedError reports a mount attempt for an archive that already
// has a live mount record.
type AlreadyMountedError struct {
	Archive    string
	MountPoint string
}

func (e *AlreadyMountedError) Error() string {
	if e.MountPoint != "" {
		return fmt.Sprintf("%s is already mounted at %s", e.Archive, e.MountPoint)
	}
	return fmt.Sprintf("%s is already mounted", e.Archive)
}

// NotMountedError reports an unmount attempt for an archive with no live
// mount record.
type NotMountedError struct {
	Archive string
}

func (e *NotMountedError) Error() string {
	return fmt.Sprintf("%s is not mounted", e.Archive)
}

// MountConflictError reports a mount point already owned by a different
// archive's live record.
type MountConflictError struct {
	MountPoint string
	Archive    string
	Owner      string
}

func (e *MountConflictError) Error() string {
	return fmt.Sprintf("mount point %s is already in use by %s", e.MountPoint, e.Owner)
}

// MountPointError reports a mount-point directory that is unusable for the
// requested operation.
type MountPointError struct {
	MountPoint string
	Reason     string
}

func (e *MountPointError) Error() string {
	return fmt.Sprintf("mount point %s: %s", e.MountPoint, e.Reason)
}

// OutputExistsError reports a build output path that is already occupied.
// The CLI resolves it by prompting for (or forcing) an overwrite.
type OutputExistsError struct {
	Path string
}

func (e *OutputExistsError) Error() string {
	return fmt.Sprintf("output already exists: %s", e.Path)
}

// ChecksumError reports an unusable checksum file pair or a failed
// verification.
type ChecksumError struct {
	File   string
	Reason string
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("checksum for %s: %s", e.File, e.Reason)
}

// XattrError reports an extract failure caused by extended-attribute
// handling. Suggestion tells the user which --xattr-mode to try.
type XattrError struct {
	Mode       string
	Suggestion string
	Err        error
}

func (e *XattrError) Error() string {
	return fmt.Sprintf("%v\n\n%s", e.Err, e.Suggestion)
}

func (e *XattrError) Unwrap() error { return e.Err }

// CommandError reports an external helper that was invoked and failed.
// Op tags which operation the command served, so a single struct covers the
// mount/unmount/build/extract/list/checksum variants.
type CommandError struct {
	Op       Op
	Command  string
	ExitCode int
	Stderr   string
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("%s command %q failed with exit code %d", e.Op, e.Command, e.ExitCode)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}

// NewCommandError builds a CommandError from an argv-style command line.
func NewCommandError(op Op, argv []string, exitCode int, stderr string) *CommandError {
	return &CommandError{
		Op:       op,
		Command:  strings.Join(argv, " "),
		ExitCode: exitCode,
		Stderr:   stderr,
	}
}

// IsCommandError reports whether err is a CommandError for the given op.
func IsCommandError(err error, op Op) bool {
	var ce *CommandError
	return errors.As(err, &ce) && ce.Op == op
}
