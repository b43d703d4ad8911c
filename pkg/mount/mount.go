// Package mount orchestrates mounting and unmounting of squashfs archives.
//
// Each operation runs in a fresh short-lived process, so all state lives in
// the tracking store between invocations. The orchestrator favors
// availability over strict mutual exclusion: the race window between lookup
// and record insert/remove is tolerated rather than locked away, because a
// losing racer either swallows a duplicate-record error (mount) or reports
// not-mounted (unmount), and the external helper itself refuses duplicate
// targets.
package mount

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/squishfs/squish/internal/logger"
	"github.com/squishfs/squish/pkg/config"
	"github.com/squishfs/squish/pkg/deps"
	"github.com/squishfs/squish/pkg/errdefs"
	"github.com/squishfs/squish/pkg/executor"
	"github.com/squishfs/squish/pkg/pathutil"
	"github.com/squishfs/squish/pkg/tracking"
)

// Manager performs mount and unmount operations.
type Manager struct {
	cfg    *config.Config
	store  *tracking.Store
	runner executor.Runner
}

// NewManager returns a Manager using the given configuration and runner.
func NewManager(cfg *config.Config, runner executor.Runner) *Manager {
	return &Manager{
		cfg:    cfg,
		store:  tracking.NewStore(cfg.TempDir),
		runner: runner,
	}
}

// resolvedTarget is the ephemeral outcome of mount-point resolution.
type resolvedTarget struct {
	path string
	// autoCreated marks targets derived under the mount base; only those
	// are eligible for automatic removal after unmount.
	autoCreated bool
	// createdNow marks a directory created by this attempt, whether
	// derived or explicit; it is removed again if the mount fails.
	createdNow bool
}

// Mount mounts archive at explicitMountPoint, or at an auto-derived
// directory under the configured mount base when explicitMountPoint is
// empty. On success the returned record has been persisted.
func (m *Manager) Mount(ctx context.Context, archive, explicitMountPoint string) (tracking.Record, error) {
	start := time.Now()

	archivePath, err := pathutil.Normalize(archive)
	if err != nil {
		return tracking.Record{}, err
	}

	if err := deps.Require(m.runner, deps.ToolSquashfuse); err != nil {
		return tracking.Record{}, err
	}

	key := tracking.ArchiveKey(archivePath)
	logger.Debug("mount requested",
		logger.KeyArchive, archivePath, logger.KeyArchiveKey, key)

	if existing, ok := m.store.Lookup(key); ok {
		if LooksMounted(existing.MountPoint) {
			return tracking.Record{}, &errdefs.AlreadyMountedError{
				Archive:    archivePath,
				MountPoint: existing.MountPoint,
			}
		}
		// The record refers to a mount that no longer exists (unmounted
		// outside this tool). Repair by dropping it and mounting fresh.
		logger.Warn("stale mount record replaced",
			logger.KeyArchive, archivePath, logger.KeyMountPoint, existing.MountPoint)
		if err := m.store.Remove(key); err != nil {
			logger.Warn("could not remove stale record",
				logger.KeyArchiveKey, key, logger.KeyError, err.Error())
		}
	}

	target, err := m.deriveTarget(archivePath, explicitMountPoint)
	if err != nil {
		return tracking.Record{}, err
	}

	// Refuse a mount point already owned by a different archive before
	// anything is created or invoked. The store re-checks at insert time;
	// this scan exists so validation failures never invoke the external
	// helper.
	for _, other := range m.store.List() {
		if other.ArchiveKey != key && other.MountPoint == target.path {
			return tracking.Record{}, &errdefs.MountConflictError{
				MountPoint: target.path,
				Archive:    archivePath,
				Owner:      other.ArchivePath,
			}
		}
	}

	if err := m.prepareTarget(&target); err != nil {
		return tracking.Record{}, err
	}

	argv := []string{deps.ToolSquashfuse, archivePath, target.path}
	res, err := m.runner.Run(ctx, argv[0], argv[1:]...)
	if err != nil || res.ExitCode != 0 {
		m.cleanupFailedTarget(target)
		stderr := res.Stderr
		if err != nil && stderr == "" {
			stderr = err.Error()
		}
		cmdErr := errdefs.NewCommandError(errdefs.OpMount, argv, res.ExitCode, stderr)
		logger.Error("mount failed",
			logger.KeyArchive, archivePath,
			logger.KeyMountPoint, target.path,
			logger.KeyExitCode, res.ExitCode)
		return tracking.Record{}, cmdErr
	}

	rec := tracking.Record{
		ArchiveKey:  key,
		ArchivePath: archivePath,
		MountPoint:  target.path,
		AutoCreated: target.autoCreated,
		CreatedAt:   time.Now().UTC(),
	}
	if err := m.store.Insert(rec); err != nil {
		var already *errdefs.AlreadyMountedError
		if errors.As(err, &already) {
			// Another invocation won the insert race after our external
			// mount succeeded. The filesystem state is authoritative and
			// may already be in use; never unmount it to undo a
			// bookkeeping duplicate.
			logger.Warn("mount record already present, keeping external mount",
				logger.KeyArchive, archivePath, logger.KeyMountPoint, target.path)
			return rec, nil
		}
		return tracking.Record{}, err
	}

	logger.Info("mounted",
		logger.KeyArchive, archivePath,
		logger.KeyMountPoint, target.path,
		logger.KeyDurationMs, logger.Duration(start))
	return rec, nil
}

// Unmount unmounts archive. The mount point is taken from
// explicitMountPoint when supplied, otherwise from the tracking record.
func (m *Manager) Unmount(ctx context.Context, archive, explicitMountPoint string) error {
	start := time.Now()

	// Tolerant normalization: the archive file may have been deleted
	// while mounted, and its record must stay reachable.
	archivePath, err := pathutil.NormalizeTarget(archive)
	if err != nil {
		return err
	}

	key := tracking.ArchiveKey(archivePath)
	rec, ok := m.store.Lookup(key)
	if !ok {
		return &errdefs.NotMountedError{Archive: archivePath}
	}

	if err := deps.Require(m.runner, deps.ToolFusermount); err != nil {
		return err
	}

	mountPoint := rec.MountPoint
	if explicitMountPoint != "" {
		mountPoint, err = pathutil.NormalizeTarget(explicitMountPoint)
		if err != nil {
			return err
		}
	}

	info, statErr := os.Stat(mountPoint)
	switch {
	case os.IsNotExist(statErr):
		if rec.AutoCreated {
			// Unmounted and removed externally; drop the stale record.
			return m.finishStaleUnmount(key, rec, mountPoint)
		}
		return &errdefs.MountPointError{MountPoint: mountPoint, Reason: "does not exist"}
	case statErr != nil:
		return &errdefs.MountPointError{MountPoint: mountPoint, Reason: statErr.Error()}
	case !info.IsDir():
		return &errdefs.MountPointError{MountPoint: mountPoint, Reason: "not a directory"}
	}

	if !LooksMounted(mountPoint) {
		if rec.AutoCreated {
			// Already unmounted externally; remove the record and clean
			// up instead of invoking the helper again.
			return m.finishStaleUnmount(key, rec, mountPoint)
		}
		return &errdefs.MountPointError{MountPoint: mountPoint, Reason: "is empty, nothing to unmount"}
	}

	argv := []string{deps.ToolFusermount, "-u", mountPoint}
	res, err := m.runner.Run(ctx, argv[0], argv[1:]...)
	if err != nil || res.ExitCode != 0 {
		// Record stays intact: the mount is still live.
		stderr := res.Stderr
		if err != nil && stderr == "" {
			stderr = err.Error()
		}
		cmdErr := errdefs.NewCommandError(errdefs.OpUnmount, argv, res.ExitCode, stderr)
		logger.Error("unmount failed",
			logger.KeyArchive, archivePath,
			logger.KeyMountPoint, mountPoint,
			logger.KeyExitCode, res.ExitCode)
		return cmdErr
	}

	if err := m.store.Remove(key); err != nil {
		// Another invocation may have removed it first; the unmount
		// itself succeeded either way.
		logger.Debug("mount record already removed",
			logger.KeyArchiveKey, key, logger.KeyError, err.Error())
	}

	m.cleanupMountDir(rec, mountPoint)

	logger.Info("unmounted",
		logger.KeyArchive, archivePath,
		logger.KeyMountPoint, mountPoint,
		logger.KeyDurationMs, logger.Duration(start))
	return nil
}

// Records returns the live mount records.
func (m *Manager) Records() []tracking.Record {
	return m.store.List()
}

// LooksMounted reports whether dir currently appears to be a live mount.
// A mounted squashfs root always exposes entries; a missing or empty
// directory means the mount is gone.
func LooksMounted(dir string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	return len(entries) > 0
}

// deriveTarget decides the mount-point path for a mount request without
// touching the filesystem.
func (m *Manager) deriveTarget(archivePath, explicit string) (resolvedTarget, error) {
	target := resolvedTarget{}

	if explicit != "" {
		path, err := pathutil.NormalizeTarget(explicit)
		if err != nil {
			return target, err
		}
		target.path = path
		return target, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return target, &errdefs.MountPointError{MountPoint: explicit, Reason: err.Error()}
	}
	target.path = filepath.Join(cwd, m.cfg.MountBase, pathutil.Stem(archivePath))
	target.autoCreated = true
	return target, nil
}

// prepareTarget validates the resolved directory and creates it when
// missing. Pre-existing empty directories are reused; directories with
// unrelated contents are refused.
func (m *Manager) prepareTarget(target *resolvedTarget) error {
	info, err := os.Stat(target.path)
	switch {
	case os.IsNotExist(err):
		if err := pathutil.EnsureDir(target.path); err != nil {
			return &errdefs.MountPointError{MountPoint: target.path, Reason: "cannot create directory"}
		}
		target.createdNow = true
	case err != nil:
		return &errdefs.MountPointError{MountPoint: target.path, Reason: err.Error()}
	case !info.IsDir():
		return &errdefs.MountPointError{MountPoint: target.path, Reason: "not a directory"}
	default:
		empty, err := pathutil.IsEmptyDir(target.path)
		if err != nil {
			return &errdefs.MountPointError{MountPoint: target.path, Reason: err.Error()}
		}
		if !empty {
			return &errdefs.MountPointError{MountPoint: target.path, Reason: "directory is not empty"}
		}
	}
	return nil
}

// cleanupFailedTarget removes a directory created for a mount attempt that
// did not complete. Removal failures are logged, not escalated: the mount
// failure is the primary error.
func (m *Manager) cleanupFailedTarget(target resolvedTarget) {
	if !target.createdNow {
		return
	}
	if empty, err := pathutil.IsEmptyDir(target.path); err != nil || !empty {
		return
	}
	if err := os.Remove(target.path); err != nil {
		logger.Warn("could not remove mount directory after failed mount",
			logger.KeyMountPoint, target.path, logger.KeyError, err.Error())
	}
}

// finishStaleUnmount handles the idempotent short-circuit: the mount is
// already gone, so remove the record and report success.
func (m *Manager) finishStaleUnmount(key string, rec tracking.Record, mountPoint string) error {
	logger.Warn("mount already gone, removing stale record",
		logger.KeyArchive, rec.ArchivePath, logger.KeyMountPoint, mountPoint)
	if err := m.store.Remove(key); err != nil {
		logger.Debug("mount record already removed",
			logger.KeyArchiveKey, key, logger.KeyError, err.Error())
	}
	m.cleanupMountDir(rec, mountPoint)
	return nil
}

// cleanupMountDir removes an auto-created mount directory after a
// successful unmount, plus the mount base itself when that leaves it
// empty. Best-effort: failures are warnings since the unmount already
// succeeded.
func (m *Manager) cleanupMountDir(rec tracking.Record, mountPoint string) {
	if !rec.AutoCreated || !m.cfg.AutoCleanup {
		return
	}
	empty, err := pathutil.IsEmptyDir(mountPoint)
	if err != nil || !empty {
		return
	}
	if err := os.Remove(mountPoint); err != nil {
		logger.Warn("could not remove mount directory",
			logger.KeyMountPoint, mountPoint, logger.KeyError, err.Error())
		return
	}

	parent := filepath.Dir(mountPoint)
	if filepath.Base(parent) == m.cfg.MountBase {
		// Removing the shared mount base fails while other mounts use it;
		// that is fine.
		_ = os.Remove(parent)
	}
}
