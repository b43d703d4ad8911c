package tracking

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/squishfs/squish/pkg/errdefs"
)

func record(key, archive, mountPoint string) Record {
	return Record{
		ArchiveKey:  key,
		ArchivePath: archive,
		MountPoint:  mountPoint,
		AutoCreated: true,
		CreatedAt:   time.Now(),
	}
}

func TestArchiveKeyStableAndDistinct(t *testing.T) {
	a := ArchiveKey("/data/a.sqsh")
	assert.Equal(t, a, ArchiveKey("/data/a.sqsh"))
	assert.Len(t, a, 16)

	// Same basename, different directory: distinct keys.
	assert.NotEqual(t, a, ArchiveKey("/other/a.sqsh"))
}

func TestInsertLookupRemove(t *testing.T) {
	store := NewStore(t.TempDir())
	key := ArchiveKey("/data/a.sqsh")
	rec := record(key, "/data/a.sqsh", "/work/mounts/a")

	_, ok := store.Lookup(key)
	assert.False(t, ok)

	require.NoError(t, store.Insert(rec))

	got, ok := store.Lookup(key)
	require.True(t, ok)
	assert.Equal(t, rec.ArchivePath, got.ArchivePath)
	assert.Equal(t, rec.MountPoint, got.MountPoint)
	assert.True(t, got.AutoCreated)

	require.NoError(t, store.Remove(key))
	_, ok = store.Lookup(key)
	assert.False(t, ok)
}

func TestInsertSameKeyFails(t *testing.T) {
	store := NewStore(t.TempDir())
	key := ArchiveKey("/data/a.sqsh")
	require.NoError(t, store.Insert(record(key, "/data/a.sqsh", "/work/mounts/a")))

	err := store.Insert(record(key, "/data/a.sqsh", "/work/mounts/other"))
	var already *errdefs.AlreadyMountedError
	require.True(t, errors.As(err, &already))
	assert.Equal(t, "/work/mounts/a", already.MountPoint)
}

func TestInsertMountPointConflict(t *testing.T) {
	store := NewStore(t.TempDir())
	require.NoError(t, store.Insert(record(ArchiveKey("/data/a.sqsh"), "/data/a.sqsh", "/custom/mnt")))

	err := store.Insert(record(ArchiveKey("/data/b.sqsh"), "/data/b.sqsh", "/custom/mnt"))
	var conflict *errdefs.MountConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, "/data/a.sqsh", conflict.Owner)
	assert.Equal(t, "/custom/mnt", conflict.MountPoint)
}

func TestSameBasenameDistinctDirsNoConflict(t *testing.T) {
	store := NewStore(t.TempDir())
	require.NoError(t, store.Insert(record(ArchiveKey("/one/a.sqsh"), "/one/a.sqsh", "/one/mounts/a")))
	require.NoError(t, store.Insert(record(ArchiveKey("/two/a.sqsh"), "/two/a.sqsh", "/two/mounts/a")))

	assert.Len(t, store.List(), 2)
}

func TestRemoveAbsent(t *testing.T) {
	store := NewStore(t.TempDir())
	err := store.Remove(ArchiveKey("/data/a.sqsh"))
	var notMounted *errdefs.NotMountedError
	assert.True(t, errors.As(err, &notMounted))
}

func TestCorruptRecordReadsAsAbsent(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)
	key := ArchiveKey("/data/a.sqsh")

	path := filepath.Join(dir, recordPrefix+key+recordSuffix)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, ok := store.Lookup(key)
	assert.False(t, ok)
	assert.Empty(t, store.List())
}

func TestKeyMismatchReadsAsAbsent(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)
	key := ArchiveKey("/data/a.sqsh")

	// Record content claims a different key than its filename.
	rogue := record(ArchiveKey("/data/b.sqsh"), "/data/b.sqsh", "/mnt/b")
	require.NoError(t, store.Insert(rogue))
	src := filepath.Join(dir, recordPrefix+rogue.ArchiveKey+recordSuffix)
	dst := filepath.Join(dir, recordPrefix+key+recordSuffix)
	require.NoError(t, os.Rename(src, dst))

	_, ok := store.Lookup(key)
	assert.False(t, ok)
}

func TestListSortedByArchivePath(t *testing.T) {
	store := NewStore(t.TempDir())
	require.NoError(t, store.Insert(record(ArchiveKey("/z.sqsh"), "/z.sqsh", "/mnt/z")))
	require.NoError(t, store.Insert(record(ArchiveKey("/a.sqsh"), "/a.sqsh", "/mnt/a")))

	records := store.List()
	require.Len(t, records, 2)
	assert.Equal(t, "/a.sqsh", records[0].ArchivePath)
	assert.Equal(t, "/z.sqsh", records[1].ArchivePath)
}
