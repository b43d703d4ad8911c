// Package tracking persists mount records across process invocations.
//
// Each currently-mounted archive owns exactly one small JSON file in the
// configured temp directory, named from a key derived from the archive's
// normalized path. Scoping storage per key is what lets independent squish
// invocations operate on different archives with no shared lock: they never
// touch the same file. Only the cross-archive conflict scan reads more than
// one entry, and that check is best-effort by design since the external
// mount helper independently refuses duplicate targets.
package tracking

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/squishfs/squish/internal/logger"
	"github.com/squishfs/squish/pkg/errdefs"
)

// Record is the durable unit of mount state. It exists exactly for the
// interval between a successful mount and a successful unmount.
type Record struct {
	// ArchiveKey identifies the archive; derived from the normalized
	// archive path, so distinct files never share a key even when their
	// basenames collide.
	ArchiveKey string `json:"archive_key" yaml:"archive_key"`

	// ArchivePath is the normalized absolute archive path at mount time.
	ArchivePath string `json:"archive_path" yaml:"archive_path"`

	// MountPoint is the normalized absolute mount directory.
	MountPoint string `json:"mount_point" yaml:"mount_point"`

	// AutoCreated marks mount directories created by squish; only those
	// are eligible for automatic removal after unmount.
	AutoCreated bool `json:"auto_created" yaml:"auto_created"`

	// CreatedAt is informational only; records never expire.
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

const (
	recordPrefix = "squish-"
	recordSuffix = ".mount"

	// keyLength truncates the SHA-256 hex digest; 16 hex chars (64 bits)
	// is far beyond what a single machine's concurrent mounts can collide.
	keyLength = 16
)

// ArchiveKey derives the tracking key for a normalized archive path.
func ArchiveKey(normalizedPath string) string {
	sum := sha256.Sum256([]byte(normalizedPath))
	return hex.EncodeToString(sum[:])[:keyLength]
}

// Store is a durable key-to-record mapping rooted at a temp directory.
type Store struct {
	dir string
}

// NewStore returns a store writing records under dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) recordPath(key string) string {
	return filepath.Join(s.dir, recordPrefix+key+recordSuffix)
}

// Lookup returns the live record for key, or ok=false when no record
// exists. Unreadable or corrupt entries read as absent: refusing all
// further operations on an archive because one tracking file rotted would
// be strictly worse for recoverability.
func (s *Store) Lookup(key string) (Record, bool) {
	rec, err := readRecord(s.recordPath(key))
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("unreadable tracking record treated as absent",
				logger.KeyRecord, s.recordPath(key), logger.KeyError, err.Error())
		}
		return Record{}, false
	}
	if rec.ArchiveKey != key {
		// A record file whose content disagrees with its name is corrupt.
		logger.Warn("tracking record key mismatch treated as absent",
			logger.KeyRecord, s.recordPath(key), logger.KeyArchiveKey, rec.ArchiveKey)
		return Record{}, false
	}
	return rec, true
}

// List enumerates all live records, sorted by archive path. Corrupt
// entries are skipped.
func (s *Store) List() []Record {
	matches, err := filepath.Glob(filepath.Join(s.dir, recordPrefix+"*"+recordSuffix))
	if err != nil {
		return nil
	}

	records := make([]Record, 0, len(matches))
	for _, path := range matches {
		rec, err := readRecord(path)
		if err != nil {
			continue
		}
		name := filepath.Base(path)
		key := strings.TrimSuffix(strings.TrimPrefix(name, recordPrefix), recordSuffix)
		if rec.ArchiveKey != key {
			continue
		}
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].ArchivePath < records[j].ArchivePath
	})
	return records
}

// Insert persists a new record. It fails with AlreadyMountedError when a
// live record exists for the same key, and with MountConflictError when a
// different archive's live record owns the same mount point.
func (s *Store) Insert(rec Record) error {
	if existing, ok := s.Lookup(rec.ArchiveKey); ok {
		return &errdefs.AlreadyMountedError{
			Archive:    existing.ArchivePath,
			MountPoint: existing.MountPoint,
		}
	}

	for _, other := range s.List() {
		if other.ArchiveKey != rec.ArchiveKey && other.MountPoint == rec.MountPoint {
			return &errdefs.MountConflictError{
				MountPoint: rec.MountPoint,
				Archive:    rec.ArchivePath,
				Owner:      other.ArchivePath,
			}
		}
	}

	return s.write(rec)
}

// Remove deletes the record for key. Absent records yield NotMountedError.
func (s *Store) Remove(key string) error {
	path := s.recordPath(key)
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return &errdefs.NotMountedError{Archive: key}
		}
		return err
	}
	return nil
}

// write persists the record via a temp file and rename so that concurrent
// readers never observe a half-written entry.
func (s *Store) write(rec Record) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, recordPrefix+rec.ArchiveKey+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, s.recordPath(rec.ArchiveKey)); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}

func readRecord(path string) (Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Record{}, err
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, err
	}
	return rec, nil
}
