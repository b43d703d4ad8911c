// Package pathutil canonicalizes filesystem paths for squish.
//
// Every comparison the mount tracking layer makes (duplicate detection,
// conflict detection, record keying) goes through Normalize, so two
// textually different references to the same file must normalize
// identically.
package pathutil

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/squishfs/squish/pkg/errdefs"
)

// Normalize resolves path to an absolute, symlink-free form. The path must
// exist; a missing path yields an InvalidPathError.
func Normalize(path string) (string, error) {
	if path == "" {
		return "", &errdefs.InvalidPathError{Path: path}
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", &errdefs.InvalidPathError{Path: path, Err: err}
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", &errdefs.InvalidPathError{Path: path, Err: err}
	}
	return resolved, nil
}

// NormalizeTarget resolves path like Normalize but tolerates a missing
// leaf: if the path does not exist, its parent is resolved instead and the
// leaf name re-attached. Used for mount points and output paths that are
// about to be created.
func NormalizeTarget(path string) (string, error) {
	if path == "" {
		return "", &errdefs.InvalidPathError{Path: path}
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", &errdefs.InvalidPathError{Path: path, Err: err}
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}
	parent, err := filepath.EvalSymlinks(filepath.Dir(abs))
	if err != nil {
		// Parent missing too; keep the cleaned absolute form.
		return filepath.Clean(abs), nil
	}
	return filepath.Join(parent, filepath.Base(abs)), nil
}

// Stem returns the filename with all extensions stripped:
// "a.sqsh" -> "a", "backup.tar.gz" -> "backup", "noext" -> "noext".
func Stem(path string) string {
	name := filepath.Base(path)
	for {
		ext := filepath.Ext(name)
		if ext == "" || ext == name {
			return name
		}
		name = strings.TrimSuffix(name, ext)
	}
}

// EnsureDir creates dir and any missing parents. Pre-existing directories
// are not an error.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &errdefs.InvalidPathError{Path: dir, Err: err}
	}
	return nil
}

// IsEmptyDir reports whether path is a directory with no entries.
func IsEmptyDir(path string) (bool, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return false, err
	}
	return len(entries) == 0, nil
}
