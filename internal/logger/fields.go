package logger

// Standard field keys for structured logging. Use these consistently so
// that events from different subsystems can be correlated and queried.
const (
	// Archive operations
	KeyArchive    = "archive"     // normalized archive path
	KeyArchiveKey = "archive_key" // tracking key derived from the archive path
	KeyMountPoint = "mount_point" // mount-point directory
	KeySource     = "source"      // build source path
	KeyOutput     = "output"      // build/extract output path

	// External commands
	KeyCommand  = "command"   // full command line
	KeyTool     = "tool"      // external helper binary name
	KeyExitCode = "exit_code" // subprocess exit code

	// Operation metadata
	KeyOperation  = "operation"   // mount, unmount, build, extract, list, checksum
	KeyDurationMs = "duration_ms" // operation duration in milliseconds
	KeyError      = "error"      // error message
	KeyPath       = "path"       // generic filesystem path
	KeyReason     = "reason"     // failure or skip reason

	// Tracking store
	KeyRecord  = "record"  // tracking record file path
	KeyEntries = "entries" // number of enumerated records
)
