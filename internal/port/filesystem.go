package port

import (
	"context"
	"io"
	"os"
	"time"
)

// DiskUsage represents disk usage statistics
type DiskUsage struct {
	Total   uint64  // Total disk space in bytes
	Used    uint64  // Used disk space in bytes
	Free    uint64  // Free disk space in bytes
	UsedPct float64 // Used percentage (0-100)
}

// FileSystem defines the filesystem capability used to stage and commit
// downloaded artifacts
type FileSystem interface {
	// RootDir returns the artifact root directory
	RootDir() string

	// Resolve maps a destination path to an absolute path confined to RootDir
	Resolve(dest string) (string, error)

	// CreateTempFile creates a temp file beside finalPath, unique per taskID
	CreateTempFile(finalPath, taskID string) (*os.File, error)

	// Commit atomically renames tempPath to finalPath
	Commit(tempPath, finalPath string) error

	// Lock takes an exclusive lock for finalPath until the returned unlock is called
	Lock(ctx context.Context, finalPath string) (unlock func(), err error)

	// Open opens a file for reading
	Open(path string) (io.ReadCloser, error)

	// DeleteFile removes a file, ignoring a missing one
	DeleteFile(path string) error

	// DeleteTempFile removes a temporary file, ignoring a missing one
	DeleteTempFile(tempPath string) error

	// FileExists checks if a file exists
	FileExists(path string) bool

	// GetFileSize returns the size of a file
	GetFileSize(path string) (int64, error)

	// GetDiskUsage returns disk usage statistics
	GetDiskUsage() (*DiskUsage, error)

	// CleanOldTempFiles removes temp files older than the specified duration
	// Returns the number of files deleted
	CleanOldTempFiles(olderThan time.Duration) (int, error)
}
