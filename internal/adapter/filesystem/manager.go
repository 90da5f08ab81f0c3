package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	securejoin "github.com/cyphar/filepath-securejoin"
	"github.com/gofrs/flock"

	"github.com/vertextoedge/mcfetch/internal/domain"
	"github.com/vertextoedge/mcfetch/internal/port"
)

const (
	// TempSuffix marks partially written artifacts
	TempSuffix = ".downloading"

	lockSuffix     = ".lock"
	lockRetryDelay = 50 * time.Millisecond
)

// Manager handles local filesystem operations under one artifact root
type Manager struct {
	rootDir string
}

// Ensure Manager implements port.FileSystem
var _ port.FileSystem = (*Manager)(nil)

// NewManager creates a new filesystem manager, creating rootDir if needed
func NewManager(rootDir string) (*Manager, error) {
	abs, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("failed to create root dir: %w", err)
	}
	return &Manager{rootDir: abs}, nil
}

// RootDir returns the artifact root directory
func (m *Manager) RootDir() string {
	return m.rootDir
}

// Resolve maps dest to an absolute path inside the root.
// Absolute paths already under the root are accepted as-is; anything else
// is joined onto the root with symlinks and ".." confined to it.
func (m *Manager) Resolve(dest string) (string, error) {
	if strings.TrimSpace(dest) == "" {
		return "", fmt.Errorf("%w: empty destination path", domain.ErrInvalidInput)
	}
	if filepath.IsAbs(dest) {
		rel, err := filepath.Rel(m.rootDir, filepath.Clean(dest))
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return "", fmt.Errorf("%w: destination %s is outside %s", domain.ErrInvalidInput, dest, m.rootDir)
		}
		dest = rel
	}
	path, err := securejoin.SecureJoin(m.rootDir, dest)
	if err != nil {
		return "", fmt.Errorf("failed to resolve destination: %w", err)
	}
	if path == m.rootDir {
		return "", fmt.Errorf("%w: destination resolves to the root directory", domain.ErrInvalidInput)
	}
	return path, nil
}

// EnsureDir ensures the directory for a file path exists
func (m *Manager) EnsureDir(filePath string) error {
	return os.MkdirAll(filepath.Dir(filePath), 0755)
}

// TempPath returns the temp file path used for finalPath by taskID
func TempPath(finalPath, taskID string) string {
	id := taskID
	if len(id) > 8 {
		id = id[:8]
	}
	return finalPath + "." + id + TempSuffix
}

// CreateTempFile creates the staging file for finalPath
func (m *Manager) CreateTempFile(finalPath, taskID string) (*os.File, error) {
	if err := m.EnsureDir(finalPath); err != nil {
		return nil, fmt.Errorf("failed to create parent dir: %w", err)
	}
	f, err := os.OpenFile(TempPath(finalPath, taskID), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	return f, nil
}

// Commit renames tempPath onto finalPath
func (m *Manager) Commit(tempPath, finalPath string) error {
	if err := m.EnsureDir(finalPath); err != nil {
		return fmt.Errorf("failed to create parent dir: %w", err)
	}
	if err := os.Rename(tempPath, finalPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// Lock takes an exclusive advisory lock on finalPath + ".lock".
// The lock file itself is left in place.
func (m *Manager) Lock(ctx context.Context, finalPath string) (func(), error) {
	if err := m.EnsureDir(finalPath); err != nil {
		return nil, fmt.Errorf("failed to create parent dir: %w", err)
	}
	fl := flock.New(finalPath + lockSuffix)
	locked, err := fl.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrDestinationLocked, ctxErr)
		}
		return nil, fmt.Errorf("failed to lock destination: %w", err)
	}
	if !locked {
		return nil, domain.ErrDestinationLocked
	}
	return func() { _ = fl.Unlock() }, nil
}

// Open opens a file for reading
func (m *Manager) Open(path string) (io.ReadCloser, error) {
	return os.Open(path)
}

// DeleteFile removes a file
func (m *Manager) DeleteFile(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// DeleteTempFile removes a temporary file
func (m *Manager) DeleteTempFile(tempPath string) error {
	if err := os.Remove(tempPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete temp file: %w", err)
	}
	return nil
}

// FileExists checks if a regular file exists
func (m *Manager) FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// GetFileSize returns the size of a file
func (m *Manager) GetFileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// CleanOldTempFiles removes temp files older than the specified duration
func (m *Manager) CleanOldTempFiles(olderThan time.Duration) (int, error) {
	count := 0
	threshold := time.Now().Add(-olderThan)

	err := filepath.Walk(m.rootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil
			}
			return err
		}
		if info.IsDir() || !strings.HasSuffix(path, TempSuffix) {
			return nil
		}
		if info.ModTime().Before(threshold) {
			if removeErr := os.Remove(path); removeErr == nil {
				count++
			}
		}
		return nil
	})
	return count, err
}
