package downloader

import (
	"fmt"

	"github.com/vertextoedge/mcfetch/internal/domain"
	"github.com/vertextoedge/mcfetch/internal/port"
)

// SpaceCheckResult contains the result of a space check
type SpaceCheckResult struct {
	HasSpace           bool
	FreeBytes          uint64
	DiskUsedPct        float64
	MaxDiskUsagePct    float64
	LimitedByFreeSpace bool
	LimitedByDiskUsage bool
}

// DiskStater reports usage of the volume holding the artifact root
type DiskStater interface {
	GetDiskUsage() (*port.DiskUsage, error)
}

// SpaceGuard refuses downloads that would push the artifact volume past
// its usage ceiling
type SpaceGuard struct {
	fs              DiskStater
	maxDiskUsagePct float64
}

// NewSpaceGuard creates a SpaceGuard; a non-positive ceiling disables the usage check
func NewSpaceGuard(fs DiskStater, maxDiskUsagePct float64) *SpaceGuard {
	return &SpaceGuard{
		fs:              fs,
		maxDiskUsagePct: maxDiskUsagePct,
	}
}

// CheckSpace checks if size more bytes fit. A negative size (unknown length)
// only checks the current usage.
func (sg *SpaceGuard) CheckSpace(size int64) (*SpaceCheckResult, error) {
	usage, err := sg.fs.GetDiskUsage()
	if err != nil {
		return nil, err
	}

	result := &SpaceCheckResult{
		FreeBytes:       usage.Free,
		DiskUsedPct:     usage.UsedPct,
		MaxDiskUsagePct: sg.maxDiskUsagePct,
	}

	incoming := uint64(0)
	if size > 0 {
		incoming = uint64(size)
	}

	if incoming > usage.Free {
		result.LimitedByFreeSpace = true
		return result, nil
	}

	if sg.maxDiskUsagePct > 0 && usage.Total > 0 {
		newUsedPct := float64(usage.Used+incoming) / float64(usage.Total) * 100
		if newUsedPct >= sg.maxDiskUsagePct {
			result.LimitedByDiskUsage = true
			return result, nil
		}
	}

	result.HasSpace = true
	return result, nil
}

// Ensure returns ErrInsufficientSpace when size does not fit.
// Disk stat failures are not fatal.
func (sg *SpaceGuard) Ensure(size int64) error {
	result, err := sg.CheckSpace(size)
	if err != nil || result.HasSpace {
		return nil
	}
	if result.LimitedByFreeSpace {
		return fmt.Errorf("%w: need %d bytes, %d free", domain.ErrInsufficientSpace, size, result.FreeBytes)
	}
	return fmt.Errorf("%w: disk usage would reach the %.0f%% limit", domain.ErrInsufficientSpace, result.MaxDiskUsagePct)
}
