package domain

import "time"

// DownloadResult represents the result of a committed download
type DownloadResult struct {
	TaskID string `json:"task_id"`

	// Path is the final artifact path
	Path string `json:"path"`

	// Size is the number of bytes in the committed artifact
	Size int64 `json:"size"`

	// SHA1 is the lowercase hex digest of the artifact, if it was computed
	SHA1 string `json:"sha1,omitempty"`

	// Mirror is the URL that served the bytes
	Mirror string `json:"mirror,omitempty"`

	// Attempts is the number of GET attempts across all mirrors
	Attempts int `json:"attempts"`

	// Skipped is true when the artifact was already present and verified
	Skipped bool `json:"skipped"`
}

// DownloadProgress is a throttled progress sample for one task
type DownloadProgress struct {
	TaskID          string  `json:"task_id"`
	BytesDownloaded int64   `json:"bytes_downloaded"`
	BytesTotal      int64   `json:"bytes_total"` // -1 when the length is unknown
	Rate            float64 `json:"rate"`        // bytes per second
}

// HasTotal returns true if the total size is known
func (p DownloadProgress) HasTotal() bool {
	return p.BytesTotal >= 0
}

// Percent returns completion in the 0-100 range, or -1 when the total is unknown
func (p DownloadProgress) Percent() float64 {
	if p.BytesTotal <= 0 {
		return -1
	}
	return float64(p.BytesDownloaded) / float64(p.BytesTotal) * 100
}

// ArtifactCursor marks a position in committed_at, path order.
// The zero cursor starts before the first record.
type ArtifactCursor struct {
	CommittedAt time.Time
	Path        string
}

// IsZero reports whether the cursor is at the start
func (c ArtifactCursor) IsZero() bool {
	return c.CommittedAt.IsZero() && c.Path == ""
}

// ArtifactRecord is a ledger entry for a committed, verified artifact
type ArtifactRecord struct {
	Path         string
	URL          string
	Mirror       string
	SHA1         string
	Size         int64
	ResourceType ResourceType
	CommittedAt  time.Time
}

// Cursor returns the paging position just past this record
func (r *ArtifactRecord) Cursor() ArtifactCursor {
	return ArtifactCursor{CommittedAt: r.CommittedAt, Path: r.Path}
}
