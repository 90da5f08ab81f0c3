package repository

import (
	"time"

	"github.com/vertextoedge/mcfetch/internal/domain"
)

// ArtifactRepository defines the ledger of committed, verified artifacts
type ArtifactRepository interface {
	// PutArtifact inserts or replaces the record for rec.Path
	PutArtifact(rec *domain.ArtifactRecord) error

	// GetArtifact returns the record for path
	// Returns domain.ErrNotFound if no record exists
	GetArtifact(path string) (*domain.ArtifactRecord, error)

	// DeleteArtifact removes the record for path
	DeleteArtifact(path string) error

	// ListArtifacts returns up to limit records committed before the given
	// time and strictly after the cursor, ordered by committed_at then path.
	// Pass the cursor of the last record returned to read the next page.
	ListArtifacts(before time.Time, after domain.ArtifactCursor, limit int) ([]*domain.ArtifactRecord, error)

	// CountArtifacts returns the number of records and their total size
	CountArtifacts() (count int64, totalBytes int64, err error)
}
