package sqlite

import (
	"database/sql"
	"errors"
	"math"
	"time"

	"github.com/vertextoedge/mcfetch/internal/domain"
)

// PutArtifact inserts or replaces the record for rec.Path
func (s *Store) PutArtifact(rec *domain.ArtifactRecord) error {
	query := `
		INSERT INTO artifacts (path, url, mirror, sha1, size, resource_type, committed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			url = excluded.url,
			mirror = excluded.mirror,
			sha1 = excluded.sha1,
			size = excluded.size,
			resource_type = excluded.resource_type,
			committed_at = excluded.committed_at
	`

	committedAt := rec.CommittedAt
	if committedAt.IsZero() {
		committedAt = time.Now()
	}

	_, err := s.db.Exec(query,
		rec.Path, rec.URL, rec.Mirror, rec.SHA1, rec.Size,
		string(rec.ResourceType), committedAt.UnixMilli(),
	)
	return err
}

// GetArtifact returns the record for path, or domain.ErrNotFound
func (s *Store) GetArtifact(path string) (*domain.ArtifactRecord, error) {
	query := `
		SELECT path, url, mirror, sha1, size, resource_type, committed_at
		FROM artifacts
		WHERE path = ?
	`

	rec, err := scanArtifact(s.db.QueryRow(query, path))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// DeleteArtifact removes the record for path; a missing record is not an error
func (s *Store) DeleteArtifact(path string) error {
	_, err := s.db.Exec("DELETE FROM artifacts WHERE path = ?", path)
	return err
}

// ListArtifacts returns one keyset page of records committed before the
// given time, oldest first
func (s *Store) ListArtifacts(before time.Time, after domain.ArtifactCursor, limit int) ([]*domain.ArtifactRecord, error) {
	if limit <= 0 {
		limit = 1000
	}

	query := `
		SELECT path, url, mirror, sha1, size, resource_type, committed_at
		FROM artifacts
		WHERE committed_at < ?
		  AND (committed_at > ? OR (committed_at = ? AND path > ?))
		ORDER BY committed_at ASC, path ASC
		LIMIT ?
	`

	afterMs := int64(math.MinInt64)
	if !after.IsZero() {
		afterMs = after.CommittedAt.UnixMilli()
	}

	rows, err := s.db.Query(query, before.UnixMilli(), afterMs, afterMs, after.Path, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*domain.ArtifactRecord
	for rows.Next() {
		rec, err := scanArtifact(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// CountArtifacts returns the number of records and their total size
func (s *Store) CountArtifacts() (int64, int64, error) {
	var count int64
	var total sql.NullInt64
	err := s.db.QueryRow("SELECT COUNT(*), SUM(size) FROM artifacts").Scan(&count, &total)
	if err != nil {
		return 0, 0, err
	}
	return count, total.Int64, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArtifact(row rowScanner) (*domain.ArtifactRecord, error) {
	rec := &domain.ArtifactRecord{}
	var resourceType string
	var committedAt int64

	if err := row.Scan(
		&rec.Path, &rec.URL, &rec.Mirror, &rec.SHA1, &rec.Size,
		&resourceType, &committedAt,
	); err != nil {
		return nil, err
	}

	rec.ResourceType = domain.ResourceType(resourceType)
	rec.CommittedAt = time.UnixMilli(committedAt)
	return rec, nil
}
