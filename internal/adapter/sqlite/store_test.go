package sqlite

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/vertextoedge/mcfetch/internal/domain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "db", "mcfetch.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_OpenTwice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mcfetch.db")
	s1, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := s1.Ping(); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
	s1.Close()

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen should rerun migrations cleanly: %v", err)
	}
	s2.Close()
}

func TestStore_ArtifactCRUD(t *testing.T) {
	s := openTestStore(t)

	committed := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	rec := &domain.ArtifactRecord{
		Path:         "/data/libraries/a.jar",
		URL:          "https://libraries.minecraft.net/a.jar",
		Mirror:       "https://bmclapi2.bangbang93.com/maven/a.jar",
		SHA1:         "2aae6c35c94fcfb415dbe95f408b9ce91ee846ed",
		Size:         11,
		ResourceType: domain.ResourceLibrary,
		CommittedAt:  committed,
	}

	if err := s.PutArtifact(rec); err != nil {
		t.Fatalf("PutArtifact() error = %v", err)
	}

	got, err := s.GetArtifact(rec.Path)
	if err != nil {
		t.Fatalf("GetArtifact() error = %v", err)
	}
	if got.URL != rec.URL || got.Mirror != rec.Mirror || got.SHA1 != rec.SHA1 ||
		got.Size != rec.Size || got.ResourceType != rec.ResourceType || !got.CommittedAt.Equal(committed) {
		t.Errorf("GetArtifact() = %+v, want %+v", got, rec)
	}

	// Upsert replaces the existing row.
	rec.SHA1 = "0000000000000000000000000000000000000000"
	rec.Size = 42
	if err := s.PutArtifact(rec); err != nil {
		t.Fatal(err)
	}
	got, _ = s.GetArtifact(rec.Path)
	if got.SHA1 != rec.SHA1 || got.Size != 42 {
		t.Errorf("after upsert = %+v", got)
	}

	count, total, err := s.CountArtifacts()
	if err != nil || count != 1 || total != 42 {
		t.Errorf("CountArtifacts() = %d, %d, %v", count, total, err)
	}

	if err := s.DeleteArtifact(rec.Path); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetArtifact(rec.Path); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("GetArtifact() after delete error = %v, want ErrNotFound", err)
	}
	if err := s.DeleteArtifact(rec.Path); err != nil {
		t.Errorf("deleting a missing record should not fail: %v", err)
	}
}

func TestStore_ListArtifacts(t *testing.T) {
	s := openTestStore(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, name := range []string{"c", "a", "b"} {
		if err := s.PutArtifact(&domain.ArtifactRecord{
			Path:         "/data/" + name,
			URL:          "https://x/" + name,
			Size:         int64(i + 1),
			ResourceType: domain.ResourceAsset,
			CommittedAt:  base.Add(time.Duration(i) * time.Hour),
		}); err != nil {
			t.Fatal(err)
		}
	}

	recs, err := s.ListArtifacts(base.Add(90*time.Minute), domain.ArtifactCursor{}, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 2 || recs[0].Path != "/data/c" || recs[1].Path != "/data/a" {
		t.Errorf("ListArtifacts() = %v", recs)
	}

	recs, _ = s.ListArtifacts(base.Add(24*time.Hour), domain.ArtifactCursor{}, 1)
	if len(recs) != 1 {
		t.Errorf("limit not applied: %d records", len(recs))
	}

	count, total, _ := s.CountArtifacts()
	if count != 3 || total != 6 {
		t.Errorf("CountArtifacts() = %d, %d", count, total)
	}
}

func TestStore_ListArtifactsPaging(t *testing.T) {
	s := openTestStore(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	// b and c share a timestamp so the path breaks the tie.
	records := []struct {
		path string
		at   time.Time
	}{
		{"/data/d", base.Add(2 * time.Hour)},
		{"/data/c", base.Add(time.Hour)},
		{"/data/b", base.Add(time.Hour)},
		{"/data/a", base},
		{"/data/e", base.Add(3 * time.Hour)},
	}
	for _, r := range records {
		if err := s.PutArtifact(&domain.ArtifactRecord{
			Path:         r.path,
			URL:          "https://x" + r.path,
			ResourceType: domain.ResourceAsset,
			CommittedAt:  r.at,
		}); err != nil {
			t.Fatal(err)
		}
	}

	var got []string
	var cursor domain.ArtifactCursor
	for pages := 0; pages < 10; pages++ {
		page, err := s.ListArtifacts(base.Add(24*time.Hour), cursor, 2)
		if err != nil {
			t.Fatalf("ListArtifacts() error = %v", err)
		}
		for _, rec := range page {
			got = append(got, rec.Path)
		}
		if len(page) < 2 {
			break
		}
		cursor = page[len(page)-1].Cursor()
	}

	want := []string{"/data/a", "/data/b", "/data/c", "/data/d", "/data/e"}
	if len(got) != len(want) {
		t.Fatalf("paged paths = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("paged paths = %v, want %v", got, want)
			break
		}
	}

	// Deleting rows behind the cursor does not shift later pages.
	first, _ := s.ListArtifacts(base.Add(24*time.Hour), domain.ArtifactCursor{}, 2)
	for _, rec := range first {
		if err := s.DeleteArtifact(rec.Path); err != nil {
			t.Fatal(err)
		}
	}
	next, err := s.ListArtifacts(base.Add(24*time.Hour), first[len(first)-1].Cursor(), 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(next) != 2 || next[0].Path != "/data/c" || next[1].Path != "/data/d" {
		t.Errorf("page after delete = %v", next)
	}
}

func TestStore_CountEmpty(t *testing.T) {
	s := openTestStore(t)
	count, total, err := s.CountArtifacts()
	if err != nil || count != 0 || total != 0 {
		t.Errorf("CountArtifacts() = %d, %d, %v", count, total, err)
	}
}
