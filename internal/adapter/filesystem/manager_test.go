package filesystem

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vertextoedge/mcfetch/internal/domain"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	return m
}

func TestManager_Resolve(t *testing.T) {
	m := newTestManager(t)
	root := m.RootDir()

	tests := []struct {
		name    string
		dest    string
		want    string
		wantErr bool
	}{
		{name: "relative", dest: "libraries/a/b.jar", want: filepath.Join(root, "libraries", "a", "b.jar")},
		{name: "absolute inside root", dest: filepath.Join(root, "mods", "x.jar"), want: filepath.Join(root, "mods", "x.jar")},
		{name: "dotdot is confined", dest: "../../etc/passwd", want: filepath.Join(root, "etc", "passwd")},
		{name: "absolute outside root", dest: filepath.Join(filepath.Dir(root), "elsewhere.jar"), wantErr: true},
		{name: "empty", dest: "  ", wantErr: true},
		{name: "root itself", dest: ".", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := m.Resolve(tt.dest)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Resolve(%q) = %q, want error", tt.dest, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve(%q) error = %v", tt.dest, err)
			}
			if got != tt.want {
				t.Errorf("Resolve(%q) = %q, want %q", tt.dest, got, tt.want)
			}
		})
	}
}

func TestManager_TempAndCommit(t *testing.T) {
	m := newTestManager(t)
	final := filepath.Join(m.RootDir(), "versions", "1.20.1", "server.jar")

	f, err := m.CreateTempFile(final, "0123456789abcdef")
	if err != nil {
		t.Fatalf("CreateTempFile() error = %v", err)
	}
	if want := final + ".01234567.downloading"; f.Name() != want {
		t.Errorf("temp name = %q, want %q", f.Name(), want)
	}
	if _, err := f.WriteString("payload"); err != nil {
		t.Fatal(err)
	}
	f.Close()

	if m.FileExists(final) {
		t.Fatal("final path should not exist before commit")
	}
	if err := m.Commit(f.Name(), final); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	if !m.FileExists(final) {
		t.Fatal("final path should exist after commit")
	}
	if m.FileExists(f.Name()) {
		t.Error("temp file should be gone after commit")
	}
	size, err := m.GetFileSize(final)
	if err != nil || size != 7 {
		t.Errorf("GetFileSize() = %d, %v; want 7, nil", size, err)
	}
}

func TestManager_DeleteMissingIsNotError(t *testing.T) {
	m := newTestManager(t)
	missing := filepath.Join(m.RootDir(), "nope")
	if err := m.DeleteFile(missing); err != nil {
		t.Errorf("DeleteFile() error = %v", err)
	}
	if err := m.DeleteTempFile(missing + TempSuffix); err != nil {
		t.Errorf("DeleteTempFile() error = %v", err)
	}
}

func TestManager_Lock(t *testing.T) {
	m := newTestManager(t)
	final := filepath.Join(m.RootDir(), "a.jar")

	unlock, err := m.Lock(context.Background(), final)
	if err != nil {
		t.Fatalf("Lock() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	if _, err := m.Lock(ctx, final); !errors.Is(err, domain.ErrDestinationLocked) {
		t.Errorf("second Lock() error = %v, want ErrDestinationLocked", err)
	}

	unlock()

	unlock2, err := m.Lock(context.Background(), final)
	if err != nil {
		t.Fatalf("Lock() after unlock error = %v", err)
	}
	unlock2()
}

func TestManager_CleanOldTempFiles(t *testing.T) {
	m := newTestManager(t)
	dir := filepath.Join(m.RootDir(), "libraries")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}

	oldTemp := filepath.Join(dir, "old.jar.aaaaaaaa"+TempSuffix)
	newTemp := filepath.Join(dir, "new.jar.bbbbbbbb"+TempSuffix)
	regular := filepath.Join(dir, "keep.jar")
	for _, p := range []string{oldTemp, newTemp, regular} {
		if err := os.WriteFile(p, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	past := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(oldTemp, past, past); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(regular, past, past); err != nil {
		t.Fatal(err)
	}

	n, err := m.CleanOldTempFiles(time.Hour)
	if err != nil {
		t.Fatalf("CleanOldTempFiles() error = %v", err)
	}
	if n != 1 {
		t.Errorf("CleanOldTempFiles() = %d, want 1", n)
	}
	if m.FileExists(oldTemp) {
		t.Error("old temp file should be removed")
	}
	if !m.FileExists(newTemp) || !m.FileExists(regular) {
		t.Error("recent temp file and regular file should be kept")
	}
}

func TestTempPath_ShortID(t *testing.T) {
	got := TempPath("/x/a.jar", "abc")
	if !strings.HasSuffix(got, ".abc"+TempSuffix) {
		t.Errorf("TempPath() = %q", got)
	}
}
