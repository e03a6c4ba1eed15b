package filesystem

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/PlakarLabs/blobbackup/objects"
)

func writeFile(t *testing.T, root string, rel string, content string) {
	t.Helper()
	pathname := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(pathname), 0700); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(pathname, []byte(content), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestScan(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "b.txt", "b")
	writeFile(t, root, "dir/a.txt", "aa")
	writeFile(t, root, ".hidden", "h")
	writeFile(t, root, ".git/config", "c")
	writeFile(t, root, "dir/.env", "e")
	writeFile(t, root, "logs/debug.LOG", "log")
	writeFile(t, root, "deep/nested/trace.log", "log")
	writeFile(t, root, "cache/top.bin", "c")
	writeFile(t, root, "dir/cache/inner.bin", "c")
	writeFile(t, root, "dir/cached.bin", "kept")
	writeFile(t, root, IgnoreFile, "# comment\n\n*.log\ncache/*\n")
	if err := os.MkdirAll(filepath.Join(root, "empty"), 0700); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}

	filesystem, err := New(root, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	files, err := filesystem.Scan()
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	expected := map[objects.FileID]bool{
		".git/config":    false,
		".hidden":        true,
		"b.txt":          false,
		"dir/.env":       true,
		"dir/a.txt":      false,
		"dir/cached.bin": false,
	}
	if len(files) != len(expected) {
		t.Fatalf("expected %d files, got %v", len(expected), files)
	}
	for _, file := range files {
		hidden, exists := expected[file.ID]
		if !exists {
			t.Errorf("unexpected file %s", file.ID)
			continue
		}
		if file.Hidden != hidden {
			t.Errorf("%s: expected hidden=%v", file.ID, hidden)
		}
	}
	if files[len(files)-1].ID != "dir/cached.bin" || files[len(files)-1].Length != 4 {
		t.Errorf("unexpected last entry %+v", files[len(files)-1])
	}
}

func TestExcludesMatchTrailingComponents(t *testing.T) {
	filesystem, err := New(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := filesystem.AddExcludes("*.TMP", "build/out", "/abs"); err != nil {
		t.Fatalf("AddExcludes: %v", err)
	}

	for id, expected := range map[objects.FileID]bool{
		"x.tmp":             true,
		"a/b/c/X.Tmp":       true,
		"build/out":         true,
		"src/build/out":     true,
		"src/build/out.txt": false,
		"build/output":      false,
		"tmp":               false,
		"abs":               false,
	} {
		if got := filesystem.excluded(id); got != expected {
			t.Errorf("%s: expected excluded=%v, got %v", id, expected, got)
		}
	}
}

func TestAddExcludesInvalid(t *testing.T) {
	filesystem, err := New(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := filesystem.AddExcludes("[unterminated"); err == nil {
		t.Errorf("expected error for an invalid pattern")
	}
}

func TestCreateAndSetLastWriteTime(t *testing.T) {
	root := t.TempDir()
	filesystem, err := New(root, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	empty, err := filesystem.IsEmpty()
	if err != nil || !empty {
		t.Fatalf("expected empty folder, got %v, %v", empty, err)
	}

	id := objects.FileID("sub/dir/file.bin")
	wr, err := filesystem.Create(id)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := io.WriteString(wr, "content"); err != nil {
		t.Fatalf("Write: %v", err)
	}
	wr.Close()

	mtime := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)
	if err := filesystem.SetLastWriteTime(id, mtime); err != nil {
		t.Fatalf("SetLastWriteTime: %v", err)
	}
	info, err := filesystem.Stat(id)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if !info.LastWriteTime.Equal(mtime) || info.Length != 7 {
		t.Errorf("unexpected stat %+v", info)
	}

	empty, err = filesystem.IsEmpty()
	if err != nil || empty {
		t.Fatalf("expected non-empty folder, got %v, %v", empty, err)
	}
}

func TestNewRejectsFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "file", "x")
	if _, err := New(filepath.Join(root, "file"), nil); err == nil {
		t.Errorf("expected error for a regular file")
	}
}
