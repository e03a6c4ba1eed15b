package restore

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/PlakarLabs/blobbackup/backup"
	"github.com/PlakarLabs/blobbackup/encryption"
	"github.com/PlakarLabs/blobbackup/filesystem"
	"github.com/PlakarLabs/blobbackup/hashing"
	"github.com/PlakarLabs/blobbackup/index"
	"github.com/PlakarLabs/blobbackup/packfile"
	"github.com/PlakarLabs/blobbackup/repository"
	"github.com/PlakarLabs/blobbackup/storage"
	"github.com/PlakarLabs/blobbackup/storage/backends/memory"
)

type fixture struct {
	backend *memory.Repository
	cipher  *encryption.Cipher
	tier    storage.Tier
	source  string
	files   map[string]string
	mtimes  map[string]time.Time
}

func newFixture(t *testing.T, tier storage.Tier) *fixture {
	t.Helper()
	key, err := encryption.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	cipher, err := encryption.NewCipher(key)
	if err != nil {
		t.Fatalf("NewCipher: %v", err)
	}
	f := &fixture{
		backend: memory.NewRepository(),
		cipher:  cipher,
		tier:    tier,
		source:  t.TempDir(),
		files:   make(map[string]string),
		mtimes:  make(map[string]time.Time),
	}
	mtime := time.Date(2021, 6, 1, 12, 0, 0, 0, time.UTC)
	for rel, content := range map[string]string{
		"docs/readme.txt": "read me first, then read me again",
		"docs/empty.txt":  "",
		"photos/cat.jpg":  "not really a jpeg but long enough to span shards",
		"photos/copy.jpg": "not really a jpeg but long enough to span shards",
		"top-level.bin":   "0123456789abcdef",
		"config/.ignored": "hidden",
		".config/app.yml": "kept: true",
	} {
		f.write(t, rel, content, mtime)
	}
	return f
}

func (f *fixture) write(t *testing.T, rel string, content string, mtime time.Time) {
	t.Helper()
	pathname := filepath.Join(f.source, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(pathname), 0700); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(pathname, []byte(content), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := os.Chtimes(pathname, mtime, mtime); err != nil {
		t.Fatalf("Chtimes: %v", err)
	}
	f.files[rel] = content
	f.mtimes[rel] = mtime
}

func (f *fixture) remove(t *testing.T, rel string) {
	t.Helper()
	if err := os.Remove(filepath.Join(f.source, filepath.FromSlash(rel))); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	delete(f.files, rel)
	delete(f.mtimes, rel)
}

func (f *fixture) repository() *repository.Repository {
	return repository.New(storage.NewStore("memory", f.backend), f.cipher, repository.Options{
		Folder: "backup",
		Tier:   f.tier,
	})
}

func (f *fixture) backup(t *testing.T) {
	t.Helper()
	repo := f.repository()
	idx := index.New(repo, index.NewMonitor(repo), index.Options{})
	ider, _ := hashing.NewChunkIDer(hashing.DefaultAlgorithm())
	fsys, err := filesystem.New(f.source, nil)
	if err != nil {
		t.Fatalf("filesystem.New: %v", err)
	}
	if _, err := backup.New(idx, packfile.NewPacker(idx, repo, 16, nil), ider, nil).Run(fsys); err != nil {
		t.Fatalf("backup: %v", err)
	}
}

func (f *fixture) engine() *Engine {
	repo := f.repository()
	return New(repo, index.New(repo, index.NewMonitor(repo), index.Options{}), nil)
}

func checkRestored(t *testing.T, f *fixture, destination string, prefix string) int {
	t.Helper()
	count := 0
	for rel, content := range f.files {
		pathname := filepath.Join(destination, filepath.FromSlash(rel))
		data, err := os.ReadFile(pathname)
		skipped := rel == "config/.ignored" || (prefix != "" && !strings.HasPrefix(rel, prefix))
		if skipped {
			if err == nil {
				t.Errorf("%s: expected file not to be restored", rel)
			}
			continue
		}
		if err != nil {
			t.Errorf("%s: %v", rel, err)
			continue
		}
		if string(data) != content {
			t.Errorf("%s: expected %q, got %q", rel, content, data)
		}
		info, _ := os.Stat(pathname)
		if !info.ModTime().Equal(f.mtimes[rel]) {
			t.Errorf("%s: expected mtime %s, got %s", rel, f.mtimes[rel], info.ModTime())
		}
		count++
	}
	return count
}

func TestRestore(t *testing.T) {
	f := newFixture(t, storage.TierHot)
	f.backup(t)

	destination := filepath.Join(t.TempDir(), "restored")
	summary, err := f.engine().Restore(destination, Options{})
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if restored := checkRestored(t, f, destination, ""); restored != summary.Files {
		t.Errorf("expected %d files in summary, got %d", restored, summary.Files)
	}
	if _, err := os.Stat(StagingDir(destination, Options{})); !os.IsNotExist(err) {
		t.Errorf("expected staging area to be discarded, got %v", err)
	}
}

func TestRestoreAfterChanges(t *testing.T) {
	f := newFixture(t, storage.TierHot)
	f.backup(t)

	later := time.Date(2022, 3, 4, 5, 6, 7, 0, time.UTC)
	f.write(t, "docs/readme.txt", "rewritten with a different length", later)
	f.remove(t, "photos/copy.jpg")
	f.remove(t, "top-level.bin")
	f.write(t, "top-level.bin", "0123456789abcdef", later)
	f.write(t, "new/added.txt", "added after the first backup", later)
	f.backup(t)

	f.remove(t, "docs/empty.txt")
	f.write(t, "photos/cat.jpg", "shorter", later.Add(time.Hour))
	f.backup(t)

	destination := filepath.Join(t.TempDir(), "restored")
	summary, err := f.engine().Restore(destination, Options{})
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if restored := checkRestored(t, f, destination, ""); restored != summary.Files {
		t.Errorf("expected %d files in summary, got %d", restored, summary.Files)
	}
	for _, rel := range []string{"photos/copy.jpg", "docs/empty.txt"} {
		if _, err := os.Stat(filepath.Join(destination, filepath.FromSlash(rel))); !os.IsNotExist(err) {
			t.Errorf("%s: expected deleted file not to be restored, got %v", rel, err)
		}
	}
}

func TestRestorePrefix(t *testing.T) {
	f := newFixture(t, storage.TierHot)
	f.backup(t)

	destination := t.TempDir()
	summary, err := f.engine().Restore(destination, Options{Prefix: "photos/", StagingDir: filepath.Join(t.TempDir(), "staging")})
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if summary.Files != 2 {
		t.Errorf("expected 2 files, got %d", summary.Files)
	}
	checkRestored(t, f, destination, "photos/")
}

func TestRestoreRequiresEmptyDestination(t *testing.T) {
	f := newFixture(t, storage.TierHot)
	f.backup(t)

	destination := t.TempDir()
	if err := os.WriteFile(filepath.Join(destination, "existing"), nil, 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := f.engine().Restore(destination, Options{}); !errors.Is(err, ErrNotEmpty) {
		t.Fatalf("expected ErrNotEmpty, got %v", err)
	}
}

func TestRestoreArchiveTier(t *testing.T) {
	f := newFixture(t, storage.TierArchive)
	f.backend.DeferCopies(true)
	f.backup(t)

	destination := filepath.Join(t.TempDir(), "restored")
	if _, err := f.engine().Restore(destination, Options{}); !errors.Is(err, repository.ErrCopyNotReady) {
		t.Fatalf("expected ErrCopyNotReady before copying, got %v", err)
	}

	requested, err := f.engine().CopyShards(Options{})
	if err != nil {
		t.Fatalf("CopyShards: %v", err)
	}
	if requested == 0 {
		t.Fatalf("expected shards to be requested")
	}
	copies := f.backend.Calls("copy")

	if _, err := f.engine().CopyShards(Options{}); err != nil {
		t.Fatalf("CopyShards: %v", err)
	}
	if f.backend.Calls("copy") != copies {
		t.Errorf("expected no new copy while hot copies exist")
	}

	if _, err := f.engine().Restore(destination, Options{}); !errors.Is(err, repository.ErrCopyNotReady) {
		t.Fatalf("expected ErrCopyNotReady while copies are pending, got %v", err)
	}

	f.backend.CompleteCopies(storage.TierHot)
	if _, err := f.engine().Restore(destination, Options{}); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	checkRestored(t, f, destination, "")
}

func TestRestoreArchiveCopyFailed(t *testing.T) {
	f := newFixture(t, storage.TierArchive)
	f.backend.DeferCopies(true)
	f.backup(t)

	if _, err := f.engine().CopyShards(Options{}); err != nil {
		t.Fatalf("CopyShards: %v", err)
	}
	f.backend.FailCopies()

	destination := filepath.Join(t.TempDir(), "restored")
	if _, err := f.engine().Restore(destination, Options{}); !errors.Is(err, repository.ErrCopyFailed) {
		t.Fatalf("expected ErrCopyFailed, got %v", err)
	}
}
