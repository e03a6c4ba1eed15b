package cache

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/PlakarLabs/blobbackup/objects"
)

func TestPutGetChunk(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "chunks-cache")
	c, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	id := objects.ChunkID{1}
	if has, err := c.HasChunk(id); err != nil || has {
		t.Fatalf("expected empty cache, got %v, %v", has, err)
	}
	if _, err := c.GetChunk(id); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected os.ErrNotExist, got %v", err)
	}

	if err := c.PutChunk(id, []byte("chunk data")); err != nil {
		t.Fatalf("PutChunk: %v", err)
	}
	data, err := c.GetChunk(id)
	if err != nil || !bytes.Equal(data, []byte("chunk data")) {
		t.Fatalf("unexpected chunk %q, %v", data, err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if has, err := reopened.HasChunk(id); err != nil || !has {
		t.Fatalf("expected chunk to survive a reopen, got %v, %v", has, err)
	}
	if err := reopened.Discard(); err != nil {
		t.Fatalf("Discard: %v", err)
	}
	if _, err := os.Stat(dir); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected cache directory to be removed, got %v", err)
	}
}

func TestEmptyChunk(t *testing.T) {
	c, err := New(filepath.Join(t.TempDir(), "cache"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Discard()

	id := objects.ChunkID{2}
	if err := c.PutChunk(id, []byte{}); err != nil {
		t.Fatalf("PutChunk: %v", err)
	}
	data, err := c.GetChunk(id)
	if err != nil || len(data) != 0 {
		t.Fatalf("expected empty chunk, got %q, %v", data, err)
	}
}
