package context

import (
	"bytes"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/PlakarLabs/blobbackup/config"
	"github.com/PlakarLabs/blobbackup/encryption"
	"github.com/PlakarLabs/blobbackup/storage"
	_ "github.com/PlakarLabs/blobbackup/storage/backends/fs"
	"github.com/google/uuid"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Location = filepath.Join(t.TempDir(), "store")
	cfg.CreateContainer = true
	cfg.ShardSize = "1MiB"
	cfg.Compression = "zstd"
	return cfg
}

func TestNew(t *testing.T) {
	key, _ := encryption.GenerateKey()
	ctx, err := New(testConfig(t), nil, key, Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer ctx.Close()

	tests := []struct {
		name     string
		getter   func() interface{}
		expected interface{}
	}{
		{"ShardSize", func() interface{} { return ctx.Packer().ShardSize() }, 1 << 20},
		{"Tier", func() interface{} { return ctx.Repository().Tier() }, storage.TierArchive},
		{"Backend", func() interface{} { return ctx.Store().Name() }, "fs"},
		{"Hashing", func() interface{} { return ctx.ChunkIDer().Algorithm() }, "sha256"},
		{"OperatingSystem", func() interface{} { return ctx.OperatingSystem() }, runtime.GOOS},
		{"Architecture", func() interface{} { return ctx.Architecture() }, runtime.GOARCH},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if result := test.getter(); result != test.expected {
				t.Errorf("expected %v, got %v", test.expected, result)
			}
		})
	}

	if ctx.RunID() == uuid.Nil {
		t.Errorf("expected a run id")
	}
	if ctx.Index() == nil || ctx.Monitor() == nil || ctx.Logger() == nil {
		t.Errorf("expected components to be built")
	}
	if !bytes.Equal(ctx.Cipher().Key(), key) {
		t.Errorf("expected cipher to hold the operator key")
	}

	if err := ctx.Repository().LoadMainKey(); err != nil {
		t.Fatalf("LoadMainKey: %v", err)
	}
	if bytes.Equal(ctx.Cipher().Key(), key) {
		t.Errorf("expected cipher to switch to the main key")
	}
	if err := ctx.Index().Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
}

func TestNewErrors(t *testing.T) {
	key, _ := encryption.GenerateKey()

	cfg := testConfig(t)
	cfg.Compression = "brotli"
	if _, err := New(cfg, nil, key, Options{}); err == nil {
		t.Errorf("expected error for unknown compression")
	}

	cfg = testConfig(t)
	if _, err := New(cfg, nil, key[:16], Options{}); err == nil {
		t.Errorf("expected error for a short key")
	}

	cfg = testConfig(t)
	cfg.CreateContainer = false
	if _, err := New(cfg, nil, key, Options{}); err == nil {
		t.Errorf("expected error when the container does not exist")
	}
}
