package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultNeedsLocation(t *testing.T) {
	cfg := Default()
	if err := Validate(cfg); err == nil || !strings.Contains(err.Error(), "Location") {
		t.Fatalf("expected location to be required, got %v", err)
	}

	cfg.Location = "/tmp/store"
	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.ShardSizeBytes != 512*1024*1024 {
		t.Errorf("unexpected shard size %d", cfg.ShardSizeBytes)
	}
	if cfg.SevenZipTimeout != time.Hour {
		t.Errorf("unexpected 7-zip timeout %s", cfg.SevenZipTimeout)
	}
}

func TestLoad(t *testing.T) {
	pathname := filepath.Join(t.TempDir(), "blobbackup.yml")
	content := `backend: s3
location: s3://key:secret@localhost:9000/bucket
folder: laptop
access_tier: cool
shard_size: 64MB
compression: zstd
sevenzip:
  timeout: 5m
log:
  file: /var/log/blobbackup.log
`
	if err := os.WriteFile(pathname, []byte(content), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(pathname)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.Backend != "s3" || cfg.Folder != "laptop" || cfg.AccessTier != "cool" || cfg.Compression != "zstd" {
		t.Errorf("unexpected config %+v", cfg)
	}
	if cfg.ShardSizeBytes != 64*1000*1000 {
		t.Errorf("unexpected shard size %d", cfg.ShardSizeBytes)
	}
	if cfg.SevenZipTimeout != 5*time.Minute || cfg.SevenZip.Path != "7z" {
		t.Errorf("unexpected 7-zip settings %+v", cfg.SevenZip)
	}
	if cfg.Hashing != "sha256" || cfg.Log.MaxBackups != 3 {
		t.Errorf("expected defaults to be kept, got %+v", cfg)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	pathname := filepath.Join(t.TempDir(), "blobbackup.yml")
	if err := os.WriteFile(pathname, []byte("shard_sise: 1MB\n"), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := Load(pathname); err == nil {
		t.Fatalf("expected error for unknown key")
	}
}

func TestValidateRejects(t *testing.T) {
	tests := map[string]func(*Config){
		"backend":     func(cfg *Config) { cfg.Backend = "azure" },
		"tier":        func(cfg *Config) { cfg.AccessTier = "cold" },
		"compression": func(cfg *Config) { cfg.Compression = "brotli" },
		"hashing":     func(cfg *Config) { cfg.Hashing = "md5" },
		"shard size":  func(cfg *Config) { cfg.ShardSize = "lots" },
		"zero shard":  func(cfg *Config) { cfg.ShardSize = "0" },
		"timeout":     func(cfg *Config) { cfg.SevenZip.Timeout = "soon" },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			cfg.Location = "/tmp/store"
			mutate(cfg)
			if err := Validate(cfg); err == nil {
				t.Errorf("expected validation error")
			}
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	pathname := filepath.Join(t.TempDir(), "blobbackup.yml")
	cfg := Default()
	cfg.Location = "/tmp/store"
	cfg.ShardSize = "1MiB"
	if err := cfg.Save(pathname); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := Load(pathname)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Location != cfg.Location || loaded.ShardSize != "1MiB" {
		t.Errorf("unexpected loaded config %+v", loaded)
	}
}
