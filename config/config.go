package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v2"
)

const (
	DefaultShardSize       = "512MiB"
	DefaultSevenZipTimeout = "1h"
)

type SevenZipConfig struct {
	Path    string `yaml:"path"`
	Timeout string `yaml:"timeout"`
}

type LogConfig struct {
	File       string `yaml:"file"`
	MaxSize    int    `yaml:"max_size" validate:"gte=0"`
	MaxBackups int    `yaml:"max_backups" validate:"gte=0"`
	MaxAge     int    `yaml:"max_age" validate:"gte=0"`
}

type Config struct {
	Backend         string         `yaml:"backend" validate:"required,oneof=fs s3 memory"`
	Location        string         `yaml:"location" validate:"required"`
	CreateContainer bool           `yaml:"create_container"`
	Folder          string         `yaml:"folder" validate:"required"`
	AccessTier      string         `yaml:"access_tier" validate:"required,oneof=hot cool archive"`
	ShardSize       string         `yaml:"shard_size" validate:"required"`
	Compression     string         `yaml:"compression" validate:"oneof=none gzip lz4 zstd 7zip"`
	CompressAlways  bool           `yaml:"compress_always"`
	SevenZip        SevenZipConfig `yaml:"sevenzip"`
	Hashing         string         `yaml:"hashing" validate:"oneof=sha256 blake3"`
	DryRun          bool           `yaml:"dry_run"`
	StagingDir      string         `yaml:"staging_dir"`
	KeysDir         string         `yaml:"keys_dir"`
	Log             LogConfig      `yaml:"log"`

	// resolved by Validate
	ShardSizeBytes  int           `yaml:"-"`
	SevenZipTimeout time.Duration `yaml:"-"`
}

func Default() *Config {
	return &Config{
		Backend:     "fs",
		Folder:      "backup",
		AccessTier:  "archive",
		ShardSize:   DefaultShardSize,
		Compression: "none",
		Hashing:     "sha256",
		SevenZip: SevenZipConfig{
			Path:    "7z",
			Timeout: DefaultSevenZipTimeout,
		},
		KeysDir: defaultKeysDir(),
		Log: LogConfig{
			MaxSize:    100,
			MaxBackups: 3,
			MaxAge:     28,
		},
	}
}

func defaultKeysDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".blobbackup"
	}
	return filepath.Join(dir, "blobbackup")
}

// Load reads a YAML file over the defaults. A missing file is not an error
// when the path is empty.
func Load(pathname string) (*Config, error) {
	cfg := Default()
	if pathname == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(pathname)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config file %s not found", pathname)
		}
		return nil, err
	}
	if err := yaml.UnmarshalStrict(data, cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", pathname, err)
	}
	return cfg, nil
}

func (cfg *Config) Save(pathname string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(pathname, data, 0600)
}
