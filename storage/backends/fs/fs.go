/*
 * Copyright (c) 2021 Gilles Chehade <gilles@poolp.org>
 *
 * Permission to use, copy, modify, and distribute this software for any
 * purpose with or without fee is hereby granted, provided that the above
 * copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES
 * WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF
 * MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR
 * ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES
 * WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN
 * ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF
 * OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package fs

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/PlakarLabs/blobbackup/storage"
	"github.com/google/uuid"
)

const tmpDir = ".tmp"

// Repository stores every blob as a file below root. There is no tiering:
// objects are always hot and copies complete synchronously.
type Repository struct {
	root string
}

func init() {
	storage.Register("fs", func() storage.Backend { return NewRepository() })
}

func NewRepository() *Repository {
	return &Repository{}
}

func parseLocation(location string) string {
	return strings.TrimPrefix(location, "fs://")
}

func (repository *Repository) Create(location string) error {
	repository.root = parseLocation(location)
	if err := os.MkdirAll(repository.root, 0700); err != nil {
		return err
	}
	return os.MkdirAll(filepath.Join(repository.root, tmpDir), 0700)
}

func (repository *Repository) Open(location string) error {
	repository.root = parseLocation(location)

	info, err := os.Stat(repository.root)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s: not a directory", repository.root)
	}
	return os.MkdirAll(filepath.Join(repository.root, tmpDir), 0700)
}

func (repository *Repository) Close() error {
	return nil
}

func (repository *Repository) Path(key string) string {
	return filepath.Join(repository.root, filepath.FromSlash(key))
}

func (repository *Repository) Exists(key string) (bool, error) {
	_, err := os.Stat(repository.Path(key))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

func (repository *Repository) Upload(key string, data []byte, tier storage.Tier) error {
	target := repository.Path(key)
	if err := os.MkdirAll(filepath.Dir(target), 0700); err != nil {
		return err
	}

	tmp := filepath.Join(repository.root, tmpDir, uuid.NewString())
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, target)
}

func (repository *Repository) Download(key string) ([]byte, error) {
	data, err := os.ReadFile(repository.Path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, storage.ErrNotFound
	}
	return data, err
}

func (repository *Repository) DeleteIfExists(key string) (bool, error) {
	err := os.Remove(repository.Path(key))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

func (repository *Repository) StartCopy(source string, target string, tier storage.Tier) error {
	rd, err := os.Open(repository.Path(source))
	if errors.Is(err, fs.ErrNotExist) {
		return storage.ErrNotFound
	}
	if err != nil {
		return err
	}
	defer rd.Close()

	targetPath := repository.Path(target)
	if err := os.MkdirAll(filepath.Dir(targetPath), 0700); err != nil {
		return err
	}

	tmp := filepath.Join(repository.root, tmpDir, uuid.NewString())
	wr, err := os.OpenFile(tmp, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(wr, rd); err != nil {
		wr.Close()
		os.Remove(tmp)
		return err
	}
	if err := wr.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, targetPath)
}

func (repository *Repository) GetProperties(key string) (storage.Properties, error) {
	info, err := os.Stat(repository.Path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return storage.Properties{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.Properties{}, err
	}
	return storage.Properties{
		Size:       info.Size(),
		Tier:       storage.TierHot,
		CopyStatus: storage.CopySuccess,
	}, nil
}

func (repository *Repository) List(prefix string) ([]string, error) {
	ret := make([]string, 0)

	// only the deepest directory named by the prefix needs walking
	dir := ""
	if idx := strings.LastIndex(prefix, "/"); idx >= 0 {
		dir = prefix[:idx]
	}
	start := repository.Path(dir)
	if _, err := os.Stat(start); errors.Is(err, fs.ErrNotExist) {
		return ret, nil
	}

	err := filepath.WalkDir(start, func(pathname string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(repository.root, pathname)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if d.IsDir() {
			if key == tmpDir {
				return fs.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(key, prefix) {
			ret = append(ret, key)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}
