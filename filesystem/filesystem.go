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

package filesystem

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/PlakarLabs/blobbackup/logging"
	"github.com/PlakarLabs/blobbackup/objects"
	"github.com/gobwas/glob"
)

const IgnoreFile = ".bbignore"

type FileInfo struct {
	ID            objects.FileID
	Length        int64
	LastWriteTime time.Time
	Hidden        bool
}

// Filesystem enumerates and reads the regular files below a root folder.
type Filesystem struct {
	root     string
	excludes []glob.Glob
	logger   *logging.Logger
}

func New(root string, logger *logging.Logger) (*Filesystem, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s: not a directory", root)
	}

	filesystem := &Filesystem{
		root:     filepath.Clean(root),
		excludes: make([]glob.Glob, 0),
		logger:   logger,
	}
	if err := filesystem.loadIgnoreFile(filepath.Join(root, IgnoreFile)); err != nil {
		return nil, err
	}
	return filesystem, nil
}

func (filesystem *Filesystem) Root() string {
	return filesystem.root
}

// AddExcludes registers glob patterns matched case-insensitively against
// slash separated relative paths. A pattern is unanchored on the left: it
// matches when it matches the whole path or any trailing run of its
// components, so "*.log" excludes "logs/debug.log".
func (filesystem *Filesystem) AddExcludes(patterns ...string) error {
	for _, pattern := range patterns {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" || strings.HasPrefix(pattern, "#") {
			continue
		}
		compiled, err := glob.Compile(strings.ToLower(pattern), '/')
		if err != nil {
			return fmt.Errorf("exclude pattern %q: %w", pattern, err)
		}
		filesystem.excludes = append(filesystem.excludes, compiled)
	}
	return nil
}

func (filesystem *Filesystem) loadIgnoreFile(pathname string) error {
	fp, err := os.Open(pathname)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer fp.Close()

	scanner := bufio.NewScanner(fp)
	for scanner.Scan() {
		if err := filesystem.AddExcludes(scanner.Text()); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func (filesystem *Filesystem) excluded(id objects.FileID) bool {
	key := id.Key()
	for {
		for _, exclude := range filesystem.excludes {
			if exclude.Match(key) {
				return true
			}
		}
		slash := strings.IndexByte(key, '/')
		if slash < 0 {
			return false
		}
		key = key[slash+1:]
	}
}

// isHidden only looks at the file's own name, parent directories do not
// make a file hidden.
func isHidden(id objects.FileID) bool {
	return strings.HasPrefix(path.Base(string(id)), ".")
}

// Scan lists every regular file that is not excluded, ordered by path.
func (filesystem *Filesystem) Scan() ([]FileInfo, error) {
	ret := make([]FileInfo, 0)
	err := filepath.WalkDir(filesystem.root, func(pathname string, d fs.DirEntry, err error) error {
		if err != nil {
			if pathname == filesystem.root {
				return err
			}
			filesystem.logger.Warn("%s", err)
			return nil
		}
		if pathname == filesystem.root || !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(filesystem.root, pathname)
		if err != nil {
			return err
		}
		id := objects.NewFileID(filepath.ToSlash(rel))
		if id.Equal(IgnoreFile) {
			return nil
		}
		if filesystem.excluded(id) {
			filesystem.logger.Trace("filesystem", "%s: excluded", id)
			return nil
		}

		info, err := d.Info()
		if err != nil {
			filesystem.logger.Warn("%s", err)
			return nil
		}
		ret = append(ret, FileInfo{
			ID:            id,
			Length:        info.Size(),
			LastWriteTime: info.ModTime().UTC(),
			Hidden:        isHidden(id),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(ret, func(i, j int) bool {
		return ret[i].ID < ret[j].ID
	})
	return ret, nil
}

func (filesystem *Filesystem) Path(id objects.FileID) string {
	return filepath.Join(filesystem.root, filepath.FromSlash(string(id)))
}

func (filesystem *Filesystem) Stat(id objects.FileID) (FileInfo, error) {
	info, err := os.Stat(filesystem.Path(id))
	if err != nil {
		return FileInfo{}, err
	}
	return FileInfo{
		ID:            id,
		Length:        info.Size(),
		LastWriteTime: info.ModTime().UTC(),
		Hidden:        isHidden(id),
	}, nil
}

func (filesystem *Filesystem) Open(id objects.FileID) (io.ReadCloser, error) {
	return os.Open(filesystem.Path(id))
}

// Create truncates or creates a file for writing, along with its parent
// directories.
func (filesystem *Filesystem) Create(id objects.FileID) (io.WriteCloser, error) {
	pathname := filesystem.Path(id)
	if err := os.MkdirAll(filepath.Dir(pathname), 0700); err != nil {
		return nil, err
	}
	return os.Create(pathname)
}

func (filesystem *Filesystem) SetLastWriteTime(id objects.FileID, t time.Time) error {
	return os.Chtimes(filesystem.Path(id), t, t)
}

// IsEmpty reports whether the root folder holds no entry at all.
func (filesystem *Filesystem) IsEmpty() (bool, error) {
	return IsEmptyDir(filesystem.root)
}

func IsEmptyDir(pathname string) (bool, error) {
	fp, err := os.Open(pathname)
	if err != nil {
		return false, err
	}
	defer fp.Close()

	_, err = fp.Readdirnames(1)
	if errors.Is(err, io.EOF) {
		return true, nil
	}
	return false, err
}
