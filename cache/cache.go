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

package cache

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/PlakarLabs/blobbackup/objects"
	"github.com/PlakarLabs/blobbackup/profiler"

	"github.com/syndtr/goleveldb/leveldb"
)

// Cache stages restored chunks on local disk. It survives an interrupted
// restore so that a later run only fetches the missing chunks.
type Cache struct {
	dir string
	db  *leveldb.DB
}

func New(cacheDir string) (*Cache, error) {
	t0 := time.Now()
	defer func() {
		profiler.RecordEvent("cache.New", time.Since(t0))
	}()

	if err := os.MkdirAll(cacheDir, 0700); err != nil {
		return nil, err
	}
	db, err := leveldb.OpenFile(filepath.Join(cacheDir, "chunks.db"), nil)
	if err != nil {
		return nil, err
	}
	return &Cache{
		dir: cacheDir,
		db:  db,
	}, nil
}

func chunkKey(id objects.ChunkID) []byte {
	return append([]byte("Chunk:"), id[:]...)
}

func (cache *Cache) PutChunk(id objects.ChunkID, data []byte) error {
	t0 := time.Now()
	defer func() {
		profiler.RecordEvent("cache.PutChunk", time.Since(t0))
	}()
	return cache.db.Put(chunkKey(id), data, nil)
}

func (cache *Cache) GetChunk(id objects.ChunkID) ([]byte, error) {
	t0 := time.Now()
	defer func() {
		profiler.RecordEvent("cache.GetChunk", time.Since(t0))
	}()
	data, err := cache.db.Get(chunkKey(id), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, os.ErrNotExist
	}
	return data, err
}

func (cache *Cache) HasChunk(id objects.ChunkID) (bool, error) {
	return cache.db.Has(chunkKey(id), nil)
}

func (cache *Cache) Close() error {
	return cache.db.Close()
}

// Discard closes the cache and removes it from disk.
func (cache *Cache) Discard() error {
	if err := cache.db.Close(); err != nil && !errors.Is(err, leveldb.ErrClosed) {
		return err
	}
	return os.RemoveAll(cache.dir)
}
