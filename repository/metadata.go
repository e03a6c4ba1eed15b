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

package repository

import (
	"errors"
	"fmt"
	"time"

	"github.com/PlakarLabs/blobbackup/compression"
	"github.com/PlakarLabs/blobbackup/objects"
	"github.com/PlakarLabs/blobbackup/profiler"
	"github.com/PlakarLabs/blobbackup/storage"
)

// metadata objects are always gzip compressed then encrypted.
func (r *Repository) uploadMetadata(key string, serialized []byte) error {
	compressed, err := compression.DeflateGzip(serialized)
	if err != nil {
		return err
	}
	encrypted, err := r.encrypt(compressed)
	if err != nil {
		return err
	}
	return r.upload(key, encrypted, storage.TierHot)
}

func (r *Repository) downloadMetadata(key string) ([]byte, error) {
	data, err := r.download(key)
	if err != nil {
		return nil, err
	}
	plaintext, err := r.decrypt(key, data)
	if err != nil {
		return nil, err
	}
	return r.codecs.Decompress(compression.Gzip, plaintext)
}

func (r *Repository) IndexExists() (bool, error) {
	return r.store.Exists(r.IndexKey())
}

// UploadIndex replaces the index and keeps a timestamped copy of it.
func (r *Repository) UploadIndex(data *objects.IndexData) error {
	t0 := time.Now()
	defer func() {
		profiler.RecordEvent("repository.UploadIndex", time.Since(t0))
	}()

	serialized, err := data.Serialize()
	if err != nil {
		return err
	}
	if err := r.uploadMetadata(r.IndexKey(), serialized); err != nil {
		return err
	}
	return r.uploadMetadata(r.IndexBackupKey(time.Now()), serialized)
}

func (r *Repository) DownloadIndex() (*objects.IndexData, error) {
	t0 := time.Now()
	defer func() {
		profiler.RecordEvent("repository.DownloadIndex", time.Since(t0))
	}()

	serialized, err := r.downloadMetadata(r.IndexKey())
	if err != nil {
		return nil, err
	}
	data, err := objects.NewIndexDataFromBytes(serialized)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", r.IndexKey(), err)
	}
	return data, nil
}

func (r *Repository) UploadShardToken(id objects.ShardID, token *objects.ShardToken) error {
	t0 := time.Now()
	defer func() {
		profiler.RecordEvent("repository.UploadShardToken", time.Since(t0))
	}()

	serialized, err := token.Serialize()
	if err != nil {
		return err
	}
	return r.uploadMetadata(r.ShardTokenKey(id), serialized)
}

func (r *Repository) DownloadShardToken(id objects.ShardID) (*objects.ShardToken, error) {
	t0 := time.Now()
	defer func() {
		profiler.RecordEvent("repository.DownloadShardToken", time.Since(t0))
	}()

	serialized, err := r.downloadMetadata(r.ShardTokenKey(id))
	if err != nil {
		return nil, err
	}
	token, err := objects.NewShardTokenFromBytes(serialized)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", r.ShardTokenKey(id), err)
	}
	return token, nil
}

// ListShardTokens returns the ids of every stored shard token.
func (r *Repository) ListShardTokens() ([]objects.ShardID, error) {
	keys, err := r.store.List(r.shardTokensPrefix())
	if err != nil {
		return nil, err
	}

	ret := make([]objects.ShardID, 0, len(keys))
	for _, key := range keys {
		id, err := r.parseShardTokenKey(key)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrListingCorrupted, key, err)
		}
		ret = append(ret, id)
	}
	return ret, nil
}

func (r *Repository) DownloadShardTokens() (map[objects.ShardID]*objects.ShardToken, error) {
	ids, err := r.ListShardTokens()
	if err != nil {
		return nil, err
	}

	ret := make(map[objects.ShardID]*objects.ShardToken, len(ids))
	for _, id := range ids {
		token, err := r.DownloadShardToken(id)
		if err != nil {
			return nil, err
		}
		ret[id] = token
	}
	return ret, nil
}

func (r *Repository) ShardsChanged() (bool, error) {
	return r.store.Exists(r.ShardsChangedKey())
}

// SetShardsChanged creates or removes the zero-byte, unencrypted marker.
func (r *Repository) SetShardsChanged(changed bool) error {
	if changed {
		return r.upload(r.ShardsChangedKey(), []byte{}, storage.TierHot)
	}
	_, err := r.delete(r.ShardsChangedKey())
	return err
}

func isNotFound(err error) bool {
	return errors.Is(err, storage.ErrNotFound)
}
