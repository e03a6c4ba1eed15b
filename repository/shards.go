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
	"fmt"
	"time"

	"github.com/PlakarLabs/blobbackup/compression"
	"github.com/PlakarLabs/blobbackup/objects"
	"github.com/PlakarLabs/blobbackup/profiler"
	"github.com/PlakarLabs/blobbackup/storage"
)

// UploadShard stores the concatenated chunks of a shard and returns the
// codec its payload was actually stored with.
func (r *Repository) UploadShard(id objects.ShardID, data []byte) (compression.Tag, error) {
	t0 := time.Now()
	defer func() {
		profiler.RecordEvent("repository.UploadShard", time.Since(t0))
	}()

	if r.dryRun {
		return compression.None, r.upload(r.ShardKey(id), data, r.tier)
	}

	payload, tag, err := compression.Compress(r.codec, data, r.compressAlways)
	if err != nil {
		return compression.None, err
	}
	r.logger.Trace("repository", "shard %s: %d bytes, stored as %s with %d bytes", id, len(data), tag, len(payload))

	encrypted, err := r.encrypt(payload)
	if err != nil {
		return compression.None, err
	}
	if err := r.upload(r.ShardKey(id), encrypted, r.tier); err != nil {
		return compression.None, err
	}
	return tag, nil
}

// DownloadShard fetches a shard, from its hot copy when the configured tier
// is not directly readable.
func (r *Repository) DownloadShard(id objects.ShardID, tag compression.Tag) ([]byte, error) {
	t0 := time.Now()
	defer func() {
		profiler.RecordEvent("repository.DownloadShard", time.Since(t0))
	}()

	key := r.ShardKey(id)
	if r.CopyRequired() {
		if err := r.RequireCopyDone(id); err != nil {
			return nil, err
		}
		key = r.HotShardKey(id)
	}

	data, err := r.download(key)
	if err != nil {
		return nil, err
	}
	plaintext, err := r.decrypt(key, data)
	if err != nil {
		return nil, err
	}
	return r.codecs.Decompress(tag, plaintext)
}

// CopyShard starts a copy of an archived shard to the hot tier unless one
// already exists. It never waits for the copy to complete.
func (r *Repository) CopyShard(id objects.ShardID) error {
	if !r.CopyRequired() {
		return nil
	}

	exists, err := r.store.Exists(r.HotShardKey(id))
	if err != nil {
		return err
	}
	if exists {
		r.logger.Trace("repository", "shard %s: hot copy already present", id)
		return nil
	}

	if r.dryRun {
		r.logger.Info("dry-run: skipping copy of shard %s", id)
		return nil
	}
	r.logger.Info("shard %s: starting copy to hot tier", id)
	return r.store.StartCopy(r.ShardKey(id), r.HotShardKey(id), storage.TierHot)
}

// RequireCopyDone fails unless the hot copy of a shard is complete and
// readable.
func (r *Repository) RequireCopyDone(id objects.ShardID) error {
	properties, err := r.store.GetProperties(r.HotShardKey(id))
	if err != nil {
		if isNotFound(err) {
			return fmt.Errorf("shard %s: %w: no hot copy", id, ErrCopyNotReady)
		}
		return err
	}

	switch properties.CopyStatus {
	case storage.CopyFailed, storage.CopyAborted:
		return fmt.Errorf("shard %s: %w: status %s", id, ErrCopyFailed, properties.CopyStatus)
	case storage.CopySuccess:
		if properties.Tier == storage.TierArchive {
			return fmt.Errorf("shard %s: %w: copy still archived", id, ErrCopyNotReady)
		}
		return nil
	default:
		return fmt.Errorf("shard %s: %w: status %s", id, ErrCopyNotReady, properties.CopyStatus)
	}
}
