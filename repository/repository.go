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
	"github.com/PlakarLabs/blobbackup/encryption"
	"github.com/PlakarLabs/blobbackup/logging"
	"github.com/PlakarLabs/blobbackup/profiler"
	"github.com/PlakarLabs/blobbackup/storage"
	"github.com/dustin/go-humanize"
)

var (
	ErrDecryptionFailed = errors.New("decryption failed")
	ErrCopyNotReady     = errors.New("hot copy not ready")
	ErrCopyFailed       = errors.New("hot copy failed")
	ErrListingCorrupted = errors.New("shard token listing corrupted")
	ErrCorrupted        = errors.New("repository corrupted")
)

type Options struct {
	Folder         string
	Tier           storage.Tier
	Codec          compression.Codec
	Codecs         *compression.Registry
	CompressAlways bool
	DryRun         bool
	Logger         *logging.Logger
}

// Repository implements the blob protocol on top of a storage backend:
// naming, compression, encryption and hot copies of archived shards.
type Repository struct {
	store          storage.Backend
	cipher         *encryption.Cipher
	folder         string
	tier           storage.Tier
	codec          compression.Codec
	codecs         *compression.Registry
	compressAlways bool
	dryRun         bool
	logger         *logging.Logger
}

func New(store storage.Backend, cipher *encryption.Cipher, opts Options) *Repository {
	if opts.Tier == "" {
		opts.Tier = storage.TierArchive
	}
	if opts.Codecs == nil {
		opts.Codecs = compression.NewRegistry()
	}
	if opts.Codec == nil {
		opts.Codec, _ = opts.Codecs.Lookup(compression.None)
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	return &Repository{
		store:          store,
		cipher:         cipher,
		folder:         opts.Folder,
		tier:           opts.Tier,
		codec:          opts.Codec,
		codecs:         opts.Codecs,
		compressAlways: opts.CompressAlways,
		dryRun:         opts.DryRun,
		logger:         opts.Logger,
	}
}

func (r *Repository) Store() storage.Backend {
	return r.store
}

func (r *Repository) Cipher() *encryption.Cipher {
	return r.cipher
}

func (r *Repository) Tier() storage.Tier {
	return r.tier
}

func (r *Repository) DryRun() bool {
	return r.dryRun
}

// CopyRequired reports whether shards must be copied to the hot tier
// before they can be downloaded.
func (r *Repository) CopyRequired() bool {
	return r.tier.RequiresCopy()
}

func (r *Repository) Close() error {
	t0 := time.Now()
	defer func() {
		profiler.RecordEvent("repository.Close", time.Since(t0))
	}()
	return r.store.Close()
}

func (r *Repository) encrypt(buffer []byte) ([]byte, error) {
	t0 := time.Now()
	defer func() {
		profiler.RecordEvent("repository.Encrypt", time.Since(t0))
	}()
	return r.cipher.Encrypt(buffer)
}

func (r *Repository) decrypt(key string, buffer []byte) ([]byte, error) {
	t0 := time.Now()
	defer func() {
		profiler.RecordEvent("repository.Decrypt", time.Since(t0))
	}()
	plaintext, ok := r.cipher.TryDecrypt(buffer)
	if !ok {
		return nil, fmt.Errorf("%s: %w", key, ErrDecryptionFailed)
	}
	return plaintext, nil
}

// upload writes an already encoded payload, logging size and throughput.
func (r *Repository) upload(key string, data []byte, tier storage.Tier) error {
	if r.dryRun {
		r.logger.Info("dry-run: skipping upload of %s (%s)", key, humanize.IBytes(uint64(len(data))))
		return nil
	}

	t0 := time.Now()
	if err := r.store.Upload(key, data, tier); err != nil {
		return err
	}
	elapsed := time.Since(t0)
	r.logger.Trace("repository", "upload %s: %s in %s (%s/s)", key, humanize.IBytes(uint64(len(data))), elapsed, throughput(len(data), elapsed))
	return nil
}

func (r *Repository) download(key string) ([]byte, error) {
	t0 := time.Now()
	data, err := r.store.Download(key)
	if err != nil {
		return nil, err
	}
	elapsed := time.Since(t0)
	r.logger.Trace("repository", "download %s: %s in %s (%s/s)", key, humanize.IBytes(uint64(len(data))), elapsed, throughput(len(data), elapsed))
	return data, nil
}

func (r *Repository) delete(key string) (bool, error) {
	if r.dryRun {
		r.logger.Info("dry-run: skipping delete of %s", key)
		return false, nil
	}
	return r.store.DeleteIfExists(key)
}

func throughput(size int, elapsed time.Duration) string {
	if elapsed <= 0 {
		return humanize.IBytes(uint64(size))
	}
	return humanize.IBytes(uint64(float64(size) / elapsed.Seconds()))
}
