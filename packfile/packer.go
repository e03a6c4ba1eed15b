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

package packfile

import (
	"time"

	"github.com/PlakarLabs/blobbackup/compression"
	"github.com/PlakarLabs/blobbackup/logging"
	"github.com/PlakarLabs/blobbackup/objects"
	"github.com/PlakarLabs/blobbackup/profiler"
	"github.com/dustin/go-humanize"
)

type Index interface {
	ContainsChunk(id objects.ChunkID) bool
	AddShardToken(id objects.ShardID, token *objects.ShardToken) error
}

type Uploader interface {
	UploadShard(id objects.ShardID, data []byte) (compression.Tag, error)
}

// Packer groups chunks into shards of about shardSize bytes.
type Packer struct {
	index     Index
	uploader  Uploader
	shardSize int
	logger    *logging.Logger

	current *PackFile

	ShardsShipped int
	BytesShipped  int64
}

func NewPacker(index Index, uploader Uploader, shardSize int, logger *logging.Logger) *Packer {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Packer{
		index:     index,
		uploader:  uploader,
		shardSize: shardSize,
		logger:    logger,
		current:   New(),
	}
}

func (p *Packer) ShardSize() int {
	return p.shardSize
}

func (p *Packer) Pending() int {
	return p.current.Size()
}

func (p *Packer) BackupChunk(chunk objects.Chunk) error {
	if p.index.ContainsChunk(chunk.ID) || p.current.Contains(chunk.ID) {
		p.logger.Trace("packer", "chunk %s already stored", chunk.ID)
		return nil
	}

	if len(chunk.Data) == p.shardSize {
		single := New()
		single.AddChunk(chunk)
		return p.ship(single)
	}

	p.current.AddChunk(chunk)
	if p.current.Size() >= p.shardSize {
		return p.Flush()
	}
	return nil
}

// Flush ships the buffered chunks, if any, as one shard.
func (p *Packer) Flush() error {
	if p.current.Len() == 0 {
		return nil
	}
	if err := p.ship(p.current); err != nil {
		return err
	}
	p.current = New()
	return nil
}

func (p *Packer) ship(pack *PackFile) error {
	t0 := time.Now()
	defer func() {
		profiler.RecordEvent("packer.Ship", time.Since(t0))
	}()

	id, err := objects.NewShardID()
	if err != nil {
		return err
	}

	tag, err := p.uploader.UploadShard(id, pack.Bytes())
	if err != nil {
		return err
	}

	token := pack.Token()
	token.Compression = tag
	if err := p.index.AddShardToken(id, token); err != nil {
		return err
	}

	p.ShardsShipped++
	p.BytesShipped += int64(pack.Size())
	p.logger.Info("shipped shard %s: %d chunks, %s", id, pack.Len(), humanize.IBytes(uint64(pack.Size())))
	return nil
}
