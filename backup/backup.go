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

package backup

import (
	"io"
	"time"

	"github.com/PlakarLabs/blobbackup/filesystem"
	"github.com/PlakarLabs/blobbackup/hashing"
	"github.com/PlakarLabs/blobbackup/index"
	"github.com/PlakarLabs/blobbackup/logging"
	"github.com/PlakarLabs/blobbackup/objects"
	"github.com/PlakarLabs/blobbackup/packfile"
	"github.com/PlakarLabs/blobbackup/profiler"
	"github.com/dustin/go-humanize"
)

type Summary struct {
	Files    int
	Hidden   int
	Skipped  int
	Changed  int
	Removed  int
	Shards   int
	Bytes    int64
	Duration time.Duration
}

// Engine walks a folder and brings the remote index up to date with it.
type Engine struct {
	index  *index.Index
	packer *packfile.Packer
	ider   *hashing.ChunkIDer
	logger *logging.Logger
}

func New(idx *index.Index, packer *packfile.Packer, ider *hashing.ChunkIDer, logger *logging.Logger) *Engine {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Engine{
		index:  idx,
		packer: packer,
		ider:   ider,
		logger: logger,
	}
}

func (engine *Engine) Run(fsys *filesystem.Filesystem) (*Summary, error) {
	t0 := time.Now()
	summary := &Summary{}
	success := false
	defer func() {
		summary.Duration = time.Since(t0)
		profiler.RecordEvent("backup.Run", summary.Duration)
		if success {
			engine.logger.Printf("backup done in %s", summary.Duration.Round(time.Millisecond))
		} else {
			engine.logger.Printf("backup failed after %s", summary.Duration.Round(time.Millisecond))
		}
	}()

	if err := engine.index.Load(); err != nil {
		return nil, err
	}

	t1 := time.Now()
	files, err := fsys.Scan()
	if err != nil {
		return nil, err
	}
	engine.logger.Info("listing %d files took %s", len(files), time.Since(t1).Round(time.Millisecond))

	found := make([]objects.FileID, 0, len(files))
	for _, file := range files {
		found = append(found, file.ID)
		summary.Files++

		if file.Hidden {
			summary.Hidden++
			continue
		}
		if token, exists := engine.index.FileToken(file.ID); exists && token.Unchanged(file.Length, file.LastWriteTime) {
			summary.Skipped++
			continue
		}
		if err := engine.backupFile(fsys, file); err != nil {
			return nil, err
		}
		summary.Changed++
	}

	if err := engine.packer.Flush(); err != nil {
		return nil, err
	}

	before := engine.index.Stats().Files
	engine.index.RemoveFileTokens(found)
	summary.Removed = before - engine.index.Stats().Files
	summary.Shards = engine.packer.ShardsShipped
	summary.Bytes = engine.packer.BytesShipped

	if err := engine.index.Save(); err != nil {
		return nil, err
	}
	success = true

	engine.logger.Info("%d files: %d hidden, %d unchanged, %d backed up, %d removed",
		summary.Files, summary.Hidden, summary.Skipped, summary.Changed, summary.Removed)
	engine.logger.Info("%d shards shipped, %s", summary.Shards, humanize.IBytes(uint64(summary.Bytes)))
	return summary, nil
}

// backupFile reads the file in windows of at most one shard. A read that
// returns less than a full window, or nothing after at least one byte,
// ends the file. An empty file gets a single empty chunk.
func (engine *Engine) backupFile(fsys *filesystem.Filesystem, file filesystem.FileInfo) error {
	t0 := time.Now()
	defer func() {
		profiler.RecordEvent("backup.File", time.Since(t0))
	}()

	rd, err := fsys.Open(file.ID)
	if err != nil {
		return err
	}
	defer rd.Close()

	buffer := make([]byte, min(int64(engine.packer.ShardSize()), file.Length))
	chunkIDs := make([]objects.ChunkID, 0)
	total := int64(0)
	newFile := false

	for {
		n, err := io.ReadFull(rd, buffer)
		if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
			return err
		}
		if total > 0 && n == 0 {
			break
		}

		data := make([]byte, n)
		copy(data, buffer[:n])
		chunkID := engine.ider.ChunkID(data)

		if !newFile && !engine.index.ContainsChunk(chunkID) {
			newFile = true
			engine.logger.Info("new file %s", file.ID)
		}
		if err := engine.packer.BackupChunk(objects.Chunk{ID: chunkID, Data: data}); err != nil {
			return err
		}
		chunkIDs = append(chunkIDs, chunkID)
		total += int64(n)

		if n < len(buffer) || n == 0 {
			break
		}
	}

	if !newFile {
		if _, exists := engine.index.FileToken(file.ID); !exists {
			engine.logger.Info("new copy %s", file.ID)
		}
	}

	engine.index.AddOrReplaceFileToken(file.ID, &objects.FileToken{
		Length:        total,
		LastWriteTime: file.LastWriteTime,
		ChunkIDs:      chunkIDs,
	})
	return nil
}
