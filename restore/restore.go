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

package restore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/PlakarLabs/blobbackup/cache"
	"github.com/PlakarLabs/blobbackup/filesystem"
	"github.com/PlakarLabs/blobbackup/index"
	"github.com/PlakarLabs/blobbackup/logging"
	"github.com/PlakarLabs/blobbackup/objects"
	"github.com/PlakarLabs/blobbackup/profiler"
	"github.com/PlakarLabs/blobbackup/repository"
	"github.com/dustin/go-humanize"
)

var (
	ErrNotEmpty       = errors.New("destination folder is not empty")
	ErrShardTruncated = errors.New("shard shorter than its token")
)

const stagingSuffix = "-chunks-cache"

type Options struct {
	// Prefix restricts the operation to files whose path starts with it.
	Prefix string

	// StagingDir holds downloaded chunks until every file is written.
	// It defaults to the destination followed by "-chunks-cache".
	StagingDir string
}

type Summary struct {
	Files    int
	Shards   int
	Chunks   int
	Bytes    int64
	Duration time.Duration
}

type Engine struct {
	repository *repository.Repository
	index      *index.Index
	logger     *logging.Logger
}

func New(repo *repository.Repository, idx *index.Index, logger *logging.Logger) *Engine {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Engine{
		repository: repo,
		index:      idx,
		logger:     logger,
	}
}

func StagingDir(destination string, opts Options) string {
	if opts.StagingDir != "" {
		return opts.StagingDir
	}
	return filepath.Clean(destination) + stagingSuffix
}

func (engine *Engine) selected(id objects.FileID, opts Options) bool {
	return opts.Prefix == "" || strings.HasPrefix(string(id), opts.Prefix)
}

// wantedChunks lists the chunks of the selected files that are not staged
// yet. A nil staging area means nothing is staged.
func (engine *Engine) wantedChunks(staging *cache.Cache, opts Options) (map[objects.ChunkID]struct{}, error) {
	wanted := make(map[objects.ChunkID]struct{})
	for _, entry := range engine.index.Files() {
		if !engine.selected(entry.ID, opts) {
			continue
		}
		for _, chunkID := range entry.Token.ChunkIDs {
			if _, exists := wanted[chunkID]; exists {
				continue
			}
			if staging != nil {
				staged, err := staging.HasChunk(chunkID)
				if err != nil {
					return nil, err
				}
				if staged {
					continue
				}
			}
			wanted[chunkID] = struct{}{}
		}
	}
	return wanted, nil
}

// Restore rebuilds the backed up tree into an empty destination folder.
func (engine *Engine) Restore(destination string, opts Options) (*Summary, error) {
	t0 := time.Now()
	summary := &Summary{}
	success := false
	defer func() {
		summary.Duration = time.Since(t0)
		profiler.RecordEvent("restore.Restore", summary.Duration)
		if success {
			engine.logger.Printf("restore done in %s", summary.Duration.Round(time.Millisecond))
		} else {
			engine.logger.Printf("restore failed after %s", summary.Duration.Round(time.Millisecond))
		}
	}()

	if err := os.MkdirAll(destination, 0700); err != nil {
		return nil, err
	}
	empty, err := filesystem.IsEmptyDir(destination)
	if err != nil {
		return nil, err
	}
	if !empty {
		return nil, fmt.Errorf("%s: %w", destination, ErrNotEmpty)
	}

	fsys, err := filesystem.New(destination, engine.logger)
	if err != nil {
		return nil, err
	}

	if err := engine.index.Load(); err != nil {
		return nil, err
	}

	staging, err := cache.New(StagingDir(destination, opts))
	if err != nil {
		return nil, err
	}
	defer staging.Close()

	if err := engine.downloadChunks(staging, opts, summary); err != nil {
		return nil, err
	}

	for _, entry := range engine.index.Files() {
		if !engine.selected(entry.ID, opts) {
			continue
		}
		if err := engine.restoreFile(fsys, staging, entry); err != nil {
			return nil, err
		}
		summary.Files++
		summary.Bytes += entry.Token.Length
	}

	if err := staging.Discard(); err != nil {
		return nil, err
	}
	success = true

	engine.logger.Info("%d files restored, %s, %d chunks fetched from %d shards",
		summary.Files, humanize.IBytes(uint64(summary.Bytes)), summary.Chunks, summary.Shards)
	return summary, nil
}

func (engine *Engine) downloadChunks(staging *cache.Cache, opts Options, summary *Summary) error {
	wanted, err := engine.wantedChunks(staging, opts)
	if err != nil {
		return err
	}

	for _, shardID := range engine.index.RelevantShards(wanted) {
		token, _ := engine.index.ShardToken(shardID)
		data, err := engine.repository.DownloadShard(shardID, token.Compression)
		if err != nil {
			return err
		}
		summary.Shards++

		offset := 0
		for _, chunkToken := range token.ChunkTokens {
			end := offset + chunkToken.Length
			if end > len(data) {
				return fmt.Errorf("shard %s: %w", shardID, ErrShardTruncated)
			}
			if _, exists := wanted[chunkToken.ChunkID]; exists {
				if err := staging.PutChunk(chunkToken.ChunkID, data[offset:end]); err != nil {
					return err
				}
				delete(wanted, chunkToken.ChunkID)
				summary.Chunks++
			}
			offset = end
		}
		engine.logger.Trace("restore", "shard %s: %d bytes", shardID, len(data))
	}

	if len(wanted) != 0 {
		return fmt.Errorf("%d chunks are not stored in any shard: %w", len(wanted), repository.ErrCorrupted)
	}
	return nil
}

func (engine *Engine) restoreFile(fsys *filesystem.Filesystem, staging *cache.Cache, entry index.FileEntry) error {
	wr, err := fsys.Create(entry.ID)
	if err != nil {
		return err
	}

	for _, chunkID := range entry.Token.ChunkIDs {
		data, err := staging.GetChunk(chunkID)
		if err != nil {
			wr.Close()
			if errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("%s: chunk %s: %w", entry.ID, chunkID, repository.ErrCorrupted)
			}
			return err
		}
		if _, err := wr.Write(data); err != nil {
			wr.Close()
			return err
		}
	}
	if err := wr.Close(); err != nil {
		return err
	}

	engine.logger.Trace("restore", "%s: %d chunks", entry.ID, len(entry.Token.ChunkIDs))
	return fsys.SetLastWriteTime(entry.ID, entry.Token.LastWriteTime)
}

// CopyShards asks the store to bring every shard needed by a restore into
// the hot tier. It returns immediately; copies complete in the background.
func (engine *Engine) CopyShards(opts Options) (int, error) {
	t0 := time.Now()
	defer func() {
		profiler.RecordEvent("restore.CopyShards", time.Since(t0))
	}()

	if err := engine.index.Load(); err != nil {
		return 0, err
	}

	var staging *cache.Cache
	if opts.StagingDir != "" {
		if _, err := os.Stat(opts.StagingDir); err == nil {
			staging, err = cache.New(opts.StagingDir)
			if err != nil {
				return 0, err
			}
			defer staging.Close()
		}
	}

	wanted, err := engine.wantedChunks(staging, opts)
	if err != nil {
		return 0, err
	}

	shards := engine.index.RelevantShards(wanted)
	for _, shardID := range shards {
		if err := engine.repository.CopyShard(shardID); err != nil {
			return 0, err
		}
	}
	engine.logger.Info("%d shards requested in the hot tier", len(shards))
	return len(shards), nil
}
