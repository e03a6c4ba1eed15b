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

package ls

import (
	"encoding/json"
	"flag"
	"strings"
	"time"

	"github.com/PlakarLabs/blobbackup/cmd/blobbackup/subcommands"
	"github.com/PlakarLabs/blobbackup/context"
	"github.com/PlakarLabs/blobbackup/objects"
	"github.com/dustin/go-humanize"
)

type fileEntry struct {
	Path          objects.FileID    `json:"path"`
	Length        int64             `json:"length"`
	LastWriteTime time.Time         `json:"last_write_time"`
	Chunks        []objects.ChunkID `json:"chunks"`
}

func init() {
	subcommands.Register("ls", cmd_ls)
}

func cmd_ls(rt *subcommands.Runtime, args []string) int {
	var opt_prefix string
	var opt_stats bool
	var opt_json bool

	flags := flag.NewFlagSet("ls", flag.ExitOnError)
	flags.StringVar(&opt_prefix, "prefix", "", "only list files whose path starts with prefix")
	flags.BoolVar(&opt_stats, "stats", false, "display index statistics")
	flags.BoolVar(&opt_json, "json", false, "display one JSON object per file")
	flags.Parse(args)

	logger := rt.Logger
	ctx, err := rt.OpenContext(context.Options{})
	if err != nil {
		logger.Error("%s", err)
		return 1
	}
	defer ctx.Close()

	idx := ctx.Index()
	if err := idx.Load(); err != nil {
		logger.Error("%s", err)
		return 1
	}

	for _, entry := range idx.Files() {
		if !strings.HasPrefix(string(entry.ID), opt_prefix) {
			continue
		}
		if opt_json {
			serialized, err := json.Marshal(fileEntry{
				Path:          entry.ID,
				Length:        entry.Token.Length,
				LastWriteTime: entry.Token.LastWriteTime.UTC(),
				Chunks:        entry.Token.ChunkIDs,
			})
			if err != nil {
				logger.Error("%s", err)
				return 1
			}
			logger.Stdout("%s", serialized)
			continue
		}
		logger.Stdout("%s %8s %3d %s",
			entry.Token.LastWriteTime.UTC().Format(time.RFC3339),
			humanize.IBytes(uint64(entry.Token.Length)),
			len(entry.Token.ChunkIDs),
			entry.ID)
	}

	if opt_stats {
		stats := idx.Stats()
		logger.Printf("%d files, %d shards, %d chunks, %s stored",
			stats.Files, stats.Shards, stats.Chunks, humanize.IBytes(uint64(stats.Bytes)))
	}
	return 0
}
