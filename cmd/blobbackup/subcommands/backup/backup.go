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
	"bufio"
	"flag"
	"os"

	"github.com/PlakarLabs/blobbackup/backup"
	"github.com/PlakarLabs/blobbackup/cmd/blobbackup/subcommands"
	"github.com/PlakarLabs/blobbackup/context"
	"github.com/PlakarLabs/blobbackup/filesystem"
	"github.com/dustin/go-humanize"
)

func init() {
	subcommands.Register("backup", cmd_backup)
}

func cmd_backup(rt *subcommands.Runtime, args []string) int {
	var opt_resetIndex bool
	var opt_dryRun bool
	var opt_excludes string

	flags := flag.NewFlagSet("backup", flag.ExitOnError)
	flags.BoolVar(&opt_resetIndex, "reset-index", false, "rebuild the index from shard tokens before backing up")
	flags.BoolVar(&opt_dryRun, "dry-run", false, "do not write anything to the store")
	flags.StringVar(&opt_excludes, "excludes", "", "file containing a list of exclusions")
	flags.Parse(args)

	logger := rt.Logger
	if flags.NArg() != 1 {
		logger.Error("%s: a single folder is required", flags.Name())
		return 1
	}

	fsys, err := filesystem.New(flags.Arg(0), logger)
	if err != nil {
		logger.Error("%s", err)
		return 1
	}

	if opt_excludes != "" {
		fp, err := os.Open(opt_excludes)
		if err != nil {
			logger.Error("%s", err)
			return 1
		}
		defer fp.Close()

		scanner := bufio.NewScanner(fp)
		for scanner.Scan() {
			if err := fsys.AddExcludes(scanner.Text()); err != nil {
				logger.Error("%s", err)
				return 1
			}
		}
		if err := scanner.Err(); err != nil {
			logger.Error("%s", err)
			return 1
		}
	}

	if opt_dryRun {
		rt.Config.DryRun = true
	}

	ctx, err := rt.OpenContext(context.Options{ForceReset: opt_resetIndex})
	if err != nil {
		logger.Error("%s", err)
		return 1
	}
	defer ctx.Close()

	engine := backup.New(ctx.Index(), ctx.Packer(), ctx.ChunkIDer(), logger)
	summary, err := engine.Run(fsys)
	if err != nil {
		logger.Error("%s", err)
		return 1
	}

	logger.Printf("%d files scanned, %d backed up, %d removed, %d shards (%s) shipped in %s",
		summary.Files, summary.Changed, summary.Removed, summary.Shards,
		humanize.IBytes(uint64(summary.Bytes)), summary.Duration)
	return 0
}
