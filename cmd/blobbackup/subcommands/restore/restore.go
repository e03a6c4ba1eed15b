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
	"flag"

	"github.com/PlakarLabs/blobbackup/cmd/blobbackup/subcommands"
	"github.com/PlakarLabs/blobbackup/context"
	"github.com/PlakarLabs/blobbackup/restore"
	"github.com/dustin/go-humanize"
)

func init() {
	subcommands.Register("restore", cmd_restore)
}

func cmd_restore(rt *subcommands.Runtime, args []string) int {
	var opt_prefix string
	var opt_staging string

	flags := flag.NewFlagSet("restore", flag.ExitOnError)
	flags.StringVar(&opt_prefix, "prefix", "", "only restore files whose path starts with prefix")
	flags.StringVar(&opt_staging, "staging", rt.Config.StagingDir, "directory holding downloaded chunks")
	flags.Parse(args)

	logger := rt.Logger
	if flags.NArg() != 1 {
		logger.Error("%s: a single destination folder is required", flags.Name())
		return 1
	}

	ctx, err := rt.OpenContext(context.Options{})
	if err != nil {
		logger.Error("%s", err)
		return 1
	}
	defer ctx.Close()

	engine := restore.New(ctx.Repository(), ctx.Index(), logger)
	summary, err := engine.Restore(flags.Arg(0), restore.Options{
		Prefix:     opt_prefix,
		StagingDir: opt_staging,
	})
	if err != nil {
		logger.Error("%s", err)
		return 1
	}

	logger.Printf("%d files (%s) restored from %d shards in %s",
		summary.Files, humanize.IBytes(uint64(summary.Bytes)), summary.Shards, summary.Duration)
	return 0
}
