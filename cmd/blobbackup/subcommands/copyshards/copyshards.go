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

package copyshards

import (
	"flag"

	"github.com/PlakarLabs/blobbackup/cmd/blobbackup/subcommands"
	"github.com/PlakarLabs/blobbackup/context"
	"github.com/PlakarLabs/blobbackup/restore"
)

func init() {
	subcommands.Register("copy-shards", cmd_copyshards)
}

func cmd_copyshards(rt *subcommands.Runtime, args []string) int {
	var opt_prefix string
	var opt_staging string

	flags := flag.NewFlagSet("copy-shards", flag.ExitOnError)
	flags.StringVar(&opt_prefix, "prefix", "", "only copy shards of files whose path starts with prefix")
	flags.StringVar(&opt_staging, "staging", rt.Config.StagingDir, "skip chunks already present in this staging directory")
	flags.Parse(args)

	logger := rt.Logger
	if flags.NArg() != 0 {
		logger.Error("%s: no parameter expected", flags.Name())
		return 1
	}

	ctx, err := rt.OpenContext(context.Options{})
	if err != nil {
		logger.Error("%s", err)
		return 1
	}
	defer ctx.Close()

	if !ctx.Repository().CopyRequired() {
		logger.Printf("access tier %s does not require copies", ctx.Repository().Tier())
		return 0
	}

	engine := restore.New(ctx.Repository(), ctx.Index(), logger)
	count, err := engine.CopyShards(restore.Options{
		Prefix:     opt_prefix,
		StagingDir: opt_staging,
	})
	if err != nil {
		logger.Error("%s", err)
		return 1
	}
	logger.Printf("%d shards requested, run restore once the copies complete", count)
	return 0
}
