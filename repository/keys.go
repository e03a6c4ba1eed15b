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
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/PlakarLabs/blobbackup/objects"
)

const (
	indexName         = "index"
	indexBackupsDir   = "index-backups"
	mainCipherKeyName = "main-cipher-key"
	shardsChangedName = "shards-changed"
	shardsDir         = "shards"
	hotShardsDir      = "hot-shards"
	shardTokensDir    = "shard-tokens"
)

func (r *Repository) key(elems ...string) string {
	if r.folder == "" {
		return path.Join(elems...)
	}
	return path.Join(append([]string{r.folder}, elems...)...)
}

func (r *Repository) IndexKey() string {
	return r.key(indexName)
}

func (r *Repository) IndexBackupKey(t time.Time) string {
	return r.key(indexBackupsDir, strconv.FormatInt(t.UnixNano(), 10))
}

func (r *Repository) MainCipherKeyKey() string {
	return r.key(mainCipherKeyName)
}

func (r *Repository) ShardsChangedKey() string {
	return r.key(shardsChangedName)
}

func (r *Repository) ShardKey(id objects.ShardID) string {
	return r.key(shardsDir, id.String())
}

func (r *Repository) HotShardKey(id objects.ShardID) string {
	return r.key(hotShardsDir, id.String())
}

func (r *Repository) ShardTokenKey(id objects.ShardID) string {
	return r.key(shardTokensDir, id.String())
}

func (r *Repository) shardTokensPrefix() string {
	return r.key(shardTokensDir) + "/"
}

// parseShardTokenKey extracts the shard id from a listed shard token key.
func (r *Repository) parseShardTokenKey(key string) (objects.ShardID, error) {
	return objects.ParseShardID(strings.TrimPrefix(key, r.shardTokensPrefix()))
}
