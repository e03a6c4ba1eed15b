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

package objects

import (
	"fmt"
	"time"

	"github.com/PlakarLabs/blobbackup/compression"
	"github.com/vmihailenco/msgpack/v5"
)

type ChunkToken struct {
	ChunkID ChunkID `msgpack:"chunkID"`
	Length  int     `msgpack:"length"`
}

// ShardToken describes the content of a shard: chunks are stored back to
// back in ChunkTokens order.
type ShardToken struct {
	ChunkTokens []ChunkToken    `msgpack:"chunkTokens"`
	Compression compression.Tag `msgpack:"compression"`
}

func NewShardTokenFromBytes(serialized []byte) (*ShardToken, error) {
	var token ShardToken
	if err := msgpack.Unmarshal(serialized, &token); err != nil {
		return nil, err
	}
	if token.ChunkTokens == nil {
		token.ChunkTokens = make([]ChunkToken, 0)
	}
	return &token, nil
}

func (s *ShardToken) Serialize() ([]byte, error) {
	return msgpack.Marshal(s)
}

func (s *ShardToken) Size() int {
	size := 0
	for _, chunkToken := range s.ChunkTokens {
		size += chunkToken.Length
	}
	return size
}

func (s *ShardToken) Equal(other *ShardToken) bool {
	if s.Compression != other.Compression || len(s.ChunkTokens) != len(other.ChunkTokens) {
		return false
	}
	for i := range s.ChunkTokens {
		if s.ChunkTokens[i] != other.ChunkTokens[i] {
			return false
		}
	}
	return true
}

type FileToken struct {
	Length        int64     `msgpack:"length"`
	LastWriteTime time.Time `msgpack:"lastWriteTime"`
	ChunkIDs      []ChunkID `msgpack:"chunkIDs"`
}

// Equal compares length, modification time and chunk list.
func (f *FileToken) Equal(other *FileToken) bool {
	if f.Length != other.Length || !f.LastWriteTime.Equal(other.LastWriteTime) {
		return false
	}
	if len(f.ChunkIDs) != len(other.ChunkIDs) {
		return false
	}
	for i := range f.ChunkIDs {
		if f.ChunkIDs[i] != other.ChunkIDs[i] {
			return false
		}
	}
	return true
}

// Unchanged reports whether a file with the given length and mtime can be
// skipped.
func (f *FileToken) Unchanged(length int64, lastWriteTime time.Time) bool {
	return f.Length == length && f.LastWriteTime.Equal(lastWriteTime)
}

// IndexData is the persisted form of the index: two pairs of parallel
// arrays.
type IndexData struct {
	FileIDs     []FileID     `msgpack:"fileIDs"`
	FileTokens  []FileToken  `msgpack:"fileTokens"`
	ShardIDs    []ShardID    `msgpack:"shardIDs"`
	ShardTokens []ShardToken `msgpack:"shardTokens"`
}

func NewIndexDataFromBytes(serialized []byte) (*IndexData, error) {
	var data IndexData
	if err := msgpack.Unmarshal(serialized, &data); err != nil {
		return nil, err
	}
	if len(data.FileIDs) != len(data.FileTokens) {
		return nil, fmt.Errorf("index has %d file ids but %d file tokens", len(data.FileIDs), len(data.FileTokens))
	}
	if len(data.ShardIDs) != len(data.ShardTokens) {
		return nil, fmt.Errorf("index has %d shard ids but %d shard tokens", len(data.ShardIDs), len(data.ShardTokens))
	}
	return &data, nil
}

func (d *IndexData) Serialize() ([]byte, error) {
	return msgpack.Marshal(d)
}
