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
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

const (
	ShardIDBytes = 16
	ChunkIDBytes = 16
)

// FileID is the path of a file relative to the backed up folder, using
// forward slashes. Two FileIDs differing only by case designate the same
// file.
type FileID string

func NewFileID(relpath string) FileID {
	return FileID(strings.ReplaceAll(relpath, "\\", "/"))
}

// Key returns the case-folded form used for map lookups.
func (f FileID) Key() string {
	return strings.ToLower(string(f))
}

func (f FileID) Equal(other FileID) bool {
	return f.Key() == other.Key()
}

func (f FileID) String() string {
	return string(f)
}

type ChunkID [ChunkIDBytes]byte

func (c ChunkID) String() string {
	return hex.EncodeToString(c[:])
}

func (c ChunkID) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

type ShardID [ShardIDBytes]byte

func NewShardID() (ShardID, error) {
	var id ShardID
	if _, err := rand.Read(id[:]); err != nil {
		return id, err
	}
	return id, nil
}

func ParseShardID(s string) (ShardID, error) {
	var id ShardID
	decoded, err := hex.DecodeString(s)
	if err != nil {
		return id, err
	}
	if len(decoded) != ShardIDBytes {
		return id, fmt.Errorf("invalid shard id length %d", len(decoded))
	}
	copy(id[:], decoded)
	return id, nil
}

func (s ShardID) String() string {
	return hex.EncodeToString(s[:])
}

// Chunk is a window of file content awaiting packing.
type Chunk struct {
	ID   ChunkID
	Data []byte
}
