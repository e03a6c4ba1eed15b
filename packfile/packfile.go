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
	"github.com/PlakarLabs/blobbackup/objects"
)

// PackFile buffers chunks until they are shipped as one shard. Chunks
// keep their insertion order, which defines their offsets in the shard.
type PackFile struct {
	Chunks []objects.Chunk
	Index  map[objects.ChunkID]int
	size   int
}

func New() *PackFile {
	return &PackFile{
		Chunks: make([]objects.Chunk, 0),
		Index:  make(map[objects.ChunkID]int),
	}
}

// AddChunk appends a chunk unless one with the same id is already
// buffered.
func (p *PackFile) AddChunk(chunk objects.Chunk) bool {
	if _, exists := p.Index[chunk.ID]; exists {
		return false
	}
	p.Index[chunk.ID] = len(p.Chunks)
	p.Chunks = append(p.Chunks, chunk)
	p.size += len(chunk.Data)
	return true
}

func (p *PackFile) Contains(id objects.ChunkID) bool {
	_, exists := p.Index[id]
	return exists
}

func (p *PackFile) Size() int {
	return p.size
}

func (p *PackFile) Len() int {
	return len(p.Chunks)
}

// Bytes returns the concatenated chunk payloads.
func (p *PackFile) Bytes() []byte {
	buf := make([]byte, 0, p.size)
	for _, chunk := range p.Chunks {
		buf = append(buf, chunk.Data...)
	}
	return buf
}

func (p *PackFile) Token() *objects.ShardToken {
	token := &objects.ShardToken{
		ChunkTokens: make([]objects.ChunkToken, 0, len(p.Chunks)),
	}
	for _, chunk := range p.Chunks {
		token.ChunkTokens = append(token.ChunkTokens, objects.ChunkToken{
			ChunkID: chunk.ID,
			Length:  len(chunk.Data),
		})
	}
	return token
}
