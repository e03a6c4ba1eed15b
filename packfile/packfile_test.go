package packfile

import (
	"bytes"
	"errors"
	"testing"

	"github.com/PlakarLabs/blobbackup/compression"
	"github.com/PlakarLabs/blobbackup/objects"
)

type fakeIndex struct {
	chunks map[objects.ChunkID]struct{}
	shards map[objects.ShardID]*objects.ShardToken
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{
		chunks: make(map[objects.ChunkID]struct{}),
		shards: make(map[objects.ShardID]*objects.ShardToken),
	}
}

func (f *fakeIndex) ContainsChunk(id objects.ChunkID) bool {
	_, exists := f.chunks[id]
	return exists
}

func (f *fakeIndex) AddShardToken(id objects.ShardID, token *objects.ShardToken) error {
	f.shards[id] = token
	for _, chunkToken := range token.ChunkTokens {
		f.chunks[chunkToken.ChunkID] = struct{}{}
	}
	return nil
}

type fakeUploader struct {
	shards map[objects.ShardID][]byte
	err    error
}

func newFakeUploader() *fakeUploader {
	return &fakeUploader{shards: make(map[objects.ShardID][]byte)}
}

func (f *fakeUploader) UploadShard(id objects.ShardID, data []byte) (compression.Tag, error) {
	if f.err != nil {
		return compression.None, f.err
	}
	f.shards[id] = data
	return compression.Gzip, nil
}

func chunk(id byte, size int) objects.Chunk {
	return objects.Chunk{ID: objects.ChunkID{id}, Data: bytes.Repeat([]byte{id}, size)}
}

func TestPackFile(t *testing.T) {
	p := New()

	chunk1 := chunk(1, 22)
	chunk2 := chunk(2, 10)

	if !p.AddChunk(chunk1) || !p.AddChunk(chunk2) {
		t.Fatalf("expected chunks to be added")
	}
	if p.AddChunk(chunk1) {
		t.Fatalf("expected duplicate chunk to be ignored")
	}
	if p.Size() != 32 || p.Len() != 2 {
		t.Fatalf("Expected size 32 and 2 chunks, got %d and %d", p.Size(), p.Len())
	}

	expected := append(append([]byte{}, chunk1.Data...), chunk2.Data...)
	if !bytes.Equal(p.Bytes(), expected) {
		t.Errorf("unexpected concatenation")
	}

	token := p.Token()
	if len(token.ChunkTokens) != 2 || token.ChunkTokens[0].ChunkID != chunk1.ID || token.ChunkTokens[1].Length != 10 {
		t.Errorf("unexpected token %+v", token)
	}
}

func TestPackerFlushesAtThreshold(t *testing.T) {
	index := newFakeIndex()
	uploader := newFakeUploader()
	packer := NewPacker(index, uploader, 100, nil)

	if err := packer.BackupChunk(chunk(1, 40)); err != nil {
		t.Fatalf("BackupChunk: %v", err)
	}
	if err := packer.BackupChunk(chunk(2, 40)); err != nil {
		t.Fatalf("BackupChunk: %v", err)
	}
	if len(uploader.shards) != 0 {
		t.Fatalf("expected no shard below the threshold")
	}
	if err := packer.BackupChunk(chunk(3, 40)); err != nil {
		t.Fatalf("BackupChunk: %v", err)
	}
	if len(uploader.shards) != 1 || packer.Pending() != 0 {
		t.Fatalf("expected one shard once the threshold is reached")
	}

	for id, token := range index.shards {
		if token.Compression != compression.Gzip {
			t.Errorf("expected the codec reported by the uploader, got %s", token.Compression)
		}
		if len(token.ChunkTokens) != 3 {
			t.Fatalf("expected 3 chunks, got %d", len(token.ChunkTokens))
		}
		data := uploader.shards[id]
		offset := 0
		for i, chunkToken := range token.ChunkTokens {
			if chunkToken.ChunkID != (objects.ChunkID{byte(i + 1)}) {
				t.Errorf("chunk %d out of order", i)
			}
			if data[offset] != byte(i+1) {
				t.Errorf("chunk %d not at offset %d", i, offset)
			}
			offset += chunkToken.Length
		}
		if offset != len(data) {
			t.Errorf("token lengths do not cover the shard")
		}
	}
}

func TestPackerSkipsKnownChunks(t *testing.T) {
	index := newFakeIndex()
	index.chunks[objects.ChunkID{1}] = struct{}{}
	uploader := newFakeUploader()
	packer := NewPacker(index, uploader, 100, nil)

	_ = packer.BackupChunk(chunk(1, 10))
	_ = packer.BackupChunk(chunk(2, 10))
	_ = packer.BackupChunk(chunk(2, 10))
	if packer.Pending() != 10 {
		t.Fatalf("expected only the new chunk to be buffered once, got %d bytes", packer.Pending())
	}
}

func TestPackerShipsFullSizeChunkAlone(t *testing.T) {
	index := newFakeIndex()
	uploader := newFakeUploader()
	packer := NewPacker(index, uploader, 64, nil)

	_ = packer.BackupChunk(chunk(1, 10))
	if err := packer.BackupChunk(chunk(2, 64)); err != nil {
		t.Fatalf("BackupChunk: %v", err)
	}
	if len(uploader.shards) != 1 {
		t.Fatalf("expected the full-size chunk to be shipped alone")
	}
	if packer.Pending() != 10 {
		t.Errorf("expected the small chunk to stay buffered, got %d bytes", packer.Pending())
	}
	if err := packer.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if len(uploader.shards) != 2 || packer.ShardsShipped != 2 || packer.BytesShipped != 74 {
		t.Errorf("unexpected counters: %d shards, %d bytes", packer.ShardsShipped, packer.BytesShipped)
	}
}

func TestPackerFlushEmpty(t *testing.T) {
	uploader := newFakeUploader()
	packer := NewPacker(newFakeIndex(), uploader, 64, nil)
	if err := packer.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if len(uploader.shards) != 0 {
		t.Errorf("expected no shard for an empty buffer")
	}
}

func TestPackerUploadError(t *testing.T) {
	index := newFakeIndex()
	uploader := newFakeUploader()
	uploader.err = errors.New("network down")
	packer := NewPacker(index, uploader, 16, nil)

	if err := packer.BackupChunk(chunk(1, 16)); !errors.Is(err, uploader.err) {
		t.Fatalf("expected upload error, got %v", err)
	}
	if len(index.shards) != 0 {
		t.Errorf("expected no shard token after a failed upload")
	}
}
