package objects

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/PlakarLabs/blobbackup/compression"
)

func TestFileIDCaseInsensitive(t *testing.T) {
	a := NewFileID("Docs/Report.TXT")
	b := NewFileID("docs/report.txt")
	if !a.Equal(b) {
		t.Fatalf("expected %q and %q to be equal", a, b)
	}
	if a.Key() != b.Key() {
		t.Fatalf("expected same key, got %q and %q", a.Key(), b.Key())
	}
	if a.String() != "Docs/Report.TXT" {
		t.Errorf("expected original case to be preserved, got %q", a.String())
	}
}

func TestNewFileIDSeparators(t *testing.T) {
	if got := NewFileID(`a\b\c.txt`); got != "a/b/c.txt" {
		t.Errorf("expected forward slashes, got %q", got)
	}
}

func TestShardIDRoundtrip(t *testing.T) {
	id, err := NewShardID()
	if err != nil {
		t.Fatalf("NewShardID: %v", err)
	}
	parsed, err := ParseShardID(id.String())
	if err != nil {
		t.Fatalf("ParseShardID: %v", err)
	}
	if parsed != id {
		t.Errorf("expected %s, got %s", id, parsed)
	}

	other, _ := NewShardID()
	if other == id {
		t.Errorf("expected two random shard ids to differ")
	}
}

func TestParseShardIDInvalid(t *testing.T) {
	for _, input := range []string{"", "zz", "0011", "00112233445566778899aabbccddeeff00"} {
		if _, err := ParseShardID(input); err == nil {
			t.Errorf("expected error for %q", input)
		}
	}
}

func TestFileTokenEqual(t *testing.T) {
	now := time.Now().UTC()
	a := &FileToken{Length: 3, LastWriteTime: now, ChunkIDs: []ChunkID{{1}, {2}}}
	b := &FileToken{Length: 3, LastWriteTime: now, ChunkIDs: []ChunkID{{1}, {2}}}
	if !a.Equal(b) {
		t.Fatalf("expected tokens to be equal")
	}

	c := &FileToken{Length: 3, LastWriteTime: now, ChunkIDs: []ChunkID{{2}, {1}}}
	if a.Equal(c) {
		t.Errorf("expected tokens with reordered chunks to differ")
	}

	d := &FileToken{Length: 3, LastWriteTime: now.Add(time.Second), ChunkIDs: a.ChunkIDs}
	if a.Equal(d) {
		t.Errorf("expected tokens with different mtime to differ")
	}
	if !a.Unchanged(3, now) || a.Unchanged(4, now) {
		t.Errorf("unexpected Unchanged result")
	}
}

func TestIndexDataSerialization(t *testing.T) {
	data := &IndexData{
		FileIDs:    []FileID{"a.txt"},
		FileTokens: []FileToken{{Length: 1, LastWriteTime: time.Unix(1700000000, 0).UTC(), ChunkIDs: []ChunkID{{9}}}},
		ShardIDs:   []ShardID{{7}},
		ShardTokens: []ShardToken{{
			ChunkTokens: []ChunkToken{{ChunkID: ChunkID{9}, Length: 1}},
			Compression: compression.Gzip,
		}},
	}

	serialized, err := data.Serialize()
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	decoded, err := NewIndexDataFromBytes(serialized)
	if err != nil {
		t.Fatalf("NewIndexDataFromBytes: %v", err)
	}
	if len(decoded.FileIDs) != 1 || decoded.FileIDs[0] != "a.txt" {
		t.Fatalf("unexpected file ids %v", decoded.FileIDs)
	}
	if !decoded.FileTokens[0].Equal(&data.FileTokens[0]) {
		t.Errorf("file token mismatch")
	}
	if !decoded.ShardTokens[0].Equal(&data.ShardTokens[0]) {
		t.Errorf("shard token mismatch")
	}
}

func TestIndexDataMismatchedLengths(t *testing.T) {
	data := &IndexData{FileIDs: []FileID{"a", "b"}, FileTokens: []FileToken{{}}}
	serialized, err := data.Serialize()
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if _, err := NewIndexDataFromBytes(serialized); err == nil {
		t.Fatalf("expected error on mismatched lengths")
	}
}

func TestChunkIDJSON(t *testing.T) {
	serialized, err := json.Marshal([]ChunkID{{0xde, 0xad}})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(serialized) != `["dead0000000000000000000000000000"]` {
		t.Errorf("unexpected encoding %s", serialized)
	}
}
