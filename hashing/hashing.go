package hashing

import (
	"crypto/sha256"
	"fmt"
	"hash"

	"github.com/PlakarLabs/blobbackup/objects"
	"github.com/zeebo/blake3"
)

func DefaultAlgorithm() string {
	return "sha256"
}

func GetHasher(name string) hash.Hash {
	switch name {
	case "sha256":
		return sha256.New()
	case "blake3":
		return blake3.New()
	default:
		return nil
	}
}

// ChunkIDer derives chunk identifiers by truncating a content hash.
type ChunkIDer struct {
	algorithm string
}

func NewChunkIDer(algorithm string) (*ChunkIDer, error) {
	if algorithm == "" {
		algorithm = DefaultAlgorithm()
	}
	if GetHasher(algorithm) == nil {
		return nil, fmt.Errorf("unsupported hashing algorithm %q", algorithm)
	}
	return &ChunkIDer{algorithm: algorithm}, nil
}

func (c *ChunkIDer) Algorithm() string {
	return c.algorithm
}

func (c *ChunkIDer) ChunkID(data []byte) objects.ChunkID {
	hasher := GetHasher(c.algorithm)
	hasher.Write(data)

	var id objects.ChunkID
	copy(id[:], hasher.Sum(nil))
	return id
}
