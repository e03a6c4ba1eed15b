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

package index

import (
	"bytes"
	"sort"
	"time"

	"github.com/PlakarLabs/blobbackup/logging"
	"github.com/PlakarLabs/blobbackup/objects"
	"github.com/PlakarLabs/blobbackup/profiler"
)

// Repository is the subset of the blob protocol the index relies on.
type Repository interface {
	MarkerStore
	IndexExists() (bool, error)
	DownloadIndex() (*objects.IndexData, error)
	UploadIndex(data *objects.IndexData) error
	UploadShardToken(id objects.ShardID, token *objects.ShardToken) error
	DownloadShardTokens() (map[objects.ShardID]*objects.ShardToken, error)
}

type Options struct {
	ForceReset bool
	Logger     *logging.Logger
}

type FileEntry struct {
	ID    objects.FileID
	Token *objects.FileToken
}

type Index struct {
	repository Repository
	monitor    *Monitor
	forceReset bool
	logger     *logging.Logger

	files  map[string]FileEntry
	shards map[objects.ShardID]*objects.ShardToken
	chunks map[objects.ChunkID]struct{}
	dirty  bool
}

func New(repository Repository, monitor *Monitor, opts Options) *Index {
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	return &Index{
		repository: repository,
		monitor:    monitor,
		forceReset: opts.ForceReset,
		logger:     opts.Logger,
		files:      make(map[string]FileEntry),
		shards:     make(map[objects.ShardID]*objects.ShardToken),
		chunks:     make(map[objects.ChunkID]struct{}),
	}
}

func (idx *Index) Dirty() bool {
	return idx.dirty
}

// Load fetches the remote index, falling back to a rebuild from shard
// tokens when it is missing, when asked to, or after an interrupted run.
func (idx *Index) Load() error {
	t0 := time.Now()
	defer func() {
		profiler.RecordEvent("index.Load", time.Since(t0))
	}()

	exists, err := idx.repository.IndexExists()
	if err != nil {
		return err
	}
	if !exists {
		idx.logger.Info("no index found, rebuilding from shard tokens")
		return idx.Reset()
	}

	data, err := idx.repository.DownloadIndex()
	if err != nil {
		return err
	}
	idx.hydrate(data)
	idx.logger.Trace("index", "loaded %d files and %d shards", len(idx.files), len(idx.shards))

	if idx.forceReset {
		idx.logger.Info("index reset requested")
		return idx.Reset()
	}

	changed, err := idx.monitor.Get()
	if err != nil {
		return err
	}
	if changed {
		idx.logger.Warn("previous run was interrupted, rebuilding index from shard tokens")
		return idx.Reset()
	}
	return nil
}

func (idx *Index) hydrate(data *objects.IndexData) {
	idx.files = make(map[string]FileEntry, len(data.FileIDs))
	for i, id := range data.FileIDs {
		token := data.FileTokens[i]
		idx.files[id.Key()] = FileEntry{ID: id, Token: &token}
	}

	idx.shards = make(map[objects.ShardID]*objects.ShardToken, len(data.ShardIDs))
	for i, id := range data.ShardIDs {
		token := data.ShardTokens[i]
		idx.shards[id] = &token
	}
	idx.rebuildChunks()
	idx.dirty = false
}

func (idx *Index) rebuildChunks() {
	idx.chunks = make(map[objects.ChunkID]struct{})
	for _, token := range idx.shards {
		for _, chunkToken := range token.ChunkTokens {
			idx.chunks[chunkToken.ChunkID] = struct{}{}
		}
	}
}

// Save uploads the index if it changed, then clears the crash flag.
func (idx *Index) Save() error {
	t0 := time.Now()
	defer func() {
		profiler.RecordEvent("index.Save", time.Since(t0))
	}()

	if !idx.dirty {
		idx.logger.Trace("index", "unchanged, not saving")
		return nil
	}
	if err := idx.repository.UploadIndex(idx.snapshot()); err != nil {
		return err
	}
	idx.dirty = false
	return idx.monitor.Set(false)
}

func (idx *Index) snapshot() *objects.IndexData {
	data := &objects.IndexData{
		FileIDs:     make([]objects.FileID, 0, len(idx.files)),
		FileTokens:  make([]objects.FileToken, 0, len(idx.files)),
		ShardIDs:    make([]objects.ShardID, 0, len(idx.shards)),
		ShardTokens: make([]objects.ShardToken, 0, len(idx.shards)),
	}
	for _, entry := range idx.Files() {
		data.FileIDs = append(data.FileIDs, entry.ID)
		data.FileTokens = append(data.FileTokens, *entry.Token)
	}
	for _, id := range idx.ShardIDs() {
		data.ShardIDs = append(data.ShardIDs, id)
		data.ShardTokens = append(data.ShardTokens, *idx.shards[id])
	}
	return data
}

// AddShardToken persists the token of a freshly uploaded shard. Until the
// index is saved, the crash flag records that the remote index is stale.
func (idx *Index) AddShardToken(id objects.ShardID, token *objects.ShardToken) error {
	if err := idx.repository.UploadShardToken(id, token); err != nil {
		return err
	}
	idx.shards[id] = token
	for _, chunkToken := range token.ChunkTokens {
		idx.chunks[chunkToken.ChunkID] = struct{}{}
	}
	if err := idx.monitor.Set(true); err != nil {
		return err
	}
	idx.dirty = true
	return nil
}

func (idx *Index) AddOrReplaceFileToken(id objects.FileID, token *objects.FileToken) {
	if existing, exists := idx.files[id.Key()]; exists && existing.Token.Equal(token) {
		return
	}
	idx.files[id.Key()] = FileEntry{ID: id, Token: token}
	idx.dirty = true
}

// RemoveFileTokens drops every file token whose id is not in keep.
func (idx *Index) RemoveFileTokens(keep []objects.FileID) {
	live := make(map[string]struct{}, len(keep))
	for _, id := range keep {
		live[id.Key()] = struct{}{}
	}
	for key, entry := range idx.files {
		if _, exists := live[key]; !exists {
			idx.logger.Trace("index", "removing %s", entry.ID)
			delete(idx.files, key)
			idx.dirty = true
		}
	}
}

// Reset rebuilds the shard map from the stored shard tokens and forgets
// files that reference chunks no shard holds.
func (idx *Index) Reset() error {
	t0 := time.Now()
	defer func() {
		profiler.RecordEvent("index.Reset", time.Since(t0))
	}()

	tokens, err := idx.repository.DownloadShardTokens()
	if err != nil {
		return err
	}

	if !sameShards(idx.shards, tokens) {
		idx.logger.Info("index: %d shard tokens found, %d known", len(tokens), len(idx.shards))
		idx.shards = tokens
		idx.rebuildChunks()
		if err := idx.monitor.Set(true); err != nil {
			return err
		}
		idx.dirty = true
	}

	for key, entry := range idx.files {
		for _, chunkID := range entry.Token.ChunkIDs {
			if _, exists := idx.chunks[chunkID]; !exists {
				idx.logger.Trace("index", "forgetting %s: chunk %s is not stored", entry.ID, chunkID)
				delete(idx.files, key)
				idx.dirty = true
				break
			}
		}
	}
	return nil
}

func sameShards(a, b map[objects.ShardID]*objects.ShardToken) bool {
	if len(a) != len(b) {
		return false
	}
	for id, token := range a {
		other, exists := b[id]
		if !exists || !token.Equal(other) {
			return false
		}
	}
	return true
}

func (idx *Index) ContainsChunk(id objects.ChunkID) bool {
	_, exists := idx.chunks[id]
	return exists
}

func (idx *Index) FileToken(id objects.FileID) (*objects.FileToken, bool) {
	entry, exists := idx.files[id.Key()]
	if !exists {
		return nil, false
	}
	return entry.Token, true
}

// Files returns every file entry ordered by path.
func (idx *Index) Files() []FileEntry {
	ret := make([]FileEntry, 0, len(idx.files))
	for _, entry := range idx.files {
		ret = append(ret, entry)
	}
	sort.Slice(ret, func(i, j int) bool {
		return ret[i].ID < ret[j].ID
	})
	return ret
}

func (idx *Index) ShardToken(id objects.ShardID) (*objects.ShardToken, bool) {
	token, exists := idx.shards[id]
	return token, exists
}

func (idx *Index) ShardIDs() []objects.ShardID {
	ret := make([]objects.ShardID, 0, len(idx.shards))
	for id := range idx.shards {
		ret = append(ret, id)
	}
	sortShardIDs(ret)
	return ret
}

// RelevantShards returns the shards holding at least one of the wanted
// chunks.
func (idx *Index) RelevantShards(wanted map[objects.ChunkID]struct{}) []objects.ShardID {
	ret := make([]objects.ShardID, 0)
	for id, token := range idx.shards {
		for _, chunkToken := range token.ChunkTokens {
			if _, exists := wanted[chunkToken.ChunkID]; exists {
				ret = append(ret, id)
				break
			}
		}
	}
	sortShardIDs(ret)
	return ret
}

func sortShardIDs(ids []objects.ShardID) {
	sort.Slice(ids, func(i, j int) bool {
		return bytes.Compare(ids[i][:], ids[j][:]) < 0
	})
}

type Stats struct {
	Files  int
	Shards int
	Chunks int
	Bytes  int64
}

func (idx *Index) Stats() Stats {
	stats := Stats{
		Files:  len(idx.files),
		Shards: len(idx.shards),
		Chunks: len(idx.chunks),
	}
	for _, token := range idx.shards {
		stats.Bytes += int64(token.Size())
	}
	return stats
}
