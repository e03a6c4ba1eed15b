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

// Package memory is a volatile backend keeping objects in a map. Copies
// between tiers can be held pending to exercise the rehydration path.
package memory

import (
	"strings"
	"sync"

	"github.com/PlakarLabs/blobbackup/storage"
)

type object struct {
	data       []byte
	tier       storage.Tier
	copyStatus storage.CopyStatus
}

type Repository struct {
	mu       sync.Mutex
	location string
	objects  map[string]*object

	deferCopies bool
	failure     error
	calls       map[string]int
}

func init() {
	storage.Register("memory", func() storage.Backend { return NewRepository() })
}

func NewRepository() *Repository {
	return &Repository{
		objects: make(map[string]*object),
		calls:   make(map[string]int),
	}
}

// DeferCopies makes StartCopy leave targets pending in the archive tier
// until CompleteCopies or FailCopies is called.
func (repository *Repository) DeferCopies(deferCopies bool) {
	repository.mu.Lock()
	defer repository.mu.Unlock()
	repository.deferCopies = deferCopies
}

func (repository *Repository) CompleteCopies(tier storage.Tier) {
	repository.setPending(storage.CopySuccess, tier)
}

func (repository *Repository) FailCopies() {
	repository.setPending(storage.CopyFailed, storage.TierArchive)
}

func (repository *Repository) setPending(status storage.CopyStatus, tier storage.Tier) {
	repository.mu.Lock()
	defer repository.mu.Unlock()
	for _, obj := range repository.objects {
		if obj.copyStatus == storage.CopyPending {
			obj.copyStatus = status
			obj.tier = tier
		}
	}
}

// SetFailure makes every subsequent call return err, nil restores normal
// operation.
func (repository *Repository) SetFailure(err error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()
	repository.failure = err
}

func (repository *Repository) Calls(op string) int {
	repository.mu.Lock()
	defer repository.mu.Unlock()
	return repository.calls[op]
}

// Tamper replaces the raw bytes of an object.
func (repository *Repository) Tamper(key string, fn func([]byte) []byte) {
	repository.mu.Lock()
	defer repository.mu.Unlock()
	if obj, exists := repository.objects[key]; exists {
		obj.data = fn(obj.data)
	}
}

func (repository *Repository) enter(op string) error {
	repository.calls[op]++
	return repository.failure
}

func (repository *Repository) Create(location string) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()
	repository.location = location
	return repository.enter("create")
}

func (repository *Repository) Open(location string) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()
	repository.location = location
	return repository.enter("open")
}

func (repository *Repository) Close() error {
	return nil
}

func (repository *Repository) Exists(key string) (bool, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()
	if err := repository.enter("exists"); err != nil {
		return false, err
	}
	_, exists := repository.objects[key]
	return exists, nil
}

func (repository *Repository) Upload(key string, data []byte, tier storage.Tier) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()
	if err := repository.enter("upload"); err != nil {
		return err
	}
	repository.objects[key] = &object{
		data:       append([]byte(nil), data...),
		tier:       tier,
		copyStatus: storage.CopyNone,
	}
	return nil
}

func (repository *Repository) Download(key string) ([]byte, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()
	if err := repository.enter("download"); err != nil {
		return nil, err
	}
	obj, exists := repository.objects[key]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return append([]byte(nil), obj.data...), nil
}

func (repository *Repository) DeleteIfExists(key string) (bool, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()
	if err := repository.enter("delete"); err != nil {
		return false, err
	}
	if _, exists := repository.objects[key]; !exists {
		return false, nil
	}
	delete(repository.objects, key)
	return true, nil
}

func (repository *Repository) StartCopy(source string, target string, tier storage.Tier) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()
	if err := repository.enter("copy"); err != nil {
		return err
	}
	obj, exists := repository.objects[source]
	if !exists {
		return storage.ErrNotFound
	}

	copied := &object{
		data:       append([]byte(nil), obj.data...),
		tier:       tier,
		copyStatus: storage.CopySuccess,
	}
	if repository.deferCopies {
		copied.tier = storage.TierArchive
		copied.copyStatus = storage.CopyPending
	}
	repository.objects[target] = copied
	return nil
}

func (repository *Repository) GetProperties(key string) (storage.Properties, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()
	if err := repository.enter("properties"); err != nil {
		return storage.Properties{}, err
	}
	obj, exists := repository.objects[key]
	if !exists {
		return storage.Properties{}, storage.ErrNotFound
	}
	return storage.Properties{
		Size:       int64(len(obj.data)),
		Tier:       obj.tier,
		CopyStatus: obj.copyStatus,
	}, nil
}

func (repository *Repository) List(prefix string) ([]string, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()
	if err := repository.enter("list"); err != nil {
		return nil, err
	}
	ret := make([]string, 0)
	for key := range repository.objects {
		if strings.HasPrefix(key, prefix) {
			ret = append(ret, key)
		}
	}
	return ret, nil
}
