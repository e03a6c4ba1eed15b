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

package storage

import (
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/PlakarLabs/blobbackup/profiler"
)

var muBackends sync.Mutex
var backends map[string]func() Backend = make(map[string]func() Backend)

func Register(name string, backend func() Backend) {
	muBackends.Lock()
	defer muBackends.Unlock()

	if _, ok := backends[name]; ok {
		log.Fatalf("backend '%s' registered twice", name)
	}
	backends[name] = backend
}

func Backends() []string {
	muBackends.Lock()
	defer muBackends.Unlock()

	ret := make([]string, 0)
	for backendName := range backends {
		ret = append(ret, backendName)
	}
	sort.Slice(ret, func(i, j int) bool {
		return ret[i] < ret[j]
	})
	return ret
}

func New(name string) (*Store, error) {
	muBackends.Lock()
	defer muBackends.Unlock()

	if backend, exists := backends[name]; !exists {
		return nil, fmt.Errorf("backend '%s' does not exist", name)
	} else {
		return NewStore(name, backend()), nil
	}
}

// Store wraps a Backend: every call is timed and every failure other than
// a missing object is reported as ErrTransport.
type Store struct {
	name    string
	backend Backend
}

func NewStore(name string, backend Backend) *Store {
	return &Store{name: name, backend: backend}
}

func (s *Store) Name() string {
	return s.name
}

func (s *Store) wrap(op string, key string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrTransport) {
		return fmt.Errorf("%s %s: %w", op, key, err)
	}
	return fmt.Errorf("%w: %s %s: %w", ErrTransport, op, key, err)
}

func (s *Store) Create(location string) error {
	t0 := time.Now()
	defer func() {
		profiler.RecordEvent("storage.Create", time.Since(t0))
	}()
	return s.wrap("create", location, s.backend.Create(location))
}

func (s *Store) Open(location string) error {
	t0 := time.Now()
	defer func() {
		profiler.RecordEvent("storage.Open", time.Since(t0))
	}()
	return s.wrap("open", location, s.backend.Open(location))
}

func (s *Store) Exists(key string) (bool, error) {
	t0 := time.Now()
	defer func() {
		profiler.RecordEvent("storage.Exists", time.Since(t0))
	}()
	exists, err := s.backend.Exists(key)
	return exists, s.wrap("exists", key, err)
}

func (s *Store) Upload(key string, data []byte, tier Tier) error {
	t0 := time.Now()
	defer func() {
		profiler.RecordEvent("storage.Upload", time.Since(t0))
	}()
	return s.wrap("upload", key, s.backend.Upload(key, data, tier))
}

func (s *Store) Download(key string) ([]byte, error) {
	t0 := time.Now()
	defer func() {
		profiler.RecordEvent("storage.Download", time.Since(t0))
	}()
	data, err := s.backend.Download(key)
	if err != nil {
		return nil, s.wrap("download", key, err)
	}
	return data, nil
}

func (s *Store) DeleteIfExists(key string) (bool, error) {
	t0 := time.Now()
	defer func() {
		profiler.RecordEvent("storage.DeleteIfExists", time.Since(t0))
	}()
	deleted, err := s.backend.DeleteIfExists(key)
	return deleted, s.wrap("delete", key, err)
}

func (s *Store) StartCopy(source string, target string, tier Tier) error {
	t0 := time.Now()
	defer func() {
		profiler.RecordEvent("storage.StartCopy", time.Since(t0))
	}()
	return s.wrap("copy", source, s.backend.StartCopy(source, target, tier))
}

func (s *Store) GetProperties(key string) (Properties, error) {
	t0 := time.Now()
	defer func() {
		profiler.RecordEvent("storage.GetProperties", time.Since(t0))
	}()
	properties, err := s.backend.GetProperties(key)
	return properties, s.wrap("properties", key, err)
}

func (s *Store) List(prefix string) ([]string, error) {
	t0 := time.Now()
	defer func() {
		profiler.RecordEvent("storage.List", time.Since(t0))
	}()
	keys, err := s.backend.List(prefix)
	if err != nil {
		return nil, s.wrap("list", prefix, err)
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *Store) Close() error {
	return s.wrap("close", s.name, s.backend.Close())
}
