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

// MarkerStore persists the crash flag.
type MarkerStore interface {
	ShardsChanged() (bool, error)
	SetShardsChanged(changed bool) error
}

// Monitor tracks whether shard tokens may have been written without the
// index being saved afterwards. The remote value is read once per run.
type Monitor struct {
	store  MarkerStore
	loaded bool
	value  bool
}

func NewMonitor(store MarkerStore) *Monitor {
	return &Monitor{store: store}
}

func (m *Monitor) Get() (bool, error) {
	if !m.loaded {
		value, err := m.store.ShardsChanged()
		if err != nil {
			return false, err
		}
		m.value = value
		m.loaded = true
	}
	return m.value, nil
}

func (m *Monitor) Set(value bool) error {
	current, err := m.Get()
	if err != nil {
		return err
	}
	if current == value {
		return nil
	}
	if err := m.store.SetShardsChanged(value); err != nil {
		return err
	}
	m.value = value
	return nil
}
