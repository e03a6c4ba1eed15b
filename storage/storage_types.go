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
)

var (
	ErrNotFound  = errors.New("object not found")
	ErrTransport = errors.New("storage transport error")
)

// Tier is the access tier of a stored object.
type Tier string

const (
	TierHot     Tier = "hot"
	TierCool    Tier = "cool"
	TierArchive Tier = "archive"
)

func ParseTier(name string) (Tier, error) {
	switch Tier(name) {
	case TierHot, TierCool, TierArchive:
		return Tier(name), nil
	case "":
		return TierArchive, nil
	default:
		return "", fmt.Errorf("unknown access tier %q", name)
	}
}

// RequiresCopy reports whether objects stored in this tier must be copied
// to the hot tier before they can be read.
func (t Tier) RequiresCopy() bool {
	return t != TierHot
}

type CopyStatus int

const (
	CopyNone CopyStatus = iota
	CopyPending
	CopySuccess
	CopyFailed
	CopyAborted
)

func (s CopyStatus) String() string {
	switch s {
	case CopyNone:
		return "none"
	case CopyPending:
		return "pending"
	case CopySuccess:
		return "success"
	case CopyFailed:
		return "failed"
	case CopyAborted:
		return "aborted"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

type Properties struct {
	Size       int64
	Tier       Tier
	CopyStatus CopyStatus
}

// Backend is implemented by every blob store. Keys are '/' separated
// paths; List returns every key starting with prefix.
type Backend interface {
	Create(location string) error
	Open(location string) error
	Exists(key string) (bool, error)
	Upload(key string, data []byte, tier Tier) error
	Download(key string) ([]byte, error)
	DeleteIfExists(key string) (bool, error)
	StartCopy(source string, target string, tier Tier) error
	GetProperties(key string) (Properties, error)
	List(prefix string) ([]string, error)
	Close() error
}
