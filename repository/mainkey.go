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

package repository

import (
	"fmt"

	"github.com/PlakarLabs/blobbackup/encryption"
	"github.com/PlakarLabs/blobbackup/storage"
)

// LoadMainKey switches the cipher from the operator key to the main key
// stored in the repository, creating the main key for a new repository.
func (r *Repository) LoadMainKey() error {
	exists, err := r.store.Exists(r.MainCipherKeyKey())
	if err != nil {
		return err
	}

	if !exists {
		indexExists, err := r.IndexExists()
		if err != nil {
			return err
		}
		tokens, err := r.store.List(r.shardTokensPrefix())
		if err != nil {
			return err
		}
		if indexExists || len(tokens) != 0 {
			return fmt.Errorf("%w: %s is missing but data exists", ErrCorrupted, r.MainCipherKeyKey())
		}

		key, err := encryption.GenerateKey()
		if err != nil {
			return err
		}
		if err := r.storeMainKey(key); err != nil {
			return err
		}
		r.logger.Info("generated new main cipher key")
		return r.cipher.SetKey(key)
	}

	data, err := r.download(r.MainCipherKeyKey())
	if err != nil {
		return err
	}
	key, err := r.decrypt(r.MainCipherKeyKey(), data)
	if err != nil {
		return err
	}
	return r.cipher.SetKey(key)
}

func (r *Repository) storeMainKey(key []byte) error {
	encrypted, err := r.encrypt(key)
	if err != nil {
		return err
	}
	return r.upload(r.MainCipherKeyKey(), encrypted, storage.TierHot)
}

// SetMainKey replaces the stored main key, encrypted with the current
// operator key. Existing data becomes unreadable unless key is the
// previous main key.
func (r *Repository) SetMainKey(key []byte) error {
	if len(key) != encryption.KeySize {
		return encryption.ErrInvalidKey
	}
	if err := r.storeMainKey(key); err != nil {
		return err
	}
	return r.cipher.SetKey(key)
}

// ChangeKey re-encrypts the main key with a new operator key. The cipher
// must currently hold the operator key.
func (r *Repository) ChangeKey(newKey []byte) error {
	data, err := r.download(r.MainCipherKeyKey())
	if err != nil {
		return err
	}
	mainKey, err := r.decrypt(r.MainCipherKeyKey(), data)
	if err != nil {
		return err
	}

	wrapper, err := encryption.NewCipher(newKey)
	if err != nil {
		return err
	}
	encrypted, err := wrapper.Encrypt(mainKey)
	if err != nil {
		return err
	}
	if err := r.upload(r.MainCipherKeyKey(), encrypted, storage.TierHot); err != nil {
		return err
	}
	return r.cipher.SetKey(mainKey)
}
