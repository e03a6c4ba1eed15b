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

package encryption

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
)

const (
	KeySize = 32
	IVSize  = aes.BlockSize
	MACSize = sha256.Size
)

var ErrInvalidKey = errors.New("invalid key size")

// Cipher seals payloads as IV || AES-256-CBC(PKCS#7(data)) || HMAC-SHA256
// over IV and ciphertext. The same key is used for both primitives.
type Cipher struct {
	key   []byte
	block cipher.Block
}

func NewCipher(key []byte) (*Cipher, error) {
	c := &Cipher{}
	if err := c.SetKey(key); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Cipher) SetKey(key []byte) error {
	if len(key) != KeySize {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidKey, len(key), KeySize)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return err
	}
	c.key = append([]byte(nil), key...)
	c.block = block
	return nil
}

func (c *Cipher) Key() []byte {
	return append([]byte(nil), c.key...)
}

func (c *Cipher) Encrypt(data []byte) ([]byte, error) {
	padded := pad(data)

	out := make([]byte, IVSize+len(padded), IVSize+len(padded)+MACSize)
	iv := out[:IVSize]
	if _, err := rand.Read(iv); err != nil {
		return nil, err
	}
	cipher.NewCBCEncrypter(c.block, iv).CryptBlocks(out[IVSize:], padded)

	return append(out, c.mac(out)...), nil
}

// TryDecrypt authenticates and decrypts data. It reports false on any
// malformed, truncated or tampered input.
func (c *Cipher) TryDecrypt(data []byte) ([]byte, bool) {
	n := len(data) - IVSize - MACSize
	if n <= 0 || n%aes.BlockSize != 0 {
		return nil, false
	}

	sealed, tag := data[:IVSize+n], data[IVSize+n:]
	if !hmac.Equal(tag, c.mac(sealed)) {
		return nil, false
	}

	plaintext := make([]byte, n)
	cipher.NewCBCDecrypter(c.block, sealed[:IVSize]).CryptBlocks(plaintext, sealed[IVSize:])
	return unpad(plaintext)
}

func (c *Cipher) mac(data []byte) []byte {
	h := hmac.New(sha256.New, c.key)
	h.Write(data)
	return h.Sum(nil)
}

func pad(data []byte) []byte {
	padding := aes.BlockSize - len(data)%aes.BlockSize
	out := make([]byte, len(data), len(data)+padding)
	copy(out, data)
	return append(out, bytes.Repeat([]byte{byte(padding)}, padding)...)
}

func unpad(data []byte) ([]byte, bool) {
	if len(data) == 0 {
		return nil, false
	}
	padding := int(data[len(data)-1])
	if padding == 0 || padding > aes.BlockSize || padding > len(data) {
		return nil, false
	}
	for _, b := range data[len(data)-padding:] {
		if int(b) != padding {
			return nil, false
		}
	}
	return data[:len(data)-padding], true
}
