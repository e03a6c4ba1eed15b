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

package compression

import (
	"fmt"
)

// Registry maps persisted tags to codecs. The in-process codecs are always
// present; the external codec is only registered when configured.
type Registry struct {
	codecs map[Tag]Codec
}

func NewRegistry(extra ...Codec) *Registry {
	r := &Registry{
		codecs: map[Tag]Codec{
			None: noneCodec{},
			Gzip: gzipCodec{},
			LZ4:  lz4Codec{},
			Zstd: zstdCodec{},
		},
	}
	for _, codec := range extra {
		r.codecs[codec.Tag()] = codec
	}
	return r
}

func (r *Registry) Register(codec Codec) {
	r.codecs[codec.Tag()] = codec
}

func (r *Registry) Lookup(tag Tag) (Codec, error) {
	codec, exists := r.codecs[tag]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCodec, tag)
	}
	return codec, nil
}

// Compress applies codec to buf and keeps the result only if it is strictly
// smaller, unless always is set. The returned tag is the one to persist.
func Compress(codec Codec, buf []byte, always bool) ([]byte, Tag, error) {
	if codec == nil || codec.Tag() == None {
		return buf, None, nil
	}
	compressed, err := codec.Deflate(buf)
	if err != nil {
		return nil, None, fmt.Errorf("%s deflate: %w", codec.Tag(), err)
	}
	if always || len(compressed) < len(buf) {
		return compressed, codec.Tag(), nil
	}
	return buf, None, nil
}

func (r *Registry) Decompress(tag Tag, buf []byte) ([]byte, error) {
	codec, err := r.Lookup(tag)
	if err != nil {
		return nil, err
	}
	out, err := codec.Inflate(buf)
	if err != nil {
		return nil, fmt.Errorf("%s inflate: %w", tag, err)
	}
	return out, nil
}
