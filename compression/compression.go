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
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

var ErrUnknownCodec = errors.New("unknown compression codec")

// Tag identifies the codec a payload was stored with. Values are persisted
// in shard tokens and must never be renumbered.
type Tag uint8

const (
	None     Tag = 0
	Gzip     Tag = 1
	SevenZip Tag = 2
	LZ4      Tag = 3
	Zstd     Tag = 4
)

func (t Tag) String() string {
	switch t {
	case None:
		return "none"
	case Gzip:
		return "gzip"
	case SevenZip:
		return "7zip"
	case LZ4:
		return "lz4"
	case Zstd:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(t))
	}
}

func ParseTag(name string) (Tag, error) {
	switch name {
	case "none", "":
		return None, nil
	case "gzip":
		return Gzip, nil
	case "7zip", "7z", "sevenzip":
		return SevenZip, nil
	case "lz4":
		return LZ4, nil
	case "zstd":
		return Zstd, nil
	default:
		return None, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
	}
}

type Codec interface {
	Tag() Tag
	Deflate(buf []byte) ([]byte, error)
	Inflate(buf []byte) ([]byte, error)
}

type noneCodec struct{}

func (noneCodec) Tag() Tag                           { return None }
func (noneCodec) Deflate(buf []byte) ([]byte, error) { return buf, nil }
func (noneCodec) Inflate(buf []byte) ([]byte, error) { return buf, nil }

type gzipCodec struct{}

func (gzipCodec) Tag() Tag                           { return Gzip }
func (gzipCodec) Deflate(buf []byte) ([]byte, error) { return DeflateGzip(buf) }
func (gzipCodec) Inflate(buf []byte) ([]byte, error) { return InflateGzip(buf) }

type lz4Codec struct{}

func (lz4Codec) Tag() Tag                           { return LZ4 }
func (lz4Codec) Deflate(buf []byte) ([]byte, error) { return DeflateLZ4(buf) }
func (lz4Codec) Inflate(buf []byte) ([]byte, error) { return InflateLZ4(buf) }

type zstdCodec struct{}

func (zstdCodec) Tag() Tag                           { return Zstd }
func (zstdCodec) Deflate(buf []byte) ([]byte, error) { return DeflateZstd(buf) }
func (zstdCodec) Inflate(buf []byte) ([]byte, error) { return InflateZstd(buf) }

func DeflateGzip(buf []byte) ([]byte, error) {
	b := bytes.NewBuffer(make([]byte, 0, len(buf)))
	w := gzip.NewWriter(b)
	defer func() {
		_ = w.Close()
	}()

	if _, err := w.Write(buf); err != nil {
		return nil, err
	}

	if err := w.Close(); err != nil {
		return nil, err
	}

	return b.Bytes(), nil
}

func InflateGzip(buf []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewBuffer(buf))
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = r.Close()
	}()
	return io.ReadAll(r)
}

func DeflateLZ4(buf []byte) ([]byte, error) {
	b := bytes.NewBuffer(make([]byte, 0, len(buf)))
	w := lz4.NewWriter(b)
	defer func() {
		_ = w.Close()
	}()

	if _, err := w.Write(buf); err != nil {
		return nil, err
	}

	if err := w.Close(); err != nil {
		return nil, err
	}

	return b.Bytes(), nil
}

func InflateLZ4(buf []byte) ([]byte, error) {
	return io.ReadAll(lz4.NewReader(bytes.NewBuffer(buf)))
}

// zstd encoders and decoders are safe for concurrent EncodeAll/DecodeAll
// and expensive to build, so they are created once.
var (
	zstdOnce    sync.Once
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
	zstdErr     error
)

func zstdInit() error {
	zstdOnce.Do(func() {
		zstdEncoder, zstdErr = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if zstdErr != nil {
			return
		}
		zstdDecoder, zstdErr = zstd.NewReader(nil)
	})
	return zstdErr
}

func DeflateZstd(buf []byte) ([]byte, error) {
	if err := zstdInit(); err != nil {
		return nil, err
	}
	return zstdEncoder.EncodeAll(buf, make([]byte, 0, len(buf))), nil
}

func InflateZstd(buf []byte) ([]byte, error) {
	if err := zstdInit(); err != nil {
		return nil, err
	}
	out, err := zstdDecoder.DecodeAll(buf, nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decompress: %w", err)
	}
	return out, nil
}
