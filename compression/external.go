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
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const DefaultExternalTimeout = 30 * time.Minute

var (
	SevenZipDeflateArgs = []string{"a", "-txz", "-si", "-so", "-mx=9", "-ms=on", "-an"}
	SevenZipInflateArgs = []string{"e", "-txz", "-si", "-so"}
)

// External delegates compression to a command reading the payload on stdin
// and writing the result on stdout.
type External struct {
	tag         Tag
	path        string
	deflateArgs []string
	inflateArgs []string
	timeout     time.Duration
}

func NewExternal(tag Tag, path string, deflateArgs, inflateArgs []string, timeout time.Duration) *External {
	if timeout <= 0 {
		timeout = DefaultExternalTimeout
	}
	return &External{
		tag:         tag,
		path:        path,
		deflateArgs: deflateArgs,
		inflateArgs: inflateArgs,
		timeout:     timeout,
	}
}

func NewSevenZip(path string, timeout time.Duration) *External {
	if path == "" {
		path = "7z"
	}
	return NewExternal(SevenZip, path, SevenZipDeflateArgs, SevenZipInflateArgs, timeout)
}

func (e *External) Tag() Tag {
	return e.tag
}

func (e *External) Deflate(buf []byte) ([]byte, error) {
	return e.run(e.deflateArgs, buf)
}

func (e *External) Inflate(buf []byte) ([]byte, error) {
	return e.run(e.inflateArgs, buf)
}

func (e *External) run(args []string, input []byte) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, e.path, args...)
	cmd.Stdin = bytes.NewReader(input)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("%s: timed out after %s", e.path, e.timeout)
		}
		return nil, fmt.Errorf("%s %s: %w: %s", e.path, strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}
