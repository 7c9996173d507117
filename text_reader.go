// MIT License
//
// Copyright (c) 2016-2017 xtaci
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package aio

import (
	"context"
	"time"
	"unicode/utf8"
)

// TextReader decodes UTF-8 text incrementally off a Readable, buffering any
// trailing partial rune across calls. It is supplemental to the core byte
// engine (SPEC_FULL.md §3: spec.md places text decoding outside the core's
// scope but still lists it as part of the surrounding library) and
// participates in none of the core invariants of §5/§8 -- it is a thin
// decode layer, not another stream implementation.
type TextReader struct {
	r       Readable
	pending []byte // undecoded trailing bytes from the previous ReadString call
}

// NewTextReader wraps r for incremental text decoding.
func NewTextReader(r Readable) *TextReader {
	return &TextReader{r: r}
}

// ReadString reads up to length bytes (0 == unbounded) from the underlying
// stream and returns them decoded as a string, holding back any incomplete
// trailing rune for the next call. Returns ErrInvalidArgument if the buffered
// bytes contain an invalid UTF-8 sequence that isn't just a truncated
// trailing rune.
func (t *TextReader) ReadString(ctx context.Context, length int, timeout time.Duration) (string, error) {
	chunk, err := t.r.Read(ctx, length, NoDelimiter(), timeout)
	if err != nil && len(chunk) == 0 {
		return "", err
	}

	data := append(t.pending, chunk...)
	t.pending = nil

	valid := t.trailingCompleteLength(data)
	if !utf8.Valid(data[:valid]) {
		return "", ErrInvalidArgument
	}

	t.pending = append(t.pending, data[valid:]...)
	return string(data[:valid]), err
}

// trailingCompleteLength returns the longest prefix of data that does not
// end mid-rune, by walking back at most utf8.UTFMax-1 bytes to find the
// start of the final rune and comparing how many bytes its leading byte
// demands against how many are actually available. A malformed (not merely
// truncated) leading byte is left in place for utf8.Valid to reject below,
// rather than held back forever. Bytes held back here are re-joined with
// the next chunk on the following ReadString call.
func (t *TextReader) trailingCompleteLength(data []byte) int {
	n := len(data)
	limit := n - utf8.UTFMax
	if limit < 0 {
		limit = 0
	}
	for i := n - 1; i >= limit; i-- {
		if !utf8.RuneStart(data[i]) {
			continue
		}
		need := utf8LeadLen(data[i])
		if need == 0 {
			return n // not a valid multi-byte leader; let Valid() reject it
		}
		if have := n - i; have < need {
			return i // genuinely truncated: hold it back for next call
		}
		return n
	}
	return n
}

// utf8LeadLen returns how many bytes a UTF-8 leading byte's encoding
// requires, or 0 if b cannot validly lead a rune.
func utf8LeadLen(b byte) int {
	switch {
	case b < utf8.RuneSelf:
		return 1
	case b&0xE0 == 0xC0:
		return 2
	case b&0xF0 == 0xE0:
		return 3
	case b&0xF8 == 0xF0:
		return 4
	default:
		return 0
	}
}

// Close releases the underlying stream.
func (t *TextReader) Close() error { return t.r.Close() }
