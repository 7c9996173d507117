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

// ByteBuffer is an ordered, append-at-tail/consume-at-head byte queue. It is
// the storage component of MemoryStream (spec §3, component A): push appends,
// shift removes and returns the first n bytes, search scans for the first
// occurrence of a single byte.
//
// ByteBuffer is not safe for concurrent use; MemoryStream and FDStream only
// ever touch their buffer from their own actor goroutine.
type ByteBuffer struct {
	data []byte
	off  int // data[off:] is the live content
}

// NewByteBuffer returns an empty buffer, optionally seeded with initial
// content (copied, so the caller's slice stays theirs).
func NewByteBuffer(initial []byte) *ByteBuffer {
	b := &ByteBuffer{}
	if len(initial) > 0 {
		b.data = append(b.data, initial...)
	}
	return b
}

// Push appends p to the tail of the buffer.
func (b *ByteBuffer) Push(p []byte) {
	if len(p) == 0 {
		return
	}
	b.compactIfWasteful()
	b.data = append(b.data, p...)
}

// Length returns the number of bytes currently buffered.
func (b *ByteBuffer) Length() int {
	return len(b.data) - b.off
}

// IsEmpty reports whether Length() == 0.
func (b *ByteBuffer) IsEmpty() bool {
	return b.Length() == 0
}

// Shift removes and returns the first n bytes. Panics if n exceeds Length();
// callers (Remove, below) are expected to clamp first, per
// spec §3's invariant that shift is only ever called with n <= length.
func (b *ByteBuffer) Shift(n int) []byte {
	if n < 0 || n > b.Length() {
		panic("aio: ByteBuffer.Shift: n out of range")
	}
	if n == 0 {
		return nil
	}
	out := make([]byte, n)
	copy(out, b.data[b.off:b.off+n])
	b.off += n
	b.compactIfWasteful()
	return out
}

// Drain is equivalent to Shift(Length()).
func (b *ByteBuffer) Drain() []byte {
	return b.Shift(b.Length())
}

// Search returns the index (relative to the live content, i.e. 0 is the
// oldest buffered byte) of the first occurrence of needle, or -1 if absent.
func (b *ByteBuffer) Search(needle byte) int {
	for i := b.off; i < len(b.data); i++ {
		if b.data[i] == needle {
			return i - b.off
		}
	}
	return -1
}

// At returns the byte at index i (0 is the oldest buffered byte) and true,
// or 0 and false if i is out of range.
func (b *ByteBuffer) At(i int) (byte, bool) {
	if i < 0 || i >= b.Length() {
		return 0, false
	}
	return b.data[b.off+i], true
}

// Bytes returns a read-only peek at the live content without consuming it.
// The returned slice is only valid until the next mutating call.
func (b *ByteBuffer) Bytes() []byte {
	return b.data[b.off:]
}

// Remove implements the read framing policy from spec §4.1 ("remove(length,
// delimiter) policy"): it decides how many bytes to Shift off the buffer
// given a length cap (0 == unbounded) and an optional delimiter.
//
//  1. If delimiter is set and present at index p: return Shift(p+1) when
//     length is 0 or p < length, else Shift(length).
//  2. Else if length == 0: return Drain().
//  3. Else: return Shift(min(length, Length())).
func (b *ByteBuffer) Remove(length int, delim Delimiter) []byte {
	if delim.Enabled() {
		if p := b.Search(delim.Byte()); p >= 0 {
			if length == 0 || p < length {
				return b.Shift(p + 1)
			}
			return b.Shift(length)
		}
	}
	if length == 0 {
		return b.Drain()
	}
	if length > b.Length() {
		length = b.Length()
	}
	return b.Shift(length)
}

// compactIfWasteful slides the live content back to index 0 whenever some
// prefix has been consumed and either that prefix is at least half of the
// backing slice or the backing slice holds 4096 bytes or more, so a buffer
// that is repeatedly filled and drained doesn't grow without bound.
func (b *ByteBuffer) compactIfWasteful() {
	if b.off == 0 {
		return
	}
	if b.off < len(b.data)/2 && len(b.data) < 4096 {
		return
	}
	n := copy(b.data, b.data[b.off:])
	b.data = b.data[:n]
	b.off = 0
}
