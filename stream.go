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
)

// Readable is the read half of the duplex stream contract (spec §6).
type Readable interface {
	// Read returns up to length bytes (0 == unbounded), stopping early at
	// delim if one is set and present, per spec §4.1. timeout <= 0 disables
	// the per-call timeout; ctx cancellation propagates the caller's own
	// cancellation cause.
	Read(ctx context.Context, length int, delim Delimiter, timeout time.Duration) ([]byte, error)

	// IsOpen reports whether the stream has not yet reached the terminal
	// Closed state.
	IsOpen() bool

	// IsReadable reports whether a Read call can currently make progress
	// (for MemoryStream this is identical to IsOpen; the FD variant also
	// considers whether it has already observed EOF with an empty
	// holdover, per spec §4.5/§6).
	IsReadable() bool

	// Close idempotently transitions the stream to Closed, rejecting any
	// outstanding waiters with ErrClosed.
	Close() error
}

// Writable is the write half of the duplex stream contract (spec §6).
type Writable interface {
	// Write appends data, suspending past the high-water mark until a
	// reader drains the buffer (spec §4.2).
	Write(ctx context.Context, data []byte, timeout time.Duration) (int, error)

	// End writes data (may be empty) and half-closes the write side (spec
	// §4.2, §4.3).
	End(ctx context.Context, data []byte, timeout time.Duration) (int, error)

	// IsWritable reports whether Write/End can still be called; false once
	// End or Close has run.
	IsWritable() bool

	// Close idempotently transitions the stream to Closed.
	Close() error
}

// Stream is the full duplex contract implemented by both MemoryStream and
// FDStream.
type Stream interface {
	Readable
	Writable
}
