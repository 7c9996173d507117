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

// PipeOptions configures Pipe (spec §4.4).
type PipeOptions struct {
	// Length caps the total number of bytes transferred; 0 means unbounded.
	Length int

	// Delim, when enabled, ends the transfer after the chunk whose final
	// byte matches it (spec §8 property 8).
	Delim Delimiter

	// EndOnFinish calls to.End(nil) once the transfer stops, whether it
	// stopped normally (length cap / delimiter reached / from closed) or
	// from an error on either side. Spec §6 default is true; use
	// DefaultPipeOptions to get that default, since the Go zero value of
	// a bool is false.
	EndOnFinish bool

	// Timeout bounds each individual underlying Read and Write (and the
	// final End), re-applied on every iteration (spec §5 "suspension
	// points... inside pipe between each underlying read and write").
	Timeout time.Duration

	// OnChunk, if set, is called after each chunk is successfully written
	// to `to`, reporting its length. Purely observational: it never
	// changes transfer semantics or the returned byte count (SPEC_FULL.md
	// §3, supplemental relative to spec.md).
	OnChunk func(n int)
}

// DefaultPipeOptions returns the spec §6 defaults: unbounded length, no
// delimiter, EndOnFinish true, no per-read timeout.
func DefaultPipeOptions() PipeOptions {
	return PipeOptions{EndOnFinish: true}
}

// Pipe copies bytes from from to to until the length cap is reached, the
// delimiter chunk is seen, from reaches Closed, or ctx is cancelled,
// implementing the pipe() coroutine of spec §4.4.
func Pipe(ctx context.Context, from Readable, to Writable, opts PipeOptions) (int64, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	var total int64
	var finalErr error

	for {
		remaining := 0
		if opts.Length > 0 {
			remaining = opts.Length - int(total)
			if remaining <= 0 {
				break
			}
		}

		chunk, err := from.Read(ctx, remaining, opts.Delim, opts.Timeout)
		if err != nil {
			finalErr = err
			break
		}

		if len(chunk) == 0 {
			// A zero-length, no-error read only happens when from has
			// reached Closed with nothing left buffered; treat it as a
			// normal end of transfer.
			break
		}

		if _, err := to.Write(ctx, chunk, opts.Timeout); err != nil {
			finalErr = err
			break
		}
		total += int64(len(chunk))
		if opts.OnChunk != nil {
			opts.OnChunk(len(chunk))
		}

		if opts.Delim.Enabled() && len(chunk) > 0 && chunk[len(chunk)-1] == opts.Delim.Byte() {
			break
		}
		if !from.IsOpen() {
			break
		}
	}

	if opts.EndOnFinish {
		to.End(ctx, nil, opts.Timeout)
	}

	return total, finalErr
}
