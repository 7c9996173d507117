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
	"container/list"
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// MemoryStream is the in-memory duplex byte stream engine described in
// spec §3/§4: a ByteBuffer mediating between at most one pending reader and
// any number of backpressure-queued writers. All mutable state is owned
// exclusively by the embedded actor goroutine (see actor.go); every
// exported method submits a command and then waits on its own Waiter,
// reproducing spec §5's "no locking, atomic check-and-mutate" scheduling
// model with goroutines+channels instead of a mutex.
type MemoryStream struct {
	*actor

	hwm int
	log zerolog.Logger

	// touched only inside actor commands:
	buf        *ByteBuffer
	readWaiter *pendingRead
	writeQueue *list.List // of *pendingWrite

	// safe to read from any goroutine; only ever written from inside an
	// actor command.
	openFlag     atomic.Bool
	writableFlag atomic.Bool
}

type pendingRead struct {
	w      *Waiter[[]byte]
	length int
	delim  Delimiter
}

type pendingWrite struct {
	w *Waiter[int]
	n int // value to resolve with once released: len(original data argument)
}

var _ Stream = (*MemoryStream)(nil)

// NewMemoryStream constructs an open, writable stream, optionally seeded
// with cfg.InitialData and bounded by cfg.HighWaterMark (spec §6
// constructor parameters). A nil cfg behaves like DefaultConfig().
func NewMemoryStream(cfg *Config) *MemoryStream {
	cfg = VerifyConfig(cfg)
	s := &MemoryStream{
		actor:      newActor(),
		hwm:        cfg.HighWaterMark,
		log:        *cfg.Logger,
		buf:        NewByteBuffer(cfg.InitialData),
		writeQueue: list.New(),
	}
	s.openFlag.Store(true)
	s.writableFlag.Store(true)
	return s
}

// IsOpen reports whether the stream has not yet reached Closed.
func (s *MemoryStream) IsOpen() bool { return s.openFlag.Load() }

// IsReadable is identical to IsOpen for MemoryStream (spec §6).
func (s *MemoryStream) IsReadable() bool { return s.openFlag.Load() }

// IsWritable reports whether the write side is still open.
func (s *MemoryStream) IsWritable() bool { return s.writableFlag.Load() }

// Read implements the read contract of spec §4.1.
func (s *MemoryStream) Read(ctx context.Context, length int, delim Delimiter, timeout time.Duration) ([]byte, error) {
	if length < 0 {
		length = 0
	}
	if ctx == nil {
		ctx = context.Background()
	}

	w := NewWaiter[[]byte]()
	var pending *pendingRead

	ok := s.submit(func() {
		if !s.openFlag.Load() {
			w.Reject(ErrUnreadable)
			return
		}
		if s.readWaiter != nil {
			s.log.Debug().Msg("read rejected: busy")
			w.Reject(ErrBusy)
			return
		}
		if !s.buf.IsEmpty() {
			data := s.buf.Remove(length, delim)
			s.releaseWriters()
			if !s.writableFlag.Load() && s.buf.IsEmpty() {
				s.closeLocked()
			}
			w.Resolve(data)
			return
		}
		// Suspend: install the single read-waiter slot (spec §3 invariant:
		// at most one readWaiter at a time, installed only while empty).
		pending = &pendingRead{w: w, length: length, delim: delim}
		s.readWaiter = pending
		w.AttachTimeout(timeout, func() {
			s.submit(func() {
				if s.readWaiter == pending {
					s.readWaiter = nil
					s.log.Debug().Msg("read timed out")
					w.Reject(ErrTimeout)
				}
			})
		})
	})
	if !ok {
		return nil, ErrUnreadable
	}

	return s.waitRead(ctx, w)
}

// waitRead blocks for w to fire, and on ctx cancellation, synchronizes with
// the actor to free the readWaiter slot -- or, if the actor had already
// resolved w in the same instant, recovers that result instead of
// discarding it (spec §8 invariant 1; see actor.go/waiter.go doc comments).
func (s *MemoryStream) waitRead(ctx context.Context, w *Waiter[[]byte]) ([]byte, error) {
	select {
	case r := <-w.ch:
		return r.value, r.err
	case <-ctx.Done():
		cause := ctx.Err()
		var data []byte
		var err error
		recovered := false
		s.submitSync(func() {
			if s.readWaiter != nil && s.readWaiter.w == w {
				s.readWaiter = nil
				w.StopTimeout()
				return
			}
			if v, e, ok := w.Drain(); ok {
				data, err, recovered = v, e, true
			}
		})
		if recovered {
			return data, err
		}
		return nil, cause
	}
}

// Write implements the write contract of spec §4.2.
func (s *MemoryStream) Write(ctx context.Context, data []byte, timeout time.Duration) (int, error) {
	return s.write(ctx, data, timeout, false)
}

// End implements the half-close write contract of spec §4.2/§4.3.
func (s *MemoryStream) End(ctx context.Context, data []byte, timeout time.Duration) (int, error) {
	return s.write(ctx, data, timeout, true)
}

func (s *MemoryStream) write(ctx context.Context, data []byte, timeout time.Duration, end bool) (int, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	w := NewWaiter[int]()

	ok := s.submit(func() {
		if !s.writableFlag.Load() {
			w.Reject(ErrUnwritable)
			return
		}

		s.buf.Push(data)

		// A pending reader becomes satisfiable as soon as the buffer is
		// non-empty (spec §4.2 step 3).
		if s.readWaiter != nil && !s.buf.IsEmpty() {
			rw := s.readWaiter
			s.readWaiter = nil
			rw.w.StopTimeout()
			result := s.buf.Remove(rw.length, rw.delim)
			s.releaseWriters()
			rw.w.Resolve(result)
		}

		if end {
			s.writableFlag.Store(false)
		}

		if end && s.buf.IsEmpty() {
			// spec §4.3 row "end('') with buffer empty": if a reader is
			// still pending (only possible if data was empty and no
			// reader was satisfied above) it is rejected with Closed, not
			// resolved with an empty read.
			if s.readWaiter != nil {
				rw := s.readWaiter
				s.readWaiter = nil
				rw.w.StopTimeout()
				rw.w.Reject(ErrClosed)
			}
			s.closeLocked()
			w.Resolve(len(data))
			return
		}

		if s.hwm > 0 && s.buf.Length() > s.hwm {
			pw := &pendingWrite{w: w, n: len(data)}
			elem := s.writeQueue.PushBack(pw)
			w.AttachTimeout(timeout, func() {
				s.submit(func() {
					if elem.Value.(*pendingWrite) == pw {
						// A backpressure timeout is fatal to the stream
						// (spec §4.2 step 5, §7): the consumer isn't
						// keeping up and the buffer is deadlocked.
						s.writeQueue.Remove(elem)
						s.log.Debug().Msg("backpressure write timed out, closing stream")
						s.teardownLocked(ErrTimeout)
					}
				})
			})
			s.log.Debug().Int("buffered", s.buf.Length()).Int("hwm", s.hwm).Msg("backpressure engaged")
			return
		}

		w.Resolve(len(data))
	})
	if !ok {
		return 0, ErrUnwritable
	}

	return s.waitWrite(ctx, w)
}

func (s *MemoryStream) waitWrite(ctx context.Context, w *Waiter[int]) (int, error) {
	select {
	case r := <-w.ch:
		return r.value, r.err
	case <-ctx.Done():
		cause := ctx.Err()
		var n int
		var err error
		recovered := false
		s.submitSync(func() {
			for e := s.writeQueue.Front(); e != nil; e = e.Next() {
				if e.Value.(*pendingWrite).w == w {
					s.writeQueue.Remove(e)
					w.StopTimeout()
					return
				}
			}
			if v, e, ok := w.Drain(); ok {
				n, err, recovered = v, e, true
			}
		})
		if recovered {
			return n, err
		}
		return 0, cause
	}
}

// releaseWriters resolves queued writers in FIFO order while the buffer is
// at or below the high-water mark (spec §4.1: "if a waiting writer exists
// and the buffer dropped to <= hwm, resolve all queued writers in FIFO
// order").
func (s *MemoryStream) releaseWriters() {
	if s.writeQueue.Len() > 0 && s.buf.Length() <= s.hwm {
		s.log.Debug().Int("released", s.writeQueue.Len()).Msg("backpressure released")
	}
	for s.writeQueue.Len() > 0 && s.buf.Length() <= s.hwm {
		front := s.writeQueue.Front()
		pw := front.Value.(*pendingWrite)
		s.writeQueue.Remove(front)
		pw.w.StopTimeout()
		pw.w.Resolve(pw.n)
	}
}

// Close idempotently transitions the stream to Closed, rejecting any
// outstanding waiters with ErrClosed (spec §4.3, both Open-RW and Open-RO
// rows).
func (s *MemoryStream) Close() error {
	s.submitSync(func() {
		if !s.openFlag.Load() {
			return
		}
		s.closeLocked()
	})
	return nil
}

// closeLocked performs the Closed transition with cause ErrClosed. Must only
// be called from within an actor command.
func (s *MemoryStream) closeLocked() {
	s.teardownLocked(ErrClosed)
}

// teardownLocked rejects the pending reader (if any) and every queued writer
// with cause, then transitions the stream fully to Closed -- used both by a
// plain close() (cause == ErrClosed) and by the fatal backpressure-timeout
// path (cause == ErrTimeout), which per spec §4.2/§7 must also free the
// stream and cancel every other queued waiter with the same cause. Must only
// be called from within an actor command.
func (s *MemoryStream) teardownLocked(cause error) {
	s.log.Debug().Err(cause).Msg("stream closing")
	if s.readWaiter != nil {
		s.readWaiter.w.StopTimeout()
		s.readWaiter.w.Reject(cause)
		s.readWaiter = nil
	}
	for e := s.writeQueue.Front(); e != nil; {
		next := e.Next()
		pw := e.Value.(*pendingWrite)
		pw.w.StopTimeout()
		pw.w.Reject(cause)
		s.writeQueue.Remove(e)
		e = next
	}
	s.openFlag.Store(false)
	s.writableFlag.Store(false)
	s.markTerminal()
}
