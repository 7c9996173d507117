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
	"github.com/sagernet/sing/common/bufio"
	"golang.org/x/sys/unix"
)

// FDStream is the file-descriptor-backed duplex stream of spec §4.5: the
// same Readable/Writable contract as MemoryStream, but driven by an external
// readiness notifier instead of an immediately-available in-memory buffer.
// Ownership of fd passes to the FDStream at construction; it is closed by
// Close.
//
// Unlike MemoryStream, FDStream does not push data into itself eagerly: Read
// and Write/End make one non-blocking syscall attempt when issued, and after
// that the stream only retries when told the fd is ready via
// NotifyReadable/NotifyWritable, which a caller-owned event loop (poller,
// epoll wrapper, etc.) is expected to invoke -- spec §4.5 "on the loop's
// readability/writability event".
type FDStream struct {
	*actor

	fd  int
	log zerolog.Logger

	holdover *ByteBuffer // delimiter-straddling leftover from the last read
	eofed    bool        // a zero-length non-blocking read observed EOF

	readWaiter *pendingRead
	writeQueue *list.List // of *fdWriteEntry

	openFlag     atomic.Bool
	writableFlag atomic.Bool
	readableFlag atomic.Bool // open && !(eofed && holdover empty)
}

type fdWriteEntry struct {
	w       *Waiter[int]
	data    []byte
	written int // already-flushed prefix of data
}

var _ Stream = (*FDStream)(nil)

// NewFDStream adopts fd as a duplex stream, switching it to non-blocking mode
// first. A negative fd is rejected with ErrInvalidArgument; a SetNonblock
// failure is returned as a *Failure.
func NewFDStream(fd int, cfg *Config) (*FDStream, error) {
	cfg = VerifyConfig(cfg)
	if fd < 0 {
		return nil, ErrInvalidArgument
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		return nil, newFailure("set_nonblock", err)
	}
	s := &FDStream{
		actor:      newActor(),
		fd:         fd,
		log:        *cfg.Logger,
		holdover:   NewByteBuffer(cfg.InitialData),
		writeQueue: list.New(),
	}
	s.openFlag.Store(true)
	s.writableFlag.Store(true)
	s.readableFlag.Store(true)
	return s, nil
}

// NewPipe returns a connected pair of FDStreams over an anonymous OS pipe,
// both ends already non-blocking -- a zero-network way to exercise the FD
// variant (spec.md §4.5 supplemental in SPEC_FULL.md §3).
func NewPipe() (*FDStream, *FDStream, error) {
	var fds [2]int
	if err := unix.Pipe2(fds[:], unix.O_NONBLOCK); err != nil {
		return nil, nil, newFailure("pipe2", err)
	}
	r, err := NewFDStream(fds[0], DefaultConfig())
	if err != nil {
		_ = unix.Close(fds[0])
		_ = unix.Close(fds[1])
		return nil, nil, err
	}
	w, err := NewFDStream(fds[1], DefaultConfig())
	if err != nil {
		r.Close()
		_ = unix.Close(fds[1])
		return nil, nil, err
	}
	return r, w, nil
}

func (s *FDStream) IsOpen() bool     { return s.openFlag.Load() }
func (s *FDStream) IsReadable() bool { return s.readableFlag.Load() }
func (s *FDStream) IsWritable() bool { return s.writableFlag.Load() }

// NotifyReadable tells the stream the fd is currently readable, letting any
// pending Read attempt a non-blocking syscall. A no-op if no read is
// pending.
func (s *FDStream) NotifyReadable() {
	s.submit(func() {
		if s.readWaiter != nil {
			s.tryFulfillRead()
		}
	})
}

// NotifyWritable tells the stream the fd is currently writable, letting the
// head of the write queue attempt a non-blocking flush.
func (s *FDStream) NotifyWritable() {
	s.submit(func() {
		s.tryFlushWrites()
	})
}

// Read implements the FD read contract of spec §4.5.
func (s *FDStream) Read(ctx context.Context, length int, delim Delimiter, timeout time.Duration) ([]byte, error) {
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
		if !s.holdover.IsEmpty() {
			data := s.holdover.Remove(length, delim)
			w.Resolve(data)
			return
		}
		if s.eofed {
			s.finishReadEOF(w)
			return
		}
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
		// Opportunistically try a read immediately: the fd may already be
		// readable even though no external notification has arrived yet
		// (e.g. data queued before this Read call started).
		s.tryFulfillRead()
	})
	if !ok {
		return nil, ErrUnreadable
	}

	return s.waitRead(ctx, w)
}

// tryFulfillRead performs one non-blocking unix.Read and, on success,
// resolves s.readWaiter using the same §4.1 delimiter-framing algorithm as
// MemoryStream, applied to holdover+fresh. Must run inside an actor command.
func (s *FDStream) tryFulfillRead() {
	rw := s.readWaiter
	readLen := rw.length
	if readLen <= 0 {
		readLen = 65536
	}
	buf := make([]byte, readLen)
	n, err := unix.Read(s.fd, buf)
	switch {
	case err == unix.EAGAIN || err == unix.EWOULDBLOCK:
		return // still nothing to read; stay pending
	case err != nil:
		s.readWaiter = nil
		rw.w.Reject(newFailure("read", err))
		return
	case n == 0:
		s.readWaiter = nil
		s.eofed = true
		s.finishReadEOF(rw.w)
		return
	}

	s.holdover.Push(buf[:n])
	s.readWaiter = nil
	data := s.holdover.Remove(rw.length, rw.delim)
	s.refreshReadableFlag()
	rw.w.Resolve(data)
}

// finishReadEOF resolves w per spec §4.5 ("EOF is reported as a resolved
// empty string and triggers close; partial read at EOF still resolves with
// data and closes on the next call"). Must run inside an actor command.
func (s *FDStream) finishReadEOF(w *Waiter[[]byte]) {
	if !s.holdover.IsEmpty() {
		w.Resolve(s.holdover.Drain())
		s.refreshReadableFlag()
		return
	}
	s.log.Debug().Msg("read side reached EOF, closing stream")
	w.Resolve(nil)
	s.closeLocked()
}

func (s *FDStream) refreshReadableFlag() {
	s.readableFlag.Store(s.openFlag.Load() && !(s.eofed && s.holdover.IsEmpty()))
}

func (s *FDStream) waitRead(ctx context.Context, w *Waiter[[]byte]) ([]byte, error) {
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

// Write implements the FD write contract of spec §4.5: a FIFO of
// (data, already_written, Waiter) entries, flushed by non-blocking writes as
// NotifyWritable arrives, with partial writes resumed from their offset.
func (s *FDStream) Write(ctx context.Context, data []byte, timeout time.Duration) (int, error) {
	return s.write(ctx, data, timeout, false)
}

// End implements the FD half-close contract.
func (s *FDStream) End(ctx context.Context, data []byte, timeout time.Duration) (int, error) {
	return s.write(ctx, data, timeout, true)
}

func (s *FDStream) write(ctx context.Context, data []byte, timeout time.Duration, end bool) (int, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	w := NewWaiter[int]()
	var elem *list.Element

	ok := s.submit(func() {
		if !s.writableFlag.Load() {
			w.Reject(ErrUnwritable)
			return
		}
		if end {
			s.writableFlag.Store(false)
		}

		// Zero-byte requests are a pure "ready to write" barrier (spec
		// §4.5): resolve immediately with 0 already-written bytes, no
		// queue entry needed, unless there is already a queue to preserve
		// ordering behind.
		if len(data) == 0 && s.writeQueue.Len() == 0 {
			w.Resolve(0)
			return
		}

		entry := &fdWriteEntry{w: w, data: data}
		elem = s.writeQueue.PushBack(entry)
		w.AttachTimeout(timeout, func() {
			s.submit(func() {
				if elem.Value.(*fdWriteEntry) == entry {
					s.writeQueue.Remove(elem)
					s.log.Debug().Msg("write timed out, closing stream")
					s.failAllWritesLocked(ErrTimeout)
				}
			})
		})
		s.log.Debug().Int("queued", s.writeQueue.Len()).Msg("write queued, fd not yet writable")
		s.tryFlushWrites()
	})
	if !ok {
		return 0, ErrUnwritable
	}

	return s.waitWrite(ctx, w)
}

// tryFlushWrites drains the head of the write queue with non-blocking
// writes, resuming partial writes from their recorded offset (spec §4.5:
// "on partial write, the head is pushed back with updated offset"). Must run
// inside an actor command.
func (s *FDStream) tryFlushWrites() {
	for s.writeQueue.Len() > 0 {
		front := s.writeQueue.Front()
		entry := front.Value.(*fdWriteEntry)

		remaining := entry.data[entry.written:]
		if len(remaining) == 0 {
			s.writeQueue.Remove(front)
			entry.w.StopTimeout()
			entry.w.Resolve(len(entry.data))
			continue
		}

		var n int
		var err error
		if bw, ok := bufio.CreateVectorisedWriter(fdWriter{s.fd}); ok {
			n, err = bufio.WriteVectorised(bw, [][]byte{remaining})
		} else {
			n, err = unix.Write(s.fd, remaining)
		}

		switch {
		case err == unix.EAGAIN || err == unix.EWOULDBLOCK:
			s.log.Trace().Msg("fd still not writable")
			return // wait for the next NotifyWritable
		case err != nil:
			s.writeQueue.Remove(front)
			entry.w.StopTimeout()
			entry.w.Reject(newFailure("write", err))
			continue
		case n == 0:
			// §4.5 "strict mode": a zero-byte result from a non-empty
			// write is a Failure, not a silent retry.
			s.writeQueue.Remove(front)
			entry.w.StopTimeout()
			entry.w.Reject(newFailure("write", unix.EIO))
			continue
		}

		entry.written += n
		if entry.written < len(entry.data) {
			// Partial write: leave entry at the front with the updated
			// offset and wait for the next writability notification.
			return
		}
		s.writeQueue.Remove(front)
		entry.w.StopTimeout()
		entry.w.Resolve(entry.written)
		s.log.Debug().Int("remaining", s.writeQueue.Len()).Msg("write flushed")
	}
}

func (s *FDStream) waitWrite(ctx context.Context, w *Waiter[int]) (int, error) {
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
				if e.Value.(*fdWriteEntry).w == w {
					s.writeQueue.Remove(e)
					w.StopTimeout()
					return
				}
			}
			if v, e2, ok := w.Drain(); ok {
				n, err, recovered = v, e2, true
			}
		})
		if recovered {
			return n, err
		}
		return 0, cause
	}
}

// Close idempotently transitions the stream to Closed and releases the fd.
func (s *FDStream) Close() error {
	s.submitSync(func() {
		if !s.openFlag.Load() {
			return
		}
		s.closeLocked()
	})
	return nil
}

func (s *FDStream) closeLocked() {
	s.log.Debug().Msg("stream closing")
	if s.readWaiter != nil {
		s.readWaiter.w.StopTimeout()
		s.readWaiter.w.Reject(ErrClosed)
		s.readWaiter = nil
	}
	s.failAllWritesLocked(ErrClosed)
	s.openFlag.Store(false)
	s.writableFlag.Store(false)
	s.readableFlag.Store(false)
	_ = unix.Close(s.fd)
	s.markTerminal()
}

func (s *FDStream) failAllWritesLocked(cause error) {
	for e := s.writeQueue.Front(); e != nil; {
		next := e.Next()
		entry := e.Value.(*fdWriteEntry)
		entry.w.StopTimeout()
		entry.w.Reject(cause)
		s.writeQueue.Remove(e)
		e = next
	}
	if cause == ErrTimeout {
		if s.readWaiter != nil {
			s.readWaiter.w.StopTimeout()
			s.readWaiter.w.Reject(cause)
			s.readWaiter = nil
		}
		s.openFlag.Store(false)
		s.writableFlag.Store(false)
		s.readableFlag.Store(false)
		_ = unix.Close(s.fd)
		s.markTerminal()
	}
}

// fdWriter adapts a raw fd to io.Writer so sing's vectorised-writer
// detection has something to probe; plain fds never satisfy the
// vectorised-writer interface, so CreateVectorisedWriter reports false and
// tryFlushWrites takes its plain unix.Write branch -- kept for parity with
// the teacher's sendLoop, which probes the same way regardless of whether
// the underlying conn actually supports scatter-gather I/O.
type fdWriter struct{ fd int }

func (w fdWriter) Write(p []byte) (int, error) {
	return unix.Write(w.fd, p)
}
