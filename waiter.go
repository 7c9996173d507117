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
	"sync/atomic"
	"time"
)

// Waiter is a generic one-shot completion cell: pending -> resolved(T) |
// rejected(error). It is the Go encoding of spec §3's Waiter component,
// modelled on the teacher's writeRequest/writeResult channel pair
// (session.go's writeFrameInternal sends a writeRequest and blocks on its
// buffered result channel exactly the way Wait blocks below).
//
// A Waiter fires at most once: Resolve/Reject after the first successful
// call are no-ops, matching spec §3 ("transitions are terminal").
type Waiter[T any] struct {
	ch    chan waiterResult[T]
	fired atomic.Bool
	timer *time.Timer
}

type waiterResult[T any] struct {
	value T
	err   error
}

// NewWaiter returns a pending Waiter.
func NewWaiter[T any]() *Waiter[T] {
	return &Waiter[T]{ch: make(chan waiterResult[T], 1)}
}

// Resolve fires the waiter with a value. Returns false if it had already
// fired.
func (w *Waiter[T]) Resolve(v T) bool {
	if !w.fired.CompareAndSwap(false, true) {
		return false
	}
	w.ch <- waiterResult[T]{value: v}
	return true
}

// Reject fires the waiter with an error. Returns false if it had already
// fired.
func (w *Waiter[T]) Reject(err error) bool {
	if !w.fired.CompareAndSwap(false, true) {
		return false
	}
	w.ch <- waiterResult[T]{err: err}
	return true
}

// AttachTimeout arms a timer that invokes onTimeout after d if the waiter is
// still outstanding. onTimeout is expected to reject the waiter itself (from
// inside the owning stream's actor, so it can also clear the stream's
// reference to this waiter) -- see spec §3 ("a Waiter may carry an
// associated timeout which, on firing, transitions Pending -> Rejected").
// d <= 0 disables the timeout, per spec §4.1 ("timeout: ... 0 disables").
func (w *Waiter[T]) AttachTimeout(d time.Duration, onTimeout func()) {
	if d <= 0 {
		return
	}
	w.timer = time.AfterFunc(d, onTimeout)
}

// StopTimeout disarms the timeout timer, if any. Safe to call multiple
// times and on a Waiter with no timer.
func (w *Waiter[T]) StopTimeout() {
	if w.timer != nil {
		w.timer.Stop()
	}
}

// Wait blocks until the waiter fires or ctx is cancelled. A ctx cancellation
// is the Go encoding of spec §3/§5's "cancellation of the pending
// [operation]": the caller supplies the cancellation cause via ctx.Err().
func (w *Waiter[T]) Wait(ctx context.Context) (T, error) {
	select {
	case r := <-w.ch:
		return r.value, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Drain attempts a non-blocking receive of an already-fired result. It is
// used by the cancellation path in memory_stream.go / fd_stream.go to
// recover a result that resolved concurrently with a cancellation request,
// so that data already extracted from the buffer into this Waiter is never
// silently dropped (spec §8 invariant 1: "never fabricates, drops, or
// reorders bytes").
func (w *Waiter[T]) Drain() (T, error, bool) {
	select {
	case r := <-w.ch:
		return r.value, r.err, true
	default:
		var zero T
		return zero, nil, false
	}
}
