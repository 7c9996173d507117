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
	"errors"
	"fmt"
	"net"

	pkgerrors "github.com/pkg/errors"
)

// Sentinel errors surfaced by Read, Write, End and Pipe. Callers should use
// errors.Is against these rather than comparing with ==.
var (
	// ErrUnreadable is returned by Read on a stream whose read side has
	// already observed close.
	ErrUnreadable = errors.New("aio: stream is not readable")

	// ErrUnwritable is returned by Write/End once the write side has been
	// closed, either explicitly or via End.
	ErrUnwritable = errors.New("aio: stream is not writable")

	// ErrClosed rejects waiters (pending reads, queued writes) that were
	// outstanding when the stream was closed.
	ErrClosed = errors.New("aio: stream is closed")

	// ErrBusy is returned by Read when a read is already pending.
	ErrBusy = errors.New("aio: a read is already pending")

	// ErrInvalidArgument is returned for malformed arguments: a negative
	// file descriptor passed to NewFDStream, or bytes that TextReader cannot
	// decode as UTF-8.
	ErrInvalidArgument = errors.New("aio: invalid argument")

	// ErrTimeout is returned when a Waiter's attached timeout fires before
	// it is otherwise resolved. It implements net.Error so callers that
	// type-switch on net.Error (as is common when a Readable/Writable is
	// threaded through code expecting a net.Conn) see the expected shape.
	ErrTimeout net.Error = &timeoutError{}
)

type timeoutError struct{}

func (*timeoutError) Error() string   { return "aio: timeout" }
func (*timeoutError) Timeout() bool   { return true }
func (*timeoutError) Temporary() bool { return true }

// Failure wraps an I/O failure surfaced by the file-descriptor-backed
// variant (a raw read(2)/write(2) returning an unexpected errno). It carries
// a stack trace captured at the syscall site via github.com/pkg/errors so
// that %+v formatting of a Failure reveals where the syscall was made, not
// just where it surfaced to the caller.
type Failure struct {
	Op  string
	err error
}

func newFailure(op string, cause error) *Failure {
	return &Failure{Op: op, err: pkgerrors.WithStack(cause)}
}

func (f *Failure) Error() string {
	return "aio: " + f.Op + ": " + f.err.Error()
}

func (f *Failure) Unwrap() error { return f.err }

// Format implements fmt.Formatter so that fmt.Sprintf("%+v", err) prints the
// stack trace captured by pkg/errors.
func (f *Failure) Format(s fmt.State, verb rune) {
	if formatter, ok := f.err.(interface {
		Format(fmt.State, rune)
	}); ok && verb == 'v' && s.Flag('+') {
		fmt.Fprintf(s, "aio: %s: ", f.Op)
		formatter.Format(s, verb)
		return
	}
	fmt.Fprint(s, f.Error())
}
