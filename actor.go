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

// actor is the single-goroutine command loop shared by MemoryStream and
// FDStream. It reproduces spec §5's "single-threaded cooperative, no
// locking" scheduling model: commands submitted to it run one at a time, to
// completion, with no other command interleaved in between -- the Go analog
// of the teacher's shaperLoop/sendLoop (session.go:488-585), a goroutine that
// receives closures off a channel and executes them serially.
//
// Suspension happens in the *caller*, not in the actor: a command that needs
// to park (installing a readWaiter, queueing a writer) just stores state and
// returns: the actor is free to process the next command immediately. The
// caller then blocks on its own Waiter, which some *later* command (a write
// arriving, a close) will resolve.
type actor struct {
	cmds     chan func()
	stopped  chan struct{}
	terminal bool // only ever read/written by the actor goroutine itself
}

func newActor() *actor {
	a := &actor{
		cmds:    make(chan func()),
		stopped: make(chan struct{}),
	}
	go a.run()
	return a
}

func (a *actor) run() {
	defer close(a.stopped)
	for {
		cmd := <-a.cmds
		cmd()
		if a.terminal {
			return
		}
	}
}

// submit enqueues cmd for the actor to run, without waiting for it to run.
// Returns false if the actor has already stopped (terminal state reached).
func (a *actor) submit(cmd func()) bool {
	select {
	case a.cmds <- cmd:
		return true
	case <-a.stopped:
		return false
	}
}

// submitSync enqueues cmd and blocks until the actor has finished running
// it. Used wherever the caller needs a linearization point -- e.g. the
// cancellation path, which must observe whether the actor resolved the
// waiter in the same instant the caller decided to cancel it.
func (a *actor) submitSync(cmd func()) bool {
	done := make(chan struct{})
	ok := a.submit(func() {
		cmd()
		close(done)
	})
	if !ok {
		return false
	}
	<-done
	return true
}

// markTerminal tells the actor's loop to exit once the currently-running
// command returns. Must only be called from within a command running on the
// actor goroutine itself (e.g. the tail of a close command), never from an
// outside caller -- a.terminal has no synchronization of its own, it relies
// entirely on being touched by one goroutine at a time.
func (a *actor) markTerminal() {
	a.terminal = true
}
