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

package aio_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sagernet/aio"
)

func TestWaiterResolveOnce(t *testing.T) {
	w := aio.NewWaiter[int]()
	require.True(t, w.Resolve(42))
	require.False(t, w.Resolve(43))
	require.False(t, w.Reject(errors.New("too late")))

	v, err := w.Wait(context.Background())
	require.NoError(t, err)
	require.Equal(t, 42, v)
}

func TestWaiterRejectOnce(t *testing.T) {
	w := aio.NewWaiter[int]()
	sentinel := errors.New("boom")
	require.True(t, w.Reject(sentinel))

	_, err := w.Wait(context.Background())
	require.Equal(t, sentinel, err)
}

func TestWaiterWaitContextCancel(t *testing.T) {
	w := aio.NewWaiter[int]()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := w.Wait(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestWaiterAttachTimeoutFires(t *testing.T) {
	w := aio.NewWaiter[int]()
	fired := make(chan struct{})
	w.AttachTimeout(10*time.Millisecond, func() {
		w.Reject(aio.ErrTimeout)
		close(fired)
	})

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("timeout callback never fired")
	}

	_, err := w.Wait(context.Background())
	require.ErrorIs(t, err, aio.ErrTimeout)
}

func TestWaiterStopTimeoutPreventsFiring(t *testing.T) {
	w := aio.NewWaiter[int]()
	w.AttachTimeout(20*time.Millisecond, func() {
		w.Reject(aio.ErrTimeout)
	})
	w.StopTimeout()
	w.Resolve(7)

	time.Sleep(40 * time.Millisecond)
	v, err := w.Wait(context.Background())
	require.NoError(t, err)
	require.Equal(t, 7, v)
}

func TestWaiterDrain(t *testing.T) {
	w := aio.NewWaiter[int]()
	_, _, ok := w.Drain()
	require.False(t, ok)

	w.Resolve(9)
	v, err, ok := w.Drain()
	require.True(t, ok)
	require.NoError(t, err)
	require.Equal(t, 9, v)
}
