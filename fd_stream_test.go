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
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sagernet/aio"
)

func TestFDStreamWriteReadRoundtrip(t *testing.T) {
	r, w, err := aio.NewPipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()

	ctx := context.Background()
	done := make(chan struct{})
	go func() {
		defer close(done)
		n, err := w.Write(ctx, []byte("hello world"), 0)
		require.NoError(t, err)
		require.Equal(t, 11, n)
	}()

	// A real OS pipe is already writable/readable once data lands in the
	// kernel buffer; poll via Notify* the way a caller-owned event loop
	// would, since this test has none.
	var got []byte
	for i := 0; i < 100 && len(got) == 0; i++ {
		w.NotifyWritable()
		r.NotifyReadable()
		time.Sleep(2 * time.Millisecond)
	}

	readDone := make(chan struct{})
	var readErr error
	go func() {
		defer close(readDone)
		got, readErr = r.Read(ctx, 0, aio.NoDelimiter(), 2*time.Second)
	}()
poll:
	for i := 0; i < 200; i++ {
		r.NotifyReadable()
		select {
		case <-readDone:
			break poll
		default:
			time.Sleep(2 * time.Millisecond)
		}
	}
	<-readDone
	<-done
	require.NoError(t, readErr)
	require.Equal(t, "hello world", string(got))
}

func TestFDStreamBusyExclusion(t *testing.T) {
	r, w, err := aio.NewPipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()

	ctx := context.Background()
	go r.Read(ctx, 0, aio.NoDelimiter(), 0)
	time.Sleep(20 * time.Millisecond)

	_, err = r.Read(ctx, 0, aio.NoDelimiter(), 0)
	require.ErrorIs(t, err, aio.ErrBusy)
}

func TestFDStreamEOFOnWriterClose(t *testing.T) {
	r, w, err := aio.NewPipe()
	require.NoError(t, err)
	defer r.Close()

	require.NoError(t, w.Close())

	ctx := context.Background()
	readDone := make(chan struct{})
	var got []byte
	var readErr error
	go func() {
		defer close(readDone)
		got, readErr = r.Read(ctx, 0, aio.NoDelimiter(), 2*time.Second)
	}()
poll:
	for i := 0; i < 200; i++ {
		r.NotifyReadable()
		select {
		case <-readDone:
			break poll
		default:
			time.Sleep(2 * time.Millisecond)
		}
	}
	<-readDone
	require.NoError(t, readErr)
	require.Empty(t, got)
	require.False(t, r.IsOpen())
}
