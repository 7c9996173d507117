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

	"github.com/stretchr/testify/require"

	"github.com/sagernet/aio"
)

func TestPipeLengthCap(t *testing.T) {
	from := aio.NewMemoryStream(&aio.Config{InitialData: []byte("abcdefghijklmnopqrstuvwxyz")})
	to := aio.NewMemoryStream(aio.DefaultConfig())
	defer from.Close()
	defer to.Close()

	opts := aio.DefaultPipeOptions()
	opts.Length = 10
	opts.EndOnFinish = false

	n, err := aio.Pipe(context.Background(), from, to, opts)
	require.NoError(t, err)
	require.EqualValues(t, 10, n)

	got, err := to.Read(context.Background(), 0, aio.NoDelimiter(), 0)
	require.NoError(t, err)
	require.Equal(t, "abcdefghij", string(got))
}

func TestPipeDelimiterTermination(t *testing.T) {
	from := aio.NewMemoryStream(&aio.Config{InitialData: []byte("abc!def")})
	to := aio.NewMemoryStream(aio.DefaultConfig())
	defer from.Close()
	defer to.Close()

	opts := aio.DefaultPipeOptions()
	opts.Delim = aio.ByteDelimiter('!')
	opts.EndOnFinish = false

	n, err := aio.Pipe(context.Background(), from, to, opts)
	require.NoError(t, err)
	require.EqualValues(t, 4, n)

	got, err := to.Read(context.Background(), 0, aio.NoDelimiter(), 0)
	require.NoError(t, err)
	require.Equal(t, "abc!", string(got))
}

func TestPipeEndOnFinishCalledOnce(t *testing.T) {
	from := aio.NewMemoryStream(&aio.Config{InitialData: []byte("hello")})
	from.Close() // the first Read fails with ErrUnreadable; nothing is transferred

	to := aio.NewMemoryStream(aio.DefaultConfig())
	defer to.Close()

	opts := aio.DefaultPipeOptions()
	_, err := aio.Pipe(context.Background(), from, to, opts)
	require.ErrorIs(t, err, aio.ErrUnreadable)
	require.False(t, to.IsWritable())
}

func TestPipeOnChunkCallback(t *testing.T) {
	from := aio.NewMemoryStream(&aio.Config{InitialData: []byte("abcdefghij")})
	to := aio.NewMemoryStream(aio.DefaultConfig())
	defer from.Close()
	defer to.Close()

	var total int
	opts := aio.DefaultPipeOptions()
	opts.Length = 10
	opts.EndOnFinish = false
	opts.OnChunk = func(n int) { total += n }

	n, err := aio.Pipe(context.Background(), from, to, opts)
	require.NoError(t, err)
	require.EqualValues(t, total, n)
}
