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

// Delimiter is the Go encoding of spec §9's tagged variant for the
// dynamically-typed delimiter argument (byte | string | integer | null):
// here it's a small value type built through one of the constructors below
// instead of a runtime type switch.
type Delimiter struct {
	enabled bool
	b       byte
}

// NoDelimiter disables delimiter-based framing: reads are bounded only by
// length (or drain everything, if length is also unspecified).
func NoDelimiter() Delimiter {
	return Delimiter{}
}

// ByteDelimiter frames reads on the given byte, included in the result.
func ByteDelimiter(b byte) Delimiter {
	return Delimiter{enabled: true, b: b}
}

// StringDelimiter uses the last byte of s as the delimiter, per spec §4.1.
// The empty string is equivalent to NoDelimiter.
func StringDelimiter(s string) Delimiter {
	if len(s) == 0 {
		return Delimiter{}
	}
	return Delimiter{enabled: true, b: s[len(s)-1]}
}

// Enabled reports whether delimiter-based framing applies.
func (d Delimiter) Enabled() bool { return d.enabled }

// Byte returns the delimiter byte. Only meaningful when Enabled() is true.
func (d Delimiter) Byte() byte { return d.b }
