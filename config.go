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
	"github.com/rs/zerolog"
)

// Config tunes a MemoryStream or FDStream, following the teacher's
// Config/DefaultConfig/VerifyConfig triplet (mux.go).
type Config struct {
	// HighWaterMark is the buffered-byte threshold above which writes
	// suspend until a reader drains the buffer back down to it. 0 disables
	// backpressure entirely. Negative values are clamped to 0 (spec §6).
	HighWaterMark int

	// InitialData seeds the stream's buffer at construction (spec §6).
	InitialData []byte

	// Logger receives debug/trace-level state-transition events. nil means
	// logging is off (VerifyConfig substitutes zerolog.Nop()).
	Logger *zerolog.Logger
}

// DefaultConfig returns a Config with backpressure disabled, no initial
// data, and logging off.
func DefaultConfig() *Config {
	return &Config{}
}

// VerifyConfig normalizes c, clamping a negative HighWaterMark to 0 per
// spec §6 rather than rejecting it, and filling in a no-op Logger when none
// was supplied. A nil c is treated as DefaultConfig().
func VerifyConfig(c *Config) *Config {
	var out Config
	if c != nil {
		out = *c
	}
	if out.HighWaterMark < 0 {
		out.HighWaterMark = 0
	}
	if out.Logger == nil {
		nop := zerolog.Nop()
		out.Logger = &nop
	}
	return &out
}
