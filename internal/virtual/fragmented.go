// Copyright 2026 The Zaparoo Project Contributors.
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package virtual

import (
	"io"
	"math/rand/v2"
)

// FragmentedConn wraps a connection and hands its output back in random
// fragments, the way a USB-UART bridge splits data. Writes pass through.
type FragmentedConn struct {
	backend io.ReadWriter
	rng     *rand.Rand
	pending []byte
}

// NewFragmentedConn wraps backend. The seed makes fragmentation
// reproducible.
func NewFragmentedConn(backend io.ReadWriter, seed uint64) *FragmentedConn {
	return &FragmentedConn{
		backend: backend,
		rng:     rand.New(rand.NewPCG(seed, seed^0x6E726631)), //nolint:gosec // test helper
	}
}

// Write passes data through unchanged
func (c *FragmentedConn) Write(data []byte) (int, error) {
	return c.backend.Write(data) //nolint:wrapcheck // pass-through
}

// Read returns between one byte and len(buf) bytes of the backend output
func (c *FragmentedConn) Read(buf []byte) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}
	if len(c.pending) == 0 {
		tmp := make([]byte, len(buf))
		n, err := c.backend.Read(tmp)
		if n == 0 {
			return 0, err //nolint:wrapcheck // pass-through
		}
		c.pending = append(c.pending, tmp[:n]...)
	}

	n := 1 + c.rng.IntN(len(c.pending))
	n = min(n, len(buf))
	copy(buf, c.pending[:n])
	c.pending = c.pending[n:]
	return n, nil
}
