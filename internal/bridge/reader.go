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

package bridge

import (
	"errors"
	"fmt"
	"io"

	radio "github.com/ZaparooProject/go-nrfradio"
)

// readChunk is the size of a single read from the underlying port
const readChunk = 64

// Reader extracts frames from a byte stream, resynchronising after noise
// or corrupted frames.
type Reader struct {
	r       io.Reader
	pending []byte
	chunk   [readChunk]byte
	// Skipped counts bytes discarded while looking for a valid frame
	Skipped int
}

// NewReader returns a Reader over r
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r, pending: make([]byte, 0, MaxFrameLength)}
}

// ReadFrame returns the next valid frame. A read that returns no bytes and
// no error, as a serial port does on timeout, yields
// radio.ErrHardwareTimeout so the caller can check for shutdown.
func (r *Reader) ReadFrame() (Frame, error) {
	for {
		if len(r.pending) > 0 {
			f, n, err := Decode(r.pending)
			r.consume(n, err)
			if err == nil {
				return f, nil
			}
			if !errors.Is(err, ErrIncomplete) {
				radio.Debugf("bridge: resync after %v", err)
				continue
			}
		}

		n, err := r.r.Read(r.chunk[:])
		if n > 0 {
			r.pending = append(r.pending, r.chunk[:n]...)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return Frame{}, err
			}
			return Frame{}, fmt.Errorf("%w: %w", radio.ErrHardwareRead, err)
		}
		if n == 0 {
			return Frame{}, radio.ErrHardwareTimeout
		}
	}
}

func (r *Reader) consume(n int, err error) {
	if err != nil && n > 0 {
		r.Skipped += n
	}
	r.pending = append(r.pending[:0], r.pending[n:]...)
}

// Reset discards any buffered input
func (r *Reader) Reset() {
	r.pending = r.pending[:0]
}
