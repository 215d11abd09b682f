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

// Package virtual provides a wire-level radio co-processor for tests. It
// speaks the bridge protocol over io.ReadWriter so the serial and SPI
// backends can be exercised without hardware.
package virtual

import (
	"io"
	"time"

	radio "github.com/ZaparooProject/go-nrfradio"
	"github.com/ZaparooProject/go-nrfradio/internal/bridge"
	"github.com/ZaparooProject/go-nrfradio/internal/syncutil"
)

// DefaultReadTimeout is how long Read waits for output before returning
// zero bytes, like a serial port with a read timeout.
const DefaultReadTimeout = 10 * time.Millisecond

// Radio is a simulated radio co-processor
type Radio struct {
	status   map[bridge.Command]byte
	ready    chan struct{}
	in       []byte
	out      []byte
	sent     [][]byte
	commands []bridge.Command
	settings radio.Settings
	timeout  time.Duration
	mu       syncutil.Mutex
	dropACKs int
	nacks    int
	enabled  bool
	loopback bool
	closed   bool
}

// NewRadio creates a powered-off co-processor
func NewRadio() *Radio {
	return &Radio{
		status:  make(map[bridge.Command]byte),
		ready:   make(chan struct{}, 1),
		timeout: DefaultReadTimeout,
	}
}

// SetLoopback makes every transmitted frame come back as a received packet
// while the receiver is on.
func (r *Radio) SetLoopback(on bool) {
	r.mu.Lock()
	r.loopback = on
	r.mu.Unlock()
}

// SetStatus forces the status byte returned for cmd. StatusOK clears it.
func (r *Radio) SetStatus(cmd bridge.Command, status byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if status == bridge.StatusOK {
		delete(r.status, cmd)
		return
	}
	r.status[cmd] = status
}

// DropNextACK swallows the next command entirely: no ACK, no response
func (r *Radio) DropNextACK() {
	r.mu.Lock()
	r.dropACKs++
	r.mu.Unlock()
}

// InjectNACK answers the next command with a NACK
func (r *Radio) InjectNACK() {
	r.mu.Lock()
	r.nacks++
	r.mu.Unlock()
}

// Write accepts bytes from the host
func (r *Radio) Write(data []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return 0, io.ErrClosedPipe
	}

	r.in = append(r.in, data...)
	for len(r.in) > 0 {
		f, n, err := bridge.Decode(r.in)
		r.in = r.in[n:]
		if err != nil {
			if err == bridge.ErrIncomplete { //nolint:errorlint // sentinel returned unwrapped
				break
			}
			continue
		}
		r.handle(f)
	}
	r.signal()
	return len(data), nil
}

// Read returns bytes for the host, waiting up to the read timeout
func (r *Radio) Read(buf []byte) (int, error) {
	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	for {
		r.mu.Lock()
		if len(r.out) > 0 {
			n := copy(buf, r.out)
			r.out = r.out[n:]
			r.mu.Unlock()
			return n, nil
		}
		closed := r.closed
		r.mu.Unlock()
		if closed {
			return 0, io.EOF
		}

		select {
		case <-r.ready:
		case <-timer.C:
			return 0, nil
		}
	}
}

// Pending reports whether output is waiting to be read
func (r *Radio) Pending() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.out) > 0
}

// Close makes further reads return io.EOF
func (r *Radio) Close() error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.signal()
	return nil
}

// InjectPacket queues a received frame ([len][payload...]) for the host.
// It returns false when the receiver is off.
func (r *Radio) InjectPacket(frame []byte) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.enabled {
		return false
	}
	r.out = bridge.AppendFrame(r.out, bridge.RadioToHost, bridge.CmdPacket, frame)
	r.signal()
	return true
}

// InjectNoise queues raw bytes for the host
func (r *Radio) InjectNoise(data []byte) {
	r.mu.Lock()
	r.out = append(r.out, data...)
	r.mu.Unlock()
	r.signal()
}

// Settings returns the last configured settings
func (r *Radio) Settings() radio.Settings {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.settings
}

// Enabled reports whether the receiver is on
func (r *Radio) Enabled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.enabled
}

// Sent returns copies of all transmitted frames
func (r *Radio) Sent() [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([][]byte, len(r.sent))
	for i, f := range r.sent {
		out[i] = append([]byte(nil), f...)
	}
	return out
}

// Commands returns every command received, in order
func (r *Radio) Commands() []bridge.Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]bridge.Command(nil), r.commands...)
}

func (r *Radio) signal() {
	select {
	case r.ready <- struct{}{}:
	default:
	}
}

func (r *Radio) handle(f bridge.Frame) {
	if f.Kind != bridge.KindData || f.TFI != bridge.HostToRadio {
		return
	}
	if r.nacks > 0 {
		r.nacks--
		r.out = append(r.out, bridge.NackFrame...)
		return
	}
	if r.dropACKs > 0 {
		r.dropACKs--
		return
	}

	r.commands = append(r.commands, f.Cmd)
	r.out = append(r.out, bridge.AckFrame...)

	status, forced := r.status[f.Cmd]
	var echo []byte
	if !forced {
		status, echo = r.execute(f)
	}
	r.out = bridge.AppendFrame(r.out, bridge.RadioToHost, f.Cmd.Response(), []byte{status})
	if echo != nil {
		r.out = bridge.AppendFrame(r.out, bridge.RadioToHost, bridge.CmdPacket, echo)
	}
}

func (r *Radio) execute(f bridge.Frame) (status byte, echo []byte) {
	switch f.Cmd {
	case bridge.CmdConfigure:
		s, err := bridge.DecodeSettings(f.Data)
		if err != nil {
			return bridge.StatusRejected, nil
		}
		r.settings = s
	case bridge.CmdEnable:
		r.enabled = true
	case bridge.CmdDisable:
		r.enabled = false
	case bridge.CmdTransmit:
		if len(f.Data) == 0 || int(f.Data[0])+1 != len(f.Data) {
			return bridge.StatusRejected, nil
		}
		r.sent = append(r.sent, f.Data)
		if r.loopback && r.enabled {
			echo = f.Data
		}
	default:
		return bridge.StatusRejected, nil
	}
	return bridge.StatusOK, echo
}
