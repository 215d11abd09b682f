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
	"io"
	"sync"
	"sync/atomic"
	"time"

	radio "github.com/ZaparooProject/go-nrfradio"
	"github.com/ZaparooProject/go-nrfradio/internal/syncutil"
)

// EventQueueLength is how many received packets may wait for dispatch
// before further packets are dropped.
const EventQueueLength = 64

// Link runs the command protocol over a byte stream. One command is in
// flight at a time. Packet events are handed to the event handler from a
// dedicated goroutine, in arrival order, so a slow handler cannot stall a
// pending command.
type Link struct {
	rw          io.ReadWriter
	reader      *Reader
	onEvent     func(frame []byte)
	readErr     error
	acks        chan Kind
	responses   chan Frame
	events      chan []byte
	done        chan struct{}
	broken      chan struct{}
	hw          radio.HardwareType
	port        string
	wg          sync.WaitGroup
	dropped     atomic.Uint64
	ackTimeout  time.Duration
	respTimeout time.Duration
	callMu      syncutil.Mutex
	eventMu     syncutil.RWMutex
	startOnce   sync.Once
	closeOnce   sync.Once
	brokenOnce  sync.Once
}

// NewLink creates a link over rw. Start must be called before Call.
func NewLink(rw io.ReadWriter, hw radio.HardwareType, port string) *Link {
	return &Link{
		rw:          rw,
		reader:      NewReader(rw),
		acks:        make(chan Kind, 1),
		responses:   make(chan Frame, 1),
		events:      make(chan []byte, EventQueueLength),
		done:        make(chan struct{}),
		broken:      make(chan struct{}),
		hw:          hw,
		port:        port,
		ackTimeout:  radio.BridgeACKTimeout,
		respTimeout: radio.BridgeResponseTimeout,
	}
}

// SetTimeouts overrides the ACK and response timeouts
func (l *Link) SetTimeouts(ack, response time.Duration) {
	l.callMu.Lock()
	defer l.callMu.Unlock()
	l.ackTimeout = ack
	l.respTimeout = response
}

// SetEventHandler sets the function receiving packet events. A nil handler
// discards them.
func (l *Link) SetEventHandler(fn func(frame []byte)) {
	l.eventMu.Lock()
	l.onEvent = fn
	l.eventMu.Unlock()
}

// Dropped returns the number of packet events discarded because the
// dispatch queue was full
func (l *Link) Dropped() uint64 {
	return l.dropped.Load()
}

// Start launches the reader and dispatch goroutines
func (l *Link) Start() {
	l.startOnce.Do(func() {
		l.wg.Add(2)
		go l.readLoop()
		go l.dispatchLoop()
	})
}

// Close stops the goroutines. The port must be closed (or its reads must
// time out) for the reader to notice.
func (l *Link) Close() {
	l.closeOnce.Do(func() {
		close(l.done)
	})
	l.wg.Wait()
}

func (l *Link) closed() bool {
	select {
	case <-l.done:
		return true
	default:
		return false
	}
}

func (l *Link) fail(err error) {
	l.brokenOnce.Do(func() {
		l.readErr = err
		close(l.broken)
	})
}

func (l *Link) readLoop() {
	defer l.wg.Done()
	for !l.closed() {
		f, err := l.reader.ReadFrame()
		if err != nil {
			if errors.Is(err, radio.ErrHardwareTimeout) {
				continue
			}
			if l.closed() {
				return
			}
			radio.Debugf("bridge %s: read failed: %v", l.port, err)
			if radio.IsFatal(err) || errors.Is(err, io.EOF) {
				l.fail(radio.NewHardwareError(l.hw, "read", l.port, err, radio.ErrorTypePermanent))
				return
			}
			continue
		}
		l.route(f)
	}
}

func (l *Link) route(f Frame) {
	switch f.Kind {
	case KindACK, KindNACK:
		select {
		case l.acks <- f.Kind:
		default:
			radio.Debugf("bridge %s: unexpected ACK/NACK", l.port)
		}
	case KindData:
		if f.TFI != RadioToHost {
			radio.Debugf("bridge %s: ignoring frame with TFI %02X", l.port, f.TFI)
			return
		}
		if f.Cmd == CmdPacket {
			select {
			case l.events <- f.Data:
			default:
				l.dropped.Add(1)
			}
			return
		}
		select {
		case l.responses <- f:
		default:
			radio.Debugf("bridge %s: unexpected %s", l.port, f.Cmd)
		}
	}
}

func (l *Link) dispatchLoop() {
	defer l.wg.Done()
	for {
		select {
		case <-l.done:
			return
		case frame := <-l.events:
			l.eventMu.RLock()
			fn := l.onEvent
			l.eventMu.RUnlock()
			if fn != nil {
				fn(frame)
			}
		}
	}
}

func (l *Link) drain() {
	for {
		select {
		case <-l.acks:
		case <-l.responses:
		default:
			return
		}
	}
}

// Call sends cmd with data and returns the response data after the status
// byte.
func (l *Link) Call(cmd Command, data []byte) ([]byte, error) {
	l.callMu.Lock()
	defer l.callMu.Unlock()

	op := cmd.String()
	if l.closed() {
		return nil, radio.NewHardwareError(l.hw, op, l.port, radio.ErrHardwareClosed, radio.ErrorTypePermanent)
	}

	frame, err := Encode(HostToRadio, cmd, data)
	if err != nil {
		return nil, radio.NewHardwareError(l.hw, op, l.port, err, radio.ErrorTypePermanent)
	}

	select {
	case <-l.broken:
		return nil, l.readErr
	default:
	}

	l.drain()
	if _, err := l.rw.Write(frame); err != nil {
		errType := radio.ErrorTypeTransient
		if radio.IsFatal(err) {
			errType = radio.ErrorTypePermanent
		}
		return nil, radio.NewHardwareError(l.hw, op, l.port, err, errType)
	}

	if err := l.waitACK(op); err != nil {
		return nil, err
	}
	return l.waitResponse(cmd, op)
}

func (l *Link) waitACK(op string) error {
	timer := time.NewTimer(l.ackTimeout)
	defer timer.Stop()

	select {
	case kind := <-l.acks:
		if kind == KindNACK {
			return radio.NewHardwareError(l.hw, op, l.port, radio.ErrNACKReceived, radio.ErrorTypeTransient)
		}
		return nil
	case <-timer.C:
		return radio.NewNoACKError(l.hw, op, l.port)
	case <-l.broken:
		return l.readErr
	case <-l.done:
		return radio.NewHardwareError(l.hw, op, l.port, radio.ErrHardwareClosed, radio.ErrorTypePermanent)
	}
}

func (l *Link) waitResponse(cmd Command, op string) ([]byte, error) {
	timer := time.NewTimer(l.respTimeout)
	defer timer.Stop()

	for {
		select {
		case resp := <-l.responses:
			if resp.Cmd != cmd.Response() {
				radio.Debugf("bridge %s: got %s while waiting for %s", l.port, resp.Cmd, cmd.Response())
				continue
			}
			return checkStatus(l.hw, op, l.port, resp.Data)
		case <-timer.C:
			return nil, radio.NewTimeoutError(l.hw, op, l.port)
		case <-l.broken:
			return nil, l.readErr
		case <-l.done:
			return nil, radio.NewHardwareError(l.hw, op, l.port, radio.ErrHardwareClosed, radio.ErrorTypePermanent)
		}
	}
}
