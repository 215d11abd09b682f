// go-nrfradio
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-nrfradio.
//
// go-nrfradio is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-nrfradio is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-nrfradio; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

package radio

import (
	"errors"
	"fmt"

	"github.com/ZaparooProject/go-nrfradio/internal/syncutil"
)

// Stats counts packets through the engine since it was created
type Stats struct {
	// Accepted is the number of received frames queued
	Accepted uint64
	// Dropped is the number of received frames discarded because the queue
	// was full or the frame was malformed
	Dropped uint64
	// Sent is the number of frames handed to the hardware successfully
	Sent uint64
	// Received is the number of packets taken out of the queue
	Received uint64
}

// Engine owns the radio configuration, the packet buffer and the receive
// queue, and drives a Hardware backend.
//
// All methods are safe for concurrent use. Hardware deliveries are
// serialised against Receive through the same lock, and Send holds it for
// the whole transmission.
type Engine struct {
	hw         Hardware
	alloc      Allocator
	buf        *PacketBuffer
	queue      *ReceiveQueue
	stats      Stats
	generation uint64
	mu         syncutil.Mutex
	config     Config
	enabled    bool
}

// EngineOption configures an Engine at construction
type EngineOption func(*Engine) error

// WithConfig applies keyword options on top of the defaults
func WithConfig(opts ...Option) EngineOption {
	return func(e *Engine) error {
		next, _, err := e.config.Apply(opts...)
		if err != nil {
			return err
		}
		e.config = next
		return nil
	}
}

// WithAllocator sets the packet buffer allocator
func WithAllocator(alloc Allocator) EngineOption {
	return func(e *Engine) error {
		if alloc == nil {
			return errors.New("allocator must not be nil")
		}
		e.alloc = alloc
		return nil
	}
}

// WithRetry wraps the hardware so transient failures are retried
func WithRetry(config *RetryConfig) EngineOption {
	return func(e *Engine) error {
		e.hw = NewHardwareWithRetry(e.hw, config)
		return nil
	}
}

// New creates a disabled engine with the default configuration
func New(hw Hardware, opts ...EngineOption) (*Engine, error) {
	if hw == nil {
		return nil, errors.New("hardware must not be nil")
	}

	e := &Engine{
		hw:     hw,
		alloc:  DefaultAllocator,
		config: DefaultConfig(),
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, fmt.Errorf("failed to apply engine option: %w", err)
		}
	}
	return e, nil
}

// Enable allocates the packet buffer and turns the receiver on. If the
// engine is already enabled it is torn down and re-enabled, which empties
// the queue. A failed hardware Disable during the teardown does not stop
// the re-enable; its error is returned joined with any enable error. On
// enable failure the engine is left disabled.
func (e *Engine) Enable() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var teardownErr error
	if e.enabled {
		teardownErr = e.disableLocked()
		if teardownErr != nil {
			Debugf("radio: teardown before re-enable failed: %v", teardownErr)
		}
	}
	return errors.Join(teardownErr, e.enableLocked())
}

// Disable turns the receiver off and releases the packet buffer. Queued
// packets are discarded. Disabling a disabled engine does nothing.
func (e *Engine) Disable() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.disableLocked()
}

// Enabled reports whether the engine is enabled
func (e *Engine) Enabled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.enabled
}

// Config returns the committed configuration
func (e *Engine) Config() Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.config
}

// Stats returns a snapshot of the packet counters
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}

// Pending returns the number of queued packets, 0 when disabled
func (e *Engine) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.enabled {
		return 0
	}
	return e.queue.Len()
}

// Hardware returns the backend the engine drives
func (e *Engine) Hardware() Hardware {
	return e.hw
}

func (e *Engine) enableLocked() error {
	cfg := e.config
	buf, err := AllocatePacketBuffer(int(cfg.MaxPayload), int(cfg.QueueLen), e.alloc)
	if err != nil {
		Debugf("radio: enable failed: %v", err)
		return err
	}

	if err := e.hw.Configure(cfg.Settings()); err != nil {
		buf.Release()
		return fmt.Errorf("failed to configure hardware: %w", err)
	}

	e.generation++
	if err := e.hw.Enable(e.deliverFunc(e.generation)); err != nil {
		buf.Release()
		return fmt.Errorf("failed to enable hardware: %w", err)
	}

	e.buf = buf
	e.queue = NewReceiveQueue(buf)
	e.enabled = true
	Debugf("radio: enabled (%s, %d byte buffer)", cfg, buf.Len())
	return nil
}

func (e *Engine) disableLocked() error {
	if !e.enabled {
		return nil
	}

	e.enabled = false
	e.generation++
	e.buf.Release()
	e.buf = nil
	e.queue = nil
	Debugln("radio: disabled")

	if err := e.hw.Disable(); err != nil {
		return fmt.Errorf("failed to disable hardware: %w", err)
	}
	return nil
}

// deliverFunc binds a delivery callback to one buffer generation. Frames
// delivered after that buffer was released are discarded.
func (e *Engine) deliverFunc(generation uint64) DeliverFunc {
	return func(frame []byte) {
		e.mu.Lock()
		defer e.mu.Unlock()

		if !e.enabled || generation != e.generation {
			Debugf("radio: discarding frame for stale buffer generation %d", generation)
			return
		}
		if e.queue.Append(frame) == Accepted {
			e.stats.Accepted++
			return
		}
		e.stats.Dropped++
		Debugf("radio: dropped frame (%d queued, %d bytes free)", e.queue.Len(), e.queue.Free())
	}
}

// Send transmits payload. Payloads longer than the configured maximum are
// truncated.
func (e *Engine) Send(payload []byte) error {
	return e.SendParts(payload, nil)
}

// SendString transmits s tagged as a string packet
func (e *Engine) SendString(s string) error {
	return e.SendParts(StringTag, []byte(s))
}

// SendParts transmits header followed by body as one packet. If the two do
// not fit, body bytes are dropped first, then header bytes. The call returns
// once the hardware has sent the frame; no packet is queued meanwhile.
func (e *Engine) SendParts(header, body []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.enabled {
		return ErrNotEnabled
	}

	tx := e.buf.Bytes(e.buf.TxSlot())
	n := EncodeFrame(tx, e.buf.MaxPayload(), header, body)
	if err := e.hw.Transmit(tx[:n]); err != nil {
		return fmt.Errorf("failed to transmit: %w", err)
	}
	e.stats.Sent++
	return nil
}

// Receive takes the oldest queued packet. ok is false when the queue is
// empty. A typed read of a packet without the string tag still consumes it
// and returns ErrNotAString along with the raw payload.
func (e *Engine) Receive(typed bool) (pkt Packet, ok bool, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.enabled {
		return Packet{}, false, ErrNotEnabled
	}

	payload, ok := e.queue.PopOldest()
	if !ok {
		return Packet{}, false, nil
	}
	e.stats.Received++

	pkt, err = Decode(payload, typed)
	return pkt, true, err
}

// ReceiveBytes takes the oldest queued packet as raw bytes
func (e *Engine) ReceiveBytes() ([]byte, bool, error) {
	pkt, ok, err := e.Receive(false)
	return pkt.Payload, ok, err
}

// ReceiveString takes the oldest queued packet as a string
func (e *Engine) ReceiveString() (string, bool, error) {
	pkt, ok, err := e.Receive(true)
	return pkt.Text, ok, err
}

// Configure validates opts and commits them all or none. While enabled, a
// change of length or queue rebuilds the buffer (discarding queued
// packets); any other change is pushed to the hardware with the queue kept.
func (e *Engine) Configure(opts ...Option) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	next, change, err := e.config.Apply(opts...)
	if err != nil {
		return err
	}
	return e.commitLocked(next, change)
}

// Reset restores the default configuration under the same rules as
// Configure.
func (e *Engine) Reset() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	next := DefaultConfig()
	return e.commitLocked(next, diff(e.config, next))
}

func (e *Engine) commitLocked(next Config, change Change) error {
	if !e.enabled || !change.Any() {
		e.config = next
		return nil
	}

	if change.Geometry {
		Debugf("radio: rebuilding buffer for length=%d queue=%d", next.MaxPayload, next.QueueLen)
		if err := e.disableLocked(); err != nil {
			return err
		}
		e.config = next
		return e.enableLocked()
	}

	if err := e.hw.Configure(next.Settings()); err != nil {
		return fmt.Errorf("failed to configure hardware: %w", err)
	}
	e.config = next
	Debugf("radio: reconfigured (%s)", next)
	return nil
}
