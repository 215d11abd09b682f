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

// Package sim is an in-process radio medium. Radios attached to the same
// Air hear each other when their channel, address, group and data rate
// match, as the nRF address filter would require.
package sim

import (
	"fmt"
	"sync"

	radio "github.com/ZaparooProject/go-nrfradio"
	"github.com/ZaparooProject/go-nrfradio/internal/syncutil"
)

// RxFIFOLength is how many frames a radio holds before delivery; further
// frames are lost, like a receiver that was not serviced in time.
const RxFIFOLength = 256

// Air is a shared medium
type Air struct {
	radios map[*Radio]struct{}
	mu     syncutil.RWMutex
}

// NewAir returns an empty medium
func NewAir() *Air {
	return &Air{radios: make(map[*Radio]struct{})}
}

// NewRadio attaches a new radio to the medium
func (a *Air) NewRadio(name string) *Radio {
	r := &Radio{
		air:   a,
		name:  name,
		queue: make(chan delivery, RxFIFOLength),
		done:  make(chan struct{}),
	}
	go r.pump()

	a.mu.Lock()
	a.radios[r] = struct{}{}
	a.mu.Unlock()
	return r
}

// WaitIdle blocks until every radio has delivered its pending frames
func (a *Air) WaitIdle() {
	a.mu.RLock()
	radios := make([]*Radio, 0, len(a.radios))
	for r := range a.radios {
		radios = append(radios, r)
	}
	a.mu.RUnlock()

	for _, r := range radios {
		r.WaitIdle()
	}
}

func (a *Air) broadcast(from *Radio, s radio.Settings, frame []byte) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	for r := range a.radios {
		if r == from && !from.loopback() {
			continue
		}
		r.receive(s, frame)
	}
}

func (a *Air) detach(r *Radio) {
	a.mu.Lock()
	delete(a.radios, r)
	a.mu.Unlock()
}

type delivery struct {
	deliver radio.DeliverFunc
	frame   []byte
}

// Radio is one simulated transceiver. It implements radio.Hardware.
type Radio struct {
	air       *Air
	deliver   radio.DeliverFunc
	errs      map[string]error
	queue     chan delivery
	done      chan struct{}
	name      string
	sent      [][]byte
	pending   sync.WaitGroup
	settings  radio.Settings
	dropped   uint64
	mu        syncutil.Mutex
	enabled   bool
	echo      bool
	closed    bool
	closeOnce sync.Once
}

// New returns a radio on a private medium. With loopback set it hears its
// own transmissions, which is handy for single-engine tests.
func New(loopback bool) *Radio {
	r := NewAir().NewRadio("sim")
	r.SetLoopback(loopback)
	return r
}

// SetLoopback makes the radio receive its own transmissions
func (r *Radio) SetLoopback(on bool) {
	r.mu.Lock()
	r.echo = on
	r.mu.Unlock()
}

func (r *Radio) loopback() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.echo
}

// SetError makes the named operation ("Configure", "Enable", "Disable",
// "Transmit") fail with err; nil clears it.
func (r *Radio) SetError(op string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err == nil {
		delete(r.errs, op)
		return
	}
	if r.errs == nil {
		r.errs = make(map[string]error)
	}
	r.errs[op] = err
}

func (r *Radio) failure(op string) error {
	if err, ok := r.errs[op]; ok {
		return radio.NewHardwareError(radio.HardwareSim, op, r.name, err, radio.ErrorTypeTransient)
	}
	if r.closed {
		return radio.NewHardwareError(radio.HardwareSim, op, r.name, radio.ErrHardwareClosed, radio.ErrorTypePermanent)
	}
	return nil
}

// Configure implements radio.Hardware
func (r *Radio) Configure(s radio.Settings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failure("Configure"); err != nil {
		return err
	}
	r.settings = s
	return nil
}

// Enable implements radio.Hardware
func (r *Radio) Enable(deliver radio.DeliverFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failure("Enable"); err != nil {
		return err
	}
	r.deliver = deliver
	r.enabled = true
	return nil
}

// Disable implements radio.Hardware. Frames already queued for delivery
// still reach the previous deliver function.
func (r *Radio) Disable() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.enabled = false
	r.deliver = nil
	return r.failure("Disable")
}

// Transmit implements radio.Hardware
func (r *Radio) Transmit(frame []byte) error {
	r.mu.Lock()
	if err := r.failure("Transmit"); err != nil {
		r.mu.Unlock()
		return err
	}
	if len(frame) > radio.MaxTransmitSize {
		r.mu.Unlock()
		return radio.NewFrameTooLargeError(radio.HardwareSim, "Transmit", r.name)
	}
	if len(frame) == 0 {
		r.mu.Unlock()
		return radio.NewHardwareError(radio.HardwareSim, "Transmit", r.name,
			fmt.Errorf("%w: empty frame", radio.ErrFrameCorrupted), radio.ErrorTypePermanent)
	}
	onAir := append([]byte(nil), frame...)
	r.sent = append(r.sent, onAir)
	s := r.settings
	r.mu.Unlock()

	r.air.broadcast(r, s, onAir)
	return nil
}

// Type implements radio.Hardware
func (*Radio) Type() radio.HardwareType {
	return radio.HardwareSim
}

// Inject delivers frame as if another radio with matching settings sent
// it. It returns false if the receiver is off or its FIFO is full.
func (r *Radio) Inject(frame []byte) bool {
	r.mu.Lock()
	s := r.settings
	r.mu.Unlock()
	return r.receive(s, append([]byte(nil), frame...))
}

// InjectPayload frames payload with its length byte and injects it
func (r *Radio) InjectPayload(payload []byte) bool {
	frame := make([]byte, 1+len(payload))
	frame[0] = byte(len(payload))
	copy(frame[1:], payload)
	return r.Inject(frame)
}

func (r *Radio) receive(s radio.Settings, frame []byte) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.enabled || r.closed || r.deliver == nil || s != r.settings {
		return false
	}

	r.pending.Add(1)
	select {
	case r.queue <- delivery{deliver: r.deliver, frame: frame}:
		return true
	default:
		r.pending.Done()
		r.dropped++
		radio.Debugf("sim %s: rx fifo full, frame lost", r.name)
		return false
	}
}

func (r *Radio) pump() {
	for {
		select {
		case <-r.done:
			return
		case d := <-r.queue:
			d.deliver(d.frame)
			r.pending.Done()
		}
	}
}

// WaitIdle blocks until all queued frames have been delivered
func (r *Radio) WaitIdle() {
	r.pending.Wait()
}

// Sent returns copies of every transmitted frame
func (r *Radio) Sent() [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([][]byte, len(r.sent))
	for i, f := range r.sent {
		out[i] = append([]byte(nil), f...)
	}
	return out
}

// Settings returns the programmed settings
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

// Lost returns the number of frames lost to a full FIFO
func (r *Radio) Lost() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}

// Close detaches the radio and stops its delivery goroutine. Frames not yet
// delivered are discarded.
func (r *Radio) Close() error {
	r.closeOnce.Do(func() {
		r.air.detach(r)
		r.mu.Lock()
		r.closed = true
		r.enabled = false
		r.mu.Unlock()
		close(r.done)
		for {
			select {
			case <-r.queue:
				r.pending.Done()
			default:
				return
			}
		}
	})
	return nil
}
