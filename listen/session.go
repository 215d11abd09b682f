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

// Package listen drains an engine's receive queue in the background and
// hands each packet to a callback.
package listen

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	radio "github.com/ZaparooProject/go-nrfradio"
	"github.com/ZaparooProject/go-nrfradio/internal/syncutil"
)

// Receiver is the part of radio.Engine a Session needs
type Receiver interface {
	Receive(typed bool) (radio.Packet, bool, error)
}

// Config holds listener options
type Config struct {
	// PollInterval is the delay between queue checks when it is empty
	PollInterval time.Duration
	// MaxBatch caps how many packets are drained per tick (0 = no cap)
	MaxBatch int
	// Typed decodes packets as strings; untagged packets go to OnError
	Typed bool
}

// DefaultConfig returns the default listener configuration
func DefaultConfig() *Config {
	return &Config{
		PollInterval: 10 * time.Millisecond,
	}
}

// Session polls a Receiver until its context ends or Close is called
type Session struct {
	rx         Receiver
	config     *Config
	onPacket   func(radio.Packet) error
	onError    func(error)
	pauseChan  chan struct{}
	resumeChan chan struct{}
	ackChan    chan struct{}
	done       chan struct{}
	received   atomic.Uint64
	mu         syncutil.RWMutex
	closeOnce  syncutil.Mutex
	closed     atomic.Bool
	isPaused   atomic.Bool
}

// New creates a session. A nil config uses DefaultConfig.
func New(rx Receiver, config *Config) *Session {
	if config == nil {
		config = DefaultConfig()
	}
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultConfig().PollInterval
	}
	return &Session{
		rx:         rx,
		config:     config,
		pauseChan:  make(chan struct{}, 1),
		resumeChan: make(chan struct{}, 1),
		ackChan:    make(chan struct{}, 1),
		done:       make(chan struct{}),
	}
}

// SetOnPacket sets the packet callback. Returning an error stops Start.
func (s *Session) SetOnPacket(fn func(radio.Packet) error) {
	s.mu.Lock()
	s.onPacket = fn
	s.mu.Unlock()
}

// SetOnError sets the callback for non-fatal receive errors
func (s *Session) SetOnError(fn func(error)) {
	s.mu.Lock()
	s.onError = fn
	s.mu.Unlock()
}

// Received returns the number of packets passed to OnPacket
func (s *Session) Received() uint64 {
	return s.received.Load()
}

// Start polls until ctx is done, Close is called, the packet callback
// fails, or the receiver returns a fatal error.
func (s *Session) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()

	for {
		if err := s.handleContextAndPause(ctx); err != nil {
			return err
		}
		if err := s.drain(); err != nil {
			return err
		}

		select {
		case <-ticker.C:
		case <-s.pauseChan:
			if err := s.handlePauseSignal(ctx); err != nil {
				return err
			}
		case <-s.done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *Session) drain() error {
	for n := 0; s.config.MaxBatch == 0 || n < s.config.MaxBatch; n++ {
		if s.closed.Load() || s.isPaused.Load() {
			return nil
		}

		pkt, ok, err := s.rx.Receive(s.config.Typed)
		switch {
		case errors.Is(err, radio.ErrNotAString):
			s.reportError(err)
			continue
		case errors.Is(err, radio.ErrNotEnabled):
			// Receiver is off, possibly mid-rebuild; try again next tick.
			return nil
		case err != nil:
			s.reportError(err)
			if radio.IsFatal(err) {
				return fmt.Errorf("receive failed: %w", err)
			}
			return nil
		case !ok:
			return nil
		}

		if err := s.deliver(pkt); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) deliver(pkt radio.Packet) (err error) {
	s.mu.RLock()
	fn := s.onPacket
	s.mu.RUnlock()
	if fn == nil {
		return nil
	}
	s.received.Add(1)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("packet callback panicked: %v", r)
		}
	}()
	if err := fn(pkt); err != nil {
		return fmt.Errorf("packet callback failed: %w", err)
	}
	return nil
}

func (s *Session) reportError(err error) {
	s.mu.RLock()
	fn := s.onError
	s.mu.RUnlock()
	if fn != nil {
		fn(err)
	}
}

// Pause stops polling until Resume. It waits briefly for the loop to
// acknowledge so a caller can reconfigure the engine without racing a read.
// If ctx ends first the pause is withdrawn and polling carries on.
func (s *Session) Pause(ctx context.Context) error {
	if !s.isPaused.CompareAndSwap(false, true) {
		return nil
	}

	// An ack left over from an earlier pause that timed out.
	select {
	case <-s.ackChan:
	default:
	}

	select {
	case s.pauseChan <- struct{}{}:
	default:
		return nil
	}

	timer := time.NewTimer(100 * time.Millisecond)
	defer timer.Stop()
	select {
	case <-s.ackChan:
		return nil
	case <-timer.C:
		// No loop running; the flag alone keeps drain from reading.
		return nil
	case <-ctx.Done():
		s.Resume()
		return ctx.Err()
	}
}

// Resume restarts polling after Pause
func (s *Session) Resume() {
	if !s.isPaused.CompareAndSwap(true, false) {
		return
	}
	// A pause the loop has not picked up yet is simply withdrawn.
	select {
	case <-s.pauseChan:
		return
	default:
	}
	select {
	case s.resumeChan <- struct{}{}:
	default:
	}
}

// Paused reports whether the session is paused
func (s *Session) Paused() bool {
	return s.isPaused.Load()
}

func (s *Session) handleContextAndPause(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.pauseChan:
		return s.handlePauseSignal(ctx)
	default:
		return nil
	}
}

func (s *Session) handlePauseSignal(ctx context.Context) error {
	select {
	case s.ackChan <- struct{}{}:
	default:
	}
	select {
	case <-s.resumeChan:
		return nil
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops a running Start, which then returns nil
func (s *Session) Close() error {
	s.closeOnce.Lock()
	defer s.closeOnce.Unlock()
	if s.closed.CompareAndSwap(false, true) {
		close(s.done)
	}
	return nil
}
