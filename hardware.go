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
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ZaparooProject/go-nrfradio/internal/syncutil"
)

// MaxTransmitSize bounds a single framed buffer handed to Transmit
const MaxTransmitSize = 2048

// Settings is the register-level configuration programmed into the radio.
// It never contains buffer geometry.
type Settings struct {
	Address  uint32
	Channel  uint8
	Group    uint8
	DataRate DataRate
	PowerDBm int8
}

// DeliverFunc receives one framed packet ([len][payload...]) from the radio.
// It may be called from any goroutine and must not be called while the
// hardware holds a lock that Transmit or Disable also need.
type DeliverFunc func(frame []byte)

// Hardware is the radio peripheral as seen by the Engine.
// This can be implemented by a simulator, a serial or SPI bridge to a radio
// co-processor, or a broker acting as the shared medium.
type Hardware interface {
	// Configure programs channel, address, group, data rate and power
	Configure(s Settings) error

	// Enable powers the receiver path; received frames go to deliver
	Enable(deliver DeliverFunc) error

	// Disable powers the receiver path off. Frames still in flight may
	// reach the previous deliver function afterwards.
	Disable() error

	// Transmit sends one framed buffer and blocks until it has been sent.
	// The hardware must not retain frame after returning.
	Transmit(frame []byte) error

	// Type returns the hardware type
	Type() HardwareType
}

// HardwareType identifies a Hardware backend
type HardwareType string

const (
	// HardwareSim is the in-process simulator
	HardwareSim HardwareType = "sim"
	// HardwareSerial is a UART bridge to a radio co-processor
	HardwareSerial HardwareType = "serial"
	// HardwareSPI is an SPI bridge to a radio co-processor
	HardwareSPI HardwareType = "spi"
	// HardwareMQTT uses an MQTT broker as the shared medium
	HardwareMQTT HardwareType = "mqtt"
	// HardwareMock represents a mock backend for testing
	HardwareMock HardwareType = "mock"
)

// HardwareWithRetry wraps a Hardware with retry on transient failures.
// Transmit is retried as a whole frame; a radio never sees half a packet.
type HardwareWithRetry struct {
	hw     Hardware
	config *RetryConfig
	mu     syncutil.RWMutex
}

// NewHardwareWithRetry creates a new hardware wrapper with retry logic
func NewHardwareWithRetry(hw Hardware, config *RetryConfig) *HardwareWithRetry {
	if config == nil {
		config = DefaultRetryConfig()
	}
	return &HardwareWithRetry{hw: hw, config: config}
}

func (h *HardwareWithRetry) do(op string, fn func() error) error {
	return RetryWithConfig(context.Background(), h.retryConfig(), func() error {
		err := fn()
		if err == nil {
			return nil
		}
		var he *HardwareError
		if errors.As(err, &he) {
			return err
		}
		return &HardwareError{
			Op:        op,
			Hardware:  h.hw.Type(),
			Err:       err,
			Type:      ErrorTypeTransient,
			Retryable: IsRetryable(err),
		}
	})
}

// Configure programs settings with retry
func (h *HardwareWithRetry) Configure(s Settings) error {
	return h.do("Configure", func() error { return h.hw.Configure(s) })
}

// Enable enables the receiver with retry
func (h *HardwareWithRetry) Enable(deliver DeliverFunc) error {
	return h.do("Enable", func() error { return h.hw.Enable(deliver) })
}

// Disable is not retried; a failure here is reported as-is
func (h *HardwareWithRetry) Disable() error {
	if err := h.hw.Disable(); err != nil {
		return fmt.Errorf("failed to disable underlying hardware: %w", err)
	}
	return nil
}

// Transmit sends a frame with retry
func (h *HardwareWithRetry) Transmit(frame []byte) error {
	return h.do("Transmit", func() error { return h.hw.Transmit(frame) })
}

// Type returns the wrapped hardware type
func (h *HardwareWithRetry) Type() HardwareType {
	return h.hw.Type()
}

// SetRetryConfig updates the retry configuration. Calls already retrying
// keep the configuration they started with.
func (h *HardwareWithRetry) SetRetryConfig(config *RetryConfig) {
	if config == nil {
		config = DefaultRetryConfig()
	}
	h.mu.Lock()
	h.config = config
	h.mu.Unlock()
}

func (h *HardwareWithRetry) retryConfig() *RetryConfig {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.config
}

// MockHardware provides a mock implementation of Hardware for testing
type MockHardware struct {
	deliver   DeliverFunc
	errorMap  map[string]error
	settings  []Settings
	sent      [][]byte
	mu        sync.RWMutex
	enables   int
	disables  int
	isEnabled bool
}

// NewMockHardware creates a new mock hardware
func NewMockHardware() *MockHardware {
	return &MockHardware{
		errorMap: make(map[string]error),
	}
}

// Configure implements Hardware
func (m *MockHardware) Configure(s Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.errorMap["Configure"]; ok {
		return err
	}
	m.settings = append(m.settings, s)
	return nil
}

// Enable implements Hardware
func (m *MockHardware) Enable(deliver DeliverFunc) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.errorMap["Enable"]; ok {
		return err
	}
	m.enables++
	m.isEnabled = true
	m.deliver = deliver
	return nil
}

// Disable implements Hardware
func (m *MockHardware) Disable() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.disables++
	m.isEnabled = false
	if err, ok := m.errorMap["Disable"]; ok {
		return err
	}
	return nil
}

// Transmit implements Hardware
func (m *MockHardware) Transmit(frame []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.errorMap["Transmit"]; ok {
		return err
	}
	m.sent = append(m.sent, append([]byte(nil), frame...))
	return nil
}

// Type implements Hardware
func (*MockHardware) Type() HardwareType {
	return HardwareMock
}

// Test helper methods

// Deliver hands a framed packet to the most recent deliver function, the way
// a receive interrupt would. It does nothing if Enable was never called.
func (m *MockHardware) Deliver(frame []byte) {
	m.mu.RLock()
	deliver := m.deliver
	m.mu.RUnlock()
	if deliver != nil {
		deliver(frame)
	}
}

// DeliverFunc returns the deliver function from the most recent Enable
func (m *MockHardware) DeliverFunc() DeliverFunc {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.deliver
}

// DeliverPayload frames payload with its length byte and delivers it
func (m *MockHardware) DeliverPayload(payload []byte) {
	frame := make([]byte, 1+len(payload))
	frame[0] = byte(len(payload))
	copy(frame[1:], payload)
	m.Deliver(frame)
}

// SetError configures an error for an operation name ("Configure",
// "Enable", "Disable", "Transmit")
func (m *MockHardware) SetError(op string, err error) {
	m.mu.Lock()
	m.errorMap[op] = err
	m.mu.Unlock()
}

// ClearError removes error injection for an operation
func (m *MockHardware) ClearError(op string) {
	m.mu.Lock()
	delete(m.errorMap, op)
	m.mu.Unlock()
}

// Sent returns copies of every transmitted frame
func (m *MockHardware) Sent() [][]byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([][]byte, len(m.sent))
	for i, f := range m.sent {
		out[i] = append([]byte(nil), f...)
	}
	return out
}

// Settings returns every Settings value passed to Configure
func (m *MockHardware) Settings() []Settings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Settings(nil), m.settings...)
}

// LastSettings returns the most recent Settings, if any
func (m *MockHardware) LastSettings() (Settings, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.settings) == 0 {
		return Settings{}, false
	}
	return m.settings[len(m.settings)-1], true
}

// Counts returns how many times Enable and Disable succeeded or were called
func (m *MockHardware) Counts() (enables, disables int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.enables, m.disables
}

// IsEnabled reports the mock receiver state
func (m *MockHardware) IsEnabled() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.isEnabled
}
