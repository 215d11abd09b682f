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

// Package serial drives a radio co-processor (a micro:bit or nRF dongle
// running the bridge firmware) over a UART.
package serial

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"time"

	radio "github.com/ZaparooProject/go-nrfradio"
	"github.com/ZaparooProject/go-nrfradio/internal/bridge"
	"go.bug.st/serial"
)

// DefaultBaudRate is the bridge firmware's UART speed
const DefaultBaudRate = 115200

// Opener opens a serial port; tests replace it to avoid real hardware
type Opener func(portName string, mode *serial.Mode) (io.ReadWriteCloser, error)

// Options configures a serial bridge
type Options struct {
	Open        Opener
	BaudRate    int
	ReadTimeout time.Duration
}

// Hardware is a bridge.Device on a serial port
type Hardware struct {
	*bridge.Device
	port     io.ReadWriteCloser
	portName string
}

// readTimeout returns the platform read timeout. Windows drivers need a
// longer one to return data reliably.
func readTimeout() time.Duration {
	if runtime.GOOS == "windows" {
		return 2 * radio.BridgeReadTimeout
	}
	return radio.BridgeReadTimeout
}

func openPort(portName string, mode *serial.Mode) (io.ReadWriteCloser, error) {
	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, err //nolint:wrapcheck // wrapped by New
	}
	if err := port.SetReadTimeout(readTimeout()); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("failed to set read timeout: %w", err)
	}
	return port, nil
}

// New opens portName with the default options
func New(portName string) (*Hardware, error) {
	return NewWithOptions(portName, Options{})
}

// NewWithOptions opens portName and starts the bridge link
func NewWithOptions(portName string, opts Options) (*Hardware, error) {
	if opts.Open == nil {
		opts.Open = openPort
	}
	if opts.BaudRate == 0 {
		opts.BaudRate = DefaultBaudRate
	}

	port, err := opts.Open(portName, &serial.Mode{
		BaudRate: opts.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, radio.NewHardwareError(radio.HardwareSerial, "open", portName,
			fmt.Errorf("failed to open UART port: %w", err), radio.ErrorTypePermanent)
	}

	radio.Debugf("serial: opened %s at %d baud", portName, opts.BaudRate)
	link := bridge.NewLink(port, radio.HardwareSerial, portName)
	return &Hardware{
		Device:   bridge.NewDevice(link),
		port:     port,
		portName: portName,
	}, nil
}

// Open opens portName with retries, for boards that take a moment to
// enumerate after being plugged in.
func Open(portName string, retry *radio.RetryConfig) (*Hardware, error) {
	return OpenWithOptions(portName, Options{}, retry)
}

// OpenWithOptions is Open with explicit port options
func OpenWithOptions(portName string, opts Options, retry *radio.RetryConfig) (*Hardware, error) {
	var hw *Hardware
	err := radio.RetryWithConfig(context.Background(), retry, func() error {
		var err error
		hw, err = NewWithOptions(portName, opts)
		if err != nil {
			var he *radio.HardwareError
			if errors.As(err, &he) {
				he.Retryable = true
			}
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return hw, nil
}

// PortName returns the serial port path
func (h *Hardware) PortName() string {
	return h.portName
}

// Close closes the port and stops the link
func (h *Hardware) Close() error {
	err := h.port.Close()
	h.Device.Close()
	if err != nil {
		return fmt.Errorf("UART close failed: %w", err)
	}
	return nil
}
