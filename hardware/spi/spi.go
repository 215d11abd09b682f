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

// Package spi drives a radio co-processor over SPI, with an optional IRQ
// line that the co-processor raises when it has data for the host.
package spi

import (
	"fmt"
	"time"

	radio "github.com/ZaparooProject/go-nrfradio"
	"github.com/ZaparooProject/go-nrfradio/internal/bridge"
	"github.com/ZaparooProject/go-nrfradio/internal/syncutil"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

const (
	// SPI protocol prefixes
	spiDataWrite = 0x01
	spiStatRead  = 0x02
	spiDataRead  = 0x03
	spiReady     = 0x01

	// maxRead is the most a single data read transfers; the count byte
	// limits it to 255.
	maxRead = 0xFF

	defaultFreq = 1 * physic.MegaHertz
	mode        = spi.Mode0
)

// Options configures the SPI bridge
type Options struct {
	// IRQPin is the GPIO name of the data-ready line; empty means poll
	IRQPin string
	// Freq is the SPI clock (1MHz if zero)
	Freq physic.Frequency
}

// Hardware is a bridge.Device on an SPI port
type Hardware struct {
	*bridge.Device
	port     spi.PortCloser
	wire     *wire
	portName string
}

// New opens an SPI port by name (e.g. "/dev/spidev0.0" or "SPI0.0")
func New(portName string, opts Options) (*Hardware, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph host: %w", err)
	}

	port, err := spireg.Open(portName)
	if err != nil {
		return nil, radio.NewHardwareError(radio.HardwareSPI, "open", portName,
			fmt.Errorf("failed to open SPI port: %w", err), radio.ErrorTypePermanent)
	}

	freq := opts.Freq
	if freq == 0 {
		freq = defaultFreq
	}
	conn, err := port.Connect(freq, mode, 8)
	if err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("failed to connect SPI: %w", err)
	}

	var irq gpio.PinIn
	if opts.IRQPin != "" {
		pin := gpioreg.ByName(opts.IRQPin)
		if pin == nil {
			_ = port.Close()
			return nil, fmt.Errorf("GPIO pin %s not found", opts.IRQPin)
		}
		if err := pin.In(gpio.PullDown, gpio.RisingEdge); err != nil {
			_ = port.Close()
			return nil, fmt.Errorf("failed to configure IRQ pin %s: %w", opts.IRQPin, err)
		}
		irq = pin
	}

	hw := NewFromConn(conn, irq, portName)
	hw.port = port
	return hw, nil
}

// NewFromConn builds the bridge on an already connected SPI device. irq may
// be nil, in which case the status register is polled.
func NewFromConn(conn spi.Conn, irq gpio.PinIn, name string) *Hardware {
	w := &wire{
		conn:    conn,
		irq:     irq,
		poll:    radio.BridgePollInterval,
		timeout: radio.BridgeReadTimeout,
		done:    make(chan struct{}),
	}
	radio.Debugf("spi: using %s (irq=%v)", name, irq != nil)
	link := bridge.NewLink(w, radio.HardwareSPI, name)
	return &Hardware{
		Device:   bridge.NewDevice(link),
		wire:     w,
		portName: name,
	}
}

// Close stops the link and closes the port
func (h *Hardware) Close() error {
	h.wire.close()
	h.Device.Close()
	if h.port != nil {
		if err := h.port.Close(); err != nil {
			return fmt.Errorf("SPI close failed: %w", err)
		}
	}
	return nil
}

// wire presents SPI transactions as a byte stream for the bridge link.
// A write is one data-write transaction. A read waits for the ready bit
// and clocks out one data-read transaction whose second byte counts the
// valid bytes that follow.
type wire struct {
	conn    spi.Conn
	irq     gpio.PinIn
	done    chan struct{}
	poll    time.Duration
	timeout time.Duration
	mu      syncutil.Mutex
	closeMu syncutil.Mutex
	closed  bool
}

func (w *wire) Write(p []byte) (int, error) {
	tx := make([]byte, 1+len(p))
	tx[0] = spiDataWrite
	copy(tx[1:], p)

	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.conn.Tx(tx, nil); err != nil {
		return 0, fmt.Errorf("SPI data write failed: %w", err)
	}
	return len(p), nil
}

func (w *wire) Read(p []byte) (int, error) {
	ready, err := w.waitReady()
	if err != nil || !ready {
		return 0, err
	}

	n := min(len(p), maxRead)
	tx := make([]byte, 2+n)
	rx := make([]byte, 2+n)
	tx[0] = spiDataRead

	w.mu.Lock()
	err = w.conn.Tx(tx, rx)
	w.mu.Unlock()
	if err != nil {
		return 0, fmt.Errorf("SPI data read failed: %w", err)
	}

	count := min(int(rx[1]), n)
	return copy(p, rx[2:2+count]), nil
}

func (w *wire) ready() (bool, error) {
	tx := []byte{spiStatRead, 0x00}
	rx := make([]byte, 2)

	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.conn.Tx(tx, rx); err != nil {
		return false, fmt.Errorf("SPI status read failed: %w", err)
	}
	return rx[1]&spiReady != 0, nil
}

// waitReady returns false without error when nothing arrived within the
// read timeout, matching a serial port's timed-out read.
func (w *wire) waitReady() (bool, error) {
	deadline := time.Now().Add(w.timeout)
	for {
		if w.isClosed() {
			return false, radio.ErrHardwareClosed
		}
		ok, err := w.ready()
		if err != nil || ok {
			return ok, err
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return false, nil
		}
		if w.irq != nil {
			w.irq.WaitForEdge(remaining)
			continue
		}
		select {
		case <-w.done:
		case <-time.After(min(w.poll, remaining)):
		}
	}
}

func (w *wire) isClosed() bool {
	w.closeMu.Lock()
	defer w.closeMu.Unlock()
	return w.closed
}

func (w *wire) close() {
	w.closeMu.Lock()
	defer w.closeMu.Unlock()
	if !w.closed {
		w.closed = true
		close(w.done)
	}
}
