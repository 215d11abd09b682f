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

package serial

import (
	"errors"
	"io"
	"testing"
	"time"

	radio "github.com/ZaparooProject/go-nrfradio"
	"github.com/ZaparooProject/go-nrfradio/internal/virtual"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

func newVirtualHardware(t *testing.T) (*Hardware, *virtual.Radio, *serial.Mode) {
	t.Helper()
	co := virtual.NewRadio()
	var mode *serial.Mode
	hw, err := NewWithOptions("/dev/ttyVIRT0", Options{
		Open: func(_ string, m *serial.Mode) (io.ReadWriteCloser, error) {
			mode = m
			return co, nil
		},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = hw.Close() })
	return hw, co, mode
}

func TestNewWithOptions_Defaults(t *testing.T) {
	t.Parallel()

	hw, _, mode := newVirtualHardware(t)
	require.NotNil(t, mode)
	assert.Equal(t, DefaultBaudRate, mode.BaudRate)
	assert.Equal(t, 8, mode.DataBits)
	assert.Equal(t, serial.NoParity, mode.Parity)
	assert.Equal(t, serial.OneStopBit, mode.StopBits)
	assert.Equal(t, "/dev/ttyVIRT0", hw.PortName())
	assert.Equal(t, radio.HardwareSerial, hw.Type())
}

func TestHardware_ConfigureEnableTransmit(t *testing.T) {
	t.Parallel()

	hw, co, _ := newVirtualHardware(t)
	s := radio.Settings{Channel: 7, Address: 0x75626974, Group: 0, DataRate: radio.Rate1Mbit, PowerDBm: 0}
	require.NoError(t, hw.Configure(s))
	assert.Equal(t, s, co.Settings())

	frames := make(chan []byte, 1)
	require.NoError(t, hw.Enable(func(f []byte) { frames <- f }))
	assert.True(t, co.Enabled())

	require.True(t, co.InjectPacket([]byte{0x02, 'h', 'i'}))
	select {
	case f := <-frames:
		assert.Equal(t, []byte{0x02, 'h', 'i'}, f)
	case <-time.After(time.Second):
		t.Fatal("packet not delivered")
	}

	require.NoError(t, hw.Transmit([]byte{0x01, 0x55}))
	assert.Equal(t, [][]byte{{0x01, 0x55}}, co.Sent())

	require.NoError(t, hw.Disable())
	assert.False(t, co.Enabled())
}

func TestNewWithOptions_OpenError(t *testing.T) {
	t.Parallel()

	boom := errors.New("no such device")
	_, err := NewWithOptions("/dev/ttyMISSING", Options{
		Open: func(string, *serial.Mode) (io.ReadWriteCloser, error) { return nil, boom },
	})
	require.ErrorIs(t, err, boom)

	var he *radio.HardwareError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, "open", he.Op)
	assert.Equal(t, "/dev/ttyMISSING", he.Port)
	assert.False(t, radio.IsRetryable(err))
}

func TestOpenWithOptions_RetriesUntilPortAppears(t *testing.T) {
	t.Parallel()

	co := virtual.NewRadio()
	attempts := 0
	retry := &radio.RetryConfig{
		MaxAttempts:       5,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        2 * time.Millisecond,
		BackoffMultiplier: 2,
		RetryTimeout:      time.Second,
	}
	hw, err := OpenWithOptions("/dev/ttyACM0", Options{
		Open: func(string, *serial.Mode) (io.ReadWriteCloser, error) {
			attempts++
			if attempts < 3 {
				return nil, errors.New("not yet")
			}
			return co, nil
		},
	}, retry)
	require.NoError(t, err)
	t.Cleanup(func() { _ = hw.Close() })
	assert.Equal(t, 3, attempts)
}

func TestOpenWithOptions_GivesUp(t *testing.T) {
	t.Parallel()

	attempts := 0
	retry := &radio.RetryConfig{
		MaxAttempts:       2,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        time.Millisecond,
		BackoffMultiplier: 1,
		RetryTimeout:      time.Second,
	}
	_, err := OpenWithOptions("/dev/ttyACM0", Options{
		Open: func(string, *serial.Mode) (io.ReadWriteCloser, error) {
			attempts++
			return nil, errors.New("gone")
		},
	}, retry)
	require.Error(t, err)
	assert.GreaterOrEqual(t, attempts, 2)
}

func TestHardware_CloseFailsLaterCalls(t *testing.T) {
	t.Parallel()

	co := virtual.NewRadio()
	hw, err := NewWithOptions("/dev/ttyVIRT1", Options{
		Open: func(string, *serial.Mode) (io.ReadWriteCloser, error) { return co, nil },
	})
	require.NoError(t, err)
	require.NoError(t, hw.Close())

	err = hw.Transmit([]byte{0x00})
	require.Error(t, err)
	assert.True(t, radio.IsFatal(err))
}

func TestFilterPorts(t *testing.T) {
	t.Parallel()

	details := []*enumerator.PortDetails{
		{Name: "/dev/ttyUSB0", IsUSB: true, VID: "067b", PID: "2303", Product: "USB-Serial"},
		{Name: "/dev/ttyACM0", IsUSB: true, VID: "0d28", PID: "0204"},
		{Name: "/dev/ttyACM1", IsUSB: true, VID: "1546", PID: "01a7", Product: "u-blox GNSS"},
		{Name: "/dev/ttyS0"},
		{Name: "/dev/ttyACM2", IsUSB: true, VID: "1915", PID: "520f", Product: "nRF52840 Dongle"},
	}

	tests := []struct {
		name  string
		opts  ListOptions
		paths []string
	}{
		{
			name:  "known boards first",
			paths: []string{"/dev/ttyACM0", "/dev/ttyACM2", "/dev/ttyUSB0", "/dev/ttyS0"},
		},
		{
			name:  "known only",
			opts:  ListOptions{KnownOnly: true},
			paths: []string{"/dev/ttyACM0", "/dev/ttyACM2"},
		},
		{
			name:  "ignored path",
			opts:  ListOptions{IgnorePaths: []string{"/dev/ttyACM0"}, KnownOnly: true},
			paths: []string{"/dev/ttyACM2"},
		},
		{
			name:  "extra blocklist",
			opts:  ListOptions{Blocklist: []string{"067B:2303"}},
			paths: []string{"/dev/ttyACM0", "/dev/ttyACM2", "/dev/ttyS0"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ports := filterPorts(details, tt.opts)
			paths := make([]string, 0, len(ports))
			for _, p := range ports {
				paths = append(paths, p.Path)
			}
			assert.Equal(t, tt.paths, paths)
		})
	}
}

func TestFilterPorts_KnownBoardInfo(t *testing.T) {
	t.Parallel()

	ports := filterPorts([]*enumerator.PortDetails{
		{Name: "/dev/ttyACM0", IsUSB: true, VID: "0d28", PID: "0204", SerialNumber: "9900"},
	}, ListOptions{})
	require.Len(t, ports, 1)
	assert.True(t, ports[0].Known)
	assert.Equal(t, "0D28:0204", ports[0].VIDPID)
	assert.Equal(t, "BBC micro:bit (DAPLink)", ports[0].Product)
	assert.Equal(t, "9900", ports[0].SerialNumber)
}

func TestIsBlocked(t *testing.T) {
	t.Parallel()

	assert.False(t, isBlocked("", defaultIgnored))
	assert.True(t, isBlocked("1546:01a7", defaultIgnored))
	assert.False(t, isBlocked("0D28:0204", defaultIgnored))
}
