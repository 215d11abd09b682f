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

package main

import (
	"errors"
	"fmt"

	radio "github.com/ZaparooProject/go-nrfradio"
	"github.com/ZaparooProject/go-nrfradio/hardware/mqtt"
	"github.com/ZaparooProject/go-nrfradio/hardware/serial"
	"github.com/ZaparooProject/go-nrfradio/hardware/sim"
	"github.com/ZaparooProject/go-nrfradio/hardware/spi"
)

// newHardware opens the backend named by cfg.hw and returns it with its
// close function.
func newHardware(cfg *config) (radio.Hardware, func() error, error) {
	switch cfg.hw {
	case "sim":
		hw := sim.New(true)
		return hw, hw.Close, nil
	case "serial":
		device := cfg.device
		if device == "" {
			ports, err := serial.ListPorts(serial.ListOptions{KnownOnly: true})
			if err != nil {
				return nil, nil, err
			}
			if len(ports) == 0 {
				return nil, nil, errors.New("no radio board found, use -device")
			}
			device = ports[0].Path
			radio.Debugf("using %s (%s)", device, ports[0].Product)
		}
		hw, err := serial.Open(device, nil)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open serial bridge: %w", err)
		}
		return hw, hw.Close, nil
	case "spi":
		if cfg.device == "" {
			return nil, nil, errors.New("-device is required for spi")
		}
		hw, err := spi.New(cfg.device, spi.Options{IRQPin: cfg.irqPin})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open SPI bridge: %w", err)
		}
		return hw, hw.Close, nil
	case "mqtt":
		hw, err := mqtt.New(mqtt.Options{Broker: cfg.broker, RootTopic: cfg.topic})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to broker: %w", err)
		}
		return hw, hw.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown hardware %q", cfg.hw)
	}
}
