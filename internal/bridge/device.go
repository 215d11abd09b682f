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
	radio "github.com/ZaparooProject/go-nrfradio"
)

// Device implements radio.Hardware by sending bridge commands over a Link.
// The serial and SPI backends wrap it around their own port.
type Device struct {
	link *Link
}

// NewDevice starts link and returns a Device using it
func NewDevice(link *Link) *Device {
	link.Start()
	return &Device{link: link}
}

// Link returns the underlying command link
func (d *Device) Link() *Link {
	return d.link
}

// Configure implements radio.Hardware
func (d *Device) Configure(s radio.Settings) error {
	_, err := d.link.Call(CmdConfigure, EncodeSettings(s))
	return err
}

// Enable implements radio.Hardware. Packet events are routed to deliver
// from the link's dispatch goroutine.
func (d *Device) Enable(deliver radio.DeliverFunc) error {
	d.link.SetEventHandler(deliver)
	if _, err := d.link.Call(CmdEnable, nil); err != nil {
		d.link.SetEventHandler(nil)
		return err
	}
	return nil
}

// Disable implements radio.Hardware
func (d *Device) Disable() error {
	d.link.SetEventHandler(nil)
	_, err := d.link.Call(CmdDisable, nil)
	return err
}

// Transmit implements radio.Hardware
func (d *Device) Transmit(frame []byte) error {
	if len(frame) > radio.MaxTransmitSize || len(frame) > MaxDataLength {
		return radio.NewFrameTooLargeError(d.link.hw, CmdTransmit.String(), d.link.port)
	}
	_, err := d.link.Call(CmdTransmit, frame)
	return err
}

// Type implements radio.Hardware
func (d *Device) Type() radio.HardwareType {
	return d.link.hw
}

// Close stops the link goroutines
func (d *Device) Close() {
	d.link.Close()
}
