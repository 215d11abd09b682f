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
	"encoding/binary"
	"fmt"

	radio "github.com/ZaparooProject/go-nrfradio"
)

// SettingsLength is the size of a Configure payload
const SettingsLength = 8

// EncodeSettings builds the Configure payload:
// channel, address (little endian), group, data rate, power (dBm, signed).
func EncodeSettings(s radio.Settings) []byte {
	out := make([]byte, SettingsLength)
	out[0] = s.Channel
	binary.LittleEndian.PutUint32(out[1:5], s.Address)
	out[5] = s.Group
	out[6] = byte(s.DataRate)
	out[7] = byte(s.PowerDBm)
	return out
}

// DecodeSettings parses a Configure payload
func DecodeSettings(data []byte) (radio.Settings, error) {
	if len(data) != SettingsLength {
		return radio.Settings{}, fmt.Errorf("%w: settings payload is %d bytes, want %d",
			radio.ErrFrameCorrupted, len(data), SettingsLength)
	}
	s := radio.Settings{
		Channel:  data[0],
		Address:  binary.LittleEndian.Uint32(data[1:5]),
		Group:    data[5],
		DataRate: radio.DataRate(data[6]),
		PowerDBm: int8(data[7]),
	}
	if !s.DataRate.Valid() {
		return radio.Settings{}, fmt.Errorf("%w: data rate %d", radio.ErrFrameCorrupted, data[6])
	}
	return s, nil
}

// checkStatus turns a response status byte into an error
func checkStatus(hw radio.HardwareType, op, port string, data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, radio.NewFrameCorruptedError(hw, op, port)
	}
	switch data[0] {
	case StatusOK:
		return data[1:], nil
	case StatusBusy:
		return nil, radio.NewHardwareError(hw, op, port, radio.ErrHardwareNotReady, radio.ErrorTypeTransient)
	default:
		return nil, radio.NewCommandRejectedError(hw, op, port, data[0])
	}
}
