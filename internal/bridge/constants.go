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

// Package bridge implements the host side of the serial/SPI protocol spoken
// by a radio co-processor. Frames follow the PN532 layout:
//
//	00 00 FF LEN LCS TFI CMD DATA... DCS 00
//
// LEN counts TFI, CMD and DATA. LCS makes LEN+LCS zero and DCS makes the
// sum of TFI..DCS zero, both modulo 256.
package bridge

// Frame direction identifiers (TFI)
const (
	HostToRadio = 0xD4
	RadioToHost = 0xD5
)

// Frame delimiters
const (
	Preamble   = 0x00
	StartCode1 = 0x00
	StartCode2 = 0xFF
	Postamble  = 0x00
)

// Frame size limits
const (
	// MaxBodyLength is the largest LEN value (TFI + CMD + DATA)
	MaxBodyLength = 0xFE
	// MaxDataLength is the largest DATA section
	MaxDataLength = MaxBodyLength - 2
	// Overhead is the number of framing bytes around DATA
	Overhead = 9
	// MaxFrameLength is the longest encoded frame
	MaxFrameLength = MaxDataLength + Overhead
)

var (
	// AckFrame acknowledges receipt of a command frame
	AckFrame = []byte{0x00, 0x00, 0xFF, 0x00, 0xFF, 0x00}
	// NackFrame asks the sender to repeat its last frame
	NackFrame = []byte{0x00, 0x00, 0xFF, 0xFF, 0x00, 0x00}
)

// Command identifies a bridge command. Host commands are even and the
// matching response is the next odd value.
type Command byte

const (
	CmdConfigure Command = 0x10
	CmdEnable    Command = 0x12
	CmdDisable   Command = 0x14
	CmdTransmit  Command = 0x16
	// CmdPacket is sent unsolicited by the radio for each received frame
	CmdPacket Command = 0x21
)

// Response returns the response code for c
func (c Command) Response() Command {
	return c + 1
}

func (c Command) String() string {
	switch c {
	case CmdConfigure:
		return "Configure"
	case CmdEnable:
		return "Enable"
	case CmdDisable:
		return "Disable"
	case CmdTransmit:
		return "Transmit"
	case CmdPacket:
		return "Packet"
	default:
		if c&1 == 1 && c > 0 {
			return (c - 1).String() + "Response"
		}
		return "Unknown"
	}
}

// Response status codes, carried in the first DATA byte of a response
const (
	StatusOK       = 0x00
	StatusBusy     = 0x01
	StatusRejected = 0x02
)
