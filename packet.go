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

package radio

import "bytes"

// StringTag prefixes the payload of packets sent with SendString
var StringTag = []byte{0x01, 0x00, 0x01}

// Packet is a decoded received packet
type Packet struct {
	// Text holds the payload after the string tag for typed reads
	Text string
	// Payload is the raw payload as received, including any tag
	Payload []byte
	// Typed is set when the packet was decoded as a string
	Typed bool
}

// Decode interprets a received payload. Untyped reads return the raw bytes
// unconditionally; typed reads require the string tag.
func Decode(payload []byte, typed bool) (Packet, error) {
	if !typed {
		return Packet{Payload: payload}, nil
	}
	if !HasStringTag(payload) {
		return Packet{Payload: payload}, ErrNotAString
	}
	return Packet{
		Payload: payload,
		Text:    string(payload[len(StringTag):]),
		Typed:   true,
	}, nil
}

// HasStringTag reports whether payload starts with StringTag
func HasStringTag(payload []byte) bool {
	return len(payload) >= len(StringTag) && bytes.Equal(payload[:len(StringTag)], StringTag)
}

// EncodeFrame writes [len][header][body] into dst and returns the framed
// size. The payload is limited to maxPayload bytes, and len(dst)-1 if that
// is smaller. Body bytes are dropped before header bytes.
func EncodeFrame(dst []byte, maxPayload int, header, body []byte) int {
	if len(dst) == 0 {
		return 0
	}
	if maxPayload > len(dst)-1 {
		maxPayload = len(dst) - 1
	}

	h, b := len(header), len(body)
	if h+b > maxPayload {
		if h > maxPayload {
			h, b = maxPayload, 0
		} else {
			b = maxPayload - h
		}
	}

	dst[0] = byte(h + b)
	copy(dst[1:], header[:h])
	copy(dst[1+h:], body[:b])
	return 1 + h + b
}
