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

package mqtt

import (
	"errors"
	"fmt"

	radio "github.com/ZaparooProject/go-nrfradio"
	"google.golang.org/protobuf/encoding/protowire"
)

// Envelope field numbers
const (
	fieldSender   protowire.Number = 1
	fieldAddress  protowire.Number = 2
	fieldGroup    protowire.Number = 3
	fieldDataRate protowire.Number = 4
	fieldFrame    protowire.Number = 5
)

// ErrInvalidEnvelope is returned for payloads that are not a valid envelope
var ErrInvalidEnvelope = errors.New("invalid envelope")

// Envelope is one frame on the air, with the on-air parameters a receiver
// filters on. It is encoded as a protobuf message.
type Envelope struct {
	Sender   string
	Frame    []byte
	Address  uint32
	Group    uint8
	DataRate radio.DataRate
}

// Marshal encodes the envelope
func (e *Envelope) Marshal() []byte {
	b := make([]byte, 0, 16+len(e.Sender)+len(e.Frame))
	b = protowire.AppendTag(b, fieldSender, protowire.BytesType)
	b = protowire.AppendString(b, e.Sender)
	b = protowire.AppendTag(b, fieldAddress, protowire.Fixed32Type)
	b = protowire.AppendFixed32(b, e.Address)
	b = protowire.AppendTag(b, fieldGroup, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(e.Group))
	b = protowire.AppendTag(b, fieldDataRate, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(e.DataRate))
	b = protowire.AppendTag(b, fieldFrame, protowire.BytesType)
	b = protowire.AppendBytes(b, e.Frame)
	return b
}

// Unmarshal decodes b into e. Unknown fields are skipped.
func (e *Envelope) Unmarshal(b []byte) error {
	*e = Envelope{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("%w: %w", ErrInvalidEnvelope, protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case num == fieldSender && typ == protowire.BytesType:
			v, m := protowire.ConsumeString(b)
			if m < 0 {
				return fmt.Errorf("%w: sender: %w", ErrInvalidEnvelope, protowire.ParseError(m))
			}
			e.Sender, n = v, m
		case num == fieldAddress && typ == protowire.Fixed32Type:
			v, m := protowire.ConsumeFixed32(b)
			if m < 0 {
				return fmt.Errorf("%w: address: %w", ErrInvalidEnvelope, protowire.ParseError(m))
			}
			e.Address, n = v, m
		case num == fieldGroup && typ == protowire.VarintType:
			v, m := protowire.ConsumeVarint(b)
			if m < 0 || v > 0xFF {
				return fmt.Errorf("%w: group", ErrInvalidEnvelope)
			}
			e.Group, n = uint8(v), m
		case num == fieldDataRate && typ == protowire.VarintType:
			v, m := protowire.ConsumeVarint(b)
			if m < 0 || v > 0xFF {
				return fmt.Errorf("%w: data rate", ErrInvalidEnvelope)
			}
			e.DataRate, n = radio.DataRate(v), m
		case num == fieldFrame && typ == protowire.BytesType:
			v, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return fmt.Errorf("%w: frame: %w", ErrInvalidEnvelope, protowire.ParseError(m))
			}
			e.Frame, n = append([]byte(nil), v...), m
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return fmt.Errorf("%w: field %d: %w", ErrInvalidEnvelope, num, protowire.ParseError(n))
			}
		}
		b = b[n:]
	}
	return nil
}

// matches reports whether a receiver programmed with s would hear e
func (e *Envelope) matches(s radio.Settings) bool {
	return e.Address == s.Address && e.Group == s.Group && e.DataRate == s.DataRate
}
