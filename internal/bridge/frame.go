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
	"bytes"
	"errors"
	"fmt"

	radio "github.com/ZaparooProject/go-nrfradio"
)

// ErrIncomplete means the buffer ends before a full frame
var ErrIncomplete = errors.New("incomplete frame")

// Kind distinguishes ACK and NACK from information frames
type Kind int

const (
	KindData Kind = iota
	KindACK
	KindNACK
)

// Frame is a decoded bridge frame
type Frame struct {
	Data []byte
	Kind Kind
	TFI  byte
	Cmd  Command
}

// Status returns the status byte of a response frame
func (f Frame) Status() (byte, bool) {
	if len(f.Data) == 0 {
		return 0, false
	}
	return f.Data[0], true
}

// Encode builds an information frame
func Encode(tfi byte, cmd Command, data []byte) ([]byte, error) {
	if len(data) > MaxDataLength {
		return nil, fmt.Errorf("%w: %d data bytes, max %d", radio.ErrFrameTooLarge, len(data), MaxDataLength)
	}
	out := make([]byte, 0, len(data)+Overhead)
	return AppendFrame(out, tfi, cmd, data), nil
}

// AppendFrame appends an information frame to dst. The caller must keep
// data within MaxDataLength.
func AppendFrame(dst []byte, tfi byte, cmd Command, data []byte) []byte {
	length := byte(2 + len(data))
	dst = append(dst, Preamble, StartCode1, StartCode2, length, LengthChecksum(length))
	bodyStart := len(dst)
	dst = append(dst, tfi, byte(cmd))
	dst = append(dst, data...)
	dst = append(dst, DataChecksum(dst[bodyStart:]), Postamble)
	return dst
}

var startCode = []byte{StartCode1, StartCode2}

// Decode parses the first frame in buf and returns it with the number of
// bytes consumed, including garbage skipped before the start code.
//
// ErrIncomplete means more input is needed; n bytes may still be discarded.
// A frame with a bad checksum returns an error wrapping
// radio.ErrFrameCorrupted or radio.ErrChecksumMismatch, and n moves past its
// start code so decoding can resume.
func Decode(buf []byte) (f Frame, n int, err error) {
	i := bytes.Index(buf, startCode)
	if i < 0 {
		if len(buf) > 0 && buf[len(buf)-1] == StartCode1 {
			return Frame{}, len(buf) - 1, ErrIncomplete
		}
		return Frame{}, len(buf), ErrIncomplete
	}

	off := i + len(startCode)
	if off+2 > len(buf) {
		return Frame{}, i, ErrIncomplete
	}
	length, lcs := buf[off], buf[off+1]

	switch {
	case length == 0x00 && lcs == 0xFF:
		return Frame{Kind: KindACK}, skipPostamble(buf, off+2), nil
	case length == 0xFF && lcs == 0x00:
		return Frame{Kind: KindNACK}, skipPostamble(buf, off+2), nil
	case !validLength(length, lcs) || length < 2:
		return Frame{}, off, fmt.Errorf("%w: LEN %02X LCS %02X", radio.ErrFrameCorrupted, length, lcs)
	}

	bodyStart := off + 2
	bodyEnd := bodyStart + int(length)
	if bodyEnd+1 > len(buf) {
		return Frame{}, i, ErrIncomplete
	}
	body := buf[bodyStart:bodyEnd]
	if !validBody(body, buf[bodyEnd]) {
		return Frame{}, off, fmt.Errorf("%w: DCS %02X", radio.ErrChecksumMismatch, buf[bodyEnd])
	}

	f = Frame{
		Kind: KindData,
		TFI:  body[0],
		Cmd:  Command(body[1]),
		Data: append([]byte(nil), body[2:]...),
	}
	return f, skipPostamble(buf, bodyEnd+1), nil
}

func skipPostamble(buf []byte, n int) int {
	if n < len(buf) && buf[n] == Postamble {
		return n + 1
	}
	return n
}
