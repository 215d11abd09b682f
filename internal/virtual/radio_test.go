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

package virtual

import (
	"io"
	"testing"
	"time"

	radio "github.com/ZaparooProject/go-nrfradio"
	"github.com/ZaparooProject/go-nrfradio/internal/bridge"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// readAll drains everything the radio has queued for the host
func readAll(t *testing.T, rw io.Reader) []byte {
	t.Helper()
	var out []byte
	buf := make([]byte, 32)
	for {
		n, err := rw.Read(buf)
		require.NoError(t, err)
		if n == 0 {
			return out
		}
		out = append(out, buf[:n]...)
	}
}

func decodeAll(t *testing.T, data []byte) []bridge.Frame {
	t.Helper()
	var frames []bridge.Frame
	for len(data) > 0 {
		f, n, err := bridge.Decode(data)
		require.NoError(t, err)
		frames = append(frames, f)
		data = data[n:]
	}
	return frames
}

func command(t *testing.T, cmd bridge.Command, data []byte) []byte {
	t.Helper()
	frame, err := bridge.Encode(bridge.HostToRadio, cmd, data)
	require.NoError(t, err)
	return frame
}

func TestRadio_ConfigureAnswersACKAndResponse(t *testing.T) {
	t.Parallel()

	r := NewRadio()
	s := radio.Settings{Channel: 5, Address: 1, Group: 2, DataRate: radio.Rate2Mbit, PowerDBm: -4}
	_, err := r.Write(command(t, bridge.CmdConfigure, bridge.EncodeSettings(s)))
	require.NoError(t, err)

	frames := decodeAll(t, readAll(t, r))
	require.Len(t, frames, 2)
	assert.Equal(t, bridge.KindACK, frames[0].Kind)
	assert.Equal(t, bridge.CmdConfigure.Response(), frames[1].Cmd)
	assert.Equal(t, []byte{bridge.StatusOK}, frames[1].Data)
	assert.Equal(t, s, r.Settings())
}

func TestRadio_RejectsBadSettings(t *testing.T) {
	t.Parallel()

	r := NewRadio()
	_, err := r.Write(command(t, bridge.CmdConfigure, []byte{1, 2}))
	require.NoError(t, err)

	frames := decodeAll(t, readAll(t, r))
	require.Len(t, frames, 2)
	assert.Equal(t, []byte{bridge.StatusRejected}, frames[1].Data)
}

func TestRadio_CommandSplitAcrossWrites(t *testing.T) {
	t.Parallel()

	r := NewRadio()
	frame := command(t, bridge.CmdEnable, nil)
	for _, b := range frame {
		_, err := r.Write([]byte{b})
		require.NoError(t, err)
	}
	assert.True(t, r.Enabled())
	assert.Equal(t, []bridge.Command{bridge.CmdEnable}, r.Commands())
}

func TestRadio_LoopbackEcho(t *testing.T) {
	t.Parallel()

	r := NewRadio()
	r.SetLoopback(true)
	_, err := r.Write(command(t, bridge.CmdEnable, nil))
	require.NoError(t, err)
	readAll(t, r)

	_, err = r.Write(command(t, bridge.CmdTransmit, []byte{0x02, 'h', 'i'}))
	require.NoError(t, err)

	frames := decodeAll(t, readAll(t, r))
	require.Len(t, frames, 3)
	assert.Equal(t, bridge.CmdPacket, frames[2].Cmd)
	assert.Equal(t, []byte{0x02, 'h', 'i'}, frames[2].Data)
}

func TestRadio_ReadTimesOut(t *testing.T) {
	t.Parallel()

	r := NewRadio()
	start := time.Now()
	n, err := r.Read(make([]byte, 8))
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.GreaterOrEqual(t, time.Since(start), DefaultReadTimeout/2)
}

func TestRadio_Close(t *testing.T) {
	t.Parallel()

	r := NewRadio()
	require.NoError(t, r.Close())

	_, err := r.Read(make([]byte, 8))
	require.ErrorIs(t, err, io.EOF)
	_, err = r.Write([]byte{0})
	require.ErrorIs(t, err, io.ErrClosedPipe)
}

func TestFragmentedConn_PreservesStream(t *testing.T) {
	t.Parallel()

	r := NewRadio()
	r.InjectNoise([]byte("0123456789abcdefghijklmnopqrstuvwxyz"))
	conn := NewFragmentedConn(r, 42)

	got := readAll(t, conn)
	assert.Equal(t, "0123456789abcdefghijklmnopqrstuvwxyz", string(got))
}
