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

package sim

import (
	"errors"
	"sync"
	"testing"

	radio "github.com/ZaparooProject/go-nrfradio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	frames [][]byte
	mu     sync.Mutex
}

func (r *recorder) deliver(frame []byte) {
	r.mu.Lock()
	r.frames = append(r.frames, append([]byte(nil), frame...))
	r.mu.Unlock()
}

func (r *recorder) got() [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]byte(nil), r.frames...)
}

func TestAir_MatchingSettingsHear(t *testing.T) {
	t.Parallel()

	air := NewAir()
	a, b, c := air.NewRadio("a"), air.NewRadio("b"), air.NewRadio("c")
	t.Cleanup(func() {
		_ = a.Close()
		_ = b.Close()
		_ = c.Close()
	})

	s := radio.DefaultConfig().Settings()
	other := s
	other.DataRate = radio.Rate2Mbit
	require.NoError(t, a.Configure(s))
	require.NoError(t, b.Configure(s))
	require.NoError(t, c.Configure(other))

	var rb, rc recorder
	require.NoError(t, b.Enable(rb.deliver))
	require.NoError(t, c.Enable(rc.deliver))

	require.NoError(t, a.Transmit([]byte{0x01, 0x55}))
	air.WaitIdle()

	assert.Equal(t, [][]byte{{0x01, 0x55}}, rb.got())
	assert.Empty(t, rc.got())
	assert.Equal(t, [][]byte{{0x01, 0x55}}, a.Sent())
}

func TestRadio_DisabledHearsNothing(t *testing.T) {
	t.Parallel()

	r := New(true)
	t.Cleanup(func() { _ = r.Close() })

	var rec recorder
	require.NoError(t, r.Enable(rec.deliver))
	require.NoError(t, r.Disable())
	assert.False(t, r.Inject([]byte{0x00}))
	require.NoError(t, r.Transmit([]byte{0x00}))
	r.WaitIdle()
	assert.Empty(t, rec.got())
}

func TestRadio_LoopbackAndInject(t *testing.T) {
	t.Parallel()

	r := New(true)
	t.Cleanup(func() { _ = r.Close() })

	var rec recorder
	require.NoError(t, r.Enable(rec.deliver))
	require.NoError(t, r.Transmit([]byte{0x01, 'a'}))
	require.True(t, r.InjectPayload([]byte("bc")))
	r.WaitIdle()

	assert.Equal(t, [][]byte{{0x01, 'a'}, {0x02, 'b', 'c'}}, rec.got())

	r.SetLoopback(false)
	require.NoError(t, r.Transmit([]byte{0x01, 'z'}))
	r.WaitIdle()
	assert.Len(t, rec.got(), 2)
}

func TestRadio_FIFOOverflow(t *testing.T) {
	t.Parallel()

	r := New(false)
	t.Cleanup(func() { _ = r.Close() })

	block := make(chan struct{})
	require.NoError(t, r.Enable(func([]byte) { <-block }))

	accepted := 0
	for range RxFIFOLength + 10 {
		if r.Inject([]byte{0x00}) {
			accepted++
		}
	}
	close(block)
	r.WaitIdle()

	assert.GreaterOrEqual(t, accepted, RxFIFOLength)
	assert.Equal(t, uint64(RxFIFOLength+10-accepted), r.Lost())
}

func TestRadio_ErrorInjection(t *testing.T) {
	t.Parallel()

	r := New(false)
	t.Cleanup(func() { _ = r.Close() })

	boom := errors.New("boom")
	r.SetError("Transmit", boom)
	err := r.Transmit([]byte{0x00})
	require.ErrorIs(t, err, boom)
	assert.True(t, radio.IsRetryable(err))

	r.SetError("Transmit", nil)
	require.NoError(t, r.Transmit([]byte{0x00}))

	require.ErrorIs(t, r.Transmit(nil), radio.ErrFrameCorrupted)
	require.ErrorIs(t, r.Transmit(make([]byte, radio.MaxTransmitSize+1)), radio.ErrFrameTooLarge)
}

func TestRadio_Close(t *testing.T) {
	t.Parallel()

	r := New(true)
	var rec recorder
	require.NoError(t, r.Enable(rec.deliver))
	require.NoError(t, r.Close())
	require.NoError(t, r.Close())

	assert.False(t, r.Enabled())
	assert.False(t, r.Inject([]byte{0x00}))
	require.ErrorIs(t, r.Configure(radio.Settings{}), radio.ErrHardwareClosed)
	assert.Equal(t, radio.HardwareSim, r.Type())
}
