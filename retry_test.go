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

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryConfig_DefaultRetryConfig(t *testing.T) {
	t.Parallel()

	config := DefaultRetryConfig()

	assert.NotNil(t, config)
	assert.Equal(t, HardwareRetries, config.MaxAttempts)
	assert.Greater(t, config.InitialBackoff, time.Duration(0))
	assert.Greater(t, config.MaxBackoff, config.InitialBackoff)
	assert.Greater(t, config.BackoffMultiplier, 1.0)
	assert.GreaterOrEqual(t, config.Jitter, 0.0)
	assert.LessOrEqual(t, config.Jitter, 1.0)
	assert.Greater(t, config.RetryTimeout, config.MaxBackoff)
}

func TestNextBackoff(t *testing.T) {
	t.Parallel()

	tests := []struct {
		config  *RetryConfig
		name    string
		current time.Duration
		want    time.Duration
	}{
		{
			name:    "exponential growth",
			current: 100 * time.Millisecond,
			config:  &RetryConfig{BackoffMultiplier: 2.0, MaxBackoff: 5 * time.Second},
			want:    200 * time.Millisecond,
		},
		{
			name:    "capped at maximum",
			current: 3 * time.Second,
			config:  &RetryConfig{BackoffMultiplier: 2.0, MaxBackoff: 5 * time.Second},
			want:    5 * time.Second,
		},
		{
			name:    "fractional multiplier",
			current: 200 * time.Millisecond,
			config:  &RetryConfig{BackoffMultiplier: 1.5, MaxBackoff: 5 * time.Second},
			want:    300 * time.Millisecond,
		},
		{
			name:    "no maximum",
			current: time.Second,
			config:  &RetryConfig{BackoffMultiplier: 3},
			want:    3 * time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, nextBackoff(tt.current, tt.config))
		})
	}
}

func TestJittered(t *testing.T) {
	t.Parallel()

	base := 100 * time.Millisecond
	assert.Equal(t, base, jittered(base, 0))
	for range 50 {
		d := jittered(base, 0.5)
		assert.GreaterOrEqual(t, d, base)
		assert.LessOrEqual(t, d, base+base/2)
	}
}

func fastRetry(attempts int) *RetryConfig {
	return &RetryConfig{
		MaxAttempts:       attempts,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        2 * time.Millisecond,
		BackoffMultiplier: 2,
	}
}

func TestRetryWithConfig_SucceedsAfterTransientErrors(t *testing.T) {
	t.Parallel()

	calls := 0
	var attempts []int
	cfg := fastRetry(5)
	cfg.OnRetry = func(attempt int, _ error) { attempts = append(attempts, attempt) }

	err := RetryWithConfig(context.Background(), cfg, func() error {
		calls++
		if calls < 3 {
			return ErrHardwareTimeout
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{1, 2}, attempts)
}

func TestRetryWithConfig_StopsOnPermanentError(t *testing.T) {
	t.Parallel()

	calls := 0
	err := RetryWithConfig(context.Background(), fastRetry(5), func() error {
		calls++
		return NewCommandRejectedError(HardwareMock, "Configure", "", 2)
	})
	require.ErrorIs(t, err, ErrCommandRejected)
	assert.Equal(t, 1, calls)
}

func TestRetryWithConfig_ExhaustsAttempts(t *testing.T) {
	t.Parallel()

	calls := 0
	err := RetryWithConfig(context.Background(), fastRetry(3), func() error {
		calls++
		return NewNoACKError(HardwareMock, "Transmit", "")
	})
	require.ErrorIs(t, err, ErrNoACK)
	assert.Equal(t, 3, calls)
}

func TestRetryWithConfig_NoRetry(t *testing.T) {
	t.Parallel()

	calls := 0
	err := RetryWithConfig(context.Background(), fastRetry(0), func() error {
		calls++
		return ErrHardwareTimeout
	})
	require.ErrorIs(t, err, ErrHardwareTimeout)
	assert.Equal(t, 1, calls)
}

func TestRetryWithConfig_ContextCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := RetryWithConfig(ctx, fastRetry(3), func() error {
		calls++
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, calls)
}

func TestRetryWithConfig_TimeoutReturnsLastError(t *testing.T) {
	t.Parallel()

	cfg := &RetryConfig{
		MaxAttempts:       100,
		InitialBackoff:    20 * time.Millisecond,
		BackoffMultiplier: 1,
		RetryTimeout:      30 * time.Millisecond,
	}
	calls := 0
	start := time.Now()
	err := RetryWithConfig(context.Background(), cfg, func() error {
		calls++
		return ErrHardwareRead
	})
	require.ErrorIs(t, err, ErrHardwareRead)
	assert.Less(t, calls, 100)
	assert.Less(t, time.Since(start), time.Second)
}

func TestHardwareWithRetry_WrapsPlainErrors(t *testing.T) {
	t.Parallel()

	mock := NewMockHardware()
	mock.SetError("Configure", errors.New("bus glitch"))
	hw := NewHardwareWithRetry(mock, fastRetry(3))

	err := hw.Configure(Settings{})
	var he *HardwareError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, "Configure", he.Op)
	assert.Equal(t, HardwareMock, he.Hardware)
	assert.False(t, he.Retryable)
}

func TestHardwareWithRetry_DisableNotRetried(t *testing.T) {
	t.Parallel()

	mock := NewMockHardware()
	mock.SetError("Disable", ErrHardwareTimeout)
	hw := NewHardwareWithRetry(mock, fastRetry(3))

	require.ErrorIs(t, hw.Disable(), ErrHardwareTimeout)
	_, disables := mock.Counts()
	assert.Equal(t, 1, disables)

	hw.SetRetryConfig(fastRetry(1))
	assert.Equal(t, 1, hw.retryConfig().MaxAttempts)

	hw.SetRetryConfig(nil)
	assert.Equal(t, DefaultRetryConfig().MaxAttempts, hw.retryConfig().MaxAttempts)
}

func TestHardwareWithRetry_SetRetryConfigWhileSending(t *testing.T) {
	t.Parallel()

	mock := NewMockHardware()
	hw := NewHardwareWithRetry(mock, fastRetry(2))

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for range 100 {
			assert.NoError(t, hw.Transmit([]byte{0x01, 0xAA}))
		}
	}()
	go func() {
		defer wg.Done()
		for i := range 100 {
			hw.SetRetryConfig(fastRetry(1 + i%3))
		}
	}()
	wg.Wait()

	assert.Len(t, mock.Sent(), 100)
}
