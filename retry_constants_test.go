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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetryConstants_Hardware(t *testing.T) {
	t.Parallel()

	assert.Positive(t, HardwareRetries)
	assert.Less(t, HardwareInitialBackoff, HardwareMaxBackoff)

	// The worst case of all attempts must fit inside the retry timeout.
	var total time.Duration
	backoff := HardwareInitialBackoff
	for range HardwareRetries - 1 {
		total += backoff + time.Duration(float64(backoff)*HardwareJitter)
		backoff = min(time.Duration(float64(backoff)*HardwareBackoffMultiplier), HardwareMaxBackoff)
	}
	assert.Less(t, total, HardwareRetryTimeout)
}

func TestRetryConstants_Bridge(t *testing.T) {
	t.Parallel()

	assert.Less(t, BridgeACKTimeout, BridgeResponseTimeout)
	assert.Less(t, BridgeReadTimeout, BridgeACKTimeout)
	assert.Less(t, BridgePollInterval, BridgeReadTimeout)
	assert.Less(t, BridgeResponseTimeout, HardwareRetryTimeout)
}
