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

import "time"

// Hardware retry constants apply to HardwareWithRetry.
const (
	// HardwareRetries is the number of attempts for a bridge command.
	HardwareRetries = 3
	// HardwareInitialBackoff is the delay before the first retry.
	HardwareInitialBackoff = 10 * time.Millisecond
	// HardwareMaxBackoff caps the delay between attempts.
	HardwareMaxBackoff = 250 * time.Millisecond
	// HardwareBackoffMultiplier is the exponential backoff multiplier.
	HardwareBackoffMultiplier = 2.0
	// HardwareJitter is the random jitter factor (0.0-1.0).
	HardwareJitter = 0.1
	// HardwareRetryTimeout bounds all attempts of one command.
	HardwareRetryTimeout = 2 * time.Second
)

// Bridge link constants control the serial and SPI co-processor links.
const (
	// BridgeACKTimeout is how long to wait for the co-processor ACK.
	BridgeACKTimeout = 100 * time.Millisecond
	// BridgeResponseTimeout is how long to wait for a command response.
	// Transmit at 250kbit with a full slot takes about 9ms on air.
	BridgeResponseTimeout = 500 * time.Millisecond
	// BridgeReadTimeout is the serial read timeout used by the reader loop.
	BridgeReadTimeout = 50 * time.Millisecond
	// BridgePollInterval is how often the SPI link polls when no IRQ pin
	// is wired.
	BridgePollInterval = 5 * time.Millisecond
)
