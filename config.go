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
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Valid ranges for the configuration fields
const (
	MinPayloadLength = 1
	MaxPayloadLength = 251
	MinQueueLength   = 1
	MaxQueueLength   = 254
	MaxChannel       = 100
	MaxGroup         = 255
)

// Defaults applied at process start and by Reset
const (
	DefaultMaxPayload = 32
	DefaultQueueLen   = 3
	DefaultChannel    = 7
	DefaultPowerDBm   = 0
	DefaultAddress    = 0x75626974 // "uBit"
	DefaultGroup      = 0
	DefaultDataRate   = Rate1Mbit
)

// Option keys accepted by Configure
const (
	KeyLength   = "length"
	KeyQueue    = "queue"
	KeyChannel  = "channel"
	KeyPower    = "power"
	KeyDataRate = "data_rate"
	KeyAddress  = "address"
	KeyGroup    = "group"
)

// DataRate is the on-air modulation rate. The numeric values match the nRF
// RADIO MODE register so they can be passed straight through to firmware.
type DataRate uint8

const (
	Rate1Mbit   DataRate = 0
	Rate2Mbit   DataRate = 1
	Rate250Kbit DataRate = 2
)

// Valid reports whether r is one of the supported rates
func (r DataRate) Valid() bool {
	return r == Rate250Kbit || r == Rate1Mbit || r == Rate2Mbit
}

func (r DataRate) String() string {
	switch r {
	case Rate250Kbit:
		return "250kbit"
	case Rate1Mbit:
		return "1mbit"
	case Rate2Mbit:
		return "2mbit"
	default:
		return fmt.Sprintf("rate(%d)", uint8(r))
	}
}

// ParseDataRate accepts "250kbit", "1mbit", "2mbit" and the RATE_* names,
// case-insensitively.
func ParseDataRate(s string) (DataRate, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	name = strings.TrimPrefix(name, "rate_")
	switch name {
	case "250kbit":
		return Rate250Kbit, nil
	case "1mbit":
		return Rate1Mbit, nil
	case "2mbit":
		return Rate2Mbit, nil
	default:
		return 0, fmt.Errorf("%w: unknown data rate %q", ErrInvalidValue, s)
	}
}

// powerTable maps the power index (0-7) to transmit power in dBm
var powerTable = [8]int8{-30, -20, -16, -12, -8, -4, 0, 4}

// PowerDBm returns the transmit power for a power index.
func PowerDBm(index int) (int8, bool) {
	if index < 0 || index >= len(powerTable) {
		return 0, false
	}
	return powerTable[index], true
}

// PowerIndex is the inverse of PowerDBm.
func PowerIndex(dbm int8) (int, bool) {
	for i, v := range powerTable {
		if v == dbm {
			return i, true
		}
	}
	return 0, false
}

// Config is the committed radio configuration. It is a value type and is
// replaced wholesale by each successful Configure.
type Config struct {
	Address    uint32
	MaxPayload uint8
	QueueLen   uint8
	Channel    uint8
	PowerDBm   int8
	Group      uint8
	DataRate   DataRate
}

// DefaultConfig returns the power-on configuration
func DefaultConfig() Config {
	return Config{
		MaxPayload: DefaultMaxPayload,
		QueueLen:   DefaultQueueLen,
		Channel:    DefaultChannel,
		PowerDBm:   DefaultPowerDBm,
		Address:    DefaultAddress,
		Group:      DefaultGroup,
		DataRate:   DefaultDataRate,
	}
}

// Settings returns the register-level subset pushed to the hardware
func (c Config) Settings() Settings {
	return Settings{
		Channel:  c.Channel,
		Address:  c.Address,
		Group:    c.Group,
		DataRate: c.DataRate,
		PowerDBm: c.PowerDBm,
	}
}

// SlotSize is the size of one buffer slot: a length byte plus MaxPayload.
func (c Config) SlotSize() int {
	return int(c.MaxPayload) + 1
}

// BufferSize is the packet arena size for this configuration
func (c Config) BufferSize() int {
	return c.SlotSize() * (int(c.QueueLen) + 1)
}

// Options expresses c as the option list that would produce it from any
// other configuration.
func (c Config) Options() []Option {
	powerIndex, _ := PowerIndex(c.PowerDBm)
	return []Option{
		Length(int(c.MaxPayload)),
		Queue(int(c.QueueLen)),
		Channel(int(c.Channel)),
		Power(powerIndex),
		WithDataRate(c.DataRate),
		Address(c.Address),
		Group(int(c.Group)),
	}
}

// Validate checks every field of a fully populated configuration.
func (c Config) Validate() error {
	_, _, err := Config{}.Apply(c.Options()...)
	if err != nil {
		return err
	}
	if _, ok := PowerIndex(c.PowerDBm); !ok {
		return &ConfigError{Key: KeyPower, Err: ErrOutOfRange, Value: int64(c.PowerDBm)}
	}
	return nil
}

func (c Config) String() string {
	return fmt.Sprintf("length=%d queue=%d channel=%d power=%ddBm data_rate=%s address=0x%08X group=%d",
		c.MaxPayload, c.QueueLen, c.Channel, c.PowerDBm, c.DataRate, c.Address, c.Group)
}

// Option is a single keyword override
type Option struct {
	Key   string
	Value int64
}

// Length sets the maximum payload size (1-251)
func Length(n int) Option { return Option{Key: KeyLength, Value: int64(n)} }

// Queue sets the number of receive slots (1-254)
func Queue(n int) Option { return Option{Key: KeyQueue, Value: int64(n)} }

// Channel sets the logical channel (0-100)
func Channel(n int) Option { return Option{Key: KeyChannel, Value: int64(n)} }

// Power sets the transmit power by table index (0-7)
func Power(index int) Option { return Option{Key: KeyPower, Value: int64(index)} }

// WithDataRate sets the modulation rate
func WithDataRate(r DataRate) Option { return Option{Key: KeyDataRate, Value: int64(r)} }

// Address sets the base network address
func Address(a uint32) Option { return Option{Key: KeyAddress, Value: int64(a)} }

// Group sets the address-group byte (0-255)
func Group(g int) Option { return Option{Key: KeyGroup, Value: int64(g)} }

// Change describes what a successful Apply altered
type Change struct {
	// Geometry is set when MaxPayload or QueueLen changed, which requires a
	// new packet buffer.
	Geometry bool
	// Registers is set when any hardware-facing field changed.
	Registers bool
}

// Any reports whether anything changed at all
func (c Change) Any() bool {
	return c.Geometry || c.Registers
}

// Apply validates opts on top of c and returns the candidate configuration.
// Keys are checked in order and the first invalid one fails the whole call;
// c itself is a value and is never modified.
func (c Config) Apply(opts ...Option) (Config, Change, error) {
	next := c
	for _, opt := range opts {
		if err := next.set(opt); err != nil {
			return c, Change{}, err
		}
	}
	return next, diff(c, next), nil
}

func (c *Config) set(opt Option) error {
	v := opt.Value
	outOfRange := &ConfigError{Key: opt.Key, Err: ErrOutOfRange, Value: v}

	switch opt.Key {
	case KeyLength:
		if v < MinPayloadLength || v > MaxPayloadLength {
			return outOfRange
		}
		c.MaxPayload = uint8(v)
	case KeyQueue:
		if v < MinQueueLength || v > MaxQueueLength {
			return outOfRange
		}
		c.QueueLen = uint8(v)
	case KeyChannel:
		if v < 0 || v > MaxChannel {
			return outOfRange
		}
		c.Channel = uint8(v)
	case KeyPower:
		if v < 0 || v >= int64(len(powerTable)) {
			return outOfRange
		}
		c.PowerDBm = powerTable[v]
	case KeyDataRate:
		if v < 0 || v > math.MaxUint8 || !DataRate(v).Valid() {
			return outOfRange
		}
		c.DataRate = DataRate(v)
	case KeyAddress:
		// Both the signed and unsigned 32-bit spellings are accepted.
		if v < math.MinInt32 || v > math.MaxUint32 {
			return outOfRange
		}
		c.Address = uint32(v)
	case KeyGroup:
		if v < 0 || v > MaxGroup {
			return outOfRange
		}
		c.Group = uint8(v)
	default:
		return &ConfigError{Key: opt.Key, Err: ErrUnknownKey, Value: v}
	}
	return nil
}

func diff(prev, next Config) Change {
	return Change{
		Geometry: prev.MaxPayload != next.MaxPayload || prev.QueueLen != next.QueueLen,
		Registers: prev.Channel != next.Channel ||
			prev.PowerDBm != next.PowerDBm ||
			prev.Address != next.Address ||
			prev.Group != next.Group ||
			prev.DataRate != next.DataRate,
	}
}

// ParseOptions converts "key=value" arguments into options, preserving
// their order. Any argument without '=' is positional and rejects the whole
// call. Unknown keys are passed through and rejected later by Apply.
func ParseOptions(args []string) ([]Option, error) {
	for _, arg := range args {
		if !strings.Contains(arg, "=") {
			return nil, fmt.Errorf("%w: %q", ErrPositionalArgument, arg)
		}
	}

	opts := make([]Option, 0, len(args))
	for _, arg := range args {
		key, raw, _ := strings.Cut(arg, "=")
		opt, err := ParseOption(key, raw)
		if err != nil {
			return nil, err
		}
		opts = append(opts, opt)
	}
	return opts, nil
}

// ParseOption parses a single keyword value. Numbers accept any base prefix
// understood by strconv (0x, 0o, 0b); data_rate also accepts rate names.
func ParseOption(key, raw string) (Option, error) {
	key = strings.ToLower(strings.TrimSpace(key))
	raw = strings.TrimSpace(raw)

	if key == KeyDataRate {
		if rate, err := ParseDataRate(raw); err == nil {
			return WithDataRate(rate), nil
		}
	}

	v, err := strconv.ParseInt(raw, 0, 64)
	if err != nil {
		return Option{}, &ConfigError{Key: key, Err: ErrInvalidValue}
	}
	return Option{Key: key, Value: v}, nil
}
