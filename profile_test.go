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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProfile(t *testing.T) {
	t.Parallel()

	opts, err := ParseProfile([]byte(`
# shared classroom profile
channel: 42
group: 0x10
data_rate: 2mbit
length: 64
address: 0xDEADBEEF
`))
	require.NoError(t, err)
	assert.Equal(t, []Option{
		Channel(42),
		Group(16),
		WithDataRate(Rate2Mbit),
		Length(64),
		Address(0xDEADBEEF),
	}, opts)

	cfg, _, err := DefaultConfig().Apply(opts...)
	require.NoError(t, err)
	assert.Equal(t, uint8(42), cfg.Channel)
	assert.Equal(t, uint32(0xDEADBEEF), cfg.Address)
}

func TestParseProfile_Empty(t *testing.T) {
	t.Parallel()

	opts, err := ParseProfile(nil)
	require.NoError(t, err)
	assert.Empty(t, opts)

	opts, err = ParseProfile([]byte("# nothing\n"))
	require.NoError(t, err)
	assert.Empty(t, opts)
}

func TestParseProfile_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		doc  string
	}{
		{name: "not a mapping", doc: "- channel\n- 7\n"},
		{name: "nested value", doc: "channel:\n  a: 1\n"},
		{name: "bad number", doc: "channel: seven\n"},
		{name: "invalid yaml", doc: "channel: [1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := ParseProfile([]byte(tt.doc))
			require.Error(t, err)
		})
	}
}

func TestParseProfile_UnknownKeyRejectedByApply(t *testing.T) {
	t.Parallel()

	opts, err := ParseProfile([]byte("speed: 3\n"))
	require.NoError(t, err)
	_, _, err = DefaultConfig().Apply(opts...)
	require.ErrorIs(t, err, ErrUnknownKey)
}

func TestProfileOf_MarshalRoundTrip(t *testing.T) {
	t.Parallel()

	want, _, err := DefaultConfig().Apply(Length(100), Queue(9), Channel(3), Power(2),
		WithDataRate(Rate250Kbit), Address(0x01020304), Group(200))
	require.NoError(t, err)

	doc, err := ProfileOf(want).Marshal()
	require.NoError(t, err)
	assert.Contains(t, string(doc), "data_rate: 250kbit")
	assert.Contains(t, string(doc), "0x01020304")

	opts, err := ParseProfile(doc)
	require.NoError(t, err)
	got, _, err := Config{}.Apply(opts...)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLoadProfile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "radio.yaml")
	require.NoError(t, os.WriteFile(path, []byte("queue: 8\n"), 0o600))

	opts, err := LoadProfile(path)
	require.NoError(t, err)
	assert.Equal(t, []Option{Queue(8)}, opts)

	_, err = LoadProfile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestProfileFromLookup(t *testing.T) {
	t.Parallel()

	env := map[string]string{
		"NRFRADIO_CHANNEL":   "12",
		"NRFRADIO_DATA_RATE": "250kbit",
		"NRFRADIO_GROUP":     "",
	}
	lookup := func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}

	opts, err := profileFromLookup(lookup)
	require.NoError(t, err)
	assert.Equal(t, []Option{Channel(12), WithDataRate(Rate250Kbit)}, opts)

	env["NRFRADIO_QUEUE"] = "lots"
	env["NRFRADIO_POWER"] = "max"
	_, err = profileFromLookup(lookup)
	require.ErrorIs(t, err, ErrInvalidValue)
	assert.Contains(t, err.Error(), "'queue'")
	assert.Contains(t, err.Error(), "'power'")
}
