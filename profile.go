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
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes the environment overrides read by ProfileFromEnv
const EnvPrefix = "NRFRADIO_"

// Profile is the YAML form of a configuration. Fields left out of a file
// keep whatever value the engine already has.
type Profile struct {
	Length   *int    `yaml:"length,omitempty"`
	Queue    *int    `yaml:"queue,omitempty"`
	Channel  *int    `yaml:"channel,omitempty"`
	Power    *int    `yaml:"power,omitempty"`
	DataRate *string `yaml:"data_rate,omitempty"`
	Address  *string `yaml:"address,omitempty"`
	Group    *int    `yaml:"group,omitempty"`
}

// ProfileOf returns the complete profile for cfg
func ProfileOf(cfg Config) Profile {
	length := int(cfg.MaxPayload)
	queue := int(cfg.QueueLen)
	channel := int(cfg.Channel)
	power, _ := PowerIndex(cfg.PowerDBm)
	rate := cfg.DataRate.String()
	address := fmt.Sprintf("0x%08X", cfg.Address)
	group := int(cfg.Group)
	return Profile{
		Length:   &length,
		Queue:    &queue,
		Channel:  &channel,
		Power:    &power,
		DataRate: &rate,
		Address:  &address,
		Group:    &group,
	}
}

// Marshal renders the profile as YAML
func (p Profile) Marshal() ([]byte, error) {
	out, err := yaml.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal profile: %w", err)
	}
	return out, nil
}

// ParseProfile reads a YAML mapping of keyword options. The options are
// returned in document order so that Apply reports the first bad key the
// way a keyword call would. Unknown keys are kept and rejected by Apply.
func ParseProfile(data []byte) ([]Option, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse profile: %w", err)
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return nil, nil
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("profile must be a mapping, line %d", root.Line)
	}

	opts := make([]Option, 0, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, value := root.Content[i], root.Content[i+1]
		if value.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("profile key %q must have a scalar value, line %d", key.Value, value.Line)
		}
		opt, err := ParseOption(key.Value, value.Value)
		if err != nil {
			return nil, fmt.Errorf("profile line %d: %w", value.Line, err)
		}
		opts = append(opts, opt)
	}
	return opts, nil
}

// LoadProfile reads a profile file
func LoadProfile(path string) ([]Option, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is supplied by the operator
	if err != nil {
		return nil, fmt.Errorf("failed to read profile %s: %w", path, err)
	}
	return ParseProfile(data)
}

// ProfileFromEnv reads NRFRADIO_LENGTH, NRFRADIO_QUEUE and so on for each
// option key. Unset variables are skipped.
func ProfileFromEnv() ([]Option, error) {
	return profileFromLookup(os.LookupEnv)
}

func profileFromLookup(lookup func(string) (string, bool)) ([]Option, error) {
	keys := []string{KeyLength, KeyQueue, KeyChannel, KeyPower, KeyDataRate, KeyAddress, KeyGroup}

	var opts []Option
	var errs []error
	for _, key := range keys {
		raw, ok := lookup(EnvPrefix + strings.ToUpper(key))
		if !ok || raw == "" {
			continue
		}
		opt, err := ParseOption(key, raw)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		opts = append(opts, opt)
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid environment override: %w", errors.Join(errs...))
	}
	return opts, nil
}
