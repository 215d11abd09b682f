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

package serial

import (
	"fmt"
	"slices"
	"strings"

	"go.bug.st/serial/enumerator"
)

// PortInfo describes a candidate serial port
type PortInfo struct {
	Path         string
	VIDPID       string
	Product      string
	SerialNumber string
	// Known is set when the USB ID belongs to a board that runs the bridge
	// firmware
	Known bool
}

// knownBoards maps USB VID:PID pairs of boards that run the bridge firmware
var knownBoards = map[string]string{
	"0D28:0204": "BBC micro:bit (DAPLink)",
	"1915:520F": "Nordic nRF52840 Dongle",
	"1915:521F": "Nordic nRF52840 Dongle (bootloader)",
	"1366:1015": "SEGGER J-Link (nRF DK)",
	"1366:1051": "SEGGER J-Link (nRF DK)",
}

// defaultIgnored lists USB IDs never worth probing (GPS receivers, modems)
var defaultIgnored = []string{
	"1546:01A7",
	"1546:01A8",
	"12D1:1506",
}

// ListOptions filters the port list
type ListOptions struct {
	// IgnorePaths skips these device paths
	IgnorePaths []string
	// Blocklist skips these VID:PID pairs in addition to the defaults
	Blocklist []string
	// KnownOnly drops ports that are not a recognised board
	KnownOnly bool
}

// ListPorts enumerates USB serial ports, known boards first
func ListPorts(opts ListOptions) ([]PortInfo, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate serial ports: %w", err)
	}
	return filterPorts(details, opts), nil
}

func filterPorts(details []*enumerator.PortDetails, opts ListOptions) []PortInfo {
	blocked := append(slices.Clone(defaultIgnored), opts.Blocklist...)
	var known, other []PortInfo
	for _, d := range details {
		info := PortInfo{Path: d.Name, Product: d.Product, SerialNumber: d.SerialNumber}
		if d.IsUSB {
			info.VIDPID = strings.ToUpper(d.VID + ":" + d.PID)
		}
		if slices.Contains(opts.IgnorePaths, info.Path) || isBlocked(info.VIDPID, blocked) {
			continue
		}
		if name, ok := knownBoards[info.VIDPID]; ok {
			info.Known = true
			if info.Product == "" {
				info.Product = name
			}
			known = append(known, info)
			continue
		}
		if !opts.KnownOnly {
			other = append(other, info)
		}
	}
	return append(known, other...)
}

func isBlocked(vidpid string, blocklist []string) bool {
	if vidpid == "" {
		return false
	}
	for _, b := range blocklist {
		if strings.EqualFold(b, vidpid) {
			return true
		}
	}
	return false
}
