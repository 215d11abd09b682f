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

// Checksum returns the byte sum of data modulo 256
func Checksum(data []byte) byte {
	var sum byte
	for _, b := range data {
		sum += b
	}
	return sum
}

// LengthChecksum returns the LCS byte for a LEN value
func LengthChecksum(length byte) byte {
	return ^length + 1
}

// DataChecksum returns the DCS byte for a frame body
func DataChecksum(body []byte) byte {
	return ^Checksum(body) + 1
}

// validLength reports whether LEN and LCS agree
func validLength(length, lcs byte) bool {
	return length+lcs == 0
}

// validBody reports whether body followed by dcs sums to zero
func validBody(body []byte, dcs byte) bool {
	return Checksum(body)+dcs == 0
}
