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
	"io"
	"runtime"
	"syscall"
)

// Engine state errors
var (
	// ErrNotEnabled is returned by Send and Receive while the radio is off.
	ErrNotEnabled = errors.New("radio is not enabled")
	// ErrNotAString is returned by a typed receive when the popped packet
	// does not carry the string tag. The packet is consumed regardless.
	ErrNotAString = errors.New("received packet is not a string")
)

// Configuration errors - never retryable with the same input
var (
	ErrUnknownKey         = errors.New("unknown argument")
	ErrOutOfRange         = errors.New("value out of range for argument")
	ErrInvalidValue       = errors.New("invalid value for argument")
	ErrPositionalArgument = errors.New("arguments must be keyword arguments")
)

// Buffer errors - fatal for the engine
var (
	ErrInvalidGeometry = errors.New("invalid packet buffer geometry")
	ErrAllocation      = errors.New("packet buffer allocation failed")
	ErrBufferReleased  = errors.New("packet buffer released")
)

// Hardware errors
var (
	ErrHardwareTimeout  = errors.New("hardware timeout")
	ErrHardwareWrite    = errors.New("hardware write failed")
	ErrHardwareRead     = errors.New("hardware read failed")
	ErrHardwareClosed   = errors.New("hardware is closed")
	ErrHardwareNotReady = errors.New("hardware not ready")
	ErrNoACK            = errors.New("no ACK received")
	ErrNACKReceived     = errors.New("NACK received")
	ErrFrameCorrupted   = errors.New("frame corrupted")
	ErrChecksumMismatch = errors.New("checksum mismatch")
	ErrCommandRejected  = errors.New("command rejected by radio")
	ErrFrameTooLarge    = errors.New("frame too large")
)

// ErrorType represents the category of error for retry logic
type ErrorType int

const (
	// ErrorTypeTransient indicates a potentially retryable error
	ErrorTypeTransient ErrorType = iota
	// ErrorTypePermanent indicates a non-retryable error
	ErrorTypePermanent
	// ErrorTypeTimeout indicates a timeout error (special handling)
	ErrorTypeTimeout
)

// ConfigError reports the first option that failed validation. The committed
// configuration is never modified when a ConfigError is returned.
type ConfigError struct {
	Err   error // ErrUnknownKey, ErrOutOfRange or ErrInvalidValue
	Key   string
	Value int64
}

func (e *ConfigError) Error() string {
	if !errors.Is(e.Err, ErrOutOfRange) {
		return fmt.Sprintf("%v '%s'", e.Err, e.Key)
	}
	return fmt.Sprintf("%v '%s' (got %d)", e.Err, e.Key, e.Value)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// HardwareError wraps radio hardware failures with additional context
type HardwareError struct {
	Err       error        // Underlying error
	Op        string       // Operation that failed
	Port      string       // Port, bus or broker identifier
	Hardware  HardwareType // Backend that produced the error
	Type      ErrorType    // Error category
	Retryable bool         // Whether the error is retryable
}

func (e *HardwareError) Error() string {
	if e.Port != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Port, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *HardwareError) Unwrap() error {
	return e.Err
}

// IsConfigError reports whether err came from option validation and
// returns the offending key.
func IsConfigError(err error) (string, bool) {
	var ce *ConfigError
	if errors.As(err, &ce) {
		return ce.Key, true
	}
	return "", false
}

// IsRetryable returns true if the error is potentially retryable
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var he *HardwareError
	if errors.As(err, &he) {
		return he.Retryable
	}

	switch {
	case errors.Is(err, ErrHardwareTimeout),
		errors.Is(err, ErrHardwareRead),
		errors.Is(err, ErrHardwareWrite),
		errors.Is(err, ErrNoACK),
		errors.Is(err, ErrNACKReceived),
		errors.Is(err, ErrFrameCorrupted),
		errors.Is(err, ErrChecksumMismatch):
		return true
	default:
		return false
	}
}

// IsFatal returns true if the error means the engine or its hardware cannot
// continue without being re-enabled or reopened.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}

	var he *HardwareError
	if errors.As(err, &he) {
		return he.Type == ErrorTypePermanent
	}

	if isDeviceGoneError(err) {
		return true
	}

	switch {
	case errors.Is(err, ErrAllocation),
		errors.Is(err, ErrInvalidGeometry),
		errors.Is(err, ErrHardwareClosed),
		errors.Is(err, io.EOF),
		errors.Is(err, io.ErrClosedPipe):
		return true
	default:
		return false
	}
}

// Windows error codes for device disconnection detection.
const (
	errAccessDenied syscall.Errno = 5   // ERROR_ACCESS_DENIED
	errGenFailure   syscall.Errno = 31  // ERROR_GEN_FAILURE
	errNoSuchDevice syscall.Errno = 433 // ERROR_NO_SUCH_DEVICE
)

// isDeviceGoneError checks for OS-level errors raised when a USB bridge is
// unplugged during I/O.
func isDeviceGoneError(err error) bool {
	var errno syscall.Errno
	if !errors.As(err, &errno) {
		return false
	}

	//nolint:exhaustive // Only checking specific device-gone errors
	switch errno {
	case syscall.EIO, syscall.ENXIO, syscall.ENODEV:
		return true
	}

	if runtime.GOOS == "windows" {
		//nolint:exhaustive // Only checking specific device-gone errors
		switch errno {
		case errAccessDenied, errGenFailure, errNoSuchDevice:
			return true
		}
	}
	return false
}

// NewHardwareError creates a hardware error with consistent formatting
func NewHardwareError(hw HardwareType, op, port string, err error, errType ErrorType) *HardwareError {
	return &HardwareError{
		Op:        op,
		Port:      port,
		Hardware:  hw,
		Err:       err,
		Type:      errType,
		Retryable: errType == ErrorTypeTransient || errType == ErrorTypeTimeout,
	}
}

// NewTimeoutError creates a timeout error for hardware operations
func NewTimeoutError(hw HardwareType, op, port string) *HardwareError {
	return NewHardwareError(hw, op, port, ErrHardwareTimeout, ErrorTypeTimeout)
}

// NewFrameCorruptedError creates a frame corruption error
func NewFrameCorruptedError(hw HardwareType, op, port string) *HardwareError {
	return NewHardwareError(hw, op, port, ErrFrameCorrupted, ErrorTypeTransient)
}

// NewHardwareWriteError creates a write error (transient)
func NewHardwareWriteError(hw HardwareType, op, port string) *HardwareError {
	return NewHardwareError(hw, op, port, ErrHardwareWrite, ErrorTypeTransient)
}

// NewNoACKError creates a "no ACK received" error (timeout)
func NewNoACKError(hw HardwareType, op, port string) *HardwareError {
	return NewHardwareError(hw, op, port, ErrNoACK, ErrorTypeTimeout)
}

// NewCommandRejectedError creates an error for a bridge status byte other
// than success (permanent)
func NewCommandRejectedError(hw HardwareType, op, port string, status byte) *HardwareError {
	return NewHardwareError(hw, op, port,
		fmt.Errorf("%w: status 0x%02X", ErrCommandRejected, status), ErrorTypePermanent)
}

// NewFrameTooLargeError creates an error for frames over MaxTransmitSize
func NewFrameTooLargeError(hw HardwareType, op, port string) *HardwareError {
	return NewHardwareError(hw, op, port, ErrFrameTooLarge, ErrorTypePermanent)
}
