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
)

// Allocator returns a zeroed byte slice of exactly size bytes
type Allocator func(size int) ([]byte, error)

// DefaultAllocator allocates from the Go heap
func DefaultAllocator(size int) ([]byte, error) {
	return make([]byte, size), nil
}

// Span is a half-open index range [Start, End) within a PacketBuffer
type Span struct {
	Start int
	End   int
}

// Len returns the number of bytes covered by the span
func (s Span) Len() int {
	return s.End - s.Start
}

// Overlaps reports whether two spans share any byte
func (s Span) Overlaps(o Span) bool {
	return s.Start < o.End && o.Start < s.End
}

// PacketBuffer is the packet arena: slot 0 stages the outgoing frame, slots
// 1..queueLen hold received frames. Every slot is maxPayload+1 bytes.
//
// A PacketBuffer is owned by exactly one Engine and is not safe for
// concurrent use on its own.
type PacketBuffer struct {
	arena      []byte
	maxPayload int
	queueLen   int
}

// NewPacketBuffer allocates a buffer from the Go heap
func NewPacketBuffer(maxPayload, queueLen int) (*PacketBuffer, error) {
	return AllocatePacketBuffer(maxPayload, queueLen, DefaultAllocator)
}

// AllocatePacketBuffer allocates (maxPayload+1)*(queueLen+1) bytes through
// alloc. At least one transmit and one receive slot are required.
func AllocatePacketBuffer(maxPayload, queueLen int, alloc Allocator) (*PacketBuffer, error) {
	if maxPayload < MinPayloadLength || maxPayload > MaxPayloadLength ||
		queueLen < MinQueueLength || queueLen > MaxQueueLength {
		return nil, fmt.Errorf("%w: length=%d queue=%d", ErrInvalidGeometry, maxPayload, queueLen)
	}
	if alloc == nil {
		alloc = DefaultAllocator
	}

	size := (maxPayload + 1) * (queueLen + 1)
	arena, err := alloc(size)
	if err != nil {
		return nil, fmt.Errorf("%w: %d bytes: %w", ErrAllocation, size, err)
	}
	if len(arena) != size {
		return nil, fmt.Errorf("%w: allocator returned %d bytes, want %d", ErrAllocation, len(arena), size)
	}

	return &PacketBuffer{
		arena:      arena,
		maxPayload: maxPayload,
		queueLen:   queueLen,
	}, nil
}

// Len returns the arena size in bytes, or 0 once released
func (b *PacketBuffer) Len() int {
	return len(b.arena)
}

// MaxPayload returns the payload capacity of one slot
func (b *PacketBuffer) MaxPayload() int {
	return b.maxPayload
}

// QueueLen returns the number of receive slots
func (b *PacketBuffer) QueueLen() int {
	return b.queueLen
}

// SlotSize returns the size of one slot including its length byte
func (b *PacketBuffer) SlotSize() int {
	return b.maxPayload + 1
}

// TxSlot returns the transmit staging slot
func (b *PacketBuffer) TxSlot() Span {
	return Span{Start: 0, End: b.SlotSize()}
}

// RxRegion returns the receive ring, which runs to the end of the arena
func (b *PacketBuffer) RxRegion() Span {
	return Span{Start: b.SlotSize(), End: b.SlotSize() * (b.queueLen + 1)}
}

// Bytes returns the arena bytes covered by s. After Release, or for a span
// outside the arena, it returns nil.
func (b *PacketBuffer) Bytes(s Span) []byte {
	if b.arena == nil || s.Start < 0 || s.End > len(b.arena) || s.Start > s.End {
		return nil
	}
	return b.arena[s.Start:s.End:s.End]
}

// Released reports whether Release has been called
func (b *PacketBuffer) Released() bool {
	return b.arena == nil
}

// Release drops the arena. Spans taken earlier resolve to nil afterwards.
func (b *PacketBuffer) Release() {
	b.arena = nil
}
