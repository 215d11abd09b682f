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

// AppendResult is the outcome of ReceiveQueue.Append
type AppendResult int

const (
	// Accepted means the frame was queued
	Accepted AppendResult = iota
	// Dropped means the frame was discarded, either because the queue was
	// full or because the frame was malformed
	Dropped
)

func (r AppendResult) String() string {
	if r == Accepted {
		return "accepted"
	}
	return "dropped"
}

// ReceiveQueue is a FIFO of length-prefixed frames packed into the receive
// region of a PacketBuffer. Frames are stored back to back starting at the
// beginning of the region; frontier marks the first free byte.
//
// ReceiveQueue does no locking. The Engine serialises Append against
// PopOldest.
type ReceiveQueue struct {
	buf      *PacketBuffer
	frontier int
	count    int
	accepted uint64
	dropped  uint64
}

// NewReceiveQueue creates an empty queue over buf's receive region
func NewReceiveQueue(buf *PacketBuffer) *ReceiveQueue {
	return &ReceiveQueue{
		buf:      buf,
		frontier: buf.RxRegion().Start,
	}
}

// Append copies one frame ([len][payload...]) to the frontier. A length byte
// above MaxPayload is clamped, as the radio's length field would be. The
// frame is only accepted if a maximal frame would still fit after it, so
// the tail of the region is never left partially writable.
func (q *ReceiveQueue) Append(frame []byte) AppendResult {
	if q.buf.Released() || len(frame) == 0 {
		q.dropped++
		return Dropped
	}

	n := int(frame[0])
	if n > q.buf.MaxPayload() {
		n = q.buf.MaxPayload()
	}
	size := 1 + n
	if size > len(frame) {
		q.dropped++
		return Dropped
	}

	if q.frontier+size+q.buf.SlotSize() > q.buf.RxRegion().End {
		q.dropped++
		return Dropped
	}

	dst := q.buf.Bytes(Span{Start: q.frontier, End: q.frontier + size})
	dst[0] = byte(n)
	copy(dst[1:], frame[1:size])

	q.frontier += size
	q.count++
	q.accepted++
	return Accepted
}

// PopOldest removes the oldest frame and returns a copy of its payload.
// The remaining frames are moved down to the start of the region. An empty
// queue returns false and is left untouched.
func (q *ReceiveQueue) PopOldest() ([]byte, bool) {
	rx := q.buf.RxRegion()
	if q.frontier == rx.Start || q.buf.Released() {
		return nil, false
	}

	queued := q.buf.Bytes(Span{Start: rx.Start, End: q.frontier})
	size := 1 + int(queued[0])

	payload := make([]byte, size-1)
	copy(payload, queued[1:size])

	copy(queued, queued[size:])
	q.frontier -= size
	q.count--
	return payload, true
}

// Len returns the number of queued frames
func (q *ReceiveQueue) Len() int {
	return q.count
}

// Empty reports whether no frame is queued
func (q *ReceiveQueue) Empty() bool {
	return q.frontier == q.buf.RxRegion().Start
}

// Bytes returns the number of bytes used by queued frames
func (q *ReceiveQueue) Bytes() int {
	return q.frontier - q.buf.RxRegion().Start
}

// Frontier returns the arena offset of the first free receive byte
func (q *ReceiveQueue) Frontier() int {
	return q.frontier
}

// Free returns the largest framed size Append would accept right now
func (q *ReceiveQueue) Free() int {
	free := q.buf.RxRegion().End - q.frontier - q.buf.SlotSize()
	if free < 0 {
		return 0
	}
	return free
}

// MaxFrames returns how many maximal-length frames an empty queue accepts
func (q *ReceiveQueue) MaxFrames() int {
	return q.buf.QueueLen() - 1
}

// Counters returns the number of frames accepted and dropped so far
func (q *ReceiveQueue) Counters() (accepted, dropped uint64) {
	return q.accepted, q.dropped
}

// Reset empties the queue without releasing the buffer
func (q *ReceiveQueue) Reset() {
	q.frontier = q.buf.RxRegion().Start
	q.count = 0
}

// check walks the queued frames and verifies they end exactly at the
// frontier.
func (q *ReceiveQueue) check() error {
	rx := q.buf.RxRegion()
	if q.frontier < rx.Start || q.frontier > rx.End {
		return fmt.Errorf("frontier %d outside receive region [%d,%d)", q.frontier, rx.Start, rx.End)
	}
	queued := q.buf.Bytes(Span{Start: rx.Start, End: q.frontier})
	off, frames := 0, 0
	for off < len(queued) {
		n := int(queued[off])
		if n > q.buf.MaxPayload() {
			return fmt.Errorf("frame %d length %d exceeds max payload %d", frames, n, q.buf.MaxPayload())
		}
		off += 1 + n
		frames++
	}
	if off != len(queued) {
		return fmt.Errorf("frames end at %d, frontier at %d", rx.Start+off, q.frontier)
	}
	if frames != q.count {
		return fmt.Errorf("walked %d frames, count is %d", frames, q.count)
	}
	return nil
}
