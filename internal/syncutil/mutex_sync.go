//go:build !deadlock

// Package syncutil holds the mutex types used across go-nrfradio. The
// default build uses the sync package directly. Building with
// -tags=deadlock swaps in github.com/sasha-s/go-deadlock so lock-order
// problems between the engine and hardware goroutines are reported.
package syncutil

import "sync"

// Mutex is a sync.Mutex unless built with -tags=deadlock.
//
//nolint:gocritic // embedded to expose Lock/Unlock/TryLock
type Mutex struct {
	sync.Mutex
}

// RWMutex is a sync.RWMutex unless built with -tags=deadlock.
//
//nolint:gocritic // embedded to expose the full RWMutex method set
type RWMutex struct {
	sync.RWMutex
}
