//go:build deadlock

// Package syncutil holds the mutex types used across go-nrfradio. This
// file is compiled with -tags=deadlock and reports potential deadlocks
// through github.com/sasha-s/go-deadlock.
package syncutil

import deadlock "github.com/sasha-s/go-deadlock"

// Mutex is a deadlock-detecting mutex.
type Mutex struct {
	deadlock.Mutex
}

// RWMutex is a deadlock-detecting reader/writer mutex.
type RWMutex struct {
	deadlock.RWMutex
}
