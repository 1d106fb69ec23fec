// Copyright 2026 The Folderacl Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock abstracts the current time for testability.
// Production code injects Real(); tests inject a Fake with
// deterministic control. Folderacl only stamps records (folder and
// directory creation times, snapshot headers), so the interface
// carries Now and nothing else.
package clock

import (
	"sync"
	"time"
)

// Clock supplies the current time. Every production function that
// would call time.Now should take a Clock (or live on a struct with a
// Clock field) instead.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
}

// Real returns a Clock backed by the system clock.
func Real() Clock {
	return realClock{}
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}

// Fake is a manually advanced Clock for deterministic tests. The zero
// value is not usable; create Fakes with NewFake.
type Fake struct {
	mu  sync.Mutex
	now time.Time
}

// NewFake returns a Fake frozen at start.
func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

// Now returns the fake's current time.
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Advance moves the fake's current time forward by d.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}
