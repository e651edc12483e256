// Package syncutil implements a writer-priority shared/exclusive mutex
// (spec §4.13): once a writer is waiting, new shared acquirers block
// behind it, so reader floods cannot starve writers.
//
// Grounded on spec §4.13's state description; no teacher or pack file
// carries an equivalent primitive, so this is built directly from the
// spec in gastrolog's style (small struct, one internal mutex, a
// scoped guard type for callers that want defer-friendly unlocking).
package syncutil

import "sync"

// RWMutex is a shared/exclusive mutex with writer priority: a pending
// exclusive waiter blocks new shared lock attempts until it has run.
type RWMutex struct {
	mu             sync.Mutex
	sharedCond     sync.Cond
	exclusiveCond  sync.Cond
	sharedCount    int
	exclusiveWait  int
	exclusiveHeld  bool
	condsInit      bool
}

func (m *RWMutex) ensureInit() {
	if !m.condsInit {
		m.sharedCond.L = &m.mu
		m.exclusiveCond.L = &m.mu
		m.condsInit = true
	}
}

// Lock acquires the mutex exclusively, blocking behind any in-progress
// readers or writers. Announces itself as waiting first, so it is
// prioritized over shared acquirers that arrive afterward.
func (m *RWMutex) Lock() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensureInit()

	m.exclusiveWait++
	for m.exclusiveHeld || m.sharedCount > 0 {
		m.exclusiveCond.Wait()
	}
	m.exclusiveWait--
	m.exclusiveHeld = true
}

// Unlock releases an exclusive lock, waking waiters: other pending
// writers get priority, then readers.
func (m *RWMutex) Unlock() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensureInit()

	m.exclusiveHeld = false
	if m.exclusiveWait > 0 {
		m.exclusiveCond.Signal()
	} else {
		m.sharedCond.Broadcast()
	}
}

// RLock acquires the mutex for shared (read) access, blocking if a
// writer holds it or is waiting.
func (m *RWMutex) RLock() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensureInit()

	for m.exclusiveHeld || m.exclusiveWait > 0 {
		m.sharedCond.Wait()
	}
	m.sharedCount++
}

// RUnlock releases one shared acquisition.
func (m *RWMutex) RUnlock() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensureInit()

	m.sharedCount--
	if m.sharedCount == 0 && m.exclusiveWait > 0 {
		m.exclusiveCond.Signal()
	}
}

// SharedGuard is a scoped shared-lock guard: RLock on construction,
// and an idempotent Unlock callers may invoke early (double-unlock is
// a no-op, per spec §4.13).
type SharedGuard struct {
	mu       *RWMutex
	unlocked bool
}

// NewSharedGuard acquires m for shared access and returns a guard that
// releases it, safely, at most once.
func NewSharedGuard(m *RWMutex) *SharedGuard {
	m.RLock()
	return &SharedGuard{mu: m}
}

// Unlock releases the shared lock if not already released.
func (g *SharedGuard) Unlock() {
	if g.unlocked {
		return
	}
	g.unlocked = true
	g.mu.RUnlock()
}
