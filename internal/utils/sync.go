package utils

import (
	"runtime"
	"sync/atomic"
)

// SpinLock is a busy-wait mutual exclusion lock. It is neither fair nor reentrant and
// should only guard a handful of instructions.
type SpinLock struct {
	locked atomic.Bool
}

func (l *SpinLock) Lock() {
	for !l.TryLock() {
		// Wait for the holder to release before trying to claim again
		for l.locked.Load() {
			runtime.Gosched()
		}
	}
}

// TryLock claims the lock if it is free and reports whether it did
func (l *SpinLock) TryLock() bool {
	return !l.locked.Load() && !l.locked.Swap(true)
}

func (l *SpinLock) Unlock() {
	l.locked.Store(false)
}

type OptionalSpinLock struct {
	Lock    SpinLock
	UseLock bool
}

func (m *OptionalSpinLock) Acquire() {
	if m.UseLock {
		m.Lock.Lock()
	}
}

func (m *OptionalSpinLock) Release() {
	if m.UseLock {
		m.Lock.Unlock()
	}
}
