// Package keylock provides per-key mutual exclusion. Entries are reference
// counted and dropped when the last holder or waiter is gone, so the table
// only grows with the number of keys in use.
package keylock

import "sync"

type entry struct {
	mu   sync.Mutex
	refs int
}

// Locker serializes work per key. The zero value is ready to use.
type Locker struct {
	mu      sync.Mutex
	entries map[string]*entry
}

func New() *Locker {
	return &Locker{}
}

func (l *Locker) acquire(key string) *entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.entries == nil {
		l.entries = map[string]*entry{}
	}
	e, ok := l.entries[key]
	if !ok {
		e = &entry{}
		l.entries[key] = e
	}
	e.refs++
	return e
}

func (l *Locker) release(key string, e *entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.entries, key)
	}
}

// Lock blocks until key is free and returns the unlock function.
func (l *Locker) Lock(key string) func() {
	e := l.acquire(key)
	e.mu.Lock()
	return l.unlocker(key, e)
}

// TryLock takes key only if nobody holds it.
func (l *Locker) TryLock(key string) (func(), bool) {
	e := l.acquire(key)
	if !e.mu.TryLock() {
		l.release(key, e)
		return nil, false
	}
	return l.unlocker(key, e), true
}

func (l *Locker) unlocker(key string, e *entry) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Unlock()
			l.release(key, e)
		})
	}
}

// Len reports how many keys are currently held or awaited.
func (l *Locker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
