package service

import (
	"context"
	"sync"
)

// DriverLocker serializes read-modify-write sequences for a single driver.
// Lock blocks until the driver is free or ctx ends and returns the release func.
type DriverLocker interface {
	Lock(ctx context.Context, driverID string) (func(), error)
}

// LocalLocker is an in-process DriverLocker keyed by driver ID.
// Entries are reference counted and dropped once no caller holds or waits on them.
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]*driverLock
}

type driverLock struct {
	sem  chan struct{}
	refs int
}

// NewLocalLocker creates a new LocalLocker.
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: make(map[string]*driverLock)}
}

// Lock acquires the lock for driverID.
func (l *LocalLocker) Lock(ctx context.Context, driverID string) (func(), error) {
	l.mu.Lock()
	lock, ok := l.locks[driverID]
	if !ok {
		lock = &driverLock{sem: make(chan struct{}, 1)}
		l.locks[driverID] = lock
	}
	lock.refs++
	l.mu.Unlock()

	select {
	case lock.sem <- struct{}{}:
	case <-ctx.Done():
		l.release(driverID, lock)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-lock.sem
			l.release(driverID, lock)
		})
	}, nil
}

func (l *LocalLocker) release(driverID string, lock *driverLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	lock.refs--
	if lock.refs == 0 {
		delete(l.locks, driverID)
	}
}

// size returns the number of tracked drivers.
func (l *LocalLocker) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

var _ DriverLocker = (*LocalLocker)(nil)
