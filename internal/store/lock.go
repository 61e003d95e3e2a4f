package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// FileLock serializes writers of a corpus file across processes.
// The lock lives next to the database as <corpus>.lock.
type FileLock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

// NewFileLock returns an unlocked lock for the corpus at corpusPath.
func NewFileLock(corpusPath string) *FileLock {
	p := corpusPath + ".lock"
	return &FileLock{path: p, flock: flock.New(p)}
}

// Lock blocks until the lock is held.
func (l *FileLock) Lock() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}
	if err := l.flock.Lock(); err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	l.locked = true
	return nil
}

// TryLock acquires the lock without blocking and reports whether it did.
func (l *FileLock) TryLock() (bool, error) {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return false, fmt.Errorf("failed to create lock directory: %w", err)
	}
	ok, err := l.flock.TryLock()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock: %w", err)
	}
	l.locked = ok
	return ok, nil
}

// Unlock releases the lock. Safe to call when not held.
func (l *FileLock) Unlock() error {
	if !l.locked {
		return nil
	}
	l.locked = false
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}

func (l *FileLock) Path() string {
	return l.path
}
