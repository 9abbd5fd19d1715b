package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	sberrors "github.com/Aman-CERP/songbook/internal/errors"
)

// LockFileName is the lock file created inside a library directory.
const LockFileName = ".songbook.lock"

// DirLock is an exclusive cross-process lock on a library directory.
// Only one process may edit a library at a time.
type DirLock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

// NewDirLock creates a lock for dir. Nothing is acquired yet.
func NewDirLock(dir string) *DirLock {
	path := filepath.Join(dir, LockFileName)
	return &DirLock{path: path, flock: flock.New(path)}
}

// TryLock attempts to acquire the lock without blocking.
func (l *DirLock) TryLock() (bool, error) {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return false, fmt.Errorf("failed to create lock directory: %w", err)
	}

	acquired, err := l.flock.TryLock()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock: %w", err)
	}
	if acquired {
		l.locked = true
	}
	return acquired, nil
}

// Acquire retries TryLock with backoff until it succeeds, ctx ends, or
// timeout elapses.
// A non-positive timeout makes a single attempt.
func (l *DirLock) Acquire(ctx context.Context, timeout time.Duration) error {
	locked := sberrors.New(sberrors.ErrCodeStoreLocked, "library is in use by another process", nil).
		WithDetail("lock", l.path).
		WithSuggestion("close the other songbook process and retry")

	if timeout <= 0 {
		ok, err := l.TryLock()
		if err != nil {
			return err
		}
		if !ok {
			return locked
		}
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cfg := sberrors.DefaultRetryConfig()
	cfg.MaxRetries = 1 << 20 // bounded by ctx
	err := sberrors.Retry(ctx, cfg, func() error {
		ok, err := l.TryLock()
		if err != nil {
			return err
		}
		if !ok {
			return locked
		}
		return nil
	})
	if err != nil && ctx.Err() != nil {
		return locked
	}
	return err
}

// Unlock releases the lock. Safe to call when not held.
func (l *DirLock) Unlock() error {
	if !l.locked {
		return nil
	}
	l.locked = false
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}

// Path returns the lock file path.
func (l *DirLock) Path() string { return l.path }

// IsLocked reports whether this process holds the lock.
func (l *DirLock) IsLocked() bool { return l.locked }
