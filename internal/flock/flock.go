package flock

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrTimeout is returned when a lock cannot be acquired within the wait budget.
var ErrTimeout = errors.New("timed out waiting for lock")

// errWouldBlock is the platform-neutral "lock held elsewhere" signal used by
// the acquisition loop.
var errWouldBlock = errors.New("lock would block")

// pollInterval is how often a contended acquisition retries.
const pollInterval = 50 * time.Millisecond

// Mode selects between shared and exclusive locking.
type Mode int

const (
	// Shared allows any number of concurrent shared holders.
	Shared Mode = iota
	// Exclusive allows a single holder and excludes shared holders.
	Exclusive
)

func (m Mode) String() string {
	if m == Exclusive {
		return "exclusive"
	}
	return "shared"
}

// Lock is an acquired advisory file lock.
type Lock struct {
	mu       sync.Mutex
	file     *os.File
	path     string
	mode     Mode
	owner    string
	released bool
}

// Acquire opens (or creates) the lock file at path and acquires an advisory
// lock in the given mode. Contended acquisitions are retried until maxWait
// elapses (ErrTimeout) or ctx is done. A non-positive maxWait means a single
// non-blocking attempt.
func Acquire(ctx context.Context, path string, mode Mode, maxWait time.Duration) (*Lock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("opening lock file %s: %w", path, err)
	}

	if err := waitLock(ctx, f, mode, maxWait); err != nil {
		f.Close()
		if errors.Is(err, ErrTimeout) {
			return nil, fmt.Errorf("acquiring %s lock on %s: %w", mode, path, ErrTimeout)
		}
		return nil, fmt.Errorf("acquiring %s lock on %s: %w", mode, path, err)
	}

	l := &Lock{file: f, path: path, mode: mode, owner: uuid.NewString()}
	if mode == Exclusive {
		l.writeOwner()
	}
	return l, nil
}

// waitLock polls the non-blocking platform lock until it succeeds, the wait
// budget is spent, or ctx is canceled.
func waitLock(ctx context.Context, f *os.File, mode Mode, maxWait time.Duration) error {
	deadline := time.Now().Add(maxWait)
	for {
		err := tryLock(f, mode)
		if err == nil {
			return nil
		}
		if !errors.Is(err, errWouldBlock) {
			return err
		}
		if !time.Now().Before(deadline) {
			return ErrTimeout
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.path
}

// Mode returns the currently held mode.
func (l *Lock) Mode() Mode {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.mode
}

// Owner returns the identifier recorded for this holder.
func (l *Lock) Owner() string {
	return l.owner
}

// Upgrade converts a shared lock to exclusive, retrying until maxWait elapses
// or ctx is done. Mode conversion is not atomic: the kernel discards the held
// lock before checking the requested mode for conflicts, so every refused
// attempt is followed by taking the shared lock back. On failure the lock is
// still held shared.
func (l *Lock) Upgrade(ctx context.Context, maxWait time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.released {
		return fmt.Errorf("upgrading released lock on %s", l.path)
	}
	if l.mode == Exclusive {
		return nil
	}

	deadline := time.Now().Add(maxWait)
	for {
		err := tryConvert(l.file, Exclusive)
		if err == nil {
			l.mode = Exclusive
			l.writeOwner()
			return nil
		}
		if !errors.Is(err, errWouldBlock) {
			// Best effort; the failed conversion may still have dropped the
			// lock.
			lockWait(l.file, Shared)
			return fmt.Errorf("upgrading lock on %s: %w", l.path, err)
		}
		// The refused conversion already dropped the shared lock. Take it
		// back before waiting; shared does not conflict with the shared
		// holders that refused the upgrade, so this returns promptly.
		if rerr := lockWait(l.file, Shared); rerr != nil {
			return fmt.Errorf("restoring shared lock on %s: %w", l.path, rerr)
		}
		if !time.Now().Before(deadline) {
			return fmt.Errorf("upgrading lock on %s: %w", l.path, ErrTimeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

// Downgrade converts an exclusive lock back to shared. An exclusive waiter
// that wins the conversion gap only delays the change; the shared lock is
// then taken the blocking way once the waiter is done.
func (l *Lock) Downgrade() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.released {
		return fmt.Errorf("downgrading released lock on %s", l.path)
	}
	if l.mode == Shared {
		return nil
	}
	err := tryConvert(l.file, Shared)
	if errors.Is(err, errWouldBlock) {
		err = lockWait(l.file, Shared)
	}
	if err != nil {
		return fmt.Errorf("downgrading lock on %s: %w", l.path, err)
	}
	l.mode = Shared
	return nil
}

// Release unlocks and closes the file descriptor. Calling it again is a
// no-op.
func (l *Lock) Release() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.released || l.file == nil {
		return nil
	}
	l.released = true
	// Explicit unlock before Close; Close also releases the lock.
	if err := unlock(l.file); err != nil {
		l.file.Close()
		return fmt.Errorf("unlocking %s: %w", l.path, err)
	}
	if err := l.file.Close(); err != nil {
		return fmt.Errorf("closing lock file %s: %w", l.path, err)
	}
	return nil
}

// writeOwner records holder metadata in the lock file for diagnostics.
// Failures are ignored; the metadata is never read for correctness.
func (l *Lock) writeOwner() {
	if l.file == nil {
		return
	}
	l.file.Truncate(0)
	l.file.Seek(0, io.SeekStart)
	fmt.Fprintf(l.file, "pid=%d owner=%s acquired=%s\n",
		os.Getpid(), l.owner, time.Now().UTC().Format(time.RFC3339))
	l.file.Sync()
}

// ReadOwner returns the holder metadata recorded in the lock file at path,
// or an empty string when none was written.
func ReadOwner(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading lock file %s: %w", path, err)
	}
	return strings.TrimSpace(string(data)), nil
}
