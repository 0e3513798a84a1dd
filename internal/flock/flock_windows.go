//go:build windows

package flock

import (
	"errors"
	"os"

	"golang.org/x/sys/windows"
)

// tryLock attempts a non-blocking LockFileEx over the first byte of the file.
func tryLock(f *os.File, mode Mode) error {
	flags := uint32(windows.LOCKFILE_FAIL_IMMEDIATELY)
	if mode == Exclusive {
		flags |= windows.LOCKFILE_EXCLUSIVE_LOCK
	}
	err := windows.LockFileEx(windows.Handle(f.Fd()), flags, 0, 1, 0, new(windows.Overlapped))
	if errors.Is(err, windows.ERROR_LOCK_VIOLATION) {
		return errWouldBlock
	}
	return err
}

// tryConvert changes the held mode. LockFileEx cannot convert in place, so
// the lock is dropped before reacquisition; a competing holder can slip in
// during the gap and the conversion then reports errWouldBlock with the
// original lock lost. The caller reacquires after a refusal; the
// ERROR_NOT_LOCKED tolerance covers the window where it has not yet.
func tryConvert(f *os.File, mode Mode) error {
	if err := unlock(f); err != nil && !errors.Is(err, windows.ERROR_NOT_LOCKED) {
		return err
	}
	return tryLock(f, mode)
}

// lockWait takes the lock in the given mode, blocking until granted. The
// handle is synchronous, so LockFileEx without LOCKFILE_FAIL_IMMEDIATELY
// waits.
func lockWait(f *os.File, mode Mode) error {
	var flags uint32
	if mode == Exclusive {
		flags = windows.LOCKFILE_EXCLUSIVE_LOCK
	}
	return windows.LockFileEx(windows.Handle(f.Fd()), flags, 0, 1, 0, new(windows.Overlapped))
}

// unlock releases the byte range locked by tryLock.
func unlock(f *os.File) error {
	return windows.UnlockFileEx(windows.Handle(f.Fd()), 0, 1, 0, new(windows.Overlapped))
}
