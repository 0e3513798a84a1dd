//go:build unix

package flock

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

// tryLock attempts a non-blocking flock in the given mode.
func tryLock(f *os.File, mode Mode) error {
	op := unix.LOCK_EX
	if mode == Shared {
		op = unix.LOCK_SH
	}
	err := unix.Flock(int(f.Fd()), op|unix.LOCK_NB)
	if errors.Is(err, unix.EWOULDBLOCK) || errors.Is(err, unix.EAGAIN) {
		return errWouldBlock
	}
	return err
}

// tryConvert attempts a non-blocking mode change on a held flock. flock(2)
// removes the existing lock before checking the new mode for conflicts, so a
// refused conversion leaves nothing held; the caller must reacquire.
func tryConvert(f *os.File, mode Mode) error {
	return tryLock(f, mode)
}

// lockWait takes the flock in the given mode, blocking until the kernel
// grants it. Retries around EINTR; the runtime interrupts slow syscalls to
// preempt goroutines.
func lockWait(f *os.File, mode Mode) error {
	op := unix.LOCK_EX
	if mode == Shared {
		op = unix.LOCK_SH
	}
	for {
		err := unix.Flock(int(f.Fd()), op)
		if !errors.Is(err, unix.EINTR) {
			return err
		}
	}
}

// unlock releases the flock.
func unlock(f *os.File) error {
	return unix.Flock(int(f.Fd()), unix.LOCK_UN)
}
