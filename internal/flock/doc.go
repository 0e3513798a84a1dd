// Package flock provides cross-process advisory file locks with shared and
// exclusive modes, bounded acquisition waits, and in-place mode conversion.
// Orphaned lock files are harmless: the kernel releases the lock when the
// file descriptor is closed, including on process crash.
package flock
