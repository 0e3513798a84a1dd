package extension

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/nodex-labs/nodex/internal/flock"
	"github.com/nodex-labs/nodex/internal/progress"
)

// InstallOptions adjust a single install.
type InstallOptions struct {
	// Force reinstalls over an existing target instead of short-circuiting.
	Force bool
	// MaxWait bounds lock acquisition; zero means DefaultInstallWait.
	MaxWait time.Duration
	// Progress receives percent milestones. May be nil.
	Progress progress.Func
}

// Install installs a resolved package into its per-version folder under the
// root and returns the new Extension. Installing an already-installed
// package without Force is an idempotent no-op returning the existing
// extension; target existence is checked naively, without content
// verification. Progress always runs to completion, success or not.
// Domain errors pass through; everything else is wrapped in InstallError.
func (m *Manager) Install(ctx context.Context, pkg *Package, opts InstallOptions) (*Extension, error) {
	if err := m.ensureOpen(); err != nil {
		return nil, err
	}

	maxWait := opts.MaxWait
	if maxWait <= 0 {
		maxWait = DefaultInstallWait
	}

	tracker := progress.NewTracker(opts.Progress)
	defer tracker.Done("installed " + pkg.ID)
	tracker.Report(0, "installing "+pkg.ID)

	ext, err := m.install(ctx, pkg, opts.Force, maxWait, tracker)
	if err != nil {
		if domainError(err) {
			return nil, err
		}
		return nil, &InstallError{Name: pkg.Name, Version: pkg.Version, Err: err}
	}
	return ext, nil
}

// install runs the guarded install sequence: installer gate, root
// recreation, per-target lock, existence short-circuit, installer launch.
func (m *Manager) install(ctx context.Context, pkg *Package, force bool, maxWait time.Duration, tracker *progress.Tracker) (*Extension, error) {
	ext := NewExtension(*pkg, m.root)
	location := ext.Location()

	// The gate serializes installer launches process-wide. It is held only
	// until the subprocess is running; install I/O proceeds outside it.
	gateCtx, cancel := context.WithTimeout(ctx, maxWait)
	defer cancel()
	if err := m.gate.Acquire(gateCtx, 1); err != nil {
		return nil, fmt.Errorf("waiting for installer gate: %w", err)
	}
	gateHeld := true
	releaseGate := func() {
		if gateHeld {
			gateHeld = false
			m.gate.Release(1)
		}
	}
	defer releaseGate()

	// Folder locks live inside the root, so it must exist before locking.
	if err := m.ensureRoot(); err != nil {
		return nil, fmt.Errorf("recreating extension root: %w", err)
	}

	lock, err := flock.Acquire(ctx, locationLockPath(location), flock.Exclusive, maxWait/2)
	if err != nil {
		return nil, fmt.Errorf("locking %s: %w", location, err)
	}
	defer lock.Release()

	tracker.Report(25, "preparing "+location)

	if _, err := os.Stat(location); err == nil {
		if !force {
			return ext, nil
		}
		// Forced reinstall; a target that cannot be removed is installed
		// over anyway.
		if err := os.RemoveAll(location); err != nil {
			m.logger.Debug("removing existing target before reinstall", "path", location, "error", err)
		}
	}

	if err := os.MkdirAll(location, 0755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", location, err)
	}

	inv, err := m.tool.Start(ctx, location, pkg.SourceSpec, force)
	if err != nil {
		m.cleanupTarget(location)
		return nil, err
	}
	// Launched; let other installs through the gate while this one runs.
	releaseGate()

	if _, err := inv.Wait(); err != nil {
		m.cleanupTarget(location)
		return nil, err
	}

	return ext, nil
}

// cleanupTarget best-effort removes a partially installed target. Cleanup
// errors never replace the install error.
func (m *Manager) cleanupTarget(location string) {
	if err := os.RemoveAll(location); err != nil {
		m.logger.Debug("cleaning up failed install", "path", location, "error", err)
	}
}

// Remove deletes an installed extension's folder under a per-target lock.
// A missing folder is a no-op. Local extensions always fail.
func (m *Manager) Remove(ctx context.Context, ext *Extension) error {
	if err := m.ensureOpen(); err != nil {
		return err
	}
	if ext.Kind == KindLocal {
		return ErrLocalExtension
	}

	location := ext.Location()
	if _, err := os.Stat(location); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("checking %s: %w", location, err)
	}

	lock, err := flock.Acquire(ctx, locationLockPath(location), flock.Exclusive, DefaultInstallWait/2)
	if err != nil {
		return fmt.Errorf("locking %s: %w", location, err)
	}
	defer lock.Release()

	if err := os.RemoveAll(location); err != nil {
		return fmt.Errorf("removing %s: %w", location, err)
	}
	return nil
}
