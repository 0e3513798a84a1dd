package extension

import (
	"errors"
	"fmt"
)

var (
	// ErrManagerClosed is returned by install, remove, and reset on a
	// manager whose root lock has been released.
	ErrManagerClosed = errors.New("extension manager is closed")

	// ErrLocalExtension is returned when removal is requested for an
	// extension folder the manager does not own.
	ErrLocalExtension = errors.New("local extensions cannot be removed")
)

// UnresolvedError reports a specifier the registry could not resolve into
// package metadata.
type UnresolvedError struct {
	Spec string
	Err  error
}

func (e *UnresolvedError) Error() string {
	return fmt.Sprintf("unresolved package %s: %v", e.Spec, e.Err)
}

func (e *UnresolvedError) Unwrap() error { return e.Err }

// InvalidIdentityError reports a malformed package name or version request.
type InvalidIdentityError struct {
	Name    string
	Version string
	Err     error
}

func (e *InvalidIdentityError) Error() string {
	return fmt.Sprintf("invalid package identity %s@%s: %v", e.Name, e.Version, e.Err)
}

func (e *InvalidIdentityError) Unwrap() error { return e.Err }

// InstallError reports a failed installation: the installer subprocess
// failed, or an unexpected error interrupted the install.
type InstallError struct {
	Name    string
	Version string
	Err     error
}

func (e *InstallError) Error() string {
	return fmt.Sprintf("installing %s@%s: %v", e.Name, e.Version, e.Err)
}

func (e *InstallError) Unwrap() error { return e.Err }

// EngineError reports an extension whose declared engine requirement the
// current runtime does not satisfy. Nothing raises it today; it is reserved
// for engine-compatibility checks.
type EngineError struct {
	Name     string
	Engine   string
	Required string
	Current  string
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("%s requires %s %s, current is %s", e.Name, e.Engine, e.Required, e.Current)
}

// StartCommandError reports a manifest with no usable start or debug script.
type StartCommandError struct {
	ID  string
	Err error
}

func (e *StartCommandError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("no start command for %s: %v", e.ID, e.Err)
	}
	return fmt.Sprintf("no start command for %s", e.ID)
}

func (e *StartCommandError) Unwrap() error { return e.Err }

// LockedError reports an extension root that is busy in another process.
type LockedError struct {
	Path string
	Err  error
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("extension folder %s is locked: %v", e.Path, e.Err)
}

func (e *LockedError) Unwrap() error { return e.Err }

// domainError reports whether err already belongs to this package's error
// taxonomy and must pass through orchestration boundaries unchanged.
func domainError(err error) bool {
	var (
		unresolved *UnresolvedError
		identity   *InvalidIdentityError
		install    *InstallError
		engine     *EngineError
		start      *StartCommandError
		locked     *LockedError
	)
	return errors.Is(err, ErrManagerClosed) ||
		errors.Is(err, ErrLocalExtension) ||
		errors.As(err, &unresolved) ||
		errors.As(err, &identity) ||
		errors.As(err, &install) ||
		errors.As(err, &engine) ||
		errors.As(err, &start) ||
		errors.As(err, &locked)
}
