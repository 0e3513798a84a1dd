package extension

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorMessages(t *testing.T) {
	base := errors.New("boom")
	tests := []struct {
		err  error
		want string
	}{
		{&UnresolvedError{Spec: "foo@^9", Err: base}, "unresolved package foo@^9: boom"},
		{&InvalidIdentityError{Name: "Bad Name", Version: "1.0.0", Err: base}, "invalid package identity Bad Name@1.0.0: boom"},
		{&InstallError{Name: "foo", Version: "1.2.3", Err: base}, "installing foo@1.2.3: boom"},
		{&StartCommandError{ID: "foo@1.2.3"}, "no start command for foo@1.2.3"},
		{&StartCommandError{ID: "foo@1.2.3", Err: base}, "no start command for foo@1.2.3: boom"},
		{&LockedError{Path: "/ext", Err: base}, "extension folder /ext is locked: boom"},
		{&EngineError{Name: "foo", Engine: "node", Required: ">=18", Current: "16.4.0"}, "foo requires node >=18, current is 16.4.0"},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
}

func TestErrorUnwrap(t *testing.T) {
	base := errors.New("boom")
	tests := []error{
		&UnresolvedError{Spec: "x", Err: base},
		&InvalidIdentityError{Name: "x", Err: base},
		&InstallError{Name: "x", Err: base},
		&StartCommandError{ID: "x", Err: base},
		&LockedError{Path: "x", Err: base},
	}
	for _, err := range tests {
		if !errors.Is(err, base) {
			t.Errorf("%T does not unwrap to its cause", err)
		}
	}
}

func TestDomainError(t *testing.T) {
	domain := []error{
		ErrManagerClosed,
		ErrLocalExtension,
		&UnresolvedError{Spec: "x"},
		&InvalidIdentityError{Name: "x"},
		&InstallError{Name: "x"},
		&EngineError{Name: "x"},
		&StartCommandError{ID: "x"},
		&LockedError{Path: "x"},
		// Wrapped domain errors still count.
		fmt.Errorf("context: %w", &UnresolvedError{Spec: "x"}),
	}
	for _, err := range domain {
		if !domainError(err) {
			t.Errorf("domainError(%T) = false, want true", err)
		}
	}

	foreign := []error{
		errors.New("boom"),
		fmt.Errorf("wrapping: %w", errors.New("io failure")),
	}
	for _, err := range foreign {
		if domainError(err) {
			t.Errorf("domainError(%v) = true, want false", err)
		}
	}
}

func TestInstallWrapsForeignErrors(t *testing.T) {
	// The install boundary wraps unexpected failures exactly once; the
	// message carries the package identity.
	err := &InstallError{Name: "foo", Version: "1.2.3", Err: errors.New("disk full")}
	if !strings.Contains(err.Error(), "foo@1.2.3") {
		t.Errorf("InstallError message %q misses the package identity", err.Error())
	}
	if !domainError(err) {
		t.Error("InstallError not recognized as domain error")
	}
}
