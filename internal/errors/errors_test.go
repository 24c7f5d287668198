package errors

import (
	stderrors "errors"
	"testing"
)

func TestNewError(t *testing.T) {
	err := New(ErrNotFound, "meal not found")

	if err.Code != ErrNotFound {
		t.Errorf("Code = %s, want %s", err.Code, ErrNotFound)
	}
	if err.Error() != "[NOT_FOUND] meal not found" {
		t.Errorf("Error() = %q", err.Error())
	}
	if err.Unwrap() != nil {
		t.Error("Unwrap() of a new error should be nil")
	}
}

func TestWrapError(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := Wrap(ErrRemoteOperation, "remote upsert failed", cause)

	if err.Error() != "[REMOTE_OPERATION_FAILED] remote upsert failed: connection refused" {
		t.Errorf("Error() = %q", err.Error())
	}
	if !stderrors.Is(err, cause) {
		t.Error("wrapped error should unwrap to its cause")
	}
}

func TestIs(t *testing.T) {
	err := New(ErrConcurrentSync, "already running")

	if !Is(err, ErrConcurrentSync) {
		t.Error("Is should match the error's code")
	}
	if Is(err, ErrDatabase) {
		t.Error("Is should not match a different code")
	}
	if Is(stderrors.New("plain"), ErrConcurrentSync) {
		t.Error("Is should not match a non-AppError")
	}
}

func TestCodeOf(t *testing.T) {
	if got := CodeOf(New(ErrAuthFailed, "x")); got != ErrAuthFailed {
		t.Errorf("CodeOf = %s, want %s", got, ErrAuthFailed)
	}
	if got := CodeOf(stderrors.New("plain")); got != ErrInternal {
		t.Errorf("CodeOf of plain error = %s, want %s", got, ErrInternal)
	}
}
