package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestErrorIsMatchesByCode(t *testing.T) {
	t.Parallel()

	err := New(CodeUnauthorized, "missing admin key")
	if !stderrors.Is(err, New(CodeUnauthorized, "other message")) {
		t.Fatal("expected errors with the same code to match")
	}
	if stderrors.Is(err, New(CodeForbidden, "missing admin key")) {
		t.Fatal("expected errors with different codes not to match")
	}
}

func TestWrapPreservesCause(t *testing.T) {
	t.Parallel()

	cause := stderrors.New("disk full")
	err := Wrap(CodeStorageUnavailable, "inspect schema", cause)
	if !stderrors.Is(err, cause) {
		t.Fatal("expected wrapped cause to be reachable via errors.Is")
	}
}

func TestCodeOfTraversesChain(t *testing.T) {
	t.Parallel()

	inner := New(CodeMigrationConflict, "add column failed")
	wrapped := fmt.Errorf("bootstrap: %w", inner)
	if got := CodeOf(wrapped); got != CodeMigrationConflict {
		t.Fatalf("code = %v, want %v", got, CodeMigrationConflict)
	}
	if got := CodeOf(stderrors.New("plain")); got != CodeUnknown {
		t.Fatalf("code = %v, want %v", got, CodeUnknown)
	}
}

func TestHTTPStatusMapping(t *testing.T) {
	t.Parallel()

	cases := []struct {
		code Code
		want int
	}{
		{CodeUnauthorized, http.StatusUnauthorized},
		{CodeForbidden, http.StatusForbidden},
		{CodeNotFound, http.StatusNotFound},
		{CodeAlreadyExists, http.StatusConflict},
		{CodeInvalidArgument, http.StatusBadRequest},
		{CodeStorageUnavailable, http.StatusServiceUnavailable},
		{CodeMigrationConflict, http.StatusServiceUnavailable},
		{CodeUnknown, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := tc.code.HTTPStatus(); got != tc.want {
			t.Fatalf("%s status = %d, want %d", tc.code, got, tc.want)
		}
	}
}
