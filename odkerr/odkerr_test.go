package odkerr

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorIsMatchesByKind(t *testing.T) {
	err := New(KindAuth, "login failed")
	if !errors.Is(err, ErrAuth) {
		t.Fatalf("expected errors.Is(err, ErrAuth) to be true")
	}
	if errors.Is(err, ErrConfig) {
		t.Fatalf("auth error must not match ErrConfig")
	}

	// Matching survives wrapping with %w.
	wrapped := fmt.Errorf("client call: %w", err)
	if !errors.Is(wrapped, ErrAuth) {
		t.Fatalf("expected wrapped error to match ErrAuth")
	}
}

func TestErrorMessageIncludesKindAndStatus(t *testing.T) {
	err := &Error{Kind: KindAPI, Message: "request to /v1/projects failed", StatusCode: 404}
	got := err.Error()
	want := "odk: api error: request to /v1/projects failed (status 404)"
	if got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(KindRequest, cause, "POST %s failed", "sessions")
	if !errors.Is(err, cause) {
		t.Fatalf("expected wrapped cause to be found by errors.Is")
	}
	var e *Error
	if !errors.As(err, &e) || e.Kind != KindRequest {
		t.Fatalf("expected *Error with KindRequest, got %v", err)
	}
}

func TestCentralCode(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"numeric code", `{"code": 401.2, "message": "Could not authenticate."}`, "401.2"},
		{"string code", `{"code": "403.1"}`, "403.1"},
		{"no code", `{"message": "nope"}`, ""},
		{"not json", `<html>`, ""},
		{"empty", ``, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := &Error{Kind: KindAPI, Body: []byte(tt.body)}
			if got := err.CentralCode(); got != tt.want {
				t.Errorf("CentralCode() = %q, want %q", got, tt.want)
			}
		})
	}
}
