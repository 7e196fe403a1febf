package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestCodeKind(t *testing.T) {
	tests := []struct {
		code Code
		want Kind
	}{
		{CodeUserNotFound, KindNotFound},
		{CodeSessionNotFound, KindNotFound},
		{CodeParticipantAlreadyJoined, KindConflict},
		{CodeSessionNotAllJoined, KindPrecondition},
		{CodeSessionCallerNotParticipant, KindPrecondition},
		{CodeSessionNoParticipants, KindPrecondition},
		{CodeParticipantsCreateFailed, KindStoreFailure},
		{CodeStoreFailure, KindStoreFailure},
		{CodeInvalidArgument, KindInvalidArgument},
		{Code("SOMETHING_ELSE"), KindUnknown},
	}

	for _, tt := range tests {
		if got := tt.code.Kind(); got != tt.want {
			t.Errorf("%s: expected kind %s, got %s", tt.code, tt.want, got)
		}
	}
}

func TestCodeHTTPStatus(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{CodeUserNotFound, http.StatusNotFound},
		{CodeParticipantAlreadyJoined, http.StatusConflict},
		{CodeSessionNotAllJoined, http.StatusPreconditionFailed},
		{CodeSessionCallerNotParticipant, http.StatusForbidden},
		{CodeSessionCreateFailed, http.StatusBadGateway},
		{CodeInvalidArgument, http.StatusBadRequest},
		{CodeUnknown, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := tt.code.HTTPStatus(); got != tt.want {
			t.Errorf("%s: expected status %d, got %d", tt.code, tt.want, got)
		}
	}
}

func TestCodeOfWrappedChain(t *testing.T) {
	base := New(CodeSessionNotFound, "session not found")
	wrapped := fmt.Errorf("activate: %w", base)

	if got := CodeOf(wrapped); got != CodeSessionNotFound {
		t.Fatalf("expected %s, got %s", CodeSessionNotFound, got)
	}
	if got := KindOf(wrapped); got != KindNotFound {
		t.Fatalf("expected %s, got %s", KindNotFound, got)
	}
	if !stderrors.Is(wrapped, New(CodeSessionNotFound, "other message")) {
		t.Fatal("expected errors.Is to match by code")
	}
	if stderrors.Is(wrapped, New(CodeUserNotFound, "session not found")) {
		t.Fatal("expected errors.Is to reject a different code")
	}
	if got := CodeOf(stderrors.New("plain")); got != CodeUnknown {
		t.Fatalf("expected %s for plain error, got %s", CodeUnknown, got)
	}
}

func TestWrapMessageAndUnwrap(t *testing.T) {
	cause := stderrors.New("connection reset")
	err := Wrap(CodeStoreFailure, "get session", cause)

	if err.Error() != "get session: connection reset" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if !stderrors.Is(err, cause) {
		t.Fatal("expected cause to be reachable through Unwrap")
	}
}
