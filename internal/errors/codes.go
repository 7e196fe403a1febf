// Package errors provides coded domain errors for the session service.
package errors

import "net/http"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Input errors
	CodeInvalidArgument Code = "INVALID_ARGUMENT"

	// User errors
	CodeUserNotFound Code = "USER_NOT_FOUND"

	// Session errors
	CodeSessionNotFound             Code = "SESSION_NOT_FOUND"
	CodeSessionCreateFailed         Code = "SESSION_CREATE_FAILED"
	CodeSessionUpdateFailed         Code = "SESSION_UPDATE_FAILED"
	CodeSessionNoParticipants       Code = "SESSION_NO_PARTICIPANTS"
	CodeSessionCallerNotParticipant Code = "SESSION_CALLER_NOT_PARTICIPANT"
	CodeSessionNotAllJoined         Code = "SESSION_NOT_ALL_JOINED"

	// Participant errors
	CodeParticipantsCreateFailed Code = "PARTICIPANTS_CREATE_FAILED"
	CodeParticipantAlreadyJoined Code = "PARTICIPANT_ALREADY_JOINED"
	CodeParticipantWriteFailed   Code = "PARTICIPANT_WRITE_FAILED"

	// Storage errors
	CodeStoreFailure Code = "STORE_FAILURE"
)

// Kind groups codes into the failure taxonomy callers branch on.
type Kind string

const (
	KindUnknown         Kind = "unknown"
	KindInvalidArgument Kind = "invalid_argument"
	KindNotFound        Kind = "not_found"
	KindConflict        Kind = "conflict"
	KindPrecondition    Kind = "precondition"
	KindStoreFailure    Kind = "store_failure"
)

// Kind maps a code to its taxonomy entry.
func (c Code) Kind() Kind {
	switch c {
	case CodeInvalidArgument:
		return KindInvalidArgument

	case CodeUserNotFound,
		CodeSessionNotFound:
		return KindNotFound

	case CodeParticipantAlreadyJoined:
		return KindConflict

	case CodeSessionNoParticipants,
		CodeSessionCallerNotParticipant,
		CodeSessionNotAllJoined:
		return KindPrecondition

	case CodeSessionCreateFailed,
		CodeSessionUpdateFailed,
		CodeParticipantsCreateFailed,
		CodeParticipantWriteFailed,
		CodeStoreFailure:
		return KindStoreFailure

	default:
		return KindUnknown
	}
}

// HTTPStatus maps domain codes to HTTP status codes.
func (c Code) HTTPStatus() int {
	if c == CodeSessionCallerNotParticipant {
		return http.StatusForbidden
	}

	switch c.Kind() {
	case KindInvalidArgument:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindPrecondition:
		return http.StatusPreconditionFailed
	case KindStoreFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
