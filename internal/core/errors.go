package core

import (
	"errors"
	"fmt"
	"strings"
)

// ErrTrackDisposed is returned by LocalTrack.Dispose when the track has
// already been released. Callers swallow it; any other disposal error is
// re-raised.
var ErrTrackDisposed = errors.New("track already disposed")

// ConferenceErrorCode classifies join/lifecycle failures reported by the
// signaling engine.
type ConferenceErrorCode string

const (
	ErrPasswordRequired       ConferenceErrorCode = "password-required"
	ErrAuthenticationRequired ConferenceErrorCode = "authentication-required"
	ErrConnectionError        ConferenceErrorCode = "connection-error"
	ErrNotAllowed             ConferenceErrorCode = "not-allowed"
	ErrReservationError       ConferenceErrorCode = "reservation-error"
	ErrGracefulShutdown       ConferenceErrorCode = "graceful-shutdown"
	ErrFatalProtocolError     ConferenceErrorCode = "fatal-protocol-error"
	ErrConferenceDestroyed    ConferenceErrorCode = "conference-destroyed"
	// ErrFocusDisconnected means the coordinator is temporarily away and the
	// engine retries on its own. Not terminal.
	ErrFocusDisconnected ConferenceErrorCode = "focus-disconnected"
	// ErrFocusLeft and ErrBridgeUnavailable are unrecoverable at this layer:
	// the connector tears the connection down and asks for a reload.
	ErrFocusLeft           ConferenceErrorCode = "focus-left"
	ErrBridgeUnavailable   ConferenceErrorCode = "bridge-unavailable"
	ErrMaxParticipants     ConferenceErrorCode = "max-participants"
	ErrIncompatibleVersion ConferenceErrorCode = "incompatible-version"
	ErrChatError           ConferenceErrorCode = "chat-error"
)

// ConferenceError carries the failure code plus whatever extra strings the
// engine attached (reason, retry seconds, error text).
type ConferenceError struct {
	Code   ConferenceErrorCode
	Params []string
}

func NewConferenceError(code ConferenceErrorCode, params ...string) *ConferenceError {
	return &ConferenceError{Code: code, Params: params}
}

func (e *ConferenceError) Error() string {
	if len(e.Params) == 0 {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, strings.Join(e.Params, " "))
}

// Param returns the i-th extra string or "" when absent.
func (e *ConferenceError) Param(i int) string {
	if i < len(e.Params) {
		return e.Params[i]
	}
	return ""
}

// DeviceErrorKind classifies capture failures that need distinct
// user-facing handling.
type DeviceErrorKind string

const (
	DeviceErrPermissionDenied  DeviceErrorKind = "permission-denied"
	DeviceErrNotFound          DeviceErrorKind = "not-found"
	DeviceErrUserCanceled      DeviceErrorKind = "user-canceled"
	DeviceErrExtensionRequired DeviceErrorKind = "extension-required"
	DeviceErrGeneral           DeviceErrorKind = "general"
)

// DeviceError is produced by the capture service when acquisition fails.
type DeviceError struct {
	Kind DeviceErrorKind
	Msg  string
}

func (e *DeviceError) Error() string {
	if e.Msg == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

// ConnectionErrorCode classifies connection-level failures.
type ConnectionErrorCode string

const (
	ErrConnectionDropped ConnectionErrorCode = "connection-dropped"
	ErrServerError       ConnectionErrorCode = "server-error"
	ErrOtherError        ConnectionErrorCode = "other-error"
	// ErrConnPasswordRequired means the connection itself requires
	// credentials (token auth failed).
	ErrConnPasswordRequired ConnectionErrorCode = "connection-password-required"
)

type ConnectionError struct {
	Code ConnectionErrorCode
	Msg  string
}

func (e *ConnectionError) Error() string {
	if e.Msg == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

// IsNetworkFailure reports whether the failure is a network type of
// failure, as opposed to a server-side or protocol one.
func (e *ConnectionError) IsNetworkFailure() bool {
	return e.Code == ErrConnectionDropped
}
