package auth

import (
	"context"
	stderrors "errors"

	goerrors "github.com/goliatone/go-errors"
)

// DefaultFailureMessage is shown when the service gives no usable message.
const DefaultFailureMessage = "Something Went Wrong"

const (
	TextCodeInvalidField        = "AUTH_INVALID_FIELD"
	TextCodeUpload              = "AUTH_UPLOAD_REJECTED"
	TextCodeTransport           = "AUTH_TRANSPORT_FAILURE"
	TextCodeRejectedCredentials = "AUTH_REJECTED_CREDENTIALS"
	TextCodeBusy                = "AUTH_REQUEST_PENDING"
	TextCodeNoSession           = "AUTH_NO_SESSION"
	TextCodeAbandoned           = "AUTH_REQUEST_ABANDONED"
	TextCodeSuperseded          = "AUTH_CHECK_SUPERSEDED"
)

// ErrInvalidField is returned when local field validation fails. It never
// reaches the network.
var ErrInvalidField = goerrors.New("invalid field", goerrors.CategoryValidation).
	WithTextCode(TextCodeInvalidField).
	WithCode(goerrors.CodeBadRequest)

// ErrUpload is returned when a selected file fails local acceptance checks.
var ErrUpload = goerrors.New("please upload a valid image", goerrors.CategoryBadInput).
	WithTextCode(TextCodeUpload).
	WithCode(goerrors.CodeBadRequest)

// ErrTransport covers unreachable services, timeouts and malformed responses.
var ErrTransport = goerrors.New(DefaultFailureMessage, goerrors.CategoryOperation).
	WithTextCode(TextCodeTransport).
	WithCode(goerrors.CodeInternal)

// ErrRejectedCredentials is returned when the service explicitly refuses the
// attempt. The message is the one provided by the service.
var ErrRejectedCredentials = goerrors.New("credentials rejected", goerrors.CategoryAuth).
	WithTextCode(TextCodeRejectedCredentials).
	WithCode(goerrors.CodeUnauthorized)

// ErrBusy is returned when the same request is already in flight.
var ErrBusy = goerrors.New("request already in progress", goerrors.CategoryConflict).
	WithTextCode(TextCodeBusy).
	WithCode(goerrors.CodeConflict)

// ErrNoSession is returned when a session check finds no identity.
var ErrNoSession = goerrors.New("no active session", goerrors.CategoryAuth).
	WithTextCode(TextCodeNoSession).
	WithCode(goerrors.CodeUnauthorized)

// ErrAbandoned is returned when a response arrives after its form unmounted.
var ErrAbandoned = goerrors.New("request abandoned", goerrors.CategoryOperation).
	WithTextCode(TextCodeAbandoned).
	WithCode(goerrors.CodeBadRequest)

// ErrSuperseded is returned by a session or admin check whose result was
// dropped because a newer write reached the store while it was in flight.
var ErrSuperseded = goerrors.New("check superseded by a newer session write", goerrors.CategoryConflict).
	WithTextCode(TextCodeSuperseded).
	WithCode(goerrors.CodeConflict)

// FailureMessage returns the actor facing message carried by err.
func FailureMessage(err error) string {
	if err == nil {
		return ""
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr.Message != "" {
		return richErr.Message
	}
	return DefaultFailureMessage
}

// IsInvalidField reports whether err is a local validation failure.
func IsInvalidField(err error) bool { return hasTextCode(err, TextCodeInvalidField) }

// IsUploadError reports whether err is a rejected file selection.
func IsUploadError(err error) bool { return hasTextCode(err, TextCodeUpload) }

// IsTransportError reports whether err is a network or decoding failure.
func IsTransportError(err error) bool { return hasTextCode(err, TextCodeTransport) }

// IsRejectedCredentials reports whether the service refused the attempt.
func IsRejectedCredentials(err error) bool { return hasTextCode(err, TextCodeRejectedCredentials) }

// IsNoSession reports whether a session check found no identity.
func IsNoSession(err error) bool { return hasTextCode(err, TextCodeNoSession) }

// IsBusy reports whether err came from the busy guard.
func IsBusy(err error) bool { return hasTextCode(err, TextCodeBusy) }

// IsAbandoned reports whether the response was dropped after unmount.
func IsAbandoned(err error) bool { return hasTextCode(err, TextCodeAbandoned) }

// IsSuperseded reports whether a check result was discarded as stale.
func IsSuperseded(err error) bool { return hasTextCode(err, TextCodeSuperseded) }

// StatusCode returns the HTTP status recorded on a service failure, or 0.
func StatusCode(err error) int {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) || richErr.Metadata == nil {
		return 0
	}
	if status, ok := richErr.Metadata["status"].(int); ok {
		return status
	}
	return 0
}

func hasTextCode(err error, code string) bool {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	return richErr.TextCode == code
}

func newError(base *goerrors.Error, message string, source error, meta map[string]any) *goerrors.Error {
	clone := base.Clone()
	if message != "" {
		clone.Message = message
	}
	if source != nil {
		clone.Source = source
	}
	if len(meta) > 0 {
		clone.WithMetadata(meta)
	}
	return clone
}

func transportError(operation string, source error) *goerrors.Error {
	meta := map[string]any{"operation": operation}
	if stderrors.Is(source, context.DeadlineExceeded) {
		meta["timeout"] = true
	}
	if source != nil {
		meta["error"] = source.Error()
	}
	return newError(ErrTransport, DefaultFailureMessage, source, meta)
}

func rejectedError(operation string, status int, message string) *goerrors.Error {
	if message == "" {
		message = DefaultFailureMessage
	}
	return newError(ErrRejectedCredentials, message, nil, map[string]any{
		"operation": operation,
		"status":    status,
	})
}
