package detection

import (
	"errors"
	"fmt"
	"strings"
)

// Message markers the detection flow puts in its errors. The flow has no
// structured error codes, so adapters must keep these substrings verbatim.
const (
	MarkerServiceUnavailable = "503 Service Unavailable"
	MarkerSafety             = "SAFETY"
	MarkerInvalidMedia       = "Invalid media"
)

// ErrQuotaExceeded indicates the AI provider returned a quota/limit error (HTTP 429 or similar).
// It is not retried; callers find it with errors.Is under a DetectionFailed.
var ErrQuotaExceeded = errors.New("ai quota exceeded")

// Kind stable failure category surfaced to the UI
type Kind string

const (
	KindServiceBusy        Kind = "service_busy"
	KindContentRejected    Kind = "content_rejected"
	KindUnprocessableImage Kind = "unprocessable_image"
	KindDetectionFailed    Kind = "detection_failed"
	KindUnknownFailure     Kind = "unknown_failure"
)

const (
	msgServiceBusy        = "The Plant Analysis Service is currently busy. Please try again in a few moments."
	msgContentRejected    = "The analysis could not be completed due to content safety filters. Try a different image or adjust your plant description."
	msgUnprocessableImage = "The uploaded image could not be processed. Please try a different image format or a clearer picture."
	msgDetectionFailed    = "Failed to detect disease: %s"
	msgUnknownFailure     = "An unknown error occurred during disease detection."
)

// Error classified detection failure. Error() is the user facing message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// Sentinels for errors.Is; only Kind is compared.
var (
	ErrServiceBusy        = &Error{Kind: KindServiceBusy, Message: msgServiceBusy}
	ErrContentRejected    = &Error{Kind: KindContentRejected, Message: msgContentRejected}
	ErrUnprocessableImage = &Error{Kind: KindUnprocessableImage, Message: msgUnprocessableImage}
	ErrDetectionFailed    = &Error{Kind: KindDetectionFailed, Message: "Failed to detect disease."}
	ErrUnknownFailure     = &Error{Kind: KindUnknownFailure, Message: msgUnknownFailure}
)

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// IsTransient reports whether err signals the service is temporarily unavailable
func IsTransient(err error) bool {
	return err != nil && strings.Contains(err.Error(), MarkerServiceUnavailable)
}

// Classify maps a terminal detector error to its Kind and message.
// A transient error reaching Classify means the retry budget is spent.
func Classify(err error) *Error {
	if err == nil {
		return Unknown(nil)
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, MarkerServiceUnavailable):
		return &Error{Kind: KindServiceBusy, Message: msgServiceBusy, Err: err}
	case strings.Contains(msg, MarkerSafety):
		return &Error{Kind: KindContentRejected, Message: msgContentRejected, Err: err}
	case strings.Contains(msg, MarkerInvalidMedia):
		return &Error{Kind: KindUnprocessableImage, Message: msgUnprocessableImage, Err: err}
	default:
		return Failed(err)
	}
}

// Failed wraps err as a DetectionFailed without looking at markers
func Failed(err error) *Error {
	return &Error{Kind: KindDetectionFailed, Message: fmt.Sprintf(msgDetectionFailed, err.Error()), Err: err}
}

// Unknown wraps a value that is not an error (a recovered panic, or no result at all)
func Unknown(v any) *Error {
	e := &Error{Kind: KindUnknownFailure, Message: msgUnknownFailure}
	if v != nil {
		e.Err = fmt.Errorf("detector returned non-error value: %v", v)
	}
	return e
}
