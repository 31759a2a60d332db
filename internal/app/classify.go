// Package app runs one user action end to end: it feeds a message to the
// extractor, commits the records and turns failures into notifications.
package app

import (
	"context"
	"errors"
	"net"

	"github.com/nhle/mailextract/internal/ai"
	"github.com/nhle/mailextract/internal/credential"
	"github.com/nhle/mailextract/internal/extract"
	"github.com/nhle/mailextract/internal/jsonextract"
	"github.com/nhle/mailextract/internal/source"
)

// Class groups errors by what the user can do about them.
type Class int

const (
	// ClassInternal covers everything not recognized below.
	ClassInternal Class = iota

	// ClassInvalidOutput means the model answered but the answer was unusable.
	ClassInvalidOutput

	// ClassConnection means the model endpoint could not be reached or refused.
	ClassConnection

	// ClassAuth means the mailbox rejected the login or no password is stored.
	ClassAuth

	// ClassCanceled means the user or the caller stopped the action.
	ClassCanceled
)

var classNames = map[Class]string{
	ClassInternal:      "internal",
	ClassInvalidOutput: "invalid_output",
	ClassConnection:    "connection",
	ClassAuth:          "auth",
	ClassCanceled:      "canceled",
}

func (c Class) String() string {
	if name, ok := classNames[c]; ok {
		return name
	}
	return "unknown"
}

// Title is the short heading shown for the class.
func (c Class) Title() string {
	switch c {
	case ClassInvalidOutput:
		return "Extraction failed"
	case ClassConnection:
		return "Model unavailable"
	case ClassAuth:
		return "Mailbox login failed"
	case ClassCanceled:
		return "Cancelled"
	default:
		return "Unexpected error"
	}
}

// Message is the user-facing explanation of the class.
func (c Class) Message() string {
	switch c {
	case ClassInvalidOutput:
		return "model returned invalid output"
	case ClassConnection:
		return "check your model/host settings"
	case ClassAuth:
		return "check your IMAP username and the password stored with 'credentials set'"
	case ClassCanceled:
		return "the action was cancelled"
	default:
		return "something went wrong; rerun with --debug for details"
	}
}

// Classify maps err to a Class. A nil error is ClassInternal.
func Classify(err error) Class {
	switch {
	case err == nil:
		return ClassInternal
	case errors.Is(err, context.Canceled), errors.Is(err, extract.ErrSessionCancelled):
		return ClassCanceled
	case errors.Is(err, jsonextract.ErrNoJSONFound),
		errors.Is(err, jsonextract.ErrUnclosedJSON),
		errors.Is(err, extract.ErrEmptyResult),
		errors.Is(err, extract.ErrInvalidRecord):
		return ClassInvalidOutput
	case errors.Is(err, ai.ErrInvalidHost),
		errors.Is(err, ai.ErrTimeout),
		errors.Is(err, context.DeadlineExceeded),
		ai.IsUpstreamError(err):
		return ClassConnection
	case source.IsAuthError(err), errors.Is(err, credential.ErrNotFound):
		return ClassAuth
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return ClassConnection
	}
	return ClassInternal
}
