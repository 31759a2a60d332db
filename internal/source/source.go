// Package source defines where emails come from.
package source

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nhle/mailextract/internal/model"
)

// ErrMessageNotFound is returned when a UID does not name a message.
var ErrMessageNotFound = errors.New("message not found")

// AuthError indicates that authentication has failed for a mailbox.
type AuthError struct {
	Server  string
	Message string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth error (%s): %s", e.Server, e.Message)
}

// IsAuthError reports whether err (or any error in its chain) is an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// Envelope is the list view of a message.
type Envelope struct {
	UID       uint32    `json:"uid" yaml:"uid"`
	MessageID string    `json:"messageId,omitempty" yaml:"messageId,omitempty"`
	Subject   string    `json:"subject" yaml:"subject"`
	From      string    `json:"from" yaml:"from"`
	Date      time.Time `json:"date" yaml:"date"`
	Seen      bool      `json:"seen" yaml:"seen"`
}

// MessageSource lists and fetches emails.
type MessageSource interface {
	// Recent returns up to limit envelopes received in the last days
	// days, oldest first.
	Recent(ctx context.Context, days, limit int) ([]Envelope, error)

	// Message fetches and parses one message by UID.
	Message(ctx context.Context, uid uint32) (model.Message, error)
}

// DraftSaver stores a reply draft next to the original message.
type DraftSaver interface {
	SaveDraft(ctx context.Context, original model.Message, body string) error
}
