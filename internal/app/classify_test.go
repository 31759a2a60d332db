package app

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nhle/mailextract/internal/ai"
	"github.com/nhle/mailextract/internal/credential"
	"github.com/nhle/mailextract/internal/extract"
	"github.com/nhle/mailextract/internal/jsonextract"
	"github.com/nhle/mailextract/internal/source"
	"github.com/nhle/mailextract/internal/theme"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Class
	}{
		{name: "nil", err: nil, want: ClassInternal},
		{name: "caller cancelled", err: fmt.Errorf("calling model API: %w", context.Canceled), want: ClassCanceled},
		{name: "session cancelled", err: fmt.Errorf("awaiting selection: %w", extract.ErrSessionCancelled), want: ClassCanceled},
		{name: "no json", err: fmt.Errorf("extracting event response: %w", jsonextract.ErrNoJSONFound), want: ClassInvalidOutput},
		{name: "unclosed json", err: jsonextract.ErrUnclosedJSON, want: ClassInvalidOutput},
		{name: "empty result", err: fmt.Errorf("event: %w", extract.ErrEmptyResult), want: ClassInvalidOutput},
		{name: "invalid record", err: extract.ErrInvalidRecord, want: ClassInvalidOutput},
		{name: "invalid host", err: fmt.Errorf("%w: %q", ai.ErrInvalidHost, "ftp://x"), want: ClassConnection},
		{name: "timeout", err: fmt.Errorf("calling model API: %w", ai.ErrTimeout), want: ClassConnection},
		{name: "upstream", err: fmt.Errorf("generating event: %w", &ai.UpstreamError{StatusCode: 500, Body: "boom"}), want: ClassConnection},
		{
			name: "connection refused",
			err: fmt.Errorf("calling model API: %w", &url.Error{
				Op: "Post", URL: "http://127.0.0.1:11434/api/generate", Err: errors.New("connection refused"),
			}),
			want: ClassConnection,
		},
		{name: "imap auth", err: &source.AuthError{Server: "imap.example.com", Message: "bad password"}, want: ClassAuth},
		{name: "no password", err: fmt.Errorf("getting credential: %w", credential.ErrNotFound), want: ClassAuth},
		{name: "other", err: errors.New("disk full"), want: ClassInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestClassMessagesAreDistinct(t *testing.T) {
	classes := []Class{ClassInternal, ClassInvalidOutput, ClassConnection, ClassAuth, ClassCanceled}
	seen := make(map[string]Class)
	for _, c := range classes {
		msg := c.Message()
		require.NotEmpty(t, msg)
		prev, dup := seen[msg]
		require.False(t, dup, "%s and %s share a message", prev, c)
		seen[msg] = c
	}

	require.Equal(t, "model returned invalid output", ClassInvalidOutput.Message())
	require.Equal(t, "check your model/host settings", ClassConnection.Message())
	require.Equal(t, "invalid_output", ClassInvalidOutput.String())
	require.Equal(t, "unknown", Class(99).String())
}

func TestNotificationFor(t *testing.T) {
	n := NotificationFor(fmt.Errorf("generating event: %w", ai.ErrTimeout))
	require.Equal(t, theme.LevelError, n.Level)
	require.Equal(t, "Model unavailable", n.Title)
	require.Equal(t, "check your model/host settings", n.Message)
	require.Contains(t, n.Detail, "timed out")

	n = NotificationFor(context.Canceled)
	require.Equal(t, theme.LevelWarning, n.Level)
	require.Equal(t, "Cancelled", n.Title)
	require.Empty(t, n.Detail)
}
