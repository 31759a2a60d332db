// Package ai talks to an Ollama-compatible text generation endpoint.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	generatePath = "/api/generate"

	// DefaultTimeout bounds interactive single-item calls.
	DefaultTimeout = 60 * time.Second

	// AnalysisTimeout bounds the bulk analysis and array calls, which
	// produce much longer output.
	AnalysisTimeout = 180 * time.Second
)

var (
	// ErrInvalidHost is returned before any network call when the host URL
	// is malformed or uses a scheme other than http or https.
	ErrInvalidHost = errors.New("invalid model host")

	// ErrTimeout is returned when the model does not answer within the
	// request's time bound.
	ErrTimeout = errors.New("model request timed out")
)

// UpstreamError is a non-success HTTP response from the model endpoint.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Body)
}

// IsUpstreamError reports whether err (or any error in its chain) is an
// UpstreamError.
func IsUpstreamError(err error) bool {
	var upErr *UpstreamError
	return errors.As(err, &upErr)
}

// Request describes one generation call.
type Request struct {
	Host    string
	Model   string
	Prompt  string
	Timeout time.Duration
}

// Generator produces raw model text for a prompt.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Client issues generation requests over HTTP. It performs no retries.
type Client struct {
	http *http.Client
}

// New creates a Client. A nil httpClient selects a default one; time
// bounds are applied per request, not on the http.Client.
func New(httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{http: httpClient}
}

// ValidateHost parses host and checks that it is an absolute http or
// https URL.
func ValidateHost(host string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(host))
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidHost, host, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: %q: scheme must be http or https", ErrInvalidHost, host)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: %q: missing host", ErrInvalidHost, host)
	}
	return u, nil
}

// Generate sends req.Prompt to {req.Host}/api/generate and returns the
// model's response text. A zero req.Timeout selects DefaultTimeout.
func (c *Client) Generate(ctx context.Context, req Request) (string, error) {
	base, err := ValidateHost(req.Host)
	if err != nil {
		return "", err
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	bodyBytes, err := json.Marshal(apiRequest{
		Model:  req.Model,
		Prompt: req.Prompt,
		Stream: false,
	})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	endpoint := base.JoinPath(generatePath)
	httpReq, err := http.NewRequestWithContext(
		ctx, http.MethodPost, endpoint.String(), bytes.NewReader(bodyBytes),
	)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", wrapContextErr(ctx, "calling model API", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", wrapContextErr(ctx, "reading response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr apiErrorResponse
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error != "" {
			return "", &UpstreamError{StatusCode: resp.StatusCode, Body: apiErr.Error}
		}
		return "", &UpstreamError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(respBody)),
		}
	}

	var result apiResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}

	return result.Response, nil
}

// wrapContextErr maps an expired deadline to ErrTimeout. Cancellation by
// the caller keeps context.Canceled in the chain.
func wrapContextErr(ctx context.Context, op string, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, ErrTimeout)
	}
	if ctx.Err() != nil {
		return fmt.Errorf("%s: %w", op, ctx.Err())
	}
	return fmt.Errorf("%s: %w", op, err)
}

// --- Ollama API types ---

type apiRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type apiResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

type apiErrorResponse struct {
	Error string `json:"error"`
}
