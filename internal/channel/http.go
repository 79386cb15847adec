package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Bridge endpoints, relative to the configured base URL.
const (
	SessionPath = "/session"
	RequestPath = "/request"
)

// maxResponseSize bounds a single response document.
const maxResponseSize = 16 << 20

// SessionRequest is the JSON body of POST /session.
type SessionRequest struct {
	User     string `json:"user"`
	Password string `json:"password"`
}

// SessionResponse is the JSON answer of POST /session.
type SessionResponse struct {
	SessionID    string `json:"session_id"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// SessionRejectedError is returned when the bridge answers without a session.
type SessionRejectedError struct {
	Message string
}

func (e *SessionRejectedError) Error() string {
	if e.Message == "" {
		return "session rejected"
	}
	return "session rejected: " + e.Message
}

// HTTPChannel talks to a bridge host that fronts the JobBOSS request
// processor over HTTP.
type HTTPChannel struct {
	base   *url.URL
	client *http.Client
}

// NewHTTP creates a channel for the bridge at endpoint.
// timeout bounds each HTTP exchange; zero means no timeout.
func NewHTTP(endpoint string, timeout time.Duration) (*HTTPChannel, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("bridge endpoint is required")
	}
	base, err := url.Parse(strings.TrimRight(endpoint, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse bridge endpoint: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("bridge endpoint %q: scheme must be http or https", endpoint)
	}
	return &HTTPChannel{
		base:   base,
		client: &http.Client{Timeout: timeout},
	}, nil
}

// CreateSession implements Channel.
func (c *HTTPChannel) CreateSession(ctx context.Context, user, password string) (string, error) {
	body, err := json.Marshal(SessionRequest{User: user, Password: password})
	if err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}

	data, err := c.do(ctx, http.MethodPost, "application/json", body, SessionPath)
	if err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}

	var resp SessionResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", fmt.Errorf("create session: decode response: %w", err)
	}
	if resp.SessionID == "" {
		return "", &SessionRejectedError{Message: resp.ErrorMessage}
	}
	return resp.SessionID, nil
}

// ProcessRequest implements Channel.
func (c *HTTPChannel) ProcessRequest(ctx context.Context, request []byte) ([]byte, error) {
	data, err := c.do(ctx, http.MethodPost, "application/xml", request, RequestPath)
	if err != nil {
		return nil, fmt.Errorf("process request: %w", err)
	}
	return data, nil
}

// CloseSession implements Channel.
func (c *HTTPChannel) CloseSession(ctx context.Context, sessionID string) error {
	if _, err := c.do(ctx, http.MethodDelete, "", nil, SessionPath, sessionID); err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	return nil
}

func (c *HTTPChannel) do(ctx context.Context, method, contentType string, body []byte, elem ...string) ([]byte, error) {
	target := c.base.JoinPath(elem...)

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target.String(), reader)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%s %s: unexpected status %s", method, target.Path, resp.Status)
	}
	return data, nil
}
