package httpclient

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"
)

// maxLoggedBody caps how much of a body is copied into debug logs.
const maxLoggedBody = 4 << 10

// BasicAuthTransport implements http.RoundTripper and adds Basic Auth
// authentication to outgoing requests.
type BasicAuthTransport struct {
	Username  string
	Password  string
	Transport http.RoundTripper
	Logger    *slog.Logger
}

// NewBasicAuthTransport creates a new BasicAuthTransport with the given
// credentials and optional underlying transport. If transport is nil,
// http.DefaultTransport will be used.
func NewBasicAuthTransport(username, password string, transport http.RoundTripper, logger *slog.Logger) *BasicAuthTransport {
	if transport == nil {
		transport = http.DefaultTransport
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &BasicAuthTransport{
		Username:  username,
		Password:  password,
		Transport: transport,
		Logger:    logger,
	}
}

// RoundTrip implements the http.RoundTripper interface. It adds Basic Auth
// credentials to the request and delegates to the underlying transport.
func (t *BasicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.Username == "" {
		return nil, errors.New("basic auth username cannot be empty")
	}
	if t.Password == "" {
		return nil, errors.New("basic auth password cannot be empty")
	}
	if t.Transport == nil {
		return nil, errors.New("transport cannot be nil")
	}

	// RoundTrip must not modify the caller's request.
	req = req.Clone(req.Context())
	if req.Body != nil && req.GetBody == nil {
		bodyBytes, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		req.Body = io.NopCloser(bytes.NewReader(bodyBytes))
		req.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(bodyBytes)), nil
		}
	}
	t.Logger.Debug("outgoing request",
		"method", req.Method,
		"url", req.URL.String(),
		"body", peekBody(req.GetBody))

	req.SetBasicAuth(t.Username, t.Password)
	resp, err := t.Transport.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	// Log response details
	bodyBytes, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, err
	}
	resp.Body = io.NopCloser(bytes.NewReader(bodyBytes)) // Reset the body

	t.Logger.Debug("incoming response",
		"status", resp.Status,
		"body", truncate(bodyBytes))

	return resp, nil
}

// peekBody returns a fresh copy of a request body for logging.
func peekBody(getBody func() (io.ReadCloser, error)) string {
	if getBody == nil {
		return ""
	}
	rc, err := getBody()
	if err != nil {
		return ""
	}
	defer rc.Close()
	data, _ := io.ReadAll(io.LimitReader(rc, maxLoggedBody+1))
	return truncate(data)
}

func truncate(data []byte) string {
	if len(data) > maxLoggedBody {
		return string(data[:maxLoggedBody]) + "..."
	}
	return string(data)
}
