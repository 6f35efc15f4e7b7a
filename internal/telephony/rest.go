package telephony

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"telephony-bridge/internal/calls"
)

const maxErrorBody = 512

// restClient is the HTTP plumbing shared by the hand-rolled carrier adapters.
type restClient struct {
	provider calls.Provider
	session  *Session
	// authorize decorates each request with the carrier's auth scheme.
	authorize func(*http.Request) error
}

type restResponse struct {
	StatusCode int
	Body       []byte
}

func (c *restClient) postForm(ctx context.Context, op, endpoint string, data url.Values) (restResponse, error) {
	return c.do(ctx, op, http.MethodPost, endpoint, "application/x-www-form-urlencoded", strings.NewReader(data.Encode()))
}

func (c *restClient) sendJSON(ctx context.Context, op, method, endpoint string, payload any) (restResponse, error) {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return restResponse{}, &Error{Provider: c.provider, Op: op, Kind: ErrBadRequest, Err: err}
		}
		body = bytes.NewReader(b)
	}
	ct := ""
	if body != nil {
		ct = contentTypeJSON
	}
	return c.do(ctx, op, method, endpoint, ct, body)
}

// do executes one request. Transport failures become ErrTransport; the
// status code is returned untouched for the adapter to classify.
func (c *restClient) do(ctx context.Context, op, method, endpoint, contentType string, body io.Reader) (restResponse, error) {
	hc, err := c.session.HTTPClient()
	if err != nil {
		return restResponse{}, transportError(c.provider, op, err)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return restResponse{}, &Error{Provider: c.provider, Op: op, Kind: ErrBadRequest, Err: err}
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", contentTypeJSON)
	if c.authorize != nil {
		if err := c.authorize(req); err != nil {
			return restResponse{}, &Error{Provider: c.provider, Op: op, Kind: ErrBadRequest, Err: err}
		}
	}

	resp, err := hc.Do(req)
	if err != nil {
		return restResponse{}, transportError(c.provider, op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return restResponse{}, transportError(c.provider, op, err)
	}
	return restResponse{StatusCode: resp.StatusCode, Body: b}, nil
}

// failure classifies a non-success response.
func (c *restClient) failure(op string, r restResponse) error {
	detail := strings.TrimSpace(string(r.Body))
	if len(detail) > maxErrorBody {
		detail = detail[:maxErrorBody]
	}
	return statusError(c.provider, op, r.StatusCode, detail)
}

func (c *restClient) decode(op string, r restResponse, out any) error {
	if err := json.Unmarshal(r.Body, out); err != nil {
		return &Error{Provider: c.provider, Op: op, StatusCode: r.StatusCode, Kind: ErrProvider, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func ok2xx(status int) bool { return status >= 200 && status < 300 }
