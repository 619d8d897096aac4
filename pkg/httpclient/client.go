// Package httpclient implements the HTTP Transport component: a
// synchronous client returning status, body and headers, with no
// retry/redirect policy of its own — that lives one layer up, in the
// search provider and validators. TLS verification is always on.
package httpclient

import (
	"context"
	"crypto/tls"
	"io"
	"net/http"
	"time"

	"keyhunter/pkg/errors"
)

const defaultTimeout = 30 * time.Second

// Response is the transport-level result of one request: status code,
// raw body bytes, and the response headers (used upstream for
// rate-limit bookkeeping).
type Response struct {
	StatusCode int
	Body       []byte
	Headers    http.Header
}

func (r *Response) IsSuccess() bool      { return r.StatusCode >= 200 && r.StatusCode < 300 }
func (r *Response) IsRateLimited() bool  { return r.StatusCode == 429 }
func (r *Response) IsNotFound() bool     { return r.StatusCode == 404 }
func (r *Response) IsServerError() bool  { return r.StatusCode >= 500 }

// Client is a blocking HTTP client safe to invoke from a dedicated
// blocking-task goroutine. It carries its own tuned *http.Client so
// callers never reach for http.DefaultClient.
type Client struct {
	http *http.Client
}

// New builds a Client with the same connection-reuse tuning the teacher
// uses for its validation-service transport, minus any TLS-bypass
// escape hatch: this system's spec mandates TLS verification is always
// on, so there is no InsecureSkipVerify knob here.
func New(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	transport := &http.Transport{
		MaxIdleConnsPerHost: 20,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		ForceAttemptHTTP2:   true,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	}
	return &Client{
		http: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}
}

// Do issues a request with the given method, URL, headers, and optional
// body, honoring ctx for cancellation. It never follows a policy beyond
// what net/http does by default; status-code interpretation is the
// caller's job.
func (c *Client) Do(ctx context.Context, method, url string, headers map[string]string, body io.Reader) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, errors.ConfigErr("building request for %s %s: %v", method, url, err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.CancelledErr()
		}
		return nil, errors.NetworkErr(err, "requesting %s", url)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NetworkErr(err, "reading response body from %s", url)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Body:       data,
		Headers:    resp.Header,
	}, nil
}

func (c *Client) Get(ctx context.Context, url string, headers map[string]string) (*Response, error) {
	return c.Do(ctx, http.MethodGet, url, headers, nil)
}

func (c *Client) Post(ctx context.Context, url string, headers map[string]string, body io.Reader) (*Response, error) {
	return c.Do(ctx, http.MethodPost, url, headers, body)
}
