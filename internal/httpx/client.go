package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"time"

	oberr "oceanbot/internal/errors"
)

// Client performs outbound HTTP requests with bounded retries on transport
// failures, 429 and 5xx responses.
type Client struct {
	httpClient *http.Client
	retries    int
	userAgent  string
}

func New(timeout time.Duration, retries int) *Client {
	if retries < 0 {
		retries = 0
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		retries:    retries,
		userAgent:  "oceanbot/1.0",
	}
}

// Do executes req and returns the raw response body of a 2xx response.
func (c *Client) Do(ctx context.Context, req *http.Request) ([]byte, http.Header, error) {
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, nil, oberr.Wrap(oberr.CodeUnavailable, "request cancelled", ctx.Err())
			case <-time.After(backoff(attempt)):
			}
		}

		cloneReq := req.Clone(ctx)
		if req.Body != nil && req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, nil, oberr.Wrap(oberr.CodeInternal, "clone request body", err)
			}
			cloneReq.Body = body
		}

		resp, err := c.httpClient.Do(cloneReq)
		if err != nil {
			lastErr = mapNetError(err)
			if attempt < c.retries {
				continue
			}
			return nil, nil, lastErr
		}

		buf, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			return nil, resp.Header, oberr.Wrap(oberr.CodeUnavailable, "read response", readErr)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = oberr.New(oberr.CodeRateLimited, "remote rate limited request")
			if attempt < c.retries {
				continue
			}
			return nil, resp.Header, lastErr
		}

		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return nil, resp.Header, oberr.New(oberr.CodeAuth, "remote authentication failed")
		}

		if resp.StatusCode >= http.StatusInternalServerError {
			lastErr = oberr.New(oberr.CodeUnavailable, fmt.Sprintf("remote unavailable (status %d)", resp.StatusCode))
			if attempt < c.retries {
				continue
			}
			return nil, resp.Header, lastErr
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, resp.Header, oberr.New(oberr.CodeUnsupported, fmt.Sprintf("remote returned unexpected status %d", resp.StatusCode))
		}

		return buf, resp.Header, nil
	}

	if lastErr != nil {
		return nil, nil, lastErr
	}
	return nil, nil, oberr.New(oberr.CodeUnavailable, "request failed")
}

// DoJSON executes req and decodes the JSON body into out.
func (c *Client) DoJSON(ctx context.Context, req *http.Request, out any) (http.Header, error) {
	buf, header, err := c.Do(ctx, req)
	if err != nil {
		return header, err
	}
	if out == nil {
		return header, nil
	}
	if len(bytes.TrimSpace(buf)) == 0 {
		return header, oberr.New(oberr.CodeUnavailable, "remote returned empty response")
	}
	if err := json.Unmarshal(buf, out); err != nil {
		return header, oberr.Wrap(oberr.CodeUnavailable, "decode JSON", err)
	}
	return header, nil
}

// NewRequest builds a request with an optional JSON body that can be replayed on retry.
func NewRequest(ctx context.Context, method, url string, body []byte, headers map[string]string) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, oberr.Wrap(oberr.CodeInternal, "build request", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
		req.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(body)), nil
		}
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return req, nil
}

func DoBodyJSON(ctx context.Context, c *Client, method, url string, body []byte, headers map[string]string, out any) (http.Header, error) {
	req, err := NewRequest(ctx, method, url, body, headers)
	if err != nil {
		return nil, err
	}
	return c.DoJSON(ctx, req, out)
}

func mapNetError(err error) error {
	if nerr, ok := err.(net.Error); ok {
		if nerr.Timeout() {
			return oberr.Wrap(oberr.CodeUnavailable, "remote timeout", err)
		}
	}
	return oberr.Wrap(oberr.CodeUnavailable, "remote request failed", err)
}

func backoff(attempt int) time.Duration {
	base := 120 * time.Millisecond
	d := base * time.Duration(1<<uint(attempt-1))
	if d > 2*time.Second {
		d = 2 * time.Second
	}
	jitter := time.Duration(rand.Intn(75)) * time.Millisecond
	return d + jitter
}
