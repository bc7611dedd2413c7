// Package remote implements the gateway contracts against the mshelf http
// api, so the organizer core can run in a separate process from the server.
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	appErr "github.com/xxxsen/mshelf/internal/pkg/errors"
	"github.com/xxxsen/mshelf/internal/pkg/response"
)

const apiPrefix = "/api/v1"

type Client struct {
	base  string
	token string
	http  *http.Client
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

func NewClient(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		base:  strings.TrimSuffix(strings.TrimSpace(baseURL), "/"),
		token: token,
		http:  &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// resolve turns a host-relative url returned by the server into an absolute one.
func (c *Client) resolve(raw string) string {
	if strings.HasPrefix(raw, "/") {
		return c.base + raw
	}
	return raw
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body io.Reader, contentType string, out interface{}) error {
	target := c.base + apiPrefix + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	var env response.Envelope
	if err := json.NewDecoder(io.LimitReader(resp.Body, 32<<20)).Decode(&env); err != nil {
		if resp.StatusCode != http.StatusOK {
			return statusError(resp.StatusCode, resp.Status)
		}
		return fmt.Errorf("decode response: %w", err)
	}
	if resp.StatusCode != http.StatusOK || env.Code != 0 {
		msg := env.Message
		if msg == "" {
			msg = resp.Status
		}
		return statusError(resp.StatusCode, msg)
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode response data: %w", err)
	}
	return nil
}

func statusError(status int, msg string) error {
	var sentinel error
	switch status {
	case http.StatusUnauthorized:
		sentinel = appErr.ErrUnauthorized
	case http.StatusForbidden:
		sentinel = appErr.ErrForbidden
	case http.StatusNotFound:
		sentinel = appErr.ErrNotFound
	case http.StatusBadRequest, http.StatusRequestEntityTooLarge:
		sentinel = appErr.ErrInvalid
	case http.StatusConflict:
		sentinel = appErr.ErrConflict
	case http.StatusTooManyRequests:
		sentinel = appErr.ErrTooMany
	default:
		return fmt.Errorf("server responded %d: %s", status, msg)
	}
	return fmt.Errorf("%w: %s", sentinel, msg)
}
