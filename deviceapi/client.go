package deviceapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	cfgr "github.com/xmidt-org/talaria/configurator"
)

// Client is a lightweight helper around http.Client for the device's local API.
// It implements configurator.Transport.
type Client struct {
	BaseURL string
	Auth    cfgr.AuthStrategy
	HTTP    *http.Client
}

func NewClient(baseURL string, auth cfgr.AuthStrategy, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{BaseURL: trimRightSlash(baseURL), Auth: auth, HTTP: &http.Client{Timeout: timeout}}
}

func trimRightSlash(s string) string {
	for len(s) > 0 && s[len(s)-1] == '/' {
		s = s[:len(s)-1]
	}
	return s
}

// Get performs an HTTP GET and decodes JSON into out. A *string out also
// accepts a plain text body.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

// Post sends body as JSON and decodes the response into out when out is non-nil.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, body, out)
}

// do returns sentinel errors from the configurator package where feasible;
// every failure also matches ErrTransportFailure.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	if c.HTTP == nil {
		c.HTTP = &http.Client{Timeout: 10 * time.Second}
	}
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%w: encode %s: %v", cfgr.ErrTransportFailure, path, err)
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%w: %v", cfgr.ErrTransportFailure, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.Auth != nil {
		if v, e := c.Auth.AuthorizationValue(); e == nil && v != "" {
			req.Header.Set("Authorization", v)
		}
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", cfgr.ErrTransportFailure, method, path, err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusAccepted, http.StatusNoContent:
		if out != nil && len(bytes.TrimSpace(b)) > 0 {
			if err := json.Unmarshal(b, out); err != nil {
				// Some endpoints answer with a bare text body.
				if text, ok := out.(*string); ok {
					*text = string(bytes.TrimSpace(b))
					return nil
				}
				return fmt.Errorf("%w: decode %s: %v", cfgr.ErrTransportFailure, path, err)
			}
		}
		return nil
	case http.StatusNotFound:
		return failure(cfgr.ErrNotFound)
	case http.StatusForbidden, http.StatusUnauthorized:
		return failure(cfgr.ErrAccessDenied)
	case http.StatusConflict:
		return failure(cfgr.ErrConflict)
	default:
		if resp.StatusCode >= 500 {
			return failure(cfgr.ErrBackendUnavailable)
		}
		return failure(errors.New(resp.Status))
	}
}

func failure(err error) error {
	return fmt.Errorf("%w: %w", cfgr.ErrTransportFailure, err)
}
