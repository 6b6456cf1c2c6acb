// Package backend talks to the application's own HTTP API.
package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/client/models"
	"github.com/dmitrijs2005/gophauth/internal/common"
)

var (
	// ErrNotConfigured means no backend URL was given to the client.
	ErrNotConfigured = errors.New("backend not configured")
	// ErrUnavailable means the backend could not be reached or is failing.
	ErrUnavailable = errors.New("backend unavailable")
	// ErrUnauthorized means the backend refused the bearer credential.
	ErrUnauthorized = errors.New("unauthorized")
)

// Client is a thin JSON client for the backend API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a client for baseURL. An empty baseURL yields a client
// whose calls fail with ErrNotConfigured.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

type syncUserResponse struct {
	User models.BackendUser `json:"user"`
}

type errorResponse struct {
	Message string `json:"message"`
}

// SyncUser upserts the caller into the backend user directory and returns
// the stored record.
func (c *Client) SyncUser(ctx context.Context, bearer string) (*models.BackendUser, error) {
	var out syncUserResponse
	if err := c.do(ctx, http.MethodPost, "/api/users/sync", bearer, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

// Ping checks the unauthenticated health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", "", nil)
}

func (c *Client) do(ctx context.Context, method, path, bearer string, out any) error {
	if c.baseURL == "" {
		return ErrNotConfigured
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if bearer != "" {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		// every transport failure counts as the backend being unreachable
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", ErrUnauthorized, readMessage(resp.Body))
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	case resp.StatusCode >= 300:
		return fmt.Errorf("backend error: status %d: %s", resp.StatusCode, readMessage(resp.Body))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func readMessage(r io.Reader) string {
	var e errorResponse
	if err := json.NewDecoder(io.LimitReader(r, 4096)).Decode(&e); err != nil {
		return ""
	}
	return e.Message
}
