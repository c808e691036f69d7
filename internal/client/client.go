// Package client implements the authenticated HTTP client for the storefront
// API: bearer credentials on every outbound request, a single automatic
// refresh-and-retry on authorization failure, and structure-preserving API
// errors.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrSessionExpired is returned when the refresh protocol fails terminally.
// Both credentials have been cleared and the session-expired hook fired.
var ErrSessionExpired = errors.New("session expired")

// refreshPath is the sole endpoint that authenticates with the refresh
// credential as body payload instead of a bearer header.
const refreshPath = "/api/token/refresh/"

// Client issues requests against the remote API base.
type Client struct {
	base      string
	http      *http.Client
	creds     Credentials
	onExpired func()

	// refreshMu serializes the refresh path so a retry never races a second
	// refresh or a logout that cleared storage first.
	refreshMu sync.Mutex
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying transport.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithSessionExpired sets the hook fired on terminal refresh failure, the
// forced-navigation-to-login analogue.
func WithSessionExpired(fn func()) Option {
	return func(c *Client) { c.onExpired = fn }
}

// New creates a client for the given API base URL.
func New(base string, creds Credentials, opts ...Option) *Client {
	c := &Client{
		base:  strings.TrimRight(base, "/"),
		http:  &http.Client{Timeout: 30 * time.Second},
		creds: creds,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FormFile is an attachment for multipart requests.
type FormFile struct {
	Field    string
	Filename string
	Data     []byte
}

// Get issues a GET and decodes the response into out (may be nil).
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.doJSON(ctx, http.MethodGet, path, nil, out)
}

// Post issues a JSON POST. body and out may be nil.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.doJSON(ctx, http.MethodPost, path, body, out)
}

// Patch issues a JSON PATCH.
func (c *Client) Patch(ctx context.Context, path string, body, out any) error {
	return c.doJSON(ctx, http.MethodPatch, path, body, out)
}

// Delete issues a DELETE.
func (c *Client) Delete(ctx context.Context, path string) error {
	return c.doJSON(ctx, http.MethodDelete, path, nil, nil)
}

// PostForm issues a multipart POST with string fields and an optional file.
func (c *Client) PostForm(ctx context.Context, path string, fields map[string]string, file *FormFile, out any) error {
	return c.doForm(ctx, http.MethodPost, path, fields, file, out)
}

// PatchForm issues a multipart PATCH.
func (c *Client) PatchForm(ctx context.Context, path string, fields map[string]string, file *FormFile, out any) error {
	return c.doForm(ctx, http.MethodPatch, path, fields, file, out)
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	contentType := ""
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		payload = data
		contentType = "application/json"
	}
	return c.do(ctx, method, path, contentType, payload, out, false)
}

func (c *Client) doForm(ctx context.Context, method, path string, fields map[string]string, file *FormFile, out any) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for key, value := range fields {
		if err := w.WriteField(key, value); err != nil {
			return fmt.Errorf("writing form field %q: %w", key, err)
		}
	}
	if file != nil {
		part, err := w.CreateFormFile(file.Field, file.Filename)
		if err != nil {
			return fmt.Errorf("creating form file: %w", err)
		}
		if _, err := part.Write(file.Data); err != nil {
			return fmt.Errorf("writing form file: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("closing multipart writer: %w", err)
	}
	return c.do(ctx, method, path, w.FormDataContentType(), buf.Bytes(), out, false)
}

// do sends one request, attaching the stored bearer credential if present.
// On a 401 for a not-yet-retried request it refreshes once and retries once;
// a second consecutive 401, a missing refresh credential, or a failed refresh
// call clears both credentials and invalidates the session.
func (c *Client) do(ctx context.Context, method, path, contentType string, payload []byte, out any, retried bool) error {
	if tok := c.creds.Access(); tok != "" && c.creds.Refresh() != "" && tokenNeedsRefresh(tok, time.Now()) {
		// Best effort: a failed proactive refresh falls through to the
		// 401 path.
		if err := c.refresh(ctx); err != nil {
			slog.Debug("proactive token refresh failed", "error", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if tok := c.creds.Access(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		if retried {
			// Refresh already happened for this chain; give up.
			c.expire()
			return fmt.Errorf("%s %s: %w", method, path, ErrSessionExpired)
		}
		if err := c.refresh(ctx); err != nil {
			c.expire()
			return fmt.Errorf("%s %s: refreshing credentials: %w", method, path, ErrSessionExpired)
		}
		slog.Debug("retrying request after credential refresh", "method", method, "path", path)
		return c.do(ctx, method, path, contentType, payload, out, true)
	}

	if resp.StatusCode >= 400 {
		return decodeAPIError(resp.StatusCode, body)
	}

	if out != nil && resp.StatusCode != http.StatusNoContent && len(body) > 0 {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}

// refresh exchanges the stored refresh credential for a new access
// credential. The refresh token is re-read inside the critical section so a
// concurrent logout wins cleanly.
func (c *Client) refresh(ctx context.Context) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	rt := c.creds.Refresh()
	if rt == "" {
		return errors.New("no refresh credential")
	}

	payload, err := json.Marshal(map[string]string{"refresh": rt})
	if err != nil {
		return fmt.Errorf("encoding refresh request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+refreshPath, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("refresh call: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading refresh response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return decodeAPIError(resp.StatusCode, body)
	}

	var result struct {
		Access string `json:"access"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("decoding refresh response: %w", err)
	}
	if result.Access == "" {
		return errors.New("refresh response missing access credential")
	}

	if err := c.creds.SetAccess(result.Access); err != nil {
		return fmt.Errorf("storing refreshed credential: %w", err)
	}
	slog.Info("access credential refreshed")
	return nil
}

// expire clears both credentials and fires the session-expired hook.
func (c *Client) expire() {
	if err := c.creds.Clear(); err != nil {
		slog.Error("failed to clear credentials", "error", err)
	}
	if c.onExpired != nil {
		c.onExpired()
	}
}
