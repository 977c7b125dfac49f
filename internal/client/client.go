// Package client is a Go client for the fintrack API. It owns the
// client-side half of the session lifecycle: it stores the token pair issued
// at login, gates protected calls through Guard, and proactively rotates the
// pair when the access token gets close to expiry.
package client

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
	"sync"
	"time"

	"fintrack/internal/auth"
	"fintrack/internal/category"
	"fintrack/internal/expense"
	"fintrack/internal/observability"
)

var ErrUnauthorized = errors.New("unauthorized")

const defaultRefreshThreshold = time.Hour

type Client struct {
	baseURL          string
	http             *http.Client
	logger           *observability.Logger
	refreshThreshold time.Duration

	mu         sync.Mutex
	session    auth.TokenPair
	refreshing bool
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.http = httpClient }
}

// WithRefreshThreshold sets how much remaining access-token lifetime triggers
// a proactive refresh.
func WithRefreshThreshold(threshold time.Duration) Option {
	return func(c *Client) {
		if threshold > 0 {
			c.refreshThreshold = threshold
		}
	}
}

func WithLogger(logger *observability.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:          strings.TrimRight(baseURL, "/"),
		http:             &http.Client{Timeout: 15 * time.Second},
		logger:           observability.NewLogger(),
		refreshThreshold: defaultRefreshThreshold,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Session returns a copy of the currently held token pair.
func (c *Client) Session() auth.TokenPair {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

func (c *Client) setSession(pair auth.TokenPair) {
	c.mu.Lock()
	c.session = pair
	c.mu.Unlock()
}

func (c *Client) accessToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.AccessToken
}

type tokenEnvelope struct {
	Data auth.TokenPair `json:"data"`
}

func (c *Client) Register(ctx context.Context, email, password, name, surname string) error {
	body := map[string]string{"email": email, "password": password, "name": name, "surname": surname}
	resp, err := c.postJSON(ctx, "/api/register", body, "")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return apiError(resp)
	}

	var envelope tokenEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("decode register response: %w", err)
	}

	c.setSession(envelope.Data)
	return nil
}

func (c *Client) Login(ctx context.Context, email, password string) error {
	body := map[string]string{"email": email, "password": password}
	resp, err := c.postJSON(ctx, "/api/login", body, "")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	if resp.StatusCode != http.StatusOK {
		return apiError(resp)
	}

	var envelope tokenEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("decode login response: %w", err)
	}

	c.setSession(envelope.Data)
	return nil
}

// Refresh exchanges the held refresh token for a fresh pair. The server
// delivers the new tokens as Set-Cookie headers only, so they are read back
// from the response cookies.
func (c *Client) Refresh(ctx context.Context) error {
	c.mu.Lock()
	refreshToken := c.session.RefreshToken
	c.mu.Unlock()

	if refreshToken == "" {
		return ErrUnauthorized
	}

	resp, err := c.postJSON(ctx, "/api/refresh-token", map[string]string{"refreshToken": refreshToken}, "")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode == http.StatusUnauthorized {
		// Refresh token no longer verifies: the session is over.
		c.setSession(auth.TokenPair{})
		return ErrUnauthorized
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("refresh token: unexpected status %d", resp.StatusCode)
	}

	var pair auth.TokenPair
	for _, cookie := range resp.Cookies() {
		switch cookie.Name {
		case auth.AccessCookieName:
			pair.AccessToken = cookie.Value
		case auth.RefreshCookieName:
			pair.RefreshToken = cookie.Value
		}
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		return errors.New("refresh token: response did not set session cookies")
	}

	c.setSession(pair)
	return nil
}

func (c *Client) Logout(ctx context.Context) error {
	resp, err := c.postJSON(ctx, "/api/logout", nil, c.accessToken())
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	c.setSession(auth.TokenPair{})
	return nil
}

// Guard decides whether the held session grants access to a protected view.
// No token or a failing remote validation means unauthenticated. A valid
// token that is close to expiry additionally kicks off a best-effort
// background refresh; its failure never blocks the current navigation.
func (c *Client) Guard(ctx context.Context) bool {
	token := c.accessToken()
	if token == "" {
		return false
	}

	if err := c.validateRemote(ctx, token); err != nil {
		return false
	}

	remaining, err := auth.TimeUntilExpiry(token, time.Now().UTC())
	if err == nil && remaining < c.refreshThreshold {
		c.refreshAsync()
	}

	return true
}

func (c *Client) validateRemote(ctx context.Context, token string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/validate-token", nil)
	if err != nil {
		return fmt.Errorf("build validate request: %w", err)
	}
	req.AddCookie(&http.Cookie{Name: auth.AccessCookieName, Value: token})

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("validate token: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return ErrUnauthorized
	}
	return nil
}

// refreshAsync rotates the pair in the background, at most one rotation in
// flight at a time. Failures are logged and swallowed: the current access
// token is still valid, the user just does not get the extension.
func (c *Client) refreshAsync() {
	c.mu.Lock()
	if c.refreshing {
		c.mu.Unlock()
		return
	}
	c.refreshing = true
	c.mu.Unlock()

	go func() {
		defer func() {
			c.mu.Lock()
			c.refreshing = false
			c.mu.Unlock()
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := c.Refresh(ctx); err != nil {
			c.logger.Warn("session_refresh_failed", map[string]any{"error": err.Error()})
		}
	}()
}

func (c *Client) ListCategories(ctx context.Context) ([]category.Category, error) {
	var categories []category.Category
	if err := c.getJSON(ctx, "/api/categories", &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

// ListExpenses fetches the caller's expenses, optionally narrowed to a
// YYYY-MM month.
func (c *Client) ListExpenses(ctx context.Context, month string) ([]expense.Expense, error) {
	path := "/api/expenses"
	if month != "" {
		path += "?month=" + url.QueryEscape(month)
	}

	var expenses []expense.Expense
	if err := c.getJSON(ctx, path, &expenses); err != nil {
		return nil, err
	}
	return expenses, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.AddCookie(&http.Cookie{Name: auth.AccessCookieName, Value: c.accessToken()})

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("get %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	if resp.StatusCode != http.StatusOK {
		return apiError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, path string, body any, accessToken string) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
		req.AddCookie(&http.Cookie{Name: auth.AccessCookieName, Value: accessToken})
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post %s: %w", path, err)
	}
	return resp, nil
}

func apiError(resp *http.Response) error {
	var body struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Message != "" {
		return fmt.Errorf("api error (%d): %s", resp.StatusCode, body.Message)
	}
	return fmt.Errorf("api error: unexpected status %d", resp.StatusCode)
}
