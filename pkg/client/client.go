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

	"orgcms.dev/cms/pkg/access"
)

const defaultTimeout = 15 * time.Second

// APIError is a non-2xx response from the API.
type APIError struct {
	Status    int
	Code      string
	Message   string
	RequestID string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("cms api: %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("cms api: %d: %s", e.Status, e.Message)
}

// Kind maps the error code onto the shared error classification.
func (e *APIError) Kind() access.ErrorKind { return access.ErrorKind(e.Code) }

// IsKind reports whether err is an *APIError carrying kind.
func IsKind(err error, kind access.ErrorKind) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind() == kind
}

// User mirrors the account object returned by login.
type User struct {
	ID        string        `json:"id"`
	Username  string        `json:"username"`
	Email     string        `json:"email"`
	Role      access.Role   `json:"role"`
	Status    access.Status `json:"status"`
	CreatedBy *string       `json:"created_by,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// Identity returns the subset the resolver needs.
func (u User) Identity() access.Identity {
	return access.Identity{ID: u.ID, Username: u.Username, Role: u.Role, Status: u.Status}
}

// LoginResult is the body of a successful login.
type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      User      `json:"user"`
}

// UpdateResult is returned by the replace and reset endpoints.
type UpdateResult struct {
	Message      string `json:"message"`
	UpdatedCount int    `json:"updatedCount"`
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithToken starts the client with an existing bearer token.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// Client talks to the CMS API. It is safe for concurrent use.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client

	mu    sync.RWMutex
	token string
}

// New builds a client for baseURL, e.g. "https://cms.example.org".
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", baseURL)
	}
	c := &Client{baseURL: u, httpClient: &http.Client{Timeout: defaultTimeout}}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Token returns the bearer token attached to calls.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// SetToken replaces the bearer token. An empty token clears it.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Login authenticates with a username or email and stores the issued token.
func (c *Client) Login(ctx context.Context, login, password string) (LoginResult, error) {
	body := map[string]string{"password": password}
	if strings.Contains(login, "@") {
		body["email"] = login
	} else {
		body["username"] = login
	}
	var res LoginResult
	if err := c.doJSON(ctx, http.MethodPost, "/v1/auth/login", body, &res); err != nil {
		return LoginResult{}, err
	}
	c.SetToken(res.Token)
	return res, nil
}

// MyPermissions fetches the caller's snapshot.
func (c *Client) MyPermissions(ctx context.Context) (access.Snapshot, error) {
	var snap access.Snapshot
	if err := c.doJSON(ctx, http.MethodGet, "/permissions/my-permissions", nil, &snap); err != nil {
		return access.Snapshot{}, err
	}
	return snap, nil
}

// UserPermissions lists the override rows of userID. Admins only.
func (c *Client) UserPermissions(ctx context.Context, userID string) ([]access.Override, error) {
	var rows []access.Override
	if err := c.doJSON(ctx, http.MethodGet, "/permissions/user/"+url.PathEscape(userID), nil, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// ReplaceUserPermissions replaces every override row of userID.
func (c *Client) ReplaceUserPermissions(ctx context.Context, userID string, rows []access.Override) (UpdateResult, error) {
	if rows == nil {
		rows = []access.Override{}
	}
	payload := map[string]any{"permissions": rows}
	var res UpdateResult
	if err := c.doJSON(ctx, http.MethodPut, "/permissions/user/"+url.PathEscape(userID), payload, &res); err != nil {
		return UpdateResult{}, err
	}
	return res, nil
}

// ResetUserPermissions replaces the rows of userID with their role defaults.
func (c *Client) ResetUserPermissions(ctx context.Context, userID string) (UpdateResult, error) {
	var res UpdateResult
	if err := c.doJSON(ctx, http.MethodPost, "/permissions/user/"+url.PathEscape(userID)+"/reset", nil, &res); err != nil {
		return UpdateResult{}, err
	}
	return res, nil
}

// RoleDefaults returns the fixed capabilities of role.
func (c *Client) RoleDefaults(ctx context.Context, role access.Role) (access.Capabilities, error) {
	var caps access.Capabilities
	if err := c.doJSON(ctx, http.MethodGet, "/permissions/role/"+url.PathEscape(string(role)), nil, &caps); err != nil {
		return access.Capabilities{}, err
	}
	return caps, nil
}

func (c *Client) doJSON(ctx context.Context, method, p string, in, out any) error {
	// p is already escaped; append it to the base rather than setting URL.Path
	endpoint := c.baseURL.String() + p

	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := c.Token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeAPIError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var payload struct {
		Error     string `json:"error"`
		Code      string `json:"code"`
		RequestID string `json:"request_id"`
	}
	apiErr := &APIError{Status: resp.StatusCode}
	if err := json.Unmarshal(raw, &payload); err == nil && payload.Error != "" {
		apiErr.Message = payload.Error
		apiErr.Code = payload.Code
		apiErr.RequestID = payload.RequestID
		return apiErr
	}
	apiErr.Message = strings.TrimSpace(string(raw))
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}
