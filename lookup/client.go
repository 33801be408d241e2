package lookup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/acadbot/chatauth"
)

const maxResponseBytes = 1 << 20

// Client resolves identities against the record service over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
	apiKey  string
}

// Option configures a [Client].
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithAPIKey sets a bearer credential sent on every request.
func WithAPIKey(key string) Option {
	return func(c *Client) {
		c.apiKey = key
	}
}

// NewClient creates a [Client] for the record service at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

type studentRecord struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	FullName   string `json:"full_name"`
	Identifier string `json:"ra"`
	Role       string `json:"role"`
}

// LookupByEmail fetches the record for the given e-mail address.
// A 404 maps to chatauth.ErrIdentityNotFound; transport failures and
// unexpected statuses wrap chatauth.ErrLookupUnavailable.
func (c *Client) LookupByEmail(ctx context.Context, email string) (chatauth.Identity, error) {
	endpoint := c.baseURL + "/students/by-email?email=" + url.QueryEscape(email)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return chatauth.Identity{}, fmt.Errorf("%w: %v", chatauth.ErrLookupUnavailable, err)
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return chatauth.Identity{}, fmt.Errorf("%w: %v", chatauth.ErrLookupUnavailable, err)
	}
	defer drainAndClose(resp.Body)

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return chatauth.Identity{}, chatauth.ErrIdentityNotFound
	default:
		return chatauth.Identity{}, fmt.Errorf("%w: unexpected status %d", chatauth.ErrLookupUnavailable, resp.StatusCode)
	}

	var record studentRecord
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&record); err != nil {
		return chatauth.Identity{}, fmt.Errorf("%w: %v", chatauth.ErrLookupUnavailable, err)
	}

	return chatauth.Identity{
		UserID:     record.ID,
		Email:      record.Email,
		FullName:   record.FullName,
		FullSecret: record.Identifier,
		Role:       record.Role,
	}, nil
}

type verifyPasswordRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type verifyPasswordResponse struct {
	Valid bool `json:"valid"`
}

// VerifyPassword asks the record service to check a password credential.
// Returns (false, nil) on a definitive rejection; errors indicate the
// check could not be performed.
func (c *Client) VerifyPassword(ctx context.Context, email, password string) (bool, error) {
	body, err := json.Marshal(verifyPasswordRequest{Email: email, Password: password})
	if err != nil {
		return false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/verify-password", bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("%w: %v", chatauth.ErrLookupUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("%w: %v", chatauth.ErrLookupUnavailable, err)
	}
	defer drainAndClose(resp.Body)

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("%w: unexpected status %d", chatauth.ErrLookupUnavailable, resp.StatusCode)
	}

	var verdict verifyPasswordResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&verdict); err != nil {
		return false, fmt.Errorf("%w: %v", chatauth.ErrLookupUnavailable, err)
	}

	return verdict.Valid, nil
}

func (c *Client) authorize(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, maxResponseBytes))
	_ = body.Close()
}
