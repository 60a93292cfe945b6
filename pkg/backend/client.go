package backend

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
	"time"

	"github.com/goliatone/go-gmarup-admin/components/console"
)

// DefaultTimeout bounds every request when no HTTP client is supplied.
const DefaultTimeout = 10 * time.Second

// ErrRejected is returned when the backend answers 2xx with success=false.
var ErrRejected = errors.New("backend: request rejected")

// Config configures the REST client.
type Config struct {
	BaseURL    string
	HTTPClient *http.Client
	Timeout    time.Duration
	UserAgent  string
}

// Client talks to the GmarUp Flask backend. It implements console.API and
// the public landing endpoints.
type Client struct {
	baseURL   string
	userAgent string
	client    *http.Client
}

var _ console.API = (*Client)(nil)

// NewClient builds a client for the backend rooted at cfg.BaseURL.
func NewClient(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("backend: base url is required")
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("backend: invalid base url: %w", err)
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL:   base,
		userAgent: cfg.UserAgent,
		client:    httpClient,
	}, nil
}

// BaseURL returns the configured backend root.
func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) FetchRegistrations(ctx context.Context) ([]console.Registration, error) {
	var out []console.Registration
	if err := c.do(ctx, http.MethodGet, "/api/admin/registrations", nil, &out); err != nil {
		return nil, err
	}
	return nonNil(out), nil
}

func (c *Client) FetchDonations(ctx context.Context) ([]console.Donation, error) {
	var out []console.Donation
	if err := c.do(ctx, http.MethodGet, "/api/admin/donations", nil, &out); err != nil {
		return nil, err
	}
	return nonNil(out), nil
}

func (c *Client) FetchAnalytics(ctx context.Context) ([]console.AnalyticsEvent, error) {
	var out []console.AnalyticsEvent
	if err := c.do(ctx, http.MethodGet, "/api/admin/analytics", nil, &out); err != nil {
		return nil, err
	}
	return nonNil(out), nil
}

func (c *Client) FetchSettings(ctx context.Context) (console.Settings, error) {
	out := console.Settings{}
	if err := c.do(ctx, http.MethodGet, "/api/admin/settings", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) UpdateRegistration(ctx context.Context, update console.RegistrationUpdate) error {
	return c.mutate(ctx, "/api/admin/registration", update)
}

func (c *Client) DeleteRegistration(ctx context.Context, id console.RecordID) error {
	return c.mutate(ctx, "/api/admin/registration", deleteRequest{ID: id, Action: "delete"})
}

func (c *Client) UpdateDonation(ctx context.Context, update console.DonationUpdate) error {
	return c.mutate(ctx, "/api/admin/donation", update)
}

func (c *Client) DeleteDonation(ctx context.Context, id console.RecordID) error {
	return c.mutate(ctx, "/api/admin/donation", deleteRequest{ID: id, Action: "delete"})
}

func (c *Client) SaveSettings(ctx context.Context, settings console.Settings) error {
	if settings == nil {
		settings = console.Settings{}
	}
	return c.mutate(ctx, "/api/admin/settings", settings)
}

// Ping calls the connectivity probe.
func (c *Client) Ping(ctx context.Context) (Health, error) {
	var out Health
	if err := c.do(ctx, http.MethodGet, "/api/test", nil, &out); err != nil {
		return Health{}, err
	}
	if !out.Success {
		return out, fmt.Errorf("%w: %s", ErrRejected, out.Error)
	}
	return out, nil
}

// Register submits a landing page signup.
func (c *Client) Register(ctx context.Context, req RegistrationRequest) (RegistrationResult, error) {
	var out RegistrationResult
	if err := c.do(ctx, http.MethodPost, "/api/register", req, &out); err != nil {
		return RegistrationResult{}, err
	}
	if !out.Success {
		return out, fmt.Errorf("%w: %s", ErrRejected, out.Error)
	}
	return out, nil
}

// Donate records a pending donation and returns the payment link.
func (c *Client) Donate(ctx context.Context, req DonationRequest) (DonationResult, error) {
	var out DonationResult
	if err := c.do(ctx, http.MethodPost, "/api/donate", req, &out); err != nil {
		return DonationResult{}, err
	}
	if !out.Success {
		return out, fmt.Errorf("%w: %s", ErrRejected, out.Error)
	}
	return out, nil
}

// PublicSettings returns the settings exposed without authentication.
func (c *Client) PublicSettings(ctx context.Context) (console.Settings, error) {
	out := console.Settings{}
	if err := c.do(ctx, http.MethodGet, "/api/settings", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Authenticate performs the form login. A rejected password is reported as
// (false, nil); transport failures are returned as errors.
func (c *Client) Authenticate(ctx context.Context, password string) (bool, error) {
	form := url.Values{}
	form.Set("login", "1")
	form.Set("password", password)
	var out mutationResponse
	err := c.do(ctx, http.MethodPost, "/api/admin", form, &out)
	var statusErr *StatusError
	if errors.As(err, &statusErr) && (statusErr.Code == http.StatusUnauthorized || statusErr.Code == http.StatusForbidden) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return out.Success, nil
}

// TrackEvent records one analytics event.
func (c *Client) TrackEvent(ctx context.Context, event TrackRequest) error {
	event.Action = ActionTrackAnalytics
	return c.mutate(ctx, "/api/admin/actions", event)
}

func (c *Client) mutate(ctx context.Context, path string, payload any) error {
	var out mutationResponse
	if err := c.do(ctx, http.MethodPost, path, payload, &out); err != nil {
		return err
	}
	if !out.Success {
		return fmt.Errorf("%w: %s", ErrRejected, out.Error)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, payload any, target any) error {
	var (
		body        io.Reader
		contentType string
	)
	switch typed := payload.(type) {
	case nil:
	case url.Values:
		body = strings.NewReader(typed.Encode())
		contentType = "application/x-www-form-urlencoded"
	default:
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("backend: encode payload: %w", err)
		}
		body = bytes.NewReader(raw)
		contentType = "application/json"
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("backend: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("backend: http request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		var buf bytes.Buffer
		_, _ = buf.ReadFrom(io.LimitReader(resp.Body, 64<<10))
		return &StatusError{Method: method, Path: path, Code: resp.StatusCode, Body: buf.String()}
	}
	if target == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("backend: decode %s: %w", path, err)
	}
	return nil
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
