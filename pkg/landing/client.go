package landing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-gmarup-admin/components/console"
	"github.com/goliatone/go-gmarup-admin/pkg/backend"
)

var (
	ErrRegistrationFailed = errors.New("landing: registration failed")
	ErrInvalidAmount      = errors.New("landing: donation amount must be positive")
)

// Backend is the subset of the REST client the landing page needs.
type Backend interface {
	Register(ctx context.Context, req backend.RegistrationRequest) (backend.RegistrationResult, error)
	Donate(ctx context.Context, req backend.DonationRequest) (backend.DonationResult, error)
	PublicSettings(ctx context.Context) (console.Settings, error)
	TrackEvent(ctx context.Context, event backend.TrackRequest) error
}

// Options configures a Client.
type Options struct {
	Backend    Backend
	LocalStore console.KeyValueStore
	Telemetry  console.Telemetry
	PaymentURL string
	Clock      func() time.Time
}

// Client performs the landing page flows: signup, donation, settings.
type Client struct {
	backend    Backend
	store      console.KeyValueStore
	telemetry  console.Telemetry
	sanitizer  *bluemonday.Policy
	paymentURL string
	now        func() time.Time
}

// NewClient builds a landing Client. Backend is required.
func NewClient(opts Options) (*Client, error) {
	if opts.Backend == nil {
		return nil, fmt.Errorf("landing: backend is required")
	}
	if opts.LocalStore == nil {
		opts.LocalStore = console.NewMemoryStore()
	}
	if opts.Telemetry == nil {
		opts.Telemetry = nopTelemetry{}
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Client{
		backend:    opts.Backend,
		store:      opts.LocalStore,
		telemetry:  opts.Telemetry,
		sanitizer:  bluemonday.StrictPolicy(),
		paymentURL: opts.PaymentURL,
		now:        opts.Clock,
	}, nil
}

// Submission is one signup as kept in the local backup.
type Submission struct {
	backend.RegistrationRequest
	Timestamp string `json:"timestamp"`
	Error     string `json:"error,omitempty"`
}

// Register validates and submits form. When the backend cannot be reached or
// rejects the signup, the submission is appended to the local backup and
// ErrRegistrationFailed is returned.
func (c *Client) Register(ctx context.Context, form RegistrationForm, source string) (backend.RegistrationResult, error) {
	form = c.clean(form)
	if err := ValidateRegistration(form); err != nil {
		return backend.RegistrationResult{}, err
	}
	level := form.StudyLevel
	if level == "" {
		level = DefaultStudyLevel
	}
	req := backend.RegistrationRequest{
		FullName:     form.FullName,
		Email:        form.Email,
		Phone:        form.Phone,
		EmailConsent: form.EmailConsent,
		StudyLevel:   level,
		Source:       source,
	}
	if err := ValidatePayload(req); err != nil {
		return backend.RegistrationResult{}, err
	}

	res, err := c.backend.Register(ctx, req)
	if err == nil {
		c.telemetry.Record(ctx, "landing.registration.success", map[string]any{"source": source})
		return res, nil
	}
	c.telemetry.Record(ctx, "landing.registration.failed", map[string]any{"error": err.Error()})
	if backupErr := c.backup(ctx, Submission{RegistrationRequest: req, Timestamp: c.now().UTC().Format(time.RFC3339), Error: err.Error()}); backupErr != nil {
		return res, errors.Join(fmt.Errorf("%w: %w", ErrRegistrationFailed, err), backupErr)
	}
	return res, fmt.Errorf("%w: %w", ErrRegistrationFailed, err)
}

func (c *Client) clean(form RegistrationForm) RegistrationForm {
	form.FullName = strings.TrimSpace(c.sanitizer.Sanitize(form.FullName))
	form.Email = strings.TrimSpace(form.Email)
	form.Phone = strings.TrimSpace(form.Phone)
	form.StudyLevel = strings.TrimSpace(c.sanitizer.Sanitize(form.StudyLevel))
	return form
}

// Backups returns the locally saved submissions, oldest first.
func (c *Client) Backups(ctx context.Context) ([]Submission, error) {
	raw, ok, err := c.store.Get(ctx, console.KeyRegistrationBackups)
	if err != nil {
		return nil, fmt.Errorf("landing: read backups: %w", err)
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var out []Submission
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("landing: decode backups: %w", err)
	}
	return out, nil
}

func (c *Client) backup(ctx context.Context, sub Submission) error {
	existing, err := c.Backups(ctx)
	if err != nil {
		// A corrupt backup is replaced rather than blocking new ones.
		c.telemetry.Record(ctx, "landing.backup.error", map[string]any{"error": err.Error()})
		existing = nil
	}
	data, err := json.Marshal(append(existing, sub))
	if err != nil {
		return fmt.Errorf("landing: encode backups: %w", err)
	}
	if err := c.store.Set(ctx, console.KeyRegistrationBackups, string(data)); err != nil {
		return fmt.Errorf("landing: write backups: %w", err)
	}
	return nil
}

// Donation describes a donate click. Zero-value donor fields mean anonymous.
type Donation struct {
	Amount  float64
	Name    string
	Email   string
	Phone   string
	Message string
	Source  string
}

// Donate records the donation and returns the payment link to redirect to.
// Recording failures are logged; the visitor still gets a payment link.
func (c *Client) Donate(ctx context.Context, d Donation) (string, error) {
	if d.Amount <= 0 {
		return "", ErrInvalidAmount
	}
	req := backend.DonationRequest{
		Amount:      d.Amount,
		DonorName:   strings.TrimSpace(c.sanitizer.Sanitize(d.Name)),
		DonorEmail:  strings.TrimSpace(d.Email),
		DonorPhone:  NormalizePhone(d.Phone),
		Message:     strings.TrimSpace(c.sanitizer.Sanitize(d.Message)),
		Source:      d.Source,
		IsAnonymous: strings.TrimSpace(d.Name) == "",
	}
	fallback := backend.PaymentLink(c.paymentURL, d.Amount)
	res, err := c.backend.Donate(ctx, req)
	if err != nil {
		c.telemetry.Record(ctx, "landing.donation.failed", map[string]any{"amount": d.Amount, "error": err.Error()})
		return fallback, nil
	}
	c.telemetry.Record(ctx, "landing.donation.created", map[string]any{"amount": d.Amount, "donation_id": res.DonationID})
	if res.PaymentURL == "" {
		return fallback, nil
	}
	return res.PaymentURL, nil
}

// PublicSettings returns the public settings merged over the defaults. On
// failure the defaults are returned alongside the error.
func (c *Client) PublicSettings(ctx context.Context) (console.Settings, error) {
	out := console.DefaultPublicSettings()
	remote, err := c.backend.PublicSettings(ctx)
	if err != nil {
		c.telemetry.Record(ctx, "landing.settings.failed", map[string]any{"error": err.Error()})
		return out, err
	}
	for k, v := range remote {
		if v != nil {
			out[k] = v
		}
	}
	return out, nil
}

type nopTelemetry struct{}

func (nopTelemetry) Record(context.Context, string, map[string]any) {}
