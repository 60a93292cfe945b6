package backend

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/goliatone/go-gmarup-admin/components/console"
)

const (
	// ActionTrackAnalytics is the admin action that stores an analytics event.
	ActionTrackAnalytics = "track_analytics"
	// DefaultPaymentURL is the Bit payment page; donations append ?amount=N.
	DefaultPaymentURL = "https://www.bitpay.co.il/app/me/14D6AE95-19DD-340D-BE3D-1EB146D9A0B420D2"
)

// PaymentLink returns the payment page URL for amount.
func PaymentLink(base string, amount float64) string {
	if base == "" {
		base = DefaultPaymentURL
	}
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + "amount=" + strconv.FormatFloat(amount, 'f', -1, 64)
}

// StatusError reports a non-2xx backend response.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	if msg := e.Message(); msg != "" {
		return fmt.Sprintf("backend: %s %s: status %d: %s", e.Method, e.Path, e.Code, msg)
	}
	return fmt.Sprintf("backend: %s %s: status %d", e.Method, e.Path, e.Code)
}

// Message extracts the backend's "error" field, falling back to the raw body.
func (e *StatusError) Message() string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal([]byte(e.Body), &payload); err == nil && payload.Error != "" {
		return payload.Error
	}
	return strings.TrimSpace(e.Body)
}

type mutationResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

type deleteRequest struct {
	ID     console.RecordID `json:"id"`
	Action string           `json:"action"`
}

// Health is the /api/test probe response.
type Health struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Error   string      `json:"error,omitempty"`
	Stats   HealthStats `json:"stats"`
}

// HealthStats carries row counts and the backend clock.
type HealthStats struct {
	Registrations int    `json:"registrations"`
	Donations     int    `json:"donations"`
	ServerTime    string `json:"server_time"`
}

// RegistrationRequest is the landing signup body.
type RegistrationRequest struct {
	FullName     string `json:"fullName"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	EmailConsent bool   `json:"emailConsent"`
	StudyLevel   string `json:"studyLevel,omitempty"`
	Source       string `json:"source,omitempty"`
}

// RegistrationResult is the signup response.
type RegistrationResult struct {
	Success        bool             `json:"success"`
	Message        string           `json:"message,omitempty"`
	Error          string           `json:"error,omitempty"`
	RegistrationID console.RecordID `json:"registration_id,omitempty"`
}

// DonationRequest is the donate body.
type DonationRequest struct {
	Amount      float64 `json:"amount"`
	DonorName   string  `json:"donor_name,omitempty"`
	DonorEmail  string  `json:"donor_email,omitempty"`
	DonorPhone  string  `json:"donor_phone,omitempty"`
	Message     string  `json:"message,omitempty"`
	Source      string  `json:"source,omitempty"`
	IsAnonymous bool    `json:"is_anonymous"`
}

// DonationResult carries the generated donation id and payment link.
type DonationResult struct {
	Success    bool   `json:"success"`
	DonationID string `json:"donation_id,omitempty"`
	PaymentURL string `json:"payment_url,omitempty"`
	Message    string `json:"message,omitempty"`
	Error      string `json:"error,omitempty"`
}

// TrackRequest is one analytics event sent to the admin actions endpoint.
type TrackRequest struct {
	Action      string `json:"action"`
	SessionID   string `json:"sessionId"`
	UserID      string `json:"userId,omitempty"`
	Category    string `json:"category"`
	EventAction string `json:"eventAction"`
	Label       string `json:"label,omitempty"`
	Value       any    `json:"value,omitempty"`
	URL         string `json:"url,omitempty"`
	Variant     string `json:"variant,omitempty"`
}
