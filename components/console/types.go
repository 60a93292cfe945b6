package console

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// API is the remote admin backend. Implementations must be safe for
// concurrent use since the synchronizer fetches every collection in parallel.
type API interface {
	FetchRegistrations(ctx context.Context) ([]Registration, error)
	FetchDonations(ctx context.Context) ([]Donation, error)
	FetchAnalytics(ctx context.Context) ([]AnalyticsEvent, error)
	FetchSettings(ctx context.Context) (Settings, error)
	UpdateRegistration(ctx context.Context, update RegistrationUpdate) error
	DeleteRegistration(ctx context.Context, id RecordID) error
	UpdateDonation(ctx context.Context, update DonationUpdate) error
	DeleteDonation(ctx context.Context, id RecordID) error
	SaveSettings(ctx context.Context, settings Settings) error
}

// KeyValueStore models browser-style local or session storage.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Notifier receives user-facing toast notifications.
type Notifier interface {
	Notify(ctx context.Context, level NotificationLevel, message string)
}

// Storage keys shared with the landing page and the admin page.
const (
	KeyAuthToken           = "admin_auth_token"
	KeySettingsBackup      = "admin_settings_backup"
	KeyVisitorsResetDate   = "visitors_reset_date"
	KeyVisitorsResetFlag   = "visitors_reset_applied"
	KeyABVariant           = "ab_test_variant"
	KeyUserID              = "user_id"
	KeySessionID           = "analytics_session_id"
	KeyRegistrationBackups = "gmarup_registrations_backup"
)

// Collection names one of the datasets mirrored from the backend.
type Collection string

const (
	CollectionRegistrations Collection = "registrations"
	CollectionDonations     Collection = "donations"
	CollectionAnalytics     Collection = "analytics"
	CollectionSettings      Collection = "settings"
)

// Collections returns every collection in load order.
func Collections() []Collection {
	return []Collection{
		CollectionRegistrations,
		CollectionDonations,
		CollectionAnalytics,
		CollectionSettings,
	}
}

// ParseCollection resolves a collection name.
func ParseCollection(name string) (Collection, error) {
	switch c := Collection(strings.ToLower(strings.TrimSpace(name))); c {
	case CollectionRegistrations, CollectionDonations, CollectionAnalytics, CollectionSettings:
		return c, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCollection, name)
}

// RegistrationStatus tracks a beta-signup lead through outreach.
type RegistrationStatus string

const (
	RegistrationPendingBeta RegistrationStatus = "pending_beta"
	RegistrationContacted   RegistrationStatus = "contacted"
	RegistrationCompleted   RegistrationStatus = "completed"
	RegistrationFailed      RegistrationStatus = "failed"
)

// RegistrationStatuses is the cyclic edit order.
var RegistrationStatuses = []RegistrationStatus{
	RegistrationPendingBeta,
	RegistrationContacted,
	RegistrationCompleted,
	RegistrationFailed,
}

// DonationStatus tracks a payment settled outside the system.
type DonationStatus string

const (
	DonationPending   DonationStatus = "pending"
	DonationCompleted DonationStatus = "completed"
	DonationFailed    DonationStatus = "failed"
)

// DonationStatuses is the cyclic edit order.
var DonationStatuses = []DonationStatus{
	DonationPending,
	DonationCompleted,
	DonationFailed,
}

// Source is the traffic channel a lead arrived from.
type Source string

const (
	SourceBetaLanding Source = "beta_landing"
	SourceWhatsApp    Source = "whatsapp"
	SourceDirect      Source = "direct"
	SourceGoogle      Source = "google"
	SourceFacebook    Source = "facebook"
	SourceOther       Source = "other"
)

// StudyLevel is derived from registration notes.
type StudyLevel string

const (
	StudyLevelNone         StudyLevel = ""
	StudyLevelBeginner     StudyLevel = "beginner"
	StudyLevelIntermediate StudyLevel = "intermediate"
	StudyLevelAdvanced     StudyLevel = "advanced"
)

// StudyLevels lists levels in classification precedence.
var StudyLevels = []StudyLevel{
	StudyLevelBeginner,
	StudyLevelIntermediate,
	StudyLevelAdvanced,
}

// RecordID is an opaque identifier. The backend emits integers for rows it
// owns but any string is accepted and echoed back unchanged.
type RecordID string

// String returns the raw identifier.
func (id RecordID) String() string { return string(id) }

// UnmarshalJSON accepts numbers, strings and null.
func (id *RecordID) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*id = ""
		return nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return fmt.Errorf("console: decode id: %w", err)
		}
		*id = RecordID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return fmt.Errorf("console: decode id: %w", err)
	}
	*id = RecordID(n.String())
	return nil
}

// MarshalJSON emits integer ids as JSON numbers so the backend sees the
// same shape it produced.
func (id RecordID) MarshalJSON() ([]byte, error) {
	if id == "" {
		return []byte("null"), nil
	}
	if _, err := strconv.ParseInt(string(id), 10, 64); err == nil {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// Number decodes JSON numbers as well as numeric strings.
type Number float64

// UnmarshalJSON implements json.Unmarshaler.
func (n *Number) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*n = 0
		return nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return fmt.Errorf("console: decode number: %w", err)
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*n = 0
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("console: decode number %q: %w", s, err)
		}
		*n = Number(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(trimmed, &f); err != nil {
		return fmt.Errorf("console: decode number: %w", err)
	}
	*n = Number(f)
	return nil
}

// Float returns the value as float64.
func (n Number) Float() float64 { return float64(n) }

// Flag decodes booleans stored as 0/1 integers or strings.
type Flag bool

// UnmarshalJSON implements json.Unmarshaler.
func (f *Flag) UnmarshalJSON(data []byte) error {
	trimmed := strings.Trim(strings.TrimSpace(string(data)), `"`)
	switch strings.ToLower(trimmed) {
	case "", "null", "0", "false", "no":
		*f = false
	case "1", "true", "yes":
		*f = true
	default:
		return fmt.Errorf("console: decode flag %q", trimmed)
	}
	return nil
}

// Registration is a beta-signup lead.
type Registration struct {
	ID            RecordID           `json:"id"`
	Name          string             `json:"name"`
	Email         string             `json:"email"`
	Phone         string             `json:"phone"`
	Source        Source             `json:"source"`
	Status        RegistrationStatus `json:"status"`
	CreatedAt     string             `json:"created_at"`
	UpdatedAt     string             `json:"updated_at,omitempty"`
	IPAddress     string             `json:"ip_address,omitempty"`
	UserAgent     string             `json:"user_agent,omitempty"`
	LeadScore     Number             `json:"lead_score,omitempty"`
	Notes         string             `json:"notes,omitempty"`
	LastContacted string             `json:"last_contacted,omitempty"`
	AttemptCount  Number             `json:"attempt_count,omitempty"`
}

// Donation is a contribution settled through the external payment app.
type Donation struct {
	ID          RecordID       `json:"id"`
	DonationID  string         `json:"donation_id,omitempty"`
	Amount      Number         `json:"amount"`
	DonorName   string         `json:"donor_name"`
	DonorEmail  string         `json:"donor_email,omitempty"`
	DonorPhone  string         `json:"donor_phone,omitempty"`
	Message     string         `json:"message,omitempty"`
	Source      Source         `json:"source,omitempty"`
	Status      DonationStatus `json:"status"`
	CreatedAt   string         `json:"created_at"`
	CompletedAt string         `json:"completed_at,omitempty"`
	IPAddress   string         `json:"ip_address,omitempty"`
	UserAgent   string         `json:"user_agent,omitempty"`
	IsAnonymous Flag           `json:"is_anonymous,omitempty"`
}

// AnalyticsEvent is a single tracked interaction.
type AnalyticsEvent struct {
	ID        RecordID `json:"id"`
	SessionID string   `json:"session_id"`
	Category  string   `json:"category"`
	Action    string   `json:"action"`
	Label     string   `json:"label,omitempty"`
	Value     any      `json:"value,omitempty"`
	URL       string   `json:"url"`
	IPAddress string   `json:"ip_address,omitempty"`
	CreatedAt string   `json:"created_at"`
}

// Settings is the flat site configuration map.
type Settings map[string]any

// Clone returns a shallow copy.
func (s Settings) Clone() Settings {
	if s == nil {
		return Settings{}
	}
	out := make(Settings, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// String returns the value for key formatted as text.
func (s Settings) String(key string) string {
	v, ok := s[key]
	if !ok || v == nil {
		return ""
	}
	switch typed := v.(type) {
	case string:
		return typed
	case bool:
		if typed {
			return "1"
		}
		return "0"
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	default:
		return fmt.Sprint(typed)
	}
}

// Bool reports whether key holds a truthy toggle ("1", "true", true, 1).
func (s Settings) Bool(key string) bool {
	switch strings.ToLower(s.String(key)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// RegistrationUpdate is the body of a registration edit.
type RegistrationUpdate struct {
	ID     RecordID           `json:"id"`
	Status RegistrationStatus `json:"status,omitempty"`
	Notes  *string            `json:"notes,omitempty"`
}

// DonationUpdate is the body of a donation edit.
type DonationUpdate struct {
	ID     RecordID       `json:"id"`
	Status DonationStatus `json:"status,omitempty"`
}

// Patch describes an operator edit against any record kind.
type Patch struct {
	Status string
	Notes  *string
}

// ParseTimestamp reads backend timestamps. Values without a zone are
// interpreted in loc.
func ParseTimestamp(value string, loc *time.Location) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.In(loc), true
		}
	}
	for _, layout := range []string{
		"2006-01-02T15:04:05.999999999",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05.999999999",
		"2006-01-02 15:04:05",
		time.DateOnly,
	} {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
