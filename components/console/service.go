package console

import (
	"context"
	"time"

	"github.com/goliatone/go-gmarup-admin/pkg/activity"
)

// DefaultAnalyticsRowLimit caps the rendered analytics table.
const DefaultAnalyticsRowLimit = 50

// Prompter asks the operator for a replacement status, pre-filled with a
// suggestion. Returning an empty string aborts the edit.
type Prompter interface {
	PromptStatus(ctx context.Context, kind Collection, id RecordID, current, suggested string) (string, error)
}

// Confirmer asks the operator to approve a destructive action.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// EventHook is told about state changes so transports can push them.
type EventHook interface {
	Publish(ctx context.Context, event Event) error
}

// Options configures the Console. Collaborators are interfaces so hosts can
// swap the backend, storage, and UI prompts.
type Options struct {
	API               API
	LocalStore        KeyValueStore
	Notifier          Notifier
	Events            EventHook
	Telemetry         Telemetry
	SettingsValidator SettingsValidator
	Prompter          Prompter
	Confirmer         Confirmer
	ActivityHooks     activity.Hooks
	ActivityConfig    activity.Config
	Location          *time.Location
	Locale            string
	VisitorsFloor     int
	AnalyticsRowLimit int
	Clock             func() time.Time
}

// Console holds the admin dashboard state and every operation over it.
type Console struct {
	opts     Options
	state    *State
	activity *activity.Emitter
}

// NewConsole builds a Console with safe defaults.
func NewConsole(opts Options) *Console {
	if opts.API == nil {
		opts.API = unavailableAPI{}
	}
	if opts.LocalStore == nil {
		opts.LocalStore = NewMemoryStore()
	}
	if opts.Notifier == nil {
		opts.Notifier = noopNotifier{}
	}
	if opts.Events == nil {
		opts.Events = noopEventHook{}
	}
	opts.Telemetry = normalizeTelemetry(opts.Telemetry)
	if opts.SettingsValidator == nil {
		opts.SettingsValidator = NewJSONSchemaValidator()
	}
	if opts.Prompter == nil {
		opts.Prompter = AcceptSuggestion{}
	}
	if opts.Confirmer == nil {
		opts.Confirmer = AutoConfirm{}
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Locale == "" {
		opts.Locale = LocaleHebrew
	}
	if opts.VisitorsFloor == 0 {
		opts.VisitorsFloor = DefaultVisitorsFloor
	}
	if opts.AnalyticsRowLimit <= 0 {
		opts.AnalyticsRowLimit = DefaultAnalyticsRowLimit
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Console{
		opts:     opts,
		state:    NewState(),
		activity: activity.NewEmitter(opts.ActivityHooks, opts.ActivityConfig),
	}
}

// State exposes the underlying state.
func (c *Console) State() *State { return c.state }

// Snapshot copies the current state.
func (c *Console) Snapshot() Snapshot { return c.state.Snapshot() }

// Locale returns the display locale.
func (c *Console) Locale() string { return c.opts.Locale }

// Location returns the time zone used for day boundaries.
func (c *Console) Location() *time.Location { return c.opts.Location }

func (c *Console) now() time.Time { return c.opts.Clock() }

func (c *Console) log(ctx context.Context, event string, payload map[string]any) {
	c.opts.Telemetry.Record(ctx, event, payload)
}

func (c *Console) notify(ctx context.Context, level NotificationLevel, key messageKey, args ...any) {
	text := message(c.opts.Locale, key, args...)
	c.opts.Notifier.Notify(ctx, level, text)
	c.log(ctx, "console.notification", map[string]any{"level": string(level), "message": text})
}

func (c *Console) publish(ctx context.Context, event Event) {
	if event.At.IsZero() {
		event.At = c.now()
	}
	if err := c.opts.Events.Publish(ctx, event); err != nil {
		c.log(ctx, "console.events.error", map[string]any{"type": event.Type, "error": err.Error()})
	}
}

func (c *Console) emitActivity(ctx context.Context, evt activity.Event) {
	if !c.activity.Enabled() {
		return
	}
	meta := activityContextFrom(ctx)
	evt.ActorID = meta.ActorID
	evt.UserID = meta.UserID
	evt.TenantID = meta.TenantID
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = c.now()
	}
	if err := c.activity.Emit(ctx, evt); err != nil {
		c.log(ctx, "console.activity.error", map[string]any{"verb": evt.Verb, "error": err.Error()})
	}
}

// AcceptSuggestion is a Prompter that always takes the suggested status.
type AcceptSuggestion struct{}

// PromptStatus implements Prompter.
func (AcceptSuggestion) PromptStatus(_ context.Context, _ Collection, _ RecordID, _, suggested string) (string, error) {
	return suggested, nil
}

// AutoConfirm approves every prompt. Hosts that confirm in their own UI
// (the web console asks in the browser) use it.
type AutoConfirm struct{}

// Confirm implements Confirmer.
func (AutoConfirm) Confirm(context.Context, string) (bool, error) { return true, nil }

type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, NotificationLevel, string) {}

type noopEventHook struct{}

func (noopEventHook) Publish(context.Context, Event) error { return nil }

type unavailableAPI struct{}

func (unavailableAPI) FetchRegistrations(context.Context) ([]Registration, error) {
	return nil, errMissingAPI
}
func (unavailableAPI) FetchDonations(context.Context) ([]Donation, error) { return nil, errMissingAPI }
func (unavailableAPI) FetchAnalytics(context.Context) ([]AnalyticsEvent, error) {
	return nil, errMissingAPI
}
func (unavailableAPI) FetchSettings(context.Context) (Settings, error) { return nil, errMissingAPI }
func (unavailableAPI) UpdateRegistration(context.Context, RegistrationUpdate) error {
	return errMissingAPI
}
func (unavailableAPI) DeleteRegistration(context.Context, RecordID) error { return errMissingAPI }
func (unavailableAPI) UpdateDonation(context.Context, DonationUpdate) error {
	return errMissingAPI
}
func (unavailableAPI) DeleteDonation(context.Context, RecordID) error { return errMissingAPI }
func (unavailableAPI) SaveSettings(context.Context, Settings) error  { return errMissingAPI }
