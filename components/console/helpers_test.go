package console

import (
	"context"
	"errors"
	"sync"
	"time"
)

var errBackendDown = errors.New("backend down")

type fakeAPI struct {
	mu sync.Mutex

	registrations []Registration
	donations     []Donation
	analytics     []AnalyticsEvent
	settings      Settings

	regsErr     error
	donsErr     error
	eventsErr   error
	settingsErr error
	mutateErr   error
	saveErr     error

	regUpdates []RegistrationUpdate
	donUpdates []DonationUpdate
	deleted    []RecordID
	saved      []Settings

	// gate, when set, blocks FetchRegistrations until it is closed.
	gate chan struct{}
}

func (f *fakeAPI) FetchRegistrations(ctx context.Context) ([]Registration, error) {
	f.mu.Lock()
	gate, items, err := f.gate, append([]Registration(nil), f.registrations...), f.regsErr
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return items, err
}

func (f *fakeAPI) FetchDonations(context.Context) ([]Donation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Donation(nil), f.donations...), f.donsErr
}

func (f *fakeAPI) FetchAnalytics(context.Context) ([]AnalyticsEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]AnalyticsEvent(nil), f.analytics...), f.eventsErr
}

func (f *fakeAPI) FetchSettings(context.Context) (Settings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.settingsErr != nil {
		return nil, f.settingsErr
	}
	return f.settings.Clone(), nil
}

func (f *fakeAPI) UpdateRegistration(_ context.Context, u RegistrationUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.regUpdates = append(f.regUpdates, u)
	return f.mutateErr
}

func (f *fakeAPI) DeleteRegistration(_ context.Context, id RecordID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return f.mutateErr
}

func (f *fakeAPI) UpdateDonation(_ context.Context, u DonationUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.donUpdates = append(f.donUpdates, u)
	return f.mutateErr
}

func (f *fakeAPI) DeleteDonation(_ context.Context, id RecordID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return f.mutateErr
}

func (f *fakeAPI) SaveSettings(_ context.Context, s Settings) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, s.Clone())
	return f.saveErr
}

func (f *fakeAPI) requests() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.regUpdates) + len(f.donUpdates) + len(f.deleted)
}

type sentNotification struct {
	level   NotificationLevel
	message string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
}

func (r *recordingNotifier) Notify(_ context.Context, level NotificationLevel, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sentNotification{level: level, message: message})
}

func (r *recordingNotifier) all() []sentNotification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]sentNotification(nil), r.sent...)
}

func (r *recordingNotifier) last() sentNotification {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.sent) == 0 {
		return sentNotification{}
	}
	return r.sent[len(r.sent)-1]
}

type recordingEvents struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordingEvents) Publish(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recordingEvents) types() []EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

type answerPrompter struct {
	answer    string
	suggested string
}

func (p *answerPrompter) PromptStatus(_ context.Context, _ Collection, _ RecordID, _, suggested string) (string, error) {
	p.suggested = suggested
	return p.answer, nil
}

type fixedConfirmer bool

func (c fixedConfirmer) Confirm(context.Context, string) (bool, error) { return bool(c), nil }

var testLocation = time.FixedZone("IST", 3*60*60)

func testNow() time.Time {
	return time.Date(2024, 5, 14, 12, 0, 0, 0, testLocation)
}

type consoleFixture struct {
	console  *Console
	api      *fakeAPI
	notifier *recordingNotifier
	events   *recordingEvents
	store    *MemoryStore
}

func newFixture(api *fakeAPI, mutate ...func(*Options)) consoleFixture {
	if api == nil {
		api = &fakeAPI{}
	}
	f := consoleFixture{
		api:      api,
		notifier: &recordingNotifier{},
		events:   &recordingEvents{},
		store:    NewMemoryStore(),
	}
	opts := Options{
		API:        api,
		LocalStore: f.store,
		Notifier:   f.notifier,
		Events:     f.events,
		Location:   testLocation,
		Clock:      testNow,
	}
	for _, fn := range mutate {
		fn(&opts)
	}
	f.console = NewConsole(opts)
	return f
}

func sampleRegistrations() []Registration {
	return []Registration{
		{ID: "1", Name: "Dana", Email: "dana@example.com", Phone: "0501234567", Status: RegistrationPendingBeta, Source: SourceBetaLanding, Notes: "רמת לימוד: מתחיל, אישור דיוור: כן", CreatedAt: "2024-05-14 09:00:00"},
		{ID: "2", Name: "Avi", Email: "avi@example.com", Phone: "0521234567", Status: RegistrationContacted, Source: SourceWhatsApp, Notes: "advanced learner", CreatedAt: "2024-05-13 09:00:00"},
		{ID: "3", Name: "Noa", Email: "noa@example.com", Phone: "0531234567", Status: RegistrationPendingBeta, Source: SourceWhatsApp, Notes: "", CreatedAt: "2024-05-12 09:00:00"},
	}
}

func sampleDonations() []Donation {
	return []Donation{
		{ID: "10", DonationID: "DON_20240514_090000_abc123", Amount: 100, DonorName: "תורם אנונימי", Status: DonationCompleted, Message: "תודה רבה", CreatedAt: "2024-05-14 09:00:00"},
		{ID: "11", Amount: 50, DonorName: "Ruth", Status: DonationPending, CreatedAt: "2024-05-14 10:00:00"},
		{ID: "12", Amount: 36, DonorName: "Eli", Status: DonationCompleted, Message: "", CreatedAt: "2024-05-13 10:00:00"},
	}
}
