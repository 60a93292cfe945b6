package landing

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-gmarup-admin/components/console"
	"github.com/goliatone/go-gmarup-admin/pkg/backend"
)

// DefaultDebounce delays high-frequency events such as scroll.
const DefaultDebounce = 250 * time.Millisecond

// ScrollMilestones are reported once each per session.
var ScrollMilestones = []int{25, 50, 75, 90, 100}

// Variants are the A/B buckets.
var Variants = []string{"A", "B"}

// Event is one analytics interaction.
type Event struct {
	Category string
	Action   string
	Label    string
	Value    any
	URL      string
}

// TrackerOptions configures a Tracker.
type TrackerOptions struct {
	Backend      Backend
	LocalStore   console.KeyValueStore
	SessionStore console.KeyValueStore
	Telemetry    console.Telemetry
	Debounce     time.Duration
	// Pick returns an index in [0, n); defaults to math/rand.
	Pick func(n int) int
}

// Tracker sends analytics events tagged with session, user, and A/B variant.
type Tracker struct {
	backend   Backend
	local     console.KeyValueStore
	session   console.KeyValueStore
	telemetry console.Telemetry
	debounce  time.Duration
	pick      func(n int) int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	pending  map[string]*time.Timer
	reached  map[int]bool
	maxDepth int
	stopped  bool
}

// NewTracker builds a Tracker. Call Stop to cancel pending debounced sends.
func NewTracker(opts TrackerOptions) (*Tracker, error) {
	if opts.Backend == nil {
		return nil, fmt.Errorf("landing: backend is required")
	}
	if opts.LocalStore == nil {
		opts.LocalStore = console.NewMemoryStore()
	}
	if opts.SessionStore == nil {
		opts.SessionStore = console.NewMemoryStore()
	}
	if opts.Telemetry == nil {
		opts.Telemetry = nopTelemetry{}
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Pick == nil {
		opts.Pick = rand.IntN
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Tracker{
		backend:   opts.Backend,
		local:     opts.LocalStore,
		session:   opts.SessionStore,
		telemetry: opts.Telemetry,
		debounce:  opts.Debounce,
		pick:      opts.Pick,
		ctx:       ctx,
		cancel:    cancel,
		pending:   map[string]*time.Timer{},
		reached:   map[int]bool{},
	}, nil
}

// SessionID returns the per-session id, creating it on first use.
func (t *Tracker) SessionID(ctx context.Context) (string, error) {
	return getOrCreate(ctx, t.session, console.KeySessionID, func() string { return "sess_" + uuid.NewString() })
}

// UserID returns the returning-visitor id, creating it on first use.
func (t *Tracker) UserID(ctx context.Context) (string, error) {
	return getOrCreate(ctx, t.local, console.KeyUserID, func() string { return "user_" + uuid.NewString() })
}

// Variant returns the sticky A/B bucket.
func (t *Tracker) Variant(ctx context.Context) (string, error) {
	return getOrCreate(ctx, t.local, console.KeyABVariant, func() string { return Variants[t.pick(len(Variants))] })
}

func getOrCreate(ctx context.Context, store console.KeyValueStore, key string, create func() string) (string, error) {
	value, ok, err := store.Get(ctx, key)
	if err != nil {
		return "", fmt.Errorf("landing: read %s: %w", key, err)
	}
	if ok && strings.TrimSpace(value) != "" {
		return value, nil
	}
	value = create()
	if err := store.Set(ctx, key, value); err != nil {
		return "", fmt.Errorf("landing: write %s: %w", key, err)
	}
	return value, nil
}

// Track sends event immediately.
func (t *Tracker) Track(ctx context.Context, event Event) error {
	req, err := t.request(ctx, event)
	if err != nil {
		return err
	}
	if err := t.backend.TrackEvent(ctx, req); err != nil {
		t.telemetry.Record(ctx, "landing.track.failed", map[string]any{"category": event.Category, "action": event.Action, "error": err.Error()})
		return fmt.Errorf("landing: track %s/%s: %w", event.Category, event.Action, err)
	}
	return nil
}

func (t *Tracker) request(ctx context.Context, event Event) (backend.TrackRequest, error) {
	sessionID, err := t.SessionID(ctx)
	if err != nil {
		return backend.TrackRequest{}, err
	}
	userID, err := t.UserID(ctx)
	if err != nil {
		return backend.TrackRequest{}, err
	}
	variant, err := t.Variant(ctx)
	if err != nil {
		return backend.TrackRequest{}, err
	}
	return backend.TrackRequest{
		SessionID:   sessionID,
		UserID:      userID,
		Category:    event.Category,
		EventAction: event.Action,
		Label:       event.Label,
		Value:       event.Value,
		URL:         event.URL,
		Variant:     variant,
	}, nil
}

// TrackDebounced schedules event under key; a later call with the same key
// before the debounce window elapses replaces it.
func (t *Tracker) TrackDebounced(key string, event Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	if timer, ok := t.pending[key]; ok && timer.Stop() {
		t.wg.Done()
	}
	t.wg.Add(1)
	var timer *time.Timer
	timer = time.AfterFunc(t.debounce, func() {
		defer t.wg.Done()
		t.mu.Lock()
		if t.pending[key] == timer {
			delete(t.pending, key)
		}
		t.mu.Unlock()
		if t.ctx.Err() != nil {
			return
		}
		_ = t.Track(t.ctx, event)
	})
	t.pending[key] = timer
}

// ObserveScroll records a scroll position (0-100) and schedules one event per
// newly reached milestone. It returns the milestones that were newly reached.
func (t *Tracker) ObserveScroll(percent int, pageURL string) []int {
	percent = min(max(percent, 0), 100)
	t.mu.Lock()
	t.maxDepth = max(t.maxDepth, percent)
	var crossed []int
	for _, m := range ScrollMilestones {
		if percent >= m && !t.reached[m] {
			t.reached[m] = true
			crossed = append(crossed, m)
		}
	}
	t.mu.Unlock()
	for _, m := range crossed {
		t.TrackDebounced(fmt.Sprintf("scroll:%d", m), Event{
			Category: "Scroll",
			Action:   "depth",
			Label:    fmt.Sprintf("%d%%", m),
			Value:    m,
			URL:      pageURL,
		})
	}
	return crossed
}

// MaxScrollDepth is the deepest scroll position observed.
func (t *Tracker) MaxScrollDepth() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.maxDepth
}

// Pending reports how many debounced events are waiting.
func (t *Tracker) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}

// Stop cancels pending debounced events and waits for in-flight sends.
func (t *Tracker) Stop() {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}
	t.stopped = true
	for key, timer := range t.pending {
		if timer.Stop() {
			t.wg.Done()
		}
		delete(t.pending, key)
	}
	t.mu.Unlock()
	t.cancel()
	t.wg.Wait()
}

// LeadSignals are the engagement inputs of LeadScore.
type LeadSignals struct {
	TimeOnPage     time.Duration
	MaxScrollDepth int
	Interactions   int
	Source         string
}

// LeadScore rates engagement on a 0-100 scale.
func LeadScore(s LeadSignals) int {
	score := 0
	if s.TimeOnPage > time.Minute {
		score += 20
	}
	if s.TimeOnPage > 3*time.Minute {
		score += 30
	}
	if s.TimeOnPage > 5*time.Minute {
		score += 50
	}
	if s.MaxScrollDepth > 50 {
		score += 25
	}
	if s.MaxScrollDepth > 80 {
		score += 35
	}
	score += min(max(s.Interactions, 0)*10, 50)
	switch src := strings.ToLower(s.Source); {
	case strings.HasPrefix(src, "google"):
		score += 15
	case strings.HasPrefix(src, "facebook"):
		score += 10
	case src != "" && src != "direct":
		score += 10
	}
	return min(score, 100)
}
