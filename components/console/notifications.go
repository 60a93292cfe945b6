package console

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultNotificationTTL is how long a toast stays visible.
const DefaultNotificationTTL = 5 * time.Second

// NotificationLevel categorizes a toast.
type NotificationLevel string

const (
	NotificationSuccess NotificationLevel = "success"
	NotificationInfo    NotificationLevel = "info"
	NotificationWarning NotificationLevel = "warning"
	NotificationError   NotificationLevel = "error"
)

// Notification is a transient toast.
type Notification struct {
	ID        string            `json:"id"`
	Level     NotificationLevel `json:"level"`
	Message   string            `json:"message"`
	CreatedAt time.Time         `json:"created_at"`
	ExpiresAt time.Time         `json:"expires_at"`
}

// NotificationOptions configures a NotificationCenter.
type NotificationOptions struct {
	TTL       time.Duration
	Events    EventHook
	Telemetry Telemetry
	Clock     func() time.Time
	NewID     func() string
}

// NotificationCenter shows one toast at a time; a new notification replaces
// the visible one and each is dismissed automatically after TTL.
type NotificationCenter struct {
	opts    NotificationOptions
	mu      sync.Mutex
	current *Notification
	timers  map[string]*time.Timer
	history []Notification
	stopped bool
}

const notificationHistoryLimit = 50

// NewNotificationCenter builds a notification center.
func NewNotificationCenter(opts NotificationOptions) *NotificationCenter {
	if opts.TTL <= 0 {
		opts.TTL = DefaultNotificationTTL
	}
	if opts.Events == nil {
		opts.Events = noopEventHook{}
	}
	opts.Telemetry = normalizeTelemetry(opts.Telemetry)
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	return &NotificationCenter{
		opts:   opts,
		timers: make(map[string]*time.Timer),
	}
}

var _ Notifier = (*NotificationCenter)(nil)

// Notify shows a toast and schedules its dismissal.
func (n *NotificationCenter) Notify(ctx context.Context, level NotificationLevel, message string) {
	now := n.opts.Clock()
	note := Notification{
		ID:        n.opts.NewID(),
		Level:     level,
		Message:   message,
		CreatedAt: now,
		ExpiresAt: now.Add(n.opts.TTL),
	}

	n.mu.Lock()
	if n.stopped {
		n.mu.Unlock()
		return
	}
	var replaced *Notification
	if n.current != nil {
		replaced = n.current
		n.stopTimerLocked(replaced.ID)
	}
	n.current = &note
	n.history = append(n.history, note)
	if len(n.history) > notificationHistoryLimit {
		n.history = n.history[len(n.history)-notificationHistoryLimit:]
	}
	id := note.ID
	n.timers[id] = time.AfterFunc(n.opts.TTL, func() {
		n.Dismiss(context.WithoutCancel(ctx), id)
	})
	n.mu.Unlock()

	if replaced != nil {
		n.publish(ctx, EventNotificationDismissed, *replaced)
	}
	n.publish(ctx, EventNotificationShown, note)
	n.opts.Telemetry.Record(ctx, "console.notification.shown", map[string]any{
		"id":    note.ID,
		"level": string(level),
	})
}

// Dismiss hides the notification with id. It reports whether it was visible.
func (n *NotificationCenter) Dismiss(ctx context.Context, id string) bool {
	n.mu.Lock()
	n.stopTimerLocked(id)
	if n.current == nil || n.current.ID != id {
		n.mu.Unlock()
		return false
	}
	note := *n.current
	n.current = nil
	n.mu.Unlock()

	n.publish(ctx, EventNotificationDismissed, note)
	return true
}

// Current returns the visible notification, if any.
func (n *NotificationCenter) Current() (Notification, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.current == nil {
		return Notification{}, false
	}
	return *n.current, true
}

// History returns recent notifications, oldest first.
func (n *NotificationCenter) History() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Notification(nil), n.history...)
}

// Stop cancels pending dismiss timers. Notify is a no-op afterwards.
func (n *NotificationCenter) Stop() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.stopped = true
	for id := range n.timers {
		n.stopTimerLocked(id)
	}
}

// Pending reports how many dismiss timers are armed.
func (n *NotificationCenter) Pending() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.timers)
}

func (n *NotificationCenter) stopTimerLocked(id string) {
	if timer, ok := n.timers[id]; ok {
		timer.Stop()
		delete(n.timers, id)
	}
}

func (n *NotificationCenter) publish(ctx context.Context, typ EventType, note Notification) {
	_ = n.opts.Events.Publish(ctx, Event{Type: typ, Notification: &note, At: n.opts.Clock()})
}
