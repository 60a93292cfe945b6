package console

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// subscriberBacklog bounds the record-level events queued for one
// subscriber. Past it the queue collapses into a single full refresh.
const subscriberBacklog = 32

// BroadcastHook fans out console events to in-process subscribers. Each
// subscriber gets a mailbox that folds events the way the page consumes
// them: one toast slot, and a full refresh superseding record-level changes.
// Publish never blocks on a slow reader.
type BroadcastHook struct {
	mu   sync.RWMutex
	subs map[int]*subscriber
	next int
}

// NewBroadcastHook creates a broadcast hook.
func NewBroadcastHook() *BroadcastHook {
	return &BroadcastHook{subs: make(map[int]*subscriber)}
}

// Publish satisfies EventHook.
func (h *BroadcastHook) Publish(_ context.Context, event Event) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.subs {
		sub.offer(event)
	}
	return nil
}

// Subscribe returns a channel of events and a cancel func.
func (h *BroadcastHook) Subscribe() (<-chan Event, func()) {
	sub := newSubscriber()
	h.mu.Lock()
	id := h.next
	h.next++
	h.subs[id] = sub
	h.mu.Unlock()
	go sub.pump()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(sub.done)
		})
	}
	return sub.out, cancel
}

// Subscribers reports the number of live subscriptions.
func (h *BroadcastHook) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

type subscriber struct {
	mu      sync.Mutex
	pending []Event
	wake    chan struct{}
	done    chan struct{}
	out     chan Event
}

func newSubscriber() *subscriber {
	return &subscriber{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
		out:  make(chan Event),
	}
}

func isNotificationEvent(t EventType) bool {
	return t == EventNotificationShown || t == EventNotificationDismissed
}

func isFullRefresh(event Event) bool {
	return event.Type == EventDataRefreshed && event.Collection == ""
}

// offer queues event, folding it into what the reader has not seen yet.
func (s *subscriber) offer(event Event) {
	s.mu.Lock()
	switch {
	case isNotificationEvent(event.Type):
		s.pending = dropPending(s.pending, func(e Event) bool { return isNotificationEvent(e.Type) })
		s.pending = append(s.pending, event)
	case isFullRefresh(event):
		s.pending = dropPending(s.pending, func(e Event) bool { return !isNotificationEvent(e.Type) })
		s.pending = append(s.pending, event)
	default:
		s.pending = append(s.pending, event)
		if len(s.pending) > subscriberBacklog {
			s.pending = dropPending(s.pending, func(e Event) bool { return !isNotificationEvent(e.Type) })
			s.pending = append(s.pending, Event{Type: EventDataRefreshed, At: event.At})
		}
	}
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *subscriber) pop() (Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pending) == 0 {
		return Event{}, false
	}
	event := s.pending[0]
	s.pending = s.pending[1:]
	return event, true
}

func (s *subscriber) pump() {
	defer close(s.out)
	for {
		select {
		case <-s.done:
			return
		case <-s.wake:
		}
		for {
			event, ok := s.pop()
			if !ok {
				break
			}
			select {
			case s.out <- event:
			case <-s.done:
				return
			}
		}
	}
}

func dropPending(events []Event, drop func(Event) bool) []Event {
	kept := events[:0]
	for _, e := range events {
		if !drop(e) {
			kept = append(kept, e)
		}
	}
	return kept
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWebSocket upgrades the request and streams events as JSON.
func (h *BroadcastHook) ServeWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	events, cancel := h.Subscribe()
	defer cancel()

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := conn.WriteJSON(event); err != nil {
				return
			}
		}
	}
}

// ServeSSE streams events as Server-Sent Events.
func (h *BroadcastHook) ServeSSE(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	events, cancel := h.Subscribe()
	defer cancel()

	flusher, _ := w.(http.Flusher)
	if flusher != nil {
		flusher.Flush()
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			payload, err := json.Marshal(event)
			if err != nil {
				return
			}
			if _, err := w.Write([]byte("event: " + string(event.Type) + "\ndata: ")); err != nil {
				return
			}
			if _, err := w.Write(append(payload, '\n', '\n')); err != nil {
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
	}
}
