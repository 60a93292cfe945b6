package console

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcastHookFansOut(t *testing.T) {
	hook := NewBroadcastHook()
	a, cancelA := hook.Subscribe()
	b, cancelB := hook.Subscribe()
	defer cancelB()

	require.NoError(t, hook.Publish(context.Background(), Event{Type: EventDataRefreshed}))
	assert.Equal(t, EventDataRefreshed, (<-a).Type)
	assert.Equal(t, EventDataRefreshed, (<-b).Type)

	cancelA()
	cancelA()
	assert.Equal(t, 1, hook.Subscribers())
	_, open := <-a
	assert.False(t, open)
}

func TestBroadcastHookServeSSE(t *testing.T) {
	hook := NewBroadcastHook()
	srv := httptest.NewServer(http.HandlerFunc(hook.ServeSSE))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	require.Eventually(t, func() bool { return hook.Subscribers() == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, hook.Publish(context.Background(), Event{Type: EventRecordDeleted, Collection: CollectionDonations}))

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: record.deleted\n", line)
	line, err = reader.ReadString('\n')
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(line, "data: {"))
	assert.Contains(t, line, `"collection":"donations"`)
}

func TestBroadcastHookServeWebSocket(t *testing.T) {
	hook := NewBroadcastHook()
	srv := httptest.NewServer(http.HandlerFunc(hook.ServeWebSocket))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hook.Subscribers() == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, hook.Publish(context.Background(), Event{Type: EventSettingsSaved}))

	var got Event
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, EventSettingsSaved, got.Type)
}

func pendingTypes(s *subscriber) []EventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]EventType, len(s.pending))
	for i, e := range s.pending {
		out[i] = e.Type
	}
	return out
}

func TestSubscriberKeepsOneToast(t *testing.T) {
	sub := newSubscriber()
	sub.offer(Event{Type: EventNotificationShown, Notification: &Notification{Message: "first"}})
	sub.offer(Event{Type: EventRecordUpdated, Collection: CollectionDonations, RecordID: "10"})
	sub.offer(Event{Type: EventNotificationDismissed})
	sub.offer(Event{Type: EventNotificationShown, Notification: &Notification{Message: "second"}})

	assert.Equal(t, []EventType{EventRecordUpdated, EventNotificationShown}, pendingTypes(sub))
	last := sub.pending[len(sub.pending)-1]
	assert.Equal(t, "second", last.Notification.Message)
}

func TestSubscriberFullRefreshSupersedesRecordEvents(t *testing.T) {
	sub := newSubscriber()
	sub.offer(Event{Type: EventRecordDeleted, Collection: CollectionRegistrations, RecordID: "1"})
	sub.offer(Event{Type: EventNotificationShown})
	sub.offer(Event{Type: EventDataRefreshed, Collection: CollectionDonations})
	sub.offer(Event{Type: EventDataRefreshed})

	assert.Equal(t, []EventType{EventNotificationShown, EventDataRefreshed}, pendingTypes(sub))
}

func TestSubscriberBacklogCollapsesToRefresh(t *testing.T) {
	sub := newSubscriber()
	sub.offer(Event{Type: EventNotificationShown})
	for i := 0; i < subscriberBacklog; i++ {
		sub.offer(Event{Type: EventRecordUpdated, Collection: CollectionRegistrations})
	}

	types := pendingTypes(sub)
	assert.Equal(t, []EventType{EventNotificationShown, EventDataRefreshed}, types)
	assert.Empty(t, sub.pending[1].Collection)
}

func TestBroadcastHookSlowReaderSeesLatestToast(t *testing.T) {
	hook := NewBroadcastHook()
	events, cancel := hook.Subscribe()
	defer cancel()

	for _, msg := range []string{"a", "b", "c", "d"} {
		require.NoError(t, hook.Publish(context.Background(), Event{Type: EventNotificationShown, Notification: &Notification{Message: msg}}))
	}

	var last string
	for {
		select {
		case e := <-events:
			last = e.Notification.Message
			continue
		case <-time.After(100 * time.Millisecond):
		}
		break
	}
	assert.Equal(t, "d", last)
}
