package console

import "time"

// EventType names a state change pushed to live transports.
type EventType string

const (
	EventDataRefreshed         EventType = "data.refreshed"
	EventRecordUpdated         EventType = "record.updated"
	EventRecordDeleted         EventType = "record.deleted"
	EventSettingsSaved         EventType = "settings.saved"
	EventVisitorsReset         EventType = "visitors.reset"
	EventNotificationShown     EventType = "notification.shown"
	EventNotificationDismissed EventType = "notification.dismissed"
)

// Event is the payload delivered over SSE and WebSocket.
type Event struct {
	Type         EventType     `json:"type"`
	Collection   Collection    `json:"collection,omitempty"`
	RecordID     RecordID      `json:"record_id,omitempty"`
	Failed       []Collection  `json:"failed,omitempty"`
	Notification *Notification `json:"notification,omitempty"`
	Stats        *Stats        `json:"stats,omitempty"`
	At           time.Time     `json:"at"`
}
