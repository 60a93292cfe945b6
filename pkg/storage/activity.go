package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"
)

// ActivityLog appends go-users activity records to the activity table.
type ActivityLog struct {
	store *SQLiteStore
}

// Activity returns the activity log sharing this database.
func (s *SQLiteStore) Activity() *ActivityLog {
	return &ActivityLog{store: s}
}

// Log stores one record. Records without a verb are ignored.
func (l *ActivityLog) Log(ctx context.Context, record types.ActivityRecord) error {
	if record.Verb == "" {
		return nil
	}
	data, err := json.Marshal(record.Data)
	if err != nil {
		return fmt.Errorf("storage: encode activity data: %w", err)
	}
	if record.Data == nil {
		data = []byte("{}")
	}
	occurred := record.OccurredAt
	if occurred.IsZero() {
		occurred = l.store.now()
	}
	actor := ""
	if record.ActorID != uuid.Nil {
		actor = record.ActorID.String()
	}
	_, err = l.store.db.ExecContext(ctx,
		`INSERT INTO activity(verb, actor_id, object_type, object_id, channel, data, occurred_at) VALUES(?, ?, ?, ?, ?, ?, ?)`,
		record.Verb, actor, record.ObjectType, record.ObjectID, record.Channel, string(data), occurred.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("storage: insert activity: %w", err)
	}
	return nil
}

// ActivityEntry is a stored activity row.
type ActivityEntry struct {
	Verb       string         `json:"verb"`
	ActorID    string         `json:"actor_id,omitempty"`
	ObjectType string         `json:"object_type"`
	ObjectID   string         `json:"object_id"`
	Channel    string         `json:"channel,omitempty"`
	Data       map[string]any `json:"data,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Recent returns up to limit entries, newest first.
func (l *ActivityLog) Recent(ctx context.Context, limit int) ([]ActivityEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := l.store.db.QueryContext(ctx,
		`SELECT verb, actor_id, object_type, object_id, channel, data, occurred_at FROM activity ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("storage: query activity: %w", err)
	}
	defer rows.Close()
	var out []ActivityEntry
	for rows.Next() {
		var (
			entry            ActivityEntry
			data, occurredAt string
		)
		if err := rows.Scan(&entry.Verb, &entry.ActorID, &entry.ObjectType, &entry.ObjectID, &entry.Channel, &data, &occurredAt); err != nil {
			return nil, fmt.Errorf("storage: scan activity: %w", err)
		}
		if data != "" && data != "{}" {
			if err := json.Unmarshal([]byte(data), &entry.Data); err != nil {
				return nil, fmt.Errorf("storage: decode activity data: %w", err)
			}
		}
		entry.OccurredAt, _ = time.Parse(time.RFC3339Nano, occurredAt)
		out = append(out, entry)
	}
	return out, rows.Err()
}
