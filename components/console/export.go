package console

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

const (
	ContentTypeCSV  = "text/csv; charset=utf-8"
	ContentTypeJSON = "application/json"
)

// Export is a named file ready to be downloaded or written to disk.
type Export struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"-"`
}

// FullExport is the JSON document holding every collection.
type FullExport struct {
	Registrations []Registration   `json:"registrations"`
	Donations     []Donation       `json:"donations"`
	Analytics     []AnalyticsEvent `json:"analytics"`
	Settings      Settings         `json:"settings"`
	ExportedAt    string           `json:"exported_at"`
}

// EncodeCSV writes records as CSV. The header is the union of the JSON keys
// across all records in first-seen order. A record missing a key gets an
// empty cell. Quoting follows RFC 4180.
func EncodeCSV[T any](records []T) ([]byte, error) {
	rows := make([]map[string]json.RawMessage, 0, len(records))
	var header []string
	seen := map[string]bool{}
	for i, rec := range records {
		raw, err := json.Marshal(rec)
		if err != nil {
			return nil, fmt.Errorf("console: encode row %d: %w", i, err)
		}
		keys, values, err := objectFields(raw)
		if err != nil {
			return nil, fmt.Errorf("console: encode row %d: %w", i, err)
		}
		for _, k := range keys {
			if !seen[k] {
				seen[k] = true
				header = append(header, k)
			}
		}
		rows = append(rows, values)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return nil, err
	}
	line := make([]string, len(header))
	for _, row := range rows {
		for i, k := range header {
			line[i] = csvCell(row[k])
		}
		if err := w.Write(line); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// objectFields returns the keys of a JSON object in document order.
func objectFields(raw []byte) ([]string, map[string]json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, nil, fmt.Errorf("expected object, got %v", tok)
	}
	var keys []string
	values := map[string]json.RawMessage{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key, _ := tok.(string)
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, nil, err
		}
		keys = append(keys, key)
		values[key] = value
	}
	return keys, values, nil
}

func csvCell(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(raw, &b); err == nil {
			return strconv.FormatBool(b)
		}
	}
	return string(raw)
}

// ExportCSV serializes one collection. An empty collection yields
// ErrNothingToExport and a notification.
func (c *Console) ExportCSV(ctx context.Context, collection Collection) (Export, error) {
	snap := c.state.Snapshot()
	var (
		data  []byte
		err   error
		count int
	)
	switch collection {
	case CollectionRegistrations:
		count = len(snap.Registrations)
		if count > 0 {
			data, err = EncodeCSV(snap.Registrations)
		}
	case CollectionDonations:
		count = len(snap.Donations)
		if count > 0 {
			data, err = EncodeCSV(snap.Donations)
		}
	case CollectionAnalytics:
		count = len(snap.Analytics)
		if count > 0 {
			data, err = EncodeCSV(snap.Analytics)
		}
	default:
		return Export{}, fmt.Errorf("%w: %q is not exportable as csv", ErrUnknownCollection, collection)
	}
	if count == 0 {
		c.notify(ctx, NotificationWarning, msgExportEmpty)
		return Export{}, ErrNothingToExport
	}
	if err != nil {
		return Export{}, err
	}
	out := Export{
		Filename:    fmt.Sprintf("gmarup-%s-%s.csv", collection, c.exportDate()),
		ContentType: ContentTypeCSV,
		Data:        data,
	}
	c.notify(ctx, NotificationSuccess, msgExportDone, out.Filename)
	c.log(ctx, "console.export.csv", map[string]any{"collection": string(collection), "rows": count})
	return out, nil
}

// ExportJSON serializes all four collections with an export timestamp.
func (c *Console) ExportJSON(ctx context.Context) (Export, error) {
	snap := c.state.Snapshot()
	doc := FullExport{
		Registrations: snap.Registrations,
		Donations:     snap.Donations,
		Analytics:     snap.Analytics,
		Settings:      snap.Settings,
		ExportedAt:    c.now().UTC().Format("2006-01-02T15:04:05.000Z"),
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return Export{}, fmt.Errorf("console: encode export: %w", err)
	}
	out := Export{
		Filename:    fmt.Sprintf("gmarup-full-export-%s.json", c.exportDate()),
		ContentType: ContentTypeJSON,
		Data:        data,
	}
	c.notify(ctx, NotificationSuccess, msgExportAllDone)
	c.log(ctx, "console.export.json", map[string]any{
		"registrations": len(doc.Registrations),
		"donations":     len(doc.Donations),
		"analytics":     len(doc.Analytics),
	})
	return out, nil
}

func (c *Console) exportDate() string {
	return c.now().In(c.opts.Location).Format(time.DateOnly)
}
