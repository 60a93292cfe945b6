package console

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// ActionKind is a per-row control.
type ActionKind string

const (
	ActionEdit   ActionKind = "edit"
	ActionDelete ActionKind = "delete"
)

// Column is a table header.
type Column struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// Cell is one rendered value. Link and Badge are optional presentation hints.
type Cell struct {
	Text  string `json:"text"`
	Title string `json:"title,omitempty"`
	Link  string `json:"link,omitempty"`
	Badge string `json:"badge,omitempty"`
}

// Action is a control bound to a record id.
type Action struct {
	Kind     ActionKind `json:"kind"`
	Label    string     `json:"label"`
	Icon     string     `json:"icon"`
	RecordID RecordID   `json:"record_id"`
}

// Row is one rendered record.
type Row struct {
	ID      RecordID `json:"id"`
	Cells   []Cell   `json:"cells"`
	Actions []Action `json:"actions,omitempty"`
}

// EmptyState replaces the table body when there are no rows.
type EmptyState struct {
	Icon        string `json:"icon"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// TableView is a pure projection of a collection. Either Rows or Empty is
// set, never both.
type TableView struct {
	Collection Collection  `json:"collection"`
	Title      string      `json:"title"`
	Columns    []Column    `json:"columns"`
	Rows       []Row       `json:"rows,omitempty"`
	Empty      *EmptyState `json:"empty,omitempty"`
	Total      int         `json:"total"`
	Shown      int         `json:"shown"`
	Filtered   bool        `json:"filtered,omitempty"`
}

// IsEmpty reports whether the empty state is shown.
func (v TableView) IsEmpty() bool { return v.Empty != nil }

// Truncated reports whether rows were capped.
func (v TableView) Truncated() bool { return v.Shown < v.Total }

// ViewOptions controls projection.
type ViewOptions struct {
	Locale            string
	Formatter         Formatter
	AnalyticsRowLimit int
}

func (o ViewOptions) label(values localized, fallback string) string {
	return ResolveLocalizedValue(values, o.Locale, fallback)
}

func emptyStateFor(c Collection, locale string) *EmptyState {
	switch c {
	case CollectionRegistrations:
		return &EmptyState{
			Icon:        "👥",
			Title:       ResolveLocalizedValue(localized{"he": "אין רישומים עדיין", "en": "No registrations yet"}, locale, ""),
			Description: ResolveLocalizedValue(localized{"he": "רישומים חדשים יופיעו כאן", "en": "New registrations will appear here"}, locale, ""),
		}
	case CollectionDonations:
		return &EmptyState{
			Icon:        "💝",
			Title:       ResolveLocalizedValue(localized{"he": "אין תרומות עדיין", "en": "No donations yet"}, locale, ""),
			Description: ResolveLocalizedValue(localized{"he": "תרומות חדשות יופיעו כאן", "en": "New donations will appear here"}, locale, ""),
		}
	case CollectionAnalytics:
		return &EmptyState{
			Icon:        "📈",
			Title:       ResolveLocalizedValue(localized{"he": "אין נתוני אנליטיקס", "en": "No analytics data"}, locale, ""),
			Description: ResolveLocalizedValue(localized{"he": "נתוני אנליטיקס יופיעו כאן", "en": "Analytics data will appear here"}, locale, ""),
		}
	}
	return &EmptyState{Icon: "📄", Title: string(c)}
}

func rowActions(id RecordID, locale string) []Action {
	return []Action{
		{Kind: ActionEdit, Icon: "✏️", RecordID: id, Label: ResolveLocalizedValue(localized{"he": "ערוך", "en": "Edit"}, locale, "edit")},
		{Kind: ActionDelete, Icon: "🗑️", RecordID: id, Label: ResolveLocalizedValue(localized{"he": "מחק", "en": "Delete"}, locale, "delete")},
	}
}

var (
	registrationColumns = []struct {
		key    string
		labels localized
	}{
		{"id", localized{"he": "מזהה", "en": "ID"}},
		{"name", localized{"he": "שם", "en": "Name"}},
		{"email", localized{"he": "אימייל", "en": "Email"}},
		{"phone", localized{"he": "טלפון", "en": "Phone"}},
		{"source", localized{"he": "מקור", "en": "Source"}},
		{"study_level", localized{"he": "רמת לימוד", "en": "Study level"}},
		{"created_at", localized{"he": "תאריך", "en": "Created"}},
		{"status", localized{"he": "סטטוס", "en": "Status"}},
	}
	donationColumns = []struct {
		key    string
		labels localized
	}{
		{"id", localized{"he": "מזהה", "en": "ID"}},
		{"donor_name", localized{"he": "שם התורם", "en": "Donor"}},
		{"amount", localized{"he": "סכום", "en": "Amount"}},
		{"donor_email", localized{"he": "אימייל", "en": "Email"}},
		{"donor_phone", localized{"he": "טלפון", "en": "Phone"}},
		{"message", localized{"he": "הודעה", "en": "Message"}},
		{"created_at", localized{"he": "תאריך", "en": "Created"}},
		{"status", localized{"he": "סטטוס", "en": "Status"}},
	}
	analyticsColumns = []struct {
		key    string
		labels localized
	}{
		{"id", localized{"he": "מזהה", "en": "ID"}},
		{"session_id", localized{"he": "סשן", "en": "Session"}},
		{"category", localized{"he": "קטגוריה", "en": "Category"}},
		{"action", localized{"he": "פעולה", "en": "Action"}},
		{"label", localized{"he": "תווית", "en": "Label"}},
		{"value", localized{"he": "ערך", "en": "Value"}},
		{"url", localized{"he": "כתובת", "en": "URL"}},
		{"ip_address", localized{"he": "IP", "en": "IP"}},
		{"created_at", localized{"he": "תאריך", "en": "Created"}},
	}
)

func columnsFor(c Collection, locale string) []Column {
	var defs []struct {
		key    string
		labels localized
	}
	switch c {
	case CollectionRegistrations:
		defs = registrationColumns
	case CollectionDonations:
		defs = donationColumns
	case CollectionAnalytics:
		defs = analyticsColumns
	}
	cols := make([]Column, len(defs))
	for i, d := range defs {
		cols[i] = Column{Key: d.key, Label: ResolveLocalizedValue(d.labels, locale, d.key)}
	}
	return cols
}

func newTable(c Collection, opts ViewOptions, total int) TableView {
	return TableView{
		Collection: c,
		Title:      c.Label(opts.Locale),
		Columns:    columnsFor(c, opts.Locale),
		Total:      total,
	}
}

// RegistrationsTable projects registrations into a table view.
func RegistrationsTable(items []Registration, opts ViewOptions) TableView {
	view := newTable(CollectionRegistrations, opts, len(items))
	if len(items) == 0 {
		view.Empty = emptyStateFor(CollectionRegistrations, opts.Locale)
		return view
	}
	view.Rows = make([]Row, 0, len(items))
	for _, r := range items {
		status := r.Status
		if status == "" {
			status = RegistrationPendingBeta
		}
		view.Rows = append(view.Rows, Row{
			ID: r.ID,
			Cells: []Cell{
				{Text: r.ID.String()},
				{Text: r.Name},
				{Text: r.Email, Link: linkOrEmpty("mailto:", r.Email)},
				{Text: r.Phone, Link: linkOrEmpty("tel:", r.Phone)},
				{Text: r.Source.Label(opts.Locale)},
				{Text: StudyLevelDisplay(r.Notes, opts.Locale), Title: r.Notes},
				{Text: opts.Formatter.Date(r.CreatedAt)},
				{Text: status.Label(opts.Locale), Badge: status.BadgeClass()},
			},
			Actions: rowActions(r.ID, opts.Locale),
		})
	}
	view.Shown = len(view.Rows)
	return view
}

// DonationsTable projects donations into a table view.
func DonationsTable(items []Donation, opts ViewOptions) TableView {
	view := newTable(CollectionDonations, opts, len(items))
	if len(items) == 0 {
		view.Empty = emptyStateFor(CollectionDonations, opts.Locale)
		return view
	}
	noMessage := opts.label(localized{"he": "ללא הודעה", "en": "No message"}, "-")
	view.Rows = make([]Row, 0, len(items))
	for _, d := range items {
		status := d.Status
		if status == "" {
			status = DonationPending
		}
		msg := d.Message
		if msg == "" {
			msg = noMessage
		}
		view.Rows = append(view.Rows, Row{
			ID: d.ID,
			Cells: []Cell{
				{Text: d.ID.String()},
				{Text: d.DonorName},
				{Text: opts.Formatter.Amount(d.Amount.Float())},
				{Text: dashIfEmpty(d.DonorEmail), Link: linkOrEmpty("mailto:", d.DonorEmail)},
				{Text: dashIfEmpty(d.DonorPhone), Link: linkOrEmpty("tel:", d.DonorPhone)},
				{Text: msg, Title: msg},
				{Text: opts.Formatter.Date(d.CreatedAt)},
				{Text: status.Label(opts.Locale), Badge: status.BadgeClass()},
			},
			Actions: rowActions(d.ID, opts.Locale),
		})
	}
	view.Shown = len(view.Rows)
	return view
}

// AnalyticsTable projects analytics events. Only the first
// AnalyticsRowLimit events are rendered; the rest stay in memory.
func AnalyticsTable(items []AnalyticsEvent, opts ViewOptions) TableView {
	view := newTable(CollectionAnalytics, opts, len(items))
	if len(items) == 0 {
		view.Empty = emptyStateFor(CollectionAnalytics, opts.Locale)
		return view
	}
	limit := opts.AnalyticsRowLimit
	if limit <= 0 {
		limit = DefaultAnalyticsRowLimit
	}
	shown := items[:min(limit, len(items))]
	view.Rows = make([]Row, 0, len(shown))
	for _, e := range shown {
		view.Rows = append(view.Rows, Row{
			ID: e.ID,
			Cells: []Cell{
				{Text: e.ID.String()},
				{Text: e.SessionID},
				{Text: e.Category},
				{Text: e.Action},
				{Text: dashIfEmpty(e.Label)},
				{Text: dashIfEmpty(valueText(e.Value))},
				{Text: dashIfEmpty(e.URL), Title: e.URL},
				{Text: dashIfEmpty(e.IPAddress)},
				{Text: opts.Formatter.Date(e.CreatedAt)},
			},
		})
	}
	view.Shown = len(view.Rows)
	return view
}

var studyLevelPattern = regexp.MustCompile(`רמת לימוד:\s*([^,\n]+)`)

// StudyLevelDisplay renders the study-level cell. A recognized level shows
// its label; a "רמת לימוד: X" marker shows X; other notes are shortened.
func StudyLevelDisplay(notes, locale string) string {
	if notes == "" {
		return "-"
	}
	if level := ClassifyStudyLevel(notes); level != StudyLevelNone {
		return level.Label(locale)
	}
	if m := studyLevelPattern.FindStringSubmatch(notes); m != nil {
		return strings.TrimSpace(m[1])
	}
	return Truncate(notes, 30)
}

// Render projects a collection from the current state.
func (c *Console) Render(collection Collection) (TableView, error) {
	return c.Filter(collection, Criteria{})
}

func (c *Console) viewOptions() ViewOptions {
	return ViewOptions{
		Locale:            c.opts.Locale,
		Formatter:         NewFormatter(c.opts.Locale, c.opts.Location),
		AnalyticsRowLimit: c.opts.AnalyticsRowLimit,
	}
}

func linkOrEmpty(scheme, value string) string {
	if value == "" {
		return ""
	}
	return scheme + value
}

func dashIfEmpty(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func valueText(v any) string {
	switch typed := v.(type) {
	case nil:
		return ""
	case string:
		return typed
	case float64:
		if typed == 0 {
			return ""
		}
		return fmt.Sprintf("%g", typed)
	default:
		return fmt.Sprint(typed)
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
