package console

import (
	"fmt"
	"strings"
)

// Criteria are the optional, ANDed filter predicates. An empty field does
// not constrain.
type Criteria struct {
	Status string `json:"status,omitempty" query:"status"`
	Source string `json:"source,omitempty" query:"source"`
	Text   string `json:"text,omitempty" query:"q"`
}

// IsZero reports whether no predicate is set.
func (c Criteria) IsZero() bool {
	return c.Status == "" && c.Source == "" && c.Text == ""
}

func (c Criteria) normalized() Criteria {
	return Criteria{
		Status: strings.TrimSpace(c.Status),
		Source: strings.TrimSpace(c.Source),
		Text:   strings.TrimSpace(c.Text),
	}
}

func (c Criteria) matches(status, source, text string) bool {
	if c.Status != "" && status != c.Status {
		return false
	}
	if c.Source != "" && source != c.Source {
		return false
	}
	if c.Text != "" && !strings.Contains(strings.ToLower(text), strings.ToLower(c.Text)) {
		return false
	}
	return true
}

// FilterRegistrations keeps registrations matching every predicate, in order.
// Text is matched against notes.
func FilterRegistrations(items []Registration, crit Criteria) []Registration {
	crit = crit.normalized()
	out := make([]Registration, 0, len(items))
	for _, r := range items {
		if crit.matches(string(r.Status), string(r.Source), r.Notes) {
			out = append(out, r)
		}
	}
	return out
}

// FilterDonations keeps donations matching every predicate, in order. Text is
// matched against the donor message.
func FilterDonations(items []Donation, crit Criteria) []Donation {
	crit = crit.normalized()
	out := make([]Donation, 0, len(items))
	for _, d := range items {
		if crit.matches(string(d.Status), string(d.Source), d.Message) {
			out = append(out, d)
		}
	}
	return out
}

// FilterAnalytics keeps events whose label contains Text. Events carry no
// status or source, so setting either predicate matches nothing.
func FilterAnalytics(items []AnalyticsEvent, crit Criteria) []AnalyticsEvent {
	crit = crit.normalized()
	out := make([]AnalyticsEvent, 0, len(items))
	for _, e := range items {
		if crit.matches("", "", e.Label) {
			out = append(out, e)
		}
	}
	return out
}

// Filter re-derives a table from the full in-memory collection. It never
// changes state, and empty criteria yield the unfiltered table.
func (c *Console) Filter(collection Collection, crit Criteria) (TableView, error) {
	snap := c.state.Snapshot()
	opts := c.viewOptions()
	filtered := !crit.normalized().IsZero()
	var view TableView
	switch collection {
	case CollectionRegistrations:
		items := snap.Registrations
		if filtered {
			items = FilterRegistrations(items, crit)
		}
		view = RegistrationsTable(items, opts)
	case CollectionDonations:
		items := snap.Donations
		if filtered {
			items = FilterDonations(items, crit)
		}
		view = DonationsTable(items, opts)
	case CollectionAnalytics:
		items := snap.Analytics
		if filtered {
			items = FilterAnalytics(items, crit)
		}
		view = AnalyticsTable(items, opts)
	default:
		return TableView{}, fmt.Errorf("%w: %q has no table view", ErrUnknownCollection, collection)
	}
	view.Filtered = filtered
	return view, nil
}
