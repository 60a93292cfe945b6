package console

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Renderer describes the template renderer contract needed by the controller.
type Renderer interface {
	Render(name string, data any, out ...io.Writer) (string, error)
}

// Option is a select entry.
type Option struct {
	Value    string `json:"value"`
	Label    string `json:"label"`
	Selected bool   `json:"selected,omitempty"`
}

// SectionLink is a navigation tab.
type SectionLink struct {
	Collection Collection `json:"collection"`
	Label      string     `json:"label"`
	Active     bool       `json:"active,omitempty"`
}

// StatCard is one headline number.
type StatCard struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Value string `json:"value"`
}

// Page is everything the dashboard template needs.
type Page struct {
	Title         string        `json:"title"`
	Locale        string        `json:"locale"`
	Dir           string        `json:"dir"`
	BasePath      string        `json:"base_path"`
	Section       Collection    `json:"section"`
	Sections      []SectionLink `json:"sections"`
	Criteria      Criteria      `json:"criteria"`
	StatusOptions []Option      `json:"status_options,omitempty"`
	SourceOptions []Option      `json:"source_options,omitempty"`
	Table         *TableView    `json:"table,omitempty"`
	Settings      *SettingsForm `json:"settings,omitempty"`
	Stats         []StatCard    `json:"stats"`
	Charts        Charts        `json:"charts"`
	Notification  *Notification `json:"notification,omitempty"`
	LastRefreshed string        `json:"last_refreshed"`
}

// Controller turns console state into rendered pages.
type Controller struct {
	console       *Console
	renderer      Renderer
	notifications *NotificationCenter
	charts        ChartOptions
	basePath      string
}

// ControllerOptions configures a Controller.
type ControllerOptions struct {
	Renderer      Renderer
	Notifications *NotificationCenter
	Charts        ChartOptions
	BasePath      string
}

// NewController wires the console into a controller.
func NewController(console *Console, opts ControllerOptions) *Controller {
	if opts.Charts.Cache == nil {
		opts.Charts.Cache = NewChartCache(DefaultChartTTL)
	}
	return &Controller{
		console:       console,
		renderer:      opts.Renderer,
		notifications: opts.Notifications,
		charts:        opts.Charts,
		basePath:      strings.TrimRight(opts.BasePath, "/"),
	}
}

// Console returns the wrapped console.
func (c *Controller) Console() *Console { return c.console }

// Page builds the dashboard for a section. Sections other than settings are
// filtered with crit.
func (c *Controller) Page(section Collection, crit Criteria) (Page, error) {
	locale := c.console.Locale()
	snap := c.console.Snapshot()
	page := Page{
		Title:    ResolveLocalizedValue(localized{"he": "ממשק ניהול - גמרא אפ", "en": "GmarUp admin"}, locale, ""),
		Locale:   locale,
		Dir:      textDirection(locale),
		BasePath: c.basePath,
		Section:  section,
		Criteria: crit,
		Stats:    StatCards(snap.Stats, NewFormatter(locale, c.console.Location()), locale),
	}
	for _, col := range Collections() {
		page.Sections = append(page.Sections, SectionLink{Collection: col, Label: col.Label(locale), Active: col == section})
	}
	if section == CollectionSettings {
		form := BuildSettingsForm(snap.Settings, snap.SettingsOrigin, locale)
		page.Settings = &form
	} else {
		view, err := c.console.Filter(section, crit)
		if err != nil {
			return Page{}, err
		}
		page.Table = &view
		page.StatusOptions, page.SourceOptions = filterOptions(section, crit, locale)
	}
	charts, err := RenderCharts(snap, locale, c.charts)
	if err != nil {
		return Page{}, err
	}
	page.Charts = charts
	if c.notifications != nil {
		if note, ok := c.notifications.Current(); ok {
			page.Notification = &note
		}
	}
	if !snap.LastRefreshed.IsZero() {
		page.LastRefreshed = snap.LastRefreshed.In(c.console.Location()).Format("15:04:05")
	}
	return page, nil
}

// RenderDashboard writes the dashboard HTML for a section.
func (c *Controller) RenderDashboard(ctx context.Context, w io.Writer, section Collection, crit Criteria) error {
	page, err := c.Page(section, crit)
	if err != nil {
		return err
	}
	return c.render(ctx, "dashboard", page, w)
}

// RenderLogin writes the login form. failed shows the wrong-password hint.
func (c *Controller) RenderLogin(ctx context.Context, w io.Writer, failed bool) error {
	locale := c.console.Locale()
	page := Page{
		Title:    ResolveLocalizedValue(localized{"he": "כניסה לממשק ניהול", "en": "Admin sign in"}, locale, ""),
		Locale:   locale,
		Dir:      textDirection(locale),
		BasePath: c.basePath,
	}
	if failed {
		page.Notification = &Notification{Level: NotificationError, Message: message(locale, msgLoginFailed)}
	}
	return c.render(ctx, "login", page, w)
}

func (c *Controller) render(ctx context.Context, name string, page Page, w io.Writer) error {
	if c.renderer == nil {
		return fmt.Errorf("console: no renderer configured")
	}
	data, err := templateData(page)
	if err != nil {
		return fmt.Errorf("console: prepare %s: %w", name, err)
	}
	if _, err := c.renderer.Render(name, map[string]any{"page": data}, w); err != nil {
		c.console.log(ctx, "console.render.error", map[string]any{"template": name, "error": err.Error()})
		return fmt.Errorf("console: render %s: %w", name, err)
	}
	return nil
}

// templateData exposes the page to templates under its JSON keys.
func templateData(page Page) (map[string]any, error) {
	raw, err := json.Marshal(page)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var out map[string]any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

// StatCards formats the headline numbers.
func StatCards(s Stats, f Formatter, locale string) []StatCard {
	label := func(values localized) string { return ResolveLocalizedValue(values, locale, "") }
	return []StatCard{
		{Key: "registrations", Label: label(localized{"he": "נרשמים לבטא", "en": "Beta signups"}), Value: f.Count(s.TotalRegistrations)},
		{Key: "donations", Label: label(localized{"he": "סה\"כ תרומות", "en": "Total donations"}), Value: f.Amount(s.CompletedAmount)},
		{Key: "donation_count", Label: label(localized{"he": "מספר תורמים", "en": "Donors"}), Value: f.Count(s.CompletedCount)},
		{Key: "visitors", Label: label(localized{"he": "מבקרים היום", "en": "Visitors today"}), Value: f.Count(s.TodayVisitors)},
	}
}

func filterOptions(section Collection, crit Criteria, locale string) (statuses, sources []Option) {
	switch section {
	case CollectionRegistrations:
		for _, s := range RegistrationStatuses {
			statuses = append(statuses, Option{Value: string(s), Label: s.Label(locale), Selected: crit.Status == string(s)})
		}
		for _, s := range []Source{SourceBetaLanding, SourceWhatsApp, SourceDirect, SourceGoogle, SourceFacebook, SourceOther} {
			sources = append(sources, Option{Value: string(s), Label: s.Label(locale), Selected: crit.Source == string(s)})
		}
	case CollectionDonations:
		for _, s := range DonationStatuses {
			statuses = append(statuses, Option{Value: string(s), Label: s.Label(locale), Selected: crit.Status == string(s)})
		}
	}
	return statuses, sources
}

func textDirection(locale string) string {
	if locale == "" || strings.HasPrefix(locale, LocaleHebrew) {
		return "rtl"
	}
	return "ltr"
}
