package console

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// LoadReport summarizes one synchronization pass.
type LoadReport struct {
	Seq            uint64               `json:"seq"`
	Failed         []Collection         `json:"failed,omitempty"`
	Stale          []Collection         `json:"stale,omitempty"`
	SettingsOrigin SettingsOrigin       `json:"settings_origin"`
	RefreshedAt    time.Time            `json:"refreshed_at"`
	Cancelled      bool                 `json:"cancelled,omitempty"`
	Errors         map[Collection]error `json:"-"`

	cause error
}

// OK reports whether every collection was fetched from the server.
func (r LoadReport) OK() bool {
	return !r.Cancelled && len(r.Failed) == 0 && r.SettingsOrigin == SettingsFromServer
}

// Err joins the per-collection errors in load order.
func (r LoadReport) Err() error {
	var errs []error
	if r.cause != nil {
		errs = append(errs, fmt.Errorf("load cancelled: %w", r.cause))
	}
	for _, c := range Collections() {
		if err := r.Errors[c]; err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", c, err))
		}
	}
	return errors.Join(errs...)
}

func (r *LoadReport) fail(c Collection, err error) {
	r.Errors[c] = err
	if c != CollectionSettings {
		r.Failed = append(r.Failed, c)
	}
}

// LoadAll fetches the four collections concurrently and applies each result
// independently. A failed collection becomes empty; settings fall back to the
// local backup and then to defaults. One notification summarizes the pass.
// A pass whose context ends before the fetches settle applies nothing.
func (c *Console) LoadAll(ctx context.Context) LoadReport {
	seq := c.state.Begin()
	report := LoadReport{Seq: seq, Errors: make(map[Collection]error)}

	var (
		regs        []Registration
		dons        []Donation
		events      []AnalyticsEvent
		settings    Settings
		regsErr     error
		donsErr     error
		eventsErr   error
		settingsErr error
	)
	var g errgroup.Group
	g.Go(func() error {
		regs, regsErr = c.opts.API.FetchRegistrations(ctx)
		return regsErr
	})
	g.Go(func() error {
		dons, donsErr = c.opts.API.FetchDonations(ctx)
		return donsErr
	})
	g.Go(func() error {
		events, eventsErr = c.opts.API.FetchAnalytics(ctx)
		return eventsErr
	})
	g.Go(func() error {
		settings, settingsErr = c.opts.API.FetchSettings(ctx)
		return settingsErr
	})
	// Every branch records its own error; Wait only joins the goroutines.
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		report.Cancelled = true
		report.cause = err
		c.log(ctx, "console.load.cancelled", map[string]any{"seq": seq, "error": err.Error()})
		return report
	}

	if regsErr != nil {
		report.fail(CollectionRegistrations, regsErr)
		regs = nil
	}
	if !c.state.ApplyRegistrations(seq, regs) {
		report.Stale = append(report.Stale, CollectionRegistrations)
	}
	if donsErr != nil {
		report.fail(CollectionDonations, donsErr)
		dons = nil
	}
	if !c.state.ApplyDonations(seq, dons) {
		report.Stale = append(report.Stale, CollectionDonations)
	}
	if eventsErr != nil {
		report.fail(CollectionAnalytics, eventsErr)
		events = nil
	}
	if !c.state.ApplyAnalytics(seq, events) {
		report.Stale = append(report.Stale, CollectionAnalytics)
	}
	if settingsErr != nil {
		report.fail(CollectionSettings, settingsErr)
	}
	resolved, origin := c.resolveSettings(ctx, settings, settingsErr)
	report.SettingsOrigin = origin
	if !c.state.ApplySettings(seq, resolved, origin) {
		report.Stale = append(report.Stale, CollectionSettings)
	}

	report.RefreshedAt = c.now()
	c.state.markRefreshed(report.RefreshedAt)
	stats := c.RecomputeStats(ctx)
	c.announceLoad(ctx, report)
	c.publish(ctx, Event{Type: EventDataRefreshed, Failed: report.Failed, Stats: &stats})
	c.log(ctx, "console.load", map[string]any{
		"seq":             seq,
		"failed":          collectionNames(report.Failed),
		"stale":           collectionNames(report.Stale),
		"settings_origin": string(origin),
		"registrations":   stats.TotalRegistrations,
	})
	return report
}

func (c *Console) resolveSettings(ctx context.Context, fetched Settings, err error) (Settings, SettingsOrigin) {
	if err == nil {
		if fetched == nil {
			fetched = Settings{}
		}
		if werr := c.writeSettingsBackup(ctx, fetched); werr != nil {
			c.log(ctx, "console.settings.backup_error", map[string]any{"error": werr.Error()})
		}
		return fetched, SettingsFromServer
	}
	if backup, ok := c.readSettingsBackup(ctx); ok {
		return backup, SettingsFromBackup
	}
	return DefaultSettings(), SettingsFromDefaults
}

func (c *Console) announceLoad(ctx context.Context, report LoadReport) {
	switch {
	case len(report.Failed) > 0:
		labels := make([]string, len(report.Failed))
		for i, col := range report.Failed {
			labels[i] = col.Label(c.opts.Locale)
		}
		c.notify(ctx, NotificationError, msgLoadFailed, strings.Join(labels, ", "))
	case report.SettingsOrigin == SettingsFromBackup:
		c.notify(ctx, NotificationWarning, msgSettingsFromBackup)
	case report.SettingsOrigin == SettingsFromDefaults:
		c.notify(ctx, NotificationWarning, msgSettingsDefaults)
	default:
		c.notify(ctx, NotificationSuccess, msgLoadSuccess)
	}
}

// Reload refreshes a single collection, applying the same fallback rules as
// LoadAll. Nothing is applied once ctx is done.
func (c *Console) Reload(ctx context.Context, collection Collection) error {
	seq := c.state.Begin()
	var (
		apply func()
		err   error
	)
	switch collection {
	case CollectionRegistrations:
		var items []Registration
		if items, err = c.opts.API.FetchRegistrations(ctx); err != nil {
			items = nil
		}
		apply = func() { c.state.ApplyRegistrations(seq, items) }
	case CollectionDonations:
		var items []Donation
		if items, err = c.opts.API.FetchDonations(ctx); err != nil {
			items = nil
		}
		apply = func() { c.state.ApplyDonations(seq, items) }
	case CollectionAnalytics:
		var items []AnalyticsEvent
		if items, err = c.opts.API.FetchAnalytics(ctx); err != nil {
			items = nil
		}
		apply = func() { c.state.ApplyAnalytics(seq, items) }
	case CollectionSettings:
		var fetched Settings
		fetched, err = c.opts.API.FetchSettings(ctx)
		apply = func() {
			resolved, origin := c.resolveSettings(ctx, fetched, err)
			c.state.ApplySettings(seq, resolved, origin)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCollection, collection)
	}
	if cerr := ctx.Err(); cerr != nil {
		return fmt.Errorf("console: reload %s cancelled: %w", collection, cerr)
	}
	apply()
	c.state.markRefreshed(c.now())
	stats := c.RecomputeStats(ctx)
	if err != nil {
		c.notify(ctx, NotificationError, msgLoadFailed, collection.Label(c.opts.Locale))
	} else {
		c.notify(ctx, NotificationSuccess, msgLoadSuccess)
	}
	c.publish(ctx, Event{Type: EventDataRefreshed, Collection: collection, Stats: &stats})
	if err != nil {
		return fmt.Errorf("console: reload %s: %w", collection, err)
	}
	return nil
}

func collectionNames(cols []Collection) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = string(c)
	}
	return out
}
