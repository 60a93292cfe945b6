package console

import (
	"context"
	"time"
)

// DefaultVisitorsFloor is the minimum "today's visitors" value shown when no
// reset is active.
const DefaultVisitorsFloor = 15

// Stats are the headline counters derived from in-memory collections.
type Stats struct {
	TotalRegistrations int                 `json:"total_registrations"`
	CompletedAmount    float64             `json:"completed_donations_amount"`
	CompletedCount     int                 `json:"completed_donations_count"`
	TodayEvents        int                 `json:"today_events"`
	TodayVisitors      int                 `json:"today_visitors"`
	VisitorsReset      bool                `json:"visitors_reset"`
	StudyLevels        StudyLevelBreakdown `json:"study_levels"`
	ComputedAt         time.Time           `json:"computed_at"`
}

// StudyLevelBreakdown counts registrations per classified study level.
type StudyLevelBreakdown struct {
	Beginner     int `json:"beginner"`
	Intermediate int `json:"intermediate"`
	Advanced     int `json:"advanced"`
	Unknown      int `json:"unknown"`
}

// VisitorsReset is the persisted same-day reset marker.
type VisitorsReset struct {
	Date    string
	Applied bool
}

// ActiveOn reports whether the reset applies to day (YYYY-MM-DD).
func (r VisitorsReset) ActiveOn(day string) bool {
	return r.Applied && r.Date == day
}

// StatsInput carries everything ComputeStats reads.
type StatsInput struct {
	Registrations []Registration
	Donations     []Donation
	Analytics     []AnalyticsEvent
	Now           time.Time
	Location      *time.Location
	VisitorsFloor int
	Reset         VisitorsReset
}

// ComputeStats derives Stats without any I/O.
func ComputeStats(in StatsInput) Stats {
	loc := in.Location
	if loc == nil {
		loc = time.Local
	}
	now := in.Now.In(loc)
	today := now.Format(time.DateOnly)

	stats := Stats{
		TotalRegistrations: len(in.Registrations),
		ComputedAt:         in.Now,
	}
	for _, d := range in.Donations {
		if d.Status == DonationCompleted {
			stats.CompletedAmount += d.Amount.Float()
			stats.CompletedCount++
		}
	}
	for _, e := range in.Analytics {
		if sameDay(e.CreatedAt, today, loc) {
			stats.TodayEvents++
		}
	}
	stats.TodayVisitors = max(stats.TodayEvents, in.VisitorsFloor)
	if in.Reset.ActiveOn(today) {
		stats.TodayVisitors = 0
		stats.VisitorsReset = true
	}
	for _, r := range in.Registrations {
		switch ClassifyStudyLevel(r.Notes) {
		case StudyLevelBeginner:
			stats.StudyLevels.Beginner++
		case StudyLevelIntermediate:
			stats.StudyLevels.Intermediate++
		case StudyLevelAdvanced:
			stats.StudyLevels.Advanced++
		default:
			stats.StudyLevels.Unknown++
		}
	}
	return stats
}

func sameDay(timestamp, day string, loc *time.Location) bool {
	t, ok := ParseTimestamp(timestamp, loc)
	if !ok {
		return false
	}
	return t.In(loc).Format(time.DateOnly) == day
}

// RecomputeStats refreshes the cached counters from the current state.
func (c *Console) RecomputeStats(ctx context.Context) Stats {
	snap := c.state.Snapshot()
	stats := ComputeStats(StatsInput{
		Registrations: snap.Registrations,
		Donations:     snap.Donations,
		Analytics:     snap.Analytics,
		Now:           c.now(),
		Location:      c.opts.Location,
		VisitorsFloor: c.opts.VisitorsFloor,
		Reset:         c.visitorsReset(ctx),
	})
	c.state.setStats(stats)
	return stats
}

// Stats returns the most recently computed counters.
func (c *Console) Stats() Stats {
	return c.state.Snapshot().Stats
}

func (c *Console) visitorsReset(ctx context.Context) VisitorsReset {
	date, _, err := c.opts.LocalStore.Get(ctx, KeyVisitorsResetDate)
	if err != nil {
		c.log(ctx, "console.local_store.error", map[string]any{"key": KeyVisitorsResetDate, "error": err.Error()})
		return VisitorsReset{}
	}
	flag, _, err := c.opts.LocalStore.Get(ctx, KeyVisitorsResetFlag)
	if err != nil {
		c.log(ctx, "console.local_store.error", map[string]any{"key": KeyVisitorsResetFlag, "error": err.Error()})
		return VisitorsReset{}
	}
	return VisitorsReset{Date: date, Applied: flag == "true"}
}
