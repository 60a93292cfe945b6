package console

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestChartCacheReusesWithinTTL(t *testing.T) {
	cache := NewChartCache(time.Minute)
	now := time.Date(2024, 5, 14, 0, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }
	calls := 0
	render := func() (string, error) {
		calls++
		return "<div>chart</div>", nil
	}

	for i := 0; i < 3; i++ {
		if _, err := cache.GetOrRender("k", render); err != nil {
			t.Fatalf("GetOrRender returned error: %v", err)
		}
	}
	if calls != 1 {
		t.Fatalf("expected one render, got %d", calls)
	}

	now = now.Add(2 * time.Minute)
	if _, err := cache.GetOrRender("k", render); err != nil {
		t.Fatalf("GetOrRender returned error: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected expiry to re-render, got %d calls", calls)
	}
}

func TestChartCacheDoesNotStoreErrors(t *testing.T) {
	cache := NewChartCache(time.Minute)
	if _, err := cache.GetOrRender("k", func() (string, error) { return "", errors.New("boom") }); err == nil {
		t.Fatalf("expected render error")
	}
	if cache.Len() != 0 {
		t.Fatalf("failed render must not be cached")
	}
}

func TestRenderChartsProducesMarkup(t *testing.T) {
	snap := Snapshot{
		Registrations: sampleRegistrations(),
		Donations:     sampleDonations(),
		Stats:         Stats{StudyLevels: StudyLevelBreakdown{Beginner: 2, Advanced: 1}},
	}
	out, err := RenderCharts(snap, LocaleEnglish, ChartOptions{Cache: NewChartCache(time.Minute)})
	if err != nil {
		t.Fatalf("RenderCharts returned error: %v", err)
	}
	for name, html := range map[string]string{"levels": out.StudyLevels, "donations": out.DonationStatuses, "sources": out.Sources} {
		if !strings.Contains(html, "echarts") {
			t.Fatalf("%s chart missing echarts markup", name)
		}
	}
}

func TestChartPoints(t *testing.T) {
	levels := StudyLevelPoints(StudyLevelBreakdown{Beginner: 2, Advanced: 1}, LocaleEnglish)
	if len(levels) != 2 || levels[0].Value != 2 {
		t.Fatalf("unexpected study level points %#v", levels)
	}
	statuses := DonationStatusPoints(append(sampleDonations(), Donation{Status: "refunded"}), LocaleEnglish)
	if len(statuses) != 4 || statuses[1].Value != 2 || statuses[3].Label != "refunded" {
		t.Fatalf("unexpected donation points %#v", statuses)
	}
	sources := SourcePoints(sampleRegistrations(), LocaleEnglish)
	if len(sources) != 2 || sources[1].Value != 2 {
		t.Fatalf("unexpected source points %#v", sources)
	}
}
