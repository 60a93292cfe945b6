package console

import (
	"bytes"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"sync"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
)

const (
	defaultChartHeight = "320px"
	DefaultChartTTL    = time.Minute
)

// ChartCache memoizes rendered chart markup keyed by the chart data.
type ChartCache struct {
	ttl     time.Duration
	now     func() time.Time
	mu      sync.Mutex
	entries map[string]cachedChart
}

type cachedChart struct {
	html    string
	expires time.Time
}

// NewChartCache builds a cache. A non-positive ttl disables caching.
func NewChartCache(ttl time.Duration) *ChartCache {
	return &ChartCache{ttl: ttl, now: time.Now, entries: make(map[string]cachedChart)}
}

// GetOrRender returns the cached markup or renders and stores it.
func (c *ChartCache) GetOrRender(key string, render func() (string, error)) (string, error) {
	if c == nil || c.ttl <= 0 {
		return render()
	}
	c.mu.Lock()
	entry, ok := c.entries[key]
	if ok && c.now().Before(entry.expires) {
		c.mu.Unlock()
		return entry.html, nil
	}
	delete(c.entries, key)
	c.mu.Unlock()

	html, err := render()
	if err != nil {
		return "", err
	}
	c.mu.Lock()
	c.entries[key] = cachedChart{html: html, expires: c.now().Add(c.ttl)}
	c.mu.Unlock()
	return html, nil
}

// Len returns the number of cached entries, expired ones included.
func (c *ChartCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func dataHash(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "invalid"
	}
	sum := sha1.Sum(b)
	return hex.EncodeToString(sum[:])
}

// ChartPoint is one labelled value.
type ChartPoint struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// Charts holds rendered chart markup for the dashboard overview.
type Charts struct {
	StudyLevels      string `json:"study_levels"`
	DonationStatuses string `json:"donation_statuses"`
	Sources          string `json:"sources"`
}

// ChartOptions configures chart rendering.
type ChartOptions struct {
	Theme      string
	AssetsHost string
	Cache      *ChartCache
}

// StudyLevelPoints turns the breakdown into pie slices, skipping empty ones.
func StudyLevelPoints(b StudyLevelBreakdown, locale string) []ChartPoint {
	counts := []struct {
		level StudyLevel
		n     int
	}{
		{StudyLevelBeginner, b.Beginner},
		{StudyLevelIntermediate, b.Intermediate},
		{StudyLevelAdvanced, b.Advanced},
	}
	out := make([]ChartPoint, 0, len(counts))
	for _, c := range counts {
		if c.n > 0 {
			out = append(out, ChartPoint{Label: c.level.Label(locale), Value: float64(c.n)})
		}
	}
	return out
}

// DonationStatusPoints counts donations per status in cycle order. Unknown
// statuses follow in first-seen order.
func DonationStatusPoints(items []Donation, locale string) []ChartPoint {
	counts := map[DonationStatus]int{}
	var extra []DonationStatus
	for _, d := range items {
		if _, ok := counts[d.Status]; !ok && !slices.Contains(DonationStatuses, d.Status) {
			extra = append(extra, d.Status)
		}
		counts[d.Status]++
	}
	out := make([]ChartPoint, 0, len(DonationStatuses)+len(extra))
	for _, s := range append(append([]DonationStatus{}, DonationStatuses...), extra...) {
		out = append(out, ChartPoint{Label: s.Label(locale), Value: float64(counts[s])})
	}
	return out
}

// SourcePoints counts registrations per source in first-seen order.
func SourcePoints(items []Registration, locale string) []ChartPoint {
	counts := map[Source]int{}
	var order []Source
	for _, r := range items {
		if _, ok := counts[r.Source]; !ok {
			order = append(order, r.Source)
		}
		counts[r.Source]++
	}
	out := make([]ChartPoint, len(order))
	for i, s := range order {
		out[i] = ChartPoint{Label: s.Label(locale), Value: float64(counts[s])}
	}
	return out
}

// RenderCharts renders the overview charts for a snapshot.
func RenderCharts(snap Snapshot, locale string, o ChartOptions) (Charts, error) {
	if o.Theme == "" {
		o.Theme = types.ThemeWesteros
	}
	levels := StudyLevelPoints(snap.Stats.StudyLevels, locale)
	statuses := DonationStatusPoints(snap.Donations, locale)
	sources := SourcePoints(snap.Registrations, locale)

	var out Charts
	var err error
	title := func(values localized) string { return ResolveLocalizedValue(values, locale, "") }

	if out.StudyLevels, err = o.cached("pie:levels", levels, func() (string, error) {
		return renderPie(title(localized{"he": "רמות לימוד", "en": "Study levels"}), levels, o)
	}); err != nil {
		return Charts{}, fmt.Errorf("console: render study levels chart: %w", err)
	}
	if out.DonationStatuses, err = o.cached("bar:donations", statuses, func() (string, error) {
		return renderBar(title(localized{"he": "תרומות לפי סטטוס", "en": "Donations by status"}), statuses, o)
	}); err != nil {
		return Charts{}, fmt.Errorf("console: render donations chart: %w", err)
	}
	if out.Sources, err = o.cached("pie:sources", sources, func() (string, error) {
		return renderPie(title(localized{"he": "מקורות הרשמה", "en": "Registration sources"}), sources, o)
	}); err != nil {
		return Charts{}, fmt.Errorf("console: render sources chart: %w", err)
	}
	return out, nil
}

func (o ChartOptions) cached(kind string, points []ChartPoint, render func() (string, error)) (string, error) {
	if o.Cache == nil {
		return render()
	}
	return o.Cache.GetOrRender(kind+":"+o.Theme+":"+dataHash(points), render)
}

func renderPie(title string, points []ChartPoint, o ChartOptions) (string, error) {
	pie := charts.NewPie()
	pie.SetGlobalOptions(globalChartOptions(title, o)...)
	data := make([]opts.PieData, len(points))
	for i, p := range points {
		data[i] = opts.PieData{Name: p.Label, Value: p.Value}
	}
	pie.AddSeries(title, data)
	return renderChart(pie)
}

func renderBar(title string, points []ChartPoint, o ChartOptions) (string, error) {
	bar := charts.NewBar()
	bar.SetGlobalOptions(globalChartOptions(title, o)...)
	labels := make([]string, len(points))
	data := make([]opts.BarData, len(points))
	for i, p := range points {
		labels[i] = p.Label
		data[i] = opts.BarData{Name: p.Label, Value: p.Value}
	}
	bar.SetXAxis(labels)
	bar.AddSeries(title, data)
	return renderChart(bar)
}

func globalChartOptions(title string, o ChartOptions) []charts.GlobalOpts {
	initOpts := opts.Initialization{Theme: o.Theme, Width: "100%", Height: defaultChartHeight}
	if o.AssetsHost != "" {
		initOpts.AssetsHost = o.AssetsHost
	}
	return []charts.GlobalOpts{
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithInitializationOpts(initOpts),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	}
}

func renderChart(renderable interface{ Render(io.Writer) error }) (string, error) {
	var buf bytes.Buffer
	if err := renderable.Render(&buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
