package console

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderEmptyCollections(t *testing.T) {
	f := newFixture(nil)
	for _, c := range []Collection{CollectionRegistrations, CollectionDonations, CollectionAnalytics} {
		view, err := f.console.Render(c)
		require.NoError(t, err)
		require.NotNil(t, view.Empty, "collection %s", c)
		assert.True(t, view.IsEmpty())
		assert.Empty(t, view.Rows)
		assert.NotEmpty(t, view.Empty.Title)
	}
	_, err := f.console.Render(CollectionSettings)
	assert.ErrorIs(t, err, ErrUnknownCollection)
}

func TestRenderRegistrationsRowsAndActions(t *testing.T) {
	f := loadedFixture(t)

	view, err := f.console.Render(CollectionRegistrations)
	require.NoError(t, err)

	require.Len(t, view.Rows, 3)
	assert.Nil(t, view.Empty)
	assert.Equal(t, len(view.Columns), len(view.Rows[0].Cells))
	for _, row := range view.Rows {
		require.Len(t, row.Actions, 2)
		assert.Equal(t, ActionEdit, row.Actions[0].Kind)
		assert.Equal(t, ActionDelete, row.Actions[1].Kind)
		assert.Equal(t, row.ID, row.Actions[0].RecordID)
	}
	assert.Equal(t, RecordID("1"), view.Rows[0].ID)
}

func TestRenderLabelsUseLookupWithPassthrough(t *testing.T) {
	opts := ViewOptions{Locale: LocaleHebrew, Formatter: NewFormatter(LocaleHebrew, testLocation), AnalyticsRowLimit: 50}
	view := RegistrationsTable([]Registration{
		{ID: "1", Status: RegistrationContacted, Source: SourceWhatsApp},
		{ID: "2", Status: "archived", Source: "newsletter"},
	}, opts)

	texts := func(row Row) []string {
		out := make([]string, len(row.Cells))
		for i, c := range row.Cells {
			out[i] = c.Text
		}
		return out
	}
	assert.Contains(t, texts(view.Rows[0]), "נוצר קשר")
	assert.Contains(t, texts(view.Rows[0]), "ווטסאפ")
	assert.Contains(t, texts(view.Rows[1]), "archived")
	assert.Contains(t, texts(view.Rows[1]), "newsletter")
}

func TestRenderAnalyticsCapsRowsWithoutActions(t *testing.T) {
	events := make([]AnalyticsEvent, 120)
	for i := range events {
		events[i] = AnalyticsEvent{ID: RecordID(fmt.Sprint(i)), Category: "scroll", Action: "depth", CreatedAt: "2024-05-14 08:00:00"}
	}
	view := AnalyticsTable(events, ViewOptions{Locale: LocaleHebrew, Formatter: NewFormatter(LocaleHebrew, testLocation), AnalyticsRowLimit: 50})

	assert.Len(t, view.Rows, 50)
	assert.Equal(t, 120, view.Total)
	assert.Equal(t, 50, view.Shown)
	assert.True(t, view.Truncated())
	for _, row := range view.Rows {
		assert.Empty(t, row.Actions)
	}
}

func TestStudyLevelDisplay(t *testing.T) {
	assert.Equal(t, "-", StudyLevelDisplay("", LocaleHebrew))
	assert.Equal(t, StudyLevelBeginner.Label(LocaleHebrew), StudyLevelDisplay("רמת לימוד: מתחיל, אישור דיוור: כן", LocaleHebrew))
	assert.Equal(t, "חברותא", StudyLevelDisplay("רמת לימוד: חברותא, אישור דיוור: לא", LocaleHebrew))
}

func TestFilterComposesPredicates(t *testing.T) {
	f := loadedFixture(t)

	view, err := f.console.Filter(CollectionRegistrations, Criteria{Status: "pending_beta", Source: "whatsapp"})
	require.NoError(t, err)
	require.Len(t, view.Rows, 1)
	assert.Equal(t, RecordID("3"), view.Rows[0].ID)
	assert.True(t, view.Filtered)

	view, err = f.console.Filter(CollectionRegistrations, Criteria{Text: "ADVANCED"})
	require.NoError(t, err)
	require.Len(t, view.Rows, 1)
	assert.Equal(t, RecordID("2"), view.Rows[0].ID)

	view, err = f.console.Filter(CollectionDonations, Criteria{Text: "תודה"})
	require.NoError(t, err)
	require.Len(t, view.Rows, 1)
	assert.Equal(t, RecordID("10"), view.Rows[0].ID)
}

func TestFilterEmptyCriteriaMatchesRender(t *testing.T) {
	f := loadedFixture(t)
	rendered, err := f.console.Render(CollectionDonations)
	require.NoError(t, err)
	filtered, err := f.console.Filter(CollectionDonations, Criteria{Status: "  "})
	require.NoError(t, err)
	assert.Equal(t, rendered, filtered)
}

func TestFilterPreservesOrderAndIsIdempotent(t *testing.T) {
	items := sampleRegistrations()
	crit := Criteria{Source: "whatsapp"}
	once := FilterRegistrations(items, crit)
	twice := FilterRegistrations(once, crit)
	require.Len(t, once, 2)
	assert.Equal(t, RecordID("2"), once[0].ID)
	assert.Equal(t, RecordID("3"), once[1].ID)
	assert.Equal(t, once, twice)
	assert.Len(t, items, 3, "filtering must not mutate the input")
}

func TestFilterAnalyticsStatusMatchesNothing(t *testing.T) {
	events := []AnalyticsEvent{{ID: "1", Label: "hero"}, {ID: "2", Label: "footer"}}
	assert.Empty(t, FilterAnalytics(events, Criteria{Status: "completed"}))
	assert.Len(t, FilterAnalytics(events, Criteria{Text: "her"}), 1)
}

func TestFilterDoesNotChangeState(t *testing.T) {
	f := loadedFixture(t)
	before := f.console.Snapshot()
	_, err := f.console.Filter(CollectionRegistrations, Criteria{Status: "failed"})
	require.NoError(t, err)
	assert.Equal(t, before.Registrations, f.console.Snapshot().Registrations)
}

func TestFormatter(t *testing.T) {
	f := NewFormatter(LocaleEnglish, testLocation)
	assert.Equal(t, "₪1,250.5", f.Amount(1250.5))
	assert.Equal(t, "14.05.2024, 09:00", f.Date("2024-05-14 09:00:00"))
	assert.Equal(t, "-", f.Date(""))
	assert.Equal(t, "yesterday-ish", f.Date("yesterday-ish"))
	assert.Equal(t, "abc...", Truncate("abcdef", 3))
}

func TestFormatterCountAndMessagesShareLocale(t *testing.T) {
	f := NewFormatter(LocaleEnglish, testLocation)
	assert.Equal(t, "1,234", f.Count(1234))
	assert.Equal(t, "Wrong password", message(LocaleEnglish, msgLoginFailed))
	assert.Equal(t, "Export of donations completed", message(LocaleEnglish, msgExportDone, "donations"))
}
