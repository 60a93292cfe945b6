package console

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadedFixture(t *testing.T, mutate ...func(*Options)) consoleFixture {
	t.Helper()
	api := &fakeAPI{
		registrations: sampleRegistrations(),
		donations:     sampleDonations(),
		analytics: []AnalyticsEvent{
			{ID: "1", Category: "page", Action: "view", Label: "hero", CreatedAt: "2024-05-14 08:00:00"},
			{ID: "2", Category: "page", Action: "view", Label: "footer", CreatedAt: "2024-05-13 08:00:00"},
		},
		settings: Settings{},
	}
	f := newFixture(api, mutate...)
	f.console.LoadAll(context.Background())
	return f
}

func TestNextStatusCycles(t *testing.T) {
	cases := []struct {
		kind    Collection
		current string
		want    string
	}{
		{CollectionRegistrations, "pending_beta", "contacted"},
		{CollectionRegistrations, "contacted", "completed"},
		{CollectionRegistrations, "completed", "failed"},
		{CollectionRegistrations, "failed", "pending_beta"},
		{CollectionRegistrations, "mystery", "pending_beta"},
		{CollectionDonations, "pending", "completed"},
		{CollectionDonations, "completed", "failed"},
		{CollectionDonations, "failed", "pending"},
		{CollectionDonations, "", "pending"},
	}
	for _, tc := range cases {
		if got := NextStatus(tc.kind, tc.current); got != tc.want {
			t.Fatalf("NextStatus(%s, %q) = %q, want %q", tc.kind, tc.current, got, tc.want)
		}
	}
}

func TestUpdateRegistrationAppliesAfterSuccess(t *testing.T) {
	f := loadedFixture(t)
	notes := "called back"

	err := f.console.Update(context.Background(), CollectionRegistrations, "1", Patch{Status: "contacted", Notes: &notes})
	require.NoError(t, err)

	require.Len(t, f.api.regUpdates, 1)
	sent := f.api.regUpdates[0]
	assert.Equal(t, RecordID("1"), sent.ID)
	assert.Equal(t, RegistrationContacted, sent.Status)
	require.NotNil(t, sent.Notes)
	assert.Equal(t, "called back", *sent.Notes)

	r, ok := f.console.State().Registration("1")
	require.True(t, ok)
	assert.Equal(t, RegistrationContacted, r.Status)
	assert.Equal(t, "called back", r.Notes)
	assert.Equal(t, "2024-05-14T09:00:00.000Z", r.UpdatedAt)
	assert.Equal(t, r.UpdatedAt, r.LastContacted)
	assert.Equal(t, NotificationSuccess, f.notifier.last().level)
	assert.Contains(t, f.events.types(), EventRecordUpdated)
}

func TestUpdateKeepsExistingNotesWhenOmitted(t *testing.T) {
	f := loadedFixture(t)

	require.NoError(t, f.console.Update(context.Background(), CollectionRegistrations, "2", Patch{Status: "completed"}))

	require.Len(t, f.api.regUpdates, 1)
	assert.Equal(t, "advanced learner", *f.api.regUpdates[0].Notes)
	r, _ := f.console.State().Registration("2")
	assert.Equal(t, "advanced learner", r.Notes)
}

func TestUpdateFailureLeavesStateUntouched(t *testing.T) {
	f := loadedFixture(t)
	before := f.console.Snapshot()
	f.api.mutateErr = errBackendDown

	err := f.console.Update(context.Background(), CollectionDonations, "11", Patch{Status: "completed"})

	require.ErrorIs(t, err, errBackendDown)
	after := f.console.Snapshot()
	assert.Equal(t, before.Donations, after.Donations)
	assert.Equal(t, before.Stats.CompletedAmount, after.Stats.CompletedAmount)
	assert.Equal(t, NotificationError, f.notifier.last().level)
}

func TestUpdateDonationCompletesAndRecomputesStats(t *testing.T) {
	f := loadedFixture(t)
	require.Equal(t, 136.0, f.console.Stats().CompletedAmount)

	require.NoError(t, f.console.Update(context.Background(), CollectionDonations, "11", Patch{Status: "completed"}))

	d, ok := f.console.State().Donation("11")
	require.True(t, ok)
	assert.Equal(t, DonationCompleted, d.Status)
	assert.NotEmpty(t, d.CompletedAt)
	assert.Equal(t, 186.0, f.console.Stats().CompletedAmount)
	assert.Equal(t, 3, f.console.Stats().CompletedCount)
}

func TestUpdateUnknownIDSendsNothing(t *testing.T) {
	f := loadedFixture(t)

	err := f.console.Update(context.Background(), CollectionRegistrations, "999", Patch{Status: "contacted"})

	assert.ErrorIs(t, err, ErrRecordNotFound)
	assert.Zero(t, f.api.requests())
}

func TestUpdateReadOnlyCollections(t *testing.T) {
	f := loadedFixture(t)
	assert.ErrorIs(t, f.console.Update(context.Background(), CollectionAnalytics, "1", Patch{}), ErrReadOnly)
	assert.ErrorIs(t, f.console.Delete(context.Background(), CollectionSettings, "1"), ErrReadOnly)
}

func TestDeleteRequiresConfirmation(t *testing.T) {
	f := loadedFixture(t, func(o *Options) { o.Confirmer = fixedConfirmer(false) })

	err := f.console.Delete(context.Background(), CollectionRegistrations, "1")

	assert.ErrorIs(t, err, ErrCancelled)
	assert.Zero(t, f.api.requests())
	assert.Len(t, f.console.Snapshot().Registrations, 3)
}

func TestDeleteRemovesAfterSuccess(t *testing.T) {
	f := loadedFixture(t)

	require.NoError(t, f.console.Delete(context.Background(), CollectionDonations, "10"))

	assert.Equal(t, []RecordID{"10"}, f.api.deleted)
	_, ok := f.console.State().Donation("10")
	assert.False(t, ok)
	assert.Equal(t, 36.0, f.console.Stats().CompletedAmount)
	assert.Contains(t, f.events.types(), EventRecordDeleted)
}

func TestDeleteFailureKeepsRecord(t *testing.T) {
	f := loadedFixture(t)
	f.api.mutateErr = errBackendDown

	err := f.console.Delete(context.Background(), CollectionRegistrations, "3")

	assert.True(t, errors.Is(err, errBackendDown))
	_, ok := f.console.State().Registration("3")
	assert.True(t, ok)
}

func TestEditStatusUsesSuggestion(t *testing.T) {
	prompter := &answerPrompter{}
	f := loadedFixture(t, func(o *Options) { o.Prompter = prompter })

	prompter.answer = ""
	changed, err := f.console.EditStatus(context.Background(), CollectionRegistrations, "1")
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, "contacted", prompter.suggested)
	assert.Zero(t, f.api.requests())

	prompter.answer = "pending_beta"
	changed, err = f.console.EditStatus(context.Background(), CollectionRegistrations, "1")
	require.NoError(t, err)
	assert.False(t, changed, "unchanged answer is a no-op")

	prompter.answer = "failed"
	changed, err = f.console.EditStatus(context.Background(), CollectionRegistrations, "1")
	require.NoError(t, err)
	assert.True(t, changed)
	r, _ := f.console.State().Registration("1")
	assert.Equal(t, RegistrationFailed, r.Status)
}

func TestResetTodayVisitors(t *testing.T) {
	f := loadedFixture(t)
	require.Equal(t, DefaultVisitorsFloor, f.console.Stats().TodayVisitors)

	dropped, err := f.console.ResetTodayVisitors(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, dropped)
	assert.Len(t, f.console.Snapshot().Analytics, 1)
	assert.Equal(t, 0, f.console.Stats().TodayVisitors)
	assert.True(t, f.console.Stats().VisitorsReset)
	date, _, _ := f.store.Get(context.Background(), KeyVisitorsResetDate)
	assert.Equal(t, "2024-05-14", date)
	flag, _, _ := f.store.Get(context.Background(), KeyVisitorsResetFlag)
	assert.Equal(t, "true", flag)
	assert.Contains(t, f.events.types(), EventVisitorsReset)
}
