package console

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAllAppliesEveryCollection(t *testing.T) {
	api := &fakeAPI{
		registrations: sampleRegistrations(),
		donations:     sampleDonations(),
		analytics:     []AnalyticsEvent{{ID: "1", Category: "page", Action: "view", CreatedAt: "2024-05-14 08:00:00"}},
		settings:      Settings{SettingSiteTitle: "GmarUp"},
	}
	f := newFixture(api)

	report := f.console.LoadAll(context.Background())

	require.True(t, report.OK(), "unexpected errors: %v", report.Err())
	snap := f.console.Snapshot()
	assert.Len(t, snap.Registrations, 3)
	assert.Len(t, snap.Donations, 3)
	assert.Len(t, snap.Analytics, 1)
	assert.Equal(t, "GmarUp", snap.Settings.String(SettingSiteTitle))
	assert.Equal(t, SettingsFromServer, snap.SettingsOrigin)
	assert.Equal(t, testNow(), snap.LastRefreshed)
	assert.Equal(t, 3, snap.Stats.TotalRegistrations)

	notes := f.notifier.all()
	require.Len(t, notes, 1)
	assert.Equal(t, NotificationSuccess, notes[0].level)

	backup, ok, err := f.store.Get(context.Background(), KeySettingsBackup)
	require.NoError(t, err)
	require.True(t, ok)
	var restored Settings
	require.NoError(t, json.Unmarshal([]byte(backup), &restored))
	assert.Equal(t, "GmarUp", restored.String(SettingSiteTitle))
}

func TestLoadAllDegradesPerCollection(t *testing.T) {
	api := &fakeAPI{
		registrations: sampleRegistrations(),
		donations:     sampleDonations(),
		donsErr:       errBackendDown,
		settings:      Settings{},
	}
	f := newFixture(api)
	f.console.State().ApplyDonations(f.console.State().Begin(), sampleDonations())

	report := f.console.LoadAll(context.Background())

	assert.Equal(t, []Collection{CollectionDonations}, report.Failed)
	assert.ErrorIs(t, report.Err(), errBackendDown)
	snap := f.console.Snapshot()
	assert.Len(t, snap.Registrations, 3)
	assert.Empty(t, snap.Donations, "failed collection must be emptied")

	notes := f.notifier.all()
	require.Len(t, notes, 1)
	assert.Equal(t, NotificationError, notes[0].level)
	assert.Contains(t, notes[0].message, CollectionDonations.Label(LocaleHebrew))
}

func TestLoadAllRegistrationsFailDonationsLoad(t *testing.T) {
	api := &fakeAPI{
		registrations: sampleRegistrations(),
		regsErr:       errBackendDown,
		donations:     sampleDonations(),
		settings:      Settings{},
	}
	f := newFixture(api)

	report := f.console.LoadAll(context.Background())

	assert.Equal(t, []Collection{CollectionRegistrations}, report.Failed)
	snap := f.console.Snapshot()
	assert.Empty(t, snap.Registrations)
	assert.Len(t, snap.Donations, 3)
	assert.Equal(t, 0, snap.Stats.TotalRegistrations)
	assert.Equal(t, 2, snap.Stats.CompletedCount)
	assert.InDelta(t, 136.0, snap.Stats.CompletedAmount, 0.001)

	notes := f.notifier.all()
	require.Len(t, notes, 1)
	assert.Equal(t, NotificationError, notes[0].level)
	assert.Contains(t, notes[0].message, CollectionRegistrations.Label(LocaleHebrew))
}

func TestCancelledLoadKeepsLoadedState(t *testing.T) {
	api := &fakeAPI{registrations: sampleRegistrations(), donations: sampleDonations(), settings: Settings{}}
	f := newFixture(api)
	require.True(t, f.console.LoadAll(context.Background()).OK())
	before := f.console.Snapshot()
	notes := len(f.notifier.all())

	api.mu.Lock()
	api.gate = make(chan struct{})
	api.mu.Unlock()
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	report := f.console.LoadAll(ctx)

	assert.True(t, report.Cancelled)
	assert.False(t, report.OK())
	assert.ErrorIs(t, report.Err(), context.Canceled)
	after := f.console.Snapshot()
	assert.Equal(t, before.Registrations, after.Registrations)
	assert.Equal(t, before.Donations, after.Donations)
	assert.Equal(t, before.Stats, after.Stats)
	assert.Equal(t, before.LastRefreshed, after.LastRefreshed)
	assert.Len(t, f.notifier.all(), notes)
}

func TestCancelledReloadKeepsLoadedState(t *testing.T) {
	api := &fakeAPI{registrations: sampleRegistrations()}
	f := newFixture(api)
	require.NoError(t, f.console.Reload(context.Background(), CollectionRegistrations))
	notes := len(f.notifier.all())

	api.mu.Lock()
	api.gate = make(chan struct{})
	api.mu.Unlock()
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	err := f.console.Reload(ctx, CollectionRegistrations)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, f.console.Snapshot().Registrations, 3)
	assert.Len(t, f.notifier.all(), notes)
}

func TestLoadAllSettingsFallback(t *testing.T) {
	t.Run("backup", func(t *testing.T) {
		f := newFixture(&fakeAPI{settingsErr: errBackendDown})
		require.NoError(t, f.store.Set(context.Background(), KeySettingsBackup, `{"site_title":"cached"}`))

		report := f.console.LoadAll(context.Background())

		assert.Empty(t, report.Failed)
		assert.Equal(t, SettingsFromBackup, report.SettingsOrigin)
		assert.Equal(t, "cached", f.console.Snapshot().Settings.String(SettingSiteTitle))
		assert.Equal(t, NotificationWarning, f.notifier.last().level)
	})

	t.Run("defaults", func(t *testing.T) {
		f := newFixture(&fakeAPI{settingsErr: errBackendDown})
		require.NoError(t, f.store.Set(context.Background(), KeySettingsBackup, `not json`))

		report := f.console.LoadAll(context.Background())

		assert.Equal(t, SettingsFromDefaults, report.SettingsOrigin)
		assert.Equal(t, DefaultSettings(), f.console.Snapshot().Settings)
		assert.Equal(t, NotificationWarning, f.notifier.last().level)
	})
}

func TestLoadAllFetchesConcurrently(t *testing.T) {
	api := &fakeAPI{registrations: sampleRegistrations(), gate: make(chan struct{})}
	f := newFixture(api)

	done := make(chan LoadReport, 1)
	go func() { done <- f.console.LoadAll(context.Background()) }()

	select {
	case <-done:
		t.Fatal("LoadAll returned before every fetch settled")
	case <-time.After(50 * time.Millisecond):
	}
	close(api.gate)
	select {
	case report := <-done:
		assert.Empty(t, report.Failed)
	case <-time.After(2 * time.Second):
		t.Fatal("LoadAll did not finish")
	}
}

func TestSequenceGuardDiscardsStaleResponse(t *testing.T) {
	state := NewState()
	older := state.Begin()
	newer := state.Begin()

	require.True(t, state.ApplyRegistrations(newer, []Registration{{ID: "new"}}))
	assert.False(t, state.ApplyRegistrations(older, []Registration{{ID: "old"}}))

	snap := state.Snapshot()
	require.Len(t, snap.Registrations, 1)
	assert.Equal(t, RecordID("new"), snap.Registrations[0].ID)
}

func TestConfirmedMutationFencesInFlightLoad(t *testing.T) {
	api := &fakeAPI{registrations: sampleRegistrations()}
	f := newFixture(api)
	f.console.LoadAll(context.Background())

	inFlight := f.console.State().Begin()
	require.NoError(t, f.console.Update(context.Background(), CollectionRegistrations, "1", Patch{Status: string(RegistrationCompleted)}))

	stale := sampleRegistrations()
	assert.False(t, f.console.State().ApplyRegistrations(inFlight, stale))
	r, ok := f.console.State().Registration("1")
	require.True(t, ok)
	assert.Equal(t, RegistrationCompleted, r.Status)
}

func TestLoadAllIsSafeUnderConcurrentRenders(t *testing.T) {
	api := &fakeAPI{registrations: sampleRegistrations(), donations: sampleDonations()}
	f := newFixture(api)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			f.console.LoadAll(context.Background())
		}()
		go func() {
			defer wg.Done()
			_, _ = f.console.Render(CollectionRegistrations)
		}()
	}
	wg.Wait()
	assert.Len(t, f.console.Snapshot().Registrations, 3)
}

func TestReloadSingleCollection(t *testing.T) {
	api := &fakeAPI{donations: sampleDonations()}
	f := newFixture(api)

	require.NoError(t, f.console.Reload(context.Background(), CollectionDonations))
	assert.Len(t, f.console.Snapshot().Donations, 3)

	api.eventsErr = errBackendDown
	err := f.console.Reload(context.Background(), CollectionAnalytics)
	assert.ErrorIs(t, err, errBackendDown)
	assert.Equal(t, NotificationError, f.notifier.last().level)

	assert.ErrorIs(t, f.console.Reload(context.Background(), Collection("nope")), ErrUnknownCollection)
}
