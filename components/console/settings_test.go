package console

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveSettingsWritesBackupThenServer(t *testing.T) {
	f := newFixture(&fakeAPI{})
	settings := Settings{SettingSiteTitle: "New title", SettingAutoBackup: "0"}

	result, err := f.console.SaveSettings(context.Background(), settings)

	require.NoError(t, err)
	assert.True(t, result.SavedLocally)
	assert.True(t, result.SavedRemotely)
	require.Len(t, f.api.saved, 1)
	assert.Equal(t, "New title", f.api.saved[0].String(SettingSiteTitle))
	assert.Equal(t, SettingsFromOperator, f.console.Snapshot().SettingsOrigin)
	backup, ok, _ := f.store.Get(context.Background(), KeySettingsBackup)
	require.True(t, ok)
	assert.Contains(t, backup, "New title")
	assert.Equal(t, NotificationSuccess, f.notifier.last().level)
}

func TestSaveSettingsServerFailureKeepsLocalCopy(t *testing.T) {
	f := newFixture(&fakeAPI{saveErr: errBackendDown})

	result, err := f.console.SaveSettings(context.Background(), Settings{SettingSiteTitle: "Offline"})

	require.NoError(t, err)
	assert.False(t, result.SavedRemotely)
	assert.ErrorIs(t, result.RemoteError, errBackendDown)
	assert.Equal(t, "Offline", f.console.Snapshot().Settings.String(SettingSiteTitle))
	assert.Equal(t, NotificationWarning, f.notifier.last().level)

	f.api.settingsErr = errBackendDown
	report := f.console.LoadAll(context.Background())
	assert.Equal(t, SettingsFromBackup, report.SettingsOrigin)
	assert.Equal(t, "Offline", f.console.Snapshot().Settings.String(SettingSiteTitle))
}

func TestSaveSettingsRejectsInvalidPayload(t *testing.T) {
	f := newFixture(&fakeAPI{})

	_, err := f.console.SaveSettings(context.Background(), Settings{SettingAdminEmail: "not-an-email"})

	require.Error(t, err)
	assert.Empty(t, f.api.saved)
	assert.Equal(t, NotificationError, f.notifier.last().level)
}

func TestBuildSettingsFormListsUnknownKeys(t *testing.T) {
	form := BuildSettingsForm(Settings{SettingAnalyticsEnabled: "1", "zeta": "z", "alpha": true}, SettingsFromServer, LocaleEnglish)

	require.Len(t, form.Fields, len(settingSpecs)+2)
	tail := form.Fields[len(settingSpecs):]
	assert.Equal(t, "alpha", tail[0].Key)
	assert.Equal(t, "1", tail[0].Value)
	assert.Equal(t, "zeta", tail[1].Key)
	for _, field := range form.Fields {
		if field.Key == SettingAnalyticsEnabled {
			assert.Equal(t, FieldToggle, field.Kind)
			assert.True(t, field.Checked)
		}
	}
}

func TestJSONSchemaValidatorCustomSchema(t *testing.T) {
	v := NewJSONSchemaValidator()
	v.Register("amount", map[string]any{"type": "object", "required": []any{"amount"}})

	assert.NoError(t, v.Validate("amount", map[string]any{"amount": 5}))
	assert.Error(t, v.Validate("amount", map[string]any{}))
	assert.Error(t, v.Validate("missing", nil))
}
