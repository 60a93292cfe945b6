package commands

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"

	"github.com/goliatone/go-gmarup-admin/components/console"
)

// SaveSettingsInput replaces the site settings.
type SaveSettingsInput struct {
	Settings console.Settings `json:"settings"`
	ActorID  string           `json:"actor_id,omitempty"`
}

type settingsService interface {
	SaveSettings(ctx context.Context, settings console.Settings) (console.SettingsSaveResult, error)
}

// SaveSettingsCommand wraps Console.SaveSettings.
type SaveSettingsCommand struct {
	service   settingsService
	telemetry Telemetry
}

// NewSaveSettingsCommand creates the command.
func NewSaveSettingsCommand(service settingsService, telemetry Telemetry) *SaveSettingsCommand {
	return &SaveSettingsCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[SaveSettingsInput] = (*SaveSettingsCommand)(nil)

func (c *SaveSettingsCommand) Execute(ctx context.Context, msg SaveSettingsInput) error {
	if c.service == nil {
		return errors.New("save settings command requires service")
	}
	if len(msg.Settings) == 0 {
		return errors.New("save settings command requires settings")
	}
	ctx = withActor(ctx, msg.ActorID)
	result, err := c.service.SaveSettings(ctx, msg.Settings)
	if err != nil {
		return err
	}
	c.telemetry.Record(ctx, "console.command.save_settings", map[string]any{
		"keys":   len(msg.Settings),
		"remote": result.SavedRemotely,
	})
	return nil
}

// ResetVisitorsInput zeroes today's visitor counter.
type ResetVisitorsInput struct {
	ActorID string `json:"actor_id,omitempty"`
}

type visitorsService interface {
	ResetTodayVisitors(ctx context.Context) (int, error)
}

// ResetVisitorsCommand wraps Console.ResetTodayVisitors.
type ResetVisitorsCommand struct {
	service   visitorsService
	telemetry Telemetry
}

// NewResetVisitorsCommand creates the command.
func NewResetVisitorsCommand(service visitorsService, telemetry Telemetry) *ResetVisitorsCommand {
	return &ResetVisitorsCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[ResetVisitorsInput] = (*ResetVisitorsCommand)(nil)

func (c *ResetVisitorsCommand) Execute(ctx context.Context, msg ResetVisitorsInput) error {
	if c.service == nil {
		return errors.New("reset visitors command requires service")
	}
	ctx = withActor(ctx, msg.ActorID)
	dropped, err := c.service.ResetTodayVisitors(ctx)
	if err != nil {
		return err
	}
	c.telemetry.Record(ctx, "console.command.reset_visitors", map[string]any{"dropped": dropped})
	return nil
}
