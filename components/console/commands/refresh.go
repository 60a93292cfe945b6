package commands

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"

	"github.com/goliatone/go-gmarup-admin/components/console"
)

// RefreshInput reloads one collection, or all of them when Collection is empty.
type RefreshInput struct {
	Collection string `json:"collection,omitempty"`
}

type refreshService interface {
	LoadAll(ctx context.Context) console.LoadReport
	Reload(ctx context.Context, collection console.Collection) error
}

// RefreshCommand wraps Console.LoadAll and Console.Reload.
type RefreshCommand struct {
	service   refreshService
	telemetry Telemetry
}

// NewRefreshCommand creates the command.
func NewRefreshCommand(service refreshService, telemetry Telemetry) *RefreshCommand {
	return &RefreshCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[RefreshInput] = (*RefreshCommand)(nil)

// Execute returns the joined per-collection errors of a partial load; the
// collections that did load are kept.
func (c *RefreshCommand) Execute(ctx context.Context, msg RefreshInput) error {
	if c.service == nil {
		return errors.New("refresh command requires service")
	}
	if msg.Collection != "" {
		kind, err := console.ParseCollection(msg.Collection)
		if err != nil {
			return err
		}
		err = c.service.Reload(ctx, kind)
		c.telemetry.Record(ctx, "console.command.reload", map[string]any{"collection": kind, "ok": err == nil})
		return err
	}
	report := c.service.LoadAll(ctx)
	c.telemetry.Record(ctx, "console.command.refresh", map[string]any{
		"failed":          len(report.Failed),
		"settings_origin": report.SettingsOrigin,
	})
	return report.Err()
}
