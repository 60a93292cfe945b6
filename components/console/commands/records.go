package commands

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"

	"github.com/goliatone/go-gmarup-admin/components/console"
)

// UpdateRecordInput edits a registration or donation.
type UpdateRecordInput struct {
	Collection string  `json:"collection"`
	ID         string  `json:"id"`
	Status     string  `json:"status"`
	Notes      *string `json:"notes,omitempty"`
	ActorID    string  `json:"actor_id,omitempty"`
}

type updateService interface {
	Update(ctx context.Context, kind console.Collection, id console.RecordID, patch console.Patch) error
}

// UpdateRecordCommand wraps Console.Update.
type UpdateRecordCommand struct {
	service   updateService
	telemetry Telemetry
}

// NewUpdateRecordCommand creates the command.
func NewUpdateRecordCommand(service updateService, telemetry Telemetry) *UpdateRecordCommand {
	return &UpdateRecordCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[UpdateRecordInput] = (*UpdateRecordCommand)(nil)

func (c *UpdateRecordCommand) Execute(ctx context.Context, msg UpdateRecordInput) error {
	if c.service == nil {
		return errors.New("update command requires service")
	}
	if msg.ID == "" {
		return errors.New("update command requires record id")
	}
	if msg.Status == "" && msg.Notes == nil {
		return errors.New("update command requires status or notes")
	}
	kind, err := console.ParseCollection(msg.Collection)
	if err != nil {
		return err
	}
	ctx = withActor(ctx, msg.ActorID)
	if err := c.service.Update(ctx, kind, console.RecordID(msg.ID), console.Patch{Status: msg.Status, Notes: msg.Notes}); err != nil {
		return err
	}
	c.telemetry.Record(ctx, "console.command.update", map[string]any{
		"collection": kind,
		"id":         msg.ID,
		"status":     msg.Status,
	})
	return nil
}

// CycleStatusInput asks the operator for a new status, pre-filled with the
// next one in the cycle.
type CycleStatusInput struct {
	Collection string `json:"collection"`
	ID         string `json:"id"`
	ActorID    string `json:"actor_id,omitempty"`
}

type editStatusService interface {
	EditStatus(ctx context.Context, kind console.Collection, id console.RecordID) (bool, error)
}

// CycleStatusCommand wraps Console.EditStatus.
type CycleStatusCommand struct {
	service   editStatusService
	telemetry Telemetry
}

// NewCycleStatusCommand creates the command.
func NewCycleStatusCommand(service editStatusService, telemetry Telemetry) *CycleStatusCommand {
	return &CycleStatusCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[CycleStatusInput] = (*CycleStatusCommand)(nil)

func (c *CycleStatusCommand) Execute(ctx context.Context, msg CycleStatusInput) error {
	if c.service == nil {
		return errors.New("cycle status command requires service")
	}
	kind, err := console.ParseCollection(msg.Collection)
	if err != nil {
		return err
	}
	ctx = withActor(ctx, msg.ActorID)
	changed, err := c.service.EditStatus(ctx, kind, console.RecordID(msg.ID))
	if err != nil {
		return err
	}
	c.telemetry.Record(ctx, "console.command.cycle_status", map[string]any{
		"collection": kind,
		"id":         msg.ID,
		"changed":    changed,
	})
	return nil
}

// DeleteRecordInput removes a registration or donation.
type DeleteRecordInput struct {
	Collection string `json:"collection"`
	ID         string `json:"id"`
	ActorID    string `json:"actor_id,omitempty"`
}

type deleteService interface {
	Delete(ctx context.Context, kind console.Collection, id console.RecordID) error
}

// DeleteRecordCommand wraps Console.Delete.
type DeleteRecordCommand struct {
	service   deleteService
	telemetry Telemetry
}

// NewDeleteRecordCommand creates the command.
func NewDeleteRecordCommand(service deleteService, telemetry Telemetry) *DeleteRecordCommand {
	return &DeleteRecordCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[DeleteRecordInput] = (*DeleteRecordCommand)(nil)

func (c *DeleteRecordCommand) Execute(ctx context.Context, msg DeleteRecordInput) error {
	if c.service == nil {
		return errors.New("delete command requires service")
	}
	if msg.ID == "" {
		return errors.New("delete command requires record id")
	}
	kind, err := console.ParseCollection(msg.Collection)
	if err != nil {
		return err
	}
	ctx = withActor(ctx, msg.ActorID)
	if err := c.service.Delete(ctx, kind, console.RecordID(msg.ID)); err != nil {
		return err
	}
	c.telemetry.Record(ctx, "console.command.delete", map[string]any{
		"collection": kind,
		"id":         msg.ID,
	})
	return nil
}

func withActor(ctx context.Context, actor string) context.Context {
	if actor == "" {
		return ctx
	}
	return console.ContextWithActivity(ctx, console.ActivityContext{ActorID: actor, UserID: actor})
}
