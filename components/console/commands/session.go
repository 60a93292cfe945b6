package commands

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"
)

// LoginInput carries the operator password.
type LoginInput struct {
	Password string `json:"password"`
}

// LogoutInput is empty; logout needs no arguments.
type LogoutInput struct{}

type sessionService interface {
	Login(ctx context.Context, password string) error
	Logout(ctx context.Context) error
}

// LoginCommand wraps Gate.Login.
type LoginCommand struct {
	gate      sessionService
	telemetry Telemetry
}

// NewLoginCommand creates the command.
func NewLoginCommand(gate sessionService, telemetry Telemetry) *LoginCommand {
	return &LoginCommand{gate: gate, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[LoginInput] = (*LoginCommand)(nil)

func (c *LoginCommand) Execute(ctx context.Context, msg LoginInput) error {
	if c.gate == nil {
		return errors.New("login command requires gate")
	}
	if msg.Password == "" {
		return errors.New("login command requires password")
	}
	err := c.gate.Login(ctx, msg.Password)
	c.telemetry.Record(ctx, "console.command.login", map[string]any{"ok": err == nil})
	return err
}

// LogoutCommand wraps Gate.Logout.
type LogoutCommand struct {
	gate      sessionService
	telemetry Telemetry
}

// NewLogoutCommand creates the command.
func NewLogoutCommand(gate sessionService, telemetry Telemetry) *LogoutCommand {
	return &LogoutCommand{gate: gate, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[LogoutInput] = (*LogoutCommand)(nil)

func (c *LogoutCommand) Execute(ctx context.Context, _ LogoutInput) error {
	if c.gate == nil {
		return errors.New("logout command requires gate")
	}
	if err := c.gate.Logout(ctx); err != nil {
		return err
	}
	c.telemetry.Record(ctx, "console.command.logout", nil)
	return nil
}
