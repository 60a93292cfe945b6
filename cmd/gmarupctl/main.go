package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/goliatone/go-gmarup-admin/components/console"
	"github.com/goliatone/go-gmarup-admin/pkg/admin"
	"github.com/goliatone/go-gmarup-admin/pkg/config"
)

type cli struct {
	Globals

	Serve         serveCmd         `cmd:"" help:"Serve the web console."`
	Refresh       refreshCmd       `cmd:"" help:"Reload data from the backend."`
	Show          showCmd          `cmd:"" help:"Print a collection as a table."`
	Stats         statsCmd         `cmd:"" help:"Print the statistics cards."`
	Export        exportCmd        `cmd:"" help:"Export a collection as CSV, or everything as JSON."`
	SetStatus     setStatusCmd     `cmd:"" name:"set-status" help:"Change a registration or donation status."`
	Delete        deleteCmd        `cmd:"" help:"Delete a registration or donation."`
	ResetVisitors resetVisitorsCmd `cmd:"" name:"reset-visitors" help:"Drop today's analytics from the visitor count."`
	Settings      settingsCmd      `cmd:"" help:"Show or change site settings."`
	Activity      activityCmd      `cmd:"" help:"Print recent operator activity."`
	Login         loginCmd         `cmd:"" help:"Store a logged-in flag for later commands."`
	Logout        logoutCmd        `cmd:"" help:"Clear the logged-in flag."`
	HashPassword  hashPasswordCmd  `cmd:"" name:"hash-password" help:"Print a bcrypt hash for auth.password_hash."`
	Ping          pingCmd          `cmd:"" help:"Check the backend health endpoint."`
	Register      registerCmd      `cmd:"" help:"Submit a beta signup the way the landing page does."`
	Donate        donateCmd        `cmd:"" help:"Record a donation and print the payment link."`
	MockAPI       mockAPICmd       `cmd:"" name:"mock-api" help:"Run an in-memory backend for local work."`
}

type Globals struct {
	Config   string `short:"c" type:"path" env:"GMARUP_CONFIG" help:"YAML configuration file."`
	Password string `env:"GMARUP_PASSWORD" help:"Operator password, used when no login is stored."`
	Yes      bool   `short:"y" help:"Accept suggested statuses and confirmations without asking."`
	JSON     bool   `help:"Print JSON instead of tables."`

	in  io.Reader `kong:"-"`
	out io.Writer `kong:"-"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var c cli
	c.in, c.out = os.Stdin, os.Stdout
	kctx := kong.Parse(&c,
		kong.Name("gmarupctl"),
		kong.Description("Operator console for the GmarUp beta signup and donations backend."),
		kong.UsageOnError(),
		kong.BindTo(ctx, (*context.Context)(nil)),
	)
	err := kctx.Run(&c.Globals)
	kctx.FatalIfErrorf(err)
}

func (g *Globals) config() (config.Config, error) {
	return config.Load(g.Config)
}

// open builds the app with terminal prompts unless --yes was given.
func (g *Globals) open() (*admin.App, error) {
	cfg, err := g.config()
	if err != nil {
		return nil, err
	}
	opts := admin.Options{}
	if !g.Yes {
		p := newTerminalPrompter(g.in, g.out)
		opts.Prompter, opts.Confirmer = p, p
	}
	return admin.New(cfg, opts)
}

// session opens the app, checks the login, and loads every collection.
func (g *Globals) session(ctx context.Context) (*admin.App, error) {
	app, err := g.open()
	if err != nil {
		return nil, err
	}
	if err := g.authorize(ctx, app); err != nil {
		app.Close()
		return nil, err
	}
	report := app.Bootstrap(ctx)
	for _, collection := range report.Failed {
		fmt.Fprintf(g.out, "! %s: %v\n", collection, report.Errors[collection])
	}
	return app, nil
}

func (g *Globals) authorize(ctx context.Context, app *admin.App) error {
	gate := app.Gate()
	if gate.Authenticated(ctx) {
		return nil
	}
	if g.Password == "" {
		return fmt.Errorf("gmarupctl: %w (run login or pass --password)", console.ErrNotAuthenticated)
	}
	return gate.Login(ctx, g.Password)
}

func (g *Globals) printJSON(v any) error {
	return writeJSON(g.out, v)
}
