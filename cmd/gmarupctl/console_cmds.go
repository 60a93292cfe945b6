package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/ettle/strcase"

	"github.com/goliatone/go-gmarup-admin/components/console"
	"github.com/goliatone/go-gmarup-admin/components/console/commands"
	"github.com/goliatone/go-gmarup-admin/components/console/queries"
)

type serveCmd struct {
	Addr    string `help:"Listen address (defaults to server.addr)."`
	Adapter string `help:"HTTP stack: chi or fiber (defaults to server.adapter)."`
}

func (cmd *serveCmd) Run(ctx context.Context, g *Globals) error {
	app, err := g.open()
	if err != nil {
		return err
	}
	defer app.Close()

	cfg, err := g.config()
	if err != nil {
		return err
	}
	addr := firstNonEmpty(cmd.Addr, cfg.Server.Addr)
	adapter := strings.ToLower(firstNonEmpty(cmd.Adapter, cfg.Server.Adapter))
	if adapter != "chi" && adapter != "fiber" {
		return fmt.Errorf("gmarupctl: adapter %q must be chi or fiber", adapter)
	}
	logger := app.Logger()

	if !app.Refresher().Start(ctx) {
		logger.Warn().Msg("refresher already running")
	}
	if adapter == "fiber" {
		errCh := make(chan error, 1)
		go func() { errCh <- app.ServeFiber(addr) }()
		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
			return nil
		}
	}

	srv := &http.Server{Addr: addr, Handler: app.HTTPHandler(), ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Str("adapter", "chi").Msg("serving console")
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

type refreshCmd struct {
	Collection string `arg:"" optional:"" help:"registrations, donations, analytics, or settings. Empty reloads everything."`
}

func (cmd *refreshCmd) Run(ctx context.Context, g *Globals) error {
	app, err := g.session(ctx)
	if err != nil {
		return err
	}
	defer app.Close()
	if err := app.Handlers().Refresh.Execute(ctx, commands.RefreshInput{Collection: cmd.Collection}); err != nil {
		return err
	}
	fmt.Fprintln(g.out, "✓ refreshed")
	return nil
}

type showCmd struct {
	Collection string `arg:"" optional:"" default:"registrations" help:"Collection to print."`
	Status     string `help:"Only rows with this status."`
	Source     string `help:"Only rows from this traffic source."`
	Query      string `short:"q" help:"Case-insensitive text search."`
}

func (cmd *showCmd) Run(ctx context.Context, g *Globals) error {
	app, err := g.session(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	view, err := app.Handlers().Table.Query(ctx, queries.TableInput{
		Collection: cmd.Collection,
		Criteria:   console.Criteria{Status: cmd.Status, Source: cmd.Source, Text: cmd.Query},
	})
	if err != nil {
		return err
	}
	if g.JSON {
		return g.printJSON(view)
	}
	return printTable(g, view)
}

func printTable(g *Globals, view console.TableView) error {
	fmt.Fprintf(g.out, "%s (%d/%d)\n", view.Title, view.Shown, view.Total)
	if view.Empty != nil {
		fmt.Fprintf(g.out, "%s %s\n%s\n", view.Empty.Icon, view.Empty.Title, view.Empty.Description)
		return nil
	}
	tw := tabwriter.NewWriter(g.out, 0, 0, 2, ' ', 0)
	labels := make([]string, 0, len(view.Columns))
	for _, col := range view.Columns {
		labels = append(labels, col.Label)
	}
	fmt.Fprintln(tw, strings.Join(labels, "\t"))
	for _, row := range view.Rows {
		cells := make([]string, 0, len(row.Cells))
		for _, cell := range row.Cells {
			cells = append(cells, strings.ReplaceAll(cell.Text, "\n", " "))
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}

type statsCmd struct{}

func (cmd *statsCmd) Run(ctx context.Context, g *Globals) error {
	app, err := g.session(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	stats, err := app.Handlers().Stats.Query(ctx, struct{}{})
	if err != nil {
		return err
	}
	if g.JSON {
		return g.printJSON(stats)
	}
	c := app.Console()
	f := console.NewFormatter(c.Locale(), c.Location())
	tw := tabwriter.NewWriter(g.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "registrations\t%s\n", f.Count(stats.TotalRegistrations))
	fmt.Fprintf(tw, "completed donations\t%s (%s)\n", f.Amount(stats.CompletedAmount), f.Count(stats.CompletedCount))
	fmt.Fprintf(tw, "events today\t%s\n", f.Count(stats.TodayEvents))
	fmt.Fprintf(tw, "visitors today\t%s\n", f.Count(stats.TodayVisitors))
	fmt.Fprintf(tw, "study levels\t%d / %d / %d (%d unknown)\n",
		stats.StudyLevels.Beginner, stats.StudyLevels.Intermediate, stats.StudyLevels.Advanced, stats.StudyLevels.Unknown)
	fmt.Fprintf(tw, "computed\t%s\n", f.Since(stats.ComputedAt))
	return tw.Flush()
}

type exportCmd struct {
	Collection string `arg:"" optional:"" help:"Collection to export as CSV. Empty exports everything as JSON."`
	Out        string `short:"o" type:"path" default:"." help:"Directory to write the file into."`
}

func (cmd *exportCmd) Run(ctx context.Context, g *Globals) error {
	app, err := g.session(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	export, err := app.Handlers().Export.Query(ctx, queries.ExportInput{Collection: cmd.Collection})
	if err != nil {
		return err
	}
	if err := os.MkdirAll(cmd.Out, 0o755); err != nil {
		return fmt.Errorf("gmarupctl: mkdir %s: %w", cmd.Out, err)
	}
	path := filepath.Join(cmd.Out, export.Filename)
	if err := os.WriteFile(path, export.Data, 0o644); err != nil {
		return fmt.Errorf("gmarupctl: write export: %w", err)
	}
	fmt.Fprintf(g.out, "✓ wrote %s\n", path)
	return nil
}

type setStatusCmd struct {
	Collection string  `arg:"" help:"registrations or donations."`
	ID         string  `arg:"" help:"Record id."`
	Status     string  `arg:"" optional:"" help:"New status. Empty prompts with the next status in the cycle."`
	Notes      *string `help:"Replace the registration notes."`
}

func (cmd *setStatusCmd) Run(ctx context.Context, g *Globals) error {
	app, err := g.session(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	h := app.Handlers()
	if cmd.Status == "" && cmd.Notes == nil {
		err = h.CycleStatus.Execute(ctx, commands.CycleStatusInput{Collection: cmd.Collection, ID: cmd.ID, ActorID: operator()})
	} else {
		err = h.Update.Execute(ctx, commands.UpdateRecordInput{
			Collection: cmd.Collection,
			ID:         cmd.ID,
			Status:     cmd.Status,
			Notes:      cmd.Notes,
			ActorID:    operator(),
		})
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(g.out, "✓ updated %s %s\n", cmd.Collection, cmd.ID)
	return nil
}

type deleteCmd struct {
	Collection string `arg:"" help:"registrations or donations."`
	ID         string `arg:"" help:"Record id."`
}

func (cmd *deleteCmd) Run(ctx context.Context, g *Globals) error {
	app, err := g.session(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	input := commands.DeleteRecordInput{Collection: cmd.Collection, ID: cmd.ID, ActorID: operator()}
	if err := app.Handlers().Delete.Execute(ctx, input); err != nil {
		return cancelled(g, err)
	}
	fmt.Fprintf(g.out, "✓ deleted %s %s\n", cmd.Collection, cmd.ID)
	return nil
}

type resetVisitorsCmd struct{}

func (cmd *resetVisitorsCmd) Run(ctx context.Context, g *Globals) error {
	app, err := g.session(ctx)
	if err != nil {
		return err
	}
	defer app.Close()
	if err := app.Handlers().ResetVisitors.Execute(ctx, commands.ResetVisitorsInput{ActorID: operator()}); err != nil {
		return cancelled(g, err)
	}
	fmt.Fprintf(g.out, "✓ visitors today: %d\n", app.Console().Stats().TodayVisitors)
	return nil
}

type settingsCmd struct {
	Show settingsShowCmd `cmd:"" default:"1" help:"Print the current settings."`
	Set  settingsSetCmd  `cmd:"" help:"Change settings, e.g. set siteTitle=GmarUp maintenanceMode=false."`
}

type settingsShowCmd struct{}

func (cmd *settingsShowCmd) Run(ctx context.Context, g *Globals) error {
	app, err := g.session(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	form, err := app.Handlers().SettingsForm.Query(ctx, struct{}{})
	if err != nil {
		return err
	}
	if g.JSON {
		return g.printJSON(form)
	}
	fmt.Fprintf(g.out, "%s (%s)\n", form.Title, form.Origin)
	tw := tabwriter.NewWriter(g.out, 0, 0, 2, ' ', 0)
	for _, field := range form.Fields {
		value := field.Value
		if field.Kind == console.FieldToggle {
			value = fmt.Sprint(field.Checked)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", field.Key, field.Label, value)
	}
	return tw.Flush()
}

type settingsSetCmd struct {
	Pairs []string `arg:"" help:"key=value pairs. Keys may be camelCase or kebab-case."`
}

func (cmd *settingsSetCmd) Run(ctx context.Context, g *Globals) error {
	changes, err := parseSettingPairs(cmd.Pairs)
	if err != nil {
		return err
	}
	app, err := g.session(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	settings := console.Settings{}
	for k, v := range app.Console().Snapshot().Settings {
		settings[k] = v
	}
	for k, v := range changes {
		settings[k] = v
	}
	err = app.Handlers().SaveSettings.Execute(ctx, commands.SaveSettingsInput{Settings: settings, ActorID: operator()})
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(changes))
	for k := range changes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Fprintf(g.out, "✓ saved %s\n", strings.Join(keys, ", "))
	return nil
}

// parseSettingPairs maps key=value arguments onto the snake_case keys the
// backend stores. "true" and "false" become booleans.
func parseSettingPairs(pairs []string) (console.Settings, error) {
	out := console.Settings{}
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("gmarupctl: setting %q must look like key=value", pair)
		}
		key = strcase.ToSnake(key)
		switch strings.ToLower(value) {
		case "true":
			out[key] = true
		case "false":
			out[key] = false
		default:
			out[key] = value
		}
	}
	return out, nil
}

type activityCmd struct {
	Limit int `short:"n" default:"20" help:"Number of entries."`
}

func (cmd *activityCmd) Run(ctx context.Context, g *Globals) error {
	app, err := g.open()
	if err != nil {
		return err
	}
	defer app.Close()
	log := app.Activity()
	if log == nil {
		return errors.New("gmarupctl: activity needs storage.path")
	}
	entries, err := log.Recent(ctx, cmd.Limit)
	if err != nil {
		return err
	}
	if g.JSON {
		return g.printJSON(entries)
	}
	tw := tabwriter.NewWriter(g.out, 0, 0, 2, ' ', 0)
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.OccurredAt.Local().Format(time.DateTime), e.Verb, e.ObjectType, e.ObjectID)
	}
	return tw.Flush()
}

type loginCmd struct{}

func (cmd *loginCmd) Run(ctx context.Context, g *Globals) error {
	app, err := g.open()
	if err != nil {
		return err
	}
	defer app.Close()
	password := g.Password
	if password == "" {
		password, err = newTerminalPrompter(g.in, g.out).Ask("password: ")
		if err != nil {
			return err
		}
	}
	if err := app.Gate().Login(ctx, password); err != nil {
		return err
	}
	fmt.Fprintln(g.out, "✓ logged in")
	return nil
}

type logoutCmd struct{}

func (cmd *logoutCmd) Run(ctx context.Context, g *Globals) error {
	app, err := g.open()
	if err != nil {
		return err
	}
	defer app.Close()
	if err := app.Gate().Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(g.out, "✓ logged out")
	return nil
}

type hashPasswordCmd struct {
	Password string `arg:"" optional:"" help:"Password to hash. Read from stdin when omitted."`
}

func (cmd *hashPasswordCmd) Run(g *Globals) error {
	password := cmd.Password
	if password == "" {
		var err error
		if password, err = newTerminalPrompter(g.in, g.out).Ask("password: "); err != nil {
			return err
		}
	}
	hash, err := console.HashPassword(password)
	if err != nil {
		return err
	}
	fmt.Fprintln(g.out, hash)
	return nil
}

// cancelled turns an operator refusal into a message instead of a failure.
func cancelled(g *Globals, err error) error {
	if errors.Is(err, console.ErrCancelled) {
		fmt.Fprintln(g.out, "cancelled")
		return nil
	}
	return err
}

func operator() string {
	if name := os.Getenv("USER"); name != "" {
		return name
	}
	return "operator"
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
