package admin

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	router "github.com/goliatone/go-router"
	"github.com/rs/zerolog"

	"github.com/goliatone/go-gmarup-admin/components/console"
	"github.com/goliatone/go-gmarup-admin/components/console/commands"
	"github.com/goliatone/go-gmarup-admin/components/console/gorouter"
	"github.com/goliatone/go-gmarup-admin/components/console/httpapi"
	"github.com/goliatone/go-gmarup-admin/components/console/queries"
	"github.com/goliatone/go-gmarup-admin/pkg/activity"
	"github.com/goliatone/go-gmarup-admin/pkg/activity/usersink"
	"github.com/goliatone/go-gmarup-admin/pkg/backend"
	"github.com/goliatone/go-gmarup-admin/pkg/config"
	"github.com/goliatone/go-gmarup-admin/pkg/landing"
	"github.com/goliatone/go-gmarup-admin/pkg/logging"
	"github.com/goliatone/go-gmarup-admin/pkg/storage"
)

// Console re-exports the core console type for hosts that only import pkg/admin.
type Console = console.Console

// Options overrides collaborators that New would otherwise build from config.
type Options struct {
	Logger       *zerolog.Logger
	API          console.API
	LocalStore   console.KeyValueStore
	SessionStore console.KeyValueStore
	Prompter     console.Prompter
	Confirmer    console.Confirmer
	Renderer     console.Renderer
}

// App holds one fully wired console with its surfaces.
type App struct {
	cfg           config.Config
	logger        zerolog.Logger
	telemetry     logging.Telemetry
	client        *backend.Client
	db            *storage.SQLiteStore
	local         console.KeyValueStore
	session       console.KeyValueStore
	console       *console.Console
	gate          *console.Gate
	webGate       *console.Gate
	auth          console.Authenticator
	notifications *console.NotificationCenter
	events        *console.BroadcastHook
	controller    *console.Controller
	refresher     *console.Refresher
	handlers      *httpapi.Handlers
}

// New wires config into a console, its gates, refresher, and HTTP handlers.
func New(cfg config.Config, opts Options) (*App, error) {
	logger := logging.NewLogger(logging.Config{Level: cfg.Log.Level, Development: cfg.Log.Development})
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	telemetry := logging.NewTelemetry(logger)
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	app := &App{cfg: cfg, logger: logger, telemetry: telemetry}

	api := opts.API
	if api == nil {
		client, err := backend.NewClient(backend.Config{
			BaseURL:   cfg.Backend.BaseURL,
			Timeout:   cfg.Backend.Timeout,
			UserAgent: cfg.Backend.UserAgent,
		})
		if err != nil {
			return nil, err
		}
		app.client = client
		api = client
	} else if client, ok := api.(*backend.Client); ok {
		app.client = client
	}

	app.local, app.session = opts.LocalStore, opts.SessionStore
	if app.local == nil || app.session == nil {
		if cfg.Storage.Path != "" {
			db, err := storage.OpenSQLite(cfg.Storage.Path)
			if err != nil {
				return nil, err
			}
			app.db = db
		}
		if app.local == nil {
			app.local = app.storeOrMemory(storage.ScopeLocal)
		}
		if app.session == nil {
			app.session = app.storeOrMemory(storage.ScopeSession)
		}
	}

	app.events = console.NewBroadcastHook()
	app.notifications = console.NewNotificationCenter(console.NotificationOptions{
		TTL:       cfg.Console.NotificationTTL,
		Events:    app.events,
		Telemetry: telemetry,
	})

	hooks := activity.Hooks{activity.HookFunc(func(_ context.Context, evt activity.Event) error {
		logger.Info().Str("verb", evt.Verb).Str("object_type", evt.ObjectType).Str("object_id", evt.ObjectID).
			Str("actor", evt.ActorID).Msg("activity")
		return nil
	})}
	if app.db != nil {
		hooks = append(hooks, usersink.Hook{Sink: app.db.Activity()})
	}

	app.console = console.NewConsole(console.Options{
		API:               api,
		LocalStore:        app.local,
		Notifier:          app.notifications,
		Events:            app.events,
		Telemetry:         telemetry,
		Prompter:          opts.Prompter,
		Confirmer:         opts.Confirmer,
		ActivityHooks:     hooks,
		ActivityConfig:    activity.Config{Enabled: true},
		Location:          loc,
		Locale:            cfg.Console.Locale,
		VisitorsFloor:     cfg.Console.VisitorsFloor,
		AnalyticsRowLimit: cfg.Console.AnalyticsRowLimit,
	})

	app.auth = app.authenticator()
	app.gate = console.NewGate(console.GateOptions{
		Store:         app.local,
		Authenticator: app.auth,
		Notifier:      app.notifications,
		Telemetry:     telemetry,
		Locale:        cfg.Console.Locale,
	})
	app.webGate = console.NewGate(console.GateOptions{
		Store:         httpapi.SessionValues{},
		Authenticator: app.auth,
		Notifier:      app.notifications,
		Telemetry:     telemetry,
		Locale:        cfg.Console.Locale,
	})

	renderer := opts.Renderer
	if renderer == nil {
		renderer, err = console.NewTemplateRenderer()
		if err != nil {
			return nil, fmt.Errorf("admin: templates: %w", err)
		}
	}
	app.controller = console.NewController(app.console, console.ControllerOptions{
		Renderer:      renderer,
		Notifications: app.notifications,
		Charts: console.ChartOptions{
			Theme:      cfg.Charts.Theme,
			AssetsHost: cfg.Charts.AssetsHost,
			Cache:      console.NewChartCache(cfg.Charts.CacheTTL),
		},
		BasePath: cfg.Server.BasePath,
	})
	app.refresher = console.NewRefresher(app.console, console.RefresherOptions{
		InitialDelay: cfg.Console.RefreshDelay,
		Interval:     cfg.Console.RefreshInterval,
		Telemetry:    telemetry,
	})
	app.handlers = app.buildHandlers()
	return app, nil
}

func (a *App) storeOrMemory(scope string) console.KeyValueStore {
	if a.db == nil {
		return console.NewMemoryStore()
	}
	return a.db.Scope(scope)
}

// authenticator accepts the configured bcrypt hash and, when enabled, the
// backend's own login check.
func (a *App) authenticator() console.Authenticator {
	var auths []console.Authenticator
	if a.cfg.Auth.PasswordHash != "" {
		auths = append(auths, console.HashAuthenticator{Hash: a.cfg.Auth.PasswordHash})
	}
	if a.cfg.Auth.BackendLogin && a.client != nil {
		auths = append(auths, console.AuthenticatorFunc(a.client.Authenticate))
	}
	return console.FirstOf(auths...)
}

func (a *App) buildHandlers() *httpapi.Handlers {
	t := a.telemetry
	return &httpapi.Handlers{
		Update:        commands.NewUpdateRecordCommand(a.console, t),
		CycleStatus:   commands.NewCycleStatusCommand(a.console, t),
		Delete:        commands.NewDeleteRecordCommand(a.console, t),
		Refresh:       commands.NewRefreshCommand(a.console, t),
		SaveSettings:  commands.NewSaveSettingsCommand(a.console, t),
		ResetVisitors: commands.NewResetVisitorsCommand(a.console, t),
		Login:         commands.NewLoginCommand(a.webGate, t),
		Logout:        commands.NewLogoutCommand(a.webGate, t),
		Table:         queries.NewTableQuery(a.console),
		Stats:         queries.NewStatsQuery(a.console),
		SettingsForm:  queries.NewSettingsFormQuery(a.console),
		Export:        queries.NewExportQuery(a.console),
		Pages:         a.controller,
		Auth:          a.webGate,
		Events:        a.events,
		BasePath:      a.cfg.Server.BasePath,
	}
}

// Console returns the wired console.
func (a *App) Console() *console.Console { return a.console }

// Gate returns the CLI gate backed by the local store.
func (a *App) Gate() *console.Gate { return a.gate }

// Controller returns the page controller.
func (a *App) Controller() *console.Controller { return a.controller }

// Notifications returns the notification center.
func (a *App) Notifications() *console.NotificationCenter { return a.notifications }

// Events returns the broadcast hook fed by the console and notifications.
func (a *App) Events() *console.BroadcastHook { return a.events }

// Refresher returns the auto-refresh loop.
func (a *App) Refresher() *console.Refresher { return a.refresher }

// Handlers returns the HTTP handlers shared by the chi and go-router surfaces.
func (a *App) Handlers() *httpapi.Handlers { return a.handlers }

// Logger returns the application logger.
func (a *App) Logger() zerolog.Logger { return a.logger }

// Backend returns the REST client, or nil when an API override was supplied.
func (a *App) Backend() *backend.Client { return a.client }

// Activity returns the persisted activity log, or nil without a database.
func (a *App) Activity() *storage.ActivityLog {
	if a.db == nil {
		return nil
	}
	return a.db.Activity()
}

// Landing builds a landing client and tracker over the same backend and stores.
func (a *App) Landing() (*landing.Client, *landing.Tracker, error) {
	if a.client == nil {
		return nil, nil, errors.New("admin: landing flows need the backend client")
	}
	client, err := landing.NewClient(landing.Options{
		Backend:    a.client,
		LocalStore: a.local,
		Telemetry:  a.telemetry,
		PaymentURL: a.cfg.Landing.PaymentURL,
	})
	if err != nil {
		return nil, nil, err
	}
	tracker, err := landing.NewTracker(landing.TrackerOptions{
		Backend:      a.client,
		LocalStore:   a.local,
		SessionStore: a.session,
		Telemetry:    a.telemetry,
		Debounce:     a.cfg.Landing.TrackDebounce,
	})
	if err != nil {
		return nil, nil, err
	}
	return client, tracker, nil
}

// Bootstrap runs the first synchronization pass.
func (a *App) Bootstrap(ctx context.Context) console.LoadReport {
	return a.console.LoadAll(ctx)
}

// HTTPHandler returns the chi web console with cookie sessions and request
// logging.
func (a *App) HTTPHandler() http.Handler {
	path := a.cfg.Server.BasePath
	if path == "" {
		path = "/"
	}
	store := httpapi.NewCookieStore(httpapi.SessionOptions{
		Key:    a.cfg.SessionKey(),
		MaxAge: a.cfg.Auth.SessionMaxAge,
		Path:   path,
	})
	return httpapi.NewRouter(a.handlers, httpapi.RouterOptions{
		Sessions:   store,
		Middleware: []func(http.Handler) http.Handler{logging.RequestLogger(a.logger)},
	})
}

// ServeFiber mounts the console on a go-router fiber adapter and serves it.
// Requests authenticate with "Authorization: Bearer <password>".
func (a *App) ServeFiber(addr string) error {
	server := router.NewFiberAdapter()
	err := gorouter.Register(gorouter.Config[*fiber.App]{
		Router:    server.Router(),
		Handlers:  a.handlers,
		Broadcast: a.events,
		Authorize: a.bearerAuthorizer(),
		BasePath:  a.cfg.Server.BasePath,
	})
	if err != nil {
		return err
	}
	a.logger.Info().Str("addr", addr).Str("adapter", "fiber").Msg("serving console")
	return server.Serve(addr)
}

func (a *App) bearerAuthorizer() gorouter.Authorizer {
	return func(ctx router.Context) bool {
		header := ctx.Header("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			return false
		}
		accepted, err := a.auth.Authenticate(ctx.Context(), token)
		if err != nil {
			a.telemetry.Record(ctx.Context(), "admin.auth.error", map[string]any{"error": err.Error()})
		}
		return accepted
	}
}

// Close stops background work and releases the database.
func (a *App) Close() error {
	a.refresher.Stop()
	a.notifications.Stop()
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}
