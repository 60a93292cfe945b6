package gorouter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	router "github.com/goliatone/go-router"

	"github.com/goliatone/go-gmarup-admin/components/console"
	"github.com/goliatone/go-gmarup-admin/components/console/commands"
	"github.com/goliatone/go-gmarup-admin/components/console/httpapi"
	"github.com/goliatone/go-gmarup-admin/components/console/queries"
)

// Authorizer decides whether a request may reach the console. Hosts using
// go-router normally authenticate upstream and leave markers in Locals.
type Authorizer func(router.Context) bool

// ActorResolver names the operator behind a request for activity records.
type ActorResolver func(router.Context) string

// Config wires go-router with the console handlers and event hook.
type Config[T any] struct {
	Router    router.Router[T]
	Handlers  *httpapi.Handlers
	Broadcast *console.BroadcastHook
	Authorize Authorizer
	Actor     ActorResolver
	BasePath  string
	Routes    RouteConfig
}

// RouteConfig customizes the relative paths used for console endpoints.
type RouteConfig struct {
	HTML       string
	Table      string
	Stats      string
	Settings   string
	Refresh    string
	Record     string
	ExportCSV  string
	ExportJSON string
	WebSocket  string
}

// registrar is the part of router.Router the console registers on.
type registrar interface {
	Get(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Post(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Delete(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	WebSocket(path string, cfg router.WebSocketConfig, handler func(router.WebSocketContext) error) router.RouteInfo
}

// requestContext is the part of router.Context the handlers use.
type requestContext interface {
	Context() context.Context
	SetHeader(string, string) router.Context
	Send([]byte) error
	JSON(int, any) error
	Body() []byte
	Param(name string, defaultValue ...string) string
	Query(name string, defaultValue ...string) string
}

// Register mounts the console routes (HTML, JSON, exports, WebSocket) on a
// go-router router.
func Register[T any](cfg Config[T]) error {
	if cfg.Router == nil {
		return errors.New("gorouter: router is required")
	}
	if cfg.Handlers == nil || cfg.Handlers.Pages == nil {
		return errors.New("gorouter: handlers with pages are required")
	}
	base := cfg.BasePath
	if base == "" {
		base = "/admin"
	}
	group := cfg.Router.Group(base)
	m := &mount{
		api:       cfg.Handlers,
		authorize: cfg.Authorize,
		actor:     cfg.Actor,
	}
	m.register(group, defaultRouteConfig(cfg.Routes), cfg.Broadcast)
	return nil
}

type mount struct {
	api       *httpapi.Handlers
	authorize Authorizer
	actor     ActorResolver
}

func (m *mount) register(r registrar, routes RouteConfig, hook *console.BroadcastHook) {
	r.Get(routes.HTML, m.wrap(m.dashboard))
	r.Get(routes.Table, m.wrap(m.table))
	r.Get(routes.Stats, m.wrap(m.stats))
	r.Get(routes.Settings, m.wrap(m.settingsForm))
	r.Post(routes.Settings, m.wrap(m.saveSettings))
	r.Post(routes.Refresh, m.wrap(m.refresh))
	r.Post(routes.Record, m.wrap(m.updateRecord))
	r.Delete(routes.Record, m.wrap(m.deleteRecord))
	r.Get(routes.ExportCSV, m.wrap(m.exportCSV))
	r.Get(routes.ExportJSON, m.wrap(m.exportJSON))
	if hook != nil {
		registerWebSocket(r, hook, routes.WebSocket)
	}
}

type handler func(ctx requestContext, actor string) error

func (m *mount) wrap(h handler) router.HandlerFunc {
	return router.WrapHandler(func(ctx router.Context) error {
		if m.authorize != nil && !m.authorize(ctx) {
			return respondError(ctx, console.ErrNotAuthenticated)
		}
		actor := "operator"
		if m.actor != nil {
			if resolved := m.actor(ctx); resolved != "" {
				actor = resolved
			}
		} else if v, ok := ctx.Locals("user_id").(string); ok && v != "" {
			actor = v
		}
		return h(ctx, actor)
	})
}

func (m *mount) dashboard(ctx requestContext, _ string) error {
	section := console.CollectionRegistrations
	if name := ctx.Query("section"); name != "" {
		parsed, err := console.ParseCollection(name)
		if err != nil {
			return respondError(ctx, err)
		}
		section = parsed
	}
	var buf bytes.Buffer
	if err := m.api.Pages.RenderDashboard(ctx.Context(), &buf, section, criteria(ctx)); err != nil {
		return respondError(ctx, err)
	}
	ctx.SetHeader("Content-Type", "text/html; charset=utf-8")
	return ctx.Send(buf.Bytes())
}

func (m *mount) table(ctx requestContext, _ string) error {
	if m.api.Table == nil {
		return respondStatus(ctx, http.StatusNotImplemented, errors.New("table query not configured"))
	}
	view, err := m.api.Table.Query(ctx.Context(), queries.TableInput{Collection: ctx.Param("collection"), Criteria: criteria(ctx)})
	if err != nil {
		return respondError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, view)
}

func (m *mount) stats(ctx requestContext, _ string) error {
	if m.api.Stats == nil {
		return respondStatus(ctx, http.StatusNotImplemented, errors.New("stats query not configured"))
	}
	stats, err := m.api.Stats.Query(ctx.Context(), struct{}{})
	if err != nil {
		return respondError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, stats)
}

func (m *mount) settingsForm(ctx requestContext, _ string) error {
	if m.api.SettingsForm == nil {
		return respondStatus(ctx, http.StatusNotImplemented, errors.New("settings query not configured"))
	}
	form, err := m.api.SettingsForm.Query(ctx.Context(), struct{}{})
	if err != nil {
		return respondError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, form)
}

func (m *mount) saveSettings(ctx requestContext, actor string) error {
	var settings console.Settings
	if err := json.Unmarshal(ctx.Body(), &settings); err != nil {
		return respondStatus(ctx, http.StatusBadRequest, err)
	}
	if err := m.api.SaveSettings.Execute(ctx.Context(), commands.SaveSettingsInput{Settings: settings, ActorID: actor}); err != nil {
		return respondError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, map[string]any{"success": true})
}

func (m *mount) refresh(ctx requestContext, _ string) error {
	input := commands.RefreshInput{Collection: ctx.Query("collection")}
	if err := m.api.Refresh.Execute(ctx.Context(), input); err != nil {
		return ctx.JSON(http.StatusAccepted, map[string]any{"success": false, "error": err.Error()})
	}
	return ctx.JSON(http.StatusAccepted, map[string]any{"success": true})
}

func (m *mount) updateRecord(ctx requestContext, actor string) error {
	var payload commands.UpdateRecordInput
	if err := json.Unmarshal(ctx.Body(), &payload); err != nil {
		return respondStatus(ctx, http.StatusBadRequest, err)
	}
	payload.Collection, payload.ID, payload.ActorID = ctx.Param("collection"), ctx.Param("id"), actor
	if err := m.api.Update.Execute(ctx.Context(), payload); err != nil {
		return respondError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, map[string]any{"success": true})
}

func (m *mount) deleteRecord(ctx requestContext, actor string) error {
	input := commands.DeleteRecordInput{Collection: ctx.Param("collection"), ID: ctx.Param("id"), ActorID: actor}
	if input.ID == "" {
		return respondStatus(ctx, http.StatusBadRequest, errors.New("record id is required"))
	}
	if err := m.api.Delete.Execute(ctx.Context(), input); err != nil {
		return respondError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, map[string]any{"success": true})
}

func (m *mount) exportCSV(ctx requestContext, _ string) error {
	return m.export(ctx, strings.TrimSuffix(ctx.Param("collection"), ".csv"))
}

func (m *mount) exportJSON(ctx requestContext, _ string) error {
	return m.export(ctx, "")
}

func (m *mount) export(ctx requestContext, collection string) error {
	out, err := m.api.Export.Query(ctx.Context(), queries.ExportInput{Collection: collection})
	if err != nil {
		return respondError(ctx, err)
	}
	ctx.SetHeader("Content-Type", out.ContentType)
	ctx.SetHeader("Content-Disposition", `attachment; filename="`+out.Filename+`"`)
	return ctx.Send(out.Data)
}

func registerWebSocket(r registrar, hook *console.BroadcastHook, path string) {
	cfg := router.DefaultWebSocketConfig()
	r.WebSocket(path, cfg, func(ws router.WebSocketContext) error {
		events, cancel := hook.Subscribe()
		defer cancel()
		for {
			select {
			case event, ok := <-events:
				if !ok {
					return nil
				}
				if err := ws.WriteJSON(event); err != nil {
					return err
				}
			case <-ws.Context().Done():
				return ws.Close()
			}
		}
	})
}

func criteria(ctx requestContext) console.Criteria {
	return console.Criteria{
		Status: ctx.Query("status"),
		Source: ctx.Query("source"),
		Text:   ctx.Query("q"),
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, console.ErrNotAuthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, console.ErrUnknownCollection), errors.Is(err, console.ErrRecordNotFound), errors.Is(err, console.ErrNothingToExport):
		return http.StatusNotFound
	case errors.Is(err, console.ErrReadOnly):
		return http.StatusMethodNotAllowed
	default:
		return http.StatusInternalServerError
	}
}

func respondError(ctx requestContext, err error) error {
	return respondStatus(ctx, statusFor(err), err)
}

func respondStatus(ctx requestContext, status int, err error) error {
	return ctx.JSON(status, map[string]any{"success": false, "error": err.Error()})
}

func defaultRouteConfig(routes RouteConfig) RouteConfig {
	if routes.HTML == "" {
		routes.HTML = "/gmarup"
	}
	if routes.Table == "" {
		routes.Table = "/gmarup/api/views/:collection"
	}
	if routes.Stats == "" {
		routes.Stats = "/gmarup/api/stats"
	}
	if routes.Settings == "" {
		routes.Settings = "/gmarup/api/settings"
	}
	if routes.Refresh == "" {
		routes.Refresh = "/gmarup/api/refresh"
	}
	if routes.Record == "" {
		routes.Record = "/gmarup/api/records/:collection/:id"
	}
	if routes.ExportCSV == "" {
		routes.ExportCSV = "/gmarup/export/:collection"
	}
	if routes.ExportJSON == "" {
		routes.ExportJSON = "/gmarup/export.json"
	}
	if routes.WebSocket == "" {
		routes.WebSocket = "/gmarup/ws"
	}
	return routes
}
