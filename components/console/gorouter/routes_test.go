package gorouter

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	router "github.com/goliatone/go-router"

	"github.com/goliatone/go-gmarup-admin/components/console"
	"github.com/goliatone/go-gmarup-admin/components/console/commands"
	"github.com/goliatone/go-gmarup-admin/components/console/httpapi"
	"github.com/goliatone/go-gmarup-admin/components/console/queries"
)

func TestRegisterValidatesConfig(t *testing.T) {
	if err := Register(Config[struct{}]{}); err == nil {
		t.Fatalf("expected error when router/handlers missing")
	}
}

func TestMountRegistersRoutes(t *testing.T) {
	reg := newMockRegistrar()
	m := &mount{api: &httpapi.Handlers{Pages: &stubPages{}}}
	m.register(reg, defaultRouteConfig(RouteConfig{}), console.NewBroadcastHook())

	for _, key := range []string{
		"GET:/gmarup",
		"GET:/gmarup/api/views/:collection",
		"GET:/gmarup/api/stats",
		"POST:/gmarup/api/settings",
		"POST:/gmarup/api/records/:collection/:id",
		"DELETE:/gmarup/api/records/:collection/:id",
		"GET:/gmarup/export/:collection",
		"GET:/gmarup/export.json",
	} {
		if _, ok := reg.routes[key]; !ok {
			t.Fatalf("expected route %s to be registered", key)
		}
	}
	if _, ok := reg.ws["/gmarup/ws"]; !ok {
		t.Fatalf("expected websocket route")
	}
}

func TestDashboardHandler(t *testing.T) {
	pages := &stubPages{}
	m := &mount{api: &httpapi.Handlers{Pages: pages}}
	ctx := newMockContext()
	ctx.query["section"] = "analytics"
	ctx.query["q"] = "scroll"

	if err := m.dashboard(ctx, "operator"); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if string(ctx.body) != "dashboard" {
		t.Fatalf("expected rendered body, got %q", ctx.body)
	}
	if pages.section != console.CollectionAnalytics || pages.crit.Text != "scroll" {
		t.Fatalf("unexpected render args %s %+v", pages.section, pages.crit)
	}
	if ctx.headers["Content-Type"] != "text/html; charset=utf-8" {
		t.Fatalf("expected html content type")
	}

	ctx = newMockContext()
	ctx.query["section"] = "widgets"
	_ = m.dashboard(ctx, "operator")
	if ctx.status != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown section, got %d", ctx.status)
	}
}

func TestUpdateRecordHandlerUsesPathAndActor(t *testing.T) {
	update := &stubCommander[commands.UpdateRecordInput]{}
	m := &mount{api: &httpapi.Handlers{Update: update}}
	ctx := newMockContext()
	ctx.params["collection"] = "donations"
	ctx.params["id"] = "DON_1"
	ctx.body = []byte(`{"status":"completed","collection":"ignored"}`)

	if err := m.updateRecord(ctx, "admin@example.com"); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	want := commands.UpdateRecordInput{Collection: "donations", ID: "DON_1", Status: "completed", ActorID: "admin@example.com"}
	if update.last != want {
		t.Fatalf("expected %+v, got %+v", want, update.last)
	}
	if ctx.status != http.StatusOK {
		t.Fatalf("expected 200, got %d", ctx.status)
	}
}

func TestDeleteRecordHandlerMapsNotFound(t *testing.T) {
	del := &stubCommander[commands.DeleteRecordInput]{err: console.ErrRecordNotFound}
	m := &mount{api: &httpapi.Handlers{Delete: del}}
	ctx := newMockContext()
	ctx.params["collection"] = "registrations"
	ctx.params["id"] = "99"

	_ = m.deleteRecord(ctx, "operator")
	if ctx.status != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", ctx.status)
	}
}

func TestExportHandlers(t *testing.T) {
	export := &stubQuerier[queries.ExportInput, console.Export]{result: console.Export{
		Filename:    "gmarup-donations-2024-05-14.csv",
		ContentType: console.ContentTypeCSV,
		Data:        []byte("id\n4\n"),
	}}
	m := &mount{api: &httpapi.Handlers{Export: export}}
	ctx := newMockContext()
	ctx.params["collection"] = "donations.csv"

	if err := m.exportCSV(ctx, "operator"); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if export.last.Collection != "donations" {
		t.Fatalf("expected csv suffix to be trimmed, got %q", export.last.Collection)
	}
	if ctx.headers["Content-Disposition"] != `attachment; filename="gmarup-donations-2024-05-14.csv"` {
		t.Fatalf("unexpected disposition %q", ctx.headers["Content-Disposition"])
	}

	ctx = newMockContext()
	if err := m.exportJSON(ctx, "operator"); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if export.last.Collection != "" {
		t.Fatalf("expected full export, got %q", export.last.Collection)
	}
}

func TestSaveSettingsHandlerRejectsBadJSON(t *testing.T) {
	save := &stubCommander[commands.SaveSettingsInput]{}
	m := &mount{api: &httpapi.Handlers{SaveSettings: save}}
	ctx := newMockContext()
	ctx.body = []byte(`{"site_title":`)

	_ = m.saveSettings(ctx, "operator")
	if ctx.status != http.StatusBadRequest || save.calls != 0 {
		t.Fatalf("expected 400 without execution, got %d (%d calls)", ctx.status, save.calls)
	}
}

// --- Test helpers ---

type mockRegistrar struct {
	routes map[string]router.HandlerFunc
	ws     map[string]func(router.WebSocketContext) error
}

func newMockRegistrar() *mockRegistrar {
	return &mockRegistrar{
		routes: map[string]router.HandlerFunc{},
		ws:     map[string]func(router.WebSocketContext) error{},
	}
}

func (m *mockRegistrar) Get(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo {
	m.routes["GET:"+path] = handler
	return nil
}

func (m *mockRegistrar) Post(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo {
	m.routes["POST:"+path] = handler
	return nil
}

func (m *mockRegistrar) Delete(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo {
	m.routes["DELETE:"+path] = handler
	return nil
}

func (m *mockRegistrar) WebSocket(path string, cfg router.WebSocketConfig, handler func(router.WebSocketContext) error) router.RouteInfo {
	m.ws[path] = handler
	return nil
}

type mockContext struct {
	ctx     context.Context
	headers map[string]string
	params  map[string]string
	query   map[string]string
	body    []byte
	status  int
}

func newMockContext() *mockContext {
	return &mockContext{
		ctx:     context.Background(),
		headers: map[string]string{},
		params:  map[string]string{},
		query:   map[string]string{},
	}
}

func (m *mockContext) Context() context.Context { return m.ctx }

func (m *mockContext) SetHeader(k, v string) router.Context {
	m.headers[k] = v
	return nil
}

func (m *mockContext) Send(b []byte) error {
	m.status = http.StatusOK
	m.body = append([]byte{}, b...)
	return nil
}

func (m *mockContext) JSON(code int, v any) error {
	m.status = code
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	m.body = data
	return nil
}

func (m *mockContext) Body() []byte { return m.body }

func (m *mockContext) Param(name string, defaultValue ...string) string {
	return lookup(m.params, name, defaultValue)
}

func (m *mockContext) Query(name string, defaultValue ...string) string {
	return lookup(m.query, name, defaultValue)
}

func lookup(values map[string]string, name string, defaults []string) string {
	if v, ok := values[name]; ok {
		return v
	}
	if len(defaults) > 0 {
		return defaults[0]
	}
	return ""
}

type stubPages struct {
	section console.Collection
	crit    console.Criteria
}

func (p *stubPages) RenderDashboard(_ context.Context, w io.Writer, section console.Collection, crit console.Criteria) error {
	p.section, p.crit = section, crit
	_, err := io.WriteString(w, "dashboard")
	return err
}

func (p *stubPages) RenderLogin(_ context.Context, w io.Writer, _ bool) error {
	_, err := io.WriteString(w, "login")
	return err
}

type stubCommander[T any] struct {
	last  T
	calls int
	err   error
}

func (s *stubCommander[T]) Execute(_ context.Context, msg T) error {
	s.last = msg
	s.calls++
	return s.err
}

type stubQuerier[T, R any] struct {
	last   T
	result R
	err    error
}

func (s *stubQuerier[T, R]) Query(_ context.Context, msg T) (R, error) {
	s.last = msg
	return s.result, s.err
}
