package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-gmarup-admin/components/console"
	"github.com/goliatone/go-gmarup-admin/pkg/config"
	"github.com/goliatone/go-gmarup-admin/pkg/fakeapi"
	"github.com/goliatone/go-gmarup-admin/pkg/logging"
)

func newTestApp(t *testing.T, mutate func(*config.Config)) (*App, *fakeapi.Server) {
	t.Helper()
	now := time.Now()
	srv := fakeapi.New(fakeapi.Options{AdminPassword: "backend-secret", Seed: fakeapi.DemoSeed(now)})
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	cfg := config.Default()
	cfg.Backend.BaseURL = ts.URL
	cfg.Storage.Path = filepath.Join(t.TempDir(), "state.db")
	cfg.Console.Timezone = "UTC"
	if mutate != nil {
		mutate(&cfg)
	}
	logger := logging.Nop()
	app, err := New(cfg, Options{Logger: &logger})
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })
	return app, srv
}

func TestBootstrapLoadsEveryCollection(t *testing.T) {
	app, srv := newTestApp(t, nil)

	report := app.Bootstrap(context.Background())
	require.NoError(t, report.Err())
	assert.Equal(t, console.SettingsFromServer, report.SettingsOrigin)

	stats := app.Console().Stats()
	assert.Equal(t, len(srv.Registrations()), stats.TotalRegistrations)
	assert.NotNil(t, app.Backend())
	assert.NotNil(t, app.Handlers().Pages)
}

func TestDeletePersistsActivity(t *testing.T) {
	app, srv := newTestApp(t, nil)
	ctx := context.Background()
	require.NoError(t, app.Bootstrap(ctx).Err())

	require.NoError(t, app.Console().Delete(ctx, console.CollectionRegistrations, "1"))
	assert.Len(t, srv.Registrations(), 2)

	entries, err := app.Activity().Recent(ctx, 5)
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	assert.Equal(t, "registration.delete", entries[0].Verb)
	assert.Equal(t, "1", entries[0].ObjectID)
}

func TestMemoryStoresWithoutDatabase(t *testing.T) {
	app, _ := newTestApp(t, func(cfg *config.Config) { cfg.Storage.Path = "" })
	assert.Nil(t, app.Activity())

	ctx := context.Background()
	assert.False(t, app.Gate().Authenticated(ctx))
}

func TestBackendLoginFallback(t *testing.T) {
	app, _ := newTestApp(t, func(cfg *config.Config) { cfg.Auth.BackendLogin = true })
	ctx := context.Background()

	require.Error(t, app.Gate().Login(ctx, "wrong"))
	require.NoError(t, app.Gate().Login(ctx, "backend-secret"))
	assert.True(t, app.Gate().Authenticated(ctx))
}

func TestHTTPHandlerSessionFlow(t *testing.T) {
	hash, err := console.HashPassword("letmein")
	require.NoError(t, err)
	app, _ := newTestApp(t, func(cfg *config.Config) {
		cfg.Auth.PasswordHash = hash
		cfg.Auth.SessionSecret = "0123456789abcdef0123456789abcdef"
	})
	require.NoError(t, app.Bootstrap(context.Background()).Err())

	ts := httptest.NewServer(app.HTTPHandler())
	t.Cleanup(ts.Close)
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	res, err := client.Get(ts.URL + "/api/stats")
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)

	res, err = client.PostForm(ts.URL+"/login", url.Values{"password": {"letmein"}})
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusSeeOther, res.StatusCode)
	assert.Equal(t, "/", res.Header.Get("Location"))

	res, err = client.Get(ts.URL + "/api/stats")
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	var stats console.Stats
	require.NoError(t, json.NewDecoder(res.Body).Decode(&stats))
	assert.Equal(t, 3, stats.TotalRegistrations)
}

func TestLandingSharesBackend(t *testing.T) {
	app, _ := newTestApp(t, nil)
	client, tracker, err := app.Landing()
	require.NoError(t, err)
	assert.NotNil(t, client)
	assert.NotNil(t, tracker)
}
