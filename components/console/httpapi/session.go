package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"

	"github.com/goliatone/go-gmarup-admin/components/console"
)

const (
	// DefaultSessionName is the cookie holding the operator session.
	DefaultSessionName = "gmarup-admin"

	isAuthKey = "is_authenticated"
)

var errNoSession = errors.New("httpapi: no session in context")

// SessionOptions configures the cookie store.
type SessionOptions struct {
	Key    []byte
	Name   string
	MaxAge int
	Secure bool
	Path   string
}

// NewCookieStore builds a signed cookie store. Without a key an ephemeral
// one is generated, so sessions do not survive a restart.
func NewCookieStore(opts SessionOptions) *sessions.CookieStore {
	key := opts.Key
	if len(key) == 0 {
		key = securecookie.GenerateRandomKey(32)
	}
	store := sessions.NewCookieStore(key)
	path := opts.Path
	if path == "" {
		path = "/"
	}
	store.Options = &sessions.Options{
		Path:     path,
		MaxAge:   opts.MaxAge,
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

type sessionScope struct {
	session *sessions.Session
	w       http.ResponseWriter
	r       *http.Request
}

type sessionScopeKey struct{}

// LoadSession attaches the request's cookie session to the context so a
// SessionValues store can read and write it.
func LoadSession(store sessions.Store, name string) func(http.Handler) http.Handler {
	if name == "" {
		name = DefaultSessionName
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// A cookie signed with an old key decodes with an error but still
			// yields a fresh session.
			sess, _ := store.Get(r, name)
			if sess == nil {
				next.ServeHTTP(w, r)
				return
			}
			scope := &sessionScope{session: sess, w: w, r: r}
			ctx := context.WithValue(r.Context(), sessionScopeKey{}, scope)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func scopeFrom(ctx context.Context) (*sessionScope, bool) {
	scope, ok := ctx.Value(sessionScopeKey{}).(*sessionScope)
	return scope, ok && scope != nil
}

// SessionValues is a console.KeyValueStore over the cookie session found in
// the request context. The gate flag is stored as is_authenticated.
type SessionValues struct{}

var _ console.KeyValueStore = SessionValues{}

func sessionField(key string) string {
	if key == console.KeyAuthToken {
		return isAuthKey
	}
	return key
}

func (SessionValues) Get(ctx context.Context, key string) (string, bool, error) {
	scope, ok := scopeFrom(ctx)
	if !ok {
		return "", false, nil
	}
	value, ok := scope.session.Values[sessionField(key)].(string)
	return value, ok, nil
}

func (SessionValues) Set(ctx context.Context, key, value string) error {
	scope, ok := scopeFrom(ctx)
	if !ok {
		return errNoSession
	}
	scope.session.Values[sessionField(key)] = value
	return scope.session.Save(scope.r, scope.w)
}

func (SessionValues) Delete(ctx context.Context, key string) error {
	scope, ok := scopeFrom(ctx)
	if !ok {
		return errNoSession
	}
	delete(scope.session.Values, sessionField(key))
	return scope.session.Save(scope.r, scope.w)
}
