package console

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const authenticatedToken = "authenticated"

// Authenticator checks an operator password.
type Authenticator interface {
	Authenticate(ctx context.Context, password string) (bool, error)
}

// AuthenticatorFunc adapts a function to Authenticator.
type AuthenticatorFunc func(ctx context.Context, password string) (bool, error)

func (f AuthenticatorFunc) Authenticate(ctx context.Context, password string) (bool, error) {
	return f(ctx, password)
}

// HashAuthenticator compares against a bcrypt hash.
type HashAuthenticator struct {
	Hash string
}

func (h HashAuthenticator) Authenticate(_ context.Context, password string) (bool, error) {
	if h.Hash == "" {
		return false, nil
	}
	err := bcrypt.CompareHashAndPassword([]byte(h.Hash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("console: compare password hash: %w", err)
	}
	return true, nil
}

// HashPassword returns a bcrypt hash suitable for HashAuthenticator.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrInvalidPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("console: hash password: %w", err)
	}
	return string(hash), nil
}

// FirstOf accepts the password when any authenticator accepts it. Errors from
// earlier authenticators are returned only when none accepted.
func FirstOf(auths ...Authenticator) Authenticator {
	return AuthenticatorFunc(func(ctx context.Context, password string) (bool, error) {
		var errs []error
		for _, a := range auths {
			if a == nil {
				continue
			}
			ok, err := a.Authenticate(ctx, password)
			if ok {
				return true, nil
			}
			if err != nil {
				errs = append(errs, err)
			}
		}
		return false, errors.Join(errs...)
	})
}

// Gate keeps the logged-in flag in a KeyValueStore.
type Gate struct {
	store     KeyValueStore
	auth      Authenticator
	notifier  Notifier
	telemetry Telemetry
	locale    string
}

// GateOptions configures a Gate.
type GateOptions struct {
	Store         KeyValueStore
	Authenticator Authenticator
	Notifier      Notifier
	Telemetry     Telemetry
	Locale        string
}

// NewGate builds a Gate. Without an authenticator every login is refused.
func NewGate(opts GateOptions) *Gate {
	if opts.Store == nil {
		opts.Store = NewMemoryStore()
	}
	if opts.Authenticator == nil {
		opts.Authenticator = HashAuthenticator{}
	}
	if opts.Notifier == nil {
		opts.Notifier = noopNotifier{}
	}
	return &Gate{
		store:     opts.Store,
		auth:      opts.Authenticator,
		notifier:  opts.Notifier,
		telemetry: normalizeTelemetry(opts.Telemetry),
		locale:    opts.Locale,
	}
}

// Authenticated reports whether the stored flag is set.
func (g *Gate) Authenticated(ctx context.Context) bool {
	value, ok, err := g.store.Get(ctx, KeyAuthToken)
	if err != nil {
		g.telemetry.Record(ctx, "console.session.store_error", map[string]any{"error": err.Error()})
		return false
	}
	return ok && value == authenticatedToken
}

// Login sets the flag when password is accepted.
func (g *Gate) Login(ctx context.Context, password string) error {
	ok, err := g.auth.Authenticate(ctx, password)
	if err != nil {
		g.telemetry.Record(ctx, "console.session.auth_error", map[string]any{"error": err.Error()})
	}
	if !ok {
		g.notifier.Notify(ctx, NotificationError, message(g.locale, msgLoginFailed))
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidPassword, err)
		}
		return ErrInvalidPassword
	}
	if err := g.store.Set(ctx, KeyAuthToken, authenticatedToken); err != nil {
		return fmt.Errorf("console: store session: %w", err)
	}
	g.notifier.Notify(ctx, NotificationSuccess, message(g.locale, msgLoggedIn))
	g.telemetry.Record(ctx, "console.session.login", nil)
	return nil
}

// Logout clears the flag.
func (g *Gate) Logout(ctx context.Context) error {
	if err := g.store.Delete(ctx, KeyAuthToken); err != nil {
		return fmt.Errorf("console: clear session: %w", err)
	}
	g.notifier.Notify(ctx, NotificationInfo, message(g.locale, msgLoggedOut))
	g.telemetry.Record(ctx, "console.session.logout", nil)
	return nil
}

// Require returns ErrNotAuthenticated unless the flag is set.
func (g *Gate) Require(ctx context.Context) error {
	if !g.Authenticated(ctx) {
		return ErrNotAuthenticated
	}
	return nil
}
