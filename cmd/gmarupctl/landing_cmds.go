package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/goliatone/go-gmarup-admin/pkg/fakeapi"
	"github.com/goliatone/go-gmarup-admin/pkg/landing"
	"github.com/goliatone/go-gmarup-admin/pkg/logging"
)

type pingCmd struct{}

func (cmd *pingCmd) Run(ctx context.Context, g *Globals) error {
	app, err := g.open()
	if err != nil {
		return err
	}
	defer app.Close()
	if app.Backend() == nil {
		return errors.New("gmarupctl: no backend configured")
	}
	health, err := app.Backend().Ping(ctx)
	if err != nil {
		return err
	}
	if g.JSON {
		return g.printJSON(health)
	}
	fmt.Fprintf(g.out, "✓ %s: %d registrations, %d donations (server time %s)\n",
		app.Backend().BaseURL(), health.Stats.Registrations, health.Stats.Donations, health.Stats.ServerTime)
	return nil
}

type registerCmd struct {
	Name     string `required:"" help:"Full name."`
	Email    string `required:"" help:"Email address."`
	Phone    string `required:"" help:"Israeli phone number."`
	Level    string `help:"Study level as typed on the form."`
	Consent  bool   `help:"The visitor agreed to email updates."`
	Source   string `help:"Traffic source. Derived from --page-url and --referrer when empty."`
	PageURL  string `name:"page-url" help:"Landing page URL with utm parameters."`
	Referrer string `help:"Document referrer."`
}

func (cmd *registerCmd) Run(ctx context.Context, g *Globals) error {
	app, err := g.open()
	if err != nil {
		return err
	}
	defer app.Close()
	client, tracker, err := app.Landing()
	if err != nil {
		return err
	}
	defer tracker.Stop()

	source := cmd.Source
	if source == "" {
		source = landing.TrafficSource(cmd.PageURL, cmd.Referrer)
	}
	res, err := client.Register(ctx, landing.RegistrationForm{
		FullName:     cmd.Name,
		Email:        cmd.Email,
		Phone:        cmd.Phone,
		StudyLevel:   cmd.Level,
		EmailConsent: cmd.Consent,
	}, source)
	if err != nil {
		var invalid *landing.ValidationError
		if errors.As(err, &invalid) {
			for field, problem := range invalid.Fields {
				fmt.Fprintf(g.out, "! %s: %s\n", field, problem)
			}
		}
		return err
	}
	if err := tracker.Track(ctx, landing.Event{Category: "conversion", Action: "registration", Label: source, URL: cmd.PageURL}); err != nil {
		logger := app.Logger()
		logger.Warn().Err(err).Msg("track registration")
	}
	fmt.Fprintf(g.out, "✓ registered #%s %s\n", res.RegistrationID, res.Message)
	return nil
}

type donateCmd struct {
	Amount  float64 `arg:"" help:"Amount in shekels."`
	Name    string  `help:"Donor name. Omit all donor fields to donate anonymously."`
	Email   string  `help:"Donor email."`
	Phone   string  `help:"Donor phone."`
	Message string  `help:"Dedication or message."`
	Source  string  `default:"website" help:"Where the donation started."`
}

func (cmd *donateCmd) Run(ctx context.Context, g *Globals) error {
	app, err := g.open()
	if err != nil {
		return err
	}
	defer app.Close()
	client, tracker, err := app.Landing()
	if err != nil {
		return err
	}
	defer tracker.Stop()

	link, err := client.Donate(ctx, landing.Donation{
		Amount:  cmd.Amount,
		Name:    cmd.Name,
		Email:   cmd.Email,
		Phone:   cmd.Phone,
		Message: cmd.Message,
		Source:  cmd.Source,
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(g.out, link)
	return nil
}

type mockAPICmd struct {
	Addr       string `default:":5000" help:"Listen address."`
	AdminPass  string `name:"admin-password" default:"admin" env:"GMARUP_MOCK_PASSWORD" help:"Password accepted by the admin login endpoint."`
	PaymentURL string `name:"payment-url" help:"Payment link returned by donate."`
	Empty      bool   `help:"Start without demo data."`
}

func (cmd *mockAPICmd) Run(ctx context.Context, g *Globals) error {
	cfg, err := g.config()
	if err != nil {
		return err
	}
	logger := logging.NewLogger(logging.Config{Level: cfg.Log.Level, Development: cfg.Log.Development})
	opts := fakeapi.Options{AdminPassword: cmd.AdminPass, PaymentURL: cmd.PaymentURL, Logger: &logger}
	if !cmd.Empty {
		opts.Seed = fakeapi.DemoSeed(time.Now())
	}
	srv := &http.Server{
		Addr:              cmd.Addr,
		Handler:           logging.RequestLogger(logger)(fakeapi.New(opts).Handler()),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cmd.Addr).Msg("mock backend listening")
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
