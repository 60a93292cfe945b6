package console

import (
	"context"
	"sync"
	"time"
)

const (
	DefaultRefreshDelay    = 500 * time.Millisecond
	DefaultRefreshInterval = 30 * time.Second
)

// Loader runs one synchronization pass.
type Loader interface {
	LoadAll(ctx context.Context) LoadReport
}

// RefresherOptions configures a Refresher.
type RefresherOptions struct {
	InitialDelay time.Duration
	Interval     time.Duration
	OnLoad       func(LoadReport)
	Telemetry    Telemetry
}

// Refresher runs a Loader once after InitialDelay and then every Interval
// until stopped. Passes never overlap.
type Refresher struct {
	loader Loader
	opts   RefresherOptions

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewRefresher builds a stopped refresher.
func NewRefresher(loader Loader, opts RefresherOptions) *Refresher {
	if opts.InitialDelay <= 0 {
		opts.InitialDelay = DefaultRefreshDelay
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultRefreshInterval
	}
	opts.Telemetry = normalizeTelemetry(opts.Telemetry)
	return &Refresher{loader: loader, opts: opts}
}

// Start launches the loop. It reports false when already running.
func (r *Refresher) Start(ctx context.Context) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		return false
	}
	loopCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})
	go r.run(loopCtx, r.done)
	r.opts.Telemetry.Record(ctx, "console.refresher.start", map[string]any{
		"initial_delay": r.opts.InitialDelay.String(),
		"interval":      r.opts.Interval.String(),
	})
	return true
}

// Stop cancels the loop and waits for an in-flight pass to finish. Calling it
// on a stopped refresher is a no-op.
func (r *Refresher) Stop() {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.cancel, r.done = nil, nil
	r.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
	r.opts.Telemetry.Record(context.Background(), "console.refresher.stop", nil)
}

// Running reports whether the loop is active.
func (r *Refresher) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cancel != nil
}

func (r *Refresher) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	timer := time.NewTimer(r.opts.InitialDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return
	case <-timer.C:
	}
	r.pass(ctx)

	ticker := time.NewTicker(r.opts.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.pass(ctx)
		}
	}
}

func (r *Refresher) pass(ctx context.Context) {
	report := r.loader.LoadAll(ctx)
	if r.opts.OnLoad != nil {
		r.opts.OnLoad(report)
	}
}
