// Package dashboard runs the refresh cycle: every binding is fetched
// concurrently, optionally redacted, and painted into its own region.
package dashboard

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	appLog "devdash/internal/log"
	"devdash/internal/metrics"
	"devdash/internal/model"
	"devdash/internal/redact"
	"devdash/internal/render"
	"devdash/internal/source"
	"devdash/internal/store"
)

// Binding ties a source adapter to its display region. Bindings are fixed
// at startup; display order is declaration order.
type Binding struct {
	ID      string
	Label   string
	Adapter source.Adapter
}

// Snapshotter yields a consistent copy of the settings.
type Snapshotter interface {
	Snapshot() store.Snapshot
}

// Options tunes a Dashboard. Zero values are usable.
type Options struct {
	Location *time.Location
	// StaleGuard drops paints from a cycle older than the region's last.
	StaleGuard bool
	// FetchTimeout bounds each adapter call; zero means no extra bound.
	FetchTimeout time.Duration
	Redactor     *redact.Redactor
	Metrics      *metrics.Metrics
	Now          func() time.Time
}

// Dashboard owns the bindings and the board they paint.
type Dashboard struct {
	bindings []Binding
	settings Snapshotter
	board    *render.Board
	opts     Options

	gen atomic.Uint64
}

func New(bindings []Binding, settings Snapshotter, opts Options) *Dashboard {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Redactor == nil {
		opts.Redactor = redact.NewRandom()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	specs := make([]render.Spec, 0, len(bindings))
	for _, b := range bindings {
		specs = append(specs, render.Spec{ID: b.ID, Label: b.Label})
	}
	return &Dashboard{
		bindings: bindings,
		settings: settings,
		board:    render.NewBoard(opts.StaleGuard, specs...),
		opts:     opts,
	}
}

func (d *Dashboard) Board() *render.Board { return d.board }

func (d *Dashboard) Bindings() []Binding {
	return append([]Binding(nil), d.bindings...)
}

// Refresh runs one cycle and returns when every binding has painted. It
// never fails: a binding's error is painted into that binding's region.
// Overlapping calls are allowed and are not cancelled by each other.
func (d *Dashboard) Refresh(ctx context.Context, trigger string) {
	gen := d.gen.Add(1)
	cycle := uuid.NewString()
	snap := d.settings.Snapshot()
	demo := snap.Bool(store.KeyDemoMode)

	d.opts.Metrics.ObserveRefresh(trigger)
	appLog.Info("refresh start", "cycle", cycle, "gen", gen, "trigger", trigger, "demo", demo, "bindings", len(d.bindings))
	start := time.Now()

	var wg sync.WaitGroup
	for _, b := range d.bindings {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.run(ctx, cycle, gen, b, snap, demo)
		}()
	}
	wg.Wait()

	appLog.Info("refresh done", "cycle", cycle, "gen", gen, "elapsed", time.Since(start))
}

func (d *Dashboard) run(ctx context.Context, cycle string, gen uint64, b Binding, snap store.Snapshot, demo bool) {
	start := time.Now()
	items, err := d.fetch(ctx, b, snap)
	elapsed := time.Since(start)

	if err != nil {
		kind := source.Classify(err)
		d.opts.Metrics.ObserveFetch(b.ID, kind.String(), elapsed)
		if kind == source.KindProvider {
			appLog.Error("fetch failed", err, "cycle", cycle, "binding", b.ID, "elapsed", elapsed)
		} else {
			appLog.Info("fetch needs attention", "cycle", cycle, "binding", b.ID, "kind", kind.String(), "detail", err.Error())
		}
		d.board.Paint(b.ID, gen, func(r render.Region) { render.RenderError(r, err) })
		return
	}

	d.opts.Metrics.ObserveFetch(b.ID, "ok", elapsed)
	if demo {
		items = d.opts.Redactor.Items(items)
	}
	now := d.opts.Now()
	kept := d.board.Paint(b.ID, gen, func(r render.Region) {
		render.RenderItems(r, items, now, d.opts.Location)
	})
	appLog.Debug("fetch ok", "cycle", cycle, "binding", b.ID, "items", len(items), "elapsed", elapsed, "painted", kept)
}

// fetch calls the adapter, turning a panic into an error.
func (d *Dashboard) fetch(ctx context.Context, b Binding, snap store.Snapshot) (items []model.Item, err error) {
	defer func() {
		if r := recover(); r != nil {
			items, err = nil, fmt.Errorf("%s: internal error: %v", b.ID, r)
		}
	}()
	if d.opts.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.opts.FetchTimeout)
		defer cancel()
	}
	if b.Adapter == nil {
		return nil, fmt.Errorf("%s: no adapter", b.ID)
	}
	return b.Adapter.Fetch(ctx, snap)
}
