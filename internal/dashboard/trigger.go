package dashboard

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	appLog "devdash/internal/log"
	"devdash/internal/store"
)

// Debouncer coalesces bursts of Trigger calls into one call of fn, run
// once delay has passed without a new Trigger.
type Debouncer struct {
	mu      sync.Mutex
	delay   time.Duration
	fn      func()
	timer   *time.Timer
	stopped bool
}

func NewDebouncer(delay time.Duration, fn func()) *Debouncer {
	return &Debouncer{delay: delay, fn: fn}
}

func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, d.fn)
}

// Stop drops a pending call; later Triggers are ignored.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
}

// cronLogger routes cron's own messages to the application log.
type cronLogger struct{}

func (cronLogger) Info(msg string, kv ...any) {
	appLog.Debug("cron: "+msg, kv...)
}

func (cronLogger) Error(err error, msg string, kv ...any) {
	appLog.Error("cron: "+msg, err, kv...)
}

// Scheduler fires job on a cron schedule.
type Scheduler struct {
	c *cron.Cron
}

// NewScheduler parses schedule (standard fields or descriptors such as
// "@every 5m") and schedules job in loc.
func NewScheduler(schedule string, loc *time.Location, job func()) (*Scheduler, error) {
	if loc == nil {
		loc = time.Local
	}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(cronLogger{}),
		cron.WithChain(cron.Recover(cronLogger{})),
	)
	if _, err := c.AddFunc(schedule, job); err != nil {
		return nil, fmt.Errorf("refresh schedule %q: %w", schedule, err)
	}
	return &Scheduler{c: c}, nil
}

func (s *Scheduler) Start() { s.c.Start() }

// Stop halts the schedule and waits for a running job to return.
func (s *Scheduler) Stop() {
	<-s.c.Stop().Done()
}

// Triggers for the refresh_total metric.
const (
	TriggerStartup   = "startup"
	TriggerTimer     = "timer"
	TriggerDebounced = "debounced"
	TriggerDemo      = "demo"
	TriggerOnce      = "once"
)

// Runtime drives a Dashboard from the timer, debounced requests and
// immediate requests. All three call the same Refresh with no mutual
// exclusion.
type Runtime struct {
	ctx      context.Context
	dash     *Dashboard
	debounce *Debouncer
	sched    *Scheduler

	mu      sync.Mutex
	stopped bool
	wg      sync.WaitGroup
}

// NewRuntime prepares a runtime; nothing fires until Start.
func NewRuntime(ctx context.Context, dash *Dashboard, debounce time.Duration, schedule string, loc *time.Location) (*Runtime, error) {
	r := &Runtime{ctx: ctx, dash: dash}
	r.debounce = NewDebouncer(debounce, func() { r.refresh(TriggerDebounced) })
	sched, err := NewScheduler(schedule, loc, func() { r.refresh(TriggerTimer) })
	if err != nil {
		return nil, err
	}
	r.sched = sched
	return r, nil
}

func (r *Runtime) Dashboard() *Dashboard { return r.dash }

// Start requests the initial refresh and starts the timer.
func (r *Runtime) Start() {
	r.debounce.Trigger()
	r.sched.Start()
}

// RequestRefresh asks for a debounced refresh.
func (r *Runtime) RequestRefresh() {
	r.debounce.Trigger()
}

// RefreshNow starts a refresh immediately without waiting for it.
func (r *Runtime) RefreshNow(trigger string) {
	if !r.begin() {
		return
	}
	go func() {
		defer r.wg.Done()
		r.dash.Refresh(r.ctx, trigger)
	}()
}

// SettingsChanged reacts to edited settings: a demo mode flip repaints at
// once, anything else goes through the debouncer.
func (r *Runtime) SettingsChanged(keys []string) {
	if slices.Contains(keys, store.KeyDemoMode) {
		r.RefreshNow(TriggerDemo)
		return
	}
	r.RequestRefresh()
}

// begin registers a cycle with Stop. It reports false once Stop has run.
func (r *Runtime) begin() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return false
	}
	r.wg.Add(1)
	return true
}

func (r *Runtime) refresh(trigger string) {
	if !r.begin() {
		return
	}
	defer r.wg.Done()
	if r.ctx.Err() != nil {
		return
	}
	r.dash.Refresh(r.ctx, trigger)
}

// Stop halts the timer and the debouncer, then waits for running cycles.
func (r *Runtime) Stop() {
	r.mu.Lock()
	r.stopped = true
	r.mu.Unlock()

	r.debounce.Stop()
	r.sched.Stop()
	r.wg.Wait()
}
