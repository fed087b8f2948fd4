package subscription

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"props-bible/core/store"
	"props-bible/core/utils"

	"github.com/robfig/cron/v3"
)

// Reconciler periodically rebuilds usage counters from the resource tables.
type Reconciler struct {
	svc      *Service
	users    store.UsersStore
	schedule cron.Schedule
	logger   *utils.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	cancel  context.CancelFunc
	running bool

	obs reconcilerObs
}

type ReconcileResult struct {
	Owners  int `json:"owners"`
	Changed int `json:"changed"`
	Errors  int `json:"errors"`
}

type ReconcilerStats struct {
	TicksTotal      uint64     `json:"ticks_total"`
	TickErrorsTotal uint64     `json:"tick_errors_total"`
	LastTickAtUTC   *time.Time `json:"last_tick_at_utc,omitempty"`
}

type reconcilerObs struct {
	ticks      atomic.Uint64
	tickErrors atomic.Uint64
	lastTickNs atomic.Int64
}

func (o *reconcilerObs) recordTick(now time.Time, err error) {
	o.ticks.Add(1)
	if err != nil {
		o.tickErrors.Add(1)
	}
	o.lastTickNs.Store(now.UTC().UnixNano())
}

// NewReconciler parses spec as a standard cron expression or descriptor ("@every 1h").
func NewReconciler(svc *Service, users store.UsersStore, spec string, logger *utils.Logger) (*Reconciler, error) {
	if spec == "" {
		spec = "@every 1h"
	}
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("reconcile schedule %q: %w", spec, err)
	}
	return &Reconciler{svc: svc, users: users, schedule: schedule, logger: logger}, nil
}

func (r *Reconciler) StartWithContext(ctx context.Context) {
	if r == nil || r.svc == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	c := cron.New()
	c.Schedule(r.schedule, cron.FuncJob(func() {
		_, _ = r.RunOnce(runCtx, time.Now().UTC())
	}))
	c.Start()
	r.cron = c
	r.cancel = cancel
	r.running = true
}

func (r *Reconciler) StopWithContext(ctx context.Context) error {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	if !r.running || r.cron == nil {
		r.mu.Unlock()
		return nil
	}
	c, cancel := r.cron, r.cancel
	r.cron, r.cancel = nil, nil
	r.mu.Unlock()
	cancel()
	done := c.Stop()
	select {
	case <-done.Done():
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce recounts every user; a failing owner does not stop the sweep.
func (r *Reconciler) RunOnce(ctx context.Context, now time.Time) (ReconcileResult, error) {
	var res ReconcileResult
	ids, err := r.users.ListOwnerIDs(ctx)
	if err != nil {
		r.obs.recordTick(now, err)
		r.logError("list owners", err)
		return res, err
	}
	var lastErr error
	for _, id := range ids {
		if ctx.Err() != nil {
			lastErr = ctx.Err()
			break
		}
		before, err := r.svc.counters.ListByUser(ctx, id)
		if err != nil {
			res.Errors++
			lastErr = err
			continue
		}
		after, err := r.svc.Recount(ctx, id)
		if err != nil {
			res.Errors++
			lastErr = err
			r.logError("recount", err)
			continue
		}
		res.Owners++
		if countersDiffer(before, after) {
			res.Changed++
		}
	}
	r.obs.recordTick(now, lastErr)
	if r.logger != nil && res.Changed > 0 {
		r.logger.Printf("counters reconciled owners=%d changed=%d errors=%d", res.Owners, res.Changed, res.Errors)
	}
	return res, lastErr
}

func countersDiffer(before, after []store.Counter) bool {
	type key struct {
		resource string
		scope    int64
	}
	prev := map[key]int{}
	for _, c := range before {
		if c.Count != 0 {
			prev[key{c.Resource, c.ScopeID}] = c.Count
		}
	}
	nonZero := 0
	for _, c := range after {
		if c.Count == 0 {
			continue
		}
		nonZero++
		if prev[key{c.Resource, c.ScopeID}] != c.Count {
			return true
		}
	}
	return nonZero != len(prev)
}

func (r *Reconciler) StatsSnapshot() ReconcilerStats {
	if r == nil {
		return ReconcilerStats{}
	}
	ns := r.obs.lastTickNs.Load()
	var last *time.Time
	if ns > 0 {
		t := time.Unix(0, ns).UTC()
		last = &t
	}
	return ReconcilerStats{
		TicksTotal:      r.obs.ticks.Load(),
		TickErrorsTotal: r.obs.tickErrors.Load(),
		LastTickAtUTC:   last,
	}
}

func (r *Reconciler) logError(scope string, err error) {
	if r.logger == nil || err == nil {
		return
	}
	r.logger.Errorf("reconciler %s: %v", scope, err)
}
