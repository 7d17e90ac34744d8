// Package refresh keeps the parsed events of every configured calendar
// current, on demand and on a cron schedule.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"hospcal/internal/config"
	"hospcal/internal/ics"
	appLog "hospcal/internal/log"
)

// Snapshot is the result of the most recent refresh.
type Snapshot struct {
	Events    []ics.ParsedEvent
	Errors    map[string]string // calendar ID -> last error
	Sources   int
	UpdatedAt time.Time
}

// Refresher fetches and parses all sources and publishes the outcome as a
// Snapshot. It is safe for concurrent use; refreshes run one at a time.
type Refresher struct {
	fetcher *ics.Fetcher
	sources []ics.Source
	loc     *time.Location

	runMu sync.Mutex

	mu        sync.RWMutex
	snap      Snapshot
	listeners []func(Snapshot)
}

// New creates a Refresher. loc is the zone cron schedules are evaluated in;
// nil means time.Local.
func New(fetcher *ics.Fetcher, sources []ics.Source, loc *time.Location) *Refresher {
	if loc == nil {
		loc = time.Local
	}
	return &Refresher{
		fetcher: fetcher,
		sources: sources,
		loc:     loc,
		snap:    Snapshot{Errors: map[string]string{}},
	}
}

// SourcesFromConfig converts calendar config entries into fetch sources.
func SourcesFromConfig(cals []config.CalendarConfig) []ics.Source {
	out := make([]ics.Source, 0, len(cals))
	for _, c := range cals {
		if c.URL == "" {
			continue
		}
		out = append(out, ics.Source{ID: c.ID, URL: c.URL, Charset: c.Charset})
	}
	return out
}

// OnRefresh registers fn to run after every completed refresh.
func (r *Refresher) OnRefresh(fn func(Snapshot)) {
	r.mu.Lock()
	r.listeners = append(r.listeners, fn)
	r.mu.Unlock()
}

// Snapshot returns the latest published snapshot.
func (r *Refresher) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snap
}

// Refresh fetches and parses every source. A failed source keeps the events
// of the previous snapshot. The returned error is non-nil only when every
// source failed.
func (r *Refresher) Refresh(ctx context.Context) (Snapshot, error) {
	r.runMu.Lock()
	defer r.runMu.Unlock()

	prev := r.Snapshot()
	next := Snapshot{
		Errors:  make(map[string]string),
		Sources: len(r.sources),
	}

	results, fetchErrs := r.fetcher.FetchAll(ctx, r.sources)

	var failed []string
	for _, src := range r.sources {
		if err, ok := fetchErrs[src.ID]; ok {
			next.Errors[src.ID] = err.Error()
			failed = append(failed, src.ID)
		}
	}

	for _, res := range results {
		events, err := ics.ParseICS(res.Source, res.Body)
		if err != nil {
			next.Errors[res.Source.ID] = err.Error()
			failed = append(failed, res.Source.ID)
			continue
		}
		next.Events = append(next.Events, events...)
	}

	if len(failed) > 0 {
		keep := make(map[string]bool, len(failed))
		for _, id := range failed {
			keep[id] = true
		}
		for _, ev := range prev.Events {
			if keep[ev.Source.ID] {
				next.Events = append(next.Events, ev)
			}
		}
	}

	next.UpdatedAt = time.Now()

	r.mu.Lock()
	r.snap = next
	listeners := append([]func(Snapshot){}, r.listeners...)
	r.mu.Unlock()

	for _, fn := range listeners {
		fn(next)
	}

	appLog.Info("refresh completed",
		"sources", next.Sources,
		"failed", len(failed),
		"events", len(next.Events),
	)

	if len(r.sources) > 0 && len(failed) == len(r.sources) {
		errs := make([]error, 0, len(failed))
		for _, id := range failed {
			errs = append(errs, fmt.Errorf("calendar %s: %s", id, next.Errors[id]))
		}
		return next, errors.Join(errs...)
	}
	return next, nil
}

// Start runs Refresh on the cron spec until ctx is done. Runs that would
// overlap a still running refresh are skipped.
func (r *Refresher) Start(ctx context.Context, spec string) error {
	logger := cronLogger{}
	c := cron.New(
		cron.WithLocation(r.loc),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)

	if _, err := c.AddFunc(spec, func() {
		if _, err := r.Refresh(ctx); err != nil {
			appLog.Error("scheduled refresh failed", err)
		}
	}); err != nil {
		return fmt.Errorf("refresh schedule %q: %w", spec, err)
	}

	c.Start()
	appLog.Info("refresh scheduler started", "spec", spec, "timezone", r.loc.String())

	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
		appLog.Info("refresh scheduler stopped")
	}()
	return nil
}

// cronLogger routes cron's own logging into the application logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	appLog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	appLog.Error("cron: "+msg, err, keysAndValues...)
}
