// Package maintenance runs the notifier's scheduled housekeeping jobs.
package maintenance

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/charlesng35/notifier/internal/monitoring"
	"github.com/charlesng35/notifier/pkg/logger"
	"github.com/charlesng35/notifier/pkg/metrics"
)

const (
	JobArchiveReconcile = "archive_reconcile"
	JobCachePurge       = "cache_purge"

	defaultArchiveSpec = "@every 15m"
	defaultPurgeSpec   = "@hourly"
	defaultJobTimeout  = time.Minute
)

// ArchiveReconciler removes live notifications already present in the archive.
type ArchiveReconciler interface {
	DeleteArchivedDuplicates(ctx context.Context) (int64, error)
}

// ExpiringCache drops cache entries past their expiry.
type ExpiringCache interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

type job struct {
	name     string
	schedule string
	run      func(ctx context.Context) (int64, error)
}

// Reconciler schedules maintenance jobs on a cron and tracks their outcomes.
type Reconciler struct {
	cron    *cron.Cron
	jobs    []job
	timeout time.Duration
	now     func() time.Time
	log     *zap.Logger

	archive     ArchiveReconciler
	archiveSpec string
	cache       ExpiringCache
	purgeSpec   string

	mu   sync.Mutex
	runs map[string]*monitoring.JobRun
}

// Option customises the Reconciler.
type Option func(*Reconciler)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(r *Reconciler) {
		if c != nil {
			r.cron = c
		}
	}
}

// WithNow overrides the clock recorded against job runs.
func WithNow(now func() time.Time) Option {
	return func(r *Reconciler) {
		if now != nil {
			r.now = now
		}
	}
}

// WithJobTimeout bounds a single job execution.
func WithJobTimeout(timeout time.Duration) Option {
	return func(r *Reconciler) {
		if timeout > 0 {
			r.timeout = timeout
		}
	}
}

// WithArchiveReconciliation enables the archive duplicate sweep on spec.
func WithArchiveReconciliation(store ArchiveReconciler, spec string) Option {
	return func(r *Reconciler) {
		r.archive = store
		if spec != "" {
			r.archiveSpec = spec
		}
	}
}

// WithCachePurge enables purging of expired cache entries on spec.
func WithCachePurge(cache ExpiringCache, spec string) Option {
	return func(r *Reconciler) {
		r.cache = cache
		if spec != "" {
			r.purgeSpec = spec
		}
	}
}

// NewReconciler constructs a Reconciler. Jobs whose dependency was not
// supplied are never scheduled.
func NewReconciler(opts ...Option) *Reconciler {
	r := &Reconciler{
		timeout:     defaultJobTimeout,
		now:         time.Now,
		archiveSpec: defaultArchiveSpec,
		purgeSpec:   defaultPurgeSpec,
		log:         logger.WithModule("maintenance"),
		runs:        make(map[string]*monitoring.JobRun),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.cron == nil {
		r.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	if r.archive != nil {
		r.jobs = append(r.jobs, job{name: JobArchiveReconcile, schedule: r.archiveSpec, run: r.archive.DeleteArchivedDuplicates})
	}
	if r.cache != nil {
		r.jobs = append(r.jobs, job{name: JobCachePurge, schedule: r.purgeSpec, run: r.cache.PurgeExpired})
	}
	for _, j := range r.jobs {
		r.runs[j.name] = &monitoring.JobRun{Job: j.name}
	}
	return r
}

// Start registers the jobs with the scheduler and launches it.
func (r *Reconciler) Start() error {
	if len(r.jobs) == 0 {
		return nil
	}
	for _, j := range r.jobs {
		if _, err := r.cron.AddFunc(j.schedule, func() {
			_ = r.execute(context.Background(), j)
		}); err != nil {
			return fmt.Errorf("maintenance: schedule %s: %w", j.name, err)
		}
	}
	r.cron.Start()
	return nil
}

// Stop halts the scheduler; the returned context is done once running jobs finish.
func (r *Reconciler) Stop() context.Context {
	return r.cron.Stop()
}

// RunOnce executes every job sequentially and returns their combined errors.
func (r *Reconciler) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	var errs error
	for _, j := range r.jobs {
		errs = multierr.Append(errs, r.execute(ctx, j))
	}
	return errs
}

// Runs returns the outcome history of every job, ordered by name.
func (r *Reconciler) Runs() []monitoring.JobRun {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]monitoring.JobRun, 0, len(r.runs))
	for _, run := range r.runs {
		out = append(out, *run)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].Job < out[k].Job })
	return out
}

func (r *Reconciler) execute(ctx context.Context, j job) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	affected, err := j.run(ctx)
	r.record(j.name, err)

	fields := []zap.Field{zap.String("job", j.name), zap.Duration("duration", time.Since(start))}
	if err != nil {
		metrics.MaintenanceRuns.WithLabelValues(j.name, "failure").Inc()
		r.log.Warn("maintenance job failed", append(fields, zap.Error(err))...)
		return fmt.Errorf("maintenance: %s: %w", j.name, err)
	}
	metrics.MaintenanceRuns.WithLabelValues(j.name, "success").Inc()
	if affected > 0 {
		r.log.Info("maintenance job removed rows", append(fields, zap.Int64("rows", affected))...)
	}
	return nil
}

func (r *Reconciler) record(name string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	run := r.runs[name]
	run.Runs++
	run.LastRunAt = r.now().UTC()
	if err != nil {
		run.ConsecutiveFailures++
		run.LastError = err.Error()
		return
	}
	run.ConsecutiveFailures = 0
	run.LastError = ""
}
