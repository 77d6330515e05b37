// Package runner executes one weekly scheduling run end to end.
package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/arnavshah/oh-scheduler-go/internal/optimizer"
	"github.com/arnavshah/oh-scheduler-go/internal/state"
	"github.com/arnavshah/oh-scheduler-go/pkg/blobstore"
	"github.com/arnavshah/oh-scheduler-go/pkg/config"
	"github.com/arnavshah/oh-scheduler-go/pkg/database"
	"github.com/arnavshah/oh-scheduler-go/pkg/grid"
	"github.com/arnavshah/oh-scheduler-go/pkg/ingest"
	"github.com/arnavshah/oh-scheduler-go/pkg/lease"
	"github.com/arnavshah/oh-scheduler-go/pkg/logger"
	"github.com/arnavshah/oh-scheduler-go/pkg/metrics"
	"github.com/arnavshah/oh-scheduler-go/pkg/notify"
	"github.com/arnavshah/oh-scheduler-go/pkg/observability"
	"github.com/arnavshah/oh-scheduler-go/pkg/report"
)

// ErrNotify wraps invite failures. The week is already persisted when it
// is returned.
var ErrNotify = errors.New("notification failed")

// Settings are the per-section knobs of a run.
type Settings struct {
	Prefix         string
	Chain          state.ChainConfig
	Optimizer      optimizer.Config
	LeaseTTL       time.Duration
	StartDate      string
	NotifyParallel int
}

// SettingsFrom extracts run settings from a loaded config.
func SettingsFrom(cfg *config.Config) Settings {
	return Settings{
		Prefix:         cfg.Prefix(),
		Chain:          cfg.ChainConfig(),
		Optimizer:      cfg.Optimizer,
		LeaseTTL:       cfg.Lease.TTL,
		StartDate:      cfg.StartDate,
		NotifyParallel: cfg.Calendar.Parallel,
	}
}

// Deps are the collaborators of a run. Sink and DB may be nil.
type Deps struct {
	Store   blobstore.Store
	Locker  lease.Locker
	Source  ingest.Source
	Sink    notify.Sink
	DB      *gorm.DB
	Metrics metrics.Recorder
	Log     *logger.Logger
	Tracer  trace.Tracer
}

// Runner schedules the next week of one section.
type Runner struct {
	settings Settings
	deps     Deps
	now      func() time.Time
}

func New(settings Settings, deps Deps) *Runner {
	if deps.Metrics == nil {
		deps.Metrics = metrics.Nop{}
	}
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}
	if deps.Tracer == nil {
		deps.Tracer = observability.Tracer()
	}
	return &Runner{settings: settings, deps: deps, now: time.Now}
}

func (r *Runner) Settings() Settings { return r.settings }

// Outcome describes a finished run.
type Outcome struct {
	RunID    string            `json:"run_id"`
	Week     int               `json:"week"`
	DryRun   bool              `json:"dry_run"`
	Result   *optimizer.Result `json:"result"`
	Report   *report.Report    `json:"report"`
	Emails   []string          `json:"emails"`
	Written  []int             `json:"written,omitempty"`
	Notified int               `json:"notified"`
}

// RunWeek schedules, commits and persists the next week, then sends
// invites. The chain prefix is leased for the whole run.
func (r *Runner) RunWeek(ctx context.Context) (*Outcome, error) {
	return r.run(ctx, false)
}

// Preview solves the next week without committing, persisting or notifying.
func (r *Runner) Preview(ctx context.Context) (*Outcome, error) {
	return r.run(ctx, true)
}

func (r *Runner) run(ctx context.Context, dryRun bool) (out *Outcome, err error) {
	start := time.Now()
	out = &Outcome{RunID: uuid.NewString(), DryRun: dryRun}
	log := r.deps.Log.With("run_id", out.RunID, "prefix", r.settings.Prefix, "dry_run", dryRun)

	ctx, span := r.deps.Tracer.Start(ctx, "run", trace.WithAttributes(
		attribute.String("prefix", r.settings.Prefix),
		attribute.Bool("dry_run", dryRun),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		r.finish(ctx, log, out, err, time.Since(start))
	}()

	var held *lease.Lease
	if !dryRun {
		l, err := r.deps.Locker.Acquire(ctx, r.settings.Prefix, r.settings.LeaseTTL)
		if err != nil {
			return out, fmt.Errorf("lease %s: %w", r.settings.Prefix, err)
		}
		held = l
		defer func() {
			if rerr := l.Release(context.WithoutCancel(ctx)); rerr != nil {
				log.Warn("lease release failed", "error", rerr)
			}
		}()
	}

	chain, err := state.Load(ctx, r.deps.Store, r.settings.Prefix, r.settings.Chain)
	if err != nil {
		return out, fmt.Errorf("load chain: %w", err)
	}
	out.Week = chain.NextWeek()
	log = log.With("week", out.Week)

	snap, err := r.ingest(ctx)
	if err != nil {
		return out, err
	}

	draft, err := chain.Extend(snap.Demand, snap.Rows)
	if err != nil {
		return out, fmt.Errorf("extend chain: %w", err)
	}
	in, err := draft.Inputs()
	if err != nil {
		return out, fmt.Errorf("derive inputs: %w", err)
	}
	out.Emails = draft.State().Emails()
	log.Info("solving", "staff", in.StaffCount(), "day_one", in.CohortSize(), "weeks_left", len(in.FutureDemand))

	res, err := r.solve(ctx, in)
	if err != nil {
		return out, err
	}
	out.Result = res
	out.Report = r.buildReport(draft.State(), in, res.Assignment)

	if dryRun {
		return out, nil
	}

	if err := draft.Commit(res.Assignment); err != nil {
		return out, fmt.Errorf("commit week %d: %w", out.Week, err)
	}
	if _, err := draft.Freeze(); err != nil {
		return out, fmt.Errorf("freeze week %d: %w", out.Week, err)
	}

	// Past expiry another run may hold the prefix.
	if !r.now().Before(held.Expires) {
		return out, fmt.Errorf("persist week %d: %w", out.Week, lease.ErrLeaseLost)
	}
	out.Written, err = r.persist(ctx, chain)
	if err != nil {
		return out, err
	}
	log.Info("week persisted", "written", out.Written)

	if r.deps.Sink != nil {
		out.Notified, err = r.notify(ctx, out.Week, out.Emails, res.Assignment)
		if err != nil {
			return out, err
		}
	}
	return out, nil
}

func (r *Runner) ingest(ctx context.Context) (*ingest.Snapshot, error) {
	ctx, span := r.deps.Tracer.Start(ctx, "ingest")
	defer span.End()
	snap, err := ingest.Load(ctx, r.deps.Source, r.settings.Chain.WeeksTotal)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("ingest: %w", err)
	}
	span.SetAttributes(attribute.Int("rows", len(snap.Rows)))
	return snap, nil
}

func (r *Runner) solve(ctx context.Context, in *optimizer.Inputs) (*optimizer.Result, error) {
	ctx, span := r.deps.Tracer.Start(ctx, "solve", trace.WithAttributes(attribute.Int("staff", in.StaffCount())))
	defer span.End()
	res, err := optimizer.Solve(ctx, in, r.settings.Optimizer)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("passes", res.Passes),
		attribute.Float64("objective", res.Objective.Total),
	)
	r.deps.Metrics.SolveObserved(res.Elapsed, res.Objective.Total)
	return res, nil
}

func (r *Runner) persist(ctx context.Context, chain *state.Chain) ([]int, error) {
	ctx, span := r.deps.Tracer.Start(ctx, "persist")
	defer span.End()
	written, err := state.Save(ctx, r.deps.Store, r.settings.Prefix, chain)
	if err != nil {
		span.RecordError(err)
		return written, fmt.Errorf("persist: %w", err)
	}
	return written, nil
}

func (r *Runner) notify(ctx context.Context, week int, emails []string, assignment []grid.Grid) (int, error) {
	ctx, span := r.deps.Tracer.Start(ctx, "notify")
	defer span.End()
	weekStart, err := notify.WeekStart(r.settings.StartDate, week, r.settings.Chain.WeeksSkipped)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrNotify, err)
	}
	sent, err := notify.Dispatch(ctx, r.deps.Sink, emails, assignment, weekStart, r.settings.NotifyParallel)
	span.SetAttributes(attribute.Int("sent", sent))
	if err != nil {
		span.RecordError(err)
		return sent, fmt.Errorf("%w: %w", ErrNotify, err)
	}
	return sent, nil
}

// statusOf labels a run for metrics and history.
func statusOf(err error) string {
	if err == nil {
		return string(optimizer.StatusSolved)
	}
	if s := optimizer.StatusOf(err); s != "" {
		return string(s)
	}
	if errors.Is(err, lease.ErrLeaseHeld) {
		return "locked"
	}
	if errors.Is(err, lease.ErrLeaseLost) || errors.Is(err, state.ErrConflict) {
		return "conflict"
	}
	if errors.Is(err, ErrNotify) {
		return "notify_failed"
	}
	return "error"
}

// finish records metrics, logs the outcome and writes the run record.
func (r *Runner) finish(ctx context.Context, log *logger.Logger, out *Outcome, err error, elapsed time.Duration) {
	status := statusOf(err)
	if err == nil && out.Result != nil {
		status = string(out.Result.Status)
	}
	staff := len(out.Emails)
	r.deps.Metrics.RunFinished(status, staff)

	rec := database.RunRecord{
		ID:         out.RunID,
		Prefix:     r.settings.Prefix,
		Week:       out.Week,
		Status:     status,
		DryRun:     out.DryRun,
		StaffCount: staff,
		DurationMS: elapsed.Milliseconds(),
	}
	if out.Result != nil {
		rec.Objective = out.Result.Objective.Total
		rec.Gap = out.Result.Gap
		rec.Passes = out.Result.Passes
	}
	if err != nil {
		rec.Error = err.Error()
		log.Error("run failed", "status", status, "error", err)
	} else {
		log.Info("run finished", "status", status, "elapsed", elapsed)
	}

	if r.deps.DB == nil {
		return
	}
	if dberr := r.deps.DB.WithContext(context.WithoutCancel(ctx)).Create(&rec).Error; dberr != nil {
		log.Warn("could not record run", "error", dberr)
	}
}
