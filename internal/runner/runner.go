// Package runner drives a resumable, time-boxed, rate-limited batch job over
// a persisted row set.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"RefScreener/internal/ports"
)

// Config bounds one runner invocation.
type Config struct {
	// Limit is the maximum number of pending rows per ProcessBatch call.
	Limit int
	// Pause is the fixed interval between rows, respecting provider rate
	// limits.
	Pause time.Duration
	// TimeBudget is the wall-clock budget of one ProcessBatch call.
	TimeBudget time.Duration
	// SafetyMargin stops the batch early: no new row starts once the
	// remaining budget falls below it.
	SafetyMargin time.Duration
	// AllBudget is the outer budget of the ProcessAll supervisory loop.
	AllBudget time.Duration
}

// DefaultConfig mirrors the pacing the public providers tolerate.
func DefaultConfig() Config {
	return Config{
		Limit:        25,
		Pause:        2 * time.Second,
		TimeBudget:   5 * time.Minute,
		SafetyMargin: 30 * time.Second,
		AllBudget:    6 * time.Hour,
	}
}

// Runner processes pending rows sequentially. Sequential processing keeps the
// fixed-delay pacing honest and the pending selection consistent without
// transactional isolation. Two concurrent invocations over one row set may
// still double-process a row; there is no cross-invocation lock.
type Runner struct {
	store    ports.JobStore
	screener ports.Screener
	pace     *rate.Limiter
	cfg      Config
	logger   *slog.Logger
}

// New builds a runner over the given store and screener.
func New(store ports.JobStore, screener ports.Screener, cfg Config, logger *slog.Logger) *Runner {
	def := DefaultConfig()
	if cfg.Limit <= 0 {
		cfg.Limit = def.Limit
	}
	if cfg.Pause <= 0 {
		cfg.Pause = def.Pause
	}
	if cfg.TimeBudget <= 0 {
		cfg.TimeBudget = def.TimeBudget
	}
	if cfg.SafetyMargin <= 0 {
		cfg.SafetyMargin = def.SafetyMargin
	}
	if cfg.AllBudget <= 0 {
		cfg.AllBudget = def.AllBudget
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		store:    store,
		screener: screener,
		pace:     rate.NewLimiter(rate.Every(cfg.Pause), 1),
		cfg:      cfg,
		logger:   logger,
	}
}

// ProcessBatch selects up to Limit pending rows in row order, screens each
// and commits the result before moving on. The budget check gates only
// whether a new row starts; an in-flight screening always runs to completion
// and is committed, so an interrupted invocation is safely resumable by the
// next one. Returns the number of rows committed.
func (r *Runner) ProcessBatch(ctx context.Context) (int, error) {
	runID := uuid.NewString()
	start := time.Now()

	rows, err := r.store.ListPending(ctx, r.cfg.Limit)
	if err != nil {
		return 0, fmt.Errorf("list pending: %w", err)
	}
	r.logger.Info("batch started", "run_id", runID, "pending", len(rows))

	processed := 0
	for _, row := range rows {
		// Non-empty status means already processed. ListPending filters
		// these, but the contract is restated here: never reprocess.
		if !row.Pending() {
			continue
		}

		if time.Since(start) > r.cfg.TimeBudget-r.cfg.SafetyMargin {
			r.logger.Info("budget exhausted, stopping before next row",
				"run_id", runID, "processed", processed, "elapsed", time.Since(start))
			break
		}

		if err := r.pace.Wait(ctx); err != nil {
			return processed, fmt.Errorf("pacing wait: %w", err)
		}

		out := r.screener.Screen(ctx, row.DOI)
		if err := r.store.Commit(ctx, row.DOI, out.Result); err != nil {
			return processed, fmt.Errorf("commit %s: %w", row.DOI, err)
		}
		processed++

		r.logger.Info("row committed",
			"run_id", runID,
			"doi", row.DOI,
			"status", string(out.Result.Status),
			"refs", out.Result.RefsEvaluated,
			"retracted", len(out.Result.RetractedDOIs))
	}

	r.logger.Info("batch finished", "run_id", runID, "processed", processed)
	return processed, nil
}

// ProcessAll repeatedly invokes ProcessBatch until a batch commits zero rows
// or the outer budget runs out. It is a loop over the same idempotent
// primitive, not a separate algorithm.
func (r *Runner) ProcessAll(ctx context.Context) (int, error) {
	start := time.Now()
	total := 0

	for {
		if time.Since(start) > r.cfg.AllBudget {
			r.logger.Info("outer budget exhausted", "processed", total)
			return total, nil
		}

		n, err := r.ProcessBatch(ctx)
		total += n
		if err != nil {
			return total, err
		}
		if n == 0 {
			return total, nil
		}
	}
}
