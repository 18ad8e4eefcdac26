// Package setup performs and records a single rapidapi-setup run.
package setup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/mehrshud/rapidapi-setup/internal/pkginfo"
	"github.com/mehrshud/rapidapi-setup/internal/store"
)

// orphanAge is how long a run may stay in the running state before another
// invocation treats it as left behind by a killed process.
const orphanAge = 10 * time.Minute

// Runner validates the package descriptor and records each invocation in
// the run ledger.
type Runner struct {
	store      *store.Store
	descriptor *pkginfo.Descriptor
	logger     *slog.Logger
	now        func() time.Time
	newID      func() string
}

// New creates a Runner. A nil logger falls back to slog.Default().
func New(s *store.Store, d *pkginfo.Descriptor, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		store:      s,
		descriptor: d,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
		newID:      func() string { return uuid.New().String() },
	}
}

// Run records exactly one run. A run whose checks fail is still recorded,
// with status failed, and the check error is returned alongside it.
func (r *Runner) Run(ctx context.Context) (*store.Run, error) {
	now := r.now()
	if closed, err := r.store.CloseOrphanedRuns(now.Add(-orphanAge), now); err != nil {
		r.logger.Warn("Failed to close orphaned runs", "error", err)
	} else if closed > 0 {
		r.logger.Info("Closed orphaned runs", "count", closed)
	}

	id := r.newID()
	if err := r.store.CreateRun(id, r.now(), r.descriptor.Version); err != nil {
		return nil, fmt.Errorf("setup: failed to create run: %w", err)
	}
	r.logger.Info("Setup started", "run_id", id, "package", r.descriptor.Name, "version", r.descriptor.Version)

	checkErr := r.check(ctx)

	status := store.StatusSucceeded
	if checkErr != nil {
		status = store.StatusFailed
		r.logger.Error("Setup failed", "run_id", id, "error", checkErr)
	}
	if err := r.store.FinishRun(id, r.now(), status, checkErr); err != nil {
		return nil, fmt.Errorf("setup: failed to finish run: %w", err)
	}

	run, err := r.store.GetRun(id)
	if err != nil {
		return nil, fmt.Errorf("setup: %w", err)
	}
	if checkErr != nil {
		return run, checkErr
	}

	r.logger.Info("Setup complete", "run_id", id, "requires", r.descriptor.RequirementNames())
	return run, nil
}

func (r *Runner) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("setup: %w", err)
	}
	if err := r.descriptor.Validate(); err != nil {
		return err
	}
	for name, mod := range r.descriptor.Go() {
		if mod == "" {
			r.logger.Warn("Requirement has no Go counterpart", "requirement", name)
			continue
		}
		r.logger.Debug("Requirement resolved", "requirement", name, "module", mod)
	}
	return nil
}
