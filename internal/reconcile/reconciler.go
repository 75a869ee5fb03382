package reconcile

import (
	"context"
	"fmt"
	"log/slog"

	"clippy/internal/backend"
	"clippy/internal/jobs"
	"clippy/internal/logging"
)

// Reconciler cross-checks locally cached jobs against the backend's
// authoritative queue on startup.
type Reconciler struct {
	store  *jobs.Store
	client backend.Client
	logger *slog.Logger
}

// New constructs a reconciler.
func New(store *jobs.Store, client backend.Client, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Reconciler{
		store:  store,
		client: client,
		logger: logger.With(logging.String(logging.FieldComponent, "reconciler")),
	}
}

// Run prunes cached jobs that finished and were already cleaned up
// server-side: a local job in a terminal state whose backend ids no longer
// appear in the authoritative snapshot is stale and is removed. Non-terminal
// jobs are never touched; an absent backend record may simply not have
// reported yet, so they stay visible until an event resolves them or the
// user removes them.
func (r *Reconciler) Run(ctx context.Context) error {
	snapshot, err := r.client.QueueSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("fetch queue snapshot: %w", err)
	}

	known := make(map[string]struct{}, len(snapshot))
	for _, entry := range snapshot {
		known[entry.ID] = struct{}{}
	}

	pruned := 0
	for _, job := range r.store.List() {
		if !job.OverallStatus().IsTerminal() {
			continue
		}
		if backendTracked(job, known) {
			continue
		}
		if r.store.Remove(ctx, job.ID) {
			pruned++
			r.logger.Info("pruned stale cached job",
				logging.String(logging.FieldJobID, job.ID),
				logging.String("status", string(job.OverallStatus())))
		}
	}

	r.logger.Info("reconciliation complete",
		logging.Int("backend_jobs", len(snapshot)),
		logging.Int("pruned", pruned))
	return nil
}

// backendTracked reports whether any of the job's backend ids still appear
// in the authoritative snapshot. Jobs never submitted have no backend ids
// and are always considered tracked; they are local-only state.
func backendTracked(job *jobs.Job, known map[string]struct{}) bool {
	hasBinding := false
	for _, task := range job.Tasks {
		if task.BackendJobID == "" {
			continue
		}
		hasBinding = true
		if _, ok := known[task.BackendJobID]; ok {
			return true
		}
	}
	return !hasBinding
}
