// Package tracker persists stage outcomes onto the pipeline run row.
// The tracker merges each stage's result into metrics.aird_stages and
// maintains aird_stages_completed; it never flips the run's status on
// its own — the orchestrator owns that.
package tracker

import (
	"context"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/primedata-ai/aird/engine/domain"
	"github.com/primedata-ai/aird/engine/stage"
	"github.com/primedata-ai/aird/pkg/natsutil"
)

// RunStore is the catalog slice the tracker writes through.
type RunStore interface {
	MergeMetrics(ctx context.Context, id, stageName string, stageMetrics map[string]any) error
	AppendCompletedStage(ctx context.Context, id, stageName string) error
	RemoveCompletedStage(ctx context.Context, id, stageName string) error
	SetRunStatus(ctx context.Context, id string, status domain.RunStatus) error
}

// Publisher pushes a stage result to the orchestrator-facing transport.
type Publisher interface {
	PublishStageResult(ctx context.Context, res stage.Result) error
}

// Tracker binds one pipeline run row.
type Tracker struct {
	runID     string
	store     RunStore
	publisher Publisher
	logger    *slog.Logger
}

// New builds a tracker for runID. publisher may be nil when no
// orchestrator transport is connected (local CLI runs).
func New(runID string, store RunStore, publisher Publisher, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{runID: runID, store: store, publisher: publisher, logger: logger}
}

// Record persists one stage result: merge into metrics.aird_stages[name],
// append to aird_stages_completed on success, remove on failure. A
// skipped stage is recorded but neither appended nor removed.
func (t *Tracker) Record(ctx context.Context, res stage.Result) error {
	name := string(res.StageName)
	entry := map[string]any{
		"status":      string(res.Status),
		"started_at":  res.StartedAt.UTC().Format(time.RFC3339),
		"finished_at": res.FinishedAt.UTC().Format(time.RFC3339),
	}
	for k, v := range res.Metrics {
		entry[k] = v
	}
	if res.Error != "" {
		entry["error"] = res.Error
	}
	if len(res.Artifacts) > 0 {
		entry["artifacts"] = res.Artifacts
	}

	if err := t.store.MergeMetrics(ctx, t.runID, name, entry); err != nil {
		return err
	}

	switch res.Status {
	case stage.StatusSucceeded:
		if err := t.store.AppendCompletedStage(ctx, t.runID, name); err != nil {
			return err
		}
	case stage.StatusFailed:
		if err := t.store.RemoveCompletedStage(ctx, t.runID, name); err != nil {
			return err
		}
	}

	if t.publisher != nil {
		if err := t.publisher.PublishStageResult(ctx, res); err != nil {
			// The run row is the source of truth; a transport hiccup is
			// logged, not fatal.
			t.logger.Warn("tracker: publish stage result", "stage", name, "err", err)
		}
	}
	return nil
}

// Finish transitions the run to its terminal status on behalf of the
// orchestrator.
func (t *Tracker) Finish(ctx context.Context, status domain.RunStatus) error {
	return t.store.SetRunStatus(ctx, t.runID, status)
}

// NATSPublisher publishes stage results to aird.stage.result.{stage}.
type NATSPublisher struct {
	Conn *nats.Conn
}

// StageResultSubject is the subject family the orchestrator subscribes to.
func StageResultSubject(name stage.Name) string {
	return "aird.stage.result." + string(name)
}

func (p *NATSPublisher) PublishStageResult(ctx context.Context, res stage.Result) error {
	return natsutil.Publish(ctx, p.Conn, StageResultSubject(res.StageName), res)
}
