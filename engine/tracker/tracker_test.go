package tracker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/primedata-ai/aird/engine/domain"
	"github.com/primedata-ai/aird/engine/stage"
)

type fakeRunStore struct {
	merged    map[string]map[string]any
	completed []string
	status    domain.RunStatus
	failMerge bool
}

func newFakeRunStore() *fakeRunStore {
	return &fakeRunStore{merged: map[string]map[string]any{}}
}

func (f *fakeRunStore) MergeMetrics(_ context.Context, _, stageName string, m map[string]any) error {
	if f.failMerge {
		return errors.New("merge failed")
	}
	f.merged[stageName] = m
	return nil
}

func (f *fakeRunStore) AppendCompletedStage(_ context.Context, _, stageName string) error {
	for _, s := range f.completed {
		if s == stageName {
			return nil
		}
	}
	f.completed = append(f.completed, stageName)
	return nil
}

func (f *fakeRunStore) RemoveCompletedStage(_ context.Context, _, stageName string) error {
	out := f.completed[:0]
	for _, s := range f.completed {
		if s != stageName {
			out = append(out, s)
		}
	}
	f.completed = out
	return nil
}

func (f *fakeRunStore) SetRunStatus(_ context.Context, _ string, status domain.RunStatus) error {
	f.status = status
	return nil
}

type fakePublisher struct {
	published []stage.Result
	fail      bool
}

func (f *fakePublisher) PublishStageResult(_ context.Context, res stage.Result) error {
	if f.fail {
		return errors.New("nats down")
	}
	f.published = append(f.published, res)
	return nil
}

func result(name stage.Name, status stage.Status) stage.Result {
	now := time.Now()
	return stage.Result{
		StageName:  name,
		Status:     status,
		ProductID:  "p1",
		Version:    1,
		Metrics:    map[string]any{"total_chunks": 4},
		StartedAt:  now.Add(-time.Second),
		FinishedAt: now,
	}
}

func TestRecordSucceededAppendsStage(t *testing.T) {
	store := newFakeRunStore()
	trk := New("run1", store, nil, nil)

	if err := trk.Record(context.Background(), result(stage.NamePreprocess, stage.StatusSucceeded)); err != nil {
		t.Fatalf("Record: %v", err)
	}
	entry := store.merged["preprocess"]
	if entry == nil || entry["status"] != "succeeded" {
		t.Fatalf("merged entry = %+v", entry)
	}
	if entry["total_chunks"] != 4 {
		t.Fatalf("stage metrics not merged: %+v", entry)
	}
	if len(store.completed) != 1 || store.completed[0] != "preprocess" {
		t.Fatalf("completed = %v", store.completed)
	}
}

func TestRecordFailedRemovesStage(t *testing.T) {
	store := newFakeRunStore()
	trk := New("run1", store, nil, nil)
	ctx := context.Background()

	if err := trk.Record(ctx, result(stage.NameScore, stage.StatusSucceeded)); err != nil {
		t.Fatal(err)
	}
	res := result(stage.NameScore, stage.StatusFailed)
	res.Error = "boom"
	if err := trk.Record(ctx, res); err != nil {
		t.Fatal(err)
	}
	if len(store.completed) != 0 {
		t.Fatalf("completed = %v, want empty", store.completed)
	}
	if store.merged["score"]["error"] != "boom" {
		t.Fatalf("error not recorded: %+v", store.merged["score"])
	}
}

func TestRecordSkippedTouchesNeither(t *testing.T) {
	store := newFakeRunStore()
	trk := New("run1", store, nil, nil)

	if err := trk.Record(context.Background(), result(stage.NameIndexing, stage.StatusSkipped)); err != nil {
		t.Fatal(err)
	}
	if len(store.completed) != 0 {
		t.Fatalf("completed = %v", store.completed)
	}
	if store.merged["indexing"]["status"] != "skipped" {
		t.Fatalf("merged = %+v", store.merged["indexing"])
	}
}

func TestRecordPublishes(t *testing.T) {
	store := newFakeRunStore()
	pub := &fakePublisher{}
	trk := New("run1", store, pub, nil)

	if err := trk.Record(context.Background(), result(stage.NamePolicy, stage.StatusSucceeded)); err != nil {
		t.Fatal(err)
	}
	if len(pub.published) != 1 || pub.published[0].StageName != stage.NamePolicy {
		t.Fatalf("published = %+v", pub.published)
	}
}

func TestRecordPublishFailureIsNotFatal(t *testing.T) {
	store := newFakeRunStore()
	trk := New("run1", store, &fakePublisher{fail: true}, nil)

	if err := trk.Record(context.Background(), result(stage.NamePolicy, stage.StatusSucceeded)); err != nil {
		t.Fatalf("publish failure must not fail Record: %v", err)
	}
	if len(store.completed) != 1 {
		t.Fatalf("completed = %v", store.completed)
	}
}

func TestFinishSetsRunStatus(t *testing.T) {
	store := newFakeRunStore()
	trk := New("run1", store, nil, nil)

	if err := trk.Finish(context.Background(), domain.RunFailedPolicy); err != nil {
		t.Fatal(err)
	}
	if store.status != domain.RunFailedPolicy {
		t.Fatalf("status = %s", store.status)
	}
}

func TestStageResultSubject(t *testing.T) {
	if got := StageResultSubject(stage.NameFingerprint); got != "aird.stage.result.fingerprint" {
		t.Fatalf("subject = %s", got)
	}
}
