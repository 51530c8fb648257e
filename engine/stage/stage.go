// Package stage models the pipeline as a closed set of stages —
// preprocess, score, fingerprint, policy, indexing, validation,
// reporting — each exposing a uniform Execute(ctx) → Result. Stages
// never share in-memory state; they exchange data only through the
// object store (via Storage) and the result each Execute call returns
// for the tracker to persist.
package stage

import (
	"context"
	"time"
)

// Name identifies one of the seven pipeline stages.
type Name string

const (
	NamePreprocess  Name = "preprocess"
	NameScore       Name = "score"
	NameFingerprint Name = "fingerprint"
	NamePolicy      Name = "policy"
	NameIndexing    Name = "indexing"
	NameValidation  Name = "validation"
	NameReporting   Name = "reporting"
)

// Status is the outcome of one Execute call.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
)

// Result is the stage result contract: what the tracker persists onto
// the run row after every stage execution.
type Result struct {
	Status     Status            `json:"status"`
	StageName  Name              `json:"stage_name"`
	ProductID  string            `json:"product_id"`
	Version    int               `json:"version"`
	Metrics    map[string]any    `json:"metrics"`
	Error      string            `json:"error,omitempty"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
	Artifacts  map[string]string `json:"artifacts,omitempty"`
}

// Stage is the uniform interface every pipeline step implements. Shared
// helpers between stages are free functions (chunk, scoring, fingerprint,
// policy, optimizer, vectorstore) rather than a base-class hierarchy.
type Stage interface {
	Name() Name
	Execute(ctx context.Context) Result
}

// Run wraps stage.Execute with the started_at/finished_at bookkeeping
// every Result must carry, so individual stages only need to compute
// status, metrics, and artifacts.
func run(name Name, productID string, version int, fn func() (Status, map[string]any, map[string]string, error)) Result {
	started := time.Now()
	status, metrics, artifacts, err := fn()
	res := Result{
		StageName:  name,
		ProductID:  productID,
		Version:    version,
		Status:     status,
		Metrics:    metrics,
		Artifacts:  artifacts,
		StartedAt:  started,
		FinishedAt: time.Now(),
	}
	if err != nil {
		res.Error = err.Error()
	}
	return res
}
