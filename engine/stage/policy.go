package stage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/primedata-ai/aird/engine/domain"
	"github.com/primedata-ai/aird/engine/optimizer"
	"github.com/primedata-ai/aird/engine/policy"
)

// PolicySink persists a policy evaluation onto the product row.
type PolicySink interface {
	SetPolicyEvaluation(ctx context.Context, productID string, fp domain.Fingerprint, result domain.PolicyEvaluationResult) error
}

// PolicyArtifactName is the artifact the policy evaluation is written
// under, read back by the reporting stage.
const PolicyArtifactName = "policy.json"

// Policy evaluates the fingerprint against the configured thresholds,
// persists the decision, and attaches the optimizer's suggestions. The
// stage itself SUCCEEDS even on violations — mapping violations to the
// run's failed_policy / ready_with_warnings status is the
// orchestrator's call; a policy violation is not a stage failure.
type Policy struct {
	storage    *Storage
	sink       PolicySink
	product    domain.Product
	thresholds domain.PolicyThresholds
}

func NewPolicy(storage *Storage, sink PolicySink, product domain.Product, thresholds domain.PolicyThresholds) *Policy {
	return &Policy{storage: storage, sink: sink, product: product, thresholds: thresholds}
}

func (p *Policy) Name() Name { return NamePolicy }

func (p *Policy) Execute(ctx context.Context) Result {
	return run(NamePolicy, p.product.ID, p.product.CurrentVersion, func() (Status, map[string]any, map[string]string, error) {
		fp, err := LoadFingerprint(ctx, p.storage)
		if err != nil && !errors.Is(err, domain.ErrInputMissing) {
			return StatusFailed, nil, nil, fmt.Errorf("policy: %w", err)
		}
		// A missing fingerprint is not a skip: Policy(empty) is defined
		// as failed with violations=[no_fingerprint].

		result := policy.Evaluate(fp, p.thresholds)
		suggestion := optimizer.Suggest(fp, result, p.product.PlaybookID)

		data, err := json.Marshal(result)
		if err != nil {
			return StatusFailed, nil, nil, fmt.Errorf("policy: marshal: %w", err)
		}
		key, err := p.storage.PutArtifact(ctx, PolicyArtifactName, data, "application/json")
		if err != nil {
			return StatusFailed, nil, nil, fmt.Errorf("policy: write artifact: %w", err)
		}
		if err := p.sink.SetPolicyEvaluation(ctx, p.product.ID, fp, result); err != nil {
			return StatusFailed, nil, nil, fmt.Errorf("policy: persist: %w", err)
		}

		metrics := map[string]any{
			"status":        string(result.Status),
			"policy_passed": result.PolicyPassed,
			"violations":    result.Violations,
			"warnings":      result.Warnings,
			"optimizer":     suggestion,
		}
		return StatusSucceeded, metrics, map[string]string{PolicyArtifactName: key}, nil
	})
}

// LoadPolicyResult reads policy.json back from storage.
func LoadPolicyResult(ctx context.Context, storage *Storage) (domain.PolicyEvaluationResult, error) {
	data, err := storage.GetArtifact(ctx, PolicyArtifactName)
	if err != nil {
		return domain.PolicyEvaluationResult{}, fmt.Errorf("%w: %s", domain.ErrInputMissing, PolicyArtifactName)
	}
	var result domain.PolicyEvaluationResult
	if err := json.Unmarshal(data, &result); err != nil {
		return domain.PolicyEvaluationResult{}, fmt.Errorf("parse %s: %w", PolicyArtifactName, domain.ErrIntegrity)
	}
	return result, nil
}
