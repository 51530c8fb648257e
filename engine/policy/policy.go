// Package policy evaluates a readiness fingerprint against the
// pipeline's compliance gates.
package policy

import (
	"fmt"

	"github.com/primedata-ai/aird/engine/domain"
)

// Evaluate runs the fingerprint through thresholds and returns the
// persisted policy result. An empty fingerprint is an automatic fail.
func Evaluate(fp domain.Fingerprint, thresholds domain.PolicyThresholds) domain.PolicyEvaluationResult {
	if fp.IsEmpty() {
		return domain.PolicyEvaluationResult{
			Status:       domain.PolicyFailed,
			PolicyPassed: false,
			Violations:   []string{"no_fingerprint"},
			Warnings:     []string{},
			Thresholds:   thresholds,
		}
	}

	var violations []string
	critical := map[string]bool{}

	if fp.AITrustScore < thresholds.MinTrustScore {
		violations = append(violations, fmt.Sprintf("low_trust(<%s)", trimFloat(thresholds.MinTrustScore)))
		critical["low_trust"] = true
	}
	if fp.Secure < thresholds.MinSecure {
		violations = append(violations, fmt.Sprintf("security_not_full(<%s)", trimFloat(thresholds.MinSecure)))
		critical["security_not_full"] = true
	}
	if fp.MetadataPresence < thresholds.MinMetadataPresence {
		violations = append(violations, fmt.Sprintf("weak_metadata(<%s)", trimFloat(thresholds.MinMetadataPresence)))
	}
	if fp.KBReady < thresholds.MinKBReady {
		violations = append(violations, fmt.Sprintf("kb_not_ready(<%s)", trimFloat(thresholds.MinKBReady)))
	}

	passed := len(violations) == 0
	status := domain.PolicyPassed
	if !passed {
		if critical["low_trust"] || critical["security_not_full"] {
			status = domain.PolicyFailed
		} else {
			status = domain.PolicyWarnings
		}
	}

	return domain.PolicyEvaluationResult{
		Status:       status,
		PolicyPassed: passed,
		Violations:   violations,
		Warnings:     []string{},
		Thresholds:   thresholds,
	}
}

// trimFloat renders a threshold the way Python's f-string interpolation
// of a float does: whole numbers keep a trailing ".0".
func trimFloat(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%.1f", v)
	}
	return fmt.Sprintf("%g", v)
}
