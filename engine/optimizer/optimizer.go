// Package optimizer produces rule-based next-step recommendations from a
// fingerprint and its policy evaluation.
package optimizer

import (
	"fmt"
	"strings"

	"github.com/primedata-ai/aird/engine/domain"
)

// Suggestion is the structured output of a run.
type Suggestion struct {
	NextPlaybook            string         `json:"next_playbook"`
	ConfigTweaks            map[string]any `json:"config_tweaks"`
	Suggestions             []string       `json:"suggestions"`
	PlaybookRecommendations []string       `json:"playbook_recommendations"`
}

// Suggest mirrors the tiered, threshold-driven rules verbatim: each
// dimension is checked against both the policy threshold and a fixed set
// of quality bands, and config_tweaks/playbook_recommendations accumulate
// as a side effect of whichever bands are missed.
func Suggest(fp domain.Fingerprint, pol domain.PolicyEvaluationResult, currentPlaybook string) Suggestion {
	if fp.IsEmpty() {
		return Suggestion{
			NextPlaybook: currentPlaybook,
			ConfigTweaks: map[string]any{},
			Suggestions:  []string{"No fingerprint available. Run the pipeline to generate metrics."},
		}
	}

	var suggestions []string
	var playbookRecs []string
	tweaks := map[string]any{}
	nextPlaybook := currentPlaybook

	th := pol.Thresholds

	switch {
	case fp.AITrustScore < th.MinTrustScore:
		suggestions = append(suggestions, fmt.Sprintf(
			"AI Trust Score (%.1f%%) is below the policy threshold (%s%%). Focus on improving overall data quality.",
			fp.AITrustScore, trimFloat(th.MinTrustScore)))
	case fp.AITrustScore < 70.0:
		suggestions = append(suggestions, fmt.Sprintf(
			"AI Trust Score (%.1f%%) is acceptable but could be improved. Consider enhancing data completeness and quality.", fp.AITrustScore))
	case fp.AITrustScore < 85.0:
		suggestions = append(suggestions, fmt.Sprintf(
			"AI Trust Score (%.1f%%) is good. Minor improvements could push it to excellent (>85%%).", fp.AITrustScore))
	}

	if hasViolation(pol.Violations, "security_not_full") {
		suggestions = append(suggestions, fmt.Sprintf(
			"Security score (%.1f%%) is below threshold (%s%%). Enable stricter PII redaction and data masking.",
			fp.Secure, trimFloat(th.MinSecure)))
		tweaks["redaction_strict"] = true
	} else if fp.Secure < 100.0 {
		if fp.Secure < 95.0 {
			suggestions = append(suggestions, fmt.Sprintf(
				"Security score (%.1f%%) is good but not perfect. Review PII detection and redaction rules.", fp.Secure))
		} else {
			suggestions = append(suggestions, fmt.Sprintf(
				"Security score (%.1f%%) is excellent. Minor improvements could achieve 100%%.", fp.Secure))
		}
	}

	if fp.MetadataPresence < th.MinMetadataPresence {
		suggestions = append(suggestions, fmt.Sprintf(
			"Metadata Presence (%.1f%%) is below threshold (%s%%). Enhance metadata extraction and enrichment.",
			fp.MetadataPresence, trimFloat(th.MinMetadataPresence)))
		tweaks["force_metadata_extraction"] = true
	} else if fp.MetadataPresence < 90.0 {
		if fp.MetadataPresence < 85.0 {
			suggestions = append(suggestions, fmt.Sprintf(
				"Metadata Presence (%.1f%%) is acceptable. Consider adding more metadata fields for better context.", fp.MetadataPresence))
		} else {
			suggestions = append(suggestions, fmt.Sprintf(
				"Metadata Presence (%.1f%%) is good. Minor enhancements could improve searchability.", fp.MetadataPresence))
		}
	}

	if fp.KBReady < th.MinKBReady {
		suggestions = append(suggestions, fmt.Sprintf(
			"Knowledge Base Readiness (%.1f%%) is below threshold (%s%%). Improve chunking strategy and sectioning.",
			fp.KBReady, trimFloat(th.MinKBReady)))
		if !strings.EqualFold(currentPlaybook, domain.PlaybookTech) {
			playbookRecs = append(playbookRecs, "Consider using TECH playbook for better chunking and sectioning.")
		}
	} else if fp.KBReady < 70.0 {
		suggestions = append(suggestions, fmt.Sprintf(
			"Knowledge Base Readiness (%.1f%%) could be improved. Review chunking parameters and semantic boundaries.", fp.KBReady))
		if !strings.EqualFold(currentPlaybook, domain.PlaybookTech) {
			playbookRecs = append(playbookRecs, "TECH playbook may provide better chunking for RAG applications.")
		}
	} else if fp.KBReady < 85.0 {
		suggestions = append(suggestions, fmt.Sprintf(
			"Knowledge Base Readiness (%.1f%%) is good. Fine-tuning chunking could improve retrieval quality.", fp.KBReady))
	}

	switch {
	case fp.Completeness < 60.0:
		suggestions = append(suggestions, fmt.Sprintf(
			"Completeness (%.1f%%) is low. Review data extraction and ensure all content is captured.", fp.Completeness))
		if currentPlaybook == "" || strings.EqualFold(currentPlaybook, domain.PlaybookRegulatory) {
			nextPlaybook = domain.PlaybookScanned
			playbookRecs = append(playbookRecs, "Consider SCANNED playbook for OCR-heavy cleanup and better completeness.")
		}
		tweaks["increase_chunk_overlap"] = true
	case fp.Completeness < 75.0:
		suggestions = append(suggestions, fmt.Sprintf(
			"Completeness (%.1f%%) is acceptable. Increase chunk overlap to reduce context loss at boundaries.", fp.Completeness))
		tweaks["increase_chunk_overlap"] = true
	case fp.Completeness < 90.0:
		suggestions = append(suggestions, fmt.Sprintf(
			"Completeness (%.1f%%) is good. Minor improvements in chunking could enhance completeness.", fp.Completeness))
	}

	switch {
	case fp.Quality < 70.0:
		suggestions = append(suggestions, fmt.Sprintf(
			"Quality score (%.1f%%) is below optimal. Review data cleaning and normalization processes.", fp.Quality))
	case fp.Quality < 85.0:
		suggestions = append(suggestions, fmt.Sprintf(
			"Quality score (%.1f%%) is good. Enhance text normalization and error correction.", fp.Quality))
	}

	if !pol.PolicyPassed {
		if len(pol.Violations) > 0 {
			suggestions = append(suggestions, fmt.Sprintf(
				"Policy evaluation failed with %d violation(s). Address the issues above to meet compliance requirements.", len(pol.Violations)))
		}
	} else if fp.AITrustScore < 80.0 {
		suggestions = append(suggestions, "Policy passed, but improving trust score above 80% would enhance data readiness.")
	}

	if nextPlaybook != "" && nextPlaybook != currentPlaybook {
		playbookRecs = append(playbookRecs, fmt.Sprintf("Consider switching to %s playbook for better results.", nextPlaybook))
	}

	if len(suggestions) == 0 && len(playbookRecs) == 0 {
		suggestions = append(suggestions, "Metrics are within acceptable ranges. Continue monitoring and consider fine-tuning for optimal performance.")
	}

	return Suggestion{
		NextPlaybook:            nextPlaybook,
		ConfigTweaks:            tweaks,
		Suggestions:             suggestions,
		PlaybookRecommendations: playbookRecs,
	}
}

func hasViolation(violations []string, tag string) bool {
	for _, v := range violations {
		if strings.HasPrefix(v, tag) {
			return true
		}
	}
	return false
}

func trimFloat(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%.1f", v)
	}
	return fmt.Sprintf("%g", v)
}
