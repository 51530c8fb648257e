package pipeline

import (
	"strings"

	"github.com/primedata-ai/aird/engine/domain"
)

// stringSlice extracts a []string metrics value, tolerating the []any
// shape a JSON round-trip produces.
func stringSlice(m map[string]any, key string) []string {
	switch v := m[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// floatValue extracts a numeric metrics value.
func floatValue(m map[string]any, key string) (float64, bool) {
	switch v := m[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

func artifactTypeFor(name string) domain.ArtifactType {
	switch {
	case strings.HasSuffix(name, ".jsonl"):
		return domain.ArtifactJSONL
	case strings.HasSuffix(name, ".json"):
		return domain.ArtifactJSON
	case strings.HasSuffix(name, ".csv"):
		return domain.ArtifactCSV
	case strings.HasSuffix(name, ".pdf"):
		return domain.ArtifactPDF
	case strings.HasSuffix(name, ".txt"):
		return domain.ArtifactText
	default:
		return domain.ArtifactBinary
	}
}
