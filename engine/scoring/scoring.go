// Package scoring computes per-chunk readiness metrics and combines them
// into an AI_Trust_Score.
package scoring

import (
	"strings"
	"unicode"

	"github.com/primedata-ai/aird/engine/domain"
	"github.com/primedata-ai/aird/engine/playbook"
)

// Input bundles the values the scorer needs beyond the chunk text
// itself — context that only the preprocess stage or the catalog knows.
type Input struct {
	Record     domain.ProcessedChunkRecord
	Playbook   domain.Playbook
	HasHeading bool
}

// Score computes every dimension for one chunk and combines them with w
// into AI_Trust_Score, returning the full metric record.
func Score(in Input, w Weights) domain.PerChunkMetricRecord {
	completeness := completenessScore(in.Record.Text)
	quality := qualityScore(in.Record.Text)
	secure := SecurityScore(in.Record.Text)
	metadata := metadataPresenceScore(in.Record)
	kbReady := kbReadyScore(in, in.Playbook)

	trust := w.Combine(completeness, quality, secure, metadata, kbReady)

	return domain.PerChunkMetricRecord{
		File:             in.Record.DocumentID,
		ChunkID:          in.Record.ChunkID,
		Section:          in.Record.Section,
		AITrustScore:     round2(trust),
		Completeness:     round2(completeness),
		Quality:          round2(quality),
		Secure:           round2(secure),
		MetadataPresence: round2(metadata),
		KBReady:          round2(kbReady),
		TokenEst:         in.Record.TokenEst,
	}
}

// qualityScore blends alphabetic-character ratio, non-repetitiveness, and
// length-in-range into a single [0,100] score.
func qualityScore(text string) float64 {
	if strings.TrimSpace(text) == "" {
		return 0
	}

	var letters, total int
	for _, r := range text {
		if !unicode.IsSpace(r) {
			total++
			if unicode.IsLetter(r) {
				letters++
			}
		}
	}
	alphaRatio := 0.0
	if total > 0 {
		alphaRatio = float64(letters) / float64(total)
	}

	words := strings.Fields(text)
	unique := map[string]bool{}
	for _, wd := range words {
		unique[strings.ToLower(wd)] = true
	}
	repetitiveness := 1.0
	if len(words) > 0 {
		repetitiveness = float64(len(unique)) / float64(len(words))
	}

	lengthScore := 1.0
	switch {
	case len(words) < 10:
		lengthScore = float64(len(words)) / 10.0
	case len(words) > 2000:
		lengthScore = 2000.0 / float64(len(words))
	}

	combined := (alphaRatio*0.4 + repetitiveness*0.4 + lengthScore*0.2)
	if combined > 1 {
		combined = 1
	}
	return combined * 100
}

// completenessScore penalizes chunks that look cut off: an ellipsis or an
// explicit "[truncated]" marker anywhere in the text, or a last character
// that is neither punctuation nor whitespace.
func completenessScore(text string) float64 {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return 0
	}

	score := 100.0
	lower := strings.ToLower(trimmed)
	if strings.Contains(lower, "[truncated]") || strings.Contains(lower, "...") {
		score -= 25
	}

	last := rune(trimmed[len(trimmed)-1])
	if !unicode.IsPunct(last) && !unicode.IsSpace(last) {
		// Ends on a bare word character rather than punctuation: mild
		// penalty.
		if len(trimmed) > 0 && !unicode.IsSpace(rune(trimmed[len(trimmed)-1])) {
			score -= 10
		}
	}

	if score < 0 {
		score = 0
	}
	return score
}

// metadataPresenceScore rewards a chunk for carrying the structural
// metadata fields downstream consumers (ACL, citations, playground) key
// off of. Fields are weighted by how much retrieval depends on them:
// document identity and section carry most of the value, field_name and
// page are refinements only some source types have.
func metadataPresenceScore(r domain.ProcessedChunkRecord) float64 {
	score := 0.0
	if r.DocumentID != "" {
		score += 30
	}
	if r.Section != "" {
		score += 30
	}
	if r.Source != "" {
		score += 20
	}
	if r.FieldName != "" {
		score += 10
	}
	if r.Page > 0 {
		score += 10
	}
	return score
}

// kbReadyScore rewards chunks that carry a section/heading and whose
// token count sits within the playbook's target window.
func kbReadyScore(in Input, pb domain.Playbook) float64 {
	score := 0.0
	if in.HasHeading || in.Record.Section != "" {
		score += 50
	}

	target := pb.Chunking.MaxTokens
	if target <= 0 {
		target = 1000
	}
	tolerance := float64(target) * 0.5
	diff := float64(in.Record.TokenEst - target)
	if diff < 0 {
		diff = -diff
	}
	if diff <= tolerance {
		score += 50 * (1 - diff/tolerance)
	}

	if score > 100 {
		score = 100
	}
	return score
}

// DefaultPlaybookFor is a convenience for callers that only have a
// playbook id handy, not the resolved struct.
func DefaultPlaybookFor(router *playbook.Router, playbookID string) domain.Playbook {
	pb, err := router.Resolve(playbookID)
	if err != nil {
		return domain.Playbook{}
	}
	return pb
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}
