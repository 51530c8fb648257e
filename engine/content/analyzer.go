package content

import (
	"path/filepath"
	"regexp"
	"strings"
)

var sentenceSplit = regexp.MustCompile(`[.!?]+`)

// Analyze detects content and filename. Filename and hint are both
// optional; hint is the playbook-declared domain (e.g. "regulatory").
func Analyze(text, filename, hint string) Config {
	contentType, confidence, evidence := detectContentType(text, filename, hint)
	base := optimalConfigs[contentType]
	adjusted := adjustForCharacteristics(text, base)

	return Config{
		ChunkSize:    adjusted.ChunkSize,
		ChunkOverlap: adjusted.ChunkOverlap,
		MinChunkSize: adjusted.MinChunkSize,
		MaxChunkSize: adjusted.MaxChunkSize,
		Strategy:     adjusted.Strategy,
		ContentType:  contentType,
		Confidence:   confidence,
		Reasoning:    adjusted.Reasoning,
		Evidence:     evidence,
	}
}

func detectContentType(text, filename, hint string) (Type, float64, Evidence) {
	scores := map[Type]float64{}
	matchedTerms := map[Type][]string{}
	evidence := Evidence{AllScores: map[string]float64{}}

	if filename != "" {
		ext := strings.ToLower(filepath.Ext(filename))
		evidence.FilenameExtension = ext
		switch {
		case codeExtensions[ext]:
			scores[TypeCode] = 0.8
		case docExtensions[ext]:
			scores[TypeDocumentation] = 0.6
		case generalExtensions[ext]:
			scores[TypeGeneral] = 0.5
		}
	}

	contentLen := float64(len(text))
	for contentType, patterns := range contentPatterns {
		var score float64
		matched := 0
		var terms []string
		for _, pattern := range patterns {
			matches := pattern.FindAllString(text, -1)
			count := len(matches)
			if count == 0 {
				continue
			}
			matched++
			terms = append(terms, uniqueTrimmed(matches)...)
			normalized := float64(count) / (contentLen / 1000.0)
			if normalized > 1.0 {
				normalized = 1.0
			}
			score += normalized
		}
		if matched > 0 {
			scores[contentType] = score / float64(len(patterns))
			matchedTerms[contentType] = dedup(terms)
		}
	}

	for t, s := range scores {
		evidence.AllScores[string(t)] = round3(s)
	}

	if hint != "" {
		if hinted, ok := hintToType[strings.ToLower(hint)]; ok {
			evidence.HintType = hint
			var bestType Type
			var bestScore float64
			for t, s := range scores {
				if s > bestScore {
					bestType, bestScore = t, s
				}
			}
			_ = bestType
			if len(scores) == 0 || bestScore < 0.5 {
				current := scores[hinted]
				if current < 0.6 {
					current = 0.6
				}
				scores[hinted] = current
				evidence.HintApplied = true
				evidence.HintBoost = 0.0
			} else if existing, ok := scores[hinted]; ok && existing > 0 {
				boosted := existing + 0.2
				if boosted > 1.0 {
					boosted = 1.0
				}
				scores[hinted] = boosted
				evidence.HintApplied = true
				evidence.HintBoost = 0.2
			}
		}
	}

	if len(scores) == 0 {
		evidence.FinalType = string(TypeGeneral)
		evidence.FinalConfidence = 0.3
		return TypeGeneral, 0.3, evidence
	}

	var bestType Type
	var bestScore float64
	first := true
	for t, s := range scores {
		if first || s > bestScore {
			bestType, bestScore = t, s
			first = false
		}
	}
	if bestScore > 1.0 {
		bestScore = 1.0
	}

	evidence.FinalType = string(bestType)
	evidence.FinalConfidence = bestScore
	evidence.MatchedPatterns = firstN(matchedTerms[bestType], 30)

	return bestType, bestScore, evidence
}

func adjustForCharacteristics(text string, base baseConfig) baseConfig {
	cfg := base

	avgSentenceLen := avgSentenceLength(text)
	words := strings.Fields(text)
	wordCount := len(words)

	switch {
	case avgSentenceLen > 30:
		cfg.ChunkSize = int(float64(cfg.ChunkSize) * 1.2)
		cfg.ChunkOverlap = int(float64(cfg.ChunkOverlap) * 1.2)
		cfg.Reasoning += " (adjusted for long sentences)"
	case avgSentenceLen < 15 && avgSentenceLen > 0:
		cfg.ChunkSize = int(float64(cfg.ChunkSize) * 0.8)
		cfg.ChunkOverlap = int(float64(cfg.ChunkOverlap) * 0.8)
		cfg.Reasoning += " (adjusted for short sentences)"
	}

	switch {
	case wordCount < 100:
		limit := wordCount * 4
		if limit < 1 {
			limit = 1
		}
		if cfg.ChunkSize > limit {
			cfg.ChunkSize = limit
		}
		if cfg.ChunkOverlap > cfg.ChunkSize/4 {
			cfg.ChunkOverlap = cfg.ChunkSize / 4
		}
		cfg.Reasoning += " (adjusted for short content)"
	case wordCount > 10000:
		cfg.ChunkSize = int(float64(cfg.ChunkSize) * 1.1)
		cfg.ChunkOverlap = int(float64(cfg.ChunkOverlap) * 1.1)
		cfg.Reasoning += " (adjusted for long content)"
	}

	// The minimum is not applied to short content, whose cap above wins.
	if cfg.ChunkSize < cfg.MinChunkSize && wordCount >= 100 {
		cfg.ChunkSize = cfg.MinChunkSize
	}
	if cfg.ChunkSize > cfg.MaxChunkSize {
		cfg.ChunkSize = cfg.MaxChunkSize
	}
	if cfg.ChunkOverlap > cfg.ChunkSize-1 {
		cfg.ChunkOverlap = cfg.ChunkSize - 1
	}

	return cfg
}

func avgSentenceLength(text string) float64 {
	sentences := sentenceSplit.Split(text, -1)
	var totalWords, nonEmpty int
	for _, s := range sentences {
		if strings.TrimSpace(s) == "" {
			continue
		}
		nonEmpty++
		totalWords += len(strings.Fields(s))
	}
	if nonEmpty == 0 {
		return 0
	}
	return float64(totalWords) / float64(nonEmpty)
}

func uniqueTrimmed(matches []string) []string {
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		t := strings.TrimSpace(m)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

func dedup(in []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func firstN(in []string, n int) []string {
	if len(in) <= n {
		return in
	}
	return in[:n]
}

func round3(v float64) float64 {
	return float64(int(v*1000+0.5)) / 1000
}
