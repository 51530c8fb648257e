package playbook

import "github.com/primedata-ai/aird/engine/domain"

// builtinPlaybooks returns the five presets that ship with the pipeline.
// Chunking defaults mirror the content analyzer's optimal_configs table for
// the matching domain (engine/content), converted from the analyzer's
// token-estimate units into the playbook's max_tokens/overlap fields.
func builtinPlaybooks() map[string]domain.Playbook {
	pbs := map[string]domain.Playbook{
		domain.PlaybookTech: {
			ID: domain.PlaybookTech,
			Chunking: domain.PlaybookChunking{
				MaxTokens: 800,
				Overlap:   160,
				Strategy:  domain.StrategySemantic,
			},
			NoisePatterns: []string{
				`(?i)^\s*page\s+\d+\s+of\s+\d+\s*$`,
				`(?i)^\s*confidential\s*$`,
				`(?i)^\s*\[?draft\]?\s*$`,
			},
			RAGEvaluation: domain.RAGEvaluationConfig{
				RetrievalSettings: domain.RetrievalSettings{TopK: 5, MaxQueries: 10},
			},
		},
		domain.PlaybookScanned: {
			ID: domain.PlaybookScanned,
			Chunking: domain.PlaybookChunking{
				MaxTokens: 1000,
				Overlap:   200,
				Strategy:  domain.StrategyFixedSize,
			},
			NoisePatterns: []string{
				`(?i)^\s*page\s+\d+\s+of\s+\d+\s*$`,
				`^\s*\d+\s*$`,
				`(?i)^\s*\[illegible\]\s*$`,
				`(?i)^\s*ocr\s+error\s*$`,
			},
			RAGEvaluation: domain.RAGEvaluationConfig{
				RetrievalSettings: domain.RetrievalSettings{TopK: 8, MaxQueries: 8},
			},
		},
		domain.PlaybookRegulatory: {
			ID: domain.PlaybookRegulatory,
			Chunking: domain.PlaybookChunking{
				MaxTokens: 1400,
				Overlap:   280,
				Strategy:  domain.StrategySemantic,
			},
			NoisePatterns: []string{
				`(?i)^\s*page\s+\d+\s+of\s+\d+\s*$`,
				`(?i)^\s*this\s+document\s+is\s+confidential\s*$`,
				`(?i)^\s*for\s+internal\s+use\s+only\s*$`,
			},
			RAGEvaluation: domain.RAGEvaluationConfig{
				RetrievalSettings: domain.RetrievalSettings{TopK: 6, MaxQueries: 12},
			},
		},
		domain.PlaybookFinance: {
			ID: domain.PlaybookFinance,
			Chunking: domain.PlaybookChunking{
				MaxTokens: 1300,
				Overlap:   260,
				Strategy:  domain.StrategySemantic,
			},
			NoisePatterns: []string{
				`(?i)^\s*page\s+\d+\s+of\s+\d+\s*$`,
				`(?i)^\s*unaudited\s*$`,
				`(?i)^\s*all\s+figures\s+in\s+(usd|eur|gbp)\s*$`,
			},
			RAGEvaluation: domain.RAGEvaluationConfig{
				RetrievalSettings: domain.RetrievalSettings{TopK: 6, MaxQueries: 10},
			},
		},
		domain.PlaybookLegal: {
			ID: domain.PlaybookLegal,
			Chunking: domain.PlaybookChunking{
				MaxTokens: 1200,
				Overlap:   240,
				Strategy:  domain.StrategySemantic,
			},
			NoisePatterns: []string{
				`(?i)^\s*page\s+\d+\s+of\s+\d+\s*$`,
				`(?i)^\s*privileged\s+and\s+confidential\s*$`,
				`(?i)^\s*attorney[- ]client\s+privilege\s*$`,
			},
			RAGEvaluation: domain.RAGEvaluationConfig{
				RetrievalSettings: domain.RetrievalSettings{TopK: 6, MaxQueries: 12},
			},
		},
	}
	return pbs
}

// HintFor returns the content-analyzer hint string associated with a
// playbook id, so the preprocess stage can bias classification toward the
// domain the product owner already declared.
func HintFor(playbookID string) string {
	switch playbookID {
	case domain.PlaybookRegulatory:
		return "regulatory"
	case domain.PlaybookFinance:
		return "finance_banking"
	case domain.PlaybookLegal:
		return "legal"
	default:
		return ""
	}
}
