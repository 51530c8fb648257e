package content

import (
	"regexp"

	"github.com/primedata-ai/aird/engine/domain"
)

// contentPatterns holds the per-type regex sets the analyzer scores
// against. Each is compiled case-insensitive, multiline.
var contentPatterns = map[Type][]*regexp.Regexp{
	TypeLegal: compileAll(
		`\b(whereas|hereby|herein|hereinafter|pursuant to|in accordance with)\b`,
		`\b(agreement|contract|terms|conditions|clause|section)\b`,
		`\b(party|parties|plaintiff|defendant|court|legal)\b`,
	),
	TypeRegulatory: compileAll(
		`\b(supervisor|auditor|regulator|supervision|regulatory)\b`,
		`\b(eba|ecb|basel|crr|crd|ssm|pru|fca|sec)\b`,
		`\b(guidelines|framework|directive|regulation|compliance)\b`,
		`\b(capital|risk|governance|oversight|monitoring)\b`,
		`\b(principle|requirement|standard|provision)\b`,
		`\b(whereas|pursuant to|in accordance with|hereinafter)\b`,
	),
	TypeFinanceBanking: compileAll(
		`\b(banking|financial|finance|bank|institution)\b`,
		`\b(capital|liquidity|solvency|credit|market\s+risk)\b`,
		`\b(asset|liability|balance\s+sheet|income\s+statement)\b`,
		`\b(regulation|compliance|audit|supervision)\b`,
		`\b(interest\s+rate|yield|portfolio|investment)\b`,
	),
	TypeCode: compileAll(
		`^\s*(def|class|function|import|from|if|for|while|try|except)\s+`,
		`^\s*[a-zA-Z_][a-zA-Z0-9_]*\s*[=(]`,
		`^\s*#.*$`,
		`^\s*//.*$`,
		`^\s*/\*.*\*/$`,
	),
	TypeDocumentation: compileAll(
		`^#{1,6}\s+`,
		`^\s*\*\s+`,
		`^\s*\d+\.\s+`,
		"```",
		`\[.*\]\(.*\)`,
	),
	TypeConversation: compileAll(
		`^\s*\d{1,2}:\d{2}\s+[AP]M\s+`,
		`^\s*\[.*\]\s+`,
		`^\s*<.*>\s+`,
		`^\s*\w+:\s+`,
	),
	TypeAcademic: compileAll(
		`\b(abstract|introduction|methodology|results|conclusion|references)\b`,
		`\b(study|research|analysis|hypothesis|findings|implications)\b`,
		`^\s*\d+\.\d+\s+`,
		`\[.*\]\s*\(.*\)`,
	),
	TypeTechnical: compileAll(
		`\b(API|endpoint|request|response|authentication|authorization)\b`,
		`\b(database|query|table|index|schema|migration)\b`,
		`\b(algorithm|optimization|performance|scalability|architecture)\b`,
		`^\s*`+"```"+`\w*$`,
	),
}

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(`(?im)` + p)
	}
	return out
}

// optimalConfigs mirrors the original analyzer's per-type defaults.
// Sizes are estimated tokens, not characters.
var optimalConfigs = map[Type]baseConfig{
	TypeLegal: {
		ChunkSize: 1200, ChunkOverlap: 240, MinChunkSize: 200, MaxChunkSize: 2000,
		Strategy:  domain.StrategySemantic,
		Reasoning: "Legal documents require larger chunks to preserve context and legal meaning",
	},
	TypeRegulatory: {
		ChunkSize: 1400, ChunkOverlap: 280, MinChunkSize: 200, MaxChunkSize: 2200,
		Strategy:  domain.StrategySemantic,
		Reasoning: "Regulatory documents require larger chunks to preserve compliance context and cross-references",
	},
	TypeFinanceBanking: {
		ChunkSize: 1300, ChunkOverlap: 260, MinChunkSize: 200, MaxChunkSize: 2000,
		Strategy:  domain.StrategySemantic,
		Reasoning: "Banking documents need larger chunks to preserve financial context and relationships",
	},
	TypeCode: {
		ChunkSize: 900, ChunkOverlap: 180, MinChunkSize: 100, MaxChunkSize: 1500,
		Strategy:  domain.StrategyRecursive,
		Reasoning: "Code benefits from recursive chunking to preserve function/class boundaries",
	},
	TypeDocumentation: {
		ChunkSize: 800, ChunkOverlap: 160, MinChunkSize: 100, MaxChunkSize: 1500,
		Strategy:  domain.StrategyParagraphBoundary,
		Reasoning: "Documentation works well with paragraph-based chunking for better readability",
	},
	TypeConversation: {
		ChunkSize: 700, ChunkOverlap: 140, MinChunkSize: 50, MaxChunkSize: 1200,
		Strategy:  domain.StrategySentenceBoundary,
		Reasoning: "Conversations benefit from smaller chunks at sentence boundaries",
	},
	TypeAcademic: {
		ChunkSize: 1200, ChunkOverlap: 240, MinChunkSize: 150, MaxChunkSize: 2000,
		Strategy:  domain.StrategySemantic,
		Reasoning: "Academic papers need larger chunks to preserve argument structure",
	},
	TypeTechnical: {
		ChunkSize: 800, ChunkOverlap: 160, MinChunkSize: 100, MaxChunkSize: 1500,
		Strategy:  domain.StrategySemantic,
		Reasoning: "Technical content benefits from semantic chunking to preserve concept boundaries",
	},
	TypeGeneral: {
		ChunkSize: 1000, ChunkOverlap: 200, MinChunkSize: 100, MaxChunkSize: 2000,
		Strategy:  domain.StrategyFixedSize,
		Reasoning: "General content uses balanced fixed-size chunking for optimal retrieval",
	},
}

// hintToType maps a playbook hint string to a content type.
var hintToType = map[string]Type{
	"regulatory":      TypeRegulatory,
	"finance_banking": TypeFinanceBanking,
	"legal":           TypeLegal,
	"academic":        TypeAcademic,
	"technical":       TypeTechnical,
}

// extensionTypeScores mirrors the filename-extension bias.
var codeExtensions = map[string]bool{".py": true, ".js": true, ".java": true, ".cpp": true, ".c": true, ".go": true, ".rs": true}
var docExtensions = map[string]bool{".md": true, ".rst": true, ".txt": true}
var generalExtensions = map[string]bool{".pdf": true, ".doc": true, ".docx": true}
