package scoring

import (
	"strings"
	"testing"

	"github.com/primedata-ai/aird/engine/domain"
)

func TestSecurityScoreCleanText(t *testing.T) {
	score := SecurityScore("This is a perfectly ordinary sentence about widgets.")
	if score < 90 {
		t.Fatalf("expected a high security score for clean text, got %v", score)
	}
}

func TestSecurityScorePenalizesPII(t *testing.T) {
	clean := SecurityScore("No sensitive data appears anywhere in this chunk of text at all.")
	withPII := SecurityScore("Contact jane.doe@example.com or call 555-123-4567, SSN 123-45-6789.")
	if withPII >= clean {
		t.Fatalf("expected PII-bearing text to score lower: clean=%v withPII=%v", clean, withPII)
	}
}

func TestSecurityScoreEmptyTextIsFullyScored(t *testing.T) {
	if SecurityScore("") != 100 {
		t.Fatal("expected empty text to score 100 (nothing to leak)")
	}
}

func TestQualityScoreRewardsVariedText(t *testing.T) {
	varied := qualityScore(strings.Repeat("the quick brown fox jumps over a lazy dog near the river bank today ", 3))
	repetitive := qualityScore(strings.Repeat("same same same same same same same same same same ", 3))
	if varied <= repetitive {
		t.Fatalf("expected varied text to outscore repetitive text: varied=%v repetitive=%v", varied, repetitive)
	}
}

func TestQualityScoreEmptyText(t *testing.T) {
	if qualityScore("") != 0 {
		t.Fatal("expected zero quality for empty text")
	}
}

func TestCompletenessScorePenalizesTruncation(t *testing.T) {
	complete := completenessScore("This sentence is complete and ends properly.")
	truncated := completenessScore("This sentence trails off and then...")
	if truncated >= complete {
		t.Fatalf("expected truncated text to score lower: complete=%v truncated=%v", complete, truncated)
	}
}

func TestMetadataPresenceScoreFullRecord(t *testing.T) {
	r := domain.ProcessedChunkRecord{DocumentID: "doc1", Section: "intro", FieldName: "body", Source: "upload", Page: 2}
	if got := metadataPresenceScore(r); got != 100 {
		t.Fatalf("expected 100 for a fully populated record, got %v", got)
	}
}

func TestMetadataPresenceScorePartialRecord(t *testing.T) {
	r := domain.ProcessedChunkRecord{DocumentID: "doc1"}
	got := metadataPresenceScore(r)
	if got <= 0 || got >= 100 {
		t.Fatalf("expected a partial score, got %v", got)
	}
}

func TestKBReadyScoreRewardsSectionAndTargetLength(t *testing.T) {
	pb := domain.Playbook{Chunking: domain.PlaybookChunking{MaxTokens: 800}}
	onTarget := kbReadyScore(Input{Record: domain.ProcessedChunkRecord{Section: "intro", TokenEst: 800}}, pb)
	offTarget := kbReadyScore(Input{Record: domain.ProcessedChunkRecord{Section: "", TokenEst: 5000}}, pb)
	if onTarget <= offTarget {
		t.Fatalf("expected on-target chunk with a section to score higher: on=%v off=%v", onTarget, offTarget)
	}
}

func TestScoreCombinesDimensions(t *testing.T) {
	pb := domain.Playbook{Chunking: domain.PlaybookChunking{MaxTokens: 200}}
	record := domain.ProcessedChunkRecord{
		ChunkID:    "c1",
		Text:       "This is a well-formed, complete sentence about the quarterly results.",
		Section:    "results",
		DocumentID: "doc1",
		TokenEst:   20,
	}
	metric := Score(Input{Record: record, Playbook: pb, HasHeading: true}, DefaultWeights())
	if metric.AITrustScore <= 0 || metric.AITrustScore > 100 {
		t.Fatalf("expected AI_Trust_Score in (0,100], got %v", metric.AITrustScore)
	}
	if metric.ChunkID != "c1" || metric.File != "doc1" {
		t.Fatalf("expected identity fields to pass through, got %+v", metric)
	}
}

func TestWeightsCombineIsLinear(t *testing.T) {
	w := Weights{Completeness: 0.2, Quality: 0.2, Secure: 0.2, MetadataPresence: 0.2, KBReady: 0.2}
	got := w.Combine(100, 100, 100, 100, 100)
	if got != 100 {
		t.Fatalf("expected full marks across equal weights to sum to 100, got %v", got)
	}
}
