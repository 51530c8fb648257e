package content

import (
	"strings"
	"testing"

	"github.com/primedata-ai/aird/engine/domain"
)

func TestAnalyzeDetectsLegal(t *testing.T) {
	text := strings.Repeat("Whereas the parties hereby agree, pursuant to this agreement, the plaintiff and defendant accept these terms and conditions. ", 10)
	cfg := Analyze(text, "contract.txt", "")
	if cfg.ContentType != TypeLegal {
		t.Fatalf("expected legal, got %s (scores=%v)", cfg.ContentType, cfg.Evidence.AllScores)
	}
	if cfg.Strategy != domain.StrategySemantic {
		t.Fatalf("expected semantic strategy, got %s", cfg.Strategy)
	}
}

func TestAnalyzeFallsBackToGeneral(t *testing.T) {
	cfg := Analyze("just some plain words with nothing special in them at all", "", "")
	if cfg.ContentType != TypeGeneral {
		t.Fatalf("expected general, got %s", cfg.ContentType)
	}
	if cfg.Confidence != 0.3 {
		t.Fatalf("expected confidence 0.3, got %v", cfg.Confidence)
	}
}

func TestAnalyzeAppliesWeakHint(t *testing.T) {
	cfg := Analyze("a short document with no domain signal at all here", "", "regulatory")
	if cfg.ContentType != TypeRegulatory {
		t.Fatalf("expected hint to win when detection is weak, got %s", cfg.ContentType)
	}
	if !cfg.Evidence.HintApplied {
		t.Fatal("expected hint_applied=true")
	}
}

func TestAnalyzeBoostsMatchingHint(t *testing.T) {
	text := strings.Repeat("The regulator and auditor reviewed the supervisory framework for capital governance under the directive. ", 15)
	withoutHint := Analyze(text, "", "")
	withHint := Analyze(text, "", "regulatory")

	if withoutHint.ContentType != TypeRegulatory {
		t.Skipf("base detection didn't land on regulatory (scores=%v), skipping boost comparison", withoutHint.Evidence.AllScores)
	}
	if withHint.Confidence <= withoutHint.Confidence {
		t.Fatalf("expected hint boost to raise confidence: without=%v with=%v", withoutHint.Confidence, withHint.Confidence)
	}
}

func TestAdjustForShortContent(t *testing.T) {
	cfg := Analyze("one two three four five six seven eight nine ten", "", "")
	if cfg.ChunkSize > 10*4 {
		t.Fatalf("expected chunk size capped for short content, got %d", cfg.ChunkSize)
	}
}

func TestPreviewChunking(t *testing.T) {
	text := strings.Repeat("word ", 2000)
	cfg := Analyze(text, "", "")
	preview := PreviewChunking(text, cfg)
	if preview.TotalChunks == 0 {
		t.Fatal("expected at least one chunk")
	}
	if len(preview.Chunks) > 5 {
		t.Fatalf("expected preview capped at 5 chunks, got %d", len(preview.Chunks))
	}
}

func TestPreviewChunkingEmptyText(t *testing.T) {
	cfg := Analyze("x", "", "")
	preview := PreviewChunking("", cfg)
	if preview.TotalChunks != 0 {
		t.Fatalf("expected zero chunks for empty text, got %d", preview.TotalChunks)
	}
	if preview.EstimatedRetrievalQuality != "unknown" {
		t.Fatalf("expected unknown quality, got %s", preview.EstimatedRetrievalQuality)
	}
}
