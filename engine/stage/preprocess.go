package stage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/primedata-ai/aird/engine/chunk"
	"github.com/primedata-ai/aird/engine/content"
	"github.com/primedata-ai/aird/engine/domain"
	"github.com/primedata-ai/aird/engine/playbook"
	"github.com/primedata-ai/aird/pkg/fn"
)

// preprocessWorkers bounds the per-file worker pool.
const preprocessWorkers = 4

// RawFileLister is the catalog slice Preprocess needs: the raw files
// ingested for one (product, version).
type RawFileLister interface {
	ListRawFiles(ctx context.Context, productID string, version int) ([]domain.RawFile, error)
}

// Preprocess reads each raw file's text, normalizes it, detects
// sections, resolves a chunking configuration, splits, and writes
// processed JSONL — one file at a time, so a single bad file never
// sinks the run.
type Preprocess struct {
	storage   *Storage
	rawFiles  RawFileLister
	playbooks *playbook.Router
	product   domain.Product
}

func NewPreprocess(storage *Storage, rawFiles RawFileLister, playbooks *playbook.Router, product domain.Product) *Preprocess {
	return &Preprocess{storage: storage, rawFiles: rawFiles, playbooks: playbooks, product: product}
}

func (p *Preprocess) Name() Name { return NamePreprocess }

func (p *Preprocess) Execute(ctx context.Context) Result {
	return run(NamePreprocess, p.product.ID, p.product.CurrentVersion, p.execute(ctx))
}

func (p *Preprocess) execute(ctx context.Context) func() (Status, map[string]any, map[string]string, error) {
	return func() (Status, map[string]any, map[string]string, error) {
		files, err := p.rawFiles.ListRawFiles(ctx, p.product.ID, p.product.CurrentVersion)
		if err != nil {
			return StatusFailed, nil, nil, fmt.Errorf("preprocess: list raw files: %w", err)
		}
		if len(files) == 0 {
			return StatusSkipped, map[string]any{"processed_files": 0, "total_chunks": 0}, nil, nil
		}

		pb, err := p.playbooks.Resolve(p.product.PlaybookID)
		if err != nil {
			return StatusFailed, nil, nil, fmt.Errorf("preprocess: resolve playbook: %w", err)
		}

		// PDF extraction and chunking are compute bound and per-file
		// independent, so files run through a bounded worker pool.
		type fileOutcome struct {
			stem   string
			chunks int
			stats  chunk.Stats
			err    error
		}
		outcomes := fn.ParMap(files, preprocessWorkers, func(rf domain.RawFile) fileOutcome {
			n, stats, err := p.processFile(ctx, rf, pb)
			return fileOutcome{stem: rf.FileStem, chunks: n, stats: stats, err: err}
		})

		var (
			processedFiles []string
			failedFiles    []string
			totalChunks    int
			midBoundaries  int
		)
		for _, out := range outcomes {
			if out.err != nil {
				failedFiles = append(failedFiles, out.stem)
				continue
			}
			if out.chunks == 0 {
				continue
			}
			processedFiles = append(processedFiles, out.stem)
			totalChunks += out.stats.TotalChunks
			midBoundaries += out.stats.MidSentenceBoundaries
		}

		metrics := map[string]any{
			"processed_files":     len(processedFiles),
			"failed_files":        failedFiles,
			"total_chunks":        totalChunks,
			"processed_file_list": processedFiles,
			"playbook_id":         pb.ID,
		}
		if totalChunks > 0 {
			metrics["mid_sentence_boundary_rate"] = float64(midBoundaries) / float64(totalChunks)
		} else {
			metrics["mid_sentence_boundary_rate"] = 0.0
		}

		if len(processedFiles) == 0 {
			return StatusSkipped, metrics, nil, nil
		}
		return StatusSucceeded, metrics, nil, nil
	}
}

// processFile normalizes, section-tags, chunks, and persists one raw
// file's text, returning the chunk count written.
func (p *Preprocess) processFile(ctx context.Context, rf domain.RawFile, pb domain.Playbook) (int, chunk.Stats, error) {
	text, err := p.storage.GetRawText(ctx, rf.FileStem)
	if err != nil {
		return 0, chunk.Stats{}, fmt.Errorf("preprocess: read %s: %w", rf.FileStem, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, chunk.Stats{}, nil
	}

	text = normalizeWhitespace(text)
	if p.product.Chunking.PreprocessFlags.EnhancedNormalization {
		text = enhancedNormalize(text)
	}
	if text == "" {
		return 0, chunk.Stats{}, nil
	}

	sections, pages := detectSections(text)
	opt := p.resolveChunkOptions(text, rf.Filename, pb)

	pieces, err := chunk.Split(text, sections, opt)
	if err != nil {
		return 0, chunk.Stats{}, fmt.Errorf("preprocess: split %s: %w", rf.FileStem, err)
	}
	if len(pieces) == 0 {
		return 0, chunk.Stats{}, nil
	}

	for i := range pieces {
		if off := strings.Index(text, pieces[i].Text); off >= 0 {
			pieces[i].Page = pageForOffset(text, off, pages)
		}
	}

	records, stats := chunk.ToRecords(rf.FileStem, pieces)
	if p.product.Chunking.PreprocessFlags.Deduplication {
		records = dedupeRecords(records)
	}
	now := time.Now().UTC().Format(time.RFC3339)
	for i := range records {
		records[i].Source = rf.Filename
		records[i].Timestamp = now
	}
	if err := p.storage.PutProcessedJSONL(ctx, rf.FileStem, records); err != nil {
		return 0, chunk.Stats{}, fmt.Errorf("preprocess: write %s: %w", rf.FileStem, err)
	}
	return len(records), stats, nil
}

// dedupeRecords drops records whose normalized text already appeared
// earlier in the same file, keeping first occurrence.
func dedupeRecords(records []domain.ProcessedChunkRecord) []domain.ProcessedChunkRecord {
	seen := make(map[string]bool, len(records))
	out := records[:0]
	for _, r := range records {
		key := strings.Join(strings.Fields(strings.ToLower(r.Text)), " ")
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, r)
	}
	return out
}

// resolveChunkOptions honors a manual ChunkingConfig verbatim; in auto
// mode it runs the content analyzer (seeded with the playbook's hint)
// and layers the playbook's own chunking section on top where set — the
// playbook overrides analyzer defaults.
func (p *Preprocess) resolveChunkOptions(text, filename string, pb domain.Playbook) chunk.Options {
	cfg := p.product.Chunking
	if cfg.Mode == domain.ChunkingModeManual && cfg.MaxTokens > 0 {
		return chunk.Options{
			Strategy:  cfg.Strategy,
			MaxTokens: cfg.MaxTokens,
			Overlap:   cfg.Overlap,
			MinTokens: cfg.MinTokens,
			MaxHard:   cfg.MaxTokensHard,
		}
	}

	analyzed := content.Analyze(text, filename, p.product.PlaybookID)
	opt := chunk.Options{
		Strategy:  analyzed.Strategy,
		MaxTokens: analyzed.ChunkSize,
		Overlap:   analyzed.ChunkOverlap,
		MinTokens: analyzed.MinChunkSize,
		MaxHard:   analyzed.MaxChunkSize,
	}
	if pb.Chunking.MaxTokens > 0 {
		opt.MaxTokens = pb.Chunking.MaxTokens
		opt.Overlap = pb.Chunking.Overlap
	}
	if pb.Chunking.Strategy != "" {
		opt.Strategy = pb.Chunking.Strategy
	}
	return opt
}
