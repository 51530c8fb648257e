package stage

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/primedata-ai/aird/engine/domain"
	"github.com/primedata-ai/aird/engine/objectstore"
	"github.com/primedata-ai/aird/engine/pathkey"
)

// TextExtractor decodes a non-UTF-8 byte object into text, inserting a
// "=== PAGE n ===" marker before each page's content. Production
// deployments pick a backend per target document language; Storage falls
// back to a naive stdlib-only PDF reader (pdfTextExtractor) when none is
// configured, since no PDF-text-extraction library appears anywhere in
// the retrieved example pack.
type TextExtractor interface {
	Extract(data []byte) (string, bool)
}

// Storage is the stage-facing view of the object store:
// constructed per (workspace, product, version), it knows the path
// scheme and hides bucket/key addressing from every stage.
type Storage struct {
	store     objectstore.Store
	bucket    string
	scope     pathkey.Scope
	extractor TextExtractor
}

// NewStorage builds a Storage for one (workspace, product, version). A
// nil extractor falls back to pdfTextExtractor{}.
func NewStorage(store objectstore.Store, bucket string, scope pathkey.Scope, extractor TextExtractor) *Storage {
	if extractor == nil {
		extractor = pdfTextExtractor{}
	}
	return &Storage{store: store, bucket: bucket, scope: scope, extractor: extractor}
}

// PutRawText stores a file's extracted plain text.
func (s *Storage) PutRawText(ctx context.Context, stem, text string) error {
	return s.store.PutBytes(ctx, s.bucket, s.scope.RawTextKey(stem), []byte(text), "text/plain; charset=utf-8")
}

// PutManifest stores a raw file's ingestion manifest.
func (s *Storage) PutManifest(ctx context.Context, stem string, manifest any) error {
	return objectstore.PutJSON(ctx, s.store, s.bucket, s.scope.RawManifestKey(stem), manifest)
}

// PutProcessedJSONL writes one newline-delimited JSON object per record.
func (s *Storage) PutProcessedJSONL(ctx context.Context, stem string, records []domain.ProcessedChunkRecord) error {
	var buf bytes.Buffer
	for _, r := range records {
		line, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("stage: marshal processed record: %w", err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	return s.store.PutBytes(ctx, s.bucket, s.scope.ProcessedJSONLKey(stem), buf.Bytes(), "application/x-ndjson")
}

// PutMetricsJSON writes the scoring stage's per-chunk metrics array.
func (s *Storage) PutMetricsJSON(ctx context.Context, records []domain.PerChunkMetricRecord) error {
	return objectstore.PutJSON(ctx, s.store, s.bucket, s.scope.MetricsJSONKey(), records)
}

// PutArtifact writes a named stage artifact (CSV, PDF, ...) and returns
// the object key it landed at, for artifact registration.
func (s *Storage) PutArtifact(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	key := s.scope.ArtifactKey(name)
	if err := s.store.PutBytes(ctx, s.bucket, key, data, contentType); err != nil {
		return "", err
	}
	return key, nil
}

// GetArtifact reads a named stage artifact back.
func (s *Storage) GetArtifact(ctx context.Context, name string) ([]byte, error) {
	return s.store.GetBytes(ctx, s.bucket, s.scope.ArtifactKey(name))
}

// Bucket exposes the bucket this view writes into, for artifact
// registration rows.
func (s *Storage) Bucket() string { return s.bucket }

// Scope exposes the (workspace, product, version) key scope.
func (s *Storage) Scope() pathkey.Scope { return s.scope }

// GetRawText fetches stem's raw object and returns its text. If the bytes
// are not valid UTF-8, a ".pdf" extension triggers the configured
// extractor; any other binary file returns ("", nil) so the caller
// skips it — files that yield no text are skipped, not failed.
func (s *Storage) GetRawText(ctx context.Context, stem string) (string, error) {
	key := s.scope.RawTextKey(stem)
	data, err := s.store.GetBytes(ctx, s.bucket, key)
	if err != nil {
		return "", fmt.Errorf("stage: get raw text %s: %w", stem, err)
	}
	if utf8.Valid(data) {
		return string(data), nil
	}
	if strings.EqualFold(filepath.Ext(stem), ".pdf") {
		if text, ok := s.extractor.Extract(data); ok {
			return text, nil
		}
	}
	return "", nil
}

// GetProcessedJSONL reads back the records last written by
// PutProcessedJSONL, one JSON object per non-blank line.
func (s *Storage) GetProcessedJSONL(ctx context.Context, stem string) ([]domain.ProcessedChunkRecord, error) {
	data, err := s.store.GetBytes(ctx, s.bucket, s.scope.ProcessedJSONLKey(stem))
	if err != nil {
		return nil, fmt.Errorf("stage: get processed jsonl %s: %w", stem, err)
	}
	var out []domain.ProcessedChunkRecord
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var rec domain.ProcessedChunkRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			return nil, fmt.Errorf("stage: parse processed jsonl %s: %w", stem, domain.ErrIntegrity)
		}
		out = append(out, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("stage: scan processed jsonl %s: %w", stem, err)
	}
	return out, nil
}

// GetMetricsJSON reads back metrics.json, wrapping a single bare object
// into a one-element list.
func (s *Storage) GetMetricsJSON(ctx context.Context) ([]domain.PerChunkMetricRecord, error) {
	data, err := s.store.GetBytes(ctx, s.bucket, s.scope.MetricsJSONKey())
	if err != nil {
		return nil, fmt.Errorf("stage: get metrics json: %w", err)
	}
	var list []domain.PerChunkMetricRecord
	if err := json.Unmarshal(data, &list); err == nil {
		return list, nil
	}
	var single domain.PerChunkMetricRecord
	if err := json.Unmarshal(data, &single); err != nil {
		return nil, fmt.Errorf("stage: parse metrics json: %w", domain.ErrIntegrity)
	}
	return []domain.PerChunkMetricRecord{single}, nil
}
