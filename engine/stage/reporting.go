package stage

import (
	"bytes"
	"context"
	"fmt"

	"github.com/jung-kurt/gofpdf/v2"

	"github.com/primedata-ai/aird/engine/domain"
)

// ReportArtifactName is the PDF trust report the reporting stage emits.
const ReportArtifactName = "trust_report.pdf"

// Reporting renders the PDF trust report: the fingerprint summary, the
// policy violations, and the chunk trust-score distribution.
type Reporting struct {
	storage *Storage
	product domain.Product
}

func NewReporting(storage *Storage, product domain.Product) *Reporting {
	return &Reporting{storage: storage, product: product}
}

func (r *Reporting) Name() Name { return NameReporting }

func (r *Reporting) Execute(ctx context.Context) Result {
	return run(NameReporting, r.product.ID, r.product.CurrentVersion, func() (Status, map[string]any, map[string]string, error) {
		fp, err := LoadFingerprint(ctx, r.storage)
		if err != nil {
			return StatusSkipped, map[string]any{"reason": "fingerprint missing"}, nil, nil
		}
		pol, err := LoadPolicyResult(ctx, r.storage)
		if err != nil {
			pol = domain.PolicyEvaluationResult{}
		}
		records, err := r.storage.GetMetricsJSON(ctx)
		if err != nil {
			records = nil
		}

		data, err := renderTrustReport(r.product, fp, pol, records)
		if err != nil {
			return StatusFailed, nil, nil, fmt.Errorf("reporting: render pdf: %w", err)
		}
		key, err := r.storage.PutArtifact(ctx, ReportArtifactName, data, "application/pdf")
		if err != nil {
			return StatusFailed, nil, nil, fmt.Errorf("reporting: write artifact: %w", err)
		}

		metrics := map[string]any{
			"report_bytes": len(data),
			"chunks":       len(records),
		}
		return StatusSucceeded, metrics, map[string]string{ReportArtifactName: key}, nil
	})
}

func renderTrustReport(product domain.Product, fp domain.Fingerprint, pol domain.PolicyEvaluationResult, records []domain.PerChunkMetricRecord) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("AI Trust Report", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 12, "AI Trust Report")
	pdf.Ln(14)

	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 7, fmt.Sprintf("Product: %s (v%d)", product.Name, product.CurrentVersion))
	pdf.Ln(7)
	if pol.Status != "" {
		pdf.Cell(0, 7, fmt.Sprintf("Policy status: %s", pol.Status))
		pdf.Ln(7)
	}
	pdf.Ln(4)

	// Fingerprint summary table.
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Readiness Fingerprint")
	pdf.Ln(9)
	pdf.SetFont("Helvetica", "", 10)
	rows := []struct {
		label string
		value float64
	}{
		{"AI Trust Score", fp.AITrustScore},
		{"Completeness", fp.Completeness},
		{"Quality", fp.Quality},
		{"Secure", fp.Secure},
		{"Metadata Presence", fp.MetadataPresence},
		{"KnowledgeBase Ready", fp.KBReady},
		{"Vector Quality Score", fp.VectorQualityScore},
		{"Embedding Model Health", fp.EmbeddingModelHealth},
		{"Semantic Search Readiness", fp.SemanticSearchReadiness},
	}
	for _, row := range rows {
		pdf.CellFormat(70, 6, row.label, "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 6, fmt.Sprintf("%.1f", row.value), "1", 0, "R", false, 0, "")
		pdf.Ln(6)
	}
	pdf.Ln(6)

	// Violations.
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Policy Violations")
	pdf.Ln(9)
	pdf.SetFont("Helvetica", "", 10)
	if len(pol.Violations) == 0 {
		pdf.Cell(0, 6, "None")
		pdf.Ln(6)
	}
	for _, v := range pol.Violations {
		pdf.Cell(0, 6, "- "+v)
		pdf.Ln(6)
	}
	pdf.Ln(6)

	// Trust-score distribution: ten 10-point bands drawn as filled bars.
	if len(records) > 0 {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.Cell(0, 8, "Chunk Trust Score Distribution")
		pdf.Ln(9)
		pdf.SetFont("Helvetica", "", 9)

		var bands [10]int
		for _, rec := range records {
			i := int(rec.AITrustScore / 10)
			if i > 9 {
				i = 9
			}
			if i < 0 {
				i = 0
			}
			bands[i]++
		}
		max := 1
		for _, n := range bands {
			if n > max {
				max = n
			}
		}
		const barMaxWidth = 100.0
		pdf.SetFillColor(70, 130, 180)
		for i, n := range bands {
			label := fmt.Sprintf("%d-%d", i*10, i*10+10)
			pdf.CellFormat(20, 5, label, "", 0, "L", false, 0, "")
			x, y := pdf.GetXY()
			pdf.Rect(x, y+0.8, barMaxWidth*float64(n)/float64(max), 3.4, "F")
			pdf.SetXY(x+barMaxWidth+2, y)
			pdf.CellFormat(15, 5, fmt.Sprintf("%d", n), "", 0, "L", false, 0, "")
			pdf.Ln(5)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
