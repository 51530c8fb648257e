package scoring

import "regexp"

// piiPatterns is a curated set of high-confidence PII shapes. Kept
// deliberately narrow: a false redaction flag drags Secure below the
// policy gate for clean corpora.
var piiPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`), // email
	regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`),                              // US SSN
	regexp.MustCompile(`\b(?:\d[ -]*?){13,16}\b`),                            // credit card
	regexp.MustCompile(`\b\(?\d{3}\)?[ .-]?\d{3}[ .-]?\d{4}\b`),              // phone
	regexp.MustCompile(`\b\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}\b`),             // IPv4
}

var redactionMarkers = regexp.MustCompile(`(?i)\[(redacted|pii removed|masked)\]`)

// SecurityScore estimates the fraction of text free of unredacted PII
// signal, scaled to [0, 100]. Explicit redaction markers count as a
// positive signal (the pipeline already handled that span), not a
// penalty.
func SecurityScore(text string) float64 {
	if text == "" {
		return 100
	}
	hits := 0
	for _, p := range piiPatterns {
		hits += len(p.FindAllString(text, -1))
	}
	redactions := len(redactionMarkers.FindAllString(text, -1))
	density := float64(hits) / (float64(len(text))/1000.0 + 1)

	score := 100 - density*20
	score += float64(redactions) * 2
	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}
	return score
}
