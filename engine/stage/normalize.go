package stage

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	whitespaceRun = regexp.MustCompile(`[ \t]+`)
	blankLineRun  = regexp.MustCompile(`\n{3,}`)
	hyphenBreak   = regexp.MustCompile(`(\w)-\n(\w)`)
)

// normalizeWhitespace collapses runs of horizontal whitespace and excess
// blank lines — the baseline cleanup every file gets regardless of the
// enhanced_normalization flag.
func normalizeWhitespace(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = whitespaceRun.ReplaceAllString(text, " ")
	text = blankLineRun.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// enhancedNormalize applies the stronger cleanups a playbook can opt
// into: Unicode NFKC folding, hyphen-break repair across a line wrap, and
// form-feed (page-break) handling.
func enhancedNormalize(text string) string {
	text = norm.NFKC.String(text)
	text = hyphenBreak.ReplaceAllString(text, "$1$2")
	text = strings.Map(func(r rune) rune {
		if r == '\f' {
			return '\n'
		}
		return r
	}, text)
	return strings.TrimFunc(text, unicode.IsSpace)
}
