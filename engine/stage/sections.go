package stage

import (
	"regexp"
	"strconv"
	"strings"
)

// headingRe recognizes the same markdown-heading shape the content
// analyzer scores documentation against, plus numbered-section headings
// ("1.2 Scope") and short ALL-CAPS lines, the cues playbooks rely on to
// mark section boundaries ahead of chunking.
var (
	headingRe  = regexp.MustCompile(`^#{1,6}\s+\S`)
	numberedRe = regexp.MustCompile(`^\d+(\.\d+)*\.?\s+\S`)
	allCapsRe  = regexp.MustCompile(`^[A-Z][A-Z0-9 ,.&/'-]{2,60}$`)
	pageMarkRe = regexp.MustCompile(`^=== PAGE (\d+) ===$`)
)

// detectSections walks text line by line and returns a line->section label
// map and a line->page map, recognizing "=== PAGE n ===" markers (emitted
// by the PDF extractor) and heading-shaped lines. A line inherits the most
// recent heading seen above it and the most recent page marker.
func detectSections(text string) (sections map[int]string, pages map[int]int) {
	lines := strings.Split(text, "\n")
	sections = make(map[int]string, len(lines))
	pages = make(map[int]int, len(lines))

	section := ""
	page := 0
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if m := pageMarkRe.FindStringSubmatch(trimmed); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				page = n
			}
		} else if isHeading(trimmed) {
			section = trimmed
		}
		sections[i] = section
		pages[i] = page
	}
	return sections, pages
}

func isHeading(line string) bool {
	if line == "" {
		return false
	}
	return headingRe.MatchString(line) || numberedRe.MatchString(line) || allCapsRe.MatchString(line)
}

// pageForOffset returns the page recorded at the line containing byte
// offset off in text, given the line->page map detectSections built.
func pageForOffset(text string, off int, pages map[int]int) int {
	if pages == nil || off > len(text) {
		return 0
	}
	line := strings.Count(text[:off], "\n")
	return pages[line]
}
