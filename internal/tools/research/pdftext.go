package research

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"
)

var (
	hyphenBreak = regexp.MustCompile(`-\n`)
	lineEnds    = regexp.MustCompile(`\r\n|\r`)
	blankRuns   = regexp.MustCompile(`[ \t]+`)
	emptyLines  = regexp.MustCompile(`\n{3,}`)
)

// extractPDFText returns the plain text of the first maxPages pages.
func extractPDFText(data []byte, maxPages int) (text string, err error) {
	defer func() {
		if p := recover(); p != nil {
			text, err = "", fmt.Errorf("pdf reader panicked: %v", p)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	limit := reader.NumPage()
	if maxPages > 0 && maxPages < limit {
		limit = maxPages
	}

	pages := make([]string, 0, limit)
	for i := 1; i <= limit; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}
		pages = append(pages, content)
	}
	return strings.Join(pages, "\n"), nil
}

// cleanText joins words hyphenated across lines, normalises line endings,
// collapses runs of blanks and keeps at most one empty line in a row.
func cleanText(s string) string {
	s = hyphenBreak.ReplaceAllString(s, "")
	s = lineEnds.ReplaceAllString(s, "\n")
	s = blankRuns.ReplaceAllString(s, " ")
	s = emptyLines.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// truncateRunes returns the first n runes of s.
func truncateRunes(s string, n int) (string, bool) {
	if n <= 0 {
		return s, false
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i], true
		}
		count++
	}
	return s, false
}

// looksUnreadable reports text extracted as long runs of glued tokens, which
// some PDFs produce when word spacing is positional.
func looksUnreadable(snippet string) bool {
	letters := 0
	for _, ch := range snippet {
		if unicode.IsLetter(ch) {
			letters++
		}
	}
	spaces := strings.Count(snippet, " ")

	longest := 0
	for _, tok := range strings.Fields(snippet) {
		if n := len([]rune(tok)); n > longest {
			longest = n
		}
	}

	return letters > 120 &&
		float64(spaces)/float64(max(1, letters)) < 0.03 &&
		longest > 80
}

// ensurePDFURL turns an arXiv abstract URL into its PDF URL.
func ensurePDFURL(absOrPDF string) string {
	u := strings.ReplaceAll(strings.TrimSpace(absOrPDF), "http://", "https://")
	if strings.Contains(u, "/pdf/") && strings.HasSuffix(u, ".pdf") {
		return u
	}
	u = strings.ReplaceAll(u, "/abs/", "/pdf/")
	if !strings.HasSuffix(u, ".pdf") {
		u += ".pdf"
	}
	return u
}
