// Package encoder wraps the external rpg-encoder binary: locating it,
// running its build, lift, and search commands, and translating their text
// output into typed results. The encoder's output grammar is pinned in this
// package and nowhere else, so a format change on the tool side stays a
// one-package fix.
package encoder

import (
	"regexp"
	"strconv"
	"strings"
)

// Hit is one parsed search result line, in emission order.
type Hit struct {
	Index int     // 1-based position as printed by the encoder
	Name  string  // Entity name
	File  string  // Path relative to the project root
	Line  int     // Line number of the entity
	Score float64 // Relevance score
}

// resultLine matches the encoder's search output, e.g.
//
//	3. parse_results [src/search.rs:142] (score: 0.87)
//
// Continuation lines (indented "features: ..." details) and diagnostics
// deliberately fail the match.
var resultLine = regexp.MustCompile(`^(\d+)\.\s+(\S+)\s+\[(.+?):(\d+)\]\s+\(score:\s+([\d.]+)\)`)

// ParseSearchResults extracts hits from search stdout. Lines that do not
// match the result grammar are skipped silently; parsing is best-effort and
// never fails. Hits keep the order they were emitted in.
func ParseSearchResults(stdout string) []Hit {
	var hits []Hit
	for _, line := range strings.Split(strings.TrimSpace(stdout), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		m := resultLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		index, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		lineNo, err := strconv.Atoi(m[4])
		if err != nil {
			continue
		}
		score, err := strconv.ParseFloat(m[5], 64)
		if err != nil {
			continue
		}
		hits = append(hits, Hit{
			Index: index,
			Name:  m[2],
			File:  m[3],
			Line:  lineNo,
			Score: score,
		})
	}
	return hits
}

// HitFiles returns just the file paths of hits, preserving order. Rank
// extraction and top-k recording both work on paths alone.
func HitFiles(hits []Hit) []string {
	files := make([]string, len(hits))
	for i, h := range hits {
		files[i] = h.File
	}
	return files
}
