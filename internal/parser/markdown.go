package parser

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"gopkg.in/yaml.v3"

	"github.com/userFRM/rpg-bench/internal/models"
)

// MarkdownParser reads suites written as Markdown documents with one
// section per repo:
//
//	---
//	default_language: rust
//	---
//
//	## Repo: rpg-encoder (rust)
//
//	**Path**: .
//
//	- parse search output into hits -> search.rs, results.rs
//	- locate the bootstrap estimator -> stats.rs
//
// A repo heading names the repo and optionally its language in parentheses;
// **Path**/**URL** lines pick the source; each list item is one query with
// its expected basenames after the last "->".
type MarkdownParser struct {
	markdown goldmark.Markdown
}

// NewMarkdownParser creates a MarkdownParser.
func NewMarkdownParser() *MarkdownParser {
	return &MarkdownParser{
		markdown: goldmark.New(),
	}
}

// suiteFrontmatter holds the optional suite-level defaults.
type suiteFrontmatter struct {
	DefaultLanguage string `yaml:"default_language"`
}

var (
	repoHeadingRegex  = regexp.MustCompile(`^Repo:\s+(.+?)(?:\s+\(([^)]+)\))?$`)
	repoHeadingLine   = regexp.MustCompile(`^##\s+Repo:\s+(.+?)(?:\s+\(([^)]+)\))?\s*$`)
	repoMetadataRegex = regexp.MustCompile(`^\*\*(Path|URL|Language)\*\*\s*:\s*(.+)$`)
	queryItemRegex    = regexp.MustCompile(`^[-*]\s+(.+)$`)
)

// Parse reads a Markdown suite. The document structure is checked against
// the goldmark AST; the per-repo data is then extracted line by line, which
// is more reliable for our narrow format (and keeps queries inside code
// fences from being misread as list items).
func (p *MarkdownParser) Parse(r io.Reader) (*models.Suite, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read content: %w", err)
	}

	content, frontmatter := extractFrontmatter(content)
	var defaults suiteFrontmatter
	if frontmatter != nil {
		if err := yaml.Unmarshal(frontmatter, &defaults); err != nil {
			return nil, fmt.Errorf("failed to parse frontmatter: %w", err)
		}
	}

	doc := p.markdown.Parser().Parse(text.NewReader(content))
	headings := p.repoHeadings(doc, content)
	if len(headings) == 0 {
		return nil, fmt.Errorf("no \"## Repo: <name> (<language>)\" sections found")
	}

	repos, err := extractReposLineByLine(content, defaults.DefaultLanguage)
	if err != nil {
		return nil, err
	}
	return &models.Suite{Repos: repos}, nil
}

// repoHeadings collects the text of every level-2 "Repo:" heading from the
// parsed AST.
func (p *MarkdownParser) repoHeadings(doc ast.Node, source []byte) []string {
	var found []string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		heading, ok := n.(*ast.Heading)
		if !ok || heading.Level != 2 {
			return ast.WalkContinue, nil
		}
		headingText := extractText(heading, source)
		if repoHeadingRegex.MatchString(headingText) {
			found = append(found, headingText)
		}
		return ast.WalkContinue, nil
	})
	return found
}

// extractReposLineByLine walks the document collecting repo sections and
// their query items. Content inside code fences is ignored.
func extractReposLineByLine(content []byte, defaultLanguage string) ([]models.Repo, error) {
	var repos []models.Repo
	var current *models.Repo
	inCodeBlock := false

	flush := func() {
		if current != nil {
			repos = append(repos, *current)
			current = nil
		}
	}

	for _, rawLine := range strings.Split(string(content), "\n") {
		line := strings.TrimSpace(rawLine)

		if strings.HasPrefix(line, "```") {
			inCodeBlock = !inCodeBlock
			continue
		}
		if inCodeBlock {
			continue
		}

		if m := repoHeadingLine.FindStringSubmatch(line); m != nil {
			flush()
			current = &models.Repo{
				Name:     strings.TrimSpace(m[1]),
				Language: strings.TrimSpace(m[2]),
			}
			if current.Language == "" {
				current.Language = defaultLanguage
			}
			continue
		}

		// Any other level-2 heading ends the current repo section.
		if strings.HasPrefix(line, "## ") {
			flush()
			continue
		}
		if current == nil {
			continue
		}

		if m := repoMetadataRegex.FindStringSubmatch(line); m != nil {
			value := strings.TrimSpace(m[2])
			switch m[1] {
			case "Path":
				current.LocalPath = value
			case "URL":
				current.URL = value
			case "Language":
				current.Language = value
			}
			continue
		}

		if m := queryItemRegex.FindStringSubmatch(line); m != nil {
			q, err := parseQueryItem(m[1])
			if err != nil {
				return nil, fmt.Errorf("repo %q: %w", current.Name, err)
			}
			current.Queries = append(current.Queries, q)
		}
	}
	flush()

	return repos, nil
}

// parseQueryItem splits one list item into query text and expected
// basenames. The LAST "->" separates the two, so queries mentioning "->"
// themselves still parse; expected entries are comma-separated.
func parseQueryItem(item string) (models.QueryCase, error) {
	idx := strings.LastIndex(item, "->")
	if idx < 0 {
		return models.QueryCase{}, fmt.Errorf("query item %q has no \"-> expected-files\" part", item)
	}

	query := stripDecoration(item[:idx])
	var expect []string
	for _, part := range strings.Split(item[idx+len("->"):], ",") {
		if e := stripDecoration(part); e != "" {
			expect = append(expect, e)
		}
	}
	return models.QueryCase{Query: query, Expect: expect}, nil
}

// stripDecoration trims whitespace plus surrounding quotes or backticks.
func stripDecoration(s string) string {
	s = strings.TrimSpace(s)
	for _, quote := range []string{"`", `"`, "'"} {
		if len(s) >= 2 && strings.HasPrefix(s, quote) && strings.HasSuffix(s, quote) {
			s = s[1 : len(s)-1]
			break
		}
	}
	return strings.TrimSpace(s)
}

// extractText extracts plain text from an AST node's direct children.
func extractText(n ast.Node, source []byte) string {
	var buf bytes.Buffer
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			buf.Write(t.Segment.Value(source))
		}
	}
	return buf.String()
}

// extractFrontmatter splits optional YAML frontmatter from the body.
// Returns the content without frontmatter and the frontmatter bytes, or the
// content unchanged and nil when no frontmatter is present.
func extractFrontmatter(content []byte) ([]byte, []byte) {
	lines := bytes.Split(content, []byte("\n"))

	if len(lines) < 3 || !bytes.Equal(bytes.TrimSpace(lines[0]), []byte("---")) {
		return content, nil
	}

	for i := 1; i < len(lines); i++ {
		if bytes.Equal(bytes.TrimSpace(lines[i]), []byte("---")) {
			frontmatter := bytes.Join(lines[1:i], []byte("\n"))
			body := bytes.Join(lines[i+1:], []byte("\n"))
			return body, frontmatter
		}
	}

	return content, nil
}
