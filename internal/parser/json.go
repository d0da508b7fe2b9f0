package parser

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/userFRM/rpg-bench/internal/models"
)

// JSONParser reads the canonical queries.json layout:
//
//	{"repos": [{"name": ..., "language": ..., "local_path"|"url": ...,
//	            "queries": [{"query": ..., "expect": [...]}]}]}
type JSONParser struct{}

// NewJSONParser creates a JSONParser.
func NewJSONParser() *JSONParser {
	return &JSONParser{}
}

type jsonSuite struct {
	Repos []jsonRepo `json:"repos"`
}

type jsonRepo struct {
	Name      string      `json:"name"`
	Language  string      `json:"language"`
	LocalPath string      `json:"local_path"`
	URL       string      `json:"url"`
	Queries   []jsonQuery `json:"queries"`
}

type jsonQuery struct {
	Query  string   `json:"query"`
	Expect []string `json:"expect"`
}

// Parse reads a JSON suite. Structural validation (required fields,
// basename-only expectations) happens in Suite.Validate, not here.
func (p *JSONParser) Parse(r io.Reader) (*models.Suite, error) {
	var raw jsonSuite
	dec := json.NewDecoder(r)
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	suite := &models.Suite{Repos: make([]models.Repo, 0, len(raw.Repos))}
	for _, jr := range raw.Repos {
		repo := models.Repo{
			Name:      jr.Name,
			Language:  jr.Language,
			LocalPath: jr.LocalPath,
			URL:       jr.URL,
			Queries:   make([]models.QueryCase, 0, len(jr.Queries)),
		}
		for _, jq := range jr.Queries {
			repo.Queries = append(repo.Queries, models.QueryCase{
				Query:  jq.Query,
				Expect: jq.Expect,
			})
		}
		suite.Repos = append(suite.Repos, repo)
	}
	return suite, nil
}
