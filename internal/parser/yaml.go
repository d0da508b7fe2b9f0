package parser

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/userFRM/rpg-bench/internal/models"
)

// YAMLParser reads suites with the same shape as the JSON layout, spelled
// in YAML:
//
//	repos:
//	  - name: rpg-encoder
//	    language: rust
//	    local_path: .
//	    queries:
//	      - query: parse search output into hits
//	        expect: [search.rs]
type YAMLParser struct{}

// NewYAMLParser creates a YAMLParser.
func NewYAMLParser() *YAMLParser {
	return &YAMLParser{}
}

type yamlSuite struct {
	Repos []yamlRepo `yaml:"repos"`
}

type yamlRepo struct {
	Name      string      `yaml:"name"`
	Language  string      `yaml:"language"`
	LocalPath string      `yaml:"local_path"`
	URL       string      `yaml:"url"`
	Queries   []yamlQuery `yaml:"queries"`
}

type yamlQuery struct {
	Query  string   `yaml:"query"`
	Expect []string `yaml:"expect"`
}

// Parse reads a YAML suite.
func (p *YAMLParser) Parse(r io.Reader) (*models.Suite, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read content: %w", err)
	}

	var raw yamlSuite
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}

	suite := &models.Suite{Repos: make([]models.Repo, 0, len(raw.Repos))}
	for _, yr := range raw.Repos {
		repo := models.Repo{
			Name:      yr.Name,
			Language:  yr.Language,
			LocalPath: yr.LocalPath,
			URL:       yr.URL,
			Queries:   make([]models.QueryCase, 0, len(yr.Queries)),
		}
		for _, yq := range yr.Queries {
			repo.Queries = append(repo.Queries, models.QueryCase{
				Query:  yq.Query,
				Expect: yq.Expect,
			})
		}
		suite.Repos = append(suite.Repos, repo)
	}
	return suite, nil
}
