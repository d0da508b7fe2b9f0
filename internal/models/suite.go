// Package models defines the shared data types for benchmark runs: query
// suites loaded from disk, the rank observations produced by measurement,
// and the per-repo results the report is assembled from.
package models

import (
	"errors"
	"fmt"
	"strings"
)

// Suite is a full set of benchmark definitions, usually parsed from one or
// more suite files and merged in argument order.
type Suite struct {
	Repos     []Repo   // Repositories to benchmark, in file order
	FilePaths []string // Source suite files (for diagnostics and report paths)
}

// Repo describes one repository under test and its queries.
type Repo struct {
	Name      string      // Repo identifier, e.g. "rpg-encoder" or "tokio-rs/tokio"
	Language  string      // Language passed to the encoder build
	LocalPath string      // Local source tree to copy (exactly one of LocalPath/URL)
	URL       string      // Remote repository to clone with depth 1
	Queries   []QueryCase // Queries with known target files
}

// QueryCase pairs one natural-language query with the file basenames that
// count as a correct localization.
type QueryCase struct {
	Query  string   // Search text handed to the encoder verbatim
	Expect []string // Target basenames; any one matching scores the query
}

// ShortName returns the repo's directory name inside the bench workspace:
// the segment after the last "/" for owner-qualified names, the full name
// otherwise. Both the prepare and measure phases resolve directories through
// this, so they can never disagree.
func (r *Repo) ShortName() string {
	if i := strings.LastIndex(r.Name, "/"); i >= 0 {
		return r.Name[i+1:]
	}
	return r.Name
}

// IsRemote reports whether the repo is materialized by cloning rather than
// copying a local tree.
func (r *Repo) IsRemote() bool {
	return r.URL != ""
}

// TotalQueries returns the number of queries across all repos.
func (s *Suite) TotalQueries() int {
	n := 0
	for i := range s.Repos {
		n += len(s.Repos[i].Queries)
	}
	return n
}

// Validate checks the whole suite: at least one repo, no duplicate repo
// names, and every repo and query individually valid. Errors name the repo
// and query they refer to.
func (s *Suite) Validate() error {
	if len(s.Repos) == 0 {
		return errors.New("suite defines no repos")
	}
	seen := make(map[string]bool, len(s.Repos))
	for i := range s.Repos {
		r := &s.Repos[i]
		if err := r.Validate(); err != nil {
			if r.Name != "" {
				return fmt.Errorf("repo %q: %w", r.Name, err)
			}
			return fmt.Errorf("repo %d: %w", i+1, err)
		}
		if seen[r.Name] {
			return fmt.Errorf("duplicate repo name %q", r.Name)
		}
		seen[r.Name] = true
	}
	return nil
}

// Validate checks a single repo definition.
func (r *Repo) Validate() error {
	if r.Name == "" {
		return errors.New("repo name is required")
	}
	if r.Language == "" {
		return errors.New("repo language is required")
	}
	if r.LocalPath == "" && r.URL == "" {
		return errors.New("repo needs a local_path or a url")
	}
	if r.LocalPath != "" && r.URL != "" {
		return errors.New("repo has both a local_path and a url; pick one")
	}
	if len(r.Queries) == 0 {
		return errors.New("repo defines no queries")
	}
	for i := range r.Queries {
		if err := r.Queries[i].Validate(); err != nil {
			return fmt.Errorf("query %d: %w", i+1, err)
		}
	}
	return nil
}

// Validate checks a single query case. Expected entries must be bare
// basenames; rank extraction compares them against the final path segment
// of each hit, so a path here could never match.
func (q *QueryCase) Validate() error {
	if strings.TrimSpace(q.Query) == "" {
		return errors.New("query text is required")
	}
	if len(q.Expect) == 0 {
		return errors.New("query lists no expected files")
	}
	for _, e := range q.Expect {
		if strings.TrimSpace(e) == "" {
			return errors.New("expected file name is empty")
		}
		if strings.ContainsAny(e, `/\`) {
			return fmt.Errorf("expected file %q must be a basename, not a path", e)
		}
	}
	return nil
}
