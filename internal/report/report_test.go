package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/userFRM/rpg-bench/internal/metrics"
	"github.com/userFRM/rpg-bench/internal/models"
)

func measuredRepo() models.RepoResult {
	lifted := metrics.Compute([]int{1, 2})
	return models.RepoResult{
		Name:        "tokio-rs/tokio",
		Language:    "rust",
		Entities:    120,
		LiftedCount: 118,
		Queries:     2,
		Unlifted:    metrics.Compute([]int{3, 0}),
		Lifted:      &lifted,
		UnliftedObs: []models.RankObservation{
			{Query: "spawn a task", Rank: 3},
			{Query: "read a file", Rank: 0},
		},
		LiftedObs: []models.RankObservation{
			{Query: "spawn a task", Rank: 1},
			{Query: "read a file", Rank: 2},
		},
	}
}

func baselineOnlyRepo() models.RepoResult {
	return models.RepoResult{
		Name:     "rpg-encoder",
		Language: "rust",
		Entities: 40,
		Queries:  1,
		Unlifted: metrics.Compute([]int{1}),
		UnliftedObs: []models.RankObservation{
			{Query: "parse results", Rank: 1},
		},
	}
}

func TestTotal(t *testing.T) {
	totals := Total([]models.RepoResult{measuredRepo(), baselineOnlyRepo()})

	assert.Equal(t, 3, totals.Unlifted.Total)
	assert.Equal(t, 1, totals.Unlifted.At1)
	assert.Equal(t, 2, totals.Unlifted.At3)
	assert.InDelta(t, 4.0/3.0, totals.Unlifted.MRRSum, 1e-9)

	assert.Equal(t, 2, totals.Lifted.Total)
	assert.Equal(t, 1, totals.Lifted.At1)
	assert.Equal(t, 2, totals.Lifted.At3)
	assert.InDelta(t, 1.5, totals.Lifted.MRRSum, 1e-9)

	require.Len(t, totals.Pairs, 2)
	assert.Equal(t, metrics.QueryPair{Query: "spawn a task", Baseline: 3, Treatment: 1}, totals.Pairs[0])
	assert.Equal(t, metrics.QueryPair{Query: "read a file", Baseline: 0, Treatment: 2}, totals.Pairs[1])
	assert.True(t, totals.Measured())
}

func TestTotalsBootstrapDeterministic(t *testing.T) {
	totals := Total([]models.RepoResult{measuredRepo()})

	first, ok, err := totals.Bootstrap(500, 0.95, 42)
	require.NoError(t, err)
	require.True(t, ok)
	second, ok, err := totals.Bootstrap(500, 0.95, 42)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, first, second)

	assert.InDelta(t, 0.75-1.0/6.0, first.Delta, 1e-9)
	assert.LessOrEqual(t, first.Lower, first.Upper)
}

func TestTotalsBootstrapNoTreatmentPass(t *testing.T) {
	totals := Total([]models.RepoResult{baselineOnlyRepo()})

	_, ok, err := totals.Bootstrap(1000, 0.95, 42)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTotalsBootstrapBadParams(t *testing.T) {
	totals := Total([]models.RepoResult{measuredRepo()})

	_, ok, err := totals.Bootstrap(0, 0.95, 42)
	require.Error(t, err)
	assert.False(t, ok)
}

func TestAssembleWireShape(t *testing.T) {
	results := []models.RepoResult{measuredRepo(), baselineOnlyRepo()}
	ci := &metrics.BootstrapResult{Delta: 0.12345678, Lower: -0.011111, Upper: 0.2499999}

	rep := Assemble("/usr/local/bin/rpg-encoder", results, ci)

	assert.NotEmpty(t, rep.RunID)
	_, err := time.Parse(TimestampLayout, rep.Timestamp)
	require.NoError(t, err)

	data, err := json.Marshal(rep)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))

	assert.Equal(t, "/usr/local/bin/rpg-encoder", doc["binary"])

	summary := doc["summary"].(map[string]any)
	unlifted := summary["unlifted"].(map[string]any)
	for _, key := range []string{"@1", "@3", "@5", "@10", "total"} {
		assert.Contains(t, unlifted, key)
	}
	assert.Equal(t, float64(3), unlifted["total"])
	assert.Equal(t, 0.4444, summary["unlifted_mrr"])
	assert.Equal(t, 0.75, summary["lifted_mrr"])

	ciBlock := summary["mrr_bootstrap_ci"].(map[string]any)
	assert.Equal(t, 0.1235, ciBlock["delta"])
	assert.Equal(t, -0.0111, ciBlock["ci_lower"])
	assert.Equal(t, 0.25, ciBlock["ci_upper"])

	repos := doc["repos"].([]any)
	require.Len(t, repos, 2)

	first := repos[0].(map[string]any)
	assert.Equal(t, "tokio-rs/tokio", first["name"])
	assert.Equal(t, "rust", first["language"])
	assert.Equal(t, float64(118), first["lifted_count"])
	passBlock := first["unlifted"].(map[string]any)
	assert.Equal(t, float64(2), passBlock["total"])
	assert.InDelta(t, 1.0/3.0, passBlock["mrr"].(float64), 1e-9)
	perQuery := first["per_query"].(map[string]any)
	liftedRanks := perQuery["lifted"].([]any)
	require.Len(t, liftedRanks, 2)
	assert.Equal(t, map[string]any{"query": "spawn a task", "rank": float64(1)}, liftedRanks[0])

	second := repos[1].(map[string]any)
	require.Contains(t, second, "lifted")
	assert.Nil(t, second["lifted"])
	secondPQ := second["per_query"].(map[string]any)
	emptyLifted, present := secondPQ["lifted"]
	require.True(t, present)
	assert.Equal(t, []any{}, emptyLifted)
}

func TestAssembleOmitsCIWhenAbsent(t *testing.T) {
	rep := Assemble("rpg-encoder", []models.RepoResult{baselineOnlyRepo()}, nil)

	data, err := json.Marshal(rep)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "mrr_bootstrap_ci")
	assert.Equal(t, 0.0, rep.Summary.LiftedMRR)
	assert.Equal(t, 0, rep.Summary.Lifted.Total)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.json")
	rep := Assemble("rpg-encoder", []models.RepoResult{measuredRepo()}, nil)

	var out bytes.Buffer
	require.NoError(t, Save(&out, path, rep))
	assert.Equal(t, "Results saved to "+path+"\n", out.String())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "{\n  \"run_id\":"))

	var loaded Report
	require.NoError(t, json.Unmarshal(data, &loaded))
	assert.Equal(t, *rep, loaded)
}

func TestResolvePath(t *testing.T) {
	tests := []struct {
		name   string
		output string
		files  []string
		want   string
	}{
		{"default next to suite", "", []string{filepath.Join("benchmarks", "queries.json")}, filepath.Join("benchmarks", "results.json")},
		{"relative next to suite", "report.json", []string{"/data/suite/queries.yaml", "other.json"}, "/data/suite/report.json"},
		{"absolute kept", "/tmp/out.json", []string{filepath.Join("benchmarks", "queries.json")}, "/tmp/out.json"},
		{"no suite files", "results.json", nil, "results.json"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolvePath(tt.output, tt.files))
		})
	}
}

func TestDecide(t *testing.T) {
	assert.True(t, Decide(0.45, 0.58))
	assert.True(t, Decide(0.45, 0.45))
	assert.False(t, Decide(0.58, 0.45))
}

func TestGate(t *testing.T) {
	var out bytes.Buffer
	assert.True(t, Gate(&out, 0.45, 0.583))
	assert.Equal(t, "CI PASS: lifted MRR (0.583) >= unlifted MRR (0.450)\n", out.String())

	out.Reset()
	assert.False(t, Gate(&out, 0.583, 0.45))
	assert.Equal(t, "CI FAIL: lifted MRR (0.450) < unlifted MRR (0.583)\n", out.String())
}
