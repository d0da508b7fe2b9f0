package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFindRank(t *testing.T) {
	tests := []struct {
		name   string
		files  []string
		expect []string
		want   int
	}{
		{
			name:   "first hit matches",
			files:  []string{"src/auth.rs", "src/login.rs", "src/session.rs"},
			expect: []string{"auth.rs"},
			want:   1,
		},
		{
			name:   "third hit matches",
			files:  []string{"a.py", "b.py", "c.py"},
			expect: []string{"c.py"},
			want:   3,
		},
		{
			name:   "no hit matches",
			files:  []string{"a.py", "b.py", "c.py"},
			expect: []string{"z.py"},
			want:   0,
		},
		{
			name:   "basename extracted from nested path",
			files:  []string{"crates/core/src/graph.rs", "crates/cli/src/main.rs"},
			expect: []string{"main.rs"},
			want:   2,
		},
		{
			name:   "any expected basename counts",
			files:  []string{"src/parser.go", "src/lexer.go"},
			expect: []string{"token.go", "lexer.go"},
			want:   2,
		},
		{
			name:   "first match wins over later expected hit",
			files:  []string{"a/handler.go", "b/router.go"},
			expect: []string{"router.go", "handler.go"},
			want:   1,
		},
		{
			name:   "expected entries are basenames not paths",
			files:  []string{"src/auth.rs"},
			expect: []string{"src/auth.rs"},
			want:   0,
		},
		{
			name:   "empty hit list",
			files:  nil,
			expect: []string{"auth.rs"},
			want:   0,
		},
		{
			name:   "rank beyond window still reported",
			files:  []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k/target.rs"},
			expect: []string{"target.rs"},
			want:   11,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FindRank(tt.files, tt.expect))
		})
	}
}

func TestFindRankIsPure(t *testing.T) {
	files := []string{"x/one.go", "y/two.go", "z/three.go"}
	expect := []string{"two.go"}

	first := FindRank(files, expect)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, FindRank(files, expect))
	}
}

func TestReciprocal(t *testing.T) {
	tests := []struct {
		name string
		rank int
		want float64
	}{
		{"miss", 0, 0},
		{"top hit", 1, 1.0},
		{"rank three", 3, 1.0 / 3},
		{"window edge", 10, 0.1},
		{"beyond window counts as miss", 11, 0},
		{"negative rank", -1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Reciprocal(tt.rank), 1e-12)
		})
	}
}
