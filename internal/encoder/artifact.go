package encoder

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// GraphDir is the directory the encoder writes its artifact into, relative
// to the project root.
const GraphDir = ".rpg"

const graphFileName = "graph.json"

// GraphPath returns the graph artifact path for a repo directory.
func GraphPath(dir string) string {
	return filepath.Join(dir, GraphDir, graphFileName)
}

// GraphExists reports whether a built graph artifact is present.
func GraphExists(dir string) bool {
	_, err := os.Stat(GraphPath(dir))
	return err == nil
}

// CountLifted returns the artifact's entity total and how many entities
// carry semantic features. A missing or unreadable artifact counts as
// (0, 0), the same as an unbuilt graph; malformed individual entities are
// skipped rather than failing the probe.
func CountLifted(dir string) (total, lifted int) {
	data, err := os.ReadFile(GraphPath(dir))
	if err != nil {
		return 0, 0
	}
	var g struct {
		Entities map[string]json.RawMessage `json:"entities"`
	}
	if err := json.Unmarshal(data, &g); err != nil {
		return 0, 0
	}
	for _, raw := range g.Entities {
		var e struct {
			SemanticFeatures []string `json:"semantic_features"`
		}
		if err := json.Unmarshal(raw, &e); err != nil {
			continue
		}
		if len(e.SemanticFeatures) > 0 {
			lifted++
		}
	}
	return len(g.Entities), lifted
}

// GraphIsLifted reports whether any entity in the artifact has been lifted.
func GraphIsLifted(dir string) bool {
	_, lifted := CountLifted(dir)
	return lifted > 0
}
