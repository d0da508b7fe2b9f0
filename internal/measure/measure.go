// Package measure drives the two benchmark phases: preparing repo working
// copies with built (and optionally lifted) graphs, then measuring search
// rank under the snippet-only baseline and the feature-aware treatment.
package measure

import (
	"context"
	"time"

	"github.com/userFRM/rpg-bench/internal/encoder"
	"github.com/userFRM/rpg-bench/internal/logger"
)

// Encoder is the slice of the encoder adapter both phases use.
// *encoder.Service implements it.
type Encoder interface {
	Build(ctx context.Context, dir, language string) (encoder.BuildOutcome, error)
	Lift(ctx context.Context, dir string, progress func(line string)) (encoder.LiftOutcome, error)
	Search(ctx context.Context, dir, query, mode string) (encoder.SearchOutcome, error)
}

// Logger receives run diagnostics. ConsoleLogger, FileLogger, and
// NoOpLogger in internal/logger all satisfy it.
type Logger interface {
	LogDebug(message string)
	LogInfo(message string)
	LogWarn(message string)
	LogError(message string)
	LogRepoStart(name string, queryCount int)
	LogRepoComplete(name string, duration time.Duration)
}

// TranscriptLogger persists a per-repo measurement transcript for offline
// debugging of surprising ranks. *logger.FileLogger implements it.
type TranscriptLogger interface {
	LogRepoTranscript(name, transcript string) error
}

var nopLog Logger = logger.NewNoOpLogger()
