package classifier

import "context"

// Labels substituted when a classification call fails. A failed
// classification weakens the quality signal but never blocks a decision.
const (
	UnknownIntent    = "unknown"
	NeutralSentiment = "neutral"
)

// Result is one classification outcome.
type Result struct {
	Label      string
	Confidence float64
}

// Classifier scores mention text. All methods are remote calls with no side
// effects on the caller; implementations must be safe for concurrent use by
// multiple platform cycles.
type Classifier interface {
	ClassifyIntent(ctx context.Context, text string) (Result, error)
	ClassifySentiment(ctx context.Context, text string) (Result, error)
	Embed(ctx context.Context, text string) ([]float32, error)
}
