package generator

import "context"

// Request carries the context a generated reply is built from.
type Request struct {
	MentionText   string
	Author        string
	Intent        string
	Sentiment     string
	CannedExample string
}

// Generator produces a free-form reply. Callers bound every call with a
// context deadline; a timeout is a terminal failure for that mention.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}
