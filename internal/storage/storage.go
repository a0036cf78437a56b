package storage

import (
	"context"
	"errors"
	"math"
	"sort"

	"github.com/KadenMcCarty-Personal/Social-Media-Agent-N/internal/models"
)

// ErrDuplicateMention is returned by RecordProcessed when a record already
// exists for the mention identity. Callers treat it as a benign race: another
// cycle already handled the mention.
var ErrDuplicateMention = errors.New("mention already processed")

// Store is the durable record of processed mentions plus the read-only
// catalog of canned response templates. Implementations must be safe for
// concurrent use by multiple platform cycles.
type Store interface {
	// HasProcessed reports whether a record exists for the mention identity.
	HasProcessed(ctx context.Context, platform models.Platform, nativeID string) (bool, error)

	// RecordProcessed persists a record atomically. It fails with
	// ErrDuplicateMention if the identity is already recorded; this is the
	// enforcement point for exactly-once processing.
	RecordProcessed(ctx context.Context, record *models.ProcessedRecord) error

	// ListCannedResponses returns the template catalog in creation order.
	ListCannedResponses(ctx context.Context) ([]models.CannedResponse, error)

	// MatchTemplates ranks the catalog against an embedding by descending
	// cosine similarity. Ties break by template ID so results are
	// deterministic. Templates without an embedding are skipped.
	MatchTemplates(ctx context.Context, embedding []float32, topK int) ([]models.TemplateMatch, error)

	// Stats aggregates processing outcomes for operator reporting.
	Stats(ctx context.Context) (models.Stats, error)

	Close() error
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func rankTemplates(templates []models.CannedResponse, embedding []float32, topK int) []models.TemplateMatch {
	matches := make([]models.TemplateMatch, 0, len(templates))
	for _, t := range templates {
		if len(t.Embedding) == 0 {
			continue
		}
		matches = append(matches, models.TemplateMatch{
			Template: t,
			Score:    cosineSimilarity(embedding, t.Embedding),
		})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Template.ID < matches[j].Template.ID
	})
	if topK > 0 && len(matches) > topK {
		matches = matches[:topK]
	}
	return matches
}
