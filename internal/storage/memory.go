package storage

import (
	"context"
	"sync"
	"time"

	"github.com/KadenMcCarty-Personal/Social-Media-Agent-N/internal/models"
)

// MemoryStore keeps processed records and templates in process memory. Used
// for local runs and tests; the check-then-record race is resolved by the
// single write lock around RecordProcessed.
type MemoryStore struct {
	mu        sync.RWMutex
	processed map[models.MentionKey]*models.ProcessedRecord
	templates []models.CannedResponse
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		processed: make(map[models.MentionKey]*models.ProcessedRecord),
	}
}

// SeedTemplates replaces the template catalog. Templates are curated
// externally; this is the in-memory stand-in for that process.
func (s *MemoryStore) SeedTemplates(templates []models.CannedResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.templates = make([]models.CannedResponse, len(templates))
	copy(s.templates, templates)
}

func (s *MemoryStore) HasProcessed(ctx context.Context, platform models.Platform, nativeID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, exists := s.processed[models.MentionKey{Platform: platform, NativeID: nativeID}]
	return exists, nil
}

func (s *MemoryStore) RecordProcessed(ctx context.Context, record *models.ProcessedRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := record.Key()
	if _, exists := s.processed[key]; exists {
		return ErrDuplicateMention
	}

	stored := *record
	if stored.ProcessedAt.IsZero() {
		stored.ProcessedAt = time.Now()
	}
	s.processed[key] = &stored
	return nil
}

func (s *MemoryStore) ListCannedResponses(ctx context.Context) ([]models.CannedResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	templates := make([]models.CannedResponse, len(s.templates))
	copy(templates, s.templates)
	return templates, nil
}

func (s *MemoryStore) MatchTemplates(ctx context.Context, embedding []float32, topK int) ([]models.TemplateMatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return rankTemplates(s.templates, embedding, topK), nil
}

func (s *MemoryStore) Stats(ctx context.Context) (models.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var stats models.Stats
	var confidenceSum, similaritySum float64
	var similarityCount int64

	for _, record := range s.processed {
		stats.TotalProcessed++
		confidenceSum += record.Confidence
		if record.SimilarityScore != nil {
			similaritySum += *record.SimilarityScore
			similarityCount++
		}
		switch record.Provenance {
		case models.ProvenanceCanned:
			stats.CannedUsed++
		case models.ProvenanceGenerated:
			stats.Generated++
		case models.ProvenanceSuppressed:
			stats.Suppressed++
		}
	}

	if stats.TotalProcessed > 0 {
		stats.AvgConfidence = confidenceSum / float64(stats.TotalProcessed)
	}
	if similarityCount > 0 {
		stats.AvgSimilarity = similaritySum / float64(similarityCount)
	}
	return stats, nil
}

func (s *MemoryStore) Close() error {
	// Nothing to close for in-memory storage
	return nil
}
