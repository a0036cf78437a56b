package storage

import (
	"context"
	"encoding/binary"
	"math"
	"testing"

	"github.com/KadenMcCarty-Personal/Social-Media-Agent-N/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreRecordAndHas(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	seen, err := store.HasProcessed(ctx, models.PlatformMastodon, "post123")
	require.NoError(t, err)
	assert.False(t, seen)

	record := &models.ProcessedRecord{
		Platform:   models.PlatformMastodon,
		NativeID:   "post123",
		Content:    "great product!",
		Author:     "alice",
		Intent:     "positive feedback",
		Sentiment:  "positive",
		Confidence: 0.9,
		Provenance: models.ProvenanceCanned,
	}
	require.NoError(t, store.RecordProcessed(ctx, record))
	assert.True(t, record.ProcessedAt.IsZero(), "the caller's record is never mutated")

	seen, err = store.HasProcessed(ctx, models.PlatformMastodon, "post123")
	require.NoError(t, err)
	assert.True(t, seen)

	// Same native ID on a different platform is a distinct identity.
	seen, err = store.HasProcessed(ctx, models.PlatformReddit, "post123")
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestMemoryStoreDuplicateKey(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	record := &models.ProcessedRecord{
		Platform:   models.PlatformReddit,
		NativeID:   "t3_abc",
		Provenance: models.ProvenanceGenerated,
	}
	require.NoError(t, store.RecordProcessed(ctx, record))

	err := store.RecordProcessed(ctx, record)
	assert.ErrorIs(t, err, ErrDuplicateMention)
}

func TestMatchTemplatesOrdering(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	store.SeedTemplates([]models.CannedResponse{
		{ID: 1, Keyword: "pricing", Text: "See our pricing page.", Embedding: []float32{1, 0}},
		{ID: 2, Keyword: "support", Text: "DM us for support.", Embedding: []float32{0, 1}},
		{ID: 3, Keyword: "thanks", Text: "Thank you!", Embedding: []float32{1, 0}},
		{ID: 4, Keyword: "no-embedding", Text: "Never matched."},
	})

	matches, err := store.MatchTemplates(ctx, []float32{1, 0}, 0)
	require.NoError(t, err)
	require.Len(t, matches, 3, "template without embedding is skipped")

	// Templates 1 and 3 both score 1.0; the tie breaks by template ID.
	assert.Equal(t, int64(1), matches[0].Template.ID)
	assert.Equal(t, int64(3), matches[1].Template.ID)
	assert.Equal(t, int64(2), matches[2].Template.ID)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-9)
	assert.InDelta(t, 0.0, matches[2].Score, 1e-9)

	top, err := store.MatchTemplates(ctx, []float32{1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, int64(1), top[0].Template.ID)
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a    []float32
		b    []float32
		want float64
	}{
		{name: "identical", a: []float32{1, 0, 0}, b: []float32{1, 0, 0}, want: 1.0},
		{name: "orthogonal", a: []float32{1, 0, 0}, b: []float32{0, 1, 0}, want: 0.0},
		{name: "opposite", a: []float32{1, 0, 0}, b: []float32{-1, 0, 0}, want: -1.0},
		{name: "length mismatch", a: []float32{1, 0}, b: []float32{1, 0, 0}, want: 0.0},
		{name: "empty", a: nil, b: nil, want: 0.0},
		{name: "zero vector", a: []float32{0, 0}, b: []float32{1, 0}, want: 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, cosineSimilarity(tt.a, tt.b), 1e-9)
		})
	}
}

func TestMemoryStoreStats(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	sim := 0.8
	records := []*models.ProcessedRecord{
		{Platform: models.PlatformMastodon, NativeID: "1", Confidence: 0.9, Provenance: models.ProvenanceCanned, SimilarityScore: &sim},
		{Platform: models.PlatformMastodon, NativeID: "2", Confidence: 0.7, Provenance: models.ProvenanceGenerated},
		{Platform: models.PlatformReddit, NativeID: "3", Confidence: 0.5, Provenance: models.ProvenanceSuppressed},
	}
	for _, record := range records {
		require.NoError(t, store.RecordProcessed(ctx, record))
	}

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalProcessed)
	assert.Equal(t, int64(1), stats.CannedUsed)
	assert.Equal(t, int64(1), stats.Generated)
	assert.Equal(t, int64(1), stats.Suppressed)
	assert.InDelta(t, 0.7, stats.AvgConfidence, 1e-9)
	assert.InDelta(t, 0.8, stats.AvgSimilarity, 1e-9)
}

func TestDecodeEmbedding(t *testing.T) {
	want := []float32{0.25, -1.5, 3}
	blob := make([]byte, 0, len(want)*4)
	for _, v := range want {
		blob = binary.LittleEndian.AppendUint32(blob, math.Float32bits(v))
	}

	got, err := decodeEmbedding(blob)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	empty, err := decodeEmbedding(nil)
	require.NoError(t, err)
	assert.Nil(t, empty)

	_, err = decodeEmbedding([]byte{1, 2, 3})
	assert.Error(t, err)
}
