package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/KadenMcCarty-Personal/Social-Media-Agent-N/internal/classifier"
	"github.com/KadenMcCarty-Personal/Social-Media-Agent-N/internal/generator"
	"github.com/KadenMcCarty-Personal/Social-Media-Agent-N/internal/models"
	"github.com/KadenMcCarty-Personal/Social-Media-Agent-N/internal/safety"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubClassifier struct {
	intent       classifier.Result
	intentErr    error
	sentiment    classifier.Result
	sentimentErr error
	embedding    []float32
	embedErr     error
}

func (s *stubClassifier) ClassifyIntent(ctx context.Context, text string) (classifier.Result, error) {
	return s.intent, s.intentErr
}

func (s *stubClassifier) ClassifySentiment(ctx context.Context, text string) (classifier.Result, error) {
	return s.sentiment, s.sentimentErr
}

func (s *stubClassifier) Embed(ctx context.Context, text string) ([]float32, error) {
	return s.embedding, s.embedErr
}

type stubGenerator struct {
	text string
	err  error
	slow bool
}

func (s *stubGenerator) Generate(ctx context.Context, req generator.Request) (string, error) {
	if s.slow {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return s.text, s.err
}

type stubStore struct {
	matches  []models.TemplateMatch
	matchErr error
}

func (s *stubStore) HasProcessed(ctx context.Context, platform models.Platform, nativeID string) (bool, error) {
	return false, nil
}

func (s *stubStore) RecordProcessed(ctx context.Context, record *models.ProcessedRecord) error {
	return nil
}

func (s *stubStore) ListCannedResponses(ctx context.Context) ([]models.CannedResponse, error) {
	return nil, nil
}

func (s *stubStore) MatchTemplates(ctx context.Context, embedding []float32, topK int) ([]models.TemplateMatch, error) {
	if s.matchErr != nil {
		return nil, s.matchErr
	}
	if topK > 0 && len(s.matches) > topK {
		return s.matches[:topK], nil
	}
	return s.matches, nil
}

func (s *stubStore) Stats(ctx context.Context) (models.Stats, error) {
	return models.Stats{}, nil
}

func (s *stubStore) Close() error { return nil }

func happyClassifier() *stubClassifier {
	return &stubClassifier{
		intent:    classifier.Result{Label: "positive feedback", Confidence: 0.92},
		sentiment: classifier.Result{Label: "positive", Confidence: 0.95},
		embedding: []float32{1, 0},
	}
}

func matchAt(score float64) []models.TemplateMatch {
	return []models.TemplateMatch{{
		Template: models.CannedResponse{
			ID:      1,
			Keyword: "compliment",
			Text:    "Thank you so much, {author}! We really appreciate your support!",
		},
		Score: score,
	}}
}

func newTestPipeline(clf classifier.Classifier, gen generator.Generator, store *stubStore) *Pipeline {
	gate := safety.NewGate(280, 20, nil)
	return New(clf, gen, store, gate, 0.75, 5*time.Second, zap.NewNop())
}

func testMention() models.Mention {
	return models.Mention{
		Platform:   models.PlatformMastodon,
		NativeID:   "post123",
		Content:    "great product!",
		Author:     "alice",
		ObservedAt: time.Now(),
	}
}

func TestDecideCannedAboveThreshold(t *testing.T) {
	store := &stubStore{matches: matchAt(0.81)}
	pipe := newTestPipeline(happyClassifier(), &stubGenerator{text: "unused"}, store)

	decision := pipe.Decide(context.Background(), testMention())

	assert.Equal(t, models.ProvenanceCanned, decision.Provenance)
	assert.Equal(t, "Thank you so much, alice! We really appreciate your support!", decision.Text)
	require.NotNil(t, decision.SimilarityScore)
	assert.InDelta(t, 0.81, *decision.SimilarityScore, 1e-9)
	assert.Equal(t, "positive feedback", decision.Intent)
	assert.Equal(t, "positive", decision.Sentiment)
}

func TestDecideGeneratedBelowThreshold(t *testing.T) {
	store := &stubStore{matches: matchAt(0.40)}
	pipe := newTestPipeline(happyClassifier(), &stubGenerator{text: "Thanks for the kind words!"}, store)

	decision := pipe.Decide(context.Background(), testMention())

	assert.Equal(t, models.ProvenanceGenerated, decision.Provenance)
	assert.Equal(t, "Thanks for the kind words!", decision.Text)
	require.NotNil(t, decision.SimilarityScore)
	assert.InDelta(t, 0.40, *decision.SimilarityScore, 1e-9)
}

func TestDecideThresholdTieFavorsCanned(t *testing.T) {
	store := &stubStore{matches: matchAt(0.75)}
	pipe := newTestPipeline(happyClassifier(), &stubGenerator{text: "unused"}, store)

	decision := pipe.Decide(context.Background(), testMention())

	assert.Equal(t, models.ProvenanceCanned, decision.Provenance)
}

func TestDecideClassificationFailureDegrades(t *testing.T) {
	clf := happyClassifier()
	clf.intentErr = errors.New("service unavailable")
	clf.sentimentErr = errors.New("service unavailable")
	store := &stubStore{matches: matchAt(0.40)}
	pipe := newTestPipeline(clf, &stubGenerator{text: "We hear you, thanks for posting!"}, store)

	decision := pipe.Decide(context.Background(), testMention())

	assert.Equal(t, classifier.UnknownIntent, decision.Intent)
	assert.Equal(t, classifier.NeutralSentiment, decision.Sentiment)
	assert.NotEqual(t, models.ProvenanceSuppressed, decision.Provenance,
		"a classification failure alone must not suppress the response")
	assert.NotEmpty(t, decision.Text)
}

func TestDecideEmbeddingFailureSkipsMatching(t *testing.T) {
	clf := happyClassifier()
	clf.embedErr = errors.New("embedding service down")
	store := &stubStore{matches: matchAt(0.99)}
	pipe := newTestPipeline(clf, &stubGenerator{text: "Thanks for reaching out to us!"}, store)

	decision := pipe.Decide(context.Background(), testMention())

	assert.Equal(t, models.ProvenanceGenerated, decision.Provenance)
	assert.Nil(t, decision.SimilarityScore)
}

func TestDecideGenerationErrorSuppresses(t *testing.T) {
	store := &stubStore{matches: matchAt(0.40)}
	pipe := newTestPipeline(happyClassifier(), &stubGenerator{err: errors.New("model not loaded")}, store)

	decision := pipe.Decide(context.Background(), testMention())

	assert.Equal(t, models.ProvenanceSuppressed, decision.Provenance)
	assert.Empty(t, decision.Text)
}

func TestDecideGenerationTimeoutSuppresses(t *testing.T) {
	store := &stubStore{matches: matchAt(0.40)}
	gate := safety.NewGate(280, 20, nil)
	pipe := New(happyClassifier(), &stubGenerator{slow: true}, store, gate, 0.75, 50*time.Millisecond, zap.NewNop())

	decision := pipe.Decide(context.Background(), testMention())

	assert.Equal(t, models.ProvenanceSuppressed, decision.Provenance)
	assert.Empty(t, decision.Text)
}

func TestDecideSafetyFailureIsFinal(t *testing.T) {
	// The canned path would normally win here; the gate still has the last
	// word regardless of provenance.
	toxic := matchAt(0.95)
	toxic[0].Template.Text = "What a stupid thing to ask, {author}."
	store := &stubStore{matches: toxic}
	pipe := newTestPipeline(happyClassifier(), &stubGenerator{text: "unused"}, store)

	decision := pipe.Decide(context.Background(), testMention())

	assert.Equal(t, models.ProvenanceSuppressed, decision.Provenance)
	assert.Empty(t, decision.Text)
}
