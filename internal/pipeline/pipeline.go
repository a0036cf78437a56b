package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/KadenMcCarty-Personal/Social-Media-Agent-N/internal/classifier"
	"github.com/KadenMcCarty-Personal/Social-Media-Agent-N/internal/generator"
	"github.com/KadenMcCarty-Personal/Social-Media-Agent-N/internal/models"
	"github.com/KadenMcCarty-Personal/Social-Media-Agent-N/internal/safety"
	"github.com/KadenMcCarty-Personal/Social-Media-Agent-N/internal/storage"
	"go.uber.org/zap"
)

// Pipeline turns one mention into a Decision. It never returns an error:
// classification failures degrade the quality signal, generation failures and
// safety refusals end in a suppressed decision.
type Pipeline struct {
	classifier classifier.Classifier
	generator  generator.Generator
	store      storage.Store
	gate       *safety.Gate
	threshold  float64
	timeout    time.Duration
	logger     *zap.Logger
}

func New(clf classifier.Classifier, gen generator.Generator, store storage.Store, gate *safety.Gate, threshold float64, timeout time.Duration, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		classifier: clf,
		generator:  gen,
		store:      store,
		gate:       gate,
		threshold:  threshold,
		timeout:    timeout,
		logger:     logger,
	}
}

// Decide runs the full decision algorithm: classify, match against the canned
// catalog, branch canned vs generated on the similarity threshold (ties favor
// canned), then apply the safety gate.
func (p *Pipeline) Decide(ctx context.Context, mention models.Mention) models.Decision {
	log := p.logger.With(
		zap.String("platform", string(mention.Platform)),
		zap.String("mention_id", mention.NativeID))

	intent := classifier.Result{Label: classifier.UnknownIntent, Confidence: 0.5}
	if result, err := p.classifyIntent(ctx, mention.Content); err != nil {
		log.Warn("Intent classification failed, degrading to unknown", zap.Error(err))
	} else {
		intent = result
	}

	sentiment := classifier.Result{Label: classifier.NeutralSentiment, Confidence: 0.5}
	if result, err := p.classifySentiment(ctx, mention.Content); err != nil {
		log.Warn("Sentiment classification failed, degrading to neutral", zap.Error(err))
	} else {
		sentiment = result
	}

	decision := models.Decision{
		Intent:     intent.Label,
		Sentiment:  sentiment.Label,
		Confidence: intent.Confidence,
	}

	best := p.bestTemplate(ctx, mention.Content, log)
	if best != nil {
		score := best.Score
		decision.SimilarityScore = &score
	}

	var text string
	if best != nil && best.Score >= p.threshold {
		text = applySubstitutions(best.Template, mention)
		decision.Provenance = models.ProvenanceCanned
		log.Debug("Using canned response",
			zap.Int64("template_id", best.Template.ID),
			zap.Float64("similarity", best.Score))
	} else {
		example := ""
		if best != nil {
			example = best.Template.Text
		}
		generated, err := p.generate(ctx, mention, intent.Label, sentiment.Label, example)
		if err != nil {
			log.Warn("Generation failed, suppressing response", zap.Error(err))
			decision.Provenance = models.ProvenanceSuppressed
			return decision
		}
		text = generated
		decision.Provenance = models.ProvenanceGenerated
	}

	clean, ok := p.gate.Check(text)
	if !ok {
		log.Warn("Response failed safety check, suppressing",
			zap.String("provenance", string(decision.Provenance)))
		decision.Provenance = models.ProvenanceSuppressed
		decision.Text = ""
		return decision
	}

	decision.Text = clean
	return decision
}

func (p *Pipeline) classifyIntent(ctx context.Context, text string) (classifier.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	return p.classifier.ClassifyIntent(ctx, text)
}

func (p *Pipeline) classifySentiment(ctx context.Context, text string) (classifier.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	return p.classifier.ClassifySentiment(ctx, text)
}

// bestTemplate returns the top-1 catalog match, or nil when the embedding
// call fails or the catalog is empty. Both cases fall through to generation.
func (p *Pipeline) bestTemplate(ctx context.Context, content string, log *zap.Logger) *models.TemplateMatch {
	ectx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	embedding, err := p.classifier.Embed(ectx, content)
	if err != nil {
		log.Warn("Embedding failed, skipping template matching", zap.Error(err))
		return nil
	}

	matches, err := p.store.MatchTemplates(ctx, embedding, 1)
	if err != nil {
		log.Warn("Template matching failed", zap.Error(err))
		return nil
	}
	if len(matches) == 0 {
		return nil
	}
	return &matches[0]
}

func (p *Pipeline) generate(ctx context.Context, mention models.Mention, intent, sentiment, example string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	return p.generator.Generate(ctx, generator.Request{
		MentionText:   mention.Content,
		Author:        mention.Author,
		Intent:        intent,
		Sentiment:     sentiment,
		CannedExample: example,
	})
}

func applySubstitutions(template models.CannedResponse, mention models.Mention) string {
	replacer := strings.NewReplacer(
		"{author}", mention.Author,
		"{keyword}", template.Keyword,
	)
	return replacer.Replace(template.Text)
}
