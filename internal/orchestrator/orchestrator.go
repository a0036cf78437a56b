package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/KadenMcCarty-Personal/Social-Media-Agent-N/internal/approval"
	"github.com/KadenMcCarty-Personal/Social-Media-Agent-N/internal/metrics"
	"github.com/KadenMcCarty-Personal/Social-Media-Agent-N/internal/models"
	"github.com/KadenMcCarty-Personal/Social-Media-Agent-N/internal/pipeline"
	"github.com/KadenMcCarty-Personal/Social-Media-Agent-N/internal/platform"
	"github.com/KadenMcCarty-Personal/Social-Media-Agent-N/internal/storage"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Orchestrator drives the polling loop: one goroutine per enabled platform,
// each on its own fixed-interval ticker, so a stalled or failing platform
// never blocks the others. The store and service clients are the only shared
// state; both handle their own concurrency.
type Orchestrator struct {
	adapters     []platform.Adapter
	store        storage.Store
	pipeline     *pipeline.Pipeline
	approver     approval.Approver
	metrics      *metrics.Metrics
	keywordsFor  func(models.Platform) []string
	pollInterval time.Duration
	logger       *zap.Logger
}

func New(
	adapters []platform.Adapter,
	store storage.Store,
	pipe *pipeline.Pipeline,
	approver approval.Approver,
	m *metrics.Metrics,
	keywordsFor func(models.Platform) []string,
	pollInterval time.Duration,
	logger *zap.Logger,
) *Orchestrator {
	return &Orchestrator{
		adapters:     adapters,
		store:        store,
		pipeline:     pipe,
		approver:     approver,
		metrics:      m,
		keywordsFor:  keywordsFor,
		pollInterval: pollInterval,
		logger:       logger,
	}
}

// Run blocks until ctx is cancelled, then waits for every platform loop to
// wind down. In-flight mentions that were fetched but not yet recorded are
// dropped; dedup by durable native IDs makes re-fetching them safe.
func (o *Orchestrator) Run(ctx context.Context) error {
	group, ctx := errgroup.WithContext(ctx)
	for _, adapter := range o.adapters {
		adapter := adapter
		group.Go(func() error {
			o.runPlatform(ctx, adapter)
			return nil
		})
	}
	return group.Wait()
}

func (o *Orchestrator) runPlatform(ctx context.Context, adapter platform.Adapter) {
	ticker := time.NewTicker(o.pollInterval)
	defer ticker.Stop()

	// First cycle runs immediately rather than one interval in.
	o.runCycle(ctx, adapter)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.runCycle(ctx, adapter)
		}
	}
}

type cycleSummary struct {
	fetched    int
	skipped    int
	processed  int
	dispatched int
	suppressed int
}

func (o *Orchestrator) runCycle(ctx context.Context, adapter platform.Adapter) {
	name := adapter.Name()
	log := o.logger.With(
		zap.String("platform", string(name)),
		zap.String("cycle_id", uuid.New().String()))
	start := time.Now()

	// Authentication failure parks this platform until the next tick; the
	// session is re-established from scratch on every cycle start that
	// follows a failure.
	if err := adapter.Authenticate(ctx); err != nil {
		log.Error("Authentication failed, skipping cycle", zap.Error(err))
		return
	}

	mentions, err := adapter.SearchMentions(ctx, o.keywordsFor(name))
	if err != nil {
		log.Warn("Mention search failed, treating batch as empty", zap.Error(err))
		mentions = nil
	}

	summary := cycleSummary{fetched: len(mentions)}
	o.metrics.MentionsFetched.WithLabelValues(string(name)).Add(float64(len(mentions)))

	// Mentions are processed sequentially in fetch order for reproducibility.
	for _, mention := range mentions {
		if ctx.Err() != nil {
			return
		}

		seen, err := o.store.HasProcessed(ctx, mention.Platform, mention.NativeID)
		if err != nil {
			log.Error("Dedup check failed, leaving mention for next cycle",
				zap.String("mention_id", mention.NativeID),
				zap.Error(err))
			continue
		}
		if seen {
			summary.skipped++
			continue
		}

		dispatched, recorded := o.processMention(ctx, adapter, mention, log)
		if !recorded {
			continue
		}
		summary.processed++
		o.metrics.MentionsProcessed.WithLabelValues(string(name)).Inc()
		if dispatched {
			summary.dispatched++
			o.metrics.RepliesDispatched.WithLabelValues(string(name)).Inc()
		} else {
			summary.suppressed++
			o.metrics.ResponsesSuppressed.WithLabelValues(string(name)).Inc()
		}
	}

	elapsed := time.Since(start)
	o.metrics.CycleDuration.WithLabelValues(string(name)).Observe(elapsed.Seconds())
	log.Info("Cycle complete",
		zap.Int("fetched", summary.fetched),
		zap.Int("skipped", summary.skipped),
		zap.Int("processed", summary.processed),
		zap.Int("dispatched", summary.dispatched),
		zap.Int("suppressed", summary.suppressed),
		zap.Duration("elapsed", elapsed))
}

// processMention runs one mention through decide → approve → dispatch →
// record. It reports whether a reply was published and whether this cycle
// owns the mention's record.
func (o *Orchestrator) processMention(ctx context.Context, adapter platform.Adapter, mention models.Mention, log *zap.Logger) (dispatched, recorded bool) {
	decision := o.pipeline.Decide(ctx, mention)

	if decision.Provenance != models.ProvenanceSuppressed && decision.Text != "" {
		verdict, err := o.approver.Review(ctx, mention, decision)
		switch {
		case errors.Is(err, context.Canceled):
			// Shutdown mid-review: leave the mention unrecorded so the next
			// run fetches it again.
			log.Info("Review interrupted by shutdown, leaving mention for next run",
				zap.String("mention_id", mention.NativeID))
			return false, false
		case err != nil:
			log.Warn("Approval failed, suppressing reply",
				zap.String("mention_id", mention.NativeID),
				zap.Error(err))
			decision.Provenance = models.ProvenanceSuppressed
		case !verdict.Approved:
			// Rejection keeps the text on the record for audit.
			log.Info("Reply rejected by operator",
				zap.String("mention_id", mention.NativeID))
			decision.Provenance = models.ProvenanceSuppressed
		case verdict.Text != "":
			decision.Text = verdict.Text
		}
	}

	if decision.Provenance != models.ProvenanceSuppressed {
		if !adapter.Capabilities().Reply {
			log.Info("Platform is read-only, logging reply without dispatch",
				zap.String("mention_id", mention.NativeID),
				zap.String("reply", decision.Text))
		} else if err := adapter.PostReply(ctx, mention.NativeID, decision.Text); err != nil {
			// The decision text stays on the record for audit; the mention
			// is final either way so it is never silently retried.
			if errors.Is(err, platform.ErrAmbiguousDispatch) {
				log.Warn("Reply outcome ambiguous, not retrying",
					zap.String("mention_id", mention.NativeID),
					zap.Error(err))
			} else {
				log.Error("Dispatch failed",
					zap.String("mention_id", mention.NativeID),
					zap.Error(err))
			}
			decision.Provenance = models.ProvenanceSuppressed
		} else {
			dispatched = true
		}
	}

	record := recordFromDecision(mention, decision)
	if err := o.store.RecordProcessed(ctx, &record); err != nil {
		if errors.Is(err, storage.ErrDuplicateMention) {
			// Another cycle won the race; not an application error.
			log.Debug("Mention already recorded elsewhere",
				zap.String("mention_id", mention.NativeID))
		} else {
			log.Error("Failed to persist processed record",
				zap.String("mention_id", mention.NativeID),
				zap.Error(err))
		}
		return dispatched, false
	}
	return dispatched, true
}

func recordFromDecision(mention models.Mention, decision models.Decision) models.ProcessedRecord {
	return models.ProcessedRecord{
		Platform:        mention.Platform,
		NativeID:        mention.NativeID,
		Content:         mention.Content,
		Author:          mention.Author,
		Intent:          decision.Intent,
		Sentiment:       decision.Sentiment,
		Confidence:      decision.Confidence,
		ResponseText:    decision.Text,
		Provenance:      decision.Provenance,
		SimilarityScore: decision.SimilarityScore,
		ProcessedAt:     time.Now(),
	}
}
