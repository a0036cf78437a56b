package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Metrics exposes per-platform processing counters and cycle timings.
type Metrics struct {
	registry *prometheus.Registry

	MentionsFetched     *prometheus.CounterVec
	MentionsProcessed   *prometheus.CounterVec
	RepliesDispatched   *prometheus.CounterVec
	ResponsesSuppressed *prometheus.CounterVec
	CycleDuration       *prometheus.HistogramVec
}

func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		MentionsFetched: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "agent_mentions_fetched_total",
			Help: "Candidate mentions returned by platform searches.",
		}, []string{"platform"}),
		MentionsProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "agent_mentions_processed_total",
			Help: "Mentions that produced a processed record.",
		}, []string{"platform"}),
		RepliesDispatched: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "agent_replies_dispatched_total",
			Help: "Replies successfully published to a platform.",
		}, []string{"platform"}),
		ResponsesSuppressed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "agent_responses_suppressed_total",
			Help: "Decisions that ended with a suppressed response.",
		}, []string{"platform"}),
		CycleDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "agent_cycle_duration_seconds",
			Help:    "Duration of one fetch-decide-dispatch cycle.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}, []string{"platform"}),
	}
}

// Serve exposes /metrics on addr until ctx is cancelled. A blank addr
// disables the listener.
func (m *Metrics) Serve(ctx context.Context, addr string, logger *zap.Logger) {
	if addr == "" {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Info("Serving metrics", zap.String("address", addr))
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Metrics server failed", zap.Error(err))
	}
}
