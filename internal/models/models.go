package models

import (
	"fmt"
	"time"
)

// Platform identifies a monitored social network.
type Platform string

const (
	PlatformMastodon Platform = "mastodon"
	PlatformReddit   Platform = "reddit"
	PlatformYouTube  Platform = "youtube"
)

// KnownPlatforms lists every platform the agent ships an adapter for.
var KnownPlatforms = []Platform{PlatformMastodon, PlatformReddit, PlatformYouTube}

// MentionKey is the composite identity of a mention. A mention is globally
// unique within the store by (platform, native_id).
type MentionKey struct {
	Platform Platform
	NativeID string
}

func (k MentionKey) String() string {
	return fmt.Sprintf("%s:%s", k.Platform, k.NativeID)
}

// Mention is a post or comment observed on a platform that matched one of the
// monitored keywords. Mentions are transient until a ProcessedRecord exists.
type Mention struct {
	Platform   Platform  `json:"platform"`
	NativeID   string    `json:"native_id"`
	Content    string    `json:"content"`
	Author     string    `json:"author"`
	URL        string    `json:"url,omitempty"`
	ObservedAt time.Time `json:"observed_at"`
}

func (m Mention) Key() MentionKey {
	return MentionKey{Platform: m.Platform, NativeID: m.NativeID}
}

// Provenance records where a response came from.
type Provenance string

const (
	ProvenanceCanned     Provenance = "canned"
	ProvenanceGenerated  Provenance = "generated"
	ProvenanceSuppressed Provenance = "suppressed"
)

// Decision is the outcome of running one mention through the response
// pipeline. Text is empty when the response was suppressed before it had any
// usable content; a suppressed decision may still carry text when the reply
// was ready but rejected or failed to dispatch, so it is kept for audit.
type Decision struct {
	Provenance      Provenance `json:"provenance"`
	Text            string     `json:"text,omitempty"`
	SimilarityScore *float64   `json:"similarity_score,omitempty"`
	Intent          string     `json:"intent"`
	Sentiment       string     `json:"sentiment"`
	Confidence      float64    `json:"confidence"`
}

// ProcessedRecord is the durable trace of one mention's outcome. At most one
// record exists per mention identity; it is never mutated after creation.
type ProcessedRecord struct {
	Platform        Platform   `json:"platform"`
	NativeID        string     `json:"native_id"`
	Content         string     `json:"content"`
	Author          string     `json:"author"`
	Intent          string     `json:"intent"`
	Sentiment       string     `json:"sentiment"`
	Confidence      float64    `json:"confidence"`
	ResponseText    string     `json:"response_text,omitempty"`
	Provenance      Provenance `json:"provenance"`
	SimilarityScore *float64   `json:"similarity_score,omitempty"`
	ProcessedAt     time.Time  `json:"processed_at"`
}

func (r ProcessedRecord) Key() MentionKey {
	return MentionKey{Platform: r.Platform, NativeID: r.NativeID}
}

// CannedResponse is an author-curated reply template. The embedding is
// precomputed by an external curation step; the agent never writes templates.
type CannedResponse struct {
	ID        int64     `json:"id"`
	Keyword   string    `json:"keyword"`
	Category  string    `json:"category"`
	Intent    string    `json:"intent"`
	Text      string    `json:"text"`
	Embedding []float32 `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// TemplateMatch pairs a template with its similarity to a mention embedding.
type TemplateMatch struct {
	Template CannedResponse
	Score    float64
}

// Stats aggregates processing outcomes for operator reporting.
type Stats struct {
	TotalProcessed int64   `json:"total_processed"`
	CannedUsed     int64   `json:"canned_used"`
	Generated      int64   `json:"generated"`
	Suppressed     int64   `json:"suppressed"`
	AvgConfidence  float64 `json:"avg_confidence"`
	AvgSimilarity  float64 `json:"avg_similarity"`
}
