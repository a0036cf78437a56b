package platform

import (
	"context"
	"errors"
	"strings"

	"github.com/KadenMcCarty-Personal/Social-Media-Agent-N/internal/models"
)

var (
	// ErrNotAuthenticated means a search or reply was attempted before a
	// successful Authenticate, or after the session was torn down.
	ErrNotAuthenticated = errors.New("platform not authenticated")

	// ErrReplyUnsupported is returned by read-only adapters.
	ErrReplyUnsupported = errors.New("platform does not support replies")

	// ErrAmbiguousDispatch means a reply may or may not have been published.
	// Adapters that cannot guarantee non-duplication on retry report this
	// instead of silently retrying.
	ErrAmbiguousDispatch = errors.New("reply outcome unknown")
)

// Capabilities declares which operations an adapter actually supports. The
// orchestrator consults this before attempting dispatch.
type Capabilities struct {
	Search bool
	Reply  bool
}

// Adapter is the uniform capability surface over one platform's API. Side
// effects are confined to network calls; adapters never touch the store or
// each other.
type Adapter interface {
	Name() models.Platform
	Capabilities() Capabilities

	// Authenticate establishes (or re-establishes) the platform session. It
	// is idempotent and safe to call again after the session is invalidated.
	Authenticate(ctx context.Context) error

	// SearchMentions returns a finite batch of candidate mentions matching
	// any of the keywords. Platform-side rate limiting may drop results;
	// that is tolerated, not fatal.
	SearchMentions(ctx context.Context, keywords []string) ([]models.Mention, error)

	// PostReply publishes a reply to the given native mention ID.
	PostReply(ctx context.Context, nativeID, text string) error
}

func matchesAnyKeyword(content string, keywords []string) bool {
	lowered := strings.ToLower(content)
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		if strings.Contains(lowered, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
