package platform

import (
	"context"
	"fmt"
	"html"
	"regexp"
	"strings"
	"sync"

	"github.com/KadenMcCarty-Personal/Social-Media-Agent-N/internal/models"
	"github.com/mattn/go-mastodon"
	"go.uber.org/zap"
)

var htmlTagPattern = regexp.MustCompile(`<[^>]+>`)

// MastodonAdapter monitors a Mastodon instance via keyword search and the
// account's mention notifications.
type MastodonAdapter struct {
	instanceURL string
	accessToken string
	logger      *zap.Logger

	mu      sync.Mutex
	client  *mastodon.Client
	account *mastodon.Account
}

func NewMastodonAdapter(instanceURL, accessToken string, logger *zap.Logger) *MastodonAdapter {
	return &MastodonAdapter{
		instanceURL: instanceURL,
		accessToken: accessToken,
		logger:      logger,
	}
}

func (a *MastodonAdapter) Name() models.Platform {
	return models.PlatformMastodon
}

func (a *MastodonAdapter) Capabilities() Capabilities {
	return Capabilities{Search: true, Reply: true}
}

func (a *MastodonAdapter) Authenticate(ctx context.Context) error {
	client := mastodon.NewClient(&mastodon.Config{
		Server:      a.instanceURL,
		AccessToken: a.accessToken,
	})

	account, err := client.GetAccountCurrentUser(ctx)
	if err != nil {
		a.teardown()
		return fmt.Errorf("verifying mastodon credentials: %w", err)
	}

	a.mu.Lock()
	a.client = client
	a.account = account
	a.mu.Unlock()

	a.logger.Info("Connected to Mastodon",
		zap.String("account", account.Acct),
		zap.String("instance", a.instanceURL))
	return nil
}

func (a *MastodonAdapter) teardown() {
	a.mu.Lock()
	a.client = nil
	a.account = nil
	a.mu.Unlock()
}

func (a *MastodonAdapter) session() (*mastodon.Client, *mastodon.Account, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.client == nil {
		return nil, nil, ErrNotAuthenticated
	}
	return a.client, a.account, nil
}

func (a *MastodonAdapter) SearchMentions(ctx context.Context, keywords []string) ([]models.Mention, error) {
	client, account, err := a.session()
	if err != nil {
		return nil, err
	}

	var mentions []models.Mention
	seen := make(map[string]struct{})

	appendStatus := func(status *mastodon.Status) {
		if status == nil || status.Reblog != nil {
			return
		}
		if status.Account.Acct == account.Acct {
			return
		}
		id := string(status.ID)
		if _, dup := seen[id]; dup {
			return
		}
		seen[id] = struct{}{}
		mentions = append(mentions, models.Mention{
			Platform:   models.PlatformMastodon,
			NativeID:   id,
			Content:    stripHTML(status.Content),
			Author:     status.Account.Acct,
			URL:        status.URL,
			ObservedAt: status.CreatedAt,
		})
	}

	for _, keyword := range keywords {
		results, err := client.Search(ctx, keyword, true)
		if err != nil {
			// Per-keyword failures are tolerated; the platform may be
			// rate-limiting us.
			a.logger.Warn("Mastodon search failed",
				zap.String("keyword", keyword),
				zap.Error(err))
			continue
		}
		for _, status := range results.Statuses {
			appendStatus(status)
		}
	}

	// Direct mentions arrive as notifications rather than search results.
	notifications, err := client.GetNotifications(ctx, nil)
	if err != nil {
		a.logger.Warn("Fetching Mastodon notifications failed", zap.Error(err))
		return mentions, nil
	}
	for _, notification := range notifications {
		if notification.Type != "mention" || notification.Status == nil {
			continue
		}
		if !matchesAnyKeyword(stripHTML(notification.Status.Content), keywords) {
			continue
		}
		appendStatus(notification.Status)
	}

	return mentions, nil
}

func (a *MastodonAdapter) PostReply(ctx context.Context, nativeID, text string) error {
	client, _, err := a.session()
	if err != nil {
		return err
	}

	original, err := client.GetStatus(ctx, mastodon.ID(nativeID))
	if err != nil {
		return fmt.Errorf("fetching status %s: %w", nativeID, err)
	}

	// Mastodon replies must mention the original author to thread properly.
	authorMention := "@" + original.Account.Acct
	full := text
	if !strings.Contains(full, authorMention) {
		full = authorMention + " " + full
	}

	_, err = client.PostStatus(ctx, &mastodon.Toot{
		Status:      full,
		InReplyToID: original.ID,
		Visibility:  original.Visibility,
	})
	if err != nil {
		return fmt.Errorf("posting reply to %s: %w", nativeID, err)
	}
	return nil
}

// stripHTML flattens the HTML Mastodon returns as status content.
func stripHTML(content string) string {
	text := htmlTagPattern.ReplaceAllString(content, " ")
	text = html.UnescapeString(text)
	return strings.Join(strings.Fields(text), " ")
}
