package platform

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/KadenMcCarty-Personal/Social-Media-Agent-N/internal/models"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const (
	redditTokenURL = "https://www.reddit.com/api/v1/access_token"
	redditAPIBase  = "https://oauth.reddit.com"
)

// RedditAdapter talks to Reddit's JSON API as a script app using the OAuth2
// password grant. Searches cover posts across all subreddits plus the recent
// comment stream, matching by keyword.
type RedditAdapter struct {
	clientID     string
	clientSecret string
	username     string
	password     string
	userAgent    string
	logger       *zap.Logger

	mu     sync.Mutex
	client *http.Client
}

func NewRedditAdapter(clientID, clientSecret, username, password, userAgent string, logger *zap.Logger) *RedditAdapter {
	return &RedditAdapter{
		clientID:     clientID,
		clientSecret: clientSecret,
		username:     username,
		password:     password,
		userAgent:    userAgent,
		logger:       logger,
	}
}

func (a *RedditAdapter) Name() models.Platform {
	return models.PlatformReddit
}

func (a *RedditAdapter) Capabilities() Capabilities {
	return Capabilities{Search: true, Reply: true}
}

func (a *RedditAdapter) Authenticate(ctx context.Context) error {
	conf := &oauth2.Config{
		ClientID:     a.clientID,
		ClientSecret: a.clientSecret,
		Endpoint:     oauth2.Endpoint{TokenURL: redditTokenURL},
	}

	// Reddit rejects requests without a descriptive User-Agent.
	base := &http.Client{
		Transport: &userAgentTransport{agent: a.userAgent, base: http.DefaultTransport},
		Timeout:   30 * time.Second,
	}

	octx := context.WithValue(ctx, oauth2.HTTPClient, base)
	token, err := conf.PasswordCredentialsToken(octx, a.username, a.password)
	if err != nil {
		a.mu.Lock()
		a.client = nil
		a.mu.Unlock()
		return fmt.Errorf("reddit token exchange: %w", err)
	}

	// The session outlives the tick that created it, so the token source is
	// bound to the background context rather than the tick's.
	bctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
	a.mu.Lock()
	a.client = oauth2.NewClient(bctx, conf.TokenSource(bctx, token))
	a.mu.Unlock()

	a.logger.Info("Connected to Reddit", zap.String("username", a.username))
	return nil
}

func (a *RedditAdapter) session() (*http.Client, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.client == nil {
		return nil, ErrNotAuthenticated
	}
	return a.client, nil
}

func (a *RedditAdapter) SearchMentions(ctx context.Context, keywords []string) ([]models.Mention, error) {
	client, err := a.session()
	if err != nil {
		return nil, err
	}

	var mentions []models.Mention
	seen := make(map[string]struct{})

	appendMention := func(m models.Mention) {
		if _, dup := seen[m.NativeID]; dup {
			return
		}
		seen[m.NativeID] = struct{}{}
		mentions = append(mentions, m)
	}

	for _, keyword := range keywords {
		posts, err := a.searchPosts(ctx, client, keyword)
		if err != nil {
			a.logger.Warn("Reddit post search failed",
				zap.String("keyword", keyword),
				zap.Error(err))
			continue
		}
		for _, m := range posts {
			appendMention(m)
		}
	}

	comments, err := a.recentComments(ctx, client, keywords)
	if err != nil {
		a.logger.Warn("Reddit comment scan failed", zap.Error(err))
		return mentions, nil
	}
	for _, m := range comments {
		appendMention(m)
	}

	return mentions, nil
}

func (a *RedditAdapter) searchPosts(ctx context.Context, client *http.Client, keyword string) ([]models.Mention, error) {
	query := url.Values{}
	query.Set("q", keyword)
	query.Set("limit", "10")
	query.Set("sort", "new")

	listing, err := a.getListing(ctx, client, redditAPIBase+"/search.json?"+query.Encode())
	if err != nil {
		return nil, err
	}

	var mentions []models.Mention
	for _, child := range listing.Data.Children {
		if child.Kind != "t3" {
			continue
		}
		if child.Data.Author == a.username {
			continue
		}
		content := child.Data.Title
		if child.Data.SelfText != "" {
			content = content + ". " + child.Data.SelfText
		}
		mentions = append(mentions, models.Mention{
			Platform:   models.PlatformReddit,
			NativeID:   "t3_" + child.Data.ID,
			Content:    content,
			Author:     child.Data.Author,
			URL:        "https://reddit.com" + child.Data.Permalink,
			ObservedAt: time.Unix(int64(child.Data.CreatedUTC), 0),
		})
	}
	return mentions, nil
}

func (a *RedditAdapter) recentComments(ctx context.Context, client *http.Client, keywords []string) ([]models.Mention, error) {
	listing, err := a.getListing(ctx, client, redditAPIBase+"/r/all/comments.json?limit=20")
	if err != nil {
		return nil, err
	}

	var mentions []models.Mention
	for _, child := range listing.Data.Children {
		if child.Kind != "t1" {
			continue
		}
		if child.Data.Author == a.username {
			continue
		}
		if !matchesAnyKeyword(child.Data.Body, keywords) {
			continue
		}
		mentions = append(mentions, models.Mention{
			Platform:   models.PlatformReddit,
			NativeID:   "t1_" + child.Data.ID,
			Content:    child.Data.Body,
			Author:     child.Data.Author,
			URL:        "https://reddit.com" + child.Data.Permalink,
			ObservedAt: time.Unix(int64(child.Data.CreatedUTC), 0),
		})
	}
	return mentions, nil
}

func (a *RedditAdapter) getListing(ctx context.Context, client *http.Client, endpoint string) (*redditListing, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("reddit returned status %d: %s", resp.StatusCode, string(body))
	}

	var listing redditListing
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return nil, fmt.Errorf("decoding reddit listing: %w", err)
	}
	return &listing, nil
}

// PostReply comments on the post or comment identified by its fullname
// (t3_xxx or t1_xxx). A timeout after the request was sent is reported as
// ambiguous because the comment may have landed.
func (a *RedditAdapter) PostReply(ctx context.Context, nativeID, text string) error {
	client, err := a.session()
	if err != nil {
		return err
	}

	form := url.Values{}
	form.Set("api_type", "json")
	form.Set("thing_id", nativeID)
	form.Set("text", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, redditAPIBase+"/api/comment", strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return fmt.Errorf("%w: %v", ErrAmbiguousDispatch, err)
		}
		return fmt.Errorf("posting reddit comment: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("reddit returned status %d: %s", resp.StatusCode, string(body))
	}

	var result redditCommentResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("%w: undecodable comment response: %v", ErrAmbiguousDispatch, err)
	}
	if len(result.JSON.Errors) > 0 {
		return fmt.Errorf("reddit rejected comment: %v", result.JSON.Errors)
	}
	return nil
}

type redditListing struct {
	Data struct {
		Children []struct {
			Kind string `json:"kind"`
			Data struct {
				ID         string  `json:"id"`
				Author     string  `json:"author"`
				Title      string  `json:"title"`
				SelfText   string  `json:"selftext"`
				Body       string  `json:"body"`
				Permalink  string  `json:"permalink"`
				CreatedUTC float64 `json:"created_utc"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type redditCommentResponse struct {
	JSON struct {
		Errors [][]interface{} `json:"errors"`
	} `json:"json"`
}

type userAgentTransport struct {
	agent string
	base  http.RoundTripper
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	clone.Header.Set("User-Agent", t.agent)
	return t.base.RoundTrip(clone)
}
