package platform

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/KadenMcCarty-Personal/Social-Media-Agent-N/internal/models"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// YouTubeAdapter is a read-only integration: the Data API cannot search
// comments directly, so it searches recent videos per keyword and walks their
// comment threads. API-key auth cannot publish comments, so replies are
// unsupported and the orchestrator takes the log-only path.
type YouTubeAdapter struct {
	apiKey      string
	maxVideos   int64
	maxComments int64
	logger      *zap.Logger

	mu      sync.Mutex
	service *youtube.Service
}

func NewYouTubeAdapter(apiKey string, maxVideos, maxComments int64, logger *zap.Logger) *YouTubeAdapter {
	if maxVideos <= 0 {
		maxVideos = 5
	}
	if maxComments <= 0 {
		maxComments = 20
	}
	return &YouTubeAdapter{
		apiKey:      apiKey,
		maxVideos:   maxVideos,
		maxComments: maxComments,
		logger:      logger,
	}
}

func (a *YouTubeAdapter) Name() models.Platform {
	return models.PlatformYouTube
}

func (a *YouTubeAdapter) Capabilities() Capabilities {
	return Capabilities{Search: true, Reply: false}
}

func (a *YouTubeAdapter) Authenticate(ctx context.Context) error {
	service, err := youtube.NewService(ctx, option.WithAPIKey(a.apiKey))
	if err != nil {
		a.mu.Lock()
		a.service = nil
		a.mu.Unlock()
		return fmt.Errorf("creating youtube service: %w", err)
	}

	a.mu.Lock()
	a.service = service
	a.mu.Unlock()

	a.logger.Info("Connected to YouTube Data API")
	return nil
}

func (a *YouTubeAdapter) session() (*youtube.Service, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.service == nil {
		return nil, ErrNotAuthenticated
	}
	return a.service, nil
}

func (a *YouTubeAdapter) SearchMentions(ctx context.Context, keywords []string) ([]models.Mention, error) {
	service, err := a.session()
	if err != nil {
		return nil, err
	}

	var mentions []models.Mention
	seen := make(map[string]struct{})

	for _, keyword := range keywords {
		search, err := service.Search.List([]string{"id", "snippet"}).
			Q(keyword).
			Type("video").
			Order("date").
			MaxResults(a.maxVideos).
			Context(ctx).
			Do()
		if err != nil {
			a.logger.Warn("YouTube video search failed",
				zap.String("keyword", keyword),
				zap.Error(err))
			continue
		}

		for _, item := range search.Items {
			if item.Id == nil || item.Id.VideoId == "" {
				continue
			}
			comments, err := a.videoComments(ctx, service, item.Id.VideoId, keyword)
			if err != nil {
				// Comments can be disabled per video; keep walking.
				a.logger.Debug("Skipping video comments",
					zap.String("video_id", item.Id.VideoId),
					zap.Error(err))
				continue
			}
			for _, m := range comments {
				if _, dup := seen[m.NativeID]; dup {
					continue
				}
				seen[m.NativeID] = struct{}{}
				mentions = append(mentions, m)
			}
		}
	}

	return mentions, nil
}

func (a *YouTubeAdapter) videoComments(ctx context.Context, service *youtube.Service, videoID, keyword string) ([]models.Mention, error) {
	threads, err := service.CommentThreads.List([]string{"snippet"}).
		VideoId(videoID).
		TextFormat("plainText").
		Order("time").
		MaxResults(a.maxComments).
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}

	var mentions []models.Mention
	for _, thread := range threads.Items {
		if thread.Snippet == nil || thread.Snippet.TopLevelComment == nil {
			continue
		}
		comment := thread.Snippet.TopLevelComment
		if comment.Snippet == nil {
			continue
		}
		if !matchesAnyKeyword(comment.Snippet.TextDisplay, []string{keyword}) {
			continue
		}

		observedAt := time.Now()
		if ts, err := time.Parse(time.RFC3339, comment.Snippet.PublishedAt); err == nil {
			observedAt = ts
		}

		mentions = append(mentions, models.Mention{
			Platform:   models.PlatformYouTube,
			NativeID:   comment.Id,
			Content:    comment.Snippet.TextDisplay,
			Author:     comment.Snippet.AuthorDisplayName,
			URL:        fmt.Sprintf("https://www.youtube.com/watch?v=%s&lc=%s", videoID, comment.Id),
			ObservedAt: observedAt,
		})
	}
	return mentions, nil
}

func (a *YouTubeAdapter) PostReply(ctx context.Context, nativeID, text string) error {
	return ErrReplyUnsupported
}
