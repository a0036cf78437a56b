package platform

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMatchesAnyKeyword(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		keywords []string
		want     bool
	}{
		{"case insensitive", "Loving DRAESONTEL so far", []string{"draesontel"}, true},
		{"substring match", "the draesontel2 beta", []string{"Draesontel"}, true},
		{"no match", "completely unrelated post", []string{"Draesontel"}, false},
		{"empty keyword ignored", "anything", []string{""}, false},
		{"any of several", "asking about pricing", []string{"Draesontel", "pricing"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, matchesAnyKeyword(tt.content, tt.keywords))
		})
	}
}

func TestStripHTML(t *testing.T) {
	assert.Equal(t, "Hello & welcome to the fediverse",
		stripHTML(`<p>Hello &amp; welcome<br/>to the <a href="#">fediverse</a></p>`))
	assert.Equal(t, "plain", stripHTML("plain"))
	assert.Equal(t, "", stripHTML("<p></p>"))
}

func TestRedditListingDecoding(t *testing.T) {
	payload := `{
		"data": {
			"children": [
				{"kind": "t3", "data": {"id": "abc", "author": "alice", "title": "Draesontel rocks",
					"selftext": "really enjoying it", "permalink": "/r/gadgets/abc", "created_utc": 1700000000}},
				{"kind": "t1", "data": {"id": "def", "author": "bob", "body": "anyone tried Draesontel?",
					"permalink": "/r/gadgets/def", "created_utc": 1700000100}}
			]
		}
	}`

	var listing redditListing
	require.NoError(t, json.Unmarshal([]byte(payload), &listing))
	require.Len(t, listing.Data.Children, 2)

	post := listing.Data.Children[0]
	assert.Equal(t, "t3", post.Kind)
	assert.Equal(t, "abc", post.Data.ID)
	assert.Equal(t, "Draesontel rocks", post.Data.Title)

	comment := listing.Data.Children[1]
	assert.Equal(t, "t1", comment.Kind)
	assert.Equal(t, "anyone tried Draesontel?", comment.Data.Body)
}

func TestAdaptersRequireAuthentication(t *testing.T) {
	ctx := context.Background()

	mastodonAdapter := NewMastodonAdapter("https://mastodon.social", "token", zap.NewNop())
	_, err := mastodonAdapter.SearchMentions(ctx, []string{"acme"})
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	assert.ErrorIs(t, mastodonAdapter.PostReply(ctx, "1", "hi"), ErrNotAuthenticated)

	redditAdapter := NewRedditAdapter("id", "secret", "user", "pass", "agent/1.0", zap.NewNop())
	_, err = redditAdapter.SearchMentions(ctx, []string{"acme"})
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	youtubeAdapter := NewYouTubeAdapter("key", 5, 20, zap.NewNop())
	_, err = youtubeAdapter.SearchMentions(ctx, []string{"acme"})
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

type captureTransport struct {
	req *http.Request
}

func (c *captureTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	c.req = req
	return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody}, nil
}

func TestUserAgentTransportDoesNotMutateRequest(t *testing.T) {
	base := &captureTransport{}
	transport := &userAgentTransport{agent: "agent/1.0", base: base}

	req, err := http.NewRequest(http.MethodGet, "https://example.com", nil)
	require.NoError(t, err)

	_, err = transport.RoundTrip(req)
	require.NoError(t, err)

	assert.Empty(t, req.Header.Get("User-Agent"), "the caller's request must stay untouched")
	require.NotNil(t, base.req)
	assert.Equal(t, "agent/1.0", base.req.Header.Get("User-Agent"))
}

func TestYouTubeIsReadOnly(t *testing.T) {
	adapter := NewYouTubeAdapter("key", 5, 20, zap.NewNop())

	capabilities := adapter.Capabilities()
	assert.True(t, capabilities.Search)
	assert.False(t, capabilities.Reply)
	assert.ErrorIs(t, adapter.PostReply(context.Background(), "c1", "hi"), ErrReplyUnsupported)
}
