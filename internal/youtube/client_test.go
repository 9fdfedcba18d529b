package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/trend_compass/internal/cache"
	"github.com/iWorld-y/trend_compass/internal/model"
)

func videoSearchBody(titles ...string) string {
	body := `{"items":[`
	for i, title := range titles {
		if i > 0 {
			body += ","
		}
		body += fmt.Sprintf(`{"id":{"videoId":"v%d"},"snippet":{"title":%q,"publishedAt":"2024-05-01T10:00:00Z"}}`, i, title)
	}
	return body + `]}`
}

func TestClient_Search(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		q := r.URL.Query()
		assert.Equal(t, "golang", q.Get("q"))
		assert.Equal(t, "video", q.Get("type"))
		assert.Equal(t, "relevance", q.Get("order"))
		assert.Equal(t, "test-key", q.Get("key"))
		fmt.Fprint(w, videoSearchBody("Go in 2024", "Learn Go fast"))
	}))
	defer srv.Close()

	c := NewClient("test-key", cache.New(time.Minute), WithBaseURL(srv.URL))

	items, err := c.Search(context.Background(), "golang")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, model.TrendItem{Keyword: "Go in 2024", Platform: model.PlatformYouTube, Industry: "golang"}, items[0])
}

func TestClient_SearchServedFromCache(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		fmt.Fprint(w, videoSearchBody("only once"))
	}))
	defer srv.Close()

	c := NewClient("test-key", cache.New(time.Minute), WithBaseURL(srv.URL))

	first, err := c.Search(context.Background(), "AI")
	require.NoError(t, err)
	// 主题大小写不同也应命中同一条缓存
	second, err := c.Search(context.Background(), "ai")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.EqualValues(t, 1, calls.Load())
}

func TestClient_SearchEmptyTopic(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("upstream should not be called for empty topic")
	}))
	defer srv.Close()

	store := cache.New(time.Minute)
	c := NewClient("test-key", store, WithBaseURL(srv.URL))

	for _, topic := range []string{"", "   "} {
		items, err := c.Search(context.Background(), topic)
		assert.NoError(t, err)
		assert.Empty(t, items)
	}
	assert.Equal(t, 0, store.Len())
}

func TestClient_SearchUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":403}}`, http.StatusForbidden)
	}))
	defer srv.Close()

	store := cache.New(time.Minute)
	c := NewClient("bad-key", store, WithBaseURL(srv.URL))

	_, err := c.Search(context.Background(), "golang")
	assert.Error(t, err)
	// 失败时不应写缓存
	assert.Equal(t, 0, store.Len())
}

func TestClient_FetchChannelRecent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("type") == "channel" {
			fmt.Fprint(w, `{"items":[{"snippet":{"channelId":"UC123","channelTitle":"TechTalks"}}]}`)
			return
		}
		assert.Equal(t, "UC123", q.Get("channelId"))
		assert.Equal(t, "date", q.Get("order"))
		fmt.Fprint(w, videoSearchBody("Latest upload"))
	}))
	defer srv.Close()

	c := NewClient("test-key", cache.New(time.Minute), WithBaseURL(srv.URL))

	snap, err := c.FetchChannelRecent(context.Background(), "techtalks")
	require.NoError(t, err)
	assert.Equal(t, "UC123", snap.ChannelID)
	assert.Equal(t, "TechTalks", snap.ChannelTitle)
	require.Len(t, snap.RecentPosts, 1)
	assert.Equal(t, "Latest upload", snap.RecentPosts[0].Title)
	assert.Equal(t, "https://www.youtube.com/watch?v=v0", snap.RecentPosts[0].Link)
	assert.Equal(t, "Video", snap.RecentPosts[0].Format)
}

func TestClient_FetchChannelRecentNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"items":[]}`)
	}))
	defer srv.Close()

	c := NewClient("test-key", cache.New(time.Minute), WithBaseURL(srv.URL))

	_, err := c.FetchChannelRecent(context.Background(), "ghost")
	assert.True(t, errors.Is(err, ErrChannelNotFound))
}

func TestClient_FetchChannelRecentUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "server error", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient("test-key", cache.New(time.Minute), WithBaseURL(srv.URL))

	// 与主题搜索不同，该路径的上游错误必须向上传播
	_, err := c.FetchChannelRecent(context.Background(), "techtalks")
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrChannelNotFound))
}
