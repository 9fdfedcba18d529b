package reddit

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/trend_compass/internal/cache"
	"github.com/iWorld-y/trend_compass/internal/model"
)

func atomFeed(titles ...string) string {
	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	sb.WriteString(`<feed xmlns="http://www.w3.org/2005/Atom">`)
	sb.WriteString(`<title>search results</title>`)
	for i, title := range titles {
		fmt.Fprintf(&sb, `<entry><id>t3_%d</id><title>%s</title><link href="https://www.reddit.com/r/x/%d"/></entry>`, i, title, i)
	}
	sb.WriteString(`</feed>`)
	return sb.String()
}

func TestClient_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search.rss", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "espresso", q.Get("q"))
		assert.Equal(t, "hot", q.Get("sort"))
		assert.Equal(t, "week", q.Get("t"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		fmt.Fprint(w, atomFeed("Best beans of 2024", "Grinder advice"))
	}))
	defer srv.Close()

	c := NewClient(cache.New(time.Minute), WithBaseURL(srv.URL))

	items, err := c.Search(context.Background(), "espresso")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, model.TrendItem{Keyword: "Best beans of 2024", Platform: model.PlatformReddit, Industry: "espresso"}, items[0])
}

func TestClient_SearchTruncatesToTen(t *testing.T) {
	titles := make([]string, 15)
	for i := range titles {
		titles[i] = fmt.Sprintf("post %d", i)
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, atomFeed(titles...))
	}))
	defer srv.Close()

	c := NewClient(cache.New(time.Minute), WithBaseURL(srv.URL))

	items, err := c.Search(context.Background(), "espresso")
	require.NoError(t, err)
	assert.Len(t, items, 10)
	assert.Equal(t, "post 0", items[0].Keyword)
	assert.Equal(t, "post 9", items[9].Keyword)
}

func TestClient_SearchServedFromCache(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		fmt.Fprint(w, atomFeed("once"))
	}))
	defer srv.Close()

	c := NewClient(cache.New(time.Minute), WithBaseURL(srv.URL))

	_, err := c.Search(context.Background(), "Coffee")
	require.NoError(t, err)
	_, err = c.Search(context.Background(), "coffee")
	require.NoError(t, err)

	assert.EqualValues(t, 1, calls.Load())
}

func TestClient_SearchEmptyFeedNotCached(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		fmt.Fprint(w, atomFeed())
	}))
	defer srv.Close()

	c := NewClient(cache.New(time.Minute), WithBaseURL(srv.URL))

	items, err := c.Search(context.Background(), "obscure")
	require.NoError(t, err)
	assert.Empty(t, items)

	// 空结果不缓存，再次调用仍会请求上游
	_, _ = c.Search(context.Background(), "obscure")
	assert.EqualValues(t, 2, calls.Load())
}

func TestClient_SearchEmptyTopic(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("upstream should not be called for empty topic")
	}))
	defer srv.Close()

	c := NewClient(cache.New(time.Minute), WithBaseURL(srv.URL))

	items, err := c.Search(context.Background(), " ")
	assert.NoError(t, err)
	assert.Empty(t, items)
}

func TestClient_SearchUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "too many requests", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(cache.New(time.Minute), WithBaseURL(srv.URL))

	_, err := c.Search(context.Background(), "espresso")
	assert.Error(t, err)
}

func TestClient_SearchMalformedFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html>not a feed</html>")
	}))
	defer srv.Close()

	c := NewClient(cache.New(time.Minute), WithBaseURL(srv.URL))

	_, err := c.Search(context.Background(), "espresso")
	assert.Error(t, err)
}
