package twitter

import (
	"context"
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

func TestClient_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tweets/search/recent", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		q := r.URL.Query()
		assert.Equal(t, "skincare -is:retweet lang:en", q.Get("query"))
		assert.Equal(t, "10", q.Get("max_results"))
		assert.Equal(t, "relevancy", q.Get("sort_order"))
		fmt.Fprint(w, `{"data":[{"id":"1","text":"retinol routine tips"},{"id":"2","text":"SPF myths"}]}`)
	}))
	defer srv.Close()

	c := NewClient("test-token", cache.New(time.Minute), WithBaseURL(srv.URL))

	items, err := c.Search(context.Background(), "skincare")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, model.TrendItem{Keyword: "retinol routine tips", Platform: model.PlatformTwitter, Industry: "skincare"}, items[0])
}

func TestClient_SearchServedFromCache(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		fmt.Fprint(w, `{"data":[{"id":"1","text":"once"}]}`)
	}))
	defer srv.Close()

	c := NewClient("test-token", cache.New(time.Minute), WithBaseURL(srv.URL))

	_, err := c.Search(context.Background(), "skincare")
	require.NoError(t, err)
	_, err = c.Search(context.Background(), "SKINCARE")
	require.NoError(t, err)

	assert.EqualValues(t, 1, calls.Load())
}

func TestClient_SearchEmptyResultNotCached(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		fmt.Fprint(w, `{}`)
	}))
	defer srv.Close()

	c := NewClient("test-token", cache.New(time.Minute), WithBaseURL(srv.URL))

	items, err := c.Search(context.Background(), "nothing")
	require.NoError(t, err)
	assert.Empty(t, items)

	_, _ = c.Search(context.Background(), "nothing")
	assert.EqualValues(t, 2, calls.Load())
}

func TestClient_SearchEmptyTopic(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("upstream should not be called for empty topic")
	}))
	defer srv.Close()

	c := NewClient("test-token", cache.New(time.Minute), WithBaseURL(srv.URL))

	items, err := c.Search(context.Background(), "")
	assert.NoError(t, err)
	assert.Empty(t, items)
}

func TestClient_SearchUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"title":"Unauthorized"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient("bad-token", cache.New(time.Minute), WithBaseURL(srv.URL))

	_, err := c.Search(context.Background(), "skincare")
	assert.Error(t, err)
}
