package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/iWorld-y/trend_compass/internal/cache"
	"github.com/iWorld-y/trend_compass/internal/model"
	"github.com/iWorld-y/trend_compass/internal/trends"
)

const (
	defaultBaseURL = "https://www.googleapis.com/youtube/v3"
	maxResults     = 10
	providerName   = "youtube"
)

// ErrChannelNotFound handle 未解析到任何频道
var ErrChannelNotFound = errors.New("youtube: channel not found")

// Client YouTube Data API 客户端
type Client struct {
	apiKey  string
	baseURL string
	cache   *cache.Cache
	client  *http.Client
}

// Option 客户端可选配置
type Option func(*Client)

// WithBaseURL 覆盖默认 API 地址（测试用）
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = u
		}
	}
}

// WithHTTPClient 覆盖内部 HTTP 客户端
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.client = hc
		}
	}
}

// NewClient 创建 YouTube 客户端，store 为各平台共享的趋势缓存
func NewClient(apiKey string, store *cache.Cache, opts ...Option) *Client {
	c := &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		cache:   store,
		client:  http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Ensure Client implements trends.Searcher
var _ trends.Searcher = (*Client)(nil)

// Name implements trends.Searcher
func (c *Client) Name() string { return providerName }

// searchResponse /search 接口响应（只保留需要的字段）
type searchResponse struct {
	Items []searchItem `json:"items"`
}

type searchItem struct {
	ID struct {
		VideoID   string `json:"videoId"`
		ChannelID string `json:"channelId"`
	} `json:"id"`
	Snippet struct {
		Title        string    `json:"title"`
		ChannelID    string    `json:"channelId"`
		ChannelTitle string    `json:"channelTitle"`
		PublishedAt  time.Time `json:"publishedAt"`
	} `json:"snippet"`
}

// Search 按主题搜索相关度排序的视频，标题归一化为趋势条目。
// 命中缓存时不发起上游调用。
func (c *Client) Search(ctx context.Context, topic string) ([]model.TrendItem, error) {
	if strings.TrimSpace(topic) == "" {
		return nil, nil
	}

	key := cache.Key(providerName, topic)
	if v, ok := c.cache.Get(key); ok {
		if items, ok := v.([]model.TrendItem); ok {
			return items, nil
		}
	}

	resp, err := c.doSearch(ctx, url.Values{
		"part":              {"snippet"},
		"q":                 {topic},
		"type":              {"video"},
		"order":             {"relevance"},
		"relevanceLanguage": {"en"},
		"maxResults":        {fmt.Sprint(maxResults)},
	})
	if err != nil {
		return nil, err
	}

	items := make([]model.TrendItem, 0, maxResults)
	for _, it := range resp.Items {
		if len(items) >= maxResults {
			break
		}
		items = append(items, model.TrendItem{
			Keyword:  it.Snippet.Title,
			Platform: model.PlatformYouTube,
			Industry: topic,
		})
	}

	c.cache.Set(key, items)
	return items, nil
}

// FetchChannelRecent 按 handle 解析频道并抓取最近 10 条视频（按日期倒序）。
// 与主题搜索不同：不走缓存，任何失败都向上传播。
func (c *Client) FetchChannelRecent(ctx context.Context, handle string) (*model.ChannelSnapshot, error) {
	lookup, err := c.doSearch(ctx, url.Values{
		"part":       {"snippet"},
		"q":          {handle},
		"type":       {"channel"},
		"maxResults": {"1"},
	})
	if err != nil {
		return nil, fmt.Errorf("channel lookup failed: %w", err)
	}
	if len(lookup.Items) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrChannelNotFound, handle)
	}

	channelID := lookup.Items[0].Snippet.ChannelID
	channelTitle := lookup.Items[0].Snippet.ChannelTitle

	videos, err := c.doSearch(ctx, url.Values{
		"part":       {"snippet"},
		"channelId":  {channelID},
		"order":      {"date"},
		"type":       {"video"},
		"maxResults": {fmt.Sprint(maxResults)},
	})
	if err != nil {
		return nil, fmt.Errorf("could not fetch channel videos: %w", err)
	}

	posts := make([]model.RecentPost, 0, len(videos.Items))
	for _, it := range videos.Items {
		posts = append(posts, model.RecentPost{
			PostID:      it.ID.VideoID,
			Title:       it.Snippet.Title,
			Link:        "https://www.youtube.com/watch?v=" + it.ID.VideoID,
			PublishedAt: it.Snippet.PublishedAt,
			Format:      "Video",
		})
	}

	return &model.ChannelSnapshot{
		ChannelID:    channelID,
		ChannelTitle: channelTitle,
		RecentPosts:  posts,
	}, nil
}

// doSearch 调用 /search 接口
func (c *Client) doSearch(ctx context.Context, params url.Values) (*searchResponse, error) {
	params.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request failed: %w", err)
	}

	res, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("youtube api error (status %d): %s", res.StatusCode, string(body))
	}

	var sr searchResponse
	if err := json.NewDecoder(res.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("decode response failed: %w", err)
	}

	return &sr, nil
}
