package reddit

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/iWorld-y/trend_compass/internal/cache"
	"github.com/iWorld-y/trend_compass/internal/model"
	"github.com/iWorld-y/trend_compass/internal/trends"
)

const (
	defaultBaseURL = "https://www.reddit.com"
	maxEntries     = 10
	providerName   = "reddit"
)

// Client Reddit RSS 搜索客户端。搜索范围固定为最近一周的 hot 排序。
type Client struct {
	baseURL string
	cache   *cache.Cache
	client  *http.Client
	parser  *gofeed.Parser
}

// Option 客户端可选配置
type Option func(*Client)

// WithBaseURL 覆盖默认地址（测试用）
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

// NewClient 创建 Reddit 客户端
func NewClient(store *cache.Cache, opts ...Option) *Client {
	c := &Client{
		baseURL: defaultBaseURL,
		cache:   store,
		client:  http.DefaultClient,
		parser:  gofeed.NewParser(),
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

// Search 抓取 search.rss 并把条目标题归一化为趋势条目。
// 空结果不写缓存，下一次调用会重新尝试上游。
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

	q := url.Values{}
	q.Set("q", topic)
	q.Set("sort", "hot")
	q.Set("t", "week")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search.rss?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request failed: %w", err)
	}
	// 添加 User-Agent 避免被反爬虫策略拦截
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")

	res, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("reddit search error (status %d): %s", res.StatusCode, string(body))
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("read body failed: %w", err)
	}

	feed, err := c.parser.ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed failed: %w", err)
	}

	if len(feed.Items) == 0 {
		return nil, nil
	}

	items := make([]model.TrendItem, 0, maxEntries)
	for _, entry := range feed.Items {
		if len(items) >= maxEntries {
			break
		}
		items = append(items, model.TrendItem{
			Keyword:  entry.Title,
			Platform: model.PlatformReddit,
			Industry: topic,
		})
	}

	c.cache.Set(key, items)
	return items, nil
}
