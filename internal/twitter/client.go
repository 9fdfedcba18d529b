package twitter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/iWorld-y/trend_compass/internal/cache"
	"github.com/iWorld-y/trend_compass/internal/model"
	"github.com/iWorld-y/trend_compass/internal/trends"
)

const (
	defaultBaseURL = "https://api.twitter.com/2"
	maxResults     = 10
	providerName   = "twitter"
)

// Client Twitter recent search 客户端，Bearer Token 认证
type Client struct {
	bearerToken string
	baseURL     string
	cache       *cache.Cache
	client      *http.Client
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

// NewClient 创建 Twitter 客户端
func NewClient(bearerToken string, store *cache.Cache, opts ...Option) *Client {
	c := &Client{
		bearerToken: bearerToken,
		baseURL:     defaultBaseURL,
		cache:       store,
		client:      http.DefaultClient,
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

// searchResponse recent search 响应（只保留需要的字段）
type searchResponse struct {
	Data []tweet `json:"data"`
}

type tweet struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Search 搜索最近的英文原创推文（排除转推），按相关度排序。
// 空结果不写缓存。
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
	q.Set("query", topic+" -is:retweet lang:en")
	q.Set("max_results", fmt.Sprint(maxResults))
	q.Set("sort_order", "relevancy")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/tweets/search/recent?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request failed: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.bearerToken)

	res, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("twitter api error (status %d): %s", res.StatusCode, string(body))
	}

	var sr searchResponse
	if err := json.NewDecoder(res.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("decode response failed: %w", err)
	}

	if len(sr.Data) == 0 {
		return nil, nil
	}

	items := make([]model.TrendItem, 0, maxResults)
	for _, tw := range sr.Data {
		if len(items) >= maxResults {
			break
		}
		items = append(items, model.TrendItem{
			Keyword:  tw.Text,
			Platform: model.PlatformTwitter,
			Industry: topic,
		})
	}

	c.cache.Set(key, items)
	return items, nil
}
