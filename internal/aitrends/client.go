package aitrends

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"golang.org/x/time/rate"

	"github.com/iWorld-y/trend_compass/internal/cache"
	dm "github.com/iWorld-y/trend_compass/internal/model"
	"github.com/iWorld-y/trend_compass/internal/trends"
)

const (
	providerName = "gemini"
	// maxItems 趋势条目上限，模型多答时截断
	maxItems = 10
)

// trendsPrompt 约束模型只返回 {"trends": [...]} 结构的 JSON
const trendsPrompt = `You are an expert trend analysis AI. Your task is to generate a list of plausible trending search queries related to a given topic.

Based on the topic "%s", generate a list of 10 related search queries that a user might search for on Google.
Include a mix of:
1. Top Queries: broad, popular, and consistently searched terms (e.g., "skincare routine").
2. Rising Queries: more specific, newer, or breakout terms (e.g., "retinol sandwich method").

The output MUST be a valid JSON object with a single key "trends", which is an array of strings. Do not include any other text, explanations, or markdown formatting.`

// Client 用生成模型补全平台信号之外的趋势查询
type Client struct {
	cm      model.ChatModel
	cache   *cache.Cache
	limiter *rate.Limiter
}

// NewClient 创建 AI 趋势客户端，limiter 为全部模型调用共享的限流器
func NewClient(cm model.ChatModel, store *cache.Cache, limiter *rate.Limiter) *Client {
	return &Client{cm: cm, cache: store, limiter: limiter}
}

// Ensure Client implements trends.Searcher
var _ trends.Searcher = (*Client)(nil)

// Name implements trends.Searcher
func (c *Client) Name() string { return providerName }

// Search 让模型生成 10 条与主题相关的搜索查询并归一化为趋势条目
func (c *Client) Search(ctx context.Context, topic string) ([]dm.TrendItem, error) {
	if strings.TrimSpace(topic) == "" {
		return nil, nil
	}

	key := cache.Key(providerName, topic)
	if v, ok := c.cache.Get(key); ok {
		if items, ok := v.([]dm.TrendItem); ok {
			return items, nil
		}
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	messages := []*schema.Message{
		{Role: schema.System, Content: "You are a JSON generator. Output only a JSON string."},
		{Role: schema.User, Content: fmt.Sprintf(trendsPrompt, topic)},
	}

	resp, err := c.cm.Generate(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("generate trends failed: %w", err)
	}

	var generated struct {
		Trends []string `json:"trends"`
	}
	if err := json.Unmarshal([]byte(stripFences(resp.Content)), &generated); err != nil {
		return nil, fmt.Errorf("json unmarshal: %w", err)
	}

	items := make([]dm.TrendItem, 0, len(generated.Trends))
	for _, keyword := range generated.Trends {
		if len(items) >= maxItems {
			break
		}
		items = append(items, dm.TrendItem{
			Keyword:  keyword,
			Platform: dm.PlatformAI,
			Industry: topic,
		})
	}

	c.cache.Set(key, items)
	return items, nil
}

// stripFences 去掉模型偶尔附带的 markdown 代码块标记
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
