package trends

import (
	"context"
	"sync"

	"github.com/iWorld-y/trend_compass/internal/logger"
	"github.com/iWorld-y/trend_compass/internal/model"
)

// maxKeywords 传给计划生成的关键词上限
const maxKeywords = 10

// Aggregator 并发聚合多个上游平台的趋势信号。
// searchers 的顺序即结果拼接顺序（视频、链接聚合、短帖、AI 生成），
// 与各 goroutine 的完成先后无关。
type Aggregator struct {
	searchers []Searcher
}

// NewAggregator 按固定平台顺序创建聚合器
func NewAggregator(searchers ...Searcher) *Aggregator {
	return &Aggregator{searchers: searchers}
}

// FetchByTopic 并发调用全部 Searcher 并按注册顺序拼接结果。
// 单个平台的失败被吸收为空列表，不会阻塞或拖垮其余平台。
func (a *Aggregator) FetchByTopic(ctx context.Context, topic string) []model.TrendItem {
	results := make([][]model.TrendItem, len(a.searchers))
	var wg sync.WaitGroup

	for i, s := range a.searchers {
		wg.Add(1)
		go func(i int, s Searcher) {
			defer wg.Done()
			results[i] = softSearch(ctx, s, topic)
		}(i, s)
	}
	wg.Wait()

	var merged []model.TrendItem
	for _, items := range results {
		merged = append(merged, items...)
	}
	return merged
}

// FetchAllTrends 返回拼接结果的前 10 个关键词。
// 截断按平台注册顺序，不做跨平台的相关性排序。
func (a *Aggregator) FetchAllTrends(ctx context.Context, topic string) []string {
	items := a.FetchByTopic(ctx, topic)

	keywords := make([]string, 0, maxKeywords)
	for _, item := range items {
		if len(keywords) >= maxKeywords {
			break
		}
		keywords = append(keywords, item.Keyword)
	}
	return keywords
}

// softSearch 将单个上游的任何失败吸收为空列表
func softSearch(ctx context.Context, s Searcher, topic string) []model.TrendItem {
	items, err := s.Search(ctx, topic)
	if err != nil {
		logger.Log.Warnf("趋势搜索失败 [%s] topic=%q: %v", s.Name(), topic, err)
		return nil
	}
	logger.Log.Debugf("趋势搜索完成 [%s] topic=%q: %d 条", s.Name(), topic, len(items))
	return items
}
