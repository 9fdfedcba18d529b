package trends

import (
	"context"

	"github.com/iWorld-y/trend_compass/internal/model"
)

// Searcher 定义统一的趋势搜索能力。四个平台适配器各自实现，
// 失败时返回 error，由聚合层统一吸收。
type Searcher interface {
	// Name 返回平台标识，用于日志与缓存键前缀
	Name() string
	// Search 按主题搜索并返回归一化后的趋势条目（最多 10 条）
	Search(ctx context.Context, topic string) ([]model.TrendItem, error)
}
