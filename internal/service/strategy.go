package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-kratos/kratos/v2/log"

	"github.com/iWorld-y/trend_compass/internal/analysis"
	"github.com/iWorld-y/trend_compass/internal/model"
	"github.com/iWorld-y/trend_compass/internal/planner"
	"github.com/iWorld-y/trend_compass/internal/storage"
	"github.com/iWorld-y/trend_compass/internal/trends"
	"github.com/iWorld-y/trend_compass/internal/youtube"
)

// ErrUnsupportedPlatform 竞品跟踪目前只支持 YouTube 频道
var ErrUnsupportedPlatform = errors.New("service: unsupported competitor platform")

// StrategyRepo 策略与竞品的持久化接口，*storage.Storage 是默认实现
type StrategyRepo interface {
	SaveStrategy(ctx context.Context, strategy *model.ContentStrategy) (int, error)
	ListStrategies(ctx context.Context) ([]*model.ContentStrategy, error)
	GetStrategy(ctx context.Context, id int) (*model.ContentStrategy, error)
	SaveCompetitor(ctx context.Context, competitor *model.Competitor) (int, error)
	ListCompetitors(ctx context.Context) ([]*model.Competitor, error)
}

// ChannelFetcher 按 handle 拉取竞品频道近期内容
type ChannelFetcher interface {
	FetchChannelRecent(ctx context.Context, handle string) (*model.ChannelSnapshot, error)
}

// StrategyService 组合趋势聚合、计划生成与竞品分析，对外提供业务操作
type StrategyService struct {
	repo       StrategyRepo
	aggregator *trends.Aggregator
	planner    *planner.Planner
	channels   ChannelFetcher
	analyzer   *analysis.Analyzer
	log        *log.Helper
}

func NewStrategyService(repo StrategyRepo, aggregator *trends.Aggregator, p *planner.Planner,
	channels ChannelFetcher, analyzer *analysis.Analyzer, logger log.Logger) *StrategyService {
	return &StrategyService{
		repo:       repo,
		aggregator: aggregator,
		planner:    p,
		channels:   channels,
		analyzer:   analyzer,
		log:        log.NewHelper(logger),
	}
}

// GenerateStrategy 聚合趋势、生成计划并落库。
// 趋势聚合是软失败：拿不到关键词时依然生成计划。
func (s *StrategyService) GenerateStrategy(ctx context.Context, req model.PlanRequest) (*model.ContentStrategy, error) {
	keywords := s.aggregator.FetchAllTrends(ctx, req.Topic)
	s.log.Infof("趋势聚合完成 topic=%q keywords=%d", req.Topic, len(keywords))

	plan, err := s.planner.Generate(ctx, req, keywords)
	if err != nil {
		return nil, err
	}

	strategy := &model.ContentStrategy{
		TargetAudience: req.TargetAudience,
		Topic:          req.Topic,
		Goals:          req.Goals,
		GeneratedPlan:  plan,
		CreatedAt:      time.Now(),
	}

	id, err := s.repo.SaveStrategy(ctx, strategy)
	if err != nil {
		return nil, err
	}
	strategy.ID = id

	s.log.Infof("内容策略已保存 id=%d topic=%q", id, req.Topic)
	return strategy, nil
}

// ListStrategies 返回全部历史策略
func (s *StrategyService) ListStrategies(ctx context.Context) ([]*model.ContentStrategy, error) {
	return s.repo.ListStrategies(ctx)
}

// GetStrategy 按 id 查询单条策略
func (s *StrategyService) GetStrategy(ctx context.Context, id int) (*model.ContentStrategy, error) {
	return s.repo.GetStrategy(ctx, id)
}

// TrendsByTopic 返回指定话题的聚合趋势
func (s *StrategyService) TrendsByTopic(ctx context.Context, topic string) []model.TrendItem {
	return s.aggregator.FetchByTopic(ctx, topic)
}

// AddCompetitor 跟踪一个竞品频道：拉取近期内容、做主题分析并落库。
// 频道查不到是硬失败，主题分析失败则软降级为占位结果。
func (s *StrategyService) AddCompetitor(ctx context.Context, name, platform, handle string) (*model.Competitor, error) {
	if platform != string(model.PlatformYouTube) {
		return nil, ErrUnsupportedPlatform
	}

	snapshot, err := s.channels.FetchChannelRecent(ctx, handle)
	if err != nil {
		return nil, err
	}

	titles := make([]string, 0, len(snapshot.RecentPosts))
	for _, post := range snapshot.RecentPosts {
		titles = append(titles, post.Title)
	}
	result := s.analyzer.Analyze(ctx, titles)

	competitor := &model.Competitor{
		Name:        name,
		Platform:    platform,
		ChannelID:   snapshot.ChannelID,
		RecentPosts: snapshot.RecentPosts,
		Analysis:    result,
		LastFetched: time.Now(),
		CreatedAt:   time.Now(),
	}
	if competitor.Name == "" {
		competitor.Name = snapshot.ChannelTitle
	}

	id, err := s.repo.SaveCompetitor(ctx, competitor)
	if err != nil {
		return nil, err
	}
	competitor.ID = id

	s.log.Infof("竞品已入库 id=%d channel=%s posts=%d", id, snapshot.ChannelID, len(snapshot.RecentPosts))
	return competitor, nil
}

// ListCompetitors 返回全部跟踪中的竞品
func (s *StrategyService) ListCompetitors(ctx context.Context) ([]*model.Competitor, error) {
	return s.repo.ListCompetitors(ctx)
}

var (
	_ StrategyRepo   = (*storage.Storage)(nil)
	_ ChannelFetcher = (*youtube.Client)(nil)
)
