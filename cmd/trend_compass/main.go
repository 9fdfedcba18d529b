package main

import (
	"context"
	"flag"
	stdlog "log"
	"os"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/go-kratos/kratos/v2"
	"github.com/go-kratos/kratos/v2/log"
	"golang.org/x/time/rate"

	"github.com/iWorld-y/trend_compass/internal/aitrends"
	"github.com/iWorld-y/trend_compass/internal/analysis"
	"github.com/iWorld-y/trend_compass/internal/cache"
	"github.com/iWorld-y/trend_compass/internal/config"
	"github.com/iWorld-y/trend_compass/internal/logger"
	"github.com/iWorld-y/trend_compass/internal/planner"
	"github.com/iWorld-y/trend_compass/internal/reddit"
	"github.com/iWorld-y/trend_compass/internal/server"
	"github.com/iWorld-y/trend_compass/internal/service"
	"github.com/iWorld-y/trend_compass/internal/storage"
	"github.com/iWorld-y/trend_compass/internal/trends"
	"github.com/iWorld-y/trend_compass/internal/twitter"
	"github.com/iWorld-y/trend_compass/internal/youtube"
)

var (
	// Name 是服务的名称
	Name string = "trend_compass"
	// Version 是服务的版本号
	Version string
	// flagconf 是配置文件的路径命令行参数
	flagconf string

	id, _ = os.Hostname()
)

func init() {
	flag.StringVar(&flagconf, "conf", "configs/config.yaml", "config path, eg: -conf config.yaml")
}

func main() {
	flag.Parse()

	// 1. 加载配置
	cfg, err := config.LoadConfig(flagconf)
	if err != nil {
		stdlog.Fatalf("无法加载配置文件: %v", err)
	}

	// 验证配置
	if cfg.LLM.APIKey == "" {
		stdlog.Fatal("配置错误: 未设置 llm.api_key")
	}
	if cfg.Providers.YouTube.APIKey == "" {
		stdlog.Fatal("配置错误: 未设置 providers.youtube.api_key")
	}

	// 2. 初始化日志
	if err = logger.InitLogger(cfg.Log.Level, cfg.Log.File); err != nil {
		stdlog.Fatalf("无法初始化日志: %v", err)
	}
	logger.Log.Info("启动趋势罗盘...")

	klogger := log.With(log.NewStdLogger(os.Stdout),
		"ts", log.DefaultTimestamp,
		"caller", log.DefaultCaller,
		"service.id", id,
		"service.name", Name,
		"service.version", Version,
	)

	ctx := context.Background()

	// 3. 初始化数据库连接
	store, err := storage.NewStorage(cfg.DB)
	if err != nil {
		logger.Log.Fatalf("无法连接数据库: %v", err)
	}
	defer store.Close()
	logger.Log.Info("已成功连接到数据库")

	// 4. 初始化 LLM
	chatModel, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		BaseURL: cfg.LLM.BaseURL,
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.Model,
	})
	if err != nil {
		logger.Log.Fatalf("LLM 初始化失败: %v", err)
	}

	// 5. 初始化限流器，全部模型调用共享
	limit := rate.Inf
	if cfg.Concurrency.RPM > 0 {
		limit = rate.Limit(float64(cfg.Concurrency.RPM) / 60.0)
	}
	burst := cfg.Concurrency.QPS
	if burst < 1 {
		burst = 1
	}
	limiter := rate.NewLimiter(limit, burst)
	logger.Log.Infof("限流器已配置: Limit=%.2f req/s, Burst=%d", float64(limit), burst)

	// 6. 初始化趋势缓存，各平台客户端共享同一实例
	ttl := cache.DefaultTTL
	if cfg.Cache.TTLSeconds > 0 {
		ttl = time.Duration(cfg.Cache.TTLSeconds) * time.Second
	}
	store2 := cache.New(ttl)

	// 7. 初始化各平台客户端，注册顺序即聚合结果的拼接顺序
	var ytOpts []youtube.Option
	if cfg.Providers.YouTube.BaseURL != "" {
		ytOpts = append(ytOpts, youtube.WithBaseURL(cfg.Providers.YouTube.BaseURL))
	}
	ytClient := youtube.NewClient(cfg.Providers.YouTube.APIKey, store2, ytOpts...)

	var rdOpts []reddit.Option
	if cfg.Providers.Reddit.BaseURL != "" {
		rdOpts = append(rdOpts, reddit.WithBaseURL(cfg.Providers.Reddit.BaseURL))
	}
	rdClient := reddit.NewClient(store2, rdOpts...)

	var twOpts []twitter.Option
	if cfg.Providers.Twitter.BaseURL != "" {
		twOpts = append(twOpts, twitter.WithBaseURL(cfg.Providers.Twitter.BaseURL))
	}
	twClient := twitter.NewClient(cfg.Providers.Twitter.BearerToken, store2, twOpts...)

	aiClient := aitrends.NewClient(chatModel, store2, limiter)

	aggregator := trends.NewAggregator(ytClient, rdClient, twClient, aiClient)

	// 8. 组装业务层与 HTTP 服务
	svc := service.NewStrategyService(store, aggregator,
		planner.New(chatModel, limiter), ytClient,
		analysis.New(chatModel, limiter), klogger)

	httpSrv := server.NewHTTPServer(&cfg.Server, svc, klogger)

	app := kratos.New(
		kratos.ID(id),
		kratos.Name(Name),
		kratos.Version(Version),
		kratos.Logger(klogger),
		kratos.Server(httpSrv),
	)

	if err := app.Run(); err != nil {
		logger.Log.Fatalf("服务运行失败: %v", err)
	}
}
