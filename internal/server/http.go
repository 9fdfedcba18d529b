package server

import (
	stderrors "errors"
	"strconv"
	"time"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware/recovery"
	"github.com/go-kratos/kratos/v2/transport/http"

	"github.com/iWorld-y/trend_compass/internal/config"
	"github.com/iWorld-y/trend_compass/internal/model"
	"github.com/iWorld-y/trend_compass/internal/planner"
	"github.com/iWorld-y/trend_compass/internal/service"
	"github.com/iWorld-y/trend_compass/internal/storage"
	"github.com/iWorld-y/trend_compass/internal/youtube"
)

// strategyRequest POST /api/strategies 的请求体，日期为 YYYY-MM-DD
type strategyRequest struct {
	TargetAudience string `json:"targetAudience"`
	Topic          string `json:"topic"`
	Goals          string `json:"goals"`
	StartDate      string `json:"startDate"`
	EndDate        string `json:"endDate"`
}

// competitorRequest POST /api/competitors 的请求体
type competitorRequest struct {
	Name     string `json:"name"`
	Platform string `json:"platform"`
	Handle   string `json:"handle"`
}

func NewHTTPServer(c *config.ServerConfig, svc *service.StrategyService, logger log.Logger) *http.Server {
	var opts = []http.ServerOption{
		http.Middleware(
			recovery.Recovery(),
		),
	}
	if c.Addr != "" {
		opts = append(opts, http.Address(c.Addr))
	}
	if c.Timeout != "" {
		if d, err := time.ParseDuration(c.Timeout); err == nil {
			opts = append(opts, http.Timeout(d))
		}
	}

	srv := http.NewServer(opts...)
	registerRoutes(srv, svc)
	return srv
}

func registerRoutes(srv *http.Server, svc *service.StrategyService) {
	r := srv.Route("/api")

	r.POST("/strategies", func(ctx http.Context) error {
		var body strategyRequest
		if err := ctx.Bind(&body); err != nil {
			return errors.BadRequest("INVALID_BODY", err.Error())
		}
		if body.TargetAudience == "" || body.Topic == "" || body.Goals == "" {
			return errors.BadRequest("MISSING_FIELDS", "targetAudience, topic and goals are required")
		}

		req := model.PlanRequest{
			TargetAudience: body.TargetAudience,
			Topic:          body.Topic,
			Goals:          body.Goals,
		}
		var err error
		if req.StartDate, err = parseDate(body.StartDate); err != nil {
			return errors.BadRequest("INVALID_DATE", "startDate must be YYYY-MM-DD")
		}
		if req.EndDate, err = parseDate(body.EndDate); err != nil {
			return errors.BadRequest("INVALID_DATE", "endDate must be YYYY-MM-DD")
		}

		strategy, err := svc.GenerateStrategy(ctx, req)
		if err != nil {
			return mapError(err)
		}
		return ctx.Result(201, strategy)
	})

	r.GET("/strategies", func(ctx http.Context) error {
		strategies, err := svc.ListStrategies(ctx)
		if err != nil {
			return mapError(err)
		}
		if strategies == nil {
			strategies = []*model.ContentStrategy{}
		}
		return ctx.Result(200, strategies)
	})

	r.GET("/strategies/{id}", func(ctx http.Context) error {
		id, err := strconv.Atoi(ctx.Vars().Get("id"))
		if err != nil {
			return errors.BadRequest("INVALID_ID", "id must be an integer")
		}
		strategy, err := svc.GetStrategy(ctx, id)
		if err != nil {
			return mapError(err)
		}
		return ctx.Result(200, strategy)
	})

	r.GET("/trends", func(ctx http.Context) error {
		topic := ctx.Query().Get("topic")
		if topic == "" {
			return errors.BadRequest("MISSING_TOPIC", "topic query parameter is required")
		}
		return ctx.Result(200, svc.TrendsByTopic(ctx, topic))
	})

	r.POST("/competitors", func(ctx http.Context) error {
		var body competitorRequest
		if err := ctx.Bind(&body); err != nil {
			return errors.BadRequest("INVALID_BODY", err.Error())
		}
		if body.Platform == "" || body.Handle == "" {
			return errors.BadRequest("MISSING_FIELDS", "platform and handle are required")
		}

		competitor, err := svc.AddCompetitor(ctx, body.Name, body.Platform, body.Handle)
		if err != nil {
			return mapError(err)
		}
		return ctx.Result(201, competitor)
	})

	r.GET("/competitors", func(ctx http.Context) error {
		competitors, err := svc.ListCompetitors(ctx)
		if err != nil {
			return mapError(err)
		}
		if competitors == nil {
			competitors = []*model.Competitor{}
		}
		return ctx.Result(200, competitors)
	})
}

func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	d, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// mapError 把业务层错误翻译成 HTTP 状态
func mapError(err error) error {
	switch {
	case stderrors.Is(err, planner.ErrInvalidDateRange):
		return errors.BadRequest("INVALID_DATE_RANGE", err.Error())
	case stderrors.Is(err, service.ErrUnsupportedPlatform):
		return errors.BadRequest("UNSUPPORTED_PLATFORM", err.Error())
	case stderrors.Is(err, storage.ErrDuplicate):
		return errors.BadRequest("DUPLICATE_COMPETITOR", err.Error())
	case stderrors.Is(err, storage.ErrNotFound):
		return errors.NotFound("STRATEGY_NOT_FOUND", err.Error())
	case stderrors.Is(err, youtube.ErrChannelNotFound):
		return errors.NotFound("CHANNEL_NOT_FOUND", err.Error())
	case stderrors.Is(err, planner.ErrPlanGeneration):
		return errors.InternalServer("PLAN_GENERATION_FAILED", err.Error())
	default:
		return errors.InternalServer("INTERNAL", err.Error())
	}
}
