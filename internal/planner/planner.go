package planner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"golang.org/x/time/rate"

	dm "github.com/iWorld-y/trend_compass/internal/model"
)

var (
	// ErrPlanGeneration 模型调用失败或返回内容无法解析为合法计划。
	// 调用方据此决定是否重试；本层不重试也不返回残缺计划。
	ErrPlanGeneration = errors.New("planner: failed to generate content strategy")

	// ErrInvalidDateRange 结束日期早于开始日期
	ErrInvalidDateRange = errors.New("planner: end date is before start date")
)

const (
	// defaultPlanDays 未指定日期区间时的计划天数
	defaultPlanDays = 30
	// maxPlanDays 计划天数上限，控制模型调用成本
	maxPlanDays = 90
)

// Planner 组装提示词并调用生成模型产出内容日历
type Planner struct {
	cm      model.ChatModel
	limiter *rate.Limiter
}

// New 创建 Planner，limiter 为全部模型调用共享的限流器
func New(cm model.ChatModel, limiter *rate.Limiter) *Planner {
	return &Planner{cm: cm, limiter: limiter}
}

// ResolveDuration 计算计划天数。两端日期都给定时取闭区间天数，
// 超过上限封顶并置 capped；结束早于开始直接拒绝。
// 任一日期缺失时退回默认 30 天。
func ResolveDuration(start, end *time.Time) (days int, capped bool, err error) {
	if start == nil || end == nil {
		return defaultPlanDays, false, nil
	}
	if end.Before(*start) {
		return 0, false, ErrInvalidDateRange
	}

	days = int(math.Ceil(end.Sub(*start).Hours()/24)) + 1
	if days > maxPlanDays {
		return maxPlanDays, true, nil
	}
	return days, false, nil
}

// Generate 生成一份内容策略计划。每次调用都重新生成，不缓存结果。
func (p *Planner) Generate(ctx context.Context, req dm.PlanRequest, keywords []string) (*dm.GeneratedPlan, error) {
	days, capped, err := ResolveDuration(req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}

	prompt := buildPrompt(req, keywords, days, capped)

	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	messages := []*schema.Message{
		{Role: schema.System, Content: "You are a JSON generator. Output only a JSON string."},
		{Role: schema.User, Content: prompt},
	}

	resp, err := p.cm.Generate(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPlanGeneration, err)
	}

	var plan dm.GeneratedPlan
	if err := json.Unmarshal([]byte(stripFences(resp.Content)), &plan); err != nil {
		return nil, fmt.Errorf("%w: json unmarshal: %v", ErrPlanGeneration, err)
	}
	if err := validatePlan(&plan); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPlanGeneration, err)
	}

	return &plan, nil
}

// buildPrompt 组装提示词：天数指令、用户需求、趋势关键词（可选）与 JSON 结构约束
func buildPrompt(req dm.PlanRequest, keywords []string, days int, capped bool) string {
	durationSection := fmt.Sprintf("Generate a complete %d-day content strategy plan.", defaultPlanDays)
	if req.StartDate != nil && req.EndDate != nil {
		if capped {
			durationSection = fmt.Sprintf("Generate a %d-day content strategy plan. The user requested a longer period, but we are capping it at %d days.", maxPlanDays, maxPlanDays)
		} else {
			durationSection = fmt.Sprintf("Generate a content strategy plan for the period from %s to %s. The plan must cover all %d days.",
				req.StartDate.Format(time.DateOnly), req.EndDate.Format(time.DateOnly), days)
		}
	}

	trendsSection := ""
	if len(keywords) > 0 {
		trendsSection = fmt.Sprintf(`
In addition, to make the strategy highly relevant, consider incorporating some of these currently trending topics and titles related to "%s":
- %s
It is not necessary to use all of them, but the plan should reflect these current interests where appropriate.
`, req.Topic, strings.Join(keywords, "\n- "))
	}

	return fmt.Sprintf(`You are an expert content strategist AI. Your task is to generate a content strategy based on the user's requirements.

%s

User Requirements:
- Target Audience: %s
- Primary Topic/Industry: %s
- Core Goals: %s
%s
The output MUST be a valid JSON object with the exact structure I provide below.

The JSON structure:
{
  "blogTitle": "A catchy, SEO-friendly blog title related to the topic.",
  "suggestedFormats": ["An array of 2-3 recommended content formats like 'IG Reel' or 'Blog Post'."],
  "postFrequency": "A recommended weekly post frequency, like '3 posts/week'.",
  "calendar": [
    {
      "day": 1,
      "title": "A specific content title for Day 1.",
      "format": "The format for Day 1's content (must be one of the suggestedFormats).",
      "platform": "The best platform for this post (e.g., 'Instagram', 'YouTube', 'Blog').",
      "postTime": "The optimal post time (e.g., '9-11 AM EST')."
    }
  ]
}

Instructions for the calendar:
- Create a plan for the full duration requested (%d days).
- Ensure the 'day' property in the calendar array goes from 1 to %d.
- Vary the content titles and formats to keep the audience engaged.
- Ensure the content ideas align with the target audience, goals, and provided trends.`,
		durationSection, req.TargetAudience, req.Topic, req.Goals, trendsSection, days, days)
}

// validatePlan 做结构级校验。日历逐日的连续性由提示词约束，
// 这里只拒绝明显残缺的结果。
func validatePlan(plan *dm.GeneratedPlan) error {
	if plan.BlogTitle == "" {
		return errors.New("missing blogTitle")
	}
	if len(plan.SuggestedFormats) == 0 {
		return errors.New("missing suggestedFormats")
	}
	if len(plan.Calendar) == 0 {
		return errors.New("empty calendar")
	}
	return nil
}

// stripFences 去掉模型偶尔附带的 markdown 代码块标记
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
