package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"golang.org/x/time/rate"

	"github.com/iWorld-y/trend_compass/internal/logger"
	dm "github.com/iWorld-y/trend_compass/internal/model"
)

const analysisPrompt = `You are a content analyst. Based on the following list of recent post titles from a competitor, identify their main content themes and summarize their strategy.

Titles:
- %s

The output MUST be a valid JSON object with this exact structure:
{
  "themes": ["An array of 3-5 short theme labels."],
  "summary": "A 2-3 sentence summary of the competitor's content strategy."
}`

// Analyzer 对竞品近期标题做主题归纳。
// 与计划生成不同，这里任何失败都软降级为占位结果，不向上传播错误。
type Analyzer struct {
	cm      model.ChatModel
	limiter *rate.Limiter
}

// New 创建 Analyzer，limiter 为全部模型调用共享的限流器
func New(cm model.ChatModel, limiter *rate.Limiter) *Analyzer {
	return &Analyzer{cm: cm, limiter: limiter}
}

// Analyze 归纳标题列表的主题。标题为空直接返回占位结果，不调用模型。
func (a *Analyzer) Analyze(ctx context.Context, titles []string) *dm.TopicAnalysis {
	if len(titles) == 0 {
		return &dm.TopicAnalysis{Themes: []string{}, Summary: "Not enough data to analyze."}
	}

	if a.limiter != nil {
		if err := a.limiter.Wait(ctx); err != nil {
			logger.Log.Warnf("竞品分析等待限流器失败: %v", err)
			return failedAnalysis()
		}
	}

	messages := []*schema.Message{
		{Role: schema.System, Content: "You are a JSON generator. Output only a JSON string."},
		{Role: schema.User, Content: fmt.Sprintf(analysisPrompt, strings.Join(titles, "\n- "))},
	}

	resp, err := a.cm.Generate(ctx, messages)
	if err != nil {
		logger.Log.Warnf("竞品分析模型调用失败: %v", err)
		return failedAnalysis()
	}

	var result dm.TopicAnalysis
	if err := json.Unmarshal([]byte(stripFences(resp.Content)), &result); err != nil {
		logger.Log.Warnf("竞品分析结果解析失败: %v", err)
		return failedAnalysis()
	}
	if result.Themes == nil {
		result.Themes = []string{}
	}
	return &result
}

func failedAnalysis() *dm.TopicAnalysis {
	return &dm.TopicAnalysis{Themes: []string{}, Summary: "AI analysis failed."}
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
