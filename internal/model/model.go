package model

import "time"

// Platform 趋势信号的来源平台
type Platform string

const (
	PlatformYouTube Platform = "YouTube"
	PlatformReddit  Platform = "Reddit"
	PlatformTwitter Platform = "Twitter"
	PlatformAI      Platform = "Google Trends (AI)"
)

// TrendItem 单条归一化后的趋势信号，仅在一次聚合调用内存活
type TrendItem struct {
	Keyword  string   `json:"keyword"`
	Platform Platform `json:"platform"`
	Industry string   `json:"industry"`
}

// CalendarEntry 内容日历中的一天
type CalendarEntry struct {
	Day      int    `json:"day"`
	Title    string `json:"title"`
	Format   string `json:"format"` // 必须取自 SuggestedFormats
	Platform string `json:"platform"`
	PostTime string `json:"postTime"`
}

// GeneratedPlan 模型生成的内容策略计划
type GeneratedPlan struct {
	BlogTitle        string          `json:"blogTitle"`
	SuggestedFormats []string        `json:"suggestedFormats"`
	PostFrequency    string          `json:"postFrequency"`
	Calendar         []CalendarEntry `json:"calendar"`
}

// PlanRequest 一次计划生成请求的输入
type PlanRequest struct {
	TargetAudience string
	Topic          string
	Goals          string
	StartDate      *time.Time
	EndDate        *time.Time
}

// RecentPost 竞品频道的单条近期内容
type RecentPost struct {
	PostID      string    `json:"postId"`
	Title       string    `json:"title"`
	Link        string    `json:"link"`
	PublishedAt time.Time `json:"publishedAt"`
	Format      string    `json:"format"`
}

// ChannelSnapshot 频道按 handle 解析后的快照
type ChannelSnapshot struct {
	ChannelID    string
	ChannelTitle string
	RecentPosts  []RecentPost
}

// TopicAnalysis 竞品内容的主题分析结果
type TopicAnalysis struct {
	Themes  []string `json:"themes"`
	Summary string   `json:"summary"`
}

// ContentStrategy 持久化的内容策略记录
type ContentStrategy struct {
	ID             int            `json:"id"`
	TargetAudience string         `json:"targetAudience"`
	Topic          string         `json:"topic"`
	Goals          string         `json:"goals"`
	GeneratedPlan  *GeneratedPlan `json:"generatedPlan"`
	CreatedAt      time.Time      `json:"createdAt"`
}

// Competitor 被追踪的竞品频道
type Competitor struct {
	ID          int            `json:"id"`
	Name        string         `json:"name"`
	Platform    string         `json:"platform"`
	ChannelID   string         `json:"channelId"`
	RecentPosts []RecentPost   `json:"recentPosts"`
	Analysis    *TopicAnalysis `json:"topicAnalysis"`
	LastFetched time.Time      `json:"lastFetched"`
	CreatedAt   time.Time      `json:"createdAt"`
}
