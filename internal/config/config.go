package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Config 项目配置结构体
type Config struct {
	LLM         LLMConfig         `yaml:"llm"`
	Providers   ProvidersConfig   `yaml:"providers"`
	Cache       CacheConfig       `yaml:"cache"`
	Concurrency ConcurrencyConfig `yaml:"concurrency"`
	DB          DBConfig          `yaml:"db"`
	Server      ServerConfig      `yaml:"server"`
	Log         LogConfig         `yaml:"log"`
}

// LLMConfig LLM 相关配置
type LLMConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
}

// ProvidersConfig 各趋势上游平台配置
type ProvidersConfig struct {
	YouTube YouTubeConfig `yaml:"youtube"`
	Reddit  RedditConfig  `yaml:"reddit"`
	Twitter TwitterConfig `yaml:"twitter"`
}

// YouTubeConfig YouTube Data API 配置
type YouTubeConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"` // 留空使用官方地址
}

// RedditConfig Reddit RSS 搜索配置
type RedditConfig struct {
	BaseURL string `yaml:"base_url"`
}

// TwitterConfig Twitter 搜索配置
type TwitterConfig struct {
	BearerToken string `yaml:"bearer_token"`
	BaseURL     string `yaml:"base_url"`
}

// CacheConfig 趋势缓存配置
type CacheConfig struct {
	TTLSeconds int `yaml:"ttl_seconds"`
}

// ConcurrencyConfig 模型调用限流配置
type ConcurrencyConfig struct {
	QPS int `yaml:"qps"`
	RPM int `yaml:"rpm"`
}

// DBConfig 数据库相关配置
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
}

// ServerConfig HTTP 服务配置
type ServerConfig struct {
	Addr    string `yaml:"addr"`
	Timeout string `yaml:"timeout"`
}

// LogConfig 日志相关配置
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// LoadConfig 从指定路径加载配置
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
