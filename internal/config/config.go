package config

import (
	"errors"
	"time"
)

// Config 应用配置根结构
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	AI       AIConfig       `mapstructure:"ai"`
	Log      LogConfig      `mapstructure:"log"`
	Mongo    MongoConfig    `mapstructure:"mongo"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Video    VideoConfig    `mapstructure:"video"`
	Image    ImageConfig    `mapstructure:"image"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Storage  StorageConfig  `mapstructure:"storage"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// AIConfig AI 服务配置（提示词增强用的大模型）
type AIConfig struct {
	Provider string          `mapstructure:"provider"`
	APIKey   string          `mapstructure:"api_key"`
	Model    string          `mapstructure:"model"`
	BaseURL  string          `mapstructure:"base_url"`
	Options  AIOptionsConfig `mapstructure:"options"`
}

// AIOptionsConfig AI 模型参数
type AIOptionsConfig struct {
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	TopP        float64 `mapstructure:"top_p"`
}

// LogConfig 日志配置 (Zerolog)
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	FilePath   string `mapstructure:"file_path"`
	TimeFormat string `mapstructure:"time_format"`
}

// MongoConfig MongoDB 配置
type MongoConfig struct {
	URI         string `mapstructure:"uri"`
	Database    string `mapstructure:"database"`
	MaxPoolSize uint64 `mapstructure:"max_pool_size"`
	MinPoolSize uint64 `mapstructure:"min_pool_size"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// VideoConfig 视频生成提供者配置
type VideoConfig struct {
	APIKey  string `mapstructure:"api_key"`  // API Key
	BaseURL string `mapstructure:"base_url"` // API 基础 URL
	Model   string `mapstructure:"model"`    // 视频生成模型名称
	Ratio   string `mapstructure:"ratio"`    // 视频比例，如 "16:9" 或 "adaptive"
}

// ImageConfig 首帧图片生成提供者配置
type ImageConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

// PipelineConfig 生成流水线参数
type PipelineConfig struct {
	BaseUnitSeconds     int           `mapstructure:"base_unit_seconds"`     // 单次生成的最大时长（秒）
	PollInterval        time.Duration `mapstructure:"poll_interval"`         // 轮询间隔
	MaxPollAttempts     int           `mapstructure:"max_poll_attempts"`     // 单任务最大轮询次数
	RejectGracePolls    int           `mapstructure:"reject_grace_polls"`    // rejected 状态的宽限轮询次数
	MissingURLRetries   int           `mapstructure:"missing_url_retries"`   // 成功但缺少URL时的额外轮询次数
	MaxConcurrentScenes int           `mapstructure:"max_concurrent_scenes"` // 场景并发上限
	Transition          string        `mapstructure:"transition"`            // 转场类型（xfade transition 名称）
	TransitionDuration  float64       `mapstructure:"transition_duration"`   // 转场时长（秒）
	FirstFrameSize      string        `mapstructure:"first_frame_size"`      // 首帧图片尺寸
	WorkDir             string        `mapstructure:"work_dir"`              // 拼接工作目录（空则使用系统临时目录）
}

// StorageConfig 存储配置
type StorageConfig struct {
	Type  string       `mapstructure:"type"` // local, oss, s3, minio
	Local *LocalConfig `mapstructure:"local,omitempty"`
	OSS   *OSSConfig   `mapstructure:"oss,omitempty"`
}

// LocalConfig 本地文件系统配置
type LocalConfig struct {
	BasePath      string `mapstructure:"base_path"`      // 基础路径
	BaseURL       string `mapstructure:"base_url"`       // 基础URL（用于生成访问URL）
	PresignExpiry int    `mapstructure:"presign_expiry"` // 预签名URL过期时间（秒）
}

// OSSConfig 阿里云OSS配置
type OSSConfig struct {
	Endpoint        string `mapstructure:"endpoint"`          // OSS端点
	Bucket          string `mapstructure:"bucket"`            // Bucket名称
	AccessKeyID     string `mapstructure:"access_key_id"`     // AccessKey ID
	AccessKeySecret string `mapstructure:"access_key_secret"` // AccessKey Secret
	PresignExpiry   int    `mapstructure:"presign_expiry"`    // 预签名URL过期时间（秒）
}

// Validate 验证配置有效性
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.New("invalid server port")
	}

	validModes := map[string]bool{"debug": true, "release": true, "test": true}
	if !validModes[c.Server.Mode] {
		return errors.New("invalid server mode, must be debug/release/test")
	}

	if c.Pipeline.BaseUnitSeconds <= 0 {
		return errors.New("pipeline.base_unit_seconds must be positive")
	}
	if c.Pipeline.TransitionDuration < 0 {
		return errors.New("pipeline.transition_duration must not be negative")
	}

	return nil
}
