package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	Storage   StorageConfig
	Tracing   TracingConfig `mapstructure:"tracing"`
	Redis     RedisConfig
	AI        AIConfig
	Scoring   ScoringConfig   `mapstructure:"scoring"`
	Events    EventsConfig    `mapstructure:"events"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	CORS      CORSConfig      `mapstructure:"cors"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Log       LogConfig       `mapstructure:"log"`

	// 运行时标志（非配置文件，通过命令行参数设置）
	ForceMigrate bool `mapstructure:"-"` // 强制执行数据库迁移
	MigrateOnly  bool `mapstructure:"-"` // 仅迁移模式（迁移后退出）
}

// LogConfig 滚动日志文件
type LogConfig struct {
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type RateLimitConfig struct {
	MaxRequests   int `mapstructure:"max_requests"`
	WindowMinutes int `mapstructure:"window_minutes"`

	// 每个用户每分钟可向 AI 教练提问的次数
	CoachPerMinute int `mapstructure:"coach_per_minute"`
}

// AIConfig 外部 AI 服务（教练对话、音频评分、里程碑评分）
type AIConfig struct {
	ChatWebhookURL       string        `mapstructure:"chat_webhook_url"`
	AudioScoreURL        string        `mapstructure:"audio_score_url"`
	MilestoneScoreURL    string        `mapstructure:"milestone_score_url"`
	APIKey               string        `mapstructure:"api_key"`
	TimeoutSeconds       int           `mapstructure:"timeout_seconds"`
	Retry                RetryConfig   `mapstructure:"retry"`
	ReplyCacheTTLMinutes int           `mapstructure:"reply_cache_ttl_minutes"`
	AllowClientScores    bool          `mapstructure:"allow_client_scores"`
	Timeout              time.Duration `mapstructure:"-"`
}

// RetryConfig 外部调用的重试策略
type RetryConfig struct {
	MaxAttempts    int     `mapstructure:"max_attempts"`
	InitialDelayMS int     `mapstructure:"initial_delay_ms"`
	MaxDelayMS     int     `mapstructure:"max_delay_ms"`
	Multiplier     float64 `mapstructure:"multiplier"`
}

// ScoringConfig 评分与奖励参数，支持热更新
type ScoringConfig struct {
	XPClampMin             int     `mapstructure:"xp_clamp_min"`
	XPClampMax             int     `mapstructure:"xp_clamp_max"`
	MilestonePassThreshold float64 `mapstructure:"milestone_pass_threshold"`
	MaxLevel               int     `mapstructure:"max_level"`
	LeaderboardSize        int     `mapstructure:"leaderboard_size"`
	Timezone               string  `mapstructure:"timezone"`
}

type EventsConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	URL      string `mapstructure:"url"`
	Exchange string `mapstructure:"exchange"`
}

type SchedulerConfig struct {
	QuestExpiryMinutes       int `mapstructure:"quest_expiry_minutes"`
	LeaderboardRebuildMinute int `mapstructure:"leaderboard_rebuild_minutes"`
}

type ServerConfig struct {
	Port string
	Mode string
}

type DatabaseConfig struct {
	Host      string
	Port      int
	User      string
	Password  string
	DBName    string
	Charset   string
	ParseTime bool
}

type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	ExpireTime time.Duration `mapstructure:"expire_hours"`
}

type StorageConfig struct {
	Type          string `mapstructure:"type"`
	LocalPath     string `mapstructure:"local_path"`
	MinioEndpoint string `mapstructure:"minio_endpoint"`
	MinioAccessID string `mapstructure:"minio_access_key"`
	MinioSecret   string `mapstructure:"minio_secret_key"`
	MinioBucket   string `mapstructure:"minio_bucket"`
	OSSEndpoint   string `mapstructure:"oss_endpoint"`
	OSSAccessKey  string `mapstructure:"oss_access_key"`
	OSSSecretKey  string `mapstructure:"oss_secret_key"`
	OSSBucket     string `mapstructure:"oss_bucket"`
}

type TracingConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	CollectorEndpoint string `mapstructure:"collector_endpoint"`
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("jwt.expire_hours", 72)
	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.local_path", "uploads")

	v.SetDefault("ai.timeout_seconds", 30)
	v.SetDefault("ai.reply_cache_ttl_minutes", 60)
	v.SetDefault("ai.allow_client_scores", false)
	v.SetDefault("ai.retry.max_attempts", 3)
	v.SetDefault("ai.retry.initial_delay_ms", 500)
	v.SetDefault("ai.retry.max_delay_ms", 5000)
	v.SetDefault("ai.retry.multiplier", 2.0)

	v.SetDefault("scoring.xp_clamp_min", 5)
	v.SetDefault("scoring.xp_clamp_max", 10)
	v.SetDefault("scoring.milestone_pass_threshold", 0.7)
	v.SetDefault("scoring.max_level", 6)
	v.SetDefault("scoring.leaderboard_size", 50)
	v.SetDefault("scoring.timezone", "UTC")

	v.SetDefault("events.exchange", "speakopoly.events")
	v.SetDefault("scheduler.quest_expiry_minutes", 15)
	v.SetDefault("scheduler.leaderboard_rebuild_minutes", 10)
	v.SetDefault("rate_limit.max_requests", 600)
	v.SetDefault("rate_limit.window_minutes", 1)
	v.SetDefault("rate_limit.coach_per_minute", 10)
	v.SetDefault("log.file", "logs/speakopoly.log")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 30)
}

func LoadConfig(path string) (*Config, error) {
	// .env 仅用于本地开发，不存在时忽略
	_ = godotenv.Load()

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("SPEAKOPOLY")
	v.AutomaticEnv()
	setDefaults(v)

	// Database
	v.BindEnv("database.host", "DATABASE_HOST")
	v.BindEnv("database.port", "DATABASE_PORT")
	v.BindEnv("database.user", "DATABASE_USER")
	v.BindEnv("database.password", "DATABASE_PASSWORD")
	v.BindEnv("database.dbname", "DATABASE_NAME")

	// JWT
	v.BindEnv("jwt.secret", "JWT_SECRET")

	// Redis
	v.BindEnv("redis.host", "REDIS_HOST")
	v.BindEnv("redis.port", "REDIS_PORT")
	v.BindEnv("redis.password", "REDIS_PASSWORD")

	// Server
	v.BindEnv("server.mode", "SERVER_MODE")

	// AI
	v.BindEnv("ai.chat_webhook_url", "AI_CHAT_WEBHOOK_URL")
	v.BindEnv("ai.audio_score_url", "AI_AUDIO_SCORE_URL")
	v.BindEnv("ai.milestone_score_url", "AI_MILESTONE_SCORE_URL")
	v.BindEnv("ai.api_key", "AI_API_KEY")

	// Storage / OSS
	v.BindEnv("storage.type", "STORAGE_TYPE")
	v.BindEnv("storage.oss_endpoint", "OSS_ENDPOINT")
	v.BindEnv("storage.oss_access_key", "OSS_ACCESS_KEY")
	v.BindEnv("storage.oss_secret_key", "OSS_SECRET_KEY")
	v.BindEnv("storage.oss_bucket", "OSS_BUCKET")
	v.BindEnv("storage.minio_endpoint", "MINIO_ENDPOINT")
	v.BindEnv("storage.minio_access_key", "MINIO_ACCESS_KEY")
	v.BindEnv("storage.minio_secret_key", "MINIO_SECRET_KEY")
	v.BindEnv("storage.minio_bucket", "MINIO_BUCKET")

	// Tracing
	v.BindEnv("tracing.enabled", "TRACING_ENABLED")
	v.BindEnv("tracing.collector_endpoint", "TRACING_COLLECTOR_ENDPOINT")

	// Events
	v.BindEnv("events.enabled", "EVENTS_ENABLED")
	v.BindEnv("events.url", "AMQP_URL")

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	cfg.JWT.ExpireTime = cfg.JWT.ExpireTime * time.Hour
	cfg.AI.Timeout = time.Duration(cfg.AI.TimeoutSeconds) * time.Second

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Storage.Type == "local" {
		if _, err := os.Stat(cfg.Storage.LocalPath); os.IsNotExist(err) {
			os.MkdirAll(cfg.Storage.LocalPath, 0755)
		}
	}

	return &cfg, nil
}

// Validate 校验配置项之间的约束
func (c *Config) Validate() error {
	// 生产环境校验 JWT Secret 强度
	if c.Server.Mode == "release" && len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT secret is too short (%d chars), must be at least 32 characters in release mode", len(c.JWT.Secret))
	}
	if c.Scoring.XPClampMin < 0 || c.Scoring.XPClampMax < c.Scoring.XPClampMin {
		return fmt.Errorf("invalid xp clamp [%d,%d]", c.Scoring.XPClampMin, c.Scoring.XPClampMax)
	}
	if c.Scoring.MilestonePassThreshold <= 0 || c.Scoring.MilestonePassThreshold > 1 {
		return fmt.Errorf("milestone pass threshold must be in (0,1], got %v", c.Scoring.MilestonePassThreshold)
	}
	if _, err := time.LoadLocation(c.Scoring.Timezone); err != nil {
		return fmt.Errorf("invalid scoring timezone %q: %w", c.Scoring.Timezone, err)
	}
	return nil
}
