package service

import (
	"sync/atomic"
	"time"

	"speakopoly_backend/internal/config"
	"speakopoly_backend/internal/scoring"
	"speakopoly_backend/pkg/logger"

	"go.uber.org/zap"
)

// ScoringSettings 运行时评分参数
type ScoringSettings struct {
	Clamp           scoring.XPClamp
	PassThreshold   float64
	MaxLevel        int
	LeaderboardSize int
	Location        *time.Location
}

// Now 评分时区下的当前时间，连续学习按该时区的自然日计算
func (s ScoringSettings) Now() time.Time {
	return time.Now().In(s.Location)
}

func settingsFrom(cfg config.ScoringConfig) ScoringSettings {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil || cfg.Timezone == "" {
		loc = time.UTC
	}
	st := ScoringSettings{
		Clamp:           scoring.XPClamp{Min: cfg.XPClampMin, Max: cfg.XPClampMax},
		PassThreshold:   cfg.MilestonePassThreshold,
		MaxLevel:        cfg.MaxLevel,
		LeaderboardSize: cfg.LeaderboardSize,
		Location:        loc,
	}
	if st.Clamp.Max == 0 && st.Clamp.Min == 0 {
		st.Clamp = scoring.DefaultXPClamp
	}
	if st.PassThreshold <= 0 {
		st.PassThreshold = scoring.DefaultPassThreshold
	}
	if st.MaxLevel <= 0 {
		st.MaxLevel = scoring.MaxLevel
	}
	if st.LeaderboardSize <= 0 {
		st.LeaderboardSize = 50
	}
	return st
}

// Settings 可热更新的评分参数，由配置监听回调替换
type Settings struct {
	current atomic.Pointer[ScoringSettings]
}

func NewSettings(cfg config.ScoringConfig) *Settings {
	s := &Settings{}
	s.Update(cfg)
	return s
}

func (s *Settings) Current() ScoringSettings {
	return *s.current.Load()
}

func (s *Settings) Update(cfg config.ScoringConfig) {
	st := settingsFrom(cfg)
	s.current.Store(&st)
	logger.Log.Info("Scoring settings applied",
		zap.Int("xp_clamp_min", st.Clamp.Min),
		zap.Int("xp_clamp_max", st.Clamp.Max),
		zap.Float64("pass_threshold", st.PassThreshold),
		zap.Int("max_level", st.MaxLevel),
		zap.String("timezone", st.Location.String()))
}
