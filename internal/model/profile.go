package model

import (
	"time"

	"speakopoly_backend/internal/scoring"
)

// Profile 学习者的游戏化进度
// swagger:model Profile
type Profile struct {
	BaseModel
	UserID              uint           `gorm:"uniqueIndex;not null" json:"userId"`
	TotalXP             int            `gorm:"default:0" json:"totalXp"`
	Coins               int            `gorm:"default:0" json:"coins"`
	Gems                int            `gorm:"default:0" json:"gems"`
	Tickets             int            `gorm:"default:3" json:"tickets"`
	CurrentLevel        int            `gorm:"default:1" json:"currentLevel"`
	CurrentStreak       int            `gorm:"default:0" json:"currentStreak"`
	LongestStreak       int            `gorm:"default:0" json:"longestStreak"`
	LastActivity        *time.Time     `json:"lastActivity,omitempty"`
	DailyGoalMinutes    int            `gorm:"default:10" json:"dailyGoalMinutes"`
	Persona             string         `gorm:"size:50" json:"persona"`
	League              scoring.League `gorm:"size:20;default:'bronze'" json:"league"`
	ABVariant           string         `gorm:"size:10" json:"abVariant"`
	OnboardingCompleted bool           `gorm:"default:false" json:"onboardingCompleted"`
}

func (Profile) TableName() string {
	return "profiles"
}

// Streak 当前连续学习状态
func (p *Profile) Streak() scoring.StreakState {
	return scoring.StreakState{
		Current:      p.CurrentStreak,
		Longest:      p.LongestStreak,
		LastActivity: p.LastActivity,
	}
}

// SetStreak 写回新的连续学习状态
func (p *Profile) SetStreak(s scoring.StreakState) {
	p.CurrentStreak = s.Current
	p.LongestStreak = s.Longest
	p.LastActivity = s.LastActivity
}

// Credit 增加经验与金币，并同步段位
func (p *Profile) Credit(xp, coins int) {
	p.TotalXP += xp
	p.Coins += coins
	p.League = scoring.LeagueFor(p.TotalXP)
}
