package model

import (
	"time"

	"speakopoly_backend/internal/scoring"
)

// Quest 每日/每周/特别任务
// swagger:model Quest
type Quest struct {
	BaseModel
	Name            string            `gorm:"size:200;uniqueIndex;not null" json:"name"`
	Description     string            `gorm:"type:text" json:"description"`
	QuestType       scoring.QuestType `gorm:"size:20;not null" json:"questType"`
	RequiredLessons int               `gorm:"default:0" json:"requiredLessons"`
	RequiredXP      int               `gorm:"column:required_xp;default:0" json:"requiredXp"`
	RequiredStreak  int               `gorm:"default:0" json:"requiredStreak"`
	XPReward        int               `gorm:"column:xp_reward;default:0" json:"xpReward"`
	CoinsReward     int               `gorm:"default:0" json:"coinsReward"`
	GemsReward      int               `gorm:"default:0" json:"gemsReward"`
	IsActive        bool              `gorm:"default:true" json:"isActive"`
	ExpiresAt       *time.Time        `gorm:"index" json:"expiresAt,omitempty"`
}

func (Quest) TableName() string {
	return "quests"
}

// Requirement 任务完成条件
func (q *Quest) Requirement() scoring.QuestRequirement {
	return scoring.QuestRequirement{
		Lessons: q.RequiredLessons,
		XP:      q.RequiredXP,
		Streak:  q.RequiredStreak,
	}
}

// UserQuest 用户领取的任务
type UserQuest struct {
	BaseModel
	UserID      uint       `gorm:"uniqueIndex:idx_user_quest;not null" json:"userId"`
	QuestID     uint       `gorm:"uniqueIndex:idx_user_quest;not null" json:"questId"`
	StartedAt   time.Time  `json:"startedAt"`
	IsCompleted bool       `gorm:"default:false" json:"isCompleted"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	Quest       *Quest     `gorm:"foreignKey:QuestID" json:"quest,omitempty"`
}

func (UserQuest) TableName() string {
	return "user_quests"
}
