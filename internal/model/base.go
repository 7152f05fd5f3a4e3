package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// swagger:model
type BaseModel struct {
	ID        uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func GenerateUUID() string {
	return uuid.New().String()
}

// All 需要自动迁移的全部模型，顺序即建表顺序
func All() []interface{} {
	return []interface{}{
		&User{},
		&Profile{},
		&Level{},
		&Unit{},
		&Lesson{},
		&LessonCompletion{},
		&Exercise{},
		&ExerciseAttempt{},
		&MilestoneChallenge{},
		&MilestoneAttempt{},
		&District{},
		&DistrictVisit{},
		&Reward{},
		&UserReward{},
		&Quest{},
		&UserQuest{},
	}
}
