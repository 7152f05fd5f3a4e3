package model

import "speakopoly_backend/internal/scoring"

// Exercise 课程中的练习题
// swagger:model Exercise
type Exercise struct {
	BaseModel
	LessonID          uint         `gorm:"uniqueIndex:idx_lesson_exercise_order;not null" json:"lessonId"`
	Order             int          `gorm:"column:sort_order;uniqueIndex:idx_lesson_exercise_order" json:"order"`
	Kind              scoring.Kind `gorm:"column:exercise_type;size:20;not null" json:"type"`
	Prompt            string       `gorm:"type:text;not null" json:"prompt"`
	Options           StringList   `gorm:"type:json" json:"options"`
	CorrectAnswers    StringList   `gorm:"type:json" json:"-"`
	ReferenceText     string       `gorm:"type:text" json:"-"`
	AudioURL          string       `gorm:"size:500" json:"audioUrl,omitempty"`
	XPReward          int          `gorm:"default:5" json:"xpReward"`
	MaxAttempts       int          `gorm:"default:3" json:"maxAttempts"`
	FeedbackCorrect   string       `gorm:"type:text" json:"-"`
	FeedbackIncorrect string       `gorm:"type:text" json:"-"`
}

func (Exercise) TableName() string {
	return "exercises"
}

// AnswerKey 评分用的标准答案；改写题优先使用参考文本
func (e *Exercise) AnswerKey() []string {
	if e.Kind == scoring.KindRewrite && e.ReferenceText != "" {
		return []string{e.ReferenceText}
	}
	return e.CorrectAnswers
}

// Feedback 根据对错返回反馈文案
func (e *Exercise) Feedback(correct bool) string {
	if correct {
		return e.FeedbackCorrect
	}
	return e.FeedbackIncorrect
}

// ExerciseAttempt 一次作答记录
type ExerciseAttempt struct {
	BaseModel
	UserID           uint       `gorm:"uniqueIndex:idx_user_exercise_attempt;not null" json:"userId"`
	ExerciseID       uint       `gorm:"uniqueIndex:idx_user_exercise_attempt;not null" json:"exerciseId"`
	AttemptNumber    int        `gorm:"uniqueIndex:idx_user_exercise_attempt" json:"attemptNumber"`
	Response         StringList `gorm:"type:json" json:"response"`
	AudioURL         string     `gorm:"size:500" json:"audioUrl,omitempty"`
	Score            float64    `json:"score"`
	IsCorrect        bool       `json:"isCorrect"`
	XPEarned         int        `json:"xpEarned"`
	CoinsEarned      int        `json:"coinsEarned"`
	TimeSpentSeconds int        `json:"timeSpentSeconds"`
}

func (ExerciseAttempt) TableName() string {
	return "exercise_attempts"
}
