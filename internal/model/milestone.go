package model

// MilestoneChallenge 每个关卡末尾的录音挑战
// swagger:model MilestoneChallenge
type MilestoneChallenge struct {
	BaseModel
	LevelID         uint     `gorm:"uniqueIndex;not null" json:"levelId"`
	Name            string   `gorm:"size:200;not null" json:"name"`
	Description     string   `gorm:"type:text" json:"description"`
	DurationSeconds int      `gorm:"default:60" json:"durationSeconds"`
	Rubric          ScoreMap `gorm:"type:json" json:"rubric"`
	PassThreshold   float64  `gorm:"default:0.7" json:"passThreshold"`
	XPReward        int      `gorm:"default:50" json:"xpReward"`
	CoinsReward     int      `gorm:"default:20" json:"coinsReward"`
}

func (MilestoneChallenge) TableName() string {
	return "milestone_challenges"
}

// MilestoneAttempt 一次里程碑提交
type MilestoneAttempt struct {
	BaseModel
	UserID          uint     `gorm:"index;not null" json:"userId"`
	MilestoneID     uint     `gorm:"index;not null" json:"milestoneId"`
	AudioURL        string   `gorm:"size:500" json:"audioUrl,omitempty"`
	DurationSeconds float64  `json:"durationSeconds"`
	IsPassed        bool     `json:"isPassed"`
	OverallScore    float64  `json:"overallScore"`
	RubricScores    ScoreMap `gorm:"type:json" json:"rubricScores"`
	Feedback        string   `gorm:"type:text" json:"feedback,omitempty"`
	XPEarned        int      `json:"xpEarned"`
	CoinsEarned     int      `json:"coinsEarned"`
}

func (MilestoneAttempt) TableName() string {
	return "milestone_attempts"
}
