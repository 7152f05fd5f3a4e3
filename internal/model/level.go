package model

// Level 课程关卡（共六关）
// swagger:model Level
type Level struct {
	BaseModel
	Number                   int    `gorm:"uniqueIndex;not null" json:"number"`
	Name                     string `gorm:"size:200;not null" json:"name"`
	Description              string `gorm:"type:text" json:"description"`
	DurationMinutes          int    `gorm:"default:0" json:"durationMinutes"`
	XPRequired               int    `gorm:"default:0" json:"xpRequired"`
	MilestoneDurationSeconds int    `gorm:"default:60" json:"milestoneDurationSeconds"`
	CoinsReward              int    `gorm:"default:0" json:"coinsReward"`
	GemsReward               int    `gorm:"default:0" json:"gemsReward"`
	Units                    []Unit `gorm:"foreignKey:LevelID" json:"units,omitempty"`
	Unlocked                 bool   `gorm:"-" json:"unlocked"`
}

func (Level) TableName() string {
	return "levels"
}

// Unit 关卡下的单元
type Unit struct {
	BaseModel
	LevelID         uint     `gorm:"uniqueIndex:idx_level_unit_order;not null" json:"levelId"`
	Order           int      `gorm:"column:sort_order;uniqueIndex:idx_level_unit_order" json:"order"`
	Name            string   `gorm:"size:200;not null" json:"name"`
	Description     string   `gorm:"type:text" json:"description"`
	DurationMinutes int      `gorm:"default:0" json:"durationMinutes"`
	Lessons         []Lesson `gorm:"foreignKey:UnitID" json:"lessons,omitempty"`
}

func (Unit) TableName() string {
	return "units"
}

// Lesson 单元下的课程
type Lesson struct {
	BaseModel
	UnitID             uint       `gorm:"uniqueIndex:idx_unit_lesson_order;not null" json:"unitId"`
	Order              int        `gorm:"column:sort_order;uniqueIndex:idx_unit_lesson_order" json:"order"`
	Name               string     `gorm:"size:200;not null" json:"name"`
	Description        string     `gorm:"type:text" json:"description"`
	DurationMinutes    int        `gorm:"default:5" json:"durationMinutes"`
	XPReward           int        `gorm:"default:10" json:"xpReward"`
	TipSheet           string     `gorm:"type:text" json:"tipSheet"`
	LearningObjectives string     `gorm:"type:text" json:"learningObjectives"`
	Exercises          []Exercise `gorm:"foreignKey:LessonID" json:"exercises,omitempty"`
	Completed          bool       `gorm:"-" json:"completed"`
}

func (Lesson) TableName() string {
	return "lessons"
}

// LessonCompletion 用户完成课程的记录，每节课只记一次
type LessonCompletion struct {
	BaseModel
	UserID   uint `gorm:"uniqueIndex:idx_user_lesson;not null" json:"userId"`
	LessonID uint `gorm:"uniqueIndex:idx_user_lesson;not null" json:"lessonId"`
	XPEarned int  `json:"xpEarned"`
}

func (LessonCompletion) TableName() string {
	return "lesson_completions"
}
