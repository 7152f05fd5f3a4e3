package repository

import (
	"speakopoly_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ContentRepository 关卡、单元、课程与练习
type ContentRepository struct {
	DB *gorm.DB
}

func NewContentRepository(db *gorm.DB) *ContentRepository {
	return &ContentRepository{DB: db}
}

func (r *ContentRepository) WithTx(tx *gorm.DB) *ContentRepository {
	return &ContentRepository{DB: tx}
}

func (r *ContentRepository) ListLevels() ([]model.Level, error) {
	var levels []model.Level
	err := r.DB.Order("number ASC").Find(&levels).Error
	return levels, err
}

// FindLevelWithLessons 预加载单元与课程，均按顺序排列
func (r *ContentRepository) FindLevelWithLessons(id uint) (*model.Level, error) {
	var level model.Level
	err := r.DB.
		Preload("Units", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order ASC") }).
		Preload("Units.Lessons", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order ASC") }).
		First(&level, id).Error
	if err != nil {
		return nil, err
	}
	return &level, nil
}

func (r *ContentRepository) FindLevelByID(id uint) (*model.Level, error) {
	var level model.Level
	if err := r.DB.First(&level, id).Error; err != nil {
		return nil, err
	}
	return &level, nil
}

func (r *ContentRepository) FindLevelByNumber(number int) (*model.Level, error) {
	var level model.Level
	if err := r.DB.Where("number = ?", number).First(&level).Error; err != nil {
		return nil, err
	}
	return &level, nil
}

func (r *ContentRepository) FindLessonWithExercises(id uint) (*model.Lesson, error) {
	var lesson model.Lesson
	err := r.DB.
		Preload("Exercises", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order ASC") }).
		First(&lesson, id).Error
	if err != nil {
		return nil, err
	}
	return &lesson, nil
}

// FindLevelOfLesson 课程所属关卡
func (r *ContentRepository) FindLevelOfLesson(lessonID uint) (*model.Level, error) {
	var level model.Level
	err := r.DB.
		Joins("JOIN units ON units.level_id = levels.id AND units.deleted_at IS NULL").
		Joins("JOIN lessons ON lessons.unit_id = units.id AND lessons.deleted_at IS NULL").
		Where("lessons.id = ?", lessonID).
		First(&level).Error
	if err != nil {
		return nil, err
	}
	return &level, nil
}

// LessonIDsInLevel 关卡下全部课程 ID
func (r *ContentRepository) LessonIDsInLevel(levelID uint) ([]uint, error) {
	var ids []uint
	err := r.DB.Model(&model.Lesson{}).
		Joins("JOIN units ON units.id = lessons.unit_id AND units.deleted_at IS NULL").
		Where("units.level_id = ?", levelID).
		Pluck("lessons.id", &ids).Error
	return ids, err
}

func (r *ContentRepository) FindExerciseByID(id uint) (*model.Exercise, error) {
	var ex model.Exercise
	if err := r.DB.First(&ex, id).Error; err != nil {
		return nil, err
	}
	return &ex, nil
}

// FindLevelOfExercise 练习所属关卡
func (r *ContentRepository) FindLevelOfExercise(exerciseID uint) (*model.Level, error) {
	var ex model.Exercise
	if err := r.DB.Select("id", "lesson_id").First(&ex, exerciseID).Error; err != nil {
		return nil, err
	}
	return r.FindLevelOfLesson(ex.LessonID)
}

// 以下为内容导入使用的 upsert，按自然键冲突时更新

func (r *ContentRepository) UpsertLevel(level *model.Level) error {
	return r.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "number"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "description", "duration_minutes", "xp_required", "milestone_duration_seconds", "coins_reward", "gems_reward", "updated_at"}),
	}).Create(level).Error
}

func (r *ContentRepository) UpsertUnit(unit *model.Unit) error {
	return r.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "level_id"}, {Name: "sort_order"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "description", "duration_minutes", "updated_at"}),
	}).Create(unit).Error
}

func (r *ContentRepository) UpsertLesson(lesson *model.Lesson) error {
	return r.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "unit_id"}, {Name: "sort_order"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "description", "duration_minutes", "xp_reward", "tip_sheet", "learning_objectives", "updated_at"}),
	}).Create(lesson).Error
}

func (r *ContentRepository) UpsertExercise(ex *model.Exercise) error {
	return r.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "lesson_id"}, {Name: "sort_order"}},
		DoUpdates: clause.AssignmentColumns([]string{"exercise_type", "prompt", "options", "correct_answers", "reference_text",
			"audio_url", "xp_reward", "max_attempts", "feedback_correct", "feedback_incorrect", "updated_at"}),
	}).Create(ex).Error
}

func (r *ContentRepository) FindUnit(levelID uint, order int) (*model.Unit, error) {
	var unit model.Unit
	if err := r.DB.Where("level_id = ? AND sort_order = ?", levelID, order).First(&unit).Error; err != nil {
		return nil, err
	}
	return &unit, nil
}

func (r *ContentRepository) FindLesson(unitID uint, order int) (*model.Lesson, error) {
	var lesson model.Lesson
	if err := r.DB.Where("unit_id = ? AND sort_order = ?", unitID, order).First(&lesson).Error; err != nil {
		return nil, err
	}
	return &lesson, nil
}
