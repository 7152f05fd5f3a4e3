package repository

import (
	"speakopoly_backend/internal/model"

	"gorm.io/gorm"
)

// ProgressRepository 课程完成进度
type ProgressRepository struct {
	DB *gorm.DB
}

func NewProgressRepository(db *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: db}
}

func (r *ProgressRepository) WithTx(tx *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: tx}
}

func (r *ProgressRepository) IsLessonCompleted(userID, lessonID uint) (bool, error) {
	var count int64
	err := r.DB.Model(&model.LessonCompletion{}).
		Where("user_id = ? AND lesson_id = ?", userID, lessonID).
		Count(&count).Error
	return count > 0, err
}

func (r *ProgressRepository) CreateCompletion(c *model.LessonCompletion) error {
	return r.DB.Create(c).Error
}

// CompletedLessonIDs 用户已完成的课程集合
func (r *ProgressRepository) CompletedLessonIDs(userID uint) (map[uint]bool, error) {
	var ids []uint
	err := r.DB.Model(&model.LessonCompletion{}).Where("user_id = ?", userID).Pluck("lesson_id", &ids).Error
	if err != nil {
		return nil, err
	}
	out := make(map[uint]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}

// CountCompletedIn 给定课程中已完成的数量
func (r *ProgressRepository) CountCompletedIn(userID uint, lessonIDs []uint) (int64, error) {
	if len(lessonIDs) == 0 {
		return 0, nil
	}
	var count int64
	err := r.DB.Model(&model.LessonCompletion{}).
		Where("user_id = ? AND lesson_id IN ?", userID, lessonIDs).
		Count(&count).Error
	return count, err
}
