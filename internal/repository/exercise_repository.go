package repository

import (
	"speakopoly_backend/internal/model"

	"gorm.io/gorm"
)

type ExerciseRepository struct {
	DB *gorm.DB
}

func NewExerciseRepository(db *gorm.DB) *ExerciseRepository {
	return &ExerciseRepository{DB: db}
}

func (r *ExerciseRepository) WithTx(tx *gorm.DB) *ExerciseRepository {
	return &ExerciseRepository{DB: tx}
}

func (r *ExerciseRepository) CountAttempts(userID, exerciseID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&model.ExerciseAttempt{}).
		Where("user_id = ? AND exercise_id = ?", userID, exerciseID).
		Count(&count).Error
	return count, err
}

func (r *ExerciseRepository) ListAttempts(userID, exerciseID uint) ([]model.ExerciseAttempt, error) {
	var attempts []model.ExerciseAttempt
	err := r.DB.Where("user_id = ? AND exercise_id = ?", userID, exerciseID).
		Order("attempt_number ASC").
		Find(&attempts).Error
	return attempts, err
}

func (r *ExerciseRepository) RecentAttempts(userID uint, limit int) ([]model.ExerciseAttempt, error) {
	var attempts []model.ExerciseAttempt
	err := r.DB.Where("user_id = ?", userID).
		Order("created_at DESC").Order("id DESC").
		Limit(limit).
		Find(&attempts).Error
	return attempts, err
}

func (r *ExerciseRepository) CreateAttempt(attempt *model.ExerciseAttempt) error {
	return r.DB.Create(attempt).Error
}
