package repository

import (
	"speakopoly_backend/internal/model"

	"gorm.io/gorm"
)

type MilestoneRepository struct {
	DB *gorm.DB
}

func NewMilestoneRepository(db *gorm.DB) *MilestoneRepository {
	return &MilestoneRepository{DB: db}
}

func (r *MilestoneRepository) WithTx(tx *gorm.DB) *MilestoneRepository {
	return &MilestoneRepository{DB: tx}
}

func (r *MilestoneRepository) FindByID(id uint) (*model.MilestoneChallenge, error) {
	var m model.MilestoneChallenge
	if err := r.DB.First(&m, id).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *MilestoneRepository) FindByLevel(levelID uint) (*model.MilestoneChallenge, error) {
	var m model.MilestoneChallenge
	if err := r.DB.Where("level_id = ?", levelID).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *MilestoneRepository) CreateAttempt(a *model.MilestoneAttempt) error {
	return r.DB.Create(a).Error
}

func (r *MilestoneRepository) ListAttempts(userID, milestoneID uint) ([]model.MilestoneAttempt, error) {
	var attempts []model.MilestoneAttempt
	err := r.DB.Where("user_id = ? AND milestone_id = ?", userID, milestoneID).
		Order("created_at DESC").
		Find(&attempts).Error
	return attempts, err
}

// HasPassed 是否已经通过过该里程碑
func (r *MilestoneRepository) HasPassed(userID, milestoneID uint) (bool, error) {
	var count int64
	err := r.DB.Model(&model.MilestoneAttempt{}).
		Where("user_id = ? AND milestone_id = ? AND is_passed = ?", userID, milestoneID, true).
		Count(&count).Error
	return count > 0, err
}
