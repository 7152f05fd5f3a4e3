package repository

import (
	"errors"

	"speakopoly_backend/internal/model"

	"gorm.io/gorm"
)

type RewardRepository struct {
	DB *gorm.DB
}

func NewRewardRepository(db *gorm.DB) *RewardRepository {
	return &RewardRepository{DB: db}
}

func (r *RewardRepository) WithTx(tx *gorm.DB) *RewardRepository {
	return &RewardRepository{DB: tx}
}

// FirstOrCreate 按名称获取奖励定义，不存在则创建
func (r *RewardRepository) FirstOrCreate(reward *model.Reward) error {
	return r.DB.Where(model.Reward{Name: reward.Name}).FirstOrCreate(reward).Error
}

// Grant 发放奖励，已拥有时返回 false
func (r *RewardRepository) Grant(userID, rewardID uint, quantity int) (bool, error) {
	var existing model.UserReward
	err := r.DB.Where("user_id = ? AND reward_id = ?", userID, rewardID).First(&existing).Error
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}
	ur := &model.UserReward{UserID: userID, RewardID: rewardID, Quantity: quantity}
	if err := r.DB.Create(ur).Error; err != nil {
		return false, err
	}
	return true, nil
}

func (r *RewardRepository) ListByUser(userID uint) ([]model.UserReward, error) {
	var list []model.UserReward
	err := r.DB.Preload("Reward").Where("user_id = ?", userID).Order("created_at DESC").Find(&list).Error
	return list, err
}
