package service

import (
	"fmt"

	"speakopoly_backend/internal/model"
	"speakopoly_backend/internal/repository"
	"speakopoly_backend/internal/scoring"

	"gorm.io/gorm"
)

type RewardService struct {
	RewardRepo *repository.RewardRepository
}

func NewRewardService(rewardRepo *repository.RewardRepository) *RewardService {
	return &RewardService{RewardRepo: rewardRepo}
}

func (s *RewardService) ListForUser(userID uint) ([]model.UserReward, error) {
	return s.RewardRepo.ListByUser(userID)
}

// LevelUnlock 一次升级的结果
type LevelUnlock struct {
	Unlocked    bool     `json:"unlocked"`
	NewLevel    int      `json:"newLevel"`
	CoinsEarned int      `json:"coinsEarned"`
	Rewards     []string `json:"rewards,omitempty"`
}

// UnlockNextLevel 在事务中把档案升到下一关并发放解锁奖励，已是最高关时不变。
// 调用方负责保存 profile。
func (s *RewardService) UnlockNextLevel(tx *gorm.DB, profile *model.Profile, maxLevel int) (LevelUnlock, error) {
	next := scoring.NextLevel(profile.CurrentLevel, maxLevel)
	if next <= profile.CurrentLevel {
		return LevelUnlock{NewLevel: profile.CurrentLevel}, nil
	}
	profile.CurrentLevel = next

	result, err := s.GrantLevelRewards(tx, profile, next)
	if err != nil {
		return LevelUnlock{}, err
	}
	result.Unlocked = true
	return result, nil
}

// GrantLevelRewards 发放关卡徽章与金币，每种奖励只发一次
func (s *RewardService) GrantLevelRewards(tx *gorm.DB, profile *model.Profile, level int) (LevelUnlock, error) {
	repo := s.RewardRepo.WithTx(tx)
	result := LevelUnlock{NewLevel: level}

	badge := &model.Reward{
		Name:          fmt.Sprintf("Level %d Master", level),
		RewardType:    model.RewardBadge,
		Description:   fmt.Sprintf("Unlocked level %d", level),
		LevelRequired: level,
	}
	coins := &model.Reward{
		Name:          fmt.Sprintf("Level %d Coins", level),
		RewardType:    model.RewardCoin,
		Description:   fmt.Sprintf("%d coins for reaching level %d", scoring.LevelUnlockCoins, level),
		LevelRequired: level,
	}

	for _, r := range []*model.Reward{badge, coins} {
		if err := repo.FirstOrCreate(r); err != nil {
			return LevelUnlock{}, err
		}
		quantity := 1
		if r.RewardType == model.RewardCoin {
			quantity = scoring.LevelUnlockCoins
		}
		granted, err := repo.Grant(profile.UserID, r.ID, quantity)
		if err != nil {
			return LevelUnlock{}, err
		}
		if !granted {
			continue
		}
		result.Rewards = append(result.Rewards, r.Name)
		if r.RewardType == model.RewardCoin {
			profile.Credit(0, scoring.LevelUnlockCoins)
			result.CoinsEarned += scoring.LevelUnlockCoins
		}
	}
	return result, nil
}
