package service

import (
	"context"
	"errors"
	"strings"

	"speakopoly_backend/internal/repository"
	"speakopoly_backend/internal/util"

	"gorm.io/gorm"
)

// Coach AI 教练对话
type Coach interface {
	Coach(ctx context.Context, message string, uc CoachContext) (string, error)
}

// CoachService 附带学习者进度向 AI 教练提问
type CoachService struct {
	AI          Coach
	UserRepo    *repository.UserRepository
	ProfileRepo *repository.ProfileRepository
}

func NewCoachService(ai Coach, userRepo *repository.UserRepository, profileRepo *repository.ProfileRepository) *CoachService {
	return &CoachService{AI: ai, UserRepo: userRepo, ProfileRepo: profileRepo}
}

func (s *CoachService) Ask(ctx context.Context, userID uint, message string) (string, error) {
	message = strings.TrimSpace(message)
	user, err := s.UserRepo.FindByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", util.ErrUserNotFound
		}
		return "", err
	}
	profile, err := s.ProfileRepo.FindByUserID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", util.ErrProfileNotFound
		}
		return "", err
	}
	return s.AI.Coach(ctx, message, CoachContext{
		Level:         profile.CurrentLevel,
		TotalXP:       profile.TotalXP,
		CurrentStreak: profile.CurrentStreak,
		Username:      user.Name,
	})
}
