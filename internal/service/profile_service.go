package service

import (
	"errors"
	"time"

	"speakopoly_backend/internal/model"
	"speakopoly_backend/internal/repository"
	"speakopoly_backend/internal/scoring"
	"speakopoly_backend/internal/util"

	"gorm.io/gorm"
)

const recentAttemptsLimit = 10

type ProfileService struct {
	ProfileRepo  *repository.ProfileRepository
	ExerciseRepo *repository.ExerciseRepository
	Settings     *Settings
}

func NewProfileService(profileRepo *repository.ProfileRepository, exerciseRepo *repository.ExerciseRepository, settings *Settings) *ProfileService {
	return &ProfileService{ProfileRepo: profileRepo, ExerciseRepo: exerciseRepo, Settings: settings}
}

// UpdateProfileRequest 可由用户修改的档案字段
type UpdateProfileRequest struct {
	DailyGoalMinutes    *int    `json:"daily_goal_minutes" binding:"omitempty,min=1,max=240"`
	Persona             *string `json:"persona" binding:"omitempty,max=50"`
	OnboardingCompleted *bool   `json:"onboarding_completed"`
	ABVariant           *string `json:"ab_variant" binding:"omitempty,max=10"`
}

func (s *ProfileService) Get(userID uint) (*model.Profile, error) {
	p, err := s.ProfileRepo.FindByUserID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrProfileNotFound
		}
		return nil, err
	}
	return p, nil
}

func (s *ProfileService) Update(userID uint, req UpdateProfileRequest) (*model.Profile, error) {
	fields := map[string]interface{}{}
	if req.DailyGoalMinutes != nil {
		fields["daily_goal_minutes"] = *req.DailyGoalMinutes
	}
	if req.Persona != nil {
		fields["persona"] = *req.Persona
	}
	if req.OnboardingCompleted != nil {
		fields["onboarding_completed"] = *req.OnboardingCompleted
	}
	if req.ABVariant != nil {
		fields["ab_variant"] = *req.ABVariant
	}
	if _, err := s.Get(userID); err != nil {
		return nil, err
	}
	if err := s.ProfileRepo.UpdatePreferences(userID, fields); err != nil {
		return nil, err
	}
	return s.Get(userID)
}

// StreakOverview 连续学习状态与最近作答
type StreakOverview struct {
	Current        int                     `json:"current"`
	Longest        int                     `json:"longest"`
	LastActivity   *time.Time              `json:"lastActivity,omitempty"`
	Broken         bool                    `json:"broken"`
	Multiplier     float64                 `json:"multiplier"`
	RecentAttempts []model.ExerciseAttempt `json:"recentAttempts"`
}

func (s *ProfileService) Streak(userID uint) (*StreakOverview, error) {
	p, err := s.Get(userID)
	if err != nil {
		return nil, err
	}
	attempts, err := s.ExerciseRepo.RecentAttempts(userID, recentAttemptsLimit)
	if err != nil {
		return nil, err
	}
	state := p.Streak()
	broken := scoring.StreakBroken(state, s.Settings.Current().Now())
	current := state.Current
	if broken {
		current = 0
	}
	overview := &StreakOverview{
		Current:        current,
		Longest:        state.Longest,
		LastActivity:   state.LastActivity,
		Broken:         broken,
		Multiplier:     scoring.StreakMultiplier(current),
		RecentAttempts: attempts,
	}
	return overview, nil
}
