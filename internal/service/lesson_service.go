package service

import (
	"context"
	"errors"

	"speakopoly_backend/internal/model"
	"speakopoly_backend/internal/repository"
	"speakopoly_backend/internal/scoring"
	"speakopoly_backend/internal/util"
	"speakopoly_backend/pkg/events"
	"speakopoly_backend/pkg/monitoring"

	"gorm.io/gorm"
)

// CompleteLessonResult 完成课程的结果
type CompleteLessonResult struct {
	LessonID         uint         `json:"lessonId"`
	AlreadyCompleted bool         `json:"alreadyCompleted"`
	XPEarned         int          `json:"xpEarned"`
	CoinsEarned      int          `json:"coinsEarned"`
	LevelCompleted   bool         `json:"levelCompleted"`
	LevelUnlock      *LevelUnlock `json:"levelUnlock,omitempty"`
	TotalXP          int          `json:"totalXp"`
	Coins            int          `json:"coins"`
	CurrentLevel     int          `json:"currentLevel"`
}

type LessonService struct {
	DB            *gorm.DB
	ContentRepo   *repository.ContentRepository
	ProgressRepo  *repository.ProgressRepository
	ProfileRepo   *repository.ProfileRepository
	RewardService *RewardService
	Leaderboard   *LeaderboardService
	Events        events.Publisher
	Settings      *Settings
}

func NewLessonService(
	db *gorm.DB,
	contentRepo *repository.ContentRepository,
	progressRepo *repository.ProgressRepository,
	profileRepo *repository.ProfileRepository,
	rewardService *RewardService,
	leaderboard *LeaderboardService,
	publisher events.Publisher,
	settings *Settings,
) *LessonService {
	return &LessonService{
		DB:            db,
		ContentRepo:   contentRepo,
		ProgressRepo:  progressRepo,
		ProfileRepo:   profileRepo,
		RewardService: rewardService,
		Leaderboard:   leaderboard,
		Events:        publisher,
		Settings:      settings,
	}
}

// Complete 标记课程完成。首次完成发放课程经验和一半金币；
// 关卡内课程全部完成且该关为当前关时解锁下一关。重复调用不再发奖。
func (s *LessonService) Complete(ctx context.Context, userID, lessonID uint) (*CompleteLessonResult, error) {
	lesson, err := s.ContentRepo.FindLessonWithExercises(lessonID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrLessonNotFound
		}
		return nil, err
	}
	level, err := s.ContentRepo.FindLevelOfLesson(lessonID)
	if err != nil {
		return nil, err
	}
	settings := s.Settings.Current()
	result := &CompleteLessonResult{LessonID: lessonID}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		profiles := s.ProfileRepo.WithTx(tx)
		progress := s.ProgressRepo.WithTx(tx)

		profile, err := profiles.FindByUserIDForUpdate(userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return util.ErrProfileNotFound
			}
			return err
		}
		if !scoring.LevelUnlocked(level.Number, profile.CurrentLevel) {
			return util.ErrLevelLocked
		}

		done, err := progress.IsLessonCompleted(userID, lessonID)
		if err != nil {
			return err
		}
		if done {
			result.AlreadyCompleted = true
			result.TotalXP, result.Coins, result.CurrentLevel = profile.TotalXP, profile.Coins, profile.CurrentLevel
			return nil
		}

		xp := max(lesson.XPReward, 0)
		coins := xp / 2
		if err := progress.CreateCompletion(&model.LessonCompletion{UserID: userID, LessonID: lessonID, XPEarned: xp}); err != nil {
			return err
		}
		profile.Credit(xp, coins)
		result.XPEarned, result.CoinsEarned = xp, coins

		lessonIDs, err := s.ContentRepo.WithTx(tx).LessonIDsInLevel(level.ID)
		if err != nil {
			return err
		}
		completed, err := progress.CountCompletedIn(userID, lessonIDs)
		if err != nil {
			return err
		}
		result.LevelCompleted = int(completed) == len(lessonIDs)

		if result.LevelCompleted && level.Number == profile.CurrentLevel {
			unlock, err := s.RewardService.UnlockNextLevel(tx, profile, settings.MaxLevel)
			if err != nil {
				return err
			}
			if unlock.Unlocked {
				result.LevelUnlock = &unlock
			}
		}

		if err := profiles.Save(profile); err != nil {
			return err
		}
		result.TotalXP, result.Coins, result.CurrentLevel = profile.TotalXP, profile.Coins, profile.CurrentLevel
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.AlreadyCompleted {
		return result, nil
	}
	monitoring.XPAwarded.WithLabelValues("lesson").Add(float64(result.XPEarned))
	s.Leaderboard.Update(ctx, userID, result.TotalXP)
	publish(ctx, s.Events, events.New(events.LessonCompleted, userID, map[string]interface{}{
		"lesson_id": lessonID,
		"xp_earned": result.XPEarned,
	}))
	if result.LevelUnlock != nil {
		publish(ctx, s.Events, events.New(events.LevelUnlocked, userID, result.LevelUnlock))
	}
	return result, nil
}
