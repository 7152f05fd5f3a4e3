package service

import (
	"context"
	"errors"
	"fmt"

	"speakopoly_backend/internal/model"
	"speakopoly_backend/internal/repository"
	"speakopoly_backend/internal/scoring"
	"speakopoly_backend/internal/util"
	"speakopoly_backend/pkg/events"
	"speakopoly_backend/pkg/logger"
	"speakopoly_backend/pkg/monitoring"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AudioScorer 听说类练习的远程评分
type AudioScorer interface {
	ScoreAudio(ctx context.Context, req AudioScoreRequest) (float64, error)
}

// SubmitExerciseRequest 作答请求
type SubmitExerciseRequest struct {
	Response         []string `json:"response"`
	AudioURL         string   `json:"audio_url"`
	TimeSpentSeconds int      `json:"time_spent_seconds"`
}

// SubmitExerciseResult 作答结果
type SubmitExerciseResult struct {
	AttemptID         uint                `json:"attemptId"`
	Score             float64             `json:"score"`
	IsCorrect         bool                `json:"isCorrect"`
	XPEarned          int                 `json:"xpEarned"`
	CoinsEarned       int                 `json:"coinsEarned"`
	Multiplier        float64             `json:"multiplier"`
	Feedback          string              `json:"feedback"`
	Streak            scoring.StreakState `json:"streak"`
	AttemptNumber     int                 `json:"attemptNumber"`
	AttemptsRemaining int                 `json:"attemptsRemaining"`
	TotalXP           int                 `json:"totalXp"`
	Coins             int                 `json:"coins"`
}

type ExerciseService struct {
	DB           *gorm.DB
	ContentRepo  *repository.ContentRepository
	ExerciseRepo *repository.ExerciseRepository
	ProfileRepo  *repository.ProfileRepository
	Scorer       AudioScorer
	Leaderboard  *LeaderboardService
	Events       events.Publisher
	Settings     *Settings
}

func NewExerciseService(
	db *gorm.DB,
	contentRepo *repository.ContentRepository,
	exerciseRepo *repository.ExerciseRepository,
	profileRepo *repository.ProfileRepository,
	scorer AudioScorer,
	leaderboard *LeaderboardService,
	publisher events.Publisher,
	settings *Settings,
) *ExerciseService {
	return &ExerciseService{
		DB:           db,
		ContentRepo:  contentRepo,
		ExerciseRepo: exerciseRepo,
		ProfileRepo:  profileRepo,
		Scorer:       scorer,
		Leaderboard:  leaderboard,
		Events:       publisher,
		Settings:     settings,
	}
}

// Submit 评分并记录一次作答。正确时在同一事务内更新连续学习、经验和金币。
// 远程评分失败时不记录作答。
func (s *ExerciseService) Submit(ctx context.Context, userID, exerciseID uint, req SubmitExerciseRequest) (*SubmitExerciseResult, error) {
	exercise, err := s.ContentRepo.FindExerciseByID(exerciseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrExerciseNotFound
		}
		return nil, err
	}
	if !exercise.Kind.Valid() {
		return nil, util.ErrUnknownExerciseType
	}

	if err := s.checkUnlocked(userID, exerciseID); err != nil {
		return nil, err
	}

	count, err := s.ExerciseRepo.CountAttempts(userID, exerciseID)
	if err != nil {
		return nil, err
	}
	if exercise.MaxAttempts > 0 && int(count) >= exercise.MaxAttempts {
		return nil, util.ErrMaxAttemptsReached
	}

	score, err := s.score(ctx, exercise, req)
	if err != nil {
		return nil, err
	}
	correct := scoring.IsCorrect(score)
	settings := s.Settings.Current()
	now := settings.Now()

	result := &SubmitExerciseResult{
		Score:     score,
		IsCorrect: correct,
		Feedback:  exercise.Feedback(correct),
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		profile, err := s.ProfileRepo.WithTx(tx).FindByUserIDForUpdate(userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return util.ErrProfileNotFound
			}
			return err
		}

		exRepo := s.ExerciseRepo.WithTx(tx)
		previous, err := exRepo.CountAttempts(userID, exerciseID)
		if err != nil {
			return err
		}
		if exercise.MaxAttempts > 0 && int(previous) >= exercise.MaxAttempts {
			return util.ErrMaxAttemptsReached
		}

		// 倍率按本次作答之前的连续天数计算，已断签按 0 计
		streak := profile.Streak()
		prior := streak.Current
		if scoring.StreakBroken(streak, now) {
			prior = 0
		}
		award := scoring.Award{Multiplier: scoring.StreakMultiplier(prior)}
		if correct {
			award = scoring.AwardProgression(exercise.XPReward, settings.Clamp, prior)
			streak = scoring.UpdateStreak(streak, now)
			profile.SetStreak(streak)
			profile.Credit(award.XP, award.Coins)
			if err := s.ProfileRepo.WithTx(tx).Save(profile); err != nil {
				return err
			}
		}

		attempt := &model.ExerciseAttempt{
			UserID:           userID,
			ExerciseID:       exerciseID,
			AttemptNumber:    int(previous) + 1,
			Response:         model.StringList(req.Response),
			AudioURL:         req.AudioURL,
			Score:            score,
			IsCorrect:        correct,
			XPEarned:         award.XP,
			CoinsEarned:      award.Coins,
			TimeSpentSeconds: req.TimeSpentSeconds,
		}
		if err := exRepo.CreateAttempt(attempt); err != nil {
			return err
		}

		result.AttemptID = attempt.ID
		result.AttemptNumber = attempt.AttemptNumber
		result.XPEarned = award.XP
		result.CoinsEarned = award.Coins
		result.Multiplier = award.Multiplier
		result.Streak = streak
		result.TotalXP = profile.TotalXP
		result.Coins = profile.Coins
		if exercise.MaxAttempts > 0 {
			result.AttemptsRemaining = max(exercise.MaxAttempts-attempt.AttemptNumber, 0)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	monitoring.ObserveExercise(string(exercise.Kind), score, correct, result.XPEarned)
	if correct {
		s.Leaderboard.Update(ctx, userID, result.TotalXP)
	}
	publish(ctx, s.Events, events.New(events.ExerciseScored, userID, map[string]interface{}{
		"exercise_id": exerciseID,
		"kind":        exercise.Kind,
		"score":       score,
		"is_correct":  correct,
		"xp_earned":   result.XPEarned,
	}))
	return result, nil
}

// score 本地题型直接评分，听说题型交给远程评分
func (s *ExerciseService) score(ctx context.Context, exercise *model.Exercise, req SubmitExerciseRequest) (float64, error) {
	if !exercise.Kind.Remote() {
		return scoring.ScoreExercise(exercise.Kind, exercise.AnswerKey(), req.Response), nil
	}
	if req.AudioURL == "" && len(req.Response) == 0 {
		return 0, util.ErrAudioRequired
	}
	if s.Scorer == nil {
		return 0, &WebhookError{Op: opScoreAudio, Kind: KindUnavailable, Err: errors.New("no audio scorer configured")}
	}
	score, err := s.Scorer.ScoreAudio(ctx, AudioScoreRequest{
		ExerciseID:    exercise.ID,
		Kind:          string(exercise.Kind),
		Prompt:        exercise.Prompt,
		ReferenceText: exercise.ReferenceText,
		Expected:      exercise.CorrectAnswers,
		Response:      req.Response,
		AudioURL:      req.AudioURL,
	})
	if err != nil {
		return 0, fmt.Errorf("score %s exercise %d: %w", exercise.Kind, exercise.ID, err)
	}
	return scoring.Clamp01(score), nil
}

func (s *ExerciseService) checkUnlocked(userID, exerciseID uint) error {
	level, err := s.ContentRepo.FindLevelOfExercise(exerciseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrExerciseNotFound
		}
		return err
	}
	profile, err := s.ProfileRepo.FindByUserID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrProfileNotFound
		}
		return err
	}
	if !scoring.LevelUnlocked(level.Number, profile.CurrentLevel) {
		return util.ErrLevelLocked
	}
	return nil
}

// ExerciseDetail 练习详情（不含答案）与历史作答
type ExerciseDetail struct {
	Exercise          *model.Exercise         `json:"exercise"`
	Attempts          []model.ExerciseAttempt `json:"attempts"`
	NextAttemptNumber int                     `json:"nextAttemptNumber"`
	CanAttempt        bool                    `json:"canAttempt"`
}

func (s *ExerciseService) Detail(userID, exerciseID uint) (*ExerciseDetail, error) {
	exercise, err := s.ContentRepo.FindExerciseByID(exerciseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrExerciseNotFound
		}
		return nil, err
	}
	if err := s.checkUnlocked(userID, exerciseID); err != nil {
		return nil, err
	}
	attempts, err := s.ExerciseRepo.ListAttempts(userID, exerciseID)
	if err != nil {
		return nil, err
	}
	return &ExerciseDetail{
		Exercise:          exercise,
		Attempts:          attempts,
		NextAttemptNumber: len(attempts) + 1,
		CanAttempt:        exercise.MaxAttempts <= 0 || len(attempts) < exercise.MaxAttempts,
	}, nil
}

// publish 事件发布失败只记录日志
func publish(ctx context.Context, p events.Publisher, e events.Event) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, e); err != nil {
		logger.Log.Warn("Failed to publish event",
			zap.String("type", e.Type),
			zap.Uint("userID", e.UserID),
			zap.Error(err))
	}
}
