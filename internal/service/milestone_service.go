package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

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

// MilestoneScorer 里程碑录音的远程评分
type MilestoneScorer interface {
	ScoreMilestone(ctx context.Context, req MilestoneScoreRequest) (*MilestoneScoreResult, error)
}

// RecordingStore 录音存储
type RecordingStore interface {
	StoreRecording(ctx context.Context, userID uint, filename, localPath, contentType string) (key, url string, err error)
	Delete(ctx context.Context, key string) error
}

// MilestoneSubmission 一次里程碑提交。RecordingPath 为已落盘的临时录音文件。
// RubricScores 只有在 TrustedScores 为真时才会被采用，否则必须经远程评分
type MilestoneSubmission struct {
	RecordingPath   string
	Filename        string
	ContentType     string
	DurationSeconds float64
	RubricScores    map[string]float64
	TrustedScores   bool
}

// MilestoneResult 里程碑评分结果
type MilestoneResult struct {
	AttemptID       uint               `json:"attemptId"`
	IsPassed        bool               `json:"isPassed"`
	OverallScore    float64            `json:"overallScore"`
	RubricScores    map[string]float64 `json:"rubricScores"`
	Feedback        string             `json:"feedback,omitempty"`
	XPEarned        int                `json:"xpEarned"`
	CoinsEarned     int                `json:"coinsEarned"`
	DurationSeconds float64            `json:"durationSeconds"`
	AudioURL        string             `json:"audioUrl,omitempty"`
	LevelUnlock     *LevelUnlock       `json:"levelUnlock,omitempty"`
	CurrentLevel    int                `json:"currentLevel"`
}

// MilestoneView 关卡里程碑及历史提交
type MilestoneView struct {
	Milestone *model.MilestoneChallenge `json:"milestone"`
	Attempts  []model.MilestoneAttempt  `json:"attempts"`
	Passed    bool                      `json:"passed"`
}

type MilestoneService struct {
	DB            *gorm.DB
	ContentRepo   *repository.ContentRepository
	MilestoneRepo *repository.MilestoneRepository
	ProfileRepo   *repository.ProfileRepository
	RewardService *RewardService
	Scorer        MilestoneScorer
	Storage       RecordingStore
	Leaderboard   RankUpdater
	Events        events.Publisher
	Settings      *Settings
	// Probe 读取录音时长，默认使用 ffprobe
	Probe func(path string) (*util.AudioInfo, error)
}

func NewMilestoneService(
	db *gorm.DB,
	contentRepo *repository.ContentRepository,
	milestoneRepo *repository.MilestoneRepository,
	profileRepo *repository.ProfileRepository,
	rewardService *RewardService,
	scorer MilestoneScorer,
	storage RecordingStore,
	leaderboard *LeaderboardService,
	publisher events.Publisher,
	settings *Settings,
) *MilestoneService {
	return &MilestoneService{
		DB:            db,
		ContentRepo:   contentRepo,
		MilestoneRepo: milestoneRepo,
		ProfileRepo:   profileRepo,
		RewardService: rewardService,
		Scorer:        scorer,
		Storage:       storage,
		Leaderboard:   leaderboard,
		Events:        publisher,
		Settings:      settings,
		Probe:         util.GetAudioInfo,
	}
}

func (s *MilestoneService) GetForLevel(userID, levelID uint) (*MilestoneView, error) {
	level, err := s.ContentRepo.FindLevelByID(levelID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrLevelNotFound
		}
		return nil, err
	}
	if err := s.checkUnlocked(userID, level); err != nil {
		return nil, err
	}
	m, err := s.MilestoneRepo.FindByLevel(levelID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrMilestoneNotFound
		}
		return nil, err
	}
	attempts, err := s.MilestoneRepo.ListAttempts(userID, m.ID)
	if err != nil {
		return nil, err
	}
	view := &MilestoneView{Milestone: m, Attempts: attempts}
	for _, a := range attempts {
		if a.IsPassed {
			view.Passed = true
			break
		}
	}
	return view, nil
}

func (s *MilestoneService) checkUnlocked(userID uint, level *model.Level) error {
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

// Submit 保存录音、取得各维度分数并评分。通过时发放全额奖励，
// 若为当前关则升级；未通过获得一半经验。已通过的里程碑再次提交只评分不发奖。
func (s *MilestoneService) Submit(ctx context.Context, userID, milestoneID uint, sub MilestoneSubmission) (*MilestoneResult, error) {
	m, err := s.MilestoneRepo.FindByID(milestoneID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrMilestoneNotFound
		}
		return nil, err
	}
	level, err := s.ContentRepo.FindLevelByID(m.LevelID)
	if err != nil {
		return nil, err
	}
	if err := s.checkUnlocked(userID, level); err != nil {
		return nil, err
	}
	if len(sub.RubricScores) > 0 && !sub.TrustedScores {
		return nil, util.ErrClientScoresDenied
	}
	if sub.RecordingPath == "" && len(sub.RubricScores) == 0 {
		return nil, util.ErrRubricRequired
	}

	result := &MilestoneResult{DurationSeconds: sub.DurationSeconds}
	var recordingKey string
	if sub.RecordingPath != "" {
		if s.Probe != nil {
			if info, err := s.Probe(sub.RecordingPath); err != nil {
				logger.Log.Warn("Failed to probe milestone recording", zap.Uint("milestoneID", milestoneID), zap.Error(err))
			} else if info.Duration > 0 {
				result.DurationSeconds = info.Duration
			}
		}
		if s.Storage != nil {
			key, url, err := s.Storage.StoreRecording(ctx, userID, sub.Filename, sub.RecordingPath, sub.ContentType)
			if err != nil {
				return nil, err
			}
			recordingKey, result.AudioURL = key, url
		}
	}

	scores := sub.RubricScores
	if len(scores) == 0 {
		scored, err := s.scoreRecording(ctx, m, level, result)
		if err != nil {
			s.discardRecording(ctx, recordingKey)
			return nil, err
		}
		scores = scored.Scores
		result.Feedback = scored.Feedback
	}

	settings := s.Settings.Current()
	threshold := m.PassThreshold
	if threshold <= 0 {
		threshold = settings.PassThreshold
	}
	grade := scoring.GradeMilestone(scores, m.Rubric, threshold)
	result.IsPassed = grade.Passed
	result.OverallScore = grade.Overall
	result.RubricScores = grade.RubricScores

	var totalXP int
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		profiles := s.ProfileRepo.WithTx(tx)
		milestones := s.MilestoneRepo.WithTx(tx)

		profile, err := profiles.FindByUserIDForUpdate(userID)
		if err != nil {
			return err
		}
		passedBefore, err := milestones.HasPassed(userID, milestoneID)
		if err != nil {
			return err
		}

		if !passedBefore {
			result.XPEarned, result.CoinsEarned = scoring.MilestoneReward(m.XPReward, m.CoinsReward, grade.Passed)
			profile.Credit(result.XPEarned, result.CoinsEarned)
		}
		if grade.Passed && level.Number == profile.CurrentLevel {
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

		attempt := &model.MilestoneAttempt{
			UserID:          userID,
			MilestoneID:     milestoneID,
			AudioURL:        result.AudioURL,
			DurationSeconds: result.DurationSeconds,
			IsPassed:        grade.Passed,
			OverallScore:    grade.Overall,
			RubricScores:    model.ScoreMap(grade.RubricScores),
			Feedback:        result.Feedback,
			XPEarned:        result.XPEarned,
			CoinsEarned:     result.CoinsEarned,
		}
		if err := milestones.CreateAttempt(attempt); err != nil {
			return err
		}
		result.AttemptID = attempt.ID
		result.CurrentLevel = profile.CurrentLevel
		totalXP = profile.TotalXP
		return nil
	})
	if err != nil {
		s.discardRecording(ctx, recordingKey)
		return nil, err
	}

	if result.XPEarned > 0 {
		s.Leaderboard.Update(ctx, userID, totalXP)
	}

	monitoring.ObserveMilestone(level.Number, grade.Passed, result.XPEarned)
	publish(ctx, s.Events, events.New(events.MilestoneGraded, userID, map[string]interface{}{
		"milestone_id":  milestoneID,
		"level":         level.Number,
		"overall_score": grade.Overall,
		"is_passed":     grade.Passed,
	}))
	if result.LevelUnlock != nil {
		publish(ctx, s.Events, events.New(events.LevelUnlocked, userID, result.LevelUnlock))
	}
	return result, nil
}

func (s *MilestoneService) scoreRecording(ctx context.Context, m *model.MilestoneChallenge, level *model.Level, result *MilestoneResult) (*MilestoneScoreResult, error) {
	if s.Scorer == nil {
		return nil, &WebhookError{Op: opScoreMilestone, Kind: KindUnavailable, Err: errors.New("no milestone scorer configured")}
	}
	weights := m.Rubric
	if len(weights) == 0 {
		weights = scoring.DefaultRubricWeights
	}
	criteria := make([]string, 0, len(weights))
	for k := range weights {
		criteria = append(criteria, k)
	}
	sort.Strings(criteria)

	scored, err := s.Scorer.ScoreMilestone(ctx, MilestoneScoreRequest{
		MilestoneID:     m.ID,
		Level:           level.Number,
		Prompt:          m.Description,
		AudioURL:        result.AudioURL,
		DurationSeconds: result.DurationSeconds,
		Criteria:        criteria,
	})
	if err != nil {
		return nil, fmt.Errorf("score milestone %d: %w", m.ID, err)
	}
	return scored, nil
}

func (s *MilestoneService) discardRecording(ctx context.Context, key string) {
	if key == "" || s.Storage == nil {
		return
	}
	if err := s.Storage.Delete(ctx, key); err != nil {
		logger.Log.Warn("Failed to delete milestone recording", zap.String("key", key), zap.Error(err))
	}
}
