package service

import (
	"context"
	"errors"
	"time"

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

// QuestView 任务及用户进度
type QuestView struct {
	Quest       model.Quest              `json:"quest"`
	Started     bool                     `json:"started"`
	StartedAt   *time.Time               `json:"startedAt,omitempty"`
	Completed   bool                     `json:"completed"`
	Progress    scoring.QuestProgress    `json:"progress"`
	Requirement scoring.QuestRequirement `json:"requirement"`
	Ratio       float64                  `json:"ratio"`
	CanComplete bool                     `json:"canComplete"`
}

// QuestReward 完成任务获得的奖励
type QuestReward struct {
	QuestID          uint `json:"questId"`
	AlreadyCompleted bool `json:"alreadyCompleted"`
	XPEarned         int  `json:"xpEarned"`
	CoinsEarned      int  `json:"coinsEarned"`
	GemsEarned       int  `json:"gemsEarned"`
	TotalXP          int  `json:"totalXp"`
}

type QuestService struct {
	DB          *gorm.DB
	QuestRepo   *repository.QuestRepository
	ProfileRepo *repository.ProfileRepository
	Leaderboard *LeaderboardService
	Events      events.Publisher
	Settings    *Settings
}

func NewQuestService(
	db *gorm.DB,
	questRepo *repository.QuestRepository,
	profileRepo *repository.ProfileRepository,
	leaderboard *LeaderboardService,
	publisher events.Publisher,
	settings *Settings,
) *QuestService {
	return &QuestService{
		DB:          db,
		QuestRepo:   questRepo,
		ProfileRepo: profileRepo,
		Leaderboard: leaderboard,
		Events:      publisher,
		Settings:    settings,
	}
}

// completedThisWindow 每日/每周任务只在完成所在的周期内算作已完成
func completedThisWindow(q *model.Quest, uq *model.UserQuest, now time.Time) bool {
	if uq == nil || !uq.IsCompleted || uq.CompletedAt == nil {
		return false
	}
	return !uq.CompletedAt.Before(scoring.QuestWindowStart(q.QuestType, time.Time{}, now))
}

// progress 统计任务窗口内的进度
func (s *QuestService) progress(repo *repository.QuestRepository, profile *model.Profile, q *model.Quest, uq *model.UserQuest, now time.Time) (scoring.QuestProgress, error) {
	since := scoring.QuestWindowStart(q.QuestType, uq.StartedAt, now)
	lessons, err := repo.LessonsCompletedSince(profile.UserID, since)
	if err != nil {
		return scoring.QuestProgress{}, err
	}
	xp, err := repo.XPEarnedSince(profile.UserID, since)
	if err != nil {
		return scoring.QuestProgress{}, err
	}
	streak := profile.CurrentStreak
	if scoring.StreakBroken(profile.Streak(), now) {
		streak = 0
	}
	return scoring.QuestProgress{Lessons: lessons, XP: xp, Streak: streak}, nil
}

// List 当前可用任务及进度
func (s *QuestService) List(userID uint) ([]QuestView, error) {
	now := s.Settings.Current().Now()
	profile, err := s.ProfileRepo.FindByUserID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrProfileNotFound
		}
		return nil, err
	}
	quests, err := s.QuestRepo.ListActive(now)
	if err != nil {
		return nil, err
	}
	mine, err := s.QuestRepo.UserQuestsByQuest(userID)
	if err != nil {
		return nil, err
	}

	views := make([]QuestView, 0, len(quests))
	for i := range quests {
		q := &quests[i]
		view := QuestView{Quest: *q, Requirement: q.Requirement()}
		if uq, ok := mine[q.ID]; ok {
			view.Started = true
			view.StartedAt = &uq.StartedAt
			view.Completed = completedThisWindow(q, &uq, now)
			p, err := s.progress(s.QuestRepo, profile, q, &uq, now)
			if err != nil {
				return nil, err
			}
			view.Progress = p
			done, ratio := scoring.EvaluateQuest(view.Requirement, p)
			view.Ratio = ratio
			view.CanComplete = done && !view.Completed
		}
		views = append(views, view)
	}
	return views, nil
}

func (s *QuestService) activeQuest(repo *repository.QuestRepository, questID uint, now time.Time) (*model.Quest, error) {
	q, err := repo.FindByID(questID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrQuestNotFound
		}
		return nil, err
	}
	if !q.IsActive || scoring.QuestExpired(q.ExpiresAt, now) {
		return nil, util.ErrQuestExpired
	}
	return q, nil
}

// Start 领取任务；已领取时直接返回，上个周期完成的周期任务重新开始
func (s *QuestService) Start(userID, questID uint) (*model.UserQuest, error) {
	now := s.Settings.Current().Now()
	q, err := s.activeQuest(s.QuestRepo, questID, now)
	if err != nil {
		return nil, err
	}

	uq, err := s.QuestRepo.FindUserQuest(userID, questID)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		uq = &model.UserQuest{UserID: userID, QuestID: questID, StartedAt: now}
		if err := s.QuestRepo.CreateUserQuest(uq); err != nil {
			return nil, err
		}
		uq.Quest = q
		return uq, nil
	case err != nil:
		return nil, err
	}

	if uq.IsCompleted && !completedThisWindow(q, uq, now) {
		uq.IsCompleted = false
		uq.CompletedAt = nil
		uq.StartedAt = now
		if err := s.QuestRepo.SaveUserQuest(uq); err != nil {
			return nil, err
		}
	}
	return uq, nil
}

// Complete 校验任务要求并发放奖励，每个周期只发一次
func (s *QuestService) Complete(ctx context.Context, userID, questID uint) (*QuestReward, error) {
	now := s.Settings.Current().Now()
	reward := &QuestReward{QuestID: questID}
	var quest *model.Quest

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		repo := s.QuestRepo.WithTx(tx)
		profiles := s.ProfileRepo.WithTx(tx)

		q, err := s.activeQuest(repo, questID, now)
		if err != nil {
			return err
		}
		quest = q
		uq, err := repo.FindUserQuest(userID, questID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return util.ErrQuestNotStarted
			}
			return err
		}
		profile, err := profiles.FindByUserIDForUpdate(userID)
		if err != nil {
			return err
		}
		if completedThisWindow(q, uq, now) {
			reward.AlreadyCompleted = true
			reward.TotalXP = profile.TotalXP
			return nil
		}

		p, err := s.progress(repo, profile, q, uq, now)
		if err != nil {
			return err
		}
		if done, _ := scoring.EvaluateQuest(q.Requirement(), p); !done {
			return util.ErrQuestIncomplete
		}

		profile.Credit(q.XPReward, q.CoinsReward)
		profile.Gems += q.GemsReward
		if err := profiles.Save(profile); err != nil {
			return err
		}
		completedAt := now
		uq.IsCompleted = true
		uq.CompletedAt = &completedAt
		if err := repo.SaveUserQuest(uq); err != nil {
			return err
		}

		reward.XPEarned = q.XPReward
		reward.CoinsEarned = q.CoinsReward
		reward.GemsEarned = q.GemsReward
		reward.TotalXP = profile.TotalXP
		return nil
	})
	if err != nil {
		return nil, err
	}
	if reward.AlreadyCompleted {
		return reward, nil
	}

	if reward.XPEarned > 0 {
		monitoring.XPAwarded.WithLabelValues("quest").Add(float64(reward.XPEarned))
	}
	s.Leaderboard.Update(ctx, userID, reward.TotalXP)
	publish(ctx, s.Events, events.New(events.QuestCompleted, userID, map[string]interface{}{
		"quest_id":   questID,
		"quest_type": quest.QuestType,
		"xp_earned":  reward.XPEarned,
	}))
	return reward, nil
}

// ExpireQuests 定时任务：停用过期任务
func (s *QuestService) ExpireQuests(ctx context.Context) (int64, error) {
	n, err := s.QuestRepo.DeactivateExpired(s.Settings.Current().Now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		logger.Log.Info("Expired quests deactivated", zap.Int64("count", n))
	}
	return n, nil
}
