package service

import (
	"errors"

	"speakopoly_backend/internal/model"
	"speakopoly_backend/internal/repository"
	"speakopoly_backend/internal/scoring"
	"speakopoly_backend/internal/util"

	"gorm.io/gorm"
)

type ContentService struct {
	ContentRepo  *repository.ContentRepository
	ProgressRepo *repository.ProgressRepository
	ProfileRepo  *repository.ProfileRepository
}

func NewContentService(contentRepo *repository.ContentRepository, progressRepo *repository.ProgressRepository, profileRepo *repository.ProfileRepository) *ContentService {
	return &ContentService{
		ContentRepo:  contentRepo,
		ProgressRepo: progressRepo,
		ProfileRepo:  profileRepo,
	}
}

func (s *ContentService) currentLevel(userID uint) (int, error) {
	profile, err := s.ProfileRepo.FindByUserID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, util.ErrProfileNotFound
		}
		return 0, err
	}
	return profile.CurrentLevel, nil
}

// ListLevels 全部关卡及解锁状态
func (s *ContentService) ListLevels(userID uint) ([]model.Level, error) {
	current, err := s.currentLevel(userID)
	if err != nil {
		return nil, err
	}
	levels, err := s.ContentRepo.ListLevels()
	if err != nil {
		return nil, err
	}
	for i := range levels {
		levels[i].Unlocked = scoring.LevelUnlocked(levels[i].Number, current)
	}
	return levels, nil
}

// GetLevel 关卡详情，包含单元和课程完成状态
func (s *ContentService) GetLevel(userID, levelID uint) (*model.Level, error) {
	current, err := s.currentLevel(userID)
	if err != nil {
		return nil, err
	}
	level, err := s.ContentRepo.FindLevelWithLessons(levelID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrLevelNotFound
		}
		return nil, err
	}
	level.Unlocked = scoring.LevelUnlocked(level.Number, current)

	completed, err := s.ProgressRepo.CompletedLessonIDs(userID)
	if err != nil {
		return nil, err
	}
	for i := range level.Units {
		for j := range level.Units[i].Lessons {
			level.Units[i].Lessons[j].Completed = completed[level.Units[i].Lessons[j].ID]
		}
	}
	return level, nil
}

// GetLesson 课程及练习，练习答案不会序列化
func (s *ContentService) GetLesson(userID, lessonID uint) (*model.Lesson, error) {
	current, err := s.currentLevel(userID)
	if err != nil {
		return nil, err
	}
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
	if !scoring.LevelUnlocked(level.Number, current) {
		return nil, util.ErrLevelLocked
	}
	done, err := s.ProgressRepo.IsLessonCompleted(userID, lessonID)
	if err != nil {
		return nil, err
	}
	lesson.Completed = done
	return lesson, nil
}
