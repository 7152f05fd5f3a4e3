package repository

import (
	"errors"
	"time"

	"speakopoly_backend/internal/model"

	"gorm.io/gorm"
)

type QuestRepository struct {
	DB *gorm.DB
}

func NewQuestRepository(db *gorm.DB) *QuestRepository {
	return &QuestRepository{DB: db}
}

func (r *QuestRepository) WithTx(tx *gorm.DB) *QuestRepository {
	return &QuestRepository{DB: tx}
}

// ListActive 启用且未过期的任务
func (r *QuestRepository) ListActive(now time.Time) ([]model.Quest, error) {
	var quests []model.Quest
	err := r.DB.Where("is_active = ?", true).
		Where("expires_at IS NULL OR expires_at > ?", now).
		Order("id ASC").
		Find(&quests).Error
	return quests, err
}

func (r *QuestRepository) FindByID(id uint) (*model.Quest, error) {
	var q model.Quest
	if err := r.DB.First(&q, id).Error; err != nil {
		return nil, err
	}
	return &q, nil
}

func (r *QuestRepository) UpsertQuest(q *model.Quest) error {
	var existing model.Quest
	err := r.DB.Where("name = ?", q.Name).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if err := r.DB.Create(q).Error; err != nil {
			return err
		}
		// 零值 false 会被列默认值覆盖，需单独写回
		if !q.IsActive {
			return r.DB.Model(q).Update("is_active", false).Error
		}
		return nil
	}
	if err != nil {
		return err
	}
	q.ID = existing.ID
	q.CreatedAt = existing.CreatedAt
	return r.DB.Save(q).Error
}

// UserQuestsByQuest 用户已领取的任务，按任务 ID 索引
func (r *QuestRepository) UserQuestsByQuest(userID uint) (map[uint]model.UserQuest, error) {
	var list []model.UserQuest
	if err := r.DB.Where("user_id = ?", userID).Find(&list).Error; err != nil {
		return nil, err
	}
	out := make(map[uint]model.UserQuest, len(list))
	for _, uq := range list {
		out[uq.QuestID] = uq
	}
	return out, nil
}

func (r *QuestRepository) FindUserQuest(userID, questID uint) (*model.UserQuest, error) {
	var uq model.UserQuest
	err := r.DB.Preload("Quest").
		Where("user_id = ? AND quest_id = ?", userID, questID).
		First(&uq).Error
	if err != nil {
		return nil, err
	}
	return &uq, nil
}

func (r *QuestRepository) CreateUserQuest(uq *model.UserQuest) error {
	return r.DB.Create(uq).Error
}

func (r *QuestRepository) SaveUserQuest(uq *model.UserQuest) error {
	return r.DB.Omit("Quest").Save(uq).Error
}

// DeactivateExpired 停用已过期的任务，返回影响行数
func (r *QuestRepository) DeactivateExpired(now time.Time) (int64, error) {
	res := r.DB.Model(&model.Quest{}).
		Where("is_active = ? AND expires_at IS NOT NULL AND expires_at <= ?", true, now).
		Update("is_active", false)
	return res.RowsAffected, res.Error
}

// LessonsCompletedSince 某时间之后完成的课程数
func (r *QuestRepository) LessonsCompletedSince(userID uint, since time.Time) (int, error) {
	var count int64
	err := r.DB.Model(&model.LessonCompletion{}).
		Where("user_id = ? AND created_at >= ?", userID, since).
		Count(&count).Error
	return int(count), err
}

// XPEarnedSince 某时间之后通过练习、课程和里程碑获得的经验
func (r *QuestRepository) XPEarnedSince(userID uint, since time.Time) (int, error) {
	total := 0
	for _, m := range []interface{}{&model.ExerciseAttempt{}, &model.LessonCompletion{}, &model.MilestoneAttempt{}} {
		var sum int64
		err := r.DB.Model(m).
			Select("COALESCE(SUM(xp_earned), 0)").
			Where("user_id = ? AND created_at >= ?", userID, since).
			Scan(&sum).Error
		if err != nil {
			return 0, err
		}
		total += int(sum)
	}
	return total, nil
}
