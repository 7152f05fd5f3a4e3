package repository

import (
	"speakopoly_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProfileRepository struct {
	DB *gorm.DB
}

func NewProfileRepository(db *gorm.DB) *ProfileRepository {
	return &ProfileRepository{DB: db}
}

func (r *ProfileRepository) WithTx(tx *gorm.DB) *ProfileRepository {
	return &ProfileRepository{DB: tx}
}

func (r *ProfileRepository) FindByUserID(userID uint) (*model.Profile, error) {
	var p model.Profile
	if err := r.DB.Where("user_id = ?", userID).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// FindByUserIDForUpdate 事务内加行锁读取，防止并发作答重复加分
func (r *ProfileRepository) FindByUserIDForUpdate(userID uint) (*model.Profile, error) {
	var p model.Profile
	err := r.DB.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProfileRepository) Save(p *model.Profile) error {
	return r.DB.Save(p).Error
}

// UpdatePreferences 只更新用户可编辑的字段
func (r *ProfileRepository) UpdatePreferences(userID uint, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	return r.DB.Model(&model.Profile{}).Where("user_id = ?", userID).Updates(fields).Error
}

func (r *ProfileRepository) FindTopByXP(limit int) ([]model.Profile, error) {
	var profiles []model.Profile
	err := r.DB.Order("total_xp DESC").Order("id ASC").Limit(limit).Find(&profiles).Error
	return profiles, err
}

// CountAhead 总经验严格高于 xp 的人数，用于计算名次
func (r *ProfileRepository) CountAhead(xp int) (int64, error) {
	var count int64
	err := r.DB.Model(&model.Profile{}).Where("total_xp > ?", xp).Count(&count).Error
	return count, err
}

// ScanXP 分批遍历所有用户的总经验
func (r *ProfileRepository) ScanXP(batch int, fn func([]model.Profile) error) error {
	var profiles []model.Profile
	return r.DB.Select("id", "user_id", "total_xp").
		FindInBatches(&profiles, batch, func(tx *gorm.DB, _ int) error {
			return fn(profiles)
		}).Error
}
