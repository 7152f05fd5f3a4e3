package repository

import (
	"speakopoly_backend/internal/model"

	"gorm.io/gorm"
)

type DistrictRepository struct {
	DB *gorm.DB
}

func NewDistrictRepository(db *gorm.DB) *DistrictRepository {
	return &DistrictRepository{DB: db}
}

func (r *DistrictRepository) WithTx(tx *gorm.DB) *DistrictRepository {
	return &DistrictRepository{DB: tx}
}

// ListWithLevel 全部街区，附带所属关卡编号
func (r *DistrictRepository) ListWithLevel() ([]model.District, error) {
	var districts []model.District
	err := r.DB.Order("id ASC").Find(&districts).Error
	if err != nil {
		return nil, err
	}
	numbers, err := r.levelNumbers()
	if err != nil {
		return nil, err
	}
	for i := range districts {
		districts[i].LevelNumber = numbers[districts[i].LevelID]
	}
	return districts, nil
}

func (r *DistrictRepository) FindByID(id uint) (*model.District, error) {
	var d model.District
	if err := r.DB.First(&d, id).Error; err != nil {
		return nil, err
	}
	var level model.Level
	if err := r.DB.Select("id", "number").First(&level, d.LevelID).Error; err != nil {
		return nil, err
	}
	d.LevelNumber = level.Number
	return &d, nil
}

func (r *DistrictRepository) levelNumbers() (map[uint]int, error) {
	var levels []model.Level
	if err := r.DB.Select("id", "number").Find(&levels).Error; err != nil {
		return nil, err
	}
	out := make(map[uint]int, len(levels))
	for _, l := range levels {
		out[l.ID] = l.Number
	}
	return out, nil
}

func (r *DistrictRepository) VisitedIDs(userID uint) (map[uint]bool, error) {
	var ids []uint
	err := r.DB.Model(&model.DistrictVisit{}).Where("user_id = ?", userID).Pluck("district_id", &ids).Error
	if err != nil {
		return nil, err
	}
	out := make(map[uint]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}

func (r *DistrictRepository) HasVisited(userID, districtID uint) (bool, error) {
	var count int64
	err := r.DB.Model(&model.DistrictVisit{}).
		Where("user_id = ? AND district_id = ?", userID, districtID).
		Count(&count).Error
	return count > 0, err
}

func (r *DistrictRepository) CreateVisit(v *model.DistrictVisit) error {
	return r.DB.Create(v).Error
}
