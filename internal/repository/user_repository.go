package repository

import (
	"time"

	"speakopoly_backend/internal/model"
	"speakopoly_backend/internal/scoring"

	"gorm.io/gorm"
)

type UserRepository struct {
	DB *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{DB: db}
}

// CreateWithProfile 注册时同时创建档案
func (r *UserRepository) CreateWithProfile(user *model.User) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		profile := &model.Profile{
			UserID:       user.ID,
			CurrentLevel: 1,
			Tickets:      3,
			League:       scoring.LeagueBronze,
		}
		if err := tx.Create(profile).Error; err != nil {
			return err
		}
		user.Profile = profile
		return nil
	})
}

func (r *UserRepository) FindByID(id uint) (*model.User, error) {
	var user model.User
	err := r.DB.First(&user, id).Error
	return &user, err
}

func (r *UserRepository) FindByEmail(email string) (*model.User, error) {
	var user model.User
	err := r.DB.Where("email = ?", email).First(&user).Error
	return &user, err
}

func (r *UserRepository) FindNamesByIDs(ids []uint) (map[uint]string, error) {
	names := make(map[uint]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}
	var users []model.User
	if err := r.DB.Select("id", "name").Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	for _, u := range users {
		names[u.ID] = u.Name
	}
	return names, nil
}

func (r *UserRepository) UpdateLastLogin(userID uint) error {
	return r.DB.Model(&model.User{}).Where("id = ?", userID).Update("last_login", time.Now()).Error
}

func (r *UserRepository) UpdateLastSeen(userID uint) error {
	return r.DB.Model(&model.User{}).Where("id = ?", userID).Update("last_seen", time.Now()).Error
}
