package service

import (
	"errors"
	"strings"

	"speakopoly_backend/internal/config"
	"speakopoly_backend/internal/model"
	"speakopoly_backend/internal/repository"
	"speakopoly_backend/internal/util"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type AuthService struct {
	UserRepo *repository.UserRepository
	Cfg      *config.Config
}

func NewAuthService(userRepo *repository.UserRepository, cfg *config.Config) *AuthService {
	return &AuthService{
		UserRepo: userRepo,
		Cfg:      cfg,
	}
}

// Register 创建用户并初始化学习档案
func (s *AuthService) Register(user *model.User) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	_, err := s.UserRepo.FindByEmail(user.Email)
	if err == nil {
		return util.ErrEmailRegistered
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	user.Password = string(hashedPassword)
	if user.Role == "" {
		user.Role = model.Learner
	}
	return s.UserRepo.CreateWithProfile(user)
}

func (s *AuthService) Login(email, password string) (string, *model.User, error) {
	user, err := s.UserRepo.FindByEmail(strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return "", nil, util.ErrInvalidCredentials
	}
	if user.Disabled {
		return "", nil, util.ErrPermissionDenied
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", nil, util.ErrInvalidCredentials
	}

	token, err := util.GenerateJWT(user, s.Cfg.JWT.Secret, s.Cfg.JWT.ExpireTime)
	if err != nil {
		return "", nil, err
	}
	_ = s.UserRepo.UpdateLastLogin(user.ID)
	return token, user, nil
}

func (s *AuthService) GetCurrentUser(c *gin.Context) *model.User {
	claims := util.GetUserFromContext(c)
	if claims == nil {
		return nil
	}

	user, err := s.UserRepo.FindByID(claims.UserID)
	if err != nil {
		return nil
	}
	return user
}
