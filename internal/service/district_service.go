package service

import (
	"errors"

	"speakopoly_backend/internal/model"
	"speakopoly_backend/internal/repository"
	"speakopoly_backend/internal/scoring"
	"speakopoly_backend/internal/util"

	"gorm.io/gorm"
)

type DistrictService struct {
	DB           *gorm.DB
	DistrictRepo *repository.DistrictRepository
	ProfileRepo  *repository.ProfileRepository
}

func NewDistrictService(db *gorm.DB, districtRepo *repository.DistrictRepository, profileRepo *repository.ProfileRepository) *DistrictService {
	return &DistrictService{DB: db, DistrictRepo: districtRepo, ProfileRepo: profileRepo}
}

// List 全部街区及解锁、到访状态
func (s *DistrictService) List(userID uint) ([]model.District, error) {
	profile, err := s.ProfileRepo.FindByUserID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrProfileNotFound
		}
		return nil, err
	}
	districts, err := s.DistrictRepo.ListWithLevel()
	if err != nil {
		return nil, err
	}
	visited, err := s.DistrictRepo.VisitedIDs(userID)
	if err != nil {
		return nil, err
	}
	for i := range districts {
		d := &districts[i]
		d.Unlocked = scoring.DistrictUnlocked(profile.CurrentLevel, profile.TotalXP, d.LevelNumber, d.XPRequired)
		d.Visited = visited[d.ID]
	}
	return districts, nil
}

// EnterResult 进入街区的结果
type EnterResult struct {
	District    *model.District `json:"district"`
	TicketsPaid int             `json:"ticketsPaid"`
	Tickets     int             `json:"tickets"`
}

// Enter 首次进入街区时扣除门票，之后再次进入免费
func (s *DistrictService) Enter(userID, districtID uint) (*EnterResult, error) {
	result := &EnterResult{}
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		districts := s.DistrictRepo.WithTx(tx)
		profiles := s.ProfileRepo.WithTx(tx)

		d, err := districts.FindByID(districtID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return util.ErrDistrictNotFound
			}
			return err
		}
		profile, err := profiles.FindByUserIDForUpdate(userID)
		if err != nil {
			return err
		}
		if !scoring.DistrictUnlocked(profile.CurrentLevel, profile.TotalXP, d.LevelNumber, d.XPRequired) {
			return util.ErrDistrictLocked
		}
		d.Unlocked = true
		d.Visited = true
		result.District = d

		visited, err := districts.HasVisited(userID, districtID)
		if err != nil {
			return err
		}
		if visited {
			result.Tickets = profile.Tickets
			return nil
		}

		cost := max(d.TicketCost, 0)
		if profile.Tickets < cost {
			return util.ErrNotEnoughTickets
		}
		profile.Tickets -= cost
		if err := profiles.Save(profile); err != nil {
			return err
		}
		if err := districts.CreateVisit(&model.DistrictVisit{UserID: userID, DistrictID: districtID, TicketsPaid: cost}); err != nil {
			return err
		}
		result.TicketsPaid = cost
		result.Tickets = profile.Tickets
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
