package model

// District 地图上的街区，达到关卡与经验要求后可进入
// swagger:model District
type District struct {
	BaseModel
	LevelID          uint   `gorm:"index;not null" json:"levelId"`
	Name             string `gorm:"size:200;uniqueIndex;not null" json:"name"`
	Description      string `gorm:"type:text" json:"description"`
	Image            string `gorm:"size:500" json:"image"`
	CoachName        string `gorm:"size:100" json:"coachName"`
	CoachDescription string `gorm:"type:text" json:"coachDescription"`
	XPRequired       int    `gorm:"default:0" json:"xpRequired"`
	TicketCost       int    `gorm:"default:1" json:"ticketCost"`
	LevelNumber      int    `gorm:"-" json:"levelNumber"`
	Unlocked         bool   `gorm:"-" json:"unlocked"`
	Visited          bool   `gorm:"-" json:"visited"`
}

func (District) TableName() string {
	return "districts"
}

// DistrictVisit 首次进入街区的记录，门票只扣一次
type DistrictVisit struct {
	BaseModel
	UserID      uint `gorm:"uniqueIndex:idx_user_district;not null" json:"userId"`
	DistrictID  uint `gorm:"uniqueIndex:idx_user_district;not null" json:"districtId"`
	TicketsPaid int  `json:"ticketsPaid"`
}

func (DistrictVisit) TableName() string {
	return "district_visits"
}
