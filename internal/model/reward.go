package model

type RewardType string

const (
	RewardBadge  RewardType = "badge"
	RewardCoin   RewardType = "coin"
	RewardGem    RewardType = "gem"
	RewardTicket RewardType = "ticket"
)

// Reward 奖励定义
type Reward struct {
	BaseModel
	Name          string     `gorm:"size:100;uniqueIndex;not null" json:"name"`
	RewardType    RewardType `gorm:"size:20;not null" json:"rewardType"`
	Description   string     `gorm:"type:text" json:"description"`
	Icon          string     `gorm:"size:255" json:"icon"`
	LevelRequired int        `gorm:"default:1" json:"levelRequired"`
}

func (Reward) TableName() string {
	return "rewards"
}

// UserReward 用户获得的奖励
type UserReward struct {
	BaseModel
	UserID   uint    `gorm:"uniqueIndex:idx_user_reward;not null" json:"userId"`
	RewardID uint    `gorm:"uniqueIndex:idx_user_reward;not null" json:"rewardId"`
	Quantity int     `gorm:"default:1" json:"quantity"`
	Reward   *Reward `gorm:"foreignKey:RewardID" json:"reward,omitempty"`
}

func (UserReward) TableName() string {
	return "user_rewards"
}
