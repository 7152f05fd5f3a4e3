package scoring

// MaxLevel 课程总关卡数
const MaxLevel = 6

// LevelUnlockCoins 解锁新关卡奖励的金币
const LevelUnlockCoins = 50

// League 排行榜段位
type League string

const (
	LeagueBronze  League = "bronze"
	LeagueSilver  League = "silver"
	LeagueGold    League = "gold"
	LeagueDiamond League = "diamond"
)

// leagueFloors 各段位的最低总经验，从高到低
var leagueFloors = []struct {
	league League
	xp     int
}{
	{LeagueDiamond, 5000},
	{LeagueGold, 1500},
	{LeagueSilver, 500},
}

// LeagueFor 根据总经验确定段位
func LeagueFor(totalXP int) League {
	for _, f := range leagueFloors {
		if totalXP >= f.xp {
			return f.league
		}
	}
	return LeagueBronze
}

// NextLevel 升一级，不超过 maxLevel
func NextLevel(current, maxLevel int) int {
	if maxLevel <= 0 {
		maxLevel = MaxLevel
	}
	return min(max(current, 0)+1, maxLevel)
}

// LevelUnlocked 关卡编号不超过当前等级即为已解锁
func LevelUnlocked(levelNumber, currentLevel int) bool {
	return levelNumber <= max(currentLevel, 1)
}

// DistrictUnlocked 等级达到且总经验不低于要求
func DistrictUnlocked(currentLevel, totalXP, districtLevel, xpRequired int) bool {
	return LevelUnlocked(districtLevel, currentLevel) && totalXP >= xpRequired
}
