package scoring

// 连胜倍率：每天 +0.1，封顶 2.0。以十分位整数计算，避免浮点舍入影响取整
const (
	multiplierBaseTenths = 10
	multiplierCapTenths  = 20
)

// XPClamp 单题基础经验的取值区间
type XPClamp struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// DefaultXPClamp 默认单题经验区间 [5,10]
var DefaultXPClamp = XPClamp{Min: 5, Max: 10}

// Apply 将基础经验限制在区间内；Max 小于 Min 时以 Min 为准
func (c XPClamp) Apply(xp int) int {
	hi := max(c.Max, c.Min)
	return min(max(xp, c.Min), hi)
}

// Award 一次作答获得的奖励
type Award struct {
	XP         int     `json:"xpEarned"`
	Coins      int     `json:"coinsEarned"`
	Multiplier float64 `json:"multiplier"`
}

// StreakMultiplier 连胜倍率 min(1 + 0.1*streak, 2.0)
func StreakMultiplier(streak int) float64 {
	return float64(multiplierTenths(streak)) / 10
}

func multiplierTenths(streak int) int {
	return min(multiplierBaseTenths+max(streak, 0), multiplierCapTenths)
}

// AwardProgression 计算正确作答的经验与金币：
// 经验 = floor(clamp(base) * 倍率)，金币 = 经验 / 2
func AwardProgression(baseXP int, clamp XPClamp, streak int) Award {
	base := clamp.Apply(baseXP)
	xp := base * multiplierTenths(streak) / multiplierBaseTenths
	return Award{
		XP:         xp,
		Coins:      xp / 2,
		Multiplier: StreakMultiplier(streak),
	}
}

// AwardForScore 仅在答题正确时发放奖励
func AwardForScore(score float64, baseXP int, clamp XPClamp, streak int) Award {
	if !IsCorrect(score) {
		return Award{Multiplier: StreakMultiplier(streak)}
	}
	return AwardProgression(baseXP, clamp, streak)
}
