package scoring

import "time"

// StreakState 连续学习状态
type StreakState struct {
	Current      int        `json:"currentStreak"`
	Longest      int        `json:"longestStreak"`
	LastActivity *time.Time `json:"lastActivity,omitempty"`
}

// UpdateStreak 根据本次活动时间计算新的连续天数，不修改入参。
//
// 天数差按 now 所在时区的自然日计算：
// 无历史活动或间隔不少于 2 天重置为 1，间隔 1 天加 1，同一天保持不变。
func UpdateStreak(state StreakState, now time.Time) StreakState {
	current := max(state.Current, 0)
	longest := max(state.Longest, 0)

	if state.LastActivity == nil {
		current = 1
	} else {
		switch gap := DayGap(*state.LastActivity, now); {
		case gap >= 2:
			current = 1
		case gap == 1:
			current++
		default:
			// 同一天（或时钟回拨）保持不变，但今天已有活动，至少为 1
			current = max(current, 1)
		}
	}

	activity := now
	return StreakState{
		Current:      current,
		Longest:      max(longest, current),
		LastActivity: &activity,
	}
}

// DayGap 两个时间点之间相差的自然日数，以 now 的时区为准
func DayGap(last, now time.Time) int {
	ly, lm, ld := last.In(now.Location()).Date()
	ny, nm, nd := now.Date()
	from := time.Date(ly, lm, ld, 0, 0, 0, 0, time.UTC)
	to := time.Date(ny, nm, nd, 0, 0, 0, 0, time.UTC)
	return int(to.Sub(from).Hours() / 24)
}

// StreakBroken 当前时间看，连续记录是否已中断（用于展示，不落库）
func StreakBroken(state StreakState, now time.Time) bool {
	if state.LastActivity == nil {
		return state.Current > 0
	}
	return DayGap(*state.LastActivity, now) >= 2
}
