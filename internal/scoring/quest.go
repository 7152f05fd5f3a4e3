package scoring

import "time"

// QuestType 任务周期
type QuestType string

const (
	QuestDaily   QuestType = "daily"
	QuestWeekly  QuestType = "weekly"
	QuestSpecial QuestType = "special"
)

// QuestRequirement 任务要求，0 表示不要求该项
type QuestRequirement struct {
	Lessons int `json:"lessons,omitempty"`
	XP      int `json:"xp,omitempty"`
	Streak  int `json:"streak,omitempty"`
}

// Empty 没有任何要求
func (r QuestRequirement) Empty() bool {
	return r.Lessons <= 0 && r.XP <= 0 && r.Streak <= 0
}

// QuestProgress 自任务开始以来的进度
type QuestProgress struct {
	Lessons int `json:"lessons"`
	XP      int `json:"xp"`
	Streak  int `json:"streak"`
}

// EvaluateQuest 所有要求均达成才算完成；ratio 为各项完成度的平均值
func EvaluateQuest(req QuestRequirement, progress QuestProgress) (bool, float64) {
	if req.Empty() {
		return true, 1
	}

	total, n := 0.0, 0
	completed := true
	check := func(target, actual int) {
		if target <= 0 {
			return
		}
		n++
		total += Clamp01(float64(actual) / float64(target))
		if actual < target {
			completed = false
		}
	}
	check(req.Lessons, progress.Lessons)
	check(req.XP, progress.XP)
	check(req.Streak, progress.Streak)

	return completed, total / float64(n)
}

// QuestExpired expiresAt 为空表示长期有效
func QuestExpired(expiresAt *time.Time, now time.Time) bool {
	return expiresAt != nil && !now.Before(*expiresAt)
}

// QuestWindowStart 每日任务从当天零点算起，每周任务从本周一零点算起
func QuestWindowStart(t QuestType, startedAt, now time.Time) time.Time {
	y, m, d := now.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	var from time.Time
	switch t {
	case QuestDaily:
		from = day
	case QuestWeekly:
		offset := (int(day.Weekday()) + 6) % 7
		from = day.AddDate(0, 0, -offset)
	default:
		return startedAt
	}
	if startedAt.After(from) {
		return startedAt
	}
	return from
}
