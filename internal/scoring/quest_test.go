package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEvaluateQuest(t *testing.T) {
	tests := []struct {
		name      string
		req       QuestRequirement
		progress  QuestProgress
		completed bool
		ratio     float64
	}{
		{"no requirements", QuestRequirement{}, QuestProgress{}, true, 1},
		{"lessons met", QuestRequirement{Lessons: 3}, QuestProgress{Lessons: 4}, true, 1},
		{"lessons pending", QuestRequirement{Lessons: 4}, QuestProgress{Lessons: 1}, false, 0.25},
		{"all of several", QuestRequirement{Lessons: 2, XP: 100}, QuestProgress{Lessons: 2, XP: 50}, false, 0.75},
		{"streak met", QuestRequirement{Streak: 7}, QuestProgress{Streak: 7}, true, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			done, ratio := EvaluateQuest(tt.req, tt.progress)
			assert.Equal(t, tt.completed, done)
			assert.InDelta(t, tt.ratio, ratio, 1e-9)
		})
	}
}

func TestQuestExpired(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)

	assert.False(t, QuestExpired(nil, now))
	assert.True(t, QuestExpired(&past, now))
	assert.True(t, QuestExpired(&now, now))
	assert.False(t, QuestExpired(&future, now))
}

func TestQuestWindowStart(t *testing.T) {
	// 2024-05-01 是周三
	now := time.Date(2024, 5, 1, 15, 0, 0, 0, time.UTC)
	started := time.Date(2024, 4, 20, 8, 0, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), QuestWindowStart(QuestDaily, started, now))
	assert.Equal(t, time.Date(2024, 4, 29, 0, 0, 0, 0, time.UTC), QuestWindowStart(QuestWeekly, started, now))
	assert.Equal(t, started, QuestWindowStart(QuestSpecial, started, now))

	recent := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, recent, QuestWindowStart(QuestDaily, recent, now))
}
