package service

import (
	"context"
	"testing"
	"time"

	"speakopoly_backend/internal/model"
	"speakopoly_backend/internal/scoring"
	"speakopoly_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuestLifecycle(t *testing.T) {
	env := newTestEnv(t)
	userID := env.newUser(t, "xia")
	svc := env.questService()
	ctx := context.Background()

	expires := time.Now().UTC().Add(24 * time.Hour)
	quest := &model.Quest{Name: "Morning Warm-up", QuestType: scoring.QuestDaily, RequiredLessons: 1,
		XPReward: 25, CoinsReward: 10, GemsReward: 1, IsActive: true, ExpiresAt: &expires}
	env.create(t, quest)

	_, err := svc.Complete(ctx, userID, quest.ID)
	assert.ErrorIs(t, err, util.ErrQuestNotStarted)

	uq, err := svc.Start(userID, quest.ID)
	require.NoError(t, err)
	assert.False(t, uq.IsCompleted)

	again, err := svc.Start(userID, quest.ID)
	require.NoError(t, err)
	assert.Equal(t, uq.ID, again.ID)

	_, err = svc.Complete(ctx, userID, quest.ID)
	assert.ErrorIs(t, err, util.ErrQuestIncomplete)

	_, err = env.lessonService().Complete(ctx, userID, env.lesson1.ID)
	require.NoError(t, err)

	views, err := svc.List(userID)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.True(t, views[0].Started)
	assert.True(t, views[0].CanComplete)
	assert.Equal(t, 1, views[0].Progress.Lessons)
	assert.Equal(t, 20, views[0].Progress.XP)
	assert.Equal(t, 1.0, views[0].Ratio)

	reward, err := svc.Complete(ctx, userID, quest.ID)
	require.NoError(t, err)
	assert.False(t, reward.AlreadyCompleted)
	assert.Equal(t, 25, reward.XPEarned)
	assert.Equal(t, 10, reward.CoinsEarned)
	assert.Equal(t, 1, reward.GemsEarned)

	p := env.profile(t, userID)
	assert.Equal(t, 45, p.TotalXP)
	assert.Equal(t, 20, p.Coins)
	assert.Equal(t, 1, p.Gems)

	repeat, err := svc.Complete(ctx, userID, quest.ID)
	require.NoError(t, err)
	assert.True(t, repeat.AlreadyCompleted)
	assert.Equal(t, 45, env.profile(t, userID).TotalXP)

	views, err = svc.List(userID)
	require.NoError(t, err)
	assert.True(t, views[0].Completed)
	assert.False(t, views[0].CanComplete)
}

func TestExpiredQuests(t *testing.T) {
	env := newTestEnv(t)
	userID := env.newUser(t, "yan")
	svc := env.questService()

	past := time.Now().UTC().Add(-time.Hour)
	future := time.Now().UTC().Add(time.Hour)
	expired := &model.Quest{Name: "Yesterday", QuestType: scoring.QuestDaily, RequiredLessons: 1, IsActive: true, ExpiresAt: &past}
	open := &model.Quest{Name: "Today", QuestType: scoring.QuestDaily, RequiredLessons: 1, IsActive: true, ExpiresAt: &future}
	env.create(t, expired)
	env.create(t, open)

	_, err := svc.Start(userID, expired.ID)
	assert.ErrorIs(t, err, util.ErrQuestExpired)

	_, err = svc.Start(userID, 12345)
	assert.ErrorIs(t, err, util.ErrQuestNotFound)

	views, err := svc.List(userID)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "Today", views[0].Quest.Name)

	n, err := svc.ExpireQuests(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	q, err := env.quests.FindByID(expired.ID)
	require.NoError(t, err)
	assert.False(t, q.IsActive)
}

func TestCompletedThisWindow(t *testing.T) {
	now := time.Date(2026, 3, 12, 15, 0, 0, 0, time.UTC) // Thursday
	yesterday := now.Add(-24 * time.Hour)
	monday := time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		questType scoring.QuestType
		done      *time.Time
		want      bool
	}{
		{"daily completed today", scoring.QuestDaily, &now, true},
		{"daily completed yesterday resets", scoring.QuestDaily, &yesterday, false},
		{"weekly completed this monday", scoring.QuestWeekly, &monday, true},
		{"never completed", scoring.QuestWeekly, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := &model.Quest{QuestType: tt.questType}
			uq := &model.UserQuest{IsCompleted: tt.done != nil, CompletedAt: tt.done}
			assert.Equal(t, tt.want, completedThisWindow(q, uq, now))
		})
	}
}
