package service

import (
	"context"
	"testing"

	"speakopoly_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompleteLesson(t *testing.T) {
	env := newTestEnv(t)
	userID := env.newUser(t, "lia")
	svc := env.lessonService()
	ctx := context.Background()

	first, err := svc.Complete(ctx, userID, env.lesson1.ID)
	require.NoError(t, err)
	assert.False(t, first.AlreadyCompleted)
	assert.Equal(t, 20, first.XPEarned)
	assert.Equal(t, 10, first.CoinsEarned)
	assert.False(t, first.LevelCompleted)
	assert.Nil(t, first.LevelUnlock)

	again, err := svc.Complete(ctx, userID, env.lesson1.ID)
	require.NoError(t, err)
	assert.True(t, again.AlreadyCompleted)
	assert.Equal(t, 0, again.XPEarned)
	assert.Equal(t, 20, again.TotalXP)

	last, err := svc.Complete(ctx, userID, env.lesson2.ID)
	require.NoError(t, err)
	assert.True(t, last.LevelCompleted)
	require.NotNil(t, last.LevelUnlock)
	assert.Equal(t, 2, last.LevelUnlock.NewLevel)
	assert.Equal(t, 50, last.LevelUnlock.CoinsEarned)
	assert.ElementsMatch(t, []string{"Level 2 Master", "Level 2 Coins"}, last.LevelUnlock.Rewards)
	assert.Equal(t, 2, last.CurrentLevel)

	p := env.profile(t, userID)
	assert.Equal(t, 35, p.TotalXP)
	// 10 + 7 from lessons, 50 from the level unlock
	assert.Equal(t, 67, p.Coins)
	assert.Equal(t, 2, p.CurrentLevel)

	rewards, err := NewRewardService(env.rewards).ListForUser(userID)
	require.NoError(t, err)
	assert.Len(t, rewards, 2)
}

func TestCompleteLessonLockedLevel(t *testing.T) {
	env := newTestEnv(t)
	userID := env.newUser(t, "max")

	_, err := env.lessonService().Complete(context.Background(), userID, env.lesson3.ID)
	assert.ErrorIs(t, err, util.ErrLevelLocked)

	_, err = env.lessonService().Complete(context.Background(), userID, 4242)
	assert.ErrorIs(t, err, util.ErrLessonNotFound)
}

func TestLevelRewardsGrantedOnce(t *testing.T) {
	env := newTestEnv(t)
	userID := env.newUser(t, "ned")
	rewards := NewRewardService(env.rewards)
	p := env.profile(t, userID)

	first, err := rewards.GrantLevelRewards(env.db, p, 3)
	require.NoError(t, err)
	assert.Equal(t, 50, first.CoinsEarned)
	assert.Len(t, first.Rewards, 2)

	second, err := rewards.GrantLevelRewards(env.db, p, 3)
	require.NoError(t, err)
	assert.Equal(t, 0, second.CoinsEarned)
	assert.Empty(t, second.Rewards)
	assert.Equal(t, 50, p.Coins)
}

func TestUnlockNextLevelStopsAtMax(t *testing.T) {
	env := newTestEnv(t)
	userID := env.newUser(t, "ola")
	p := env.profile(t, userID)
	p.CurrentLevel = 6

	unlock, err := NewRewardService(env.rewards).UnlockNextLevel(env.db, p, 6)
	require.NoError(t, err)
	assert.False(t, unlock.Unlocked)
	assert.Equal(t, 6, p.CurrentLevel)
}
