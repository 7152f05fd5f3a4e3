package service

import (
	"testing"

	"speakopoly_backend/internal/model"
	"speakopoly_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnterDistrict(t *testing.T) {
	env := newTestEnv(t)
	userID := env.newUser(t, "zed")
	svc := NewDistrictService(env.db, env.districts, env.profiles)

	first, err := svc.Enter(userID, env.district1.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, first.TicketsPaid)
	assert.Equal(t, 2, first.Tickets)

	second, err := svc.Enter(userID, env.district1.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, second.TicketsPaid)
	assert.Equal(t, 2, second.Tickets)

	_, err = svc.Enter(userID, env.district2.ID)
	assert.ErrorIs(t, err, util.ErrDistrictLocked)

	_, err = svc.Enter(userID, 999)
	assert.ErrorIs(t, err, util.ErrDistrictNotFound)

	list, err := svc.List(userID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	byName := map[string]model.District{}
	for _, d := range list {
		byName[d.Name] = d
	}
	assert.True(t, byName["Foundations District"].Unlocked)
	assert.True(t, byName["Foundations District"].Visited)
	assert.Equal(t, 1, byName["Foundations District"].LevelNumber)
	assert.False(t, byName["Structure District"].Unlocked)
}

func TestEnterDistrictNeedsTickets(t *testing.T) {
	env := newTestEnv(t)
	userID := env.newUser(t, "amy")
	require.NoError(t, env.db.Model(&model.Profile{}).Where("user_id = ?", userID).Update("tickets", 0).Error)

	_, err := NewDistrictService(env.db, env.districts, env.profiles).Enter(userID, env.district1.ID)
	assert.ErrorIs(t, err, util.ErrNotEnoughTickets)

	visited, err := env.districts.HasVisited(userID, env.district1.ID)
	require.NoError(t, err)
	assert.False(t, visited)
}
