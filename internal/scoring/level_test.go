package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLeagueFor(t *testing.T) {
	assert.Equal(t, LeagueBronze, LeagueFor(0))
	assert.Equal(t, LeagueBronze, LeagueFor(499))
	assert.Equal(t, LeagueSilver, LeagueFor(500))
	assert.Equal(t, LeagueGold, LeagueFor(1500))
	assert.Equal(t, LeagueDiamond, LeagueFor(5000))
}

func TestNextLevel(t *testing.T) {
	assert.Equal(t, 2, NextLevel(1, MaxLevel))
	assert.Equal(t, 6, NextLevel(6, MaxLevel))
	assert.Equal(t, 6, NextLevel(5, 0))
	assert.Equal(t, 1, NextLevel(-3, MaxLevel))
}

func TestDistrictUnlocked(t *testing.T) {
	assert.True(t, DistrictUnlocked(1, 0, 1, 0))
	assert.False(t, DistrictUnlocked(1, 500, 2, 100))
	assert.False(t, DistrictUnlocked(3, 99, 2, 100))
	assert.True(t, DistrictUnlocked(3, 100, 2, 100))
	assert.True(t, LevelUnlocked(1, 0))
}
