package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGradeMilestone(t *testing.T) {
	scores := map[string]float64{"clarity": 0.8, "structure": 0.7, "presence": 0.9, "influence": 0.6}

	t.Run("per challenge weights", func(t *testing.T) {
		weights := map[string]float64{"clarity": 0.3, "presence": 0.3, "structure": 0.2, "influence": 0.2}
		g := GradeMilestone(scores, weights, 0.7)
		assert.InDelta(t, 0.77, g.Overall, 1e-9)
		assert.True(t, g.Passed)
	})

	t.Run("default weights when none configured", func(t *testing.T) {
		g := GradeMilestone(scores, nil, 0)
		assert.InDelta(t, 0.75, g.Overall, 1e-9)
		assert.True(t, g.Passed)
	})

	t.Run("equal weights for custom rubric", func(t *testing.T) {
		g := GradeMilestone(map[string]float64{"hook": 0.4, "ask": 0.6}, nil, 0.7)
		assert.InDelta(t, 0.5, g.Overall, 1e-9)
		assert.False(t, g.Passed)
	})

	t.Run("empty rubric is neutral failure", func(t *testing.T) {
		g := GradeMilestone(nil, DefaultRubricWeights, 0.7)
		assert.Zero(t, g.Overall)
		assert.False(t, g.Passed)
		assert.NotNil(t, g.RubricScores)
	})

	t.Run("missing criterion counts as zero", func(t *testing.T) {
		g := GradeMilestone(map[string]float64{"clarity": 1, "structure": 1}, DefaultRubricWeights, 0.7)
		assert.InDelta(t, 0.6, g.Overall, 1e-9)
		assert.False(t, g.Passed)
	})

	t.Run("unweighted criterion ignored", func(t *testing.T) {
		g := GradeMilestone(map[string]float64{"clarity": 1, "bonus": 1}, map[string]float64{"clarity": 1}, 0.7)
		assert.InDelta(t, 1.0, g.Overall, 1e-9)
	})

	t.Run("out of range scores clamped", func(t *testing.T) {
		g := GradeMilestone(map[string]float64{"clarity": 3, "structure": -1}, map[string]float64{"clarity": 0.5, "structure": 0.5}, 0.7)
		assert.InDelta(t, 0.5, g.Overall, 1e-9)
		assert.Equal(t, 1.0, g.RubricScores["clarity"])
		assert.Equal(t, 0.0, g.RubricScores["structure"])
	})

	t.Run("boundary passes", func(t *testing.T) {
		all := map[string]float64{"clarity": 0.7, "structure": 0.7, "presence": 0.7, "influence": 0.7}
		g := GradeMilestone(all, DefaultRubricWeights, 0.7)
		assert.True(t, g.Passed)
	})
}

func TestMilestoneReward(t *testing.T) {
	xp, coins := MilestoneReward(50, 20, true)
	assert.Equal(t, 50, xp)
	assert.Equal(t, 20, coins)

	xp, coins = MilestoneReward(51, 20, false)
	assert.Equal(t, 25, xp)
	assert.Equal(t, 0, coins)
}
