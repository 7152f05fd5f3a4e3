package events

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEvent(t *testing.T) {
	ev := New(ExerciseScored, 7, map[string]interface{}{"score": 1.0})

	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, ExerciseScored, ev.Type)
	assert.Equal(t, uint(7), ev.UserID)
	assert.False(t, ev.OccurredAt.IsZero())

	body, err := json.Marshal(ev)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"type":"exercise.scored"`)
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	assert.NoError(t, p.Publish(context.Background(), New(QuestCompleted, 1, nil)))
	assert.NoError(t, p.Close())
}
