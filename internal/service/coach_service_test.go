package service

import (
	"context"
	"errors"
	"testing"

	"speakopoly_backend/internal/model"
	"speakopoly_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCoach struct {
	message string
	uc      CoachContext
	reply   string
	err     error
}

func (s *stubCoach) Coach(_ context.Context, message string, uc CoachContext) (string, error) {
	s.message = message
	s.uc = uc
	return s.reply, s.err
}

func TestCoachAsk(t *testing.T) {
	env := newTestEnv(t)
	userID := env.newUser(t, "oak")
	require.NoError(t, env.db.Model(&model.Profile{}).Where("user_id = ?", userID).
		Updates(map[string]interface{}{"total_xp": 120, "current_streak": 3, "current_level": 2}).Error)

	ai := &stubCoach{reply: "Lead with the outcome."}
	svc := NewCoachService(ai, env.users, env.profiles)

	reply, err := svc.Ask(context.Background(), userID, "  How do I open a pitch?  ")
	require.NoError(t, err)
	assert.Equal(t, "Lead with the outcome.", reply)
	assert.Equal(t, "How do I open a pitch?", ai.message)
	assert.Equal(t, CoachContext{Level: 2, TotalXP: 120, CurrentStreak: 3, Username: "oak"}, ai.uc)

	_, err = svc.Ask(context.Background(), 999, "hi")
	assert.ErrorIs(t, err, util.ErrUserNotFound)

	failure := &WebhookError{Kind: KindTimeout, Err: errors.New("deadline")}
	ai.err = failure
	_, err = svc.Ask(context.Background(), userID, "hi")
	var we *WebhookError
	require.ErrorAs(t, err, &we)
	assert.Equal(t, KindTimeout, we.Kind)
}
