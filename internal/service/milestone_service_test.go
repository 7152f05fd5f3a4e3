package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"speakopoly_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubMilestoneScorer struct {
	result *MilestoneScoreResult
	err    error
	req    MilestoneScoreRequest
	calls  int
}

func (s *stubMilestoneScorer) ScoreMilestone(_ context.Context, req MilestoneScoreRequest) (*MilestoneScoreResult, error) {
	s.req = req
	s.calls++
	return s.result, s.err
}

type memoryRecordingStore struct {
	stored  []string
	deleted []string
}

func (m *memoryRecordingStore) StoreRecording(_ context.Context, userID uint, filename, localPath, contentType string) (string, string, error) {
	key := RecordingKey(userID, filename, time.Now())
	m.stored = append(m.stored, key)
	return key, "https://cdn.example.com/" + key, nil
}

func (m *memoryRecordingStore) Delete(_ context.Context, key string) error {
	m.deleted = append(m.deleted, key)
	return nil
}

type rankCall struct {
	userID  uint
	totalXP int
}

type recordingRanks struct {
	calls []rankCall
}

func (r *recordingRanks) Update(_ context.Context, userID uint, totalXP int) {
	r.calls = append(r.calls, rankCall{userID: userID, totalXP: totalXP})
}

func scores(v float64) map[string]float64 {
	return map[string]float64{"clarity": v, "structure": v, "presence": v, "influence": v}
}

func TestSubmitMilestoneWithRubricScores(t *testing.T) {
	t.Run("pass awards full reward and advances the level", func(t *testing.T) {
		env := newTestEnv(t)
		userID := env.newUser(t, "pia")

		res, err := env.milestoneService(nil, nil).Submit(context.Background(), userID, env.milestone1.ID,
			MilestoneSubmission{RubricScores: scores(0.9), DurationSeconds: 31, TrustedScores: true})
		require.NoError(t, err)

		assert.True(t, res.IsPassed)
		assert.InDelta(t, 0.9, res.OverallScore, 1e-9)
		assert.Equal(t, 50, res.XPEarned)
		assert.Equal(t, 20, res.CoinsEarned)
		require.NotNil(t, res.LevelUnlock)
		assert.Equal(t, 2, res.CurrentLevel)

		p := env.profile(t, userID)
		assert.Equal(t, 50, p.TotalXP)
		assert.Equal(t, 70, p.Coins)
		assert.Equal(t, 2, p.CurrentLevel)
	})

	t.Run("fail earns half xp and no coins", func(t *testing.T) {
		env := newTestEnv(t)
		userID := env.newUser(t, "quin")

		res, err := env.milestoneService(nil, nil).Submit(context.Background(), userID, env.milestone1.ID,
			MilestoneSubmission{RubricScores: scores(0.5), TrustedScores: true})
		require.NoError(t, err)

		assert.False(t, res.IsPassed)
		assert.Equal(t, 25, res.XPEarned)
		assert.Equal(t, 0, res.CoinsEarned)
		assert.Nil(t, res.LevelUnlock)
		assert.Equal(t, 1, env.profile(t, userID).CurrentLevel)
	})

	t.Run("passing again earns nothing", func(t *testing.T) {
		env := newTestEnv(t)
		userID := env.newUser(t, "rae")
		svc := env.milestoneService(nil, nil)

		_, err := svc.Submit(context.Background(), userID, env.milestone1.ID, MilestoneSubmission{RubricScores: scores(1), TrustedScores: true})
		require.NoError(t, err)
		again, err := svc.Submit(context.Background(), userID, env.milestone1.ID, MilestoneSubmission{RubricScores: scores(1), TrustedScores: true})
		require.NoError(t, err)

		assert.True(t, again.IsPassed)
		assert.Equal(t, 0, again.XPEarned)
		assert.Nil(t, again.LevelUnlock)

		view, err := svc.GetForLevel(userID, env.level1.ID)
		require.NoError(t, err)
		assert.True(t, view.Passed)
		assert.Len(t, view.Attempts, 2)
	})

	t.Run("recording or scores required", func(t *testing.T) {
		env := newTestEnv(t)
		userID := env.newUser(t, "sol")

		_, err := env.milestoneService(nil, nil).Submit(context.Background(), userID, env.milestone1.ID, MilestoneSubmission{})
		assert.ErrorIs(t, err, util.ErrRubricRequired)
	})

	t.Run("untrusted scores are rejected", func(t *testing.T) {
		env := newTestEnv(t)
		userID := env.newUser(t, "uma")
		scorer := &stubMilestoneScorer{}
		svc := env.milestoneService(scorer, nil)

		_, err := svc.Submit(context.Background(), userID, env.milestone1.ID,
			MilestoneSubmission{RubricScores: scores(1), DurationSeconds: 30})
		assert.ErrorIs(t, err, util.ErrClientScoresDenied)
		assert.Zero(t, scorer.calls)

		p := env.profile(t, userID)
		assert.Equal(t, 0, p.TotalXP)
		assert.Equal(t, 1, p.CurrentLevel)
		view, err := svc.GetForLevel(userID, env.level1.ID)
		require.NoError(t, err)
		assert.Empty(t, view.Attempts)
	})

	t.Run("leaderboard updated once with committed xp", func(t *testing.T) {
		env := newTestEnv(t)
		userID := env.newUser(t, "vic")
		ranks := &recordingRanks{}
		svc := env.milestoneService(nil, nil)
		svc.Leaderboard = ranks

		_, err := svc.Submit(context.Background(), userID, env.milestone1.ID, MilestoneSubmission{RubricScores: scores(1), TrustedScores: true})
		require.NoError(t, err)
		_, err = svc.Submit(context.Background(), userID, env.milestone1.ID, MilestoneSubmission{RubricScores: scores(1), TrustedScores: true})
		require.NoError(t, err)

		require.Len(t, ranks.calls, 1)
		assert.Equal(t, rankCall{userID: userID, totalXP: 50}, ranks.calls[0])
		assert.Equal(t, 50, env.profile(t, userID).TotalXP)
	})

	t.Run("unknown milestone", func(t *testing.T) {
		env := newTestEnv(t)
		userID := env.newUser(t, "tia")

		_, err := env.milestoneService(nil, nil).Submit(context.Background(), userID, 777, MilestoneSubmission{RubricScores: scores(1), TrustedScores: true})
		assert.ErrorIs(t, err, util.ErrMilestoneNotFound)
	})
}

func TestSubmitMilestoneRecording(t *testing.T) {
	recording := filepath.Join(t.TempDir(), "intro.webm")
	require.NoError(t, os.WriteFile(recording, []byte("fake audio"), 0o644))

	t.Run("stores, probes and scores the recording", func(t *testing.T) {
		env := newTestEnv(t)
		userID := env.newUser(t, "uma")
		scorer := &stubMilestoneScorer{result: &MilestoneScoreResult{Scores: scores(0.8), Feedback: "Confident opening"}}
		store := &memoryRecordingStore{}
		svc := env.milestoneService(scorer, store)
		svc.Probe = func(string) (*util.AudioInfo, error) { return &util.AudioInfo{Duration: 29.5}, nil }

		res, err := svc.Submit(context.Background(), userID, env.milestone1.ID, MilestoneSubmission{
			RecordingPath: recording,
			Filename:      "intro.webm",
			ContentType:   "audio/webm",
		})
		require.NoError(t, err)

		require.Len(t, store.stored, 1)
		assert.Equal(t, "https://cdn.example.com/"+store.stored[0], res.AudioURL)
		assert.Equal(t, 29.5, res.DurationSeconds)
		assert.Equal(t, "Confident opening", res.Feedback)
		assert.True(t, res.IsPassed)
		assert.Equal(t, []string{"clarity", "influence", "presence", "structure"}, scorer.req.Criteria)
		assert.Equal(t, res.AudioURL, scorer.req.AudioURL)
		assert.Empty(t, store.deleted)
	})

	t.Run("scorer failure discards the recording", func(t *testing.T) {
		env := newTestEnv(t)
		userID := env.newUser(t, "vic")
		scorer := &stubMilestoneScorer{err: &WebhookError{Op: opScoreMilestone, Kind: KindBadStatus, StatusCode: 503, Err: errors.New("down")}}
		store := &memoryRecordingStore{}

		_, err := env.milestoneService(scorer, store).Submit(context.Background(), userID, env.milestone1.ID, MilestoneSubmission{
			RecordingPath: recording,
			Filename:      "intro.webm",
		})
		var we *WebhookError
		require.True(t, errors.As(err, &we))
		assert.Equal(t, 503, we.StatusCode)
		assert.Equal(t, store.stored, store.deleted)

		attempts, err := env.milestones.ListAttempts(userID, env.milestone1.ID)
		require.NoError(t, err)
		assert.Empty(t, attempts)
	})
}

func TestGetMilestoneForLockedLevel(t *testing.T) {
	env := newTestEnv(t)
	userID := env.newUser(t, "wes")

	_, err := env.milestoneService(nil, nil).GetForLevel(userID, env.level2.ID)
	assert.ErrorIs(t, err, util.ErrLevelLocked)
}
