package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"speakopoly_backend/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryReplyCache struct {
	mu    sync.Mutex
	items map[string]string
}

func newMemoryReplyCache() *memoryReplyCache {
	return &memoryReplyCache{items: map[string]string{}}
}

func (c *memoryReplyCache) Get(_ context.Context, key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.items[key]
	return v, ok
}

func (c *memoryReplyCache) Set(_ context.Context, key, value string, _ time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = value
}

func testAIConfig(url string, attempts int) config.AIConfig {
	return config.AIConfig{
		ChatWebhookURL:    url,
		AudioScoreURL:     url,
		MilestoneScoreURL: url,
		APIKey:            "secret",
		Timeout:           200 * time.Millisecond,
		Retry: config.RetryConfig{
			MaxAttempts:    attempts,
			InitialDelayMS: 1,
			MaxDelayMS:     5,
			Multiplier:     2,
		},
		ReplyCacheTTLMinutes: 5,
	}
}

func TestExtractReply(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"response key", `{"response":"Great pacing!"}`, "Great pacing!"},
		{"message before text", `{"text":"second","message":"first"}`, "first"},
		{"skips blank keys", `{"response":"  ","answer":"Use pauses"}`, "Use pauses"},
		{"output key", `{"output":"Slow down"}`, "Slow down"},
		{"openai style choices", `{"choices":[{"message":{"content":"Breathe first"}}]}`, "Breathe first"},
		{"choice text", `{"choices":[{"text":"Smile"}]}`, "Smile"},
		{"first string field in order", `{"id":7,"reply_text":"Project your voice","other":"x"}`, "Project your voice"},
		{"plain text body", "Just keep practicing", "Just keep practicing"},
		{"json string", `"Make eye contact"`, "Make eye contact"},
		{"array of strings", `["Tell a story","ignored"]`, "Tell a story"},
		{"no strings", `{"n":1}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := extractReply([]byte(tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := extractReply([]byte("   "))
	assert.Error(t, err)
}

func TestCoachSendsContextAndCachesReply(t *testing.T) {
	var received map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.Write([]byte(`{"response":"Open with a question."}`))
	}))
	defer srv.Close()

	cache := newMemoryReplyCache()
	ai := NewAIService(testAIConfig(srv.URL, 1), cache)

	reply, err := ai.Coach(context.Background(), "How do I  START?", CoachContext{Level: 2, TotalXP: 120, CurrentStreak: 3, Username: "ana"})
	require.NoError(t, err)
	assert.Equal(t, "Open with a question.", reply)

	assert.Equal(t, "How do I  START?", received["message"])
	uc := received["user_context"].(map[string]interface{})
	assert.Equal(t, float64(2), uc["level"])
	assert.Equal(t, float64(120), uc["total_xp"])
	assert.Equal(t, float64(3), uc["current_streak"])

	cached, ok := cache.Get(context.Background(), replyCacheKey("how do i start?"))
	assert.True(t, ok)
	assert.Equal(t, "Open with a question.", cached)
}

func TestCoachFallbacks(t *testing.T) {
	t.Run("empty reply returns fallback text", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"status":42}`))
		}))
		defer srv.Close()

		reply, err := NewAIService(testAIConfig(srv.URL, 1), nil).Coach(context.Background(), "hi", CoachContext{})
		require.NoError(t, err)
		assert.Equal(t, FallbackCoachReply, reply)
	})

	t.Run("failure serves cached reply", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		cache := newMemoryReplyCache()
		cache.Set(context.Background(), replyCacheKey("hello"), "cached advice", time.Minute)

		reply, err := NewAIService(testAIConfig(srv.URL, 1), cache).Coach(context.Background(), "Hello", CoachContext{})
		require.NoError(t, err)
		assert.Equal(t, "cached advice", reply)
	})

	t.Run("failure without cache is typed", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
		}))
		defer srv.Close()

		_, err := NewAIService(testAIConfig(srv.URL, 1), newMemoryReplyCache()).Coach(context.Background(), "hello", CoachContext{})
		var we *WebhookError
		require.True(t, errors.As(err, &we))
		assert.Equal(t, KindBadStatus, we.Kind)
		assert.Equal(t, http.StatusBadRequest, we.StatusCode)
	})
}

func TestWebhookErrorKinds(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		kind    WebhookErrorKind
		status  int
	}{
		{
			name: "timeout",
			handler: func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-r.Context().Done():
				case <-time.After(time.Second):
				}
			},
			kind: KindTimeout,
		},
		{
			name: "bad status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
			kind:   KindBadStatus,
			status: http.StatusInternalServerError,
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"score":`))
			},
			kind: KindMalformedBody,
		},
		{
			name: "missing score",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"feedback":"ok"}`))
			},
			kind: KindMalformedBody,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			ai := NewAIService(testAIConfig(srv.URL, 1), nil)
			_, err := ai.ScoreAudio(context.Background(), AudioScoreRequest{ExerciseID: 1, Kind: "speak"})

			var we *WebhookError
			require.True(t, errors.As(err, &we), "got %v", err)
			assert.Equal(t, tt.kind, we.Kind)
			assert.Equal(t, tt.status, we.StatusCode)
		})
	}
}

func TestUnconfiguredWebhookIsUnavailable(t *testing.T) {
	ai := NewAIService(testAIConfig("", 1), nil)
	_, err := ai.ScoreMilestone(context.Background(), MilestoneScoreRequest{MilestoneID: 1})

	var we *WebhookError
	require.True(t, errors.As(err, &we))
	assert.Equal(t, KindUnavailable, we.Kind)
}

func TestRetryPolicy(t *testing.T) {
	t.Run("retries server errors then succeeds", func(t *testing.T) {
		var hits int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if atomic.AddInt32(&hits, 1) == 1 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.Write([]byte(`{"score":1.4}`))
		}))
		defer srv.Close()

		score, err := NewAIService(testAIConfig(srv.URL, 3), nil).ScoreAudio(context.Background(), AudioScoreRequest{})
		require.NoError(t, err)
		assert.Equal(t, 1.0, score)
		assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
	})

	t.Run("client errors are not retried", func(t *testing.T) {
		var hits int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&hits, 1)
			w.WriteHeader(http.StatusUnprocessableEntity)
		}))
		defer srv.Close()

		_, err := NewAIService(testAIConfig(srv.URL, 3), nil).ScoreAudio(context.Background(), AudioScoreRequest{})
		require.Error(t, err)
		assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
	})

	t.Run("too many requests is retried", func(t *testing.T) {
		var hits int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&hits, 1)
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer srv.Close()

		_, err := NewAIService(testAIConfig(srv.URL, 3), nil).ScoreAudio(context.Background(), AudioScoreRequest{})
		var we *WebhookError
		require.True(t, errors.As(err, &we))
		assert.Equal(t, http.StatusTooManyRequests, we.StatusCode)
		assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
	})
}

func TestRetryableKinds(t *testing.T) {
	tests := []struct {
		err  WebhookError
		want bool
	}{
		{WebhookError{Kind: KindTimeout}, true},
		{WebhookError{Kind: KindUnavailable}, true},
		{WebhookError{Kind: KindBadStatus, StatusCode: 502}, true},
		{WebhookError{Kind: KindBadStatus, StatusCode: 429}, true},
		{WebhookError{Kind: KindBadStatus, StatusCode: 404}, false},
		{WebhookError{Kind: KindMalformedBody}, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.err.Kind), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Retryable())
		})
	}
}

func TestScoreMilestone(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req MilestoneScoreRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"clarity", "structure"}, req.Criteria)
		w.Write([]byte(`{"rubric_scores":{"clarity":0.9,"structure":1.3},"feedback":"Strong close"}`))
	}))
	defer srv.Close()

	res, err := NewAIService(testAIConfig(srv.URL, 1), nil).ScoreMilestone(context.Background(), MilestoneScoreRequest{
		MilestoneID: 3,
		Criteria:    []string{"clarity", "structure"},
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"clarity": 0.9, "structure": 1.0}, res.Scores)
	assert.Equal(t, "Strong close", res.Feedback)
}

func TestRetryPolicyDefaults(t *testing.T) {
	p := retryPolicy(config.RetryConfig{})
	assert.Equal(t, 3, p.MaxAttempts)
	assert.Equal(t, 200, p.InitialDelayMS)
	assert.Equal(t, 2000, p.MaxDelayMS)
	assert.Equal(t, 2.0, p.Multiplier)
}
