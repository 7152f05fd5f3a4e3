package controller

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"speakopoly_backend/internal/model"
	"speakopoly_backend/internal/service"
	"speakopoly_backend/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRespondError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"not found", util.ErrExerciseNotFound, http.StatusNotFound},
		{"wrapped sentinel", fmt.Errorf("submit: %w", util.ErrMaxAttemptsReached), http.StatusConflict},
		{"locked level", util.ErrLevelLocked, http.StatusForbidden},
		{"client scores", util.ErrClientScoresDenied, http.StatusForbidden},
		{"expired quest", util.ErrQuestExpired, http.StatusGone},
		{"tickets", util.ErrNotEnoughTickets, http.StatusPaymentRequired},
		{"workbook", fmt.Errorf("%w: zip: not a valid zip file", util.ErrInvalidWorkbook), http.StatusBadRequest},
		{"webhook timeout", &service.WebhookError{Kind: service.KindTimeout, Err: errors.New("deadline")}, http.StatusGatewayTimeout},
		{"webhook bad status", &service.WebhookError{Kind: service.KindBadStatus, StatusCode: 500, Err: errors.New("boom")}, http.StatusBadGateway},
		{"webhook unavailable", fmt.Errorf("score: %w", &service.WebhookError{Kind: service.KindUnavailable}), http.StatusBadGateway},
		{"unexpected", errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			ctx, _ := gin.CreateTestContext(w)
			respondError(ctx, tt.err)

			assert.Equal(t, tt.status, w.Code)
			var body util.Response
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.status, body.Code)
		})
	}
}

func TestWebhookErrorBody(t *testing.T) {
	w := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(w)
	respondError(ctx, &service.WebhookError{Kind: service.KindBadStatus, StatusCode: 503, Err: errors.New("down")})

	var body struct {
		Message string `json:"message"`
		Data    struct {
			Kind           string `json:"kind"`
			UpstreamStatus int    `json:"upstreamStatus"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "AI service error: bad_status", body.Message)
	assert.Equal(t, "bad_status", body.Data.Kind)
	assert.Equal(t, 503, body.Data.UpstreamStatus)
}

// withUser 模拟已通过鉴权的请求
func withUser(userID uint) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(util.ContextUserKey, &util.Claims{UserID: userID})
		c.Next()
	}
}

func TestSubmitMilestoneValidation(t *testing.T) {
	c := NewMilestoneController(nil, false)
	r := gin.New()
	r.POST("/api/milestones/:id/submit", withUser(7), c.SubmitMilestone)
	r.POST("/anon/milestones/:id/submit", c.SubmitMilestone)

	tests := []struct {
		name        string
		path        string
		contentType string
		body        string
		status      int
	}{
		{"invalid id", "/api/milestones/abc/submit", "application/json", `{"rubric_scores":{"clarity":1}}`, http.StatusBadRequest},
		{"json without scores", "/api/milestones/1/submit", "application/json", `{"duration":30}`, http.StatusBadRequest},
		{"malformed form scores", "/api/milestones/1/submit", "application/x-www-form-urlencoded", "rubric_scores=not-json", http.StatusBadRequest},
		{"no user", "/anon/milestones/1/submit", "application/json", `{}`, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, tt.path, strings.NewReader(tt.body))
			req.Header.Set("Content-Type", tt.contentType)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestMilestoneTrustsScores(t *testing.T) {
	tests := []struct {
		name   string
		allow  bool
		claims *util.Claims
		want   bool
	}{
		{"learner", false, &util.Claims{UserID: 7, Role: model.Learner}, false},
		{"admin", false, &util.Claims{UserID: 1, Role: model.Admin}, true},
		{"no claims", false, nil, false},
		{"learner with client scores enabled", true, &util.Claims{UserID: 7, Role: model.Learner}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, _ := gin.CreateTestContext(httptest.NewRecorder())
			if tt.claims != nil {
				ctx.Set(util.ContextUserKey, tt.claims)
			}
			c := NewMilestoneController(nil, tt.allow)
			assert.Equal(t, tt.want, c.trustsScores(ctx))
		})
	}
}
