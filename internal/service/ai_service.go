package service

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"speakopoly_backend/internal/config"
	"speakopoly_backend/internal/scoring"
	"speakopoly_backend/pkg/logger"
	"speakopoly_backend/pkg/monitoring"
	"speakopoly_backend/pkg/tracing"

	"github.com/felixgeelhaar/fortify/circuitbreaker"
	"github.com/felixgeelhaar/fortify/retry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// WebhookErrorKind 外部 AI 调用的失败类型
type WebhookErrorKind string

const (
	KindTimeout       WebhookErrorKind = "timeout"
	KindBadStatus     WebhookErrorKind = "bad_status"
	KindMalformedBody WebhookErrorKind = "malformed_body"
	KindUnavailable   WebhookErrorKind = "unavailable"
)

// WebhookError 外部 AI 调用失败
type WebhookError struct {
	Op         string
	Kind       WebhookErrorKind
	StatusCode int
	Err        error
}

func (e *WebhookError) Error() string {
	if e.Kind == KindBadStatus {
		return fmt.Sprintf("webhook %s: %s (status %d): %v", e.Op, e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("webhook %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *WebhookError) Unwrap() error {
	return e.Err
}

// Retryable 超时、连接失败、5xx 与 429 可重试
func (e *WebhookError) Retryable() bool {
	switch e.Kind {
	case KindTimeout, KindUnavailable:
		return true
	case KindBadStatus:
		return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
	}
	return false
}

// FallbackCoachReply 教练接口返回内容无法解析时的回复
const FallbackCoachReply = "I received your message, but couldn't process the response. Please try again."

const (
	opCoach          = "coach"
	opScoreAudio     = "score_audio"
	opScoreMilestone = "score_milestone"

	replyCachePrefix = "coach:reply:"
)

// CoachContext 随消息一起发送的学习者上下文
type CoachContext struct {
	Level         int    `json:"level"`
	TotalXP       int    `json:"total_xp"`
	CurrentStreak int    `json:"current_streak"`
	Username      string `json:"username"`
}

// AudioScoreRequest 听说类练习的评分请求
type AudioScoreRequest struct {
	ExerciseID    uint     `json:"exercise_id"`
	Kind          string   `json:"exercise_type"`
	Prompt        string   `json:"prompt"`
	ReferenceText string   `json:"reference_text,omitempty"`
	Expected      []string `json:"expected,omitempty"`
	Response      []string `json:"response,omitempty"`
	AudioURL      string   `json:"audio_url,omitempty"`
}

// MilestoneScoreRequest 里程碑录音的评分请求
type MilestoneScoreRequest struct {
	MilestoneID     uint     `json:"milestone_id"`
	Level           int      `json:"level"`
	Prompt          string   `json:"prompt"`
	AudioURL        string   `json:"audio_url"`
	DurationSeconds float64  `json:"duration_seconds"`
	Criteria        []string `json:"criteria"`
}

// MilestoneScoreResult 各评分维度得分与评语
type MilestoneScoreResult struct {
	Scores   map[string]float64
	Feedback string
}

// ReplyCache 教练回复缓存
type ReplyCache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string, ttl time.Duration)
}

type AIService struct {
	config  config.AIConfig
	client  *http.Client
	breaker circuitbreaker.CircuitBreaker[[]byte]
	retrier retry.Retry[[]byte]
	cache   ReplyCache
}

func NewAIService(cfg config.AIConfig, cache ReplyCache) *AIService {
	if cfg.Timeout <= 0 {
		cfg.Timeout = time.Duration(max(cfg.TimeoutSeconds, 1)) * time.Second
	}
	policy := retryPolicy(cfg.Retry)

	s := &AIService{
		config: cfg,
		client: &http.Client{},
		cache:  cache,
	}
	s.retrier = retry.New[[]byte](retry.Config{
		MaxAttempts:   policy.MaxAttempts,
		InitialDelay:  time.Duration(policy.InitialDelayMS) * time.Millisecond,
		MaxDelay:      time.Duration(policy.MaxDelayMS) * time.Millisecond,
		Multiplier:    policy.Multiplier,
		BackoffPolicy: retry.BackoffExponential,
		Jitter:        true,
		IsRetryable: func(err error) bool {
			var we *WebhookError
			return errors.As(err, &we) && we.Retryable()
		},
	})
	s.breaker = circuitbreaker.New[[]byte](circuitbreaker.Config{
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts circuitbreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(from, to circuitbreaker.State) {
			logger.Log.Warn("AI webhook circuit breaker state change",
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	return s
}

// retryPolicy 补全未配置的重试参数
func retryPolicy(c config.RetryConfig) config.RetryConfig {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.InitialDelayMS <= 0 {
		c.InitialDelayMS = 200
	}
	if c.MaxDelayMS < c.InitialDelayMS {
		c.MaxDelayMS = max(c.InitialDelayMS, 2000)
	}
	if c.Multiplier < 1 {
		c.Multiplier = 2
	}
	return c
}

// Coach 向 AI 教练发送消息。调用失败时若有缓存的回复则返回缓存
func (s *AIService) Coach(ctx context.Context, message string, uc CoachContext) (string, error) {
	key := replyCacheKey(message)
	payload := map[string]interface{}{
		"message":      message,
		"user_context": uc,
	}

	body, err := s.post(ctx, opCoach, s.config.ChatWebhookURL, payload)
	if err != nil {
		if cached, ok := s.cachedReply(ctx, key); ok {
			logger.Log.Warn("AI coach unavailable, serving cached reply", zap.Error(err))
			return cached, nil
		}
		return "", err
	}

	reply, err := extractReply(body)
	if err != nil {
		werr := &WebhookError{Op: opCoach, Kind: KindMalformedBody, Err: err}
		if cached, ok := s.cachedReply(ctx, key); ok {
			return cached, nil
		}
		return "", werr
	}
	if reply == "" {
		logger.Log.Warn("Unexpected or empty coach reply", zap.ByteString("body", truncate(body, 512)))
		return FallbackCoachReply, nil
	}

	if s.cache != nil {
		s.cache.Set(ctx, key, reply, time.Duration(s.config.ReplyCacheTTLMinutes)*time.Minute)
	}
	return reply, nil
}

func (s *AIService) cachedReply(ctx context.Context, key string) (string, bool) {
	if s.cache == nil {
		return "", false
	}
	return s.cache.Get(ctx, key)
}

// ScoreAudio 听说类练习评分，返回 [0,1] 内的分数
func (s *AIService) ScoreAudio(ctx context.Context, req AudioScoreRequest) (float64, error) {
	body, err := s.post(ctx, opScoreAudio, s.config.AudioScoreURL, req)
	if err != nil {
		return 0, err
	}

	var resp struct {
		Score *float64 `json:"score"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, &WebhookError{Op: opScoreAudio, Kind: KindMalformedBody, Err: err}
	}
	if resp.Score == nil {
		return 0, &WebhookError{Op: opScoreAudio, Kind: KindMalformedBody, Err: errors.New("missing score")}
	}
	return scoring.ScoreRemote(*resp.Score), nil
}

// ScoreMilestone 里程碑录音评分，返回各维度分数
func (s *AIService) ScoreMilestone(ctx context.Context, req MilestoneScoreRequest) (*MilestoneScoreResult, error) {
	body, err := s.post(ctx, opScoreMilestone, s.config.MilestoneScoreURL, req)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Scores       map[string]float64 `json:"scores"`
		RubricScores map[string]float64 `json:"rubric_scores"`
		Feedback     string             `json:"feedback"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &WebhookError{Op: opScoreMilestone, Kind: KindMalformedBody, Err: err}
	}
	scores := resp.Scores
	if len(scores) == 0 {
		scores = resp.RubricScores
	}
	if len(scores) == 0 {
		return nil, &WebhookError{Op: opScoreMilestone, Kind: KindMalformedBody, Err: errors.New("missing rubric scores")}
	}
	for k, v := range scores {
		scores[k] = scoring.Clamp01(v)
	}
	return &MilestoneScoreResult{Scores: scores, Feedback: resp.Feedback}, nil
}

// post 经熔断与重试发送 JSON 请求，返回响应体
func (s *AIService) post(ctx context.Context, op, url string, payload interface{}) ([]byte, error) {
	ctx, span := tracing.Tracer.Start(ctx, "webhook."+op)
	defer span.End()
	start := time.Now()

	if url == "" {
		err := &WebhookError{Op: op, Kind: KindUnavailable, Err: errors.New("webhook url not configured")}
		s.finish(span, op, start, err)
		return nil, err
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", op, err)
	}

	var lastErr *WebhookError
	attempts := 0
	body, err := s.breaker.Execute(ctx, func(ctx context.Context) ([]byte, error) {
		return s.retrier.Do(ctx, func(ctx context.Context) ([]byte, error) {
			attempts++
			b, err := s.send(ctx, op, url, data)
			if err != nil {
				lastErr = err
				return nil, err
			}
			return b, nil
		})
	})
	span.SetAttributes(attribute.Int("webhook.attempts", attempts))

	if err != nil {
		var we *WebhookError
		switch {
		case errors.As(err, &we):
		case lastErr != nil:
			we = lastErr
		case ctx.Err() != nil:
			we = &WebhookError{Op: op, Kind: KindTimeout, Err: ctx.Err()}
		default:
			// 熔断打开时请求不会发出
			we = &WebhookError{Op: op, Kind: KindUnavailable, Err: err}
		}
		s.finish(span, op, start, we)
		return nil, we
	}

	s.finish(span, op, start, nil)
	return body, nil
}

// send 单次 HTTP 调用；返回的错误总是 *WebhookError
func (s *AIService) send(ctx context.Context, op, url string, data []byte) ([]byte, *WebhookError) {
	reqCtx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, &WebhookError{Op: op, Kind: KindUnavailable, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if s.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.config.APIKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, &WebhookError{Op: op, Kind: KindTimeout, Err: err}
		}
		return nil, &WebhookError{Op: op, Kind: KindUnavailable, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if isTimeout(err) {
			return nil, &WebhookError{Op: op, Kind: KindTimeout, Err: err}
		}
		return nil, &WebhookError{Op: op, Kind: KindMalformedBody, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &WebhookError{
			Op:         op,
			Kind:       KindBadStatus,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%s", truncate(body, 256)),
		}
	}
	return body, nil
}

func (s *AIService) finish(span trace.Span, op string, start time.Time, err *WebhookError) {
	outcome := "ok"
	if err != nil {
		outcome = string(err.Kind)
		span.RecordError(err)
		span.SetStatus(codes.Error, string(err.Kind))
		if err.StatusCode != 0 {
			span.SetAttributes(attribute.Int("http.status_code", err.StatusCode))
		}
		logger.Log.Error("AI webhook call failed",
			zap.String("operation", op),
			zap.String("kind", string(err.Kind)),
			zap.Int("status", err.StatusCode),
			zap.Error(err.Err))
	}
	monitoring.ObserveWebhook(op, outcome, time.Since(start))
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// extractReply 从教练接口响应中取出回复文本
func extractReply(body []byte) (string, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return "", errors.New("empty response body")
	}

	var decoded interface{}
	if err := json.Unmarshal(trimmed, &decoded); err != nil {
		// 非 JSON 响应按纯文本处理
		return string(trimmed), nil
	}

	switch v := decoded.(type) {
	case string:
		return strings.TrimSpace(v), nil
	case []interface{}:
		if len(v) == 0 {
			return "", nil
		}
		return strings.TrimSpace(stringify(v[0])), nil
	case map[string]interface{}:
		return replyFromObject(v, trimmed), nil
	case nil:
		return "", nil
	default:
		return stringify(v), nil
	}
}

var replyKeys = []string{"response", "message", "text", "answer", "content", "output"}

func replyFromObject(obj map[string]interface{}, raw []byte) string {
	for _, k := range replyKeys {
		if s, ok := obj[k].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}

	if choices, ok := obj["choices"].([]interface{}); ok && len(choices) > 0 {
		if choice, ok := choices[0].(map[string]interface{}); ok {
			if msg, ok := choice["message"].(map[string]interface{}); ok {
				if s, ok := msg["content"].(string); ok && strings.TrimSpace(s) != "" {
					return strings.TrimSpace(s)
				}
			}
			if s, ok := choice["text"].(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
	}

	// 按响应中的字段顺序取第一个非空字符串
	dec := json.NewDecoder(bytes.NewReader(raw))
	if _, err := dec.Token(); err != nil {
		return ""
	}
	for dec.More() {
		if _, err := dec.Token(); err != nil {
			return ""
		}
		var value interface{}
		if err := dec.Decode(&value); err != nil {
			return ""
		}
		if s, ok := value.(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

func stringify(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

func replyCacheKey(message string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(message)), " ")
	sum := sha1.Sum([]byte(normalized))
	return replyCachePrefix + hex.EncodeToString(sum[:])
}

func truncate(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}
