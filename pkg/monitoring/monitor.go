package monitoring

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	// 练习作答次数，按题型与对错
	ExerciseAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "speakopoly_exercise_attempts_total",
			Help: "Scored exercise attempts by type and outcome",
		},
		[]string{"type", "correct"},
	)

	ExerciseScore = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "speakopoly_exercise_score",
			Help:    "Distribution of exercise scores",
			Buckets: []float64{0, 0.25, 0.5, 0.7, 0.85, 1},
		},
		[]string{"type"},
	)

	XPAwarded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "speakopoly_xp_awarded_total",
			Help: "XP granted to learners by source",
		},
		[]string{"source"},
	)

	MilestoneResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "speakopoly_milestone_attempts_total",
			Help: "Milestone submissions by level and result",
		},
		[]string{"level", "passed"},
	)

	// 外部 AI 调用结果：ok / timeout / bad_status / malformed_body / unavailable
	WebhookRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "speakopoly_ai_webhook_requests_total",
			Help: "AI webhook calls by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	WebhookDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "speakopoly_ai_webhook_duration_seconds",
			Help:    "AI webhook latency including retries",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"operation"},
	)

	registerOnce sync.Once
)

func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			RequestCounter,
			RequestDuration,
			ExerciseAttempts,
			ExerciseScore,
			XPAwarded,
			MilestoneResults,
			WebhookRequests,
			WebhookDuration,
		)
	})
}

// ObserveExercise 记录一次练习评分
func ObserveExercise(kind string, score float64, correct bool, xp int) {
	ExerciseAttempts.WithLabelValues(kind, strconv.FormatBool(correct)).Inc()
	ExerciseScore.WithLabelValues(kind).Observe(score)
	if xp > 0 {
		XPAwarded.WithLabelValues("exercise").Add(float64(xp))
	}
}

// ObserveMilestone 记录一次里程碑评分
func ObserveMilestone(level int, passed bool, xp int) {
	MilestoneResults.WithLabelValues(strconv.Itoa(level), strconv.FormatBool(passed)).Inc()
	if xp > 0 {
		XPAwarded.WithLabelValues("milestone").Add(float64(xp))
	}
}

// ObserveWebhook 记录一次外部 AI 调用
func ObserveWebhook(operation, outcome string, elapsed time.Duration) {
	WebhookRequests.WithLabelValues(operation, outcome).Inc()
	WebhookDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()

		RequestCounter.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
		).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
