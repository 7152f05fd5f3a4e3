package security

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

var (
	corsAllowHeaders = strings.Join([]string{
		"Content-Type", "Content-Length", "Accept", "Accept-Encoding", "Authorization",
		"Origin", "Cache-Control", "X-Requested-With",
	}, ", ")
	corsAllowMethods = strings.Join([]string{
		http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions,
	}, ", ")
)

// CORS 仅对白名单 Origin 回写允许头，"*" 表示放行任意来源
func CORS(allowedOrigins []string) gin.HandlerFunc {
	allowAny := false
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "*" {
			allowAny = true
			continue
		}
		allowed[o] = struct{}{}
	}

	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Add("Vary", "Origin")

		if origin := c.GetHeader("Origin"); origin != "" {
			_, ok := allowed[origin]
			if ok || allowAny {
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Access-Control-Allow-Credentials", "true")
			}
		}
		h.Set("Access-Control-Allow-Headers", corsAllowHeaders)
		h.Set("Access-Control-Allow-Methods", corsAllowMethods)
		h.Set("Access-Control-Max-Age", "600")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// Secure 通用安全响应头，HTTPS 请求附加 HSTS
func Secure() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		if c.Request.TLS != nil {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		c.Next()
	}
}

// KeyFunc 限流维度，返回空字符串时退回客户端 IP
type KeyFunc func(c *gin.Context) string

// ContextKey 按上下文中已鉴权的值限流，如用户 ID
func ContextKey(name string) KeyFunc {
	return func(c *gin.Context) string {
		v, ok := c.Get(name)
		if !ok || v == nil {
			return ""
		}
		if s, ok := v.(interface{ LimitKey() string }); ok {
			return s.LimitKey()
		}
		return ""
	}
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// limiterStore 每个 key 一个令牌桶，长期未访问的条目由 sweep 清理
type limiterStore struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	every    rate.Limit
	burst    int
	idle     time.Duration
}

func newLimiterStore(maxRequests int, window time.Duration) *limiterStore {
	return &limiterStore{
		visitors: make(map[string]*visitor),
		every:    rate.Every(window / time.Duration(maxRequests)),
		burst:    maxRequests,
		idle:     max(window*3, time.Minute),
	}
}

func (s *limiterStore) get(key string, now time.Time) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(s.every, s.burst)}
		s.visitors[key] = v
	}
	v.lastSeen = now
	return v.limiter
}

func (s *limiterStore) sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for key, v := range s.visitors {
		if now.Sub(v.lastSeen) > s.idle {
			delete(s.visitors, key)
			removed++
		}
	}
	return removed
}

func (s *limiterStore) janitor() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for now := range ticker.C {
		s.sweep(now)
	}
}

// RateLimiter 令牌桶限流，window 内最多 maxRequests 次，超限返回 429 与 Retry-After
func RateLimiter(maxRequests int, window time.Duration, keyFn KeyFunc) gin.HandlerFunc {
	if maxRequests <= 0 {
		maxRequests = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	store := newLimiterStore(maxRequests, window)
	go store.janitor()

	return func(c *gin.Context) {
		key := ""
		if keyFn != nil {
			key = keyFn(c)
		}
		if key == "" {
			key = c.ClientIP()
		}

		res := store.get(key, time.Now()).Reserve()
		if delay := res.Delay(); delay > 0 {
			res.Cancel()
			c.Header("Retry-After", strconv.Itoa(int(delay.Seconds())+1))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"code":    http.StatusTooManyRequests,
				"message": "too many requests",
			})
			return
		}
		c.Next()
	}
}
