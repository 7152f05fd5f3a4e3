package controller

import (
	"context"
	"net/http"
	"time"

	"speakopoly_backend/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

type HealthController struct {
	DB    *gorm.DB
	Redis *redis.Client
}

func NewHealthController(db *gorm.DB, rdb *redis.Client) *HealthController {
	return &HealthController{DB: db, Redis: rdb}
}

// @Summary 健康检查
// @Description 检查数据库与 Redis 状态；Redis 不可用时服务降级但仍可用
// @Tags 系统
// @Produce json
// @Success 200 {object} util.Response
// @Failure 503 {object} util.Response
// @Router /health [get]
func (c *HealthController) HealthCheck(ctx *gin.Context) {
	sqlDB, err := c.DB.DB()
	if err != nil {
		util.InternalServerError(ctx)
		return
	}

	if err := sqlDB.Ping(); err != nil {
		util.Error(ctx, http.StatusServiceUnavailable, "Database unavailable")
		return
	}

	redisStatus := "disabled"
	if c.Redis != nil {
		pingCtx, cancel := context.WithTimeout(ctx.Request.Context(), time.Second)
		defer cancel()
		redisStatus = "up"
		if err := c.Redis.Ping(pingCtx).Err(); err != nil {
			redisStatus = "down"
		}
	}

	util.Success(ctx, gin.H{
		"status": "ok",
		"components": gin.H{
			"database": "up",
			"redis":    redisStatus,
		},
	})
}
