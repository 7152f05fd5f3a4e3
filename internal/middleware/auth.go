package middleware

import (
	"strings"

	"speakopoly_backend/internal/model"
	"speakopoly_backend/internal/util"
	"speakopoly_backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AuthMiddleware 校验 Bearer 令牌或 ?token= 查询参数
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := ""
		authHeader := c.GetHeader("Authorization")
		if strings.HasPrefix(authHeader, "Bearer ") {
			tokenString = strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		}

		if tokenString == "" {
			tokenString = c.Query("token")
		}

		if tokenString == "" {
			util.Unauthorized(c)
			c.Abort()
			return
		}

		claims, err := util.ParseJWT(tokenString, secret)
		if err != nil {
			logger.Log.Debug("JWT解析错误", zap.String("path", c.FullPath()), zap.Error(err))
			util.Unauthorized(c)
			c.Abort()
			return
		}

		c.Set(util.ContextUserKey, claims)
		c.Next()
	}
}

// RoleMiddleware 管理员拥有全部权限
func RoleMiddleware(roles ...model.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := util.GetUserFromContext(c)
		if user == nil {
			util.Unauthorized(c)
			c.Abort()
			return
		}

		hasRole := user.Role == model.Admin
		for _, role := range roles {
			if user.Role == role {
				hasRole = true
				break
			}
		}

		if !hasRole {
			util.Forbidden(c)
			c.Abort()
			return
		}
		c.Next()
	}
}

type UserActivityRepo interface {
	UpdateLastSeen(userID uint) error
}

func ActivityMiddleware(repo UserActivityRepo) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := util.GetUserFromContext(c)
		if claims != nil {
			// 异步更新，不阻塞主流程
			go func(id uint) {
				if err := repo.UpdateLastSeen(id); err != nil {
					logger.Log.Warn("Failed to update last seen", zap.Uint("userID", id), zap.Error(err))
				}
			}(claims.UserID)
		}
		c.Next()
	}
}
