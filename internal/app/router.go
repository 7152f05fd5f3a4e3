package app

import (
	"time"

	"speakopoly_backend/docs"
	"speakopoly_backend/internal/config"
	"speakopoly_backend/internal/middleware"
	"speakopoly_backend/internal/model"
	"speakopoly_backend/internal/util"
	"speakopoly_backend/pkg/monitoring"
	"speakopoly_backend/pkg/security"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())
	router.GET("/health", c.health.HealthCheck)

	// 1. 公共路由(无需登录)
	a.registerPublicRoutes(router, c)

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg.JWT.Secret), middleware.ActivityMiddleware(repos.user))
	{
		a.registerLearnerRoutes(authGroup, c, cfg)
	}

	// 3. 管理员相关接口
	a.registerAdminRoutes(router, c, cfg)
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)
	}
}

func (a *App) registerLearnerRoutes(group *gin.RouterGroup, c *controllers, cfg *config.Config) {
	group.GET("/me", c.auth.Me)

	// 个人资料与连续打卡
	group.GET("/profile", c.profile.GetProfile)
	group.PUT("/profile", c.profile.UpdateProfile)
	group.GET("/streak", c.profile.GetStreak)
	group.GET("/rewards", c.profile.ListRewards)

	// 课程内容
	group.GET("/levels", c.content.ListLevels)
	group.GET("/levels/:id", c.content.GetLevel)
	group.GET("/levels/:id/milestone", c.milestone.GetLevelMilestone)
	group.GET("/lessons/:id", c.content.GetLesson)
	group.POST("/lessons/:id/complete", c.content.CompleteLesson)
	group.GET("/exercises/:id", c.content.GetExercise)
	group.POST("/exercises/:id/submit", c.content.SubmitExercise)

	// 里程碑
	group.POST("/milestones/:id/submit", c.milestone.SubmitMilestone)

	// 任务
	group.GET("/quests", c.quest.ListQuests)
	group.POST("/quests/:id/start", c.quest.StartQuest)
	group.POST("/quests/:id/complete", c.quest.CompleteQuest)

	// 街区
	group.GET("/districts", c.district.ListDistricts)
	group.POST("/districts/:id/enter", c.district.EnterDistrict)

	group.GET("/leaderboard", c.leaderboard.GetLeaderboard)
	// AI 教练按用户限流
	group.POST("/coach", security.RateLimiter(cfg.RateLimit.CoachPerMinute, time.Minute, security.ContextKey(util.ContextUserKey)), c.coach.Ask)
}

func (a *App) registerAdminRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	admin := router.Group("/api/admin")
	admin.Use(middleware.AuthMiddleware(cfg.JWT.Secret), middleware.RoleMiddleware(model.Admin))
	{
		admin.POST("/content/import", c.admin.ImportContent)
		admin.POST("/leaderboard/rebuild", c.admin.RebuildLeaderboard)
		admin.POST("/quests/expire", c.admin.ExpireQuests)
	}
}
