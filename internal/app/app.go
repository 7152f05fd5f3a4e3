package app

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"speakopoly_backend/internal/config"
	"speakopoly_backend/internal/controller"
	"speakopoly_backend/internal/repository"
	"speakopoly_backend/internal/service"
	"speakopoly_backend/pkg/configwatcher"
	"speakopoly_backend/pkg/database"
	"speakopoly_backend/pkg/events"
	"speakopoly_backend/pkg/logger"
	"speakopoly_backend/pkg/monitoring"
	"speakopoly_backend/pkg/security"
	"speakopoly_backend/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-co-op/gocron"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config          *config.Config
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	services        *services
	publisher       events.Publisher
	scheduler       *gocron.Scheduler
	tracer          *sdktrace.TracerProvider
	stopWatch       context.CancelFunc
	configCallbacks []func(*config.Config)
}

type repositories struct {
	user      *repository.UserRepository
	profile   *repository.ProfileRepository
	content   *repository.ContentRepository
	exercise  *repository.ExerciseRepository
	milestone *repository.MilestoneRepository
	quest     *repository.QuestRepository
	district  *repository.DistrictRepository
	reward    *repository.RewardRepository
	progress  *repository.ProgressRepository
}

type services struct {
	settings      *service.Settings
	auth          *service.AuthService
	storage       *service.StorageService
	ai            *service.AIService
	leaderboard   *service.LeaderboardService
	reward        *service.RewardService
	content       *service.ContentService
	profile       *service.ProfileService
	exercise      *service.ExerciseService
	lesson        *service.LessonService
	milestone     *service.MilestoneService
	quest         *service.QuestService
	district      *service.DistrictService
	contentImport *service.ContentImportService
	coach         *service.CoachService
}

type controllers struct {
	auth        *controller.AuthController
	profile     *controller.ProfileController
	content     *controller.ContentController
	milestone   *controller.MilestoneController
	quest       *controller.QuestController
	district    *controller.DistrictController
	leaderboard *controller.LeaderboardController
	coach       *controller.CoachController
	admin       *controller.AdminController
	health      *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:      repository.NewUserRepository(db),
		profile:   repository.NewProfileRepository(db),
		content:   repository.NewContentRepository(db),
		exercise:  repository.NewExerciseRepository(db),
		milestone: repository.NewMilestoneRepository(db),
		quest:     repository.NewQuestRepository(db),
		district:  repository.NewDistrictRepository(db),
		reward:    repository.NewRewardRepository(db),
		progress:  repository.NewProgressRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, db *gorm.DB, rdb *redis.Client) *services {
	s := &services{}

	s.settings = service.NewSettings(cfg.Scoring)
	a.RegisterConfigCallback(func(newCfg *config.Config) {
		s.settings.Update(newCfg.Scoring)
	})

	var cache service.ReplyCache
	if rdb != nil {
		cache = service.NewRedisReplyCache(rdb)
	}
	s.ai = service.NewAIService(cfg.AI, cache)

	s.storage = service.NewStorageService(cfg)
	s.auth = service.NewAuthService(repos.user, cfg)
	s.leaderboard = service.NewLeaderboardService(rdb, repos.profile, repos.user)
	s.reward = service.NewRewardService(repos.reward)
	s.content = service.NewContentService(repos.content, repos.progress, repos.profile)
	s.profile = service.NewProfileService(repos.profile, repos.exercise, s.settings)

	s.exercise = service.NewExerciseService(
		db,
		repos.content,
		repos.exercise,
		repos.profile,
		s.ai,
		s.leaderboard,
		a.publisher,
		s.settings,
	)

	s.lesson = service.NewLessonService(
		db,
		repos.content,
		repos.progress,
		repos.profile,
		s.reward,
		s.leaderboard,
		a.publisher,
		s.settings,
	)

	s.milestone = service.NewMilestoneService(
		db,
		repos.content,
		repos.milestone,
		repos.profile,
		s.reward,
		s.ai,
		s.storage,
		s.leaderboard,
		a.publisher,
		s.settings,
	)

	s.quest = service.NewQuestService(db, repos.quest, repos.profile, s.leaderboard, a.publisher, s.settings)
	s.district = service.NewDistrictService(db, repos.district, repos.profile)
	s.contentImport = service.NewContentImportService(db, repos.content, repos.quest)
	s.coach = service.NewCoachService(s.ai, repos.user, repos.profile)

	return s
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		auth:        controller.NewAuthController(s.auth),
		profile:     controller.NewProfileController(s.profile, s.reward),
		content:     controller.NewContentController(s.content, s.lesson, s.exercise),
		milestone:   controller.NewMilestoneController(s.milestone, a.Config.AI.AllowClientScores),
		quest:       controller.NewQuestController(s.quest),
		district:    controller.NewDistrictController(s.district),
		leaderboard: controller.NewLeaderboardController(s.leaderboard, s.settings),
		coach:       controller.NewCoachController(s.coach),
		admin:       controller.NewAdminController(s.contentImport, s.leaderboard, s.quest),
		health:      controller.NewHealthController(db, rdb),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	window := time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
	if window <= 0 {
		window = time.Minute
	}
	router.Use(security.RateLimiter(cfg.RateLimit.MaxRequests, window, nil))

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// startBackgroundTasks 定时停用过期任务、重建排行榜
func (a *App) startBackgroundTasks(s *services, cfg *config.Config) {
	scheduler := gocron.NewScheduler(time.UTC)
	scheduler.SingletonModeAll()

	expiry := cfg.Scheduler.QuestExpiryMinutes
	if expiry <= 0 {
		expiry = 15
	}
	if _, err := scheduler.Every(expiry).Minutes().Do(func() {
		n, err := s.quest.ExpireQuests(context.Background())
		if err != nil {
			logger.Log.Error("quest expiry job failed", zap.Error(err))
			return
		}
		if n > 0 {
			logger.Log.Info("Expired quests deactivated", zap.Int64("count", n))
		}
	}); err != nil {
		logger.Log.Error("Failed to schedule quest expiry", zap.Error(err))
	}

	if a.Redis != nil {
		rebuild := cfg.Scheduler.LeaderboardRebuildMinute
		if rebuild <= 0 {
			rebuild = 10
		}
		// 首次执行即启动时的全量重建
		if _, err := scheduler.Every(rebuild).Minutes().Do(func() {
			n, err := s.leaderboard.Rebuild(context.Background())
			if err != nil {
				logger.Log.Error("leaderboard rebuild failed", zap.Error(err))
				return
			}
			logger.Log.Debug("Leaderboard rebuilt", zap.Int("members", n))
		}); err != nil {
			logger.Log.Error("Failed to schedule leaderboard rebuild", zap.Error(err))
		}
	}

	scheduler.StartAsync()
	a.scheduler = scheduler
}

func (a *App) watchConfig() {
	ctx, cancel := context.WithCancel(context.Background())
	err := configwatcher.WatchConfig(ctx, "configs", func(newCfg *config.Config) {
		for _, cb := range a.configCallbacks {
			cb(newCfg)
		}
	})
	if err != nil {
		cancel()
		logger.Log.Warn("Config hot reload disabled", zap.Error(err))
		return
	}
	a.stopWatch = cancel
}

func newPublisher(cfg *config.EventsConfig) events.Publisher {
	if !cfg.Enabled {
		return events.NopPublisher{}
	}
	p, err := events.NewAMQPPublisher(cfg.URL, cfg.Exchange)
	if err != nil {
		logger.Log.Error("Failed to connect event broker, events disabled", zap.Error(err))
		return events.NopPublisher{}
	}
	logger.Log.Info("Event publisher connected", zap.String("exchange", cfg.Exchange))
	return p
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	defer logger.Log.Sync()

	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(cfg)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	app := &App{
		Config: cfg,
		DB:     db,
	}
	if cfg.MigrateOnly {
		return app
	}

	// Redis 不可用时排行榜回退数据库，教练回复不缓存
	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Warn("Redis unavailable, running degraded", zap.Error(err))
		rdb = nil
	}
	app.Redis = rdb
	app.publisher = newPublisher(&cfg.Events)

	repos := app.initRepositories(db)
	services := app.initServices(repos, cfg, db, rdb)
	app.services = services
	controllers := app.initControllers(services, db, rdb)

	// 监控初始化
	monitoring.Init()

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	router.MaxMultipartMemory = 8 << 20
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer("speakopoly", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.tracer = tp
	}

	app.registerRoutes(router, controllers, repos, cfg)

	if cfg.Storage.Type == "local" {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	app.startBackgroundTasks(services, cfg)
	app.watchConfig()

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	// 启动服务器
	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal("listen", zap.Error(err))
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	if a.stopWatch != nil {
		a.stopWatch()
	}
	if a.scheduler != nil {
		a.scheduler.Stop()
	}

	// 关闭服务
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}

	if err := a.publisher.Close(); err != nil {
		logger.Log.Error("Failed to close event publisher", zap.Error(err))
	}
	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		a.Redis.Close()
	}

	logger.Log.Info("Server exiting")
	_ = logger.Log.Sync()
}
