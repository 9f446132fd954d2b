package httptransport

import (
	"net/http"
	"time"

	gincors "github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"onebox/backend/internal/config"
	"onebox/backend/internal/health"
	"onebox/backend/internal/middleware"
	"onebox/backend/internal/monitoring"
	"onebox/backend/internal/service"
	"onebox/backend/internal/websocket"
)

// Handler 聚合所有 HTTP 处理逻辑。
type Handler struct {
	emails        *service.EmailService
	search        *service.SearchService
	accounts      *service.AccountService
	ai            *service.AIService
	notifications *service.NotificationService
	sync          *service.SyncService
	log           *zap.Logger
}

// RouterDependencies 路由器依赖项
type RouterDependencies struct {
	Config              *config.Config
	EmailService        *service.EmailService
	SearchService       *service.SearchService
	AccountService      *service.AccountService
	AIService           *service.AIService
	NotificationService *service.NotificationService
	SyncService         *service.SyncService
	WebSocketHub        *websocket.Hub
	HealthChecker       *health.HealthChecker
	Metrics             *monitoring.Metrics
	Logger              *zap.Logger
}

// NewRouter 创建并返回 Gin 路由实例。
func NewRouter(deps RouterDependencies) *gin.Engine {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	router := gin.New()

	if deps.Metrics != nil {
		mm := middleware.NewMonitoringMiddleware(deps.Metrics, log)
		router.Use(mm.PanicRecovery())
		router.Use(mm.HTTPMetrics())
	} else {
		router.Use(gin.Recovery())
	}
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.BodySizeLimit(deps.Config.Server.MaxBodyBytes))

	// CORS 配置
	corsConfig := gincors.Config{
		AllowOrigins:     deps.Config.CORS.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	// 如果允许所有来源，则需清空凭证支持。
	for _, origin := range corsConfig.AllowOrigins {
		if origin == "*" {
			corsConfig.AllowCredentials = false
			break
		}
	}
	router.Use(gincors.New(corsConfig))

	handler := &Handler{
		emails:        deps.EmailService,
		search:        deps.SearchService,
		accounts:      deps.AccountService,
		ai:            deps.AIService,
		notifications: deps.NotificationService,
		sync:          deps.SyncService,
		log:           log,
	}

	if deps.HealthChecker != nil {
		router.GET("/health", handler.healthStatus(deps.HealthChecker))
		router.GET("/live", gin.WrapF(deps.HealthChecker.LiveEndpoint))
		router.GET("/ready", gin.WrapF(deps.HealthChecker.ReadyEndpoint))
	} else {
		router.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})
	}
	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics.HTTPHandler()))
	}

	v1 := router.Group("/v1")
	{
		emailRoutes := v1.Group("/emails")
		{
			emailRoutes.GET("", handler.listEmails)
			emailRoutes.POST("", handler.sendEmail)
			emailRoutes.GET("/unread-count", handler.unreadCount)
			emailRoutes.GET("/:id", handler.getEmail)
			emailRoutes.DELETE("/:id", handler.deleteEmail)
			emailRoutes.POST("/:id/read", handler.markEmailRead)
			emailRoutes.POST("/:id/star", handler.toggleStar)

			emailRoutes.POST("/:id/categorize", handler.categorizeEmail)
			emailRoutes.POST("/:id/reply", handler.generateReply)
			emailRoutes.POST("/:id/notify", handler.notifyEmail)
		}

		searchRoutes := v1.Group("/search")
		{
			searchRoutes.POST("", handler.searchEmails)
			searchRoutes.GET("", handler.searchText)
			searchRoutes.GET("/suggestions", handler.searchSuggestions)
		}

		accountRoutes := v1.Group("/accounts")
		{
			accountRoutes.GET("", handler.listAccounts)
			accountRoutes.POST("", handler.addAccount)
		}

		v1.POST("/ai/sentiment", handler.analyzeSentiment)

		settingsRoutes := v1.Group("/settings")
		{
			settingsRoutes.GET("/ai", handler.getAISettings)
			settingsRoutes.PUT("/ai", handler.updateAISettings)
			settingsRoutes.GET("/notifications", handler.getNotificationSettings)
			settingsRoutes.PUT("/notifications", handler.updateNotificationSettings)
			settingsRoutes.POST("/notifications/test", handler.testNotificationSettings)
		}

		v1.POST("/sync", handler.syncEmails)

		if deps.WebSocketHub != nil {
			v1.GET("/ws", websocket.HandleWebSocket(deps.WebSocketHub))
		}
	}

	return router
}

// healthStatus 汇总存储与外部依赖的健康状态
func (h *Handler) healthStatus(hc *health.HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		results := hc.CheckHealth(c.Request.Context())

		status := http.StatusOK
		for name, v := range results {
			if name != "timestamp" && v != "OK" {
				status = http.StatusServiceUnavailable
				break
			}
		}
		c.JSON(status, results)
	}
}
