package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"onebox/backend/internal/ai"
	"onebox/backend/internal/cache"
	"onebox/backend/internal/config"
	"onebox/backend/internal/health"
	"onebox/backend/internal/logger"
	"onebox/backend/internal/mailsource"
	"onebox/backend/internal/monitoring"
	"onebox/backend/internal/notify"
	"onebox/backend/internal/pool"
	"onebox/backend/internal/security"
	"onebox/backend/internal/service"
	"onebox/backend/internal/storage"
	"onebox/backend/internal/storage/memory"
	"onebox/backend/internal/storage/redis"
	sqlstore "onebox/backend/internal/storage/sql"
	httptransport "onebox/backend/internal/transport/http"
	"onebox/backend/internal/websocket"
)

// imapFetchLimit 单个账户单次最多拉取的邮件数
const imapFetchLimit = 100

// main 启动 Onebox API 服务与后台同步任务。
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	// 设置 Gin 模式（基于开发环境标志）
	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting onebox server",
		zap.String("log_level", cfg.Log.Level),
		zap.Bool("development", cfg.Log.Development),
		zap.String("sync_mode", cfg.Sync.Mode),
	)

	store, err := initializeStorage(cfg, log)
	if err != nil {
		log.Fatal("failed to initialize storage", zap.Error(err))
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Warn("store close warning", zap.Error(err))
		}
	}()

	metrics := monitoring.NewMetrics()

	// 通知去重：启用 Redis 时跨实例共享，否则使用进程内缓存
	var (
		deduper     notify.Deduper
		redisClient *redis.Client
		healthOpts  []health.Option
	)
	localCache := cache.NewLocalCache(cfg.Notification.DedupeTTL)
	defer localCache.Close()

	if cfg.Redis.Enabled {
		redisClient, err = redis.New(cfg.Redis, log)
		if err != nil {
			log.Fatal("failed to connect redis", zap.Error(err))
		}
		defer redisClient.Close()
		deduper = redis.NewDeduper(redisClient, cfg.Notification.DedupeTTL)
		healthOpts = append(healthOpts, health.WithPinger("redis", redisClient))
	} else {
		deduper = notify.NewMemoryDeduper(localCache, cfg.Notification.DedupeTTL)
	}

	healthChecker := health.NewHealthChecker(store, log, healthOpts...)

	// 通知投递
	workers := pool.NewWorkerPool(cfg.Notification.Workers, cfg.Notification.QueueSize, log)
	notifier := notify.NewClient(log,
		notify.WithHTTPClient(&http.Client{Timeout: cfg.Notification.Timeout}),
		notify.WithRateLimit(cfg.Notification.RateLimit, cfg.Notification.Burst),
		notify.WithObserver(metrics),
	)

	// WebSocket 推送：多实例时经 Redis 转发
	wsHub := websocket.NewHub(cfg.CORS.AllowedOrigins, store, metrics, log)
	var broadcaster service.Broadcaster = wsHub
	var relay *redis.Relay
	if redisClient != nil {
		relay = redis.NewRelay(redisClient, wsHub)
		broadcaster = relay
	}

	// 邮件来源与外发
	var fetcher mailsource.Fetcher
	switch cfg.Sync.Mode {
	case "imap":
		fetcher = mailsource.NewIMAPFetcher(imapFetchLimit, log)
	default:
		fetcher = mailsource.NewSimulatedFetcher(nil)
	}

	var sender service.Sender
	if cfg.SMTP.Host != "" {
		sender = mailsource.NewSMTPSender(cfg.SMTP, log)
	} else {
		sender = mailsource.NewNopSender(log)
		log.Warn("SMTP host not configured, outgoing emails will not be delivered")
	}

	// 初始化服务层
	emailService := service.NewEmailService(store, store, sender, cfg.SMTP.From, log)
	emailService.SetAttachmentChecker(security.NewAttachmentPolicy(security.DefaultMaxAttachmentSize))
	searchService := service.NewSearchService(store, metrics)
	accountService := service.NewAccountService(store, log)
	aiService := service.NewAIService(store, ai.NewReplySuggester(nil, cfg.AI.Signature), metrics, log)
	notificationService := service.NewNotificationService(store, store, notifier, deduper, workers, cfg.Notification.Timeout, log)
	syncService := service.NewSyncService(store, store, fetcher, aiService, notificationService, broadcaster, metrics, cfg.Sync.Timeout, log)

	router := httptransport.NewRouter(httptransport.RouterDependencies{
		Config:              cfg,
		EmailService:        emailService,
		SearchService:       searchService,
		AccountService:      accountService,
		AIService:           aiService,
		NotificationService: notificationService,
		SyncService:         syncService,
		WebSocketHub:        wsHub,
		HealthChecker:       healthChecker,
		Metrics:             metrics,
		Logger:              log,
	})

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// 信号处理
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)

	// 投递协程独立于信号上下文，关闭时先排空队列
	workers.Start(context.Background())

	group.Go(func() error {
		log.Info("starting HTTP server", zap.String("address", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", zap.Error(err))
			return err
		}
		return nil
	})

	group.Go(func() error {
		log.Info("starting WebSocket hub")
		wsHub.Run(groupCtx)
		return nil
	})

	if relay != nil {
		group.Go(func() error {
			log.Info("starting redis event relay")
			return relay.Run(groupCtx)
		})
	}

	if cfg.Sync.Interval > 0 {
		group.Go(func() error {
			log.Info("starting background sync", zap.Duration("interval", cfg.Sync.Interval))
			return syncService.Run(groupCtx, cfg.Sync.Interval)
		})
	}

	// 优雅关闭 goroutine
	group.Go(func() error {
		<-groupCtx.Done()
		log.Info("shutdown signal received, gracefully shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP server shutdown error", zap.Error(err))
		}
		workers.Stop()

		log.Info("servers stopped")
		return nil
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server error", zap.Error(err))
	}

	log.Info("server exited cleanly")
}

// initializeStorage 根据配置选择存储实现，未配置数据库时使用内存存储
func initializeStorage(cfg *config.Config, log *zap.Logger) (storage.Store, error) {
	if cfg.Database.Type == "" || cfg.Database.DSN == "" {
		log.Info("using memory storage (development mode)")
		return memory.NewStore(), nil
	}

	log.Info("initializing database storage", zap.String("database_type", cfg.Database.Type))

	store, err := sqlstore.NewStore(cfg.Database.Type, cfg.Database.DSN, sqlstore.PoolConfig{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create sql store: %w", err)
	}

	log.Info("database storage initialized successfully", zap.String("database_type", cfg.Database.Type))
	return store, nil
}
