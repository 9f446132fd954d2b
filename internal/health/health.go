package health

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/heptiolabs/healthcheck"
	"go.uber.org/zap"

	"onebox/backend/internal/storage"
)

// Pinger 可探活的外部依赖
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthChecker 健康检查器
type HealthChecker struct {
	health  healthcheck.Handler
	store   storage.Store
	pingers map[string]Pinger
	timeout time.Duration
	logger  *zap.Logger
}

// Option 健康检查选项
type Option func(*HealthChecker)

// WithPinger 注册一个就绪检查，例如 Redis
func WithPinger(name string, p Pinger) Option {
	return func(hc *HealthChecker) {
		if p != nil {
			hc.pingers[name] = p
		}
	}
}

// WithTimeout 设置单项检查超时
func WithTimeout(d time.Duration) Option {
	return func(hc *HealthChecker) {
		hc.timeout = d
	}
}

// NewHealthChecker 创建健康检查器
func NewHealthChecker(store storage.Store, logger *zap.Logger, opts ...Option) *HealthChecker {
	hc := &HealthChecker{
		health:  healthcheck.NewHandler(),
		store:   store,
		pingers: make(map[string]Pinger),
		timeout: 2 * time.Second,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(hc)
	}

	hc.addChecks()

	return hc
}

func (hc *HealthChecker) addChecks() {
	hc.health.AddLivenessCheck("goroutine-threshold", healthcheck.GoroutineCountCheck(10000))

	hc.health.AddReadinessCheck("store", healthcheck.Timeout(hc.store.Health, hc.timeout))

	for name, p := range hc.pingers {
		hc.health.AddReadinessCheck(name, PingCheck(p, hc.timeout))
	}
}

// Handler 返回健康检查处理器，提供 /live 与 /ready
func (hc *HealthChecker) Handler() http.Handler {
	return hc.health
}

// LiveEndpoint 存活检查
func (hc *HealthChecker) LiveEndpoint(w http.ResponseWriter, r *http.Request) {
	hc.health.LiveEndpoint(w, r)
}

// ReadyEndpoint 就绪检查
func (hc *HealthChecker) ReadyEndpoint(w http.ResponseWriter, r *http.Request) {
	hc.health.ReadyEndpoint(w, r)
}

// CheckHealth 执行健康检查并返回各项状态
func (hc *HealthChecker) CheckHealth(ctx context.Context) map[string]string {
	results := make(map[string]string)

	if err := hc.store.Health(); err != nil {
		hc.logger.Warn("store health check failed", zap.Error(err))
		results["store"] = fmt.Sprintf("ERROR: %v", err)
	} else {
		results["store"] = "OK"
	}

	for name, p := range hc.pingers {
		pingCtx, cancel := context.WithTimeout(ctx, hc.timeout)
		err := p.Ping(pingCtx)
		cancel()
		if err != nil {
			hc.logger.Warn("dependency health check failed", zap.String("name", name), zap.Error(err))
			results[name] = fmt.Sprintf("ERROR: %v", err)
		} else {
			results[name] = "OK"
		}
	}

	results["timestamp"] = time.Now().UTC().Format(time.RFC3339)

	return results
}

// PingCheck 将 Pinger 包装为 healthcheck.Check
func PingCheck(p Pinger, timeout time.Duration) healthcheck.Check {
	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		return p.Ping(ctx)
	}
}
