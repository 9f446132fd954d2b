package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 监控指标
type Metrics struct {
	registry *prometheus.Registry

	// HTTP 请求指标
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// 同步指标
	EmailsSynced  *prometheus.CounterVec
	SyncDuration  prometheus.Histogram
	SyncFailures  *prometheus.CounterVec
	LastSyncEpoch prometheus.Gauge

	// 通知指标
	NotificationsTotal   *prometheus.CounterVec
	NotificationDuration *prometheus.HistogramVec

	// AI 指标
	EmailsCategorized *prometheus.CounterVec
	RepliesGenerated  *prometheus.CounterVec

	// 搜索指标
	SearchesTotal *prometheus.CounterVec
	SearchResults prometheus.Histogram

	// 实时推送
	WebsocketClients prometheus.Gauge

	// 错误指标
	ErrorsTotal *prometheus.CounterVec
	PanicsTotal prometheus.Counter
}

// NewMetrics 创建监控指标，每个实例使用独立的注册表
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "onebox_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "onebox_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		EmailsSynced: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "onebox_emails_synced_total",
				Help: "Total number of emails fetched by account sync",
			},
			[]string{"account"},
		),
		SyncDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "onebox_sync_duration_seconds",
				Help:    "Duration of a full sync run",
				Buckets: []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
		),
		SyncFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "onebox_sync_failures_total",
				Help: "Total number of failed account syncs",
			},
			[]string{"account"},
		),
		LastSyncEpoch: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "onebox_last_sync_timestamp_seconds",
				Help: "Unix time of the last completed sync run",
			},
		),

		NotificationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "onebox_notifications_total",
				Help: "Total number of notification deliveries",
			},
			[]string{"channel", "result"},
		),
		NotificationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "onebox_notification_duration_seconds",
				Help:    "Notification delivery duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"channel"},
		),

		EmailsCategorized: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "onebox_emails_categorized_total",
				Help: "Total number of categorized emails",
			},
			[]string{"category"},
		),
		RepliesGenerated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "onebox_replies_generated_total",
				Help: "Total number of generated reply suggestions",
			},
			[]string{"style"},
		),

		SearchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "onebox_searches_total",
				Help: "Total number of executed searches",
			},
			[]string{"kind"},
		),
		SearchResults: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "onebox_search_results",
				Help:    "Number of results returned per search",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250, 1000},
			},
		),

		WebsocketClients: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "onebox_websocket_clients",
				Help: "Number of connected websocket clients",
			},
		),

		ErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "onebox_errors_total",
				Help: "Total number of errors",
			},
			[]string{"type", "component"},
		),
		PanicsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "onebox_panics_total",
				Help: "Total number of recovered panics",
			},
		),
	}
}

// RecordHTTPRequest 记录 HTTP 请求指标
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordEmailsSynced 记录账户同步到的邮件数
func (m *Metrics) RecordEmailsSynced(account string, count int) {
	m.EmailsSynced.WithLabelValues(account).Add(float64(count))
}

// RecordSyncFailure 记录账户同步失败
func (m *Metrics) RecordSyncFailure(account string) {
	m.SyncFailures.WithLabelValues(account).Inc()
}

// RecordSyncRun 记录一次完整同步
func (m *Metrics) RecordSyncRun(duration time.Duration, finishedAt time.Time) {
	m.SyncDuration.Observe(duration.Seconds())
	m.LastSyncEpoch.Set(float64(finishedAt.Unix()))
}

// ObserveNotification 记录通知投递结果
func (m *Metrics) ObserveNotification(channel string, success bool, duration time.Duration) {
	result := "success"
	if !success {
		result = "failure"
	}
	m.NotificationsTotal.WithLabelValues(channel, result).Inc()
	m.NotificationDuration.WithLabelValues(channel).Observe(duration.Seconds())
}

// RecordCategorized 记录分类结果
func (m *Metrics) RecordCategorized(category string) {
	m.EmailsCategorized.WithLabelValues(category).Inc()
}

// RecordReplyGenerated 记录回复建议生成
func (m *Metrics) RecordReplyGenerated(style string) {
	m.RepliesGenerated.WithLabelValues(style).Inc()
}

// RecordSearch 记录搜索
func (m *Metrics) RecordSearch(kind string, results int) {
	m.SearchesTotal.WithLabelValues(kind).Inc()
	m.SearchResults.Observe(float64(results))
}

// UpdateWebsocketClients 更新 WebSocket 连接数
func (m *Metrics) UpdateWebsocketClients(count int) {
	m.WebsocketClients.Set(float64(count))
}

// RecordError 记录错误
func (m *Metrics) RecordError(errorType, component string) {
	m.ErrorsTotal.WithLabelValues(errorType, component).Inc()
}

// RecordPanic 记录 panic
func (m *Metrics) RecordPanic() {
	m.PanicsTotal.Inc()
}

// Registry 返回底层注册表
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// HTTPHandler 返回 Prometheus HTTP 处理器
func (m *Metrics) HTTPHandler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
