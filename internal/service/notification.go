package service

import (
	"context"
	"errors"
	"net/url"
	"time"

	"go.uber.org/zap"

	"onebox/backend/internal/domain"
	"onebox/backend/internal/notify"
	"onebox/backend/internal/pool"
	"onebox/backend/internal/storage"
)

// ErrInvalidNotificationURL 通知地址不是合法的 http(s) URL
var ErrInvalidNotificationURL = errors.New("invalid notification url")

// TestResult 测试通知结果
type TestResult struct {
	Slack   bool `json:"slack"`
	Webhook bool `json:"webhook"`
}

// NotificationService 新邮件通知
type NotificationService struct {
	settings storage.SettingsRepository
	emails   storage.EmailRepository
	notifier notify.Notifier
	deduper  notify.Deduper
	pool     *pool.WorkerPool
	timeout  time.Duration
	log      *zap.Logger
}

// NewNotificationService 创建通知服务。投递在 pool 中异步执行，单次投递超时为 timeout。
func NewNotificationService(
	settings storage.SettingsRepository,
	emails storage.EmailRepository,
	notifier notify.Notifier,
	deduper notify.Deduper,
	workers *pool.WorkerPool,
	timeout time.Duration,
	log *zap.Logger,
) *NotificationService {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &NotificationService{
		settings: settings,
		emails:   emails,
		notifier: notifier,
		deduper:  deduper,
		pool:     workers,
		timeout:  timeout,
		log:      log,
	}
}

// Settings 获取通知设置
func (s *NotificationService) Settings() (domain.NotificationSettings, error) {
	return s.settings.GetNotificationSettings()
}

// UpdateSettings 校验并保存通知设置
func (s *NotificationService) UpdateSettings(settings domain.NotificationSettings) (domain.NotificationSettings, error) {
	if settings.Slack != nil && settings.Slack.WebhookURL != "" && !validHTTPURL(settings.Slack.WebhookURL) {
		return domain.NotificationSettings{}, ErrInvalidNotificationURL
	}
	if settings.Webhook != nil && settings.Webhook.URL != "" && !validHTTPURL(settings.Webhook.URL) {
		return domain.NotificationSettings{}, ErrInvalidNotificationURL
	}
	if err := s.settings.SaveNotificationSettings(settings); err != nil {
		return domain.NotificationSettings{}, err
	}
	s.log.Info("notification settings updated",
		zap.Bool("slack", settings.SlackActive()),
		zap.Bool("webhook", settings.WebhookActive()),
	)
	return settings, nil
}

// ProcessEmailNotifications 按当前设置为邮件派发通知，返回入队的投递数。
// 投递异步执行；同一封邮件在同一渠道只会通知一次。
func (s *NotificationService) ProcessEmailNotifications(ctx context.Context, email *domain.Email) (int, error) {
	settings, err := s.settings.GetNotificationSettings()
	if err != nil {
		return 0, err
	}

	queued := 0
	for _, d := range notify.Plan(settings, email) {
		if !s.deduper.AcquireOnce(ctx, string(d.Channel), email.ID) {
			continue
		}

		d := d
		snapshot := email.Clone()
		task := func() {
			deliverCtx, cancel := context.WithTimeout(context.Background(), s.timeout)
			defer cancel()
			if err := s.notifier.Notify(deliverCtx, d, snapshot); err != nil {
				s.log.Warn("notification delivery failed, releasing dedupe mark",
					zap.String("channel", string(d.Channel)),
					zap.String("email_id", snapshot.ID),
					zap.Error(err),
				)
				s.deduper.Release(context.Background(), string(d.Channel), snapshot.ID)
			}
		}
		if err := s.pool.Submit(ctx, task); err != nil {
			s.log.Warn("failed to queue notification",
				zap.String("channel", string(d.Channel)),
				zap.String("email_id", email.ID),
				zap.Error(err),
			)
			s.deduper.Release(context.Background(), string(d.Channel), email.ID)
			return queued, err
		}
		queued++
	}
	return queued, nil
}

// NotifyEmail 按 ID 为已有邮件派发通知
func (s *NotificationService) NotifyEmail(ctx context.Context, id string) (int, error) {
	email, err := s.emails.GetEmail(id)
	if err != nil {
		return 0, err
	}
	return s.ProcessEmailNotifications(ctx, email)
}

// TestSettings 用固定的测试邮件同步测试每个已开启的渠道
func (s *NotificationService) TestSettings(ctx context.Context, settings domain.NotificationSettings) TestResult {
	var result TestResult
	email := notify.TestEmail(time.Now().UTC())

	for _, d := range notify.TargetsForTest(settings) {
		deliverCtx, cancel := context.WithTimeout(ctx, s.timeout)
		err := s.notifier.Notify(deliverCtx, d, email)
		cancel()

		ok := err == nil
		switch d.Channel {
		case notify.ChannelSlack:
			result.Slack = ok
		case notify.ChannelWebhook:
			result.Webhook = ok
		}
	}
	return result
}

func validHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
