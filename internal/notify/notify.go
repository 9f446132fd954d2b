package notify

import (
	"context"
	"errors"
	"time"

	"onebox/backend/internal/domain"
)

// Channel 通知渠道
type Channel string

const (
	ChannelSlack   Channel = "slack"
	ChannelWebhook Channel = "webhook"
)

// ErrDeliveryFailed 通知投递失败
var ErrDeliveryFailed = errors.New("notification delivery failed")

// Delivery 单次投递目标
type Delivery struct {
	Channel Channel
	URL     string
	Secret  string
}

// Notifier 将邮件通知投递到外部渠道
type Notifier interface {
	Notify(ctx context.Context, d Delivery, email *domain.Email) error
}

// Deduper 去重守卫，同一渠道同一封邮件只放行一次。
// 投递失败时调用 Release 撤销标记，允许后续重试。
type Deduper interface {
	AcquireOnce(ctx context.Context, channel, emailID string) bool
	Release(ctx context.Context, channel, emailID string)
}

// Observer 接收投递结果，用于指标采集
type Observer interface {
	ObserveNotification(channel string, success bool, duration time.Duration)
}

// Plan 根据通知设置计算需要投递的渠道。
// 已读邮件或没有开启任何渠道时返回空。
func Plan(settings domain.NotificationSettings, email *domain.Email) []Delivery {
	if email == nil || email.IsRead || !settings.AnyEnabled() {
		return nil
	}

	var out []Delivery
	if settings.SlackActive() && settings.Slack.NotifyOn.Matches(email) {
		out = append(out, Delivery{Channel: ChannelSlack, URL: settings.Slack.WebhookURL})
	}
	if settings.WebhookActive() && settings.Webhook.NotifyOn.Matches(email) {
		out = append(out, Delivery{
			Channel: ChannelWebhook,
			URL:     settings.Webhook.URL,
			Secret:  settings.Webhook.Secret,
		})
	}
	return out
}

// TargetsForTest 测试通知时的投递目标，忽略 notifyOn 条件
func TargetsForTest(settings domain.NotificationSettings) []Delivery {
	var out []Delivery
	if settings.SlackActive() {
		out = append(out, Delivery{Channel: ChannelSlack, URL: settings.Slack.WebhookURL})
	}
	if settings.WebhookActive() {
		out = append(out, Delivery{
			Channel: ChannelWebhook,
			URL:     settings.Webhook.URL,
			Secret:  settings.Webhook.Secret,
		})
	}
	return out
}

// TestEmail 测试通知使用的固定邮件
func TestEmail(now time.Time) *domain.Email {
	return &domain.Email{
		ID:      "test-email",
		Account: "test-account",
		From:    domain.Address{Name: "Test Sender", Email: "test@example.com"},
		To:      []domain.Address{{Name: "Current User", Email: "user@example.com"}},
		Subject: "Test Notification",
		Body: domain.Body{
			Text: "This is a test notification to verify your notification settings.",
			HTML: "<p>This is a test notification to verify your notification settings.</p>",
		},
		Date:        now,
		Labels:      []string{"test"},
		Attachments: []domain.Attachment{},
		Category:    domain.CategoryImportant,
	}
}
