package domain

// ReplyStyle 回复风格
type ReplyStyle string

const (
	ReplyStyleProfessional ReplyStyle = "professional"
	ReplyStyleFriendly     ReplyStyle = "friendly"
	ReplyStyleConcise      ReplyStyle = "concise"
)

// Valid 是否为已知风格
func (s ReplyStyle) Valid() bool {
	switch s {
	case ReplyStyleProfessional, ReplyStyleFriendly, ReplyStyleConcise:
		return true
	}
	return false
}

// CategorySettings 自动分类设置，Threshold 取值 0-100
type CategorySettings struct {
	Enabled   bool `json:"enabled"`
	Threshold int  `json:"threshold"`
}

// ReplySettings 回复建议设置
type ReplySettings struct {
	Enabled bool       `json:"enabled"`
	Style   ReplyStyle `json:"style"`
}

// AISettings AI 功能设置
type AISettings struct {
	Enabled          bool             `json:"enabled"`
	Categories       CategorySettings `json:"categories"`
	SuggestedReplies ReplySettings    `json:"suggestedReplies"`
}

// DefaultAISettings 默认 AI 设置
func DefaultAISettings() AISettings {
	return AISettings{
		Enabled:          true,
		Categories:       CategorySettings{Enabled: true, Threshold: 75},
		SuggestedReplies: ReplySettings{Enabled: true, Style: ReplyStyleProfessional},
	}
}

// NotifyOn 触发通知的事件
type NotifyOn struct {
	NewEmail       bool `json:"newEmail"`
	ImportantEmail bool `json:"importantEmail"`
}

// Matches 判断邮件是否需要通知
func (n NotifyOn) Matches(email *Email) bool {
	return n.NewEmail || (n.ImportantEmail && email.Category == CategoryImportant)
}

// SlackSettings Slack 通知设置
type SlackSettings struct {
	WebhookURL string   `json:"webhookUrl"`
	Enabled    bool     `json:"enabled"`
	NotifyOn   NotifyOn `json:"notifyOn"`
}

// WebhookSettings 通用 Webhook 通知设置
type WebhookSettings struct {
	URL      string   `json:"url"`
	Enabled  bool     `json:"enabled"`
	Secret   string   `json:"secret,omitempty"`
	NotifyOn NotifyOn `json:"notifyOn"`
}

// NotificationSettings 通知设置，渠道为 nil 表示未配置
type NotificationSettings struct {
	Slack   *SlackSettings   `json:"slack,omitempty"`
	Webhook *WebhookSettings `json:"webhook,omitempty"`
}

// SlackActive Slack 渠道是否可用
func (s NotificationSettings) SlackActive() bool {
	return s.Slack != nil && s.Slack.Enabled && s.Slack.WebhookURL != ""
}

// WebhookActive Webhook 渠道是否可用
func (s NotificationSettings) WebhookActive() bool {
	return s.Webhook != nil && s.Webhook.Enabled && s.Webhook.URL != ""
}

// AnyEnabled 至少有一个渠道开启
func (s NotificationSettings) AnyEnabled() bool {
	return (s.Slack != nil && s.Slack.Enabled) || (s.Webhook != nil && s.Webhook.Enabled)
}

// DefaultNotificationSettings 默认通知设置（全部关闭）
func DefaultNotificationSettings() NotificationSettings {
	return NotificationSettings{
		Slack:   &SlackSettings{NotifyOn: NotifyOn{NewEmail: true, ImportantEmail: true}},
		Webhook: &WebhookSettings{NotifyOn: NotifyOn{NewEmail: true, ImportantEmail: true}},
	}
}
