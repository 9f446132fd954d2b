package notify

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"onebox/backend/internal/domain"
)

const previewLength = 100

// SlackText Slack 文本对象
type SlackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// SlackBlock Slack 消息块
type SlackBlock struct {
	Type string    `json:"type"`
	Text SlackText `json:"text"`
}

// SlackPayload Slack incoming webhook 消息体
type SlackPayload struct {
	Text   string       `json:"text"`
	Blocks []SlackBlock `json:"blocks"`
}

// WebhookData Webhook 事件数据
type WebhookData struct {
	ID         string          `json:"id"`
	From       domain.Address  `json:"from"`
	Subject    string          `json:"subject"`
	ReceivedAt string          `json:"received_at"`
	IsRead     bool            `json:"is_read"`
	Category   domain.Category `json:"category,omitempty"`
}

// WebhookPayload Webhook 事件
type WebhookPayload struct {
	Event string      `json:"event"`
	Data  WebhookData `json:"data"`
}

// NewSlackPayload 构造 Slack 消息
func NewSlackPayload(email *domain.Email) SlackPayload {
	sender := fmt.Sprintf("%s <%s>", email.From.Name, email.From.Email)
	return SlackPayload{
		Text: "New email from " + sender,
		Blocks: []SlackBlock{
			{
				Type: "section",
				Text: SlackText{
					Type: "mrkdwn",
					Text: fmt.Sprintf("*New email received*\n*From:* %s\n*Subject:* %s", sender, email.Subject),
				},
			},
			{
				Type: "section",
				Text: SlackText{Type: "plain_text", Text: preview(email.Body.Text)},
			},
		},
	}
}

// NewWebhookPayload 构造通用 Webhook 事件
func NewWebhookPayload(email *domain.Email) WebhookPayload {
	return WebhookPayload{
		Event: "new_email",
		Data: WebhookData{
			ID:         email.ID,
			From:       email.From,
			Subject:    email.Subject,
			ReceivedAt: email.Date.UTC().Format(time.RFC3339),
			IsRead:     email.IsRead,
			Category:   email.Category,
		},
	}
}

// Sign 生成 HMAC-SHA256 签名
func Sign(payload []byte, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(payload)
	return "sha256=" + hex.EncodeToString(h.Sum(nil))
}

func preview(text string) string {
	runes := []rune(text)
	if len(runes) <= previewLength {
		return text
	}
	return string(runes[:previewLength]) + "..."
}
