package mailsource

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"github.com/jhillyerd/enmime"
	"go.uber.org/zap"

	"onebox/backend/internal/config"
	"onebox/backend/internal/domain"
)

// Message 待发送的邮件
type Message struct {
	From        domain.Address
	To          []string
	Subject     string
	Text        string
	HTML        string
	Attachments []domain.OutgoingAttachment
}

// Build 生成 RFC 5322 报文
func (m *Message) Build() ([]byte, error) {
	b := enmime.Builder().
		From(m.From.Name, m.From.Email).
		Subject(m.Subject).
		Text([]byte(m.Text))
	if m.HTML != "" {
		b = b.HTML([]byte(m.HTML))
	}
	for _, to := range m.To {
		b = b.To("", to)
	}
	for _, att := range m.Attachments {
		contentType := att.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		b = b.AddAttachment(att.Content, contentType, att.Filename)
	}

	part, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("build message: %w", err)
	}

	var buf bytes.Buffer
	if err := part.Encode(&buf); err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}
	return buf.Bytes(), nil
}

// SMTPSender 通过 SMTP 中继发送邮件
type SMTPSender struct {
	addr string
	auth sasl.Client
	log  *zap.Logger
}

// NewSMTPSender 创建 SMTP 发送器
func NewSMTPSender(cfg config.SMTPConfig, log *zap.Logger) *SMTPSender {
	var auth sasl.Client
	if cfg.Username != "" {
		auth = sasl.NewPlainClient("", cfg.Username, cfg.Password)
	}
	return &SMTPSender{
		addr: net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		auth: auth,
		log:  log,
	}
}

// Send 发送邮件
func (s *SMTPSender) Send(ctx context.Context, msg *Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	raw, err := msg.Build()
	if err != nil {
		return err
	}

	if err := smtp.SendMail(s.addr, s.auth, msg.From.Email, msg.To, bytes.NewReader(raw)); err != nil {
		return fmt.Errorf("smtp send via %s: %w", s.addr, err)
	}

	s.log.Info("email sent",
		zap.String("relay", s.addr),
		zap.String("from", msg.From.Email),
		zap.Int("recipients", len(msg.To)),
	)
	return nil
}

// NopSender 未配置 SMTP 时使用，只记录日志
type NopSender struct {
	log *zap.Logger
}

// NewNopSender 创建空发送器
func NewNopSender(log *zap.Logger) *NopSender {
	return &NopSender{log: log}
}

// Send 实现发送接口
func (s *NopSender) Send(_ context.Context, msg *Message) error {
	s.log.Debug("smtp not configured, skipping delivery",
		zap.String("subject", msg.Subject),
		zap.Strings("to", msg.To),
	)
	return nil
}
