package service

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"onebox/backend/internal/domain"
	"onebox/backend/internal/mailsource"
	"onebox/backend/internal/storage"
)

// Sender 外发邮件
type Sender interface {
	Send(ctx context.Context, msg *mailsource.Message) error
}

// AttachmentChecker 外发附件检查，可回填附件的 ContentType
type AttachmentChecker interface {
	Check(att *domain.OutgoingAttachment) error
}

// EmailService 封装邮件相关业务操作。
type EmailService struct {
	emails      storage.EmailRepository
	accounts    storage.AccountRepository
	sender      Sender
	attachments AttachmentChecker
	defaultFrom string
	validator   *domain.EmailValidator
	log         *zap.Logger
	now         func() time.Time
}

// NewEmailService 创建邮件业务服务。defaultFrom 为未指定发件人时使用的地址。
func NewEmailService(emails storage.EmailRepository, accounts storage.AccountRepository, sender Sender, defaultFrom string, log *zap.Logger) *EmailService {
	return &EmailService{
		emails:      emails,
		accounts:    accounts,
		sender:      sender,
		defaultFrom: defaultFrom,
		validator:   domain.NewEmailValidator(),
		log:         log,
		now:         time.Now,
	}
}

// SetAttachmentChecker 设置外发附件检查器，nil 表示不检查
func (s *EmailService) SetAttachmentChecker(c AttachmentChecker) {
	s.attachments = c
}

// FetchEmails 按日期倒序返回邮件，支持账户过滤与分页
func (s *EmailService) FetchEmails(opts domain.ListOptions) ([]*domain.Email, error) {
	if opts.Offset < 0 {
		opts.Offset = 0
	}
	return s.emails.ListEmails(opts)
}

// GetEmail 根据 ID 获取邮件（包括已删除的）
func (s *EmailService) GetEmail(id string) (*domain.Email, error) {
	return s.emails.GetEmail(id)
}

// MarkAsRead 标记已读，重复调用无副作用
func (s *EmailService) MarkAsRead(id string) error {
	return s.emails.MarkEmailRead(id)
}

// ToggleStarred 切换星标，返回切换后的状态
func (s *EmailService) ToggleStarred(id string) (bool, error) {
	return s.emails.ToggleEmailStarred(id)
}

// MoveToTrash 软删除
func (s *EmailService) MoveToTrash(id string) error {
	return s.emails.MarkEmailDeleted(id)
}

// UnreadCount 统计未读邮件，account 为空时统计全部账户（不含已删除）
func (s *EmailService) UnreadCount(account string) (int, error) {
	return s.emails.CountUnread(account)
}

// SendEmail 校验并发送邮件，成功后写入已发送记录
func (s *EmailService) SendEmail(ctx context.Context, input domain.SendEmailInput) (*domain.Email, error) {
	for i := range input.To {
		input.To[i] = strings.TrimSpace(input.To[i])
	}
	input.From = strings.TrimSpace(input.From)

	if err := input.Validate(); err != nil {
		return nil, err
	}
	if s.attachments != nil {
		for i := range input.Attachments {
			if err := s.attachments.Check(&input.Attachments[i]); err != nil {
				return nil, err
			}
		}
	}

	from := input.From
	if from == "" {
		from = s.defaultFrom
	}

	account, err := s.resolveAccount(input.Account)
	if err != nil {
		return nil, err
	}

	to := make([]domain.Address, 0, len(input.To))
	for _, addr := range input.To {
		to = append(to, domain.Address{Email: addr})
	}
	attachments := make([]domain.Attachment, 0, len(input.Attachments))
	for _, att := range input.Attachments {
		attachments = append(attachments, att.Meta())
	}

	email := &domain.Email{
		ID:      uuid.NewString(),
		Account: account,
		From:    domain.Address{Name: "You", Email: from},
		To:      to,
		Subject: input.Subject,
		Body: domain.Body{
			Text: input.Body,
			HTML: renderHTML(input.Body),
		},
		Date:        s.now().UTC(),
		IsRead:      true,
		Labels:      []string{"sent"},
		Attachments: attachments,
		Category:    domain.CategoryNeutral,
	}

	msg := &mailsource.Message{
		From:        email.From,
		To:          input.To,
		Subject:     email.Subject,
		Text:        email.Body.Text,
		HTML:        email.Body.HTML,
		Attachments: input.Attachments,
	}
	if err := s.sender.Send(ctx, msg); err != nil {
		s.log.Error("failed to send email",
			zap.Strings("to", input.To),
			zap.String("subject", input.Subject),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %v", ErrSendFailed, err)
	}

	if err := s.emails.SaveEmail(email); err != nil {
		return nil, fmt.Errorf("save sent email: %w", err)
	}

	s.log.Info("email sent",
		zap.String("email_id", email.ID),
		zap.String("account", email.Account),
		zap.Int("recipients", len(to)),
	)
	return email, nil
}

// resolveAccount 未指定账户时归入第一个账户
func (s *EmailService) resolveAccount(id string) (string, error) {
	if id != "" {
		if _, err := s.accounts.GetAccount(id); err != nil {
			return "", err
		}
		return id, nil
	}
	accounts, err := s.accounts.ListAccounts()
	if err != nil {
		return "", err
	}
	if len(accounts) == 0 {
		return "", nil
	}
	return accounts[0].ID, nil
}

// renderHTML 转义正文并把换行替换为 <br>
func renderHTML(body string) string {
	escaped := html.EscapeString(body)
	return "<p>" + strings.ReplaceAll(escaped, "\n", "<br>") + "</p>"
}
