package mailsource

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/google/uuid"
	"github.com/jhillyerd/enmime"
	"go.uber.org/zap"

	"onebox/backend/internal/domain"
)

// ErrIMAPNotConfigured 账户缺少 IMAP 主机
var ErrIMAPNotConfigured = errors.New("imap settings not configured")

// DefaultLookback 首次同步时回溯的时间窗口
const DefaultLookback = 7 * 24 * time.Hour

// IMAPFetcher 通过 IMAP 拉取 INBOX 新邮件
type IMAPFetcher struct {
	limit int
	log   *zap.Logger
	now   func() time.Time
}

// NewIMAPFetcher 创建 IMAP 拉取器，limit 为单次最多拉取的邮件数，0 表示不限
func NewIMAPFetcher(limit int, log *zap.Logger) *IMAPFetcher {
	return &IMAPFetcher{limit: limit, log: log, now: time.Now}
}

func (f *IMAPFetcher) connect(account *domain.Account) (*imapclient.Client, error) {
	settings := account.IMAPSettings
	if settings.Host == "" {
		return nil, ErrIMAPNotConfigured
	}
	port := settings.Port
	if port == 0 {
		port = 993
	}
	addr := net.JoinHostPort(settings.Host, strconv.Itoa(port))

	var (
		client *imapclient.Client
		err    error
	)
	if settings.Secure {
		client, err = imapclient.DialTLS(addr, nil)
	} else {
		client, err = imapclient.DialStartTLS(addr, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("connecting to IMAP %s: %w", addr, err)
	}

	username := account.Username
	if username == "" {
		username = account.Email
	}
	if err := client.Login(username, account.Password).Wait(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("imap login for %s: %w", username, err)
	}
	return client, nil
}

// Fetch 实现 Fetcher
func (f *IMAPFetcher) Fetch(ctx context.Context, account *domain.Account, since *time.Time) ([]*domain.Email, error) {
	client, err := f.connect(account)
	if err != nil {
		return nil, err
	}
	defer func() { _ = client.Logout().Wait() }()

	// ctx 取消时关闭连接，阻塞中的命令会立即返回
	stop := context.AfterFunc(ctx, func() { _ = client.Close() })
	defer stop()

	if _, err := client.Select("INBOX", nil).Wait(); err != nil {
		return nil, fmt.Errorf("selecting INBOX: %w", err)
	}

	from := f.now().Add(-DefaultLookback)
	if since != nil {
		from = *since
	}

	searchData, err := client.UIDSearch(&imap.SearchCriteria{Since: from}, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("searching messages: %w", err)
	}
	uids := searchData.AllUIDs()
	if len(uids) == 0 {
		return nil, nil
	}
	if f.limit > 0 && len(uids) > f.limit {
		uids = uids[len(uids)-f.limit:]
	}

	bodySection := &imap.FetchItemBodySection{Peek: true}
	fetchCmd := client.Fetch(imap.UIDSetNum(uids...), &imap.FetchOptions{
		Envelope:     true,
		Flags:        true,
		InternalDate: true,
		UID:          true,
		BodySection:  []*imap.FetchItemBodySection{bodySection},
	})
	defer fetchCmd.Close()

	var emails []*domain.Email
	for {
		msg := fetchCmd.Next()
		if msg == nil {
			break
		}
		buf, err := msg.Collect()
		if err != nil {
			f.log.Warn("failed to collect imap message", zap.String("account", account.ID), zap.Error(err))
			continue
		}

		if !receivedAfter(buf, since) {
			continue
		}
		emails = append(emails, emailFromBuffer(account, buf, buf.FindBodySection(bodySection)))
	}

	if err := fetchCmd.Close(); err != nil {
		return emails, fmt.Errorf("fetching messages: %w", err)
	}

	f.log.Debug("fetched imap messages",
		zap.String("account", account.ID),
		zap.Int("count", len(emails)),
	)
	return emails, nil
}

// receivedAfter 按服务器收件时间判断是否为 since 之后的邮件。
// IMAP SINCE 只精确到天，这里再精确过滤一次；发件人 Date 头可能滞后或被伪造，不参与判断。
func receivedAfter(buf *imapclient.FetchMessageBuffer, since *time.Time) bool {
	if since == nil || buf.InternalDate.IsZero() {
		return true
	}
	return buf.InternalDate.After(*since)
}

func emailFromBuffer(account *domain.Account, buf *imapclient.FetchMessageBuffer, raw []byte) *domain.Email {
	email := &domain.Email{
		Account:     account.ID,
		Labels:      []string{"inbox"},
		Attachments: []domain.Attachment{},
	}

	messageID := strconv.FormatUint(uint64(buf.UID), 10)
	if env := buf.Envelope; env != nil {
		if env.MessageID != "" {
			messageID = env.MessageID
		}
		email.Subject = env.Subject
		email.Date = env.Date.UTC()
		if len(env.From) > 0 {
			email.From = domain.Address{Name: env.From[0].Name, Email: env.From[0].Addr()}
		}
		for _, to := range env.To {
			email.To = append(email.To, domain.Address{Name: to.Name, Email: to.Addr()})
		}
	}
	if email.Date.IsZero() {
		email.Date = buf.InternalDate.UTC()
	}

	// 同一账户同一封邮件重复同步时得到相同的 ID
	email.ID = uuid.NewSHA1(uuid.NameSpaceURL, []byte(account.ID+"/"+messageID)).String()

	for _, flag := range buf.Flags {
		switch flag {
		case imap.FlagSeen:
			email.IsRead = true
		case imap.FlagFlagged:
			email.IsStarred = true
		}
	}

	if raw != nil {
		applyMIME(email, raw)
	}
	return email
}

// applyMIME 解析原始报文，填充正文与附件元数据
func applyMIME(email *domain.Email, raw []byte) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		email.Body.Text = string(raw)
		return
	}

	email.Body = domain.Body{Text: env.Text, HTML: env.HTML}
	if email.Subject == "" {
		email.Subject = env.GetHeader("Subject")
	}
	for _, att := range env.Attachments {
		email.Attachments = append(email.Attachments, domain.Attachment{
			Filename:    att.FileName,
			ContentType: att.ContentType,
			Size:        int64(len(att.Content)),
		})
	}
	for _, att := range env.Inlines {
		if att.FileName == "" {
			continue
		}
		email.Attachments = append(email.Attachments, domain.Attachment{
			Filename:    att.FileName,
			ContentType: att.ContentType,
			Size:        int64(len(att.Content)),
		})
	}
}
