package storage

import (
	"errors"
	"time"

	"onebox/backend/internal/domain"
)

var (
	// ErrEmailNotFound 邮件未找到
	ErrEmailNotFound = errors.New("email not found")
	// ErrEmailExists 邮件 ID 冲突
	ErrEmailExists = errors.New("email already exists")
	// ErrAccountNotFound 账户未找到
	ErrAccountNotFound = errors.New("account not found")
	// ErrAccountExists 同一地址的账户已存在
	ErrAccountExists = errors.New("account already exists")
)

// EmailRepository 定义邮件数据存取操作。
//
// 列表和搜索结果按日期倒序（同一时间按写入顺序），返回的都是副本。
type EmailRepository interface {
	SaveEmail(email *domain.Email) error
	CreateEmail(email *domain.Email) error // 仅插入，ID 已存在时返回 ErrEmailExists
	GetEmail(id string) (*domain.Email, error)
	ListEmails(opts domain.ListOptions) ([]*domain.Email, error)
	SearchEmails(q domain.SearchQuery) ([]*domain.Email, error)
	MarkEmailRead(id string) error
	ToggleEmailStarred(id string) (bool, error) // 返回切换后的星标状态
	MarkEmailDeleted(id string) error
	SetEmailCategory(id string, category domain.Category) error
	SetSuggestedReply(id, reply string) error
	CountUnread(account string) (int, error) // account 为空统计全部账户
}

// AccountRepository 定义邮箱账户数据存取操作。
type AccountRepository interface {
	SaveAccount(account *domain.Account) error
	GetAccount(id string) (*domain.Account, error)
	ListAccounts() ([]*domain.Account, error)
	UpdateAccountSynced(id string, at time.Time) error
}

// SettingsRepository 定义 AI 与通知设置的存取操作。
type SettingsRepository interface {
	GetAISettings() (domain.AISettings, error)
	SaveAISettings(settings domain.AISettings) error
	GetNotificationSettings() (domain.NotificationSettings, error)
	SaveNotificationSettings(settings domain.NotificationSettings) error
}

// Store 定义完整的存储接口。
type Store interface {
	EmailRepository
	AccountRepository
	SettingsRepository

	// 工具方法
	Close() error
	Health() error
}
