package memory

import (
	"sort"
	"strings"
	"sync"
	"time"

	"onebox/backend/internal/domain"
	"onebox/backend/internal/query"
	"onebox/backend/internal/storage"
)

// Store 使用内存保存邮件、账户与设置，主要用于开发验证和测试。
type Store struct {
	mu       sync.RWMutex
	emails   map[string]*domain.Email // emailID -> email
	order    []string                 // 写入顺序
	accounts map[string]*domain.Account
	byEmail  map[string]string // 账户地址 -> accountID

	aiSettings     domain.AISettings
	notifySettings domain.NotificationSettings

	seq int64
}

// NewStore 创建一个内存存储实例。
func NewStore() *Store {
	return &Store{
		emails:         make(map[string]*domain.Email),
		accounts:       make(map[string]*domain.Account),
		byEmail:        make(map[string]string),
		aiSettings:     domain.DefaultAISettings(),
		notifySettings: domain.DefaultNotificationSettings(),
	}
}

// SaveEmail 保存邮件。已存在的 ID 原位更新，不改变写入顺序。
func (s *Store) SaveEmail(email *domain.Email) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := email.Clone()
	if old, ok := s.emails[email.ID]; ok {
		cp.Seq = old.Seq
	} else {
		s.seq++
		cp.Seq = s.seq
		s.order = append(s.order, email.ID)
	}
	s.emails[email.ID] = cp
	return nil
}

// CreateEmail 插入新邮件，ID 已存在时返回 ErrEmailExists 且不修改原记录。
func (s *Store) CreateEmail(email *domain.Email) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.emails[email.ID]; ok {
		return storage.ErrEmailExists
	}
	cp := email.Clone()
	s.seq++
	cp.Seq = s.seq
	s.order = append(s.order, email.ID)
	s.emails[email.ID] = cp
	return nil
}

// GetEmail 根据 ID 获取邮件。
func (s *Store) GetEmail(id string) (*domain.Email, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	email, ok := s.emails[id]
	if !ok {
		return nil, storage.ErrEmailNotFound
	}
	return email.Clone(), nil
}

// snapshotLocked 返回按日期倒序的副本，调用方需持有读锁
func (s *Store) snapshotLocked(includeDeleted bool) []*domain.Email {
	result := make([]*domain.Email, 0, len(s.order))
	for _, id := range s.order {
		email := s.emails[id]
		if !includeDeleted && !query.NotDeleted(email) {
			continue
		}
		result = append(result, email.Clone())
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Date.After(result[j].Date)
	})
	return result
}

// ListEmails 按账户列出邮件，日期倒序。Limit 为 0 时不分页，Offset 也被忽略。
func (s *Store) ListEmails(opts domain.ListOptions) ([]*domain.Email, error) {
	s.mu.RLock()
	all := s.snapshotLocked(opts.IncludeDeleted)
	s.mu.RUnlock()

	if opts.Account != "" {
		all = query.Filter(all, query.Accounts([]string{opts.Account}))
	}
	if opts.Limit > 0 {
		all = query.Page(all, opts.Offset, opts.Limit)
	}
	return all, nil
}

// SearchEmails 在日期倒序的邮件序列上执行查询。
func (s *Store) SearchEmails(q domain.SearchQuery) ([]*domain.Email, error) {
	includeDeleted := q.Filters != nil && q.Filters.IncludeDeleted

	s.mu.RLock()
	all := s.snapshotLocked(includeDeleted)
	s.mu.RUnlock()

	return query.Execute(q, all), nil
}

// update 在写锁内修改邮件
func (s *Store) update(id string, fn func(e *domain.Email)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email, ok := s.emails[id]
	if !ok {
		return storage.ErrEmailNotFound
	}
	fn(email)
	return nil
}

// MarkEmailRead 标记邮件为已读，可重复调用。
func (s *Store) MarkEmailRead(id string) error {
	return s.update(id, func(e *domain.Email) { e.IsRead = true })
}

// ToggleEmailStarred 切换星标。
func (s *Store) ToggleEmailStarred(id string) (bool, error) {
	var starred bool
	err := s.update(id, func(e *domain.Email) {
		e.IsStarred = !e.IsStarred
		starred = e.IsStarred
	})
	return starred, err
}

// MarkEmailDeleted 软删除邮件。
func (s *Store) MarkEmailDeleted(id string) error {
	return s.update(id, func(e *domain.Email) { e.IsDeleted = true })
}

// SetEmailCategory 写入分类结果。
func (s *Store) SetEmailCategory(id string, category domain.Category) error {
	return s.update(id, func(e *domain.Email) { e.Category = category })
}

// SetSuggestedReply 写入建议回复。
func (s *Store) SetSuggestedReply(id, reply string) error {
	return s.update(id, func(e *domain.Email) { e.SuggestedReply = reply })
}

// CountUnread 统计未读且未删除的邮件。
func (s *Store) CountUnread(account string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, email := range s.emails {
		if email.IsRead || email.IsDeleted {
			continue
		}
		if account != "" && email.Account != account {
			continue
		}
		count++
	}
	return count, nil
}

// SaveAccount 保存账户，地址（忽略大小写）重复时返回 ErrAccountExists。
func (s *Store) SaveAccount(account *domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(account.Email)
	if id, ok := s.byEmail[key]; ok && id != account.ID {
		return storage.ErrAccountExists
	}
	// 地址变更时释放旧地址
	if old, ok := s.accounts[account.ID]; ok {
		if oldKey := strings.ToLower(old.Email); oldKey != key {
			delete(s.byEmail, oldKey)
		}
	}

	cp := *account
	if account.LastSynced != nil {
		t := *account.LastSynced
		cp.LastSynced = &t
	}
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	s.accounts[account.ID] = &cp
	s.byEmail[key] = account.ID
	return nil
}

// GetAccount 根据 ID 获取账户。
func (s *Store) GetAccount(id string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	account, ok := s.accounts[id]
	if !ok {
		return nil, storage.ErrAccountNotFound
	}
	cp := *account
	return &cp, nil
}

// ListAccounts 按创建时间返回全部账户。
func (s *Store) ListAccounts() ([]*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Account, 0, len(s.accounts))
	for _, account := range s.accounts {
		cp := *account
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

// UpdateAccountSynced 更新最后同步时间。
func (s *Store) UpdateAccountSynced(id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[id]
	if !ok {
		return storage.ErrAccountNotFound
	}
	t := at
	account.LastSynced = &t
	return nil
}

// GetAISettings 获取 AI 设置。
func (s *Store) GetAISettings() (domain.AISettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.aiSettings, nil
}

// SaveAISettings 保存 AI 设置。
func (s *Store) SaveAISettings(settings domain.AISettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.aiSettings = settings
	return nil
}

// GetNotificationSettings 获取通知设置，返回的指针字段为副本。
func (s *Store) GetNotificationSettings() (domain.NotificationSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneNotificationSettings(s.notifySettings), nil
}

// SaveNotificationSettings 保存通知设置。
func (s *Store) SaveNotificationSettings(settings domain.NotificationSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifySettings = cloneNotificationSettings(settings)
	return nil
}

func cloneNotificationSettings(in domain.NotificationSettings) domain.NotificationSettings {
	var out domain.NotificationSettings
	if in.Slack != nil {
		slack := *in.Slack
		out.Slack = &slack
	}
	if in.Webhook != nil {
		webhook := *in.Webhook
		out.Webhook = &webhook
	}
	return out
}

// Close 内存存储无需释放资源。
func (s *Store) Close() error {
	return nil
}

// Health 内存存储始终健康。
func (s *Store) Health() error {
	return nil
}

var _ storage.Store = (*Store)(nil)
