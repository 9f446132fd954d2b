package sql

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"onebox/backend/internal/domain"
	"onebox/backend/internal/query"
	"onebox/backend/internal/storage"
)

// PoolConfig 连接池参数
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Store SQL 数据库存储实现（支持 PostgreSQL、MySQL 5.7+ 和 SQLite）
type Store struct {
	db *gorm.DB
}

// settingsRecord 设置表只有一行
type settingsRecord struct {
	ID           uint                        `gorm:"primaryKey"`
	AI           domain.AISettings           `gorm:"serializer:json"`
	Notification domain.NotificationSettings `gorm:"serializer:json"`
	UpdatedAt    time.Time
}

func (settingsRecord) TableName() string {
	return "settings"
}

const settingsRowID = 1

// Dialector 根据驱动名称返回 GORM dialector
func Dialector(driver, dsn string) (gorm.Dialector, error) {
	switch driver {
	case "postgres":
		return postgres.Open(dsn), nil
	case "mysql":
		return mysql.Open(dsn), nil
	case "sqlite":
		return sqlite.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s (supported: postgres, mysql, sqlite)", driver)
	}
}

// NewStore 按驱动名称创建存储
func NewStore(driver, dsn string, pool PoolConfig) (*Store, error) {
	dialector, err := Dialector(driver, dsn)
	if err != nil {
		return nil, err
	}
	return NewStoreWithDialector(dialector, pool)
}

// NewStoreWithDialector 使用指定的 GORM dialector 创建存储实例
func NewStoreWithDialector(dialector gorm.Dialector, pool PoolConfig) (*Store, error) {
	config := &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent), // 静默模式
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	db, err := gorm.Open(dialector, config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	if pool.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(pool.MaxIdleConns)
	}
	if pool.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(pool.ConnMaxLifetime)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// migrate 自动迁移数据库表结构
func (s *Store) migrate() error {
	return s.db.AutoMigrate(
		&domain.Email{},
		&domain.Account{},
		&settingsRecord{},
	)
}

// Close 关闭数据库连接
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Health 检查数据库健康状态
func (s *Store) Health() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// ========== Email Repository ==========

// newRecord 复制邮件并把日期统一为 UTC，SQLite 按字符串比较日期
func newRecord(email *domain.Email) *domain.Email {
	record := email.Clone()
	record.Date = record.Date.UTC()
	return record
}

// SaveEmail 保存邮件，已存在的邮件保留原写入序号
func (s *Store) SaveEmail(email *domain.Email) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		record := newRecord(email)

		var existing domain.Email
		err := tx.Select("id", "seq").Where("id = ?", email.ID).First(&existing).Error
		switch {
		case err == nil:
			record.Seq = existing.Seq
			return TranslateError(tx.Save(record).Error, storage.ErrEmailExists)
		case errors.Is(err, gorm.ErrRecordNotFound):
			record.Seq = time.Now().UnixNano()
			return TranslateError(tx.Create(record).Error, storage.ErrEmailExists)
		default:
			return err
		}
	})
}

// CreateEmail 插入新邮件，ID 冲突时返回 ErrEmailExists，由数据库保证原子性
func (s *Store) CreateEmail(email *domain.Email) error {
	record := newRecord(email)
	record.Seq = time.Now().UnixNano()

	result := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(record)
	if result.Error != nil {
		return TranslateError(result.Error, storage.ErrEmailExists)
	}
	if result.RowsAffected == 0 {
		return storage.ErrEmailExists
	}
	return nil
}

// GetEmail 根据 ID 获取邮件（包括已删除的）
func (s *Store) GetEmail(id string) (*domain.Email, error) {
	var email domain.Email
	if err := s.db.Where("id = ?", id).First(&email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrEmailNotFound
		}
		return nil, err
	}
	return &email, nil
}

func ordered(tx *gorm.DB) *gorm.DB {
	return tx.Order("date DESC").Order("seq ASC")
}

// ListEmails 列出邮件，日期倒序
func (s *Store) ListEmails(opts domain.ListOptions) ([]*domain.Email, error) {
	tx := s.db.Model(&domain.Email{})
	if opts.Account != "" {
		tx = tx.Where("account = ?", opts.Account)
	}
	if !opts.IncludeDeleted {
		tx = tx.Where("is_deleted = ?", false)
	}
	// 只有设置 Limit 时才分页
	if opts.Limit > 0 {
		tx = tx.Limit(opts.Limit).Offset(opts.Offset)
	}

	var emails []*domain.Email
	if err := ordered(tx).Find(&emails).Error; err != nil {
		return nil, err
	}
	return emails, nil
}

// SearchEmails 先把可直接下推的条件交给数据库，再用查询谓词做完整匹配
func (s *Store) SearchEmails(q domain.SearchQuery) ([]*domain.Email, error) {
	tx := s.db.Model(&domain.Email{})
	if f := q.Filters; f != nil {
		if len(f.Accounts) > 0 {
			tx = tx.Where("account IN ?", f.Accounts)
		}
		if len(f.Categories) > 0 {
			tx = tx.Where("category IN ?", f.Categories)
		}
		if f.IsRead != nil {
			tx = tx.Where("is_read = ?", *f.IsRead)
		}
		if f.IsStarred != nil {
			tx = tx.Where("is_starred = ?", *f.IsStarred)
		}
		if f.DateFrom != nil {
			tx = tx.Where("date >= ?", f.DateFrom.UTC())
		}
		if f.DateTo != nil {
			tx = tx.Where("date <= ?", f.DateTo.UTC())
		}
	}
	if q.Filters == nil || !q.Filters.IncludeDeleted {
		tx = tx.Where("is_deleted = ?", false)
	}

	var candidates []*domain.Email
	if err := ordered(tx).Find(&candidates).Error; err != nil {
		return nil, err
	}
	return query.Execute(q, candidates), nil
}

// updateColumns 更新指定记录的列，记录不存在时返回 notFound
func (s *Store) updateColumns(model interface{}, id string, values map[string]interface{}, notFound error) error {
	result := s.db.Model(model).Where("id = ?", id).Updates(values)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		// MySQL 值未变化时 RowsAffected 也为 0，需要确认记录是否存在
		var count int64
		if err := s.db.Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return notFound
		}
	}
	return nil
}

func (s *Store) updateEmail(id string, values map[string]interface{}) error {
	return s.updateColumns(&domain.Email{}, id, values, storage.ErrEmailNotFound)
}

// MarkEmailRead 标记邮件已读
func (s *Store) MarkEmailRead(id string) error {
	return s.updateEmail(id, map[string]interface{}{"is_read": true})
}

// ToggleEmailStarred 在事务内切换星标
func (s *Store) ToggleEmailStarred(id string) (bool, error) {
	var starred bool
	err := s.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&domain.Email{}).Where("id = ?", id).
			Update("is_starred", gorm.Expr("NOT is_starred"))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return storage.ErrEmailNotFound
		}
		var email domain.Email
		if err := tx.Select("is_starred").Where("id = ?", id).First(&email).Error; err != nil {
			return err
		}
		starred = email.IsStarred
		return nil
	})
	return starred, err
}

// MarkEmailDeleted 软删除邮件
func (s *Store) MarkEmailDeleted(id string) error {
	return s.updateEmail(id, map[string]interface{}{"is_deleted": true})
}

// SetEmailCategory 写入分类
func (s *Store) SetEmailCategory(id string, category domain.Category) error {
	return s.updateEmail(id, map[string]interface{}{"category": category})
}

// SetSuggestedReply 写入建议回复
func (s *Store) SetSuggestedReply(id, reply string) error {
	return s.updateEmail(id, map[string]interface{}{"suggested_reply": reply})
}

// CountUnread 统计未读且未删除的邮件
func (s *Store) CountUnread(account string) (int, error) {
	tx := s.db.Model(&domain.Email{}).Where("is_read = ? AND is_deleted = ?", false, false)
	if account != "" {
		tx = tx.Where("account = ?", account)
	}
	var count int64
	if err := tx.Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}

// ========== Account Repository ==========

// SaveAccount 保存账户，地址重复时返回 ErrAccountExists
func (s *Store) SaveAccount(account *domain.Account) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		err := tx.Model(&domain.Account{}).
			Where("LOWER(email) = ? AND id <> ?", strings.ToLower(account.Email), account.ID).
			Count(&count).Error
		if err != nil {
			return err
		}
		if count > 0 {
			return storage.ErrAccountExists
		}
		return TranslateError(tx.Save(account).Error, storage.ErrAccountExists)
	})
}

// GetAccount 根据 ID 获取账户
func (s *Store) GetAccount(id string) (*domain.Account, error) {
	var account domain.Account
	if err := s.db.Where("id = ?", id).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

// ListAccounts 按创建时间返回全部账户
func (s *Store) ListAccounts() ([]*domain.Account, error) {
	var accounts []*domain.Account
	if err := s.db.Order("created_at ASC").Order("id ASC").Find(&accounts).Error; err != nil {
		return nil, err
	}
	return accounts, nil
}

// UpdateAccountSynced 更新最后同步时间
func (s *Store) UpdateAccountSynced(id string, at time.Time) error {
	return s.updateColumns(&domain.Account{}, id, map[string]interface{}{"last_synced": at}, storage.ErrAccountNotFound)
}

// ========== Settings Repository ==========

func (s *Store) loadSettings() (*settingsRecord, error) {
	var record settingsRecord
	err := s.db.Where("id = ?", settingsRowID).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &settingsRecord{
			ID:           settingsRowID,
			AI:           domain.DefaultAISettings(),
			Notification: domain.DefaultNotificationSettings(),
		}, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// GetAISettings 获取 AI 设置，未保存过时返回默认值
func (s *Store) GetAISettings() (domain.AISettings, error) {
	record, err := s.loadSettings()
	if err != nil {
		return domain.AISettings{}, err
	}
	return record.AI, nil
}

// SaveAISettings 保存 AI 设置
func (s *Store) SaveAISettings(settings domain.AISettings) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		store := &Store{db: tx}
		record, err := store.loadSettings()
		if err != nil {
			return err
		}
		record.AI = settings
		return tx.Save(record).Error
	})
}

// GetNotificationSettings 获取通知设置
func (s *Store) GetNotificationSettings() (domain.NotificationSettings, error) {
	record, err := s.loadSettings()
	if err != nil {
		return domain.NotificationSettings{}, err
	}
	return record.Notification, nil
}

// SaveNotificationSettings 保存通知设置
func (s *Store) SaveNotificationSettings(settings domain.NotificationSettings) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		store := &Store{db: tx}
		record, err := store.loadSettings()
		if err != nil {
			return err
		}
		record.Notification = settings
		return tx.Save(record).Error
	})
}

var _ storage.Store = (*Store)(nil)
