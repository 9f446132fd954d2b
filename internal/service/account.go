package service

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"onebox/backend/internal/domain"
	"onebox/backend/internal/storage"
)

// AccountService 邮箱账户服务
type AccountService struct {
	accounts storage.AccountRepository
	log      *zap.Logger
	now      func() time.Time
}

// NewAccountService 创建账户服务
func NewAccountService(accounts storage.AccountRepository, log *zap.Logger) *AccountService {
	return &AccountService{accounts: accounts, log: log, now: time.Now}
}

// ListAccounts 返回全部账户
func (s *AccountService) ListAccounts() ([]*domain.Account, error) {
	return s.accounts.ListAccounts()
}

// GetAccount 获取单个账户
func (s *AccountService) GetAccount(id string) (*domain.Account, error) {
	return s.accounts.GetAccount(id)
}

// AddAccount 添加账户，未填写的字段使用默认值
func (s *AccountService) AddAccount(input domain.AddAccountInput) (*domain.Account, error) {
	input.Email = strings.TrimSpace(input.Email)
	if err := input.Validate(); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		name = input.Email
	}
	provider := strings.ToLower(strings.TrimSpace(input.Provider))
	if provider == "" {
		provider = "other"
	}
	settings := domain.IMAPSettings{Port: 993, Secure: true}
	if input.IMAPSettings != nil {
		settings = *input.IMAPSettings
		if settings.Port == 0 {
			settings.Port = 993
		}
	}

	now := s.now().UTC()
	account := &domain.Account{
		ID:           uuid.NewString(),
		Email:        input.Email,
		Name:         name,
		Provider:     provider,
		IMAPSettings: settings,
		Username:     input.Username,
		Password:     input.Password,
		IsConnected:  true,
		CreatedAt:    now,
	}

	if err := s.accounts.SaveAccount(account); err != nil {
		return nil, err
	}

	s.log.Info("account added",
		zap.String("account", account.ID),
		zap.String("provider", provider),
	)
	return account, nil
}
