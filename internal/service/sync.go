package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"onebox/backend/internal/domain"
	"onebox/backend/internal/mailsource"
	"onebox/backend/internal/monitoring"
	"onebox/backend/internal/storage"
)

// EventNewEmail 新邮件推送事件
const EventNewEmail = "new_email"

// Broadcaster 实时推送
type Broadcaster interface {
	Broadcast(account, eventType string, payload interface{})
}

// SyncService 从各账户拉取新邮件
type SyncService struct {
	emails        storage.EmailRepository
	accounts      storage.AccountRepository
	fetcher       mailsource.Fetcher
	ai            *AIService
	notifications *NotificationService
	broadcaster   Broadcaster
	metrics       *monitoring.Metrics
	timeout       time.Duration
	log           *zap.Logger
	now           func() time.Time

	// 同一时刻只有一轮同步，并发调用共享结果
	flight singleflight.Group
}

// NewSyncService 创建同步服务，timeout 为单个账户单次同步的超时
func NewSyncService(
	emails storage.EmailRepository,
	accounts storage.AccountRepository,
	fetcher mailsource.Fetcher,
	aiService *AIService,
	notifications *NotificationService,
	broadcaster Broadcaster,
	metrics *monitoring.Metrics,
	timeout time.Duration,
	log *zap.Logger,
) *SyncService {
	return &SyncService{
		emails:        emails,
		accounts:      accounts,
		fetcher:       fetcher,
		ai:            aiService,
		notifications: notifications,
		broadcaster:   broadcaster,
		metrics:       metrics,
		timeout:       timeout,
		log:           log,
		now:           time.Now,
	}
}

// syncFlightKey 同步任务的 singleflight 键
const syncFlightKey = "sync"

// SyncEmails 并发同步所有已连接账户，返回新邮件总数。
// 单个账户失败不影响其他账户，全部结束后返回第一个错误。
// 已有同步在进行时不会再启动新一轮，而是等待并返回那一轮的结果。
func (s *SyncService) SyncEmails(ctx context.Context) (int, error) {
	v, err, shared := s.flight.Do(syncFlightKey, func() (interface{}, error) {
		n, err := s.syncAll(ctx)
		return n, err
	})
	if shared {
		s.log.Debug("joined in-flight sync")
	}
	return v.(int), err
}

func (s *SyncService) syncAll(ctx context.Context) (int, error) {
	start := s.now()

	accounts, err := s.accounts.ListAccounts()
	if err != nil {
		return 0, fmt.Errorf("list accounts: %w", err)
	}

	var (
		total    atomic.Int64
		firstErr error
		errOnce  atomic.Bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for _, account := range accounts {
		if !account.IsConnected {
			continue
		}
		account := account
		g.Go(func() error {
			n, err := s.syncAccount(gctx, account)
			total.Add(int64(n))
			if err != nil {
				s.metrics.RecordSyncFailure(account.ID)
				s.log.Warn("account sync failed",
					zap.String("account", account.ID),
					zap.Error(err),
				)
				if errOnce.CompareAndSwap(false, true) {
					firstErr = err
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	finished := s.now()
	s.metrics.RecordSyncRun(finished.Sub(start), finished)

	count := int(total.Load())
	s.log.Info("sync finished",
		zap.Int("accounts", len(accounts)),
		zap.Int("new_emails", count),
		zap.Duration("duration", finished.Sub(start)),
	)
	return count, firstErr
}

func (s *SyncService) syncAccount(ctx context.Context, account *domain.Account) (int, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	syncedAt := s.now().UTC()
	fetched, err := s.fetcher.Fetch(ctx, account, account.LastSynced)
	if err != nil {
		return 0, fmt.Errorf("fetch %s: %w", account.ID, err)
	}

	count := 0
	for _, email := range fetched {
		if email.Account == "" {
			email.Account = account.ID
		}
		// 已同步过的邮件保留本地状态（已读、分类等）
		if err := s.emails.CreateEmail(email); err != nil {
			if errors.Is(err, storage.ErrEmailExists) {
				continue
			}
			return count, fmt.Errorf("save email %s: %w", email.ID, err)
		}
		count++

		if _, err := s.ai.AutoCategorize(email); err != nil {
			s.log.Warn("auto categorize failed", zap.String("email_id", email.ID), zap.Error(err))
		}
		if _, err := s.notifications.ProcessEmailNotifications(ctx, email); err != nil {
			s.log.Warn("notification dispatch failed", zap.String("email_id", email.ID), zap.Error(err))
		}
		if s.broadcaster != nil {
			s.broadcaster.Broadcast(account.ID, EventNewEmail, email)
		}
	}

	if err := s.accounts.UpdateAccountSynced(account.ID, syncedAt); err != nil {
		return count, fmt.Errorf("update last synced: %w", err)
	}
	s.metrics.RecordEmailsSynced(account.ID, count)
	return count, nil
}

// Run 按固定间隔后台同步，直到 ctx 结束。上一轮未结束时错过的 tick 会被丢弃。
func (s *SyncService) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := s.SyncEmails(ctx); err != nil && ctx.Err() == nil {
				s.log.Warn("background sync finished with errors", zap.Error(err))
			}
		}
	}
}
