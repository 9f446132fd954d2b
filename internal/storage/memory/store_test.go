package memory

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"onebox/backend/internal/domain"
	"onebox/backend/internal/storage"
)

func newEmail(id, account string, date time.Time) *domain.Email {
	return &domain.Email{
		ID:      id,
		Account: account,
		From:    domain.Address{Name: "Sender " + id, Email: id + "@example.com"},
		Subject: "Subject " + id,
		Date:    date,
		Labels:  []string{"inbox"},
	}
}

func emailIDs(emails []*domain.Email) []string {
	out := make([]string, 0, len(emails))
	for _, e := range emails {
		out = append(out, e.ID)
	}
	return out
}

func TestMemoryStore_EmailOperations(t *testing.T) {
	store := NewStore()
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, store.SaveEmail(newEmail("old", "account1", base)))
	require.NoError(t, store.SaveEmail(newEmail("new", "account1", base.Add(2*time.Hour))))
	require.NoError(t, store.SaveEmail(newEmail("other", "account2", base.Add(time.Hour))))

	// GetEmail 返回副本
	email, err := store.GetEmail("old")
	require.NoError(t, err)
	email.Subject = "mutated"
	email.Labels[0] = "mutated"
	again, err := store.GetEmail("old")
	require.NoError(t, err)
	assert.Equal(t, "Subject old", again.Subject)
	assert.Equal(t, []string{"inbox"}, again.Labels)

	_, err = store.GetEmail("missing")
	assert.ErrorIs(t, err, storage.ErrEmailNotFound)

	// ListEmails 日期倒序
	list, err := store.ListEmails(domain.ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"new", "other", "old"}, emailIDs(list))

	list, err = store.ListEmails(domain.ListOptions{Account: "account1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"new", "old"}, emailIDs(list))

	list, err = store.ListEmails(domain.ListOptions{Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"other"}, emailIDs(list))

	// 未设置 Limit 时忽略 Offset
	list, err = store.ListEmails(domain.ListOptions{Offset: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"new", "other", "old"}, emailIDs(list))
}

func TestMemoryStore_CreateEmail(t *testing.T) {
	store := NewStore()
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, store.CreateEmail(newEmail("e1", "account1", base)))
	require.NoError(t, store.MarkEmailRead("e1"))

	dup := newEmail("e1", "account1", base)
	dup.Subject = "overwritten"
	assert.ErrorIs(t, store.CreateEmail(dup), storage.ErrEmailExists)

	got, err := store.GetEmail("e1")
	require.NoError(t, err)
	assert.Equal(t, "Subject e1", got.Subject)
	assert.True(t, got.IsRead)

	list, err := store.ListEmails(domain.ListOptions{})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestMemoryStore_ConcurrentCreateEmail(t *testing.T) {
	store := NewStore()
	date := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if store.CreateEmail(newEmail("same", "account1", date)) == nil {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, created)
}

func TestMemoryStore_SameDateKeepsInsertionOrder(t *testing.T) {
	store := NewStore()
	date := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, store.SaveEmail(newEmail(fmt.Sprintf("e%d", i), "account1", date)))
	}

	list, err := store.ListEmails(domain.ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"e0", "e1", "e2", "e3", "e4"}, emailIDs(list))
}

func TestMemoryStore_FlagOperations(t *testing.T) {
	store := NewStore()
	require.NoError(t, store.SaveEmail(newEmail("1", "account1", time.Now())))

	t.Run("标记已读可重复", func(t *testing.T) {
		require.NoError(t, store.MarkEmailRead("1"))
		require.NoError(t, store.MarkEmailRead("1"))
		email, err := store.GetEmail("1")
		require.NoError(t, err)
		assert.True(t, email.IsRead)

		assert.ErrorIs(t, store.MarkEmailRead("missing"), storage.ErrEmailNotFound)
	})

	t.Run("星标切换两次恢复", func(t *testing.T) {
		starred, err := store.ToggleEmailStarred("1")
		require.NoError(t, err)
		assert.True(t, starred)

		starred, err = store.ToggleEmailStarred("1")
		require.NoError(t, err)
		assert.False(t, starred)

		_, err = store.ToggleEmailStarred("missing")
		assert.ErrorIs(t, err, storage.ErrEmailNotFound)
	})

	t.Run("分类与建议回复", func(t *testing.T) {
		require.NoError(t, store.SetEmailCategory("1", domain.CategorySpam))
		require.NoError(t, store.SetSuggestedReply("1", "Thanks"))
		email, err := store.GetEmail("1")
		require.NoError(t, err)
		assert.Equal(t, domain.CategorySpam, email.Category)
		assert.Equal(t, "Thanks", email.SuggestedReply)
	})
}

func TestMemoryStore_SoftDelete(t *testing.T) {
	store := NewStore()
	now := time.Now()
	require.NoError(t, store.SaveEmail(newEmail("keep", "account1", now)))
	require.NoError(t, store.SaveEmail(newEmail("trash", "account1", now.Add(-time.Minute))))
	require.NoError(t, store.MarkEmailDeleted("trash"))

	list, err := store.ListEmails(domain.ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"keep"}, emailIDs(list))

	list, err = store.ListEmails(domain.ListOptions{IncludeDeleted: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"keep", "trash"}, emailIDs(list))

	found, err := store.SearchEmails(domain.SearchQuery{Query: "subject"})
	require.NoError(t, err)
	assert.Equal(t, []string{"keep"}, emailIDs(found))

	found, err = store.SearchEmails(domain.SearchQuery{
		Query:   "subject",
		Filters: &domain.SearchFilters{IncludeDeleted: true},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"keep", "trash"}, emailIDs(found))

	// 已删除邮件仍然可以按 ID 读取
	email, err := store.GetEmail("trash")
	require.NoError(t, err)
	assert.True(t, email.IsDeleted)
}

func TestMemoryStore_CountUnread(t *testing.T) {
	store := NewStore()
	now := time.Now()
	require.NoError(t, store.SaveEmail(newEmail("a", "account1", now)))
	require.NoError(t, store.SaveEmail(newEmail("b", "account1", now)))
	require.NoError(t, store.SaveEmail(newEmail("c", "account2", now)))
	require.NoError(t, store.SaveEmail(newEmail("d", "account2", now)))
	require.NoError(t, store.MarkEmailRead("a"))
	require.NoError(t, store.MarkEmailDeleted("d"))

	total, err := store.CountUnread("")
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	perAccount, err := store.CountUnread("account1")
	require.NoError(t, err)
	assert.Equal(t, 1, perAccount)
}

func TestMemoryStore_AccountOperations(t *testing.T) {
	store := NewStore()

	account := &domain.Account{ID: "acc-1", Email: "me@gmail.com", Name: "Me", Provider: "gmail", IsConnected: true}
	require.NoError(t, store.SaveAccount(account))

	err := store.SaveAccount(&domain.Account{ID: "acc-2", Email: "ME@gmail.com"})
	assert.ErrorIs(t, err, storage.ErrAccountExists)

	// 同一账户重复保存是更新
	account.Name = "Renamed"
	require.NoError(t, store.SaveAccount(account))

	got, err := store.GetAccount("acc-1")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)
	assert.Nil(t, got.LastSynced)

	synced := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.UpdateAccountSynced("acc-1", synced))
	got, err = store.GetAccount("acc-1")
	require.NoError(t, err)
	require.NotNil(t, got.LastSynced)
	assert.True(t, synced.Equal(*got.LastSynced))

	assert.ErrorIs(t, store.UpdateAccountSynced("missing", synced), storage.ErrAccountNotFound)
	_, err = store.GetAccount("missing")
	assert.ErrorIs(t, err, storage.ErrAccountNotFound)

	accounts, err := store.ListAccounts()
	require.NoError(t, err)
	assert.Len(t, accounts, 1)
}

func TestMemoryStore_AccountAddressChange(t *testing.T) {
	store := NewStore()

	account := &domain.Account{ID: "acc-1", Email: "old@gmail.com"}
	require.NoError(t, store.SaveAccount(account))

	account.Email = "new@gmail.com"
	require.NoError(t, store.SaveAccount(account))

	// 旧地址已释放，可以被其他账户使用
	require.NoError(t, store.SaveAccount(&domain.Account{ID: "acc-2", Email: "OLD@gmail.com"}))
	err := store.SaveAccount(&domain.Account{ID: "acc-3", Email: "new@gmail.com"})
	assert.ErrorIs(t, err, storage.ErrAccountExists)
}

func TestMemoryStore_Settings(t *testing.T) {
	store := NewStore()

	ai, err := store.GetAISettings()
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultAISettings(), ai)

	ai.Categories.Threshold = 90
	require.NoError(t, store.SaveAISettings(ai))
	ai, err = store.GetAISettings()
	require.NoError(t, err)
	assert.Equal(t, 90, ai.Categories.Threshold)

	ns, err := store.GetNotificationSettings()
	require.NoError(t, err)
	assert.False(t, ns.AnyEnabled())

	ns.Slack.Enabled = true
	ns.Slack.WebhookURL = "https://hooks.slack.com/services/x"
	// 未保存前修改副本不影响存储
	stored, err := store.GetNotificationSettings()
	require.NoError(t, err)
	assert.False(t, stored.Slack.Enabled)

	require.NoError(t, store.SaveNotificationSettings(ns))
	stored, err = store.GetNotificationSettings()
	require.NoError(t, err)
	assert.True(t, stored.SlackActive())
}

func TestMemoryStore_ConcurrentToggle(t *testing.T) {
	store := NewStore()
	require.NoError(t, store.SaveEmail(newEmail("1", "account1", time.Now())))

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = store.ToggleEmailStarred("1")
		}()
	}
	wg.Wait()

	email, err := store.GetEmail("1")
	require.NoError(t, err)
	assert.False(t, email.IsStarred)
}
