package sql

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"onebox/backend/internal/domain"
	"onebox/backend/internal/storage"
)

// StoreTestSuite 使用内存 SQLite 测试 SQL 存储
type StoreTestSuite struct {
	suite.Suite
	store *Store
	base  time.Time
}

func (s *StoreTestSuite) SetupTest() {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	store, err := NewStore("sqlite", dsn, PoolConfig{MaxOpenConns: 1})
	require.NoError(s.T(), err)
	s.store = store
	s.base = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
}

func (s *StoreTestSuite) TearDownTest() {
	s.NoError(s.store.Close())
}

func TestStoreTestSuite(t *testing.T) {
	suite.Run(t, new(StoreTestSuite))
}

func (s *StoreTestSuite) email(id, account string, offset time.Duration) *domain.Email {
	return &domain.Email{
		ID:          id,
		Account:     account,
		From:        domain.Address{Name: "Sender " + id, Email: id + "@example.com"},
		To:          []domain.Address{{Name: "You", Email: "you@example.com"}},
		Subject:     "Subject " + id,
		Body:        domain.Body{Text: "body of " + id, HTML: "<p>body of " + id + "</p>"},
		Date:        s.base.Add(offset),
		Labels:      []string{"inbox"},
		Attachments: []domain.Attachment{},
	}
}

func ids(emails []*domain.Email) []string {
	out := make([]string, 0, len(emails))
	for _, e := range emails {
		out = append(out, e.ID)
	}
	return out
}

// ==================== Email Tests ====================

func (s *StoreTestSuite) TestSaveAndGetEmail() {
	email := s.email("e1", "account1", 0)
	email.Attachments = []domain.Attachment{{Filename: "a.pdf", ContentType: "application/pdf", Size: 42}}
	s.Require().NoError(s.store.SaveEmail(email))

	got, err := s.store.GetEmail("e1")
	s.Require().NoError(err)
	s.Equal("Sender e1", got.From.Name)
	s.Equal("e1@example.com", got.From.Email)
	s.Equal([]domain.Address{{Name: "You", Email: "you@example.com"}}, got.To)
	s.Equal("<p>body of e1</p>", got.Body.HTML)
	s.Equal([]string{"inbox"}, got.Labels)
	s.Require().Len(got.Attachments, 1)
	s.Equal(int64(42), got.Attachments[0].Size)
	s.True(s.base.Equal(got.Date))

	_, err = s.store.GetEmail("missing")
	s.ErrorIs(err, storage.ErrEmailNotFound)
}

func (s *StoreTestSuite) TestSaveEmailUpdatesInPlace() {
	s.Require().NoError(s.store.SaveEmail(s.email("a", "account1", 0)))
	s.Require().NoError(s.store.SaveEmail(s.email("b", "account1", 0)))

	updated := s.email("a", "account1", 0)
	updated.Subject = "changed"
	s.Require().NoError(s.store.SaveEmail(updated))

	list, err := s.store.ListEmails(domain.ListOptions{})
	s.Require().NoError(err)
	s.Equal([]string{"a", "b"}, ids(list))
	s.Equal("changed", list[0].Subject)
}

func (s *StoreTestSuite) TestListEmails() {
	s.Require().NoError(s.store.SaveEmail(s.email("old", "account1", 0)))
	s.Require().NoError(s.store.SaveEmail(s.email("new", "account1", 2*time.Hour)))
	s.Require().NoError(s.store.SaveEmail(s.email("other", "account2", time.Hour)))
	s.Require().NoError(s.store.SaveEmail(s.email("trash", "account1", 3*time.Hour)))
	s.Require().NoError(s.store.MarkEmailDeleted("trash"))

	list, err := s.store.ListEmails(domain.ListOptions{})
	s.Require().NoError(err)
	s.Equal([]string{"new", "other", "old"}, ids(list))

	list, err = s.store.ListEmails(domain.ListOptions{Account: "account1", IncludeDeleted: true})
	s.Require().NoError(err)
	s.Equal([]string{"trash", "new", "old"}, ids(list))

	list, err = s.store.ListEmails(domain.ListOptions{Limit: 1, Offset: 1})
	s.Require().NoError(err)
	s.Equal([]string{"other"}, ids(list))

	// 未设置 Limit 时忽略 Offset
	list, err = s.store.ListEmails(domain.ListOptions{Offset: 2})
	s.Require().NoError(err)
	s.Equal([]string{"new", "other", "old"}, ids(list))
}

func (s *StoreTestSuite) TestCreateEmail() {
	s.Require().NoError(s.store.CreateEmail(s.email("e1", "account1", 0)))
	s.Require().NoError(s.store.MarkEmailRead("e1"))

	dup := s.email("e1", "account1", 0)
	dup.Subject = "overwritten"
	s.ErrorIs(s.store.CreateEmail(dup), storage.ErrEmailExists)

	got, err := s.store.GetEmail("e1")
	s.Require().NoError(err)
	s.Equal("Subject e1", got.Subject)
	s.True(got.IsRead)
}

func (s *StoreTestSuite) TestDateFilterWithNonUTCDates() {
	shanghai := time.FixedZone("CST", 8*3600)

	// 本地时间 17:00 即 UTC 09:00
	local := s.email("local", "account1", 0)
	local.Date = s.base.In(shanghai)
	s.Require().NoError(s.store.SaveEmail(local))
	s.Require().NoError(s.store.CreateEmail(s.email("later", "account1", time.Hour)))

	to := s.base.Add(30 * time.Minute)
	found, err := s.store.SearchEmails(domain.SearchQuery{Filters: &domain.SearchFilters{DateTo: &to}})
	s.Require().NoError(err)
	s.Equal([]string{"local"}, ids(found))

	toLocal := to.In(shanghai)
	found, err = s.store.SearchEmails(domain.SearchQuery{Filters: &domain.SearchFilters{DateTo: &toLocal}})
	s.Require().NoError(err)
	s.Equal([]string{"local"}, ids(found))
}

func (s *StoreTestSuite) TestSearchEmails() {
	work := s.email("work", "account1", 2*time.Hour)
	work.Labels = []string{"work"}
	work.Subject = "Project kickoff"
	work.Category = domain.CategoryImportant

	order := s.email("order", "account2", time.Hour)
	order.Subject = "Your order shipped"
	order.IsRead = true
	order.Category = domain.CategoryInterested

	plain := s.email("plain", "account1", 0)

	for _, e := range []*domain.Email{work, order, plain} {
		s.Require().NoError(s.store.SaveEmail(e))
	}

	found, err := s.store.SearchEmails(domain.SearchQuery{})
	s.Require().NoError(err)
	s.Equal([]string{"work", "order", "plain"}, ids(found))

	found, err = s.store.SearchEmails(domain.SearchQuery{Query: "PROJECT"})
	s.Require().NoError(err)
	s.Equal([]string{"work"}, ids(found))

	found, err = s.store.SearchEmails(domain.SearchQuery{Filters: &domain.SearchFilters{Labels: []string{"work"}}})
	s.Require().NoError(err)
	s.Equal([]string{"work"}, ids(found))

	found, err = s.store.SearchEmails(domain.SearchQuery{Filters: &domain.SearchFilters{
		Categories: []domain.Category{domain.CategoryInterested, domain.CategoryImportant},
		IsRead:     domain.Bool(false),
	}})
	s.Require().NoError(err)
	s.Equal([]string{"work"}, ids(found))

	from := s.base.Add(time.Hour)
	found, err = s.store.SearchEmails(domain.SearchQuery{Filters: &domain.SearchFilters{DateFrom: &from}})
	s.Require().NoError(err)
	s.Equal([]string{"work", "order"}, ids(found))

	s.Require().NoError(s.store.MarkEmailDeleted("work"))
	found, err = s.store.SearchEmails(domain.SearchQuery{Query: "project"})
	s.Require().NoError(err)
	s.Empty(found)
}

func (s *StoreTestSuite) TestFlagOperations() {
	s.Require().NoError(s.store.SaveEmail(s.email("e1", "account1", 0)))

	s.Require().NoError(s.store.MarkEmailRead("e1"))
	s.Require().NoError(s.store.MarkEmailRead("e1"))
	s.ErrorIs(s.store.MarkEmailRead("missing"), storage.ErrEmailNotFound)

	starred, err := s.store.ToggleEmailStarred("e1")
	s.Require().NoError(err)
	s.True(starred)
	starred, err = s.store.ToggleEmailStarred("e1")
	s.Require().NoError(err)
	s.False(starred)
	_, err = s.store.ToggleEmailStarred("missing")
	s.ErrorIs(err, storage.ErrEmailNotFound)

	s.Require().NoError(s.store.SetEmailCategory("e1", domain.CategorySpam))
	s.Require().NoError(s.store.SetSuggestedReply("e1", "Thanks!"))
	s.ErrorIs(s.store.SetEmailCategory("missing", domain.CategorySpam), storage.ErrEmailNotFound)

	got, err := s.store.GetEmail("e1")
	s.Require().NoError(err)
	s.True(got.IsRead)
	s.False(got.IsStarred)
	s.Equal(domain.CategorySpam, got.Category)
	s.Equal("Thanks!", got.SuggestedReply)
}

func (s *StoreTestSuite) TestCountUnread() {
	s.Require().NoError(s.store.SaveEmail(s.email("a", "account1", 0)))
	s.Require().NoError(s.store.SaveEmail(s.email("b", "account1", 0)))
	s.Require().NoError(s.store.SaveEmail(s.email("c", "account2", 0)))
	s.Require().NoError(s.store.MarkEmailRead("a"))
	s.Require().NoError(s.store.MarkEmailDeleted("c"))

	total, err := s.store.CountUnread("")
	s.Require().NoError(err)
	s.Equal(1, total)

	none, err := s.store.CountUnread("account2")
	s.Require().NoError(err)
	s.Equal(0, none)
}

// ==================== Account Tests ====================

func (s *StoreTestSuite) TestAccounts() {
	account := &domain.Account{
		ID:           "acc-1",
		Email:        "me@gmail.com",
		Name:         "Me",
		Provider:     "gmail",
		IMAPSettings: domain.IMAPSettings{Host: "imap.gmail.com", Port: 993, Secure: true},
		IsConnected:  true,
	}
	s.Require().NoError(s.store.SaveAccount(account))

	err := s.store.SaveAccount(&domain.Account{ID: "acc-2", Email: "ME@gmail.com"})
	s.ErrorIs(err, storage.ErrAccountExists)

	got, err := s.store.GetAccount("acc-1")
	s.Require().NoError(err)
	s.Equal("imap.gmail.com", got.IMAPSettings.Host)
	s.Equal(993, got.IMAPSettings.Port)
	s.Nil(got.LastSynced)

	synced := s.base.Add(time.Hour)
	s.Require().NoError(s.store.UpdateAccountSynced("acc-1", synced))
	got, err = s.store.GetAccount("acc-1")
	s.Require().NoError(err)
	s.Require().NotNil(got.LastSynced)
	s.True(synced.Equal(*got.LastSynced))

	s.ErrorIs(s.store.UpdateAccountSynced("missing", synced), storage.ErrAccountNotFound)
	_, err = s.store.GetAccount("missing")
	s.ErrorIs(err, storage.ErrAccountNotFound)

	accounts, err := s.store.ListAccounts()
	s.Require().NoError(err)
	s.Len(accounts, 1)
}

// ==================== Settings Tests ====================

func (s *StoreTestSuite) TestSettings() {
	ai, err := s.store.GetAISettings()
	s.Require().NoError(err)
	s.Equal(domain.DefaultAISettings(), ai)

	ai.SuggestedReplies.Style = domain.ReplyStyleConcise
	s.Require().NoError(s.store.SaveAISettings(ai))

	ns := domain.NotificationSettings{
		Webhook: &domain.WebhookSettings{URL: "https://example.com/hook", Enabled: true, Secret: "s3cret"},
	}
	s.Require().NoError(s.store.SaveNotificationSettings(ns))

	ai, err = s.store.GetAISettings()
	s.Require().NoError(err)
	s.Equal(domain.ReplyStyleConcise, ai.SuggestedReplies.Style)

	stored, err := s.store.GetNotificationSettings()
	s.Require().NoError(err)
	s.True(stored.WebhookActive())
	s.Equal("s3cret", stored.Webhook.Secret)
	s.Nil(stored.Slack)
}

func (s *StoreTestSuite) TestHealth() {
	s.NoError(s.store.Health())
}

func TestDialector_Unsupported(t *testing.T) {
	_, err := Dialector("oracle", "")
	assert.Error(t, err)
}

func TestIsDuplicateKey(t *testing.T) {
	assert.False(t, IsDuplicateKey(nil))
	assert.False(t, IsDuplicateKey(errors.New("boom")))
	assert.True(t, IsDuplicateKey(gorm.ErrDuplicatedKey))
	assert.True(t, IsDuplicateKey(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})))
	assert.False(t, IsDuplicateKey(&pgconn.PgError{Code: "23503"}))
	assert.True(t, IsDuplicateKey(&mysql.MySQLError{Number: 1062}))

	err := TranslateError(&mysql.MySQLError{Number: 1062}, storage.ErrAccountExists)
	assert.ErrorIs(t, err, storage.ErrAccountExists)
	require.NoError(t, TranslateError(nil, storage.ErrAccountExists))
}
