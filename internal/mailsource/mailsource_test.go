package mailsource

import (
	"bytes"
	"context"
	"io"
	"net"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/emersion/go-smtp"
	"github.com/jhillyerd/enmime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"onebox/backend/internal/config"
	"onebox/backend/internal/domain"
)

type fixedRand struct {
	values []int
	i      int
}

func (r *fixedRand) Intn(n int) int {
	v := r.values[r.i%len(r.values)] % n
	r.i++
	return v
}

func testAccount() *domain.Account {
	return &domain.Account{ID: "account1", Email: "user@gmail.com", Name: "Work Email", IsConnected: true}
}

func TestSimulatedFetcher_Count(t *testing.T) {
	f := NewSimulatedFetcher(&fixedRand{values: []int{3, 0, 1, 2}})
	emails, err := f.Fetch(context.Background(), testAccount(), nil)
	require.NoError(t, err)
	require.Len(t, emails, 3)

	seen := map[string]bool{}
	for _, e := range emails {
		assert.Equal(t, "account1", e.Account)
		assert.NotEmpty(t, e.ID)
		assert.False(t, seen[e.ID])
		seen[e.ID] = true
		assert.False(t, e.IsRead)
		assert.Empty(t, e.Category)
	}
	assert.Equal(t, "Meeting Tomorrow", emails[0].Subject)
	assert.Equal(t, "Your Order Has Shipped", emails[1].Subject)
}

func TestSimulatedFetcher_Zero(t *testing.T) {
	f := NewSimulatedFetcher(&fixedRand{values: []int{0}})
	emails, err := f.Fetch(context.Background(), testAccount(), nil)
	require.NoError(t, err)
	assert.Empty(t, emails)
}

func TestSimulatedFetcher_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewSimulatedFetcher(nil).Fetch(ctx, testAccount(), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIMAPFetcher_NotConfigured(t *testing.T) {
	f := NewIMAPFetcher(10, zap.NewNop())
	_, err := f.Fetch(context.Background(), testAccount(), nil)
	assert.ErrorIs(t, err, ErrIMAPNotConfigured)
}

func TestMessage_Build(t *testing.T) {
	msg := &Message{
		From:    domain.Address{Name: "You", Email: "user@example.com"},
		To:      []string{"a@example.com", "b@example.com"},
		Subject: "Hello",
		Text:    "Body text",
		HTML:    "<p>Body text</p>",
		Attachments: []domain.OutgoingAttachment{
			{Filename: "notes.txt", ContentType: "text/plain", Content: []byte("hi")},
		},
	}

	raw, err := msg.Build()
	require.NoError(t, err)

	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, "Hello", env.GetHeader("Subject"))
	assert.Contains(t, env.GetHeader("To"), "a@example.com")
	assert.Contains(t, env.GetHeader("To"), "b@example.com")
	assert.Equal(t, "Body text", env.Text)
	require.Len(t, env.Attachments, 1)
	assert.Equal(t, "notes.txt", env.Attachments[0].FileName)
}

func TestEmailFromBuffer(t *testing.T) {
	msg := &Message{
		From:    domain.Address{Name: "Alice", Email: "alice@example.com"},
		To:      []string{"user@gmail.com"},
		Subject: "Quarterly report",
		Text:    "See attached",
		Attachments: []domain.OutgoingAttachment{
			{Filename: "report.pdf", ContentType: "application/pdf", Content: []byte("%PDF")},
		},
	}
	raw, err := msg.Build()
	require.NoError(t, err)

	date := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	buf := &imapclient.FetchMessageBuffer{
		UID:   42,
		Flags: []imap.Flag{imap.FlagSeen, imap.FlagFlagged},
		Envelope: &imap.Envelope{
			Date:      date,
			Subject:   "Quarterly report",
			MessageID: "abc@example.com",
			From:      []imap.Address{{Name: "Alice", Mailbox: "alice", Host: "example.com"}},
			To:        []imap.Address{{Mailbox: "user", Host: "gmail.com"}},
		},
	}

	email := emailFromBuffer(testAccount(), buf, raw)
	assert.Equal(t, "account1", email.Account)
	assert.Equal(t, "Quarterly report", email.Subject)
	assert.Equal(t, domain.Address{Name: "Alice", Email: "alice@example.com"}, email.From)
	assert.Equal(t, "user@gmail.com", email.To[0].Email)
	assert.Equal(t, date, email.Date)
	assert.True(t, email.IsRead)
	assert.True(t, email.IsStarred)
	assert.Equal(t, "See attached", email.Body.Text)
	require.Len(t, email.Attachments, 1)
	assert.Equal(t, "report.pdf", email.Attachments[0].Filename)
	assert.Equal(t, int64(4), email.Attachments[0].Size)

	again := emailFromBuffer(testAccount(), buf, raw)
	assert.Equal(t, email.ID, again.ID)
}

func TestReceivedAfter(t *testing.T) {
	since := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

	// 延迟投递：发件时间早于上次同步，但服务器在之后才收到
	delayed := &imapclient.FetchMessageBuffer{
		InternalDate: since.Add(time.Minute),
		Envelope:     &imap.Envelope{Date: since.Add(-5 * time.Minute)},
	}
	assert.True(t, receivedAfter(delayed, &since))

	old := &imapclient.FetchMessageBuffer{
		InternalDate: since.Add(-time.Hour),
		Envelope:     &imap.Envelope{Date: since.Add(time.Hour)},
	}
	assert.False(t, receivedAfter(old, &since))
	assert.False(t, receivedAfter(&imapclient.FetchMessageBuffer{InternalDate: since}, &since))

	assert.True(t, receivedAfter(old, nil))
	assert.True(t, receivedAfter(&imapclient.FetchMessageBuffer{}, &since))
}

func TestApplyMIME_Unparseable(t *testing.T) {
	email := &domain.Email{}
	applyMIME(email, []byte("plain body without headers"))
	assert.NotEmpty(t, email.Body.Text)
}

// 测试用 SMTP 服务端
type captureBackend struct {
	mu   sync.Mutex
	from string
	to   []string
	data []byte
}

func (b *captureBackend) NewSession(_ *smtp.Conn) (smtp.Session, error) {
	return &captureSession{b: b}, nil
}

type captureSession struct{ b *captureBackend }

func (s *captureSession) Mail(from string, _ *smtp.MailOptions) error {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	s.b.from = from
	return nil
}

func (s *captureSession) Rcpt(to string, _ *smtp.RcptOptions) error {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	s.b.to = append(s.b.to, to)
	return nil
}

func (s *captureSession) Data(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	s.b.data = data
	return nil
}

func (s *captureSession) Reset()        {}
func (s *captureSession) Logout() error { return nil }

func TestSMTPSender_Send(t *testing.T) {
	be := &captureBackend{}
	srv := smtp.NewServer(be)
	srv.Domain = "localhost"

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = srv.Serve(l) }()
	defer srv.Close()

	port := l.Addr().(*net.TCPAddr).Port
	sender := NewSMTPSender(config.SMTPConfig{Host: "127.0.0.1", Port: port}, zap.NewNop())
	assert.Equal(t, "127.0.0.1:"+strconv.Itoa(port), sender.addr)

	err = sender.Send(context.Background(), &Message{
		From:    domain.Address{Name: "You", Email: "user@example.com"},
		To:      []string{"bob@example.com"},
		Subject: "Ping",
		Text:    "pong",
	})
	require.NoError(t, err)

	be.mu.Lock()
	defer be.mu.Unlock()
	assert.Equal(t, "user@example.com", be.from)
	assert.Equal(t, []string{"bob@example.com"}, be.to)
	assert.Contains(t, string(be.data), "Subject: Ping")
}

func TestNopSender(t *testing.T) {
	assert.NoError(t, NewNopSender(zap.NewNop()).Send(context.Background(), &Message{Subject: "x"}))
}
