package service

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"onebox/backend/internal/domain"
	"onebox/backend/internal/mailsource"
	"onebox/backend/internal/notify"
)

// MockSender 模拟发送器
type MockSender struct {
	mock.Mock
}

func (m *MockSender) Send(ctx context.Context, msg *mailsource.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

// MockFetcher 模拟拉取器
type MockFetcher struct {
	mock.Mock
}

func (m *MockFetcher) Fetch(ctx context.Context, account *domain.Account, since *time.Time) ([]*domain.Email, error) {
	args := m.Called(ctx, account, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Email), args.Error(1)
}

// recordingNotifier 记录每次投递，并发安全
type recordingNotifier struct {
	mu    sync.Mutex
	calls []notify.Delivery
	ids   []string
	err   error
}

func (n *recordingNotifier) Notify(_ context.Context, d notify.Delivery, email *domain.Email) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, d)
	n.ids = append(n.ids, email.ID)
	return n.err
}

func (n *recordingNotifier) setErr(err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.err = err
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.calls)
}

// recordingBroadcaster 记录推送事件
type recordingBroadcaster struct {
	mu     sync.Mutex
	events []string
}

func (b *recordingBroadcaster) Broadcast(account, eventType string, _ interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, account+":"+eventType)
}

type fixedRand int

func (f fixedRand) Intn(n int) int {
	return int(f) % n
}
