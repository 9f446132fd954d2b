// Package mailsource 邮件来源：拉取（模拟 / IMAP）与发送（SMTP）
package mailsource

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"onebox/backend/internal/domain"
)

// Fetcher 拉取账户在 since 之后的新邮件，since 为 nil 表示首次同步
type Fetcher interface {
	Fetch(ctx context.Context, account *domain.Account, since *time.Time) ([]*domain.Email, error)
}

// Rand 可注入的随机源
type Rand interface {
	Intn(n int) int
}

type lockedRand struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func (r *lockedRand) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rnd.Intn(n)
}

// NewRand 创建并发安全的随机源
func NewRand(seed int64) Rand {
	return &lockedRand{rnd: rand.New(rand.NewSource(seed))}
}

// MaxSimulatedBatch 模拟拉取时每次最多生成的邮件数（不含）
const MaxSimulatedBatch = 5

type simulatedTemplate struct {
	from    domain.Address
	subject string
	text    string
	labels  []string
}

var simulatedTemplates = []simulatedTemplate{
	{
		from:    domain.Address{Name: "John Doe", Email: "john.doe@example.com"},
		subject: "Meeting Tomorrow",
		text:    "Hi, I wanted to confirm our meeting tomorrow at 2 PM. Please let me know if that still works for you.",
		labels:  []string{"work", "meeting"},
	},
	{
		from:    domain.Address{Name: "Amazon", Email: "orders@amazon.com"},
		subject: "Your Order Has Shipped",
		text:    "Your order has shipped and is on its way. Track your package in your account.",
		labels:  []string{"shopping"},
	},
	{
		from:    domain.Address{Name: "Security Team", Email: "security@bank-alerts.example"},
		subject: "URGENT: Verify your account",
		text:    "We detected unusual activity. Verify your account immediately to avoid suspension.",
		labels:  []string{},
	},
	{
		from:    domain.Address{Name: "Sarah Johnson", Email: "sarah.j@example.com"},
		subject: "Project update",
		text:    "Here is the weekly update on the project. The team made great progress on the milestones.",
		labels:  []string{"work"},
	},
	{
		from:    domain.Address{Name: "Newsletter", Email: "news@example.org"},
		subject: "This week in tech",
		text:    "The latest stories from around the industry, curated for you.",
		labels:  []string{"newsletter"},
	},
}

// SimulatedFetcher 模拟拉取，每次随机生成 0 到 4 封邮件
type SimulatedFetcher struct {
	rnd Rand
	now func() time.Time
}

// NewSimulatedFetcher 创建模拟拉取器，rnd 为 nil 时使用基于时间的随机源
func NewSimulatedFetcher(rnd Rand) *SimulatedFetcher {
	if rnd == nil {
		rnd = NewRand(time.Now().UnixNano())
	}
	return &SimulatedFetcher{rnd: rnd, now: time.Now}
}

// Fetch 实现 Fetcher
func (f *SimulatedFetcher) Fetch(ctx context.Context, account *domain.Account, _ *time.Time) ([]*domain.Email, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	n := f.rnd.Intn(MaxSimulatedBatch)
	now := f.now().UTC()
	emails := make([]*domain.Email, 0, n)
	for i := 0; i < n; i++ {
		tpl := simulatedTemplates[f.rnd.Intn(len(simulatedTemplates))]
		emails = append(emails, &domain.Email{
			ID:      uuid.New().String(),
			Account: account.ID,
			From:    tpl.from,
			To:      []domain.Address{{Name: account.Name, Email: account.Email}},
			Subject: tpl.subject,
			Body: domain.Body{
				Text: tpl.text,
				HTML: fmt.Sprintf("<p>%s</p>", tpl.text),
			},
			Date:        now.Add(-time.Duration(i) * time.Second),
			Labels:      append([]string{}, tpl.labels...),
			Attachments: []domain.Attachment{},
		})
	}
	return emails, nil
}
