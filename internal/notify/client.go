package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"onebox/backend/internal/domain"
)

// Client 基于 HTTP 的通知投递客户端
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	observer   Observer
	log        *zap.Logger
}

// Option 客户端选项
type Option func(*Client)

// WithHTTPClient 替换底层 HTTP 客户端
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithRateLimit 设置全局投递速率，rps <= 0 表示不限速
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithObserver 设置结果观察者
func WithObserver(o Observer) Option {
	return func(c *Client) {
		c.observer = o
	}
}

// NewClient 创建通知客户端
func NewClient(log *zap.Logger, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		log:        log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Notify 投递一条通知
func (c *Client) Notify(ctx context.Context, d Delivery, email *domain.Email) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit wait: %w", err)
		}
	}

	start := time.Now()
	err := c.send(ctx, d, email)
	if c.observer != nil {
		c.observer.ObserveNotification(string(d.Channel), err == nil, time.Since(start))
	}

	if err != nil {
		c.log.Warn("notification delivery failed",
			zap.String("channel", string(d.Channel)),
			zap.String("email_id", email.ID),
			zap.Error(err),
		)
		return err
	}

	c.log.Info("notification delivered",
		zap.String("channel", string(d.Channel)),
		zap.String("email_id", email.ID),
		zap.String("subject", email.Subject),
	)
	return nil
}

func (c *Client) send(ctx context.Context, d Delivery, email *domain.Email) error {
	var payload interface{}
	switch d.Channel {
	case ChannelSlack:
		payload = NewSlackPayload(email)
	case ChannelWebhook:
		payload = NewWebhookPayload(email)
	default:
		return fmt.Errorf("%w: unknown channel %q", ErrDeliveryFailed, d.Channel)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: failed to create request: %v", ErrDeliveryFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if d.Channel == ChannelWebhook {
		req.Header.Set("X-Onebox-Event", "new_email")
		if d.Secret != "" {
			req.Header.Set("X-Onebox-Signature", Sign(body, d.Secret))
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: unexpected status %d", ErrDeliveryFailed, resp.StatusCode)
	}
	return nil
}
