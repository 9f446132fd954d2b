package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"onebox/backend/internal/domain"
)

// AllAccounts 订阅全部账户
const AllAccounts = "*"

// AccountLookup 校验订阅的账户是否存在
type AccountLookup interface {
	GetAccount(id string) (*domain.Account, error)
}

// ClientGauge 连接数指标
type ClientGauge interface {
	UpdateWebsocketClients(count int)
}

// upgraderFactory 创建带有 Origin 验证的 WebSocket 升级器
func upgraderFactory(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			for _, origin := range allowedOrigins {
				if origin == "*" {
					return true
				}
			}

			requestOrigin := r.Header.Get("Origin")
			if requestOrigin == "" {
				return true
			}
			for _, origin := range allowedOrigins {
				if requestOrigin == origin {
					return true
				}
			}
			return false
		},
	}
}

// MessageType 定义WebSocket消息类型
type MessageType string

const (
	MessageTypeEvent       MessageType = "event"
	MessageTypePing        MessageType = "ping"
	MessageTypePong        MessageType = "pong"
	MessageTypeSubscribe   MessageType = "subscribe"
	MessageTypeUnsubscribe MessageType = "unsubscribe"
	MessageTypeSubscribed  MessageType = "subscribed"
	MessageTypeError       MessageType = "error"
)

// Message 定义WebSocket消息结构
type Message struct {
	Type      MessageType     `json:"type"`
	Event     string          `json:"event,omitempty"`
	Account   string          `json:"account,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Error     string          `json:"error,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// Client 代表一个WebSocket客户端连接
type Client struct {
	ID       string
	conn     *websocket.Conn
	send     chan []byte
	hub      *Hub
	accounts map[string]bool
	mu       sync.RWMutex
	log      *zap.Logger
}

// Hub 管理所有WebSocket连接，按账户分组推送
type Hub struct {
	clients        map[string]*Client
	accounts       map[string]map[string]*Client // accountID -> clientID -> Client
	register       chan *Client
	unregister     chan *Client
	broadcast      chan *Message
	done           chan struct{}
	mu             sync.RWMutex
	log            *zap.Logger
	allowedOrigins []string
	lookup         AccountLookup
	gauge          ClientGauge
}

// NewHub 创建WebSocket Hub
//
// 参数:
//   - allowedOrigins: 允许的 Origin 列表，为空时允许所有
//   - lookup: 账户校验，为 nil 时不校验
//   - gauge: 连接数指标，可为 nil
func NewHub(allowedOrigins []string, lookup AccountLookup, gauge ClientGauge, log *zap.Logger) *Hub {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Hub{
		clients:        make(map[string]*Client),
		accounts:       make(map[string]map[string]*Client),
		register:       make(chan *Client),
		unregister:     make(chan *Client),
		broadcast:      make(chan *Message, 256),
		done:           make(chan struct{}),
		log:            log.Named("websocket"),
		allowedOrigins: allowedOrigins,
		lookup:         lookup,
		gauge:          gauge,
	}
}

// Run 启动Hub，ctx 结束时关闭所有连接
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.log.Info("websocket hub stopped")
			close(h.done)
			h.closeAllClients()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			for account := range client.accounts {
				h.subscribeLocked(client, account)
			}
			count := len(h.clients)
			h.mu.Unlock()
			h.updateGauge(count)
			h.log.Debug("client registered", zap.String("id", client.ID))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.ID]; ok {
				client.mu.RLock()
				for account := range client.accounts {
					h.unsubscribeLocked(client, account)
				}
				client.mu.RUnlock()
				delete(h.clients, client.ID)
				close(client.send)
			}
			count := len(h.clients)
			h.mu.Unlock()
			h.updateGauge(count)
			h.log.Debug("client unregistered", zap.String("id", client.ID))

		case msg := <-h.broadcast:
			h.broadcastToAccount(msg)

		case <-ticker.C:
			h.pingAllClients()
		}
	}
}

// Broadcast 推送账户事件，Hub 繁忙时丢弃
func (h *Hub) Broadcast(account, eventType string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.log.Error("failed to marshal event payload", zap.String("event", eventType), zap.Error(err))
		return
	}

	msg := &Message{
		Type:      MessageTypeEvent,
		Event:     eventType,
		Account:   account,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}

	select {
	case h.broadcast <- msg:
	default:
		h.log.Warn("broadcast queue full, dropping event",
			zap.String("account", account),
			zap.String("event", eventType),
		)
	}
}

// ClientCount 当前连接数
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) updateGauge(count int) {
	if h.gauge != nil {
		h.gauge.UpdateWebsocketClients(count)
	}
}

func (h *Hub) subscribeLocked(c *Client, account string) {
	if h.accounts[account] == nil {
		h.accounts[account] = make(map[string]*Client)
	}
	h.accounts[account][c.ID] = c
}

func (h *Hub) unsubscribeLocked(c *Client, account string) {
	if clients, ok := h.accounts[account]; ok {
		delete(clients, c.ID)
		if len(clients) == 0 {
			delete(h.accounts, account)
		}
	}
}

// broadcastToAccount 推送给订阅该账户及订阅全部账户的客户端
func (h *Hub) broadcastToAccount(msg *Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.Error("failed to marshal message", zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	targets := make(map[string]*Client)
	for id, c := range h.accounts[msg.Account] {
		targets[id] = c
	}
	for id, c := range h.accounts[AllAccounts] {
		targets[id] = c
	}

	for _, client := range targets {
		select {
		case client.send <- data:
		default:
			h.log.Warn("client channel blocked, skipping", zap.String("clientID", client.ID))
		}
	}
}

// pingAllClients 向所有客户端发送ping
func (h *Hub) pingAllClients() {
	data, err := json.Marshal(&Message{Type: MessageTypePing, Timestamp: time.Now().UTC()})
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.clients {
		select {
		case client.send <- data:
		default:
		}
	}
}

// closeAllClients 关闭所有客户端连接
func (h *Hub) closeAllClients() {
	h.mu.Lock()
	for id, client := range h.clients {
		close(client.send)
		delete(h.clients, id)
	}
	h.accounts = make(map[string]map[string]*Client)
	h.mu.Unlock()
	h.updateGauge(0)
}

// parseAccounts 解析 ?account=a,b 参数，缺省订阅全部
func parseAccounts(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return []string{AllAccounts}
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// HandleWebSocket 处理WebSocket连接
func HandleWebSocket(hub *Hub) gin.HandlerFunc {
	upgrader := upgraderFactory(hub.allowedOrigins)

	return func(c *gin.Context) {
		accounts := parseAccounts(c.Query("account"))
		for _, account := range accounts {
			if err := hub.checkAccount(account); err != nil {
				c.JSON(http.StatusNotFound, gin.H{"code": http.StatusNotFound, "msg": "账户不存在"})
				return
			}
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			hub.log.Error("failed to upgrade connection",
				zap.Error(err),
				zap.String("origin", c.Request.Header.Get("Origin")),
				zap.String("remote_addr", c.ClientIP()))
			return
		}

		client := &Client{
			ID:       uuid.NewString(),
			conn:     conn,
			send:     make(chan []byte, 256),
			hub:      hub,
			accounts: make(map[string]bool, len(accounts)),
			log:      hub.log,
		}
		for _, account := range accounts {
			client.accounts[account] = true
		}

		select {
		case hub.register <- client:
		case <-hub.done:
			_ = conn.Close()
			return
		}

		go client.writePump()
		go client.readPump()
	}
}

func (h *Hub) checkAccount(account string) error {
	if account == AllAccounts || h.lookup == nil {
		return nil
	}
	_, err := h.lookup.GetAccount(account)
	return err
}

// readPump 处理客户端消息
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Warn("websocket error", zap.Error(err))
			}
			break
		}
		c.handleMessage(&msg)
	}
}

// writePump 发送消息给客户端
func (c *Client) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage 处理接收到的消息
func (c *Client) handleMessage(msg *Message) {
	switch msg.Type {
	case MessageTypeSubscribe:
		c.subscribe(msg.Account)
	case MessageTypeUnsubscribe:
		c.unsubscribe(msg.Account)
	case MessageTypePong:
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	default:
		c.log.Debug("unknown message type", zap.String("type", string(msg.Type)))
	}
}

// subscribe 订阅账户
func (c *Client) subscribe(account string) {
	if account == "" {
		c.sendError("account is required")
		return
	}
	if err := c.hub.checkAccount(account); err != nil {
		c.sendError("unknown account: " + account)
		return
	}

	c.hub.mu.Lock()
	c.mu.Lock()
	c.accounts[account] = true
	c.mu.Unlock()
	c.hub.subscribeLocked(c, account)
	c.hub.mu.Unlock()

	c.sendMessage(&Message{
		Type:      MessageTypeSubscribed,
		Account:   account,
		Timestamp: time.Now().UTC(),
	})
}

// unsubscribe 取消订阅账户
func (c *Client) unsubscribe(account string) {
	c.hub.mu.Lock()
	c.mu.Lock()
	delete(c.accounts, account)
	c.mu.Unlock()
	c.hub.unsubscribeLocked(c, account)
	c.hub.mu.Unlock()
}

// sendError 发送错误消息给客户端
func (c *Client) sendError(errMsg string) {
	c.sendMessage(&Message{
		Type:      MessageTypeError,
		Error:     errMsg,
		Timestamp: time.Now().UTC(),
	})
}

// sendMessage 发送消息给客户端
func (c *Client) sendMessage(msg *Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.log.Error("failed to marshal message", zap.Error(err))
		return
	}

	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	if _, ok := c.hub.clients[c.ID]; !ok {
		return
	}
	select {
	case c.send <- data:
	default:
		c.log.Warn("client channel blocked", zap.String("clientID", c.ID))
	}
}
