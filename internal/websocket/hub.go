// Package websocket 向浏览器推送课程目录与用户会话的变更
package websocket

import (
	"context"
	"sync"
	"time"

	"eduverse/internal/logger"

	"github.com/gorilla/websocket"
)

// 消息类型
const (
	TypeConnected = "connected"
	TypeCatalog   = "catalog"
	TypeUser      = "user"
)

const (
	sendBuffer   = 16
	writeTimeout = 10 * time.Second
)

// Message WebSocket消息结构
type Message struct {
	Type string      `json:"type"` // 消息类型: connected, catalog, user
	Data interface{} `json:"data"`
}

// Session 单个订阅连接
// 写操作只在 writeLoop 中进行，广播通过缓冲通道投递
type Session struct {
	sessionID string
	conn      *websocket.Conn
	send      chan Message
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
	logger    *logger.Logger
}

// Hub 变更推送中心
type Hub struct {
	sessions map[string]*Session
	mu       sync.RWMutex
	logger   *logger.Logger
}

// NewHub 创建推送中心
func NewHub() *Hub {
	return &Hub{
		sessions: make(map[string]*Session),
		logger:   logger.NewLogger(logger.INFO),
	}
}

// SetLogger 设置日志记录器实例
func (h *Hub) SetLogger(loggerInstance *logger.Logger) {
	h.logger = loggerInstance
}

// Attach 登记连接并启动读写协程
// 参数:
//
//	sessionID: 会话ID，已存在时旧连接被关闭
//	conn: 已升级的 WebSocket 连接
//	initial: 连接建立后立即发送的消息（例如当前课程列表）
//
// 返回: 会话，调用方可等待 Done() 后调用 Remove
func (h *Hub) Attach(sessionID string, conn *websocket.Conn, initial ...Message) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		sessionID: sessionID,
		conn:      conn,
		send:      make(chan Message, sendBuffer+len(initial)),
		ctx:       ctx,
		cancel:    cancel,
		logger:    h.logger,
	}
	s.send <- Message{Type: TypeConnected, Data: sessionID}
	for _, m := range initial {
		s.send <- m
	}

	h.mu.Lock()
	if old, exists := h.sessions[sessionID]; exists {
		old.Close()
	}
	h.sessions[sessionID] = s
	h.mu.Unlock()

	if conn != nil {
		go s.writeLoop()
		go s.readLoop()
	}
	h.logger.Debug("WebSocket订阅已建立，会话: %s", sessionID)
	return s
}

// Remove 移除并关闭会话
func (h *Hub) Remove(sessionID string) {
	h.mu.Lock()
	s, ok := h.sessions[sessionID]
	if ok {
		delete(h.sessions, sessionID)
	}
	h.mu.Unlock()
	if ok {
		s.Close()
	}
}

// Detach 移除指定会话；同一会话ID已被新连接替换时只关闭旧会话
func (h *Hub) Detach(s *Session) {
	h.mu.Lock()
	if cur, ok := h.sessions[s.sessionID]; ok && cur == s {
		delete(h.sessions, s.sessionID)
	}
	h.mu.Unlock()
	s.Close()
}

// Broadcast 向所有会话投递消息，不会阻塞
// 发送缓冲已满的会话视为断开并被移除
func (h *Hub) Broadcast(msg Message) {
	delivered, stale := h.deliver(msg)
	for _, s := range stale {
		h.Detach(s)
	}
	h.logger.Debug("广播完成 [%s] - 成功: %d, 断开: %d", msg.Type, delivered, len(stale))
}

// deliver 在读锁内投递消息，返回需要移除的会话
// 按会话指针返回，移除前重新连接的同名会话不受影响
func (h *Hub) deliver(msg Message) (int, []*Session) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	var stale []*Session
	delivered := 0
	for id, s := range h.sessions {
		if s.Send(msg) {
			delivered++
			continue
		}
		select {
		case <-s.Done():
		default:
			h.logger.Warn("会话 %s 发送缓冲已满，断开连接", id)
		}
		stale = append(stale, s)
	}
	return delivered, stale
}

// Close 关闭全部会话
func (h *Hub) Close() {
	h.mu.Lock()
	sessions := h.sessions
	h.sessions = make(map[string]*Session)
	h.mu.Unlock()
	for _, s := range sessions {
		s.Close()
	}
}

// GetActiveSessionCount 获取活跃会话数量
func (h *Hub) GetActiveSessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// writeLoop 串行写出消息
func (s *Session) writeLoop() {
	defer s.Close()
	for {
		select {
		case <-s.ctx.Done():
			return
		case msg := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := s.conn.WriteJSON(msg); err != nil {
				s.logger.Debug("发送消息失败，会话: %s, 错误: %v", s.sessionID, err)
				return
			}
		}
	}
}

// readLoop 丢弃客户端消息，只用于感知连接关闭
func (s *Session) readLoop() {
	defer s.Close()
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			s.logger.Debug("WebSocket连接结束或读取中断: %v", err)
			return
		}
	}
}

// Close 关闭会话
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
		if s.conn != nil {
			s.conn.Close()
		}
	})
}

// Send 非阻塞地投递消息
// 返回: 会话已关闭或发送缓冲已满时为 false
func (s *Session) Send(msg Message) bool {
	select {
	case <-s.Done():
		return false
	default:
	}
	select {
	case s.send <- msg:
		return true
	default:
		return false
	}
}

// Done 返回会话结束信号
func (s *Session) Done() <-chan struct{} {
	return s.ctx.Done()
}

// Pending 返回尚未写出的消息数量
func (s *Session) Pending() int {
	return len(s.send)
}
