package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/sponsorlink/marketplace/backend/internal/metrics"
	"github.com/sponsorlink/marketplace/backend/internal/model/chat"
	chatservice "github.com/sponsorlink/marketplace/backend/internal/service/chat"
)

const (
	readTimeout  = 60 * time.Second
	pingInterval = 54 * time.Second
	writeTimeout = 10 * time.Second
)

// Handler 聊天组件的双向WebSocket通道：客户端发送文本与开关指令，服务端推送新增消息
type Handler struct {
	chatSvc  *chatservice.Service
	logger   *zap.Logger
	buffer   int
	allow    func(key string) bool
	upgrader websocket.Upgrader
}

// New 创建WebSocket处理器，allow 按会话限流文本消息，可为 nil
func New(chatSvc *chatservice.Service, logger *zap.Logger, buffer int, allow func(key string) bool) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if allow == nil {
		allow = func(string) bool { return true }
	}
	return &Handler{
		chatSvc: chatSvc,
		logger:  logger,
		buffer:  buffer,
		allow:   allow,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes 注册WebSocket路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws/{sessionID}", h.handleWebSocket)
}

type inboundMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// TextMessage 访客输入的文本消息
type TextMessage struct {
	Text string `json:"text"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// connection 串行化写操作，gorilla 只允许单个并发写者
type connection struct {
	conn      *websocket.Conn
	sessionID string
	logger    *zap.Logger
	mu        sync.Mutex
}

func (c *connection) send(msgType string, data interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	err := c.conn.WriteJSON(outgoingMessage{
		Type:      msgType,
		SessionID: c.sessionID,
		Data:      data,
		Timestamp: time.Now().Unix(),
	})
	if err != nil {
		c.logger.Debug("websocket write failed", zap.String("session", c.sessionID), zap.Error(err))
	}
	return err
}

func (c *connection) sendError(message string) {
	_ = c.send("error", map[string]string{"message": message})
}

func (c *connection) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
}

func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	conv, err := h.chatSvc.GetSession(r.Context(), sessionID)
	if err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	wsConn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer wsConn.Close()

	conn := &connection{conn: wsConn, sessionID: sessionID, logger: h.logger}
	h.logger.Info("websocket connected", zap.String("session", sessionID))

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	feed, unsubscribe := conv.Subscribe(h.buffer)
	defer unsubscribe()

	snapshot := conv.Snapshot()
	if err := conn.send("state", snapshot); err != nil {
		return
	}
	lastSeq := 0
	if n := len(snapshot.Messages); n > 0 {
		lastSeq = snapshot.Messages[n-1].Seq
	}

	_ = wsConn.SetReadDeadline(time.Now().Add(readTimeout))
	wsConn.SetPongHandler(func(string) error {
		return wsConn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	go h.pushLoop(ctx, cancel, conn, conv, feed, lastSeq)

	for {
		var msg inboundMessage
		if err := wsConn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("websocket read failed", zap.String("session", sessionID), zap.Error(err))
			}
			return
		}
		if ctx.Err() != nil {
			return
		}
		_ = wsConn.SetReadDeadline(time.Now().Add(readTimeout))

		h.handleMessage(ctx, conn, conv, &msg)
	}
}

func (h *Handler) handleMessage(ctx context.Context, conn *connection, conv *chatservice.Conversation, msg *inboundMessage) {
	switch msg.Type {
	case "text":
		var text TextMessage
		if err := json.Unmarshal(msg.Data, &text); err != nil {
			conn.sendError("invalid text payload")
			return
		}
		if !h.allow(conv.ID()) {
			metrics.RateLimitedTotal.Inc()
			conn.sendError("rate limit exceeded")
			return
		}
		conv.AddMessage(ctx, text.Text, chat.SenderUser)
	case "toggle":
		open := conv.Toggle()
		_ = conn.send("state", map[string]any{"open": open, "userType": conv.UserType()})
	default:
		conn.sendError("unsupported message type: " + msg.Type)
	}
}

// pushLoop 转发新增消息，并定时发送 ping 保活
func (h *Handler) pushLoop(ctx context.Context, cancel context.CancelFunc, conn *connection, conv *chatservice.Conversation, feed <-chan chat.Message, lastSeq int) {
	defer func() {
		cancel()
		// 推送端先结束时关闭连接，唤醒读循环
		_ = conn.conn.Close()
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-feed:
			if !ok {
				_ = conn.send("closed", nil)
				return
			}
			if msg.Seq <= lastSeq {
				continue
			}
			lastSeq = msg.Seq
			if err := conn.send("message", map[string]any{
				"message":  msg,
				"userType": conv.UserType(),
			}); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.ping(); err != nil {
				return
			}
		}
	}
}
