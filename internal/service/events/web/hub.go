package web

import (
	"EWasteAssistant/internal/app/assistant"
	"EWasteAssistant/internal/service/notify"
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	clientSendSize = 32
)

// Event событие для подписчиков websocket.
type Event struct {
	Type    string             `json:"type"` // message|state|notice
	Message *assistant.Message `json:"message,omitempty"`
	Busy    *bool              `json:"busy,omitempty"`
	Notice  string             `json:"notice,omitempty"`
	Kind    notify.Kind        `json:"kind,omitempty"`
}

// Hub рассылает события ленты и уведомления всем подключённым websocket клиентам.
// Реализует assistant.Observer и notify.Notifier.
type Hub struct {
	upgrader websocket.Upgrader
	logger   *zap.SugaredLogger

	mu      sync.Mutex
	clients map[*wsClient]struct{}
	closed  bool
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

var (
	_ assistant.Observer = (*Hub)(nil)
	_ notify.Notifier    = (*Hub)(nil)
)

func NewHub(logger *zap.SugaredLogger) *Hub {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger:  logger,
		clients: make(map[*wsClient]struct{}),
	}
}

// ServeWS апгрейдит соединение и держит его до закрытия клиентом.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	c := &wsClient{conn: conn, send: make(chan []byte, clientSendSize)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close()
		return nil
	}
	h.clients[c] = struct{}{}
	total := len(h.clients)
	h.mu.Unlock()
	h.logger.Infow("WebSocket клиент подключён", "remote", r.RemoteAddr, "clients", total)

	go h.writeLoop(c)

	// Входящие сообщения не ожидаются, читаем только чтобы заметить закрытие
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.remove(c)
	return nil
}

func (h *Hub) writeLoop(c *wsClient) {
	defer c.conn.Close()
	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.logger.Warnw("Не удалось отправить событие клиенту", "error", err)
			h.remove(c)
			return
		}
	}
	_ = c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
}

func (h *Hub) remove(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// Broadcast отправляет событие всем клиентам. Медленные клиенты с переполненной очередью отключаются.
func (h *Hub) Broadcast(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.Errorw("Не удалось сериализовать событие", "type", ev.Type, "error", err)
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.logger.Warnw("Очередь клиента переполнена, отключаем")
			delete(h.clients, c)
			close(c.send)
		}
	}
}

func (h *Hub) MessageAppended(m assistant.Message) {
	h.Broadcast(Event{Type: "message", Message: &m})
}

func (h *Hub) StateChanged(busy bool) {
	h.Broadcast(Event{Type: "state", Busy: &busy})
}

func (h *Hub) Notify(_ context.Context, n notify.Notice) {
	h.Broadcast(Event{Type: "notice", Notice: n.Text, Kind: n.Kind})
}

// Clients количество подключённых клиентов.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close отключает всех клиентов; новые подключения сразу закрываются.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}
