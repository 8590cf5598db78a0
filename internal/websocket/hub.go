package websocket

import (
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"vortexboard/pkg/logger"
)

const (
	// clientBuffer adalah jumlah pesan yang boleh antre per koneksi sebelum
	// koneksi dianggap lambat dan diputus.
	clientBuffer = 16
	hubBuffer    = 256
	writeWait    = 10 * time.Second
)

// Conn adalah bagian dari *websocket.Conn yang dipakai Hub.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Client merepresentasikan satu koneksi WebSocket milik seorang user. Pesan
// ditulis oleh goroutine writer milik client sendiri, jadi koneksi yang
// macet tidak menahan Hub.
type Client struct {
	UserID string
	Conn   Conn
	send   chan []byte
	closed chan struct{}
}

func NewClient(userID string, conn Conn) *Client {
	return &Client{
		UserID: userID,
		Conn:   conn,
		send:   make(chan []byte, clientBuffer),
		closed: make(chan struct{}),
	}
}

// Closed is closed once the client's connection has been closed by the hub.
func (c *Client) Closed() <-chan struct{} {
	return c.closed
}

// writePump menulis pesan sampai channel send ditutup oleh Hub atau
// penulisan gagal. Koneksi selalu ditutup saat keluar.
func (c *Client) writePump(h *Hub) {
	defer close(c.closed)
	defer c.Conn.Close()
	for payload := range c.send {
		_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.Conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			logger.SystemLogger.Debug("Dropping websocket client after write error", zap.String("user_id", c.UserID), zap.Error(err))
			h.Unregister(c)
			return
		}
	}
}

type directMessage struct {
	userID  string
	payload []byte
}

type onlineQuery struct {
	userID string
	reply  chan int
}

// Hub mengelola koneksi WebSocket per user. Semua state hanya disentuh oleh
// goroutine Run, dan Run tidak pernah menulis ke socket.
type Hub struct {
	clients    map[string]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	direct     chan directMessage
	online     chan onlineQuery
	stop       chan struct{}
	done       chan struct{}
	stopOnce   sync.Once
}

// NewHub membuat instance Hub baru.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		direct:     make(chan directMessage, hubBuffer),
		online:     make(chan onlineQuery),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Run menjalankan loop Hub sampai Stop dipanggil.
func (h *Hub) Run() {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			if h.clients[client.UserID] == nil {
				h.clients[client.UserID] = make(map[*Client]bool)
			}
			h.clients[client.UserID][client] = true
			go client.writePump(h)
		case client := <-h.unregister:
			h.remove(client)
		case msg := <-h.direct:
			for client := range h.clients[msg.userID] {
				select {
				case client.send <- msg.payload:
				default:
					logger.SystemLogger.Warn("Websocket client too slow, disconnecting", zap.String("user_id", msg.userID))
					h.remove(client)
				}
			}
		case q := <-h.online:
			q.reply <- len(h.clients[q.userID])
		case <-h.stop:
			for _, set := range h.clients {
				for client := range set {
					close(client.send)
				}
			}
			h.clients = map[string]map[*Client]bool{}
			return
		}
	}
}

// remove menutup channel send; writer menutup koneksinya sendiri.
func (h *Hub) remove(client *Client) {
	set, ok := h.clients[client.UserID]
	if !ok || !set[client] {
		return
	}
	delete(set, client)
	if len(set) == 0 {
		delete(h.clients, client.UserID)
	}
	close(client.send)
}

func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		_ = client.Conn.Close()
		close(client.closed)
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// SendToUser antre pesan untuk semua koneksi milik userID tanpa memblokir.
// Pesan dibuang kalau antrean Hub penuh atau Hub sudah berhenti.
func (h *Hub) SendToUser(userID string, payload []byte) {
	select {
	case h.direct <- directMessage{userID: userID, payload: payload}:
	case <-h.done:
	default:
		logger.SystemLogger.Warn("Websocket hub queue full, dropping message", zap.String("user_id", userID))
	}
}

// Online returns how many connections userID currently has.
func (h *Hub) Online(userID string) int {
	reply := make(chan int, 1)
	select {
	case h.online <- onlineQuery{userID: userID, reply: reply}:
		return <-reply
	case <-h.done:
		return 0
	}
}

// Stop ends Run and closes every client's send queue.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.stop) })
	<-h.done
}
