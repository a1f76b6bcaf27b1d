package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/zeusync/muvr/internal/core/observability/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

const writeTimeout = 2 * time.Second

// Broadcaster fans pose frames out to connected websocket viewers.
type Broadcaster struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
	logger  log.Log
}

func NewBroadcaster(logger log.Log) *Broadcaster {
	return &Broadcaster{
		clients: make(map[*websocket.Conn]struct{}),
		logger:  logger.Named("broadcaster"),
	}
}

// ServeHTTP upgrades the request and keeps the viewer until it disconnects.
func (b *Broadcaster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.logger.Warn("websocket upgrade failed", log.Error(err))
		return
	}

	b.mu.Lock()
	b.clients[conn] = struct{}{}
	b.mu.Unlock()
	b.logger.Info("viewer connected", log.String("remote", conn.RemoteAddr().String()))

	// Viewers are receive-only; reading detects the close.
	for {
		if _, _, err = conn.ReadMessage(); err != nil {
			break
		}
	}
	b.drop(conn)
}

// Publish sends frame to every viewer and drops those that fail. It must be
// called from a single goroutine.
func (b *Broadcaster) Publish(frame Frame) int {
	b.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(b.clients))
	for c := range b.clients {
		conns = append(conns, c)
	}
	b.mu.Unlock()

	sent := 0
	for _, c := range conns {
		_ = c.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.WriteJSON(frame); err != nil {
			b.logger.Debug("dropping viewer", log.String("remote", c.RemoteAddr().String()), log.Error(err))
			b.drop(c)
			continue
		}
		sent++
	}
	return sent
}

// Clients returns the number of connected viewers.
func (b *Broadcaster) Clients() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.clients)
}

// Close disconnects every viewer.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	conns := b.clients
	b.clients = make(map[*websocket.Conn]struct{})
	b.mu.Unlock()
	for c := range conns {
		_ = c.Close()
	}
}

func (b *Broadcaster) drop(conn *websocket.Conn) {
	b.mu.Lock()
	_, ok := b.clients[conn]
	delete(b.clients, conn)
	b.mu.Unlock()
	if ok {
		_ = conn.Close()
		b.logger.Info("viewer disconnected", log.String("remote", conn.RemoteAddr().String()))
	}
}
