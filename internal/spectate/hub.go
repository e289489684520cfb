package spectate

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	Path                = "/spectate"
	DefaultPingInterval = 30 * time.Second
	writeWait           = 5 * time.Second
	sendBuffer          = 64
)

// Hub pushes every published snapshot to connected websocket spectators. A
// spectator that falls behind is dropped.
type Hub struct {
	mu           sync.Mutex
	clients      map[*spectator]struct{}
	upgrader     websocket.Upgrader
	pingInterval time.Duration
}

type spectator struct {
	conn   *websocket.Conn
	remote string
	send   chan []byte
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[*spectator]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		pingInterval: DefaultPingInterval,
	}
}

func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Publish never blocks.
func (h *Hub) Publish(payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
			slog.Debug("dropping slow spectator", slog.String("remote", c.remote))
			close(c.send)
			delete(h.clients, c)
		}
	}
}

func (h *Hub) remove(c *spectator) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		close(c.send)
		delete(h.clients, c)
	}
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Debug("spectator upgrade failed", slog.Any("error", err))
		return
	}
	c := &spectator{conn: conn, remote: r.RemoteAddr, send: make(chan []byte, sendBuffer)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	slog.Info("spectator connected", slog.String("remote", r.RemoteAddr))

	go h.writeLoop(c)

	// Spectators have nothing to say; reading only surfaces close and control frames.
	conn.SetReadLimit(512)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.remove(c)
	conn.Close()
	slog.Info("spectator disconnected", slog.String("remote", r.RemoteAddr))
}

func (h *Hub) writeLoop(c *spectator) {
	ticker := time.NewTicker(h.pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Serve listens on addr until ctx is cancelled.
func (h *Hub) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle(Path, h)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	stop := context.AfterFunc(ctx, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
		h.closeAll()
	})
	defer stop()

	slog.Info("spectator feed listening", slog.String("addr", addr), slog.String("path", Path))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// closeAll ends every spectator; hijacked connections are not covered by Shutdown.
func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
}
