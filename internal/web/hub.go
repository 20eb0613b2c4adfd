package web

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/alejandrodnm/surebet/internal/domain"
	"github.com/gorilla/websocket"
)

const writeWait = 5 * time.Second

// Hub mantiene las conexiones websocket abiertas y les retransmite cada
// snapshot que publica el orquestador, para que la UI pinte el progreso
// en tiempo real sin hacer polling.
type Hub struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]bool
}

// NewHub crea un Hub sin clientes. checkOrigin decide qué orígenes pueden
// abrir el websocket (mismo criterio que el CORS del router).
func NewHub(checkOrigin func(r *http.Request) bool) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     checkOrigin,
		},
		clients: make(map[*websocket.Conn]bool),
	}
}

// Notify implementa ports.Notifier: cada snapshot publicado se envía como
// JSON a todos los clientes conectados. Un cliente que no acepta la
// escritura a tiempo se desconecta — el siguiente snapshot ya no le llega
// y la UI reabre la conexión.
func (h *Hub) Notify(_ context.Context, snap domain.ScanSnapshot) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.clients {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(snap); err != nil {
			slog.Debug("ws client dropped", "remote", conn.RemoteAddr(), "err", err)
			conn.Close()
			delete(h.clients, conn)
		}
	}
	return nil
}

// HandleWS hace el upgrade y registra la conexión. El read loop solo sirve
// para detectar el cierre del lado del cliente.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("ws upgrade failed", "err", err)
		return
	}

	h.mu.Lock()
	h.clients[conn] = true
	count := len(h.clients)
	h.mu.Unlock()
	slog.Info("ws client connected", "remote", conn.RemoteAddr(), "clients", count)

	go h.readLoop(conn)
}

func (h *Hub) readLoop(conn *websocket.Conn) {
	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
		conn.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Close desconecta a todos los clientes.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		conn.Close()
		delete(h.clients, conn)
	}
}
