package transport

import (
	"errors"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	applog "practice/internal/log"
)

// WebSocketTransport broadcasts messages as JSON to every client connected
// at /ws. Broadcasts are rate limited; messages over the limit or arriving
// while the queue is full are dropped.
type WebSocketTransport struct {
	addr      string
	upgrader  websocket.Upgrader
	limiter   *rate.Limiter
	log       *applog.Logger
	clients   map[*websocket.Conn]bool
	clientsMu sync.Mutex
	broadcast chan any
	server    *http.Server
	done      chan struct{}

	sendMu  sync.RWMutex // guards closed against concurrent Send
	closed  bool
	dropped atomic.Uint64
}

// NewWebSocketTransport creates a transport that allows at most perSecond
// broadcasts per second. Call ListenAndServe to expose it on addr, or mount
// Handler on an existing server.
func NewWebSocketTransport(addr string, perSecond float64) *WebSocketTransport {
	wst := &WebSocketTransport{
		addr: addr,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // local practice tool, any origin
			},
		},
		limiter:   rate.NewLimiter(rate.Limit(perSecond), 1),
		log:       applog.For("websocket"),
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan any, 256),
		done:      make(chan struct{}),
	}
	go wst.handleBroadcasts()
	return wst
}

// Handler returns the HTTP handler serving the /ws endpoint.
func (wst *WebSocketTransport) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wst.handleWebSocket)
	return mux
}

// ListenAndServe starts the HTTP server in its own goroutine.
func (wst *WebSocketTransport) ListenAndServe() {
	wst.server = &http.Server{
		Addr:    wst.addr,
		Handler: wst.Handler(),
	}
	go func() {
		wst.log.Infof("listening on %s", wst.addr)
		if err := wst.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			wst.log.Errorf("server error: %v", err)
		}
	}()
}

func (wst *WebSocketTransport) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := wst.upgrader.Upgrade(w, r, nil)
	if err != nil {
		wst.log.Warnf("upgrade error: %v", err)
		return
	}

	wst.clientsMu.Lock()
	wst.clients[conn] = true
	total := len(wst.clients)
	wst.clientsMu.Unlock()
	wst.log.Infof("client connected, total: %d", total)

	go func() {
		// Clients never send; any read error means they went away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				wst.removeClient(conn)
				return
			}
		}
	}()
}

func (wst *WebSocketTransport) removeClient(conn *websocket.Conn) {
	wst.clientsMu.Lock()
	_, ok := wst.clients[conn]
	delete(wst.clients, conn)
	total := len(wst.clients)
	wst.clientsMu.Unlock()
	if ok {
		conn.Close()
		wst.log.Infof("client disconnected, total: %d", total)
	}
}

func (wst *WebSocketTransport) handleBroadcasts() {
	defer close(wst.done)
	for data := range wst.broadcast {
		wst.clientsMu.Lock()
		for client := range wst.clients {
			if err := client.WriteJSON(data); err != nil {
				wst.log.Warnf("error sending to client: %v", err)
				client.Close()
				delete(wst.clients, client)
			}
		}
		wst.clientsMu.Unlock()
	}
}

// Send queues data for broadcast. It never blocks.
func (wst *WebSocketTransport) Send(data any) error {
	wst.sendMu.RLock()
	defer wst.sendMu.RUnlock()
	if wst.closed {
		return ErrClosed
	}
	if !wst.limiter.Allow() {
		wst.dropped.Add(1)
		return nil
	}
	select {
	case wst.broadcast <- data:
	default:
		wst.dropped.Add(1)
	}
	return nil
}

// Dropped returns the number of messages discarded by rate limiting or a
// full queue.
func (wst *WebSocketTransport) Dropped() uint64 {
	return wst.dropped.Load()
}

// ClientCount returns the number of connected clients.
func (wst *WebSocketTransport) ClientCount() int {
	wst.clientsMu.Lock()
	defer wst.clientsMu.Unlock()
	return len(wst.clients)
}

// Close drains the broadcast queue, disconnects every client and shuts the
// server down. It is safe to call more than once.
func (wst *WebSocketTransport) Close() error {
	wst.sendMu.Lock()
	if wst.closed {
		wst.sendMu.Unlock()
		return nil
	}
	wst.closed = true
	close(wst.broadcast)
	wst.sendMu.Unlock()
	<-wst.done

	wst.clientsMu.Lock()
	for client := range wst.clients {
		client.Close()
	}
	wst.clients = make(map[*websocket.Conn]bool)
	wst.clientsMu.Unlock()

	if wst.server != nil {
		return wst.server.Close()
	}
	return nil
}

var _ Transport = (*WebSocketTransport)(nil)
