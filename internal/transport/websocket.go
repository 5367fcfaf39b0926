package transport

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"termspectrum/internal/log"

	"github.com/gorilla/websocket"
)

const (
	wsPath           = "/ws"
	broadcastBacklog = 256
)

// writeWait bounds each write, so a stalled client is dropped instead of
// holding up the others.
var writeWait = time.Second

// WebSocketTransport broadcasts frames as JSON to every connected client.
type WebSocketTransport struct {
	listener  net.Listener
	upgrader  websocket.Upgrader
	clients   map[*websocket.Conn]bool
	clientsMu sync.Mutex
	broadcast chan Frame
	server    *http.Server

	// targets is reused by handleBroadcasts, the only writer.
	targets []*websocket.Conn

	closeOnce sync.Once
	done      chan struct{}
}

// NewWebSocketTransport listens on addr and serves clients on /ws.
func NewWebSocketTransport(addr string) (*WebSocketTransport, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	wst := &WebSocketTransport{
		listener: ln,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan Frame, broadcastBacklog),
		done:      make(chan struct{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc(wsPath, wst.handleWebSocket)
	wst.server = &http.Server{Handler: mux}

	go func() {
		log.Infof("WebSocket: serving frames on ws://%s%s", ln.Addr(), wsPath)
		if err := wst.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("WebSocket: server error: %v", err)
		}
	}()
	go wst.handleBroadcasts()

	return wst, nil
}

// Addr is the address the server listens on.
func (wst *WebSocketTransport) Addr() net.Addr { return wst.listener.Addr() }

// Clients reports the number of connected clients.
func (wst *WebSocketTransport) Clients() int {
	wst.clientsMu.Lock()
	defer wst.clientsMu.Unlock()
	return len(wst.clients)
}

func (wst *WebSocketTransport) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := wst.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warnf("WebSocket: upgrade error: %v", err)
		return
	}

	wst.clientsMu.Lock()
	wst.clients[conn] = true
	n := len(wst.clients)
	wst.clientsMu.Unlock()
	log.Debugf("WebSocket: client connected, total: %d", n)

	// Clients only listen; a read error means they went away.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				wst.drop(conn)
				return
			}
		}
	}()
}

func (wst *WebSocketTransport) drop(conn *websocket.Conn) {
	wst.clientsMu.Lock()
	if wst.clients[conn] {
		delete(wst.clients, conn)
		log.Debugf("WebSocket: client disconnected, total: %d", len(wst.clients))
	}
	wst.clientsMu.Unlock()
	conn.Close()
}

func (wst *WebSocketTransport) handleBroadcasts() {
	for {
		select {
		case <-wst.done:
			return
		case frame := <-wst.broadcast:
			wst.clientsMu.Lock()
			wst.targets = wst.targets[:0]
			for client := range wst.clients {
				wst.targets = append(wst.targets, client)
			}
			wst.clientsMu.Unlock()

			for _, client := range wst.targets {
				client.SetWriteDeadline(time.Now().Add(writeWait))
				if err := client.WriteJSON(frame); err != nil {
					log.Debugf("WebSocket: error sending to client: %v", err)
					wst.drop(client)
				}
			}
		}
	}
}

// Send queues frame for broadcast; a full queue drops it.
func (wst *WebSocketTransport) Send(frame Frame) error {
	if frame.Levels != nil {
		frame.Levels = append([]int(nil), frame.Levels...)
	}
	select {
	case <-wst.done:
		return net.ErrClosed
	case wst.broadcast <- frame:
	default:
	}
	return nil
}

// Close disconnects every client and shuts the server down.
func (wst *WebSocketTransport) Close() error {
	var err error
	wst.closeOnce.Do(func() {
		close(wst.done)

		wst.clientsMu.Lock()
		for client := range wst.clients {
			client.Close()
		}
		clear(wst.clients)
		wst.clientsMu.Unlock()

		err = wst.server.Close()
	})
	return err
}

var _ Transport = (*WebSocketTransport)(nil)
