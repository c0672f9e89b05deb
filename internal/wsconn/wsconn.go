// Package wsconn carries lanclip messages over WebSocket. Each binary frame
// holds one protobuf-encoded message (see package wire). The server side
// answers pings automatically; both sides ping every 15 seconds and give up
// after 45 seconds without traffic.
package wsconn

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"go.klb.dev/lanclip/internal/follower"
	"go.klb.dev/lanclip/internal/message"
	"go.klb.dev/lanclip/internal/session"
	"go.klb.dev/lanclip/internal/wire"
)

const (
	// Path is where the server mounts the WebSocket endpoint.
	Path = "/ws"

	// MaxFrameSize is the largest frame we will read.
	MaxFrameSize = wire.MaxMessageSize

	writeDeadline = 5 * time.Second
	pingInterval  = 15 * time.Second
	pongWait      = 45 * time.Second
)

// Conn adapts a *websocket.Conn to session.Stream.
type Conn struct {
	ws   *websocket.Conn
	done chan struct{}
	once sync.Once
}

// New wraps ws and starts its ping loop.
func New(ws *websocket.Conn) *Conn {
	c := &Conn{ws: ws, done: make(chan struct{})}
	ws.SetReadLimit(MaxFrameSize)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})
	go c.pingLoop()
	return c
}

// Dial connects to a lanclip WebSocket endpoint, e.g. ws://host:8752/ws.
func Dial(ctx context.Context, url string) (*Conn, error) {
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial %s: %w", url, err)
	}
	return New(ws), nil
}

func (c *Conn) Send(m *message.Message) error {
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeDeadline))
	err := c.ws.WriteMessage(websocket.BinaryMessage, wire.Marshal(m))
	_ = c.ws.SetWriteDeadline(time.Time{})
	return err
}

func (c *Conn) Recv() (*message.Message, error) {
	for {
		typ, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) ||
				errors.Is(err, net.ErrClosed) {
				return nil, io.EOF
			}
			return nil, err
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
		if typ != websocket.BinaryMessage {
			slog.Debug("websocket non-binary frame ignored", "frame_type", typ)
			continue
		}
		return wire.Unmarshal(data)
	}
}

// Close sends a close frame and closes the connection. Safe to call more
// than once.
func (c *Conn) Close() error {
	var err error
	c.once.Do(func() {
		close(c.done)
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		err = c.ws.Close()
	})
	return err
}

func (c *Conn) pingLoop() {
	t := time.NewTicker(pingInterval)
	defer t.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-t.C:
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeDeadline)); err != nil {
				return
			}
		}
	}
}

// Handler upgrades requests to WebSocket and runs one session per connection.
func Handler(cfg session.Config) http.Handler {
	up := websocket.Upgrader{
		ReadBufferSize:  64 * 1024,
		WriteBufferSize: 64 * 1024,
		// No origin policy: there is no authentication to protect.
		CheckOrigin: func(*http.Request) bool { return true },
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := up.Upgrade(w, r, nil)
		if err != nil {
			slog.Warn("websocket upgrade failed", "addr", r.RemoteAddr, "err", err)
			return
		}
		sess := session.New(cfg, New(ws), follower.Info{
			Addr:      r.RemoteAddr,
			Transport: "websocket",
		})
		_ = sess.Run(r.Context())
	})
}
