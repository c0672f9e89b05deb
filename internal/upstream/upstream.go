// Package upstream keeps a client connected to a lanclip server.
//
// Each connection is one session on the local hub, so the server appears as
// an ordinary follower: local changes are sent to it and changes it relays
// are written to the local clipboard. When the connection drops the session
// ends, its follower is pruned, and the dialer reconnects with exponential
// back-off.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"

	"go.klb.dev/lanclip/internal/follower"
	"go.klb.dev/lanclip/internal/session"
	"go.klb.dev/lanclip/internal/wire"
	"go.klb.dev/lanclip/internal/wsconn"
)

const (
	reconnectDelay = time.Second
	maxReconnect   = 30 * time.Second
)

// Transport names accepted by Config.Transport.
const (
	TransportGRPC      = "grpc"
	TransportWebSocket = "websocket"
)

// ErrUnknownTransport is returned by New for an unrecognised transport.
var ErrUnknownTransport = errors.New("unknown transport")

// DialFunc opens one stream to the server.
type DialFunc func(ctx context.Context) (session.Stream, error)

// Config describes the server to follow.
type Config struct {
	// Addr is host:port, or a ws:// URL for the websocket transport.
	Addr string
	// Transport is TransportGRPC (default) or TransportWebSocket ("ws").
	Transport string
	// Session is shared with every connection's session.
	Session session.Config
	// DialOptions are appended to the gRPC dial options.
	DialOptions []grpc.DialOption
}

// Upstream reconnects to one server until its context ends.
type Upstream struct {
	cfg       Config
	transport string
	dial      DialFunc
	conn      *grpc.ClientConn

	mu          sync.RWMutex
	connectedAt time.Time
}

// New validates cfg and prepares the dialer. It does not connect.
func New(cfg Config) (*Upstream, error) {
	u := &Upstream{cfg: cfg}
	switch strings.ToLower(cfg.Transport) {
	case "", TransportGRPC:
		u.transport = TransportGRPC
		opts := append([]grpc.DialOption{
			grpc.WithTransportCredentials(insecure.NewCredentials()),
			grpc.WithKeepaliveParams(keepalive.ClientParameters{
				Time:                15 * time.Second,
				Timeout:             10 * time.Second,
				PermitWithoutStream: true,
			}),
		}, cfg.DialOptions...)
		conn, err := grpc.NewClient(cfg.Addr, opts...)
		if err != nil {
			return nil, fmt.Errorf("upstream dial %s: %w", cfg.Addr, err)
		}
		u.conn = conn
		u.dial = func(ctx context.Context) (session.Stream, error) {
			s, err := wire.OpenChanged(ctx, conn)
			if err != nil {
				return nil, err
			}
			return s, nil
		}
	case TransportWebSocket, "ws":
		u.transport = TransportWebSocket
		target := WebSocketURL(cfg.Addr)
		u.dial = func(ctx context.Context) (session.Stream, error) {
			c, err := wsconn.Dial(ctx, target)
			if err != nil {
				return nil, err
			}
			return c, nil
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTransport, cfg.Transport)
	}
	return u, nil
}

// WithDialer returns a copy of u that opens streams with d. Tests use it to
// supply in-memory streams.
func (u *Upstream) WithDialer(d DialFunc) *Upstream {
	cp := &Upstream{cfg: u.cfg, transport: u.transport, dial: d, conn: u.conn}
	return cp
}

// WebSocketURL turns host:port into ws://host:port/ws. Full URLs are kept.
func WebSocketURL(addr string) string {
	if strings.Contains(addr, "://") {
		if u, err := url.Parse(addr); err == nil && (u.Path == "" || u.Path == "/") {
			u.Path = wsconn.Path
			return u.String()
		}
		return addr
	}
	return "ws://" + addr + wsconn.Path
}

// ConnectedAt reports when the current connection was established.
func (u *Upstream) ConnectedAt() (time.Time, bool) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.connectedAt, !u.connectedAt.IsZero()
}

// Run connects, serves a session, and reconnects until ctx is done. It
// returns nil on cancellation.
func (u *Upstream) Run(ctx context.Context) error {
	defer u.close()

	delay := reconnectDelay
	for {
		slog.Info("connecting", "addr", u.cfg.Addr, "transport", u.transport)
		stream, err := u.dial(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			slog.Warn("connection failed", "addr", u.cfg.Addr, "err", err, "retry_in", delay)
			if !sleep(ctx, delay) {
				return nil
			}
			delay = min(delay*2, maxReconnect)
			continue
		}
		delay = reconnectDelay

		u.setConnected(time.Now())
		slog.Info("connected", "addr", u.cfg.Addr, "transport", u.transport)
		sess := session.New(u.cfg.Session, stream, follower.Info{
			Addr:      u.cfg.Addr,
			Transport: u.transport,
		})
		err = sess.Run(ctx)
		u.setConnected(time.Time{})

		if ctx.Err() != nil {
			return nil
		}
		slog.Warn("disconnected, reconnecting", "addr", u.cfg.Addr, "err", err, "retry_in", reconnectDelay)
		if !sleep(ctx, reconnectDelay) {
			return nil
		}
	}
}

func (u *Upstream) setConnected(t time.Time) {
	u.mu.Lock()
	u.connectedAt = t
	u.mu.Unlock()
}

func (u *Upstream) close() {
	if u.conn != nil {
		_ = u.conn.Close()
	}
}

// sleep waits d or until ctx is done, reporting whether d elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
