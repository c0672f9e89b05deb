// Package ipc provides the local IPC channel that CLI tools (copy, status)
// use to reach a running lanclip daemon without opening a TCP connection.
//
// The channel is the same gRPC ClipboardService the daemon serves on its
// network port, served over a Unix domain socket (a named pipe on Windows).
package ipc

import (
	"context"
	"errors"
	"net"
	"os"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// SocketPath returns the IPC endpoint path. $LANCLIP_SOCKET overrides the
// platform default:
//
//   - Linux / macOS: $XDG_RUNTIME_DIR/lanclip.sock, else $TMPDIR/lanclip.sock
//   - Windows:       \\.\pipe\lanclip
func SocketPath() string {
	if s := os.Getenv("LANCLIP_SOCKET"); s != "" {
		return s
	}
	return socketPath()
}

// ErrInUse is returned by Listen when another process already serves the
// endpoint.
var ErrInUse = errors.New("ipc endpoint already in use")

// Listen returns a listener on the IPC endpoint. A stale socket left by a
// previous run is replaced; a live one is left alone and ErrInUse returned.
func Listen() (net.Listener, error) {
	return listen(SocketPath())
}

// Dial connects to the IPC endpoint.
func Dial(ctx context.Context) (net.Conn, error) {
	return dial(ctx, SocketPath())
}

// IsRunning reports whether a daemon appears to be listening. It does a
// cheap dial-and-close; no data is exchanged.
func IsRunning() bool {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	c, err := Dial(ctx)
	if err != nil {
		return false
	}
	_ = c.Close()
	return true
}

// NewClient returns a gRPC client connection that dials the IPC endpoint.
// No transport security: the endpoint is local and owner-restricted.
func NewClient(opts ...grpc.DialOption) (*grpc.ClientConn, error) {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return Dial(ctx)
		}),
	}, opts...)
	return grpc.NewClient("passthrough:///lanclip-ipc", opts...)
}
