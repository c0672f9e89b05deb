//go:build windows

package ipc

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/Microsoft/go-winio"
)

const pipeName = `\\.\pipe\lanclip`

func socketPath() string { return pipeName }

func listen(path string) (net.Listener, error) {
	timeout := time.Second
	if c, err := winio.DialPipe(path, &timeout); err == nil {
		_ = c.Close()
		return nil, fmt.Errorf("%s: %w", path, ErrInUse)
	}
	return winio.ListenPipe(path, nil)
}

func dial(ctx context.Context, path string) (net.Conn, error) {
	return winio.DialPipeContext(ctx, path)
}
