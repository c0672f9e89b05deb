package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/soheilhy/cmux"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"go.klb.dev/lanclip/internal/grpcservice"
	"go.klb.dev/lanclip/internal/hub"
	"go.klb.dev/lanclip/internal/ipc"
	"go.klb.dev/lanclip/internal/session"
	"go.klb.dev/lanclip/internal/status"
	"go.klb.dev/lanclip/internal/wsconn"
)

// serveNetwork serves gRPC, /ws and /status on ln, split by cmux, until ctx
// is done.
func serveNetwork(ctx context.Context, g *errgroup.Group, ln net.Listener, cfg session.Config, h *hub.Hub, source, role string) {
	m := cmux.New(ln)
	grpcL := m.MatchWithWriters(cmux.HTTP2MatchHeaderFieldSendSettings("content-type", "application/grpc"))
	httpL := m.Match(cmux.Any())

	grpcSrv := grpcservice.NewServer(grpcservice.New(cfg))

	mux := http.NewServeMux()
	mux.Handle(status.Path, status.Handler(h, source, Version, role))
	mux.Handle(wsconn.Path, wsconn.Handler(cfg))
	httpSrv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		// Hijacked WebSocket sessions end with ctx.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	g.Go(func() error { return ignoreClosed(grpcSrv.Serve(grpcL)) })
	g.Go(func() error { return ignoreClosed(httpSrv.Serve(httpL)) })
	g.Go(func() error { return ignoreClosed(m.Serve()) })
	g.Go(func() error {
		<-ctx.Done()
		grpcSrv.Stop()
		_ = httpSrv.Close()
		_ = ln.Close()
		return nil
	})
}

// serveIPC serves the gRPC service on the local IPC endpoint. IPC is a
// convenience: failure to listen is logged, not fatal.
func serveIPC(ctx context.Context, g *errgroup.Group, cfg session.Config) {
	cfg = ipcConfig(cfg)
	ln, err := ipc.Listen()
	if err != nil {
		slog.Warn("IPC socket unavailable", "err", err)
		return
	}
	slog.Info("IPC socket listening", "path", ipc.SocketPath())

	srv := grpcservice.NewServer(grpcservice.New(cfg))
	g.Go(func() error { return ignoreClosed(srv.Serve(ln)) })
	g.Go(func() error {
		<-ctx.Done()
		srv.Stop()
		return nil
	})
}

// ipcConfig derives the session config for IPC peers. A write from a local
// tool is a local edit that every peer must see, so it never arms the echo
// guard.
func ipcConfig(cfg session.Config) session.Config {
	cfg.Guard = nil
	return cfg
}

// ignoreClosed maps the errors listeners return on shutdown to nil.
func ignoreClosed(err error) error {
	switch {
	case err == nil,
		errors.Is(err, net.ErrClosed),
		errors.Is(err, http.ErrServerClosed),
		errors.Is(err, grpc.ErrServerStopped),
		errors.Is(err, cmux.ErrListenerClosed):
		return nil
	}
	return err
}
