// Package grpcservice serves ClipboardService.Changed: every incoming stream
// becomes one session on the hub.
package grpcservice

import (
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/peer"

	"go.klb.dev/lanclip/internal/follower"
	"go.klb.dev/lanclip/internal/session"
	"go.klb.dev/lanclip/internal/wire"
)

const (
	keepaliveTime    = 15 * time.Second
	keepaliveTimeout = 10 * time.Second
)

// Service implements wire.ClipboardServiceServer.
type Service struct {
	cfg session.Config
}

// New returns a Service whose sessions share cfg.
func New(cfg session.Config) *Service {
	return &Service{cfg: cfg}
}

// NewServer returns a grpc.Server with the lanclip codec, keepalives, and s
// registered.
func NewServer(s *Service, opts ...grpc.ServerOption) *grpc.Server {
	opts = append(wire.ServerOptions(),
		append([]grpc.ServerOption{
			grpc.KeepaliveParams(keepalive.ServerParameters{
				Time:    keepaliveTime,
				Timeout: keepaliveTimeout,
			}),
			grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
				MinTime:             keepaliveTime / 3,
				PermitWithoutStream: true,
			}),
		}, opts...)...,
	)
	srv := grpc.NewServer(opts...)
	srv.RegisterService(&wire.ServiceDesc, s)
	return srv
}

// Changed implements wire.ClipboardServiceServer.
func (s *Service) Changed(stream *wire.ServerStream) error {
	ctx := stream.Context()
	addr := "unknown"
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		addr = p.Addr.String()
	}

	sess := session.New(s.cfg, stream, follower.Info{
		Addr:      addr,
		Transport: "grpc",
	})
	return sess.Run(ctx)
}
