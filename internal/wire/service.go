package wire

import (
	"context"

	"google.golang.org/grpc"

	"go.klb.dev/lanclip/internal/message"
)

const (
	ServiceName   = "lanclip.v1.ClipboardService"
	ChangedMethod = "/" + ServiceName + "/Changed"

	// MaxMessageSize is the largest encoded message either side accepts. It
	// leaves headroom over message.MaxBodySize for the protobuf framing.
	MaxMessageSize = 16 * 1024 * 1024
)

// ClipboardServiceServer is implemented by the gRPC side of the hub.
type ClipboardServiceServer interface {
	// Changed runs one bidirectional clipboard stream until either side ends it.
	Changed(*ServerStream) error
}

// ServiceDesc describes ClipboardService for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ClipboardServiceServer)(nil),
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Changed",
			Handler:       changedHandler,
			ServerStreams: true,
			ClientStreams: true,
		},
	},
	Metadata: "lanclip/v1/clipboard.proto",
}

func changedHandler(srv any, stream grpc.ServerStream) error {
	return srv.(ClipboardServiceServer).Changed(&ServerStream{ss: stream})
}

// ServerOptions returns the options every lanclip gRPC server needs.
func ServerOptions() []grpc.ServerOption {
	return []grpc.ServerOption{
		grpc.ForceServerCodec(Codec{}),
		grpc.MaxRecvMsgSize(MaxMessageSize),
	}
}

// ServerStream is the server half of a Changed stream.
type ServerStream struct {
	ss grpc.ServerStream
}

func (s *ServerStream) Context() context.Context { return s.ss.Context() }

func (s *ServerStream) Send(m *message.Message) error { return s.ss.SendMsg(m) }

func (s *ServerStream) Recv() (*message.Message, error) {
	m := new(message.Message)
	if err := s.ss.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

// Close is a no-op: a server stream ends when its handler returns.
func (s *ServerStream) Close() error { return nil }

// ClientStream is the client half of a Changed stream.
type ClientStream struct {
	cs     grpc.ClientStream
	cancel context.CancelFunc
}

// OpenChanged starts a Changed stream on cc. The stream lives until ctx is
// cancelled or Close is called.
func OpenChanged(ctx context.Context, cc grpc.ClientConnInterface) (*ClientStream, error) {
	ctx, cancel := context.WithCancel(ctx)
	cs, err := cc.NewStream(ctx, &ServiceDesc.Streams[0], ChangedMethod,
		grpc.ForceCodec(Codec{}),
		grpc.MaxCallRecvMsgSize(MaxMessageSize),
	)
	if err != nil {
		cancel()
		return nil, err
	}
	return &ClientStream{cs: cs, cancel: cancel}, nil
}

func (c *ClientStream) Send(m *message.Message) error { return c.cs.SendMsg(m) }

func (c *ClientStream) Recv() (*message.Message, error) {
	m := new(message.Message)
	if err := c.cs.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

// CloseSend half-closes the send side; Recv keeps working until the server
// ends the stream.
func (c *ClientStream) CloseSend() error { return c.cs.CloseSend() }

// Close half-closes the send side and tears the stream down.
func (c *ClientStream) Close() error {
	err := c.cs.CloseSend()
	c.cancel()
	return err
}
