// Package session binds one duplex message stream to one hub follower.
//
// A session registers a follower with the hub, runs a writer that drains the
// follower's queue onto the stream, and runs the inbound pump on the calling
// goroutine: every decoded message marks this follower as the last writer,
// arms the echo guard and is written to the local clipboard. When the pump
// ends the follower is cancelled; the hub forgets it on its next prune.
package session

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/sourcegraph/conc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"go.klb.dev/lanclip/internal/clip"
	"go.klb.dev/lanclip/internal/echo"
	"go.klb.dev/lanclip/internal/follower"
	"go.klb.dev/lanclip/internal/message"
)

// Stream is one bidirectional message stream. Send is only called from the
// session's writer goroutine and Recv only from its pump.
type Stream interface {
	Send(*message.Message) error
	Recv() (*message.Message, error)
	// Close tears the stream down so a blocked Recv returns.
	Close() error
}

// Registrar is the part of the hub a session needs.
type Registrar interface {
	Register(*follower.Follower)
	MarkWriter(id string)
	ClearWriter(id string)
}

// Config is shared by every session of a process.
type Config struct {
	Hub    Registrar
	Writer clip.Writer
	// Guard, when set, is armed before each inbound clipboard write.
	Guard *echo.Guard
	// Buffer is the follower's outbound queue depth.
	Buffer int
}

// Session serves one connection.
type Session struct {
	cfg    Config
	stream Stream
	f      *follower.Follower
	log    *slog.Logger
}

// New prepares a session for stream. info describes the remote end.
func New(cfg Config, stream Stream, info follower.Info) *Session {
	f := follower.New(info, cfg.Buffer)
	return &Session{
		cfg:    cfg,
		stream: stream,
		f:      f,
		log:    slog.With("follower", f.ID(), "addr", info.Addr),
	}
}

// ID returns the session's follower id.
func (s *Session) ID() string { return s.f.ID() }

// Run registers the follower and serves the stream until it ends or ctx is
// done. A clean end of stream returns nil.
func (s *Session) Run(ctx context.Context) error {
	s.cfg.Hub.Register(s.f)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg conc.WaitGroup
	wg.Go(func() { s.writeLoop(ctx) })
	wg.Go(func() {
		<-ctx.Done()
		_ = s.stream.Close()
	})

	err := s.pump()

	s.f.Cancel()
	cancel()
	wg.Wait()

	if isClosed(err) {
		s.log.Info("session closed")
		return nil
	}
	s.log.Warn("session ended", "err", err)
	return err
}

func (s *Session) writeLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.f.Done():
			return
		case m := <-s.f.Outbound():
			if err := s.stream.Send(m); err != nil {
				if !isClosed(err) {
					s.log.Warn("stream send failed", "err", err)
				}
				_ = s.stream.Close()
				return
			}
		}
	}
}

// pump applies inbound messages until the stream fails.
func (s *Session) pump() error {
	for {
		m, err := s.stream.Recv()
		if err != nil {
			return err
		}
		s.apply(m)
	}
}

func (s *Session) apply(m *message.Message) {
	c, err := message.Decode(m)
	if err != nil {
		s.log.Warn("inbound message ignored", "type", m.Type, "size_bytes", len(m.Body), "err", err)
		return
	}

	// The watcher may see the change before Write returns, so both marks
	// go down first.
	s.cfg.Hub.MarkWriter(s.f.ID())
	if s.cfg.Guard != nil {
		s.cfg.Guard.Arm()
	}
	if err := s.cfg.Writer.Write(c); err != nil {
		// No change will be observed for this write, so nothing may stay
		// armed waiting for one.
		s.cfg.Hub.ClearWriter(s.f.ID())
		if s.cfg.Guard != nil {
			s.cfg.Guard.TestAndClear()
		}
		if errors.Is(err, clip.ErrUnchanged) {
			s.log.Debug("clipboard already up to date", "type", c.Type)
			return
		}
		s.log.Error("clipboard write failed", "type", c.Type, "err", err)
		return
	}
	s.log.Debug("clipboard applied", "type", c.Type, "size_bytes", c.Size())
}

// isClosed reports whether err is an ordinary end of stream.
func isClosed(err error) bool {
	if err == nil || errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
		return true
	}
	switch status.Code(err) {
	case codes.Canceled, codes.Unavailable:
		return true
	}
	return false
}
