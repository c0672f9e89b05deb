package main

import (
	"fmt"
	"log/slog"
	"net"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"go.klb.dev/lanclip/internal/clip"
	"go.klb.dev/lanclip/internal/echo"
	"go.klb.dev/lanclip/internal/follower"
	"go.klb.dev/lanclip/internal/hub"
	"go.klb.dev/lanclip/internal/session"
)

func newServerCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "server",
		Short: "Run the clipboard hub (+ local clipboard integration)",
		Long: `Starts the lanclip hub. Every connected client shares one clipboard.
The server's own clipboard takes part too unless --no-local is given, in
which case the server only relays between clients.

gRPC, WebSocket (/ws) and the status page (/status) share one TCP port.
The gRPC service is also offered on the local IPC socket for "lanclip copy".

Precedence (lowest → highest): defaults → config file → LANCLIP_* env vars → flags`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(cmd *cobra.Command, _ []string) error { return runServer(cmd, v) },
	}

	f := cmd.Flags()
	f.String("addr", "0.0.0.0:8752", "TCP listen address")
	f.Bool("no-local", false, "disable local clipboard integration (relay mode)")
	f.Bool("echo-guard", false, "suppress the change caused by each inbound write (leaf servers only)")
	f.Bool("no-ipc", false, "do not listen on the local IPC socket")
	f.Duration("poll-interval", clip.DefaultPollInterval, "system clipboard poll interval")
	f.Int("buffer", follower.DefaultBuffer, "outbound queue depth per follower")
	f.String("source", defaultSource(), "name for this host in status output")
	addCommonFlags(cmd, true)

	return cmd
}

func runServer(cmd *cobra.Command, v *viper.Viper) error {
	setupLogging(v)

	addr := v.GetString("addr")
	noLocal := v.GetBool("no-local")
	source := v.GetString("source")

	slog.Info("lanclip server starting",
		"version", Version,
		"addr", addr,
		"local_clip", !noLocal,
		"echo_guard", v.GetBool("echo-guard"),
	)

	backend := openBackend(!noLocal, v.GetDuration("poll-interval"))
	defer backend.Close()

	var (
		guard *echo.Guard
		opts  []hub.Option
	)
	if v.GetBool("echo-guard") {
		guard = echo.New()
		opts = append(opts, hub.WithEchoGuard(guard))
	}
	h := hub.New(backend, opts...)
	cfg := session.Config{
		Hub:    h,
		Writer: backend,
		Guard:  guard,
		Buffer: v.GetInt("buffer"),
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	slog.Info("listening", "addr", ln.Addr())

	g, ctx := errgroup.WithContext(cmd.Context())
	serveNetwork(ctx, g, ln, cfg, h, source, "server")
	if !v.GetBool("no-ipc") {
		serveIPC(ctx, g, cfg)
	}
	g.Go(func() error { return clip.Run(ctx, backend, h) })

	err = g.Wait()
	slog.Info("lanclip server stopped", "err", err)
	return err
}
