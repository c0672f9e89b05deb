package main

import (
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"go.klb.dev/lanclip/internal/clip"
	"go.klb.dev/lanclip/internal/echo"
	"go.klb.dev/lanclip/internal/follower"
	"go.klb.dev/lanclip/internal/hub"
	"go.klb.dev/lanclip/internal/session"
	"go.klb.dev/lanclip/internal/upstream"
)

func newClientCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "client",
		Short: "Connect to a lanclip server and sync the local clipboard",
		Long: `Connects to a lanclip server and keeps the local clipboard in sync
with every other connected machine. Reconnects automatically on disconnect,
backing off from 1s to 30s.

While running, "lanclip copy" on this machine talks to the client over the
local IPC socket.

Precedence (lowest → highest): defaults → config file → LANCLIP_* env vars → flags`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(cmd *cobra.Command, _ []string) error { return runClient(cmd, v) },
	}

	f := cmd.Flags()
	f.String("server", "localhost:8752", "lanclip server address (host:port or ws:// URL)")
	f.String("transport", upstream.TransportGRPC, "transport: grpc|ws")
	f.Bool("no-ipc", false, "do not listen on the local IPC socket")
	f.Duration("poll-interval", clip.DefaultPollInterval, "system clipboard poll interval")
	f.Int("buffer", follower.DefaultBuffer, "outbound queue depth per follower")
	addCommonFlags(cmd, true)

	return cmd
}

func runClient(cmd *cobra.Command, v *viper.Viper) error {
	setupLogging(v)

	serverAddr := v.GetString("server")
	transport := v.GetString("transport")

	slog.Info("lanclip client starting",
		"version", Version,
		"server", serverAddr,
		"transport", transport,
	)

	backend := openBackend(true, v.GetDuration("poll-interval"))
	defer backend.Close()

	// Writes applied for the upstream session echo back as changes the
	// guard must swallow. IPC sessions run without it (see ipcConfig).
	guard := echo.New()
	h := hub.New(backend, hub.WithEchoGuard(guard))
	cfg := session.Config{
		Hub:    h,
		Writer: backend,
		Guard:  guard,
		Buffer: v.GetInt("buffer"),
	}

	up, err := upstream.New(upstream.Config{
		Addr:      serverAddr,
		Transport: transport,
		Session:   cfg,
	})
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(cmd.Context())
	if !v.GetBool("no-ipc") {
		serveIPC(ctx, g, cfg)
	}
	g.Go(func() error { return up.Run(ctx) })
	g.Go(func() error { return clip.Run(ctx, backend, h) })

	err = g.Wait()
	slog.Info("lanclip client stopped", "err", err)
	return err
}
