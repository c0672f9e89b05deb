// lanclip: shared clipboard over the LAN.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"go.klb.dev/lanclip/internal/logging"
)

// Version is set at build time via -ldflags "-X main.Version=x.y.z".
var Version = "dev"

func main() {
	root := &cobra.Command{
		Use:   "lanclip",
		Short: "Shared clipboard over the LAN",
		Long: `lanclip keeps the clipboards of several machines in sync. Run
"lanclip server" on one host and "lanclip client" on the others; every copy
on one machine is pasted into all the others.

Config file search order (first found wins):
  /etc/lanclip/lanclip.toml
  $HOME/.config/lanclip/lanclip.toml
  path supplied via --config

All flags can be set via LANCLIP_<FLAG> env vars or config-file keys.`,
		SilenceUsage: true,
	}

	root.AddCommand(
		newServerCmd(),
		newClientCmd(),
		newCopyCmd(),
		newStatusCmd(),
		newVersionCmd(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := root.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "lanclip %s\n", Version)
		},
	}
}

// resolveLogging sets up the global slog logger after flags are parsed.
// Interactive runs default to debug, services to info.
func resolveLogging(interactive bool, formatStr, levelStr string) {
	def := slog.LevelInfo
	if interactive {
		def = slog.LevelDebug
	}
	logging.Setup(logging.Options{
		Writer: os.Stderr,
		Format: logging.ParseFormat(formatStr),
		Level:  logging.ParseLevel(levelStr, def),
	})
}
