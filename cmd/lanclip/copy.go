package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"go.klb.dev/lanclip/internal/ipc"
	"go.klb.dev/lanclip/internal/message"
	"go.klb.dev/lanclip/internal/wire"
)

const copyTimeout = 10 * time.Second

func newCopyCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "copy",
		Short: "Copy stdin to the shared clipboard (like pbcopy)",
		Long: `Reads stdin and sends it to the shared clipboard as text.

If a local lanclip server or client is running, it is reached through the IPC
socket. Otherwise, or when --server is given, the server is dialled directly.`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(cmd *cobra.Command, _ []string) error { return runCopy(cmd, v) },
	}

	f := cmd.Flags()
	f.String("server", "localhost:8752", "lanclip server address (used if no local daemon)")
	f.Bool("trim", false, "strip one trailing newline")
	addCommonFlags(cmd, false)

	return cmd
}

func runCopy(cmd *cobra.Command, v *viper.Viper) error {
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return fmt.Errorf("read stdin: %w", err)
	}
	if len(data) == 0 {
		return nil
	}
	if !utf8.Valid(data) {
		return errors.New("stdin is not valid UTF-8 text")
	}
	text := string(data)
	if v.GetBool("trim") {
		text = strings.TrimSuffix(strings.TrimSuffix(text, "\n"), "\r")
	}

	var conn *grpc.ClientConn
	if !cmd.Flags().Changed("server") && ipc.IsRunning() {
		conn, err = ipc.NewClient()
	} else {
		conn, err = grpc.NewClient(v.GetString("server"),
			grpc.WithTransportCredentials(insecure.NewCredentials()))
	}
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), copyTimeout)
	defer cancel()
	return sendOnce(ctx, conn, message.EncodeText(text))
}

// sendOnce delivers m on a fresh Changed stream and waits for the server to
// finish with it.
func sendOnce(ctx context.Context, cc grpc.ClientConnInterface, m *message.Message) error {
	s, err := wire.OpenChanged(ctx, cc)
	if err != nil {
		return fmt.Errorf("open stream: %w", err)
	}
	defer s.Close()

	if err := s.Send(m); err != nil {
		return fmt.Errorf("send: %w", err)
	}
	if err := s.CloseSend(); err != nil {
		return fmt.Errorf("close send: %w", err)
	}
	// The server ends the stream once the pump has applied m. Anything it
	// broadcasts to us meanwhile is discarded.
	for {
		if _, err := s.Recv(); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("recv: %w", err)
		}
	}
}
