package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/lanclip/internal/status"
)

func newStatusCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show connected followers",
		Long: `Displays every follower currently connected to a lanclip server,
as reported by its /status endpoint.`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(cmd *cobra.Command, _ []string) error { return runStatus(cmd, v) },
	}

	f := cmd.Flags()
	f.String("server", "localhost:8752", "lanclip server address (host:port or URL)")
	f.Bool("json", false, "output raw JSON")
	f.Duration("timeout", 5*time.Second, "request timeout")
	addCommonFlags(cmd, false)

	return cmd
}

func runStatus(cmd *cobra.Command, v *viper.Viper) error {
	ctx := cmd.Context()
	if d := v.GetDuration("timeout"); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	rep, err := status.Fetch(ctx, nil, v.GetString("server"))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if v.GetBool("json") {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	}
	printStatus(out, rep)
	return nil
}

func printStatus(out io.Writer, rep *status.Report) {
	w := tabwriter.NewWriter(out, 1, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Source:\t%s\n", rep.Source)
	fmt.Fprintf(w, "Role:\t%s\n", rep.Role)
	fmt.Fprintf(w, "Version:\t%s\n", rep.Version)
	fmt.Fprintln(w)
	_ = w.Flush()

	if len(rep.Followers) == 0 {
		fmt.Fprintln(out, "No followers connected.")
		return
	}

	tw := tabwriter.NewWriter(out, 1, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(tw, "ID\tADDR\tTRANSPORT\tSTATE\tCONNECTED\tLAST SENT\n")
	_, _ = fmt.Fprintf(tw, "--\t----\t---------\t-----\t---------\t---------\n")
	for _, f := range rep.Followers {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			shortID(f.ID), f.Addr, f.Transport, f.State,
			fmtAge(f.ConnectedAt), fmtAge(f.LastSent),
		)
	}
	_ = tw.Flush()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
