package cmd

import (
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/comitanigiacomo/ferienplan-sync/internal/core/livesync"
)

func newWatchCmd(opts *options) *cobra.Command {
	var noFallback bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow the offers the sync engine publishes until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := opts.buildApp(cmd, true)
			if err != nil {
				return err
			}
			defer a.Close()

			unsubscribe := a.Controller.Subscribe(ctx, !noFallback)
			defer unsubscribe()

			updates, cancel := a.Controller.State().Watch()
			defer cancel()

			out := cmd.OutOrStdout()
			for {
				select {
				case <-ctx.Done():
					return nil
				case snap, ok := <-updates:
					if !ok {
						return nil
					}
					printSnapshot(out, a.Controller.Status(), snap)
				}
			}
		},
	}

	cmd.Flags().BoolVar(&noFallback, "no-fallback", false, "never fall back to polling")
	return cmd
}

func printSnapshot(w io.Writer, status livesync.Status, snap livesync.Snapshot) {
	fmt.Fprintf(w, "[%s] mode=%s confirmed=%t polling=%t offers=%d\n",
		snap.UpdatedAt.Format("15:04:05"), status.Mode, status.Confirmed, status.Polling, snap.Offers.Count())

	for _, date := range snap.Offers.Dates() {
		for _, o := range snap.Offers[date].Offers() {
			start := "--:--"
			if o.Time != nil {
				start = *o.Time
			}
			visibility := ""
			if !o.Visible {
				visibility = " (hidden)"
			}
			fmt.Fprintf(w, "  %s %s  %s%s\n", date, start, o.Title, visibility)
		}
	}
}
