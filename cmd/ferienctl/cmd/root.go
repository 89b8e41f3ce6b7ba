// Package cmd implements ferienctl, the operator CLI for the offer store and
// the sync engine.
package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/comitanigiacomo/ferienplan-sync/internal/app"
	"github.com/comitanigiacomo/ferienplan-sync/internal/config"
	"github.com/comitanigiacomo/ferienplan-sync/internal/logger"
)

type options struct {
	envFile string
	verbose bool

	cfg *config.Config
	log *slog.Logger
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func NewRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "ferienctl",
		Short: "Operate the Ferienplan offer store and sync engine",
		Long: `ferienctl runs maintenance tasks against the configured offer store:
schema migrations, connectivity checks, retention purges, and a live view
of what the sync engine publishes.

Configuration is read from the environment and an optional .env file.`,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.setup(cmd.ErrOrStderr())
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file to load before the environment")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log to stderr")

	root.AddCommand(
		newMigrateCmd(opts),
		newPingCmd(opts),
		newPurgeCmd(opts),
		newWatchCmd(opts),
	)
	return root
}

func (o *options) setup(stderr io.Writer) error {
	cfg, err := config.Load(o.envFile)
	if err != nil {
		return err
	}
	o.cfg = cfg

	if o.verbose {
		o.log = logger.New(cfg.Env, cfg.Log.Level, cfg.Log.File)
	} else {
		o.log = slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	}
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// buildApp assembles the process like the API does. Commands that only
// need the store turn off the realtime backend.
func (o *options) buildApp(cmd *cobra.Command, withRealtime bool) (*app.App, error) {
	cfg := *o.cfg
	if !withRealtime {
		cfg.Sync.Realtime = config.RealtimeNone
	}
	return app.Build(cmd.Context(), &cfg, o.log)
}
