package cmd

import (
	"errors"

	"github.com/spf13/cobra"
)

var errCheckFailed = errors.New("check failed")

func newPingCmd(opts *options) *cobra.Command {
	var keepAlive bool

	cmd := &cobra.Command{
		Use:   "ping",
		Short: "Check that the offer store answers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := opts.buildApp(cmd, false)
			if err != nil {
				return err
			}
			defer a.Close()

			if keepAlive {
				res := a.Ping.KeepAlive(cmd.Context())
				if err := printJSON(cmd.OutOrStdout(), res); err != nil {
					return err
				}
				if !res.Success {
					return errCheckFailed
				}
				return nil
			}

			res := a.Ping.Ping(cmd.Context())
			if err := printJSON(cmd.OutOrStdout(), res); err != nil {
				return err
			}
			if !res.Success {
				return errCheckFailed
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&keepAlive, "keep-alive", false, "run the minimal keep-alive read instead")
	return cmd
}
