package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

type purgeOutput struct {
	Cutoff        string `json:"cutoff"`
	Found         int    `json:"found"`
	RowsDeleted   int64  `json:"rows_deleted"`
	ImagesRemoved int    `json:"images_removed"`
	ImageErrors   string `json:"image_errors,omitempty"`
	Error         string `json:"error,omitempty"`
}

func newPurgeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "purge",
		Short: "Delete offers older than yesterday together with their images",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := opts.buildApp(cmd, false)
			if err != nil {
				return err
			}
			defer a.Close()

			report := a.Retention.Purge(cmd.Context(), time.Now().In(opts.cfg.Sync.Location))

			out := purgeOutput{
				Cutoff:        report.Cutoff,
				Found:         report.Found,
				RowsDeleted:   report.RowsDeleted,
				ImagesRemoved: report.ImagesRemoved,
			}
			if report.ImageErrors != nil {
				out.ImageErrors = report.ImageErrors.Error()
			}
			if report.Err != nil {
				out.Error = report.Err.Error()
			}
			if err := printJSON(cmd.OutOrStdout(), out); err != nil {
				return err
			}
			if report.Err != nil {
				return fmt.Errorf("purge before %s: %w", report.Cutoff, report.Err)
			}
			return nil
		},
	}
}
