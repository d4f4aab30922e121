package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/thomaskoefod/digestr/pkg/models"
)

func newIngestCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest",
		Short: "Fetch, embed and summarize new feed entries once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, _, err := opts.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			stats, err := a.Pipeline.Run(cmd.Context())
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			return printJSON(cmd, stats)
		},
	}
}

func newDigestCmd(opts *rootOptions) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "digest <daily|weekly|monthly>",
		Short: "Send one round of digests for a frequency",
		Long: `Rank fresh posts for every user on the given frequency and mail the
results. Posts are only marked as sent after the email goes out.

Examples:
  # Send this week's digests
  digestr digest weekly

  # See who would get what without sending anything
  digestr digest daily --dry-run --log-format console`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(models.Daily), string(models.Weekly), string(models.Monthly)},
		RunE: func(cmd *cobra.Command, args []string) error {
			freq, err := models.ParseFrequency(args[0])
			if err != nil {
				return err
			}

			a, _, err := opts.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			// A dry run must not mark anything as sent, so it goes through Preview.
			if dryRun {
				return dryRunDigest(cmd, a, freq)
			}

			report, err := a.Dispatcher(a.Sender(false)).Run(cmd.Context(), freq)
			if err != nil {
				return fmt.Errorf("digest: %w", err)
			}
			return printJSON(cmd, report)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "log the digests instead of sending or recording them")
	return cmd
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
