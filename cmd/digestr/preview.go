package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/thomaskoefod/digestr/internal/config"
	"github.com/thomaskoefod/digestr/internal/mailer"
	"github.com/thomaskoefod/digestr/internal/tui"
	"github.com/thomaskoefod/digestr/pkg/models"
)

func newPreviewCmd(opts *rootOptions) *cobra.Command {
	var (
		email string
		style string
	)

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Browse a user's next digest in the terminal",
		Long: `Rank posts for one user exactly as the next digest would and browse
them interactively. Nothing is sent or recorded.

Keys: enter opens a post, e shows the rendered email, o opens the link,
r reloads, ? shows help, q quits.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, _, err := opts.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			user, err := a.Store.GetUserByEmail(cmd.Context(), models.NormalizeEmail(email))
			if err != nil {
				return err
			}

			d := a.Dispatcher(a.Sender(true))
			loader := func(ctx context.Context) ([]models.RankedPost, mailer.Message, error) {
				return d.Preview(ctx, *user)
			}

			p := tea.NewProgram(tui.New(user.Email, user.Frequency, loader, style), tea.WithContext(cmd.Context()))
			if _, err := p.Run(); err != nil {
				return fmt.Errorf("running preview: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "subscriber email address")
	cmd.Flags().StringVar(&style, "style", "auto", "glamour style (auto, dark, light, notty)")
	cmd.MarkFlagRequired("email")
	return cmd
}

func newInitConfigCmd(opts *rootOptions) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init-config",
		Short: "Write a default config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				if _, err := os.Stat(opts.configPath); err == nil {
					return fmt.Errorf("%s already exists (use --force to overwrite)", opts.configPath)
				}
			}
			if err := config.Save(config.Default(), opts.configPath); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", opts.configPath)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}
