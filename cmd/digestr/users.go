package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/thomaskoefod/digestr/internal/app"
	"github.com/thomaskoefod/digestr/internal/database"
	"github.com/thomaskoefod/digestr/pkg/models"
)

func newRegisterCmd(opts *rootOptions) *cobra.Command {
	var (
		email     string
		frequency string
		interests []string
	)

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Subscribe a user to digests",
		Long: `Create a user with a digest frequency and one or more interests.

Examples:
  digestr register --email ada@example.com --frequency weekly \
    --interest "distributed systems" --interest rust`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			freq, err := models.ParseFrequency(frequency)
			if err != nil {
				return err
			}
			addr, keywords, err := models.NormalizeRegistration(email, interests)
			if err != nil {
				return err
			}

			a, _, err := opts.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			user, err := a.Store.CreateUser(cmd.Context(), addr, freq, keywords)
			if errors.Is(err, database.ErrUserExists) {
				return fmt.Errorf("%s is already registered", addr)
			}
			if err != nil {
				return fmt.Errorf("registering user: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Registered %s (id %d) for %s digests\n", user.Email, user.ID, user.Frequency)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "subscriber email address")
	cmd.Flags().StringVar(&frequency, "frequency", string(models.Daily), "daily, weekly or monthly")
	cmd.Flags().StringArrayVar(&interests, "interest", nil, "interest keyword (repeatable)")
	cmd.MarkFlagRequired("email")
	cmd.MarkFlagRequired("interest")
	return cmd
}

func newUnsubscribeCmd(opts *rootOptions) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "unsubscribe",
		Short: "Remove a user and their history",
		Args:  cobra.NoArgs,
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
			if err := a.Store.DeleteUser(cmd.Context(), user.ID); err != nil {
				return fmt.Errorf("deleting user: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Unsubscribed %s\n", user.Email)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "subscriber email address")
	cmd.MarkFlagRequired("email")
	return cmd
}

type dryRunResult struct {
	Email string `json:"email"`
	Posts int    `json:"posts"`
	Error string `json:"error,omitempty"`
}

// dryRunDigest renders every user's digest through the log sender. Nothing is
// recorded, so a later real run sends the same posts.
func dryRunDigest(cmd *cobra.Command, a *app.App, freq models.Frequency) error {
	ctx := cmd.Context()
	users, err := a.Store.ListUsersByFrequency(ctx, freq)
	if err != nil {
		return fmt.Errorf("listing users: %w", err)
	}

	sender := a.Sender(true)
	d := a.Dispatcher(sender)
	results := make([]dryRunResult, 0, len(users))
	for _, u := range users {
		res := dryRunResult{Email: u.Email}
		ranked, msg, err := d.Preview(ctx, u)
		if err == nil && len(ranked) > 0 {
			err = sender.Send(ctx, msg)
		}
		res.Posts = len(ranked)
		if err != nil {
			res.Error = err.Error()
		}
		results = append(results, res)
	}
	return printJSON(cmd, results)
}
