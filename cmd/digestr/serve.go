package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/thomaskoefod/digestr/internal/server"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var ingestOnBoot bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the scheduler and HTTP API",
		Long: `Start the job scheduler (feed ingestion plus daily, weekly and monthly
digests) and the HTTP API for registration and manual job runs.

Stops gracefully on SIGINT or SIGTERM, letting running jobs finish.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, log, err := opts.openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			sched, err := a.Scheduler(ctx, a.Sender(false))
			if err != nil {
				return err
			}
			var immediate []string
			if ingestOnBoot {
				immediate = append(immediate, "ingest")
			}

			srv := server.New(a.Config.Server.Addr, a.Store, sched, log)
			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start() }()

			schedDone := make(chan struct{})
			go func() {
				sched.Run(ctx, immediate...)
				close(schedDone)
			}()

			select {
			case <-ctx.Done():
			case err = <-errCh:
				stop()
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if serr := srv.Shutdown(shutdownCtx); serr != nil {
				log.Error().Err(serr).Msg("http shutdown")
			}
			<-schedDone
			log.Info().Msg("digestr stopped")
			return err
		},
	}

	cmd.Flags().BoolVar(&ingestOnBoot, "ingest-on-start", true, "run an ingestion pass immediately")
	return cmd
}
