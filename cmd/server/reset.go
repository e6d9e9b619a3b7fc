package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sakif/skilltree/internal/server"
	"github.com/sakif/skilltree/internal/service"
)

func newResetCmd(a *app) *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Clear every daily challenge if the reset has not run for the date",
		Long: "reset runs the daily challenge reset against the configured database. " +
			"It is a no-op when the reset already ran for the date or a later one, so it is safe to run from cron.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			loc, err := a.cfg.Progression.Location()
			if err != nil {
				return err
			}

			store, err := server.OpenStore(cmd.Context(), a.cfg.Database)
			if err != nil {
				return err
			}
			defer store.Close()

			scheduler := service.NewResetScheduler(store, loc, a.cfg.Progression.ResetCheckInterval.Std(), a.logger)
			if date == "" {
				date = scheduler.Today()
			}

			ran, err := scheduler.RunIfDue(cmd.Context(), date)
			if err != nil {
				return err
			}
			if ran {
				fmt.Fprintf(cmd.OutOrStdout(), "daily challenges reset for %s\n", date)
				return nil
			}

			last, err := store.LastResetDate(cmd.Context())
			if err != nil {
				return err
			}
			if last > date {
				fmt.Fprintf(cmd.OutOrStdout(), "last reset was %s, later than %s; nothing to do\n", last, date)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "already reset for %s\n", date)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "calendar date to reset for ("+time.DateOnly+"), default today")
	return cmd
}
