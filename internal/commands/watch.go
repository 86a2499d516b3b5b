package commands

import (
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/spendwise-dev/spendwise/internal/app"
)

func newWatchCommand(env *environment) *cobra.Command {
	var schedule string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Sync on a schedule and mail budget alerts until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := env.open()
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.RequireLogin(); err != nil {
				return err
			}
			if schedule == "" {
				schedule = st.Config.Watch.Schedule
			}
			return runWatch(cmd, st, schedule)
		},
	}

	cmd.Flags().StringVar(&schedule, "schedule", "", "cron schedule (default from config)")

	return cmd
}

func runWatch(cmd *cobra.Command, st *app.State, schedule string) error {
	logger := cron.PrintfLogger(st.Log)
	c := cron.New(cron.WithLogger(logger), cron.WithChain(cron.SkipIfStillRunning(logger)))

	refresh := func() {
		if err := st.RequireLogin(); err != nil {
			st.Log.Warn("session ended, skipping sync")
			return
		}
		if err := runSync(cmd, st); err != nil {
			st.Log.WithError(err).Warn("scheduled sync failed")
		}
	}
	if _, err := c.AddFunc(schedule, refresh); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", schedule, err)
	}

	refresh()
	c.Start()
	st.Log.Infof("Watching with schedule %q, next run at %s", schedule, c.Entries()[0].Next.Format("15:04:05"))

	<-cmd.Context().Done()
	<-c.Stop().Done()
	st.Log.Info("Watch stopped")
	return nil
}
