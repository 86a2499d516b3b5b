package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/spendwise-dev/spendwise/internal/app"
)

func newSyncCommand(env *environment) *cobra.Command {
	var status bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Fetch every collection from the backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := env.open()
			if err != nil {
				return err
			}
			defer st.Close()

			if status {
				return runSyncStatus(cmd, st)
			}
			if err := st.RequireLogin(); err != nil {
				return err
			}
			return runSync(cmd, st)
		},
	}

	cmd.Flags().BoolVar(&status, "status", false, "show the local mirror instead of syncing")

	return cmd
}

func runSync(cmd *cobra.Command, st *app.State) error {
	if err := st.Initialize(cmd.Context()); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Synced %d transactions, %d categories, %d accounts, %d budgets\n",
		st.Transactions.Len(),
		st.Transactions.Categories.Len(),
		st.Accounts.Len(),
		st.Budgets.Len())

	n, err := st.SendBudgetAlerts()
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
	} else if n > 0 {
		fmt.Fprintf(out, "Mailed alerts for %d budgets\n", n)
	}
	return nil
}

func runSyncStatus(cmd *cobra.Command, st *app.State) error {
	out := cmd.OutOrStdout()
	if st.Mirror == nil {
		fmt.Fprintln(out, "Local mirror is disabled")
		return nil
	}

	run, ok, err := st.Mirror.LastSync(cmd.Context())
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(out, "Never synced")
	} else {
		result := "ok"
		if !run.OK {
			result = "failed: " + run.Message
		}
		fmt.Fprintf(out, "Last sync: %s (%s)\n", run.FinishedAt.Local().Format(time.DateTime), result)
	}

	snaps, err := st.Mirror.Snapshots(cmd.Context())
	if err != nil {
		return err
	}
	tw := newTable(out)
	fmt.Fprintln(tw, "COLLECTION\tITEMS\tUPDATED")
	for _, s := range snaps {
		fmt.Fprintf(tw, "%s\t%d\t%s\n", s.Collection, s.Items, s.UpdatedAt.Local().Format(time.DateTime))
	}
	return tw.Flush()
}
