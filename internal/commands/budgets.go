package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/spendwise-dev/spendwise/internal/aggregate"
	"github.com/spendwise-dev/spendwise/internal/app"
	"github.com/spendwise-dev/spendwise/internal/format"
	"github.com/spendwise-dev/spendwise/internal/model"
)

func newBudgetsCommand(env *environment) *cobra.Command {
	budgetCmd := &cobra.Command{
		Use:     "budgets",
		Aliases: []string{"budget"},
		Short:   "Manage budgets",
	}
	budgetCmd.AddCommand(
		newBudgetsListCommand(env),
		newBudgetsAddCommand(env),
		newBudgetsRmCommand(env),
		newBudgetsProgressCommand(env),
	)
	return budgetCmd
}

func budgetLabel(st *app.State, b model.Budget) string {
	if b.Name != "" {
		return b.Name
	}
	if c, ok := st.Transactions.Categories.Get(b.CategoryID); ok {
		return c.Name
	}
	return "budget " + b.ID
}

func newBudgetsListCommand(env *environment) *cobra.Command {
	var activeOnly bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List budgets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := env.load(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			today := st.Today()
			budgets := st.Budgets.Items()
			if activeOnly {
				budgets = st.Budgets.Active(today)
			}

			out := cmd.OutOrStdout()
			tw := newTable(out)
			fmt.Fprintln(tw, "ID\tNAME\tPERIOD\tAMOUNT\tSTART\tALERT AT\tACTIVE")
			for _, b := range budgets {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d%%\t%t\n",
					b.ID, budgetLabel(st, b), strings.ToLower(string(b.Period)), money(st, b.Amount),
					dateText(st, b.StartDate), b.Threshold(), aggregate.IsActiveOn(b, today))
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(out, "\nBudgeted today: %s\n", money(st, st.Budgets.TotalBudgetAmount(today)))
			return nil
		},
	}

	cmd.Flags().BoolVar(&activeOnly, "active", false, "only budgets running today")

	return cmd
}

func newBudgetsAddCommand(env *environment) *cobra.Command {
	var name, category, amount, period, start, end, notes string
	var threshold int

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a budget for a category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := env.load(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			c, err := findCategory(st, category)
			if err != nil {
				return err
			}
			amt, err := parseAmount(amount)
			if err != nil {
				return err
			}
			p, ok := model.ParsePeriod(period)
			if !ok {
				return fmt.Errorf("invalid period %q", period)
			}
			startDate, err := parseDateFlag(start, st.Today().StartOfMonth())
			if err != nil {
				return err
			}
			endDate, err := parseDateFlag(end, model.Date{})
			if err != nil {
				return err
			}

			b, err := st.Budgets.Create(cmd.Context(), model.Budget{
				Name:           name,
				CategoryID:     c.ID,
				Amount:         amt,
				Period:         p,
				StartDate:      startDate,
				EndDate:        endDate,
				AlertThreshold: threshold,
				Notes:          notes,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s budget of %s for %s (%s)\n", b.Period, money(st, b.Amount), c.Name, b.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "display name (defaults to the category)")
	cmd.Flags().StringVar(&category, "category", "", "category id or name (required)")
	_ = cmd.MarkFlagRequired("category")
	cmd.Flags().StringVar(&amount, "amount", "", "budget amount (required)")
	_ = cmd.MarkFlagRequired("amount")
	cmd.Flags().StringVar(&period, "period", string(model.PeriodMonthly), "weekly, monthly, quarterly or yearly")
	cmd.Flags().StringVar(&start, "start", "", "first day, YYYY-MM-DD (default start of this month)")
	cmd.Flags().StringVar(&end, "end", "", "optional last day, YYYY-MM-DD")
	cmd.Flags().IntVar(&threshold, "alert-at", model.DefaultAlertThreshold, "alert when spending reaches this percent")
	cmd.Flags().StringVar(&notes, "notes", "", "notes")

	return cmd
}

func newBudgetsRmCommand(env *environment) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a budget",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := env.load(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.Budgets.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted budget %s\n", args[0])
			return nil
		},
	}
}

func newBudgetsProgressCommand(env *environment) *cobra.Command {
	var alertsOnly bool

	cmd := &cobra.Command{
		Use:   "progress [id]",
		Short: "Show spending against budgets",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := env.load(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			var progress []aggregate.Progress
			switch {
			case len(args) == 1:
				p, ok := st.Budgets.Progress(args[0])
				if !ok {
					return fmt.Errorf("no budget %q", args[0])
				}
				progress = []aggregate.Progress{p}
			case alertsOnly:
				progress = st.Budgets.Alerts()
			default:
				progress = st.Budgets.AllProgress()
			}
			return printProgress(cmd, st, progress)
		},
	}

	cmd.Flags().BoolVar(&alertsOnly, "alerts", false, "only budgets at or past their alert threshold")

	return cmd
}

func printProgress(cmd *cobra.Command, st *app.State, progress []aggregate.Progress) error {
	tw := newTable(cmd.OutOrStdout())
	fmt.Fprintln(tw, "ID\tNAME\tWINDOW\tSPENT\tBUDGET\tREMAINING\tUSED\tSTATUS")
	for _, p := range progress {
		status := "ok"
		switch {
		case p.IsOverBudget:
			status = "over budget"
		case p.AlertTriggered():
			status = "alert"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s%%\t%s\n",
			p.Budget.ID,
			budgetLabel(st, p.Budget),
			format.DateRangeLabel(p.WindowStart, p.WindowEnd.AddDays(-1)),
			money(st, p.Spent),
			money(st, p.Budget.Amount),
			money(st, p.Remaining),
			p.Percent.StringFixed(0),
			status)
	}
	return tw.Flush()
}
