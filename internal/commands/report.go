package commands

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/spendwise-dev/spendwise/internal/aggregate"
	"github.com/spendwise-dev/spendwise/internal/app"
	"github.com/spendwise-dev/spendwise/internal/format"
	"github.com/spendwise-dev/spendwise/internal/model"
)

func newReportCommand(env *environment) *cobra.Command {
	reportCmd := &cobra.Command{
		Use:   "report",
		Short: "Summaries over transactions",
	}
	reportCmd.AddCommand(
		newReportSummaryCommand(env),
		newReportMonthlyCommand(env),
		newReportCategoriesCommand(env),
	)
	return reportCmd
}

// reportCommand builds a report subcommand that loads state, applies the
// filter flags and hands off to run.
func reportCommand(env *environment, use, short string, run func(io.Writer, *app.State) error) *cobra.Command {
	var filters filterFlags

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := env.load(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			f, err := filters.build(st)
			if err != nil {
				return err
			}
			st.Transactions.SetFilters(f)
			return run(cmd.OutOrStdout(), st)
		},
	}
	filters.register(cmd)
	return cmd
}

func newReportSummaryCommand(env *environment) *cobra.Command {
	return reportCommand(env, "summary", "Income, expenses and top categories", runReportSummary)
}

func runReportSummary(w io.Writer, st *app.State) error {
	f := st.Transactions.Filters()
	s := st.Transactions.Summary()

	fmt.Fprintf(w, "Period:        %s\n", format.DateRangeLabel(f.StartDate, f.EndDate))
	fmt.Fprintf(w, "Transactions:  %d\n", s.TotalTransactions)
	fmt.Fprintf(w, "Income:        %s\n", money(st, s.TotalIncome))
	fmt.Fprintf(w, "Expenses:      %s\n", money(st, s.TotalExpenses))
	fmt.Fprintf(w, "Net:           %s\n", format.Amount(s.NetBalance, st.Currency(), format.AmountOptions{ShowPlus: true}))

	if len(s.CategorySpending) > 0 {
		fmt.Fprintln(w, "\nTop spending")
		top := s.CategorySpending
		if len(top) > 5 {
			top = top[:5]
		}
		tw := newTable(w)
		for _, ct := range top {
			fmt.Fprintf(tw, "  %s\t%s\t%s\n", ct.Name, money(st, ct.Amount), share(ct.Amount, s.TotalExpenses))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	if alerts := st.Budgets.Alerts(); len(alerts) > 0 {
		fmt.Fprintf(w, "\n%d budgets need attention (spendwise budgets progress --alerts)\n", len(alerts))
	}
	return nil
}

func share(part, whole decimal.Decimal) string {
	if !whole.IsPositive() {
		return ""
	}
	return part.Div(whole).Mul(decimal.NewFromInt(100)).StringFixed(1) + "%"
}

func newReportMonthlyCommand(env *environment) *cobra.Command {
	return reportCommand(env, "monthly", "Income and expenses per month", runReportMonthly)
}

func runReportMonthly(w io.Writer, st *app.State) error {
	months := aggregate.MonthlyTotals(st.Transactions.Filtered())

	tw := newTable(w)
	fmt.Fprintln(tw, "MONTH\tINCOME\tEXPENSES\tNET")
	for _, m := range months {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			m.Label(),
			money(st, m.Income),
			money(st, m.Expenses),
			format.Amount(m.Net(), st.Currency(), format.AmountOptions{ShowPlus: true}))
	}
	return tw.Flush()
}

func newReportCategoriesCommand(env *environment) *cobra.Command {
	return reportCommand(env, "categories", "Totals per category", runReportCategories)
}

func runReportCategories(w io.Writer, st *app.State) error {
	txs := st.Transactions.Filtered()
	cats := st.Transactions.Categories.Items()

	for _, typ := range []model.TransactionType{model.TypeExpense, model.TypeIncome} {
		f := st.Transactions.Filters()
		if f.Type != "" && !f.Type.Is(typ) {
			continue
		}
		breakdown := aggregate.CategoryBreakdown(txs, cats, typ)
		if len(breakdown) == 0 {
			continue
		}
		total := decimal.Zero
		for _, ct := range breakdown {
			total = total.Add(ct.Amount)
		}

		fmt.Fprintf(w, "%s\n", typ)
		tw := newTable(w)
		for _, ct := range breakdown {
			fmt.Fprintf(tw, "  %s\t%d\t%s\t%s\n", ct.Name, ct.Count, money(st, ct.Amount), share(ct.Amount, total))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		fmt.Fprintln(w)
	}
	return nil
}
