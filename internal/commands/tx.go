package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/spendwise-dev/spendwise/internal/app"
	"github.com/spendwise-dev/spendwise/internal/export"
	"github.com/spendwise-dev/spendwise/internal/filter"
	"github.com/spendwise-dev/spendwise/internal/format"
	"github.com/spendwise-dev/spendwise/internal/importer"
	"github.com/spendwise-dev/spendwise/internal/model"
)

func newTxCommand(env *environment) *cobra.Command {
	txCmd := &cobra.Command{
		Use:     "tx",
		Aliases: []string{"transactions"},
		Short:   "Manage transactions",
	}
	txCmd.AddCommand(
		newTxListCommand(env),
		newTxAddCommand(env),
		newTxEditCommand(env),
		newTxRmCommand(env),
		newTxImportCommand(env),
		newTxExportCommand(env),
	)
	return txCmd
}

// filterFlags are the transaction filter flags shared by list, export and
// report.
type filterFlags struct {
	typ      string
	category string
	account  string
	from     string
	to       string
	month    string
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.typ, "type", "", "income or expense")
	cmd.Flags().StringVar(&f.category, "category", "", "category id or name")
	cmd.Flags().StringVar(&f.account, "account", "", "account id or name")
	cmd.Flags().StringVar(&f.from, "from", "", "first date, YYYY-MM-DD")
	cmd.Flags().StringVar(&f.to, "to", "", "last date, YYYY-MM-DD")
	cmd.Flags().StringVar(&f.month, "month", "", "calendar month, YYYY-MM (\"current\" or \"previous\" also accepted)")
}

func (f *filterFlags) build(st *app.State) (filter.Filter, error) {
	var out filter.Filter
	var err error

	if f.typ != "" {
		if out.Type, err = parseType(f.typ); err != nil {
			return out, err
		}
	}
	if f.category != "" {
		c, err := findCategory(st, f.category)
		if err != nil {
			return out, err
		}
		out.CategoryID = c.ID
	}
	if f.account != "" {
		a, err := findAccount(st, f.account)
		if err != nil {
			return out, err
		}
		out.AccountID = a.ID
	}

	switch f.month {
	case "":
	case "current":
		r := format.CurrentMonth(st.Today())
		out.StartDate, out.EndDate = r.Start, r.End
	case "previous":
		r := format.PreviousMonth(st.Today())
		out.StartDate, out.EndDate = r.Start, r.End
	default:
		start, err := model.ParseDate(f.month + "-01")
		if err != nil {
			return out, fmt.Errorf("invalid month %q: use YYYY-MM", f.month)
		}
		out.StartDate, out.EndDate = start, start.EndOfMonth()
	}

	if out.StartDate, err = parseDateFlag(f.from, out.StartDate); err != nil {
		return out, err
	}
	if out.EndDate, err = parseDateFlag(f.to, out.EndDate); err != nil {
		return out, err
	}
	return out, nil
}

func newTxListCommand(env *environment) *cobra.Command {
	var filters filterFlags
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List transactions, newest first",
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
			return runTxList(cmd.OutOrStdout(), st, limit)
		},
	}

	filters.register(cmd)
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "show at most n transactions (0 for all)")

	return cmd
}

func runTxList(w io.Writer, st *app.State, limit int) error {
	txs := filter.SortByDateDesc(st.Transactions.Filtered())
	total := len(txs)
	if limit > 0 && len(txs) > limit {
		txs = txs[:limit]
	}

	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tDATE\tTYPE\tAMOUNT\tCATEGORY\tDESCRIPTION")
	for _, tx := range txs {
		amount := tx.Amount
		if tx.IsExpense() {
			amount = amount.Neg()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			tx.ID,
			dateText(st, tx.Date),
			strings.ToLower(string(tx.Type)),
			format.Amount(amount, st.Currency(), format.AmountOptions{ShowPlus: true}),
			categoryName(st, tx),
			tx.Description)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	s := st.Transactions.Summary()
	fmt.Fprintf(w, "\n%d of %d transactions  income %s  expenses %s  net %s\n",
		len(txs), total,
		money(st, s.TotalIncome),
		money(st, s.TotalExpenses),
		money(st, s.NetBalance))
	return nil
}

// txFlags are the editable transaction fields.
type txFlags struct {
	typ         string
	amount      string
	description string
	category    string
	account     string
	date        string
	notes       string
}

func (f *txFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.typ, "type", "expense", "income or expense")
	cmd.Flags().StringVar(&f.amount, "amount", "", "amount, e.g. 12.50")
	cmd.Flags().StringVar(&f.description, "description", "", "description")
	cmd.Flags().StringVar(&f.category, "category", "", "category id or name")
	cmd.Flags().StringVar(&f.account, "account", "", "account id or name")
	cmd.Flags().StringVar(&f.date, "date", "", "date, YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&f.notes, "notes", "", "notes")
}

// apply copies the flags the user set onto tx.
func (f *txFlags) apply(cmd *cobra.Command, st *app.State, tx *model.Transaction) error {
	changed := cmd.Flags().Changed
	var err error

	if changed("type") || tx.Type == "" {
		if tx.Type, err = parseType(f.typ); err != nil {
			return err
		}
	}
	if changed("amount") {
		if tx.Amount, err = parseAmount(f.amount); err != nil {
			return err
		}
	}
	if changed("description") {
		tx.Description = f.description
	}
	if changed("category") {
		c, err := findCategory(st, f.category)
		if err != nil {
			return err
		}
		tx.CategoryID, tx.Category = c.ID, nil
	}
	if changed("account") {
		a, err := findAccount(st, f.account)
		if err != nil {
			return err
		}
		tx.AccountID = a.ID
	}
	if changed("date") || tx.Date.IsZero() {
		if tx.Date, err = parseDateFlag(f.date, st.Today()); err != nil {
			return err
		}
	}
	if changed("notes") {
		tx.Notes = f.notes
	}
	return nil
}

func newTxAddCommand(env *environment) *cobra.Command {
	var flags txFlags

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a transaction",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := env.load(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			var draft model.Transaction
			if err := flags.apply(cmd, st, &draft); err != nil {
				return err
			}
			tx, err := st.Transactions.Create(cmd.Context(), draft)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s %s %s (%s)\n", tx.Type, money(st, tx.Amount), tx.Description, tx.ID)
			return nil
		},
	}

	flags.register(cmd)
	_ = cmd.MarkFlagRequired("amount")
	_ = cmd.MarkFlagRequired("category")

	return cmd
}

func newTxEditCommand(env *environment) *cobra.Command {
	var flags txFlags

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change fields of a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := env.load(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			tx, ok := st.Transactions.Get(args[0])
			if !ok {
				return fmt.Errorf("no transaction %q", args[0])
			}
			if err := flags.apply(cmd, st, &tx); err != nil {
				return err
			}
			updated, err := st.Transactions.Update(cmd.Context(), tx.ID, tx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s\n", updated.ID)
			return nil
		},
	}

	flags.register(cmd)

	return cmd
}

func newTxRmCommand(env *environment) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>...",
		Aliases: []string{"delete"},
		Short:   "Delete transactions",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := env.load(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			for _, id := range args {
				if err := st.Transactions.Delete(cmd.Context(), id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", id)
			}
			return nil
		},
	}
}

func newTxImportCommand(env *environment) *cobra.Command {
	var formatName, expenseCat, incomeCat string
	var dryRun bool

	registry := importer.DefaultRegistry()

	cmd := &cobra.Command{
		Use:   "import <file-or-directory>",
		Short: "Import transactions from a bank or export CSV",
		Long: "Import transactions from a CSV statement. When given a directory, every CSV in it\n" +
			"is imported and moved to its processed/ subdirectory.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := env.load(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			opts := importOptions{format: formatName, dryRun: dryRun}
			if expenseCat != "" {
				c, err := findCategory(st, expenseCat)
				if err != nil {
					return err
				}
				opts.expenseCat = c.ID
			}
			if incomeCat != "" {
				c, err := findCategory(st, incomeCat)
				if err != nil {
					return err
				}
				opts.incomeCat = c.ID
			}
			return runTxImport(cmd, st, registry, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&formatName, "format", "chase", "file format: "+strings.Join(registry.Formats(), ", "))
	cmd.Flags().StringVar(&expenseCat, "expense-category", "", "category for uncategorized expenses")
	cmd.Flags().StringVar(&incomeCat, "income-category", "", "category for uncategorized income")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "parse and report without creating anything")

	return cmd
}

type importOptions struct {
	format     string
	expenseCat string
	incomeCat  string
	dryRun     bool
}

func runTxImport(cmd *cobra.Command, st *app.State, registry *importer.Registry, path string, opts importOptions) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	if !info.IsDir() {
		return importFile(cmd, st, registry, path, opts)
	}

	files, err := importer.Scan(path)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "No CSV files in %s\n", path)
		return nil
	}
	for _, f := range files {
		if err := importFile(cmd, st, registry, f.Path, opts); err != nil {
			return err
		}
		if !opts.dryRun {
			if err := importer.MarkProcessed(path, f.Name); err != nil {
				return err
			}
		}
	}
	return nil
}

func importFile(cmd *cobra.Command, st *app.State, registry *importer.Registry, path string, opts importOptions) error {
	drafts, err := registry.ParseFile(path, opts.format)
	if err != nil {
		return err
	}
	drafts = importer.Categorize(drafts, opts.expenseCat, opts.incomeCat)
	fresh, skipped := importer.Dedupe(drafts, st.Transactions.Items())

	name := filepath.Base(path)
	if opts.dryRun {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d new, %d duplicates (dry run)\n", name, len(fresh), skipped)
		return nil
	}

	created := 0
	for _, d := range fresh {
		if _, err := st.Transactions.Create(cmd.Context(), d); err != nil {
			return fmt.Errorf("%s: imported %d before failing: %w", name, created, err)
		}
		created++
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: imported %d, skipped %d duplicates\n", name, created, skipped)
	return nil
}

func newTxExportCommand(env *environment) *cobra.Command {
	var filters filterFlags
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write transactions as CSV",
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
			txs := filter.SortByDateDesc(st.Transactions.Filtered())

			if output == "" || output == "-" {
				return export.WriteTransactions(cmd.OutOrStdout(), txs, st.Transactions.Categories.Items())
			}
			file, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("creating %s: %w", output, err)
			}
			if err := export.WriteTransactions(file, txs, st.Transactions.Categories.Items()); err != nil {
				file.Close()
				return err
			}
			if err := file.Close(); err != nil {
				return fmt.Errorf("closing %s: %w", output, err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d transactions to %s\n", len(txs), output)
			return nil
		},
	}

	filters.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")

	return cmd
}
