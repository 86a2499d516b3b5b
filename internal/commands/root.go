package commands

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/spendwise-dev/spendwise/internal/app"
	"github.com/spendwise-dev/spendwise/internal/buildinfo"
	"github.com/spendwise-dev/spendwise/internal/config"
	"github.com/spendwise-dev/spendwise/internal/format"
	"github.com/spendwise-dev/spendwise/internal/model"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	env := &environment{}

	rootCmd := &cobra.Command{
		Use:     "spendwise",
		Short:   "Personal finance tracker",
		Version: buildinfo.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&env.configPath, "config", "", "config file (default $SPENDWISE_HOME/spendwise.yaml)")

	rootCmd.AddCommand(
		newInitCommand(),
		newLoginCommand(env),
		newRegisterCommand(env),
		newLogoutCommand(env),
		newWhoamiCommand(env),
		newSyncCommand(env),
		newTxCommand(env),
		newCategoriesCommand(env),
		newAccountsCommand(env),
		newBudgetsCommand(env),
		newReportCommand(env),
		newSettingsCommand(env),
		newActivityCommand(env),
		newWatchCommand(env),
		newDevServerCommand(),
	)

	return rootCmd
}

// environment carries root flags to subcommands.
type environment struct {
	configPath string
}

// open builds the client state without contacting the backend.
func (e *environment) open() (*app.State, error) {
	cfg, err := config.Resolve(e.configPath)
	if err != nil {
		return nil, err
	}
	return app.New(cfg, app.Deps{})
}

// load opens the state, requires a session and fetches every collection.
// When the backend is unreachable the last synced data is used.
func (e *environment) load(cmd *cobra.Command) (*app.State, error) {
	st, err := e.open()
	if err != nil {
		return nil, err
	}
	if err := st.RequireLogin(); err != nil {
		st.Close()
		return nil, err
	}
	stale, err := st.Load(cmd.Context())
	if err != nil {
		st.Close()
		return nil, err
	}
	if stale {
		fmt.Fprintln(cmd.ErrOrStderr(), "warning: backend unreachable, showing last synced data")
	}
	return st, nil
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func money(st *app.State, amount decimal.Decimal) string {
	return format.Currency(amount, st.Currency())
}

func dateText(st *app.State, d model.Date) string {
	return format.Date(d, st.Prefs.DateFormat)
}

func parseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q", s)
	}
	return d, nil
}

// parseDateFlag parses s, or returns fallback when s is empty.
func parseDateFlag(s string, fallback model.Date) (model.Date, error) {
	if strings.TrimSpace(s) == "" {
		return fallback, nil
	}
	d, err := model.ParseDate(s)
	if err != nil {
		return model.Date{}, fmt.Errorf("invalid date %q: use YYYY-MM-DD", s)
	}
	return d, nil
}

func parseType(s string) (model.TransactionType, error) {
	t, ok := model.ParseTransactionType(s)
	if !ok {
		return "", fmt.Errorf("invalid type %q: must be income or expense", s)
	}
	return t, nil
}

// findCategory matches ref against category ids, then names.
func findCategory(st *app.State, ref string) (model.Category, error) {
	cats := st.Transactions.Categories.Items()
	for _, c := range cats {
		if c.ID == ref {
			return c, nil
		}
	}
	for _, c := range cats {
		if strings.EqualFold(c.Name, ref) {
			return c, nil
		}
	}
	return model.Category{}, fmt.Errorf("no category %q", ref)
}

// findAccount matches ref against account ids, then names.
func findAccount(st *app.State, ref string) (model.Account, error) {
	accts := st.Accounts.Items()
	for _, a := range accts {
		if a.ID == ref {
			return a, nil
		}
	}
	for _, a := range accts {
		if strings.EqualFold(a.Name, ref) {
			return a, nil
		}
	}
	return model.Account{}, fmt.Errorf("no account %q", ref)
}

func categoryName(st *app.State, tx model.Transaction) string {
	if tx.Category != nil && tx.Category.Name != "" {
		return tx.Category.Name
	}
	if c, ok := st.Transactions.Categories.Get(tx.ResolvedCategoryID()); ok {
		return c.Name
	}
	return ""
}
