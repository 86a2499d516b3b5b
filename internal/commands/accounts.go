package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/spendwise-dev/spendwise/internal/aggregate"
	"github.com/spendwise-dev/spendwise/internal/model"
)

func newAccountsCommand(env *environment) *cobra.Command {
	acctCmd := &cobra.Command{
		Use:     "accounts",
		Aliases: []string{"account"},
		Short:   "Manage money accounts",
	}
	acctCmd.AddCommand(
		newAccountsListCommand(env),
		newAccountsAddCommand(env),
		newAccountsRmCommand(env),
		newAccountsTotalCommand(env),
	)
	return acctCmd
}

func newAccountsListCommand(env *environment) *cobra.Command {
	var typ string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := env.load(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			accts := st.Accounts.Items()
			if typ != "" {
				accts = st.Accounts.ByType(model.AccountType(typ))
			}

			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintln(tw, "ID\tNAME\tTYPE\tBALANCE\tCURRENCY\tACTIVE")
			for _, a := range accts {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%t\n",
					a.ID, a.Name, strings.ToLower(string(a.Type)), money(st, a.Balance), a.Currency, a.Active())
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&typ, "type", "", "only accounts of this type")

	return cmd
}

func newAccountsAddCommand(env *environment) *cobra.Command {
	var typ, balance, currency string
	var inactive bool

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Create an account",
		Long:  "Create an account. Balances are signed: enter money owed on a credit card as a negative balance.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := env.load(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			bal, err := parseAmount(balance)
			if err != nil {
				return err
			}
			active := !inactive
			draft := model.Account{
				Name:     args[0],
				Type:     model.AccountType(strings.ToLower(typ)),
				Balance:  bal,
				Currency: strings.ToUpper(currency),
				IsActive: &active,
			}
			a, err := st.Accounts.Create(cmd.Context(), draft)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added account %s (%s)\n", a.Name, a.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&typ, "type", string(model.AccountChecking), "checking, savings, credit, investment or cash")
	cmd.Flags().StringVar(&balance, "balance", "0", "opening balance, negative for debt")
	cmd.Flags().StringVar(&currency, "currency", model.DefaultCurrency, "ISO currency code")
	cmd.Flags().BoolVar(&inactive, "inactive", false, "create the account switched off")

	return cmd
}

func newAccountsRmCommand(env *environment) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id-or-name>",
		Short: "Delete an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := env.load(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			a, err := findAccount(st, args[0])
			if err != nil {
				return err
			}
			if err := st.Accounts.Delete(cmd.Context(), a.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted account %s\n", a.Name)
			return nil
		},
	}
}

func newAccountsTotalCommand(env *environment) *cobra.Command {
	return &cobra.Command{
		Use:   "total",
		Short: "Show total balance and net worth",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := env.load(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			out := cmd.OutOrStdout()
			byType := aggregate.BalancesByType(st.Accounts.Items())
			tw := newTable(out)
			for _, t := range model.AccountTypes {
				if bal, ok := byType[t]; ok {
					fmt.Fprintf(tw, "%s\t%s\n", t, money(st, bal))
				}
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			nw := st.Accounts.NetWorth()
			fmt.Fprintf(out, "\nAssets       %s\n", money(st, nw.Assets))
			fmt.Fprintf(out, "Liabilities  %s\n", money(st, nw.Liabilities))
			fmt.Fprintf(out, "Net worth    %s\n", money(st, nw.Net))
			fmt.Fprintf(out, "Total balance %s (%d active accounts)\n", money(st, st.Accounts.TotalBalance()), len(st.Accounts.Active()))
			return nil
		},
	}
}
