package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/spendwise-dev/spendwise/internal/model"
)

func newCategoriesCommand(env *environment) *cobra.Command {
	catCmd := &cobra.Command{
		Use:     "categories",
		Aliases: []string{"category", "cat"},
		Short:   "Manage categories",
	}
	catCmd.AddCommand(
		newCategoriesListCommand(env),
		newCategoriesAddCommand(env),
		newCategoriesRmCommand(env),
		newCategoriesSeedCommand(env),
	)
	return catCmd
}

func newCategoriesListCommand(env *environment) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List categories with their totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := env.load(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			totals := st.Transactions.CategoryTotals()
			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintln(tw, "ID\tNAME\tTYPE\tTOTAL\tMONTHLY BUDGET")
			for _, c := range st.Transactions.Categories.Items() {
				budget := ""
				if c.MonthlyBudget != nil {
					budget = money(st, *c.MonthlyBudget)
				}
				fmt.Fprintf(tw, "%s\t%s %s\t%s\t%s\t%s\n",
					c.ID, c.Icon, c.Name, strings.ToLower(string(c.Type)), money(st, totals[c.Name]), budget)
			}
			return tw.Flush()
		},
	}
}

func newCategoriesAddCommand(env *environment) *cobra.Command {
	var typ, color, icon, monthly string

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := env.load(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			t, err := parseType(typ)
			if err != nil {
				return err
			}
			draft := model.Category{Name: args[0], Type: t, Color: color, Icon: icon}
			if monthly != "" {
				amt, err := parseAmount(monthly)
				if err != nil {
					return err
				}
				draft.MonthlyBudget = &amt
			}

			c, err := st.Transactions.Categories.Create(cmd.Context(), draft)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added category %s (%s)\n", c.Name, c.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&typ, "type", "expense", "income or expense")
	cmd.Flags().StringVar(&color, "color", "", "display color, e.g. #ef4444")
	cmd.Flags().StringVar(&icon, "icon", "", "display icon")
	cmd.Flags().StringVar(&monthly, "monthly-budget", "", "optional monthly budget")

	return cmd
}

func newCategoriesRmCommand(env *environment) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id-or-name>",
		Short: "Delete a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := env.load(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			c, err := findCategory(st, args[0])
			if err != nil {
				return err
			}
			if err := st.Transactions.Categories.Delete(cmd.Context(), c.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted category %s\n", c.Name)
			return nil
		},
	}
}

func newCategoriesSeedCommand(env *environment) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create the starter categories that are missing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := env.load(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			existing := make(map[string]bool)
			for _, c := range st.Transactions.Categories.Items() {
				existing[strings.ToLower(c.Name)] = true
			}

			created := 0
			for _, c := range model.DefaultCategories() {
				if existing[strings.ToLower(c.Name)] {
					continue
				}
				if _, err := st.Transactions.Categories.Create(cmd.Context(), c); err != nil {
					return err
				}
				created++
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %d categories\n", created)
			return nil
		},
	}
}
