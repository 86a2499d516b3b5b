package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/spendwise-dev/spendwise/internal/settings"
)

func newSettingsCommand(env *environment) *cobra.Command {
	settingsCmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change preferences",
	}
	settingsCmd.AddCommand(
		newSettingsShowCommand(env),
		newSettingsSetCommand(env),
		newSettingsResetCommand(env),
	)
	return settingsCmd
}

func newSettingsShowCommand(env *environment) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the current preferences",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := env.open()
			if err != nil {
				return err
			}
			defer st.Close()

			data, err := yaml.Marshal(st.Prefs)
			if err != nil {
				return fmt.Errorf("marshaling settings: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

func newSettingsSetCommand(env *environment) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change one preference",
		Long:  "Change one preference. Keys:\n  " + strings.Join(settings.Keys(), "\n  "),
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := env.open()
			if err != nil {
				return err
			}
			defer st.Close()

			prefs := st.Prefs
			if err := prefs.Set(args[0], args[1]); err != nil {
				return err
			}
			if err := st.SavePrefs(prefs); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Set %s\n", strings.ToLower(args[0]))
			return nil
		},
	}
}

func newSettingsResetCommand(env *environment) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Restore default preferences",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := env.open()
			if err != nil {
				return err
			}
			defer st.Close()

			prefs, err := settings.Reset(st.Config.SettingsPath())
			if err != nil {
				return err
			}
			st.Prefs = prefs
			fmt.Fprintln(cmd.OutOrStdout(), "Settings restored to defaults")
			return nil
		},
	}
}
