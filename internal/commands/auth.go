package commands

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/spendwise-dev/spendwise/internal/gateway"
)

// readPassword returns flagValue, or the first line of in when the flag is
// empty.
func readPassword(in io.Reader, flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading password: %w", err)
	}
	pw := strings.TrimRight(line, "\r\n")
	if pw == "" {
		return "", errors.New("password is required: pass --password or pipe it on stdin")
	}
	return pw, nil
}

func newLoginCommand(env *environment) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to the backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := readPassword(cmd.InOrStdin(), password)
			if err != nil {
				return err
			}
			st, err := env.open()
			if err != nil {
				return err
			}
			defer st.Close()

			user, err := st.Auth.Login(cmd.Context(), gateway.Credentials{Email: email, Password: pw})
			if err != nil {
				return fmt.Errorf("login failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", user.Email)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email (required)")
	_ = cmd.MarkFlagRequired("email")
	cmd.Flags().StringVar(&password, "password", "", "password (read from stdin when omitted)")

	return cmd
}

func newRegisterCommand(env *environment) *cobra.Command {
	var reg gateway.Registration

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := readPassword(cmd.InOrStdin(), reg.Password)
			if err != nil {
				return err
			}
			reg.Password = pw

			st, err := env.open()
			if err != nil {
				return err
			}
			defer st.Close()

			user, err := st.Auth.Register(cmd.Context(), reg)
			if err != nil {
				return fmt.Errorf("registration failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered and logged in as %s\n", user.Email)
			return nil
		},
	}

	cmd.Flags().StringVar(&reg.Email, "email", "", "account email (required)")
	_ = cmd.MarkFlagRequired("email")
	cmd.Flags().StringVar(&reg.FirstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&reg.LastName, "last-name", "", "last name")
	cmd.Flags().StringVar(&reg.Password, "password", "", "password (read from stdin when omitted)")

	return cmd
}

func newLogoutCommand(env *environment) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the session and local data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := env.open()
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func newWhoamiCommand(env *environment) *cobra.Command {
	var check bool

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
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
			if st.Auth.Expired() {
				_ = st.Auth.Logout()
				return errors.New("session expired: run 'spendwise login' again")
			}
			if check {
				ok, err := st.Auth.Validate(cmd.Context())
				if err != nil {
					return fmt.Errorf("validating session: %w", err)
				}
				if !ok {
					return errors.New("session rejected by the backend: run 'spendwise login' again")
				}
			}

			user, _ := st.Auth.User()
			name := strings.TrimSpace(user.FirstName + " " + user.LastName)
			if name == "" {
				name = user.Email
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s <%s>\n", name, user.Email)
			fmt.Fprintf(cmd.OutOrStdout(), "Backend: %s\n", st.API.BaseURL())
			return nil
		},
	}

	cmd.Flags().BoolVar(&check, "check", false, "confirm the session with the backend")

	return cmd
}
