package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/garyjia/grant-portal/internal/application/service"
)

func newLoginCmd(opts *rootOptions) *cobra.Command {
	var username string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to the Record API",
		Long: `Exchanges a username and password for a token. The token is kept in
the portal's session store and used by every later command.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app := opts.app
			out := cmd.OutOrStdout()
			in := bufio.NewReader(cmd.InOrStdin())

			if username == "" {
				fmt.Fprint(out, "Username: ")
				line, err := readLine(in)
				if err != nil {
					return fmt.Errorf("failed to read username: %w", err)
				}
				username = strings.TrimSpace(line)
			}

			fmt.Fprint(out, "Password: ")
			var password string
			var err error
			if app.ReadPassword != nil {
				password, err = app.ReadPassword()
			} else {
				password, err = readLine(in)
			}
			fmt.Fprintln(out)
			if err != nil {
				return fmt.Errorf("failed to read password: %w", err)
			}

			if err := app.Services.Auth.Login(cmd.Context(), app.SessionID, username, password); err != nil {
				return errors.New(service.LoginFailureMessage(err))
			}
			printSuccess(out, "Logged in as "+strings.TrimSpace(username))
			return nil
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "username (prompted when empty)")
	return cmd
}

func newLogoutCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app := opts.app
			if err := app.Services.Auth.Logout(cmd.Context(), app.SessionID); err != nil {
				return err
			}
			printSuccess(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func newSiteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "site [name]",
		Short: "Show or choose the record site",
		Long: `Without an argument, prints the site records are read from. With a
name, stores it for later commands. An empty name ("") restores the default.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := opts.app
			out := cmd.OutOrStdout()

			if len(args) == 1 {
				if err := app.Services.Auth.SetSite(cmd.Context(), app.SessionID, args[0]); err != nil {
					return err
				}
			}

			sess, err := app.Services.Auth.OpenSession(cmd.Context(), app.SessionID)
			if err != nil {
				return err
			}
			if len(args) == 1 {
				printSuccess(out, "Site set to "+sess.SiteOr(app.DefaultSite))
				return nil
			}
			fmt.Fprintln(out, sess.SiteOr(app.DefaultSite))
			return nil
		},
	}
}

// readTerminalPassword reads from the terminal without echo
func readTerminalPassword() (string, error) {
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
