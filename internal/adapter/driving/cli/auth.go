package cli

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ericfisherdev/bitbrowse/internal/domain/model"
)

func (r *runner) loginCommand() *cobra.Command {
	var username string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store and verify credentials",
		Long: `Store a username and password (or app password) encrypted at rest and
verify them against the host. BITBROWSE_USERNAME and BITBROWSE_PASSWORD
skip the prompts.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := r.appFor(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			if username == "" {
				username = app.Username
			}
			if username == "" {
				if username, err = r.prompter.ReadLine(ctx, "Username: "); err != nil {
					return err
				}
			}

			password := app.Password
			if password == "" {
				if password, err = r.prompter.ReadPassword(ctx, "Password: "); err != nil {
					return err
				}
			}

			cred := model.Credential{Identifier: strings.TrimSpace(username), Secret: password}
			if !cred.Valid() {
				return errors.New("username and password are required")
			}

			user, err := app.Session.Login(ctx, cred)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Logged in to %s as %s\n", app.Host, displayName(user))
			return nil
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "account username or email")
	return cmd
}

func (r *runner) logoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove stored credentials and tokens",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := r.appFor(cmd)
			if err != nil {
				return err
			}
			if err := app.Session.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func (r *runner) whoamiCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the authenticated account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := r.appFor(cmd)
			if err != nil {
				return err
			}
			user, err := app.Session.CurrentUser(cmd.Context())
			if err != nil {
				return err
			}
			return r.render(cmd.OutOrStdout(), user, func(tw *tabwriter.Writer) {
				fmt.Fprintf(tw, "USERNAME\t%s\n", user.Username)
				fmt.Fprintf(tw, "NAME\t%s\n", user.DisplayName)
				fmt.Fprintf(tw, "ACCOUNT\t%s\n", user.AccountID)
			})
		},
	}
}

// authStatus is the status command's output.
type authStatus struct {
	Host        string     `json:"host" yaml:"host"`
	Mode        string     `json:"mode" yaml:"mode"`
	LoggedIn    bool       `json:"logged_in" yaml:"logged_in"`
	Identifier  string     `json:"identifier,omitempty" yaml:"identifier,omitempty"`
	TokenUsable bool       `json:"token_usable" yaml:"token_usable"`
	TokenExpiry *time.Time `json:"token_expiry,omitempty" yaml:"token_expiry,omitempty"`
}

func (r *runner) statusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show local authentication state without contacting the host",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := r.appFor(cmd)
			if err != nil {
				return err
			}
			creds := app.Session.Credentials()

			st := authStatus{Host: app.Host, Mode: app.Mode.String()}
			cred, err := creds.LoadCredentials(cmd.Context())
			if err != nil {
				return err
			}
			if cred != nil {
				st.LoggedIn = true
				st.Identifier = cred.Identifier
			}
			if app.Mode == model.AuthModeToken {
				st.TokenUsable = creds.TokenUsable()
				if tok := creds.LastToken(); tok != nil {
					st.TokenExpiry = tok.Expiry
				}
			}

			return r.render(cmd.OutOrStdout(), st, func(tw *tabwriter.Writer) {
				fmt.Fprintf(tw, "HOST\t%s\n", st.Host)
				fmt.Fprintf(tw, "MODE\t%s\n", st.Mode)
				fmt.Fprintf(tw, "LOGGED IN\t%t\n", st.LoggedIn)
				if st.Identifier != "" {
					fmt.Fprintf(tw, "IDENTIFIER\t%s\n", st.Identifier)
				}
				if app.Mode == model.AuthModeToken {
					fmt.Fprintf(tw, "TOKEN USABLE\t%t\n", st.TokenUsable)
					if st.TokenExpiry != nil {
						fmt.Fprintf(tw, "TOKEN EXPIRY\t%s\n", formatTime(*st.TokenExpiry))
					}
				}
			})
		},
	}
}

func (r *runner) tokenCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "token",
		Short: "Print a valid bearer token, refreshing it if needed",
		Long: `Print a valid bearer token for use in scripts. Only available with
BITBROWSE_AUTH_MODE=token.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := r.appFor(cmd)
			if err != nil {
				return err
			}
			if app.Mode != model.AuthModeToken {
				return fmt.Errorf("token requires BITBROWSE_AUTH_MODE=token (current mode: %s)", app.Mode)
			}
			tok, err := app.Session.Credentials().GetValidToken(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok.Value)
			return nil
		},
	}
}

func displayName(u model.User) string {
	if u.DisplayName != "" && u.DisplayName != u.Username {
		return fmt.Sprintf("%s (%s)", u.Username, u.DisplayName)
	}
	return u.Username
}
