// Package cli is the command-line driving adapter. Commands translate flags
// and arguments into calls on the application Session and BrowseService.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ericfisherdev/bitbrowse/internal/application"
	"github.com/ericfisherdev/bitbrowse/internal/domain/model"
	"github.com/ericfisherdev/bitbrowse/internal/domain/port/driven"
)

// Process exit codes.
const (
	ExitOK       = 0
	ExitError    = 1
	ExitAuth     = 3
	ExitNotFound = 4
)

// Build information, set by SetVersionInfo.
var (
	version = "dev"
	commit  = "none"
)

// SetVersionInfo updates the build information shown by --version.
func SetVersionInfo(v, c string) {
	version = v
	commit = c
}

// App is everything a command needs, assembled by the composition root.
type App struct {
	Mode    model.AuthMode
	Host    string
	Session *application.Session
	Browse  *application.BrowseService

	// Username and Password pre-fill the login prompts.
	Username string
	Password string
}

// Bootstrap builds the App. It runs at most once per invocation, and only for
// commands that need it.
type Bootstrap func(ctx context.Context) (*App, error)

// Option configures Execute.
type Option func(*runner)

// WithIO replaces the process's standard streams.
func WithIO(stdin io.Reader, stdout, stderr io.Writer) Option {
	return func(r *runner) {
		r.stdin, r.stdout, r.stderr = stdin, stdout, stderr
	}
}

// WithPrompter replaces the terminal prompter.
func WithPrompter(p Prompter) Option {
	return func(r *runner) { r.prompter = p }
}

type runner struct {
	bootstrap Bootstrap
	app       *App
	prompter  Prompter
	output    string

	stdin          io.Reader
	stdout, stderr io.Writer
}

// Execute runs the command line args and releases the App afterwards.
func Execute(ctx context.Context, bootstrap Bootstrap, args []string, opts ...Option) error {
	r := &runner{
		bootstrap: bootstrap,
		stdin:     os.Stdin,
		stdout:    os.Stdout,
		stderr:    os.Stderr,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.prompter == nil {
		r.prompter = NewTerminalPrompter(r.stdin, r.stderr)
	}

	root := r.rootCommand()
	root.SetArgs(args)
	root.SetIn(r.stdin)
	root.SetOut(r.stdout)
	root.SetErr(r.stderr)

	defer func() {
		if r.app == nil || r.app.Session == nil {
			return
		}
		if err := r.app.Session.Close(); err != nil {
			slog.Error("closing secret store", "error", err)
		}
	}()

	return root.ExecuteContext(ctx)
}

func (r *runner) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "bitbrowse",
		Short: "Browse Bitbucket and GitHub repositories from the terminal",
		Long: `bitbrowse lists repositories, commits, source files and snippets on
Bitbucket Cloud or GitHub. Credentials are stored encrypted; with
BITBROWSE_AUTH_MODE=token they are exchanged for short-lived bearer tokens.`,
		Version:       fmt.Sprintf("%s (%s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&r.output, "output", "o", formatTable, "output format: table, json or yaml")

	root.AddCommand(
		r.loginCommand(),
		r.logoutCommand(),
		r.whoamiCommand(),
		r.statusCommand(),
		r.tokenCommand(),
		r.reposCommand(),
		r.repoCommand(),
		r.commitsCommand(),
		r.lsCommand(),
		r.catCommand(),
		r.snippetsCommand(),
		r.overviewCommand(),
	)
	return root
}

// appFor bootstraps the App on first use.
func (r *runner) appFor(cmd *cobra.Command) (*App, error) {
	if r.app != nil {
		return r.app, nil
	}
	if err := validFormat(r.output); err != nil {
		return nil, err
	}
	app, err := r.bootstrap(cmd.Context())
	if err != nil {
		return nil, err
	}
	r.app = app
	return app, nil
}

// ExitCode maps an error returned by Execute to a process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case model.IsAuthError(err), errors.Is(err, driven.ErrUnauthorized):
		return ExitAuth
	case errors.Is(err, driven.ErrNotFound):
		return ExitNotFound
	default:
		return ExitError
	}
}

// Hint returns a follow-up suggestion for err, or "".
func Hint(err error) string {
	switch {
	case errors.Is(err, model.ErrNoCredential):
		return "run 'bitbrowse login' first"
	case errors.Is(err, driven.ErrEncryptionKeyNotSet):
		return "set BITBROWSE_SECRET_KEY, BITBROWSE_PASSPHRASE or BITBROWSE_KMS_KEY_ID"
	case errors.Is(err, driven.ErrUnauthorized):
		return "the host rejected the stored credential; run 'bitbrowse login' again"
	default:
		return ""
	}
}
