package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ericfisherdev/bitbrowse/internal/domain/model"
)

func (r *runner) snippetsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "snippets",
		Aliases: []string{"snippet"},
		Short:   "Manage snippets (gists on GitHub)",
	}
	cmd.AddCommand(r.snippetsListCommand(), r.snippetsCreateCommand(), r.snippetsDeleteCommand())
	return cmd
}

func (r *runner) snippetsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List your snippets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := r.appFor(cmd)
			if err != nil {
				return err
			}
			snippets, err := app.Browse.Snippets(cmd.Context())
			if err != nil {
				return err
			}
			return r.render(cmd.OutOrStdout(), snippets, func(tw *tabwriter.Writer) {
				fmt.Fprintln(tw, "ID\tWORKSPACE\tTITLE\tVISIBILITY\tCREATED")
				for _, s := range snippets {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", s.ID, s.Workspace, s.Title, visibility(s.IsPrivate), formatTime(s.CreatedAt))
				}
			})
		},
	}
}

func (r *runner) snippetsCreateCommand() *cobra.Command {
	var (
		title   string
		name    string
		private bool
	)

	cmd := &cobra.Command{
		Use:   "create <file|->",
		Short: "Create a single-file snippet",
		Long:  "Create a snippet from a file, or from standard input when the file is '-' (requires --name).",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := r.appFor(cmd)
			if err != nil {
				return err
			}

			var content []byte
			if args[0] == "-" {
				if name == "" {
					return fmt.Errorf("--name is required when reading from standard input")
				}
				content, err = io.ReadAll(cmd.InOrStdin())
			} else {
				content, err = os.ReadFile(args[0])
				if name == "" {
					name = filepath.Base(args[0])
				}
			}
			if err != nil {
				return fmt.Errorf("read snippet content: %w", err)
			}

			created, err := app.Browse.CreateSnippet(cmd.Context(), model.NewSnippet{
				Title:     title,
				Filename:  name,
				Content:   string(content),
				IsPrivate: private,
			})
			if err != nil {
				return err
			}
			return r.render(cmd.OutOrStdout(), created, func(tw *tabwriter.Writer) {
				fmt.Fprintf(tw, "CREATED\t%s\n", created.ID)
				if created.HTMLURL != "" {
					fmt.Fprintf(tw, "URL\t%s\n", created.HTMLURL)
				}
			})
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "snippet title (default: the file name)")
	cmd.Flags().StringVarP(&name, "name", "n", "", "file name inside the snippet (default: base name of the file)")
	cmd.Flags().BoolVarP(&private, "private", "p", true, "create a private snippet")
	return cmd
}

func (r *runner) snippetsDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <workspace> <id>",
		Short: "Delete a snippet",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := r.appFor(cmd)
			if err != nil {
				return err
			}
			if err := app.Browse.DeleteSnippet(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted snippet %s\n", args[1])
			return nil
		},
	}
}
