package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func (r *runner) reposCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "repos [workspace]",
		Short: "List repositories",
		Long:  "List repositories in a workspace, or your own repositories when no workspace is given.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := r.appFor(cmd)
			if err != nil {
				return err
			}
			var workspace string
			if len(args) == 1 {
				workspace = args[0]
			}
			repos, err := app.Browse.Repositories(cmd.Context(), workspace)
			if err != nil {
				return err
			}
			return r.render(cmd.OutOrStdout(), repos, func(tw *tabwriter.Writer) {
				fmt.Fprintln(tw, "REPOSITORY\tVISIBILITY\tBRANCH\tUPDATED")
				for _, repo := range repos {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", repo.FullName, visibility(repo.IsPrivate), repo.MainBranch, formatTime(repo.UpdatedAt))
				}
			})
		},
	}
}

func (r *runner) repoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "repo <workspace/repo>",
		Short: "Show a repository",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := r.appFor(cmd)
			if err != nil {
				return err
			}
			repo, err := app.Browse.Repository(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return r.render(cmd.OutOrStdout(), repo, func(tw *tabwriter.Writer) {
				fmt.Fprintf(tw, "NAME\t%s\n", repo.FullName)
				fmt.Fprintf(tw, "DESCRIPTION\t%s\n", repo.Description)
				fmt.Fprintf(tw, "VISIBILITY\t%s\n", visibility(repo.IsPrivate))
				fmt.Fprintf(tw, "MAIN BRANCH\t%s\n", repo.MainBranch)
				fmt.Fprintf(tw, "URL\t%s\n", repo.HTMLURL)
				fmt.Fprintf(tw, "UPDATED\t%s\n", formatTime(repo.UpdatedAt))
			})
		},
	}
}

func (r *runner) commitsCommand() *cobra.Command {
	var ref string

	cmd := &cobra.Command{
		Use:   "commits <workspace/repo>",
		Short: "List recent commits",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := r.appFor(cmd)
			if err != nil {
				return err
			}
			commits, err := app.Browse.Commits(cmd.Context(), args[0], ref)
			if err != nil {
				return err
			}
			return r.render(cmd.OutOrStdout(), commits, func(tw *tabwriter.Writer) {
				fmt.Fprintln(tw, "COMMIT\tAUTHOR\tDATE\tMESSAGE")
				for _, c := range commits {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", c.ShortHash(), c.Author, formatTime(c.Date), firstLine(c.Message))
				}
			})
		},
	}

	cmd.Flags().StringVarP(&ref, "ref", "r", "", "branch, tag or commit (default: main branch)")
	return cmd
}

func (r *runner) lsCommand() *cobra.Command {
	var ref string

	cmd := &cobra.Command{
		Use:   "ls <workspace/repo> [path]",
		Short: "List files in a repository directory",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := r.appFor(cmd)
			if err != nil {
				return err
			}
			var path string
			if len(args) == 2 {
				path = args[1]
			}
			files, err := app.Browse.Source(cmd.Context(), args[0], ref, path)
			if err != nil {
				return err
			}
			return r.render(cmd.OutOrStdout(), files, func(tw *tabwriter.Writer) {
				fmt.Fprintln(tw, "TYPE\tSIZE\tPATH")
				for _, f := range files {
					size := fmt.Sprint(f.Size)
					if f.IsDir() {
						size = "-"
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\n", f.Type, size, f.Path)
				}
			})
		},
	}

	cmd.Flags().StringVarP(&ref, "ref", "r", "", "branch, tag or commit (default: main branch)")
	return cmd
}

func (r *runner) catCommand() *cobra.Command {
	var ref string

	cmd := &cobra.Command{
		Use:   "cat <workspace/repo> <path>",
		Short: "Print a file from a repository",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := r.appFor(cmd)
			if err != nil {
				return err
			}
			content, err := app.Browse.File(cmd.Context(), args[0], ref, args[1])
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(content)
			return err
		},
	}

	cmd.Flags().StringVarP(&ref, "ref", "r", "", "branch, tag or commit (default: main branch)")
	return cmd
}

func (r *runner) overviewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "overview",
		Short: "Show your account, repositories and snippets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := r.appFor(cmd)
			if err != nil {
				return err
			}
			ov, err := app.Browse.Overview(cmd.Context())
			if err != nil {
				return err
			}
			return r.render(cmd.OutOrStdout(), ov, func(tw *tabwriter.Writer) {
				fmt.Fprintf(tw, "USER\t%s\n", displayName(ov.User))
				fmt.Fprintf(tw, "REPOSITORIES\t%d\n", len(ov.Repositories))
				for _, repo := range ov.Repositories {
					fmt.Fprintf(tw, "\t%s\n", repo.FullName)
				}
				fmt.Fprintf(tw, "SNIPPETS\t%d\n", len(ov.Snippets))
				for _, s := range ov.Snippets {
					fmt.Fprintf(tw, "\t%s %s\n", s.ID, s.Title)
				}
			})
		},
	}
}
