package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/danieljhkim/pinrun/internal/snapshot"
)

var (
	contextName string
	contextFile string
	pathOnly    bool
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve the working directory of a run",
	Long: `Resolve where a run launched from the current directory should execute.

With the git version manager, untracked files and uncommitted changes are
reconciled first, then the repository is snapshotted at the current commit
under <parent-work-dir>/<repository>/<commit>. The printed working directory
is the snapshot path joined with your position inside the repository.

Decisions are cached per context. The context is --context if given, else the
hash of --context-file, else the hash of the current directory.

Examples:
  pinrun resolve
  cd "$(pinrun resolve --path)"
  pinrun resolve --context-file config.yaml --non-interactive --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, res, err := resolveRun(cmd)
		if err != nil {
			return err
		}

		if pathOnly {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), res.WorkingDirectory)
			return err
		}

		if jsonOutput {
			return outputJSON(cmd, res)
		}

		printResult(cmd.OutOrStdout(), res)
		return nil
	},
}

func init() {
	addContextFlags(resolveCmd)
	resolveCmd.Flags().BoolVar(&pathOnly, "path", false, "Print only the working directory")
}

func addContextFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&contextName, "context", "", "Context name for cached decisions")
	cmd.Flags().StringVar(&contextFile, "context-file", "", "Derive the context from this configuration file's content")
}

// resolveRun resolves the working directory for the command's context.
func resolveRun(cmd *cobra.Command) (*app, *snapshot.Result, error) {
	a, err := newApp()
	if err != nil {
		return nil, nil, err
	}

	key, err := a.contextKey(contextName, contextFile)
	if err != nil {
		return nil, nil, err
	}

	mgr, err := a.newManager(key, cmd.InOrStdin(), cmd.ErrOrStderr())
	if err != nil {
		return nil, nil, err
	}

	res, err := mgr.ResolveWorkingDirectory(cmd.Context())
	if err != nil {
		return nil, nil, err
	}
	return a, res, nil
}

func printResult(w io.Writer, res *snapshot.Result) {
	PrintSection(w, "Run Directory")
	PrintLabelValue(w, "Working directory", res.WorkingDirectory)

	if res.Snapshot.CommitHash == "" {
		PrintLabelValueWithColor(w, "Commit", "not linked to a commit", warningColor)
	} else {
		PrintLabelValue(w, "Commit", res.Snapshot.CommitHash)
		state := "created"
		if res.Reused {
			state = "reused"
		}
		PrintLabelValue(w, "Snapshot", state)
	}
	if res.Snapshot.RepositoryPath != "" {
		PrintLabelValue(w, "Repository", res.Snapshot.RepositoryPath)
	}
	if len(res.Snapshot.Requirements) > 0 {
		PrintLabelValue(w, "Requirements", PrintCount(len(res.Snapshot.Requirements), "dependency", "dependencies"))
	}
	if len(res.Warnings) > 0 {
		PrintLabelValueWithColor(w, "Warnings", PrintCount(len(res.Warnings), "warning", "warnings"), warningColor)
	}
	_, _ = fmt.Fprintln(w)
}
