package cli

import (
	"github.com/spf13/cobra"

	"github.com/danieljhkim/pinrun/internal/snapshot"
)

var snapshotsCmd = &cobra.Command{
	Use:   "snapshots",
	Short: "Inspect code snapshots",
}

var snapshotsLsCmd = &cobra.Command{
	Use:   "ls [repository]",
	Short: "List snapshots under the parent work directory",
	Long: `List the snapshot directories under the parent work directory,
optionally restricted to one repository name.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}

		repo := ""
		if len(args) == 1 {
			repo = args[0]
		}

		entries, err := snapshot.NewCatalog(a.fs, a.cfg.ParentWorkDir).List(repo)
		if err != nil {
			return err
		}

		if jsonOutput {
			return outputJSON(cmd, entries)
		}

		if len(entries) == 0 {
			PrintSection(cmd.OutOrStdout(), "Snapshots")
			PrintEmptyState(cmd.OutOrStdout(), "No snapshots found")
			return nil
		}

		PrintSection(cmd.OutOrStdout(), "Snapshots")
		rows := make([][]string, 0, len(entries))
		for _, e := range entries {
			manifest := "no"
			if e.HasManifest {
				manifest = "yes"
			}
			rows = append(rows, []string{e.Repository, e.Commit, manifest, e.Path})
		}
		PrintTable(cmd.OutOrStdout(), []string{"Repository", "Commit", "Requirements", "Path"}, rows)
		return nil
	},
}

func init() {
	snapshotsCmd.AddCommand(snapshotsLsCmd)
}
