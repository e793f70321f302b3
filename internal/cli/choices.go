package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
)

var choicesCmd = &cobra.Command{
	Use:   "choices",
	Short: "Inspect and reset cached decisions",
	Long: `Inspect and reset the decisions cached per context.

Once a decision is recorded for a context, pinrun does not ask again.
Clear a context to be asked on its next run.`,
}

var choicesLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List contexts with cached decisions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}

		contexts, err := a.store.Contexts()
		if err != nil {
			return err
		}

		if jsonOutput {
			return outputJSON(cmd, contexts)
		}

		PrintSection(cmd.OutOrStdout(), "Contexts")
		if len(contexts) == 0 {
			PrintEmptyState(cmd.OutOrStdout(), "No cached decisions")
			return nil
		}
		PrintList(cmd.OutOrStdout(), contexts, 1)
		return nil
	},
}

var choicesShowCmd = &cobra.Command{
	Use:   "show <context>",
	Short: "Show the decisions cached for a context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}

		key, err := a.namedContext(args[0])
		if err != nil {
			return err
		}

		rec, err := a.store.Snapshot(key)
		if err != nil {
			return err
		}

		if jsonOutput {
			return outputJSON(cmd, rec)
		}

		PrintSection(cmd.OutOrStdout(), fmt.Sprintf("Context %s", rec.Context))
		if len(rec.Choices) == 0 {
			PrintEmptyState(cmd.OutOrStdout(), "No cached decisions")
			return nil
		}

		keys := make([]string, 0, len(rec.Choices))
		for k := range rec.Choices {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			PrintLabelValue(cmd.OutOrStdout(), k, rec.Choices[k])
		}
		if !rec.UpdatedAt.IsZero() {
			PrintLabelValue(cmd.OutOrStdout(), "updated", rec.UpdatedAt.Format("2006-01-02 15:04:05 MST"))
		}
		return nil
	},
}

var choicesClearCmd = &cobra.Command{
	Use:   "clear <context>",
	Short: "Forget the decisions cached for a context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}

		key, err := a.namedContext(args[0])
		if err != nil {
			return err
		}

		if err := a.store.Clear(key); err != nil {
			return err
		}

		if jsonOutput {
			return outputJSON(cmd, map[string]string{"cleared": key})
		}
		PrintSuccess(cmd.OutOrStdout(), fmt.Sprintf("Cleared decisions for context %s", key))
		return nil
	},
}

func init() {
	choicesCmd.AddCommand(choicesLsCmd)
	choicesCmd.AddCommand(choicesShowCmd)
	choicesCmd.AddCommand(choicesClearCmd)
}
