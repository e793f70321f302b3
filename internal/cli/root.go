package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	jsonOutput     bool
	dirFlag        string
	envFileFlag    string
	parentWorkDir  string
	versionManager string
	interactive    string
	nonInteractive bool
	requirements   bool
	logLevel       string
	logFormat      string

	// Colors for help output sections
	groupTitleColor   = color.New(color.FgCyan, color.Bold)
	sectionTitleColor = color.New(color.FgBlue, color.Bold)
)

// rootCmd is the root command for pinrun.
var rootCmd = &cobra.Command{
	Use:     "pinrun",
	Version: "dev",
	Short:   "Pin experiment runs to immutable snapshots of a git repository",
	Long: `pinrun links every run to the exact code it executes.

Before a run starts, pinrun reconciles untracked files and uncommitted changes
with you, then resolves a working directory inside a content-addressed snapshot
of the repository at the current commit. Snapshots are shared by every run of
the same commit and never overwritten. Decisions you make once per
configuration are remembered.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
}

func SetVersion(v string) {
	if v == "" {
		return
	}
	rootCmd.Version = v
	rootCmd.SetVersionTemplate("{{.Version}}\n")
}

// customHelpFunc returns a custom help function that colors group titles
func customHelpFunc(cmd *cobra.Command, args []string) {
	var help strings.Builder

	if cmd.Long != "" {
		help.WriteString(cmd.Long)
		help.WriteString("\n\n")
	}

	help.WriteString(sectionTitleColor.Sprint("Usage:"))
	help.WriteString("\n")
	fmt.Fprintf(&help, "  %s\n\n", cmd.UseLine())

	for _, group := range cmd.Groups() {
		help.WriteString(groupTitleColor.Sprint(group.Title))
		help.WriteString("\n")

		for _, c := range cmd.Commands() {
			if c.GroupID == group.ID && !c.Hidden {
				fmt.Fprintf(&help, "  %-11s %s\n", c.Name(), c.Short)
			}
		}
		help.WriteString("\n")
	}

	hasUngrouped := false
	for _, c := range cmd.Commands() {
		if c.GroupID == "" && !c.Hidden {
			if !hasUngrouped {
				help.WriteString(sectionTitleColor.Sprint("Additional Commands:"))
				help.WriteString("\n")
				hasUngrouped = true
			}
			fmt.Fprintf(&help, "  %-11s %s\n", c.Name(), c.Short)
		}
	}
	if hasUngrouped {
		help.WriteString("\n")
	}

	if cmd.HasAvailableLocalFlags() || cmd.HasAvailablePersistentFlags() {
		help.WriteString(sectionTitleColor.Sprint("Flags:"))
		help.WriteString("\n")
		help.WriteString(cmd.LocalFlags().FlagUsages())
		help.WriteString(cmd.InheritedFlags().FlagUsages())
		help.WriteString("\n")
	}

	fmt.Fprintf(&help, "Use \"%s [command] --help\" for more information about a command.\n", cmd.CommandPath())

	fmt.Fprint(cmd.OutOrStdout(), help.String())
}

func init() {
	rootCmd.SetHelpFunc(customHelpFunc)

	// Global flags
	pf := rootCmd.PersistentFlags()
	pf.BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	pf.StringVarP(&dirFlag, "dir", "C", "", "Run as if pinrun was started in this directory")
	pf.StringVar(&envFileFlag, "env-file", "", "Load settings from this .env file (default: ./.env)")
	pf.StringVar(&parentWorkDir, "parent-work-dir", "", "Parent directory of snapshots (env: PINRUN_PARENT_WORK_DIR)")
	pf.StringVar(&versionManager, "version-manager", "", "Version manager: git or disabled (env: PINRUN_VERSION_MANAGER)")
	pf.StringVar(&interactive, "interactive", "", "Prompt mode: auto, always or never (env: PINRUN_INTERACTIVE)")
	pf.BoolVar(&nonInteractive, "non-interactive", false, "Never prompt; apply default answers (same as --interactive=never)")
	pf.BoolVar(&requirements, "requirements", false, "Generate a requirements file for new snapshots (env: PINRUN_COMPUTE_REQUIREMENTS)")
	pf.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn or error (env: PINRUN_LOG_LEVEL)")
	pf.StringVar(&logFormat, "log-format", "", "Log format: text or json (env: PINRUN_LOG_FORMAT)")

	rootCmd.AddGroup(&cobra.Group{
		ID:    "runs",
		Title: "Runs:",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    "state",
		Title: "Decisions & Snapshots:",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    "cli-tooling",
		Title: "CLI & Tooling:",
	})

	versionCmd := &cobra.Command{
		Use:     "version",
		Short:   "Print the pinrun CLI version",
		Args:    cobra.NoArgs,
		GroupID: "cli-tooling",
		Run: func(cmd *cobra.Command, args []string) {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), rootCmd.Version)
		},
	}
	rootCmd.AddCommand(versionCmd)

	helpCmd := &cobra.Command{
		Use:     "help [command]",
		Short:   "Help about any command",
		GroupID: "cli-tooling",
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Root().Help()
		},
	}
	rootCmd.SetHelpCommand(helpCmd)

	resolveCmd.GroupID = "runs"
	runCmd.GroupID = "runs"
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(runCmd)

	choicesCmd.GroupID = "state"
	snapshotsCmd.GroupID = "state"
	rootCmd.AddCommand(choicesCmd)
	rootCmd.AddCommand(snapshotsCmd)
}

// Execute executes the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}
