package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/danieljhkim/pinrun/internal/snapshot"
)

// ExitError carries the exit status of a command launched by run.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("command exited with status %d", e.Code)
}

var runCmd = &cobra.Command{
	Use:   "run [flags] -- command [args...]",
	Short: "Resolve the working directory and execute a command there",
	Long: `Resolve the working directory of a run, then execute command from it.

The command inherits the environment plus:
  PINRUN_WORKING_DIRECTORY  the resolved working directory
  PINRUN_COMMIT             the snapshot commit (empty when not linked)
  PINRUN_REPOSITORY         the source repository root

Examples:
  pinrun run -- python train.py --lr 0.01
  pinrun run --context-file config.yaml -- python train.py config.yaml`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, res, err := resolveRun(cmd)
		if err != nil {
			return err
		}

		if !jsonOutput {
			PrintInfo(cmd.OutOrStdout(), fmt.Sprintf("Running from %s", res.WorkingDirectory))
		}
		a.logger.Info("starting run",
			slog.String("dir", res.WorkingDirectory),
			slog.String("commit", res.Snapshot.CommitHash),
			slog.String("command", args[0]))

		c := exec.CommandContext(cmd.Context(), args[0], args[1:]...)
		c.Dir = res.WorkingDirectory
		c.Env = append(os.Environ(), runEnv(res)...)
		c.Stdin = cmd.InOrStdin()
		c.Stdout = cmd.OutOrStdout()
		c.Stderr = cmd.ErrOrStderr()

		if err := c.Run(); err != nil {
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				return &ExitError{Code: exitErr.ExitCode()}
			}
			return fmt.Errorf("failed to start %s: %w", args[0], err)
		}
		return nil
	},
}

func init() {
	addContextFlags(runCmd)
}

func runEnv(res *snapshot.Result) []string {
	return []string{
		"PINRUN_WORKING_DIRECTORY=" + res.WorkingDirectory,
		"PINRUN_COMMIT=" + res.Snapshot.CommitHash,
		"PINRUN_REPOSITORY=" + res.Snapshot.RepositoryPath,
	}
}
