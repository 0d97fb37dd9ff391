package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/twiced-technology-gmbh/taskmon/internal/clierr"
	"github.com/twiced-technology-gmbh/taskmon/internal/output"
)

var resetCmd = &cobra.Command{
	Use:   "reset FEATURE",
	Short: "Delete all stored state for a feature",
	Long: `Removes the feature's tasks, history entries, and progress snapshot
from the store. Prompts for confirmation in interactive mode. Markdown
task files are left untouched, so a later discover can rebuild the
feature from scratch.`,
	Args: cobra.ExactArgs(1),
	RunE: runReset,
}

func init() {
	resetCmd.Flags().BoolP("yes", "y", false, "skip confirmation prompt")
	rootCmd.AddCommand(resetCmd)
}

func runReset(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st := openStore(cfg)

	yes, _ := cmd.Flags().GetBool("yes")
	if !yes {
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			return clierr.New(clierr.ConfirmationReq,
				"cannot prompt for confirmation (not a terminal); use --yes")
		}
		fmt.Fprintf(os.Stderr, "Reset feature %q? All stored state is deleted. [y/N] ", args[0])
		reader := bufio.NewReader(os.Stdin)
		answer, _ := reader.ReadString('\n')
		answer = strings.TrimSpace(strings.ToLower(answer))
		if answer != "y" && answer != "yes" {
			fmt.Fprintln(os.Stderr, "Canceled.")
			return nil
		}
	}

	backupIfEnabled(cfg, st)

	if err := st.Reset(args[0], true); err != nil {
		return err
	}

	if outputFormat() == output.FormatJSON {
		return output.JSON(os.Stdout, map[string]string{
			"status":  "reset",
			"feature": args[0],
		})
	}
	output.Messagef(os.Stdout, "Reset feature %s", args[0])
	return nil
}
