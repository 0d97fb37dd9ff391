package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/taskmon/internal/clierr"
	"github.com/twiced-technology-gmbh/taskmon/internal/output"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check store files for corruption and inconsistencies",
	Long: `Reads every store file and reports structural errors (malformed
JSON, invalid states, missing blocker notes) and consistency warnings
(stale progress cache, orphaned history entries). Exits non-zero when
errors are found.`,
	Args: cobra.NoArgs,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	report := openStore(cfg).Validate(cfg.HistoryRetentionDays)

	if outputFormat() == output.FormatJSON {
		if err := output.JSON(os.Stdout, report); err != nil {
			return err
		}
	} else {
		output.ReportTable(os.Stdout, report)
	}

	if !report.OK() {
		return &clierr.SilentError{Code: 1}
	}
	return nil
}
