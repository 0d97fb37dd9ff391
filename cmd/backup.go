package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/taskmon/internal/output"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Create a timestamped backup of the store files",
	Long: `Copies the store files into backups/<timestamp>/. Older backups
beyond max_backups are rotated out.`,
	Args: cobra.NoArgs,
	RunE: runBackup,
}

var backupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available backups",
	Args:  cobra.NoArgs,
	RunE:  runBackupList,
}

var backupRestoreCmd = &cobra.Command{
	Use:   "restore NAME",
	Short: "Restore store files from a backup",
	Long: `Replaces the current store files with the copies held in the named
backup. Restoring overwrites live state and only runs with --confirm.`,
	Args: cobra.ExactArgs(1),
	RunE: runBackupRestore,
}

func init() {
	backupRestoreCmd.Flags().Bool("confirm", false, "confirm overwriting the current store")
	backupCmd.AddCommand(backupListCmd)
	backupCmd.AddCommand(backupRestoreCmd)
	rootCmd.AddCommand(backupCmd)
}

func runBackup(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	name, err := openStore(cfg).Backup()
	if err != nil {
		return err
	}

	if outputFormat() == output.FormatJSON {
		return output.JSON(os.Stdout, map[string]string{"backup": name})
	}
	output.Messagef(os.Stdout, "Created backup %s", name)
	return nil
}

func runBackupList(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	names, err := openStore(cfg).Backups()
	if err != nil {
		return err
	}

	if outputFormat() == output.FormatJSON {
		return output.JSON(os.Stdout, names)
	}
	if len(names) == 0 {
		output.Messagef(os.Stdout, "No backups found")
		return nil
	}
	for _, name := range names {
		output.Messagef(os.Stdout, "%s", name)
	}
	return nil
}

func runBackupRestore(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	confirm, _ := cmd.Flags().GetBool("confirm")
	if err := openStore(cfg).Restore(args[0], confirm); err != nil {
		return err
	}

	if outputFormat() == output.FormatJSON {
		return output.JSON(os.Stdout, map[string]string{
			"status": "restored",
			"backup": args[0],
		})
	}
	output.Messagef(os.Stdout, "Restored store from backup %s", args[0])
	return nil
}
