package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/taskmon/internal/clierr"
	"github.com/twiced-technology-gmbh/taskmon/internal/config"
	"github.com/twiced-technology-gmbh/taskmon/internal/output"
)

var discoverCmd = &cobra.Command{
	Use:   "discover [FEATURE]",
	Short: "Scan markdown task files and merge them into the store",
	Long: `Reads the markdown files under features/<FEATURE>/ and merges the
declared tasks into stored state. Discovery never reverts externally
reported progress; malformed files are skipped with a warning.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDiscover,
}

func init() {
	discoverCmd.Flags().Bool("all", false, "scan every feature directory")
	rootCmd.AddCommand(discoverCmd)
}

// discoverResult summarizes one feature's merge for JSON output.
type discoverResult struct {
	FeatureID string `json:"feature_id"`
	Created   int    `json:"created"`
	Updated   int    `json:"updated"`
	Total     int    `json:"total"`
	Warnings  int    `json:"warnings"`
}

func runDiscover(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	mgr := openManager(cfg)

	all, _ := cmd.Flags().GetBool("all")
	var features []string
	switch {
	case all:
		features, err = listFeatureDirs(cfg)
		if err != nil {
			return err
		}
	case len(args) == 1:
		features = []string{args[0]}
	default:
		return clierr.New(clierr.InvalidInput, "provide a feature name or use --all")
	}

	results := make([]discoverResult, 0, len(features))
	for _, featureID := range features {
		out, err := mgr.Discover(featureID, cfg.FeaturePath(featureID))
		if err != nil {
			return err
		}
		printWarnings(out.Warnings)
		results = append(results, discoverResult{
			FeatureID: featureID,
			Created:   out.Created,
			Updated:   out.Updated,
			Total:     len(out.Feature.Tasks),
			Warnings:  len(out.Warnings),
		})
	}

	if outputFormat() == output.FormatJSON {
		return output.JSON(os.Stdout, results)
	}
	for _, r := range results {
		output.Messagef(os.Stdout, "Discovered %s: %d tasks (%d new, %d updated)",
			r.FeatureID, r.Total, r.Created, r.Updated)
	}
	return nil
}

// autoDiscover merges markdown declarations before a read when the config
// enables auto-discovery. A failure degrades to a warning so the read path
// still serves stored state.
func autoDiscover(cfg *config.Config, featureID string) {
	dir := cfg.FeaturePath(featureID)
	if _, err := os.Stat(dir); err != nil {
		return
	}
	out, err := openManager(cfg).Discover(featureID, dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: auto-discovery failed: %v\n", err)
		return
	}
	printWarnings(out.Warnings)
}

// listFeatureDirs returns all feature directory names under features/.
func listFeatureDirs(cfg *config.Config) ([]string, error) {
	entries, err := os.ReadDir(cfg.FeaturesPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}
