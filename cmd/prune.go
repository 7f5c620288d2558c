package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/driveback/driveback/pkg/catalog"
	"github.com/driveback/driveback/pkg/preflight"
	"github.com/driveback/driveback/pkg/report"
)

var pruneKeep int

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete archives beyond the retention count",
	Long: `Apply the retention policy to the storage root without running a
backup: keep the newest archives up to the retention count and delete
the rest. By default the configured retention count is used.`,
	RunE: runPrune,
}

func init() {
	pruneCmd.Flags().IntVar(&pruneKeep, "keep", 0, "retention count to apply (default: configured value)")
}

func runPrune(cmd *cobra.Command, args []string) error {
	cfg, _, _, err := loadRunState()
	if err != nil {
		return err
	}

	keep := cfg.RetentionCount
	if pruneKeep > 0 {
		keep = pruneKeep
	}

	if err := preflight.EnsureStorageRoot(cfg.DrivePath); err != nil {
		return err
	}
	entries, err := catalog.List(cfg.DrivePath)
	if err != nil {
		return err
	}

	rep := report.NewConsole()
	deleted := catalog.Prune(entries, keep, rep)
	rep.Log(fmt.Sprintf("Kept %d, deleted %d.", len(entries)-deleted, deleted))
	return nil
}
